package labels

import "github.com/mapo80/signature-detection/images"

// ToPixel converts a normalized center-form box to a pixel corner-form box.
//
// Each corner is computed as (center ± size/2) * dimension and converted to
// int, which truncates toward zero. No clamping is applied, so boxes that
// extend past the frame keep their out-of-range coordinates.
//
// Arguments:
//   - box: The normalized box.
//   - width: The image width in pixels.
//   - height: The image height in pixels.
//
// Returns:
//   - images.Rect: The pixel box.
func ToPixel(box NormalizedBox, width, height int) images.Rect {
	w, h := float64(width), float64(height)
	return images.Rect{
		X1: int((box.CenterX - box.Width/2) * w),
		Y1: int((box.CenterY - box.Height/2) * h),
		X2: int((box.CenterX + box.Width/2) * w),
		Y2: int((box.CenterY + box.Height/2) * h),
	}
}

// ToPixelAll converts every box with ToPixel, preserving order.
func ToPixelAll(boxes []NormalizedBox, width, height int) []images.Rect {
	rects := make([]images.Rect, 0, len(boxes))
	for _, b := range boxes {
		rects = append(rects, ToPixel(b, width, height))
	}
	return rects
}

// FromPixel is the inverse of ToPixel up to truncation.
func FromPixel(r images.Rect, width, height int) NormalizedBox {
	w, h := float64(width), float64(height)
	return NormalizedBox{
		CenterX: float64(r.X1+r.X2) / 2 / w,
		CenterY: float64(r.Y1+r.Y2) / 2 / h,
		Width:   float64(r.X2-r.X1) / w,
		Height:  float64(r.Y2-r.Y1) / h,
	}
}
