package inference

import (
	"image"

	"github.com/nfnt/resize"
	"github.com/pkg/errors"

	"github.com/mapo80/signature-detection/models/model"
)

// PrepareInput resizes img to size and writes it into dst as planar RGB
// (NCHW with N=1), scaled to [0,1] and then normalized per channel.
//
// Arguments:
//   - img: The image to prepare.
//   - dst: The destination tensor data to populate.
//   - size: The model input resolution.
//   - norm: The per channel normalization; the zero value leaves pixels in [0,1].
//
// Returns:
//   - error: An error if dst is too small for the input resolution.
func PrepareInput(img image.Image, dst []float32, size image.Point, norm model.Normalization) error {
	channelSize := size.X * size.Y
	if channelSize <= 0 {
		return errors.Errorf("invalid input size %v", size)
	}
	if len(dst) < channelSize*3 {
		return errors.Errorf("destination tensor only holds %d floats, needs %d (make sure it's the right shape!)",
			len(dst), channelSize*3)
	}
	red := dst[0:channelSize]
	green := dst[channelSize : channelSize*2]
	blue := dst[channelSize*2 : channelSize*3]

	resized := resize.Resize(uint(size.X), uint(size.Y), img, resize.Lanczos3)
	b := resized.Bounds()

	i := 0
	for y := b.Min.Y; y < b.Min.Y+size.Y; y++ {
		for x := b.Min.X; x < b.Min.X+size.X; x++ {
			r, g, bl, _ := resized.At(x, y).RGBA()
			red[i] = norm.Apply(0, float32(r>>8)/255.0)
			green[i] = norm.Apply(1, float32(g>>8)/255.0)
			blue[i] = norm.Apply(2, float32(bl>>8)/255.0)
			i++
		}
	}
	return nil
}
