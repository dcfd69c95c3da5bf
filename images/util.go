package images

import (
	"crypto/md5"
	"fmt"
	"image"

	"github.com/pkg/errors"
	"gocv.io/x/gocv"
)

// ErrEmptyImage is returned when an image could not be decoded or holds no pixels.
var ErrEmptyImage = errors.New("image is empty")

// ComputeMatChecksum generates a deterministic checksum for a Mat to verify idempotency.
//
// Arguments:
//   - mat: The Mat to compute checksum for.
//
// Returns:
//   - A hex-encoded MD5 checksum string.
func ComputeMatChecksum(mat gocv.Mat) string {
	if mat.Empty() {
		return "empty"
	}

	data, _ := mat.DataPtrUint8()
	hash := md5.New()
	hash.Write(data)
	return fmt.Sprintf("%x", hash.Sum(nil))
}

// Read decodes an image file into a BGR Mat.
//
// Arguments:
//   - path: The image file path.
//
// Returns:
//   - gocv.Mat: The decoded image, owned by the caller. Zero value on error.
//   - error: ErrEmptyImage wrapped with the path when decoding fails.
func Read(path string) (gocv.Mat, error) {
	mat := gocv.IMRead(path, gocv.IMReadColor)
	if mat.Empty() {
		_ = mat.Close()
		return gocv.Mat{}, errors.Wrapf(ErrEmptyImage, "read %s", path)
	}
	return mat, nil
}

// Write encodes a Mat to path; the codec is chosen from the file extension.
//
// Arguments:
//   - path: The destination file path.
//   - mat: The image to encode.
//
// Returns:
//   - error: An error if the Mat is empty or encoding fails.
func Write(path string, mat gocv.Mat) error {
	if mat.Empty() {
		return errors.Wrapf(ErrEmptyImage, "write %s", path)
	}
	if ok := gocv.IMWrite(path, mat); !ok {
		return errors.Errorf("failed to encode image to %s", path)
	}
	return nil
}

// Size returns the pixel dimensions of a Mat as an image.Point.
func Size(mat gocv.Mat) image.Point {
	return image.Pt(mat.Cols(), mat.Rows())
}
