package test

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"

	"github.com/mapo80/signature-detection/images"
	"github.com/mapo80/signature-detection/labels"
)

// DatasetImage describes one image of a fixture dataset.
type DatasetImage struct {
	// Name is the image file name, e.g. "001.jpg".
	Name          string
	Width, Height int
	// Background is the BGR fill colour.
	Background gocv.Scalar
	// GroundTruth boxes are written to the label file in normalized form.
	GroundTruth []images.Rect
	// ExtraLines are appended verbatim to the label file.
	ExtraLines []string
	// NoLabel skips the label file.
	NoLabel bool
	// Corrupt writes bytes no decoder accepts instead of an image.
	Corrupt bool
}

// WriteDataset writes images/ and labels/ under a fresh temporary directory.
//
// Arguments:
// - t: The test; the directory is removed when it ends.
// - imgs: The images to write.
//
// Returns:
// - The dataset root.
//
// @example
// dir := WriteDataset(t, DatasetImage{Name: "001.jpg", Width: 64, Height: 64})
func WriteDataset(t testing.TB, imgs ...DatasetImage) string {
	t.Helper()

	root := t.TempDir()
	imagesDir := filepath.Join(root, "images")
	labelsDir := filepath.Join(root, labels.Dir)
	require.NoError(t, os.MkdirAll(imagesDir, 0o755))
	require.NoError(t, os.MkdirAll(labelsDir, 0o755))

	for _, img := range imgs {
		path := filepath.Join(imagesDir, img.Name)
		if img.Corrupt {
			require.NoError(t, os.WriteFile(path, []byte("not an image"), 0o600))
		} else {
			writeFrame(t, path, img)
		}

		if img.NoLabel {
			continue
		}
		var lines []string
		for _, r := range img.GroundTruth {
			b := labels.FromPixel(r, img.Width, img.Height)
			lines = append(lines, fmt.Sprintf("0 %g %g %g %g", b.CenterX, b.CenterY, b.Width, b.Height))
		}
		lines = append(lines, img.ExtraLines...)
		content := strings.Join(lines, "\n")
		require.NoError(t, os.WriteFile(labels.PathFor(root, img.Name), []byte(content), 0o600))
	}

	return root
}

// NewFrame creates a solid BGR frame. The caller must Close it.
func NewFrame(width, height int, background gocv.Scalar) gocv.Mat {
	return gocv.NewMatWithSizeFromScalar(background, height, width, gocv.MatTypeCV8UC3)
}

func writeFrame(t testing.TB, path string, img DatasetImage) {
	t.Helper()
	frame := NewFrame(img.Width, img.Height, img.Background)
	defer frame.Close()
	require.NoError(t, images.Write(path, frame))
}
