package images

import (
	"image"
	"os"
	"path/filepath"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"
)

func TestReadWrite(t *testing.T) {
	mat := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(40, 80, 120, 0), 48, 64, gocv.MatTypeCV8UC3)
	defer mat.Close()

	path := filepath.Join(t.TempDir(), "sample.png")
	require.NoError(t, Write(path, mat))

	loaded, err := Read(path)
	require.NoError(t, err)
	defer loaded.Close()

	assert.Equal(t, image.Pt(64, 48), Size(loaded))
	// PNG is lossless, so pixels survive the round trip.
	assert.Equal(t, ComputeMatChecksum(mat), ComputeMatChecksum(loaded))
}

func TestReadMissingFile(t *testing.T) {
	_, err := Read(filepath.Join(t.TempDir(), "missing.jpg"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrEmptyImage))
}

func TestReadCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "corrupt.jpg")
	require.NoError(t, os.WriteFile(path, []byte("not a jpeg"), 0o600))

	_, err := Read(path)
	assert.True(t, errors.Is(err, ErrEmptyImage))
}

func TestWriteEmptyMat(t *testing.T) {
	mat := gocv.NewMat()
	defer mat.Close()

	err := Write(filepath.Join(t.TempDir(), "out.jpg"), mat)
	assert.True(t, errors.Is(err, ErrEmptyImage))
}

func TestComputeMatChecksum(t *testing.T) {
	a := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(1, 2, 3, 0), 8, 8, gocv.MatTypeCV8UC3)
	defer a.Close()
	b := a.Clone()
	defer b.Close()

	assert.Equal(t, ComputeMatChecksum(a), ComputeMatChecksum(b))

	gocv.Rectangle(&b, image.Rect(1, 1, 5, 5), WhiteColor, 1)
	assert.NotEqual(t, ComputeMatChecksum(a), ComputeMatChecksum(b))

	empty := gocv.NewMat()
	defer empty.Close()
	assert.Equal(t, "empty", ComputeMatChecksum(empty))
}

func TestFormatFromPath(t *testing.T) {
	format, ok := FormatFromPath("a/b/IMG_01.JPG")
	assert.True(t, ok)
	assert.Equal(t, FormatJPEG, format)

	_, ok = FormatFromPath("notes.txt")
	assert.False(t, ok)

	assert.True(t, HasExtension("x.Jpg", ".jpg"))
	assert.False(t, HasExtension("x.png", ".jpg"))
}
