package test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"

	"github.com/mapo80/signature-detection/common"
	"github.com/mapo80/signature-detection/images"
	"github.com/mapo80/signature-detection/labels"
)

func TestWriteDataset(t *testing.T) {
	root := WriteDataset(t,
		DatasetImage{
			Name: "001.jpg", Width: 64, Height: 32,
			GroundTruth: []images.Rect{{X1: 16, Y1: 8, X2: 48, Y2: 24}},
			ExtraLines:  []string{"0 0.5"},
		},
		DatasetImage{Name: "002.jpg", Width: 16, Height: 16, NoLabel: true},
		DatasetImage{Name: "003.jpg", Corrupt: true},
	)

	img, err := images.Read(filepath.Join(root, "images", "001.jpg"))
	require.NoError(t, err)
	defer img.Close()
	assert.Equal(t, 64, img.Cols())
	assert.Equal(t, 32, img.Rows())

	records, found, err := labels.ParseFile(labels.PathFor(root, "001.jpg"))
	require.NoError(t, err)
	require.True(t, found)
	require.Len(t, records, 1)
	assert.Equal(t, images.Rect{X1: 16, Y1: 8, X2: 48, Y2: 24}, labels.ToPixel(records[0].Box, 64, 32))

	_, err = os.Stat(labels.PathFor(root, "002.jpg"))
	assert.True(t, os.IsNotExist(err))

	_, err = images.Read(filepath.Join(root, "images", "003.jpg"))
	assert.ErrorIs(t, err, images.ErrEmptyImage)
}

func TestStubDetector(t *testing.T) {
	boom := errors.New("boom")
	det := NewStubDetector(common.Detection{Label: "signature", Confidence: 0.9}).FailOn(1, boom)

	frame := NewFrame(8, 4, gocv.NewScalar(0, 0, 0, 0))
	defer frame.Close()

	got, err := det.Detect(context.Background(), frame)
	require.NoError(t, err)
	assert.Len(t, got, 1)

	_, err = det.Detect(context.Background(), frame)
	assert.Equal(t, boom, err)

	_, err = det.Detect(context.Background(), frame)
	assert.NoError(t, err)
	assert.Equal(t, 3, det.Calls())
	assert.Equal(t, 8, det.Frames()[0].X)
}

func TestStubDetectorDelayHonoursContext(t *testing.T) {
	det := NewStubDetector().WithDelay(time.Minute)
	frame := NewFrame(4, 4, gocv.NewScalar(0, 0, 0, 0))
	defer frame.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := det.Detect(ctx, frame)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
