package detector

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"

	"github.com/mapo80/signature-detection/common"
	"github.com/mapo80/signature-detection/images"
	"github.com/mapo80/signature-detection/models/postprocess"
)

type fixedDetector struct {
	detections []common.Detection
	err        error
}

func (f fixedDetector) Detect(ctx context.Context, img gocv.Mat) ([]common.Detection, error) {
	return f.detections, f.err
}

func signature(x1, y1, x2, y2 int, score float32) common.Detection {
	return common.Detection{
		Box:        images.Rect{X1: x1, Y1: y1, X2: x2, Y2: y2},
		Label:      "signature",
		Confidence: score,
	}
}

func TestNewEnsembleValidation(t *testing.T) {
	a := fixedDetector{}

	_, err := NewEnsemble(EnsembleConfig{Strategy: StrategyWBF, IoUThreshold: 0.5}, a)
	assert.Error(t, err)

	_, err = NewEnsemble(EnsembleConfig{Strategy: "max", IoUThreshold: 0.5}, a, a)
	assert.Error(t, err)

	_, err = NewEnsemble(EnsembleConfig{Strategy: StrategyWBF}, a, a)
	assert.Error(t, err)

	_, err = NewEnsemble(EnsembleConfig{Strategy: StrategySoftVote, IoUThreshold: 0.5}, a, a)
	assert.NoError(t, err)
}

func TestEnsembleStrategies(t *testing.T) {
	primary := fixedDetector{detections: []common.Detection{signature(10, 10, 50, 50, 0.9)}}
	secondary := fixedDetector{detections: []common.Detection{
		signature(12, 12, 52, 52, 0.6),
		signature(200, 200, 240, 240, 0.2),
	}}
	img := newMat(t, 300, 300)

	tests := []struct {
		name   string
		config EnsembleConfig
		want   []common.Detection
	}{
		{
			name:   "weighted box fusion",
			config: EnsembleConfig{Strategy: StrategyWBF, IoUThreshold: 0.55, Threshold: 0.1},
			want: []common.Detection{
				signature(11, 11, 51, 51, 0.9),
				signature(200, 200, 240, 240, 0.2),
			},
		},
		{
			name:   "soft vote drops weak singletons",
			config: EnsembleConfig{Strategy: StrategySoftVote, IoUThreshold: 0.55, Threshold: 0.3},
			want: []common.Detection{
				signature(11, 11, 51, 51, 0.75),
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, err := NewEnsemble(tt.config, primary, secondary)
			require.NoError(t, err)

			got, err := e.Detect(context.Background(), img)
			require.NoError(t, err)
			require.Len(t, got, len(tt.want))
			for i := range tt.want {
				assert.Equal(t, tt.want[i].Box, got[i].Box)
				assert.Equal(t, tt.want[i].Label, got[i].Label)
				assert.InDelta(t, tt.want[i].Confidence, got[i].Confidence, 1e-5)
			}
		})
	}
}

func TestEnsembleMemberFailure(t *testing.T) {
	cause := errors.New("gpu lost")
	e, err := NewEnsemble(EnsembleConfig{Strategy: StrategyWBF, IoUThreshold: 0.5},
		fixedDetector{detections: []common.Detection{signature(0, 0, 10, 10, 0.9)}},
		fixedDetector{err: cause},
	)
	require.NoError(t, err)

	_, err = e.Detect(context.Background(), newMat(t, 20, 20))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrModelInference))
	assert.True(t, errors.Is(err, cause))
	assert.Contains(t, err.Error(), "ensemble member 1")
}

func TestEnsembleWBFGeometryAndSoftNMS(t *testing.T) {
	primary := fixedDetector{detections: []common.Detection{
		signature(10, 10, 50, 50, 0.9),
		// 10x180: far narrower than any signature.
		signature(100, 20, 110, 200, 0.8),
	}}
	secondary := fixedDetector{detections: []common.Detection{
		signature(12, 12, 52, 52, 0.6),
		signature(60, 10, 100, 50, 0.5),
	}}
	img := newMat(t, 300, 300)

	geometry := postprocess.DefaultGeometryConfig()
	softNMS := postprocess.DefaultSoftNMSConfig()

	t.Run("without post filters", func(t *testing.T) {
		e, err := NewEnsemble(EnsembleConfig{Strategy: StrategyWBF, IoUThreshold: 0.55, Threshold: 0.1}, primary, secondary)
		require.NoError(t, err)

		got, err := e.Detect(context.Background(), img)
		require.NoError(t, err)
		assert.Len(t, got, 3)
	})

	t.Run("geometry drops the sliver and soft NMS decays the neighbour", func(t *testing.T) {
		e, err := NewEnsemble(EnsembleConfig{
			Strategy:     StrategyWBF,
			IoUThreshold: 0.55,
			Threshold:    0.1,
			Geometry:     &geometry,
			SoftNMS:      &softNMS,
		}, primary, secondary)
		require.NoError(t, err)

		got, err := e.Detect(context.Background(), img)
		require.NoError(t, err)
		require.Len(t, got, 2)

		assert.Equal(t, images.Rect{X1: 11, Y1: 11, X2: 51, Y2: 51}, got[0].Box)
		assert.InDelta(t, 0.9, got[0].Confidence, 1e-5)

		assert.Equal(t, images.Rect{X1: 60, Y1: 10, X2: 100, Y2: 50}, got[1].Box)
		assert.Greater(t, got[1].Confidence, float32(0))
		assert.Less(t, got[1].Confidence, float32(0.1))

		for _, d := range got {
			assert.NotEqual(t, 100, d.Box.X1)
		}
	})
}
