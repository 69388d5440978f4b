package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/oenmin/affect-analyzer/internal/domain/entity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestFrameAnalyzerAnalyze(t *testing.T) {
	smiling := []entity.Face{{Blendshapes: []entity.NamedScore{
		{Name: "mouthSmileLeft", Score: 0.8},
		{Name: "mouthSmileRight", Score: 0.6},
	}}}
	frowning := []entity.Face{{Blendshapes: []entity.NamedScore{
		{Name: "mouthFrownLeft", Score: 0.4},
		{Name: "mouthFrownRight", Score: 0.2},
	}}}

	decoder := &fakeDecoder{fail: map[string]error{"corrupt.jpg": errors.New("decode image corrupt.jpg: invalid JPEG format")}}
	detector := &fakeDetector{
		faces: map[string][]entity.Face{
			"smile.jpg": smiling,
			"two.jpg":   append(append([]entity.Face{}, frowning...), smiling...),
		},
		errs:  map[string]error{"broken.jpg": errors.New("landmarker: inference failed")},
		panic: map[string]bool{"panic.jpg": true},
	}
	a := NewFrameAnalyzer(decoder, detector, zap.NewNop())

	tests := []struct {
		name    string
		path    string
		metrics *entity.Metrics
		errMsg  string
	}{
		{"face", "smile.jpg", &entity.Metrics{Smile: 0.7}, ""},
		{"first face wins", "two.jpg", &entity.Metrics{Frown: 0.30000000000000004}, ""},
		{"no face", "empty.jpg", nil, entity.MsgNoFace},
		{"decode error", "corrupt.jpg", nil, "decode image corrupt.jpg: invalid JPEG format"},
		{"detect error", "broken.jpg", nil, "landmarker: inference failed"},
		{"detector panic", "panic.jpg", nil, "panic: detector crashed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := a.Analyze(context.Background(), tt.path)

			if tt.metrics != nil {
				require.True(t, res.OK())
				assert.InDelta(t, tt.metrics.Smile, res.Metrics.Smile, 1e-9)
				assert.InDelta(t, tt.metrics.Frown, res.Metrics.Frown, 1e-9)
				assert.Empty(t, res.Error)
				return
			}
			assert.False(t, res.OK())
			assert.Equal(t, tt.errMsg, res.Error)
		})
	}
}
