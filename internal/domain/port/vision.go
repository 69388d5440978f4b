package port

import (
	"context"

	"github.com/oenmin/affect-analyzer/internal/domain/entity"
)

type ImageDecoder interface {
	Decode(ctx context.Context, imagePath string) (entity.RGBImage, error)
}

// FaceDetector returns the blendshapes of every face found in img, primary face first.
type FaceDetector interface {
	Detect(ctx context.Context, img entity.RGBImage) ([]entity.Face, error)
}

// ModelReadiness reports whether the detector model finished loading.
type ModelReadiness interface {
	Ready() bool
}
