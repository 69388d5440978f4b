package imaging

import (
	"context"
	"fmt"
	"image"

	"github.com/disintegration/imaging"
	"github.com/oenmin/affect-analyzer/internal/domain/entity"
)

// Decoder loads frame images from disk into packed RGB buffers.
type Decoder struct {
	maxSide int
}

// NewDecoder returns a Decoder. A positive maxSide shrinks larger frames so that
// neither dimension exceeds it; zero keeps the original resolution.
func NewDecoder(maxSide int) *Decoder {
	return &Decoder{maxSide: maxSide}
}

func (d *Decoder) Decode(ctx context.Context, imagePath string) (entity.RGBImage, error) {
	if err := ctx.Err(); err != nil {
		return entity.RGBImage{}, err
	}

	img, err := imaging.Open(imagePath, imaging.AutoOrientation(true))
	if err != nil {
		return entity.RGBImage{}, fmt.Errorf("decode image %s: %w", imagePath, err)
	}

	b := img.Bounds()
	if b.Dx() == 0 || b.Dy() == 0 {
		return entity.RGBImage{}, fmt.Errorf("decode image %s: empty image", imagePath)
	}

	if d.maxSide > 0 && (b.Dx() > d.maxSide || b.Dy() > d.maxSide) {
		img = imaging.Fit(img, d.maxSide, d.maxSide, imaging.Lanczos)
	}

	return toRGB(imaging.Clone(img)), nil
}

// toRGB drops the alpha channel of an NRGBA image.
func toRGB(src *image.NRGBA) entity.RGBImage {
	w, h := src.Rect.Dx(), src.Rect.Dy()
	pix := make([]byte, 0, w*h*3)
	for y := 0; y < h; y++ {
		row := src.Pix[y*src.Stride : y*src.Stride+w*4]
		for x := 0; x < len(row); x += 4 {
			pix = append(pix, row[x], row[x+1], row[x+2])
		}
	}
	return entity.RGBImage{Pix: pix, Width: w, Height: h}
}
