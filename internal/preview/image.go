package preview

import (
	"image"
	"image/color"

	"github.com/disintegration/imaging"

	"github.com/thereceipt/escpos-driver/internal/layout"
)

const threshold = 128

// PrintImage draws img as the printer would: scaled down to the paper,
// reduced to black and white, aligned like text.
func (r *Renderer) PrintImage(img image.Image) error {
	r.flush()

	if img.Bounds().Dx() > r.opts.Dots {
		img = imaging.Resize(img, r.opts.Dots, 0, imaging.Lanczos)
	}
	bw := convertToBlackWhite(img, threshold)

	h := bw.Bounds().Dy()
	r.ensureHeight(h)
	r.ctx.DrawImage(bw, int(r.alignedX(r.style.Align, bw.Bounds().Dx())), int(r.y))
	r.y += float64(h)
	return nil
}

// PrintBase64Image decodes and draws a base64 PNG or JPEG
func (r *Renderer) PrintBase64Image(data string) error {
	img, err := layout.DecodeBase64Image(data)
	if err != nil {
		return err
	}
	return r.PrintImage(img)
}

// convertToBlackWhite thresholds img, transparent pixels becoming paper
func convertToBlackWhite(img image.Image, threshold uint8) *image.Gray {
	gray := imaging.Grayscale(img)
	bounds := gray.Bounds()
	bw := image.NewGray(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))

	for y := 0; y < bounds.Dy(); y++ {
		for x := 0; x < bounds.Dx(); x++ {
			c := gray.NRGBAAt(x+bounds.Min.X, y+bounds.Min.Y)
			if c.A < 128 || c.R >= threshold {
				bw.SetGray(x, y, color.Gray{Y: 255})
			} else {
				bw.SetGray(x, y, color.Gray{Y: 0})
			}
		}
	}
	return bw
}
