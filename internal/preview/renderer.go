// Package preview draws printer operations onto an image, so receipts can
// be checked without paper
package preview

import (
	"image"
	"image/color"
	"io"

	"github.com/disintegration/imaging"
	"github.com/fogleman/gg"

	"github.com/thereceipt/escpos-driver/internal/escpos"
	"github.com/thereceipt/escpos-driver/internal/layout"
)

const (
	margin        = 16
	initialHeight = 1000
	cutHeight     = 24
)

// Options sizes the simulated paper
type Options struct {
	Columns int // characters per line
	Dots    int // paper width in pixels
}

// Renderer is a layout.Canvas drawing onto a growing image
type Renderer struct {
	opts   Options
	width  int
	height int
	ctx    *gg.Context
	y      float64

	style   layout.Style
	pending []segment
}

// New creates a renderer with blank paper
func New(opts Options) *Renderer {
	if opts.Columns <= 0 {
		opts.Columns = layout.DefaultWidth
	}
	if opts.Dots <= 0 {
		opts.Dots = escpos.DefaultDots
	}

	width := opts.Dots + 2*margin
	ctx := gg.NewContext(width, initialHeight)
	ctx.SetColor(color.White)
	ctx.Clear()
	ctx.SetColor(color.Black)

	return &Renderer{
		opts:   opts,
		width:  width,
		height: initialHeight,
		ctx:    ctx,
		y:      margin,
	}
}

// Render plays ops onto fresh paper and returns the picture
func Render(ops []layout.Op, opts Options) (image.Image, error) {
	r := New(opts)
	if err := layout.Play(r, ops); err != nil {
		return nil, err
	}
	return r.Image(), nil
}

// RenderDocument draws a markup document as the printer would print it
func RenderDocument(doc string, opts Options) (image.Image, error) {
	r := New(opts)
	if err := escpos.RenderMarkup(r, doc, r.opts.Columns); err != nil {
		return nil, err
	}
	return r.Image(), nil
}

// SetStyle applies to text drawn afterwards
func (r *Renderer) SetStyle(style layout.Style) error {
	r.style = style
	return nil
}

// Cut draws a dashed tear line
func (r *Renderer) Cut() error {
	r.flush()
	r.ensureHeight(cutHeight)

	y := r.y + cutHeight/2
	r.ctx.SetLineWidth(1)
	for x := 0.0; x < float64(r.width); x += 12 {
		r.ctx.DrawLine(x, y, x+6, y)
		r.ctx.Stroke()
	}

	r.y += cutHeight
	return nil
}

// CashDraw has nothing to show
func (r *Renderer) CashDraw(int) error {
	return nil
}

// Image returns the paper cropped to what was drawn
func (r *Renderer) Image() image.Image {
	r.flush()

	finalHeight := int(r.y) + margin
	if finalHeight > r.height {
		finalHeight = r.height
	}
	return imaging.Crop(r.ctx.Image(), image.Rect(0, 0, r.width, finalHeight))
}

// EncodePNG writes the cropped paper as PNG
func (r *Renderer) EncodePNG(w io.Writer) error {
	return imaging.Encode(w, r.Image(), imaging.PNG)
}

func (r *Renderer) ensureHeight(needed int) {
	if int(r.y)+needed <= r.height {
		return
	}

	newHeight := r.height * 2
	if newHeight < int(r.y)+needed {
		newHeight = int(r.y) + needed + initialHeight
	}

	ctx := gg.NewContext(r.width, newHeight)
	ctx.SetColor(color.White)
	ctx.Clear()
	ctx.DrawImage(r.ctx.Image(), 0, 0)
	ctx.SetColor(color.Black)

	r.ctx = ctx
	r.height = newHeight
}

// alignedX returns where content w pixels wide starts on the paper
func (r *Renderer) alignedX(align layout.Align, w int) float64 {
	switch align {
	case layout.AlignCenter:
		return float64(margin + (r.opts.Dots-w)/2)
	case layout.AlignRight:
		return float64(margin + r.opts.Dots - w)
	}
	return margin
}
