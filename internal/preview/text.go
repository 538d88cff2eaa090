package preview

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/image/font/basicfont"

	"github.com/thereceipt/escpos-driver/internal/layout"
)

// basicfont glyph metrics, in font pixels
const (
	glyphAdvance = 7
	glyphAscent  = 11
	glyphHeight  = 13
	lineSpacing  = 4
)

type segment struct {
	text  string
	style layout.Style
}

// Text queues s in the current style. Lines are drawn once complete, since
// alignment applies to the whole line.
func (r *Renderer) Text(s string) error {
	for {
		i := strings.IndexByte(s, '\n')
		if i < 0 {
			break
		}
		r.pending = append(r.pending, segment{text: s[:i], style: r.style})
		r.drawLine(true)
		s = s[i+1:]
	}
	if s != "" {
		r.pending = append(r.pending, segment{text: s, style: r.style})
	}
	return nil
}

// flush draws an unterminated line
func (r *Renderer) flush() {
	if len(r.pending) > 0 {
		r.drawLine(false)
	}
}

func (r *Renderer) cellWidth() float64 {
	w := r.opts.Dots / r.opts.Columns
	if w < 1 {
		w = 1
	}
	return float64(w)
}

func magnify(n int) float64 {
	if n < 1 {
		return 1
	}
	return float64(n)
}

// drawLine draws the pending segments as one row. An empty row is still
// fed when the line was terminated by a newline.
func (r *Renderer) drawLine(terminated bool) {
	segments := r.pending
	r.pending = nil

	cell := r.cellWidth()
	scale := cell / glyphAdvance

	align := r.style.Align
	tallest := 1.0
	width := 0.0
	for i, seg := range segments {
		if i == 0 {
			align = seg.style.Align
		}
		if h := magnify(seg.style.Height); h > tallest {
			tallest = h
		}
		width += float64(utf8.RuneCountInString(seg.text)) * cell * magnify(seg.style.Width)
	}
	if len(segments) == 0 && !terminated {
		return
	}

	rowHeight := (glyphHeight + lineSpacing) * scale * tallest
	r.ensureHeight(int(rowHeight) + 1)

	r.ctx.SetFontFace(basicfont.Face7x13)
	baseline := r.y + glyphAscent*scale*tallest
	x := r.alignedX(align, int(width))

	for _, seg := range segments {
		sx := scale * magnify(seg.style.Width)
		sy := scale * magnify(seg.style.Height)
		for _, c := range seg.text {
			r.drawGlyph(c, x, baseline, sx, sy)
			if seg.style.Bold {
				r.drawGlyph(c, x+1, baseline, sx, sy)
			}
			x += cell * magnify(seg.style.Width)
		}
	}

	r.y += rowHeight
}

func (r *Renderer) drawGlyph(c rune, x, baseline, sx, sy float64) {
	if c == ' ' {
		return
	}
	r.ctx.Push()
	r.ctx.Translate(x, baseline)
	r.ctx.Scale(sx, sy)
	r.ctx.DrawString(string(c), 0, 0)
	r.ctx.Pop()
}
