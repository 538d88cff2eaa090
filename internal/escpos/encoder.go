// Package escpos drives a receipt printer through ESC/POS commands
package escpos

import (
	"bytes"
	"image"

	"github.com/disintegration/imaging"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"

	"github.com/thereceipt/escpos-driver/internal/layout"
)

// ESC/POS commands
const (
	ESC byte = 0x1B
	GS  byte = 0x1D
	LF  byte = 0x0A
)

// Cash drawer kick timing, in 2ms units
const (
	drawerOnTime  byte = 0x19
	drawerOffTime byte = 0xFA
)

// Encoder generates ESC/POS commands into a buffer
type Encoder struct {
	buffer *bytes.Buffer
	text   *encoding.Encoder
}

// NewEncoder creates an encoder whose text is sent in code page 437
func NewEncoder() *Encoder {
	return &Encoder{
		buffer: new(bytes.Buffer),
		text:   encoding.ReplaceUnsupported(charmap.CodePage437.NewEncoder()),
	}
}

// Initialize resets the printer
func (e *Encoder) Initialize() {
	e.buffer.Write([]byte{ESC, '@'})
}

// WriteText writes text, replacing runes the code page cannot carry
func (e *Encoder) WriteText(text string) error {
	encoded, _, err := transform.String(e.text, text)
	if err != nil {
		return err
	}
	e.buffer.WriteString(encoded)
	return nil
}

// LineFeed sends line feed
func (e *Encoder) LineFeed() {
	e.buffer.WriteByte(LF)
}

// Feed sends multiple line feeds
func (e *Encoder) Feed(lines int) {
	for i := 0; i < lines; i++ {
		e.LineFeed()
	}
}

// Cut sends full paper cut command
func (e *Encoder) Cut() {
	e.buffer.Write([]byte{GS, 'V', 0})
}

// SetAlignment sets text alignment
func (e *Encoder) SetAlignment(align layout.Align) {
	var n byte
	switch align {
	case layout.AlignCenter:
		n = 1
	case layout.AlignRight:
		n = 2
	}
	e.buffer.Write([]byte{ESC, 'a', n})
}

// SetTextSize sets the character magnification, 1 to 8 in each direction
func (e *Encoder) SetTextSize(width, height int) {
	width = clamp(width, 1, 8)
	height = clamp(height, 1, 8)

	size := byte(((width - 1) << 4) | (height - 1))
	e.buffer.Write([]byte{GS, '!', size})
}

// SetBold enables or disables bold text
func (e *Encoder) SetBold(enabled bool) {
	var n byte
	if enabled {
		n = 1
	}
	e.buffer.Write([]byte{ESC, 'E', n})
}

// SetStyle emits every attribute of style, so unset fields go back to
// their defaults.
func (e *Encoder) SetStyle(style layout.Style) {
	e.SetAlignment(style.Align)
	e.SetBold(style.Bold)
	e.SetTextSize(style.Width, style.Height)
}

// KickDrawer pulses cash drawer connector pin 2 (m=0) or pin 5 (m=1)
func (e *Encoder) KickDrawer(m byte) {
	e.buffer.Write([]byte{ESC, 'p', m, drawerOnTime, drawerOffTime})
}

// PrintImage sends img as a GS v 0 raster bit image, scaled down to
// maxWidth dots when wider.
func (e *Encoder) PrintImage(img image.Image, maxWidth int) {
	if maxWidth > 0 && img.Bounds().Dx() > maxWidth {
		img = imaging.Resize(img, maxWidth, 0, imaging.Lanczos)
	}

	bounds := img.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()
	bytesPerLine := (width + 7) / 8

	e.buffer.Write([]byte{
		GS, 'v', '0', 0,
		byte(bytesPerLine & 0xFF), byte((bytesPerLine >> 8) & 0xFF),
		byte(height & 0xFF), byte((height >> 8) & 0xFF),
	})
	e.buffer.Write(imageToBitmap(img))
}

// Bytes returns the generated ESC/POS commands
func (e *Encoder) Bytes() []byte {
	return e.buffer.Bytes()
}

// Reset clears the buffer
func (e *Encoder) Reset() {
	e.buffer.Reset()
}

// imageToBitmap converts an image to a 1-bit bitmap, black pixels set
func imageToBitmap(img image.Image) []byte {
	gray := imaging.Grayscale(img)
	bounds := gray.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()

	bytesPerLine := (width + 7) / 8
	bitmap := make([]byte, bytesPerLine*height)

	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			c := gray.NRGBAAt(x+bounds.Min.X, y+bounds.Min.Y)
			// transparent pixels print as paper
			if c.A < 128 || c.R >= 128 {
				continue
			}
			bitmap[y*bytesPerLine+x/8] |= 1 << (7 - uint(x%8))
		}
	}

	return bitmap
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
