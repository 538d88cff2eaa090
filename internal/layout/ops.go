// Package layout turns receipts into fixed-width printer drawing operations
package layout

import (
	"image"

	"github.com/pkg/errors"
)

// Align is the horizontal justification of printed text
type Align int

const (
	AlignLeft Align = iota
	AlignCenter
	AlignRight
)

// Style is the text style applied to everything printed after it.
// Zero Height or Width means normal size.
type Style struct {
	Align  Align
	Bold   bool
	Height int
	Width  int
}

// Op is one drawing operation
type Op interface {
	isOp()
}

// TextOp prints text as is, newlines included
type TextOp struct {
	Text string
}

// StyleOp switches the current style
type StyleOp struct {
	Style Style
}

// ImageOp prints a base64 encoded PNG or JPEG
type ImageOp struct {
	Base64 string
}

// BarcodeOp prints a CODE128 barcode
type BarcodeOp struct {
	Value string
}

// QRCodeOp prints a QR code
type QRCodeOp struct {
	Value string
}

// CutOp feeds and cuts the paper
type CutOp struct{}

func (TextOp) isOp()    {}
func (StyleOp) isOp()   {}
func (ImageOp) isOp()   {}
func (BarcodeOp) isOp() {}
func (QRCodeOp) isOp()  {}
func (CutOp) isOp()     {}

// ImageSource is implemented by ops that print a raster image
type ImageSource interface {
	Op
	Decode() (image.Image, error)
}

// Canvas is the device surface ops are played onto
type Canvas interface {
	Text(s string) error
	SetStyle(style Style) error
	Cut() error
	PrintImage(img image.Image) error
	PrintBase64Image(data string) error
}

// Play applies ops to c in order, stopping at the first error
func Play(c Canvas, ops []Op) error {
	for i, op := range ops {
		var err error
		switch op := op.(type) {
		case TextOp:
			err = c.Text(op.Text)
		case StyleOp:
			err = c.SetStyle(op.Style)
		case CutOp:
			err = c.Cut()
		case ImageOp:
			err = c.PrintBase64Image(op.Base64)
		case ImageSource:
			var img image.Image
			img, err = op.Decode()
			if err == nil {
				err = c.PrintImage(img)
			}
		default:
			err = errors.Errorf("unsupported op %T", op)
		}
		if err != nil {
			return errors.Wrapf(err, "op %d", i)
		}
	}
	return nil
}
