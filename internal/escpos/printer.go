package escpos

import (
	"image"
	"io"
	"sync"

	"github.com/pkg/errors"

	"github.com/thereceipt/escpos-driver/internal/layout"
)

// ErrDeviceIO marks a failed write to, or close of, an open printer
var ErrDeviceIO = errors.New("printer io")

// Cash drawer connector pins accepted by CashDraw
const (
	DrawerPin2 = 2
	DrawerPin5 = 5
)

// DefaultDots is the printable width of an 80mm head at 203dpi
const DefaultDots = 576

// Device is an open printer handle. It is used by one goroutine at a time.
type Device interface {
	layout.Canvas
	CashDraw(pin int) error
	PrintRawDocument(doc string) error
	Close() error
}

// Options configures a Printer
type Options struct {
	Columns int // characters per line in font A
	Dots    int // printable width in dots
}

// Printer is a Device writing ESC/POS to a transport such as a USB or
// serial connection.
type Printer struct {
	w    io.WriteCloser
	enc  *Encoder
	opts Options
	mu   sync.Mutex
}

// NewPrinter wraps an open transport and initializes the printer
func NewPrinter(w io.WriteCloser, opts Options) (*Printer, error) {
	if opts.Columns <= 0 {
		opts.Columns = layout.DefaultWidth
	}
	if opts.Dots <= 0 {
		opts.Dots = DefaultDots
	}

	p := &Printer{
		w:    w,
		enc:  NewEncoder(),
		opts: opts,
	}

	p.enc.Initialize()
	if err := p.flush(); err != nil {
		return nil, err
	}
	return p, nil
}

// Text prints s in the current style
func (p *Printer) Text(s string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.enc.WriteText(s); err != nil {
		p.enc.Reset()
		return errors.Wrap(err, "encode text")
	}
	return p.flush()
}

// SetStyle switches alignment, emphasis and size
func (p *Printer) SetStyle(style layout.Style) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.enc.SetStyle(style)
	return p.flush()
}

// Cut feeds the printed part past the cutter and cuts
func (p *Printer) Cut() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.enc.Feed(6)
	p.enc.Cut()
	return p.flush()
}

// CashDraw pulses the drawer connected to pin 2 or pin 5
func (p *Printer) CashDraw(pin int) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	switch pin {
	case DrawerPin2:
		p.enc.KickDrawer(0)
	case DrawerPin5:
		p.enc.KickDrawer(1)
	default:
		return errors.Errorf("invalid cash drawer pin %d", pin)
	}
	return p.flush()
}

// PrintImage prints img, scaled to the paper width when wider
func (p *Printer) PrintImage(img image.Image) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.enc.PrintImage(img, p.opts.Dots)
	return p.flush()
}

// PrintBase64Image decodes and prints a base64 PNG or JPEG
func (p *Printer) PrintBase64Image(data string) error {
	img, err := layout.DecodeBase64Image(data)
	if err != nil {
		return err
	}
	return p.PrintImage(img)
}

// PrintRawDocument prints a receipt written in the markup described in
// markup.go.
func (p *Printer) PrintRawDocument(doc string) error {
	return RenderMarkup(p, doc, p.opts.Columns)
}

// Close releases the transport
func (p *Printer) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.w.Close(); err != nil {
		return errors.Wrapf(ErrDeviceIO, "close: %v", err)
	}
	return nil
}

// flush writes the pending commands. Callers hold mu.
func (p *Printer) flush() error {
	defer p.enc.Reset()

	data := p.enc.Bytes()
	if len(data) == 0 {
		return nil
	}
	if _, err := p.w.Write(data); err != nil {
		return errors.Wrapf(ErrDeviceIO, "write %d bytes: %v", len(data), err)
	}
	return nil
}
