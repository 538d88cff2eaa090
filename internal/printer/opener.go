package printer

import (
	"io"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/thereceipt/escpos-driver/internal/escpos"
	"github.com/thereceipt/escpos-driver/internal/registry"
)

// Opener turns a located device into an open handle
type Opener interface {
	Open(device registry.SupportedDevice) (escpos.Device, error)
}

// USBOpener opens printers over USB. When the USB interface cannot be
// claimed and SerialPort is set, the printer is reached over that serial
// port instead; SerialAuto picks the first port that opens.
type USBOpener struct {
	SerialPort string
	SerialBaud int
	Printer    escpos.Options
}

// Open connects to device and initializes it
func (o USBOpener) Open(device registry.SupportedDevice) (escpos.Device, error) {
	conn, err := ConnectUSB(device.VendorID, device.ProductID)
	if err == nil {
		return o.wrap(conn)
	}
	if o.SerialPort == "" || errors.Is(err, ErrDeviceNotFound) {
		return nil, err
	}

	log.Warn().
		Err(err).
		Str("device", device.Identity()).
		Str("port", o.SerialPort).
		Msg("USB interface unavailable, falling back to serial")

	port := o.SerialPort
	if port == SerialAuto {
		if port, err = FirstSerialPort(o.SerialBaud); err != nil {
			return nil, err
		}
	}

	sconn, err := ConnectSerial(port, o.SerialBaud)
	if err != nil {
		return nil, err
	}
	return o.wrap(sconn)
}

func (o USBOpener) wrap(conn io.WriteCloser) (escpos.Device, error) {
	p, err := escpos.NewPrinter(conn, o.Printer)
	if err != nil {
		conn.Close()
		return nil, err
	}
	return p, nil
}
