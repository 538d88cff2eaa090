// Package printer locates and connects to supported receipt printers
package printer

import (
	"fmt"
	"strings"

	"github.com/google/gousb"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// Bus answers whether a USB device is plugged in
type Bus interface {
	Present(vendor, product uint16) (bool, error)
}

// USBBus probes the host USB bus through libusb. Each call uses a fresh
// context so hot-plugged devices are seen.
type USBBus struct{}

// Present reports whether a device with the given ids is attached. It does
// not open the device.
func (USBBus) Present(vendor, product uint16) (bool, error) {
	ctx := gousb.NewContext()
	defer ctx.Close()

	found := false
	devices, err := ctx.OpenDevices(func(desc *gousb.DeviceDesc) bool {
		if uint16(desc.Vendor) == vendor && uint16(desc.Product) == product {
			found = true
		}
		return false
	})
	for _, dev := range devices {
		dev.Close()
	}
	if err != nil && !found {
		return false, errors.Wrap(err, "enumerate usb devices")
	}
	return found, nil
}

// Attached is a printer-class device seen on the bus
type Attached struct {
	Bus          int
	Address      int
	VendorID     uint16
	ProductID    uint16
	Manufacturer string
	Product      string
}

// Identification formats the device like a line of lsusb output, the
// format accepted by registry.ParseIdentification.
func (a Attached) Identification() string {
	name := strings.TrimSpace(a.Manufacturer + " " + a.Product)
	return strings.TrimSpace(fmt.Sprintf("Bus %03d Device %03d: ID %04x:%04x %s",
		a.Bus, a.Address, a.VendorID, a.ProductID, name))
}

// Scan lists every printer-class device on the bus, supported or not
func (USBBus) Scan() ([]Attached, error) {
	ctx := gousb.NewContext()
	defer ctx.Close()

	devices, err := ctx.OpenDevices(isPrinterClass)
	if err != nil && len(devices) == 0 {
		return nil, errors.Wrap(err, "enumerate usb devices")
	}

	attached := make([]Attached, 0, len(devices))
	for _, dev := range devices {
		manufacturer, _ := dev.Manufacturer()
		product, _ := dev.Product()

		attached = append(attached, Attached{
			Bus:          dev.Desc.Bus,
			Address:      dev.Desc.Address,
			VendorID:     uint16(dev.Desc.Vendor),
			ProductID:    uint16(dev.Desc.Product),
			Manufacturer: manufacturer,
			Product:      product,
		})
		dev.Close()
	}

	log.Debug().Int("count", len(attached)).Msg("USB printer scan finished")
	return attached, nil
}

// isPrinterClass matches devices whose class, or the class of any
// interface setting, is printer (7)
func isPrinterClass(desc *gousb.DeviceDesc) bool {
	if desc.Class == gousb.ClassPrinter {
		return true
	}

	for _, cfg := range desc.Configs {
		for _, iface := range cfg.Interfaces {
			for _, alt := range iface.AltSettings {
				if alt.Class == gousb.ClassPrinter {
					return true
				}
			}
		}
	}
	return false
}
