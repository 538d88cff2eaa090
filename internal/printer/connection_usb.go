package printer

import (
	"runtime"
	"sync"

	"github.com/google/gousb"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/thereceipt/escpos-driver/internal/escpos"
)

// ErrDeviceNotFound is returned when a located printer can no longer be opened
var ErrDeviceNotFound = errors.New("printer not found")

// USBConnection is a claimed bulk OUT endpoint of a USB printer
type USBConnection struct {
	ctx      *gousb.Context
	device   *gousb.Device
	cfg      *gousb.Config
	iface    *gousb.Interface
	done     func()
	endpoint *gousb.OutEndpoint
	mu       sync.Mutex
}

// ConnectUSB opens the printer and claims the first interface with an OUT
// endpoint. Kernel drivers holding the interface are detached on Linux.
func ConnectUSB(vid, pid uint16) (*USBConnection, error) {
	ctx := gousb.NewContext()

	dev, err := ctx.OpenDeviceWithVIDPID(gousb.ID(vid), gousb.ID(pid))
	if err != nil {
		ctx.Close()
		return nil, errors.Wrapf(escpos.ErrDeviceIO, "open usb device %04x:%04x: %v", vid, pid, err)
	}
	if dev == nil {
		ctx.Close()
		return nil, errors.Wrapf(ErrDeviceNotFound, "%04x:%04x", vid, pid)
	}

	if runtime.GOOS == "linux" {
		if err := dev.SetAutoDetach(true); err != nil {
			log.Debug().Err(err).Msg("USB: auto detach unavailable")
		}
	}

	conn := &USBConnection{ctx: ctx, device: dev}

	// interface 0, alt setting 0 works for most printers
	iface, done, err := dev.DefaultInterface()
	if err == nil {
		if ep := outEndpoint(iface); ep != nil {
			conn.iface, conn.done, conn.endpoint = iface, done, ep
			return conn, nil
		}
		done()
	}

	lastErr := err
	for num, cfgDesc := range dev.Desc.Configs {
		cfg, err := dev.Config(num)
		if err != nil {
			lastErr = errors.Wrapf(err, "set config %d", num)
			continue
		}

		for _, ifaceDesc := range cfgDesc.Interfaces {
			iface, err := cfg.Interface(ifaceDesc.Number, 0)
			if err != nil {
				lastErr = errors.Wrapf(err, "claim interface %d", ifaceDesc.Number)
				continue
			}
			if ep := outEndpoint(iface); ep != nil {
				conn.cfg, conn.iface, conn.endpoint = cfg, iface, ep
				return conn, nil
			}
			iface.Close()
		}
		cfg.Close()
	}

	dev.Close()
	ctx.Close()

	if lastErr != nil {
		return nil, errors.Wrapf(escpos.ErrDeviceIO, "claim usb printer %04x:%04x: %v", vid, pid, lastErr)
	}
	return nil, errors.Wrapf(escpos.ErrDeviceIO, "no OUT endpoint on usb printer %04x:%04x", vid, pid)
}

func outEndpoint(iface *gousb.Interface) *gousb.OutEndpoint {
	for _, desc := range iface.Setting.Endpoints {
		if desc.Direction != gousb.EndpointDirectionOut {
			continue
		}
		if ep, err := iface.OutEndpoint(desc.Number); err == nil {
			return ep
		}
	}
	return nil
}

// Write sends data to the USB printer
func (c *USBConnection) Write(data []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.endpoint == nil {
		return 0, errors.Wrap(escpos.ErrDeviceIO, "usb connection closed")
	}
	return c.endpoint.Write(data)
}

// Close releases the interface, the device and the libusb context
func (c *USBConnection) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.done != nil {
		c.done()
	} else {
		if c.iface != nil {
			c.iface.Close()
		}
		if c.cfg != nil {
			c.cfg.Close()
		}
	}
	c.done, c.iface, c.cfg, c.endpoint = nil, nil, nil, nil

	var err error
	if c.device != nil {
		err = c.device.Close()
		c.device = nil
	}
	if c.ctx != nil {
		if cerr := c.ctx.Close(); err == nil {
			err = cerr
		}
		c.ctx = nil
	}
	return err
}
