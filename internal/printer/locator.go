package printer

import (
	"fmt"
	"sync"

	"github.com/thereceipt/escpos-driver/internal/escpos"
	"github.com/thereceipt/escpos-driver/internal/registry"
	"github.com/thereceipt/escpos-driver/internal/status"
)

// DeviceLister yields the supported devices in priority order
type DeviceLister interface {
	List() []registry.SupportedDevice
}

// Locator finds the first supported printer on the bus and opens it
type Locator struct {
	devices DeviceLister
	bus     Bus
	opener  Opener
	status  status.Setter

	mu     sync.RWMutex
	active string
}

// NewLocator wires a locator. Connection outcomes are reported through st.
func NewLocator(devices DeviceLister, bus Bus, opener Opener, st status.Setter) *Locator {
	return &Locator{
		devices: devices,
		bus:     bus,
		opener:  opener,
		status:  st,
	}
}

// ConnectedDevices returns the supported devices currently on the bus, in
// registry order
func (l *Locator) ConnectedDevices() ([]registry.SupportedDevice, error) {
	var found []registry.SupportedDevice
	for _, d := range l.devices.List() {
		ok, err := l.bus.Present(d.VendorID, d.ProductID)
		if err != nil {
			return nil, err
		}
		if ok {
			found = append(found, d)
		}
	}
	return found, nil
}

// Open opens the first connected supported device. It returns nil when no
// device is present or opening fails; the status says which.
func (l *Locator) Open() escpos.Device {
	devices, err := l.ConnectedDevices()
	if err != nil {
		l.fail(err)
		return nil
	}

	if len(devices) == 0 {
		l.setActive("")
		l.status.Set(status.Disconnected, "Printer Not Found")
		return nil
	}

	d := devices[0]
	dev, err := l.opener.Open(d)
	if err != nil {
		l.fail(err)
		return nil
	}

	l.setActive(fmt.Sprintf("%d_%d", d.VendorID, d.ProductID))
	l.status.Set(status.Connected, "Connected to "+d.Name)
	return dev
}

// ActiveDeviceID returns "{vendor}_{product}" in decimal for the last
// device opened, and false when the last attempt found nothing.
func (l *Locator) ActiveDeviceID() (string, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	return l.active, l.active != ""
}

func (l *Locator) fail(err error) {
	l.setActive("")
	l.status.Set(status.Error, err.Error())
}

func (l *Locator) setActive(id string) {
	l.mu.Lock()
	l.active = id
	l.mu.Unlock()
}
