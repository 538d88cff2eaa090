// Package registry manages the persisted list of supported printers
package registry

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/thereceipt/escpos-driver/internal/status"
)

// ErrRegistryIO marks a failure to read or write the device store
var ErrRegistryIO = errors.New("device registry io")

// SupportedDevice is a printer model the driver knows how to talk to.
// Identity is the (VendorID, ProductID) pair.
type SupportedDevice struct {
	VendorID  uint16 `json:"vendor"`
	ProductID uint16 `json:"product"`
	Name      string `json:"name"`
}

// Identity returns the vid:pid key of the device
func (d SupportedDevice) Identity() string {
	return fmt.Sprintf("%04x:%04x", d.VendorID, d.ProductID)
}

// Registry reads and extends the device store
type Registry struct {
	filePath string
	defaults []SupportedDevice
	status   status.Setter
	mu       sync.Mutex
}

// New creates a registry backed by filePath. Store failures are reported
// through st and never returned to the caller.
func New(filePath string, st status.Setter) *Registry {
	return &Registry{
		filePath: filePath,
		defaults: DefaultDevices(),
		status:   st,
	}
}

// List returns the persisted devices, or the built-in defaults when the
// store is missing or unreadable.
func (r *Registry) List() []SupportedDevice {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.current()
}

// ErrNoIdentification marks a string without a vid:pid pair
var ErrNoIdentification = errors.New("no vendor:product id found")

// Add parses identification and appends the device it names to the store.
// Strings without a vid:pid pattern are ignored. A failed write is
// reported through the status setter.
func (r *Registry) Add(identification string) {
	_, err := r.Register(identification)
	switch {
	case err == nil:
	case errors.Is(err, ErrNoIdentification):
		log.Debug().Str("identification", identification).Msg("no vendor:product pair found, ignoring")
	default:
		r.status.Set(status.Error, err.Error())
	}
}

// Register is Add for callers that need the outcome. The error is
// ErrNoIdentification or a write failure; an unreadable store that gets
// replaced is not an error here.
func (r *Registry) Register(identification string) (SupportedDevice, error) {
	device, ok := ParseIdentification(identification)
	if !ok {
		return SupportedDevice{}, ErrNoIdentification
	}

	log.Info().
		Str("device", device.Identity()).
		Str("name", device.Name).
		Msg("ESC/POS: adding support for device")

	r.mu.Lock()
	defer r.mu.Unlock()

	devices := append(r.current(), device)
	return device, r.save(devices)
}

// current loads the store or falls back to defaults. Callers hold mu.
func (r *Registry) current() []SupportedDevice {
	devices, err := r.load()
	if err == nil {
		return devices
	}
	if !os.IsNotExist(errors.Cause(err)) {
		r.status.Set(status.Error, err.Error())
	}

	result := make([]SupportedDevice, len(r.defaults))
	copy(result, r.defaults)
	return result
}

func (r *Registry) load() ([]SupportedDevice, error) {
	data, err := os.ReadFile(r.filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, err
		}
		return nil, errors.Wrapf(ErrRegistryIO, "read %s: %v", r.filePath, err)
	}

	var devices []SupportedDevice
	if err := json.Unmarshal(data, &devices); err != nil {
		return nil, errors.Wrapf(ErrRegistryIO, "decode %s: %v", r.filePath, err)
	}
	return devices, nil
}

func (r *Registry) save(devices []SupportedDevice) error {
	data, err := json.MarshalIndent(devices, "", "  ")
	if err != nil {
		return errors.Wrap(err, "encode device registry")
	}

	if err := os.WriteFile(r.filePath, data, 0644); err != nil {
		return errors.Wrapf(ErrRegistryIO, "write %s: %v", r.filePath, err)
	}
	return nil
}
