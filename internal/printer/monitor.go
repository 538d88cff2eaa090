package printer

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/thereceipt/escpos-driver/internal/registry"
)

// DeviceSource reports the supported devices currently attached
type DeviceSource interface {
	ConnectedDevices() ([]registry.SupportedDevice, error)
}

// Monitor polls for supported printers being plugged in or removed
type Monitor struct {
	source   DeviceSource
	interval time.Duration
	ctx      context.Context
	cancel   context.CancelFunc

	mu      sync.RWMutex
	current map[string]registry.SupportedDevice
	order   []string
}

// DefaultMonitorInterval is used when NewMonitor gets no interval
const DefaultMonitorInterval = 10 * time.Second

// NewMonitor creates a monitor polling source every interval
func NewMonitor(source DeviceSource, interval time.Duration) *Monitor {
	if interval <= 0 {
		interval = DefaultMonitorInterval
	}
	ctx, cancel := context.WithCancel(context.Background())

	return &Monitor{
		source:   source,
		interval: interval,
		ctx:      ctx,
		cancel:   cancel,
		current:  make(map[string]registry.SupportedDevice),
	}
}

// Start checks once and then polls in the background until Stop
func (m *Monitor) Start() {
	m.check()

	go func() {
		ticker := time.NewTicker(m.interval)
		defer ticker.Stop()

		for {
			select {
			case <-m.ctx.Done():
				return
			case <-ticker.C:
				m.check()
			}
		}
	}()
}

// Stop stops the monitor
func (m *Monitor) Stop() {
	m.cancel()
}

// Devices returns the devices seen by the last successful poll
func (m *Monitor) Devices() []registry.SupportedDevice {
	m.mu.RLock()
	defer m.mu.RUnlock()

	devices := make([]registry.SupportedDevice, 0, len(m.order))
	for _, id := range m.order {
		devices = append(devices, m.current[id])
	}
	return devices
}

func (m *Monitor) check() {
	devices, err := m.source.ConnectedDevices()
	if err != nil {
		log.Warn().Err(err).Msg("printer detection failed")
		return
	}

	next := make(map[string]registry.SupportedDevice, len(devices))
	order := make([]string, 0, len(devices))
	for _, d := range devices {
		if _, dup := next[d.Identity()]; dup {
			continue
		}
		next[d.Identity()] = d
		order = append(order, d.Identity())
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	for id, d := range next {
		if _, ok := m.current[id]; !ok {
			log.Info().Str("device", id).Str("name", d.Name).Msg("printer attached")
		}
	}
	for id, d := range m.current {
		if _, ok := next[id]; !ok {
			log.Info().Str("device", id).Str("name", d.Name).Msg("printer removed")
		}
	}

	m.current = next
	m.order = order
}
