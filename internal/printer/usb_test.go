package printer

import (
	"testing"

	"github.com/google/gousb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thereceipt/escpos-driver/internal/registry"
)

func TestAttachedIdentificationParses(t *testing.T) {
	a := Attached{Bus: 1, Address: 4, VendorID: 0x04b8, ProductID: 0x0e15, Manufacturer: "EPSON", Product: "TM-T20II"}
	assert.Equal(t, "Bus 001 Device 004: ID 04b8:0e15 EPSON TM-T20II", a.Identification())

	d, ok := registry.ParseIdentification(a.Identification())
	require.True(t, ok)
	assert.Equal(t, uint16(0x04b8), d.VendorID)
	assert.Equal(t, uint16(0x0e15), d.ProductID)
}

func TestIsPrinterClass(t *testing.T) {
	assert.True(t, isPrinterClass(&gousb.DeviceDesc{Class: gousb.ClassPrinter}))

	byInterface := &gousb.DeviceDesc{
		Class: gousb.ClassPerInterface,
		Configs: map[int]gousb.ConfigDesc{
			1: {Interfaces: []gousb.InterfaceDesc{
				{AltSettings: []gousb.InterfaceSetting{{Class: gousb.ClassPrinter}}},
			}},
		},
	}
	assert.True(t, isPrinterClass(byInterface))

	hid := &gousb.DeviceDesc{
		Configs: map[int]gousb.ConfigDesc{
			1: {Interfaces: []gousb.InterfaceDesc{
				{AltSettings: []gousb.InterfaceSetting{{Class: gousb.ClassHID}}},
			}},
		},
	}
	assert.False(t, isPrinterClass(hid))
}

func TestGlobPortsNoMatches(t *testing.T) {
	ports := globPorts([]string{"/nonexistent/tty*"})
	assert.Empty(t, ports)
}
