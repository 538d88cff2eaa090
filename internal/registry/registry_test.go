package registry

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/thereceipt/escpos-driver/internal/status"
)

func newTestRegistry(t *testing.T) (*Registry, *status.Tracker, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "escpos_devices.json")
	tracker := status.NewTracker()
	return New(path, tracker), tracker, path
}

func TestListDefaultsWhenStoreMissing(t *testing.T) {
	reg, tracker, _ := newTestRegistry(t)

	assert.Equal(t, DefaultDevices(), reg.List())
	assert.Equal(t, status.Connecting, tracker.Snapshot().State)
}

func TestAddThenList(t *testing.T) {
	reg, _, path := newTestRegistry(t)

	reg.Add("Bus 001 Device 004: ID 0dd4:0195 Custom Engineering SPA")

	devices := reg.List()
	require.Len(t, devices, len(DefaultDevices())+1)
	assert.Equal(t, SupportedDevice{
		VendorID:  0x0dd4,
		ProductID: 0x0195,
		Name:      "0dd4:0195 Custom Engineering SPA",
	}, devices[len(devices)-1])

	_, err := os.Stat(path)
	assert.NoError(t, err)
}

func TestAddPersistsAcrossInstances(t *testing.T) {
	reg1, _, path := newTestRegistry(t)
	reg1.Add("ID 1234:abcd First")

	// simulating a restart
	reg2 := New(path, status.NewTracker())
	reg2.Add("ID 5678:ef01 Second")

	devices := reg2.List()
	require.Len(t, devices, len(DefaultDevices())+2)
	assert.Equal(t, uint16(0x1234), devices[len(devices)-2].VendorID)
	assert.Equal(t, uint16(0xef01), devices[len(devices)-1].ProductID)
}

func TestAddAllowsDuplicates(t *testing.T) {
	reg, _, _ := newTestRegistry(t)

	reg.Add("ID 04b8:0e15 Epson")
	reg.Add("ID 04b8:0e15 Epson")

	assert.Len(t, reg.List(), len(DefaultDevices())+2)
}

func TestAddWithoutPatternIsNoop(t *testing.T) {
	reg, tracker, path := newTestRegistry(t)

	reg.Add("a printer I found")

	_, err := os.Stat(path)
	assert.True(t, os.IsNotExist(err))
	assert.Equal(t, DefaultDevices(), reg.List())
	assert.Equal(t, status.Connecting, tracker.Snapshot().State)
}

func TestCorruptStoreFallsBackToDefaults(t *testing.T) {
	reg, tracker, path := newTestRegistry(t)
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0644))

	assert.Equal(t, DefaultDevices(), reg.List())

	snap := tracker.Snapshot()
	assert.Equal(t, status.Error, snap.State)
	require.Len(t, snap.Messages, 1)
	assert.Contains(t, snap.Messages[0], "decode")
}

func TestAddOverCorruptStoreRewritesIt(t *testing.T) {
	reg, tracker, path := newTestRegistry(t)
	require.NoError(t, os.WriteFile(path, []byte("garbage"), 0644))

	reg.Add("ID 1234:5678 Kitchen")

	assert.Equal(t, status.Error, tracker.Snapshot().State)
	devices := reg.List()
	assert.Len(t, devices, len(DefaultDevices())+1)
}

func TestRegisterOverCorruptStoreSucceeds(t *testing.T) {
	reg, _, path := newTestRegistry(t)
	require.NoError(t, os.WriteFile(path, []byte("garbage"), 0644))

	device, err := reg.Register("ID 1234:5678 Kitchen")
	require.NoError(t, err)
	assert.Equal(t, "1234:5678", device.Identity())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"name": "1234:5678 Kitchen"`)
}

func TestRegisterReportsWriteFailure(t *testing.T) {
	tracker := status.NewTracker()
	reg := New(filepath.Join(t.TempDir(), "missing", "escpos_devices.json"), tracker)

	_, err := reg.Register("ID 1234:5678 Kitchen")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrRegistryIO)
}

func TestRegisterWithoutPattern(t *testing.T) {
	reg, tracker, _ := newTestRegistry(t)

	_, err := reg.Register("nothing here")
	assert.ErrorIs(t, err, ErrNoIdentification)
	assert.Equal(t, status.Connecting, tracker.Snapshot().State)
}

func TestUnwritableStoreReportsError(t *testing.T) {
	dir := t.TempDir()
	tracker := status.NewTracker()
	reg := New(filepath.Join(dir, "missing", "escpos_devices.json"), tracker)

	reg.Add("ID 1234:5678 Kitchen")

	snap := tracker.Snapshot()
	assert.Equal(t, status.Error, snap.State)
	require.NotEmpty(t, snap.Messages)
	assert.Contains(t, snap.Messages[0], "write")
}

func TestIdentity(t *testing.T) {
	d := SupportedDevice{VendorID: 0x04b8, ProductID: 0x0e15}
	assert.Equal(t, "04b8:0e15", d.Identity())
}
