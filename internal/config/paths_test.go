package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveRegistryPathKeepsAbsolute(t *testing.T) {
	abs := filepath.Join(t.TempDir(), "devices.json")
	assert.Equal(t, abs, ResolveRegistryPath(abs))
}

func TestResolveRegistryPathRelative(t *testing.T) {
	got := ResolveRegistryPath("escpos_devices.json")

	assert.True(t, filepath.IsAbs(got))
	assert.Equal(t, "escpos_devices.json", filepath.Base(got))
}

func TestWritable(t *testing.T) {
	dir := t.TempDir()
	assert.True(t, writable(dir))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)

	assert.False(t, writable(filepath.Join(dir, "missing")))
}
