package config

import (
	"os"
	"path/filepath"
	"runtime"
)

// ResolveRegistryPath places a relative registry file next to the
// executable when that directory is writable, else in the working
// directory, else in the per-user config directory. Absolute paths are
// returned unchanged.
func ResolveRegistryPath(name string) string {
	if filepath.IsAbs(name) {
		return name
	}

	if exePath, err := os.Executable(); err == nil {
		exeDir := filepath.Dir(exePath)
		if writable(exeDir) {
			return filepath.Join(exeDir, name)
		}
	}

	if wd, err := os.Getwd(); err == nil {
		return filepath.Join(wd, name)
	}

	if dir := userConfigDir(); dir != "" {
		os.MkdirAll(dir, 0755)
		return filepath.Join(dir, name)
	}
	return name
}

// writable probes dir by creating and removing a scratch file
func writable(dir string) bool {
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return false
	}
	f, err := os.CreateTemp(dir, ".escposd-write-test-*")
	if err != nil {
		return false
	}
	f.Close()
	os.Remove(f.Name())
	return true
}

func userConfigDir() string {
	if runtime.GOOS == "windows" {
		if appData := os.Getenv("APPDATA"); appData != "" {
			return filepath.Join(appData, "escposd")
		}
		return filepath.Join(os.Getenv("USERPROFILE"), "escposd")
	}
	if home := os.Getenv("HOME"); home != "" {
		return filepath.Join(home, ".config", "escposd")
	}
	return ""
}
