package printer

import (
	"fmt"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/pkg/errors"
	"github.com/tarm/serial"
)

// SerialAuto asks the opener to pick the first serial port that opens
const SerialAuto = "auto"

// SerialPorts lists candidate printer ports for the running platform
func SerialPorts() []string {
	switch runtime.GOOS {
	case "darwin":
		return globPorts([]string{"/dev/cu.*", "/dev/tty.*"}, "Bluetooth", "debug-console", "KeySerial")
	case "linux":
		return globPorts([]string{"/dev/ttyUSB*", "/dev/ttyACM*", "/dev/ttyS*"})
	case "windows":
		ports := make([]string, 0, 256)
		for i := 1; i <= 256; i++ {
			ports = append(ports, fmt.Sprintf("COM%d", i))
		}
		return ports
	}
	return nil
}

func globPorts(patterns []string, skip ...string) []string {
	var ports []string
	for _, pattern := range patterns {
		matches, _ := filepath.Glob(pattern)
	next:
		for _, match := range matches {
			for _, s := range skip {
				if strings.Contains(match, s) {
					continue next
				}
			}
			ports = append(ports, match)
		}
	}
	return ports
}

// FirstSerialPort returns the first candidate port that can be opened
func FirstSerialPort(baud int) (string, error) {
	if baud == 0 {
		baud = DefaultBaud
	}

	for _, name := range SerialPorts() {
		port, err := serial.OpenPort(&serial.Config{Name: name, Baud: baud})
		if err != nil {
			continue
		}
		port.Close()
		return name, nil
	}
	return "", errors.Wrapf(ErrDeviceNotFound, "no serial port available on %s", runtime.GOOS)
}
