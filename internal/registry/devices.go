package registry

import (
	"regexp"
	"strconv"
	"strings"
)

// DefaultDevices returns the printers supported out of the box
func DefaultDevices() []SupportedDevice {
	return []SupportedDevice{
		{VendorID: 0x04b8, ProductID: 0x0e03, Name: "Epson TM-T20"},
		{VendorID: 0x04b8, ProductID: 0x0202, Name: "Epson TM-T70"},
		{VendorID: 0x04b8, ProductID: 0x0e15, Name: "Epson TM-T20II"},
		{VendorID: 0x0519, ProductID: 0x0001, Name: "Star TSP100"},
		{VendorID: 0x1504, ProductID: 0x0006, Name: "Bixolon SRP-350"},
	}
}

var vidPidPattern = regexp.MustCompile(`[0-9A-Fa-f]{4}:[0-9A-Fa-f]{4}`)

// ParseIdentification extracts a device from a free-form identification
// string such as a line of lsusb output:
//
//	Bus 001 Device 004: ID 04b8:0e15 Seiko Epson Corp.
//
// The first vvvv:pppp hex pair is the vendor and product. The name is the
// text between the first and second "ID" token, or the whole string when
// there is no such token. Returns false when no hex pair is present.
func ParseIdentification(s string) (SupportedDevice, bool) {
	match := vidPidPattern.FindString(s)
	if match == "" {
		return SupportedDevice{}, false
	}

	parts := strings.SplitN(match, ":", 2)
	vendor, err := strconv.ParseUint(parts[0], 16, 16)
	if err != nil {
		return SupportedDevice{}, false
	}
	product, err := strconv.ParseUint(parts[1], 16, 16)
	if err != nil {
		return SupportedDevice{}, false
	}

	name := s
	if pieces := strings.Split(s, "ID"); len(pieces) >= 2 {
		name = pieces[1]
	}

	return SupportedDevice{
		VendorID:  uint16(vendor),
		ProductID: uint16(product),
		Name:      strings.TrimSpace(name),
	}, true
}
