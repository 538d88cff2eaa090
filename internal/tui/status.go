// Package tui renders driver status for the terminal
package tui

import (
	"fmt"
	"strings"

	"github.com/thereceipt/escpos-driver/internal/api"
	"github.com/thereceipt/escpos-driver/internal/registry"
)

// RenderStatus draws the status card printed by `escposd status`
func RenderStatus(r api.StatusReport) string {
	var lines []string

	title := fmt.Sprintf("%s %s", stateDot(r.Status), strings.ToUpper(string(r.Status)))
	lines = append(lines, titleStyle.Render(title))

	if r.DeviceID != "" {
		lines = append(lines, textDim.Render("device ")+textBright.Render(r.DeviceID))
	}
	lines = append(lines, textDim.Render("queue  ")+textBright.Render(fmt.Sprint(r.Queue)))

	if len(r.Messages) > 0 {
		lines = append(lines, "")
		for _, m := range r.Messages {
			lines = append(lines, textNormal.Render(m))
		}
	}

	return cardStyle.Render(strings.Join(lines, "\n"))
}

// RenderDevices lists the plugged in printers, or says there are none
func RenderDevices(devices []registry.SupportedDevice) string {
	if len(devices) == 0 {
		return textDim.Render("  no supported printer plugged in")
	}

	var lines []string
	for _, d := range devices {
		lines = append(lines, deviceStyle.Render(fmt.Sprintf("%s  %s", d.Identity(), d.Name)))
	}
	return strings.Join(lines, "\n")
}
