package tui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/thereceipt/escpos-driver/internal/status"
)

var (
	purple = lipgloss.Color("#7C3AED")
	cyan   = lipgloss.Color("#06B6D4")
	green  = lipgloss.Color("#10B981")
	amber  = lipgloss.Color("#F59E0B")
	red    = lipgloss.Color("#EF4444")
	gray   = lipgloss.Color("#6B7280")

	bright = lipgloss.Color("#F8FAFC")
	normal = lipgloss.Color("#CBD5E1")
	dim    = lipgloss.Color("#64748B")
)

var (
	textBright = lipgloss.NewStyle().Foreground(bright)
	textNormal = lipgloss.NewStyle().Foreground(normal)
	textDim    = lipgloss.NewStyle().Foreground(dim)

	bannerStyle = lipgloss.NewStyle().Bold(true).Foreground(bright).Background(purple).Padding(0, 2).MarginBottom(1)
	cardStyle   = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(gray).Padding(0, 2)
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(cyan)
	deviceStyle = lipgloss.NewStyle().Foreground(normal).PaddingLeft(2)
	keyStyle    = lipgloss.NewStyle().Bold(true).Foreground(cyan)
	errorStyle  = lipgloss.NewStyle().Foreground(red)

	spinnerStyle = lipgloss.NewStyle().Foreground(purple)
)

// stateColors colors the indicator dot per printer state
var stateColors = map[status.State]lipgloss.Color{
	status.Connecting:   amber,
	status.Connected:    green,
	status.Disconnected: red,
	status.Error:        red,
}

func stateDot(state status.State) string {
	c, ok := stateColors[state]
	if !ok {
		c = gray
	}
	return lipgloss.NewStyle().Foreground(c).Render("●")
}

func keyHelp(key, desc string) string {
	return keyStyle.Render(key) + textDim.Render(" "+desc)
}
