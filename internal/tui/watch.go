package tui

import (
	"context"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/thereceipt/escpos-driver/internal/api"
)

const pollTimeout = 5 * time.Second

// Source is where the watch view reads the driver state from
type Source interface {
	Status(ctx context.Context) (api.StatusReport, error)
	Devices(ctx context.Context) (api.DeviceReport, error)
}

// Messages
type pollMsg time.Time

type reportMsg struct {
	status  api.StatusReport
	devices api.DeviceReport
	err     error
	at      time.Time
}

// Watch is a live view of a running driver
type Watch struct {
	source   Source
	interval time.Duration
	spinner  spinner.Model

	status  api.StatusReport
	devices api.DeviceReport
	err     error
	updated time.Time
	loaded  bool

	width    int
	quitting bool
}

// NewWatch polls source every interval
func NewWatch(source Source, interval time.Duration) Watch {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = spinnerStyle

	return Watch{
		source:   source,
		interval: interval,
		spinner:  s,
	}
}

// Init starts the spinner and the first poll
func (w Watch) Init() tea.Cmd {
	return tea.Batch(w.spinner.Tick, w.poll())
}

func (w Watch) poll() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), pollTimeout)
		defer cancel()

		msg := reportMsg{at: time.Now()}
		msg.status, msg.err = w.source.Status(ctx)
		if msg.err == nil {
			msg.devices, msg.err = w.source.Devices(ctx)
		}
		return msg
	}
}

func (w Watch) tick() tea.Cmd {
	return tea.Tick(w.interval, func(t time.Time) tea.Msg {
		return pollMsg(t)
	})
}

// Update handles messages
func (w Watch) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			w.quitting = true
			return w, tea.Quit
		case "r":
			return w, w.poll()
		}

	case tea.WindowSizeMsg:
		w.width = msg.Width

	case pollMsg:
		return w, w.poll()

	case reportMsg:
		w.err = msg.err
		if msg.err == nil {
			w.status = msg.status
			w.devices = msg.devices
			w.updated = msg.at
			w.loaded = true
		}
		return w, w.tick()

	case spinner.TickMsg:
		var cmd tea.Cmd
		w.spinner, cmd = w.spinner.Update(msg)
		return w, cmd
	}

	return w, nil
}

// View renders the UI
func (w Watch) View() string {
	if w.quitting {
		return ""
	}

	var sections []string
	sections = append(sections, bannerStyle.Render("escposd"))

	if !w.loaded && w.err == nil {
		sections = append(sections, w.spinner.View()+textDim.Render(" contacting driver..."))
		return lipgloss.JoinVertical(lipgloss.Left, sections...)
	}

	if w.loaded {
		sections = append(sections,
			RenderStatus(w.status),
			"",
			titleStyle.Render("Printers"),
			RenderDevices(w.devices.Connected),
		)
	}
	if w.err != nil {
		sections = append(sections, "", errorStyle.Render(w.err.Error()))
	}

	footer := []string{keyHelp("r", "refresh"), keyHelp("q", "quit")}
	if !w.updated.IsZero() {
		footer = append(footer, textDim.Render("updated "+w.updated.Format("15:04:05")))
	}
	sections = append(sections, "", strings.Join(footer, "  "))

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}
