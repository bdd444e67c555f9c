package display

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/teslashibe/go-ohbot/internal/log"
)

// Status is the live state shown beside the text.
type Status struct {
	Speaking  bool
	Utterance string
	Gesture   string
	Positions []ChannelPosition
}

// ChannelPosition is one row of the position bars.
type ChannelPosition struct {
	Name     string
	Position float64
}

var (
	titleStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	speakingStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("10"))
	idleStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	textStyle     = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("240")).Padding(0, 1)
	barStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("14"))
	helpStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

const barWidth = 20

// Terminal renders the display in a bubbletea program. It drains the
// queue on every tick and forwards each update to Also.
type Terminal struct {
	Queue    *Queue
	Interval time.Duration
	Status   func() Status
	Also     Sink

	// OnQuit runs when the user presses q or ctrl+c.
	OnQuit func()

	// Logger receives Also failures. Defaults to the display component logger.
	Logger *slog.Logger

	Options []tea.ProgramOption
}

// Run blocks until the user quits or ctx is done.
func (t *Terminal) Run(ctx context.Context) error {
	opts := append([]tea.ProgramOption{tea.WithContext(ctx), tea.WithAltScreen()}, t.Options...)
	p := tea.NewProgram(newModel(t), opts...)
	_, err := p.Run()
	if err != nil && (ctx.Err() != nil || errors.Is(err, tea.ErrProgramKilled)) {
		return nil
	}
	return err
}

type tickMsg time.Time

type model struct {
	term     *Terminal
	interval time.Duration
	text     string
	status   Status
	width    int
	quitting bool
}

func newModel(t *Terminal) model {
	interval := t.Interval
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	return model{term: t, interval: interval}
}

func (m model) logger() *slog.Logger {
	if m.term.Logger != nil {
		return m.term.Logger
	}
	return log.Component("display")
}

func (m model) tick() tea.Cmd {
	return tea.Tick(m.interval, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (m model) Init() tea.Cmd {
	return m.tick()
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.quitting = true
			if m.term.OnQuit != nil {
				m.term.OnQuit()
			}
			return m, tea.Quit
		}

	case tickMsg:
		for _, text := range m.term.Queue.Drain() {
			m.text = text
			if m.term.Also != nil {
				if err := m.term.Also.Show(text); err != nil {
					m.logger().Warn("display update failed", "error", err)
				}
			}
		}
		if m.term.Status != nil {
			m.status = m.term.Status()
		}
		return m, m.tick()
	}
	return m, nil
}

func (m model) View() string {
	if m.quitting {
		return "Ohbot stopped.\n"
	}

	var sb strings.Builder
	sb.WriteString(titleStyle.Render("Ohbot"))
	sb.WriteString("  ")
	if m.status.Speaking {
		sb.WriteString(speakingStyle.Render("● speaking"))
	} else {
		sb.WriteString(idleStyle.Render("○ idle"))
	}
	if m.status.Gesture != "" {
		sb.WriteString(idleStyle.Render("  gesture: " + m.status.Gesture))
	}
	sb.WriteString("\n\n")

	text := m.text
	if text == "" {
		text = idleStyle.Render("…")
	}
	box := textStyle
	if m.width > 4 {
		box = box.Width(m.width - 4)
	}
	sb.WriteString(box.Render(text))
	sb.WriteString("\n\n")

	for _, cp := range m.status.Positions {
		sb.WriteString(fmt.Sprintf("%-10s %s %4.1f\n", cp.Name, barStyle.Render(bar(cp.Position)), cp.Position))
	}

	sb.WriteString("\n")
	sb.WriteString(helpStyle.Render("Press 'q' to quit"))
	sb.WriteString("\n")
	return sb.String()
}

// bar draws p in [0, 10] as a fixed-width gauge.
func bar(p float64) string {
	filled := int(p / 10 * barWidth)
	filled = max(0, min(barWidth, filled))
	return strings.Repeat("█", filled) + strings.Repeat("░", barWidth-filled)
}
