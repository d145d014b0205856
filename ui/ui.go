// Package ui renders the task status bar in the terminal.
package ui

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

type ShowMsg struct{}
type HideMsg struct{}
type StatusMsg struct{ Text string }
type LevelMsg struct{ Level float64 }
type ModeLineMsg struct{ Text string } // task kind and providers
type NoteLineMsg struct{ Text string } // active note
type tickMsg time.Time

const historyLen = 64

var bars = []rune("▁▂▃▄▅▆▇█")

// Model is the bubbletea model behind the status bar. The zero value is
// hidden and idle.
type Model struct {
	visible       bool
	frame         int
	shownAt       time.Time
	elapsed       time.Duration
	level         float64
	history       []float64
	status        string
	lines         int
	width, height int
	modeLine      string
	noteLine      string
	hotkey        string
	cancel        func()
}

// NewModel shows hotkey in the help line. Esc calls cancel.
func NewModel(hotkey string, cancel func()) Model {
	return Model{hotkey: hotkey, cancel: cancel}
}

// NewProgram runs the model in the alternate screen.
func NewProgram(hotkey string, cancel func()) *tea.Program {
	return tea.NewProgram(NewModel(hotkey, cancel), tea.WithAltScreen())
}

func tick() tea.Cmd {
	return tea.Tick(60*time.Millisecond, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m Model) Init() tea.Cmd {
	return tick()
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			return m, tea.Quit
		case "esc":
			if m.visible && m.cancel != nil {
				m.cancel()
			}
		}

	case tickMsg:
		m.frame++
		if m.visible {
			m.elapsed = time.Time(msg).Sub(m.shownAt)
		}
		return m, tick()

	case ShowMsg:
		m.visible = true
		m.shownAt = time.Now()
		m.elapsed = 0
		m.level = 0
		m.history = m.history[:0]

	case HideMsg:
		m.visible = false
		m.level = 0

	case StatusMsg:
		m.status = msg.Text
		m.lines++

	case LevelMsg:
		if m.visible {
			m.level = m.level*0.6 + msg.Level*0.4
			m.history = append(m.history, m.level)
			if len(m.history) > historyLen {
				m.history = m.history[len(m.history)-historyLen:]
			}
		}

	case ModeLineMsg:
		m.modeLine = msg.Text

	case NoteLineMsg:
		m.noteLine = msg.Text
	}
	return m, nil
}

// Visible reports whether a task is showing the bar.
func (m Model) Visible() bool { return m.visible }

// Status is the last status message.
func (m Model) Status() string { return m.status }

func (m Model) View() string {
	if m.width == 0 || m.height == 0 {
		return "Loading..."
	}
	width := m.width - 2
	if width < 20 {
		width = 20
	}

	var out []string
	if m.visible {
		head := lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")).
			Bold(true).
			Render(fmt.Sprintf("● %.1fs", m.elapsed.Seconds()))
		out = append(out, head)
		wave := lipgloss.NewStyle().
			Foreground(lipgloss.Color("214")).
			Render(Waveform(m.history, min(width, historyLen)))
		out = append(out, wave, "")
	} else {
		out = append(out, lipgloss.NewStyle().Foreground(lipgloss.Color("241")).Render("○ STANDBY"), "")
	}

	if m.status != "" {
		textStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("4"))
		if strings.HasPrefix(m.status, "Error") {
			textStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("208"))
		}
		for _, para := range strings.Split(m.status, "\n") {
			for _, line := range wrapText(para, width) {
				out = append(out, textStyle.Render(line))
			}
		}
		out = append(out, "")
	}

	dim := lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	if m.modeLine != "" {
		out = append(out, lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Render(m.modeLine))
	}
	if m.noteLine != "" {
		out = append(out, dim.Render(m.noteLine))
	}
	if m.hotkey != "" {
		help := lipgloss.NewStyle().Foreground(lipgloss.Color("239"))
		bold := help.Bold(true)
		out = append(out, "", bold.Render(m.hotkey)+help.Render(" to talk, Esc to cancel"))
	}

	return lipgloss.NewStyle().
		Width(m.width).
		PaddingLeft(1).
		Render(strings.Join(out, "\n"))
}

// Waveform draws the most recent levels as block characters. Levels are
// normalized input levels; speech rarely goes above 0.3, so the scale
// saturates there.
func Waveform(levels []float64, width int) string {
	if width <= 0 {
		return ""
	}
	if len(levels) > width {
		levels = levels[len(levels)-width:]
	}
	var b strings.Builder
	for i := len(levels); i < width; i++ {
		b.WriteRune(bars[0])
	}
	for _, l := range levels {
		idx := int(l / 0.3 * float64(len(bars)-1))
		if idx < 0 {
			idx = 0
		}
		if idx >= len(bars) {
			idx = len(bars) - 1
		}
		b.WriteRune(bars[idx])
	}
	return b.String()
}

func wrapText(text string, width int) []string {
	if len(text) == 0 {
		return []string{""}
	}
	if width <= 0 {
		width = 1
	}

	var lines []string
	for len(text) > width {
		splitAt := width
		for i := width; i > 0; i-- {
			if text[i] == ' ' {
				splitAt = i
				break
			}
		}
		lines = append(lines, text[:splitAt])
		text = strings.TrimLeft(text[splitAt:], " ")
	}
	if len(text) > 0 {
		lines = append(lines, text)
	}
	return lines
}
