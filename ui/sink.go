package ui

import (
	"fmt"
	"io"
	"strings"
	"sync"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// ProgramSink forwards task status to a running bubbletea program.
type ProgramSink struct {
	p *tea.Program
}

func NewProgramSink(p *tea.Program) *ProgramSink { return &ProgramSink{p: p} }

func (s *ProgramSink) Show()                  { s.p.Send(ShowMsg{}) }
func (s *ProgramSink) SetStatus(msg string)   { s.p.Send(StatusMsg{Text: msg}) }
func (s *ProgramSink) SetLevel(level float64) { s.p.Send(LevelMsg{Level: level}) }
func (s *ProgramSink) Hide()                  { s.p.Send(HideMsg{}) }

// LineSink prints one line per status change, for headless runs.
type LineSink struct {
	mu    sync.Mutex
	w     io.Writer
	last  string
	style lipgloss.Style
	err   lipgloss.Style
}

func NewLineSink(w io.Writer) *LineSink {
	return &LineSink{
		w:     w,
		style: lipgloss.NewStyle().Foreground(lipgloss.Color("4")),
		err:   lipgloss.NewStyle().Foreground(lipgloss.Color("208")),
	}
}

func (s *LineSink) Show() {}

func (s *LineSink) SetStatus(msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if msg == s.last {
		return
	}
	s.last = msg
	style := s.style
	if strings.HasPrefix(msg, "Error") {
		style = s.err
	}
	fmt.Fprintln(s.w, style.Render(strings.ReplaceAll(msg, "\n", " | ")))
}

func (s *LineSink) SetLevel(float64) {}

func (s *LineSink) Hide() {
	s.mu.Lock()
	s.last = ""
	s.mu.Unlock()
}
