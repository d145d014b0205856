package task

import "sync"

// StatusSink shows what the current task is doing.
type StatusSink interface {
	Show()
	SetStatus(msg string)
	SetLevel(level float64)
	Hide()
}

type NopSink struct{}

func (NopSink) Show()            {}
func (NopSink) SetStatus(string) {}
func (NopSink) SetLevel(float64) {}
func (NopSink) Hide()            {}

// MemorySink records status messages, for tests and the headless commands.
type MemorySink struct {
	mu       sync.Mutex
	visible  bool
	messages []string
	peak     float64
}

func (s *MemorySink) Show() {
	s.mu.Lock()
	s.visible = true
	s.mu.Unlock()
}

func (s *MemorySink) SetStatus(msg string) {
	s.mu.Lock()
	s.messages = append(s.messages, msg)
	s.mu.Unlock()
}

func (s *MemorySink) SetLevel(level float64) {
	s.mu.Lock()
	if level > s.peak {
		s.peak = level
	}
	s.mu.Unlock()
}

func (s *MemorySink) Hide() {
	s.mu.Lock()
	s.visible = false
	s.mu.Unlock()
}

func (s *MemorySink) Visible() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.visible
}

func (s *MemorySink) Messages() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.messages...)
}

// Last returns the most recent message.
func (s *MemorySink) Last() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.messages) == 0 {
		return ""
	}
	return s.messages[len(s.messages)-1]
}

func (s *MemorySink) Peak() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.peak
}
