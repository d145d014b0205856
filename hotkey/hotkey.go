// Package hotkey listens for the global push-to-talk key combinations.
package hotkey

import (
	"fmt"
	"strings"
)

type Hotkey interface {
	Register() error
	Unregister()
	Keydown() <-chan struct{}
	Keyup() <-chan struct{}
}

const (
	DefaultAssistant  = "ctrl+shift+space"
	DefaultTranscribe = "ctrl+shift+t"
)

// Binding is a key plus the modifiers that must be held with it.
type Binding struct {
	Ctrl  bool
	Shift bool
	Alt   bool
	Key   string // "space" or a single lowercase letter
}

// ParseBinding reads combinations like "ctrl+shift+space".
func ParseBinding(s string) (Binding, error) {
	var b Binding
	parts := strings.Split(strings.ToLower(strings.TrimSpace(s)), "+")
	for i, p := range parts {
		p = strings.TrimSpace(p)
		if i == len(parts)-1 {
			if !validKey(p) {
				return Binding{}, fmt.Errorf("hotkey %q: unsupported key %q", s, p)
			}
			b.Key = p
			break
		}
		switch p {
		case "ctrl", "control":
			b.Ctrl = true
		case "shift":
			b.Shift = true
		case "alt", "option":
			b.Alt = true
		default:
			return Binding{}, fmt.Errorf("hotkey %q: unknown modifier %q", s, p)
		}
	}
	if !b.Ctrl && !b.Shift && !b.Alt {
		return Binding{}, fmt.Errorf("hotkey %q: needs at least one modifier", s)
	}
	return b, nil
}

func MustParse(s string) Binding {
	b, err := ParseBinding(s)
	if err != nil {
		panic(err)
	}
	return b
}

func (b Binding) String() string {
	var parts []string
	if b.Ctrl {
		parts = append(parts, "Ctrl")
	}
	if b.Shift {
		parts = append(parts, "Shift")
	}
	if b.Alt {
		parts = append(parts, "Alt")
	}
	key := strings.ToUpper(b.Key)
	if b.Key == "space" {
		key = "Space"
	}
	return strings.Join(append(parts, key), "+")
}

func validKey(k string) bool {
	if k == "space" {
		return true
	}
	return len(k) == 1 && k[0] >= 'a' && k[0] <= 'z'
}
