//go:build linux

package hotkey

import "testing"

func TestKeyCode(t *testing.T) {
	tests := map[string]uint16{"space": 57, "q": 16, "p": 25, "a": 30, "t": 20, "z": 44, "m": 50}
	for key, want := range tests {
		got, ok := keyCode(key)
		if !ok || got != want {
			t.Errorf("keyCode(%q) = %d, %v; want %d", key, got, ok, want)
		}
	}
	if _, ok := keyCode("qw"); ok {
		t.Error("multi-letter key accepted")
	}
}

func TestChord(t *testing.T) {
	const (
		lctrl  = 29
		rshift = 54
		lalt   = 56
		press  = 1
		repeat = 2
		lift   = 0
	)
	code, _ := keyCode("space")
	type ev struct {
		code  uint16
		value int32
	}
	tests := []struct {
		name     string
		binding  Binding
		events   []ev
		downs    int
		ups      int
		heldLast bool
	}{
		{"bare key", Binding{Key: "space"}, []ev{{code, press}, {code, lift}}, 1, 1, false},
		{"ctrl chord", Binding{Ctrl: true, Key: "space"}, []ev{{lctrl, press}, {code, press}, {code, lift}, {lctrl, lift}}, 1, 1, false},
		{"missing modifier", Binding{Ctrl: true, Key: "space"}, []ev{{code, press}, {code, lift}}, 0, 0, false},
		{"extra modifier", Binding{Key: "space"}, []ev{{lalt, press}, {code, press}, {code, lift}}, 0, 0, false},
		{"autorepeat ignored", Binding{Key: "space"}, []ev{{code, press}, {code, repeat}, {code, repeat}}, 1, 0, true},
		{"release after modifier lifted", Binding{Shift: true, Key: "space"}, []ev{{rshift, press}, {code, press}, {rshift, lift}, {code, lift}}, 1, 1, false},
		{"other key", Binding{Key: "space"}, []ev{{30, press}, {30, lift}}, 0, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := chord{want: tt.binding, code: code}
			downs, ups := 0, 0
			for _, e := range tt.events {
				d, u := c.feed(e.code, e.value)
				if d {
					downs++
				}
				if u {
					ups++
				}
			}
			if downs != tt.downs || ups != tt.ups {
				t.Errorf("downs=%d ups=%d, want %d/%d", downs, ups, tt.downs, tt.ups)
			}
			if c.held != tt.heldLast {
				t.Errorf("held = %v, want %v", c.held, tt.heldLast)
			}
		})
	}
}
