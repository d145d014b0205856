//go:build linux

package hotkey

import (
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

const (
	inputDir  = "/dev/input"
	sysInput  = "/sys/class/input"
	eventSize = 24 // struct input_event on 64-bit kernels
	evKey     = 1
	codeSpace = 57
)

var errNoKeyboards = errors.New("no keyboard devices found (is the user in the 'input' group?)")

// Modifier key codes, left and right variants.
var (
	ctrlCodes  = [2]uint16{29, 97}
	shiftCodes = [2]uint16{42, 54}
	altCodes   = [2]uint16{56, 100}
)

// evdev letter codes follow the physical QWERTY rows.
var rowCodes = []struct {
	letters string
	first   uint16
}{
	{"qwertyuiop", 16},
	{"asdfghjkl", 30},
	{"zxcvbnm", 44},
}

func keyCode(key string) (uint16, bool) {
	if key == "space" {
		return codeSpace, true
	}
	if len(key) != 1 {
		return 0, false
	}
	for _, row := range rowCodes {
		if i := strings.Index(row.letters, key); i >= 0 {
			return row.first + uint16(i), true
		}
	}
	return 0, false
}

// chord tracks modifier state for one keyboard and decides when the bound
// key goes down or up. Autorepeat (value 2) never changes state.
type chord struct {
	want             Binding
	code             uint16
	ctrl, shift, alt bool
	held             bool
}

func (c *chord) feed(code uint16, value int32) (down, up bool) {
	if value != 0 && value != 1 {
		return false, false
	}
	pressed := value == 1
	switch code {
	case ctrlCodes[0], ctrlCodes[1]:
		c.ctrl = pressed
	case shiftCodes[0], shiftCodes[1]:
		c.shift = pressed
	case altCodes[0], altCodes[1]:
		c.alt = pressed
	case c.code:
		mods := c.ctrl == c.want.Ctrl && c.shift == c.want.Shift && c.alt == c.want.Alt
		switch {
		case pressed && !c.held && mods:
			c.held = true
			return true, false
		case !pressed && c.held:
			c.held = false
			return false, true
		}
	}
	return false, false
}

type linuxHotkey struct {
	binding Binding
	code    uint16
	keydown chan struct{}
	keyup   chan struct{}

	files []*os.File
	stop  chan struct{}
	once  sync.Once
}

// New reads every keyboard under /dev/input directly, so it works on a
// console or under Wayland without a display server grab.
func New(b Binding) (Hotkey, error) {
	code, ok := keyCode(b.Key)
	if !ok {
		return nil, fmt.Errorf("unsupported key %q", b.Key)
	}
	return &linuxHotkey{
		binding: b,
		code:    code,
		keydown: make(chan struct{}, 1),
		keyup:   make(chan struct{}, 1),
	}, nil
}

func (h *linuxHotkey) Register() error {
	paths, err := findKeyboards()
	if err != nil {
		return fmt.Errorf("finding keyboards: %w", err)
	}
	if len(paths) == 0 {
		return errNoKeyboards
	}
	h.stop = make(chan struct{})
	for _, p := range paths {
		f, err := os.Open(p)
		if err != nil {
			continue
		}
		h.files = append(h.files, f)
		go h.watch(f)
	}
	if len(h.files) == 0 {
		return fmt.Errorf("could not open any keyboard device (run: sudo usermod -aG input $USER, then log in again)")
	}
	return nil
}

func notify(ch chan struct{}) {
	select {
	case ch <- struct{}{}:
	default:
	}
}

// watch decodes input_event records from one device until it is closed.
func (h *linuxHotkey) watch(f *os.File) {
	st := chord{want: h.binding, code: h.code}
	buf := make([]byte, eventSize*16)
	for {
		n, err := f.Read(buf)
		if err != nil {
			return
		}
		select {
		case <-h.stop:
			return
		default:
		}
		for off := 0; off+eventSize <= n; off += eventSize {
			ev := buf[off : off+eventSize]
			if binary.LittleEndian.Uint16(ev[16:]) != evKey {
				continue
			}
			down, up := st.feed(binary.LittleEndian.Uint16(ev[18:]), int32(binary.LittleEndian.Uint32(ev[20:])))
			if down {
				notify(h.keydown)
			}
			if up {
				notify(h.keyup)
			}
		}
	}
}

func (h *linuxHotkey) Unregister() {
	h.once.Do(func() {
		if h.stop != nil {
			close(h.stop)
		}
		for _, f := range h.files {
			f.Close()
		}
	})
}

func (h *linuxHotkey) Keydown() <-chan struct{} { return h.keydown }

func (h *linuxHotkey) Keyup() <-chan struct{} { return h.keyup }

func findKeyboards() ([]string, error) {
	entries, err := os.ReadDir(inputDir)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), "event") && isKeyboard(e.Name()) {
			out = append(out, filepath.Join(inputDir, e.Name()))
		}
	}
	return out, nil
}

// isKeyboard treats devices with a wide key capability bitmap as keyboards.
// Mice and power buttons report only a few bits.
func isKeyboard(event string) bool {
	data, err := os.ReadFile(filepath.Join(sysInput, event, "device", "capabilities", "key"))
	if err != nil {
		return false
	}
	return len(strings.TrimSpace(string(data))) > 10
}

// Diagnose reports whether at least one keyboard can be opened.
func Diagnose() (string, error) {
	paths, err := findKeyboards()
	if err != nil {
		return "", fmt.Errorf("cannot scan input devices: %w", err)
	}
	if len(paths) == 0 {
		return "", errNoKeyboards
	}
	for _, p := range paths {
		f, err := os.Open(p)
		if err != nil {
			continue
		}
		f.Close()
		return fmt.Sprintf("%d keyboard(s) found, opened %s", len(paths), p), nil
	}
	return "", fmt.Errorf("found %d keyboard(s) but cannot open any (run: sudo usermod -aG input $USER)", len(paths))
}
