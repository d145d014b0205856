package audio

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

var ErrSelectionAborted = errors.New("device selection aborted")

// FindDevice returns the first capture device whose name contains name,
// case-insensitively. An empty name selects the system default (nil).
func FindDevice(ctx Context, name string) (*DeviceInfo, error) {
	if name == "" {
		return nil, nil
	}
	devices, err := ctx.Devices()
	if err != nil {
		return nil, fmt.Errorf("enumerating devices: %w", err)
	}
	if i := matchDevice(devices, name); i >= 0 {
		return &devices[i], nil
	}
	return nil, fmt.Errorf("no capture device matches %q", name)
}

func matchDevice(devices []DeviceInfo, name string) int {
	want := strings.ToLower(name)
	for i := range devices {
		if strings.Contains(strings.ToLower(devices[i].Name), want) {
			return i
		}
	}
	return -1
}

// SelectDevice shows an arrow-key picker on the terminal, starting on the
// device matching current. A single device is returned without prompting.
func SelectDevice(ctx Context, current string) (*DeviceInfo, error) {
	devices, err := ctx.Devices()
	if err != nil {
		return nil, fmt.Errorf("enumerating devices: %w", err)
	}
	if len(devices) == 0 {
		return nil, errors.New("no capture devices found")
	}
	if len(devices) == 1 {
		return &devices[0], nil
	}

	fd := int(os.Stdin.Fd())
	oldState, err := term.MakeRaw(fd)
	if err != nil {
		return nil, fmt.Errorf("setting raw mode: %w", err)
	}
	defer term.Restore(fd, oldState)

	start := 0
	if current != "" {
		start = max(matchDevice(devices, current), 0)
	}
	i, err := pick(os.Stdin, os.Stdout, devices, start)
	if err != nil {
		return nil, err
	}
	return &devices[i], nil
}

// pick runs the picker over a raw terminal stream and returns the chosen
// index. Arrows or j/k move, Enter confirms, Ctrl+C or q aborts.
func pick(in io.Reader, out io.Writer, devices []DeviceInfo, cursor int) (int, error) {
	render := func() {
		fmt.Fprint(out, "\r\x1b[J")
		fmt.Fprint(out, "Select input device (↑/↓, Enter to confirm):\r\n\r\n")
		for i, d := range devices {
			tag := ""
			if IsBluetooth(d.Name) {
				tag = " \x1b[33m[⚠ Lower audio quality]\x1b[0m"
			}
			if i == cursor {
				fmt.Fprintf(out, "  \x1b[1;36m▶ %s%s\x1b[0m\r\n", d.Name, tag)
			} else {
				fmt.Fprintf(out, "    %s%s\r\n", d.Name, tag)
			}
		}
	}
	up := func() { cursor = max(cursor-1, 0) }
	down := func() { cursor = min(cursor+1, len(devices)-1) }

	render()
	buf := make([]byte, 3)
	for {
		n, err := in.Read(buf)
		if err != nil {
			return 0, fmt.Errorf("reading input: %w", err)
		}
		switch {
		case n == 1 && buf[0] == '\r':
			fmt.Fprint(out, "\r\n")
			return cursor, nil
		case n == 1 && (buf[0] == 3 || buf[0] == 'q'):
			fmt.Fprint(out, "\r\n")
			return 0, ErrSelectionAborted
		case n == 1 && buf[0] == 'k', n == 3 && string(buf) == "\x1b[A":
			up()
		case n == 1 && buf[0] == 'j', n == 3 && string(buf) == "\x1b[B":
			down()
		}
		fmt.Fprintf(out, "\x1b[%dA", len(devices)+2)
		render()
	}
}
