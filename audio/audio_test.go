package audio

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"strings"
	"testing"

	"auralite/encoder"
)

func TestAmplifyClips(t *testing.T) {
	out := amplify([]int16{100, -100, 10000, -10000, 0}, 8)
	want := []int16{800, -800, 32767, -32768, 0}
	for i, w := range want {
		if got := int16(binary.LittleEndian.Uint16(out[i*2:])); got != w {
			t.Errorf("sample %d = %d, want %d", i, got, w)
		}
	}
}

func TestIsMonitor(t *testing.T) {
	tests := []struct {
		dev  DeviceInfo
		want bool
	}{
		{DeviceInfo{ID: "alsa_output.pci-0000_00_1f.3.analog-stereo.monitor", Name: "Monitor of Built-in Audio"}, true},
		{DeviceInfo{ID: "x", Name: "monitor of HDMI"}, true},
		{DeviceInfo{ID: "alsa_input.usb-Blue_Yeti", Name: "Yeti Stereo Microphone"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.dev.Name, func(t *testing.T) {
			if got := IsMonitor(tt.dev); got != tt.want {
				t.Errorf("IsMonitor = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestIsBluetooth(t *testing.T) {
	if !IsBluetooth("AirPods Pro") || !IsBluetooth("Headset (BT)") {
		t.Error("headsets not detected")
	}
	if IsBluetooth("Built-in Microphone") {
		t.Error("built-in mic flagged")
	}
}

func TestDefaultCaptureConfig(t *testing.T) {
	c := DefaultCaptureConfig()
	if c.SampleRate != encoder.SampleRate || c.Channels != encoder.Channels || c.Gain != 0 {
		t.Errorf("config = %+v", c)
	}
}

type keys struct{ presses []string }

func (k *keys) Read(p []byte) (int, error) {
	if len(k.presses) == 0 {
		return 0, io.EOF
	}
	n := copy(p, k.presses[0])
	k.presses = k.presses[1:]
	return n, nil
}

func TestPick(t *testing.T) {
	devices := []DeviceInfo{{Name: "Built-in"}, {Name: "USB Mic"}, {Name: "AirPods"}}
	tests := []struct {
		name    string
		presses []string
		start   int
		want    int
		err     error
	}{
		{"enter keeps start", []string{"\r"}, 1, 1, nil},
		{"arrow down", []string{"\x1b[B", "\x1b[B", "\r"}, 0, 2, nil},
		{"clamped at bottom", []string{"j", "j", "j", "j", "\r"}, 0, 2, nil},
		{"up from top", []string{"\x1b[A", "k", "\r"}, 0, 0, nil},
		{"abort", []string{"j", "\x03"}, 0, 0, ErrSelectionAborted},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			got, err := pick(&keys{presses: tt.presses}, &out, devices, tt.start)
			if !errors.Is(err, tt.err) {
				t.Fatalf("err = %v, want %v", err, tt.err)
			}
			if err == nil && got != tt.want {
				t.Errorf("picked %d, want %d", got, tt.want)
			}
		})
	}
}

func TestPickShowsBluetoothWarning(t *testing.T) {
	var out bytes.Buffer
	if _, err := pick(&keys{presses: []string{"\r"}}, &out, []DeviceInfo{{Name: "AirPods"}}, 0); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out.String(), "Lower audio quality") {
		t.Errorf("output: %q", out.String())
	}
}
