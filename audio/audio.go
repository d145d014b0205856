// Package audio captures microphone input and turns it into encoded
// recordings for transcription.
package audio

import (
	"encoding/binary"
	"math"
	"strings"

	"auralite/encoder"
)

const WAVHeaderSize = 44

var btKeywords = []string{
	"airpods", "beats", "bose", "wh-1000", "wf-1000",
	"sony wh-", "sony wf-",
	"jabra", "galaxy buds", "pixel buds", "powerbeats",
	"jbl ", "sennheiser momentum", "plantronics",
	"tozo", "anker soundcore", "skullcandy",
	"bluetooth", " bt ", " bt)", " bt]",
}

// IsBluetooth guesses from the name whether a device is a wireless headset,
// which usually drops to a low-quality profile while the mic is open.
func IsBluetooth(name string) bool {
	lower := strings.ToLower(name)
	for _, kw := range btKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// IsMonitor reports whether a source only loops back an output device.
func IsMonitor(d DeviceInfo) bool {
	return strings.HasSuffix(d.ID, ".monitor") || strings.HasPrefix(strings.ToLower(d.Name), "monitor of ")
}

type DataCallback func(data []byte, frameCount uint32)

type CaptureConfig struct {
	SampleRate uint32
	Channels   uint32
	// Gain scales samples on backends that deliver quiet input. Zero picks
	// the backend default.
	Gain int32
}

// DefaultCaptureConfig matches the encoder input format.
func DefaultCaptureConfig() CaptureConfig {
	return CaptureConfig{SampleRate: encoder.SampleRate, Channels: encoder.Channels}
}

type DeviceInfo struct {
	ID   string // opaque platform-specific identifier
	Name string
}

type Context interface {
	Devices() ([]DeviceInfo, error)
	NewCapture(device *DeviceInfo, config CaptureConfig) (CaptureDevice, error)
	Close()
}

type CaptureDevice interface {
	Start() error
	Stop()
	Close()
	SetCallback(cb DataCallback)
	ClearCallback()
	DeviceName() string
}

// amplify scales samples by gain, clipping at the int16 range, and returns
// them as little-endian PCM.
func amplify(samples []int16, gain int32) []byte {
	out := make([]byte, len(samples)*2)
	for i, s := range samples {
		v := int32(s) * gain
		v = max(min(v, math.MaxInt16), math.MinInt16)
		binary.LittleEndian.PutUint16(out[i*2:], uint16(int16(v)))
	}
	return out
}

// rms is the normalized root-mean-square level of little-endian PCM.
func rms(pcm []byte) float64 {
	n := len(pcm) / 2
	if n == 0 {
		return 0
	}
	var sum float64
	for i := 0; i < n; i++ {
		s := float64(int16(binary.LittleEndian.Uint16(pcm[i*2:]))) / 32768
		sum += s * s
	}
	return math.Sqrt(sum / float64(n))
}
