//go:build !linux

package audio

import (
	"encoding/hex"
	"fmt"
	"sync/atomic"

	"github.com/gen2brain/malgo"
)

// miniaudio backs capture on macOS and Windows.
type malgoContext struct {
	ctx *malgo.AllocatedContext
}

func NewContext() (Context, error) {
	ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return nil, fmt.Errorf("init miniaudio: %w", err)
	}
	return &malgoContext{ctx: ctx}, nil
}

func (m *malgoContext) Devices() ([]DeviceInfo, error) {
	infos, err := m.ctx.Devices(malgo.Capture)
	if err != nil {
		return nil, fmt.Errorf("list capture devices: %w", err)
	}
	out := make([]DeviceInfo, 0, len(infos))
	for _, info := range infos {
		out = append(out, DeviceInfo{ID: hex.EncodeToString(info.ID.Pointer()[:]), Name: info.Name()})
	}
	return out, nil
}

// deviceID reverses the hex encoding used for DeviceInfo.ID.
func deviceID(s string) (malgo.DeviceID, error) {
	var id malgo.DeviceID
	raw, err := hex.DecodeString(s)
	if err != nil {
		return id, fmt.Errorf("device id %q: %w", s, err)
	}
	copy(id[:], raw)
	return id, nil
}

func (m *malgoContext) NewCapture(device *DeviceInfo, cfg CaptureConfig) (CaptureDevice, error) {
	c := &malgoCapture{name: "system default", gain: cfg.Gain}

	dc := malgo.DefaultDeviceConfig(malgo.Capture)
	dc.SampleRate = cfg.SampleRate
	dc.Capture.Format = malgo.FormatS16
	dc.Capture.Channels = cfg.Channels
	if device != nil {
		id, err := deviceID(device.ID)
		if err != nil {
			return nil, err
		}
		dc.Capture.DeviceID = id.Pointer()
		c.name = device.Name
	}

	dev, err := malgo.InitDevice(m.ctx.Context, dc, malgo.DeviceCallbacks{Data: c.onData})
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", c.name, err)
	}
	c.device = dev
	return c, nil
}

func (m *malgoContext) Close() {
	_ = m.ctx.Uninit()
	m.ctx.Free()
}

type malgoCapture struct {
	device   *malgo.Device
	name     string
	gain     int32
	callback atomic.Pointer[DataCallback]
}

// onData runs on the miniaudio thread. The input buffer is reused once it
// returns, so the samples are always copied.
func (c *malgoCapture) onData(_, in []byte, frames uint32) {
	cb := c.callback.Load()
	if cb == nil {
		return
	}
	var buf []byte
	if c.gain > 1 {
		samples := make([]int16, len(in)/2)
		for i := range samples {
			samples[i] = int16(uint16(in[2*i]) | uint16(in[2*i+1])<<8)
		}
		buf = amplify(samples, c.gain)
	} else {
		buf = append([]byte(nil), in...)
	}
	(*cb)(buf, frames)
}

func (c *malgoCapture) SetCallback(cb DataCallback) { c.callback.Store(&cb) }

func (c *malgoCapture) ClearCallback() { c.callback.Store(nil) }

func (c *malgoCapture) Start() error { return c.device.Start() }

func (c *malgoCapture) Stop() { _ = c.device.Stop() }

func (c *malgoCapture) Close() { c.device.Uninit() }

func (c *malgoCapture) DeviceName() string { return c.name }
