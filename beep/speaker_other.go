//go:build !linux

package beep

import (
	"encoding/binary"
	"errors"
	"sync"
	"time"

	"github.com/gen2brain/malgo"
)

type speaker struct{}

func (speaker) Play(samples []int16) error {
	ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return err
	}
	defer func() {
		ctx.Uninit()
		ctx.Free()
	}()

	buf := make([]byte, len(samples)*2)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(buf[i*2:], uint16(s))
	}

	config := malgo.DefaultDeviceConfig(malgo.Playback)
	config.Playback.Format = malgo.FormatS16
	config.Playback.Channels = 1
	config.SampleRate = SampleRate

	done := make(chan struct{})
	var once sync.Once
	pos := 0
	callbacks := malgo.DeviceCallbacks{
		Data: func(out, _ []byte, _ uint32) {
			n := copy(out, buf[pos:])
			pos += n
			clear(out[n:])
			if pos >= len(buf) {
				once.Do(func() { close(done) })
			}
		},
	}
	dev, err := malgo.InitDevice(ctx.Context, config, callbacks)
	if err != nil {
		return err
	}
	defer dev.Uninit()
	if err := dev.Start(); err != nil {
		return err
	}
	limit := time.Duration(len(samples))*time.Second/SampleRate + time.Second
	select {
	case <-done:
	case <-time.After(limit):
		dev.Stop()
		return errors.New("playback timed out")
	}
	return dev.Stop()
}
