package audio

import (
	"os"
	"sync"
	"time"

	"auralite/encoder"
)

// Fake capture delivers PCM in fixed chunks of this many frames.
const fakeChunkFrames = 1024

const fakeDeviceName = "Fake Microphone"

// FakeContext replays a fixed PCM clip instead of opening a microphone.
// In burst mode the whole clip is delivered inside Start; in realtime mode
// it is paced at the capture sample rate. Either way the capture keeps
// producing silence after the clip until stopped.
type FakeContext struct {
	pcm      []byte
	realtime bool

	mu   sync.Mutex
	last *FakeCapture
}

// NewFakeContext replays the sample data of a 16 kHz mono 16-bit WAV file.
func NewFakeContext(wavPath string, realtime bool) (*FakeContext, error) {
	data, err := os.ReadFile(wavPath)
	if err != nil {
		return nil, err
	}
	if len(data) > WAVHeaderSize {
		data = data[WAVHeaderSize:]
	}
	return NewFakeContextPCM(data, realtime), nil
}

// NewFakeContextPCM replays raw 16 kHz mono 16-bit PCM.
func NewFakeContextPCM(pcm []byte, realtime bool) *FakeContext {
	return &FakeContext{pcm: pcm, realtime: realtime}
}

func (f *FakeContext) Devices() ([]DeviceInfo, error) {
	return []DeviceInfo{{ID: "fake", Name: fakeDeviceName}}, nil
}

func (f *FakeContext) NewCapture(_ *DeviceInfo, _ CaptureConfig) (CaptureDevice, error) {
	c := &FakeCapture{pcm: f.pcm, realtime: f.realtime, audioDone: make(chan struct{})}
	f.mu.Lock()
	f.last = c
	f.mu.Unlock()
	return c, nil
}

// Last returns the most recently created capture.
func (f *FakeContext) Last() *FakeCapture {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.last
}

func (f *FakeContext) Close() {}

type FakeCapture struct {
	pcm      []byte
	realtime bool

	mu        sync.Mutex
	cb        DataCallback
	audioDone chan struct{}
	stop      chan struct{}
	done      chan struct{}
}

// AudioDone is closed once the whole clip has been delivered. A new channel
// is armed after Stop so the clip can be replayed.
func (f *FakeCapture) AudioDone() <-chan struct{} {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.audioDone
}

func (f *FakeCapture) SetCallback(cb DataCallback) {
	f.mu.Lock()
	f.cb = cb
	f.mu.Unlock()
}

func (f *FakeCapture) ClearCallback() { f.SetCallback(nil) }

func (f *FakeCapture) DeviceName() string { return fakeDeviceName }

func (f *FakeCapture) callback() DataCallback {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.cb
}

// deliver hands the chunk starting at off to cb and returns the next offset.
func (f *FakeCapture) deliver(cb DataCallback, off int) int {
	end := min(off+fakeChunkFrames*2, len(f.pcm))
	chunk := append([]byte(nil), f.pcm[off:end]...)
	cb(chunk, uint32(len(chunk)/2))
	return end
}

func (f *FakeCapture) finish() {
	f.mu.Lock()
	close(f.audioDone)
	f.mu.Unlock()
}

func (f *FakeCapture) Start() error {
	f.stop = make(chan struct{})
	f.done = make(chan struct{})

	off := 0
	if !f.realtime {
		if cb := f.callback(); cb != nil {
			for off < len(f.pcm) {
				off = f.deliver(cb, off)
			}
		}
		off = len(f.pcm)
		f.finish()
	}

	pace := time.Millisecond
	if f.realtime {
		pace = time.Duration(fakeChunkFrames) * time.Second / encoder.SampleRate
	}
	go f.feed(off, pace)
	return nil
}

// feed delivers the rest of the clip and then silence, one chunk per pace.
func (f *FakeCapture) feed(off int, pace time.Duration) {
	defer close(f.done)
	silence := make([]byte, fakeChunkFrames*2)
	finished := off >= len(f.pcm) && !f.realtime
	tick := time.NewTicker(pace)
	defer tick.Stop()
	for {
		if cb := f.callback(); cb != nil {
			switch {
			case off < len(f.pcm):
				off = f.deliver(cb, off)
			case !finished:
				finished = true
				f.finish()
				fallthrough
			default:
				cb(silence, fakeChunkFrames)
			}
		}
		select {
		case <-f.stop:
			return
		case <-tick.C:
		}
	}
}

func (f *FakeCapture) Stop() {
	if f.stop == nil {
		return
	}
	select {
	case <-f.stop:
		return
	default:
		close(f.stop)
	}
	<-f.done
	f.mu.Lock()
	f.audioDone = make(chan struct{})
	f.mu.Unlock()
}

func (f *FakeCapture) Close() {}
