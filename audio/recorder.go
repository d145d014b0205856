package audio

import (
	"errors"
	"fmt"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"auralite/encoder"
	"auralite/events"

	"github.com/rs/zerolog"
)

var (
	ErrAlreadyRecording   = errors.New("already recording")
	ErrNotRecording       = errors.New("not recording")
	ErrRecordingTooShort  = errors.New("recording too short")
	ErrRecordingCancelled = errors.New("recording cancelled")
)

// MinRecording is the shortest recording worth transcribing.
const MinRecording = 100 * time.Millisecond

type Event string

const (
	RecordingStarted   Event = "recordingStarted"
	DataAvailable      Event = "dataAvailable"
	RecordingStopped   Event = "recordingStopped"
	RecordingComplete  Event = "recordingComplete"
	RecordingCancelled Event = "recordingCancelled"
	Error              Event = "error"
	Level              Event = "level"
)

// Recording is a finished, encoded capture.
type Recording struct {
	Data     []byte
	MimeType string
	Duration time.Duration
	Frames   uint64
}

// Payload carries whichever field the event needs.
type Payload struct {
	Data      []byte
	Recording Recording
	Level     float64
	Err       error
}

// Recorder turns a capture device into start/stop/cancel recordings encoded
// as FLAC. One recording can be active at a time.
type Recorder struct {
	ctx    Context
	device *DeviceInfo
	log    zerolog.Logger

	emitter events.Emitter[Event, Payload]
	level   atomic.Uint64

	mu        sync.Mutex
	recording bool
	capture   CaptureDevice
	stream    *encoder.Stream
	startedAt time.Time
}

func NewRecorder(ctx Context, device *DeviceInfo, logger zerolog.Logger) *Recorder {
	return &Recorder{ctx: ctx, device: device, log: logger}
}

func (r *Recorder) On(ev Event, fn func(Payload)) events.Ref { return r.emitter.On(ev, fn) }

func (r *Recorder) Off(ref events.Ref) bool { return r.emitter.Off(ref) }

// Listeners reports live subscriptions.
func (r *Recorder) Listeners() int { return r.emitter.Listeners() }

func (r *Recorder) IsRecording() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.recording
}

// Level is the RMS of the latest chunk, normalized to 0..1.
func (r *Recorder) Level() float64 {
	return math.Float64frombits(r.level.Load())
}

func (r *Recorder) Start() error {
	r.mu.Lock()
	if r.recording {
		r.mu.Unlock()
		return ErrAlreadyRecording
	}
	stream, err := encoder.NewFlacStream()
	if err != nil {
		r.mu.Unlock()
		return err
	}
	capture, err := r.ctx.NewCapture(r.device, DefaultCaptureConfig())
	if err != nil {
		r.mu.Unlock()
		stream.Abort()
		return fmt.Errorf("open capture: %w", err)
	}
	r.recording = true
	r.capture = capture
	r.stream = stream
	r.startedAt = time.Now()
	r.level.Store(0)
	r.mu.Unlock()

	r.emitter.Emit(RecordingStarted, Payload{})

	// Some devices deliver data synchronously from Start, so the lock must
	// not be held here.
	capture.SetCallback(r.onData)
	if err := capture.Start(); err != nil {
		r.mu.Lock()
		r.reset()
		r.mu.Unlock()
		capture.ClearCallback()
		capture.Close()
		stream.Abort()
		err = fmt.Errorf("start capture: %w", err)
		r.emitter.Emit(Error, Payload{Err: err})
		return err
	}
	r.log.Debug().Str("device", capture.DeviceName()).Msg("recording started")
	return nil
}

func (r *Recorder) onData(data []byte, _ uint32) {
	r.mu.Lock()
	stream := r.stream
	r.mu.Unlock()
	if stream == nil {
		return
	}
	if err := stream.Feed(data); err != nil {
		return
	}
	lvl := rms(data)
	r.level.Store(math.Float64bits(lvl))
	r.emitter.Emit(DataAvailable, Payload{Data: data})
	r.emitter.Emit(Level, Payload{Level: lvl})
}

func (r *Recorder) reset() {
	r.recording = false
	r.capture = nil
	r.stream = nil
}

// Stop ends the recording and returns it encoded. recordingStopped is
// emitted first, then recordingComplete, or error when the recording is
// shorter than MinRecording.
func (r *Recorder) Stop() (Recording, error) {
	r.mu.Lock()
	if !r.recording {
		r.mu.Unlock()
		return Recording{}, ErrNotRecording
	}
	capture, stream, started := r.capture, r.stream, r.startedAt
	r.reset()
	r.mu.Unlock()

	capture.ClearCallback()
	capture.Stop()
	capture.Close()
	r.emitter.Emit(RecordingStopped, Payload{})

	data, err := stream.Finish()
	if err != nil {
		err = fmt.Errorf("encode recording: %w", err)
		r.emitter.Emit(Error, Payload{Err: err})
		return Recording{}, err
	}
	rec := Recording{
		Data:     data,
		MimeType: encoder.FlacMimeType,
		Duration: stream.Duration(),
		Frames:   stream.Frames(),
	}
	r.log.Debug().
		Dur("audio", rec.Duration).
		Dur("wall", time.Since(started)).
		Int("bytes", len(data)).
		Dur("encode", stream.EncodeTime()).
		Msg("recording stopped")

	if rec.Duration < MinRecording {
		err := fmt.Errorf("%w: %v", ErrRecordingTooShort, rec.Duration)
		r.emitter.Emit(Error, Payload{Err: err})
		return rec, err
	}
	r.emitter.Emit(RecordingComplete, Payload{Recording: rec})
	return rec, nil
}

// Cancel drops the active recording, if any, and releases its capture
// device. Subscribers stay attached; each owner releases its own.
func (r *Recorder) Cancel() {
	r.mu.Lock()
	active := r.recording
	capture, stream := r.capture, r.stream
	r.reset()
	r.mu.Unlock()

	if active {
		capture.ClearCallback()
		capture.Stop()
		capture.Close()
		stream.Abort()
		r.emitter.Emit(RecordingCancelled, Payload{Err: ErrRecordingCancelled})
		r.log.Debug().Msg("recording cancelled")
	}
	r.level.Store(0)
}

// Teardown cancels any recording and drops every subscriber. Only the owner
// of the recorder calls it, once the session is over. It is safe when idle.
func (r *Recorder) Teardown() {
	r.Cancel()
	r.emitter.RemoveAll()
}
