// Package task sequences one push-to-talk session: record, transcribe,
// act, then finish or cancel.
package task

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"auralite/action"
	"auralite/assistant"
	"auralite/audio"
	"auralite/events"
	"auralite/silence"
)

type Status string

const (
	NotStarted Status = "not started"
	Started    Status = "started"
	Stopped    Status = "stopped"
	Finished   Status = "finished"
	Cancelled  Status = "cancelled"
	Failed     Status = "error"
)

// Terminal reports whether no further transitions are possible.
func (s Status) Terminal() bool { return s == Finished || s == Cancelled }

type Kind string

const (
	KindAssistant  Kind = "assistant"
	KindTranscribe Kind = "transcribe"
)

type Event string

const (
	TaskStarted  Event = "taskStarted"
	TaskFinished Event = "taskFinished"
)

// DefaultLinger is how long the final status stays up before a task
// finishes.
const DefaultLinger = 3 * time.Second

var ErrUnknownKind = errors.New("unknown task kind")

// Task is one push-to-talk or transcribe session.
type Task interface {
	ID() string
	Kind() Kind
	Status() Status
	// Err is the failure that ended the task, if any.
	Err() error
	Start() error
	Stop() error
	Cancel()
	Finish()
	// Done is closed once the task finished or was cancelled.
	Done() <-chan struct{}
	On(ev Event, fn func(Status)) events.Ref
	Off(ref events.Ref) bool
}

// SilenceOptions configures automatic stop on silence.
type SilenceOptions struct {
	Enabled   bool
	Threshold float64
	Duration  time.Duration
	// VAD vetoes quiet ticks that WebRTC VAD still classifies as speech.
	VAD bool
}

// Deps are the collaborators every task shares.
type Deps struct {
	Recorder  *audio.Recorder
	Assistant *assistant.Manager
	Status    StatusSink
	Copy      func(text string) error
	Silence   SilenceOptions
	Linger    time.Duration
	Log       zerolog.Logger
}

// New builds a task of the given kind.
func New(kind Kind, deps Deps) (Task, error) {
	switch kind {
	case KindAssistant:
		return newAssistantTask(deps), nil
	case KindTranscribe:
		return newTranscribeTask(deps), nil
	}
	return nil, ErrUnknownKind
}

// base holds the lifecycle shared by both task kinds. Every subscription
// the task makes goes through subs and is released only by Finish or
// Cancel.
type base struct {
	id   string
	kind Kind
	deps Deps
	log  zerolog.Logger

	ctx    context.Context
	cancel context.CancelFunc

	emitter events.Emitter[Event, Status]
	subs    events.Subscriptions

	mu       sync.Mutex
	status   Status
	err      error
	done     chan struct{}
	detector *silence.Detector
}

func newBase(kind Kind, deps Deps) *base {
	if deps.Status == nil {
		deps.Status = NopSink{}
	}
	if deps.Linger <= 0 {
		deps.Linger = DefaultLinger
	}
	id := uuid.NewString()
	ctx, cancel := context.WithCancel(context.Background())
	return &base{
		id:     id,
		kind:   kind,
		deps:   deps,
		log:    deps.Log.With().Str("task", id[:8]).Str("kind", string(kind)).Logger(),
		ctx:    ctx,
		cancel: cancel,
		status: NotStarted,
		done:   make(chan struct{}),
	}
}

func (b *base) ID() string            { return b.id }
func (b *base) Kind() Kind            { return b.kind }
func (b *base) Done() <-chan struct{} { return b.done }

func (b *base) Status() Status {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.status
}

func (b *base) Err() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.err
}

func (b *base) On(ev Event, fn func(Status)) events.Ref { return b.emitter.On(ev, fn) }

func (b *base) Off(ref events.Ref) bool { return b.emitter.Off(ref) }

// setStatus moves to s unless the task already ended.
func (b *base) setStatus(s Status) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.status.Terminal() {
		return false
	}
	b.status = s
	return true
}

func (b *base) fail(err error) {
	b.mu.Lock()
	if !b.status.Terminal() {
		b.status = Failed
		b.err = err
	}
	b.mu.Unlock()
	b.log.Error().Err(err).Msg("task failed")
}

func (b *base) onRecorder(ev audio.Event, fn func(audio.Payload)) {
	r := b.deps.Recorder
	b.subs.Add(r, r.On(ev, fn))
}

func (b *base) onAssistant(ev assistant.Event, fn func(assistant.Payload)) {
	a := b.deps.Assistant
	b.subs.Add(a, a.On(ev, fn))
}

// start records. The caller has already subscribed to recorder events.
func (b *base) start() error {
	if !b.setStatus(Started) {
		return errors.New("task already ended")
	}
	b.log.Info().Msg("task started")
	b.emitter.Emit(TaskStarted, Started)
	if b.deps.Silence.Enabled {
		b.watchSilence()
	}
	if err := b.deps.Recorder.Start(); err != nil {
		b.fail(err)
		b.deps.Status.SetStatus("Error recording")
		b.finishLater()
		return err
	}
	return nil
}

func (b *base) stop() error {
	b.stopSilence()
	b.mu.Lock()
	if b.status != Started {
		b.mu.Unlock()
		return audio.ErrNotRecording
	}
	b.status = Stopped
	b.mu.Unlock()

	_, err := b.deps.Recorder.Stop()
	return err
}

// watchSilence stops the recording once the input stays quiet.
func (b *base) watchSilence() {
	opts := b.deps.Silence
	d := silence.New(silence.Options{Threshold: opts.Threshold, Duration: opts.Duration}, b.deps.Recorder.Level)
	if opts.VAD {
		gate, err := silence.NewVoiceGate()
		if err != nil {
			b.log.Warn().Err(err).Msg("vad unavailable, using level only")
		} else {
			d.SetGate(gate)
			b.onRecorder(audio.DataAvailable, func(p audio.Payload) { gate.Process(p.Data) })
		}
	}
	b.subs.Add(d, d.OnSilence(func() {
		b.log.Info().Dur("quiet", d.Options().Duration).Msg("silence detected, stopping")
		if err := b.stop(); err != nil && !errors.Is(err, audio.ErrNotRecording) {
			b.log.Warn().Err(err).Msg("stop on silence")
		}
	}))

	b.mu.Lock()
	b.detector = d
	b.mu.Unlock()
	d.Start()
}

func (b *base) stopSilence() {
	b.mu.Lock()
	d := b.detector
	b.mu.Unlock()
	if d != nil {
		d.Stop()
	}
}

// terminate ends the task once. It releases every subscription, closes
// Done and fires taskFinished.
func (b *base) terminate(final Status) bool {
	b.mu.Lock()
	if b.status.Terminal() {
		b.mu.Unlock()
		return false
	}
	b.status = final
	d := b.detector
	b.mu.Unlock()

	if d != nil {
		d.Stop()
	}
	released := b.subs.ReleaseAll()
	b.cancel()
	close(b.done)
	b.log.Info().Str("status", string(final)).Int("released", released).Msg("task ended")

	b.emitter.Emit(TaskFinished, final)
	b.emitter.RemoveAll()
	return true
}

// Finish ends the task normally. Calling it again, or after Cancel, does
// nothing.
func (b *base) Finish() {
	if b.terminate(Finished) {
		b.deps.Status.Hide()
	}
}

// Cancel aborts recording and any in-flight model call.
func (b *base) Cancel() {
	if !b.terminate(Cancelled) {
		return
	}
	b.deps.Assistant.Cancel()
	b.deps.Recorder.Cancel()
	b.deps.Status.Hide()
}

// finishLater keeps the last status visible for the linger period.
func (b *base) finishLater() {
	go func() {
		select {
		case <-time.After(b.deps.Linger):
			b.Finish()
		case <-b.done:
		}
	}()
}

// cancelledRun reports whether err only reflects this task being cancelled.
func (b *base) cancelledRun(err error) bool {
	return action.IsCancelled(err) || b.ctx.Err() != nil
}

// showRecording wires the status sink to the recorder.
func (b *base) showRecording() {
	b.onRecorder(audio.RecordingStarted, func(audio.Payload) {
		b.deps.Status.Show()
		b.deps.Status.SetStatus("Recording...")
	})
	b.onRecorder(audio.Level, func(p audio.Payload) {
		b.deps.Status.SetLevel(p.Level)
	})
	b.onRecorder(audio.Error, func(p audio.Payload) {
		b.fail(p.Err)
		b.deps.Status.SetStatus("Error recording")
		b.finishLater()
	})
}
