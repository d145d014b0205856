// Package silence stops a recording once the speaker has gone quiet.
package silence

import (
	"sync"
	"time"

	"auralite/events"
)

const (
	DefaultTick      = 50 * time.Millisecond
	DefaultThreshold = 0.02
	DefaultDuration  = 2 * time.Second
)

type Options struct {
	Threshold float64       // normalized level below which a tick is quiet
	Duration  time.Duration // quiet time before silence is reported
}

// Gate vetoes quiet ticks that still contain speech.
type Gate interface {
	HasSpeechTick() bool
}

// LevelSource returns the current normalized input level.
type LevelSource func() float64

type event string

const detected event = "silenceDetected"

// Detector samples a level source on a fixed tick and reports silence once
// per quiet interval. After reporting it stays latched until Reset.
type Detector struct {
	source LevelSource
	tick   time.Duration
	now    func() time.Time

	emitter events.Emitter[event, struct{}]

	mu         sync.Mutex
	opts       Options
	gate       Gate
	enabled    bool
	armed      bool
	latched    bool
	quietSince time.Time
	stop       chan struct{}
}

func New(opts Options, source LevelSource) *Detector {
	if opts.Threshold <= 0 {
		opts.Threshold = DefaultThreshold
	}
	if opts.Duration <= 0 {
		opts.Duration = DefaultDuration
	}
	return &Detector{
		source:  source,
		tick:    DefaultTick,
		now:     time.Now,
		opts:    opts,
		enabled: true,
	}
}

// OnSilence subscribes fn to silence reports.
func (d *Detector) OnSilence(fn func()) events.Ref {
	return d.emitter.On(detected, func(struct{}) { fn() })
}

func (d *Detector) Off(ref events.Ref) bool { return d.emitter.Off(ref) }

func (d *Detector) SetGate(g Gate) {
	d.mu.Lock()
	d.gate = g
	d.mu.Unlock()
}

func (d *Detector) Options() Options {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.opts
}

// UpdateOptions swaps thresholds mid-run. Zero fields keep their value.
func (d *Detector) UpdateOptions(o Options) {
	d.mu.Lock()
	if o.Threshold > 0 {
		d.opts.Threshold = o.Threshold
	}
	if o.Duration > 0 {
		d.opts.Duration = o.Duration
	}
	d.mu.Unlock()
}

// Observe feeds one sample and reports whether it completed a quiet
// interval. Subscribers are notified before it returns.
func (d *Detector) Observe(level float64, now time.Time) bool {
	d.mu.Lock()
	if !d.enabled || d.latched {
		d.mu.Unlock()
		return false
	}
	quiet := level < d.opts.Threshold
	if quiet && d.gate != nil && d.gate.HasSpeechTick() {
		quiet = false
	}
	if !quiet {
		d.quietSince = time.Time{}
		d.mu.Unlock()
		return false
	}
	if d.quietSince.IsZero() {
		d.quietSince = now
	}
	fire := now.Sub(d.quietSince) >= d.opts.Duration
	if fire {
		d.latched = true
		d.quietSince = time.Time{}
	}
	d.mu.Unlock()

	if fire {
		d.emitter.Emit(detected, struct{}{})
	}
	return fire
}

// Reset clears the quiet timer and the latch.
func (d *Detector) Reset() {
	d.mu.Lock()
	d.latched = false
	d.quietSince = time.Time{}
	d.mu.Unlock()
}

// Start begins sampling on the tick. It is a no-op while running or
// disabled.
func (d *Detector) Start() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.armed = true
	d.startLocked()
}

func (d *Detector) startLocked() {
	if !d.armed || !d.enabled || d.stop != nil || d.source == nil {
		return
	}
	stop := make(chan struct{})
	d.stop = stop
	go d.loop(stop)
}

func (d *Detector) loop(stop chan struct{}) {
	t := time.NewTicker(d.tick)
	defer t.Stop()
	for {
		select {
		case <-stop:
			return
		case <-t.C:
			select {
			case <-stop:
				return
			default:
			}
			d.Observe(d.source(), d.now())
		}
	}
}

// Stop halts sampling and clears the timer. It does not wait for the
// loop, so it may be called from a silence subscriber.
func (d *Detector) Stop() {
	d.mu.Lock()
	d.armed = false
	d.mu.Unlock()
	d.halt()
}

func (d *Detector) halt() {
	d.mu.Lock()
	stop := d.stop
	d.stop = nil
	d.quietSince = time.Time{}
	d.mu.Unlock()
	if stop != nil {
		close(stop)
	}
}

// SetEnabled pauses or resumes detection. Disabling halts the loop and
// clears the timer; enabling resumes it if Start was called.
func (d *Detector) SetEnabled(on bool) {
	d.mu.Lock()
	d.enabled = on
	if on {
		d.startLocked()
		d.mu.Unlock()
		return
	}
	d.mu.Unlock()
	d.halt()
}

func (d *Detector) Enabled() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.enabled
}

// Running reports whether the sampling loop is active.
func (d *Detector) Running() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.stop != nil
}
