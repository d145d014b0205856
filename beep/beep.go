// Package beep plays short tones that mark the start and end of a recording
// and failed runs.
package beep

import (
	"math"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"
)

// SampleRate of every rendered cue. Cues are mono.
const SampleRate = 44100

type Cue int

const (
	Start Cue = iota
	End
	Error
)

func (c Cue) String() string {
	switch c {
	case Start:
		return "start"
	case End:
		return "end"
	case Error:
		return "error"
	}
	return "unknown"
}

type tone struct {
	freq     float64
	duration float64
	volume   float64
	decay    float64
	repeat   int
	gap      float64
}

// The 200ms tails give the sound server time to fill its buffer.
var tones = map[Cue]tone{
	Start: {freq: 1200, duration: 0.2, volume: 0.5, decay: 60, repeat: 1},
	End:   {freq: 900, duration: 0.2, volume: 0.5, decay: 40, repeat: 1},
	Error: {freq: 350, duration: 0.08, volume: 0.6, decay: 30, repeat: 2, gap: 0.05},
}

// Samples renders c as signed 16-bit PCM. Unknown cues render nothing.
func Samples(c Cue) []int16 {
	t, ok := tones[c]
	if !ok {
		return nil
	}
	one := tick(t)
	gap := make([]int16, int(SampleRate*t.gap))
	out := make([]int16, 0, t.repeat*len(one)+(t.repeat-1)*len(gap))
	for i := 0; i < t.repeat; i++ {
		if i > 0 {
			out = append(out, gap...)
		}
		out = append(out, one...)
	}
	return out
}

func tick(t tone) []int16 {
	n := int(SampleRate * t.duration)
	samples := make([]int16, n)
	for i := range samples {
		at := float64(i) / SampleRate
		envelope := math.Exp(-at * t.decay)
		samples[i] = int16(math.Sin(2*math.Pi*t.freq*at) * 32767 * t.volume * envelope)
	}
	return samples
}

// Output plays samples and blocks until they are done.
type Output interface {
	Play(samples []int16) error
}

// Player plays cues in the background, one at a time.
type Player struct {
	out     Output
	log     zerolog.Logger
	samples map[Cue][]int16
	enabled atomic.Bool

	mu sync.Mutex
	wg sync.WaitGroup
}

func New(out Output, logger zerolog.Logger) *Player {
	p := &Player{out: out, log: logger, samples: make(map[Cue][]int16, len(tones))}
	for c := range tones {
		p.samples[c] = Samples(c)
	}
	p.enabled.Store(true)
	return p
}

// NewSpeaker plays through the default output device.
func NewSpeaker(logger zerolog.Logger) *Player {
	return New(speaker{}, logger)
}

func (p *Player) SetEnabled(on bool) { p.enabled.Store(on) }

// Play queues c. A nil or disabled Player is silent.
func (p *Player) Play(c Cue) {
	if p == nil || !p.enabled.Load() {
		return
	}
	samples := p.samples[c]
	if len(samples) == 0 {
		return
	}
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		p.mu.Lock()
		defer p.mu.Unlock()
		if err := p.out.Play(samples); err != nil {
			p.log.Debug().Err(err).Stringer("cue", c).Msg("playback failed")
		}
	}()
}

// Wait blocks until every queued cue has played.
func (p *Player) Wait() {
	if p != nil {
		p.wg.Wait()
	}
}
