package hotkey

import (
	"context"
	"sync/atomic"
	"time"
)

type Mode string

const (
	ModePTT    Mode = "ptt"
	ModeToggle Mode = "toggle"
)

// StartEvent indicates a new recording should start with the given mode.
type StartEvent struct {
	Mode Mode
}

// Hybrid turns one key combination into tap-to-toggle and hold-to-talk.
// A press starts recording at once; releasing before longPress keeps it
// running until the next press, holding longer stops it on release.
type Hybrid struct {
	startCh chan StartEvent
	stopCh  chan struct{}
	toggle  atomic.Bool
}

// NewHybrid runs the state machine until ctx ends.
func NewHybrid(ctx context.Context, hk Hotkey, longPress time.Duration) *Hybrid {
	h := &Hybrid{
		startCh: make(chan StartEvent, 1),
		stopCh:  make(chan struct{}, 1),
	}
	go h.run(ctx, hk, longPress)
	return h
}

func (h *Hybrid) Start() <-chan StartEvent { return h.startCh }

// StopChan is signaled when recording should end, in either mode.
func (h *Hybrid) StopChan() <-chan struct{} { return h.stopCh }

// IsToggle reports whether the current recording was started by a tap.
func (h *Hybrid) IsToggle() bool { return h.toggle.Load() }

func (h *Hybrid) signalStop() {
	select {
	case h.stopCh <- struct{}{}:
	default:
	}
}

func (h *Hybrid) run(ctx context.Context, hk Hotkey, longPress time.Duration) {
	wait := func(ch <-chan struct{}) bool {
		select {
		case <-ch:
			return true
		case <-ctx.Done():
			return false
		}
	}

	for {
		if !wait(hk.Keydown()) {
			return
		}
		h.toggle.Store(false)
		select {
		case h.startCh <- StartEvent{Mode: ModeToggle}:
		case <-ctx.Done():
			return
		}

		timer := time.NewTimer(longPress)
		select {
		case <-timer.C:
			if !wait(hk.Keyup()) {
				return
			}
			h.signalStop()
			continue
		case <-hk.Keyup():
			timer.Stop()
			h.toggle.Store(true)
		case <-ctx.Done():
			timer.Stop()
			return
		}

		// Toggled on: the next press stops on its release.
		if !wait(hk.Keydown()) || !wait(hk.Keyup()) {
			return
		}
		h.toggle.Store(false)
		h.signalStop()
	}
}
