package silence

import (
	"sync/atomic"
	"testing"
	"time"
)

type fixedGate bool

func (g fixedGate) HasSpeechTick() bool { return bool(g) }

func quietFor(d *Detector, start time.Time, span time.Duration) int {
	fired := 0
	for at := time.Duration(0); at <= span; at += DefaultTick {
		if d.Observe(0, start.Add(at)) {
			fired++
		}
	}
	return fired
}

func TestObserveFiresOncePerQuietInterval(t *testing.T) {
	d := New(Options{Threshold: 0.1, Duration: time.Second}, nil)
	calls := 0
	d.OnSilence(func() { calls++ })

	start := time.Unix(0, 0)
	if n := quietFor(d, start, 3*time.Second); n != 1 {
		t.Errorf("fired %d times, want 1", n)
	}
	if calls != 1 {
		t.Errorf("subscriber called %d times, want 1", calls)
	}
}

func TestObserveLoudResetsTimer(t *testing.T) {
	d := New(Options{Threshold: 0.1, Duration: time.Second}, nil)
	start := time.Unix(0, 0)

	d.Observe(0, start)
	d.Observe(0, start.Add(900*time.Millisecond))
	d.Observe(0.5, start.Add(950*time.Millisecond))
	if d.Observe(0, start.Add(1100*time.Millisecond)) {
		t.Fatal("fired despite loud sample inside the interval")
	}
	if !d.Observe(0, start.Add(2100*time.Millisecond)) {
		t.Fatal("expected fire one interval after the loud sample")
	}
}

func TestResetClearsLatch(t *testing.T) {
	d := New(Options{Threshold: 0.1, Duration: time.Second}, nil)
	start := time.Unix(0, 0)
	quietFor(d, start, 2*time.Second)

	if d.Observe(0, start.Add(10*time.Second)) {
		t.Fatal("latched detector fired again")
	}
	d.Reset()
	base := start.Add(20 * time.Second)
	d.Observe(0, base)
	if !d.Observe(0, base.Add(time.Second)) {
		t.Fatal("expected fire after Reset")
	}
}

func TestUpdateOptions(t *testing.T) {
	d := New(Options{}, nil)
	if o := d.Options(); o.Threshold != DefaultThreshold || o.Duration != DefaultDuration {
		t.Fatalf("defaults = %+v", o)
	}
	d.UpdateOptions(Options{Duration: 500 * time.Millisecond})
	o := d.Options()
	if o.Duration != 500*time.Millisecond || o.Threshold != DefaultThreshold {
		t.Errorf("after update = %+v", o)
	}

	start := time.Unix(0, 0)
	d.Observe(0, start)
	if !d.Observe(0, start.Add(500*time.Millisecond)) {
		t.Error("new duration not applied")
	}
}

func TestDisabledDetectorIgnoresSamples(t *testing.T) {
	d := New(Options{Threshold: 0.1, Duration: time.Second}, nil)
	start := time.Unix(0, 0)
	d.Observe(0, start)

	d.SetEnabled(false)
	if d.Enabled() {
		t.Fatal("expected disabled")
	}
	if d.Observe(0, start.Add(2*time.Second)) {
		t.Fatal("disabled detector fired")
	}

	d.SetEnabled(true)
	// timer was cleared, so a fresh interval is needed
	if d.Observe(0, start.Add(3*time.Second)) {
		t.Fatal("fired without a full interval after re-enable")
	}
	if !d.Observe(0, start.Add(4*time.Second)) {
		t.Fatal("expected fire after a full interval")
	}
}

func TestGateVetoesQuietTick(t *testing.T) {
	d := New(Options{Threshold: 0.1, Duration: time.Second}, nil)
	d.SetGate(fixedGate(true))
	start := time.Unix(0, 0)
	if n := quietFor(d, start, 3*time.Second); n != 0 {
		t.Errorf("fired %d times with speech gate, want 0", n)
	}
	d.SetGate(fixedGate(false))
	if n := quietFor(d, start.Add(time.Minute), 2*time.Second); n != 1 {
		t.Errorf("fired %d times, want 1", n)
	}
}

func TestStartLoopReportsSilence(t *testing.T) {
	d := New(Options{Threshold: 0.1, Duration: 100 * time.Millisecond}, func() float64 { return 0 })
	d.tick = 5 * time.Millisecond

	fired := make(chan struct{}, 1)
	var calls atomic.Int32
	d.OnSilence(func() {
		calls.Add(1)
		d.Stop() // must not deadlock
		fired <- struct{}{}
	})
	d.Start()
	if !d.Running() {
		t.Fatal("expected running after Start")
	}

	select {
	case <-fired:
	case <-time.After(2 * time.Second):
		t.Fatal("silence not reported")
	}
	if d.Running() {
		t.Error("still running after Stop")
	}
	time.Sleep(30 * time.Millisecond)
	if n := calls.Load(); n != 1 {
		t.Errorf("calls = %d, want 1", n)
	}
}

func TestStartWhileDisabled(t *testing.T) {
	d := New(Options{}, func() float64 { return 0 })
	d.SetEnabled(false)
	d.Start()
	if d.Running() {
		t.Fatal("disabled detector started")
	}
	d.SetEnabled(true)
	if !d.Running() {
		t.Fatal("re-enable after Start should resume")
	}
	d.Stop()
	if d.Running() {
		t.Fatal("expected stopped")
	}
}
