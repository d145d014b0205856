package action

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

// stepAction records its id when executed and can fail or block.
type stepAction struct {
	Descriptor
	mu    *sync.Mutex
	trail *[]string
	delay time.Duration
	err   error
}

func newStep(id string, mu *sync.Mutex, trail *[]string) *stepAction {
	return &stepAction{Descriptor: Descriptor{id: id, description: id}, mu: mu, trail: trail}
}

func (s *stepAction) Execute(ctx context.Context, c *Context) error {
	if s.delay > 0 {
		time.Sleep(s.delay)
	}
	s.mu.Lock()
	*s.trail = append(*s.trail, s.id)
	s.mu.Unlock()
	c.Results.Set(s.id, true)
	return s.err
}

func newCtx() *Context {
	return &Context{Results: NewResults(), Log: zerolog.Nop()}
}

func TestManagerRegistry(t *testing.T) {
	m := Defaults()
	want := []string{CreateNoteID, NoopID, TranscribeID, WriteID, EditID}
	ids := m.IDs()
	if len(ids) != len(want) {
		t.Fatalf("IDs = %v", ids)
	}
	for i := range want {
		if ids[i] != want[i] {
			t.Errorf("IDs[%d] = %s, want %s", i, ids[i], want[i])
		}
		if m.All()[i].ID() != want[i] {
			t.Errorf("All[%d] = %s", i, m.All()[i].ID())
		}
	}

	if err := m.Register(NewWrite()); !errors.Is(err, ErrDuplicateAction) {
		t.Errorf("duplicate register err = %v", err)
	}
	if len(m.IDs()) != len(want) {
		t.Error("duplicate changed the registry")
	}
	if _, ok := m.Get("missing"); ok {
		t.Error("Get found a missing action")
	}
	if err := m.Execute(context.Background(), "missing", newCtx()); !errors.Is(err, ErrActionNotFound) {
		t.Errorf("Execute missing err = %v", err)
	}
}

func TestExecuteManySequence(t *testing.T) {
	var mu sync.Mutex
	var trail []string
	m := NewManager()
	a := newStep("a", &mu, &trail)
	a.delay = 20 * time.Millisecond
	m.MustRegister(a)
	m.MustRegister(newStep("b", &mu, &trail))
	m.MustRegister(newStep("c", &mu, &trail))

	c := newCtx()
	if err := m.ExecuteMany(context.Background(), []string{"a", "b", "c"}, c, false); err != nil {
		t.Fatal(err)
	}
	if len(trail) != 3 || trail[0] != "a" || trail[1] != "b" || trail[2] != "c" {
		t.Errorf("trail = %v", trail)
	}
	if c.Results.Len() != 3 {
		t.Errorf("results = %d", c.Results.Len())
	}
}

func TestExecuteManyResolvesFirst(t *testing.T) {
	var mu sync.Mutex
	var trail []string
	m := NewManager()
	m.MustRegister(newStep("a", &mu, &trail))

	err := m.ExecuteMany(context.Background(), []string{"a", "ghost"}, newCtx(), false)
	if !errors.Is(err, ErrActionNotFound) {
		t.Fatalf("err = %v", err)
	}
	if len(trail) != 0 {
		t.Errorf("ran %v before failing lookup", trail)
	}
}

func TestSequenceStopsOnError(t *testing.T) {
	var mu sync.Mutex
	var trail []string
	boom := errors.New("boom")
	a := newStep("a", &mu, &trail)
	a.err = boom

	err := NewSequence("seq", a, newStep("b", &mu, &trail)).Execute(context.Background(), newCtx())
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v", err)
	}
	if len(trail) != 1 {
		t.Errorf("trail = %v, want only a", trail)
	}
}

func TestParallelWaitsForSiblings(t *testing.T) {
	var mu sync.Mutex
	var trail []string
	boomA := errors.New("a failed")
	boomC := errors.New("c failed")
	a := newStep("a", &mu, &trail)
	a.err = boomA
	a.delay = 10 * time.Millisecond
	b := newStep("b", &mu, &trail)
	b.delay = 40 * time.Millisecond
	c := newStep("c", &mu, &trail)
	c.err = boomC

	p := NewParallel("par", a, b, c)
	if !p.Parallel() || len(p.Children()) != 3 {
		t.Fatal("bad composite")
	}
	err := p.Execute(context.Background(), newCtx())
	if !errors.Is(err, boomA) {
		t.Fatalf("err = %v, want first child's error", err)
	}
	if len(trail) != 3 {
		t.Errorf("trail = %v, every started sibling should finish", trail)
	}
}

func TestCompositeCancelled(t *testing.T) {
	var mu sync.Mutex
	var trail []string
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	for _, comp := range []*Composite{
		NewSequence("seq", newStep("a", &mu, &trail)),
		NewParallel("par", newStep("a", &mu, &trail)),
	} {
		err := comp.Execute(ctx, newCtx())
		if !errors.Is(err, ErrCancelled) {
			t.Errorf("%s: err = %v, want ErrCancelled", comp.ID(), err)
		}
	}
	if len(trail) != 0 {
		t.Errorf("children ran after cancel: %v", trail)
	}
}
