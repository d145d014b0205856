package llm

import (
	"context"
	"sync"
)

// chanStream adapts a producer goroutine to Stream.
type chanStream struct {
	ctx    context.Context
	cancel context.CancelFunc
	deltas chan string
	done   chan struct{}

	cur        string
	ctxStopped bool

	mu  sync.Mutex
	err error
}

// newChanStream runs produce on its own goroutine. produce sends deltas
// with emit and returns when the reply is complete.
func newChanStream(ctx context.Context, produce func(ctx context.Context, emit func(string) error) error) *chanStream {
	ctx, cancel := context.WithCancel(ctx)
	s := &chanStream{
		ctx:    ctx,
		cancel: cancel,
		deltas: make(chan string),
		done:   make(chan struct{}),
	}
	go func() {
		defer close(s.done)
		defer close(s.deltas)
		err := produce(ctx, func(delta string) error {
			select {
			case s.deltas <- delta:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		})
		if err != nil {
			s.mu.Lock()
			s.err = cancelled(ctx, err)
			s.mu.Unlock()
		}
	}()
	return s
}

func (s *chanStream) Next() bool {
	select {
	case d, ok := <-s.deltas:
		if !ok {
			return false
		}
		s.cur = d
		return true
	case <-s.ctx.Done():
		s.ctxStopped = true
		return false
	}
}

func (s *chanStream) Delta() string { return s.cur }

func (s *chanStream) Err() error {
	if s.ctxStopped {
		return cancelled(s.ctx, s.ctx.Err())
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

func (s *chanStream) Close() error {
	s.cancel()
	<-s.done
	return nil
}
