package events

import "sync"

// Subscriptions tracks refs grouped by producer so an owner can release all
// of them at once.
type Subscriptions struct {
	mu    sync.Mutex
	order []Unsubscriber
	refs  map[Unsubscriber][]Ref
}

// Add records ref as belonging to producer.
func (s *Subscriptions) Add(producer Unsubscriber, ref Ref) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.refs == nil {
		s.refs = make(map[Unsubscriber][]Ref)
	}
	if _, ok := s.refs[producer]; !ok {
		s.order = append(s.order, producer)
	}
	s.refs[producer] = append(s.refs[producer], ref)
}

// Len returns the number of tracked refs.
func (s *Subscriptions) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, refs := range s.refs {
		n += len(refs)
	}
	return n
}

// ReleaseAll unsubscribes every tracked ref and forgets them. It returns the
// number of refs that were still live on their producer.
func (s *Subscriptions) ReleaseAll() int {
	s.mu.Lock()
	order := s.order
	refs := s.refs
	s.order = nil
	s.refs = nil
	s.mu.Unlock()

	released := 0
	for _, producer := range order {
		for _, ref := range refs[producer] {
			if producer.Off(ref) {
				released++
			}
		}
	}
	return released
}
