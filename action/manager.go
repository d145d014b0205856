package action

import (
	"context"
	"fmt"
	"strings"
	"sync"
)

// Manager is the registry of actions, listed in registration order.
type Manager struct {
	mu      sync.RWMutex
	order   []string
	actions map[string]Action
}

func NewManager() *Manager {
	return &Manager{actions: make(map[string]Action)}
}

// Defaults registers the built-in actions.
func Defaults() *Manager {
	m := NewManager()
	for _, a := range []Action{NewCreateNote(), NewNoop(), NewTranscribe(), NewWrite(), NewEdit()} {
		m.MustRegister(a)
	}
	return m
}

func (m *Manager) Register(a Action) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := a.ID()
	if _, ok := m.actions[id]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateAction, id)
	}
	m.actions[id] = a
	m.order = append(m.order, id)
	return nil
}

func (m *Manager) MustRegister(a Action) {
	if err := m.Register(a); err != nil {
		panic(err)
	}
}

func (m *Manager) Get(id string) (Action, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	a, ok := m.actions[id]
	return a, ok
}

func (m *Manager) IDs() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]string(nil), m.order...)
}

func (m *Manager) All() []Action {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Action, len(m.order))
	for i, id := range m.order {
		out[i] = m.actions[id]
	}
	return out
}

func (m *Manager) Execute(ctx context.Context, id string, c *Context) error {
	a, ok := m.Get(id)
	if !ok {
		return fmt.Errorf("%w: %q", ErrActionNotFound, id)
	}
	return a.Execute(ctx, c)
}

// ExecuteMany runs ids as one composite. Every id is resolved before any
// action starts.
func (m *Manager) ExecuteMany(ctx context.Context, ids []string, c *Context, parallel bool) error {
	children := make([]Action, 0, len(ids))
	for _, id := range ids {
		a, ok := m.Get(id)
		if !ok {
			return fmt.Errorf("%w: %q", ErrActionNotFound, id)
		}
		children = append(children, a)
	}
	name := strings.Join(ids, "+")
	if parallel {
		return NewParallel(name, children...).Execute(ctx, c)
	}
	return NewSequence(name, children...).Execute(ctx, c)
}
