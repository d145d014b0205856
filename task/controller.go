package task

import (
	"errors"
	"sync"

	"github.com/rs/zerolog"
)

var ErrNoTask = errors.New("no active task")

// Controller owns at most one live task. Starting a task cancels the
// previous one first.
type Controller struct {
	deps Deps
	log  zerolog.Logger

	startMu sync.Mutex

	mu      sync.Mutex
	current Task
	started int
}

func NewController(deps Deps) *Controller {
	return &Controller{deps: deps, log: deps.Log}
}

// Start cancels any live task and starts a new one of kind.
func (c *Controller) Start(kind Kind) (Task, error) {
	c.startMu.Lock()
	defer c.startMu.Unlock()

	if prev := c.Current(); prev != nil && !prev.Status().Terminal() {
		c.log.Info().Str("task", prev.ID()).Msg("cancelling previous task")
		prev.Cancel()
	}

	t, err := New(kind, c.deps)
	if err != nil {
		return nil, err
	}
	t.On(TaskFinished, func(Status) {
		c.mu.Lock()
		if c.current == t {
			c.current = nil
		}
		c.mu.Unlock()
	})

	c.mu.Lock()
	c.current = t
	c.started++
	c.mu.Unlock()

	if err := t.Start(); err != nil {
		return t, err
	}
	return t, nil
}

// Stop ends recording on the current task.
func (c *Controller) Stop() error {
	t := c.Current()
	if t == nil {
		return ErrNoTask
	}
	return t.Stop()
}

// Toggle stops the current task while it records, otherwise starts a new
// one.
func (c *Controller) Toggle(kind Kind) (Task, error) {
	if t := c.Current(); t != nil && t.Status() == Started {
		return t, t.Stop()
	}
	return c.Start(kind)
}

func (c *Controller) CancelCurrent() {
	if t := c.Current(); t != nil {
		t.Cancel()
	}
}

// Current is the live task, or nil.
func (c *Controller) Current() Task {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// Started counts the tasks started so far.
func (c *Controller) Started() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.started
}
