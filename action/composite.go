package action

import (
	"context"
	"sync"
)

// Composite runs child actions in order or all at once against the same
// Context. Parallel children share Results; writes to the same key race and
// the last one wins.
type Composite struct {
	Descriptor
	children []Action
	parallel bool
}

func NewSequence(id string, children ...Action) *Composite {
	return newComposite(id, false, children)
}

func NewParallel(id string, children ...Action) *Composite {
	return newComposite(id, true, children)
}

func newComposite(id string, parallel bool, children []Action) *Composite {
	return &Composite{
		Descriptor: Descriptor{
			id:          id,
			description: "Execute multiple actions in sequence or in parallel.",
		},
		children: children,
		parallel: parallel,
	}
}

func (a *Composite) Parallel() bool { return a.parallel }

func (a *Composite) Children() []Action { return append([]Action(nil), a.children...) }

func (a *Composite) Execute(ctx context.Context, c *Context) error {
	if c.Results == nil {
		c.Results = NewResults()
	}
	if a.parallel {
		return a.runParallel(ctx, c)
	}
	for _, child := range a.children {
		if err := checkCancelled(ctx); err != nil {
			return err
		}
		if err := child.Execute(ctx, c); err != nil {
			return err
		}
	}
	return nil
}

// runParallel starts children until the context is cancelled, waits for
// every started child and returns the first error in child order. A failing
// child does not stop its siblings.
func (a *Composite) runParallel(ctx context.Context, c *Context) error {
	errs := make([]error, len(a.children))
	var wg sync.WaitGroup
	for i, child := range a.children {
		if err := checkCancelled(ctx); err != nil {
			errs[i] = err
			break
		}
		wg.Add(1)
		go func(i int, child Action) {
			defer wg.Done()
			errs[i] = child.Execute(ctx, c)
		}(i, child)
	}
	wg.Wait()
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}
