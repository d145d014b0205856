// Package doctor runs health checks against the local setup: settings,
// vault, credentials, audio input, hotkey and clipboard.
package doctor

import (
	"context"
	"fmt"
	"io"
)

type Status int

const (
	Pass Status = iota
	Warn
	Fail
	Skip
)

func (s Status) String() string {
	switch s {
	case Pass:
		return "PASS"
	case Warn:
		return "WARN"
	case Fail:
		return "FAIL"
	}
	return "SKIP"
}

type Result struct {
	Status Status
	Detail string
}

func pass(format string, args ...any) Result {
	return Result{Status: Pass, Detail: fmt.Sprintf(format, args...)}
}

func warn(format string, args ...any) Result {
	return Result{Status: Warn, Detail: fmt.Sprintf(format, args...)}
}

func fail(format string, args ...any) Result {
	return Result{Status: Fail, Detail: fmt.Sprintf(format, args...)}
}

type Check struct {
	Name string
	// Required checks skip every later check when they fail.
	Required bool
	Run      func(ctx context.Context) Result
}

// Run executes checks in order and prints each result to w. It returns
// false if any check failed.
func Run(ctx context.Context, w io.Writer, checks []Check) bool {
	ok := true
	blocked := false
	for i, c := range checks {
		fmt.Fprintf(w, "[%d/%d] %s\n", i+1, len(checks), c.Name)
		var r Result
		switch {
		case blocked:
			r = Result{Status: Skip, Detail: "skipped after an earlier failure"}
		case ctx.Err() != nil:
			r = Result{Status: Skip, Detail: "interrupted"}
		default:
			r = c.Run(ctx)
		}
		fmt.Fprintf(w, "  %s: %s\n", r.Status, r.Detail)
		if r.Status == Fail {
			ok = false
			blocked = blocked || c.Required
		}
	}

	fmt.Fprintln(w)
	if ok {
		fmt.Fprintln(w, "All checks passed!")
	} else {
		fmt.Fprintln(w, "Some checks failed. See details above.")
	}
	return ok
}
