// Package action holds the units of work the assistant can dispatch to:
// each pairs a prompt with a side effect on the vault or the active note.
package action

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"auralite/llm"
	"auralite/tmpl"
)

var (
	ErrCancelled        = errors.New("action cancelled")
	ErrActionNotFound   = errors.New("action not found")
	ErrDuplicateAction  = errors.New("action already registered")
	ErrNoActiveEditor   = errors.New("no cursor or active editor found")
	ErrMergeConflict    = errors.New("file has changed since editing started and the changes cannot be merged")
	ErrNoUpdatedContent = errors.New("no updated content found")
)

// Action is one registered unit of work.
type Action interface {
	ID() string
	Description() string
	// Schema is nil for actions that take raw text.
	Schema() *llm.Schema
	SystemPrompt() string
	SupportsStreaming() bool
	UseStructured() bool
	Execute(ctx context.Context, c *Context) error
}

// Performer is an action that runs through Run. PreExecute snapshots what
// the action needs and returns the Invocation that applies the model
// output, so per-run state never lives on the registered action.
type Performer interface {
	Action
	PreExecute(ctx context.Context, c *Context) (Invocation, error)
}

// Invocation applies one model reply.
type Invocation interface {
	Perform(ctx context.Context, c *Context, out Output) error
	PerformStream(ctx context.Context, c *Context, s llm.Stream) error
}

// Output is a single-shot reply. JSON is set for structured calls, Text
// otherwise.
type Output struct {
	Text string
	JSON json.RawMessage
}

// Descriptor carries the immutable metadata shared by the built-in actions.
type Descriptor struct {
	id          string
	description string
	prompt      string
	schema      *llm.Schema
	streaming   bool
	structured  bool
}

func (s Descriptor) ID() string              { return s.id }
func (s Descriptor) Description() string     { return s.description }
func (s Descriptor) Schema() *llm.Schema     { return s.schema }
func (s Descriptor) SystemPrompt() string    { return s.prompt }
func (s Descriptor) SupportsStreaming() bool { return s.streaming }
func (s Descriptor) UseStructured() bool     { return s.structured && s.schema != nil }

// Run is the execute algorithm every Performer shares: snapshot, check for
// cancellation, render the prompt over the results so far, call the model
// the way the action asks for, and hand the reply to the invocation.
func Run(ctx context.Context, p Performer, c *Context) error {
	if c.Results == nil {
		c.Results = NewResults()
	}
	log := c.Log.With().Str("action", p.ID()).Logger()

	inv, err := p.PreExecute(ctx, c)
	if err != nil {
		return err
	}
	if err := checkCancelled(ctx); err != nil {
		return err
	}

	req := llm.Request{Model: c.Model, Messages: Messages(p.SystemPrompt(), c.Results)}
	log.Debug().
		Bool("streaming", p.SupportsStreaming()).
		Bool("structured", p.UseStructured()).
		Int("messages", len(req.Messages)).
		Msg("executing")

	switch {
	case p.SupportsStreaming():
		var s llm.Stream
		if p.UseStructured() {
			s, err = c.LLM.StreamStructured(ctx, req, p.Schema())
		} else {
			s, err = c.LLM.Stream(ctx, req)
		}
		if err != nil {
			return cancelled(ctx, err)
		}
		defer s.Close()
		return cancelled(ctx, inv.PerformStream(ctx, c, s))

	case p.UseStructured():
		var raw json.RawMessage
		if err := c.LLM.CompleteStructured(ctx, req, p.Schema(), &raw); err != nil {
			return cancelled(ctx, err)
		}
		if err := checkCancelled(ctx); err != nil {
			return err
		}
		return inv.Perform(ctx, c, Output{JSON: raw})

	default:
		text, err := c.LLM.Complete(ctx, req)
		if err != nil {
			return cancelled(ctx, err)
		}
		if err := checkCancelled(ctx); err != nil {
			return err
		}
		return inv.Perform(ctx, c, Output{Text: text})
	}
}

// Messages builds the system prompt rendered over results followed by a
// context message carrying the results as JSON.
func Messages(prompt string, results *Results) []llm.Message {
	if results == nil {
		results = NewResults()
	}
	data, err := json.Marshal(results)
	if err != nil {
		data = []byte("{}")
	}
	return []llm.Message{
		llm.System(tmpl.Render(prompt, results)),
		llm.System("## Context:\n" + string(data)),
	}
}

func checkCancelled(ctx context.Context) error {
	if ctx.Err() != nil {
		return fmt.Errorf("%w: %w", ErrCancelled, ctx.Err())
	}
	return nil
}

// cancelled reports err as a cancellation when ctx is done, keeping the
// original error in the chain.
func cancelled(ctx context.Context, err error) error {
	if err == nil || ctx.Err() == nil || errors.Is(err, ErrCancelled) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrCancelled, err)
}

// IsCancelled reports whether err came from a cancelled run at any layer.
func IsCancelled(err error) bool {
	return errors.Is(err, ErrCancelled) ||
		errors.Is(err, llm.ErrCancelled) ||
		errors.Is(err, context.Canceled)
}
