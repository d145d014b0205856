// Package llm talks to hosted chat-completion models.
package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var ErrCancelled = errors.New("model call cancelled")

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type Request struct {
	Model       string
	Messages    []Message
	Temperature *float64
}

// Client is implemented by every provider.
type Client interface {
	Name() string
	Complete(ctx context.Context, req Request) (string, error)
	// CompleteStructured constrains the reply to schema, validates it and
	// decodes it into out.
	CompleteStructured(ctx context.Context, req Request, schema *Schema, out any) error
	Stream(ctx context.Context, req Request) (Stream, error)
	// StreamStructured streams the JSON text of a schema-constrained reply.
	StreamStructured(ctx context.Context, req Request, schema *Schema) (Stream, error)
}

// Stream yields text deltas. Callers must Close it.
type Stream interface {
	Next() bool
	Delta() string
	Err() error
	Close() error
}

// APIError is a non-2xx reply from a provider.
type APIError struct {
	Provider   string
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s API error %d: %s", e.Provider, e.StatusCode, strings.TrimSpace(e.Body))
}

// cancelled wraps ctx's error when the context is done, otherwise returns err.
func cancelled(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return fmt.Errorf("%w: %w", ErrCancelled, ctx.Err())
	}
	return err
}

// Collect drains s and returns the concatenated text.
func Collect(s Stream) (string, error) {
	defer s.Close()
	var b strings.Builder
	for s.Next() {
		b.WriteString(s.Delta())
	}
	return b.String(), s.Err()
}

// System and User build single messages.
func System(content string) Message { return Message{Role: RoleSystem, Content: content} }

func User(content string) Message { return Message{Role: RoleUser, Content: content} }
