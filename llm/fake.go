package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"
)

// FakeReply is one scripted answer.
type FakeReply struct {
	Text   string   // raw or structured JSON reply
	Chunks []string // streamed deltas; defaults to Text in one chunk
	Err    error
	Delay  time.Duration // per chunk, or before a single-shot reply
}

// FakeClient replays scripted replies in order and records requests.
type FakeClient struct {
	mu       sync.Mutex
	replies  []FakeReply
	requests []Request
	schemas  []*Schema
}

func NewFake(replies ...FakeReply) *FakeClient {
	return &FakeClient{replies: replies}
}

func (f *FakeClient) Name() string { return "fake" }

// Push appends more scripted replies.
func (f *FakeClient) Push(replies ...FakeReply) {
	f.mu.Lock()
	f.replies = append(f.replies, replies...)
	f.mu.Unlock()
}

func (f *FakeClient) Requests() []Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Request(nil), f.requests...)
}

// Schemas returns the schema passed with each request, nil for raw calls.
func (f *FakeClient) Schemas() []*Schema {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*Schema(nil), f.schemas...)
}

func (f *FakeClient) next(req Request, schema *Schema) (FakeReply, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, req)
	f.schemas = append(f.schemas, schema)
	if len(f.replies) == 0 {
		return FakeReply{}, fmt.Errorf("fake llm: no reply scripted for request %d", len(f.requests))
	}
	r := f.replies[0]
	f.replies = f.replies[1:]
	return r, nil
}

func wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	select {
	case <-time.After(d):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (f *FakeClient) Complete(ctx context.Context, req Request) (string, error) {
	r, err := f.next(req, nil)
	if err != nil {
		return "", err
	}
	if err := wait(ctx, r.Delay); err != nil {
		return "", cancelled(ctx, err)
	}
	if r.Err != nil {
		return "", r.Err
	}
	return r.Text, nil
}

func (f *FakeClient) CompleteStructured(ctx context.Context, req Request, schema *Schema, out any) error {
	r, err := f.next(req, schema)
	if err != nil {
		return err
	}
	if err := wait(ctx, r.Delay); err != nil {
		return cancelled(ctx, err)
	}
	if r.Err != nil {
		return r.Err
	}
	if schema == nil {
		return json.Unmarshal([]byte(r.Text), out)
	}
	return schema.Decode([]byte(r.Text), out)
}

func (f *FakeClient) Stream(ctx context.Context, req Request) (Stream, error) {
	return f.stream(ctx, req, nil)
}

func (f *FakeClient) StreamStructured(ctx context.Context, req Request, schema *Schema) (Stream, error) {
	return f.stream(ctx, req, schema)
}

func (f *FakeClient) stream(ctx context.Context, req Request, schema *Schema) (Stream, error) {
	r, err := f.next(req, schema)
	if err != nil {
		return nil, err
	}
	if ctx.Err() != nil {
		return nil, cancelled(ctx, ctx.Err())
	}
	chunks := r.Chunks
	if chunks == nil && r.Text != "" {
		chunks = []string{r.Text}
	}
	return newChanStream(ctx, func(ctx context.Context, emit func(string) error) error {
		for _, c := range chunks {
			if err := wait(ctx, r.Delay); err != nil {
				return err
			}
			if err := emit(c); err != nil {
				return err
			}
		}
		return r.Err
	}), nil
}
