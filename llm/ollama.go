package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/ollama/ollama/api"
	"github.com/rs/zerolog"
)

// Ollama runs against a local or remote Ollama server.
type Ollama struct {
	client *api.Client
	model  string
	log    zerolog.Logger
}

// NewOllama connects to host, or to OLLAMA_HOST when host is empty.
func NewOllama(host, model string, logger zerolog.Logger) (*Ollama, error) {
	var client *api.Client
	if host == "" {
		c, err := api.ClientFromEnvironment()
		if err != nil {
			return nil, fmt.Errorf("ollama: %w", err)
		}
		client = c
	} else {
		u, err := url.Parse(host)
		if err != nil {
			return nil, fmt.Errorf("ollama url: %w", err)
		}
		client = api.NewClient(u, http.DefaultClient)
	}
	return &Ollama{client: client, model: model, log: logger}, nil
}

func (o *Ollama) Name() string { return "ollama" }

func (o *Ollama) chatRequest(req Request, stream bool, schema *Schema) *api.ChatRequest {
	model := req.Model
	if model == "" {
		model = o.model
	}
	msgs := make([]api.Message, len(req.Messages))
	for i, m := range req.Messages {
		msgs[i] = api.Message{Role: m.Role, Content: m.Content}
	}
	cr := &api.ChatRequest{
		Model:    model,
		Messages: msgs,
		Stream:   &stream,
	}
	if schema != nil {
		cr.Format = schema.JSON()
	}
	if req.Temperature != nil {
		cr.Options = map[string]any{"temperature": *req.Temperature}
	}
	return cr
}

func (o *Ollama) complete(ctx context.Context, req Request, schema *Schema) (string, error) {
	var b strings.Builder
	err := o.client.Chat(ctx, o.chatRequest(req, false, schema), func(resp api.ChatResponse) error {
		b.WriteString(resp.Message.Content)
		if resp.Done {
			o.log.Debug().
				Str("provider", o.Name()).
				Str("model", resp.Model).
				Str("done_reason", resp.DoneReason).
				Dur("total", resp.TotalDuration).
				Msg("chat request")
		}
		return nil
	})
	if err != nil {
		return "", o.wrap(ctx, err)
	}
	return b.String(), nil
}

func (o *Ollama) wrap(ctx context.Context, err error) error {
	var se api.StatusError
	if errors.As(err, &se) {
		return &APIError{Provider: o.Name(), StatusCode: se.StatusCode, Body: se.ErrorMessage}
	}
	return cancelled(ctx, fmt.Errorf("ollama chat: %w", err))
}

func (o *Ollama) Complete(ctx context.Context, req Request) (string, error) {
	return o.complete(ctx, req, nil)
}

func (o *Ollama) CompleteStructured(ctx context.Context, req Request, schema *Schema, out any) error {
	text, err := o.complete(ctx, req, schema)
	if err != nil {
		return err
	}
	return schema.Decode([]byte(text), out)
}

func (o *Ollama) Stream(ctx context.Context, req Request) (Stream, error) {
	return o.stream(ctx, req, nil), nil
}

func (o *Ollama) StreamStructured(ctx context.Context, req Request, schema *Schema) (Stream, error) {
	return o.stream(ctx, req, schema), nil
}

func (o *Ollama) stream(ctx context.Context, req Request, schema *Schema) Stream {
	cr := o.chatRequest(req, true, schema)
	return newChanStream(ctx, func(ctx context.Context, emit func(string) error) error {
		err := o.client.Chat(ctx, cr, func(resp api.ChatResponse) error {
			if resp.Message.Content == "" {
				return nil
			}
			return emit(resp.Message.Content)
		})
		if err != nil {
			return o.wrap(ctx, err)
		}
		return nil
	})
}
