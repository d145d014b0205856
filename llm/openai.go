package llm

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"auralite/traced"

	"github.com/rs/zerolog"
)

const openAIBaseURL = "https://api.openai.com/v1"

// OpenAI speaks the OpenAI chat-completions protocol, which most hosted
// providers also accept.
type OpenAI struct {
	apiKey  string
	baseURL string
	model   string
	client  *traced.Client
	log     zerolog.Logger
}

func NewOpenAI(apiKey, baseURL, model string, logger zerolog.Logger) *OpenAI {
	if baseURL == "" {
		baseURL = openAIBaseURL
	}
	return &OpenAI{
		apiKey:  apiKey,
		baseURL: strings.TrimRight(baseURL, "/"),
		model:   model,
		client:  traced.NewClient(),
		log:     logger,
	}
}

func (o *OpenAI) Name() string { return "openai" }

type chatRequest struct {
	Model          string          `json:"model"`
	Messages       []Message       `json:"messages"`
	Stream         bool            `json:"stream,omitempty"`
	Temperature    *float64        `json:"temperature,omitempty"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

type responseFormat struct {
	Type       string      `json:"type"`
	JSONSchema *jsonSchema `json:"json_schema,omitempty"`
}

type jsonSchema struct {
	Name   string          `json:"name"`
	Schema json.RawMessage `json:"schema"`
	Strict bool            `json:"strict"`
}

type chatResponse struct {
	Choices []struct {
		Message Message `json:"message"`
	} `json:"choices"`
}

type chatChunk struct {
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
	} `json:"choices"`
}

func (o *OpenAI) body(req Request, stream bool, schema *Schema) chatRequest {
	model := req.Model
	if model == "" {
		model = o.model
	}
	cr := chatRequest{
		Model:       model,
		Messages:    req.Messages,
		Stream:      stream,
		Temperature: req.Temperature,
	}
	if schema != nil {
		cr.ResponseFormat = &responseFormat{
			Type: "json_schema",
			JSONSchema: &jsonSchema{
				Name:   schema.Name,
				Schema: schema.JSON(),
			},
		}
	}
	return cr
}

func (o *OpenAI) newRequest(ctx context.Context, body chatRequest) (*http.Request, int, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return nil, 0, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.baseURL+"/chat/completions", bytes.NewReader(data))
	if err != nil {
		return nil, 0, err
	}
	req.Header.Set("Authorization", "Bearer "+o.apiKey)
	req.Header.Set("Content-Type", "application/json")
	if body.Stream {
		req.Header.Set("Accept", "text/event-stream")
	}
	return req, len(data), nil
}

func (o *OpenAI) logRequest(m *traced.NetworkMetrics, payload int, stream bool) {
	if m == nil {
		return
	}
	o.log.Debug().
		Str("provider", o.Name()).
		Bool("stream", stream).
		Float64("payload_kb", float64(payload)/1024).
		Bool("conn_reused", m.ConnReused).
		Dur("ttfb", m.TTFB).
		Dur("total", m.Total).
		Msg("chat request")
}

func (o *OpenAI) complete(ctx context.Context, req Request, schema *Schema) (string, error) {
	body := o.body(req, false, schema)
	httpReq, size, err := o.newRequest(ctx, body)
	if err != nil {
		return "", err
	}
	resp, err := o.client.Do(httpReq)
	if err != nil {
		return "", cancelled(ctx, fmt.Errorf("openai request: %w", err))
	}
	o.logRequest(resp.Metrics, size, false)
	if resp.StatusCode != http.StatusOK {
		return "", &APIError{Provider: o.Name(), StatusCode: resp.StatusCode, Body: string(resp.Body)}
	}
	var cr chatResponse
	if err := json.Unmarshal(resp.Body, &cr); err != nil {
		return "", fmt.Errorf("openai response parse error: %w", err)
	}
	if len(cr.Choices) == 0 {
		return "", fmt.Errorf("openai response has no choices")
	}
	return cr.Choices[0].Message.Content, nil
}

func (o *OpenAI) Complete(ctx context.Context, req Request) (string, error) {
	return o.complete(ctx, req, nil)
}

func (o *OpenAI) CompleteStructured(ctx context.Context, req Request, schema *Schema, out any) error {
	text, err := o.complete(ctx, req, schema)
	if err != nil {
		return err
	}
	return schema.Decode([]byte(text), out)
}

func (o *OpenAI) Stream(ctx context.Context, req Request) (Stream, error) {
	return o.stream(ctx, req, nil)
}

func (o *OpenAI) StreamStructured(ctx context.Context, req Request, schema *Schema) (Stream, error) {
	return o.stream(ctx, req, schema)
}

func (o *OpenAI) stream(ctx context.Context, req Request, schema *Schema) (Stream, error) {
	body := o.body(req, true, schema)
	httpReq, size, err := o.newRequest(ctx, body)
	if err != nil {
		return nil, err
	}
	resp, err := o.client.DoStream(httpReq)
	if err != nil {
		return nil, cancelled(ctx, fmt.Errorf("openai request: %w", err))
	}
	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(resp.Body)
		o.logRequest(resp.Close(), size, true)
		return nil, &APIError{Provider: o.Name(), StatusCode: resp.StatusCode, Body: string(data)}
	}
	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	return &sseStream{
		ctx:     ctx,
		resp:    resp,
		scanner: scanner,
		onClose: func(m *traced.NetworkMetrics) { o.logRequest(m, size, true) },
	}, nil
}

// sseStream reads OpenAI server-sent events.
type sseStream struct {
	ctx     context.Context
	resp    *traced.StreamResponse
	scanner *bufio.Scanner
	onClose func(*traced.NetworkMetrics)

	cur    string
	err    error
	done   bool
	closed bool
}

func (s *sseStream) Next() bool {
	if s.done {
		return false
	}
	for s.scanner.Scan() {
		if s.ctx.Err() != nil {
			s.fail(s.ctx.Err())
			return false
		}
		line := s.scanner.Text()
		data, ok := strings.CutPrefix(line, "data:")
		if !ok {
			continue
		}
		data = strings.TrimSpace(data)
		if data == "[DONE]" {
			s.done = true
			return false
		}
		var chunk chatChunk
		if err := json.Unmarshal([]byte(data), &chunk); err != nil {
			s.fail(fmt.Errorf("openai stream parse error: %w", err))
			return false
		}
		if len(chunk.Choices) == 0 || chunk.Choices[0].Delta.Content == "" {
			continue
		}
		s.cur = chunk.Choices[0].Delta.Content
		return true
	}
	if err := s.scanner.Err(); err != nil {
		s.fail(err)
	} else if s.ctx.Err() != nil {
		s.fail(s.ctx.Err())
	}
	s.done = true
	return false
}

func (s *sseStream) fail(err error) {
	s.err = cancelled(s.ctx, err)
	s.done = true
}

func (s *sseStream) Delta() string { return s.cur }

func (s *sseStream) Err() error { return s.err }

func (s *sseStream) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	m := s.resp.Close()
	if s.onClose != nil {
		s.onClose(m)
	}
	return nil
}
