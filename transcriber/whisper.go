package transcriber

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"

	"auralite/traced"
)

// dialect is what differs between OpenAI-compatible transcription hosts.
type dialect struct {
	name   string
	url    string
	model  string
	format string // response_format form field
}

var (
	openAIDialect = dialect{
		name:   "openai",
		url:    "https://api.openai.com/v1/audio/transcriptions",
		model:  "whisper-1",
		format: "json",
	}
	groqDialect = dialect{
		name:   "groq",
		url:    "https://api.groq.com/openai/v1/audio/transcriptions",
		model:  "whisper-large-v3-turbo",
		format: "verbose_json",
	}
)

// Whisper posts audio to an OpenAI-compatible /audio/transcriptions
// endpoint over a traced client.
type Whisper struct {
	name   string
	format string
	apiKey string
	client *traced.Client
	apiURL string
	model  string
	lang   string
}

func newWhisper(d dialect, apiKey string) *Whisper {
	return &Whisper{
		name:   d.name,
		format: d.format,
		apiKey: apiKey,
		client: traced.NewClient(),
		apiURL: d.url,
		model:  d.model,
	}
}

func NewOpenAI(apiKey string) *Whisper { return newWhisper(openAIDialect, apiKey) }

// NewGroq asks for verbose_json so segment confidences come back too.
func NewGroq(apiKey string) *Whisper { return newWhisper(groqDialect, apiKey) }

func (w *Whisper) Name() string { return w.name }

func (w *Whisper) SetLanguage(lang string) { w.lang = lang }

func (w *Whisper) Language() string { return w.lang }

// Warm pre-opens the API connection in the background.
func (w *Whisper) Warm(ctx context.Context) {
	go w.client.Warm(ctx, w.apiURL)
}

type whisperResponse struct {
	Text     string  `json:"text"`
	Duration float64 `json:"duration"`
	Segments []struct {
		Text         string  `json:"text"`
		Start        float64 `json:"start"`
		End          float64 `json:"end"`
		NoSpeechProb float64 `json:"no_speech_prob"`
		AvgLogProb   float64 `json:"avg_logprob"`
	} `json:"segments"`
}

func (w *Whisper) Transcribe(ctx context.Context, audio Audio) (*Result, error) {
	resp, err := w.post(ctx, audio)
	if err != nil {
		return nil, err
	}
	var body whisperResponse
	if err := json.Unmarshal(resp.Body, &body); err != nil {
		return nil, fmt.Errorf("%s response parse error: %w", w.name, err)
	}

	res := &Result{
		Text:      body.Text,
		Metrics:   resp.Metrics,
		RateLimit: rateLimit(resp.Header),
		Duration:  body.Duration,
	}
	var logProbs float64
	for _, s := range body.Segments {
		res.NoSpeechProb = max(res.NoSpeechProb, s.NoSpeechProb)
		logProbs += s.AvgLogProb
		res.Segments = append(res.Segments, Segment{
			Text:         s.Text,
			NoSpeechProb: s.NoSpeechProb,
			AvgLogProb:   s.AvgLogProb,
			Start:        s.Start,
			End:          s.End,
		})
	}
	if n := len(body.Segments); n > 0 {
		res.AvgLogProb = logProbs / float64(n)
	}
	return res, nil
}

// post sends the audio as a multipart form and returns the raw response.
func (w *Whisper) post(ctx context.Context, audio Audio) (*traced.Response, error) {
	var buf bytes.Buffer
	form := multipart.NewWriter(&buf)
	file, err := form.CreateFormFile("file", "audio."+extension(audio.MimeType))
	if err != nil {
		return nil, err
	}
	if _, err := file.Write(audio.Data); err != nil {
		return nil, err
	}
	fields := [][2]string{{"model", w.model}, {"response_format", w.format}, {"language", w.lang}}
	for _, f := range fields {
		if f[1] == "" {
			continue
		}
		if err := form.WriteField(f[0], f[1]); err != nil {
			return nil, err
		}
	}
	if err := form.Close(); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.apiURL, &buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+w.apiKey)
	req.Header.Set("Content-Type", form.FormDataContentType())

	resp, err := w.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("%w: %w", ErrCancelled, ctx.Err())
		}
		return nil, fmt.Errorf("%s request: %w", w.name, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%s API error %d: %s", w.name, resp.StatusCode, string(resp.Body))
	}
	return resp, nil
}
