package transcriber

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"auralite/traced"
)

var (
	ErrCancelled = errors.New("transcription cancelled")
	ErrNoAPIKey  = errors.New("missing API key")
)

// Audio is one encoded recording.
type Audio struct {
	Data     []byte
	MimeType string
}

type Segment struct {
	Text         string
	NoSpeechProb float64
	AvgLogProb   float64
	Start        float64
	End          float64
}

type Result struct {
	Text         string
	Metrics      *traced.NetworkMetrics
	RateLimit    string
	NoSpeechProb float64
	AvgLogProb   float64
	Duration     float64
	Segments     []Segment
}

type Transcriber interface {
	Name() string
	SetLanguage(lang string)
	Language() string
	Transcribe(ctx context.Context, audio Audio) (*Result, error)
}

// Config selects and configures a provider.
type Config struct {
	Provider string // "openai" or "groq"
	APIKey   string
	Model    string
	BaseURL  string
	Language string
}

func New(cfg Config) (Transcriber, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%s transcription: %w", cfg.Provider, ErrNoAPIKey)
	}
	var w *Whisper
	switch cfg.Provider {
	case "", "openai":
		w = NewOpenAI(cfg.APIKey)
	case "groq":
		w = NewGroq(cfg.APIKey)
	default:
		return nil, fmt.Errorf("unknown transcription provider %q", cfg.Provider)
	}
	if cfg.Model != "" {
		w.model = cfg.Model
	}
	if cfg.BaseURL != "" {
		w.apiURL = strings.TrimRight(cfg.BaseURL, "/") + "/audio/transcriptions"
	}
	w.SetLanguage(cfg.Language)
	return w, nil
}

func rateLimit(h http.Header) string {
	remaining := traced.FirstHeader(h, "x-ratelimit-remaining-requests")
	limit := traced.FirstHeader(h, "x-ratelimit-limit-requests")
	return remaining + "/" + limit
}

func extension(mimeType string) string {
	switch mimeType {
	case "audio/flac", "audio/x-flac":
		return "flac"
	case "audio/wav", "audio/x-wav", "audio/wave":
		return "wav"
	case "audio/mpeg", "audio/mp3":
		return "mp3"
	case "audio/ogg":
		return "ogg"
	case "audio/webm":
		return "webm"
	default:
		return "flac"
	}
}
