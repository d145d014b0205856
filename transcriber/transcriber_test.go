package transcriber

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"auralite/traced"
)

type captured struct {
	auth     string
	model    string
	format   string
	language string
	filename string
	file     []byte
}

func newServer(t *testing.T, status int, body string) (*httptest.Server, *captured) {
	t.Helper()
	got := &captured{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got.auth = r.Header.Get("Authorization")
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("ParseMultipartForm: %v", err)
		}
		got.model = r.FormValue("model")
		got.format = r.FormValue("response_format")
		got.language = r.FormValue("language")
		f, hdr, err := r.FormFile("file")
		if err == nil {
			got.filename = hdr.Filename
			got.file, _ = io.ReadAll(f)
		}
		w.Header().Set("x-ratelimit-remaining-requests", "9")
		w.Header().Set("x-ratelimit-limit-requests", "10")
		w.WriteHeader(status)
		io.WriteString(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv, got
}

func TestOpenAITranscribe(t *testing.T) {
	srv, got := newServer(t, 200, `{"text":"hello world"}`)

	o := NewOpenAI("sk-test")
	o.apiURL = srv.URL
	o.client = traced.NewClientWith(srv.Client())
	o.SetLanguage("en")

	res, err := o.Transcribe(context.Background(), Audio{Data: []byte("fLaC..."), MimeType: "audio/flac"})
	if err != nil {
		t.Fatal(err)
	}
	if res.Text != "hello world" {
		t.Errorf("Text = %q", res.Text)
	}
	if res.RateLimit != "9/10" {
		t.Errorf("RateLimit = %q", res.RateLimit)
	}
	if got.auth != "Bearer sk-test" {
		t.Errorf("auth = %q", got.auth)
	}
	if got.model != "whisper-1" || got.format != "json" || got.language != "en" {
		t.Errorf("form = %+v", got)
	}
	if got.filename != "audio.flac" || string(got.file) != "fLaC..." {
		t.Errorf("file = %q %q", got.filename, got.file)
	}
}

func TestGroqTranscribeSegments(t *testing.T) {
	srv, got := newServer(t, 200, `{"text":" hi ","duration":1.5,"segments":[
		{"text":"hi","no_speech_prob":0.1,"avg_logprob":-0.2},
		{"text":"there","no_speech_prob":0.4,"avg_logprob":-0.4}]}`)

	g := NewGroq("gsk")
	g.apiURL = srv.URL
	g.client = traced.NewClientWith(srv.Client())

	res, err := g.Transcribe(context.Background(), Audio{Data: []byte("x"), MimeType: "audio/wav"})
	if err != nil {
		t.Fatal(err)
	}
	if got.model != "whisper-large-v3-turbo" || got.format != "verbose_json" || got.filename != "audio.wav" {
		t.Errorf("form = %+v", got)
	}
	if len(res.Segments) != 2 || res.NoSpeechProb != 0.4 {
		t.Errorf("segments = %+v, no_speech = %v", res.Segments, res.NoSpeechProb)
	}
	if res.AvgLogProb < -0.31 || res.AvgLogProb > -0.29 {
		t.Errorf("AvgLogProb = %v, want -0.3", res.AvgLogProb)
	}
}

func TestAPIError(t *testing.T) {
	srv, _ := newServer(t, 401, `{"error":"bad key"}`)
	o := NewOpenAI("bad")
	o.apiURL = srv.URL
	o.client = traced.NewClientWith(srv.Client())

	_, err := o.Transcribe(context.Background(), Audio{Data: []byte("x")})
	if err == nil || !strings.Contains(err.Error(), "401") {
		t.Errorf("err = %v, want 401", err)
	}
	if errors.Is(err, ErrCancelled) {
		t.Error("API error reported as cancellation")
	}
}

func TestTranscribeCancelled(t *testing.T) {
	block := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-block:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(block)

	o := NewOpenAI("k")
	o.apiURL = srv.URL
	o.client = traced.NewClientWith(srv.Client())

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(20*time.Millisecond, cancel)

	_, err := o.Transcribe(ctx, Audio{Data: []byte("x")})
	if !errors.Is(err, ErrCancelled) || !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want ErrCancelled wrapping context.Canceled", err)
	}
}

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		want    string
		wantErr bool
	}{
		{"default openai", Config{APIKey: "k"}, "openai", false},
		{"groq", Config{Provider: "groq", APIKey: "k"}, "groq", false},
		{"no key", Config{Provider: "openai"}, "", true},
		{"unknown", Config{Provider: "deepgram", APIKey: "k"}, "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr, err := New(tt.cfg)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if err == nil && tr.Name() != tt.want {
				t.Errorf("Name = %q, want %q", tr.Name(), tt.want)
			}
		})
	}
}

func TestNewOverrides(t *testing.T) {
	tr, err := New(Config{APIKey: "k", Model: "gpt-4o-transcribe", BaseURL: "http://local/v1/", Language: "de"})
	if err != nil {
		t.Fatal(err)
	}
	o := tr.(*Whisper)
	if o.model != "gpt-4o-transcribe" || o.apiURL != "http://local/v1/audio/transcriptions" || o.Language() != "de" {
		t.Errorf("overrides not applied: %q %q %q", o.model, o.apiURL, o.Language())
	}
}

func TestFake(t *testing.T) {
	f := NewFake("text", nil)
	res, err := f.Transcribe(context.Background(), Audio{Data: []byte{1}})
	if err != nil || res.Text != "text" {
		t.Fatalf("got %v %v", res, err)
	}
	if len(f.Calls()) != 1 {
		t.Errorf("Calls = %d", len(f.Calls()))
	}

	boom := errors.New("boom")
	if _, err := NewFake("", boom).Transcribe(context.Background(), Audio{}); !errors.Is(err, boom) {
		t.Errorf("err = %v, want boom", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := NewFake("x", nil).WithDelay(time.Second).Transcribe(ctx, Audio{}); !errors.Is(err, ErrCancelled) {
		t.Errorf("err = %v, want ErrCancelled", err)
	}
}

func TestOpenAIReadsSegmentsWhenPresent(t *testing.T) {
	srv, _ := newServer(t, 200, `{"text":"ok","segments":[{"text":"ok","no_speech_prob":0.2,"avg_logprob":-0.5}]}`)
	w := NewOpenAI("k")
	w.apiURL = srv.URL
	w.client = traced.NewClientWith(srv.Client())

	res, err := w.Transcribe(context.Background(), Audio{Data: []byte("x")})
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Segments) != 1 || res.NoSpeechProb != 0.2 || res.AvgLogProb != -0.5 {
		t.Errorf("result = %+v", res)
	}
}

func TestLanguageOmittedWhenUnset(t *testing.T) {
	srv, got := newServer(t, 200, `{"text":"x"}`)
	w := NewGroq("k")
	w.apiURL = srv.URL
	w.client = traced.NewClientWith(srv.Client())

	if _, err := w.Transcribe(context.Background(), Audio{Data: []byte("x")}); err != nil {
		t.Fatal(err)
	}
	if got.language != "" {
		t.Errorf("language = %q, want unset", got.language)
	}
}
