package main

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"auralite/action"
	"auralite/assistant"
	"auralite/audio"
	"auralite/clipboard"
	"auralite/config"
	"auralite/llm"
	"auralite/log"
	"auralite/task"
	"auralite/transcriber"
	"auralite/workspace"
)

// app is one session against a vault.
type app struct {
	settings config.Settings
	ws       *workspace.Workspace
	llm      llm.Client
	log      zerolog.Logger
}

func newApp(s config.Settings) (*app, error) {
	v, err := workspace.OpenVault(opts.vault)
	if err != nil {
		return nil, err
	}
	ws := workspace.New(v, log.Component("workspace"))
	if opts.note != "" {
		var cursor *workspace.Position
		if opts.line >= 0 {
			cursor = &workspace.Position{Line: opts.line, Ch: opts.ch}
		}
		if err := ws.SetActive(opts.note, cursor, ""); err != nil {
			return nil, fmt.Errorf("open note: %w", err)
		}
	}

	client, err := newLLM(s)
	if err != nil {
		return nil, err
	}
	return &app{settings: s, ws: ws, llm: client, log: log.Component("main")}, nil
}

func newLLM(s config.Settings) (llm.Client, error) {
	logger := log.Component("llm")
	switch s.Provider {
	case "", "openai":
		key := s.ResolvedAPIKey()
		if key == "" {
			return nil, errors.New("no API key: run `auralite config set api_key <key>` or set OPENAI_API_KEY")
		}
		return llm.NewOpenAI(key, "", s.Model, logger), nil
	case "ollama":
		return llm.NewOllama(s.OllamaURL, s.Model, logger)
	}
	return nil, fmt.Errorf("unknown provider %q (use openai or ollama)", s.Provider)
}

func newTranscriber(s config.Settings) (transcriber.Transcriber, error) {
	return transcriber.New(transcriber.Config{
		Provider: s.TranscriptionProvider,
		APIKey:   s.TranscriptionAPIKey(),
		Language: s.Language,
	})
}

func (a *app) assistant(stt transcriber.Transcriber) *assistant.Manager {
	b := &assistant.ContextBuilder{
		Workspace: a.ws,
		LLM:       a.llm,
		Model:     a.settings.Model,
		Settings: action.Settings{
			TemplatePath:     a.settings.TemplatePath,
			OpenCreatedNotes: a.settings.OpenCreatedNotes,
		},
		Open: workspace.BrowserOpener,
		Log:  log.Component("action"),
	}
	return assistant.New(stt, action.Defaults(), b, log.Component("assistant"))
}

func (a *app) taskDeps(rec *audio.Recorder, ai *assistant.Manager, sink task.StatusSink) task.Deps {
	s := a.settings
	return task.Deps{
		Recorder:  rec,
		Assistant: ai,
		Status:    sink,
		Copy:      clipboard.Copy,
		Silence: task.SilenceOptions{
			Enabled:   s.SilenceDetectionEnabled,
			Threshold: s.SilenceThreshold,
			Duration:  s.SilenceDuration(),
			VAD:       s.SilenceVAD,
		},
		Linger: s.Linger(),
		Log:    log.Component("task"),
	}
}

func modeLine(kind task.Kind, a *app, stt transcriber.Transcriber) string {
	label := stt.Name()
	if lang := stt.Language(); lang != "" {
		label += " (" + lang + ")"
	}
	return fmt.Sprintf("[%s | %s %s | %s]", kind, a.llm.Name(), a.settings.Model, label)
}

func noteLine(ws *workspace.Workspace) string {
	note, ok := ws.ActiveFile()
	if !ok {
		note = "no active note"
	}
	return ws.Vault().Name() + ": " + note
}
