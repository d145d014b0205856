package doctor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"auralite/audio"
	"auralite/clipboard"
	"auralite/config"
	"auralite/hotkey"
	"auralite/transcriber"
	"auralite/workspace"
)

func Settings(path string) Check {
	return Check{Name: "Settings", Required: true, Run: func(context.Context) Result {
		if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
			return pass("no file at %s, using defaults", path)
		}
		if _, err := config.Load(path); err != nil {
			return fail("%v", err)
		}
		return pass("loaded %s", path)
	}}
}

func Vault(root string) Check {
	return Check{Name: "Vault", Required: true, Run: func(context.Context) Result {
		v, err := workspace.OpenVault(root)
		if err != nil {
			return fail("%v", err)
		}
		notes, err := v.List()
		if err != nil {
			return fail("listing notes: %v", err)
		}
		if len(notes) == 0 {
			return warn("%s has no notes", v.Root())
		}
		return pass("%d notes in %s", len(notes), v.Name())
	}}
}

// Credentials checks that both the language model and the transcription
// provider can authenticate.
func Credentials(s config.Settings) Check {
	return Check{Name: "Credentials", Run: func(context.Context) Result {
		if s.Provider != "ollama" && s.ResolvedAPIKey() == "" {
			return fail("no API key; run `auralite config set api_key <key>` or set OPENAI_API_KEY")
		}
		if s.TranscriptionAPIKey() == "" {
			return fail("no API key for %s transcription", s.TranscriptionProvider)
		}
		if s.Provider == "ollama" {
			return pass("ollama at %s, key found for %s transcription", s.OllamaURL, s.TranscriptionProvider)
		}
		return pass("keys found for %s and %s transcription", s.Provider, s.TranscriptionProvider)
	}}
}

func Devices(actx audio.Context, name string) Check {
	return Check{Name: "Audio input", Required: true, Run: func(context.Context) Result {
		devices, err := actx.Devices()
		if err != nil {
			return fail("cannot list devices: %v", err)
		}
		if len(devices) == 0 {
			return fail("no capture devices found")
		}
		if name == "" {
			return pass("%d devices, using the system default", len(devices))
		}
		dev, err := audio.FindDevice(actx, name)
		if err != nil {
			return fail("%v", err)
		}
		if audio.IsBluetooth(dev.Name) {
			return warn("%s is a bluetooth headset; expect low quality", dev.Name)
		}
		return pass("using %s", dev.Name)
	}}
}

func Hotkey() Check {
	return Check{Name: "Hotkey", Run: func(context.Context) Result {
		msg, err := hotkey.Diagnose()
		if err != nil {
			return fail("%v", err)
		}
		return pass("%s", msg)
	}}
}

// HotkeyPress waits for the user to press hk.
func HotkeyPress(hk hotkey.Hotkey, b hotkey.Binding, w io.Writer, timeout time.Duration) Check {
	return Check{Name: "Hotkey press", Run: func(ctx context.Context) Result {
		if err := hk.Register(); err != nil {
			return fail("could not register %s: %v", b, err)
		}
		defer hk.Unregister()

		fmt.Fprintf(w, "  Press %s...\n", b)
		select {
		case <-hk.Keydown():
		case <-time.After(timeout):
			return fail("timeout waiting for %s", b)
		case <-ctx.Done():
			return Result{Status: Skip, Detail: "interrupted"}
		}
		select {
		case <-hk.Keyup():
		case <-time.After(5 * time.Second):
		case <-ctx.Done():
		}
		return pass("%s detected", b)
	}}
}

func Clipboard() Check {
	return Check{Name: "Clipboard", Run: func(context.Context) Result {
		if !clipboard.Available() {
			return warn("no xclip, xsel or wl-copy found; dictation without an open note is dropped")
		}
		return pass("available")
	}}
}

// Speech records for d and sends the result to stt.
func Speech(rec *audio.Recorder, stt transcriber.Transcriber, w io.Writer, d time.Duration) Check {
	return Check{Name: "Microphone and transcription", Run: func(ctx context.Context) Result {
		fmt.Fprintf(w, "  Speak for %s...\n", d)
		if err := rec.Start(); err != nil {
			return fail("recording: %v", err)
		}
		select {
		case <-time.After(d):
		case <-ctx.Done():
			rec.Cancel()
			return Result{Status: Skip, Detail: "interrupted"}
		}
		r, err := rec.Stop()
		if err != nil {
			return fail("recording: %v", err)
		}

		res, err := stt.Transcribe(ctx, transcriber.Audio{Data: r.Data, MimeType: r.MimeType})
		if err != nil {
			return fail("%s: %v", stt.Name(), err)
		}
		text := strings.TrimSpace(res.Text)
		if text == "" {
			return warn("recorded %.1fs but no speech was detected", r.Duration.Seconds())
		}
		return pass("recorded %.1fs, heard %q", r.Duration.Seconds(), text)
	}}
}
