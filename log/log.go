// Package log owns the two on-disk logs: diagnostics_log.txt, a zerolog
// console-format stream of component events and request timings, and
// transcribe_log.txt, one tab-separated line per transcription.
//
// Everything is a no-op until Init succeeds, so packages can grab a logger
// at construction time without caring whether logging is configured.
package log

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

const (
	envLogPath     = "AURALITE_LOG_PATH"
	diagName       = "diagnostics_log.txt"
	transcribeName = "transcribe_log.txt"
	stampFormat    = "2006-01-02 15:04:05"
)

type sink struct {
	mu         sync.Mutex
	dir        string
	pid        int
	diag       *os.File
	transcribe *os.File
	logger     zerolog.Logger
}

var out = &sink{logger: zerolog.Nop()}

// RequestMetrics describes one hosted API round trip.
type RequestMetrics struct {
	Provider    string
	Endpoint    string
	AudioS      float64
	PayloadKB   float64
	EncodeMs    float64
	DNSMs       float64
	TLSMs       float64
	TTFBMs      float64
	TotalMs     float64
	ConnReused  bool
	TLSProtocol string
}

// ResolveDir picks the log directory: the flag, then AURALITE_LOG_PATH,
// then the platform default. Relative paths are made absolute.
func ResolveDir(flagPath string) (string, error) {
	for _, p := range []string{flagPath, os.Getenv(envLogPath)} {
		if p != "" {
			return filepath.Abs(p)
		}
	}
	return defaultDir(runtime.GOOS)
}

func defaultDir(goos string) (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	switch goos {
	case "darwin":
		return filepath.Join(home, "Library", "Logs", "auralite"), nil
	case "windows":
		base := os.Getenv("LOCALAPPDATA")
		if base == "" {
			base = filepath.Join(home, "AppData", "Local")
		}
		return filepath.Join(base, "auralite", "logs"), nil
	default:
		base := os.Getenv("XDG_CONFIG_HOME")
		if base == "" {
			base = filepath.Join(home, ".config")
		}
		return filepath.Join(base, "auralite", "logs"), nil
	}
}

func SetDir(d string) {
	out.mu.Lock()
	out.dir = d
	out.mu.Unlock()
}

func Dir() string {
	out.mu.Lock()
	defer out.mu.Unlock()
	return out.dir
}

func EnsureDir() error {
	if err := os.MkdirAll(Dir(), 0o755); err != nil {
		return fmt.Errorf("create log directory: %w", err)
	}
	return nil
}

func appendFile(dir, name string) (*os.File, error) {
	return os.OpenFile(filepath.Join(dir, name), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
}

// Init opens both log files in the configured directory.
func Init() error {
	if err := EnsureDir(); err != nil {
		return err
	}
	out.mu.Lock()
	defer out.mu.Unlock()

	diag, err := appendFile(out.dir, diagName)
	if err != nil {
		return err
	}
	transcribe, err := appendFile(out.dir, transcribeName)
	if err != nil {
		diag.Close()
		return err
	}
	out.pid = os.Getpid()
	out.diag, out.transcribe = diag, transcribe
	out.logger = zerolog.New(zerolog.ConsoleWriter{Out: diag, TimeFormat: stampFormat, NoColor: true}).
		With().Timestamp().Int("pid", out.pid).Logger()
	return nil
}

// Close flushes and releases the files. Safe to call more than once.
func Close() {
	out.mu.Lock()
	defer out.mu.Unlock()
	for _, f := range []**os.File{&out.diag, &out.transcribe} {
		if *f != nil {
			(*f).Close()
			*f = nil
		}
	}
	out.logger = zerolog.Nop()
}

// Logger returns the diagnostics logger, or a no-op logger before Init.
func Logger() zerolog.Logger {
	out.mu.Lock()
	defer out.mu.Unlock()
	return out.logger
}

// Component returns a diagnostics logger tagged with the component name.
func Component(name string) zerolog.Logger {
	return Logger().With().Str("component", name).Logger()
}

// Request logs network timings for a hosted API call.
func Request(m RequestMetrics) {
	conn := "new"
	if m.ConnReused {
		conn = "reused"
	}
	l := Logger()
	ev := l.Info().Str("provider", m.Provider).Str("endpoint", m.Endpoint).Str("conn", conn)
	if m.TLSProtocol != "" {
		ev = ev.Str("tls_proto", m.TLSProtocol)
	}
	if m.AudioS > 0 {
		ev = ev.Float64("audio_s", m.AudioS)
	}
	ev.Float64("payload_kb", m.PayloadKB).
		Float64("encode_ms", m.EncodeMs).
		Float64("dns_ms", m.DNSMs).
		Float64("tls_ms", m.TLSMs).
		Float64("ttfb_ms", m.TTFBMs).
		Float64("total_ms", m.TotalMs).
		Msg("request")
}

// TranscriptionText appends "time<TAB>[pid]<TAB>text" to the transcript log.
func TranscriptionText(text string) {
	out.mu.Lock()
	defer out.mu.Unlock()
	if out.transcribe == nil {
		return
	}
	fmt.Fprintf(out.transcribe, "%s\t[%d]\t%s\n", time.Now().Format(stampFormat), out.pid, text)
}

func SessionStart(mode, provider, model string) {
	l := Logger()
	l.Info().Str("mode", mode).Str("provider", provider).Str("model", model).Msg("session_start")
}

func SessionEnd(tasks int) {
	l := Logger()
	l.Info().Int("tasks", tasks).Msg("session_end")
}
