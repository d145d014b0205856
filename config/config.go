// Package config loads and persists the assistant settings as TOML.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

const (
	envConfig = "AURALITE_CONFIG"
	envAPIKey = "OPENAI_API_KEY"
	envGroq   = "GROQ_API_KEY"
)

var ErrUnknownKey = errors.New("unknown setting")

// Settings are persisted between runs. Zero values in a loaded file keep
// the defaults.
type Settings struct {
	APIKey                  string  `toml:"api_key"`
	Model                   string  `toml:"model"`
	SilenceDetectionEnabled bool    `toml:"silence_detection_enabled"`
	SilenceDurationMs       int     `toml:"silence_duration_ms"`
	SilenceThreshold        float64 `toml:"silence_threshold"`
	SilenceVAD              bool    `toml:"silence_vad"`
	TemplatePath            string  `toml:"template_path"`
	Provider                string  `toml:"provider"`
	TranscriptionProvider   string  `toml:"transcription_provider"`
	Language                string  `toml:"language"`
	Device                  string  `toml:"device"`
	OllamaURL               string  `toml:"ollama_url"`
	OpenCreatedNotes        bool    `toml:"open_created_notes"`
	LingerMs                int     `toml:"linger_ms"`
	SoundCues               bool    `toml:"sound_cues"`
}

func Defaults() Settings {
	return Settings{
		Model:                 "gpt-4o",
		SilenceDurationMs:     2000,
		SilenceThreshold:      0.02,
		Provider:              "openai",
		TranscriptionProvider: "openai",
		OllamaURL:             "http://localhost:11434",
		LingerMs:              3000,
		SoundCues:             true,
	}
}

func (s Settings) SilenceDuration() time.Duration {
	return time.Duration(s.SilenceDurationMs) * time.Millisecond
}

func (s Settings) Linger() time.Duration {
	return time.Duration(s.LingerMs) * time.Millisecond
}

// ResolvedAPIKey prefers the stored key and falls back to the environment
// of the selected provider.
func (s Settings) ResolvedAPIKey() string {
	if s.APIKey != "" {
		return s.APIKey
	}
	return os.Getenv(envAPIKey)
}

// TranscriptionAPIKey is the key for the speech-to-text provider.
func (s Settings) TranscriptionAPIKey() string {
	if s.TranscriptionProvider == "groq" {
		if k := os.Getenv(envGroq); k != "" {
			return k
		}
	}
	return s.ResolvedAPIKey()
}

// ResolvePath picks the settings file: flag, then AURALITE_CONFIG, then the
// user config directory.
func ResolvePath(flagPath string) (string, error) {
	if flagPath != "" {
		return filepath.Abs(flagPath)
	}
	if p := os.Getenv(envConfig); p != "" {
		return filepath.Abs(os.ExpandEnv(p))
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("locate config dir: %w", err)
	}
	return filepath.Join(dir, "auralite", "settings.toml"), nil
}

// Load merges the file at path over the defaults. A missing file yields
// the defaults.
func Load(path string) (Settings, error) {
	s := Defaults()
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return s, nil
	}
	var file Settings
	md, err := toml.DecodeFile(path, &file)
	if err != nil {
		return s, fmt.Errorf("parse %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return s, fmt.Errorf("%w: %s", ErrUnknownKey, undecoded[0].String())
	}
	s.merge(file, md)
	return s, nil
}

// merge copies every key present in the file, so explicit false and zero
// values override the defaults.
func (s *Settings) merge(file Settings, md toml.MetaData) {
	dst := reflect.ValueOf(s).Elem()
	src := reflect.ValueOf(file)
	for i := 0; i < dst.NumField(); i++ {
		if md.IsDefined(tagOf(dst.Type().Field(i))) {
			dst.Field(i).Set(src.Field(i))
		}
	}
	s.APIKey = os.ExpandEnv(s.APIKey)
	s.TemplatePath = os.ExpandEnv(s.TemplatePath)
}

// Save writes s atomically, creating the directory if needed.
func Save(path string, s Settings) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".settings-*.toml")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if err := toml.NewEncoder(tmp).Encode(s); err != nil {
		tmp.Close()
		return fmt.Errorf("encode settings: %w", err)
	}
	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

// Keys lists every setting name in file order.
func Keys() []string {
	t := reflect.TypeOf(Settings{})
	keys := make([]string, 0, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		keys = append(keys, tagOf(t.Field(i)))
	}
	return keys
}

// Get formats the setting named key.
func (s Settings) Get(key string) (string, error) {
	f, err := field(reflect.ValueOf(&s).Elem(), key)
	if err != nil {
		return "", err
	}
	return fmt.Sprint(f.Interface()), nil
}

// Set parses value into the setting named key.
func (s *Settings) Set(key, value string) error {
	f, err := field(reflect.ValueOf(s).Elem(), key)
	if err != nil {
		return err
	}
	switch f.Kind() {
	case reflect.String:
		f.SetString(value)
	case reflect.Bool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		f.SetBool(b)
	case reflect.Int:
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		if n < 0 {
			return fmt.Errorf("%s: must not be negative", key)
		}
		f.SetInt(int64(n))
	case reflect.Float64:
		x, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		if x < 0 || x > 1 {
			return fmt.Errorf("%s: must be between 0 and 1", key)
		}
		f.SetFloat(x)
	}
	return nil
}

// Redacted returns the settings as name/value pairs with the key masked.
func (s Settings) Redacted() [][2]string {
	var out [][2]string
	for _, k := range Keys() {
		v, _ := s.Get(k)
		if k == "api_key" && v != "" {
			v = mask(v)
		}
		out = append(out, [2]string{k, v})
	}
	return out
}

func mask(key string) string {
	if len(key) <= 8 {
		return strings.Repeat("*", len(key))
	}
	return key[:3] + strings.Repeat("*", len(key)-7) + key[len(key)-4:]
}

func field(v reflect.Value, key string) (reflect.Value, error) {
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		if tagOf(t.Field(i)) == key {
			return v.Field(i), nil
		}
	}
	known := Keys()
	sort.Strings(known)
	return reflect.Value{}, fmt.Errorf("%w %q (known: %s)", ErrUnknownKey, key, strings.Join(known, ", "))
}

func tagOf(f reflect.StructField) string {
	name, _, _ := strings.Cut(f.Tag.Get("toml"), ",")
	return name
}
