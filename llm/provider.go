package llm

import (
	"fmt"

	"github.com/rs/zerolog"
)

// Config selects a provider.
type Config struct {
	Provider  string // openai or ollama
	APIKey    string
	BaseURL   string
	OllamaURL string
	Model     string
}

func New(cfg Config, logger zerolog.Logger) (Client, error) {
	switch cfg.Provider {
	case "", "openai":
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("openai: missing API key")
		}
		return NewOpenAI(cfg.APIKey, cfg.BaseURL, cfg.Model, logger), nil
	case "ollama":
		return NewOllama(cfg.OllamaURL, cfg.Model, logger)
	default:
		return nil, fmt.Errorf("unknown llm provider %q", cfg.Provider)
	}
}
