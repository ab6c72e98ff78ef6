package factory

import (
	"fmt"

	"medical-assistant-be/pkg/llm"
	"medical-assistant-be/pkg/llm/groq"
	"medical-assistant-be/pkg/llm/ollama"
)

// Config holds the configuration needed to build any provider.
type Config struct {
	Provider string // "ollama" | "groq"

	OllamaBaseURL string
	OllamaModel   string

	GroqAPIKey  string
	GroqBaseURL string
	GroqModel   string
}

// NewProvider builds the configured LLM provider.
func NewProvider(cfg Config) (llm.LLMProvider, error) {
	switch cfg.Provider {
	case "ollama":
		return ollama.NewOllamaProvider(cfg.OllamaBaseURL, cfg.OllamaModel), nil
	case "groq":
		if cfg.GroqAPIKey == "" {
			return nil, fmt.Errorf("groq provider requires an API key")
		}
		return groq.NewGroqProvider(cfg.GroqAPIKey, cfg.GroqBaseURL, cfg.GroqModel), nil
	default:
		return nil, fmt.Errorf("unknown llm provider: %q", cfg.Provider)
	}
}
