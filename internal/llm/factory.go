package llm

import (
	"fmt"
	"time"
)

// FactoryConfig holds the parameters needed to create a Client. This is
// defined in the llm package to avoid importing the config package, keeping
// the llm package free of infrastructure dependencies.
type FactoryConfig struct {
	// Provider is the LLM provider name ("gemini" or "openrouter").
	Provider string
	// Timeout is the timeout for LLM API calls.
	Timeout time.Duration
	// Gemini contains Gemini-specific settings.
	Gemini GeminiConfig
	// OpenRouter contains OpenRouter-specific settings.
	OpenRouter OpenRouterConfig
}

// NewClient creates a Client based on the configuration. Supports "gemini"
// and "openrouter" providers. Returns an error for unsupported or empty
// provider values.
func NewClient(cfg FactoryConfig) (Client, error) {
	switch cfg.Provider {
	case "gemini":
		return NewGeminiClient(cfg.Gemini, cfg.Timeout), nil
	case "openrouter":
		return NewOpenRouterClient(cfg.OpenRouter, cfg.Timeout), nil
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %q", cfg.Provider)
	}
}
