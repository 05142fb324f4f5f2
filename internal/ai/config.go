package ai

import (
	"context"
	"log/slog"
)

// Config selects and configures the model providers. Populate it with envstruct.
type Config struct {
	// Provider names the default provider, openai or gemini.
	Provider      string `env:"CHRONICLER_AI_PROVIDER" envDefault:"openai"`
	OpenAIKey     string `env:"OPENAI_API_KEY" envDefault:""`
	OpenAIBaseURL string `env:"OPENAI_BASE_URL" envDefault:""`
	OpenAIModel   string `env:"OPENAI_MODEL" envDefault:""`
	GeminiKey     string `env:"GEMINI_API_KEY" envDefault:""`
	GeminiModel   string `env:"GEMINI_MODEL" envDefault:""`
}

// NewProvidersFromConfig registers every provider that has an API key.
func NewProvidersFromConfig(ctx context.Context, cfg Config, logger *slog.Logger) (*Providers, error) {
	providers := NewProviders(cfg.Provider)
	if cfg.OpenAIKey != "" {
		providers.Register("openai", NewOpenAI(cfg.OpenAIKey, cfg.OpenAIBaseURL, cfg.OpenAIModel, logger))
	}
	if cfg.GeminiKey != "" {
		gemini, err := NewGemini(ctx, cfg.GeminiKey, cfg.GeminiModel, logger)
		if err != nil {
			return nil, err
		}
		providers.Register("gemini", gemini)
	}
	if len(providers.Names()) == 0 {
		logger.LogAttrs(ctx, slog.LevelWarn, "no model provider configured, set OPENAI_API_KEY or GEMINI_API_KEY")
	}
	return providers, nil
}
