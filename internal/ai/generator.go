package ai

import (
	"context"
	"errors"
	"fmt"
	"time"
)

var (
	ErrNotConfigured = errors.New("text generation provider is not configured")
	ErrEmptyResponse = errors.New("text generation returned no text")
)

// Prompt is a system instruction plus the user turn. Providers without a
// separate system role receive Text().
type Prompt struct {
	System string
	User   string
}

func (p Prompt) Text() string {
	if p.System == "" {
		return p.User
	}
	return p.System + "\n\n" + p.User
}

// GenerationConfig holds the sampling parameters sent with every request.
type GenerationConfig struct {
	Temperature     float32
	TopK            int
	TopP            float32
	MaxOutputTokens int
}

type TextGenerator interface {
	Generate(ctx context.Context, prompt Prompt) (string, error)
}

type ProviderConfig struct {
	Provider   string
	BaseURL    string
	APIKey     string
	Model      string
	Timeout    time.Duration
	Generation GenerationConfig
}

// NewGenerator builds the generator for cfg.Provider. It returns
// ErrNotConfigured when credentials are missing.
func NewGenerator(ctx context.Context, cfg ProviderConfig) (TextGenerator, error) {
	if cfg.APIKey == "" || cfg.Model == "" {
		return nil, ErrNotConfigured
	}
	switch cfg.Provider {
	case "gemini":
		return NewGeminiGenerator(ctx, cfg)
	case "openai":
		return NewOpenAICompatibleClient(ChatConfig{
			BaseURL: cfg.BaseURL,
			APIKey:  cfg.APIKey,
			Model:   cfg.Model,
		}, cfg.Generation, cfg.Timeout), nil
	case "ark":
		return NewArkGenerator(ctx, cfg)
	default:
		return nil, fmt.Errorf("unsupported provider %q", cfg.Provider)
	}
}
