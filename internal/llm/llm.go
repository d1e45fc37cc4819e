// Package llm wraps hosted text-completion APIs behind a single Completer
// capability.
package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

var (
	ErrEmptyCompletion = errors.New("completion returned no text")
	ErrProvider        = errors.New("completion provider error")
	ErrUnknownProvider = errors.New("unknown completion provider")
)

const (
	ProviderOpenRouter = "openrouter"
	ProviderGemini     = "gemini"
)

type Request struct {
	System      string
	Prompt      string
	MaxTokens   int
	Temperature float32
}

type Completer interface {
	Complete(ctx context.Context, req Request) (string, error)
}

type Config struct {
	Provider string
	APIKey   string
	BaseURL  string
	Model    string
	Timeout  time.Duration
}

func DefaultConfig() Config {
	return Config{
		Provider: ProviderOpenRouter,
		BaseURL:  "https://openrouter.ai/api/v1",
		Model:    "deepseek/deepseek-chat-v3.1:free",
		Timeout:  30 * time.Second,
	}
}

// New builds the configured Completer. It returns a nil Completer and no
// error when no API key is configured.
func New(ctx context.Context, cfg Config, logger *slog.Logger) (Completer, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		logger.Info("no completion API key configured, AI query expansion disabled")
		return nil, nil
	}

	switch strings.ToLower(cfg.Provider) {
	case "", ProviderOpenRouter:
		return NewOpenRouter(cfg, logger), nil
	case ProviderGemini:
		g, err := NewGemini(ctx, cfg, logger)
		if err != nil {
			return nil, err
		}
		return g, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownProvider, cfg.Provider)
	}
}
