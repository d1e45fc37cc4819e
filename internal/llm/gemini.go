package llm

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/maltedev/digikala-search/internal/metrics"
)

const defaultGeminiModel = "gemini-1.5-flash"

type Gemini struct {
	client  *genai.Client
	model   string
	timeout time.Duration
	logger  *slog.Logger
}

func NewGemini(ctx context.Context, cfg Config, logger *slog.Logger) (*Gemini, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(cfg.APIKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	model := cfg.Model
	if model == "" || strings.Contains(model, "/") {
		model = defaultGeminiModel
	}

	return &Gemini{
		client:  client,
		model:   model,
		timeout: cfg.Timeout,
		logger:  logger.With("component", "gemini"),
	}, nil
}

func (g *Gemini) Complete(ctx context.Context, req Request) (string, error) {
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	// GenerativeModel carries per-call settings, so each call gets its own.
	model := g.client.GenerativeModel(g.model)
	model.SetTemperature(req.Temperature)
	if req.MaxTokens > 0 {
		model.SetMaxOutputTokens(int32(req.MaxTokens))
	}
	if req.System != "" {
		model.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(req.System)}}
	}

	start := time.Now()
	resp, err := model.GenerateContent(ctx, genai.Text(req.Prompt))
	metrics.CompletionDuration.WithLabelValues(ProviderGemini, g.model).Observe(time.Since(start).Seconds())

	if err != nil {
		metrics.CompletionRequestsTotal.WithLabelValues(ProviderGemini, g.model, "error").Inc()
		return "", fmt.Errorf("gemini request failed: %v: %w", err, ErrProvider)
	}

	text := extractText(resp)
	if strings.TrimSpace(text) == "" {
		metrics.CompletionRequestsTotal.WithLabelValues(ProviderGemini, g.model, "empty").Inc()
		return "", ErrEmptyCompletion
	}

	metrics.CompletionRequestsTotal.WithLabelValues(ProviderGemini, g.model, "success").Inc()
	return text, nil
}

func (g *Gemini) Close() error {
	return g.client.Close()
}

func extractText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}

	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			sb.WriteString(string(text))
		}
	}
	return sb.String()
}
