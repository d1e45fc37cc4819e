// Package expander turns a shopping query into up to three ordered search
// terms, asking a completion model first when one is configured and falling
// back to lookup-table rules otherwise.
package expander

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/maltedev/digikala-search/internal/classifier"
	"github.com/maltedev/digikala-search/internal/llm"
	"github.com/maltedev/digikala-search/internal/metrics"
	"github.com/maltedev/digikala-search/internal/models"
)

// GenericTerm is searched when a query has nothing worth searching for.
const GenericTerm = "محصول"

const (
	maxTerms         = 3
	maxTokens        = 500
	temperature      = 0.3
	defaultAITimeout = 20 * time.Second
)

var (
	ErrMalformedReply = errors.New("completion reply is not a JSON object")
	ErrNoTerms        = errors.New("completion reply has no search terms")
)

type Expander struct {
	completer llm.Completer
	timeout   time.Duration
	logger    *slog.Logger
}

type Option func(*Expander)

// WithTimeout bounds each completion call.
func WithTimeout(d time.Duration) Option {
	return func(e *Expander) {
		if d > 0 {
			e.timeout = d
		}
	}
}

// New returns an Expander. A nil completer selects the rule-based strategy
// for the lifetime of the Expander.
func New(completer llm.Completer, logger *slog.Logger, opts ...Option) *Expander {
	e := &Expander{
		completer: completer,
		timeout:   defaultAITimeout,
		logger:    logger.With("component", "expander"),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Expander) AIEnabled() bool {
	return e.completer != nil
}

// Expand never returns an empty list.
func (e *Expander) Expand(ctx context.Context, q models.Query) []models.CandidateTerm {
	if q.HasOverride() {
		metrics.ExpansionsTotal.WithLabelValues("override").Inc()
		return []models.CandidateTerm{{Text: strings.TrimSpace(q.Override), Strategy: models.StrategyPrimary}}
	}

	if e.AIEnabled() {
		terms, err := e.expandWithAI(ctx, q.Text)
		if err == nil {
			metrics.ExpansionsTotal.WithLabelValues("ai").Inc()
			return terms
		}
		e.logger.Warn("AI query expansion failed, using rules", "error", err)
	}

	terms := finalize(RuleBased(q.Text))
	if len(terms) == 0 {
		metrics.ExpansionsTotal.WithLabelValues("generic").Inc()
		return []models.CandidateTerm{{Text: GenericTerm, Strategy: models.StrategyPrimary}}
	}

	metrics.ExpansionsTotal.WithLabelValues("rules").Inc()
	return terms
}

func (e *Expander) expandWithAI(ctx context.Context, text string) ([]models.CandidateTerm, error) {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	reply, err := e.completer.Complete(ctx, llm.Request{
		System:      systemPrompt,
		Prompt:      buildPrompt(text, classifier.Classify(text)),
		MaxTokens:   maxTokens,
		Temperature: temperature,
	})
	if err != nil {
		return nil, fmt.Errorf("completion: %w", err)
	}

	parsed, err := parseReply(reply)
	if err != nil {
		return nil, err
	}

	terms := finalize([]string{parsed.Primary, parsed.Alternative, parsed.Fallback})
	if len(terms) == 0 {
		return nil, ErrNoTerms
	}

	e.logger.Debug("AI expanded query", "query", text, "terms", len(terms), "reasoning", parsed.Reasoning)
	return terms, nil
}

// RuleBased derives search strings from the brand and category tables,
// falling back to the leading meaningful tokens of text.
func RuleBased(text string) []string {
	brands := classifier.DetectBrands(text)
	categories := classifier.DetectCategories(text)

	switch {
	case len(categories) > 0 && len(brands) > 0:
		terms := make([]string, 0, len(categories)*len(brands))
		for _, cat := range categories {
			for _, brand := range brands {
				terms = append(terms, cat+" "+brand)
			}
		}
		return terms
	case len(categories) > 0:
		return categories
	case len(brands) > 0:
		return brands
	}

	if tokens := classifier.MeaningfulTokens(text, maxTerms); len(tokens) > 0 {
		return []string{strings.Join(tokens, " ")}
	}
	return nil
}

type reply struct {
	Primary     string `json:"primary"`
	Alternative string `json:"alternative"`
	Fallback    string `json:"fallback"`
	Reasoning   string `json:"reasoning"`
}

// parseReply accepts a JSON object wrapped in code fences or prose.
func parseReply(text string) (reply, error) {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return reply{}, ErrMalformedReply
	}

	var r reply
	if err := json.Unmarshal([]byte(text[start:end+1]), &r); err != nil {
		return reply{}, fmt.Errorf("%w: %v", ErrMalformedReply, err)
	}
	return r, nil
}

// finalize trims, drops blanks and duplicates, caps the list and tags each
// term by position.
func finalize(raw []string) []models.CandidateTerm {
	seen := make(map[string]struct{}, len(raw))
	terms := make([]models.CandidateTerm, 0, maxTerms)

	for _, t := range raw {
		t = strings.Join(strings.Fields(t), " ")
		if t == "" {
			continue
		}
		key := strings.ToLower(t)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}

		terms = append(terms, models.CandidateTerm{Text: t, Strategy: models.StrategyForPosition(len(terms))})
		if len(terms) == maxTerms {
			break
		}
	}
	return terms
}
