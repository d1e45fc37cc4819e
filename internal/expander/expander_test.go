package expander

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maltedev/digikala-search/internal/llm"
	"github.com/maltedev/digikala-search/internal/models"
)

type fakeCompleter struct {
	reply string
	err   error
	delay time.Duration
	calls int
	last  llm.Request
}

func (f *fakeCompleter) Complete(ctx context.Context, req llm.Request) (string, error) {
	f.calls++
	f.last = req
	if f.delay > 0 {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(f.delay):
		}
	}
	return f.reply, f.err
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestExpandRuleBased(t *testing.T) {
	tests := []struct {
		name     string
		query    string
		expected []models.CandidateTerm
	}{
		{
			name:  "Category without brand",
			query: "laptop for work",
			expected: []models.CandidateTerm{
				{Text: "لپ تاپ", Strategy: models.StrategyPrimary},
			},
		},
		{
			name:  "Brand and category combine",
			query: "سامسونگ گوشی ارزان",
			expected: []models.CandidateTerm{
				{Text: "گوشی سامسونگ", Strategy: models.StrategyPrimary},
			},
		},
		{
			name:  "Brand only",
			query: "something from xiaomi",
			expected: []models.CandidateTerm{
				{Text: "xiaomi", Strategy: models.StrategyPrimary},
			},
		},
		{
			name:  "Cross product is capped and tagged by position",
			query: "asus lenovo dell laptop tablet",
			expected: []models.CandidateTerm{
				{Text: "لپ تاپ asus", Strategy: models.StrategyPrimary},
				{Text: "لپ تاپ lenovo", Strategy: models.StrategyAlternative},
				{Text: "لپ تاپ dell", Strategy: models.StrategyFallback},
			},
		},
		{
			name:  "Meaningful tokens",
			query: "اسپیکر بلوتوث قابل حمل",
			expected: []models.CandidateTerm{
				{Text: "اسپیکر بلوتوث قابل", Strategy: models.StrategyPrimary},
			},
		},
		{
			name:  "Only stopwords falls back to the generic term",
			query: "یه کم خوب",
			expected: []models.CandidateTerm{
				{Text: GenericTerm, Strategy: models.StrategyPrimary},
			},
		},
		{
			name:  "Blank query",
			query: "   ",
			expected: []models.CandidateTerm{
				{Text: GenericTerm, Strategy: models.StrategyPrimary},
			},
		},
	}

	e := New(nil, testLogger())
	require.False(t, e.AIEnabled())

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, e.Expand(context.Background(), models.Query{Text: tt.query}))
		})
	}
}

func TestExpandOverride(t *testing.T) {
	fc := &fakeCompleter{reply: `{"primary":"x"}`}
	e := New(fc, testLogger())

	terms := e.Expand(context.Background(), models.Query{Text: "هر چیزی", Override: "  هدفون سونی "})

	assert.Equal(t, []models.CandidateTerm{{Text: "هدفون سونی", Strategy: models.StrategyPrimary}}, terms)
	assert.Zero(t, fc.calls)
}

func TestExpandWithAI(t *testing.T) {
	fc := &fakeCompleter{reply: "```json\n{\"primary\": \"گوشی سامسونگ گلکسی\", \"alternative\": \"گوشی سامسونگ\", \"fallback\": \"گوشی موبایل\", \"reasoning\": \"brand first\"}\n```"}
	e := New(fc, testLogger())

	terms := e.Expand(context.Background(), models.Query{Text: "سامسونگ گوشی ارزان"})

	assert.Equal(t, []models.CandidateTerm{
		{Text: "گوشی سامسونگ گلکسی", Strategy: models.StrategyPrimary},
		{Text: "گوشی سامسونگ", Strategy: models.StrategyAlternative},
		{Text: "گوشی موبایل", Strategy: models.StrategyFallback},
	}, terms)
	assert.Equal(t, 1, fc.calls)
	assert.Equal(t, 500, fc.last.MaxTokens)
	assert.InDelta(t, 0.3, fc.last.Temperature, 0.001)
	assert.Contains(t, fc.last.Prompt, "سامسونگ گوشی ارزان")
	assert.Contains(t, fc.last.Prompt, "budget")
}

func TestExpandAIFallsBackToRules(t *testing.T) {
	tests := []struct {
		name string
		fc   *fakeCompleter
	}{
		{name: "Collaborator error", fc: &fakeCompleter{err: errors.New("boom")}},
		{name: "Not JSON", fc: &fakeCompleter{reply: "I think you should search for a phone"}},
		{name: "Broken JSON", fc: &fakeCompleter{reply: `{"primary": "گوشی",`}},
		{name: "All terms blank", fc: &fakeCompleter{reply: `{"primary": " ", "alternative": "", "fallback": ""}`}},
		{name: "Timeout", fc: &fakeCompleter{reply: `{"primary":"late"}`, delay: time.Second}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := New(tt.fc, testLogger(), WithTimeout(20*time.Millisecond))

			terms := e.Expand(context.Background(), models.Query{Text: "سامسونگ گوشی ارزان"})

			assert.Equal(t, []models.CandidateTerm{{Text: "گوشی سامسونگ", Strategy: models.StrategyPrimary}}, terms)
			assert.Equal(t, 1, tt.fc.calls)
		})
	}
}

func TestExpandAIDeduplicates(t *testing.T) {
	fc := &fakeCompleter{reply: `{"primary": "Laptop", "alternative": "laptop", "fallback": "لپ تاپ"}`}
	e := New(fc, testLogger())

	terms := e.Expand(context.Background(), models.Query{Text: "laptop"})

	assert.Equal(t, []models.CandidateTerm{
		{Text: "Laptop", Strategy: models.StrategyPrimary},
		{Text: "لپ تاپ", Strategy: models.StrategyAlternative},
	}, terms)
}

func TestParseReply(t *testing.T) {
	r, err := parseReply("Sure! {\"primary\":\"a\",\"reasoning\":\"b\"} hope it helps")
	require.NoError(t, err)
	assert.Equal(t, "a", r.Primary)
	assert.Equal(t, "b", r.Reasoning)

	_, err = parseReply("no braces")
	assert.ErrorIs(t, err, ErrMalformedReply)

	_, err = parseReply("} backwards {")
	assert.ErrorIs(t, err, ErrMalformedReply)
}
