package search

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maltedev/digikala-search/internal/models"
)

func product(name, url string) models.Product {
	return models.NewProduct(name, url)
}

func TestDeduplicate(t *testing.T) {
	tests := []struct {
		name     string
		in       []models.Product
		expected []string
	}{
		{
			name: "Same URL keeps first",
			in: []models.Product{
				product("هدفون سونی WH-1000XM4", "https://www.digikala.com/product/dkp-1/"),
				product("Sony Headphones", "https://www.digikala.com/product/dkp-1/"),
			},
			expected: []string{"هدفون سونی WH-1000XM4"},
		},
		{
			name: "Long near duplicates collapse",
			in: []models.Product{
				product("گوشی سامسونگ galaxy a54", "https://www.digikala.com/product/dkp-2/"),
				product("گوشی سامسونگ galaxy a34", "https://www.digikala.com/product/dkp-3/"),
			},
			expected: []string{"گوشی سامسونگ galaxy a54"},
		},
		{
			name: "Three tokens with two shared stay apart",
			in: []models.Product{
				product("لپ تاپ ایسوس", "https://www.digikala.com/product/dkp-4/"),
				product("لپ تاپ لنوو", "https://www.digikala.com/product/dkp-5/"),
			},
			expected: []string{"لپ تاپ ایسوس", "لپ تاپ لنوو"},
		},
		{
			name: "Two token names differing by one token stay apart",
			in: []models.Product{
				product("گوشی سامسونگ", "https://www.digikala.com/product/dkp-6/"),
				product("گوشی شیائومی", "https://www.digikala.com/product/dkp-7/"),
			},
			expected: []string{"گوشی سامسونگ", "گوشی شیائومی"},
		},
		{
			name: "Short names match exactly after normalization",
			in: []models.Product{
				product("Galaxy A54", "https://www.digikala.com/product/dkp-8/"),
				product("  galaxy   a54! ", "https://www.digikala.com/product/dkp-9/"),
			},
			expected: []string{"Galaxy A54"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var names []string
			for _, p := range Deduplicate(tt.in) {
				names = append(names, p.Name)
			}
			assert.Equal(t, tt.expected, names)
		})
	}
}

func TestDeduplicateEmpty(t *testing.T) {
	assert.Empty(t, Deduplicate(nil))
}

func TestSimilarNames(t *testing.T) {
	assert.True(t, similarNames("a b c d e", "a b c d f"))
	assert.False(t, similarNames("a b c", "a b d"))
	assert.False(t, similarNames("", ""))
	assert.True(t, similarNames("a b", "a b"))
	assert.False(t, similarNames("a b", "a b c d"))
}

func TestRankTokenMatches(t *testing.T) {
	w := DefaultWeights()
	ranked := Rank([]models.Product{
		product("headphone", "https://www.digikala.com/product/dkp-1/"),
		product("headphone wireless", "https://www.digikala.com/product/dkp-2/"),
	}, "headphone wireless gaming", w)

	require.Len(t, ranked, 2)
	assert.Equal(t, "headphone wireless", ranked[0].Name)
	assert.Equal(t, 20.0, ranked[0].RelevanceScore)
	assert.Equal(t, 10.0, ranked[1].RelevanceScore)
}

func TestRankScoreComponents(t *testing.T) {
	w := DefaultWeights()

	tests := []struct {
		name     string
		product  models.Product
		query    string
		expected float64
	}{
		{
			name:     "Brand alias in another script",
			product:  product("گوشی سامسونگ", "u"),
			query:    "samsung",
			expected: 20,
		},
		{
			name:     "Brand glued to the model name",
			product:  product("SamsungGalaxy S24", "u"),
			query:    "samsung",
			expected: 30,
		},
		{
			name: "Price present",
			product: models.Product{
				Name: "x", Price: "۱۸,۰۰۰,۰۰۰ تومان", Rating: models.NoRating,
			},
			query:    "kettle",
			expected: 5,
		},
		{
			name:     "Placeholder price and rating score nothing",
			product:  product("x", "u"),
			query:    "kettle",
			expected: 0,
		},
		{
			name: "Persian digit rating",
			product: models.Product{
				Name: "x", Price: models.PriceUnavailable, Rating: "۴.۵ از ۵",
			},
			query:    "kettle",
			expected: 9,
		},
		{
			name:     "Primary bonus",
			product:  models.Product{Name: "x", SourceStrategy: models.StrategyPrimary},
			query:    "kettle",
			expected: 15,
		},
		{
			name:     "Alternative bonus",
			product:  models.Product{Name: "x", SourceStrategy: models.StrategyAlternative},
			query:    "kettle",
			expected: 10,
		},
		{
			name:     "Fallback bonus",
			product:  models.Product{Name: "x", SourceStrategy: models.StrategyFallback},
			query:    "kettle",
			expected: 5,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ranked := Rank([]models.Product{tt.product}, tt.query, w)
			require.Len(t, ranked, 1)
			assert.InDelta(t, tt.expected, ranked[0].RelevanceScore, 1e-9)
		})
	}
}

func TestRankIsStableAndDoesNotMutateInput(t *testing.T) {
	in := []models.Product{
		product("a", "https://www.digikala.com/product/dkp-1/"),
		product("b", "https://www.digikala.com/product/dkp-2/"),
		{Name: "c", URL: "https://www.digikala.com/product/dkp-3/", SourceStrategy: models.StrategyPrimary},
		product("d", "https://www.digikala.com/product/dkp-4/"),
	}

	ranked := Rank(in, "kettle", DefaultWeights())

	var names []string
	for _, p := range ranked {
		names = append(names, p.Name)
	}
	assert.Equal(t, []string{"c", "a", "b", "d"}, names)
	assert.Zero(t, in[2].RelevanceScore)
}

func TestRankCustomWeights(t *testing.T) {
	w := Weights{PriceAvailable: 100}
	ranked := Rank([]models.Product{
		{Name: "no price", SourceStrategy: models.StrategyPrimary},
		{Name: "priced", Price: "۱۰۰ تومان"},
	}, "", w)

	assert.Equal(t, "priced", ranked[0].Name)
	assert.Equal(t, 100.0, ranked[0].RelevanceScore)
}

func TestParseRating(t *testing.T) {
	tests := []struct {
		in       string
		expected float64
		ok       bool
	}{
		{"4.2", 4.2, true},
		{"۴.۵", 4.5, true},
		{"۳٫۸ از ۵", 3.8, true},
		{"٤", 4, true},
		{"(120) 4", 120, true},
		{models.NoRating, 0, false},
		{"", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			v, ok := parseRating(tt.in)
			assert.Equal(t, tt.ok, ok)
			assert.InDelta(t, tt.expected, v, 1e-9)
		})
	}
}
