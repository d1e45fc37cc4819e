package search

import (
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/maltedev/digikala-search/internal/classifier"
	"github.com/maltedev/digikala-search/internal/models"
)

// Weights are the relevance score contributions.
type Weights struct {
	TokenMatch       float64 `json:"token_match"`
	BrandMatch       float64 `json:"brand_match"`
	PriceAvailable   float64 `json:"price_available"`
	RatingMultiplier float64 `json:"rating_multiplier"`
	PrimaryBonus     float64 `json:"primary_bonus"`
	AlternativeBonus float64 `json:"alternative_bonus"`
	FallbackBonus    float64 `json:"fallback_bonus"`
}

func DefaultWeights() Weights {
	return Weights{
		TokenMatch:       10,
		BrandMatch:       20,
		PriceAvailable:   5,
		RatingMultiplier: 2,
		PrimaryBonus:     15,
		AlternativeBonus: 10,
		FallbackBonus:    5,
	}
}

var ratingPattern = regexp.MustCompile(`[0-9۰-۹٠-٩]+(?:[.٫][0-9۰-۹٠-٩]+)?`)

// Rank scores every product against query and sorts by descending score.
// Equal scores keep their input order.
func Rank(products []models.Product, query string, w Weights) []models.Product {
	ranked := make([]models.Product, len(products))
	copy(ranked, products)

	tokens := strings.Fields(classifier.Normalize(query))
	var brandAliases []string
	for _, brand := range classifier.DetectBrands(query) {
		brandAliases = append(brandAliases, classifier.BrandAliases(brand)...)
	}

	for i := range ranked {
		ranked[i].RelevanceScore = score(&ranked[i], tokens, brandAliases, w)
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].RelevanceScore > ranked[j].RelevanceScore
	})
	return ranked
}

func score(p *models.Product, tokens, brandAliases []string, w Weights) float64 {
	var s float64
	name := " " + classifier.Normalize(p.Name) + " "

	for _, tok := range tokens {
		if strings.Contains(name, tok) {
			s += w.TokenMatch
		}
	}

	for _, alias := range brandAliases {
		if strings.Contains(name, classifier.Normalize(alias)) {
			s += w.BrandMatch
			break
		}
	}

	if p.HasPrice() {
		s += w.PriceAvailable
	}

	if p.HasRating() {
		if value, ok := parseRating(p.Rating); ok {
			s += value * w.RatingMultiplier
		}
	}

	switch p.SourceStrategy {
	case models.StrategyPrimary:
		s += w.PrimaryBonus
	case models.StrategyAlternative:
		s += w.AlternativeBonus
	case models.StrategyFallback:
		s += w.FallbackBonus
	}

	return s
}

// parseRating reads the first number in raw, accepting Persian and
// Arabic-Indic digits and the Persian decimal separator.
func parseRating(raw string) (float64, bool) {
	match := ratingPattern.FindString(raw)
	if match == "" {
		return 0, false
	}

	ascii := strings.Map(func(r rune) rune {
		switch {
		case r >= '۰' && r <= '۹':
			return '0' + (r - '۰')
		case r >= '٠' && r <= '٩':
			return '0' + (r - '٠')
		case r == '٫':
			return '.'
		default:
			return r
		}
	}, match)

	value, err := strconv.ParseFloat(ascii, 64)
	if err != nil {
		return 0, false
	}
	return value, true
}
