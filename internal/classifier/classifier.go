// Package classifier inspects free-text shopping queries written in Persian,
// English or a mix of both. Everything here is a pure function of its input.
package classifier

import (
	"strings"
	"unicode"

	"github.com/maltedev/digikala-search/internal/models"
)

type Intent string

const (
	IntentComparison      Intent = "comparison"
	IntentBudget          Intent = "budget"
	IntentSpecificFeature Intent = "specific_feature"
	IntentUrgent          Intent = "urgent"
	IntentRecommendation  Intent = "recommendation"
	IntentReplacement     Intent = "replacement"
)

type Budget string

const (
	BudgetConscious Budget = "budget_conscious"
	BudgetPremium   Budget = "premium_seeker"
	BudgetMidRange  Budget = "mid_range"
	BudgetFlexible  Budget = "flexible"
)

type Classification struct {
	Language       models.Language
	Intents        []Intent
	Brands         []string
	Categories     []string
	CategoryGroups []string
	Features       []string
	UsageContexts  []string
	Budget         Budget
	Urgency        string
	TechnicalLevel string
}

func (c Classification) HasIntent(intent Intent) bool {
	for _, i := range c.Intents {
		if i == intent {
			return true
		}
	}
	return false
}

// Classify runs every detector over text.
func Classify(text string) Classification {
	lower := strings.ToLower(text)

	c := Classification{
		Language:       DetectLanguage(text),
		Intents:        matchAll(intentPatterns, lower),
		Brands:         DetectBrands(text),
		Categories:     DetectCategories(text),
		CategoryGroups: matchAll(categoryGroupPatterns, lower),
		Features:       matchAll(featurePatterns, lower),
		UsageContexts:  matchAll(usagePatterns, lower),
		Budget:         BudgetFlexible,
		Urgency:        "normal",
		TechnicalLevel: "general",
	}

	if budgets := matchAll(budgetPatterns, lower); len(budgets) > 0 {
		c.Budget = budgets[0]
	}
	if urgencyPattern.MatchString(lower) {
		c.Urgency = "high"
	}
	if technicalPattern.MatchString(lower) {
		c.TechnicalLevel = "technical"
	}

	return c
}

// DetectLanguage compares Arabic-block code points with ASCII letters.
func DetectLanguage(text string) models.Language {
	var persian, latin int
	for _, r := range text {
		switch {
		case r >= 0x0600 && r <= 0x06FF:
			persian++
		case r < unicode.MaxASCII && unicode.IsLetter(r):
			latin++
		}
	}

	total := persian + latin
	if total == 0 {
		return models.LanguageUnknown
	}

	ratio := float64(persian) / float64(total)
	switch {
	case ratio > 0.6:
		return models.LanguagePersian
	case ratio < 0.2:
		return models.LanguageEnglish
	default:
		return models.LanguageMixed
	}
}

// DetectBrands returns, in table order, the first alias of each brand that
// appears in text as the user wrote it.
func DetectBrands(text string) []string {
	padded := padded(text)

	var found []string
	for _, b := range brands {
		for _, alias := range b.Aliases {
			if strings.Contains(padded, " "+alias+" ") {
				found = append(found, alias)
				break
			}
		}
	}
	return found
}

// BrandAliases returns every known spelling of the brand that alias belongs
// to, or alias alone when it is not in the table.
func BrandAliases(alias string) []string {
	lower := strings.ToLower(alias)
	for _, b := range brands {
		for _, a := range b.Aliases {
			if a == lower {
				return b.Aliases
			}
		}
	}
	return []string{lower}
}

// DetectCategories returns the canonical name of every category one of whose
// keywords appears in text.
func DetectCategories(text string) []string {
	padded := padded(text)

	var found []string
	for _, cat := range categories {
		for _, kw := range cat.Keywords {
			if strings.Contains(padded, " "+kw+" ") {
				found = append(found, cat.Name)
				break
			}
		}
	}
	return found
}

// MeaningfulTokens returns up to n tokens longer than two runes that are
// not stopwords, in query order.
func MeaningfulTokens(text string, n int) []string {
	var tokens []string
	for _, tok := range strings.Fields(Normalize(text)) {
		if len([]rune(tok)) <= 2 {
			continue
		}
		if _, stop := stopwords[tok]; stop {
			continue
		}
		tokens = append(tokens, tok)
		if len(tokens) == n {
			break
		}
	}
	return tokens
}

// Normalize lower-cases text, turns everything that is not a letter or digit
// (ZWNJ included) into spaces and collapses runs of whitespace.
func Normalize(text string) string {
	mapped := strings.Map(func(r rune) rune {
		switch {
		case unicode.IsLetter(r), unicode.IsDigit(r), unicode.Is(unicode.Mn, r):
			return unicode.ToLower(r)
		default:
			return ' '
		}
	}, text)
	return strings.Join(strings.Fields(mapped), " ")
}

func padded(text string) string {
	return " " + Normalize(text) + " "
}

func matchAll[T any](table []patternEntry[T], text string) []T {
	var out []T
	for _, e := range table {
		if e.Pattern.MatchString(text) {
			out = append(out, e.Tag)
		}
	}
	return out
}
