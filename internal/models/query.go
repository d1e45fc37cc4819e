package models

import "strings"

type Language string

const (
	LanguagePersian Language = "persian"
	LanguageEnglish Language = "english"
	LanguageMixed   Language = "mixed"
	LanguageUnknown Language = "unknown"
)

type Strategy string

const (
	StrategyPrimary     Strategy = "primary"
	StrategyAlternative Strategy = "alternative"
	StrategyFallback    Strategy = "fallback"
)

// StrategyForPosition maps a candidate index to its tag. Positions past the
// third are treated as fallback.
func StrategyForPosition(i int) Strategy {
	switch i {
	case 0:
		return StrategyPrimary
	case 1:
		return StrategyAlternative
	default:
		return StrategyFallback
	}
}

// Query is a single shopping request. Override, when set, is searched as is.
type Query struct {
	Text     string
	Language Language
	Override string
}

func (q Query) HasOverride() bool {
	return strings.TrimSpace(q.Override) != ""
}

type CandidateTerm struct {
	Text     string   `json:"text"`
	Strategy Strategy `json:"strategy"`
}
