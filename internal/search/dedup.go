package search

import (
	"strings"

	"github.com/maltedev/digikala-search/internal/classifier"
	"github.com/maltedev/digikala-search/internal/models"
)

const nameOverlapThreshold = 0.7

// Deduplicate drops products whose URL was already seen or whose name is a
// near-duplicate of a kept product. The first occurrence wins.
func Deduplicate(products []models.Product) []models.Product {
	seenURLs := make(map[string]struct{}, len(products))
	var seenNames []string
	unique := make([]models.Product, 0, len(products))

	for _, p := range products {
		if p.URL != "" {
			if _, ok := seenURLs[p.URL]; ok {
				continue
			}
		}

		name := classifier.Normalize(p.Name)
		if containsSimilar(seenNames, name) {
			continue
		}

		unique = append(unique, p)
		if p.URL != "" {
			seenURLs[p.URL] = struct{}{}
		}
		seenNames = append(seenNames, name)
	}

	return unique
}

func containsSimilar(names []string, name string) bool {
	for _, seen := range names {
		if similarNames(seen, name) {
			return true
		}
	}
	return false
}

// similarNames compares normalized names. Names of two tokens or fewer must
// match exactly; longer names are similar when the shared distinct tokens
// exceed 70% of the longer name.
func similarNames(a, b string) bool {
	if a == "" || b == "" {
		return false
	}

	wa, wb := strings.Fields(a), strings.Fields(b)
	if len(wa) <= 2 || len(wb) <= 2 {
		return a == b
	}

	inB := make(map[string]struct{}, len(wb))
	for _, w := range wb {
		inB[w] = struct{}{}
	}

	common := 0
	counted := make(map[string]struct{}, len(wa))
	for _, w := range wa {
		if _, ok := inB[w]; !ok {
			continue
		}
		if _, dup := counted[w]; dup {
			continue
		}
		counted[w] = struct{}{}
		common++
	}

	return float64(common)/float64(max(len(wa), len(wb))) > nameOverlapThreshold
}
