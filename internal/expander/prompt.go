package expander

import (
	"fmt"
	"strings"

	"github.com/maltedev/digikala-search/internal/classifier"
)

const systemPrompt = "You are an expert product search analyst for Digikala.com. " +
	"You only answer with a single JSON object and no other text."

func buildPrompt(query string, c classifier.Classification) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Optimize this shopping query for the Digikala search box.\n\n")
	fmt.Fprintf(&b, "Original user query: %q\n\n", query)
	b.WriteString("Context:\n")
	fmt.Fprintf(&b, "- Language: %s\n", c.Language)
	fmt.Fprintf(&b, "- Intent: %s\n", joinOr(intentNames(c.Intents), "general_inquiry"))
	fmt.Fprintf(&b, "- Budget indicators: %s\n", c.Budget)
	fmt.Fprintf(&b, "- Urgency: %s\n", c.Urgency)
	fmt.Fprintf(&b, "- Technical level: %s\n", c.TechnicalLevel)
	fmt.Fprintf(&b, "- Usage context: %s\n", joinOr(c.UsageContexts, "general_use"))
	hints := append(append([]string{}, c.Categories...), c.CategoryGroups...)
	fmt.Fprintf(&b, "- Category hints: %s\n", joinOr(hints, "none"))
	fmt.Fprintf(&b, "- Brands mentioned: %s\n", joinOr(c.Brands, "none"))
	fmt.Fprintf(&b, "- Features mentioned: %s\n\n", joinOr(c.Features, "none"))

	b.WriteString(`Generate 3 search terms that would return the most relevant products:
1. primary: the most specific term
2. alternative: a broader category term
3. fallback: a generic but still relevant term

Prefer the Persian names Digikala uses for categories and brands. Keep each term under five words.

Return exactly this JSON shape:
{"primary": "...", "alternative": "...", "fallback": "...", "reasoning": "..."}`)

	return b.String()
}

func intentNames(intents []classifier.Intent) []string {
	out := make([]string, len(intents))
	for i, in := range intents {
		out[i] = string(in)
	}
	return out
}

func joinOr(items []string, empty string) string {
	if len(items) == 0 {
		return empty
	}
	return strings.Join(items, ", ")
}
