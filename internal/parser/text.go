package parser

import (
	"strings"
	"unicode"
)

const allowedPunctuation = ".,:;()-/+%&'\"!?#،٬٫×"

// cleanText keeps Persian and Arabic script (digits and ZWNJ included),
// Latin letters, ASCII digits and a little punctuation, and collapses
// whitespace.
func cleanText(s string) string {
	mapped := strings.Map(func(r rune) rune {
		switch {
		case r >= 0x0600 && r <= 0x06FF:
			return r
		case r == '\u200c':
			return r
		case r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)):
			return r
		case strings.ContainsRune(allowedPunctuation, r):
			return r
		default:
			return ' '
		}
	}, s)
	return strings.Join(strings.Fields(mapped), " ")
}
