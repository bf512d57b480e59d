package ranking

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Fold removes diacritics, collapses whitespace and upper-cases s, so that
// "São  Paulo" and "sao paulo" compare equal.
func Fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		folded = s
	}
	return strings.ToUpper(strings.Join(strings.Fields(folded), " "))
}

// SameText compares two place names ignoring case, diacritics and spacing.
// Empty values never match.
func SameText(a, b string) bool {
	fa := Fold(a)
	return fa != "" && fa == Fold(b)
}

// NormalizeCategory upper-cases a category token and drops spaces and hyphens.
func NormalizeCategory(s string) string {
	return strings.Map(func(r rune) rune {
		if r == ' ' || r == '-' || unicode.IsSpace(r) {
			return -1
		}
		return r
	}, Fold(s))
}

// NormalizeCategories normalizes tokens and drops empty ones.
func NormalizeCategories(tokens []string) []string {
	out := make([]string, 0, len(tokens))
	for _, tok := range tokens {
		if n := NormalizeCategory(tok); n != "" {
			out = append(out, n)
		}
	}
	return out
}

// CategoryMatches reports whether the candidate category contains any of the
// normalized tokens. No tokens admits every category.
func CategoryMatches(category string, normalizedTokens []string) bool {
	if len(normalizedTokens) == 0 {
		return true
	}
	c := NormalizeCategory(category)
	for _, tok := range normalizedTokens {
		if strings.Contains(c, tok) {
			return true
		}
	}
	return false
}
