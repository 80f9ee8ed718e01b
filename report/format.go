package report

import (
	"strconv"
	"strings"
	"unicode"
)

// titleCase uppercases the first letter of every word: a letter following a
// non-letter starts a word, every other letter is lowered. "staff of divine
// ii" becomes "Staff Of Divine Ii" and "iron-ore" becomes "Iron-Ore".
func titleCase(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	prevLetter := false
	for _, r := range s {
		switch {
		case !unicode.IsLetter(r):
			b.WriteRune(r)
			prevLetter = false
		case prevLetter:
			b.WriteRune(unicode.ToLower(r))
		default:
			b.WriteRune(unicode.ToUpper(r))
			prevLetter = true
		}
	}
	return b.String()
}

// slugTitle turns a resource slug into a display name.
func slugTitle(slug string) string {
	return titleCase(strings.ReplaceAll(slug, "_", " "))
}

// formatQty renders a quantity without a forced decimal point, so whole
// numbers print as integers inside the literal arithmetic expressions.
func formatQty(qty float64) string {
	return strconv.FormatFloat(qty, 'f', -1, 64)
}
