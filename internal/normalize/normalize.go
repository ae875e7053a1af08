// Package normalize canonicalizes brand and lot identifiers so that
// equivalent spellings compare equal, and hosts the edit-distance
// helpers shared by every matcher.
package normalize

import (
	"strings"
	"unicode"

	"github.com/agext/levenshtein"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// stripMarks decomposes to NFD, drops combining marks, recomposes.
var stripMarks = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

var levParams = levenshtein.NewParams()

// Lot canonicalizes a lot number: diacritics stripped, uppercased,
// whitespace and the separators - _ . removed. Total and idempotent.
func Lot(s string) string {
	folded, _, _ := transform.String(stripMarks, s)
	folded = strings.ToUpper(folded)

	var b strings.Builder
	b.Grow(len(folded))
	for _, r := range folded {
		if unicode.IsSpace(r) || r == '-' || r == '_' || r == '.' {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Brand canonicalizes a brand name: diacritics stripped, uppercased,
// then only letters and digits survive. Total and idempotent.
func Brand(s string) string {
	folded, _, _ := transform.String(stripMarks, s)
	folded = strings.ToUpper(folded)

	var b strings.Builder
	b.Grow(len(folded))
	for _, r := range folded {
		if (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Distance returns the Levenshtein edit distance between a and b.
func Distance(a, b string) int {
	return levenshtein.Distance(a, b, levParams)
}

// Similarity scores a against b as 1 - distance/maxLen, in [0,1].
// Two empty strings are identical and score 1.
func Similarity(a, b string) float64 {
	if a == b {
		return 1
	}
	la := len([]rune(a))
	lb := len([]rune(b))
	maxLen := la
	if lb > maxLen {
		maxLen = lb
	}
	if maxLen == 0 {
		return 1
	}
	return 1 - float64(Distance(a, b))/float64(maxLen)
}

// ContainsEither reports whether either string contains the other.
// Empty strings contain nothing and are contained by nothing here;
// a degenerate empty side never counts as containment.
func ContainsEither(a, b string) bool {
	if a == "" || b == "" {
		return false
	}
	return strings.Contains(a, b) || strings.Contains(b, a)
}
