// Package lotpattern learns the structural shape of lot numbers per
// brand and scores new lots against previously seen shapes.
package lotpattern

import (
	"regexp"
	"strings"
	"unicode"
)

// Pattern is the character-class abstraction of one lot number:
// digits become '#', letters 'X', the separators / - . and space stay
// literal, anything else becomes '?'. The parallel regex is anchored
// and compiled case-insensitively at validation time.
type Pattern struct {
	Template string
	Regex    string
}

// Analyze derives the template and regex for a lot number.
func Analyze(lot string) Pattern {
	var tpl, re strings.Builder
	re.WriteByte('^')
	for _, r := range lot {
		switch {
		case unicode.IsDigit(r):
			tpl.WriteByte('#')
			re.WriteString(`\d`)
		case unicode.IsLetter(r):
			tpl.WriteByte('X')
			re.WriteString(`[A-Z]`)
		case r == '/' || r == '-' || r == '.' || r == ' ':
			tpl.WriteRune(r)
			re.WriteString(regexp.QuoteMeta(string(r)))
		default:
			tpl.WriteByte('?')
			re.WriteByte('.')
		}
	}
	re.WriteByte('$')
	return Pattern{Template: tpl.String(), Regex: re.String()}
}
