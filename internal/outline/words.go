package outline

import (
	"regexp"
	"strings"
	"unicode"
)

var wikiWord = regexp.MustCompile(`^[A-Z][a-z]+(?:[A-Z][a-z]+|[0-9]+)+$`)

// WikiWord returns s if it is a WikiWord: a capitalised word followed by
// at least one more capitalised word or run of digits.
func WikiWord(s string) (string, bool) {
	if wikiWord.MatchString(s) {
		return s, true
	}
	return "", false
}

// Important strips the trailing " *" importance marker from s.
func Important(s string) (string, bool) {
	return strings.CutSuffix(s, " *")
}

// CamelToKebab converts CamelCase to kebab-case, splitting before every
// capital letter and at every boundary between digits and non-digits.
func CamelToKebab(s string) string {
	var b strings.Builder
	last := '-'
	for _, c := range s {
		if last != '-' && (unicode.IsUpper(c) || unicode.IsDigit(c) != unicode.IsDigit(last)) {
			b.WriteByte('-')
		}
		b.WriteRune(unicode.ToLower(c))
		last = c
	}
	return b.String()
}
