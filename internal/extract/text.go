package extract

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// title renders "NEW YORK" as "New York". A Caser is stateful, so one is
// built per call.
func title(s string) string {
	return cases.Title(language.English).String(strings.ToLower(s))
}

// digitsOnly keeps ASCII digits
func digitsOnly(s string) string {
	return strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, s)
}

// alnumUpper uppercases s and keeps [A-Z0-9]
func alnumUpper(s string) string {
	return strings.Map(func(r rune) rune {
		if (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			return r
		}
		return -1
	}, strings.ToUpper(s))
}

// isAlpha reports a non-empty string made only of letters
func isAlpha(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !unicode.IsLetter(r) {
			return false
		}
	}
	return true
}

// isUpperAlpha reports a non-empty run of uppercase letters
func isUpperAlpha(s string) bool {
	return isAlpha(s) && strings.ToUpper(s) == s
}

// hasLower reports whether s contains any lowercase letter
func hasLower(s string) bool {
	for _, r := range s {
		if unicode.IsLower(r) {
			return true
		}
	}
	return false
}

// alphaWords returns the whitespace-separated words of s that are purely
// alphabetic and longer than one character
func alphaWords(s string) []string {
	var out []string
	for _, w := range strings.Fields(s) {
		if isAlpha(w) && len([]rune(w)) > 1 {
			out = append(out, w)
		}
	}
	return out
}
