// Package security masks personal data and validates untrusted text input.
package security

import (
	"regexp"
	"strings"
)

type PIIMatch struct {
	Type  string
	Start int
	End   int
}

// Redactor masks identity numbers in free text. Social security numbers keep
// their last four digits; MRZ data lines are replaced whole.
type Redactor struct {
	patterns []*piiPattern
}

type piiPattern struct {
	name    string
	regex   *regexp.Regexp
	replace func(string) string
}

var defaultPIIPatterns = []struct {
	name    string
	pattern string
	replace func(string) string
}{
	{"MRZ Line", `[A-Z0-9<]{9}[0-9<][A-Z<]{3}[0-9<]{6}[0-9<][MFX<][0-9<]{6}[0-9<][A-Z0-9<]*`, fixed("<MRZ REDACTED>")},
	{"MRZ Name Line", `P[A-Z<][A-Z<]{3}[A-Z<]+<<[A-Z<]{3,}`, fixed("<MRZ REDACTED>")},
	{"SSN", `\b\d{3}-\d{2}-\d{4}\b`, keepLast4},
	{"SSN Split", `\b\d{3}-\d{5}-\d{4}\b`, keepLast4},
	{"SSN Digits", `\b\d{9}\b`, keepLast4},
}

func fixed(s string) func(string) string {
	return func(string) string { return s }
}

func keepLast4(match string) string {
	digits := strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, match)
	if len(digits) < 4 {
		return "***"
	}
	return "***-**-" + digits[len(digits)-4:]
}

func NewRedactor() *Redactor {
	r := &Redactor{
		patterns: make([]*piiPattern, 0, len(defaultPIIPatterns)),
	}

	for _, p := range defaultPIIPatterns {
		r.patterns = append(r.patterns, &piiPattern{
			name:    p.name,
			regex:   regexp.MustCompile(p.pattern),
			replace: p.replace,
		})
	}

	return r
}

func (r *Redactor) Scan(input string) []PIIMatch {
	var matches []PIIMatch

	for _, pattern := range r.patterns {
		for _, loc := range pattern.regex.FindAllStringIndex(input, -1) {
			matches = append(matches, PIIMatch{
				Type:  pattern.name,
				Start: loc[0],
				End:   loc[1],
			})
		}
	}

	return matches
}

func (r *Redactor) HasPII(input string) bool {
	return len(r.Scan(input)) > 0
}

// Redact applies every pattern in order
func (r *Redactor) Redact(input string) string {
	result := input
	for _, pattern := range r.patterns {
		result = pattern.regex.ReplaceAllStringFunc(result, pattern.replace)
	}
	return result
}

var defaultRedactor = NewRedactor()

func HasPII(input string) bool {
	return defaultRedactor.HasPII(input)
}

func RedactPII(input string) string {
	return defaultRedactor.Redact(input)
}
