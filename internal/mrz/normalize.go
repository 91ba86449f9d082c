// Package mrz reads the two-line TD3 machine-readable zone of a passport:
// locating it in a photo, normalizing the recognized text and decoding the
// fixed-offset fields.
package mrz

import (
	"sort"
	"strings"
)

const (
	// LineLength is the width of a TD3 line
	LineLength = 44
	// Filler pads every MRZ field
	Filler = '<'
)

// Lines holds the two normalized TD3 lines
type Lines [2]string

// Normalize turns raw recognized text into two 44-character lines. It
// reports false unless exactly two lines remain.
func Normalize(text string) (Lines, bool) {
	text = strings.NewReplacer(" ", "", "\r", "").Replace(text)

	var lines []string
	for _, l := range strings.Split(text, "\n") {
		if l = strings.TrimSpace(l); l != "" {
			lines = append(lines, l)
		}
	}

	switch {
	case len(lines) == 1 && len(lines[0]) >= 2*LineLength:
		lines = []string{lines[0][:LineLength], lines[0][LineLength : 2*LineLength]}
	case len(lines) > 2:
		sort.SliceStable(lines, func(i, j int) bool {
			return len(lines[i]) > len(lines[j])
		})
		lines = lines[:2]
		sort.SliceStable(lines, func(i, j int) bool {
			return strings.Index(text, lines[i]) < strings.Index(text, lines[j])
		})
	}

	if len(lines) != 2 {
		return Lines{}, false
	}
	return Lines{pad(lines[0]), pad(lines[1])}, true
}

// pad right-pads with filler or truncates to LineLength
func pad(line string) string {
	if len(line) >= LineLength {
		return line[:LineLength]
	}
	return line + strings.Repeat(string(Filler), LineLength-len(line))
}

// String joins the lines with a newline
func (l Lines) String() string {
	return l[0] + "\n" + l[1]
}
