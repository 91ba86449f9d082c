// Package ocr provides the recognized-line source used by the extractors.
//
// An Engine turns image bytes into an ordered slice of Line values. The
// tesseract CLI engine is always available; the gosseract engine requires
// building with -tags gosseract and a system Tesseract install.
package ocr

import (
	"context"
	"image"
	"sort"
	"strings"
)

// Line is one recognized unit of text
type Line struct {
	Text       string          `json:"text"`
	Confidence *float64        `json:"confidence,omitempty"`
	Order      int             `json:"order"`
	Box        image.Rectangle `json:"-"`
}

// Conf returns the confidence, or 1.0 when the engine did not report one
func (l Line) Conf() float64 {
	if l.Confidence == nil {
		return 1.0
	}
	return *l.Confidence
}

// Options tunes a recognition call
type Options struct {
	Language    string
	PageSegMode int
	Whitelist   string
}

// DefaultOptions matches the block-of-text mode used for ID cards
func DefaultOptions() Options {
	return Options{
		Language:    "eng",
		PageSegMode: 6,
	}
}

// Engine recognizes text lines in an encoded image (PNG, JPEG, TIFF...)
type Engine interface {
	Name() string
	IsAvailable() bool
	Recognize(ctx context.Context, image []byte, opts Options) ([]Line, error)
}

// Conf is a helper for building lines with a known confidence
func Conf(v float64) *float64 {
	return &v
}

// Prepare trims every line, drops blank ones and sorts the rest top-to-bottom.
// The input slice is not modified.
func Prepare(lines []Line) []Line {
	out := make([]Line, 0, len(lines))
	for _, l := range lines {
		text := strings.TrimSpace(l.Text)
		if text == "" {
			continue
		}
		l.Text = text
		out = append(out, l)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Order < out[j].Order
	})
	return out
}

// Texts returns the text of each line
func Texts(lines []Line) []string {
	texts := make([]string, len(lines))
	for i, l := range lines {
		texts[i] = l.Text
	}
	return texts
}

// FromTexts builds lines in the given order with unknown confidence
func FromTexts(texts ...string) []Line {
	lines := make([]Line, len(texts))
	for i, t := range texts {
		lines[i] = Line{Text: t, Order: i}
	}
	return lines
}

// JoinText joins line texts with newlines, in order
func JoinText(lines []Line) string {
	return strings.Join(Texts(Prepare(lines)), "\n")
}
