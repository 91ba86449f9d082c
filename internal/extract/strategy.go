package extract

import (
	"github.com/gmsas95/idscan/internal/ocr"
)

// Input is what every strategy sees: prepared lines, their texts and the
// key-value pairs parsed from them.
type Input struct {
	Lines []ocr.Line
	Texts []string
	KV    *KeyValues
}

// NewInput prepares lines (trim, drop blanks, sort by Order) and parses key-value pairs
func NewInput(lines []ocr.Line) Input {
	prepared := ocr.Prepare(lines)
	texts := ocr.Texts(prepared)
	return Input{
		Lines: prepared,
		Texts: texts,
		KV:    ParseKeyValues(texts),
	}
}

// next returns the text i+offset lines down, if any
func (in Input) next(i, offset int) (string, bool) {
	if i+offset >= len(in.Texts) {
		return "", false
	}
	return in.Texts[i+offset], true
}

// Strategy is one pure extraction rule
type Strategy struct {
	Name string
	Fn   func(Input) (string, bool)
}

// Chain is an ordered list of strategies; the first to accept wins
type Chain []Strategy

// Run evaluates the chain and returns the field plus the name of the strategy that fired
func (c Chain) Run(in Input) (Field, string) {
	for _, s := range c {
		if v, ok := s.Fn(in); ok {
			return Found(v), s.Name
		}
	}
	return Missing(), ""
}

// Names lists the strategy names in priority order
func (c Chain) Names() []string {
	names := make([]string, len(c))
	for i, s := range c {
		names[i] = s.Name
	}
	return names
}
