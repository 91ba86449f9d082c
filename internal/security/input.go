package security

import (
	"errors"
	"fmt"
	"unicode/utf8"
)

var (
	ErrInputTooLarge     = errors.New("input exceeds maximum size")
	ErrNullByteDetected  = errors.New("null byte detected in input")
	ErrInvalidUTF8       = errors.New("input is not valid UTF-8")
	ErrTooManyLines      = errors.New("too many lines")
	ErrRepetitiveContent = errors.New("excessive repetition detected")
)

// TextValidator checks OCR text submitted by clients before extraction
type TextValidator struct {
	MaxSize       int
	MaxLines      int
	MaxRepetition int
}

func NewTextValidator() *TextValidator {
	return &TextValidator{
		MaxSize:       64 * 1024,
		MaxLines:      500,
		MaxRepetition: 100,
	}
}

func (v *TextValidator) Validate(input string) error {
	if v.MaxSize > 0 && len(input) > v.MaxSize {
		return ErrInputTooLarge
	}

	for i := 0; i < len(input); i++ {
		if input[i] == 0 {
			return ErrNullByteDetected
		}
	}

	if !utf8.ValidString(input) {
		return ErrInvalidUTF8
	}

	if v.MaxRepetition > 0 && hasExcessiveRepetition(input, v.MaxRepetition) {
		return ErrRepetitiveContent
	}

	return nil
}

// ValidateLines checks the line count, then every line and their total size
func (v *TextValidator) ValidateLines(lines []string) error {
	if v.MaxLines > 0 && len(lines) > v.MaxLines {
		return fmt.Errorf("%w: %d > %d", ErrTooManyLines, len(lines), v.MaxLines)
	}

	total := 0
	for i, line := range lines {
		total += len(line)
		if v.MaxSize > 0 && total > v.MaxSize {
			return ErrInputTooLarge
		}
		if err := v.Validate(line); err != nil {
			return fmt.Errorf("line %d: %w", i+1, err)
		}
	}
	return nil
}

func hasExcessiveRepetition(input string, maxLen int) bool {
	if len(input) <= maxLen {
		return false
	}

	var prev rune
	count := 0
	for _, r := range input {
		if r == prev {
			count++
			if count > maxLen {
				return true
			}
		} else {
			prev, count = r, 1
		}
	}
	return false
}

func ValidateText(input string) error {
	return NewTextValidator().Validate(input)
}
