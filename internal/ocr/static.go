package ocr

import (
	"context"
	"sync"
)

// Static is an Engine that returns preset lines, for tests and for
// replaying recorded OCR output without Tesseract.
type Static struct {
	mu    sync.Mutex
	lines []Line
	err   error
	calls int
}

// NewStatic creates an engine that always yields the given lines
func NewStatic(lines []Line) *Static {
	return &Static{lines: lines}
}

// NewFailing creates an engine that always fails with err
func NewFailing(err error) *Static {
	return &Static{err: err}
}

// Name returns the engine name
func (s *Static) Name() string {
	return "static"
}

// IsAvailable always returns true
func (s *Static) IsAvailable() bool {
	return true
}

// Recognize returns a copy of the preset lines
func (s *Static) Recognize(ctx context.Context, img []byte, opts Options) ([]Line, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out := make([]Line, len(s.lines))
	copy(out, s.lines)
	return out, nil
}

// Calls returns how many times Recognize ran
func (s *Static) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}
