//go:build !gosseract

package ocr

import (
	"context"
	"errors"
)

// ErrGosseractNotEnabled is returned when the in-process engine was not compiled in.
// Rebuild with -tags gosseract to enable it.
var ErrGosseractNotEnabled = errors.New("gosseract support not enabled; rebuild with -tags gosseract")

// Gosseract is a stub engine that fails every call.
type Gosseract struct{}

// NewGosseract returns an error indicating gosseract support is not enabled.
func NewGosseract() (*Gosseract, error) {
	return nil, ErrGosseractNotEnabled
}

// Name returns the engine name
func (g *Gosseract) Name() string {
	return "gosseract"
}

// IsAvailable is always false for the stub
func (g *Gosseract) IsAvailable() bool {
	return false
}

// Close is a no-op for the stub engine.
// It is safe to call on a nil engine.
func (g *Gosseract) Close() error {
	return nil
}

// Recognize returns ErrGosseractNotEnabled.
func (g *Gosseract) Recognize(ctx context.Context, img []byte, opts Options) ([]Line, error) {
	return nil, ErrGosseractNotEnabled
}
