//go:build !gosseract

package ocr

import (
	"context"
	"errors"
	"testing"
)

func TestNewGosseractReturnsError(t *testing.T) {
	engine, err := NewGosseract()
	if err == nil {
		t.Error("Expected error from NewGosseract() when gosseract is disabled")
	}
	if !errors.Is(err, ErrGosseractNotEnabled) {
		t.Errorf("Expected ErrGosseractNotEnabled, got: %v", err)
	}
	if engine != nil {
		t.Error("Expected nil engine when gosseract is disabled")
	}
}

func TestStubCloseOnNilEngine(t *testing.T) {
	var engine *Gosseract
	if err := engine.Close(); err != nil {
		t.Errorf("Close on nil engine should not error: %v", err)
	}
	if _, err := engine.Recognize(context.Background(), nil, DefaultOptions()); !errors.Is(err, ErrGosseractNotEnabled) {
		t.Errorf("Expected ErrGosseractNotEnabled from Recognize, got: %v", err)
	}
}
