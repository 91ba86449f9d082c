//go:build gosseract

package ocr

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/otiai10/gosseract/v2"

	apperrors "github.com/gmsas95/idscan/internal/errors"
)

// Gosseract recognizes text through the Tesseract C API.
// A gosseract client is not safe for concurrent use, so calls are serialized.
type Gosseract struct {
	mu     sync.Mutex
	client *gosseract.Client
}

// NewGosseract creates an in-process Tesseract engine.
// The engine should be closed when no longer needed to release resources.
func NewGosseract() (*Gosseract, error) {
	return &Gosseract{client: gosseract.NewClient()}, nil
}

// Name returns the engine name
func (g *Gosseract) Name() string {
	return "gosseract"
}

// IsAvailable reports whether the client was created
func (g *Gosseract) IsAvailable() bool {
	return g != nil && g.client != nil
}

// Close releases OCR resources.
func (g *Gosseract) Close() error {
	if g.client != nil {
		return g.client.Close()
	}
	return nil
}

// Recognize returns one Line per Tesseract text line
func (g *Gosseract) Recognize(ctx context.Context, img []byte, opts Options) ([]Line, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	lang := opts.Language
	if lang == "" {
		lang = "eng"
	}
	if err := g.client.SetLanguage(strings.Split(lang, "+")...); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrOCRUnavailable.Code, "language not installed")
	}
	if opts.PageSegMode > 0 {
		if err := g.client.SetPageSegMode(gosseract.PageSegMode(opts.PageSegMode)); err != nil {
			return nil, apperrors.Wrap(err, apperrors.ErrOCRFailed.Code, "invalid page segmentation mode")
		}
	}
	if err := g.client.SetWhitelist(opts.Whitelist); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrOCRFailed.Code, "invalid whitelist")
	}
	if err := g.client.SetImageFromBytes(img); err != nil {
		return nil, apperrors.Wrap(fmt.Errorf("failed to set image: %w", err), apperrors.ErrImageUnreadable.Code, "image rejected by tesseract")
	}

	boxes, err := g.client.GetBoundingBoxes(gosseract.RIL_TEXTLINE)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrOCRFailed.Code, "OCR failed")
	}

	lines := make([]Line, 0, len(boxes))
	for _, b := range boxes {
		text := strings.TrimSpace(b.Word)
		if text == "" {
			continue
		}
		lines = append(lines, Line{
			Text:       text,
			Confidence: Conf(b.Confidence / 100),
			Box:        b.Box,
		})
	}
	return orderByPosition(lines), nil
}
