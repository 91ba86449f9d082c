package mrz

import (
	"context"
	"image"
	"strings"
	"time"

	"github.com/gmsas95/idscan/internal/imaging"
	"github.com/gmsas95/idscan/internal/ocr"
)

// Charset is the TD3 alphabet, used as the OCR whitelist
const Charset = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789<"

// Reader locates, recognizes and decodes the zone of a passport photo
type Reader struct {
	engine  ocr.Engine
	locator *Locator
	opts    ocr.Options
	now     func() time.Time
}

// NewReader creates a reader. Recognition is restricted to Charset.
func NewReader(engine ocr.Engine, locator *Locator, opts ocr.Options) *Reader {
	if locator == nil {
		locator = NewLocator(DefaultLocatorConfig())
	}
	if opts.Whitelist == "" {
		opts.Whitelist = Charset
	}
	return &Reader{
		engine:  engine,
		locator: locator,
		opts:    opts,
		now:     time.Now,
	}
}

// Scan describes where the zone was read from
type Scan struct {
	Result
	Box      image.Rectangle `json:"-"`
	Detected bool            `json:"detected"`
	Lines    []ocr.Line      `json:"-"`
}

// Read finds the zone, pads and crops it, recognizes it and decodes the text.
// An undecodable zone is a normal outcome with a nil Parsed record.
func (r *Reader) Read(ctx context.Context, img image.Image) (*Scan, error) {
	box, detected := r.locator.Locate(img)
	box = Pad(box, img.Bounds(), r.locator.cfg.PadRatio)

	data, err := imaging.EncodePNG(imaging.Crop(img, box))
	if err != nil {
		return nil, err
	}

	lines, err := r.engine.Recognize(ctx, data, r.opts)
	if err != nil {
		return nil, err
	}

	raw := strings.ReplaceAll(ocr.JoinText(lines), " ", "")
	return &Scan{
		Result:   NewResult(raw, r.now()),
		Box:      box,
		Detected: detected,
		Lines:    lines,
	}, nil
}
