package mrz

import (
	"image"

	"github.com/gmsas95/idscan/internal/imaging"
)

// LocatorConfig tunes the zone search
type LocatorConfig struct {
	// AnalysisWidth caps the width of the image the search runs on
	AnalysisWidth int
	// MinWidthRatio and MinHeightRatio are the fractions of the image a
	// candidate region must exceed
	MinWidthRatio  float64
	MinHeightRatio float64
	// FallbackRatio is the height fraction of the bottom strip used when no
	// candidate qualifies
	FallbackRatio float64
	// PadRatio grows the located box before cropping
	PadRatio float64
}

// DefaultLocatorConfig returns the stock search parameters
func DefaultLocatorConfig() LocatorConfig {
	return LocatorConfig{
		AnalysisWidth:  800,
		MinWidthRatio:  0.7,
		MinHeightRatio: 0.03,
		FallbackRatio:  0.22,
		PadRatio:       0.03,
	}
}

// Locator finds the machine-readable zone in a passport photo
type Locator struct {
	cfg LocatorConfig
}

// NewLocator creates a locator; zero config fields take their defaults
func NewLocator(cfg LocatorConfig) *Locator {
	def := DefaultLocatorConfig()
	if cfg.AnalysisWidth <= 0 {
		cfg.AnalysisWidth = def.AnalysisWidth
	}
	if cfg.MinWidthRatio <= 0 {
		cfg.MinWidthRatio = def.MinWidthRatio
	}
	if cfg.MinHeightRatio <= 0 {
		cfg.MinHeightRatio = def.MinHeightRatio
	}
	if cfg.FallbackRatio <= 0 || cfg.FallbackRatio > 1 {
		cfg.FallbackRatio = def.FallbackRatio
	}
	if cfg.PadRatio < 0 {
		cfg.PadRatio = def.PadRatio
	}
	return &Locator{cfg: cfg}
}

// Config returns the effective configuration
func (l *Locator) Config() LocatorConfig {
	return l.cfg
}

// Locate returns the zone's box in img coordinates. When no region of
// machine-readable text qualifies it returns the bottom strip and false; it
// never fails.
func (l *Locator) Locate(img image.Image) (image.Rectangle, bool) {
	bounds := img.Bounds()
	if bounds.Empty() {
		return bounds, false
	}

	gray := imaging.Gray(img)
	factor := 1.0
	if bounds.Dx() > l.cfg.AnalysisWidth {
		factor = float64(l.cfg.AnalysisWidth) / float64(bounds.Dx())
		gray = imaging.ScaleGray(gray, factor)
	}

	box, ok := l.search(planeFromGray(gray))
	if !ok {
		return BottomStrip(bounds, l.cfg.FallbackRatio), false
	}

	box = image.Rect(
		int(float64(box.Min.X)/factor),
		int(float64(box.Min.Y)/factor),
		int(float64(box.Max.X)/factor+0.5),
		int(float64(box.Max.Y)/factor+0.5),
	).Add(bounds.Min).Intersect(bounds)
	return box, true
}

// search runs blackhat, horizontal gradient, closing and Otsu threshold, then
// picks the lowest connected region wide and tall enough to be the zone
func (l *Locator) search(p *plane) (image.Rectangle, bool) {
	p = blur3(p)
	p = blackhat(p, 13, 5)
	p = gradientX(p)
	p = closing(p, 13, 5)
	p = binarize(p, otsu(p))
	p = closing(p, 21, 21)

	var best image.Rectangle
	found := false
	for _, c := range components(p) {
		wr := float64(c.Dx()) / float64(p.w)
		hr := float64(c.Dy()) / float64(p.h)
		if wr <= l.cfg.MinWidthRatio || hr <= l.cfg.MinHeightRatio {
			continue
		}
		if !found || c.Max.Y > best.Max.Y {
			best, found = c, true
		}
	}
	return best, found
}

// BottomStrip returns the bottom ratio of bounds, where TD3 zones are printed
func BottomStrip(bounds image.Rectangle, ratio float64) image.Rectangle {
	h := int(float64(bounds.Dy()) * ratio)
	return image.Rect(bounds.Min.X, bounds.Max.Y-h, bounds.Max.X, bounds.Max.Y)
}

// Pad grows box on every side by ratio of its far edge's offset, clipped to bounds
func Pad(box, bounds image.Rectangle, ratio float64) image.Rectangle {
	px := int(float64(box.Max.X-bounds.Min.X) * ratio)
	py := int(float64(box.Max.Y-bounds.Min.Y) * ratio)
	return image.Rect(box.Min.X-px, box.Min.Y-py, box.Max.X+px, box.Max.Y+py).Intersect(bounds)
}
