package api

import (
	"github.com/gmsas95/idscan/internal/metrics"
	"github.com/gmsas95/idscan/internal/ocr"
	"github.com/gmsas95/idscan/internal/store"
)

type tokenRequest struct {
	Password string `json:"password"`
}

type tokenResponse struct {
	Token     string `json:"token"`
	ExpiresAt int64  `json:"expires_at"`
}

type lineInput struct {
	Text       string   `json:"text"`
	Confidence *float64 `json:"confidence,omitempty"`
	Order      *int     `json:"order,omitempty"`
}

// extractRequest carries lines either with confidences or as bare texts
type extractRequest struct {
	Source string      `json:"source"`
	Lines  []lineInput `json:"lines"`
	Texts  []string    `json:"texts"`
}

func (r extractRequest) ocrLines() []ocr.Line {
	if len(r.Lines) == 0 {
		return ocr.FromTexts(r.Texts...)
	}
	lines := make([]ocr.Line, len(r.Lines))
	for i, l := range r.Lines {
		order := i
		if l.Order != nil {
			order = *l.Order
		}
		lines[i] = ocr.Line{Text: l.Text, Confidence: l.Confidence, Order: order}
	}
	return lines
}

type mrzRequest struct {
	Source string `json:"source"`
	Text   string `json:"text"`
}

type healthResponse struct {
	Status          string            `json:"status"`
	Version         string            `json:"version"`
	Engine          string            `json:"engine"`
	EngineAvailable bool              `json:"engine_available"`
	Timestamp       int64             `json:"timestamp"`
	Metrics         *metrics.Snapshot `json:"metrics"`
}

type scanListResponse struct {
	Scans  []store.Scan `json:"scans"`
	Limit  int          `json:"limit"`
	Offset int          `json:"offset"`
}

type statsResponse struct {
	Kinds   []store.KindStats `json:"kinds"`
	Metrics *metrics.Snapshot `json:"metrics"`
}
