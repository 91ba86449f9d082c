package scan

import (
	"context"
	"time"

	"github.com/gmsas95/idscan/internal/metrics"
	"github.com/gmsas95/idscan/internal/ocr"
)

// instrumented records latency and outcome of every engine call
type instrumented struct {
	next    ocr.Engine
	metrics *metrics.Metrics
}

func (e *instrumented) Name() string {
	return e.next.Name()
}

func (e *instrumented) IsAvailable() bool {
	return e.next.IsAvailable()
}

func (e *instrumented) Recognize(ctx context.Context, img []byte, opts ocr.Options) ([]ocr.Line, error) {
	start := time.Now()
	lines, err := e.next.Recognize(ctx, img, opts)
	e.metrics.RecordOCR(e.next.Name(), err == nil, time.Since(start))
	return lines, err
}
