package batch

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// limiter spaces document starts across all workers. A nil limiter never waits.
type limiter struct {
	rl *rate.Limiter
}

func newLimiter(perSecond float64, burst int) *limiter {
	if perSecond <= 0 {
		return nil
	}
	if burst <= 0 {
		burst = 1
	}
	return &limiter{rl: rate.NewLimiter(rate.Limit(perSecond), burst)}
}

func (l *limiter) wait(ctx context.Context) error {
	if l == nil {
		return ctx.Err()
	}
	return l.rl.Wait(ctx)
}

// ProgressTracker tracks batch processing progress
type ProgressTracker struct {
	Total     int
	Completed int
	StartTime time.Time
	mu        sync.RWMutex
}

// Increment marks one item done and returns the new count
func (p *ProgressTracker) Increment() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Completed++
	return p.Completed
}

func (p *ProgressTracker) Percent() float64 {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.Total == 0 {
		return 0
	}
	return float64(p.Completed) / float64(p.Total) * 100
}

func (p *ProgressTracker) Elapsed() time.Duration {
	return time.Since(p.StartTime)
}

func (p *ProgressTracker) ETA() time.Duration {
	p.mu.RLock()
	completed := p.Completed
	total := p.Total
	p.mu.RUnlock()

	if completed == 0 {
		return 0
	}

	elapsed := p.Elapsed()
	perItem := elapsed / time.Duration(completed)
	return perItem * time.Duration(total-completed)
}
