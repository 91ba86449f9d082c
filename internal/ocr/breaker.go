package ocr

import (
	"context"
	"errors"
	"time"

	"github.com/sony/gobreaker/v2"
	"go.uber.org/zap"

	apperrors "github.com/gmsas95/idscan/internal/errors"
)

// BreakerConfig controls when the OCR circuit opens
type BreakerConfig struct {
	MaxFailures uint32
	OpenTimeout time.Duration
}

// DefaultBreakerConfig returns conservative breaker settings
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		MaxFailures: 5,
		OpenTimeout: 30 * time.Second,
	}
}

// Breaker stops calling an engine that keeps failing, so a dead OCR
// collaborator fails fast instead of timing out on every document.
type Breaker struct {
	next Engine
	cb   *gobreaker.CircuitBreaker[[]Line]
}

// NewBreaker wraps next with a circuit breaker
func NewBreaker(next Engine, cfg BreakerConfig, logger *zap.Logger) *Breaker {
	if cfg.MaxFailures == 0 {
		cfg.MaxFailures = DefaultBreakerConfig().MaxFailures
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	settings := gobreaker.Settings{
		Name:        "ocr-" + next.Name(),
		MaxRequests: 1,
		Timeout:     cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.MaxFailures
		},
		IsSuccessful: func(err error) bool {
			// an unreadable image says nothing about the engine's health
			return err == nil || errors.Is(err, apperrors.ErrImageUnreadable) || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("OCR circuit state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	}

	return &Breaker{next: next, cb: gobreaker.NewCircuitBreaker[[]Line](settings)}
}

// Name returns the wrapped engine name
func (b *Breaker) Name() string {
	return b.next.Name()
}

// IsAvailable is false while the circuit is open
func (b *Breaker) IsAvailable() bool {
	return b.cb.State() != gobreaker.StateOpen && b.next.IsAvailable()
}

// Recognize calls the wrapped engine through the breaker
func (b *Breaker) Recognize(ctx context.Context, img []byte, opts Options) ([]Line, error) {
	lines, err := b.cb.Execute(func() ([]Line, error) {
		return b.next.Recognize(ctx, img, opts)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, apperrors.Wrap(err, apperrors.ErrOCRCircuitOpen.Code, "OCR engine temporarily disabled")
	}
	return lines, err
}
