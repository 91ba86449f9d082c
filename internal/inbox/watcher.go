package inbox

import (
	"context"
	"fmt"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/gmsas95/idscan/internal/batch"
)

// DefaultSettle is how long the inbox must be quiet before a triggered sweep
const DefaultSettle = 2 * time.Second

// Watch sweeps whenever an image is created in or moved into the inbox,
// waiting for settle after the last event so partially copied files are not
// picked up. It blocks until ctx is done.
func (s *Sweeper) Watch(ctx context.Context, settle time.Duration) error {
	if settle <= 0 {
		settle = DefaultSettle
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer w.Close()

	if err := w.Add(s.config.Dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", s.config.Dir, err)
	}
	s.logger.Info("Watching inbox", zap.String("dir", s.config.Dir))

	timer := time.NewTimer(settle)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Rename) {
				continue
			}
			if !batch.IsImage(ev.Name) {
				continue
			}
			timer.Reset(settle)

		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			s.logger.Warn("Inbox watcher error", zap.Error(err))

		case <-timer.C:
			if _, err := s.Sweep(ctx); err != nil && ctx.Err() == nil {
				s.logger.Error("Inbox sweep failed", zap.Error(err))
			}
		}
	}
}
