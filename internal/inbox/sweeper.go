// Package inbox periodically scans images dropped into a watched folder.
package inbox

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/gmsas95/idscan/internal/batch"
	"github.com/gmsas95/idscan/internal/extract"
)

const (
	processedDir = "processed"
	failedDir    = "failed"
)

// Config holds sweeper configuration
type Config struct {
	Dir      string
	Schedule string // cron spec or descriptor such as "@every 1m"
	Kind     extract.Kind
}

// Processor is the batch runner used for each sweep
type Processor interface {
	Process(ctx context.Context, items []batch.InputItem, trigger string) (*batch.Result, error)
}

// Sweeper moves each scanned image to processed/ or failed/ so a file is
// only picked up once.
type Sweeper struct {
	config    Config
	processor Processor
	logger    *zap.Logger
	cron      *cron.Cron
	entry     cron.EntryID
	ctx       context.Context
	cancel    context.CancelFunc
	running   bool
	mu        sync.RWMutex
	sweepMu   sync.Mutex
}

// NewSweeper creates a sweeper; the schedule is validated here
func NewSweeper(config Config, processor Processor, logger *zap.Logger) (*Sweeper, error) {
	if config.Schedule == "" {
		config.Schedule = "@every 1m"
	}
	if config.Kind == "" {
		config.Kind = extract.KindLicense
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if _, err := cron.ParseStandard(config.Schedule); err != nil {
		return nil, fmt.Errorf("invalid inbox schedule %q: %w", config.Schedule, err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Sweeper{
		config:    config,
		processor: processor,
		logger:    logger,
		ctx:       ctx,
		cancel:    cancel,
	}
	s.cron = cron.New(cron.WithChain(cron.SkipIfStillRunning(cronLogger{logger.Sugar()})))
	return s, nil
}

// Start schedules sweeps and runs the first one immediately
func (s *Sweeper) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return fmt.Errorf("inbox sweeper already running")
	}
	if err := os.MkdirAll(s.config.Dir, 0755); err != nil {
		return fmt.Errorf("failed to create inbox: %w", err)
	}

	id, err := s.cron.AddFunc(s.config.Schedule, s.runScheduled)
	if err != nil {
		return fmt.Errorf("failed to schedule inbox sweep: %w", err)
	}
	s.entry = id
	s.running = true
	s.cron.Start()
	go s.runScheduled()

	s.logger.Info("Inbox sweeper started",
		zap.String("dir", s.config.Dir),
		zap.String("schedule", s.config.Schedule),
		zap.String("kind", string(s.config.Kind)),
	)
	return nil
}

// Stop cancels the current sweep and waits for it to return
func (s *Sweeper) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	s.mu.Unlock()

	s.cancel()
	<-s.cron.Stop().Done()
	s.sweepMu.Lock()
	s.sweepMu.Unlock()
	s.logger.Info("Inbox sweeper stopped")
}

// IsRunning returns whether the sweeper is active
func (s *Sweeper) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.running
}

// NextRun returns when the next scheduled sweep fires
func (s *Sweeper) NextRun() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.running {
		return time.Time{}
	}
	return s.cron.Entry(s.entry).Next
}

func (s *Sweeper) runScheduled() {
	if _, err := s.Sweep(s.ctx); err != nil && s.ctx.Err() == nil {
		s.logger.Error("Inbox sweep failed", zap.Error(err))
	}
}

// Sweep scans every image currently in the inbox. It returns nil when the
// inbox is empty.
func (s *Sweeper) Sweep(ctx context.Context) (*batch.Result, error) {
	s.sweepMu.Lock()
	defer s.sweepMu.Unlock()

	items, err := batch.CollectImages(s.config.Dir, false, s.config.Kind)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, nil
	}

	s.logger.Info("Found documents in inbox", zap.Int("count", len(items)))

	result, err := s.processor.Process(ctx, items, "inbox")
	if result == nil {
		return nil, err
	}

	for _, item := range result.Items {
		dest := ""
		switch {
		case item.Success:
			dest = processedDir
		case item.Error != "skipped" && ctx.Err() == nil:
			dest = failedDir
		default:
			continue
		}
		if mvErr := s.move(item.Path, dest); mvErr != nil {
			s.logger.Warn("Failed to move inbox file", zap.String("path", item.Path), zap.Error(mvErr))
		}
	}
	return result, err
}

func (s *Sweeper) move(path, sub string) error {
	dir := filepath.Join(s.config.Dir, sub)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	target := filepath.Join(dir, filepath.Base(path))
	if _, err := os.Stat(target); err == nil {
		ext := filepath.Ext(target)
		target = fmt.Sprintf("%s-%d%s", target[:len(target)-len(ext)], time.Now().UnixNano(), ext)
	}
	return os.Rename(path, target)
}

// cronLogger adapts zap to cron.Logger
type cronLogger struct {
	l *zap.SugaredLogger
}

func (c cronLogger) Info(msg string, keysAndValues ...interface{}) {
	c.l.Debugw(msg, keysAndValues...)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	c.l.Errorw(msg, append(keysAndValues, "error", err)...)
}
