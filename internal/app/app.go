// Package app wires configuration into the running scanner components.
package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/gmsas95/idscan/internal/api"
	"github.com/gmsas95/idscan/internal/batch"
	"github.com/gmsas95/idscan/internal/config"
	apperrors "github.com/gmsas95/idscan/internal/errors"
	"github.com/gmsas95/idscan/internal/extract"
	"github.com/gmsas95/idscan/internal/inbox"
	"github.com/gmsas95/idscan/internal/metrics"
	"github.com/gmsas95/idscan/internal/mrz"
	"github.com/gmsas95/idscan/internal/ocr"
	"github.com/gmsas95/idscan/internal/output"
	"github.com/gmsas95/idscan/internal/scan"
	"github.com/gmsas95/idscan/internal/store"
)

type App struct {
	Config  *config.Config
	Store   *store.Store
	Logger  *zap.Logger
	Metrics *metrics.Metrics
	Engine  ocr.Engine
	Writer  *output.Writer
	Scans   *scan.Service
	Batch   *batch.Processor
	Version string

	closers []func() error
}

// New builds the OCR engine stack, the store and the scan service from cfg
func New(cfg *config.Config, logger *zap.Logger, version string) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	app := &App{
		Config:  cfg,
		Logger:  logger,
		Metrics: metrics.Default(),
		Version: version,
	}

	engine, err := app.buildEngine()
	if err != nil {
		app.Close()
		return nil, err
	}
	app.Engine = engine

	st, err := store.New(cfg)
	if err != nil {
		app.Close()
		return nil, err
	}
	app.Store = st
	app.closers = append(app.closers, st.Close)

	writer, err := output.NewWriter(cfg.Output.Dir, cfg.Output.Formats)
	if err != nil {
		app.Close()
		return nil, err
	}
	app.Writer = writer

	opts, err := app.scanOptions()
	if err != nil {
		app.Close()
		return nil, err
	}
	app.Scans = app.newService(writer, opts)

	app.Batch = batch.NewProcessor(app.Scans, app.batchConfig(), logger).
		WithStore(st).
		WithMetrics(app.Metrics)

	return app, nil
}

// buildEngine returns the configured engine behind a circuit breaker and,
// when enabled, a badger-backed cache
func (app *App) buildEngine() (ocr.Engine, error) {
	cfg := app.Config

	var engine ocr.Engine
	switch cfg.OCR.Engine {
	case "gosseract":
		g, err := ocr.NewGosseract()
		if err != nil {
			return nil, apperrors.Wrap(err, apperrors.ErrOCRUnavailable.Code, "gosseract engine unavailable")
		}
		app.closers = append(app.closers, g.Close)
		engine = g
	default:
		engine = ocr.NewTesseract(cfg.OCR.Binary)
	}

	if !engine.IsAvailable() {
		app.Logger.Warn("OCR engine not available; image scans will fail",
			zap.String("engine", engine.Name()),
		)
	}

	engine = ocr.NewBreaker(engine, ocr.BreakerConfig{
		MaxFailures: uint32(cfg.OCR.Breaker.MaxFailures),
		OpenTimeout: time.Duration(cfg.OCR.Breaker.OpenTimeout) * time.Second,
	}, app.Logger)

	if cfg.OCR.Cache {
		db, err := ocr.OpenBadger(cfg.Storage.BadgerPath)
		if err != nil {
			app.Logger.Warn("OCR cache disabled", zap.String("path", cfg.Storage.BadgerPath), zap.Error(err))
		} else {
			app.closers = append(app.closers, db.Close)
			engine = ocr.NewCache(engine, db, cfg.CacheTTL(), app.Logger)
		}
	}

	return engine, nil
}

func (app *App) scanOptions() (scan.Options, error) {
	cfg := app.Config

	profile, err := extract.ProfileByName(cfg.Extract.Profile)
	if err != nil {
		return scan.Options{}, apperrors.Wrap(err, apperrors.ErrConfigInvalid.Code, "invalid extraction profile")
	}

	opts := scan.DefaultOptions()
	opts.Profile = profile.WithRegion(cfg.Extract.RegionSpecific).WithPrefix(cfg.Extract.FixedPrefix)
	opts.ResizeWidth = cfg.Extract.ResizeWidth
	opts.OCR = ocr.Options{
		Language:    cfg.OCR.Language,
		PageSegMode: cfg.OCR.PSM,
	}
	opts.Timeout = cfg.OCRTimeout()
	opts.RedactRawText = cfg.Security.RedactRawText
	return opts, nil
}

func (app *App) newService(writer *output.Writer, opts scan.Options) *scan.Service {
	cfg := app.Config
	return scan.New(scan.Config{
		Engine: app.Engine,
		Locator: mrz.NewLocator(mrz.LocatorConfig{
			AnalysisWidth:  cfg.MRZ.AnalysisWidth,
			MinWidthRatio:  cfg.MRZ.MinWidthRatio,
			MinHeightRatio: cfg.MRZ.MinHeightRatio,
			FallbackRatio:  cfg.MRZ.FallbackRatio,
			PadRatio:       cfg.MRZ.PadRatio,
		}),
		Store:   app.Store,
		Writer:  writer,
		Metrics: app.Metrics,
		Logger:  app.Logger,
		Options: opts,
	})
}

func (app *App) batchConfig() batch.Config {
	cfg := app.Config.Batch
	return batch.Config{
		MaxConcurrency: cfg.Concurrency,
		Timeout:        time.Duration(cfg.Timeout) * time.Second,
		RetryCount:     cfg.Retries,
		RetryDelay:     time.Duration(cfg.RetryDelay) * time.Millisecond,
		SkipInvalid:    true,
		Rate:           cfg.Rate,
		Burst:          cfg.Burst,
	}
}

// NewSweeper creates the inbox sweeper for the configured folder
func (app *App) NewSweeper() (*inbox.Sweeper, error) {
	kind, ok := extract.ParseKind(app.Config.Inbox.Kind)
	if !ok {
		kind = extract.KindLicense
	}
	return inbox.NewSweeper(inbox.Config{
		Dir:      app.Config.Inbox.Dir,
		Schedule: app.Config.Inbox.Schedule,
		Kind:     kind,
	}, app.Batch, app.Logger)
}

// NewServer creates the HTTP API. Uploads are stored in history but not
// written to the output folder.
func (app *App) NewServer() (*api.Server, error) {
	opts, err := app.scanOptions()
	if err != nil {
		return nil, err
	}
	return api.New(api.Deps{
		Config:  app.Config,
		Scans:   app.newService(nil, opts),
		Store:   app.Store,
		Metrics: app.Metrics,
		Logger:  app.Logger,
		Version: app.Version,
	}), nil
}

// RunServer serves the API until SIGINT/SIGTERM. With watchInbox the inbox
// sweeper runs alongside it.
func (app *App) RunServer(watchInbox bool) error {
	server, err := app.NewServer()
	if err != nil {
		return err
	}

	var sweeper *inbox.Sweeper
	if watchInbox {
		sweeper, err = app.NewSweeper()
		if err != nil {
			return err
		}
		if err := sweeper.Start(); err != nil {
			return err
		}
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	app.Logger.Info("Server started",
		zap.String("address", app.Config.Server.Address),
		zap.Int("port", app.Config.Server.Port),
		zap.String("url", fmt.Sprintf("http://localhost:%d", app.Config.Server.Port)),
		zap.String("engine", app.Engine.Name()),
		zap.Bool("inbox", watchInbox),
	)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case <-quit:
	case err := <-errCh:
		if sweeper != nil {
			sweeper.Stop()
		}
		return fmt.Errorf("server error: %w", err)
	}

	app.Logger.Info("Shutting down...")

	if sweeper != nil {
		sweeper.Stop()
	}

	if err := server.Shutdown(); err != nil {
		app.Logger.Error("Server shutdown error", zap.Error(err))
	}
	return nil
}

// RunWatch sweeps the inbox on its schedule and whenever new images arrive,
// until SIGINT/SIGTERM
func (app *App) RunWatch() error {
	sweeper, err := app.NewSweeper()
	if err != nil {
		return err
	}
	if err := sweeper.Start(); err != nil {
		return err
	}
	defer sweeper.Stop()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	err = sweeper.Watch(ctx, inbox.DefaultSettle)
	app.Logger.Info("Shutting down...")
	return err
}

// Close releases the store and the OCR cache, newest first
func (app *App) Close() error {
	var firstErr error
	for i := len(app.closers) - 1; i >= 0; i-- {
		if err := app.closers[i](); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	app.closers = nil
	return firstErr
}
