package app

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gmsas95/idscan/internal/config"
	apperrors "github.com/gmsas95/idscan/internal/errors"
	"github.com/gmsas95/idscan/internal/extract"
	"github.com/gmsas95/idscan/internal/store"
)

func loadConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg, err := config.Load("", t.TempDir())
	require.NoError(t, err)
	cfg.OCR.Binary = "idscan-test-missing-tesseract"
	return cfg
}

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		version string
		cache   bool
	}{
		{name: "with cache", version: "1.0.0", cache: true},
		{name: "without cache", version: "dev"},
		{name: "empty version", version: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := loadConfig(t)
			cfg.OCR.Cache = tt.cache

			app, err := New(cfg, nil, tt.version)
			require.NoError(t, err)
			defer app.Close()

			assert.Equal(t, tt.version, app.Version)
			assert.Equal(t, "tesseract", app.Engine.Name())
			assert.False(t, app.Engine.IsAvailable())
			assert.NotNil(t, app.Scans)
			assert.NotNil(t, app.Batch)
			assert.Equal(t, cfg.Output.Dir, app.Writer.Dir())

			if tt.cache {
				assert.DirExists(t, cfg.Storage.BadgerPath)
			}
		})
	}
}

func TestNew_GosseractNotCompiledIn(t *testing.T) {
	cfg := loadConfig(t)
	cfg.OCR.Engine = "gosseract"

	_, err := New(cfg, nil, "test")
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrOCRUnavailable.Code, apperrors.GetCode(err))
}

func TestScansRecordHistory(t *testing.T) {
	cfg := loadConfig(t)
	app, err := New(cfg, nil, "test")
	require.NoError(t, err)
	defer app.Close()

	out, err := app.Scans.ParseMRZ(context.Background(), "mrz.txt",
		"P<USASMITH<<JOHN<<<<<<<<<<<<<<<<<<<<<<<<<<<\nL898902C36USA6908061F9204159<<<<<<<<<<<<<06")
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(cfg.Output.Dir, "mrz.json"))

	scans, err := app.Store.ListScans(store.ListOptions{Kind: string(extract.KindPassport)})
	require.NoError(t, err)
	require.Len(t, scans, 1)
	assert.Equal(t, out.ID, scans[0].ID)
}

func TestNewServerAndSweeper(t *testing.T) {
	cfg := loadConfig(t)
	cfg.Inbox.Kind = "ssn"
	app, err := New(cfg, nil, "test")
	require.NoError(t, err)
	defer app.Close()

	srv, err := app.NewServer()
	require.NoError(t, err)
	assert.NotNil(t, srv.App())

	sweeper, err := app.NewSweeper()
	require.NoError(t, err)
	assert.False(t, sweeper.IsRunning())
}

func TestClose_Idempotent(t *testing.T) {
	app, err := New(loadConfig(t), nil, "test")
	require.NoError(t, err)
	assert.NoError(t, app.Close())
	assert.NoError(t, app.Close())
}
