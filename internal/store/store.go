// Package store persists scan history in SQLite through GORM.
package store

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/glebarez/go-sqlite" // Pure Go SQLite driver
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/gmsas95/idscan/internal/config"
	apperrors "github.com/gmsas95/idscan/internal/errors"
)

// Store provides access to the scan history database
type Store struct {
	db     *gorm.DB
	sqlDB  *sql.DB
	config *config.StorageConfig
}

// New creates a new Store instance
func New(cfg *config.Config) (*Store, error) {
	sqlitePath := cfg.Storage.SQLitePath
	if sqlitePath == "" {
		sqlitePath = filepath.Join(cfg.Storage.DataDir, "idscan.db")
	}
	if err := os.MkdirAll(filepath.Dir(sqlitePath), 0755); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrStore.Code, "failed to create database directory")
	}

	// Open SQLite with optimizations
	sqliteDB, err := sql.Open("sqlite", sqlitePath+"?_journal=WAL&_synchronous=NORMAL&_busy_timeout=5000&_cache_size=-64000")
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrStore.Code, "failed to open sqlite")
	}

	sqliteDB.SetMaxOpenConns(10)
	sqliteDB.SetMaxIdleConns(5)
	sqliteDB.SetConnMaxLifetime(time.Hour)

	db, err := gorm.Open(sqlite.Dialector{Conn: sqliteDB}, &gorm.Config{
		Logger:                 logger.Default.LogMode(logger.Silent),
		SkipDefaultTransaction: true,
		PrepareStmt:            true,
	})
	if err != nil {
		sqliteDB.Close()
		return nil, apperrors.Wrap(err, apperrors.ErrStore.Code, "failed to open sqlite")
	}

	if err := db.AutoMigrate(&Scan{}, &BatchRun{}); err != nil {
		sqliteDB.Close()
		return nil, apperrors.Wrap(err, apperrors.ErrStore.Code, "failed to migrate")
	}

	return &Store{
		db:     db,
		sqlDB:  sqliteDB,
		config: &cfg.Storage,
	}, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.sqlDB.Close()
}

// DB returns the GORM database instance
func (s *Store) DB() *gorm.DB {
	return s.db
}

// ==================== Scan Methods ====================

// SaveScan inserts a scan, assigning an ID when empty
func (s *Store) SaveScan(scan *Scan) error {
	if err := s.db.Create(scan).Error; err != nil {
		return apperrors.Wrap(err, apperrors.ErrStore.Code, "failed to save scan")
	}
	return nil
}

// GetScan retrieves a scan by ID
func (s *Store) GetScan(id string) (*Scan, error) {
	var scan Scan
	if err := s.db.First(&scan, "id = ?", id).Error; err != nil {
		return nil, notFound(err, "scan "+id)
	}
	return &scan, nil
}

// ListOptions filters ListScans
type ListOptions struct {
	Kind    string
	Status  string
	BatchID string
	Limit   int
	Offset  int
}

// ListScans returns scans newest first
func (s *Store) ListScans(opts ListOptions) ([]Scan, error) {
	if opts.Limit <= 0 {
		opts.Limit = 50
	}

	query := s.db.Model(&Scan{})
	if opts.Kind != "" {
		query = query.Where("kind = ?", opts.Kind)
	}
	if opts.Status != "" {
		query = query.Where("status = ?", opts.Status)
	}
	if opts.BatchID != "" {
		query = query.Where("batch_id = ?", opts.BatchID)
	}

	var scans []Scan
	err := query.Order("created_at DESC").Limit(opts.Limit).Offset(opts.Offset).Find(&scans).Error
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrStore.Code, "failed to list scans")
	}
	return scans, nil
}

// DeleteScan removes a scan
func (s *Store) DeleteScan(id string) error {
	res := s.db.Delete(&Scan{}, "id = ?", id)
	if res.Error != nil {
		return apperrors.Wrap(res.Error, apperrors.ErrStore.Code, "failed to delete scan")
	}
	if res.RowsAffected == 0 {
		return apperrors.New(apperrors.ErrNotFound.Code, "scan "+id+" not found")
	}
	return nil
}

// KindStats aggregates scans of one document kind
type KindStats struct {
	Kind        string  `json:"kind"`
	Total       int64   `json:"total"`
	Failed      int64   `json:"failed"`
	AvgFields   float64 `json:"avg_fields"`
	AvgDuration float64 `json:"avg_duration_ms"`
}

// Stats returns per-kind totals
func (s *Store) Stats() ([]KindStats, error) {
	var stats []KindStats
	err := s.db.Model(&Scan{}).
		Select("kind, COUNT(*) AS total, SUM(CASE WHEN status = ? THEN 1 ELSE 0 END) AS failed, AVG(fields_found) AS avg_fields, AVG(duration_ms) AS avg_duration", StatusFailed).
		Group("kind").
		Order("kind").
		Scan(&stats).Error
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrStore.Code, "failed to compute stats")
	}
	return stats, nil
}

// ==================== Batch Methods ====================

// SaveBatchRun inserts or updates a batch run
func (s *Store) SaveBatchRun(run *BatchRun) error {
	if err := s.db.Save(run).Error; err != nil {
		return apperrors.Wrap(err, apperrors.ErrStore.Code, "failed to save batch run")
	}
	return nil
}

// ListBatchRuns returns the most recent batch runs
func (s *Store) ListBatchRuns(limit int) ([]BatchRun, error) {
	if limit <= 0 {
		limit = 20
	}
	var runs []BatchRun
	if err := s.db.Order("started_at DESC").Limit(limit).Find(&runs).Error; err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrStore.Code, "failed to list batch runs")
	}
	return runs, nil
}

func notFound(err error, what string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperrors.Wrap(err, apperrors.ErrNotFound.Code, fmt.Sprintf("%s not found", what))
	}
	return apperrors.Wrap(err, apperrors.ErrStore.Code, "query failed")
}
