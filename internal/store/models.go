package store

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Scan statuses
const (
	StatusOK     = "ok"
	StatusFailed = "failed"
)

// Scan is one processed document
type Scan struct {
	ID          string          `gorm:"primaryKey" json:"id"`
	Kind        string          `gorm:"index" json:"kind"` // license, ssn, passport
	Source      string          `json:"source"`            // file path or upload name
	Engine      string          `json:"engine"`
	Profile     string          `json:"profile,omitempty"`
	Status      string          `gorm:"index" json:"status"`
	FieldsFound int             `json:"fields_found"`
	Result      json.RawMessage `json:"result,omitempty" gorm:"type:text"`
	RawText     string          `json:"raw_text,omitempty" gorm:"type:text"`
	Error       string          `json:"error,omitempty"`
	DurationMs  int64           `json:"duration_ms"`
	BatchID     *string         `gorm:"index" json:"batch_id,omitempty"`
	CreatedAt   time.Time       `gorm:"index" json:"created_at"`
}

// BatchRun summarizes one batch or inbox sweep
type BatchRun struct {
	ID         string     `gorm:"primaryKey" json:"id"`
	Kind       string     `json:"kind"`
	Trigger    string     `json:"trigger"` // cli, inbox
	Total      int        `json:"total"`
	Succeeded  int        `json:"succeeded"`
	Failed     int        `json:"failed"`
	DurationMs int64      `json:"duration_ms"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at"`
}

// BeforeCreate hook for Scan
func (s *Scan) BeforeCreate(tx *gorm.DB) error {
	if s.ID == "" {
		s.ID = generateID("scan")
	}
	if s.Status == "" {
		s.Status = StatusOK
	}
	return nil
}

// BeforeCreate hook for BatchRun
func (b *BatchRun) BeforeCreate(tx *gorm.DB) error {
	if b.ID == "" {
		b.ID = generateID("batch")
	}
	if b.Trigger == "" {
		b.Trigger = "cli"
	}
	return nil
}

// generateID creates a prefixed random ID
func generateID(prefix string) string {
	return prefix + "_" + uuid.NewString()
}
