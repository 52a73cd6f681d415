// Package store persists finished assessments. The orchestrator treats it
// as a fire-and-forget collaborator: a failed write is a soft warning,
// never a failed assessment.
package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/neurotriage/neurotriage/assess"
)

// Record is the persisted shape of one assessment. The full aggregate and
// diagnostics are kept as JSON payloads; the scalar columns exist for
// querying.
type Record struct {
	ID                string    `gorm:"primaryKey"`
	CreatedAt         time.Time `gorm:"index"`
	RiskLevel         string    `gorm:"index"`
	RiskScore         float64
	OverallConfidence float64
	Urgency           string
	Degraded          bool
	ErrorCount        int
	Assessment        string `gorm:"type:text"` // JSON AggregatedAssessment
	Diagnostics       string `gorm:"type:text"` // JSON Diagnostics
}

// Store is a sqlite-backed assessment archive.
type Store struct {
	db  *gorm.DB
	log zerolog.Logger
}

// Open creates or opens the sqlite database at path and migrates the schema.
func Open(path string, log zerolog.Logger) (*Store, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open assessment store: %w", err)
	}
	if err := db.AutoMigrate(&Record{}); err != nil {
		return nil, fmt.Errorf("migrate assessment store: %w", err)
	}
	return &Store{db: db, log: log}, nil
}

// Save implements assess.Saver.
func (s *Store) Save(ctx context.Context, a *assess.AggregatedAssessment, d *assess.Diagnostics) error {
	assessmentJSON, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("encode assessment: %w", err)
	}
	diagJSON, err := json.Marshal(d)
	if err != nil {
		return fmt.Errorf("encode diagnostics: %w", err)
	}

	rec := Record{
		ID:                a.ID,
		CreatedAt:         a.CreatedAt,
		OverallConfidence: a.OverallConfidence,
		Urgency:           string(a.Urgency),
		Degraded:          a.Degraded,
		ErrorCount:        len(d.Errors),
		Assessment:        string(assessmentJSON),
		Diagnostics:       string(diagJSON),
	}
	if a.Medical != nil {
		rec.RiskLevel = string(a.Medical.RiskLevel)
		rec.RiskScore = a.Medical.RiskScore
	}

	if err := s.db.WithContext(ctx).Create(&rec).Error; err != nil {
		return fmt.Errorf("insert assessment %s: %w", a.ID, err)
	}
	s.log.Debug().Str("assessment_id", a.ID).Msg("assessment persisted")
	return nil
}

// Get returns one stored record by id.
func (s *Store) Get(ctx context.Context, id string) (*Record, error) {
	var rec Record
	if err := s.db.WithContext(ctx).First(&rec, "id = ?", id).Error; err != nil {
		return nil, fmt.Errorf("load assessment %s: %w", id, err)
	}
	return &rec, nil
}

// Recent returns the newest n records.
func (s *Store) Recent(ctx context.Context, n int) ([]Record, error) {
	var recs []Record
	if err := s.db.WithContext(ctx).Order("created_at desc").Limit(n).Find(&recs).Error; err != nil {
		return nil, fmt.Errorf("list assessments: %w", err)
	}
	return recs, nil
}
