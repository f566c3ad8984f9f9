// Package repository persists run-level summary metadata. Per-user
// baselines are never stored; each run's profiles die with the run.
package repository

import (
	"context"
	"fmt"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// AnalysisRun is one finished run's summary row.
type AnalysisRun struct {
	ID                string    `gorm:"primaryKey" json:"id"`
	Filename          string    `json:"filename"`
	TotalTransactions int       `json:"total_transactions"`
	AnomalyCount      int       `json:"anomaly_count"`
	HighRiskPercent   float64   `json:"high_risk_percent"`
	DegradedMode      bool      `json:"degraded_mode"`
	Note              string    `json:"note,omitempty"`
	CreatedAt         time.Time `json:"created_at"`
}

type RunRepository struct {
	db *gorm.DB
}

// NewRunRepository opens (or creates) the sqlite database at path and
// migrates the run table.
func NewRunRepository(path string) (*RunRepository, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("repository: open %s: %w", path, err)
	}
	if err := db.AutoMigrate(&AnalysisRun{}); err != nil {
		return nil, fmt.Errorf("repository: migrate: %w", err)
	}
	return &RunRepository{db: db}, nil
}

func (r *RunRepository) Save(ctx context.Context, run *AnalysisRun) error {
	return r.db.WithContext(ctx).Create(run).Error
}

func (r *RunRepository) GetByID(ctx context.Context, id string) (*AnalysisRun, error) {
	var run AnalysisRun
	if err := r.db.WithContext(ctx).First(&run, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &run, nil
}

// List returns the most recent runs, newest first.
func (r *RunRepository) List(ctx context.Context, limit int) ([]AnalysisRun, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	var runs []AnalysisRun
	err := r.db.WithContext(ctx).
		Order("created_at DESC").
		Limit(limit).
		Find(&runs).Error
	return runs, err
}
