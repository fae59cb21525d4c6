package repository

import (
	"context"
	"time"

	"flight-tracker-service/internal/domain/entity"
	"flight-tracker-service/internal/domain/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormTrackingRunRepository implements the TrackingRunRepository interface
type GormTrackingRunRepository struct {
	db *gorm.DB
}

// NewGormTrackingRunRepository creates a new GORM tracking run repository
func NewGormTrackingRunRepository(db *gorm.DB) *GormTrackingRunRepository {
	return &GormTrackingRunRepository{
		db: db,
	}
}

// TrackingRuns GORM model for database mapping
type TrackingRuns struct {
	ID         string    `gorm:"column:id;primaryKey"`
	Interval   string    `gorm:"column:interval_class;index:idx_tracking_runs_interval_started"`
	Trigger    string    `gorm:"column:trigger_kind"`
	StartedAt  time.Time `gorm:"column:started_at;index:idx_tracking_runs_interval_started"`
	FinishedAt time.Time `gorm:"column:finished_at"`
	Selected   int       `gorm:"column:selected"`
	Updated    int       `gorm:"column:updated"`
	Failed     int       `gorm:"column:failed"`
	Skipped    bool      `gorm:"column:skipped"`
	CreatedAt  time.Time
}

// TableName overrides the default table name
func (TrackingRuns) TableName() string {
	return "tracking_runs"
}

// AutoMigrate creates or updates the tracking_runs table
func (r *GormTrackingRunRepository) AutoMigrate() error {
	return r.db.AutoMigrate(&TrackingRuns{})
}

// Create inserts a new tracking run into the database
func (r *GormTrackingRunRepository) Create(ctx context.Context, run *entity.TrackingRun) error {
	if run.ID == "" {
		run.ID = uuid.NewString()
	}

	model := TrackingRuns{
		ID:         run.ID,
		Interval:   string(run.Interval),
		Trigger:    run.Trigger,
		StartedAt:  run.StartedAt,
		FinishedAt: run.FinishedAt,
		Selected:   run.Selected,
		Updated:    run.Updated,
		Failed:     run.Failed,
		Skipped:    run.Skipped,
	}

	return r.db.WithContext(ctx).Create(&model).Error
}

// Verify interface compliance at compile time.
var _ repository.TrackingRunRepository = (*GormTrackingRunRepository)(nil)

// ListRecent returns the most recent runs of an interval class, newest first
func (r *GormTrackingRunRepository) ListRecent(ctx context.Context, interval entity.Interval, limit int) ([]*entity.TrackingRun, error) {
	var runs []TrackingRuns
	result := r.db.WithContext(ctx).
		Where("interval_class = ?", string(interval)).
		Order("started_at DESC").
		Limit(limit).
		Find(&runs)

	if result.Error != nil {
		return nil, result.Error
	}

	// Convert to domain entities
	entities := make([]*entity.TrackingRun, 0, len(runs))
	for _, run := range runs {
		entities = append(entities, &entity.TrackingRun{
			ID:         run.ID,
			Interval:   entity.Interval(run.Interval),
			Trigger:    run.Trigger,
			StartedAt:  run.StartedAt,
			FinishedAt: run.FinishedAt,
			Selected:   run.Selected,
			Updated:    run.Updated,
			Failed:     run.Failed,
			Skipped:    run.Skipped,
		})
	}

	return entities, nil
}
