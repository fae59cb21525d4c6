package repository

import (
	"context"

	"flight-tracker-service/internal/domain/entity"
)

// TrackingRunRepository defines the interface for tracking run audit records
type TrackingRunRepository interface {
	Create(ctx context.Context, run *entity.TrackingRun) error
	ListRecent(ctx context.Context, interval entity.Interval, limit int) ([]*entity.TrackingRun, error)
}
