package repository

import (
	"context"
	"time"

	"flight-tracker-service/internal/domain/entity"
)

// FlightRepository defines the interface for flight document operations.
// Implementations enforce uniqueness of (route, airline, flightDate) and
// return ErrConflict on violation.
type FlightRepository interface {
	// FindByIntervalAndFutureDate returns flights of the given class whose
	// flight date is strictly after now.
	FindByIntervalAndFutureDate(ctx context.Context, interval entity.Interval, now time.Time) ([]*entity.Flight, error)
	// FindByTextOrAll returns text-index matches on route/airline, or every
	// flight when query is empty. Results keep the store's native order.
	FindByTextOrAll(ctx context.Context, query string) ([]*entity.Flight, error)
	FindByRoute(ctx context.Context, route string) ([]*entity.Flight, error)
	FindByID(ctx context.Context, id string) (*entity.Flight, error)
	FindAll(ctx context.Context) ([]*entity.Flight, error)

	Insert(ctx context.Context, flight *entity.Flight) (string, error)
	ReplaceAll(ctx context.Context, flights []*entity.Flight) (int, error)
	Update(ctx context.Context, id string, changes entity.FlightChanges) error
	Delete(ctx context.Context, id string) error

	AppendPriceSample(ctx context.Context, id string, sample entity.PricePoint) error
	SetLastTracked(ctx context.Context, id string, at time.Time) error
}
