package repository

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"
	"unicode"

	"flight-tracker-service/internal/domain/entity"
	"flight-tracker-service/internal/domain/repository"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MemoryFlightRepository is an in-process FlightRepository. It keeps
// insertion order as the native order and mimics the Mongo text index by
// matching whole lower-cased tokens of route and airline.
type MemoryFlightRepository struct {
	mu      sync.RWMutex
	flights []*entity.Flight // insertion order
}

// NewMemoryFlightRepository creates an empty in-memory flight repository
func NewMemoryFlightRepository() *MemoryFlightRepository {
	return &MemoryFlightRepository{}
}

// FindByIntervalAndFutureDate finds flights of a tracking class that have not departed yet
func (r *MemoryFlightRepository) FindByIntervalAndFutureDate(_ context.Context, interval entity.Interval, now time.Time) ([]*entity.Flight, error) {
	return r.filter(func(f *entity.Flight) bool {
		return f.TrackingConfig.Interval == interval && f.IsUpcoming(now)
	}), nil
}

// FindByTextOrAll returns flights sharing at least one token with query, or all flights
func (r *MemoryFlightRepository) FindByTextOrAll(_ context.Context, query string) ([]*entity.Flight, error) {
	if query == "" {
		return r.filter(func(*entity.Flight) bool { return true }), nil
	}

	terms := tokenize(query)
	return r.filter(func(f *entity.Flight) bool {
		docTerms := tokenize(f.Route + " " + f.Airline)
		for term := range terms {
			if _, ok := docTerms[term]; ok {
				return true
			}
		}
		return false
	}), nil
}

// FindByRoute finds flights with exactly the given route
func (r *MemoryFlightRepository) FindByRoute(_ context.Context, route string) ([]*entity.Flight, error) {
	return r.filter(func(f *entity.Flight) bool { return f.Route == route }), nil
}

// FindAll returns every flight
func (r *MemoryFlightRepository) FindAll(_ context.Context) ([]*entity.Flight, error) {
	return r.filter(func(*entity.Flight) bool { return true }), nil
}

// FindByID finds a flight by id
func (r *MemoryFlightRepository) FindByID(_ context.Context, id string) (*entity.Flight, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if f := r.lookup(id); f != nil {
		return f.Clone(), nil
	}
	return nil, fmt.Errorf("%w: no flight with id %s", repository.ErrNotFound, id)
}

// Insert stores a copy of the flight and returns its id
func (r *MemoryFlightRepository) Insert(_ context.Context, flight *entity.Flight) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.conflicts(flight, "") {
		return "", conflictError()
	}
	if flight.ID == "" {
		flight.ID = primitive.NewObjectID().Hex()
	} else if r.lookup(flight.ID) != nil {
		return "", fmt.Errorf("%w: duplicate id %s", repository.ErrConflict, flight.ID)
	}

	r.flights = append(r.flights, flight.Clone())
	return flight.ID, nil
}

// ReplaceAll deletes every flight and inserts the given ones. Like an
// ordered bulk insert, it stops at the first conflict.
func (r *MemoryFlightRepository) ReplaceAll(_ context.Context, flights []*entity.Flight) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.flights = nil
	for i, flight := range flights {
		if r.conflicts(flight, "") {
			return i, conflictError()
		}
		if flight.ID == "" {
			flight.ID = primitive.NewObjectID().Hex()
		}
		r.flights = append(r.flights, flight.Clone())
	}
	return len(flights), nil
}

// Update applies field-level changes to a flight
func (r *MemoryFlightRepository) Update(_ context.Context, id string, changes entity.FlightChanges) error {
	if changes.Empty() {
		return fmt.Errorf("%w: no fields to update", repository.ErrValidation)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	current := r.lookup(id)
	if current == nil {
		return fmt.Errorf("%w: no flight with id %s", repository.ErrNotFound, id)
	}

	updated := current.Clone()
	if changes.Route != nil {
		updated.Route = *changes.Route
	}
	if changes.Airline != nil {
		updated.Airline = *changes.Airline
	}
	if changes.StartTracking != nil {
		updated.TrackingConfig.StartTracking = *changes.StartTracking
	}

	if r.conflicts(updated, id) {
		return conflictError()
	}
	*current = *updated
	return nil
}

// Delete removes a flight by id
func (r *MemoryFlightRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i, f := range r.flights {
		if f.ID == id {
			r.flights = append(r.flights[:i], r.flights[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("%w: no flight with id %s", repository.ErrNotFound, id)
}

// AppendPriceSample pushes a sample onto the end of the price history
func (r *MemoryFlightRepository) AppendPriceSample(_ context.Context, id string, sample entity.PricePoint) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	f := r.lookup(id)
	if f == nil {
		return fmt.Errorf("%w: no flight with id %s", repository.ErrNotFound, id)
	}
	f.PriceHistory = append(f.PriceHistory, sample)
	return nil
}

// SetLastTracked updates the tracker bookkeeping timestamp
func (r *MemoryFlightRepository) SetLastTracked(_ context.Context, id string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	f := r.lookup(id)
	if f == nil {
		return fmt.Errorf("%w: no flight with id %s", repository.ErrNotFound, id)
	}
	f.TrackingConfig.LastTracked = at
	return nil
}

func (r *MemoryFlightRepository) filter(keep func(*entity.Flight) bool) []*entity.Flight {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]*entity.Flight, 0)
	for _, f := range r.flights {
		if keep(f) {
			result = append(result, f.Clone())
		}
	}
	return result
}

// lookup must be called with r.mu held
func (r *MemoryFlightRepository) lookup(id string) *entity.Flight {
	for _, f := range r.flights {
		if f.ID == id {
			return f
		}
	}
	return nil
}

// conflicts must be called with r.mu held. skipID excludes the flight being updated.
func (r *MemoryFlightRepository) conflicts(candidate *entity.Flight, skipID string) bool {
	key := uniqueKey(candidate)
	for _, f := range r.flights {
		if f.ID != skipID && uniqueKey(f) == key {
			return true
		}
	}
	return false
}

// uniqueKey truncates the date to milliseconds, the precision Mongo stores
func uniqueKey(f *entity.Flight) string {
	return fmt.Sprintf("%s\x00%s\x00%d", f.Route, f.Airline, f.FlightDate.UnixMilli())
}

func conflictError() error {
	return fmt.Errorf("%w: flight with same route, airline and flightDate exists", repository.ErrConflict)
}

func tokenize(s string) map[string]struct{} {
	terms := make(map[string]struct{})
	for _, field := range strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	}) {
		terms[field] = struct{}{}
	}
	return terms
}

// Verify interface compliance at compile time.
var _ repository.FlightRepository = (*MemoryFlightRepository)(nil)
