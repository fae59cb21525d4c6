package usecase

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"flight-tracker-service/internal/domain/entity"
	"flight-tracker-service/internal/domain/repository"
	"flight-tracker-service/internal/infrastructure/cache"
	"flight-tracker-service/pkg/logger"
	"flight-tracker-service/pkg/metrics"
	"flight-tracker-service/pkg/utils"
)

// Score contributions
const (
	textScore      = 40.0
	priceScore     = 30.0
	dateScore      = 30.0
	dateDecayDays  = 12.0 // one point lost per 12 days away from the target date
	maxSearchScore = textScore + priceScore + dateScore
)

// ParseSearchQuery builds a SearchQuery from raw request parameters. Empty
// strings mean the parameter is absent.
func ParseSearchQuery(q, maxPrice, date string) (entity.SearchQuery, error) {
	query := entity.SearchQuery{Text: strings.TrimSpace(q)}

	if maxPrice = strings.TrimSpace(maxPrice); maxPrice != "" {
		price, err := strconv.ParseFloat(maxPrice, 64)
		if err != nil || math.IsNaN(price) || math.IsInf(price, 0) {
			return entity.SearchQuery{}, fmt.Errorf("%w: maxPrice must be a number, got %q", repository.ErrValidation, maxPrice)
		}
		query.MaxPrice = &price
	}

	if date = strings.TrimSpace(date); date != "" {
		target, err := utils.ParseDate(date)
		if err != nil {
			return entity.SearchQuery{}, fmt.Errorf("%w: date must be an ISO date, got %q", repository.ErrValidation, date)
		}
		query.TargetDate = &target
	}

	return query, nil
}

// Rank scores, filters and orders candidate flights. Candidates keep their
// relative order when scores tie.
func Rank(flights []*entity.Flight, query entity.SearchQuery) ([]entity.ScoredFlight, error) {
	needle := strings.ToLower(query.Text)

	results := make([]entity.ScoredFlight, 0, len(flights))
	for _, flight := range flights {
		avg, ok := flight.AveragePrice()
		if !ok {
			return nil, fmt.Errorf("flight %s has an empty price history", flight.ID)
		}

		if query.MaxPrice != nil && avg > *query.MaxPrice {
			continue
		}

		var score float64
		if needle != "" &&
			(strings.Contains(strings.ToLower(flight.Route), needle) ||
				strings.Contains(strings.ToLower(flight.Airline), needle)) {
			score += textScore
		}
		if query.MaxPrice != nil {
			score += priceScore
		}
		if query.TargetDate != nil {
			score += dateProximity(flight.FlightDate, *query.TargetDate)
		}

		results = append(results, entity.ScoredFlight{
			Route:        flight.Route,
			Airline:      flight.Airline,
			FlightDate:   flight.FlightDate,
			AvgPrice:     utils.Round(avg, 2),
			PriceHistory: flight.PriceHistory,
			Score:        utils.Round(score, 1),
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	return results, nil
}

// dateProximity decays linearly from 30 on the target date to 0 at 360 days
func dateProximity(flightDate, target time.Time) float64 {
	days := utils.DaysBetween(flightDate, target)
	return math.Max(0, dateScore-float64(days)/dateDecayDays)
}

// FlightSearch answers ranked searches, caching results until the next write
type FlightSearch struct {
	flightRepo repository.FlightRepository
	cache      *cache.SearchCache
	metrics    *metrics.Metrics
	logger     logger.Logger
}

// NewFlightSearch creates a flight search. cache and metrics may be nil.
func NewFlightSearch(
	flightRepo repository.FlightRepository,
	cache *cache.SearchCache,
	metrics *metrics.Metrics,
	logger logger.Logger,
) *FlightSearch {
	return &FlightSearch{
		flightRepo: flightRepo,
		cache:      cache,
		metrics:    metrics,
		logger:     logger,
	}
}

// Search retrieves candidates through the store's text index and ranks them.
// A text query with no index hits ranks every flight instead; those flights
// get no text contribution.
func (s *FlightSearch) Search(ctx context.Context, query entity.SearchQuery) ([]entity.ScoredFlight, error) {
	if s.metrics != nil {
		s.metrics.SearchRequests.Inc()
	}

	key := cacheKey(query)
	var generation uint64
	if s.cache != nil {
		if results, ok := s.cache.Get(key); ok {
			if s.metrics != nil {
				s.metrics.SearchCacheHits.Inc()
			}
			return results, nil
		}
		generation = s.cache.Generation()
	}

	flights, err := s.flightRepo.FindByTextOrAll(ctx, query.Text)
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve search candidates: %w", err)
	}
	if len(flights) == 0 && query.Text != "" {
		if flights, err = s.flightRepo.FindAll(ctx); err != nil {
			return nil, fmt.Errorf("failed to retrieve search candidates: %w", err)
		}
	}

	results, err := Rank(flights, query)
	if err != nil {
		s.logger.Error("Failed to rank flights", "query", query.Text, "error", err)
		return nil, err
	}

	if s.cache != nil {
		s.cache.SetIfGeneration(key, results, generation)
	}
	s.logger.Debug("Search completed", "query", query.Text, "candidates", len(flights), "results", len(results))
	return results, nil
}

// Invalidate drops every cached result
func (s *FlightSearch) Invalidate() {
	if s.cache != nil {
		s.cache.Flush()
	}
}

func cacheKey(query entity.SearchQuery) string {
	var b strings.Builder
	b.WriteString(query.Text)
	b.WriteByte(0)
	if query.MaxPrice != nil {
		b.WriteString(strconv.FormatFloat(*query.MaxPrice, 'g', -1, 64))
	}
	b.WriteByte(0)
	if query.TargetDate != nil {
		b.WriteString(query.TargetDate.UTC().Format(time.RFC3339Nano))
	}
	return b.String()
}
