package usecase

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"flight-tracker-service/internal/domain/entity"
	"flight-tracker-service/internal/domain/repository"
	"flight-tracker-service/pkg/logger"
	"flight-tracker-service/pkg/utils"

	"github.com/go-playground/validator/v10"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// FlightService handles single-record CRUD, route time series and bulk seeding
type FlightService struct {
	flightRepo  repository.FlightRepository
	validate    *validator.Validate
	invalidator SearchInvalidator
	logger      logger.Logger
}

// NewFlightService creates a new flight service. invalidator may be nil.
func NewFlightService(
	flightRepo repository.FlightRepository,
	invalidator SearchInvalidator,
	logger logger.Logger,
) *FlightService {
	validate := validator.New(validator.WithRequiredStructEnabled())
	// report json field names
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})

	return &FlightService{
		flightRepo:  flightRepo,
		validate:    validate,
		invalidator: invalidator,
		logger:      logger,
	}
}

// Create validates and inserts one flight, returning its id
func (s *FlightService) Create(ctx context.Context, input *entity.FlightInput) (string, error) {
	flight, err := s.toFlight(input)
	if err != nil {
		return "", err
	}

	id, err := s.flightRepo.Insert(ctx, flight)
	if err != nil {
		return "", err
	}
	s.invalidate()

	s.logger.Info("Flight created", "flightID", id, "route", flight.Route, "airline", flight.Airline)
	return id, nil
}

// Get returns one flight
func (s *FlightService) Get(ctx context.Context, id string) (*entity.Flight, error) {
	if err := validateID(id); err != nil {
		return nil, err
	}
	return s.flightRepo.FindByID(ctx, id)
}

// List returns every flight in store order
func (s *FlightService) List(ctx context.Context) ([]*entity.Flight, error) {
	return s.flightRepo.FindAll(ctx)
}

// Update applies a partial update. The flight date, price history, tracking
// interval and lastTracked cannot be changed through it.
func (s *FlightService) Update(ctx context.Context, id string, update *entity.FlightUpdate) error {
	if err := validateID(id); err != nil {
		return err
	}
	changes, err := s.toChanges(update)
	if err != nil {
		return err
	}

	if err := s.flightRepo.Update(ctx, id, changes); err != nil {
		return err
	}
	s.invalidate()

	s.logger.Info("Flight updated", "flightID", id)
	return nil
}

// Delete removes a flight
func (s *FlightService) Delete(ctx context.Context, id string) error {
	if err := validateID(id); err != nil {
		return err
	}
	if err := s.flightRepo.Delete(ctx, id); err != nil {
		return err
	}
	s.invalidate()

	s.logger.Info("Flight deleted", "flightID", id)
	return nil
}

// TimeSeries returns the price history of every flight on an exact route
func (s *FlightService) TimeSeries(ctx context.Context, route string) ([]entity.FlightSeries, error) {
	route = strings.TrimSpace(route)
	if route == "" {
		return nil, fmt.Errorf("%w: route parameter is required", repository.ErrValidation)
	}

	flights, err := s.flightRepo.FindByRoute(ctx, route)
	if err != nil {
		return nil, err
	}
	if len(flights) == 0 {
		return nil, fmt.Errorf("%w: no flights found for route %s", repository.ErrNotFound, route)
	}

	series := make([]entity.FlightSeries, 0, len(flights))
	for _, f := range flights {
		series = append(series, entity.FlightSeries{
			Airline:      f.Airline,
			FlightDate:   f.FlightDate,
			PriceHistory: f.PriceHistory,
		})
	}
	return series, nil
}

// Seed validates every input and then replaces the whole store with them
func (s *FlightService) Seed(ctx context.Context, inputs []entity.FlightInput) (int, error) {
	flights := make([]*entity.Flight, 0, len(inputs))
	for i := range inputs {
		flight, err := s.toFlight(&inputs[i])
		if err != nil {
			return 0, fmt.Errorf("flight %d: %w", i, err)
		}
		flights = append(flights, flight)
	}

	n, err := s.flightRepo.ReplaceAll(ctx, flights)
	s.invalidate()
	if err != nil {
		return n, err
	}

	s.logger.Info("Flights seeded", "count", n)
	return n, nil
}

func (s *FlightService) invalidate() {
	if s.invalidator != nil {
		s.invalidator.Invalidate()
	}
}

// toFlight validates a wire flight and parses its dates
func (s *FlightService) toFlight(input *entity.FlightInput) (*entity.Flight, error) {
	if input == nil {
		return nil, fmt.Errorf("%w: request body is required", repository.ErrValidation)
	}
	if err := s.validate.Struct(input); err != nil {
		return nil, validationError(err)
	}

	flightDate, err := parseField("flightDate", input.FlightDate)
	if err != nil {
		return nil, err
	}
	history, err := parseHistory(input.PriceHistory)
	if err != nil {
		return nil, err
	}
	startTracking, err := parseField("trackingConfig.startTracking", input.TrackingConfig.StartTracking)
	if err != nil {
		return nil, err
	}
	lastTracked := startTracking
	if input.TrackingConfig.LastTracked != "" {
		if lastTracked, err = parseField("trackingConfig.lastTracked", input.TrackingConfig.LastTracked); err != nil {
			return nil, err
		}
	}

	return &entity.Flight{
		Route:        input.Route,
		Airline:      input.Airline,
		FlightDate:   flightDate,
		PriceHistory: history,
		TrackingConfig: entity.TrackingConfig{
			Interval:      entity.Interval(input.TrackingConfig.Interval),
			StartTracking: startTracking,
			LastTracked:   lastTracked,
		},
	}, nil
}

// toChanges validates a partial update and parses its dates
func (s *FlightService) toChanges(update *entity.FlightUpdate) (entity.FlightChanges, error) {
	var changes entity.FlightChanges
	if update == nil {
		return changes, fmt.Errorf("%w: request body is required", repository.ErrValidation)
	}
	if update.FlightDate != nil {
		return changes, fmt.Errorf("%w: flightDate cannot be changed", repository.ErrValidation)
	}
	if update.PriceHistory != nil {
		return changes, fmt.Errorf("%w: priceHistory is append-only and managed by the tracker", repository.ErrValidation)
	}
	if tc := update.TrackingConfig; tc != nil {
		if tc.Interval != nil {
			return changes, fmt.Errorf("%w: trackingConfig.interval cannot be changed", repository.ErrValidation)
		}
		if tc.LastTracked != nil {
			return changes, fmt.Errorf("%w: trackingConfig.lastTracked is managed by the tracker", repository.ErrValidation)
		}
	}
	if err := s.validate.Struct(update); err != nil {
		return changes, validationError(err)
	}

	changes.Route = update.Route
	changes.Airline = update.Airline
	if update.TrackingConfig != nil && update.TrackingConfig.StartTracking != nil {
		start, err := parseField("trackingConfig.startTracking", *update.TrackingConfig.StartTracking)
		if err != nil {
			return changes, err
		}
		changes.StartTracking = &start
	}

	if changes.Empty() {
		return changes, fmt.Errorf("%w: no fields to update", repository.ErrValidation)
	}
	return changes, nil
}

func parseHistory(points []entity.PricePointInput) ([]entity.PricePoint, error) {
	history := make([]entity.PricePoint, 0, len(points))
	for i, p := range points {
		date, err := parseField(fmt.Sprintf("priceHistory[%d].date", i), p.Date)
		if err != nil {
			return nil, err
		}
		if p.Price == nil {
			return nil, fmt.Errorf("%w: priceHistory[%d].price is required", repository.ErrValidation, i)
		}
		history = append(history, entity.PricePoint{Date: date, Price: *p.Price})
	}
	return history, nil
}

func parseField(name, value string) (time.Time, error) {
	t, err := utils.ParseDate(value)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %s: %v", repository.ErrValidation, name, err)
	}
	return t, nil
}

func validateID(id string) error {
	if _, err := primitive.ObjectIDFromHex(id); err != nil {
		return fmt.Errorf("%w: invalid flight id %q", repository.ErrValidation, id)
	}
	return nil
}

// validationError flattens validator errors into one ErrValidation
func validationError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %v", repository.ErrValidation, err)
	}

	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		field := fe.Namespace()
		if i := strings.IndexByte(field, '.'); i >= 0 {
			field = field[i+1:]
		}
		if fe.Param() != "" {
			msgs = append(msgs, fmt.Sprintf("%s failed on %s=%s", field, fe.Tag(), fe.Param()))
		} else {
			msgs = append(msgs, fmt.Sprintf("%s failed on %s", field, fe.Tag()))
		}
	}
	return fmt.Errorf("%w: %s", repository.ErrValidation, strings.Join(msgs, "; "))
}
