package entity

import "time"

// FlightInput is the wire form of a flight for inserts and seed files.
// Dates arrive as ISO strings and are parsed by the service.
type FlightInput struct {
	Route          string               `json:"route" validate:"required"`
	Airline        string               `json:"airline" validate:"required"`
	FlightDate     string               `json:"flightDate" validate:"required"`
	PriceHistory   []PricePointInput    `json:"priceHistory" validate:"required,min=1,dive"`
	TrackingConfig *TrackingConfigInput `json:"trackingConfig" validate:"required"`
}

type PricePointInput struct {
	Date  string   `json:"date" validate:"required"`
	Price *float64 `json:"price" validate:"required,gte=0"`
}

type TrackingConfigInput struct {
	Interval      string `json:"interval" validate:"required,oneof=15min 1week 15days"`
	StartTracking string `json:"startTracking" validate:"required"`
	LastTracked   string `json:"lastTracked,omitempty"`
}

// FlightUpdate is a partial update; nil fields are left untouched.
// FlightDate, PriceHistory, Interval and LastTracked are accepted on the wire
// only so they can be rejected: the date is immutable and the history is
// append-only through the tracker.
type FlightUpdate struct {
	Route          *string               `json:"route,omitempty" validate:"omitempty,min=1"`
	Airline        *string               `json:"airline,omitempty" validate:"omitempty,min=1"`
	FlightDate     *string               `json:"flightDate,omitempty"`
	PriceHistory   []PricePointInput     `json:"priceHistory,omitempty"`
	TrackingConfig *TrackingConfigUpdate `json:"trackingConfig,omitempty"`
}

type TrackingConfigUpdate struct {
	Interval      *string `json:"interval,omitempty"`
	StartTracking *string `json:"startTracking,omitempty"`
	LastTracked   *string `json:"lastTracked,omitempty"`
}

// FlightChanges is a validated FlightUpdate ready for the store
type FlightChanges struct {
	Route         *string
	Airline       *string
	StartTracking *time.Time
}

// Empty reports whether no field is set
func (c FlightChanges) Empty() bool {
	return c.Route == nil && c.Airline == nil && c.StartTracking == nil
}
