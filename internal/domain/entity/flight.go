// internal/domain/entity/flight.go
package entity

import (
	"time"
)

// Interval is the tracking cadence class of a flight
type Interval string

const (
	Interval15Min  Interval = "15min"
	Interval1Week  Interval = "1week"
	Interval15Days Interval = "15days"
)

// Intervals lists every tracking class in firing-frequency order
var Intervals = []Interval{Interval15Min, Interval1Week, Interval15Days}

// Valid reports whether i is one of the known tracking classes
func (i Interval) Valid() bool {
	switch i {
	case Interval15Min, Interval1Week, Interval15Days:
		return true
	}
	return false
}

// PricePoint is one sample of a flight's price history
type PricePoint struct {
	Date  time.Time `json:"date" bson:"date"`
	Price float64   `json:"price" bson:"price"`
}

// TrackingConfig controls how often the tracker resamples a flight
type TrackingConfig struct {
	Interval      Interval  `json:"interval" bson:"interval"`
	StartTracking time.Time `json:"startTracking" bson:"startTracking"`
	LastTracked   time.Time `json:"lastTracked" bson:"lastTracked"`
}

// Flight is one tracked route/airline/date combination.
// (route, airline, flightDate) is unique across the store.
type Flight struct {
	ID             string         `json:"_id,omitempty" bson:"_id,omitempty"`
	Route          string         `json:"route" bson:"route"`
	Airline        string         `json:"airline" bson:"airline"`
	FlightDate     time.Time      `json:"flightDate" bson:"flightDate"`
	PriceHistory   []PricePoint   `json:"priceHistory" bson:"priceHistory"`
	TrackingConfig TrackingConfig `json:"trackingConfig" bson:"trackingConfig"`
}

// AveragePrice returns the mean of all samples in the price history.
// ok is false when the history is empty.
func (f *Flight) AveragePrice() (avg float64, ok bool) {
	if len(f.PriceHistory) == 0 {
		return 0, false
	}
	var sum float64
	for _, p := range f.PriceHistory {
		sum += p.Price
	}
	return sum / float64(len(f.PriceHistory)), true
}

// IsUpcoming reports whether the flight date is strictly after now
func (f *Flight) IsUpcoming(now time.Time) bool {
	return f.FlightDate.After(now)
}

// Clone returns a deep copy so callers cannot alias the price history
func (f *Flight) Clone() *Flight {
	c := *f
	c.PriceHistory = append([]PricePoint(nil), f.PriceHistory...)
	return &c
}

// FlightSeries is the per-flight payload of a route time-series lookup
type FlightSeries struct {
	Airline      string       `json:"airline"`
	FlightDate   time.Time    `json:"flightDate"`
	PriceHistory []PricePoint `json:"priceHistory"`
}
