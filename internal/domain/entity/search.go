package entity

import "time"

// SearchQuery holds the optional ranking inputs of a flight search
type SearchQuery struct {
	Text       string
	MaxPrice   *float64
	TargetDate *time.Time
}

// ScoredFlight is one ranked search result
type ScoredFlight struct {
	Route        string       `json:"route"`
	Airline      string       `json:"airline"`
	FlightDate   time.Time    `json:"flightDate"`
	AvgPrice     float64      `json:"avgPrice"`
	PriceHistory []PricePoint `json:"priceHistory"`
	Score        float64      `json:"score"`
}
