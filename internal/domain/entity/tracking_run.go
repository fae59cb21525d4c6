package entity

import "time"

// Tracking run triggers
const (
	TriggerScheduled = "scheduled"
	TriggerManual    = "manual"
)

// TrackingRun records the outcome of one firing of an interval class
type TrackingRun struct {
	ID         string    `json:"id"`
	Interval   Interval  `json:"interval"`
	Trigger    string    `json:"trigger"`
	StartedAt  time.Time `json:"startedAt"`
	FinishedAt time.Time `json:"finishedAt"`
	Selected   int       `json:"selected"`
	Updated    int       `json:"updated"`
	Failed     int       `json:"failed"`
	Skipped    bool      `json:"skipped"`
}

// Duration returns how long the firing took
func (r *TrackingRun) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}
