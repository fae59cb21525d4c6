package utils

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// Accepted ISO date layouts, most specific first
var dateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04",
	"2006-01-02",
}

// ParseDate parses an ISO-8601 date or datetime. Values without a zone are
// interpreted in UTC.
func ParseDate(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, fmt.Errorf("empty date")
	}
	for _, layout := range dateLayouts {
		if t, err := time.ParseInLocation(layout, value, time.UTC); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid date %q", value)
}

// DaysBetween returns |a - b| in whole days. The signed difference is
// floored to whole days before taking the absolute value, so 12 hours
// before counts as one day and 12 hours after counts as zero.
func DaysBetween(a, b time.Time) int {
	days := int(math.Floor(a.Sub(b).Hours() / 24))
	if days < 0 {
		return -days
	}
	return days
}

// Round rounds x to the given number of decimal places
func Round(x float64, places int) float64 {
	pow := math.Pow(10, float64(places))
	return math.Round(x*pow) / pow
}
