// Package repository defines the storage contracts of the flight tracker
// and the error kinds shared by every layer above them. Concrete failures
// wrap one of these sentinels so handlers can map them with errors.Is.
package repository

import "errors"

var (
	// ErrValidation marks malformed input: unparseable dates or numbers,
	// missing required fields, an empty price history.
	ErrValidation = errors.New("validation failed")

	// ErrNotFound is returned when an identifier lookup misses.
	ErrNotFound = errors.New("not found")

	// ErrConflict is returned when a write would violate the
	// (route, airline, flightDate) uniqueness constraint.
	ErrConflict = errors.New("conflict")

	// ErrStoreUnavailable is returned when the backing store cannot be reached.
	ErrStoreUnavailable = errors.New("store unavailable")
)
