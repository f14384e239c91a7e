package domain

import "errors"

// Sentinel errors shared across usecases and adapters. Callers classify with
// errors.Is and map to transport-level responses at the edge.
var (
	// ErrValidation marks malformed input: non-positive bbox dimensions,
	// negative pixel coordinates, out-of-range tile addresses.
	ErrValidation = errors.New("validation failed")

	// ErrNotFound marks a missing tile, detection, court, or scan.
	ErrNotFound = errors.New("not found")

	// ErrExternalService marks a failed call to an external provider
	// (tile raster, inference, geocoding).
	ErrExternalService = errors.New("external service error")
)
