package riskscore

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidInput marks a structurally malformed descriptor. No assessment is made.
	ErrInvalidInput = errors.New("invalid input")

	// ErrLookupUnavailable marks an external lookup that timed out or failed.
	// The scorer recovers from it locally and never returns it.
	ErrLookupUnavailable = errors.New("external lookup unavailable")
)

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}

// Validate checks the structural invariants of a descriptor.
func (d Descriptor) Validate() error {
	if d.SizeBytes < 0 {
		return invalid("size must be non-negative, got %d", d.SizeBytes)
	}
	if d.Detections != nil {
		return d.Detections.Validate()
	}
	return nil
}

// Validate checks 0 <= Positives <= Total.
func (d Detections) Validate() error {
	if d.Positives < 0 || d.Total < 0 {
		return invalid("detection counts must be non-negative, got %d/%d", d.Positives, d.Total)
	}
	if d.Positives > d.Total {
		return invalid("positives (%d) exceed total engines (%d)", d.Positives, d.Total)
	}
	return nil
}
