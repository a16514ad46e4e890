package models

import (
	"errors"
	"fmt"
)

// Sentinel errors for validation.
var (
	ErrMissingLabel    = errors.New("label is required")
	ErrInvalidCategory = errors.New("invalid category")
	ErrInvalidQuality  = errors.New("quality must be an integer between 0 and 5")
	ErrEmptyQuery      = errors.New("query is required")
	ErrValidation      = errors.New("validation failed")
)

// Sentinel errors for entity lookups.
var ErrNodeNotFound = errors.New("node not found")

// ErrFieldTooLong returns an error indicating a field exceeds its maximum length.
func ErrFieldTooLong(field string, maxLen int) error {
	return fmt.Errorf("%w: %s exceeds maximum length of %d", ErrValidation, field, maxLen)
}

// ErrSnapshotVersion is returned when importing a snapshot newer than this build understands.
var ErrSnapshotVersion = errors.New("unsupported snapshot version")
