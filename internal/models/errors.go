package models

import (
	"errors"
	"fmt"
)

// Sentinel errors for validation.
var (
	ErrMissingIDs        = errors.New("ids are required")
	ErrMissingHandle     = errors.New("handle is required")
	ErrMissingTitle      = errors.New("title is required")
	ErrMissingExternalID = errors.New("external id is required")
	ErrInvalidCategory   = errors.New("invalid category")
	ErrInvalidSettings   = errors.New("invalid settings")
	ErrInvalidJobType    = errors.New("invalid job type")
	ErrDimensionMismatch = errors.New("vector dimension mismatch")
)

// Sentinel errors for entity lookups.
var (
	ErrShopNotFound       = errors.New("shop not found")
	ErrCollectionNotFound = errors.New("collection not found")
	ErrEmbeddingNotFound  = errors.New("embedding not found")
	ErrJobNotFound        = errors.New("job not found")
	ErrNoPendingJob       = errors.New("no pending job")
)

// ErrNotEntitled is returned when the shop's billing state does not allow the
// requested action. It is an expected outcome, not a failure.
var ErrNotEntitled = errors.New("not entitled")

// ErrDuplicateKey indicates a unique constraint violation (maps to HTTP 409 Conflict).
var ErrDuplicateKey = errors.New("duplicate key")

// ErrFieldTooLong returns an error indicating a field exceeds its maximum length.
func ErrFieldTooLong(field string, maxLen int) error {
	return fmt.Errorf("%s exceeds maximum length of %d", field, maxLen)
}
