// internal/core/domain/errors.go
package domain

import "errors"

// Sentinel errors shared by the store, the photo cache, and the service
// layer. Callers classify failures with errors.Is against these.
var (
	// ErrNotFound covers lookups of ids that were never created or have
	// been deleted, and photo reads whose backing file is gone from disk.
	ErrNotFound = errors.New("not found")

	// ErrValidation covers rejected writes such as a missing required
	// field or an empty photo filename.
	ErrValidation = errors.New("validation failed")
)
