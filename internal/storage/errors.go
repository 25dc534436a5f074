package storage

import "errors"

// Errors shared by every store implementation. The audit stores are
// write-once: lifecycle events and session ranges are never rewritten, so a
// key collision is a hard error rather than an update.
var (
	// ErrNotFound reports that no record exists for the requested key.
	ErrNotFound = errors.New("not found")

	// ErrDuplicateKey reports an insert that collides with an already
	// persisted record.
	ErrDuplicateKey = errors.New("duplicate key: records are immutable once written")

	// ErrInvalidInput reports a write with missing or malformed fields.
	ErrInvalidInput = errors.New("invalid input")
)
