// Package storage defines the persistence collaborator interfaces. The
// engine appends an audit record for every lifecycle transition and reads
// the prior session's range at startup; it never blocks its own state
// transitions on persistence success.
package storage

import (
	"context"

	"nifty-options-engine/internal/domain"
)

// PositionEventStore provides access to position_events storage.
// Append-only: every entry and exit is one immutable row.
type PositionEventStore interface {
	// Append adds a lifecycle event. Returns ErrDuplicateKey if event_id exists.
	Append(ctx context.Context, ev *domain.PositionEvent) error

	// GetByPositionID retrieves all events for a position, ordered by entry time ASC.
	GetByPositionID(ctx context.Context, positionID string) ([]*domain.PositionEvent, error)

	// GetBySessionDate retrieves all events for a session date.
	GetBySessionDate(ctx context.Context, sessionDate string) ([]*domain.PositionEvent, error)
}

// DayRangeStore provides access to session_ranges storage: one row per
// completed session, read back to seed the next session's reference levels.
type DayRangeStore interface {
	// Insert adds a session's range. Returns ErrDuplicateKey if the date exists.
	Insert(ctx context.Context, r *domain.SessionRange) error

	// Get retrieves the range for an exact session date. Returns ErrNotFound if absent.
	Get(ctx context.Context, sessionDate string) (*domain.SessionRange, error)

	// GetLatestBefore retrieves the most recent range strictly before the
	// given session date (skips weekends and holidays naturally).
	// Returns ErrNotFound if no prior session exists.
	GetLatestBefore(ctx context.Context, sessionDate string) (*domain.SessionRange, error)
}

// TickStore records the raw premium tick stream for audit and post-mortem.
type TickStore interface {
	// InsertBulk appends a batch of ticks for a session date.
	InsertBulk(ctx context.Context, sessionDate string, ticks []domain.Tick) error
}
