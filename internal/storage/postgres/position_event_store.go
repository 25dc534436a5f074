package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"nifty-options-engine/internal/domain"
	"nifty-options-engine/internal/storage"
)

// PositionEventStore implements storage.PositionEventStore using PostgreSQL.
type PositionEventStore struct {
	pool *Pool
}

// NewPositionEventStore creates a new PositionEventStore.
func NewPositionEventStore(pool *Pool) *PositionEventStore {
	return &PositionEventStore{pool: pool}
}

// Compile-time interface check.
var _ storage.PositionEventStore = (*PositionEventStore)(nil)

const positionEventColumns = `
	event_id, position_id, event_type, session_date,
	direction, entry_kind, reentry,
	entry_price, entry_time, capital_allocated, quantity,
	stop_loss_price, target_price, trailing_stop_price, highest_favorable_price,
	exit_price, exit_time, exit_reason, pnl
`

// Append adds a lifecycle event. Returns ErrDuplicateKey if event_id exists.
func (s *PositionEventStore) Append(ctx context.Context, ev *domain.PositionEvent) error {
	if ev == nil || ev.EventID == "" || ev.PositionID == "" {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO position_events (` + positionEventColumns + `)
		VALUES (
			$1, $2, $3, $4,
			$5, $6, $7,
			$8, $9, $10, $11,
			$12, $13, $14, $15,
			$16, $17, $18, $19
		)
	`

	_, err := s.pool.Exec(ctx, query,
		ev.EventID, ev.PositionID, ev.EventType, ev.SessionDate,
		ev.Direction, ev.EntryKind, ev.Reentry,
		ev.EntryPrice, ev.EntryTime, ev.CapitalAllocated, ev.Quantity,
		ev.StopLossPrice, ev.TargetPrice, ev.TrailingStopPrice, ev.HighestFavorablePrice,
		ev.ExitPrice, ev.ExitTime, ev.ExitReason, ev.PnL,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert position event: %w", err)
	}
	return nil
}

// GetByPositionID retrieves all events for a position, ordered by entry time ASC.
func (s *PositionEventStore) GetByPositionID(ctx context.Context, positionID string) ([]*domain.PositionEvent, error) {
	query := `
		SELECT ` + positionEventColumns + `
		FROM position_events
		WHERE position_id = $1
		ORDER BY entry_time ASC, event_type ASC
	`

	rows, err := s.pool.Query(ctx, query, positionID)
	if err != nil {
		return nil, fmt.Errorf("get position events by position id: %w", err)
	}
	defer rows.Close()

	return scanPositionEvents(rows)
}

// GetBySessionDate retrieves all events for a session date.
func (s *PositionEventStore) GetBySessionDate(ctx context.Context, sessionDate string) ([]*domain.PositionEvent, error) {
	query := `
		SELECT ` + positionEventColumns + `
		FROM position_events
		WHERE session_date = $1
		ORDER BY entry_time ASC, event_type ASC
	`

	rows, err := s.pool.Query(ctx, query, sessionDate)
	if err != nil {
		return nil, fmt.Errorf("get position events by session date: %w", err)
	}
	defer rows.Close()

	return scanPositionEvents(rows)
}

// scanPositionEvents scans multiple rows into a slice of PositionEvent.
func scanPositionEvents(rows pgx.Rows) ([]*domain.PositionEvent, error) {
	var events []*domain.PositionEvent

	for rows.Next() {
		var ev domain.PositionEvent

		err := rows.Scan(
			&ev.EventID, &ev.PositionID, &ev.EventType, &ev.SessionDate,
			&ev.Direction, &ev.EntryKind, &ev.Reentry,
			&ev.EntryPrice, &ev.EntryTime, &ev.CapitalAllocated, &ev.Quantity,
			&ev.StopLossPrice, &ev.TargetPrice, &ev.TrailingStopPrice, &ev.HighestFavorablePrice,
			&ev.ExitPrice, &ev.ExitTime, &ev.ExitReason, &ev.PnL,
		)
		if err != nil {
			return nil, fmt.Errorf("scan position event row: %w", err)
		}

		events = append(events, &ev)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate position event rows: %w", err)
	}

	return events, nil
}
