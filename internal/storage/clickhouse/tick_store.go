package clickhouse

import (
	"context"
	"fmt"

	"nifty-options-engine/internal/domain"
	"nifty-options-engine/internal/storage"
)

// TickStore implements storage.TickStore using ClickHouse. Ticks are an
// append-only archive; MergeTree does not enforce uniqueness and the
// engine never re-sends a persisted batch, so no duplicate checks here.
type TickStore struct {
	conn *Conn
}

// NewTickStore creates a new TickStore.
func NewTickStore(conn *Conn) *TickStore {
	return &TickStore{conn: conn}
}

// Compile-time interface check.
var _ storage.TickStore = (*TickStore)(nil)

// InsertBulk appends a batch of ticks for a session date.
func (s *TickStore) InsertBulk(ctx context.Context, sessionDate string, ticks []domain.Tick) error {
	if sessionDate == "" {
		return storage.ErrInvalidInput
	}
	if len(ticks) == 0 {
		return nil
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO premium_ticks (session_date, ts, price)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, t := range ticks {
		if err := batch.Append(sessionDate, t.Timestamp, t.Price); err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}

	return nil
}

// GetBySessionDate retrieves all ticks for a session date, ordered by time ASC.
func (s *TickStore) GetBySessionDate(ctx context.Context, sessionDate string) ([]domain.Tick, error) {
	query := `
		SELECT ts, price
		FROM premium_ticks
		WHERE session_date = ?
		ORDER BY ts ASC
	`

	rows, err := s.conn.Query(ctx, query, sessionDate)
	if err != nil {
		return nil, fmt.Errorf("get ticks by session date: %w", err)
	}
	defer rows.Close()

	var ticks []domain.Tick
	for rows.Next() {
		var t domain.Tick
		if err := rows.Scan(&t.Timestamp, &t.Price); err != nil {
			return nil, fmt.Errorf("scan tick row: %w", err)
		}
		ticks = append(ticks, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tick rows: %w", err)
	}

	return ticks, nil
}
