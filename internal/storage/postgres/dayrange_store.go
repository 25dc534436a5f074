package postgres

import (
	"context"
	"fmt"

	"nifty-options-engine/internal/domain"
	"nifty-options-engine/internal/storage"
)

// DayRangeStore implements storage.DayRangeStore using PostgreSQL.
type DayRangeStore struct {
	pool *Pool
}

// NewDayRangeStore creates a new DayRangeStore.
func NewDayRangeStore(pool *Pool) *DayRangeStore {
	return &DayRangeStore{pool: pool}
}

// Compile-time interface check.
var _ storage.DayRangeStore = (*DayRangeStore)(nil)

// Insert adds a session's range. Returns ErrDuplicateKey if the date exists.
func (s *DayRangeStore) Insert(ctx context.Context, r *domain.SessionRange) error {
	if r == nil || r.SessionDate == "" {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO session_ranges (session_date, high, low, open, close)
		VALUES ($1, $2, $3, $4, $5)
	`

	_, err := s.pool.Exec(ctx, query, r.SessionDate, r.High, r.Low, r.Open, r.Close)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert session range: %w", err)
	}
	return nil
}

// Get retrieves the range for an exact session date.
func (s *DayRangeStore) Get(ctx context.Context, sessionDate string) (*domain.SessionRange, error) {
	query := `
		SELECT session_date, high, low, open, close
		FROM session_ranges
		WHERE session_date = $1
	`

	var r domain.SessionRange
	err := s.pool.QueryRow(ctx, query, sessionDate).Scan(&r.SessionDate, &r.High, &r.Low, &r.Open, &r.Close)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get session range: %w", err)
	}
	return &r, nil
}

// GetLatestBefore retrieves the most recent range strictly before the date.
func (s *DayRangeStore) GetLatestBefore(ctx context.Context, sessionDate string) (*domain.SessionRange, error) {
	query := `
		SELECT session_date, high, low, open, close
		FROM session_ranges
		WHERE session_date < $1
		ORDER BY session_date DESC
		LIMIT 1
	`

	var r domain.SessionRange
	err := s.pool.QueryRow(ctx, query, sessionDate).Scan(&r.SessionDate, &r.High, &r.Low, &r.Open, &r.Close)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get latest session range before %s: %w", sessionDate, err)
	}
	return &r, nil
}
