package memory

import (
	"context"
	"sync"

	"nifty-options-engine/internal/domain"
	"nifty-options-engine/internal/storage"
)

// DayRangeStore is an in-memory implementation of storage.DayRangeStore.
type DayRangeStore struct {
	mu   sync.RWMutex
	data map[string]*domain.SessionRange // keyed by session_date
}

// NewDayRangeStore creates a new in-memory day range store.
func NewDayRangeStore() *DayRangeStore {
	return &DayRangeStore{
		data: make(map[string]*domain.SessionRange),
	}
}

// Compile-time interface check.
var _ storage.DayRangeStore = (*DayRangeStore)(nil)

// Insert adds a session's range. Returns ErrDuplicateKey if the date exists.
func (s *DayRangeStore) Insert(_ context.Context, r *domain.SessionRange) error {
	if r == nil || r.SessionDate == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[r.SessionDate]; exists {
		return storage.ErrDuplicateKey
	}

	copy := *r
	s.data[r.SessionDate] = &copy
	return nil
}

// Get retrieves the range for an exact session date.
func (s *DayRangeStore) Get(_ context.Context, sessionDate string) (*domain.SessionRange, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, exists := s.data[sessionDate]
	if !exists {
		return nil, storage.ErrNotFound
	}
	copy := *r
	return &copy, nil
}

// GetLatestBefore retrieves the most recent range strictly before the date.
// Session dates are YYYY-MM-DD, so lexical comparison is chronological.
func (s *DayRangeStore) GetLatestBefore(_ context.Context, sessionDate string) (*domain.SessionRange, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var best *domain.SessionRange
	for date, r := range s.data {
		if date >= sessionDate {
			continue
		}
		if best == nil || date > best.SessionDate {
			best = r
		}
	}
	if best == nil {
		return nil, storage.ErrNotFound
	}
	copy := *best
	return &copy, nil
}
