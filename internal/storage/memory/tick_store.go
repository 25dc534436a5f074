package memory

import (
	"context"
	"sync"

	"nifty-options-engine/internal/domain"
	"nifty-options-engine/internal/storage"
)

// TickStore is an in-memory implementation of storage.TickStore.
type TickStore struct {
	mu   sync.RWMutex
	data map[string][]domain.Tick // keyed by session_date
}

// NewTickStore creates a new in-memory tick store.
func NewTickStore() *TickStore {
	return &TickStore{
		data: make(map[string][]domain.Tick),
	}
}

// Compile-time interface check.
var _ storage.TickStore = (*TickStore)(nil)

// InsertBulk appends a batch of ticks for a session date.
func (s *TickStore) InsertBulk(_ context.Context, sessionDate string, ticks []domain.Tick) error {
	if sessionDate == "" {
		return storage.ErrInvalidInput
	}
	if len(ticks) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[sessionDate] = append(s.data[sessionDate], ticks...)
	return nil
}

// GetBySessionDate returns all recorded ticks for a session date.
func (s *TickStore) GetBySessionDate(_ context.Context, sessionDate string) []domain.Tick {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Tick, len(s.data[sessionDate]))
	copy(out, s.data[sessionDate])
	return out
}
