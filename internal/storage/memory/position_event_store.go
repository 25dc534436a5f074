package memory

import (
	"context"
	"sort"
	"sync"

	"nifty-options-engine/internal/domain"
	"nifty-options-engine/internal/storage"
)

// PositionEventStore is an in-memory implementation of storage.PositionEventStore.
type PositionEventStore struct {
	mu   sync.RWMutex
	data map[string]*domain.PositionEvent // keyed by event_id
}

// NewPositionEventStore creates a new in-memory position event store.
func NewPositionEventStore() *PositionEventStore {
	return &PositionEventStore{
		data: make(map[string]*domain.PositionEvent),
	}
}

// Compile-time interface check.
var _ storage.PositionEventStore = (*PositionEventStore)(nil)

// Append adds a lifecycle event. Returns ErrDuplicateKey if event_id exists.
func (s *PositionEventStore) Append(_ context.Context, ev *domain.PositionEvent) error {
	if ev == nil || ev.EventID == "" || ev.PositionID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[ev.EventID]; exists {
		return storage.ErrDuplicateKey
	}

	copy := *ev
	s.data[ev.EventID] = &copy
	return nil
}

// GetByPositionID retrieves all events for a position, ordered by entry time ASC.
func (s *PositionEventStore) GetByPositionID(_ context.Context, positionID string) ([]*domain.PositionEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*domain.PositionEvent
	for _, ev := range s.data {
		if ev.PositionID == positionID {
			copy := *ev
			out = append(out, &copy)
		}
	}
	sortEvents(out)
	return out, nil
}

// GetBySessionDate retrieves all events for a session date.
func (s *PositionEventStore) GetBySessionDate(_ context.Context, sessionDate string) ([]*domain.PositionEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*domain.PositionEvent
	for _, ev := range s.data {
		if ev.SessionDate == sessionDate {
			copy := *ev
			out = append(out, &copy)
		}
	}
	sortEvents(out)
	return out, nil
}

// sortEvents orders by (entry time ASC, event type ASC) so that ENTRY rows
// precede EXIT rows of the same position.
func sortEvents(events []*domain.PositionEvent) {
	sort.Slice(events, func(i, j int) bool {
		if !events[i].EntryTime.Equal(events[j].EntryTime) {
			return events[i].EntryTime.Before(events[j].EntryTime)
		}
		return events[i].EventType < events[j].EventType
	})
}
