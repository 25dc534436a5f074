// Package feed delivers the option premium tick stream to the engine.
package feed

import (
	"nifty-options-engine/internal/domain"
)

// Source is a stream of premium ticks. The channel closes when the source
// is exhausted or closed.
type Source interface {
	Ticks() <-chan domain.Tick
	Close() error
}

// ChannelSource adapts a plain channel into a Source. Used by the replay
// tool and by tests.
type ChannelSource struct {
	ch chan domain.Tick
}

// NewChannelSource creates a channel-backed source with the given buffer.
func NewChannelSource(buffer int) *ChannelSource {
	return &ChannelSource{ch: make(chan domain.Tick, buffer)}
}

// Push feeds one tick into the source.
func (s *ChannelSource) Push(t domain.Tick) {
	s.ch <- t
}

// Ticks returns the tick channel.
func (s *ChannelSource) Ticks() <-chan domain.Tick { return s.ch }

// Close closes the tick channel.
func (s *ChannelSource) Close() error {
	close(s.ch)
	return nil
}

var _ Source = (*ChannelSource)(nil)
