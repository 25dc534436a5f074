// Package execution translates approved entries and exits into abstract
// order intents and hands them to an external execution collaborator under
// a bounded confirmation wait.
package execution

import (
	"context"
	"errors"

	"nifty-options-engine/internal/domain"
)

// ErrRejected is returned when the execution collaborator rejects an intent.
var ErrRejected = errors.New("order intent rejected")

// ErrConfirmTimeout is returned when no confirmation arrives within the
// bounded wait. The engine treats timeout as rejection, never as unknown:
// the proposed state transition is rolled back entirely.
var ErrConfirmTimeout = errors.New("order confirmation timed out")

// Executor is the external execution collaborator. Execute returns nil on
// confirmed execution and an error on rejection. Implementations must
// respect ctx cancellation.
type Executor interface {
	// Name returns the executor identifier (e.g. "paper", "broker").
	Name() string

	// Execute submits the intent and blocks until confirmation or rejection.
	Execute(ctx context.Context, intent domain.OrderIntent) error
}
