package execution

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"nifty-options-engine/internal/domain"
	"nifty-options-engine/internal/observability"
)

// Emitter wraps an Executor with the bounded-wait contract: an intent either
// confirms within the timeout or is treated as rejected. The caller commits
// its state transition only after Submit returns nil.
type Emitter struct {
	executor Executor
	timeout  time.Duration
	metrics  *observability.Metrics
}

// NewEmitter creates an emitter with the configured confirmation timeout.
func NewEmitter(executor Executor, confirmTimeout time.Duration, metrics *observability.Metrics) *Emitter {
	return &Emitter{executor: executor, timeout: confirmTimeout, metrics: metrics}
}

// Submit hands the intent to the executor and waits for the outcome.
// Returns nil on confirmation; ErrRejected or ErrConfirmTimeout otherwise.
func (e *Emitter) Submit(ctx context.Context, intent domain.OrderIntent) error {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	if e.metrics != nil {
		e.metrics.IntentsSubmitted.WithLabelValues(string(intent.Kind)).Inc()
	}

	err := e.executor.Execute(ctx, intent)
	if err == nil {
		slog.Info("order intent confirmed",
			slog.String("position_id", intent.PositionID),
			slog.String("kind", string(intent.Kind)),
			slog.String("direction", string(intent.Direction)),
			slog.Int64("quantity", intent.Quantity))
		return nil
	}

	if errors.Is(err, context.DeadlineExceeded) {
		if e.metrics != nil {
			e.metrics.IntentFailures.WithLabelValues(string(intent.Kind), "timeout").Inc()
		}
		slog.Error("order confirmation timed out",
			slog.String("position_id", intent.PositionID),
			slog.String("kind", string(intent.Kind)),
			slog.Duration("timeout", e.timeout))
		return fmt.Errorf("%w: %s intent for position %s", ErrConfirmTimeout, intent.Kind, intent.PositionID)
	}

	if e.metrics != nil {
		e.metrics.IntentFailures.WithLabelValues(string(intent.Kind), "rejected").Inc()
	}
	slog.Error("order intent rejected",
		slog.String("position_id", intent.PositionID),
		slog.String("kind", string(intent.Kind)),
		slog.Any("error", err))
	return fmt.Errorf("%w: %v", ErrRejected, err)
}
