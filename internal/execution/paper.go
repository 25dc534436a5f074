package execution

import (
	"context"
	"fmt"
	"sync"

	"nifty-options-engine/internal/domain"
)

// Compile-time interface check.
var _ Executor = (*PaperExecutor)(nil)

// PaperExecutor simulates order execution in memory without touching a real
// broker. Every intent confirms immediately with a generated paper order id;
// executed intents are retained for inspection.
type PaperExecutor struct {
	mu       sync.Mutex
	executed []domain.OrderIntent
	orderIDs map[string]string // position id -> last paper order id
	seq      int
}

// NewPaperExecutor creates an empty paper executor.
func NewPaperExecutor() *PaperExecutor {
	return &PaperExecutor{orderIDs: make(map[string]string)}
}

// Name returns "paper".
func (p *PaperExecutor) Name() string { return "paper" }

// Execute records the intent and confirms it.
func (p *PaperExecutor) Execute(ctx context.Context, intent domain.OrderIntent) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.seq++
	p.executed = append(p.executed, intent)
	p.orderIDs[intent.PositionID] = fmt.Sprintf("PAPER_%06d", p.seq)
	return nil
}

// Executed returns a copy of all intents executed so far.
func (p *PaperExecutor) Executed() []domain.OrderIntent {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]domain.OrderIntent, len(p.executed))
	copy(out, p.executed)
	return out
}

// OrderID returns the paper order id last assigned to a position.
func (p *PaperExecutor) OrderID(positionID string) (string, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	id, ok := p.orderIDs[positionID]
	return id, ok
}
