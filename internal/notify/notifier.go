// Package notify delivers entry/exit events and critical failures to an
// external channel. Delivery is fire-and-forget: a failed notification is
// logged and never blocks or fails the engine.
package notify

import (
	"context"
	"log/slog"
)

// Severity of a notification event.
const (
	SeverityInfo     = "INFO"
	SeverityCritical = "CRITICAL"
)

// Event is one notification payload.
type Event struct {
	Severity string
	Title    string
	Message  string
}

// Notifier is the notification collaborator. Implementations must be safe
// for concurrent use.
type Notifier interface {
	Notify(ctx context.Context, ev Event)
}

// LogNotifier writes notifications to the structured log. It is the default
// when no external channel is configured.
type LogNotifier struct{}

// Notify logs the event at a level matching its severity.
func (LogNotifier) Notify(_ context.Context, ev Event) {
	if ev.Severity == SeverityCritical {
		slog.Error("notification", slog.String("title", ev.Title), slog.String("message", ev.Message))
		return
	}
	slog.Info("notification", slog.String("title", ev.Title), slog.String("message", ev.Message))
}

// Async wraps a notifier so that delivery happens off the caller's
// goroutine. The engine's tick loop must never wait on notification I/O.
type Async struct {
	inner Notifier
}

// NewAsync wraps a notifier for non-blocking delivery.
func NewAsync(inner Notifier) *Async {
	return &Async{inner: inner}
}

// Notify dispatches delivery on a new goroutine and returns immediately.
func (a *Async) Notify(ctx context.Context, ev Event) {
	go a.inner.Notify(context.WithoutCancel(ctx), ev)
}
