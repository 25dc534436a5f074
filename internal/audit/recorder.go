// Package audit persists position lifecycle events and raw ticks off the
// engine's tick path. Writes are buffered through a channel and retried
// with backoff; a full buffer drops the incoming write rather than block
// the caller.
package audit

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"nifty-options-engine/internal/domain"
	"nifty-options-engine/internal/observability"
	"nifty-options-engine/internal/storage"
)

const (
	writeAttempts  = 5
	writeBaseDelay = 200 * time.Millisecond
	tickFlushEvery = 5 * time.Second
	tickBatchSize  = 500
)

// Recorder consumes lifecycle events and ticks on its own goroutine and
// writes them through the configured stores.
type Recorder struct {
	events  storage.PositionEventStore
	ticks   storage.TickStore
	metrics *observability.Metrics

	eventCh chan *domain.PositionEvent
	tickCh  chan sessionTick

	wg sync.WaitGroup
}

type sessionTick struct {
	sessionDate string
	tick        domain.Tick
}

// NewRecorder creates a recorder over the given stores. The tick store may
// be nil when raw tick capture is disabled.
func NewRecorder(events storage.PositionEventStore, ticks storage.TickStore, metrics *observability.Metrics, buffer int) *Recorder {
	if buffer <= 0 {
		buffer = 1024
	}
	return &Recorder{
		events:  events,
		ticks:   ticks,
		metrics: metrics,
		eventCh: make(chan *domain.PositionEvent, buffer),
		tickCh:  make(chan sessionTick, buffer),
	}
}

// Start launches the consumer goroutines. They drain their channels and
// exit after Close.
func (r *Recorder) Start(ctx context.Context) {
	r.wg.Add(1)
	go r.consumeEvents(ctx)
	if r.ticks != nil {
		r.wg.Add(1)
		go r.consumeTicks(ctx)
	}
}

// Close stops intake and waits for buffered work to flush.
func (r *Recorder) Close() {
	close(r.eventCh)
	close(r.tickCh)
	r.wg.Wait()
}

// Record enqueues a lifecycle event. It never blocks: when the buffer is
// full the event is dropped and counted.
func (r *Recorder) Record(ev *domain.PositionEvent) {
	select {
	case r.eventCh <- ev:
		r.metrics.AuditQueueDepth.Set(float64(len(r.eventCh)))
	default:
		r.metrics.PersistenceErrors.WithLabelValues("position_events").Inc()
		slog.Error("audit buffer full, event dropped",
			slog.String("event_id", ev.EventID),
			slog.String("event_type", ev.EventType))
	}
}

// RecordTick enqueues a raw tick for bulk insertion.
func (r *Recorder) RecordTick(sessionDate string, tick domain.Tick) {
	if r.ticks == nil {
		return
	}
	select {
	case r.tickCh <- sessionTick{sessionDate: sessionDate, tick: tick}:
	default:
		r.metrics.PersistenceErrors.WithLabelValues("ticks").Inc()
	}
}

func (r *Recorder) consumeEvents(ctx context.Context) {
	defer r.wg.Done()
	for ev := range r.eventCh {
		r.metrics.AuditQueueDepth.Set(float64(len(r.eventCh)))
		err := storage.Retry(ctx, writeAttempts, writeBaseDelay, func() error {
			return r.events.Append(ctx, ev)
		})
		if err != nil {
			r.metrics.PersistenceErrors.WithLabelValues("position_events").Inc()
			slog.Error("lifecycle event not persisted",
				slog.String("event_id", ev.EventID),
				slog.String("position_id", ev.PositionID),
				slog.Any("error", err))
			continue
		}
		r.metrics.EventsPersisted.Inc()
	}
}

// consumeTicks batches ticks by size and time before bulk inserting.
func (r *Recorder) consumeTicks(ctx context.Context) {
	defer r.wg.Done()

	flushTimer := time.NewTicker(tickFlushEvery)
	defer flushTimer.Stop()

	var (
		batchDate string
		batch     []domain.Tick
	)
	flush := func() {
		if len(batch) == 0 {
			return
		}
		date, ticks := batchDate, batch
		batch = nil
		err := storage.Retry(ctx, writeAttempts, writeBaseDelay, func() error {
			return r.ticks.InsertBulk(ctx, date, ticks)
		})
		if err != nil {
			r.metrics.PersistenceErrors.WithLabelValues("ticks").Inc()
			slog.Error("tick batch not persisted",
				slog.String("session_date", date),
				slog.Int("count", len(ticks)),
				slog.Any("error", err))
		}
	}

	for {
		select {
		case st, ok := <-r.tickCh:
			if !ok {
				flush()
				return
			}
			if st.sessionDate != batchDate {
				flush()
				batchDate = st.sessionDate
			}
			batch = append(batch, st.tick)
			if len(batch) >= tickBatchSize {
				flush()
			}
		case <-flushTimer.C:
			flush()
		}
	}
}
