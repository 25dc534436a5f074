// Package main replays a recorded session's premium ticks through the full
// trading loop with the paper executor and prints the trades it produced.
// Tick files are CSV: unix_ms,price per line.
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"nifty-options-engine/internal/audit"
	"nifty-options-engine/internal/config"
	"nifty-options-engine/internal/domain"
	"nifty-options-engine/internal/engine"
	"nifty-options-engine/internal/execution"
	"nifty-options-engine/internal/feed"
	"nifty-options-engine/internal/notify"
	"nifty-options-engine/internal/observability"
	"nifty-options-engine/internal/position"
	"nifty-options-engine/internal/risk"
	"nifty-options-engine/internal/session"
	"nifty-options-engine/internal/storage/memory"
)

func main() {
	ticksPath := flag.String("ticks", "", "CSV tick file to replay (required)")
	prevHigh := flag.Float64("prev-high", 0, "Previous session high (required)")
	prevLow := flag.Float64("prev-low", 0, "Previous session low (required)")
	configPath := flag.String("config", "", "Path to YAML configuration file")
	outputJSON := flag.Bool("json", false, "Output trades as JSON")
	flag.Parse()

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn})))

	if *ticksPath == "" {
		fatal("-ticks is required")
	}
	if *prevHigh <= *prevLow || *prevLow <= 0 {
		fatal("-prev-high and -prev-low must describe a valid range")
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fatal("config: %v", err)
	}

	ticks, err := readTicks(*ticksPath)
	if err != nil {
		fatal("read ticks: %v", err)
	}
	if len(ticks) == 0 {
		fatal("tick file %s is empty", *ticksPath)
	}

	events, err := replaySession(cfg, *prevHigh, *prevLow, ticks)
	if err != nil {
		fatal("replay: %v", err)
	}

	printTrades(events, *outputJSON)
}

// replaySession runs one full engine session over the recorded ticks.
func replaySession(cfg *config.Config, prevHigh, prevLow float64, ticks []domain.Tick) ([]*domain.PositionEvent, error) {
	ctx := context.Background()

	window, err := session.NewWindow(cfg.Session.Timezone,
		cfg.Session.OpenHour, cfg.Session.OpenMinute,
		cfg.Session.CloseHour, cfg.Session.CloseMinute)
	if err != nil {
		return nil, err
	}

	sessionDate := window.SessionDate(ticks[0].Timestamp)
	ranges := memory.NewDayRangeStore()
	// Seed the reference range one day before the replayed session.
	refDate := ticks[0].Timestamp.AddDate(0, 0, -1)
	if err := ranges.Insert(ctx, &domain.SessionRange{
		SessionDate: window.SessionDate(refDate),
		High:        prevHigh,
		Low:         prevLow,
	}); err != nil {
		return nil, err
	}

	metrics := observability.DefaultMetrics
	eventStore := memory.NewPositionEventStore()
	recorder := audit.NewRecorder(eventStore, memory.NewTickStore(), metrics, cfg.Feed.InboxSize)
	recorder.Start(ctx)

	executor := execution.NewPaperExecutor()
	emitter := execution.NewEmitter(executor, time.Duration(cfg.Executor.ConfirmTimeoutMs)*time.Millisecond, metrics)
	manager := position.NewManager(emitter, recorder, notify.LogNotifier{}, metrics,
		cfg.Trading.StopLossPct, cfg.Trading.TargetPct, cfg.Trading.TrailingStopPct)
	gate := risk.NewGate(cfg.Trading.CapitalPerTrade, cfg.Trading.MaxTradesPerDay, window)

	source := feed.NewChannelSource(len(ticks))
	for _, t := range ticks {
		source.Push(t)
	}
	source.Close()

	eng := engine.New(
		engine.Config{Window: window, ReentryTolerance: cfg.Trading.ReentryTolerance},
		replayClock{at: ticks[0].Timestamp}, source, gate, manager, recorder, ranges,
		notify.LogNotifier{}, metrics,
	)
	if err := eng.Run(ctx); err != nil {
		return nil, err
	}
	recorder.Close()

	return eventStore.GetBySessionDate(ctx, sessionDate)
}

// replayClock pins session initialization to the replayed day.
type replayClock struct {
	at time.Time
}

func (c replayClock) Now() time.Time { return c.at }

// readTicks parses a unix_ms,price CSV file.
func readTicks(path string) ([]domain.Tick, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var ticks []domain.Tick
	scanner := bufio.NewScanner(f)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		parts := strings.Split(text, ",")
		if len(parts) != 2 {
			return nil, fmt.Errorf("line %d: expected unix_ms,price", line)
		}
		ms, err := strconv.ParseInt(strings.TrimSpace(parts[0]), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: bad timestamp: %w", line, err)
		}
		price, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: bad price: %w", line, err)
		}
		ticks = append(ticks, domain.Tick{Timestamp: time.UnixMilli(ms), Price: price})
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return ticks, nil
}

func printTrades(events []*domain.PositionEvent, asJSON bool) {
	if asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(events); err != nil {
			fatal("encode trades: %v", err)
		}
		return
	}

	if len(events) == 0 {
		fmt.Println("no trades")
		return
	}
	for _, ev := range events {
		if ev.EventType == domain.PositionEventEntry {
			fmt.Printf("ENTRY %s %s qty %d at %.2f (%s)\n",
				ev.SessionDate, ev.Direction, ev.Quantity, ev.EntryPrice, ev.EntryKind)
			continue
		}
		reason, exitPrice, pnl := "", 0.0, 0.0
		if ev.ExitReason != nil {
			reason = *ev.ExitReason
		}
		if ev.ExitPrice != nil {
			exitPrice = *ev.ExitPrice
		}
		if ev.PnL != nil {
			pnl = *ev.PnL
		}
		fmt.Printf("EXIT  %s %s at %.2f (%s) pnl %.2f\n",
			ev.SessionDate, ev.Direction, exitPrice, reason, pnl)
	}
}

func fatal(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
