// Package main runs the intraday options trading engine for one session:
// it loads configuration, wires storage and the tick feed, and trades from
// session open to close.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"nifty-options-engine/internal/audit"
	"nifty-options-engine/internal/config"
	"nifty-options-engine/internal/engine"
	"nifty-options-engine/internal/execution"
	"nifty-options-engine/internal/feed"
	"nifty-options-engine/internal/notify"
	"nifty-options-engine/internal/observability"
	"nifty-options-engine/internal/position"
	"nifty-options-engine/internal/risk"
	"nifty-options-engine/internal/session"
	"nifty-options-engine/internal/storage"
	chstore "nifty-options-engine/internal/storage/clickhouse"
	"nifty-options-engine/internal/storage/memory"
	"nifty-options-engine/internal/storage/migrations"
	pgstore "nifty-options-engine/internal/storage/postgres"
)

func main() {
	// Load .env file if it exists, then flags over env over yaml.
	_ = godotenv.Load()

	configPath := flag.String("config", "", "Path to YAML configuration file")
	useMemory := flag.Bool("use-memory", false, "Use in-memory storage instead of PostgreSQL/ClickHouse")
	flag.Parse()

	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("configuration invalid", slog.Any("error", err))
		os.Exit(1)
	}

	if err := run(cfg, *useMemory); err != nil {
		slog.Error("engine failed", slog.Any("error", err))
		os.Exit(1)
	}
	slog.Info("shutdown complete")
}

func run(cfg *config.Config, useMemory bool) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	window, err := session.NewWindow(cfg.Session.Timezone,
		cfg.Session.OpenHour, cfg.Session.OpenMinute,
		cfg.Session.CloseHour, cfg.Session.CloseMinute)
	if err != nil {
		return fmt.Errorf("session window: %w", err)
	}

	metrics := observability.DefaultMetrics

	eventStore, rangeStore, tickStore, cleanup, err := buildStores(ctx, cfg, useMemory)
	if err != nil {
		return err
	}
	defer cleanup()

	recorder := audit.NewRecorder(eventStore, tickStore, metrics, cfg.Feed.InboxSize)
	recorder.Start(ctx)
	defer recorder.Close()

	notifier := buildNotifier(cfg)

	executor, err := buildExecutor(cfg)
	if err != nil {
		return err
	}
	emitter := execution.NewEmitter(executor, time.Duration(cfg.Executor.ConfirmTimeoutMs)*time.Millisecond, metrics)

	manager := position.NewManager(emitter, recorder, notifier, metrics,
		cfg.Trading.StopLossPct, cfg.Trading.TargetPct, cfg.Trading.TrailingStopPct)
	gate := risk.NewGate(cfg.Trading.CapitalPerTrade, cfg.Trading.MaxTradesPerDay, window)

	source, err := feed.NewWSSource(ctx, cfg.Feed.WebsocketURL, nil, metrics)
	if err != nil {
		return fmt.Errorf("connect feed: %w", err)
	}
	defer source.Close()

	eng := engine.New(
		engine.Config{Window: window, ReentryTolerance: cfg.Trading.ReentryTolerance},
		session.RealClock{}, source, gate, manager, recorder, rangeStore,
		notifier, metrics,
	)

	httpServer := startMetricsServer(cfg.Metrics.ListenAddr)
	defer httpServer.Shutdown(context.Background())

	// First signal cancels the run; a second one forces exit.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		slog.Info("shutting down", slog.String("signal", sig.String()))
		cancel()
		select {
		case <-sigCh:
			os.Exit(1)
		case <-time.After(30 * time.Second):
			slog.Error("graceful shutdown timed out")
			os.Exit(1)
		case <-ctx.Done():
		}
	}()

	if err := eng.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// buildStores selects the storage backends. Empty DSNs or -use-memory run
// everything in memory for paper sessions.
func buildStores(ctx context.Context, cfg *config.Config, useMemory bool) (storage.PositionEventStore, storage.DayRangeStore, storage.TickStore, func(), error) {
	if useMemory || cfg.Storage.PostgresDSN == "" {
		slog.Info("using in-memory storage")
		return memory.NewPositionEventStore(), memory.NewDayRangeStore(), memory.NewTickStore(), func() {}, nil
	}

	pool, err := pgstore.NewPool(ctx, cfg.Storage.PostgresDSN)
	if err != nil {
		return nil, nil, nil, nil, err
	}
	if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
		pool.Close()
		return nil, nil, nil, nil, fmt.Errorf("postgres migrations: %w", err)
	}

	var (
		tickStore storage.TickStore
		chConn    *chstore.Conn
	)
	if cfg.Storage.ClickhouseDSN != "" {
		chConn, err = migrations.RunClickhouseMigrations(ctx, cfg.Storage.ClickhouseDSN)
		if err != nil {
			pool.Close()
			return nil, nil, nil, nil, fmt.Errorf("clickhouse migrations: %w", err)
		}
		tickStore = chstore.NewTickStore(chConn)
	}

	cleanup := func() {
		pool.Close()
		if chConn != nil {
			chConn.Close()
		}
	}
	return pgstore.NewPositionEventStore(pool), pgstore.NewDayRangeStore(pool), tickStore, cleanup, nil
}

// buildNotifier wires Telegram when configured, falling back to the log.
// Delivery is always asynchronous.
func buildNotifier(cfg *config.Config) notify.Notifier {
	if cfg.Notify.TelegramToken != "" && cfg.Notify.TelegramChatID != "" {
		return notify.NewAsync(notify.NewTelegramNotifier(cfg.Notify.TelegramToken, cfg.Notify.TelegramChatID))
	}
	return notify.NewAsync(notify.LogNotifier{})
}

// buildExecutor picks the order executor. Live broker adapters plug in
// here; everything runs paper until one exists.
func buildExecutor(cfg *config.Config) (execution.Executor, error) {
	if !cfg.Executor.Paper {
		return nil, errors.New("no live executor available, set executor.paper: true")
	}
	return execution.NewPaperExecutor(), nil
}

func startMetricsServer(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", observability.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("metrics server failed", slog.Any("error", err))
		}
	}()
	return srv
}
