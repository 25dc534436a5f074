// Package main validates the engine's configuration and its collaborators
// before a trading session: config values, session window, storage
// connectivity, and the previous session's range. Run it before market
// open; a non-zero exit means the engine would refuse to start.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/joho/godotenv"

	"nifty-options-engine/internal/config"
	"nifty-options-engine/internal/session"
	"nifty-options-engine/internal/storage"
	"nifty-options-engine/internal/storage/migrations"
	pgstore "nifty-options-engine/internal/storage/postgres"
)

func main() {
	_ = godotenv.Load()

	configPath := flag.String("config", "", "Path to YAML configuration file")
	flag.Parse()

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, nil)))

	if err := preflight(*configPath); err != nil {
		fmt.Fprintf(os.Stderr, "preflight FAILED: %v\n", err)
		os.Exit(1)
	}
	fmt.Println("preflight OK")
}

func preflight(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	fmt.Printf("config: capital %.0f, max trades %d, thresholds %.0f%%/%.0f%%/%.0f%%\n",
		cfg.Trading.CapitalPerTrade, cfg.Trading.MaxTradesPerDay,
		cfg.Trading.StopLossPct*100, cfg.Trading.TargetPct*100, cfg.Trading.TrailingStopPct*100)

	window, err := session.NewWindow(cfg.Session.Timezone,
		cfg.Session.OpenHour, cfg.Session.OpenMinute,
		cfg.Session.CloseHour, cfg.Session.CloseMinute)
	if err != nil {
		return fmt.Errorf("session window: %w", err)
	}
	now := time.Now()
	fmt.Printf("session: %s, today is %s, window open %v\n",
		cfg.Session.Timezone, window.SessionDate(now), window.Contains(now))

	if cfg.Feed.WebsocketURL == "" {
		return errors.New("feed websocket_url is not configured (set FEED_WS_URL)")
	}

	if cfg.Storage.PostgresDSN == "" {
		fmt.Println("storage: in-memory (no POSTGRES_DSN), session state will not survive restarts")
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	pool, err := pgstore.NewPool(ctx, cfg.Storage.PostgresDSN)
	if err != nil {
		return fmt.Errorf("postgres: %w", err)
	}
	defer pool.Close()
	if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
		return fmt.Errorf("postgres migrations: %w", err)
	}
	fmt.Println("postgres: reachable, migrations applied")

	// The engine cannot start a day without the prior session's range.
	ranges := pgstore.NewDayRangeStore(pool)
	prev, err := ranges.GetLatestBefore(ctx, window.SessionDate(now))
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return fmt.Errorf("no session range before %s, seed session_ranges first", window.SessionDate(now))
	case err != nil:
		return fmt.Errorf("read session ranges: %w", err)
	default:
		fmt.Printf("reference range: %s high %.2f low %.2f\n", prev.SessionDate, prev.High, prev.Low)
	}

	if cfg.Storage.ClickhouseDSN != "" {
		conn, err := migrations.RunClickhouseMigrations(ctx, cfg.Storage.ClickhouseDSN)
		if err != nil {
			return fmt.Errorf("clickhouse: %w", err)
		}
		conn.Close()
		fmt.Println("clickhouse: reachable, migrations applied")
	}

	return nil
}
