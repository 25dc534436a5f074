package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultIsValid(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}
}

func TestLoadOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "engine.yaml")
	data := []byte(`
trading:
  capital_per_trade: 20000
  max_trades_per_day: 2
session:
  timezone: Asia/Kolkata
  open_hour: 9
  open_minute: 15
  close_hour: 15
  close_minute: 30
`)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Trading.CapitalPerTrade != 20000 {
		t.Errorf("capital_per_trade = %v, want 20000", cfg.Trading.CapitalPerTrade)
	}
	if cfg.Trading.MaxTradesPerDay != 2 {
		t.Errorf("max_trades_per_day = %d, want 2", cfg.Trading.MaxTradesPerDay)
	}
	// Untouched parameters keep their defaults.
	if cfg.Trading.StopLossPct != 0.20 {
		t.Errorf("stop_loss_pct = %v, want default 0.20", cfg.Trading.StopLossPct)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"non-positive capital", func(c *Config) { c.Trading.CapitalPerTrade = 0 }},
		{"negative capital", func(c *Config) { c.Trading.CapitalPerTrade = -1 }},
		{"zero trades", func(c *Config) { c.Trading.MaxTradesPerDay = 0 }},
		{"stop loss out of range", func(c *Config) { c.Trading.StopLossPct = 1.5 }},
		{"inverted window", func(c *Config) { c.Session.OpenHour = 16 }},
		{"missing timezone", func(c *Config) { c.Session.Timezone = "" }},
		{"zero confirm timeout", func(c *Config) { c.Executor.ConfirmTimeoutMs = 0 }},
	}

	for _, tc := range cases {
		cfg := Default()
		tc.mutate(cfg)
		err := cfg.Validate()
		if err == nil {
			t.Errorf("%s: expected validation error", tc.name)
			continue
		}
		if !errors.Is(err, ErrInvalidConfig) {
			t.Errorf("%s: error should wrap ErrInvalidConfig, got %v", tc.name, err)
		}
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("POSTGRES_DSN", "postgres://test")
	t.Setenv("FEED_WS_URL", "wss://feed.example")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Storage.PostgresDSN != "postgres://test" {
		t.Errorf("PostgresDSN = %q, want env override", cfg.Storage.PostgresDSN)
	}
	if cfg.Feed.WebsocketURL != "wss://feed.example" {
		t.Errorf("WebsocketURL = %q, want env override", cfg.Feed.WebsocketURL)
	}
}
