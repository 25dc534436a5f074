// Package config loads and validates engine configuration. Invalid
// parameter values are fatal at startup; the engine never starts with a
// partially valid configuration.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the top-level configuration for the engine process.
type Config struct {
	Trading  TradingConfig  `yaml:"trading"`
	Session  SessionConfig  `yaml:"session"`
	Feed     FeedConfig     `yaml:"feed"`
	Storage  StorageConfig  `yaml:"storage"`
	Notify   NotifyConfig   `yaml:"notify"`
	Metrics  MetricsConfig  `yaml:"metrics"`
	Executor ExecutorConfig `yaml:"executor"`
}

// TradingConfig holds the strategy parameters. All percentages are plain
// fractions of the option premium (0.20 = 20%).
type TradingConfig struct {
	CapitalPerTrade  float64 `yaml:"capital_per_trade"`
	MaxTradesPerDay  int     `yaml:"max_trades_per_day"`
	StopLossPct      float64 `yaml:"stop_loss_pct"`
	TargetPct        float64 `yaml:"target_pct"`
	TrailingStopPct  float64 `yaml:"trailing_stop_pct"`
	ReentryTolerance float64 `yaml:"reentry_tolerance"`
}

// SessionConfig defines the entry-authorization window.
type SessionConfig struct {
	Timezone    string `yaml:"timezone"`
	OpenHour    int    `yaml:"open_hour"`
	OpenMinute  int    `yaml:"open_minute"`
	CloseHour   int    `yaml:"close_hour"`
	CloseMinute int    `yaml:"close_minute"`
}

// FeedConfig points at the premium tick stream.
type FeedConfig struct {
	WebsocketURL string `yaml:"websocket_url"`
	InboxSize    int    `yaml:"inbox_size"`
}

// StorageConfig holds persistence collaborator endpoints. Empty DSNs
// select in-memory stores (paper runs, tests).
type StorageConfig struct {
	PostgresDSN   string `yaml:"postgres_dsn"`
	ClickhouseDSN string `yaml:"clickhouse_dsn"`
}

// NotifyConfig configures fire-and-forget notification delivery.
type NotifyConfig struct {
	TelegramToken  string `yaml:"telegram_token"`
	TelegramChatID string `yaml:"telegram_chat_id"`
}

// MetricsConfig configures the Prometheus endpoint.
type MetricsConfig struct {
	ListenAddr string `yaml:"listen_addr"`
}

// ExecutorConfig bounds the order-confirmation wait.
type ExecutorConfig struct {
	ConfirmTimeoutMs int  `yaml:"confirm_timeout_ms"`
	Paper            bool `yaml:"paper"`
}

// Default returns the configuration the original system ran with: 15k per
// trade, 4 trades a day, 20/60/20 thresholds, 09:15-15:30 IST session.
func Default() *Config {
	return &Config{
		Trading: TradingConfig{
			CapitalPerTrade:  15000,
			MaxTradesPerDay:  4,
			StopLossPct:      0.20,
			TargetPct:        0.60,
			TrailingStopPct:  0.20,
			ReentryTolerance: 0.002,
		},
		Session: SessionConfig{
			Timezone:    "Asia/Kolkata",
			OpenHour:    9,
			OpenMinute:  15,
			CloseHour:   15,
			CloseMinute: 30,
		},
		Feed: FeedConfig{
			InboxSize: 1024,
		},
		Metrics: MetricsConfig{
			ListenAddr: ":9102",
		},
		Executor: ExecutorConfig{
			ConfirmTimeoutMs: 5000,
			Paper:            true,
		},
	}
}

// Load reads the YAML configuration file at the given path over the
// defaults, applies environment overrides, and validates the result.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnvOverrides checks well-known environment variables and overrides
// the corresponding fields when they are set. Secrets are expected to come
// from the environment rather than the config file.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("POSTGRES_DSN"); v != "" {
		cfg.Storage.PostgresDSN = v
	}
	if v := os.Getenv("CLICKHOUSE_DSN"); v != "" {
		cfg.Storage.ClickhouseDSN = v
	}
	if v := os.Getenv("FEED_WS_URL"); v != "" {
		cfg.Feed.WebsocketURL = v
	}
	if v := os.Getenv("TELEGRAM_TOKEN"); v != "" {
		cfg.Notify.TelegramToken = v
	}
	if v := os.Getenv("TELEGRAM_CHAT_ID"); v != "" {
		cfg.Notify.TelegramChatID = v
	}
}

// Validate rejects parameter values the engine cannot trade with.
func (c *Config) Validate() error {
	t := c.Trading
	if t.CapitalPerTrade <= 0 {
		return fmt.Errorf("%w: capital_per_trade must be positive, got %v", ErrInvalidConfig, t.CapitalPerTrade)
	}
	if t.MaxTradesPerDay <= 0 {
		return fmt.Errorf("%w: max_trades_per_day must be positive, got %d", ErrInvalidConfig, t.MaxTradesPerDay)
	}
	if t.StopLossPct <= 0 || t.StopLossPct >= 1 {
		return fmt.Errorf("%w: stop_loss_pct must be in (0, 1), got %v", ErrInvalidConfig, t.StopLossPct)
	}
	if t.TargetPct <= 0 {
		return fmt.Errorf("%w: target_pct must be positive, got %v", ErrInvalidConfig, t.TargetPct)
	}
	if t.TrailingStopPct <= 0 || t.TrailingStopPct >= 1 {
		return fmt.Errorf("%w: trailing_stop_pct must be in (0, 1), got %v", ErrInvalidConfig, t.TrailingStopPct)
	}
	if t.ReentryTolerance < 0 || t.ReentryTolerance >= 1 {
		return fmt.Errorf("%w: reentry_tolerance must be in [0, 1), got %v", ErrInvalidConfig, t.ReentryTolerance)
	}

	s := c.Session
	if s.Timezone == "" {
		return fmt.Errorf("%w: session timezone is required", ErrInvalidConfig)
	}
	open := s.OpenHour*60 + s.OpenMinute
	close := s.CloseHour*60 + s.CloseMinute
	if open >= close {
		return fmt.Errorf("%w: session open %02d:%02d must precede close %02d:%02d",
			ErrInvalidConfig, s.OpenHour, s.OpenMinute, s.CloseHour, s.CloseMinute)
	}

	if c.Executor.ConfirmTimeoutMs <= 0 {
		return fmt.Errorf("%w: confirm_timeout_ms must be positive, got %d", ErrInvalidConfig, c.Executor.ConfirmTimeoutMs)
	}
	if c.Feed.InboxSize <= 0 {
		return fmt.Errorf("%w: feed inbox_size must be positive, got %d", ErrInvalidConfig, c.Feed.InboxSize)
	}
	return nil
}
