// Package config defines the top-level configuration for the bridge and
// provides validation helpers.
package config

import (
	"fmt"
	"strings"
	"time"
)

// Config is the root configuration structure. Fields are populated from a
// TOML file, then ${VAR} placeholders are expanded from the environment,
// then CLODDS_* environment variables apply as a final override layer.
type Config struct {
	Feeds    map[string]FeedConfig `toml:"feeds"`
	Gateway  GatewayConfig         `toml:"gateway"`
	Cron     CronConfig            `toml:"cron"`
	HFT      HFTConfig             `toml:"hft"`
	Store    StoreConfig           `toml:"store"`
	Redis    RedisConfig           `toml:"redis"`
	S3       S3Config              `toml:"s3"`
	Notify   NotifyConfig          `toml:"notify"`
	Mode     string                `toml:"mode"`
	LogLevel string                `toml:"log_level"`
}

// FeedConfig describes one venue feed adapter. Fields a given venue does not
// use are left empty.
type FeedConfig struct {
	Enabled       bool   `toml:"enabled"`
	BaseURL       string `toml:"base_url"`
	WsURL         string `toml:"ws_url"`
	APIKey        string `toml:"api_key"`
	APISecret     string `toml:"api_secret"`
	APIPassphrase string `toml:"api_passphrase"`
	ChainID       int    `toml:"chain_id"`
	SignatureType int    `toml:"signature_type"`
}

// GatewayConfig holds HTTP/WS gateway parameters.
type GatewayConfig struct {
	Enabled     bool     `toml:"enabled"`
	Port        int      `toml:"port"`
	Bind        string   `toml:"bind"`
	CORSOrigins []string `toml:"cors_origins"`
	Token       string   `toml:"token"`
	RateLimit   int      `toml:"rate_limit_per_min"`
	ForceHTTPS  bool     `toml:"force_https"`
}

// CronConfig configures the Cron Service's own housekeeping jobs.
type CronConfig struct {
	Enabled              bool   `toml:"enabled"`
	ArchiveRetentionDays int    `toml:"archive_retention_days"`
	ArchiveCron          string `toml:"archive_cron"`
	AlertScanCron        string `toml:"alert_scan_cron"`
	TimeZone             string `toml:"time_zone"`
}

// HFTConfig configures the strategy engine.
type HFTConfig struct {
	Enabled          bool            `toml:"enabled"`
	AutoExecute      bool            `toml:"auto_execute"`
	Assets           []string        `toml:"assets"`
	SizePerTrade     float64         `toml:"size_per_trade"`
	MaxOpenPositions int             `toml:"max_open_positions"`
	TakeProfitPct    float64         `toml:"take_profit_pct"`
	StopLossPct      float64         `toml:"stop_loss_pct"`
	Strategies       map[string]bool `toml:"strategies"`
	Params           map[string]any  `toml:"params"`
	MakerTimeout     duration        `toml:"maker_timeout"`
	SellCooldown     duration        `toml:"sell_cooldown"`
}

// StoreConfig configures SQLite persistence and credential encryption.
type StoreConfig struct {
	Path          string `toml:"path"`
	RunMigrations bool   `toml:"run_migrations"`
	CredentialKey string `toml:"credential_key"`
}

// RedisConfig holds connection parameters for the optional distributed bus
// mirror.
type RedisConfig struct {
	Enabled    bool   `toml:"enabled"`
	Addr       string `toml:"addr"`
	Password   string `toml:"password"`
	DB         int    `toml:"db"`
	PoolSize   int    `toml:"pool_size"`
	MaxRetries int    `toml:"max_retries"`
	TLSEnabled bool   `toml:"tls_enabled"`
}

// S3Config holds S3-compatible object storage parameters for the optional
// blob archiver.
type S3Config struct {
	Enabled        bool   `toml:"enabled"`
	Endpoint       string `toml:"endpoint"`
	Region         string `toml:"region"`
	Bucket         string `toml:"bucket"`
	AccessKey      string `toml:"access_key"`
	SecretKey      string `toml:"secret_key"`
	UseSSL         bool   `toml:"use_ssl"`
	ForcePathStyle bool   `toml:"force_path_style"`
}

// NotifyConfig holds notification channel credentials.
type NotifyConfig struct {
	TelegramToken     string   `toml:"telegram_token"`
	TelegramChatID    string   `toml:"telegram_chat_id"`
	DiscordWebhookURL string   `toml:"discord_webhook_url"`
	Events            []string `toml:"events"`
}

// duration is a wrapper around time.Duration that supports TOML string
// decoding (e.g. "5m", "30s").
type duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler so the TOML decoder can
// parse duration strings like "5m" or "30s".
func (d *duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// MarshalText implements encoding.TextMarshaler for round-trip encoding.
func (d duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Defaults returns a Config populated with reasonable default values.
func Defaults() Config {
	return Config{
		Feeds: map[string]FeedConfig{
			"polymarket": {BaseURL: "https://clob.polymarket.com", WsURL: "wss://ws-subscriptions-clob.polymarket.com", ChainID: 137, SignatureType: 2},
			"kalshi":     {BaseURL: "https://api.elections.kalshi.com/trade-api/v2"},
			"manifold":   {BaseURL: "https://manifold.markets/api/v0"},
			"metaculus":  {BaseURL: "https://www.metaculus.com/api2"},
			"predictit":  {BaseURL: "https://www.predictit.org/api/marketdata"},
			"drift":      {BaseURL: "https://dlob.drift.trade"},
			"betfair":    {BaseURL: "https://api.betfair.com/exchange/betting/rest/v1.0"},
			"smarkets":   {BaseURL: "https://api.smarkets.com/v3"},
			"news":       {},
		},
		Gateway: GatewayConfig{
			Enabled:     true,
			Port:        8000,
			Bind:        "0.0.0.0",
			CORSOrigins: []string{"http://localhost:3000", "http://localhost:5173"},
			RateLimit:   100,
		},
		Cron: CronConfig{
			Enabled:              true,
			ArchiveRetentionDays: 90,
			ArchiveCron:          "0 3 1 * *",
			AlertScanCron:        "*/1 * * * *",
			TimeZone:             "UTC",
		},
		HFT: HFTConfig{
			Enabled:          true,
			AutoExecute:      false,
			Assets:           []string{"BTC", "ETH"},
			SizePerTrade:     5.0,
			MaxOpenPositions: 3,
			TakeProfitPct:    10.0,
			StopLossPct:      5.0,
			Strategies: map[string]bool{
				"momentum":       true,
				"mean_reversion": true,
				"penny_clipper":  false,
				"expiry_fade":    false,
			},
			Params:       map[string]any{},
			MakerTimeout: duration{5 * time.Second},
			SellCooldown: duration{2 * time.Second},
		},
		Store: StoreConfig{
			Path:          "clodds.db",
			RunMigrations: true,
		},
		Redis: RedisConfig{
			Enabled:    false,
			Addr:       "localhost:6379",
			DB:         0,
			PoolSize:   20,
			MaxRetries: 3,
		},
		S3: S3Config{
			Enabled:        false,
			Endpoint:       "http://localhost:9000",
			Region:         "us-east-1",
			Bucket:         "clodds-data",
			ForcePathStyle: true,
		},
		Notify: NotifyConfig{
			Events: []string{"signal", "position_opened", "position_closed", "error"},
		},
		Mode:     "full",
		LogLevel: "info",
	}
}

// validModes enumerates the accepted values for Config.Mode.
var validModes = map[string]bool{
	"full":    true,
	"trade":   true,
	"monitor": true,
	"server":  true,
	"cron":    true,
}

// validLogLevels enumerates the accepted values for Config.LogLevel.
var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// Validate checks Config for obviously invalid or missing values and returns
// a combined error describing every problem found.
func (c *Config) Validate() error {
	var errs []string

	if !validModes[strings.ToLower(c.Mode)] {
		errs = append(errs, fmt.Sprintf("unknown mode %q (valid: full, trade, monitor, server, cron)", c.Mode))
	}
	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		errs = append(errs, fmt.Sprintf("unknown log_level %q (valid: debug, info, warn, error)", c.LogLevel))
	}

	if len(c.Feeds) == 0 {
		errs = append(errs, "feeds: at least one venue must be configured")
	}
	anyEnabled := false
	for name, f := range c.Feeds {
		if !f.Enabled {
			continue
		}
		anyEnabled = true
		if f.BaseURL == "" {
			errs = append(errs, fmt.Sprintf("feeds.%s: base_url must not be empty when enabled", name))
		}
	}
	if len(c.Feeds) > 0 && !anyEnabled {
		errs = append(errs, "feeds: at least one feed must be enabled")
	}

	if c.Gateway.Enabled {
		if c.Gateway.Port <= 0 || c.Gateway.Port > 65535 {
			errs = append(errs, fmt.Sprintf("gateway: port must be 1-65535, got %d", c.Gateway.Port))
		}
		if c.Gateway.RateLimit < 0 {
			errs = append(errs, "gateway: rate_limit_per_min must be >= 0")
		}
	}

	if c.Store.Path == "" {
		errs = append(errs, "store: path must not be empty")
	}

	if c.HFT.Enabled {
		if c.HFT.SizePerTrade <= 0 {
			errs = append(errs, "hft: size_per_trade must be > 0")
		}
		if c.HFT.MaxOpenPositions < 1 {
			errs = append(errs, "hft: max_open_positions must be >= 1")
		}
		if c.HFT.AutoExecute && c.Store.CredentialKey == "" {
			errs = append(errs, "hft: auto_execute requires store.credential_key (or CLODDS_CREDENTIAL_KEY) to be set")
		}
	}

	if c.Redis.Enabled && c.Redis.Addr == "" {
		errs = append(errs, "redis: addr must not be empty when enabled")
	}
	if c.Redis.Enabled && c.Redis.PoolSize < 1 {
		errs = append(errs, "redis: pool_size must be >= 1")
	}

	if c.S3.Enabled {
		if c.S3.Endpoint == "" {
			errs = append(errs, "s3: endpoint must not be empty when enabled")
		}
		if c.S3.Bucket == "" {
			errs = append(errs, "s3: bucket must not be empty when enabled")
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
