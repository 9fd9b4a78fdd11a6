package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads a TOML configuration file at path, merges it on top of the
// built-in defaults, expands ${VAR} placeholders from the environment,
// applies CLODDS_* environment variable overrides, and returns the final
// Config. The returned Config has NOT been validated; the caller should
// invoke Config.Validate() after Load.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, err
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	expandEnv(&cfg)
	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// expandEnv walks every string field reachable from cfg and substitutes
// ${VAR} placeholders from the process environment via os.Expand. Unlike
// applyEnvOverrides below, this runs against whatever the TOML file set, so
// an operator can write `api_key = "${KALSHI_API_KEY}"` directly in the
// config file instead of wiring a new well-known override variable.
func expandEnv(cfg *Config) {
	expand := func(s string) string { return os.Expand(s, os.Getenv) }

	for name, f := range cfg.Feeds {
		f.BaseURL = expand(f.BaseURL)
		f.WsURL = expand(f.WsURL)
		f.APIKey = expand(f.APIKey)
		f.APISecret = expand(f.APISecret)
		f.APIPassphrase = expand(f.APIPassphrase)
		cfg.Feeds[name] = f
	}

	cfg.Gateway.Token = expand(cfg.Gateway.Token)
	cfg.Store.CredentialKey = expand(cfg.Store.CredentialKey)
	cfg.Redis.Addr = expand(cfg.Redis.Addr)
	cfg.Redis.Password = expand(cfg.Redis.Password)
	cfg.S3.AccessKey = expand(cfg.S3.AccessKey)
	cfg.S3.SecretKey = expand(cfg.S3.SecretKey)
	cfg.Notify.TelegramToken = expand(cfg.Notify.TelegramToken)
	cfg.Notify.TelegramChatID = expand(cfg.Notify.TelegramChatID)
	cfg.Notify.DiscordWebhookURL = expand(cfg.Notify.DiscordWebhookURL)
}

// applyEnvOverrides reads well-known CLODDS_* environment variables and
// overwrites the corresponding Config fields when a variable is present
// (i.e. not empty). This lets operators inject secrets at deploy time
// without touching the TOML file at all.
func applyEnvOverrides(cfg *Config) {
	for _, venue := range []string{"polymarket", "kalshi", "manifold", "metaculus", "predictit", "drift", "betfair", "smarkets", "news"} {
		f, ok := cfg.Feeds[venue]
		if !ok {
			f = FeedConfig{}
		}
		prefix := "CLODDS_FEED_" + strings.ToUpper(venue) + "_"
		setBool(&f.Enabled, prefix+"ENABLED")
		setStr(&f.BaseURL, prefix+"BASE_URL")
		setStr(&f.WsURL, prefix+"WS_URL")
		setStr(&f.APIKey, prefix+"API_KEY")
		setStr(&f.APISecret, prefix+"API_SECRET")
		setStr(&f.APIPassphrase, prefix+"API_PASSPHRASE")
		setInt(&f.ChainID, prefix+"CHAIN_ID")
		setInt(&f.SignatureType, prefix+"SIGNATURE_TYPE")
		cfg.Feeds[venue] = f
	}

	// ── Gateway ──
	setBool(&cfg.Gateway.Enabled, "CLODDS_GATEWAY_ENABLED")
	setInt(&cfg.Gateway.Port, "CLODDS_GATEWAY_PORT")
	setStr(&cfg.Gateway.Bind, "CLODDS_GATEWAY_BIND")
	setStringSlice(&cfg.Gateway.CORSOrigins, "CLODDS_GATEWAY_CORS_ORIGINS")
	setStr(&cfg.Gateway.Token, "CLODDS_TOKEN")
	setInt(&cfg.Gateway.RateLimit, "CLODDS_GATEWAY_RATE_LIMIT_PER_MIN")
	setBool(&cfg.Gateway.ForceHTTPS, "CLODDS_GATEWAY_FORCE_HTTPS")

	// ── Cron ──
	setBool(&cfg.Cron.Enabled, "CLODDS_CRON_ENABLED")
	setInt(&cfg.Cron.ArchiveRetentionDays, "CLODDS_CRON_ARCHIVE_RETENTION_DAYS")
	setStr(&cfg.Cron.ArchiveCron, "CLODDS_CRON_ARCHIVE_CRON")
	setStr(&cfg.Cron.AlertScanCron, "CLODDS_CRON_ALERT_SCAN_CRON")
	setStr(&cfg.Cron.TimeZone, "CLODDS_CRON_TIME_ZONE")

	// ── HFT ──
	setBool(&cfg.HFT.Enabled, "CLODDS_HFT_ENABLED")
	setBool(&cfg.HFT.AutoExecute, "CLODDS_HFT_AUTO_EXECUTE")
	setStringSlice(&cfg.HFT.Assets, "CLODDS_HFT_ASSETS")
	setFloat64(&cfg.HFT.SizePerTrade, "CLODDS_HFT_SIZE_PER_TRADE")
	setInt(&cfg.HFT.MaxOpenPositions, "CLODDS_HFT_MAX_OPEN_POSITIONS")
	setFloat64(&cfg.HFT.TakeProfitPct, "CLODDS_HFT_TAKE_PROFIT_PCT")
	setFloat64(&cfg.HFT.StopLossPct, "CLODDS_HFT_STOP_LOSS_PCT")
	setDuration(&cfg.HFT.MakerTimeout, "CLODDS_HFT_MAKER_TIMEOUT")
	setDuration(&cfg.HFT.SellCooldown, "CLODDS_HFT_SELL_COOLDOWN")

	// ── Store ──
	setStr(&cfg.Store.Path, "CLODDS_STORE_PATH")
	setBool(&cfg.Store.RunMigrations, "CLODDS_STORE_RUN_MIGRATIONS")
	setStr(&cfg.Store.CredentialKey, "CLODDS_CREDENTIAL_KEY")

	// ── Redis ──
	setBool(&cfg.Redis.Enabled, "CLODDS_REDIS_ENABLED")
	setStr(&cfg.Redis.Addr, "CLODDS_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "CLODDS_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "CLODDS_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "CLODDS_REDIS_POOL_SIZE")
	setInt(&cfg.Redis.MaxRetries, "CLODDS_REDIS_MAX_RETRIES")
	setBool(&cfg.Redis.TLSEnabled, "CLODDS_REDIS_TLS_ENABLED")

	// ── S3 ──
	setBool(&cfg.S3.Enabled, "CLODDS_S3_ENABLED")
	setStr(&cfg.S3.Endpoint, "CLODDS_S3_ENDPOINT")
	setStr(&cfg.S3.Region, "CLODDS_S3_REGION")
	setStr(&cfg.S3.Bucket, "CLODDS_S3_BUCKET")
	setStr(&cfg.S3.AccessKey, "CLODDS_S3_ACCESS_KEY")
	setStr(&cfg.S3.SecretKey, "CLODDS_S3_SECRET_KEY")
	setBool(&cfg.S3.UseSSL, "CLODDS_S3_USE_SSL")
	setBool(&cfg.S3.ForcePathStyle, "CLODDS_S3_FORCE_PATH_STYLE")

	// ── Notify ──
	setStr(&cfg.Notify.TelegramToken, "CLODDS_NOTIFY_TELEGRAM_TOKEN")
	setStr(&cfg.Notify.TelegramChatID, "CLODDS_NOTIFY_TELEGRAM_CHAT_ID")
	setStr(&cfg.Notify.DiscordWebhookURL, "CLODDS_NOTIFY_DISCORD_WEBHOOK_URL")
	setStringSlice(&cfg.Notify.Events, "CLODDS_NOTIFY_EVENTS")

	// ── Top-level ──
	setStr(&cfg.Mode, "CLODDS_MODE")
	setStr(&cfg.LogLevel, "CLODDS_LOG_LEVEL")
}

// ---------------------------------------------------------------------------
// Typed env-var helpers. Each only mutates the target when the environment
// variable is present and non-empty.
// ---------------------------------------------------------------------------

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setFloat64(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			dst.Duration = d
		}
	}
}

func setStringSlice(dst *[]string, key string) {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		cleaned := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				cleaned = append(cleaned, p)
			}
		}
		if len(cleaned) > 0 {
			*dst = cleaned
		}
	}
}
