package app

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	s3blob "github.com/cloddsbot/core/internal/blob/s3"
	"github.com/cloddsbot/core/internal/bus"
	"github.com/cloddsbot/core/internal/config"
	"github.com/cloddsbot/core/internal/cron"
	"github.com/cloddsbot/core/internal/domain"
	"github.com/cloddsbot/core/internal/feed"
	"github.com/cloddsbot/core/internal/hft"
	"github.com/cloddsbot/core/internal/hft/strategy"
	"github.com/cloddsbot/core/internal/notify"
	"github.com/cloddsbot/core/internal/ratelimit"
	"github.com/cloddsbot/core/internal/server"
	"github.com/cloddsbot/core/internal/server/handler"
	"github.com/cloddsbot/core/internal/server/metrics"
	"github.com/cloddsbot/core/internal/server/ws"
	"github.com/cloddsbot/core/internal/store/sqlite"
	"github.com/cloddsbot/core/internal/usersocket"
	"github.com/redis/go-redis/v9"
)

// Dependencies bundles every constructed component the application's
// operating modes need. It is built once by Wire and torn down by the
// returned cleanup function.
type Dependencies struct {
	Logger *slog.Logger

	DB          *sqlite.DB
	Users       domain.UserStore
	Sessions    domain.SessionStore
	Alerts      domain.AlertStore
	Positions   domain.PositionStore
	Markets     domain.MarketStore
	Credentials domain.CredentialStore
	CronJobs    domain.CronJobStore

	Redis *redis.Client
	Bus   *bus.Bus

	Feeds       *feed.Manager
	UserSockets *usersocket.Manager

	Scanner   *hft.Scanner
	PosMgr    *hft.PositionManager
	Executor  *hft.Executor
	Engine    *hft.Engine
	Registry  *strategy.Registry

	Cron *cron.Service

	Notifier *notify.Notifier

	S3Client *s3blob.Client
	Archiver *s3blob.Archiver

	RateLimiter domain.RateLimiter

	MetricsRecorder *metrics.Recorder
	Gateway         *server.Server
	WSHub           *ws.Hub
}

// Wire constructs every dependency the configured mode needs from cfg, and
// returns a cleanup func that releases them in reverse order.
func Wire(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Dependencies, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	deps := &Dependencies{Logger: logger}

	// --- SQLite store ---
	db, err := sqlite.Open(cfg.Store.Path)
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("wire: open store: %w", err)
	}
	closers = append(closers, func() { _ = db.Close() })
	if cfg.Store.RunMigrations {
		if err := db.Migrate(ctx); err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: migrate store: %w", err)
		}
	}
	deps.DB = db
	deps.Users = sqlite.NewUserStore(db)
	deps.Sessions = sqlite.NewSessionStore(db)
	deps.Alerts = sqlite.NewAlertStore(db)
	deps.Positions = sqlite.NewPositionStore(db)
	deps.Markets = sqlite.NewMarketStore(db)
	deps.Credentials = sqlite.NewCredentialStore(db)
	deps.CronJobs = sqlite.NewCronJobStore(db)

	// --- Redis (optional distributed bus mirror) ---
	var mirror bus.Mirror
	if cfg.Redis.Enabled {
		rdb := redis.NewClient(&redis.Options{
			Addr:       cfg.Redis.Addr,
			Password:   cfg.Redis.Password,
			DB:         cfg.Redis.DB,
			PoolSize:   cfg.Redis.PoolSize,
			MaxRetries: cfg.Redis.MaxRetries,
		})
		if err := rdb.Ping(ctx).Err(); err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: redis ping: %w", err)
		}
		closers = append(closers, func() { _ = rdb.Close() })
		deps.Redis = rdb
		mirror = bus.NewRedisMirror(rdb, logger.With(slog.String("component", "bus_mirror")))
	}
	deps.Bus = bus.New(logger.With(slog.String("component", "bus")), mirror)

	// --- Feed manager ---
	feeds, err := feed.NewManager(cfg.Feeds, map[string]feed.AdapterFactory{}, nil, logger.With(slog.String("component", "feed")))
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("wire: feed manager: %w", err)
	}
	deps.Feeds = feeds

	// --- Notifications ---
	var senders []notify.Sender
	if cfg.Notify.TelegramToken != "" && cfg.Notify.TelegramChatID != "" {
		senders = append(senders, notify.NewTelegramSender(cfg.Notify.TelegramToken, cfg.Notify.TelegramChatID))
	}
	if cfg.Notify.DiscordWebhookURL != "" {
		senders = append(senders, notify.NewDiscordSender(cfg.Notify.DiscordWebhookURL))
	}
	deps.Notifier = notify.NewNotifier(senders, cfg.Notify.Events, logger.With(slog.String("component", "notify")))

	// --- User-channel sockets (fills and order events) ---
	deps.UserSockets = newUserSocketManager(feedWSURLs(cfg.Feeds), deps.Notifier, logger)
	closers = append(closers, deps.UserSockets.DisconnectAll)

	// --- HFT engine ---
	if cfg.HFT.Enabled {
		roundSource := newFeedRoundSource(feeds, primaryHFTVenue(cfg))
		deps.Scanner = hft.NewScanner(cfg.HFT.Assets, roundSource, hft.DefaultScannerConfig())
		deps.PosMgr = hft.NewPositionManager(positionManagerConfig(cfg), deps.Positions, logger.With(slog.String("component", "positions")))

		var adapter domain.ExecutionAdapter
		execCfg := hft.DefaultExecutionConfig()
		if cfg.HFT.MakerTimeout.Duration > 0 {
			execCfg.MakerTimeoutEntryMs = cfg.HFT.MakerTimeout.Milliseconds()
		}
		if !cfg.HFT.AutoExecute {
			execCfg.DryRun = true
		} else {
			adapter = newPaperExecutionAdapter(logger.With(slog.String("component", "paper_execution")))
		}
		deps.Executor = hft.NewExecutor(adapter, execCfg, logger.With(slog.String("component", "executor")))

		books := newFeedOrderbookCache(feeds, primaryHFTVenue(cfg))
		engineCfg := hft.EngineConfig{
			Assets:            cfg.HFT.Assets,
			StrategyParams:    strategyParams(cfg.HFT.Params),
			EnabledStrategies: cfg.HFT.Strategies,
			SizePerTrade:      cfg.HFT.SizePerTrade,
			Venue:             primaryHFTVenue(cfg),
			ExitCheckInterval: 0,
		}
		deps.Engine = hft.NewEngine(engineCfg, deps.Scanner, deps.PosMgr, deps.Executor, books, logger.With(slog.String("component", "hft")))
		deps.Registry = strategy.NewRegistry()

		deps.Bus.OnTick(engineTickBridge(deps.Engine, engineCfg.Venue))

		if cfg.HFT.AutoExecute {
			if err := connectOperatorFeed(ctx, deps.UserSockets, deps.Credentials, cfg.Store.CredentialKey, engineCfg.Venue); err != nil {
				logger.Warn("wire: operator user-channel socket not connected", slog.Any("error", err))
			}
		}
	}

	deps.Bus.ConnectFeeds(ctx, feeds)

	// --- Cron service ---
	if cfg.Cron.Enabled {
		cs := newChatSender(deps.Notifier)
		deps.Cron = cron.New(deps.CronJobs, feeds, deps.Alerts, cron.ChatSender(cs.SendAlert), nil, logger.With(slog.String("component", "cron")))
	}

	// --- S3 blob storage (optional archival) ---
	if cfg.S3.Enabled {
		s3Client, err := s3blob.New(ctx, s3blob.ClientConfig{
			Endpoint:       cfg.S3.Endpoint,
			Region:         cfg.S3.Region,
			Bucket:         cfg.S3.Bucket,
			AccessKey:      cfg.S3.AccessKey,
			SecretKey:      cfg.S3.SecretKey,
			UseSSL:         cfg.S3.UseSSL,
			ForcePathStyle: cfg.S3.ForcePathStyle,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: s3: %w", err)
		}
		closers = append(closers, func() { _ = s3Client.Close() })
		deps.S3Client = s3Client

		var priceSource s3blob.PriceSnapshotSource
		if deps.Engine != nil {
			priceSource = deps.Engine.Buffers()
		}
		deps.Archiver = s3blob.NewArchiver(s3blob.NewWriter(s3Client), deps.Positions, priceSource, logger.With(slog.String("component", "archiver")))
	}

	// --- Gateway (HTTP + WebSocket) ---
	if cfg.Gateway.Enabled {
		deps.RateLimiter = ratelimit.New()
		deps.MetricsRecorder = metrics.New()

		commands := buildCommands(feeds, deps.Alerts)
		cs := newChatSender(deps.Notifier)
		deps.WSHub = ws.NewHub(logger.With(slog.String("component", "ws")), commands, ws.ChatFunc(cs.SendChat))
		deps.WSHub.ConnectTicks(busTickSource{deps.Bus})

		checks := []handler.Check{
			{Name: "store", Fn: func(ctx context.Context) error { return deps.DB.Conn().PingContext(ctx) }},
			{Name: "host_resources", Fn: hostResourcesCheck},
		}
		healthHandler := handler.NewHealthHandler(checks...)
		metricsHandler := handler.NewMetricsHandler(deps.MetricsRecorder)
		commandsHandler := handler.NewCommandsHandler()

		var backtestHandler *handler.BacktestHandler
		var performanceHandler *handler.PerformanceHandler
		var featuresHandler *handler.FeaturesHandler
		if deps.Engine != nil {
			backtestHandler = handler.NewBacktestHandler(deps.Registry)
			performanceHandler = handler.NewPerformanceHandler(deps.Positions, deps.PosMgr)
			featuresHandler = handler.NewFeaturesHandler(feeds, deps.Engine.Buffers())
		} else {
			backtestHandler = handler.NewBacktestHandler(strategy.NewRegistry())
			performanceHandler = handler.NewPerformanceHandler(deps.Positions, nil)
			featuresHandler = handler.NewFeaturesHandler(feeds, nil)
		}

		srvCfg := server.Config{
			Port:        cfg.Gateway.Port,
			Bind:        cfg.Gateway.Bind,
			CORSOrigins: cfg.Gateway.CORSOrigins,
			Token:       cfg.Gateway.Token,
			RateLimit:   cfg.Gateway.RateLimit,
			ForceHTTPS:  cfg.Gateway.ForceHTTPS,
		}
		handlers := server.Handlers{
			Health:      healthHandler,
			Metrics:     metricsHandler,
			Commands:    commandsHandler,
			Backtest:    backtestHandler,
			Performance: performanceHandler,
			Features:    featuresHandler,
		}
		deps.Gateway = server.NewServer(srvCfg, handlers, deps.WSHub, deps.RateLimiter, deps.MetricsRecorder, logger.With(slog.String("component", "server")))
	}

	return deps, cleanup, nil
}

// primaryHFTVenue picks the venue the HFT engine trades against: the first,
// in name order, enabled feed entry that isn't the synthetic "news" source.
func primaryHFTVenue(cfg *config.Config) string {
	names := make([]string, 0, len(cfg.Feeds))
	for name := range cfg.Feeds {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if name == "news" || !cfg.Feeds[name].Enabled {
			continue
		}
		return name
	}
	return ""
}

// positionManagerConfig derives an hft.PositionManagerConfig from the
// config's top-level knobs, filling everything else from the built-in
// defaults.
func positionManagerConfig(cfg *config.Config) hft.PositionManagerConfig {
	pmc := hft.DefaultPositionManagerConfig()
	pmc.StopLossPct = cfg.HFT.StopLossPct
	pmc.TakeProfitPct = cfg.HFT.TakeProfitPct
	pmc.MaxOpenPositions = cfg.HFT.MaxOpenPositions
	pmc.SellCooldownMs = cfg.HFT.SellCooldown.Milliseconds()
	return pmc
}

// strategyParams converts the TOML-decoded params table (a flat map whose
// values are themselves per-strategy tables) into per-strategy
// strategy.Params maps, ignoring values that aren't numeric.
func strategyParams(raw map[string]any) map[string]strategy.Params {
	out := make(map[string]strategy.Params, len(raw))
	for name, v := range raw {
		table, ok := v.(map[string]any)
		if !ok {
			continue
		}
		params := make(strategy.Params, len(table))
		for k, pv := range table {
			switch n := pv.(type) {
			case float64:
				params[k] = n
			case int64:
				params[k] = float64(n)
			case int:
				params[k] = float64(n)
			}
		}
		out[name] = params
	}
	return out
}
