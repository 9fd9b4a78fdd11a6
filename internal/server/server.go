package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/cloddsbot/core/internal/domain"
	"github.com/cloddsbot/core/internal/server/handler"
	"github.com/cloddsbot/core/internal/server/metrics"
	"github.com/cloddsbot/core/internal/server/middleware"
	"github.com/cloddsbot/core/internal/server/ws"
)

// Config holds the HTTP gateway's runtime configuration.
type Config struct {
	Port        int
	Bind        string
	CORSOrigins []string
	Token       string // if empty, authentication is disabled
	RateLimit   int    // requests per minute per client; 0 disables limiting
	ForceHTTPS  bool
}

// Handlers aggregates every HTTP handler the gateway registers.
type Handlers struct {
	Health      *handler.HealthHandler
	Metrics     *handler.MetricsHandler
	Commands    *handler.CommandsHandler
	Backtest    *handler.BacktestHandler
	Performance *handler.PerformanceHandler
	Features    *handler.FeaturesHandler
}

// Server is the headless HTTP + WebSocket gateway.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
}

// NewServer builds a Server with every route registered on a ServeMux and
// the full middleware chain applied: metrics, auth, logging, CORS, security
// headers, then rate limiting — innermost to outermost in that order, so
// a rejected or unauthenticated request never reaches the handler.
func NewServer(cfg Config, handlers Handlers, wsHub *ws.Hub, limiter domain.RateLimiter, recorder *metrics.Recorder, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", handlers.Health.HealthCheck)
	mux.HandleFunc("GET /metrics", handlers.Metrics.Metrics)
	mux.HandleFunc("GET /api/commands", handlers.Commands.Commands)
	mux.HandleFunc("POST /api/backtest", handlers.Backtest.Backtest)
	mux.HandleFunc("GET /api/performance", handlers.Performance.Performance)
	mux.HandleFunc("GET /api/features/{venue}/{marketId}", handlers.Features.Features)

	if wsHub != nil {
		mux.HandleFunc("GET /ws", wsHub.HandleWS)
		mux.HandleFunc("GET /chat", wsHub.HandleChat)
		mux.HandleFunc("GET /api/ticks/stream", wsHub.HandleTicksStream)
	}

	var h http.Handler = mux
	if recorder != nil {
		h = recorder.Middleware(h)
	}
	h = middleware.Auth(cfg.Token)(h)
	h = middleware.Logging(logger)(h)
	h = middleware.CORS(cfg.CORSOrigins)(h)
	h = middleware.SecurityHeaders(middleware.SecurityConfig{ForceHTTPS: cfg.ForceHTTPS, HSTS: cfg.ForceHTTPS})(h)
	if limiter != nil && cfg.RateLimit > 0 {
		h = middleware.RateLimit(limiter, cfg.RateLimit, time.Minute)(h)
	}

	bind := cfg.Bind
	if bind == "" {
		bind = "0.0.0.0"
	}

	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", bind, cfg.Port),
		Handler:      h,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &Server{httpServer: srv, logger: logger}
}

// Start begins listening for HTTP requests. It blocks until the server
// encounters an error or is shut down.
func (s *Server) Start() error {
	s.logger.Info("server: starting", slog.String("addr", s.httpServer.Addr))
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server: listen: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server, waiting for in-flight requests
// to complete within the given context's deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("server: shutting down")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server: shutdown: %w", err)
	}
	return nil
}
