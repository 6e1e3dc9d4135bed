package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/wolfman30/roofing-lead-agent/internal/api/router"
	"github.com/wolfman30/roofing-lead-agent/internal/app/bootstrap"
	appconfig "github.com/wolfman30/roofing-lead-agent/internal/config"
	"github.com/wolfman30/roofing-lead-agent/internal/conversation"
	"github.com/wolfman30/roofing-lead-agent/internal/http/handlers"
	httpmiddleware "github.com/wolfman30/roofing-lead-agent/internal/http/middleware"
	"github.com/wolfman30/roofing-lead-agent/internal/leads"
	"github.com/wolfman30/roofing-lead-agent/internal/observability/metrics"
	"github.com/wolfman30/roofing-lead-agent/pkg/logging"
)

const shutdownTimeout = 30 * time.Second

func main() {
	// A missing .env is normal outside local development.
	_ = godotenv.Load()

	cfg := appconfig.Load()
	logger := logging.New(cfg.LogLevel)
	logger.Info("starting roofing lead agent API server",
		"env", cfg.Env,
		"port", cfg.Port,
		"leads_store", cfg.LeadsStore,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger, nil); err != nil {
		logger.Error("server exited with error", "error", err)
		os.Exit(1)
	}
	logger.Info("server stopped")
}

// setupMetrics registers the chat collectors plus Go runtime collectors on a
// dedicated registry and returns the handler serving it.
func setupMetrics() (http.Handler, *metrics.ChatMetrics) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	chatMetrics := metrics.NewChatMetrics(reg)
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}), chatMetrics
}

// run wires every component and serves until ctx is cancelled. When ready is
// non-nil it receives the bound listener address.
func run(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger, ready chan<- string) error {
	redisClient := bootstrap.BuildRedisClient(ctx, cfg, logger.With("component", "redis"), true)
	if redisClient != nil {
		defer func() { _ = redisClient.Close() }()
	}

	store, err := bootstrap.BuildLeadStore(ctx, cfg, redisClient, logger.With("component", "leads"))
	if err != nil {
		return err
	}
	defer store.Close()

	metricsHandler, chatMetrics := setupMetrics()

	chatLogger := logger.With("component", "chat")
	engine := conversation.NewEngine(chatLogger)
	chatHandler := conversation.NewHandler(conversation.HandlerConfig{
		Engine:   engine,
		Sessions: bootstrap.BuildSessionStore(redisClient, cfg, chatLogger),
		Leads:    store.Repo,
		Metrics:  chatMetrics,
		Logger:   chatLogger,
		DelayMin: cfg.ResponseDelayMin,
		DelayMax: cfg.ResponseDelayMax,
	})
	leadsHandler := leads.NewHandler(store.Repo, logger.With("component", "leads")).WithRecorder(chatMetrics)

	if cfg.AdminJWTSecret == "" {
		logger.Warn("ADMIN_JWT_SECRET not set; lead management endpoints will reject all requests")
	}
	rateLimiter := httpmiddleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)
	loginLimiter := httpmiddleware.NewLoginRateLimiter()

	checks := map[string]router.HealthCheck{}
	if store.Pool != nil {
		checks["postgres"] = store.Pool.Ping
	}
	if redisClient != nil {
		checks["redis"] = func(ctx context.Context) error { return redisClient.Ping(ctx).Err() }
	}

	handler := router.New(&router.Config{
		Logger:              logger,
		ConversationHandler: chatHandler,
		LeadsHandler:        leadsHandler,
		DashboardAuth:       handlers.NewDashboardAuthHandler(cfg.DashboardPassword, cfg.AdminJWTSecret, cfg.AdminTokenTTL, logger.With("component", "auth")),
		AdminAuthSecret:     cfg.AdminJWTSecret,
		MetricsHandler:      metricsHandler,
		CORSAllowedOrigins:  cfg.CORSAllowedOrigins,
		RateLimiter:         rateLimiter,
		LoginLimiter:        loginLimiter,
		HealthChecks:        checks,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		// Leaves room for the reply delay on top of turn processing.
		WriteTimeout: 15*time.Second + cfg.ResponseDelayMax,
		IdleTimeout:  60 * time.Second,
	}
	ln, err := net.Listen("tcp", srv.Addr)
	if err != nil {
		return err
	}
	if ready != nil {
		ready <- ln.Addr().String()
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("server listening", "addr", ln.Addr().String(), "leads_backend", store.Backend)
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		rateLimiter.Run(gctx)
		return nil
	})
	g.Go(func() error {
		loginLimiter.Run(gctx)
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
