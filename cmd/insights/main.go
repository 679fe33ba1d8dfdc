package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/boddenberg/ledger-insights-bfa-go/internal/config"
	"github.com/boddenberg/ledger-insights-bfa-go/internal/handler"
	"github.com/boddenberg/ledger-insights-bfa-go/internal/infra/cache"
	"github.com/boddenberg/ledger-insights-bfa-go/internal/infra/client"
	"github.com/boddenberg/ledger-insights-bfa-go/internal/infra/filestore"
	"github.com/boddenberg/ledger-insights-bfa-go/internal/infra/observability"
	"github.com/boddenberg/ledger-insights-bfa-go/internal/infra/resilience"
	"github.com/boddenberg/ledger-insights-bfa-go/internal/infra/scheduler"
	"github.com/boddenberg/ledger-insights-bfa-go/internal/infra/sqlite"
	"github.com/boddenberg/ledger-insights-bfa-go/internal/infra/supabase"
	"github.com/boddenberg/ledger-insights-bfa-go/internal/port"
	"github.com/boddenberg/ledger-insights-bfa-go/internal/service"
)

func main() {
	// --- Load .env file (for local development) ---
	_ = config.LoadDotEnv(".env")

	// --- Config ---
	cfg := config.Load()

	// --- Logger ---
	logger := observability.NewLogger(cfg.LogLevel)
	defer logger.Sync()

	logger.Info("configuration loaded",
		zap.Int("port", cfg.Port),
		zap.String("log_level", cfg.LogLevel),
		zap.String("ledger_source", cfg.LedgerSource),
		zap.String("state_store", cfg.StateStore),
		zap.Duration("http_timeout", cfg.HTTPTimeout),
		zap.Duration("cache_ttl", cfg.CacheTTL),
		zap.Int("max_retries", cfg.MaxRetries),
		zap.Int("max_concurrency", cfg.MaxConcurrency),
		zap.String("schedule", cfg.ScheduleSpec),
		zap.Bool("auth_enabled", cfg.JWTSecret != ""),
	)

	// --- Tracing ---
	shutdown, err := observability.InitTracer(cfg.OTLPEndpoint, "ledger-insights-bfa")
	if err != nil {
		logger.Fatal("failed to init tracer", zap.Error(err))
	}
	defer shutdown(context.Background())

	// --- Thresholds ---
	thresholds, err := config.LoadThresholds(cfg.ThresholdsFile)
	if err != nil {
		logger.Fatal("failed to load thresholds", zap.String("file", cfg.ThresholdsFile), zap.Error(err))
	}

	// --- Metrics ---
	metrics := observability.NewMetrics()

	// --- Cache ---
	findingsCache := cache.New[*service.Findings](cfg.CacheTTL)
	defer findingsCache.Stop()

	// --- Resilience ---
	resilienceCfg := resilience.Config{
		MaxRetries:     cfg.MaxRetries,
		InitialBackoff: cfg.InitialBackoff,
		MaxConcurrency: cfg.MaxConcurrency,
	}
	cb := resilience.NewCircuitBreaker("ledger-sources")

	// --- Clients ---
	httpClient := &http.Client{Timeout: cfg.HTTPTimeout}

	var supabaseClient *supabase.Client
	if cfg.LedgerSource == "supabase" || cfg.StateStore == "supabase" {
		if cfg.SupabaseURL == "" {
			logger.Fatal("SUPABASE_URL is required for the supabase ledger source or state store")
		}
		logger.Info("using Supabase", zap.String("supabase_url", cfg.SupabaseURL))
		supabaseClient = supabase.NewClient(
			httpClient,
			cfg.SupabaseURL,
			cfg.SupabaseAnonKey,
			cfg.SupabaseServiceKey,
			cb,
			resilienceCfg,
			logger,
		)
	}

	var checks []handler.HealthCheck
	if supabaseClient != nil {
		checks = append(checks, handler.HealthCheck{Name: "supabase", Ping: supabaseClient.Ping})
	}

	// --- Ledger source ---
	var profiles port.ProfileFetcher
	var transactions port.TransactionsFetcher

	switch cfg.LedgerSource {
	case "supabase":
		profiles = supabaseClient
		transactions = supabaseClient
	case "http":
		logger.Info("using HTTP ledger API", zap.String("url", cfg.LedgerAPIURL))
		profiles = client.NewProfileClient(httpClient, cfg.LedgerAPIURL, cb, resilienceCfg)
		transactions = client.NewTransactionsClient(httpClient, cfg.LedgerAPIURL, cb, resilienceCfg)
	case "file":
		logger.Info("using snapshot files", zap.String("dir", cfg.SnapshotDir))
		files := filestore.New(cfg.SnapshotDir)
		profiles = files
		transactions = files
	default:
		logger.Fatal("unknown LEDGER_SOURCE", zap.String("ledger_source", cfg.LedgerSource))
	}

	// --- State store ---
	var modeStore port.ModeStore
	var opts []service.Option

	switch cfg.StateStore {
	case "sqlite":
		store, err := sqlite.Open(cfg.SQLitePath, logger)
		if err != nil {
			logger.Fatal("failed to open sqlite store", zap.String("path", cfg.SQLitePath), zap.Error(err))
		}
		defer store.Close()
		modeStore = store
		opts = append(opts, service.WithWeeklyHistory(store), service.WithRunRecorder(store))
		checks = append(checks, handler.HealthCheck{Name: "sqlite", Ping: store.Ping})
	case "supabase":
		modeStore = supabaseClient
		opts = append(opts, service.WithWeeklyHistory(supabaseClient))
	default:
		logger.Fatal("unknown STATE_STORE", zap.String("state_store", cfg.StateStore))
	}

	// --- Services ---
	modes := service.NewModeKeeper(modeStore, logger)
	defer modes.Close()

	opts = append(opts, service.WithBulkhead(resilience.NewBulkhead(cfg.MaxConcurrency)))
	insightsSvc := service.NewInsightsService(
		transactions,
		profiles,
		modes,
		findingsCache,
		thresholds,
		metrics,
		logger,
		opts...,
	)

	// --- Scheduler ---
	schedCtx, cancelSched := context.WithCancel(context.Background())
	defer cancelSched()

	var sched *scheduler.Scheduler
	if cfg.ScheduleSpec != "" {
		sched = scheduler.New(schedCtx, insightsSvc, cfg.ScheduledCustomers, 3*cfg.HTTPTimeout, logger)
		if err := sched.Register(cfg.ScheduleSpec); err != nil {
			logger.Fatal("failed to register schedule", zap.Error(err))
		}
		sched.Start()
	}

	// --- Router ---
	router := handler.NewRouter(insightsSvc, checks, metrics, cfg.JWTSecret, logger)

	// --- Server ---
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// --- Graceful shutdown ---
	go func() {
		logger.Info("server starting", zap.Int("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("server shutting down...")
	cancelSched()
	if sched != nil {
		sched.Stop()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatal("server forced shutdown", zap.Error(err))
	}

	logger.Info("server stopped")
}
