package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	claimshttp "github.com/joebrashear31/RCM-Automation-Project/internal/adapter/http"
	claimsnats "github.com/joebrashear31/RCM-Automation-Project/internal/adapter/nats"
	claimsotel "github.com/joebrashear31/RCM-Automation-Project/internal/adapter/otel"
	"github.com/joebrashear31/RCM-Automation-Project/internal/adapter/postgres"
	"github.com/joebrashear31/RCM-Automation-Project/internal/adapter/ristretto"
	"github.com/joebrashear31/RCM-Automation-Project/internal/config"
	"github.com/joebrashear31/RCM-Automation-Project/internal/logger"
	"github.com/joebrashear31/RCM-Automation-Project/internal/service"
)

func main() {
	if err := run(); err != nil {
		slog.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	slog.SetDefault(logger.New(cfg.Logging))
	slog.Info("config loaded",
		"port", cfg.Server.Port,
		"log_level", cfg.Logging.Level,
		"auto_execute", cfg.Orchestrator.AutoExecute,
		"confidence_threshold", cfg.Orchestrator.ConfidenceThreshold,
	)

	ctx := context.Background()

	// --- Telemetry ---
	shutdownTelemetry, err := claimsotel.Setup(ctx, cfg.Logging.Service, cfg.Telemetry.OTLPEndpoint)
	if err != nil {
		return fmt.Errorf("telemetry: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTelemetry(shutdownCtx); err != nil {
			slog.Warn("telemetry shutdown", "error", err)
		}
	}()

	metrics, err := claimsotel.NewMetrics()
	if err != nil {
		return fmt.Errorf("metrics: %w", err)
	}

	// --- Infrastructure ---

	pool, err := postgres.NewPool(ctx, cfg.Postgres)
	if err != nil {
		return fmt.Errorf("postgres: %w", err)
	}
	defer pool.Close()
	slog.Info("postgres connected")

	if err := postgres.RunMigrations(ctx, cfg.Postgres.DSN); err != nil {
		return fmt.Errorf("migrations: %w", err)
	}
	slog.Info("migrations applied")

	queue, err := claimsnats.Connect(ctx, cfg.NATS.URL)
	if err != nil {
		return fmt.Errorf("nats: %w", err)
	}
	defer func() { _ = queue.Close() }()
	slog.Info("nats connected")

	rateCache, err := ristretto.New(cfg.Cache.MaxSizeMB << 20)
	if err != nil {
		return fmt.Errorf("cache: %w", err)
	}
	defer rateCache.Close()

	// --- Services ---
	store := postgres.NewStore(pool)
	events := postgres.NewEventStore(pool)

	claimSvc := service.NewClaimService(store, events, queue)
	outcomeSvc := service.NewOutcomeService(store, rateCache, cfg.Outcomes.WindowDays, cfg.Cache.TTL, metrics)
	pipeline := service.NewOrchestrator(store, events, queue, claimSvc, outcomeSvc, cfg.Orchestrator, metrics)

	cancels, err := pipeline.StartSubscribers(ctx)
	if err != nil {
		return fmt.Errorf("subscribers: %w", err)
	}
	defer func() {
		for _, cancel := range cancels {
			cancel()
		}
	}()

	// --- HTTP ---
	handlers := claimshttp.NewHandlers(claimSvc, pipeline, outcomeSvc, queue)

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(chimw.Timeout(30 * time.Second))
	r.Use(claimsotel.HTTPMiddleware(cfg.Logging.Service))

	claimshttp.MountRoutes(r, handlers)

	addr := ":" + cfg.Server.Port

	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	// Graceful shutdown on SIGINT/SIGTERM
	runCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(runCtx)

	g.Go(func() error {
		slog.Info("starting server", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		slog.Info("shutting down server")

		if err := queue.Drain(); err != nil {
			slog.Warn("queue drain", "error", err)
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
