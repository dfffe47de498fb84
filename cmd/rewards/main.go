package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/soundvine/rewards/internal/app"
	"github.com/soundvine/rewards/internal/config"
	"github.com/soundvine/rewards/pkg/logger"
	"github.com/soundvine/rewards/pkg/metrics"
)

// HTTP server timeout constants.
const (
	readTimeout       = 10 * time.Second
	writeTimeout      = 10 * time.Second
	idleTimeout       = 60 * time.Second
	readHeaderTimeout = 5 * time.Second
	shutdownTimeout   = 30 * time.Second
)

func main() {
	if err := logger.Init(); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		return
	}
	log := logger.Get()

	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load configuration (defaults -> optional file -> env)
	cfg, err := config.Load(ctx)
	if err != nil {
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		os.Exit(1)
	}

	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		log.Warn(ctx, "invalid log_level; falling back to info",
			logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	metrics.SetDefault(metrics.NewManager())

	svc := app.New(
		app.WithLogger(log),
		app.WithDSN(cfg.DatabaseDSN),
		app.WithBufferCapacity(cfg.BufferCapacity),
		app.WithDrainBatchSize(cfg.DrainBatchSize),
		app.WithDrainInterval(cfg.DrainInterval),
		app.WithDrainLockTTL(cfg.DrainLockTTL),
		app.WithTrendingInterval(cfg.TrendingInterval),
		app.WithTrendingVersion(cfg.TrendingVersion),
		app.WithTrendingLimit(cfg.TrendingLimit),
		app.WithRewardRanks(cfg.TrendingRewardRanks),
	)
	if err := svc.Start(ctx); err != nil {
		// Startup failures here are configuration errors; do not swallow.
		log.Fatal(ctx, "failed to start service", logger.Error(err))
	}
	defer svc.Stop()

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           mux,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	go func() {
		log.Info(ctx, "ops server listening", logger.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error(ctx, "ops server error", logger.Error(err))
		}
	}()

	<-ctx.Done()
	log.Info(context.Background(), "shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error(shutdownCtx, "ops server shutdown failed", logger.Error(err))
	}
}
