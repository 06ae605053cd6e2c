package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/feral-file/gmx-exporter/internal/adapter"
	"github.com/feral-file/gmx-exporter/internal/config"
	"github.com/feral-file/gmx-exporter/internal/logger"
	"github.com/feral-file/gmx-exporter/internal/pipeline"
	"github.com/feral-file/gmx-exporter/internal/providers/ethereum"
	"github.com/feral-file/gmx-exporter/internal/ratelimit"
)

// environment holds what a command needs for one run and tears it down afterwards
type environment struct {
	runner *pipeline.Runner
	pool   *ethereum.Pool
	stop   context.CancelFunc
}

func (e *environment) close() {
	if e.pool != nil {
		e.pool.Close()
	}
	e.stop()
	logger.Flush(2 * time.Second)
}

func setup(parent context.Context, opts *options) (context.Context, *environment, error) {
	if parent == nil {
		parent = context.Background()
	}

	// Load configuration
	cfg, err := config.Load(opts.configFile, opts.envPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}
	if opts.network != "" {
		cfg.Network = opts.network
	}
	if opts.outputDir != "" {
		cfg.OutputDir = opts.outputDir
	}

	network, err := cfg.SelectNetwork(cfg.Network)
	if err != nil {
		return nil, nil, err
	}

	// Initialize logger with sentry integration
	runID := ulid.Make().String()
	err = logger.Initialize(logger.Config{
		Debug:           cfg.Debug,
		SentryDSN:       cfg.SentryDSN,
		BreadcrumbLevel: zapcore.InfoLevel,
		Tags: map[string]string{
			"service": "gmx-exporter",
			"network": network.Name,
			"run_id":  runID,
		},
		Fields: []zap.Field{
			zap.String("network", network.Name),
			zap.String("run_id", runID),
		},
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	// Stop on interrupt; completed rows are still written
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	env := &environment{stop: stop}

	logger.InfoCtx(ctx, "Starting gmx-exporter",
		zap.Uint64("deployment_block", network.DeploymentBlock),
		zap.String("output_dir", cfg.OutputDir))

	if cfg.MetricsAddr != "" {
		go serveMetrics(ctx, cfg.MetricsAddr)
	}

	// Connect to the RPC endpoint
	pool, err := ethereum.NewPool(ctx, adapter.NewEthClientDialer(), ethereum.PoolConfig{
		RPCURL:      network.RPCURL,
		Size:        cfg.Worker.WorkerPoolSize,
		Limiter:     ratelimit.NewLimiter(cfg.RPC.RequestsPerSecond, cfg.RPC.Burst),
		CallTimeout: cfg.RPC.Timeout,
	})
	if err != nil {
		env.close()
		return nil, nil, err
	}
	env.pool = pool
	logger.InfoCtx(ctx, "Connected to RPC endpoint",
		zap.Int("connections", pool.Size()),
		zap.Float64("requests_per_second", cfg.RPC.RequestsPerSecond))

	env.runner = pipeline.NewRunner(cfg, network, pool, adapter.NewFileSystem(), adapter.NewClock())

	return ctx, env, nil
}

// serveMetrics exposes the prometheus registry until ctx is done
func serveMetrics(ctx context.Context, addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	server := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Warn("Metrics server shutdown failed", zap.Error(err))
		}
	}()

	logger.InfoCtx(ctx, "Serving metrics", zap.String("addr", addr))
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.ErrorCtx(ctx, fmt.Errorf("metrics server: %w", err))
	}
}
