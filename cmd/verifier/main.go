// Command verifier implements the Driftcast skill verification engine.
//
// The verifier runs a continuous verification loop that:
//  1. Collects the observational reference series via a configurable adapter
//  2. Scores an initialized forecast ensemble against it, per lead
//  3. Computes the persistence baseline over the same leads
//  4. Optionally bootstraps confidence bounds and p values
//  5. Stores skill snapshots and exposes them via HTTP API at /skill/current
//
// The verifier serves an HTTP API on port 8081 (configurable) providing:
//   - GET /skill/current?job=<name> - Retrieve latest skill snapshot
//   - GET /healthz - Health check endpoint
//   - GET /metrics - Prometheus metrics endpoint
//
// Usage:
//
//	verifier \
//	  -job=decadal-sst \
//	  -framework=hindcast \
//	  -metric=rmse \
//	  -comparison=e2r \
//	  -adapter=http \
//	  -interval=1h
//
// Environment variables:
//
//	JOB            - Verification job name (required)
//	FRAMEWORK      - hindcast or perfect-model (default: hindcast)
//	METRIC         - Skill metric name (default: rmse)
//	COMPARISON     - Comparison name (default: e2r / m2e per framework)
//	DATASET        - Ensemble dataset name (default per framework)
//	ADAPTER        - Reference adapter kind: http or static
//	ADAPTER_*      - Adapter configuration (e.g. ADAPTER_URL, ADAPTER_VALUE_PATH)
//	BOOTSTRAP_N    - Bootstrap replicates, 0 disables (default: 0)
//	BOOTSTRAP_SIG  - Bootstrap confidence level in percent (default: 95)
//	SEED           - Bootstrap master seed (default: clock)
//	WORKERS        - Bootstrap worker pool size (default: one per CPU)
//	INTERVAL       - Verification loop interval (default: 1h)
//	WINDOW_YEARS   - Reference collection window in years (default: 100)
//	STORAGE        - memory or redis (default: memory)
//	TLS_ENABLED    - Serve HTTPS with mutual TLS (default: false)
//	TLS_CERT_FILE  - Certificate file (with TLS_KEY_FILE, TLS_CA_FILE)
//	LOG_LEVEL      - Logging level: debug, info, warn, error (default: info)
//	LOG_FORMAT     - Logging format: text, json (default: text)
package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/driftcast/driftcast/cmd/verifier/config"
	"github.com/driftcast/driftcast/cmd/verifier/logger"
	"github.com/driftcast/driftcast/cmd/verifier/metrics"
	"github.com/driftcast/driftcast/cmd/verifier/router"
	"github.com/driftcast/driftcast/cmd/verifier/store"
	"github.com/driftcast/driftcast/pkg/adapters"
	"github.com/driftcast/driftcast/pkg/httpx"
)

// version is set via ldflags at build time
var version = "dev"

func main() {
	cfg := config.ParseFlags()

	logger := logger.New(cfg)
	slog.SetDefault(logger)

	logger.Info("starting driftcast verifier",
		"version", version,
		"job", cfg.Job,
		"framework", cfg.Framework,
		"metric", cfg.Metric,
		"comparison", cfg.Comparison,
	)

	var adapter adapters.Adapter
	if cfg.Adapter != "" {
		var err error
		adapter, err = adapters.New(cfg.Adapter, cfg.AdapterConfig)
		if err != nil {
			logger.Error("failed to create adapter", "kind", cfg.Adapter, "error", err)
			os.Exit(1)
		}
		// The HTTP adapter talks mTLS to the observation API when TLS is on
		if h, ok := adapter.(*adapters.HTTPAdapter); ok {
			client, err := httpx.NewClient(cfg.TLS, 30*time.Second)
			if err != nil {
				logger.Error("failed to create adapter HTTP client", "error", err)
				os.Exit(1)
			}
			h.HTTPClient = client
		}
	}

	store := store.New(cfg, logger)
	if closer, ok := store.(interface{ Close() error }); ok {
		defer func() {
			if err := closer.Close(); err != nil {
				logger.Error("failed to close store", "error", err)
			}
		}()
	}

	v, err := NewVerifier(cfg, adapter, store, logger, metrics.New(cfg.Job))
	if err != nil {
		logger.Error("failed to create verifier", "error", err)
		os.Exit(1)
	}

	staleAfter := 2 * cfg.Interval // Snapshot is stale if older than 2x the interval
	mux := router.SetupRoutes(store, staleAfter, logger)

	var handler http.Handler = mux
	handler = httpx.LoggingMiddleware(logger)(handler)
	handler = httpx.RecoveryMiddleware(logger)(handler)

	httpServer := httpx.NewServer(cfg.Listen, handler, logger)
	if cfg.TLS.Enabled {
		tlsConfig, err := cfg.TLS.Server()
		if err != nil {
			logger.Error("failed to build server TLS config", "error", err)
			os.Exit(1)
		}
		httpServer.SetTLSConfig(tlsConfig)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		if err := v.Run(ctx, cfg.Interval); err != nil && err != context.Canceled {
			logger.Error("verification loop failed", "error", err)
		}
	}()

	serverErr := make(chan error, 1)
	go func() {
		if cfg.TLS.Enabled {
			serverErr <- httpServer.StartTLS(cfg.TLS.CertFile, cfg.TLS.KeyFile)
		} else {
			serverErr <- httpServer.Start()
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)

	select {
	case sig := <-sigCh:
		logger.Info("received shutdown signal", "signal", sig)
	case err := <-serverErr:
		if err != nil {
			logger.Error("server failed", "error", err)
		}
	}

	logger.Info("shutting down")
	cancel()

	if err := httpServer.Stop(10 * time.Second); err != nil {
		logger.Error("server shutdown failed", "error", err)
		os.Exit(1)
	}

	logger.Info("shutdown complete")
}
