// Package router configures HTTP routes for the verifier's HTTP API.
//
// The verifier exposes an HTTP server on port 8081 (configurable) that provides
// skill snapshot retrieval, health checks, and Prometheus metrics. This package
// sets up the routes for that HTTP server.
//
// Routes configured:
//   - GET /skill/current?job=<name> - Retrieve latest skill snapshot
//   - GET /healthz - Health check endpoint (returns 200 OK)
//   - GET /metrics - Prometheus metrics endpoint
//
// The /skill/current endpoint returns skill snapshots in JSON format with
// per-lead skill scores, the persistence baseline, optional bootstrap
// confidence bounds and p values, and metadata (metric, comparison, generated
// timestamp). Snapshots older than the stale threshold include an
// X-Driftcast-Stale header.
package router

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"regexp"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/driftcast/driftcast/pkg/httpx"
	"github.com/driftcast/driftcast/pkg/storage"
)

var jobNameRegex = regexp.MustCompile(`^[a-zA-Z0-9]([a-zA-Z0-9_-]{0,251}[a-zA-Z0-9])?$`)

// SetupRoutes configures HTTP endpoints for the verifier.
func SetupRoutes(store storage.Store, staleAfter time.Duration, logger *slog.Logger) *http.ServeMux {
	mux := http.NewServeMux()

	// Health check endpoint. Backends with a connection to check (redis)
	// report it; the in-memory store is always healthy.
	if p, ok := store.(interface{ Ping(context.Context) error }); ok {
		mux.Handle("/healthz", httpx.HealthHandlerWithCheck(func() error {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			return p.Ping(ctx)
		}))
	} else {
		mux.Handle("/healthz", httpx.HealthHandler())
	}

	// Skill snapshot endpoint
	mux.HandleFunc("/skill/current", handleGetSnapshot(store, staleAfter, logger))

	// Prometheus metrics endpoint
	mux.Handle("/metrics", promhttp.Handler())

	return mux
}

// handleGetSnapshot returns a handler for GET /skill/current?job=<name>.
func handleGetSnapshot(store storage.Store, staleAfter time.Duration, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		job := r.URL.Query().Get("job")
		if job == "" {
			httpx.WriteErrorMessage(w, http.StatusBadRequest, "job parameter required")
			return
		}

		if !jobNameRegex.MatchString(job) {
			httpx.WriteErrorMessage(w, http.StatusBadRequest, "invalid job name format")
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		snapshot, found, err := store.GetLatest(ctx, job)
		if err != nil {
			logger.Error("failed to get snapshot", "job", job, "error", err)
			httpx.WriteErrorMessage(w, http.StatusInternalServerError, "internal server error")
			return
		}

		if !found {
			httpx.WriteErrorMessage(w, http.StatusNotFound, fmt.Sprintf("snapshot not found for job %q", job))
			return
		}

		if time.Since(snapshot.GeneratedAt) > staleAfter {
			w.Header().Set("X-Driftcast-Stale", "true")
		}

		resp := map[string]any{
			"job":         snapshot.Job,
			"metric":      snapshot.Metric,
			"comparison":  snapshot.Comparison,
			"generatedAt": snapshot.GeneratedAt.Format(time.RFC3339),
			"leads":       snapshot.Leads,
			"leadUnits":   snapshot.LeadUnits,
			"skill":       snapshot.Skill,
		}
		if snapshot.Baseline != nil {
			resp["baseline"] = snapshot.Baseline
		}
		if snapshot.LowCI != nil {
			resp["lowCI"] = snapshot.LowCI
			resp["highCI"] = snapshot.HighCI
		}
		if snapshot.PValue != nil {
			resp["pValue"] = snapshot.PValue
		}

		if err := httpx.WriteJSON(w, http.StatusOK, resp); err != nil {
			logger.Error("failed to write JSON response", "error", err)
		}
	}
}
