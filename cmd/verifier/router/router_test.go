package router

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/driftcast/driftcast/pkg/storage"
)

func testSnapshot(generatedAt time.Time) storage.Snapshot {
	return storage.Snapshot{
		Job:         "decadal-sst",
		Metric:      "rmse",
		Comparison:  "e2r",
		GeneratedAt: generatedAt,
		Leads:       []float64{1, 2, 3},
		LeadUnits:   "years",
		Skill:       []float64{0.3, 0.5, 0.8},
		Baseline:    []float64{0.9, 1.3, 1.6},
	}
}

func TestSetupRoutes(t *testing.T) {
	store := storage.NewMemoryStore()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	mux := SetupRoutes(store, 2*time.Minute, logger)

	if mux == nil {
		t.Fatal("SetupRoutes() returned nil")
	}
}

func TestHealthEndpoint(t *testing.T) {
	store := storage.NewMemoryStore()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	mux := SetupRoutes(store, 2*time.Minute, logger)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	w := httptest.NewRecorder()

	mux.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("status code = %d, want %d", w.Code, http.StatusOK)
	}

	body := w.Body.String()
	if body != "OK" {
		t.Errorf("body = %q, want %q", body, "OK")
	}
}

// pingStore is a storage backend with a connection to check, like redis.
type pingStore struct {
	storage.Store
	pingErr error
}

func (p *pingStore) Ping(ctx context.Context) error { return p.pingErr }

func TestHealthEndpoint_BackendCheck(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	store := &pingStore{Store: storage.NewMemoryStore()}
	mux := SetupRoutes(store, 2*time.Minute, logger)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("healthy backend: status code = %d, want %d", w.Code, http.StatusOK)
	}

	store.pingErr = errors.New("connection refused")
	w = httptest.NewRecorder()
	mux.ServeHTTP(w, req)

	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("failing backend: status code = %d, want %d", w.Code, http.StatusServiceUnavailable)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	store := storage.NewMemoryStore()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	mux := SetupRoutes(store, 2*time.Minute, logger)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()

	mux.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("status code = %d, want %d", w.Code, http.StatusOK)
	}

	// Metrics endpoint should return prometheus text format
	contentType := w.Header().Get("Content-Type")
	if contentType == "" {
		t.Error("Content-Type header should be set for metrics endpoint")
	}
}

func TestGetSnapshot_MissingJob(t *testing.T) {
	store := storage.NewMemoryStore()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	mux := SetupRoutes(store, 2*time.Minute, logger)

	req := httptest.NewRequest(http.MethodGet, "/skill/current", nil)
	w := httptest.NewRecorder()

	mux.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status code = %d, want %d", w.Code, http.StatusBadRequest)
	}
}

func TestGetSnapshot_InvalidJobName(t *testing.T) {
	store := storage.NewMemoryStore()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	mux := SetupRoutes(store, 2*time.Minute, logger)

	req := httptest.NewRequest(http.MethodGet, "/skill/current?job=bad%2Fname", nil)
	w := httptest.NewRecorder()

	mux.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status code = %d, want %d", w.Code, http.StatusBadRequest)
	}
}

func TestGetSnapshot_NotFound(t *testing.T) {
	store := storage.NewMemoryStore()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	mux := SetupRoutes(store, 2*time.Minute, logger)

	req := httptest.NewRequest(http.MethodGet, "/skill/current?job=nonexistent", nil)
	w := httptest.NewRecorder()

	mux.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("status code = %d, want %d", w.Code, http.StatusNotFound)
	}
}

func TestGetSnapshot_Success(t *testing.T) {
	store := storage.NewMemoryStore()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	if err := store.Put(context.Background(), testSnapshot(time.Now())); err != nil {
		t.Fatalf("failed to put snapshot: %v", err)
	}

	mux := SetupRoutes(store, 2*time.Minute, logger)

	req := httptest.NewRequest(http.MethodGet, "/skill/current?job=decadal-sst", nil)
	w := httptest.NewRecorder()

	mux.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("status code = %d, want %d", w.Code, http.StatusOK)
	}

	contentType := w.Header().Get("Content-Type")
	if contentType != "application/json" {
		t.Errorf("Content-Type = %q, want %q", contentType, "application/json")
	}

	// Check that X-Driftcast-Stale is not set (snapshot is fresh)
	staleHeader := w.Header().Get("X-Driftcast-Stale")
	if staleHeader == "true" {
		t.Error("snapshot should not be marked as stale")
	}
}

func TestGetSnapshot_Stale(t *testing.T) {
	store := storage.NewMemoryStore()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	// Store an old snapshot
	if err := store.Put(context.Background(), testSnapshot(time.Now().Add(-5*time.Minute))); err != nil {
		t.Fatalf("failed to put snapshot: %v", err)
	}

	mux := SetupRoutes(store, 2*time.Minute, logger) // Stale after 2 minutes

	req := httptest.NewRequest(http.MethodGet, "/skill/current?job=decadal-sst", nil)
	w := httptest.NewRecorder()

	mux.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("status code = %d, want %d", w.Code, http.StatusOK)
	}

	staleHeader := w.Header().Get("X-Driftcast-Stale")
	if staleHeader != "true" {
		t.Error("snapshot should be marked as stale")
	}
}

func TestGetSnapshot_JSONResponse(t *testing.T) {
	store := storage.NewMemoryStore()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	snap := testSnapshot(time.Now())
	snap.LowCI = []float64{0.2, 0.4, 0.6}
	snap.HighCI = []float64{0.4, 0.6, 1.0}
	snap.PValue = []float64{0.04, 0.04, 0.2}
	if err := store.Put(context.Background(), snap); err != nil {
		t.Fatalf("failed to put snapshot: %v", err)
	}

	mux := SetupRoutes(store, 2*time.Minute, logger)

	req := httptest.NewRequest(http.MethodGet, "/skill/current?job=decadal-sst", nil)
	w := httptest.NewRecorder()

	mux.ServeHTTP(w, req)

	body := w.Body.String()
	if body == "" {
		t.Fatal("response body is empty")
	}

	expectedFields := []string{
		"\"job\"",
		"\"metric\"",
		"\"comparison\"",
		"\"generatedAt\"",
		"\"leads\"",
		"\"leadUnits\"",
		"\"skill\"",
		"\"baseline\"",
		"\"lowCI\"",
		"\"highCI\"",
		"\"pValue\"",
	}

	for _, field := range expectedFields {
		if !strings.Contains(body, field) {
			t.Errorf("response missing field %s", field)
		}
	}
}

func TestGetSnapshot_OmitsAbsentBootstrapFields(t *testing.T) {
	store := storage.NewMemoryStore()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	if err := store.Put(context.Background(), testSnapshot(time.Now())); err != nil {
		t.Fatalf("failed to put snapshot: %v", err)
	}

	mux := SetupRoutes(store, 2*time.Minute, logger)

	req := httptest.NewRequest(http.MethodGet, "/skill/current?job=decadal-sst", nil)
	w := httptest.NewRecorder()

	mux.ServeHTTP(w, req)

	body := w.Body.String()
	for _, field := range []string{"\"lowCI\"", "\"highCI\"", "\"pValue\""} {
		if strings.Contains(body, field) {
			t.Errorf("response should omit %s without a bootstrap", field)
		}
	}
}
