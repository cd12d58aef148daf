package main

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/driftcast/driftcast/cmd/verifier/config"
	"github.com/driftcast/driftcast/pkg/cube"
	"github.com/driftcast/driftcast/pkg/datasets"
	"github.com/driftcast/driftcast/pkg/storage"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func hindcastConfig() *config.Config {
	return &config.Config{
		Job:         "decadal-sst",
		Framework:   config.FrameworkHindcast,
		Metric:      "rmse",
		Comparison:  "e2r",
		Interval:    time.Hour,
		WindowYears: 100,
		Storage:     "memory",
	}
}

// fakeAdapter serves a fixed cube, or an error.
type fakeAdapter struct {
	cube *cube.Cube
	err  error
}

func (a *fakeAdapter) Collect(ctx context.Context, windowYears int) (*cube.Cube, error) {
	if a.err != nil {
		return nil, a.err
	}
	return a.cube, nil
}

func (a *fakeAdapter) Name() string { return "fake" }

func TestVerifier_Tick_Hindcast(t *testing.T) {
	cfg := hindcastConfig()
	store := storage.NewMemoryStore()

	v, err := NewVerifier(cfg, nil, store, testLogger(), nil)
	if err != nil {
		t.Fatalf("NewVerifier() error = %v", err)
	}

	if err := v.Tick(context.Background()); err != nil {
		t.Fatalf("Tick() error = %v", err)
	}

	snap, found, err := store.GetLatest(context.Background(), "decadal-sst")
	if err != nil {
		t.Fatalf("GetLatest() error = %v", err)
	}
	if !found {
		t.Fatal("expected snapshot after tick")
	}

	if snap.Metric != "rmse" || snap.Comparison != "e2r" {
		t.Errorf("snapshot metric/comparison = %s/%s, want rmse/e2r", snap.Metric, snap.Comparison)
	}
	if len(snap.Leads) == 0 {
		t.Fatal("snapshot has no leads")
	}
	if len(snap.Skill) != len(snap.Leads) {
		t.Errorf("skill length %d != leads length %d", len(snap.Skill), len(snap.Leads))
	}
	if len(snap.Baseline) != len(snap.Leads) {
		t.Errorf("baseline length %d != leads length %d", len(snap.Baseline), len(snap.Leads))
	}
	if snap.LeadUnits != "years" {
		t.Errorf("lead units = %q, want %q", snap.LeadUnits, "years")
	}
	if snap.LowCI != nil || snap.PValue != nil {
		t.Error("bootstrap fields should be absent without a bootstrap")
	}
	for i, s := range snap.Skill {
		if s < 0 {
			t.Errorf("rmse skill[%d] = %v, want >= 0", i, s)
		}
	}
}

func TestVerifier_Tick_PerfectModelWithBootstrap(t *testing.T) {
	cfg := hindcastConfig()
	cfg.Framework = config.FrameworkPerfectModel
	cfg.Comparison = "m2e"
	cfg.BootstrapN = 5
	cfg.BootstrapSig = 90
	cfg.Seed = 42
	cfg.Workers = 2
	store := storage.NewMemoryStore()

	v, err := NewVerifier(cfg, nil, store, testLogger(), nil)
	if err != nil {
		t.Fatalf("NewVerifier() error = %v", err)
	}

	if err := v.Tick(context.Background()); err != nil {
		t.Fatalf("Tick() error = %v", err)
	}

	snap, found, err := store.GetLatest(context.Background(), "decadal-sst")
	if err != nil {
		t.Fatalf("GetLatest() error = %v", err)
	}
	if !found {
		t.Fatal("expected snapshot after tick")
	}

	n := len(snap.Leads)
	if n == 0 {
		t.Fatal("snapshot has no leads")
	}
	if len(snap.LowCI) != n || len(snap.HighCI) != n || len(snap.PValue) != n {
		t.Fatalf("bootstrap fields should cover every lead: low=%d high=%d p=%d leads=%d",
			len(snap.LowCI), len(snap.HighCI), len(snap.PValue), n)
	}
	for i := range snap.LowCI {
		if snap.LowCI[i] > snap.HighCI[i] {
			t.Errorf("lead %v: low_ci %v > high_ci %v", snap.Leads[i], snap.LowCI[i], snap.HighCI[i])
		}
		if snap.PValue[i] < 0 || snap.PValue[i] > 1 {
			t.Errorf("lead %v: p = %v outside [0, 1]", snap.Leads[i], snap.PValue[i])
		}
	}
}

func TestVerifier_Tick_WithAdapter(t *testing.T) {
	reference, err := datasets.Load(datasets.HindcastReference)
	if err != nil {
		t.Fatalf("failed to load reference dataset: %v", err)
	}

	cfg := hindcastConfig()
	store := storage.NewMemoryStore()

	v, err := NewVerifier(cfg, &fakeAdapter{cube: reference}, store, testLogger(), nil)
	if err != nil {
		t.Fatalf("NewVerifier() error = %v", err)
	}

	if err := v.Tick(context.Background()); err != nil {
		t.Fatalf("Tick() error = %v", err)
	}

	_, found, err := store.GetLatest(context.Background(), "decadal-sst")
	if err != nil {
		t.Fatalf("GetLatest() error = %v", err)
	}
	if !found {
		t.Fatal("expected snapshot after tick")
	}
}

func TestVerifier_Tick_CollectFailure(t *testing.T) {
	cfg := hindcastConfig()
	store := storage.NewMemoryStore()

	v, err := NewVerifier(cfg, &fakeAdapter{err: errors.New("upstream down")}, store, testLogger(), nil)
	if err != nil {
		t.Fatalf("NewVerifier() error = %v", err)
	}

	err = v.Tick(context.Background())
	if err == nil {
		t.Fatal("Tick() should fail when the adapter fails")
	}
	if !strings.Contains(err.Error(), "collect") {
		t.Errorf("error %q should name the collect stage", err)
	}

	_, found, _ := store.GetLatest(context.Background(), "decadal-sst")
	if found {
		t.Error("no snapshot should be stored after a failed tick")
	}
}

func TestNewVerifier_UnknownDataset(t *testing.T) {
	cfg := hindcastConfig()
	cfg.Dataset = "no-such-dataset"

	_, err := NewVerifier(cfg, nil, storage.NewMemoryStore(), testLogger(), nil)
	if err == nil {
		t.Fatal("NewVerifier() should fail for an unknown dataset")
	}
	if !errors.Is(err, datasets.ErrUnknownDataset) {
		t.Errorf("error = %v, want ErrUnknownDataset", err)
	}
}

func TestVerifier_Run_StopsOnCancel(t *testing.T) {
	cfg := hindcastConfig()
	v, err := NewVerifier(cfg, nil, storage.NewMemoryStore(), testLogger(), nil)
	if err != nil {
		t.Fatalf("NewVerifier() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() {
		done <- v.Run(ctx, time.Hour)
	}()

	time.Sleep(100 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != context.Canceled {
			t.Errorf("Run() error = %v, want context.Canceled", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run() did not stop after cancel")
	}
}
