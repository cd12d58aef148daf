// Package main implements the core verification loop orchestration.
//
// This file contains the Verifier type which orchestrates the verification
// pipeline:
//
//	collect → verify → bootstrap (optional) → storeSnapshot
//
// The Verifier runs continuously via Run(), executing Tick() at regular
// intervals. Each tick collects the reference series, scores the configured
// ensemble against it per lead, computes the persistence baseline, optionally
// runs the bootstrap, and updates the stored snapshot served via HTTP API.
//
// The loop is instrumented with Prometheus metrics tracking the duration of
// each pipeline stage and any errors encountered during execution.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/driftcast/driftcast/cmd/verifier/config"
	"github.com/driftcast/driftcast/cmd/verifier/metrics"
	"github.com/driftcast/driftcast/pkg/adapters"
	"github.com/driftcast/driftcast/pkg/bootstrap"
	"github.com/driftcast/driftcast/pkg/cube"
	"github.com/driftcast/driftcast/pkg/datasets"
	"github.com/driftcast/driftcast/pkg/storage"
	"github.com/driftcast/driftcast/pkg/verify"
)

// Verifier orchestrates the verification loop: collect → verify → store.
type Verifier struct {
	cfg      *config.Config
	ensemble *cube.Cube
	adapter  adapters.Adapter
	store    storage.Store
	logger   *slog.Logger
	metrics  *metrics.Metrics
}

// NewVerifier creates a new Verifier. The ensemble dataset is loaded once at
// construction; the reference series is collected fresh on every tick. A nil
// adapter means the bundled reference dataset for the framework is used.
func NewVerifier(cfg *config.Config, adapter adapters.Adapter, store storage.Store, logger *slog.Logger, m *metrics.Metrics) (*Verifier, error) {
	if logger == nil {
		logger = slog.Default()
	}

	name := cfg.Dataset
	if name == "" {
		if cfg.Framework == config.FrameworkPerfectModel {
			name = datasets.PMEnsemble
		} else {
			name = datasets.HindcastEnsemble
		}
	}

	ensemble, err := datasets.Load(name)
	if err != nil {
		return nil, fmt.Errorf("load ensemble dataset: %w", err)
	}

	return &Verifier{
		cfg:      cfg,
		ensemble: ensemble,
		adapter:  adapter,
		store:    store,
		logger:   logger,
		metrics:  m,
	}, nil
}

// Run executes the verification loop at regular intervals.
// Blocks until context is canceled.
func (v *Verifier) Run(ctx context.Context, interval time.Duration) error {
	v.logger.Info("starting verification loop", "interval", interval, "framework", v.cfg.Framework)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	if err := v.Tick(ctx); err != nil {
		v.logger.Error("initial verification tick failed", "error", err)
	}

	for {
		select {
		case <-ctx.Done():
			v.logger.Info("verification loop stopped")
			return ctx.Err()
		case <-ticker.C:
			if err := v.Tick(ctx); err != nil {
				v.logger.Error("verification tick failed", "error", err)
			}
		}
	}
}

// Tick performs one verification cycle.
// Exported for testing purposes.
func (v *Verifier) Tick(ctx context.Context) error {
	start := time.Now()
	v.logger.Debug("starting verification tick")

	reference, collectDuration, err := v.collect(ctx)
	if err != nil {
		if v.metrics != nil {
			v.metrics.RecordError("adapter", "collect_failed")
		}
		return fmt.Errorf("collect: %w", err)
	}

	skill, baseline, verifyDuration, err := v.computeSkill(reference)
	if err != nil {
		if v.metrics != nil {
			v.metrics.RecordError("verify", "compute_failed")
		}
		return fmt.Errorf("verify: %w", err)
	}

	var boot *cube.Cube
	var bootDuration time.Duration
	if v.cfg.BootstrapN > 0 {
		boot, bootDuration, err = v.runBootstrap(reference)
		if err != nil {
			if v.metrics != nil {
				v.metrics.RecordError("bootstrap", "compute_failed")
			}
			return fmt.Errorf("bootstrap: %w", err)
		}
	}

	snapshot, err := v.buildSnapshot(skill, baseline, boot)
	if err != nil {
		if v.metrics != nil {
			v.metrics.RecordError("snapshot", "build_failed")
		}
		return fmt.Errorf("build snapshot: %w", err)
	}

	if err := v.store.Put(ctx, snapshot); err != nil {
		if v.metrics != nil {
			v.metrics.RecordError("store", "put_failed")
		}
		return fmt.Errorf("store: %w", err)
	}

	if v.metrics != nil {
		v.metrics.SetSnapshotAge(0) // Just generated
		if len(snapshot.Skill) > 0 {
			v.metrics.SetSkillLeadOne(snapshot.Skill[0])
		}
	}

	totalDuration := time.Since(start)
	v.logger.Info("verification tick complete",
		"job", v.cfg.Job,
		"metric", v.cfg.Metric,
		"comparison", v.cfg.Comparison,
		"leads", len(snapshot.Leads),
		"collect_ms", collectDuration.Milliseconds(),
		"verify_ms", verifyDuration.Milliseconds(),
		"bootstrap_ms", bootDuration.Milliseconds(),
		"total_ms", totalDuration.Milliseconds(),
	)

	return nil
}

// collect retrieves the reference series from the adapter, or loads the
// bundled reference dataset when no adapter is configured.
func (v *Verifier) collect(ctx context.Context) (*cube.Cube, time.Duration, error) {
	start := time.Now()

	var reference *cube.Cube
	var err error
	var source string

	if v.adapter != nil {
		source = v.adapter.Name()
		reference, err = v.adapter.Collect(ctx, v.cfg.WindowYears)
	} else {
		name := datasets.HindcastReference
		if v.cfg.Framework == config.FrameworkPerfectModel {
			name = datasets.PMControl
		}
		source = name
		reference, err = datasets.Load(name)
	}
	if err != nil {
		return nil, 0, err
	}

	duration := time.Since(start)

	if v.metrics != nil {
		v.metrics.RecordCollect(duration.Seconds())
	}

	v.logger.Info("collected reference series",
		"source", source,
		"points", reference.Len("time"),
		"window_years", v.cfg.WindowYears,
		"duration_ms", duration.Milliseconds(),
	)

	return reference, duration, nil
}

// computeSkill scores the ensemble against the reference and computes the
// persistence baseline over the same leads.
func (v *Verifier) computeSkill(reference *cube.Cube) (*cube.Cube, *cube.Cube, time.Duration, error) {
	start := time.Now()

	var skill *cube.Cube
	var err error
	if v.cfg.Framework == config.FrameworkPerfectModel {
		skill, err = verify.PerfectModel(v.ensemble, reference, v.cfg.Metric, v.cfg.Comparison, verify.InitDim, verify.WithLogger(v.logger))
	} else {
		skill, err = verify.Hindcast(v.ensemble, reference, v.cfg.Metric, v.cfg.Comparison, verify.InitDim, verify.WithLogger(v.logger))
	}
	if err != nil {
		return nil, nil, 0, err
	}

	baseline, err := verify.Persistence(v.ensemble, reference, v.cfg.Metric, verify.Quiet())
	if err != nil {
		return nil, nil, 0, fmt.Errorf("persistence baseline: %w", err)
	}

	duration := time.Since(start)

	if v.metrics != nil {
		v.metrics.RecordVerify(duration.Seconds())
	}

	v.logger.Debug("computed skill",
		"metric", v.cfg.Metric,
		"comparison", v.cfg.Comparison,
		"leads", skill.Len(verify.LeadDim),
		"duration_ms", duration.Milliseconds(),
	)

	return skill, baseline, duration, nil
}

// runBootstrap estimates confidence bounds and p values for the skill.
func (v *Verifier) runBootstrap(reference *cube.Cube) (*cube.Cube, time.Duration, error) {
	start := time.Now()

	result, err := bootstrap.PerfectModel(v.ensemble, reference, bootstrap.Options{
		Metric:     v.cfg.Metric,
		Comparison: v.cfg.Comparison,
		Sig:        v.cfg.BootstrapSig,
		N:          v.cfg.BootstrapN,
		Seed:       v.cfg.Seed,
		Workers:    v.cfg.Workers,
	})
	if err != nil {
		return nil, 0, err
	}

	duration := time.Since(start)

	if v.metrics != nil {
		v.metrics.RecordBootstrap(duration.Seconds(), v.cfg.BootstrapN)
	}

	v.logger.Debug("ran bootstrap",
		"replicates", v.cfg.BootstrapN,
		"sig", v.cfg.BootstrapSig,
		"duration_ms", duration.Milliseconds(),
	)

	return result, duration, nil
}

// buildSnapshot flattens the skill cubes into a storage.Snapshot.
func (v *Verifier) buildSnapshot(skill, baseline, boot *cube.Cube) (storage.Snapshot, error) {
	leadAx, err := skill.Axis(verify.LeadDim)
	if err != nil {
		return storage.Snapshot{}, err
	}

	snapshot := storage.Snapshot{
		Job:         v.cfg.Job,
		Metric:      v.cfg.Metric,
		Comparison:  v.cfg.Comparison,
		GeneratedAt: time.Now(),
		Leads:       append([]float64(nil), leadAx.Vals...),
		LeadUnits:   leadAx.Units,
		Skill:       skill.Data(),
		Baseline:    baseline.Data(),
	}

	if boot != nil {
		low, err := bootRow(boot, "init", "low_ci")
		if err != nil {
			return storage.Snapshot{}, err
		}
		high, err := bootRow(boot, "init", "high_ci")
		if err != nil {
			return storage.Snapshot{}, err
		}
		p, err := bootRow(boot, "uninit", "p")
		if err != nil {
			return storage.Snapshot{}, err
		}
		snapshot.LowCI = low
		snapshot.HighCI = high
		snapshot.PValue = p
	}

	return snapshot, nil
}

// bootRow extracts one per-lead statistic row from a bootstrap result cube.
func bootRow(boot *cube.Cube, kind, result string) ([]float64, error) {
	k, err := selLabel(boot, bootstrap.KindDim, kind)
	if err != nil {
		return nil, err
	}
	r, err := selLabel(k, bootstrap.ResultsDim, result)
	if err != nil {
		return nil, err
	}
	return r.Data(), nil
}

func selLabel(c *cube.Cube, dim, label string) (*cube.Cube, error) {
	ax, err := c.Axis(dim)
	if err != nil {
		return nil, err
	}
	for i, l := range ax.Labels {
		if l == label {
			return c.IselAt(dim, i)
		}
	}
	return nil, fmt.Errorf("no label %q on dimension %q", label, dim)
}

// GetStore returns the underlying store for HTTP handlers.
func (v *Verifier) GetStore() storage.Store {
	return v.store
}

// GetJob returns the job name.
func (v *Verifier) GetJob() string {
	return v.cfg.Job
}
