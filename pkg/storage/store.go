package storage

import (
	"context"
	"time"
)

// Snapshot is one completed verification result for a job: per-lead skill
// plus the bootstrap aggregates when a bootstrap ran.
type Snapshot struct {
	Job         string
	Metric      string
	Comparison  string
	GeneratedAt time.Time

	// Leads are the forecast horizons, in LeadUnits steps.
	Leads     []float64
	LeadUnits string

	// Skill is the initialized skill per lead.
	Skill []float64

	// LowCI, HighCI, and PValue hold the bootstrap aggregates per lead.
	// Nil when verification ran without a bootstrap.
	LowCI  []float64 `json:"low_ci,omitempty"`
	HighCI []float64 `json:"high_ci,omitempty"`
	PValue []float64 `json:"p_value,omitempty"`

	// Baseline is the persistence skill per lead, when computed.
	Baseline []float64 `json:"baseline,omitempty"`
}

type Store interface {
	Put(ctx context.Context, snapshot Snapshot) error
	GetLatest(ctx context.Context, job string) (Snapshot, bool, error)
}
