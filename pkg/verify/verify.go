// Package verify is the Driftcast compute engine. It turns a prediction
// ensemble and a reference series into per-lead skill, in either the
// perfect-model framework (verification against the ensemble's own control
// structure) or the hindcast framework (verification against an external
// reference, with per-lag time alignment). A naive persistence baseline
// completes the set.
//
// All entry points are pure: inputs are never mutated, every stage works
// on copies, and identical inputs always produce identical skill values.
package verify

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/driftcast/driftcast/pkg/alignment"
	"github.com/driftcast/driftcast/pkg/comparisons"
	"github.com/driftcast/driftcast/pkg/cube"
	"github.com/driftcast/driftcast/pkg/metrics"
	"github.com/driftcast/driftcast/pkg/timeindex"
)

// InitDim is the initialization dimension skill is reduced over by default.
const InitDim = "init"

// LeadDim is the forecast horizon dimension.
const LeadDim = "lead"

// Option adjusts how the compute engine runs.
type Option func(*options)

type options struct {
	ti timeindex.Options
}

// Quiet suppresses the time normalizer's annual-resolution warning.
func Quiet() Option {
	return func(o *options) { o.ti.Silent = true }
}

// WithLogger routes the time normalizer's warnings to the given logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.ti.Logger = l }
}

func buildOptions(opts []Option) options {
	var o options
	for _, fn := range opts {
		fn(&o)
	}
	return o
}

// PerfectModel computes skill of an initialized ensemble verified within
// its own member structure, per lead.
//
// metric and comparison accept either a registry name (resolved against
// the perfect-model catalogs) or a user-supplied descriptor. dim names the
// dimension the metric reduces over; empty means the initialization
// dimension. The comparison may add further sample dimensions (member,
// pairs) of its own.
func PerfectModel(ds, control *cube.Cube, metric, comparison any, dim string, opts ...Option) (*cube.Cube, error) {
	o := buildOptions(opts)

	m, err := metrics.Resolve(metric, metrics.PMMetrics)
	if err != nil {
		return nil, err
	}
	cmp, err := comparisons.Resolve(comparison, comparisons.PMComparisons)
	if err != nil {
		return nil, err
	}
	if dim == "" {
		dim = InitDim
	}

	ds, err = timeindex.Convert(ds, InitDim, "initialized ensemble", o.ti)
	if err != nil {
		return nil, err
	}
	var ctrl *cube.Cube
	if control != nil {
		ctrl, err = timeindex.Convert(control, "time", "control run", o.ti)
		if err != nil {
			return nil, err
		}
	}

	leadAx, err := ds.Axis(LeadDim)
	if err != nil {
		return nil, fmt.Errorf("initialized ensemble: %w", err)
	}

	perLead := make([]*cube.Cube, len(leadAx.Vals))
	for i, lead := range leadAx.Vals {
		fcL, err := ds.SelVal(LeadDim, lead)
		if err != nil {
			return nil, err
		}
		f, v, sampleDims, err := cmp.Broadcast(fcL, ctrl)
		if err != nil {
			return nil, err
		}
		perLead[i], err = cube.ReducePair(f, v, reduceDims(dim, sampleDims), m.Fn)
		if err != nil {
			return nil, err
		}
	}

	skill, err := cube.Stack(leadAx, perLead...)
	if err != nil {
		return nil, err
	}
	return assignAttrs(skill, ds, "PerfectModel", m, cmp.Name, dim), nil
}

// Hindcast computes skill of retrospective forecasts verified against an
// independent reference series, aligning forecast inits and reference
// dates per lead before comparing.
func Hindcast(hind, reference *cube.Cube, metric, comparison any, dim string, opts ...Option) (*cube.Cube, error) {
	o := buildOptions(opts)

	m, err := metrics.Resolve(metric, metrics.HindcastMetrics)
	if err != nil {
		return nil, err
	}
	cmp, err := comparisons.Resolve(comparison, comparisons.HindcastComparisons)
	if err != nil {
		return nil, err
	}
	if dim == "" {
		dim = InitDim
	}

	hind, err = timeindex.Convert(hind, InitDim, "initialized hindcast", o.ti)
	if err != nil {
		return nil, err
	}
	reference, err = timeindex.Convert(reference, "time", "reference", o.ti)
	if err != nil {
		return nil, err
	}

	leadAx, err := hind.Axis(LeadDim)
	if err != nil {
		return nil, fmt.Errorf("initialized hindcast: %w", err)
	}

	perLead := make([]*cube.Cube, len(leadAx.Vals))
	for i, lead := range leadAx.Vals {
		fcL, err := hind.SelVal(LeadDim, lead)
		if err != nil {
			return nil, err
		}
		fcA, refAligned, err := alignAtLag(fcL, reference, leadAx.Units, int(lead))
		if err != nil {
			return nil, fmt.Errorf("lead %v: %w", lead, err)
		}
		f, v, sampleDims, err := cmp.Broadcast(fcA, refAligned)
		if err != nil {
			return nil, err
		}
		perLead[i], err = cube.ReducePair(f, v, reduceDims(dim, sampleDims), m.Fn)
		if err != nil {
			return nil, err
		}
	}

	skill, err := cube.Stack(leadAx, perLead...)
	if err != nil {
		return nil, err
	}
	return assignAttrs(skill, hind, "Hindcast", m, cmp.Name, dim), nil
}

// Persistence computes the naive persistence baseline: the forecast at
// lag L is the reference value at the initialization date itself,
// verified against the reference value L lead steps ahead.
func Persistence(ds, reference *cube.Cube, metric any, opts ...Option) (*cube.Cube, error) {
	o := buildOptions(opts)

	m, err := metrics.Resolve(metric, metrics.PMMetrics)
	if err != nil {
		return nil, err
	}

	ds, err = timeindex.Convert(ds, InitDim, "initialized ensemble", o.ti)
	if err != nil {
		return nil, err
	}
	reference, err = timeindex.Convert(reference, "time", "reference", o.ti)
	if err != nil {
		return nil, err
	}

	leadAx, err := ds.Axis(LeadDim)
	if err != nil {
		return nil, fmt.Errorf("initialized ensemble: %w", err)
	}
	initAx, err := ds.Axis(InitDim)
	if err != nil {
		return nil, fmt.Errorf("initialized ensemble: %w", err)
	}

	// A lead-0 framework is normalized to lead-1: the init dates move one
	// lead step back and the lead labels move one step up, so the
	// (forecast date, verification date) pairs are unchanged.
	leads := append([]float64(nil), leadAx.Vals...)
	inits := append([]time.Time(nil), initAx.Times...)
	if len(leads) > 0 && leads[0] == 0 {
		n, unit, err := alignment.ShiftArgs(leadAx.Units, 1)
		if err != nil {
			return nil, err
		}
		for i := range inits {
			inits[i] = alignment.Shift(inits[i], -n, unit)
		}
		for i := range leads {
			leads[i]++
		}
	}

	perLead := make([]*cube.Cube, len(leads))
	for li, lead := range leads {
		n, unit, err := alignment.ShiftArgs(leadAx.Units, int(lead))
		if err != nil {
			return nil, err
		}

		var fcIdx, tgtIdx []int
		for _, init := range inits {
			fi, okF := reference.IndexOfTime("time", init)
			ti, okT := reference.IndexOfTime("time", alignment.Shift(init, n, unit))
			if !okF || !okT {
				continue
			}
			fcIdx = append(fcIdx, fi)
			tgtIdx = append(tgtIdx, ti)
		}
		if len(fcIdx) == 0 {
			return nil, fmt.Errorf("persistence at lead %v: no init dates found in reference", lead)
		}

		fc, err := reference.Isel("time", fcIdx)
		if err != nil {
			return nil, err
		}
		tgt, err := reference.Isel("time", tgtIdx)
		if err != nil {
			return nil, err
		}
		// The two selections carry different time labels for the same
		// positions; verification pairs are positional here.
		tgt, err = tgt.WithAxis(mustAxis(fc, "time"))
		if err != nil {
			return nil, err
		}
		perLead[li], err = cube.ReducePair(fc, tgt, []string{"time"}, m.Fn)
		if err != nil {
			return nil, err
		}
	}

	skill, err := cube.Stack(leadAx, perLead...)
	if err != nil {
		return nil, err
	}
	return assignAttrs(skill, ds, "Persistence", m, "persistence", "time"), nil
}

// alignAtLag reduces the pair to the shared window (§alignment) and then
// matches every retained init with the reference value reachable at the
// lag, returning the reference re-indexed onto the init dimension.
func alignAtLag(fcL, reference *cube.Cube, units string, lag int) (*cube.Cube, *cube.Cube, error) {
	fcA, refR, err := alignment.ReduceTimeSeries(fcL, reference, units, lag)
	if err != nil {
		return nil, nil, err
	}
	n, unit, err := alignment.ShiftArgs(units, lag)
	if err != nil {
		return nil, nil, err
	}

	initAx, err := fcA.Axis(InitDim)
	if err != nil {
		return nil, nil, err
	}

	var keepInit, refIdx []int
	for i, init := range initAx.Times {
		j, ok := refR.IndexOfTime("time", alignment.Shift(init, n, unit))
		if !ok {
			continue
		}
		keepInit = append(keepInit, i)
		refIdx = append(refIdx, j)
	}
	if len(keepInit) == 0 {
		return nil, nil, fmt.Errorf("no verification dates found in reference")
	}

	fcA, err = fcA.Isel(InitDim, keepInit)
	if err != nil {
		return nil, nil, err
	}
	refSel, err := refR.Isel("time", refIdx)
	if err != nil {
		return nil, nil, err
	}
	refAligned, err := refSel.RenameDim("time", InitDim)
	if err != nil {
		return nil, nil, err
	}
	// Carry the init labels so the pair shares one index.
	refAligned, err = refAligned.WithAxis(mustAxis(fcA, InitDim))
	if err != nil {
		return nil, nil, err
	}
	return fcA, refAligned, nil
}

// reduceDims prepends dim to the comparison's sample dims, dropping
// duplicates.
func reduceDims(dim string, sampleDims []string) []string {
	out := []string{dim}
	for _, d := range sampleDims {
		if d != dim {
			out = append(out, d)
		}
	}
	return out
}

func mustAxis(c *cube.Cube, name string) cube.Axis {
	ax, err := c.Axis(name)
	if err != nil {
		panic(err)
	}
	return ax
}
