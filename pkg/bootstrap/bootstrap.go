// Package bootstrap estimates the sampling uncertainty of forecast skill
// and tests it against an uninitialized baseline.
//
// The engine recomputes perfect-model skill on N resampled ensembles
// (initializations drawn with replacement, members too when present),
// builds percentile confidence intervals from the replicate distribution,
// and derives an empirical p-value for the hypothesis that a naive
// persistence forecast is at least as skillful as the initialized one.
//
// Replicates run on a worker pool. Each replicate owns a private RNG
// seeded from the master seed, so results are reproducible for a fixed
// seed regardless of worker count or scheduling order.
package bootstrap

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"runtime"
	"sort"
	"strconv"
	"sync"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/driftcast/driftcast/pkg/comparisons"
	"github.com/driftcast/driftcast/pkg/cube"
	"github.com/driftcast/driftcast/pkg/metrics"
	"github.com/driftcast/driftcast/pkg/timeindex"
	"github.com/driftcast/driftcast/pkg/verify"
)

// ErrInvalidArgument marks an Options field outside its valid range.
var ErrInvalidArgument = errors.New("invalid bootstrap argument")

// KindDim distinguishes the initialized skill rows from the
// uninitialized baseline rows in the result cube.
const KindDim = "kind"

// ResultsDim indexes the aggregate statistics in the result cube.
const ResultsDim = "results"

// Options configures a bootstrap run. Metric and Comparison follow the
// compute engine's contract (name or descriptor).
type Options struct {
	Metric     any
	Comparison any

	// Sig is the confidence level in percent. Zero means 95.
	Sig float64

	// N is the number of resampled replicates. Must be at least 1.
	N int

	// Dim is the dimension the metric reduces over; empty means init.
	Dim string

	// Seed fixes the master RNG. Zero draws a seed from the clock.
	Seed int64

	// Workers bounds the pool size. Zero means one per CPU.
	Workers int
}

// PerfectModel bootstraps perfect-model skill against a persistence
// baseline drawn from the control run.
//
// The result cube has axes kind ∈ {init, uninit} and results ∈ {skill,
// low_ci, high_ci, p} prepended to the skill dimensions. skill holds the
// unresampled computation; low_ci/high_ci the replicate percentiles; p
// the probability that a resampled baseline matches or beats the
// unresampled initialized skill, small-sample corrected to
// (count+1)/(N+1). p is NaN on the init rows.
func PerfectModel(ds, control *cube.Cube, opts Options) (*cube.Cube, error) {
	if opts.N < 1 {
		return nil, fmt.Errorf("%w: N = %d, need at least 1 replicate", ErrInvalidArgument, opts.N)
	}
	if opts.Sig == 0 {
		opts.Sig = 95
	}
	if opts.Sig <= 0 || opts.Sig >= 100 {
		return nil, fmt.Errorf("%w: Sig = %v, need 0 < Sig < 100", ErrInvalidArgument, opts.Sig)
	}
	if opts.Workers <= 0 {
		opts.Workers = runtime.NumCPU()
	}
	if opts.Seed == 0 {
		opts.Seed = time.Now().UnixNano()
	}

	// A bad metric or comparison name fails the call before any replicate
	// runs.
	m, err := metrics.Resolve(opts.Metric, metrics.PMMetrics)
	if err != nil {
		return nil, err
	}
	cmp, err := comparisons.Resolve(opts.Comparison, comparisons.PMComparisons)
	if err != nil {
		return nil, err
	}

	// Normalize the time axes once so a numeric init axis warns a single
	// time, not once per replicate.
	ds, err = timeindex.Convert(ds, verify.InitDim, "initialized ensemble", timeindex.Options{})
	if err != nil {
		return nil, err
	}
	control, err = timeindex.Convert(control, "time", "control run", timeindex.Options{})
	if err != nil {
		return nil, err
	}

	baseInit, err := verify.PerfectModel(ds, control, m, cmp, opts.Dim, verify.Quiet())
	if err != nil {
		return nil, err
	}
	baseUninit, err := verify.Persistence(ds, control, m, verify.Quiet())
	if err != nil {
		return nil, err
	}

	repInit, repUninit, err := runReplicates(ds, control, m, cmp, opts)
	if err != nil {
		return nil, err
	}

	initK, err := aggregate(baseInit, repInit, nil, opts.Sig)
	if err != nil {
		return nil, err
	}
	pvals := pValues(baseInit, repUninit, m.HigherIsBetter)
	uninitK, err := aggregate(baseUninit, repUninit, pvals, opts.Sig)
	if err != nil {
		return nil, err
	}

	out, err := cube.Stack(cube.LabelAxis(KindDim, []string{"init", "uninit"}), initK, uninitK)
	if err != nil {
		return nil, err
	}
	out.SetAttrs(baseInit.Attrs())
	out.SetAttr("bootstrap_iterations", strconv.Itoa(opts.N))
	out.SetAttr("confidence_interval_levels", fmt.Sprintf("%g-%g", loQuantile(opts.Sig), hiQuantile(opts.Sig)))
	out.SetAttr("seed", strconv.FormatInt(opts.Seed, 10))
	return out, nil
}

// runReplicates computes initialized and baseline skill on N resampled
// ensembles. Replicate k is fully determined by the k-th seed drawn from
// the master RNG.
func runReplicates(ds, control *cube.Cube, m *metrics.Metric, cmp *comparisons.Comparison, opts Options) ([]*cube.Cube, []*cube.Cube, error) {
	master := rand.New(rand.NewSource(opts.Seed))
	seeds := make([]int64, opts.N)
	for i := range seeds {
		seeds[i] = master.Int63()
	}

	repInit := make([]*cube.Cube, opts.N)
	repUninit := make([]*cube.Cube, opts.N)
	errs := make([]error, opts.N)

	jobs := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < opts.Workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for k := range jobs {
				repInit[k], repUninit[k], errs[k] = oneReplicate(ds, control, m, cmp, opts.Dim, seeds[k])
			}
		}()
	}
	for k := 0; k < opts.N; k++ {
		jobs <- k
	}
	close(jobs)
	wg.Wait()

	for k, err := range errs {
		if err != nil {
			return nil, nil, fmt.Errorf("replicate %d: %w", k, err)
		}
	}
	return repInit, repUninit, nil
}

func oneReplicate(ds, control *cube.Cube, m *metrics.Metric, cmp *comparisons.Comparison, dim string, seed int64) (*cube.Cube, *cube.Cube, error) {
	rng := rand.New(rand.NewSource(seed))

	dsR, err := ds.Isel(verify.InitDim, resampleIdx(rng, ds.Len(verify.InitDim)))
	if err != nil {
		return nil, nil, err
	}
	if dsR.HasDim(comparisons.MemberDim) {
		dsR, err = dsR.Isel(comparisons.MemberDim, resampleIdx(rng, dsR.Len(comparisons.MemberDim)))
		if err != nil {
			return nil, nil, err
		}
	}

	init, err := verify.PerfectModel(dsR, control, m, cmp, dim, verify.Quiet())
	if err != nil {
		return nil, nil, err
	}
	uninit, err := verify.Persistence(dsR, control, m, verify.Quiet())
	if err != nil {
		return nil, nil, err
	}
	return init, uninit, nil
}

// resampleIdx draws n indices in [0, n) with replacement.
func resampleIdx(rng *rand.Rand, n int) []int {
	idx := make([]int, n)
	for i := range idx {
		idx[i] = rng.Intn(n)
	}
	return idx
}

// aggregate turns a base skill cube and its replicate distribution into a
// cube with a results axis: {skill, low_ci, high_ci, p}. p may be nil,
// in which case the p rows are NaN.
func aggregate(base *cube.Cube, reps []*cube.Cube, p []float64, sig float64) (*cube.Cube, error) {
	repData := make([][]float64, len(reps))
	for k, r := range reps {
		d := r.Data()
		if len(d) != len(base.Data()) {
			return nil, fmt.Errorf("replicate %d shape differs from base skill", k)
		}
		repData[k] = d
	}

	size := len(base.Data())
	low := make([]float64, size)
	high := make([]float64, size)
	sample := make([]float64, len(reps))
	for e := 0; e < size; e++ {
		for k := range repData {
			sample[k] = repData[k][e]
		}
		sort.Float64s(sample)
		low[e] = stat.Quantile(loQuantile(sig), stat.LinInterp, sample, nil)
		high[e] = stat.Quantile(hiQuantile(sig), stat.LinInterp, sample, nil)
	}
	if p == nil {
		p = make([]float64, size)
		for e := range p {
			p[e] = math.NaN()
		}
	}

	axes, err := axesOf(base)
	if err != nil {
		return nil, err
	}
	rows := make([]*cube.Cube, 4)
	for i, data := range [][]float64{base.Data(), low, high, p} {
		rows[i], err = cube.New(data, axes...)
		if err != nil {
			return nil, err
		}
	}
	return cube.Stack(cube.LabelAxis(ResultsDim, []string{"skill", "low_ci", "high_ci", "p"}), rows...)
}

// pValues counts, per coordinate, how often a baseline replicate is at
// least as good as the unresampled initialized skill, in the metric's
// preferred direction.
func pValues(baseInit *cube.Cube, repUninit []*cube.Cube, higherIsBetter bool) []float64 {
	n := len(repUninit)
	base := baseInit.Data()
	count := make([]int, len(base))
	for k := 0; k < n; k++ {
		uninit := repUninit[k].Data()
		for e := range base {
			if higherIsBetter {
				if uninit[e] >= base[e] {
					count[e]++
				}
			} else if uninit[e] <= base[e] {
				count[e]++
			}
		}
	}
	p := make([]float64, len(base))
	for e := range p {
		p[e] = float64(count[e]+1) / float64(n+1)
	}
	return p
}

func loQuantile(sig float64) float64 { return (100 - sig) / 200 }
func hiQuantile(sig float64) float64 { return 1 - (100-sig)/200 }

func axesOf(c *cube.Cube) ([]cube.Axis, error) {
	dims := c.Dims()
	axes := make([]cube.Axis, len(dims))
	for i, d := range dims {
		ax, err := c.Axis(d)
		if err != nil {
			return nil, err
		}
		axes[i] = ax
	}
	return axes, nil
}
