// Package metrics holds the fixed catalog of verification metrics and the
// name/alias resolution used by the compute and bootstrap engines.
//
// A Metric pairs a reduction function (two aligned sample vectors in, one
// skill value out) with the descriptor properties the engines need: how the
// physical unit transforms, which direction means "better", and whether the
// metric is probabilistic. The catalog is built once at package init and
// never mutated; alias resolution is a plain map lookup. Callers may also
// pass their own *Metric anywhere a name is accepted.
package metrics

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"

	"gonum.org/v1/gonum/stat"
)

var (
	// ErrUnknownMetric marks a metric name absent from the allowed set.
	ErrUnknownMetric = errors.New("unknown metric")

	// ErrInvalidArgumentType marks a metric argument that is neither a
	// name nor a *Metric descriptor.
	ErrInvalidArgumentType = errors.New("invalid metric argument type")
)

// Func reduces paired forecast and verification samples to one value.
type Func func(forecast, verif []float64) float64

// Metric describes one verification metric. Descriptors are immutable
// after construction; the catalog entries are shared across all callers.
type Metric struct {
	// Name is the canonical catalog name.
	Name string

	// Aliases are accepted alternative spellings.
	Aliases []string

	// UnitPower is the exponent applied to the input's physical unit in
	// the output: 0 clears the unit (dimensionless scores), 1 keeps it,
	// 2 squares it (mse-like metrics).
	UnitPower int

	// HigherIsBetter orients significance tests: true for correlation and
	// skill scores, false for error metrics.
	HigherIsBetter bool

	// Probabilistic marks metrics needing a member distribution rather
	// than a single forecast series. The shipped catalog is deterministic;
	// the flag exists for user-supplied descriptors.
	Probabilistic bool

	// MinDim is the minimum sample dimensionality the metric requires.
	MinDim int

	// Fn computes the metric.
	Fn Func
}

// catalog maps canonical name to descriptor; aliases maps every accepted
// spelling to its canonical name.
var (
	catalog = map[string]*Metric{}
	aliases = map[string]string{}
)

// PMMetrics lists the metric names valid in the perfect-model framework.
var PMMetrics = []string{
	"pearson_r", "mse", "rmse", "mae", "median_absolute_error",
	"nmse", "nrmse", "nmae", "msss",
}

// HindcastMetrics lists the metric names valid in the hindcast framework.
// The normalized scores assume a control run and are perfect-model only.
var HindcastMetrics = []string{
	"pearson_r", "mse", "rmse", "mae", "median_absolute_error", "msss",
}

func register(m *Metric) {
	catalog[m.Name] = m
	aliases[m.Name] = m.Name
	for _, a := range m.Aliases {
		aliases[a] = m.Name
	}
}

func init() {
	register(&Metric{
		Name: "pearson_r", Aliases: []string{"pr", "acc"},
		UnitPower: 0, HigherIsBetter: true, MinDim: 1,
		Fn: pearsonR,
	})
	register(&Metric{
		Name:      "mse",
		UnitPower: 2, MinDim: 1,
		Fn: mse,
	})
	register(&Metric{
		Name:      "rmse",
		UnitPower: 1, MinDim: 1,
		Fn: func(f, v []float64) float64 { return math.Sqrt(mse(f, v)) },
	})
	register(&Metric{
		Name:      "mae",
		UnitPower: 1, MinDim: 1,
		Fn: mae,
	})
	register(&Metric{
		Name: "median_absolute_error", Aliases: []string{"median_absolute_deviation"},
		UnitPower: 1, MinDim: 1,
		Fn: medianAbsoluteError,
	})
	register(&Metric{
		Name: "nmse", Aliases: []string{"nev"},
		UnitPower: 0, MinDim: 1,
		Fn: func(f, v []float64) float64 { return mse(f, v) / variance(v) },
	})
	register(&Metric{
		Name:      "nrmse",
		UnitPower: 0, MinDim: 1,
		Fn: func(f, v []float64) float64 { return math.Sqrt(mse(f, v)) / math.Sqrt(variance(v)) },
	})
	register(&Metric{
		Name:      "nmae",
		UnitPower: 0, MinDim: 1,
		Fn: func(f, v []float64) float64 { return mae(f, v) / math.Sqrt(variance(v)) },
	})
	register(&Metric{
		Name: "msss", Aliases: []string{"ppp"},
		UnitPower: 0, HigherIsBetter: true, MinDim: 1,
		Fn: func(f, v []float64) float64 { return 1 - mse(f, v)/variance(v) },
	})
}

// Resolve turns a metric name or descriptor into a *Metric.
//
// A *Metric passes through untouched, which is the extension point for
// user-supplied metrics. A string is checked against allowed, resolved
// through the alias map, and looked up in the catalog. Any other type is
// rejected.
func Resolve(v any, allowed []string) (*Metric, error) {
	switch m := v.(type) {
	case *Metric:
		return m, nil
	case string:
		if !contains(allowed, resolveAlias(m)) {
			return nil, fmt.Errorf("%w %q: Specify metric from %s",
				ErrUnknownMetric, m, strings.Join(allowed, ", "))
		}
		d, ok := catalog[resolveAlias(m)]
		if !ok {
			return nil, fmt.Errorf("%w %q: Specify metric from %s",
				ErrUnknownMetric, m, strings.Join(allowed, ", "))
		}
		return d, nil
	default:
		return nil, fmt.Errorf("%w: provide a metric name or *metrics.Metric, got %T", ErrInvalidArgumentType, v)
	}
}

// Get returns the catalog descriptor for a canonical name or alias.
func Get(name string) (*Metric, bool) {
	d, ok := catalog[resolveAlias(name)]
	return d, ok
}

func resolveAlias(name string) string {
	if canonical, ok := aliases[name]; ok {
		return canonical
	}
	return name
}

func contains(list []string, name string) bool {
	for _, v := range list {
		if v == name {
			return true
		}
	}
	return false
}

func pearsonR(f, v []float64) float64 {
	return stat.Correlation(f, v, nil)
}

func mse(f, v []float64) float64 {
	s := 0.0
	for i := range f {
		d := f[i] - v[i]
		s += d * d
	}
	return s / float64(len(f))
}

func mae(f, v []float64) float64 {
	s := 0.0
	for i := range f {
		s += math.Abs(f[i] - v[i])
	}
	return s / float64(len(f))
}

func medianAbsoluteError(f, v []float64) float64 {
	d := make([]float64, len(f))
	for i := range f {
		d[i] = math.Abs(f[i] - v[i])
	}
	sort.Float64s(d)
	n := len(d)
	if n%2 == 1 {
		return d[n/2]
	}
	return 0.5 * (d[n/2-1] + d[n/2])
}

// variance is the population variance of the verification series, the
// normalization used by nmse/nrmse/nmae/msss.
func variance(v []float64) float64 {
	m := stat.Mean(v, nil)
	s := 0.0
	for _, x := range v {
		d := x - m
		s += d * d
	}
	return s / float64(len(v))
}
