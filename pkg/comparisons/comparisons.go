// Package comparisons holds the fixed catalog of forecast/verification
// pairing strategies and their name resolution.
//
// A comparison turns a forecast ensemble (and, in the hindcast framework,
// an aligned reference series) into two identically shaped cubes: the
// forecast series and the series it is verified against. The compute
// engine then reduces the pair with a metric. Perfect-model comparisons
// operate on the ensemble alone, treating the first member as the control
// run's representative; hindcast comparisons pair the ensemble with an
// external reference.
package comparisons

import (
	"errors"
	"fmt"
	"strings"

	"github.com/driftcast/driftcast/pkg/cube"
)

var (
	// ErrUnknownComparison marks a comparison name absent from the
	// allowed set.
	ErrUnknownComparison = errors.New("unknown comparison")

	// ErrInvalidArgumentType marks a comparison argument that is neither
	// a name nor a *Comparison descriptor.
	ErrInvalidArgumentType = errors.New("invalid comparison argument type")
)

// MemberDim is the ensemble member dimension name comparisons operate on.
const MemberDim = "member"

// BroadcastFunc pairs a per-lead forecast cube with its verification
// series. ref is nil in the perfect-model framework. sampleDims names the
// extra dimensions (beyond the initialization dimension) the metric must
// fold into its sample.
type BroadcastFunc func(fc, ref *cube.Cube) (f, v *cube.Cube, sampleDims []string, err error)

// Comparison describes one pairing strategy. Descriptors are immutable
// after construction.
type Comparison struct {
	Name      string
	Aliases   []string
	Hindcast  bool
	Broadcast BroadcastFunc
}

var (
	catalog = map[string]*Comparison{}
	aliases = map[string]string{}
)

// PMComparisons lists the names valid in the perfect-model framework.
var PMComparisons = []string{"m2c", "e2c", "m2e", "m2m"}

// HindcastComparisons lists the names valid in the hindcast framework.
var HindcastComparisons = []string{"e2r", "m2r"}

func register(c *Comparison) {
	catalog[c.Name] = c
	aliases[c.Name] = c.Name
	for _, a := range c.Aliases {
		aliases[a] = c.Name
	}
}

func init() {
	register(&Comparison{Name: "e2c", Broadcast: e2c})
	register(&Comparison{Name: "m2c", Broadcast: m2c})
	register(&Comparison{Name: "m2e", Broadcast: m2e})
	register(&Comparison{Name: "m2m", Broadcast: m2m})
	register(&Comparison{Name: "e2r", Aliases: []string{"e2o"}, Hindcast: true, Broadcast: e2r})
	register(&Comparison{Name: "m2r", Aliases: []string{"m2o"}, Hindcast: true, Broadcast: m2r})
}

// Resolve turns a comparison name or descriptor into a *Comparison,
// mirroring the metric resolution contract.
func Resolve(v any, allowed []string) (*Comparison, error) {
	switch c := v.(type) {
	case *Comparison:
		return c, nil
	case string:
		name := c
		if canonical, ok := aliases[name]; ok {
			name = canonical
		}
		if !contains(allowed, name) {
			return nil, fmt.Errorf("%w %q: Specify comparison from %s",
				ErrUnknownComparison, c, strings.Join(allowed, ", "))
		}
		d, ok := catalog[name]
		if !ok {
			return nil, fmt.Errorf("%w %q: Specify comparison from %s",
				ErrUnknownComparison, c, strings.Join(allowed, ", "))
		}
		return d, nil
	default:
		return nil, fmt.Errorf("%w: provide a comparison name or *comparisons.Comparison, got %T",
			ErrInvalidArgumentType, v)
	}
}

// Get returns the catalog descriptor for a canonical name or alias.
func Get(name string) (*Comparison, bool) {
	if canonical, ok := aliases[name]; ok {
		name = canonical
	}
	d, ok := catalog[name]
	return d, ok
}

func contains(list []string, name string) bool {
	for _, v := range list {
		if v == name {
			return true
		}
	}
	return false
}

func requireMembers(fc *cube.Cube, comparison string, min int) error {
	if !fc.HasDim(MemberDim) {
		return fmt.Errorf("comparison %s: forecast has no %q dimension", comparison, MemberDim)
	}
	if fc.Len(MemberDim) < min {
		return fmt.Errorf("comparison %s: need at least %d members, have %d",
			comparison, min, fc.Len(MemberDim))
	}
	return nil
}

// e2c verifies the mean of the non-control members against the control
// member (the first member slot).
func e2c(fc, _ *cube.Cube) (*cube.Cube, *cube.Cube, []string, error) {
	if err := requireMembers(fc, "e2c", 2); err != nil {
		return nil, nil, nil, err
	}
	ctrl, err := fc.IselAt(MemberDim, 0)
	if err != nil {
		return nil, nil, nil, err
	}
	rest, err := fc.Isel(MemberDim, tail(fc.Len(MemberDim)))
	if err != nil {
		return nil, nil, nil, err
	}
	f, err := rest.Mean(MemberDim)
	if err != nil {
		return nil, nil, nil, err
	}
	return f, ctrl, nil, nil
}

// m2c verifies each non-control member against the control member.
func m2c(fc, _ *cube.Cube) (*cube.Cube, *cube.Cube, []string, error) {
	if err := requireMembers(fc, "m2c", 2); err != nil {
		return nil, nil, nil, err
	}
	ctrl, err := fc.IselAt(MemberDim, 0)
	if err != nil {
		return nil, nil, nil, err
	}
	f, err := fc.Isel(MemberDim, tail(fc.Len(MemberDim)))
	if err != nil {
		return nil, nil, nil, err
	}
	v, err := ctrl.Broadcast(f)
	if err != nil {
		return nil, nil, nil, err
	}
	return f, v, []string{MemberDim}, nil
}

// m2e verifies each member against the ensemble mean of all members.
func m2e(fc, _ *cube.Cube) (*cube.Cube, *cube.Cube, []string, error) {
	if err := requireMembers(fc, "m2e", 2); err != nil {
		return nil, nil, nil, err
	}
	mean, err := fc.Mean(MemberDim)
	if err != nil {
		return nil, nil, nil, err
	}
	v, err := mean.Broadcast(fc)
	if err != nil {
		return nil, nil, nil, err
	}
	return fc.Copy(), v, []string{MemberDim}, nil
}

// m2m verifies every member against every other member (all ordered
// pairs), folding the pairs back onto the member dimension.
func m2m(fc, _ *cube.Cube) (*cube.Cube, *cube.Cube, []string, error) {
	if err := requireMembers(fc, "m2m", 2); err != nil {
		return nil, nil, nil, err
	}
	n := fc.Len(MemberDim)
	fIdx := make([]int, 0, n*(n-1))
	vIdx := make([]int, 0, n*(n-1))
	for m := 0; m < n; m++ {
		for r := 0; r < n; r++ {
			if m == r {
				continue
			}
			fIdx = append(fIdx, m)
			vIdx = append(vIdx, r)
		}
	}
	f, err := fc.Isel(MemberDim, fIdx)
	if err != nil {
		return nil, nil, nil, err
	}
	v, err := fc.Isel(MemberDim, vIdx)
	if err != nil {
		return nil, nil, nil, err
	}
	return f, v, []string{MemberDim}, nil
}

// e2r verifies the ensemble mean against the aligned reference.
func e2r(fc, ref *cube.Cube) (*cube.Cube, *cube.Cube, []string, error) {
	if ref == nil {
		return nil, nil, nil, fmt.Errorf("comparison e2r: reference series required")
	}
	f := fc.Copy()
	if fc.HasDim(MemberDim) {
		var err error
		f, err = fc.Mean(MemberDim)
		if err != nil {
			return nil, nil, nil, err
		}
	}
	v, err := ref.Broadcast(f)
	if err != nil {
		return nil, nil, nil, err
	}
	return f, v, nil, nil
}

// m2r verifies each member against the aligned reference.
func m2r(fc, ref *cube.Cube) (*cube.Cube, *cube.Cube, []string, error) {
	if ref == nil {
		return nil, nil, nil, fmt.Errorf("comparison m2r: reference series required")
	}
	var sampleDims []string
	if fc.HasDim(MemberDim) {
		sampleDims = []string{MemberDim}
	}
	v, err := ref.Broadcast(fc)
	if err != nil {
		return nil, nil, nil, err
	}
	return fc.Copy(), v, sampleDims, nil
}

// tail returns [1, 2, ..., n-1].
func tail(n int) []int {
	out := make([]int, n-1)
	for i := range out {
		out[i] = i + 1
	}
	return out
}
