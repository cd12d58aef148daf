// Package cube provides a small labeled n-dimensional array used throughout
// the Driftcast verification pipeline.
//
// A Cube couples a flat row-major float64 buffer with named, coordinate-indexed
// axes and a string attribute map. It is the common currency between the
// dataset loaders, the time normalizer, the compute engine, and the bootstrap
// engine. Cubes are value-like: every deriving operation (selection,
// reduction, resampling) returns a new Cube and never mutates its receiver,
// so callers can hand the same Cube to several pipeline stages safely.
//
// An axis carries exactly one coordinate representation:
//   - Times  — calendar timestamps (init and time dimensions)
//   - Vals   — numeric labels (lead, member, spatial indices)
//   - Labels — string labels (categorical axes such as bootstrap "kind")
package cube

import (
	"fmt"
	"time"
)

// Axis describes one named dimension of a Cube together with its
// coordinate labels. Exactly one of Times, Vals, or Labels is set.
type Axis struct {
	Name   string
	Times  []time.Time
	Vals   []float64
	Labels []string

	// Units optionally tags the axis with a physical step unit.
	// The lead axis uses this to declare years/months/weeks/etc.
	Units string
}

// Len returns the number of coordinate labels on the axis.
func (a Axis) Len() int {
	switch {
	case a.Times != nil:
		return len(a.Times)
	case a.Vals != nil:
		return len(a.Vals)
	default:
		return len(a.Labels)
	}
}

// IsTime reports whether the axis holds calendar timestamps.
func (a Axis) IsTime() bool { return a.Times != nil }

// IsNumeric reports whether the axis holds numeric labels.
func (a Axis) IsNumeric() bool { return a.Times == nil && a.Vals != nil }

// IsLabeled reports whether the axis holds string labels.
func (a Axis) IsLabeled() bool { return a.Times == nil && a.Vals == nil && a.Labels != nil }

// clone returns a deep copy of the axis.
func (a Axis) clone() Axis {
	out := Axis{Name: a.Name, Units: a.Units}
	if a.Times != nil {
		out.Times = append([]time.Time(nil), a.Times...)
	}
	if a.Vals != nil {
		out.Vals = append([]float64(nil), a.Vals...)
	}
	if a.Labels != nil {
		out.Labels = append([]string(nil), a.Labels...)
	}
	return out
}

// take returns a copy of the axis keeping only the given positions.
// Positions may repeat, which is how bootstrap resampling is expressed.
func (a Axis) take(idx []int) Axis {
	out := Axis{Name: a.Name, Units: a.Units}
	switch {
	case a.Times != nil:
		out.Times = make([]time.Time, len(idx))
		for i, j := range idx {
			out.Times[i] = a.Times[j]
		}
	case a.Vals != nil:
		out.Vals = make([]float64, len(idx))
		for i, j := range idx {
			out.Vals[i] = a.Vals[j]
		}
	default:
		out.Labels = make([]string, len(idx))
		for i, j := range idx {
			out.Labels[i] = a.Labels[j]
		}
	}
	return out
}

// TimeAxis builds a calendar axis.
func TimeAxis(name string, times []time.Time) Axis {
	return Axis{Name: name, Times: times}
}

// NumAxis builds a numeric axis.
func NumAxis(name string, vals []float64) Axis {
	return Axis{Name: name, Vals: vals}
}

// LabelAxis builds a string-labeled axis.
func LabelAxis(name string, labels []string) Axis {
	return Axis{Name: name, Labels: labels}
}

// Cube is a labeled n-dimensional array: row-major data plus named axes
// and a free-form attribute map.
type Cube struct {
	axes    []Axis
	strides []int
	data    []float64
	attrs   map[string]string
}

// New builds a Cube from row-major data and its axes. The product of the
// axis lengths must equal len(data).
func New(data []float64, axes ...Axis) (*Cube, error) {
	size := 1
	for _, a := range axes {
		if a.Name == "" {
			return nil, fmt.Errorf("cube: axis without a name")
		}
		size *= a.Len()
	}
	if size != len(data) {
		return nil, fmt.Errorf("cube: data length %d does not match axes size %d", len(data), size)
	}
	c := &Cube{
		axes:  make([]Axis, len(axes)),
		data:  append([]float64(nil), data...),
		attrs: map[string]string{},
	}
	for i, a := range axes {
		c.axes[i] = a.clone()
	}
	c.strides = computeStrides(c.axes)
	return c, nil
}

// MustNew is New but panics on error. Intended for fixtures and catalogs
// where the shape is known statically.
func MustNew(data []float64, axes ...Axis) *Cube {
	c, err := New(data, axes...)
	if err != nil {
		panic(err)
	}
	return c
}

func computeStrides(axes []Axis) []int {
	strides := make([]int, len(axes))
	s := 1
	for i := len(axes) - 1; i >= 0; i-- {
		strides[i] = s
		s *= axes[i].Len()
	}
	return strides
}

// Copy returns a deep copy of the cube, attributes included.
func (c *Cube) Copy() *Cube {
	out := &Cube{
		axes:    make([]Axis, len(c.axes)),
		strides: append([]int(nil), c.strides...),
		data:    append([]float64(nil), c.data...),
		attrs:   make(map[string]string, len(c.attrs)),
	}
	for i, a := range c.axes {
		out.axes[i] = a.clone()
	}
	for k, v := range c.attrs {
		out.attrs[k] = v
	}
	return out
}

// Dims returns the dimension names in order.
func (c *Cube) Dims() []string {
	out := make([]string, len(c.axes))
	for i, a := range c.axes {
		out[i] = a.Name
	}
	return out
}

// NDim returns the number of dimensions.
func (c *Cube) NDim() int { return len(c.axes) }

// HasDim reports whether the cube has a dimension with the given name.
func (c *Cube) HasDim(name string) bool {
	return c.axisIndex(name) >= 0
}

// Axis returns a copy of the named axis.
func (c *Cube) Axis(name string) (Axis, error) {
	i := c.axisIndex(name)
	if i < 0 {
		return Axis{}, fmt.Errorf("cube: no dimension %q (have %v)", name, c.Dims())
	}
	return c.axes[i].clone(), nil
}

// Len returns the length of the named dimension, or 0 if absent.
func (c *Cube) Len(name string) int {
	i := c.axisIndex(name)
	if i < 0 {
		return 0
	}
	return c.axes[i].Len()
}

func (c *Cube) axisIndex(name string) int {
	for i, a := range c.axes {
		if a.Name == name {
			return i
		}
	}
	return -1
}

// Size returns the total number of cells.
func (c *Cube) Size() int { return len(c.data) }

// Data returns a copy of the flat row-major data buffer.
func (c *Cube) Data() []float64 {
	return append([]float64(nil), c.data...)
}

// At returns the value at the given positional indices, one per dimension.
func (c *Cube) At(idx ...int) float64 {
	if len(idx) != len(c.axes) {
		panic(fmt.Sprintf("cube: At got %d indices for %d dims", len(idx), len(c.axes)))
	}
	flat := 0
	for i, j := range idx {
		flat += j * c.strides[i]
	}
	return c.data[flat]
}

// Attr returns the named attribute, if set.
func (c *Cube) Attr(key string) (string, bool) {
	v, ok := c.attrs[key]
	return v, ok
}

// Attrs returns a copy of the attribute map.
func (c *Cube) Attrs() map[string]string {
	out := make(map[string]string, len(c.attrs))
	for k, v := range c.attrs {
		out[k] = v
	}
	return out
}

// SetAttr sets an attribute in place and returns the cube for chaining.
// This is the only mutating method; it touches metadata, never data.
func (c *Cube) SetAttr(key, value string) *Cube {
	c.attrs[key] = value
	return c
}

// SetAttrs merges the given attributes into the cube's attribute map.
func (c *Cube) SetAttrs(attrs map[string]string) *Cube {
	for k, v := range attrs {
		c.attrs[k] = v
	}
	return c
}

// WithAxisUnits returns a copy of the cube with the named axis tagged
// with the given units string.
func (c *Cube) WithAxisUnits(dim, units string) (*Cube, error) {
	i := c.axisIndex(dim)
	if i < 0 {
		return nil, fmt.Errorf("cube: no dimension %q (have %v)", dim, c.Dims())
	}
	out := c.Copy()
	out.axes[i].Units = units
	return out, nil
}

// WithAxis returns a copy of the cube with the named axis replaced. The
// replacement must have the same length as the axis it replaces.
func (c *Cube) WithAxis(ax Axis) (*Cube, error) {
	i := c.axisIndex(ax.Name)
	if i < 0 {
		return nil, fmt.Errorf("cube: no dimension %q (have %v)", ax.Name, c.Dims())
	}
	if ax.Len() != c.axes[i].Len() {
		return nil, fmt.Errorf("cube: replacement axis %q has length %d, want %d",
			ax.Name, ax.Len(), c.axes[i].Len())
	}
	out := c.Copy()
	out.axes[i] = ax.clone()
	return out, nil
}

// RenameDim returns a copy of the cube with one dimension renamed. The
// axis labels and units are unchanged.
func (c *Cube) RenameDim(old, name string) (*Cube, error) {
	i := c.axisIndex(old)
	if i < 0 {
		return nil, fmt.Errorf("cube: no dimension %q (have %v)", old, c.Dims())
	}
	if c.axisIndex(name) >= 0 {
		return nil, fmt.Errorf("cube: dimension %q already exists", name)
	}
	out := c.Copy()
	out.axes[i].Name = name
	return out, nil
}
