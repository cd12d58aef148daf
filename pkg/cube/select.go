package cube

import (
	"fmt"
	"time"
)

// Isel returns a new cube keeping only the given positions along dim.
// Positions may repeat and may be unordered; resampling with replacement
// is Isel with a random index vector.
func (c *Cube) Isel(dim string, idx []int) (*Cube, error) {
	ai := c.axisIndex(dim)
	if ai < 0 {
		return nil, fmt.Errorf("cube: no dimension %q (have %v)", dim, c.Dims())
	}
	n := c.axes[ai].Len()
	for _, j := range idx {
		if j < 0 || j >= n {
			return nil, fmt.Errorf("cube: index %d out of range for dimension %q (len %d)", j, dim, n)
		}
	}

	axes := make([]Axis, len(c.axes))
	for i, a := range c.axes {
		if i == ai {
			axes[i] = a.take(idx)
		} else {
			axes[i] = a.clone()
		}
	}

	out := &Cube{
		axes:  axes,
		attrs: c.Attrs(),
	}
	out.strides = computeStrides(axes)
	out.data = make([]float64, sizeOf(axes))

	// Walk the destination index space and pull from the source.
	dst := make([]int, len(axes))
	for f := 0; f < len(out.data); f++ {
		srcFlat := 0
		for i := range dst {
			j := dst[i]
			if i == ai {
				j = idx[j]
			}
			srcFlat += j * c.strides[i]
		}
		out.data[f] = c.data[srcFlat]
		incIndex(dst, axes)
	}
	return out, nil
}

// IselAt selects a single position along dim and drops the dimension.
func (c *Cube) IselAt(dim string, pos int) (*Cube, error) {
	ai := c.axisIndex(dim)
	if ai < 0 {
		return nil, fmt.Errorf("cube: no dimension %q (have %v)", dim, c.Dims())
	}
	if pos < 0 || pos >= c.axes[ai].Len() {
		return nil, fmt.Errorf("cube: index %d out of range for dimension %q (len %d)", pos, dim, c.axes[ai].Len())
	}

	axes := make([]Axis, 0, len(c.axes)-1)
	for i, a := range c.axes {
		if i != ai {
			axes = append(axes, a.clone())
		}
	}

	out := &Cube{axes: axes, attrs: c.Attrs()}
	out.strides = computeStrides(axes)
	out.data = make([]float64, sizeOf(axes))

	dst := make([]int, len(axes))
	for f := 0; f < len(out.data); f++ {
		srcFlat := pos * c.strides[ai]
		k := 0
		for i := range c.axes {
			if i == ai {
				continue
			}
			srcFlat += dst[k] * c.strides[i]
			k++
		}
		out.data[f] = c.data[srcFlat]
		incIndex(dst, axes)
	}
	return out, nil
}

// SelVal selects the position of a numeric label along dim and drops the
// dimension. Used for picking one lead or one member by value.
func (c *Cube) SelVal(dim string, v float64) (*Cube, error) {
	ax, err := c.Axis(dim)
	if err != nil {
		return nil, err
	}
	if !ax.IsNumeric() {
		return nil, fmt.Errorf("cube: dimension %q is not numeric", dim)
	}
	for i, val := range ax.Vals {
		if val == v {
			return c.IselAt(dim, i)
		}
	}
	return nil, fmt.Errorf("cube: value %v not found on dimension %q", v, dim)
}

// IndexOfTime returns the position of t on the named calendar axis.
func (c *Cube) IndexOfTime(dim string, t time.Time) (int, bool) {
	ax, err := c.Axis(dim)
	if err != nil || !ax.IsTime() {
		return 0, false
	}
	for i, v := range ax.Times {
		if v.Equal(t) {
			return i, true
		}
	}
	return 0, false
}

// SelTimeRange keeps positions on the named calendar axis falling inside
// [min, max]. A nil bound leaves that side open.
func (c *Cube) SelTimeRange(dim string, min, max *time.Time) (*Cube, error) {
	ax, err := c.Axis(dim)
	if err != nil {
		return nil, err
	}
	if !ax.IsTime() {
		return nil, fmt.Errorf("cube: dimension %q is not a calendar axis", dim)
	}
	var keep []int
	for i, t := range ax.Times {
		if min != nil && t.Before(*min) {
			continue
		}
		if max != nil && t.After(*max) {
			continue
		}
		keep = append(keep, i)
	}
	return c.Isel(dim, keep)
}

func sizeOf(axes []Axis) int {
	s := 1
	for _, a := range axes {
		s *= a.Len()
	}
	return s
}

// incIndex advances a multi-index odometer one step, last dim fastest.
func incIndex(idx []int, axes []Axis) {
	for i := len(idx) - 1; i >= 0; i-- {
		idx[i]++
		if idx[i] < axes[i].Len() {
			return
		}
		idx[i] = 0
	}
}
