package cube

import (
	"fmt"

	"gonum.org/v1/gonum/stat"
)

// Mean reduces the named dimension by its arithmetic mean.
func (c *Cube) Mean(dim string) (*Cube, error) {
	return Reduce(c, []string{dim}, func(xs []float64) float64 {
		return stat.Mean(xs, nil)
	})
}

// Reduce collapses the given dimensions of c with fn, which maps each
// gathered sample vector to one value. The result keeps the remaining
// dimensions in their original order and inherits the cube's attributes.
func Reduce(c *Cube, over []string, fn func(xs []float64) float64) (*Cube, error) {
	keepAxes, overIdx, err := splitAxes(c, over)
	if err != nil {
		return nil, err
	}

	out := &Cube{axes: keepAxes, attrs: c.Attrs()}
	out.strides = computeStrides(keepAxes)
	out.data = make([]float64, sizeOf(keepAxes))

	sample := make([]float64, sampleSize(c, overIdx))
	keepPos := make([]int, len(keepAxes))
	for f := 0; f < len(out.data); f++ {
		gather(c, overIdx, keepPos, sample, nil, nil)
		out.data[f] = fn(sample)
		incIndex(keepPos, keepAxes)
	}
	return out, nil
}

// ReducePair collapses the given dimensions of two identically shaped
// cubes, handing fn the paired sample vectors gathered cell-by-cell. This
// is how a metric turns an aligned (forecast, verification) pair into one
// skill value per remaining coordinate.
func ReducePair(a, b *Cube, over []string, fn func(x, y []float64) float64) (*Cube, error) {
	if err := sameShape(a, b); err != nil {
		return nil, err
	}
	keepAxes, overIdx, err := splitAxes(a, over)
	if err != nil {
		return nil, err
	}

	out := &Cube{axes: keepAxes, attrs: a.Attrs()}
	out.strides = computeStrides(keepAxes)
	out.data = make([]float64, sizeOf(keepAxes))

	n := sampleSize(a, overIdx)
	sx := make([]float64, n)
	sy := make([]float64, n)
	keepPos := make([]int, len(keepAxes))
	for f := 0; f < len(out.data); f++ {
		gather(a, overIdx, keepPos, sx, b, sy)
		out.data[f] = fn(sx, sy)
		incIndex(keepPos, keepAxes)
	}
	return out, nil
}

// Broadcast expands c to the shape of like by repeating values along the
// dimensions of like that c lacks. Every dimension of c must appear in
// like with the same length.
func (c *Cube) Broadcast(like *Cube) (*Cube, error) {
	for _, a := range c.axes {
		j := like.axisIndex(a.Name)
		if j < 0 {
			return nil, fmt.Errorf("cube: broadcast target lacks dimension %q", a.Name)
		}
		if like.axes[j].Len() != a.Len() {
			return nil, fmt.Errorf("cube: dimension %q has length %d, target has %d",
				a.Name, a.Len(), like.axes[j].Len())
		}
	}

	axes := make([]Axis, len(like.axes))
	for i, a := range like.axes {
		axes[i] = a.clone()
	}
	out := &Cube{axes: axes, attrs: c.Attrs()}
	out.strides = computeStrides(axes)
	out.data = make([]float64, sizeOf(axes))

	// Map each target dimension to the matching source stride (0 when the
	// source lacks the dimension, i.e. repeat).
	srcStride := make([]int, len(like.axes))
	for i, a := range like.axes {
		if j := c.axisIndex(a.Name); j >= 0 {
			srcStride[i] = c.strides[j]
		}
	}

	pos := make([]int, len(axes))
	for f := 0; f < len(out.data); f++ {
		src := 0
		for i, p := range pos {
			src += p * srcStride[i]
		}
		out.data[f] = c.data[src]
		incIndex(pos, axes)
	}
	return out, nil
}

// Stack concatenates cubes of identical shape along a new leading axis.
// The result inherits the attributes of the first cube.
func Stack(ax Axis, cubes ...*Cube) (*Cube, error) {
	if len(cubes) == 0 {
		return nil, fmt.Errorf("cube: stack of zero cubes")
	}
	if ax.Len() != len(cubes) {
		return nil, fmt.Errorf("cube: stack axis %q has %d labels for %d cubes", ax.Name, ax.Len(), len(cubes))
	}
	for _, c := range cubes[1:] {
		if err := sameShape(cubes[0], c); err != nil {
			return nil, fmt.Errorf("cube: stack: %w", err)
		}
	}

	axes := make([]Axis, 0, len(cubes[0].axes)+1)
	axes = append(axes, ax.clone())
	for _, a := range cubes[0].axes {
		axes = append(axes, a.clone())
	}
	out := &Cube{axes: axes, attrs: cubes[0].Attrs()}
	out.strides = computeStrides(axes)
	out.data = make([]float64, 0, sizeOf(axes))
	for _, c := range cubes {
		out.data = append(out.data, c.data...)
	}
	return out, nil
}

func sameShape(a, b *Cube) error {
	if len(a.axes) != len(b.axes) {
		return fmt.Errorf("cube: shape mismatch: %v vs %v", a.Dims(), b.Dims())
	}
	for i := range a.axes {
		if a.axes[i].Name != b.axes[i].Name || a.axes[i].Len() != b.axes[i].Len() {
			return fmt.Errorf("cube: shape mismatch on dimension %d: %s(%d) vs %s(%d)",
				i, a.axes[i].Name, a.axes[i].Len(), b.axes[i].Name, b.axes[i].Len())
		}
	}
	return nil
}

// splitAxes partitions c's axes into kept axes and the positional indices
// of the reduced ones.
func splitAxes(c *Cube, over []string) ([]Axis, []int, error) {
	reduce := make(map[string]bool, len(over))
	for _, name := range over {
		if c.axisIndex(name) < 0 {
			return nil, nil, fmt.Errorf("cube: no dimension %q (have %v)", name, c.Dims())
		}
		reduce[name] = true
	}
	var keep []Axis
	var overIdx []int
	for i, a := range c.axes {
		if reduce[a.Name] {
			overIdx = append(overIdx, i)
		} else {
			keep = append(keep, a.clone())
		}
	}
	return keep, overIdx, nil
}

func sampleSize(c *Cube, overIdx []int) int {
	n := 1
	for _, i := range overIdx {
		n *= c.axes[i].Len()
	}
	return n
}

// gather fills sx (and sy from b, when b is non-nil) with the sample
// vector at the kept-position keepPos, iterating the reduced dims.
func gather(a *Cube, overIdx []int, keepPos []int, sx []float64, b *Cube, sy []float64) {
	over := make(map[int]bool, len(overIdx))
	for _, i := range overIdx {
		over[i] = true
	}

	// Base offset from the kept dims.
	base := 0
	k := 0
	for i := range a.axes {
		if over[i] {
			continue
		}
		base += keepPos[k] * a.strides[i]
		k++
	}

	// Odometer over the reduced dims.
	pos := make([]int, len(overIdx))
	for s := 0; s < len(sx); s++ {
		flat := base
		for d, i := range overIdx {
			flat += pos[d] * a.strides[i]
		}
		sx[s] = a.data[flat]
		if b != nil {
			sy[s] = b.data[flat]
		}
		for d := len(pos) - 1; d >= 0; d-- {
			pos[d]++
			if pos[d] < a.axes[overIdx[d]].Len() {
				break
			}
			pos[d] = 0
		}
	}
}
