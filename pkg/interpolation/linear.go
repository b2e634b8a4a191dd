// Package interpolation provides piecewise-linear estimation of values inside
// the cells of a non-uniform rectangular grid.
package interpolation

import (
	"fmt"
	"math"
	"sort"
)

// tolerance is the relative slack allowed when checking that an
// interpolated value stays inside its neighbour range.
const tolerance = 1e-9

// Locate returns the first index i for which steps[i] <= pos <= steps[i+1].
// steps must be non-decreasing. A single-entry array matches only its own
// value, returning 0.
func Locate(steps []float64, pos float64) (int, error) {
	n := len(steps)
	switch {
	case n == 0:
		return -1, fmt.Errorf("no axis steps: %w", ErrOutsideSteps)
	case n == 1:
		if steps[0] == pos {
			return 0, nil
		}
		return -1, fmt.Errorf("%g not at single step %g: %w", pos, steps[0], ErrOutsideSteps)
	}

	// first cell whose upper bound reaches pos
	i := sort.Search(n-1, func(i int) bool { return steps[i+1] >= pos })
	if i == n-1 || steps[i] > pos {
		return -1, fmt.Errorf("%g not in [%g, %g]: %w", pos, steps[0], steps[n-1], ErrOutsideSteps)
	}
	return i, nil
}

// Linear interpolates between (pos0, v0) and (pos1, v1). Positions equal to
// a breakpoint return that breakpoint's value exactly.
func Linear(pos, pos0, pos1, v0, v1 float64) float64 {
	if pos == pos0 {
		return v0
	}
	if pos == pos1 {
		return v1
	}
	return v0 + (v1-v0)*(pos-pos0)/(pos1-pos0)
}

func bounds(values []float64) (lo, hi float64) {
	lo, hi = math.Inf(1), math.Inf(-1)
	for _, v := range values {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	return lo, hi
}

// within reports whether v lies in [lo, hi] up to rounding error
func within(v float64, neighbors []float64) bool {
	lo, hi := bounds(neighbors)
	slack := tolerance * math.Max(1, math.Max(math.Abs(lo), math.Abs(hi)))
	return v >= lo-slack && v <= hi+slack
}
