package grid

import "math"

// Extrema tracks the running minimum and maximum of a stream of values
type Extrema struct {
	Min float64
	Max float64
}

// NewExtrema returns an empty Extrema that any value will widen
func NewExtrema() Extrema {
	return Extrema{Min: math.Inf(1), Max: math.Inf(-1)}
}

// Add widens e to include v. NaN values are ignored.
func (e *Extrema) Add(v float64) {
	if v < e.Min {
		e.Min = v
	}
	if v > e.Max {
		e.Max = v
	}
}

// Valid reports whether at least one value has been registered
func (e Extrema) Valid() bool {
	return e.Min <= e.Max
}

// Contains reports whether v lies in [Min, Max]
func (e Extrema) Contains(v float64) bool {
	return v >= e.Min && v <= e.Max
}

// Range returns Max - Min, or 0 for an empty Extrema
func (e Extrema) Range() float64 {
	if !e.Valid() {
		return 0
	}
	return e.Max - e.Min
}
