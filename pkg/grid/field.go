package grid

import (
	"math"
	"strconv"

	"gonum.org/v1/gonum/floats"
)

// Field is a named scalar container. Every accepted write widens its
// extrema; writes beyond its capacity are dropped.
type Field struct {
	name    string
	unit    string
	values  []float64
	extrema Extrema

	// vertices holds the raw samples averaged into each nodal value
	vertices map[int][]float64
}

// NewField creates a field holding size values, all zero
func NewField(name string, size int) *Field {
	if size < 0 {
		size = 0
	}
	return &Field{
		name:    name,
		values:  make([]float64, size),
		extrema: NewExtrema(),
	}
}

// Name returns the field key
func (f *Field) Name() string { return f.name }

// Unit returns the unit string, empty when unknown
func (f *Field) Unit() string { return f.unit }

// SetUnit sets the unit string. The literal "null" clears it.
func (f *Field) SetUnit(unit string) {
	if unit == "null" {
		unit = ""
	}
	f.unit = unit
}

// Len returns the capacity of the field
func (f *Field) Len() int { return len(f.values) }

// SetValue stores value at index and updates the extrema. Indices outside
// the field are ignored and reported by the false return.
func (f *Field) SetValue(index int, value float64) bool {
	if index < 0 || index >= len(f.values) {
		return false
	}
	f.values[index] = value
	f.extrema.Add(value)
	return true
}

// AddNodalValue averages the numeric samples into a single value stored at
// index. Unparseable and non-finite samples are returned in skipped; ok is false when the
// index is outside the field or no sample could be parsed.
func (f *Field) AddNodalValue(index int, samples []string) (skipped []string, ok bool) {
	parsed := make([]float64, 0, len(samples))
	for _, s := range samples {
		v, err := strconv.ParseFloat(s, 64)
		if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
			skipped = append(skipped, s)
			continue
		}
		parsed = append(parsed, v)
	}
	if len(parsed) == 0 || index < 0 || index >= len(f.values) {
		return skipped, false
	}

	if f.vertices == nil {
		f.vertices = make(map[int][]float64)
	}
	f.vertices[index] = parsed

	f.SetValue(index, floats.Sum(parsed)/float64(len(parsed)))
	return skipped, true
}

// Vertices returns the raw samples that were averaged into the value at
// index, or nil if the value was not written through AddNodalValue.
func (f *Field) Vertices(index int) []float64 {
	return f.vertices[index]
}

// Value returns the value at index
func (f *Field) Value(index int) float64 {
	return f.values[index]
}

// Values returns the backing value slice. Callers must not modify it.
func (f *Field) Values() []float64 {
	return f.values
}

// Extrema returns the extrema of all accepted writes, or the override
func (f *Field) Extrema() Extrema {
	return f.extrema
}

// OverrideExtrema replaces the computed extrema, e.g. to share one colour
// scale between many slices or time steps.
func (f *Field) OverrideExtrema(e Extrema) {
	f.extrema = e
}
