package grid

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"

	"scalargrid/internal/models"
)

// logOffset keeps the log rescale defined at 0
const logOffset = 1e-6

// LogRescale maps v to ln(v + 1 + 1e-6)
func LogRescale(v float64) float64 {
	return math.Log(v + 1 + logOffset)
}

// MinMaxNormalize maps every value to [0, 1] using the active extrema.
// Values outside the extrema are clamped and recorded as anomalies; the
// number of clamped values is returned. NaN results become 0.
func (s *Slice) MinMaxNormalize() int {
	ext := s.ActiveExtrema()
	rng := ext.Max - ext.Min
	clamped := 0

	s.raster.Apply(func(i, j int, v float64) float64 {
		var n float64
		switch {
		case v > ext.Max:
			s.anomaly(models.ClampedValue, "pixel (%d, %d) value %g above max %g", i, j, v, ext.Max)
			clamped++
			n = 1
		case v < ext.Min:
			s.anomaly(models.ClampedValue, "pixel (%d, %d) value %g below min %g", i, j, v, ext.Min)
			clamped++
			n = 0
		default:
			n = (v - ext.Min) / rng
		}
		if math.IsNaN(n) {
			n = 0
		}
		return n
	}, s.raster)

	s.normalized = true
	return clamped
}

// LogRescale applies the log rescale to every value
func (s *Slice) LogRescale() {
	s.raster.Apply(func(_, _ int, v float64) float64 {
		return LogRescale(v)
	}, s.raster)
	s.logScaled = true
}

// Banding is the result of classifying a slice into threshold bands.
// Band x spans Edges[x] to Edges[x+1].
type Banding struct {
	// Thresholds are the raw band edges, sorted, including the extrema
	Thresholds []float64

	// Normalized are the thresholds mapped to [0, 1]
	Normalized []float64

	// Edges are the normalized thresholds after the log rescale
	Edges []float64

	// Classes holds the band index of each pixel, [row][col]
	Classes [][]int
}

// Bands returns the number of bands
func (b *Banding) Bands() int { return len(b.Edges) - 1 }

// Histogram returns the number of pixels in each band
func (b *Banding) Histogram() []int {
	counts := make([]int, b.Bands())
	for _, row := range b.Classes {
		for _, c := range row {
			counts[c]++
		}
	}
	return counts
}

// Band normalizes and log-rescales the slice, if not already done, and
// classifies every pixel into the band bounded by the given thresholds.
// The active extrema are added to the thresholds when missing; thresholds
// outside the extrema are dropped. A pixel that fits no band is an error.
func (s *Slice) Band(thresholds []float64) (*Banding, error) {
	if !s.normalized {
		s.MinMaxNormalize()
	}
	if !s.logScaled {
		s.LogRescale()
	}

	ext := s.ActiveExtrema()
	if !ext.Valid() {
		return nil, fmt.Errorf("cannot band %s: no extrema", s.request.Field)
	}

	raw := []float64{ext.Min, ext.Max}
	for _, t := range thresholds {
		if !ext.Contains(t) {
			s.anomaly(models.ClampedValue, "threshold %g outside [%g, %g] dropped", t, ext.Min, ext.Max)
			continue
		}
		raw = append(raw, t)
	}
	sort.Float64s(raw)
	raw = compact(raw)

	b := &Banding{Thresholds: raw}
	if ext.Max == ext.Min {
		b.Normalized = []float64{0, 1}
	} else {
		rng := ext.Max - ext.Min
		b.Normalized = make([]float64, len(raw))
		for i, t := range raw {
			b.Normalized[i] = (t - ext.Min) / rng
		}
	}

	b.Edges = make([]float64, len(b.Normalized))
	for i, v := range b.Normalized {
		b.Edges[i] = LogRescale(v)
	}
	sort.Float64s(b.Edges)

	rows, cols := s.raster.Dims()
	b.Classes = make([][]int, rows)
	for i := 0; i < rows; i++ {
		b.Classes[i] = make([]int, cols)
		for j := 0; j < cols; j++ {
			c, err := classify(b.Edges, s.raster.At(i, j))
			if err != nil {
				return nil, fmt.Errorf("pixel (%d, %d): %w", i, j, err)
			}
			b.Classes[i][j] = c
		}
	}
	return b, nil
}

// classify returns the band whose lower edge is the greatest edge <= v.
// The top edge belongs to the last band.
func classify(edges []float64, v float64) (int, error) {
	last := len(edges) - 1
	if math.IsNaN(v) || v < edges[0] || v > edges[last] {
		return -1, fmt.Errorf("%w: %g not in [%g, %g]", ErrUnclassified, v, edges[0], edges[last])
	}
	x := sort.Search(len(edges), func(i int) bool { return edges[i] > v }) - 1
	if x >= last {
		x = last - 1
	}
	return x, nil
}

func compact(sorted []float64) []float64 {
	out := sorted[:0]
	for i, v := range sorted {
		if i == 0 || v != sorted[i-1] {
			out = append(out, v)
		}
	}
	return out
}

// GradientValues returns min, min+step, ... up to the last value not
// exceeding max.
func GradientValues(min, max, step float64) []float64 {
	values := []float64{min}
	if step <= 0 {
		return values
	}
	for last := min; last+step <= max; {
		last += step
		values = append(values, last)
	}
	return values
}

// GradientValuesN returns count values evenly spaced from min to max
func GradientValuesN(min, max float64, count int) []float64 {
	if count < 2 {
		return []float64{min}
	}
	values := make([]float64, count)
	floats.Span(values, min, max)
	return values
}

// GradientValues returns count values spanning the active extrema
func (s *Slice) GradientValues(count int) []float64 {
	ext := s.ActiveExtrema()
	return GradientValuesN(ext.Min, ext.Max, count)
}
