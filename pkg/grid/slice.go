package grid

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/mat"

	"scalargrid/internal/models"
	"scalargrid/pkg/interpolation"
)

// SliceRequest describes an axis-aligned planar cut through a grid
type SliceRequest struct {
	// Horizontal is the axis along the image columns
	Horizontal models.Axis

	// Vertical is the axis along the image rows
	Vertical models.Axis

	// Intersection is the coordinate of the plane on the remaining axis
	Intersection float64

	// Min and Max bound the region to sample. Only the display axes are
	// used.
	Min, Max models.Vec3

	// Field is the key of the field to sample
	Field string

	// MaxSidePixels is the pixel count of the longer display axis
	MaxSidePixels int
}

// Options carries render hints that travel with a slice
type Options struct {
	RenderAxis      bool
	RenderMesh      bool
	RenderTickMarks bool
	Annotations     models.AnnotationMode
}

// Slice is a rectangular raster sampled from a grid along a plane
type Slice struct {
	// Options are hints for renderers and are carried across reslicing
	Options Options

	request      SliceRequest
	intersection models.Axis
	raster       *mat.Dense
	step         float64

	local     Extrema
	global    Extrema
	useGlobal bool

	gridLines   [3][]int
	annotations []Annotation
	anomalies   []models.Anomaly

	normalized bool
	logScaled  bool
}

func newSlice(req SliceRequest, width, height int, step float64, global Extrema) *Slice {
	return &Slice{
		request:      req,
		intersection: models.Other(req.Horizontal, req.Vertical),
		raster:       mat.NewDense(height, width, nil),
		step:         step,
		local:        NewExtrema(),
		global:       global,
		useGlobal:    true,
	}
}

// Field returns the key of the sampled field
func (s *Slice) Field() string { return s.request.Field }

// Request returns the request the slice was produced from
func (s *Slice) Request() SliceRequest { return s.request }

// Horizontal returns the axis along the image columns
func (s *Slice) Horizontal() models.Axis { return s.request.Horizontal }

// Vertical returns the axis along the image rows
func (s *Slice) Vertical() models.Axis { return s.request.Vertical }

// IntersectionAxis returns the axis normal to the slice plane
func (s *Slice) IntersectionAxis() models.Axis { return s.intersection }

// Intersection returns the plane coordinate on the intersection axis
func (s *Slice) Intersection() float64 { return s.request.Intersection }

// Width returns the pixel count along the horizontal axis
func (s *Slice) Width() int {
	_, c := s.raster.Dims()
	return c
}

// Height returns the pixel count along the vertical axis
func (s *Slice) Height() int {
	r, _ := s.raster.Dims()
	return r
}

// Step returns the world distance covered by one pixel
func (s *Slice) Step() float64 { return s.step }

// At returns the value at row, col
func (s *Slice) At(row, col int) float64 {
	return s.raster.At(row, col)
}

// SetValue stores v at row, col and widens the local extrema
func (s *Slice) SetValue(row, col int, v float64) {
	s.raster.Set(row, col, v)
	s.local.Add(v)
}

// Raster returns the backing matrix with rows as image rows
func (s *Slice) Raster() *mat.Dense { return s.raster }

// LocalExtrema returns the extrema of the values written to the slice
func (s *Slice) LocalExtrema() Extrema { return s.local }

// GlobalExtrema returns the extrema of the whole field at slicing time
func (s *Slice) GlobalExtrema() Extrema { return s.global }

// SetUseGlobalExtrema selects which extrema drive normalization
func (s *Slice) SetUseGlobalExtrema(v bool) { s.useGlobal = v }

// UseGlobalExtrema reports whether global extrema drive normalization
func (s *Slice) UseGlobalExtrema() bool { return s.useGlobal }

// ActiveExtrema returns the global or local extrema as selected
func (s *Slice) ActiveExtrema() Extrema {
	if s.useGlobal {
		return s.global
	}
	return s.local
}

// GridLines returns the pixel offsets of the grid steps along axis
func (s *Slice) GridLines(axis models.Axis) []int { return s.gridLines[axis] }

// Anomalies returns the problems recovered from while building and
// transforming the slice
func (s *Slice) Anomalies() []models.Anomaly { return s.anomalies }

func (s *Slice) anomaly(kind models.AnomalyKind, format string, args ...any) {
	s.anomalies = append(s.anomalies, models.Anomaly{
		Kind:    kind,
		Source:  s.request.Field,
		Message: fmt.Sprintf(format, args...),
	})
}

// Copy returns a deep copy of s
func (s *Slice) Copy() *Slice {
	c := *s
	c.raster = mat.DenseCopyOf(s.raster)
	for i := range s.gridLines {
		c.gridLines[i] = append([]int(nil), s.gridLines[i]...)
	}
	c.annotations = append([]Annotation(nil), s.annotations...)
	c.anomalies = append([]models.Anomaly(nil), s.anomalies...)
	return &c
}

// Slice samples req.Field over the plane described by req. Range problems
// in the request fail with a *RangeError. A pixel whose position cannot be
// located in the grid is set to 0 and recorded as an anomaly; an
// interpolated value outside its neighbour range aborts the slice.
func (g *Grid) Slice(req SliceRequest) (*Slice, error) {
	if !req.Horizontal.Valid() || !req.Vertical.Valid() || req.Horizontal == req.Vertical {
		return nil, fmt.Errorf("invalid display axes %s and %s", req.Horizontal, req.Vertical)
	}
	if req.MaxSidePixels <= 0 {
		return nil, fmt.Errorf("invalid max side pixels: %d", req.MaxSidePixels)
	}
	field, ok := g.fields[req.Field]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNoField, req.Field)
	}

	lo, hi, err := g.Extents()
	if err != nil {
		return nil, err
	}

	a, b := req.Horizontal, req.Vertical
	spanA := req.Max.Get(a) - req.Min.Get(a)
	spanB := req.Max.Get(b) - req.Min.Get(b)
	for _, d := range []struct {
		axis models.Axis
		span float64
	}{{a, spanA}, {b, spanB}} {
		if d.span <= 0 {
			return nil, &RangeError{
				Axis:   d.axis,
				Value:  d.span,
				Min:    0,
				Max:    hi.Get(d.axis) - lo.Get(d.axis),
				Reason: "extent",
			}
		}
	}

	for _, axis := range []models.Axis{a, b} {
		for _, v := range []float64{req.Min.Get(axis), req.Max.Get(axis)} {
			if v < lo.Get(axis) || v > hi.Get(axis) {
				return nil, &RangeError{Axis: axis, Value: v, Min: lo.Get(axis), Max: hi.Get(axis), Reason: "bound"}
			}
		}
	}

	c := models.Other(a, b)
	if req.Intersection < lo.Get(c) || req.Intersection > hi.Get(c) {
		return nil, &RangeError{Axis: c, Value: req.Intersection, Min: lo.Get(c), Max: hi.Get(c), Reason: "intersection"}
	}

	step := math.Max(spanA, spanB) / float64(req.MaxSidePixels)
	width := pixels(spanA, step)
	height := pixels(spanB, step)

	s := newSlice(req, width, height, step, field.Extrema())
	if err := s.computeGridLines(g); err != nil {
		return nil, err
	}

	log := g.log.WithFields(logrus.Fields{
		"field":        req.Field,
		"horizontal":   a,
		"vertical":     b,
		"intersection": req.Intersection,
	})
	log.WithFields(logrus.Fields{
		"width":  width,
		"height": height,
		"step":   step,
	}).Debug("Slicing grid")

	values := field.Values()
	pos := models.Vec3{}.With(c, req.Intersection)
	for i := height - 1; i >= 0; i-- {
		pos = pos.With(b, req.Min.Get(b)+float64(height-1-i)*step)
		for j := width - 1; j >= 0; j-- {
			pos = pos.With(a, req.Max.Get(a)-float64(width-1-j)*step)

			v, err := g.sample(values, pos)
			if err != nil {
				if errors.Is(err, interpolation.ErrInvariant) {
					return nil, fmt.Errorf("error slicing %s: %w", req.Field, err)
				}
				s.anomaly(models.InterpolationFailed, "pixel (%d, %d) at %v: %v", i, j, pos, err)
				v = 0
			}
			s.SetValue(i, j, v)
		}
	}

	if n := models.CountKind(s.anomalies, models.InterpolationFailed); n > 0 {
		log.WithField("pixels", n).Warn("Pixels fell back to 0")
	}
	return s, nil
}

// pixels returns the number of whole steps in span, at least one
func pixels(span, step float64) int {
	n := int(span/step + 1e-9)
	if n < 1 {
		n = 1
	}
	return n
}

func (s *Slice) computeGridLines(g *Grid) error {
	for _, axis := range models.Axes {
		steps, err := g.Steps(axis)
		if err != nil {
			return err
		}
		lines := make([]int, len(steps))
		for i, v := range steps {
			lines[i] = int(math.Round((v - s.request.Min.Get(axis)) / s.step))
		}
		sort.Ints(lines)
		s.gridLines[axis] = lines
	}
	return nil
}

// Reslice repeats the request of prev at a new resolution. Options, the
// extrema selection and annotations of prev are carried over.
func (g *Grid) Reslice(maxSidePixels int, prev *Slice) (*Slice, error) {
	req := prev.request
	req.MaxSidePixels = maxSidePixels

	s, err := g.Slice(req)
	if err != nil {
		return nil, err
	}
	s.Options = prev.Options
	s.useGlobal = prev.useGlobal
	if len(prev.annotations) > 0 {
		if err := s.PlaceAnnotations(prev.annotations...); err != nil {
			return nil, err
		}
	}
	return s, nil
}
