// Package grid implements a non-uniform rectilinear grid of scalar fields
// with axis-aligned slicing and in-cell interpolation.
package grid

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/sirupsen/logrus"

	"scalargrid/internal/models"
	"scalargrid/pkg/interpolation"
)

// Keys of the positional fields. Each holds one coordinate per node along
// its axis.
const (
	FieldX = "x"
	FieldY = "y"
	FieldZ = "z"
)

// PositionKey returns the positional field key for axis
func PositionKey(axis models.Axis) string {
	switch axis {
	case models.Y:
		return FieldY
	case models.Z:
		return FieldZ
	}
	return FieldX
}

// Grid is a dense box of nodes carrying any number of named scalar fields.
// Axis spacing comes from the positional fields, optionally anchored by an
// origin, in which case the positional values are cell centres and the
// derived steps are cell faces.
type Grid struct {
	gridder  *Gridder
	fields   map[string]*Field
	origin   *models.Vec3
	timestep float64
	log      logrus.FieldLogger

	mu    sync.Mutex
	steps [3][]float64
}

// Option configures a Grid
type Option func(*Grid)

// WithOrigin anchors the first cell face of each axis
func WithOrigin(origin models.Vec3) Option {
	return func(g *Grid) {
		o := origin
		g.origin = &o
	}
}

// WithTimestep records the simulation time the grid belongs to
func WithTimestep(t float64) Option {
	return func(g *Grid) {
		g.timestep = t
	}
}

// WithLogger sets the logger used for diagnostics
func WithLogger(log logrus.FieldLogger) Option {
	return func(g *Grid) {
		if log != nil {
			g.log = log
		}
	}
}

// New creates an empty grid of the given node counts
func New(size models.Index3, opts ...Option) (*Grid, error) {
	gridder, err := NewGridder(size.I, size.J, size.K)
	if err != nil {
		return nil, err
	}
	g := &Grid{
		gridder: gridder,
		fields:  make(map[string]*Field),
		log:     logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g, nil
}

// Gridder returns the index converter of g
func (g *Grid) Gridder() *Gridder { return g.gridder }

// Size returns the node counts per axis
func (g *Grid) Size() models.Index3 { return g.gridder.Size() }

// Origin returns the grid origin, if one was set
func (g *Grid) Origin() (models.Vec3, bool) {
	if g.origin == nil {
		return models.Vec3{}, false
	}
	return *g.origin, true
}

// Timestep returns the simulation time of the grid
func (g *Grid) Timestep() float64 { return g.timestep }

// Is2D reports whether any axis has a single node
func (g *Grid) Is2D() bool {
	_, ok := g.NormalAxis()
	return ok
}

// NormalAxis returns the first axis with a single node
func (g *Grid) NormalAxis() (models.Axis, bool) {
	size := g.Size()
	for _, axis := range models.Axes {
		if size.Get(axis) == 1 {
			return axis, true
		}
	}
	return models.X, false
}

// Field returns the field for key, creating it if it does not exist.
// Positional fields are sized to their axis, all others to the node count.
func (g *Grid) Field(key string) *Field {
	if f, ok := g.fields[key]; ok {
		return f
	}
	size := g.gridder.Len()
	switch key {
	case FieldX:
		size = g.Size().I
	case FieldY:
		size = g.Size().J
	case FieldZ:
		size = g.Size().K
	}
	f := NewField(key, size)
	g.fields[key] = f
	return f
}

// Lookup returns the field for key without creating it
func (g *Grid) Lookup(key string) (*Field, bool) {
	f, ok := g.fields[key]
	return f, ok
}

// HasField reports whether a field exists for key
func (g *Grid) HasField(key string) bool {
	_, ok := g.fields[key]
	return ok
}

// FieldNames returns the sorted keys of all non-positional fields
func (g *Grid) FieldNames() []string {
	names := make([]string, 0, len(g.fields))
	for name := range g.fields {
		if name == FieldX || name == FieldY || name == FieldZ {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Steps returns the ordered step positions of axis. With an origin the
// result has n+1 cell faces, otherwise the n positional values. The
// result is cached and must not be modified.
func (g *Grid) Steps(axis models.Axis) ([]float64, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if s := g.steps[axis]; s != nil {
		return s, nil
	}

	key := PositionKey(axis)
	f, ok := g.fields[key]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNoPositions, key)
	}
	values := f.Values()

	var steps []float64
	if g.origin != nil {
		steps = make([]float64, len(values)+1)
		steps[0] = g.origin.Get(axis)
		for i := 1; i < len(steps); i++ {
			steps[i] = (values[i-1]-steps[i-1])*2 + steps[i-1]
		}
	} else {
		steps = append([]float64(nil), values...)
	}

	g.steps[axis] = steps
	g.log.WithFields(logrus.Fields{
		"axis":  axis,
		"steps": len(steps),
	}).Debug("Derived axis steps")
	return steps, nil
}

// Extents returns the first and last step of every axis
func (g *Grid) Extents() (lo, hi models.Vec3, err error) {
	for _, axis := range models.Axes {
		steps, err := g.Steps(axis)
		if err != nil {
			return lo, hi, err
		}
		if len(steps) == 0 {
			return lo, hi, fmt.Errorf("%w: %s has no values", ErrNoPositions, PositionKey(axis))
		}
		lo = lo.With(axis, steps[0])
		hi = hi.With(axis, steps[len(steps)-1])
	}
	return lo, hi, nil
}

// Value interpolates field key at world position p
func (g *Grid) Value(key string, p models.Vec3) (float64, error) {
	f, ok := g.fields[key]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrNoField, key)
	}
	return g.sample(f.Values(), p)
}

func (g *Grid) sample(values []float64, p models.Vec3) (float64, error) {
	if normal, ok := g.NormalAxis(); ok {
		return g.sample2D(values, p, normal)
	}
	return g.sample3D(values, p)
}

// locate finds the step bracket containing pos along axis and returns the
// lower node index, the upper node index and the bracketing positions.
// At the last node the upper index repeats the lower one.
func (g *Grid) locate(axis models.Axis, pos float64) (lo, hi int, loPos, hiPos float64, err error) {
	steps, err := g.Steps(axis)
	if err != nil {
		return 0, 0, 0, 0, err
	}
	idx, err := interpolation.Locate(steps, pos)
	if err != nil {
		return 0, 0, 0, 0, fmt.Errorf("no valid %g found in %s axis steps: %w", pos, axis, err)
	}
	hi = idx + 1
	if hi >= g.Size().Get(axis) {
		hi = idx
	}
	next := idx + 1
	if next >= len(steps) {
		next = idx
	}
	return idx, hi, steps[idx], steps[next], nil
}

func (g *Grid) sample3D(values []float64, p models.Vec3) (float64, error) {
	var lo, hi [3]int
	var cell interpolation.Cell3
	for _, axis := range models.Axes {
		l, h, lp, hp, err := g.locate(axis, p.Get(axis))
		if err != nil {
			return 0, err
		}
		lo[axis], hi[axis] = l, h
		cell.Lo = cell.Lo.With(axis, lp)
		cell.Hi = cell.Hi.With(axis, hp)
	}

	for x := 0; x < 2; x++ {
		for y := 0; y < 2; y++ {
			for z := 0; z < 2; z++ {
				i, j, k := pick(lo[0], hi[0], x), pick(lo[1], hi[1], y), pick(lo[2], hi[2], z)
				idx, err := g.gridder.LinearIndex(i, j, k)
				if err != nil {
					return 0, err
				}
				cell.Values[x][y][z] = values[idx]
			}
		}
	}
	return interpolation.Trilinear(cell, p)
}

func (g *Grid) sample2D(values []float64, p models.Vec3, normal models.Axis) (float64, error) {
	var plane [2]models.Axis
	n := 0
	for _, axis := range models.Axes {
		if axis != normal {
			plane[n] = axis
			n++
		}
	}
	u, v := plane[0], plane[1]

	uLo, uHi, uLoPos, uHiPos, err := g.locate(u, p.Get(u))
	if err != nil {
		return 0, err
	}
	vLo, vHi, vLoPos, vHiPos, err := g.locate(v, p.Get(v))
	if err != nil {
		return 0, err
	}

	cell := interpolation.Cell2{LoU: uLoPos, HiU: uHiPos, LoV: vLoPos, HiV: vHiPos}
	for dv := 0; dv < 2; dv++ {
		for du := 0; du < 2; du++ {
			var ix models.Index3
			ix = ix.With(u, pick(uLo, uHi, du))
			ix = ix.With(v, pick(vLo, vHi, dv))
			idx, err := g.gridder.LinearIndex(ix.I, ix.J, ix.K)
			if err != nil {
				return 0, err
			}
			cell.Values[dv][du] = values[idx]
		}
	}

	result, err := interpolation.Bilinear(cell, p.Get(u), p.Get(v))
	if err != nil {
		var inv *interpolation.InvariantError
		if errors.As(err, &inv) {
			inv.Position = p
		}
		return 0, err
	}
	return result, nil
}

func pick(lo, hi, which int) int {
	if which == 0 {
		return lo
	}
	return hi
}
