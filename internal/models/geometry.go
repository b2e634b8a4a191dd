package models

import (
	"fmt"
	"strings"
)

// Axis identifies one of the three cardinal directions of a grid
type Axis int

const (
	X Axis = iota
	Y
	Z
)

// Axes lists the cardinal axes in storage order
var Axes = [3]Axis{X, Y, Z}

func (a Axis) String() string {
	switch a {
	case X:
		return "x"
	case Y:
		return "y"
	case Z:
		return "z"
	}
	return fmt.Sprintf("axis(%d)", int(a))
}

// Valid reports whether a is one of X, Y or Z
func (a Axis) Valid() bool {
	return a >= X && a <= Z
}

// ParseAxis converts "x", "y" or "z" (any case) to an Axis
func ParseAxis(s string) (Axis, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "x":
		return X, nil
	case "y":
		return Y, nil
	case "z":
		return Z, nil
	}
	return X, fmt.Errorf("invalid axis: %s (must be x, y, or z)", s)
}

// Other returns the cardinal axis that is neither a nor b.
// If a and b are equal the result is the first axis different from both.
func Other(a, b Axis) Axis {
	for _, axis := range Axes {
		if axis != a && axis != b {
			return axis
		}
	}
	return X
}

// Vec3 is a position in world coordinates
type Vec3 struct {
	X, Y, Z float64
}

// Get returns the component of v along axis
func (v Vec3) Get(axis Axis) float64 {
	switch axis {
	case Y:
		return v.Y
	case Z:
		return v.Z
	}
	return v.X
}

// With returns a copy of v with the component along axis replaced
func (v Vec3) With(axis Axis, value float64) Vec3 {
	switch axis {
	case X:
		v.X = value
	case Y:
		v.Y = value
	case Z:
		v.Z = value
	}
	return v
}

func (v Vec3) String() string {
	return fmt.Sprintf("(%g, %g, %g)", v.X, v.Y, v.Z)
}

// Index3 addresses a grid node by its per-axis indices
type Index3 struct {
	I, J, K int
}

// Get returns the index along axis
func (ix Index3) Get(axis Axis) int {
	switch axis {
	case Y:
		return ix.J
	case Z:
		return ix.K
	}
	return ix.I
}

// With returns a copy of ix with the index along axis replaced
func (ix Index3) With(axis Axis, value int) Index3 {
	switch axis {
	case X:
		ix.I = value
	case Y:
		ix.J = value
	case Z:
		ix.K = value
	}
	return ix
}

func (ix Index3) String() string {
	return fmt.Sprintf("<%d, %d, %d>", ix.I, ix.J, ix.K)
}

// AnnotationMode controls which annotations a renderer should draw
type AnnotationMode int

const (
	// AnnotateAll draws every annotation
	AnnotateAll AnnotationMode = iota
	// AnnotateIntersecting draws only annotations lying on the slice plane
	AnnotateIntersecting
	// AnnotateNone draws no annotations
	AnnotateNone
)

func (m AnnotationMode) String() string {
	switch m {
	case AnnotateIntersecting:
		return "intersecting"
	case AnnotateNone:
		return "none"
	}
	return "all"
}

// ParseAnnotationMode converts "all", "intersecting" or "none" to an AnnotationMode
func ParseAnnotationMode(s string) (AnnotationMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "all":
		return AnnotateAll, nil
	case "intersecting", "intersect":
		return AnnotateIntersecting, nil
	case "none":
		return AnnotateNone, nil
	}
	return AnnotateAll, fmt.Errorf("invalid annotation mode: %s", s)
}

// ParsePlane converts a two-letter plane name such as "xy" into its
// horizontal and vertical display axes
func ParsePlane(s string) (horizontal, vertical Axis, err error) {
	p := strings.ToLower(strings.TrimSpace(s))
	if len(p) != 2 {
		return X, X, fmt.Errorf("invalid plane: %s (must be two of x, y, z)", s)
	}
	if horizontal, err = ParseAxis(p[:1]); err != nil {
		return X, X, fmt.Errorf("invalid plane: %s: %w", s, err)
	}
	if vertical, err = ParseAxis(p[1:]); err != nil {
		return X, X, fmt.Errorf("invalid plane: %s: %w", s, err)
	}
	if horizontal == vertical {
		return X, X, fmt.Errorf("invalid plane: %s (axes must differ)", s)
	}
	return horizontal, vertical, nil
}
