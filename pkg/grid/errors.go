package grid

import (
	"errors"
	"fmt"

	"scalargrid/internal/models"
)

// Common errors
var (
	ErrIndexOutOfBounds = errors.New("index out of bounds")
	ErrRange            = errors.New("value outside grid extents")
	ErrDimensionless    = errors.New("requested axis is dimensionless")
	ErrNoField          = errors.New("no such field")
	ErrNoPositions      = errors.New("missing positional field")
	ErrInvalidSize      = errors.New("invalid grid size")
	ErrUnclassified     = errors.New("value outside every band")
)

// IndexError reports axial or linear indices outside a grid of Size.
// Axial selects which of Index and Linear was rejected.
type IndexError struct {
	Index  models.Index3
	Linear int
	Size   models.Index3
	Axial  bool
}

func (e *IndexError) Error() string {
	if e.Axial {
		return fmt.Sprintf("index %v outside grid of size %v", e.Index, e.Size)
	}
	return fmt.Sprintf("linear index %d outside grid of size %v", e.Linear, e.Size)
}

func (e *IndexError) Unwrap() error { return ErrIndexOutOfBounds }

// RangeError reports a slice parameter outside the valid range of an axis.
// It aborts only the slice request that produced it.
type RangeError struct {
	// Axis is the offending axis
	Axis models.Axis

	// Value is the rejected coordinate or extent
	Value float64

	// Min and Max give the valid range
	Min, Max float64

	// Reason describes which parameter was rejected
	Reason string
}

func (e *RangeError) Error() string {
	return fmt.Sprintf("invalid %s %g on %s axis: must be in range [%g, %g]",
		e.Reason, e.Value, e.Axis, e.Min, e.Max)
}

func (e *RangeError) Unwrap() error { return ErrRange }
