package interpolation

import (
	"errors"
	"fmt"

	"scalargrid/internal/models"
)

var (
	// ErrOutsideSteps is returned when a position lies outside an axis step array
	ErrOutsideSteps = errors.New("position outside axis steps")

	// ErrInvariant marks an interpolated value outside the range of its
	// neighbours. It indicates corrupt grid data and is not recoverable.
	ErrInvariant = errors.New("interpolated value outside neighbour bounds")
)

// InvariantError describes a violation of the neighbour bound invariant
type InvariantError struct {
	Position  models.Vec3
	Value     float64
	Neighbors []float64
}

func (e *InvariantError) Error() string {
	lo, hi := bounds(e.Neighbors)
	return fmt.Sprintf("bad interpolated value %g at point %v: neighbours span [%g, %g]",
		e.Value, e.Position, lo, hi)
}

func (e *InvariantError) Unwrap() error { return ErrInvariant }
