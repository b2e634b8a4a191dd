package grid

import (
	"fmt"

	"scalargrid/internal/models"
)

// Gridder converts between axial node indices and linear storage indices
// for a dense box of nodes:
//
//	index = k*ny*nx + j*nx + i
type Gridder struct {
	size models.Index3
	l    int
}

// NewGridder creates a Gridder for an nx by ny by nz box
func NewGridder(nx, ny, nz int) (*Gridder, error) {
	if nx <= 0 || ny <= 0 || nz <= 0 {
		return nil, fmt.Errorf("%w: <%d, %d, %d>", ErrInvalidSize, nx, ny, nz)
	}
	return &Gridder{
		size: models.Index3{I: nx, J: ny, K: nz},
		l:    nx * ny * nz,
	}, nil
}

// Size returns the node counts per axis
func (g *Gridder) Size() models.Index3 { return g.size }

// Len returns the total node count
func (g *Gridder) Len() int { return g.l }

// Contains reports whether (i, j, k) addresses a node
func (g *Gridder) Contains(i, j, k int) bool {
	return i >= 0 && i < g.size.I &&
		j >= 0 && j < g.size.J &&
		k >= 0 && k < g.size.K
}

// LinearIndex computes the linear index of node (i, j, k)
func (g *Gridder) LinearIndex(i, j, k int) (int, error) {
	if !g.Contains(i, j, k) {
		return -1, &IndexError{Index: models.Index3{I: i, J: j, K: k}, Linear: -1, Size: g.size, Axial: true}
	}
	return k*g.size.J*g.size.I + j*g.size.I + i, nil
}

// Indices is the inverse of LinearIndex
func (g *Gridder) Indices(linear int) (models.Index3, error) {
	if linear < 0 || linear >= g.l {
		return models.Index3{}, &IndexError{Linear: linear, Size: g.size}
	}
	plane := g.size.J * g.size.I
	k := linear / plane
	rem := linear % plane
	return models.Index3{I: rem % g.size.I, J: rem / g.size.I, K: k}, nil
}
