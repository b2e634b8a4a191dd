package interpolation

import "scalargrid/internal/models"

// Cell3 is a hexahedral grid cell with the values at its eight corners
type Cell3 struct {
	// Lo and Hi are the step positions bounding the cell on each axis
	Lo, Hi models.Vec3

	// Values holds corner values indexed [x][y][z], 0 at Lo and 1 at Hi
	Values [2][2][2]float64
}

func (c *Cell3) neighbors() []float64 {
	out := make([]float64, 0, 8)
	for x := 0; x < 2; x++ {
		for y := 0; y < 2; y++ {
			for z := 0; z < 2; z++ {
				out = append(out, c.Values[x][y][z])
			}
		}
	}
	return out
}

// Trilinear estimates the value at p inside c. The four X edges are
// interpolated first, then the two Y pairs, then the Z pair.
func Trilinear(c Cell3, p models.Vec3) (float64, error) {
	v := c.Values

	i0 := Linear(p.X, c.Lo.X, c.Hi.X, v[0][0][0], v[1][0][0])
	i1 := Linear(p.X, c.Lo.X, c.Hi.X, v[0][1][0], v[1][1][0])
	i2 := Linear(p.X, c.Lo.X, c.Hi.X, v[0][0][1], v[1][0][1])
	i3 := Linear(p.X, c.Lo.X, c.Hi.X, v[0][1][1], v[1][1][1])

	i4 := Linear(p.Y, c.Lo.Y, c.Hi.Y, i0, i1)
	i5 := Linear(p.Y, c.Lo.Y, c.Hi.Y, i2, i3)

	result := Linear(p.Z, c.Lo.Z, c.Hi.Z, i4, i5)

	if n := c.neighbors(); !within(result, n) {
		return 0, &InvariantError{Position: p, Value: result, Neighbors: n}
	}
	return result, nil
}

// Cell2 is a rectangular cell in the plane of a degenerate (2D) grid.
// U is the first in-plane axis in x, y, z order and V the second.
type Cell2 struct {
	LoU, HiU float64
	LoV, HiV float64

	// Values holds corner values indexed [v][u]
	Values [2][2]float64
}

// Bilinear estimates the value at (u, v) inside c, interpolating along U
// for both V edges and then across V.
func Bilinear(c Cell2, u, v float64) (float64, error) {
	e0 := Linear(u, c.LoU, c.HiU, c.Values[0][0], c.Values[0][1])
	e1 := Linear(u, c.LoU, c.HiU, c.Values[1][0], c.Values[1][1])
	result := Linear(v, c.LoV, c.HiV, e0, e1)

	n := []float64{c.Values[0][0], c.Values[0][1], c.Values[1][0], c.Values[1][1]}
	if !within(result, n) {
		return 0, &InvariantError{Value: result, Neighbors: n}
	}
	return result, nil
}
