package interpolation

import (
	"errors"
	"math"
	"math/rand"
	"testing"

	"scalargrid/internal/models"
)

// unitCube returns the 2x2x2 test cube with steps {0,10} on every axis and
// corner values 0..7 in linear index order (k*4 + j*2 + i).
func unitCube() Cell3 {
	c := Cell3{Lo: models.Vec3{}, Hi: models.Vec3{X: 10, Y: 10, Z: 10}}
	for i := 0; i < 2; i++ {
		for j := 0; j < 2; j++ {
			for k := 0; k < 2; k++ {
				c.Values[i][j][k] = float64(k*4 + j*2 + i)
			}
		}
	}
	return c
}

// linearScan is the reference cell lookup that Locate must agree with
func linearScan(steps []float64, pos float64) int {
	for i := 0; i < len(steps)-1; i++ {
		if steps[i] <= pos && pos <= steps[i+1] {
			return i
		}
	}
	return -1
}

func TestLocate(t *testing.T) {
	steps := []float64{0, 1, 1, 3, 7.5, 10}

	testCases := []struct {
		pos      float64
		expected int
	}{
		{0, 0},
		{0.5, 0},
		{1, 0},
		{2, 2},
		{3, 2},
		{7.5, 3},
		{9.99, 4},
		{10, 4},
	}

	for _, tc := range testCases {
		got, err := Locate(steps, tc.pos)
		if err != nil {
			t.Fatalf("Locate(%g) returned error: %v", tc.pos, err)
		}
		if got != tc.expected {
			t.Errorf("Locate(%g): expected %d, got %d", tc.pos, tc.expected, got)
		}
	}

	for _, pos := range []float64{-0.1, 10.5, math.NaN()} {
		if _, err := Locate(steps, pos); !errors.Is(err, ErrOutsideSteps) {
			t.Errorf("Locate(%g): expected ErrOutsideSteps, got %v", pos, err)
		}
	}
}

func TestLocateSingleStep(t *testing.T) {
	if i, err := Locate([]float64{4}, 4); err != nil || i != 0 {
		t.Errorf("Expected index 0 for matching single step, got %d (%v)", i, err)
	}
	if _, err := Locate([]float64{4}, 5); err == nil {
		t.Error("Expected error for position away from single step")
	}
	if _, err := Locate(nil, 0); err == nil {
		t.Error("Expected error for empty steps")
	}
}

// TestLocateMatchesLinearScan checks the binary search against the
// first-match linear scan on random monotonic arrays.
func TestLocateMatchesLinearScan(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for trial := 0; trial < 200; trial++ {
		n := 2 + rng.Intn(12)
		steps := make([]float64, n)
		steps[0] = rng.Float64()*10 - 5
		for i := 1; i < n; i++ {
			// repeat a step now and then
			if rng.Intn(5) == 0 {
				steps[i] = steps[i-1]
			} else {
				steps[i] = steps[i-1] + rng.Float64()*3
			}
		}

		probes := append([]float64{}, steps...)
		for p := 0; p < 10; p++ {
			probes = append(probes, steps[0]-1+rng.Float64()*(steps[n-1]-steps[0]+2))
		}

		for _, pos := range probes {
			expected := linearScan(steps, pos)
			got, err := Locate(steps, pos)
			if expected == -1 {
				if err == nil {
					t.Fatalf("steps %v pos %g: expected error, got %d", steps, pos, got)
				}
				continue
			}
			if err != nil || got != expected {
				t.Fatalf("steps %v pos %g: expected %d, got %d (%v)", steps, pos, expected, got, err)
			}
		}
	}
}

func TestLinear(t *testing.T) {
	if v := Linear(0, 0, 0, 3, 9); v != 3 {
		t.Errorf("Expected breakpoint value 3 on degenerate interval, got %g", v)
	}
	if v := Linear(2, 0, 2, 3, 9); v != 9 {
		t.Errorf("Expected upper breakpoint value 9, got %g", v)
	}
	if v := Linear(1, 0, 4, 0, 8); v != 2 {
		t.Errorf("Expected 2, got %g", v)
	}
}

func TestTrilinearCube(t *testing.T) {
	c := unitCube()

	v, err := Trilinear(c, models.Vec3{})
	if err != nil {
		t.Fatalf("Trilinear at origin failed: %v", err)
	}
	if v != 0 {
		t.Errorf("Expected exactly 0 at grid-line position (0,0,0), got %g", v)
	}

	v, err = Trilinear(c, models.Vec3{X: 5, Y: 5, Z: 5})
	if err != nil {
		t.Fatalf("Trilinear at centre failed: %v", err)
	}
	if v != 3.5 {
		t.Errorf("Expected mean of corners 3.5 at centre, got %g", v)
	}

	// every corner returns its own value
	for i := 0; i < 2; i++ {
		for j := 0; j < 2; j++ {
			for k := 0; k < 2; k++ {
				p := models.Vec3{X: float64(10 * i), Y: float64(10 * j), Z: float64(10 * k)}
				v, err := Trilinear(c, p)
				if err != nil {
					t.Fatalf("Trilinear at %v failed: %v", p, err)
				}
				if v != c.Values[i][j][k] {
					t.Errorf("Expected corner value %g at %v, got %g", c.Values[i][j][k], p, v)
				}
			}
		}
	}
}

// TestTrilinearWithinNeighbors is the monotonicity property: any point of
// any cell interpolates to a value inside the corner range.
func TestTrilinearWithinNeighbors(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	for trial := 0; trial < 500; trial++ {
		var c Cell3
		c.Lo = models.Vec3{X: rng.Float64(), Y: rng.Float64(), Z: rng.Float64()}
		c.Hi = models.Vec3{X: c.Lo.X + rng.Float64()*5, Y: c.Lo.Y + rng.Float64()*5, Z: c.Lo.Z + rng.Float64()*5}
		for i := 0; i < 2; i++ {
			for j := 0; j < 2; j++ {
				for k := 0; k < 2; k++ {
					c.Values[i][j][k] = rng.NormFloat64() * 1e3
				}
			}
		}
		p := models.Vec3{
			X: c.Lo.X + rng.Float64()*(c.Hi.X-c.Lo.X),
			Y: c.Lo.Y + rng.Float64()*(c.Hi.Y-c.Lo.Y),
			Z: c.Lo.Z + rng.Float64()*(c.Hi.Z-c.Lo.Z),
		}
		v, err := Trilinear(c, p)
		if err != nil {
			t.Fatalf("Trilinear violated invariant at trial %d: %v", trial, err)
		}
		lo, hi := bounds(c.neighbors())
		if v < lo-1e-6 || v > hi+1e-6 {
			t.Fatalf("Value %g outside [%g, %g]", v, lo, hi)
		}
	}
}

func TestTrilinearInvariantViolation(t *testing.T) {
	c := unitCube()
	// outside the cell linear interpolation extrapolates past the corners
	_, err := Trilinear(c, models.Vec3{X: 30, Y: 30, Z: 30})
	if !errors.Is(err, ErrInvariant) {
		t.Fatalf("Expected ErrInvariant, got %v", err)
	}
	var ie *InvariantError
	if !errors.As(err, &ie) {
		t.Fatalf("Expected *InvariantError, got %T", err)
	}
	if len(ie.Neighbors) != 8 {
		t.Errorf("Expected 8 neighbours in error, got %d", len(ie.Neighbors))
	}
}

func TestBilinear(t *testing.T) {
	c := Cell2{LoU: 0, HiU: 2, LoV: 0, HiV: 4, Values: [2][2]float64{{0, 2}, {4, 6}}}

	testCases := []struct {
		u, v     float64
		expected float64
	}{
		{0, 0, 0},
		{2, 0, 2},
		{0, 4, 4},
		{2, 4, 6},
		{1, 2, 3},
		{0.5, 1, 1.5},
	}
	for _, tc := range testCases {
		got, err := Bilinear(c, tc.u, tc.v)
		if err != nil {
			t.Fatalf("Bilinear(%g, %g) failed: %v", tc.u, tc.v, err)
		}
		if math.Abs(got-tc.expected) > 1e-12 {
			t.Errorf("Bilinear(%g, %g): expected %g, got %g", tc.u, tc.v, tc.expected, got)
		}
	}

	if _, err := Bilinear(c, 10, 10); !errors.Is(err, ErrInvariant) {
		t.Errorf("Expected ErrInvariant outside the cell, got %v", err)
	}
}
