package grid

import (
	"bytes"
	"encoding/binary"
	"errors"
	"math"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"scalargrid/internal/models"
)

// newLinearGrid creates an n*n*n grid with nodes at 0..n-1 on every axis
// and a field "v" equal to x+y+z
func newLinearGrid(t *testing.T, n int) *Grid {
	g, err := New(models.Index3{I: n, J: n, K: n})
	if err != nil {
		t.Fatalf("Failed to create grid: %v", err)
	}
	for i := 0; i < n; i++ {
		g.Field(FieldX).SetValue(i, float64(i))
		g.Field(FieldY).SetValue(i, float64(i))
		g.Field(FieldZ).SetValue(i, float64(i))
	}
	v := g.Field("v")
	for k := 0; k < n; k++ {
		for j := 0; j < n; j++ {
			for i := 0; i < n; i++ {
				idx, err := g.Gridder().LinearIndex(i, j, k)
				if err != nil {
					t.Fatalf("Unexpected index error: %v", err)
				}
				v.SetValue(idx, float64(i+j+k))
			}
		}
	}
	return g
}

func TestGridderRoundTrip(t *testing.T) {
	g, err := NewGridder(4, 3, 5)
	if err != nil {
		t.Fatalf("Failed to create gridder: %v", err)
	}
	if g.Len() != 60 {
		t.Errorf("Expected 60 nodes, got %d", g.Len())
	}

	seen := make(map[int]bool)
	for k := 0; k < 5; k++ {
		for j := 0; j < 3; j++ {
			for i := 0; i < 4; i++ {
				l, err := g.LinearIndex(i, j, k)
				if err != nil {
					t.Fatalf("LinearIndex(%d, %d, %d) failed: %v", i, j, k, err)
				}
				if want := k*3*4 + j*4 + i; l != want {
					t.Errorf("Expected linear index %d, got %d", want, l)
				}
				seen[l] = true

				ix, err := g.Indices(l)
				if err != nil {
					t.Fatalf("Indices(%d) failed: %v", l, err)
				}
				if ix != (models.Index3{I: i, J: j, K: k}) {
					t.Errorf("Expected indices <%d, %d, %d>, got %v", i, j, k, ix)
				}
			}
		}
	}
	if len(seen) != g.Len() {
		t.Errorf("Expected %d distinct indices, got %d", g.Len(), len(seen))
	}
}

func TestGridderOutOfRange(t *testing.T) {
	g, _ := NewGridder(2, 2, 2)

	tests := []models.Index3{{I: 2}, {J: -1}, {K: 2}, {I: -1, J: 5}}
	for _, ix := range tests {
		if _, err := g.LinearIndex(ix.I, ix.J, ix.K); !errors.Is(err, ErrIndexOutOfBounds) {
			t.Errorf("Expected ErrIndexOutOfBounds for %v, got %v", ix, err)
		}
	}
	if _, err := g.Indices(8); !errors.Is(err, ErrIndexOutOfBounds) {
		t.Errorf("Expected ErrIndexOutOfBounds for linear 8, got %v", err)
	}

	_, err := g.Indices(-5)
	if want := "linear index -5 outside grid of size <2, 2, 2>"; err == nil || err.Error() != want {
		t.Errorf("Expected %q, got %v", want, err)
	}
	_, err = g.LinearIndex(-1, 0, 0)
	if want := "index <-1, 0, 0> outside grid of size <2, 2, 2>"; err == nil || err.Error() != want {
		t.Errorf("Expected %q, got %v", want, err)
	}
	if _, err := NewGridder(0, 1, 1); !errors.Is(err, ErrInvalidSize) {
		t.Errorf("Expected ErrInvalidSize, got %v", err)
	}
}

func TestFieldExtrema(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	f := NewField("v", 100)
	lo, hi := math.Inf(1), math.Inf(-1)
	for i := 0; i < 100; i++ {
		v := rng.NormFloat64() * 50
		f.SetValue(i, v)
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}

	ext := f.Extrema()
	if ext.Min != lo || ext.Max != hi {
		t.Errorf("Expected extrema [%g, %g], got [%g, %g]", lo, hi, ext.Min, ext.Max)
	}
	for _, v := range f.Values() {
		if !ext.Contains(v) {
			t.Errorf("Value %g outside extrema [%g, %g]", v, ext.Min, ext.Max)
		}
	}
}

func TestFieldSetValueBeyondCapacity(t *testing.T) {
	f := NewField("v", 2)
	if f.SetValue(2, 10) {
		t.Error("Expected write beyond capacity to be rejected")
	}
	if f.SetValue(-1, 10) {
		t.Error("Expected negative index to be rejected")
	}
	if f.Extrema().Valid() {
		t.Errorf("Expected extrema untouched, got %+v", f.Extrema())
	}
}

func TestFieldAddNodalValue(t *testing.T) {
	f := NewField("v", 3)

	skipped, ok := f.AddNodalValue(1, []string{"1.0", "2.0", "bad", "6.0"})
	if !ok {
		t.Fatal("Expected nodal value to be accepted")
	}
	if len(skipped) != 1 || skipped[0] != "bad" {
		t.Errorf("Expected [bad] skipped, got %v", skipped)
	}
	if f.Value(1) != 3 {
		t.Errorf("Expected average 3, got %g", f.Value(1))
	}
	if got := f.Vertices(1); len(got) != 3 {
		t.Errorf("Expected 3 stored vertices, got %v", got)
	}

	if _, ok := f.AddNodalValue(5, []string{"1"}); ok {
		t.Error("Expected nodal value beyond capacity to be rejected")
	}
	if _, ok := f.AddNodalValue(0, []string{"x", "y"}); ok {
		t.Error("Expected nodal value without numbers to be rejected")
	}

	skipped, ok = f.AddNodalValue(2, []string{"NaN", "4", "-Inf", "8"})
	if !ok {
		t.Fatal("Expected nodal value with finite samples to be accepted")
	}
	if len(skipped) != 2 || skipped[0] != "NaN" || skipped[1] != "-Inf" {
		t.Errorf("Expected [NaN -Inf] skipped, got %v", skipped)
	}
	if f.Value(2) != 6 {
		t.Errorf("Expected average 6 of finite samples, got %g", f.Value(2))
	}
	if _, ok := f.AddNodalValue(0, []string{"Inf"}); ok {
		t.Error("Expected nodal value without finite samples to be rejected")
	}
}

func TestFieldUnit(t *testing.T) {
	f := NewField("v", 1)
	f.SetUnit("null")
	if f.Unit() != "" {
		t.Errorf("Expected empty unit, got %q", f.Unit())
	}
	f.SetUnit("m/s")
	if f.Unit() != "m/s" {
		t.Errorf("Expected m/s, got %q", f.Unit())
	}
}

func TestStepsWithOrigin(t *testing.T) {
	g, _ := New(models.Index3{I: 3, J: 1, K: 1}, WithOrigin(models.Vec3{}))
	for i, v := range []float64{0.5, 1.5, 3.0} {
		g.Field(FieldX).SetValue(i, v)
	}

	steps, err := g.Steps(models.X)
	if err != nil {
		t.Fatalf("Failed to get steps: %v", err)
	}
	want := []float64{0, 1, 2, 4}
	if len(steps) != len(want) {
		t.Fatalf("Expected %d steps, got %v", len(want), steps)
	}
	for i := range want {
		if steps[i] != want[i] {
			t.Errorf("Step %d: expected %g, got %g", i, want[i], steps[i])
		}
	}
}

func TestStepsWithoutOrigin(t *testing.T) {
	g := newLinearGrid(t, 3)
	steps, err := g.Steps(models.Y)
	if err != nil {
		t.Fatalf("Failed to get steps: %v", err)
	}
	if len(steps) != 3 || steps[0] != 0 || steps[2] != 2 {
		t.Errorf("Expected steps [0 1 2], got %v", steps)
	}

	lo, hi, err := g.Extents()
	if err != nil {
		t.Fatalf("Failed to get extents: %v", err)
	}
	if lo != (models.Vec3{}) || hi != (models.Vec3{X: 2, Y: 2, Z: 2}) {
		t.Errorf("Expected extents (0,0,0)-(2,2,2), got %v-%v", lo, hi)
	}
}

func TestStepsMissingPositions(t *testing.T) {
	g, _ := New(models.Index3{I: 2, J: 2, K: 2})
	if _, err := g.Steps(models.Z); !errors.Is(err, ErrNoPositions) {
		t.Errorf("Expected ErrNoPositions, got %v", err)
	}
}

func TestFieldNames(t *testing.T) {
	g := newLinearGrid(t, 2)
	g.Field("b")
	g.Field("a")
	names := g.FieldNames()
	if strings.Join(names, ",") != "a,b,v" {
		t.Errorf("Expected [a b v], got %v", names)
	}
	if g.Field(FieldX).Len() != 2 || g.Field("a").Len() != 8 {
		t.Errorf("Unexpected field sizes %d and %d", g.Field(FieldX).Len(), g.Field("a").Len())
	}
}

func TestValue(t *testing.T) {
	g := newLinearGrid(t, 3)

	tests := []struct {
		p    models.Vec3
		want float64
	}{
		{models.Vec3{}, 0},
		{models.Vec3{X: 2, Y: 2, Z: 2}, 6},
		{models.Vec3{X: 0.5, Y: 1.25, Z: 2}, 3.75},
		{models.Vec3{X: 1, Y: 1, Z: 1}, 3},
	}
	for _, tt := range tests {
		got, err := g.Value("v", tt.p)
		if err != nil {
			t.Errorf("Value at %v failed: %v", tt.p, err)
			continue
		}
		if math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("Value at %v: expected %g, got %g", tt.p, tt.want, got)
		}
	}

	if _, err := g.Value("v", models.Vec3{X: 3}); err == nil {
		t.Error("Expected error outside the grid")
	}
	if _, err := g.Value("missing", models.Vec3{}); !errors.Is(err, ErrNoField) {
		t.Errorf("Expected ErrNoField, got %v", err)
	}
}

func TestValue2D(t *testing.T) {
	g, _ := New(models.Index3{I: 2, J: 1, K: 2})
	if !g.Is2D() {
		t.Fatal("Expected 2D grid")
	}
	if axis, _ := g.NormalAxis(); axis != models.Y {
		t.Errorf("Expected normal axis y, got %s", axis)
	}

	g.Field(FieldX).SetValue(0, 0)
	g.Field(FieldX).SetValue(1, 10)
	g.Field(FieldY).SetValue(0, 0)
	g.Field(FieldZ).SetValue(0, 0)
	g.Field(FieldZ).SetValue(1, 10)
	v := g.Field("v")
	for k := 0; k < 2; k++ {
		for i := 0; i < 2; i++ {
			idx, _ := g.Gridder().LinearIndex(i, 0, k)
			v.SetValue(idx, float64(i*10+k*100))
		}
	}

	got, err := g.Value("v", models.Vec3{X: 5, Z: 5})
	if err != nil {
		t.Fatalf("Value failed: %v", err)
	}
	if math.Abs(got-55) > 1e-9 {
		t.Errorf("Expected 55, got %g", got)
	}
}

func TestDump(t *testing.T) {
	g := newLinearGrid(t, 2)

	var buf bytes.Buffer
	if err := g.DumpBinary(&buf, "v"); err != nil {
		t.Fatalf("DumpBinary failed: %v", err)
	}
	values := make([]float64, 8)
	if err := binary.Read(&buf, binary.NativeEndian, values); err != nil {
		t.Fatalf("Failed to read dump: %v", err)
	}
	for i, want := range g.Field("v").Values() {
		if values[i] != want {
			t.Errorf("Value %d: expected %g, got %g", i, want, values[i])
		}
	}

	tmpDir, err := os.MkdirTemp("", "scalargrid-test-*")
	if err != nil {
		t.Fatalf("Failed to create temporary directory: %v", err)
	}
	defer os.RemoveAll(tmpDir)

	path := filepath.Join(tmpDir, "out", "v.txt")
	if err := g.DumpASCIIFile(path, "v"); err != nil {
		t.Fatalf("DumpASCIIFile failed: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read dump: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 8 || lines[0] != "0" || lines[7] != "3" {
		t.Errorf("Unexpected ASCII dump: %q", lines)
	}

	if err := g.DumpBinary(&buf, "missing"); !errors.Is(err, ErrNoField) {
		t.Errorf("Expected ErrNoField, got %v", err)
	}
}
