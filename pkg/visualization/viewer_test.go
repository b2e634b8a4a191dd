package visualization

import (
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"scalargrid/internal/models"
	"scalargrid/pkg/grid"
)

// createTestGrid creates a 3x3x3 grid with nodes at 0, 1, 2 and a field
// "v" equal to x/2
func createTestGrid(t *testing.T) *grid.Grid {
	g, err := grid.New(models.Index3{I: 3, J: 3, K: 3})
	if err != nil {
		t.Fatalf("Failed to create grid: %v", err)
	}
	for i := 0; i < 3; i++ {
		g.Field(grid.FieldX).SetValue(i, float64(i))
		g.Field(grid.FieldY).SetValue(i, float64(i))
		g.Field(grid.FieldZ).SetValue(i, float64(i))
	}
	v := g.Field("v")
	for l := 0; l < g.Gridder().Len(); l++ {
		ix, _ := g.Gridder().Indices(l)
		v.SetValue(l, float64(ix.I)/2)
	}
	return g
}

func testRequest() grid.SliceRequest {
	return grid.SliceRequest{
		Horizontal:    models.X,
		Vertical:      models.Y,
		Intersection:  1,
		Max:           models.Vec3{X: 2, Y: 2, Z: 2},
		Field:         "v",
		MaxSidePixels: 10,
	}
}

func TestGray16(t *testing.T) {
	g := createTestGrid(t)
	s, err := g.Slice(testRequest())
	if err != nil {
		t.Fatalf("Slice failed: %v", err)
	}
	s.MinMaxNormalize()

	img := NewViewer(s).Gray16()
	if img.Bounds().Dx() != s.Width() || img.Bounds().Dy() != s.Height() {
		t.Errorf("Expected %dx%d image, got %v", s.Width(), s.Height(), img.Bounds())
	}

	// the rightmost column lies at x = 2, the field maximum
	if got := img.Gray16At(s.Width()-1, 0).Y; got != 65535 {
		t.Errorf("Expected white at the maximum, got %d", got)
	}
	if left, right := img.Gray16At(0, 0).Y, img.Gray16At(s.Width()-1, 0).Y; left >= right {
		t.Errorf("Expected gray to increase with x, got %d and %d", left, right)
	}
}

func TestGray16RangeClamps(t *testing.T) {
	g := createTestGrid(t)
	s, _ := g.Slice(testRequest())

	img := NewViewer(s).Gray16Range(0, 0.5)
	if got := img.Gray16At(s.Width()-1, 0).Y; got != 65535 {
		t.Errorf("Expected values above the range to clamp to white, got %d", got)
	}
	if got := NewViewer(s).Gray16Range(1, 1).Gray16At(0, 0).Y; got != 0 {
		t.Errorf("Expected black for an empty range, got %d", got)
	}
}

func TestBandImage(t *testing.T) {
	g := createTestGrid(t)
	s, _ := g.Slice(testRequest())
	b, err := s.Band([]float64{0.5})
	if err != nil {
		t.Fatalf("Band failed: %v", err)
	}

	img := NewViewer(s).BandImage(b)
	if got := img.Gray16At(s.Width()-1, 0).Y; got != 65535 {
		t.Errorf("Expected top band white, got %d", got)
	}
	if got := img.Gray16At(0, 0).Y; got != 0 {
		t.Errorf("Expected bottom band black, got %d", got)
	}
}

func TestSaveSlice(t *testing.T) {
	g := createTestGrid(t)
	s, _ := g.Slice(testRequest())
	s.MinMaxNormalize()
	img := NewViewer(s).Gray16()

	dir := t.TempDir()
	for _, name := range []string{"slice.png", "slice.jpg"} {
		if err := SaveSlice(img, filepath.Join(dir, name)); err != nil {
			t.Errorf("SaveSlice(%s) failed: %v", name, err)
		}
	}
	if err := SaveSlice(img, filepath.Join(dir, "slice.gif")); err == nil {
		t.Error("Expected error for unsupported extension")
	}

	file, err := os.Open(filepath.Join(dir, "slice.png"))
	if err != nil {
		t.Fatalf("Failed to open image: %v", err)
	}
	defer file.Close()
	decoded, err := png.Decode(file)
	if err != nil {
		t.Fatalf("Failed to decode image: %v", err)
	}
	if decoded.Bounds() != img.Bounds() {
		t.Errorf("Expected bounds %v, got %v", img.Bounds(), decoded.Bounds())
	}
}

func TestSaveSliceSequence(t *testing.T) {
	g := createTestGrid(t)
	dir := filepath.Join(t.TempDir(), "z")

	files, err := SaveSliceSequence(g, testRequest(), dir, "png")
	if err != nil {
		t.Fatalf("SaveSliceSequence failed: %v", err)
	}
	if len(files) != 3 {
		t.Fatalf("Expected one image per z step, got %d", len(files))
	}
	if filepath.Base(files[2]) != "slice_z_002.png" {
		t.Errorf("Expected slice_z_002.png, got %s", filepath.Base(files[2]))
	}
	for _, f := range files {
		if _, err := os.Stat(f); err != nil {
			t.Errorf("Expected %s to exist: %v", f, err)
		}
	}
}
