package grid

import (
	"fmt"
	"image"
	"math"

	"scalargrid/internal/models"
)

// intersectTolerance is the distance within which an annotation lies on
// the slice plane
const intersectTolerance = 1e-6

// Annotation is a labelled marker anchored either at a world position or
// at a grid node. Node indices are 1-based, as in tabular datasets.
type Annotation struct {
	Label    string
	Position *models.Vec3
	Node     *models.Index3

	// Pixel is the placed location, X along columns and Y along rows
	Pixel image.Point

	// Intersects reports whether the anchor lies on the slice plane
	Intersects bool
}

// NewPositionAnnotation anchors label at a world position
func NewPositionAnnotation(label string, p models.Vec3) Annotation {
	return Annotation{Label: label, Position: &p}
}

// NewNodeAnnotation anchors label at the 1-based grid node ijk
func NewNodeAnnotation(label string, ijk models.Index3) Annotation {
	return Annotation{Label: label, Node: &ijk}
}

// Annotations returns the placed annotations
func (s *Slice) Annotations() []Annotation { return s.annotations }

// VisibleAnnotations returns the annotations selected by Options.Annotations
func (s *Slice) VisibleAnnotations() []Annotation {
	switch s.Options.Annotations {
	case models.AnnotateNone:
		return nil
	case models.AnnotateIntersecting:
		var out []Annotation
		for _, a := range s.annotations {
			if a.Intersects {
				out = append(out, a)
			}
		}
		return out
	}
	return s.annotations
}

// PlaceAnnotations computes the pixel location of each annotation and
// appends it to the slice.
func (s *Slice) PlaceAnnotations(list ...Annotation) error {
	for _, a := range list {
		var err error
		switch {
		case a.Position != nil:
			a = s.placePosition(a)
		case a.Node != nil:
			a, err = s.placeNode(a)
		default:
			err = fmt.Errorf("annotation %q has no anchor", a.Label)
		}
		if err != nil {
			return err
		}
		s.annotations = append(s.annotations, a)
	}
	return nil
}

func (s *Slice) placePosition(a Annotation) Annotation {
	h, v, c := s.request.Horizontal, s.request.Vertical, s.intersection
	p := *a.Position

	a.Pixel = image.Point{
		X: int(math.Round((p.Get(h) - s.request.Min.Get(h)) / s.step)),
		Y: s.Height() - int(math.Round((p.Get(v)-s.request.Min.Get(v))/s.step)),
	}
	a.Intersects = math.Abs(p.Get(c)-s.request.Intersection) < intersectTolerance
	return a
}

func (s *Slice) placeNode(a Annotation) (Annotation, error) {
	var mid [3]int
	for _, axis := range models.Axes {
		lines := s.gridLines[axis]
		idx := a.Node.Get(axis)
		switch {
		case len(lines) == 1:
			mid[axis] = lines[0]
		case idx < 1 || idx >= len(lines):
			return a, fmt.Errorf("annotation %q: node %v outside %s grid lines: %w",
				a.Label, *a.Node, axis, ErrIndexOutOfBounds)
		default:
			lo, hi := lines[idx-1], lines[idx]
			mid[axis] = int(math.Round(float64(hi-lo)/2 + float64(lo)))
		}
	}

	h, v, c := s.request.Horizontal, s.request.Vertical, s.intersection
	a.Pixel = image.Point{X: mid[h], Y: s.Height() - mid[v]}
	world := s.request.Min.Get(c) + float64(mid[c])*s.step
	a.Intersects = math.Abs(world-s.request.Intersection) < intersectTolerance
	return a, nil
}
