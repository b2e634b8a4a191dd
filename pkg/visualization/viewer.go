// Package visualization turns slices into grayscale images.
package visualization

import (
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"math"
	"os"
	"path/filepath"
	"strings"

	"scalargrid/internal/models"
	"scalargrid/pkg/grid"
)

// Viewer renders the raster of a slice
type Viewer struct {
	slice *grid.Slice
}

// NewViewer creates a viewer for s
func NewViewer(s *grid.Slice) *Viewer {
	return &Viewer{slice: s}
}

// Gray16 renders values in [0, 1], as left by MinMaxNormalize, to an
// image. Values outside are clamped.
func (v *Viewer) Gray16() *image.Gray16 {
	return v.Gray16Range(0, 1)
}

// Gray16Range renders values in [lo, hi] to an image with lo black and hi
// white. Values outside are clamped.
func (v *Viewer) Gray16Range(lo, hi float64) *image.Gray16 {
	w, h := v.slice.Width(), v.slice.Height()
	img := image.NewGray16(image.Rect(0, 0, w, h))
	span := hi - lo
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			n := 0.0
			if span > 0 {
				n = (v.slice.At(y, x) - lo) / span
			}
			img.SetGray16(x, y, color.Gray16{Y: gray(n)})
		}
	}
	return img
}

// BandImage renders band indices spread evenly over the gray range
func (v *Viewer) BandImage(b *grid.Banding) *image.Gray16 {
	h := len(b.Classes)
	w := 0
	if h > 0 {
		w = len(b.Classes[0])
	}
	img := image.NewGray16(image.Rect(0, 0, w, h))
	top := float64(b.Bands() - 1)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			n := 0.0
			if top > 0 {
				n = float64(b.Classes[y][x]) / top
			}
			img.SetGray16(x, y, color.Gray16{Y: gray(n)})
		}
	}
	return img
}

func gray(n float64) uint16 {
	if math.IsNaN(n) {
		return 0
	}
	return uint16(math.Max(0, math.Min(65535, n*65535)))
}

// SaveSlice saves img as PNG or JPEG, chosen by the file extension
func SaveSlice(img image.Image, filename string) error {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".jpg", ".jpeg":
		return SaveJPEG(img, filename)
	case ".png":
		return SavePNG(img, filename)
	}
	return fmt.Errorf("unsupported image extension: %s", filepath.Ext(filename))
}

// SavePNG saves img as a PNG image
func SavePNG(img image.Image, filename string) error {
	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	if err := png.Encode(file, img); err != nil {
		file.Close()
		return err
	}
	return file.Close()
}

// SaveJPEG saves img as a JPEG image
func SaveJPEG(img image.Image, filename string) error {
	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	if err := jpeg.Encode(file, img, &jpeg.Options{Quality: 90}); err != nil {
		file.Close()
		return err
	}
	return file.Close()
}

// SaveSliceSequence cuts req at every grid step along its intersection
// axis and saves each normalized slice to outputDir with the given image
// extension ("png" or "jpg"). It returns the written file names.
func SaveSliceSequence(g *grid.Grid, req grid.SliceRequest, outputDir, ext string) ([]string, error) {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, err
	}

	axis := models.Other(req.Horizontal, req.Vertical)
	steps, err := g.Steps(axis)
	if err != nil {
		return nil, err
	}

	var files []string
	for pos, step := range steps {
		req.Intersection = step
		s, err := g.Slice(req)
		if err != nil {
			return files, err
		}
		s.MinMaxNormalize()

		filename := filepath.Join(outputDir, fmt.Sprintf("slice_%s_%03d.%s", axis, pos, ext))
		if err := SaveSlice(NewViewer(s).Gray16(), filename); err != nil {
			return files, err
		}
		files = append(files, filename)
	}

	return files, nil
}
