// Package pipeline loads grid datasets, cuts the configured slices and
// writes images, field dumps and slice metrics.
package pipeline

import (
	"errors"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"scalargrid/internal/models"
	"scalargrid/pkg/grid"
	"scalargrid/pkg/interpolation"
	"scalargrid/pkg/parser"
	"scalargrid/pkg/visualization"
)

// Params holds the pipeline parameters.
type Params struct {
	// InputFiles are the dataset files, one per time step for plot input
	InputFiles []string

	// Format forces an input format; FormatAuto detects it from the first file
	Format parser.Format

	// TimeIndex selects the time step to slice
	TimeIndex int

	// Fields lists the fields to slice. Empty means every field.
	Fields []string

	// Planes lists the display planes, e.g. "xy". The plane is cut through
	// the centre of the grid along the remaining axis.
	Planes []string

	// Intersection overrides the plane position when set
	Intersection *float64

	// MaxSidePixels is the pixel count of the longer side of each slice
	MaxSidePixels int

	// UseGlobalExtrema normalizes against the whole field instead of the slice
	UseGlobalExtrema bool

	// LogScale applies the log rescale before rendering
	LogScale bool

	// Thresholds, when set, produce a banded image per slice
	Thresholds []float64

	// Annotations are placed on every slice
	Annotations []grid.Annotation

	// AnnotationMode selects which annotations are kept
	AnnotationMode models.AnnotationMode

	// OutputDir receives images and dumps. Empty disables file output.
	OutputDir string

	// ImageFormat is "png" or "jpeg"
	ImageFormat string

	// DumpFormat is "none", "binary" or "ascii"
	DumpFormat string

	// DumpFields lists the fields to dump. Empty means every field.
	DumpFields []string

	// NumWorkers bounds how many slices are computed concurrently
	NumWorkers int

	// Log receives diagnostics; nil uses the standard logger
	Log logrus.FieldLogger
}

// Metrics summarizes the raw values of one slice
type Metrics struct {
	Field        string
	Plane        string
	Intersection float64
	Width        int
	Height       int

	Mean   float64
	StdDev float64
	Min    float64
	Max    float64

	// Bands counts pixels per band when thresholds were given
	Bands []int

	// Entropy is the Shannon entropy of the band distribution in nats
	Entropy float64

	// Anomalies counts pixels and values recovered from while slicing
	Anomalies int

	// Files lists the images written for the slice
	Files []string
}

// Pipeline runs the load, slice and output steps
type Pipeline struct {
	params  *Params
	log     logrus.FieldLogger
	source  *parser.Source
	grid    *grid.Grid
	slices  []*grid.Slice
	metrics []Metrics
}

// NewPipeline creates a pipeline with the provided parameters
func NewPipeline(params *Params) *Pipeline {
	log := params.Log
	if log == nil {
		log = logrus.StandardLogger()
	}
	if params.NumWorkers < 1 {
		params.NumWorkers = runtime.NumCPU()
	}
	if params.MaxSidePixels <= 0 {
		params.MaxSidePixels = 512
	}
	if params.ImageFormat == "" {
		params.ImageFormat = "png"
	}
	return &Pipeline{params: params, log: log}
}

// Process runs the complete pipeline
func (p *Pipeline) Process() error {
	fmt.Println("Step 1: Loading input files...")
	src, err := parser.Load(p.params.Format, p.log, p.params.InputFiles...)
	if err != nil {
		return fmt.Errorf("failed to load input: %w", err)
	}
	p.source = src
	if n := len(src.Anomalies); n > 0 {
		p.log.WithField("anomalies", n).Warn("Skipped malformed input")
	}

	fmt.Println("Step 2: Assembling grid...")
	g, err := src.Grid(p.params.TimeIndex)
	if err != nil {
		return fmt.Errorf("failed to assemble grid: %w", err)
	}
	p.grid = g

	fmt.Println("Step 3: Slicing fields...")
	if err := p.sliceInParallel(); err != nil {
		return err
	}

	if p.params.OutputDir != "" && p.params.DumpFormat != "" && p.params.DumpFormat != "none" {
		fmt.Println("Step 4: Dumping fields...")
		if err := p.dumpFields(); err != nil {
			return err
		}
	}
	return nil
}

type sliceJob struct {
	index int
	field string
	plane string
}

func (p *Pipeline) jobs() ([]sliceJob, error) {
	fields := p.params.Fields
	if len(fields) == 0 {
		fields = p.grid.FieldNames()
	}
	var jobs []sliceJob
	for _, f := range fields {
		if !p.grid.HasField(f) {
			return nil, fmt.Errorf("%w: %s", grid.ErrNoField, f)
		}
		for _, plane := range p.params.Planes {
			jobs = append(jobs, sliceJob{index: len(jobs), field: f, plane: plane})
		}
	}
	return jobs, nil
}

func (p *Pipeline) sliceInParallel() error {
	jobs, err := p.jobs()
	if err != nil {
		return err
	}

	type sliceResult struct {
		index   int
		slice   *grid.Slice
		metrics Metrics
		err     error
	}
	resultChan := make(chan sliceResult)
	sem := make(chan struct{}, p.params.NumWorkers)

	for _, job := range jobs {
		go func(job sliceJob) {
			sem <- struct{}{}
			defer func() { <-sem }()
			s, m, err := p.processSlice(job)
			resultChan <- sliceResult{index: job.index, slice: s, metrics: m, err: err}
		}(job)
	}

	slices := make([]*grid.Slice, len(jobs))
	metrics := make([]Metrics, len(jobs))
	var firstErr error
	for completed := 0; completed < len(jobs); completed++ {
		res := <-resultChan
		switch {
		case res.err == nil:
			slices[res.index], metrics[res.index] = res.slice, res.metrics
		case errors.Is(res.err, grid.ErrRange):
			// a plane outside the grid skips only that slice
			p.log.WithError(res.err).WithField("job", jobs[res.index].plane).Warn("Skipping slice")
		case firstErr == nil:
			firstErr = res.err
		}
		fmt.Printf("\rSlicing: %.1f%% complete", float64(completed+1)/float64(len(jobs))*100)
	}
	if len(jobs) > 0 {
		fmt.Println()
	}
	if firstErr != nil {
		return fmt.Errorf("slicing failed: %w", firstErr)
	}

	for i := range slices {
		if slices[i] != nil {
			p.slices = append(p.slices, slices[i])
			p.metrics = append(p.metrics, metrics[i])
		}
	}
	return nil
}

// request builds the slice request of a job, spanning the whole grid
func (p *Pipeline) request(job sliceJob) (grid.SliceRequest, error) {
	h, v, err := models.ParsePlane(job.plane)
	if err != nil {
		return grid.SliceRequest{}, err
	}
	lo, hi, err := p.grid.Extents()
	if err != nil {
		return grid.SliceRequest{}, err
	}
	c := models.Other(h, v)
	intersection := (lo.Get(c) + hi.Get(c)) / 2
	if p.params.Intersection != nil {
		intersection = *p.params.Intersection
	}
	return grid.SliceRequest{
		Horizontal:    h,
		Vertical:      v,
		Intersection:  intersection,
		Min:           lo,
		Max:           hi,
		Field:         job.field,
		MaxSidePixels: p.params.MaxSidePixels,
	}, nil
}

func (p *Pipeline) processSlice(job sliceJob) (*grid.Slice, Metrics, error) {
	req, err := p.request(job)
	if err != nil {
		return nil, Metrics{}, err
	}
	s, err := p.grid.Slice(req)
	if err != nil {
		return nil, Metrics{}, err
	}
	s.Options.Annotations = p.params.AnnotationMode
	s.SetUseGlobalExtrema(p.params.UseGlobalExtrema)
	if len(p.params.Annotations) > 0 {
		if err := s.PlaceAnnotations(p.params.Annotations...); err != nil {
			return nil, Metrics{}, err
		}
	}

	m := computeMetrics(s)
	m.Plane = job.plane

	// normalization and banding each work on their own copy
	rendered := s.Copy()
	rendered.MinMaxNormalize()
	lo, hi := 0.0, 1.0
	if p.params.LogScale {
		rendered.LogRescale()
		lo, hi = grid.LogRescale(0), grid.LogRescale(1)
	}
	viewer := visualization.NewViewer(rendered)

	base := fmt.Sprintf("%s_%s", FileName(job.field), job.plane)
	if p.params.OutputDir != "" {
		name := filepath.Join(p.params.OutputDir, base+"."+p.extension())
		if err := p.save(viewer.Gray16Range(lo, hi), name); err != nil {
			return nil, Metrics{}, err
		}
		m.Files = append(m.Files, name)
	}

	if len(p.params.Thresholds) > 0 {
		banded := s.Copy()
		b, err := banded.Band(p.params.Thresholds)
		if err != nil {
			return nil, Metrics{}, err
		}
		m.Bands = b.Histogram()
		m.Entropy = bandEntropy(m.Bands)
		if p.params.OutputDir != "" {
			name := filepath.Join(p.params.OutputDir, base+"_bands."+p.extension())
			if err := p.save(visualization.NewViewer(banded).BandImage(b), name); err != nil {
				return nil, Metrics{}, err
			}
			m.Files = append(m.Files, name)
		}
	}

	p.log.WithFields(logrus.Fields{
		"field":  job.field,
		"plane":  job.plane,
		"width":  m.Width,
		"height": m.Height,
		"mean":   m.Mean,
	}).Debug("Sliced field")
	return s, m, nil
}

func (p *Pipeline) extension() string {
	if strings.EqualFold(p.params.ImageFormat, "jpeg") || strings.EqualFold(p.params.ImageFormat, "jpg") {
		return "jpg"
	}
	return "png"
}

func (p *Pipeline) save(img image.Image, name string) error {
	if err := os.MkdirAll(filepath.Dir(name), 0755); err != nil {
		return err
	}
	return visualization.SaveSlice(img, name)
}

func computeMetrics(s *grid.Slice) Metrics {
	values := make([]float64, 0, s.Width()*s.Height())
	for i := 0; i < s.Height(); i++ {
		for j := 0; j < s.Width(); j++ {
			values = append(values, s.At(i, j))
		}
	}
	mean, std := stat.MeanStdDev(values, nil)
	return Metrics{
		Field:        s.Field(),
		Intersection: s.Intersection(),
		Width:        s.Width(),
		Height:       s.Height(),
		Mean:         mean,
		StdDev:       std,
		Min:          floats.Min(values),
		Max:          floats.Max(values),
		Anomalies:    len(s.Anomalies()),
	}
}

// bandEntropy returns the entropy of the pixel distribution over bands
func bandEntropy(counts []int) float64 {
	total := 0
	for _, c := range counts {
		total += c
	}
	if total == 0 {
		return 0
	}
	p := make([]float64, len(counts))
	for i, c := range counts {
		p[i] = float64(c) / float64(total)
	}
	return stat.Entropy(p)
}

func (p *Pipeline) dumpFields() error {
	fields := p.params.DumpFields
	if len(fields) == 0 {
		fields = p.grid.FieldNames()
	}
	for _, f := range fields {
		var err error
		switch p.params.DumpFormat {
		case "binary":
			err = p.grid.DumpBinaryFile(filepath.Join(p.params.OutputDir, FileName(f)+".bin"), f)
		case "ascii":
			err = p.grid.DumpASCIIFile(filepath.Join(p.params.OutputDir, FileName(f)+".txt"), f)
		default:
			err = fmt.Errorf("invalid dump format: %s", p.params.DumpFormat)
		}
		if err != nil {
			return fmt.Errorf("failed to dump %s: %w", f, err)
		}
	}
	return nil
}

// FileName turns a field key into a file name component
func FileName(field string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case ' ', '/', '\\', ':':
			return '_'
		}
		return r
	}, field)
}

// GetMetrics returns the metrics of every successful slice
func (p *Pipeline) GetMetrics() []Metrics {
	return p.metrics
}

// Slices returns the raw slices in job order
func (p *Pipeline) Slices() []*grid.Slice {
	return p.slices
}

// Grid returns the assembled grid
func (p *Pipeline) Grid() *grid.Grid {
	return p.grid
}

// Source returns the loaded input
func (p *Pipeline) Source() *parser.Source {
	return p.source
}

// IsFatal reports whether err indicates corrupt data rather than bad input
func IsFatal(err error) bool {
	return errors.Is(err, interpolation.ErrInvariant)
}
