package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"scalargrid/internal/models"
	"scalargrid/pkg/config"
	"scalargrid/pkg/grid"
	"scalargrid/pkg/parser"
	"scalargrid/pkg/pipeline"
)

// sliceFlags holds command line overrides of the slicing configuration
type sliceFlags struct {
	format       string
	timeIndex    int
	fields       []string
	planes       []string
	intersection float64
	maxSide      int
	thresholds   []float64
	outDir       string
	imageFormat  string
	dumpFormat   string
	workers      int
	positions    []string
	nodes        []string
	local        bool
	linear       bool
}

func (f *sliceFlags) register(cmd *cobra.Command) {
	fs := cmd.Flags()
	fs.StringVar(&f.format, "format", "", "input format: auto, plot, tecplot or ntab")
	fs.IntVarP(&f.timeIndex, "time", "t", 0, "time step index to slice")
	fs.StringSliceVar(&f.fields, "field", nil, "fields to slice (default all)")
	fs.StringSliceVarP(&f.planes, "plane", "p", nil, "display planes, e.g. xy,xz")
	fs.Float64Var(&f.intersection, "at", 0, "plane position along the remaining axis (default grid centre)")
	fs.IntVar(&f.maxSide, "max-side", 0, "pixels on the longer side of each slice")
	fs.Float64SliceVar(&f.thresholds, "thresholds", nil, "band thresholds in field units")
	fs.StringVarP(&f.outDir, "out", "o", "", "output directory")
	fs.StringVar(&f.imageFormat, "image-format", "", "png or jpeg")
	fs.StringVar(&f.dumpFormat, "dump", "", "field dump format: none, binary or ascii")
	fs.IntVar(&f.workers, "workers", 0, "slices computed concurrently")
	fs.StringArrayVar(&f.positions, "mark", nil, "annotate a world position, label:x,y,z")
	fs.StringArrayVar(&f.nodes, "node", nil, "annotate a grid node, label:i,j,k (1-based)")
	fs.BoolVar(&f.local, "local-extrema", false, "normalize against the slice instead of the whole field")
	fs.BoolVar(&f.linear, "linear", false, "skip the log rescale")
}

// apply writes the flags the user set over cfg
func (f *sliceFlags) apply(cmd *cobra.Command, cfg *config.Config) {
	fs := cmd.Flags()
	if fs.Changed("format") {
		cfg.Input.Format = f.format
	}
	if fs.Changed("time") {
		cfg.Input.TimeIndex = f.timeIndex
	}
	if fs.Changed("field") {
		cfg.Input.Fields = f.fields
	}
	if fs.Changed("plane") {
		cfg.Slicing.Planes = f.planes
	}
	if fs.Changed("max-side") {
		cfg.Slicing.MaxSidePixels = f.maxSide
	}
	if fs.Changed("thresholds") {
		cfg.Slicing.Thresholds = f.thresholds
	}
	if fs.Changed("out") {
		cfg.Output.Dir = f.outDir
	}
	if fs.Changed("image-format") {
		cfg.Output.ImageFormat = f.imageFormat
	}
	if fs.Changed("dump") {
		cfg.Output.DumpFormat = f.dumpFormat
	}
	if fs.Changed("workers") {
		cfg.Processing.NumWorkers = f.workers
	}
	if f.local {
		cfg.Slicing.UseGlobalExtrema = false
	}
	if f.linear {
		cfg.Slicing.LogScale = false
	}
}

// buildParams turns a validated configuration into pipeline parameters
func buildParams(cfg *config.Config, files []string) (*pipeline.Params, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	format, err := parser.ParseFormat(cfg.Input.Format)
	if err != nil {
		return nil, err
	}
	mode, err := models.ParseAnnotationMode(cfg.Slicing.Annotations)
	if err != nil {
		return nil, err
	}
	return &pipeline.Params{
		InputFiles:       files,
		Format:           format,
		TimeIndex:        cfg.Input.TimeIndex,
		Fields:           cfg.Input.Fields,
		Planes:           cfg.Slicing.Planes,
		MaxSidePixels:    cfg.Slicing.MaxSidePixels,
		UseGlobalExtrema: cfg.Slicing.UseGlobalExtrema,
		LogScale:         cfg.Slicing.LogScale,
		Thresholds:       cfg.Slicing.Thresholds,
		AnnotationMode:   mode,
		OutputDir:        cfg.Output.Dir,
		ImageFormat:      strings.ToLower(cfg.Output.ImageFormat),
		DumpFormat:       strings.ToLower(cfg.Output.DumpFormat),
		DumpFields:       cfg.Output.DumpFields,
		NumWorkers:       cfg.Processing.NumWorkers,
	}, nil
}

// parseAnnotation parses "label:a,b,c". Nodes take integer indices.
func parseAnnotation(s string, node bool) (grid.Annotation, error) {
	label, coords, ok := strings.Cut(s, ":")
	if !ok {
		return grid.Annotation{}, fmt.Errorf("invalid annotation %q: expected label:a,b,c", s)
	}
	parts := strings.Split(coords, ",")
	if len(parts) != 3 {
		return grid.Annotation{}, fmt.Errorf("invalid annotation %q: expected three coordinates", s)
	}

	if node {
		var ijk models.Index3
		for n, axis := range models.Axes {
			v, err := strconv.Atoi(strings.TrimSpace(parts[n]))
			if err != nil {
				return grid.Annotation{}, fmt.Errorf("invalid annotation %q: %w", s, err)
			}
			ijk = ijk.With(axis, v)
		}
		return grid.NewNodeAnnotation(label, ijk), nil
	}

	var p models.Vec3
	for n, axis := range models.Axes {
		v, err := strconv.ParseFloat(strings.TrimSpace(parts[n]), 64)
		if err != nil {
			return grid.Annotation{}, fmt.Errorf("invalid annotation %q: %w", s, err)
		}
		p = p.With(axis, v)
	}
	return grid.NewPositionAnnotation(label, p), nil
}

func (f *sliceFlags) annotations() ([]grid.Annotation, error) {
	var list []grid.Annotation
	for _, s := range f.positions {
		a, err := parseAnnotation(s, false)
		if err != nil {
			return nil, err
		}
		list = append(list, a)
	}
	for _, s := range f.nodes {
		a, err := parseAnnotation(s, true)
		if err != nil {
			return nil, err
		}
		list = append(list, a)
	}
	return list, nil
}
