package parser

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"

	"scalargrid/internal/models"
	"scalargrid/pkg/grid"
)

// Format identifies one of the supported input grammars
type Format int

const (
	FormatAuto Format = iota
	FormatPlot
	FormatTecplot
	FormatNtab
)

func (f Format) String() string {
	switch f {
	case FormatPlot:
		return "plot"
	case FormatTecplot:
		return "tecplot"
	case FormatNtab:
		return "ntab"
	}
	return "auto"
}

// ParseFormat converts a format name to a Format
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "auto":
		return FormatAuto, nil
	case "plot", "stomp":
		return FormatPlot, nil
	case "tecplot", "zone":
		return FormatTecplot, nil
	case "ntab", "nuft", "tabular":
		return FormatNtab, nil
	}
	return FormatAuto, fmt.Errorf("%w: %s", ErrUnknownFormat, s)
}

// detectLines bounds how far DetectFormat reads into a file
const detectLines = 64

// DetectFormat inspects the first lines of the file at path: VARIABLES or
// ZONE headers mean Tecplot, an index header means NTAB, anything else is
// read as a plot file.
func DetectFormat(path string) (Format, error) {
	if strings.EqualFold(strings.TrimPrefix(filepath.Ext(path), "."), "ntab") {
		return FormatNtab, nil
	}

	file, err := os.Open(path)
	if err != nil {
		return FormatAuto, fmt.Errorf("error opening input file: %w", err)
	}
	defer file.Close()

	scanner := newScanner(file)
	for n := 0; n < detectLines && scanner.Scan(); n++ {
		line := strings.ToUpper(strings.TrimSpace(scanner.Text()))
		switch {
		case line == "":
		case strings.HasPrefix(line, "VARIABLES"), strings.HasPrefix(line, "ZONE"):
			return FormatTecplot, nil
		case strings.HasPrefix(line, "INDEX "), line == "INDEX":
			return FormatNtab, nil
		}
	}
	if err := scanner.Err(); err != nil {
		return FormatAuto, fmt.Errorf("error reading input file: %w", err)
	}
	return FormatPlot, nil
}

// Source is a loaded set of input files yielding one grid per time step
type Source struct {
	Format Format

	// Dataset holds Tecplot and NTAB input
	Dataset *Dataset

	// Plots holds one parsed plot file per time step, ordered by time
	Plots []*Result

	// Anomalies lists everything skipped while loading
	Anomalies []models.Anomaly
}

// Load parses paths in the given format, detecting it from the first file
// when format is FormatAuto. Plot files become one time step each; Tecplot
// and NTAB files merge into a single dataset.
func Load(format Format, log logrus.FieldLogger, paths ...string) (*Source, error) {
	if len(paths) == 0 {
		return nil, ErrNoFiles
	}
	log = loggerOrDefault(log)

	if format == FormatAuto {
		f, err := DetectFormat(paths[0])
		if err != nil {
			return nil, err
		}
		format = f
		log.WithField("format", format).Debug("Detected input format")
	}

	src := &Source{Format: format}
	switch format {
	case FormatPlot:
		p := NewPlotParser(log)
		for _, path := range paths {
			res, err := p.ParseFile(path)
			if err != nil {
				return nil, err
			}
			src.Plots = append(src.Plots, res)
			src.Anomalies = append(src.Anomalies, res.Anomalies...)
		}
		sort.SliceStable(src.Plots, func(i, j int) bool {
			return src.Plots[i].Grid.Timestep() < src.Plots[j].Grid.Timestep()
		})

	case FormatTecplot, FormatNtab:
		var ds *Dataset
		var err error
		if format == FormatTecplot {
			ds, err = NewTecplotParser(log).ParseFiles(paths...)
		} else {
			ds, err = NewNtabParser(log).ParseFiles(paths...)
		}
		if err != nil {
			return nil, err
		}
		src.Dataset = ds
		src.Anomalies = ds.Anomalies

	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownFormat, format)
	}
	return src, nil
}

// Len returns the number of time steps
func (s *Source) Len() int {
	if s.Dataset != nil {
		return len(s.Dataset.Times)
	}
	return len(s.Plots)
}

// Times returns the time of every step
func (s *Source) Times() []float64 {
	if s.Dataset != nil {
		return s.Dataset.Times
	}
	times := make([]float64, len(s.Plots))
	for i, p := range s.Plots {
		times[i] = p.Grid.Timestep()
	}
	return times
}

// Grid returns the grid of one time step
func (s *Source) Grid(timeIndex int) (*grid.Grid, error) {
	if s.Dataset != nil {
		return s.Dataset.Grid(timeIndex)
	}
	if timeIndex < 0 || timeIndex >= len(s.Plots) {
		return nil, fmt.Errorf("%w: %d of %d", ErrTimeIndex, timeIndex, len(s.Plots))
	}
	return s.Plots[timeIndex].Grid, nil
}

// FieldNames returns the data field names of the source
func (s *Source) FieldNames() []string {
	if s.Dataset != nil {
		return s.Dataset.FieldNames()
	}
	if len(s.Plots) == 0 {
		return nil
	}
	return s.Plots[0].Grid.FieldNames()
}
