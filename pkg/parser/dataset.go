package parser

import (
	"fmt"
	"sort"

	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"scalargrid/internal/models"
	"scalargrid/pkg/grid"
)

// Statistics summarizes a field across all time steps
type Statistics struct {
	Min  float64
	Mean float64
	Max  float64
}

// Dataset is the time series produced by the zone and tabular formats.
// Every field holds one value slice per time step in linear-index order.
type Dataset struct {
	// Size is the node count per axis
	Size models.Index3

	// Centers are the node positions per axis
	Centers [3][]float64

	// Edges are the cell boundaries per axis
	Edges [3][]float64

	// Times are the simulation times of the steps
	Times []float64

	// Data maps field name to values indexed [time][linear index]
	Data map[string][][]float64

	// Units maps field name to unit, for fields that declare one
	Units map[string]string

	// Statistics maps field name to its summary
	Statistics map[string]Statistics

	// Anomalies lists the tokens and lines skipped while parsing
	Anomalies []models.Anomaly

	log logrus.FieldLogger
}

func newDataset(log logrus.FieldLogger) *Dataset {
	return &Dataset{
		Data:       make(map[string][][]float64),
		Units:      make(map[string]string),
		Statistics: make(map[string]Statistics),
		log:        loggerOrDefault(log),
	}
}

// FieldNames returns the sorted data field names
func (d *Dataset) FieldNames() []string {
	names := make([]string, 0, len(d.Data))
	for name := range d.Data {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Grid assembles the grid for one time step
func (d *Dataset) Grid(timeIndex int) (*grid.Grid, error) {
	if timeIndex < 0 || timeIndex >= len(d.Times) {
		return nil, fmt.Errorf("%w: %d of %d", ErrTimeIndex, timeIndex, len(d.Times))
	}

	g, err := grid.New(d.Size, grid.WithTimestep(d.Times[timeIndex]), grid.WithLogger(d.log))
	if err != nil {
		return nil, err
	}

	for _, axis := range models.Axes {
		f := g.Field(grid.PositionKey(axis))
		for i, v := range d.Centers[axis] {
			f.SetValue(i, v)
		}
	}

	for name, steps := range d.Data {
		if timeIndex >= len(steps) {
			continue
		}
		f := g.Field(name)
		f.SetUnit(d.Units[name])
		for i, v := range steps[timeIndex] {
			f.SetValue(i, v)
		}
	}
	return g, nil
}

// computeStatistics fills Statistics from Data
func (d *Dataset) computeStatistics() {
	for name, steps := range d.Data {
		var all []float64
		for _, values := range steps {
			all = append(all, values...)
		}
		if len(all) == 0 {
			continue
		}
		d.Statistics[name] = Statistics{
			Min:  floats.Min(all),
			Mean: stat.Mean(all, nil),
			Max:  floats.Max(all),
		}
	}
}

// uniqueSorted returns the distinct values of set in ascending order
func uniqueSorted(set map[float64]struct{}) []float64 {
	out := make([]float64, 0, len(set))
	for v := range set {
		out = append(out, v)
	}
	sort.Float64s(out)
	return out
}

// midpoints returns the centres between consecutive coordinates
func midpoints(coords []float64) []float64 {
	if len(coords) < 2 {
		return append([]float64(nil), coords...)
	}
	out := make([]float64, len(coords)-1)
	for i := range out {
		out[i] = (coords[i] + coords[i+1]) / 2
	}
	return out
}

// cellEdges extrapolates cell boundaries from centres, extending half a
// step past each end
func cellEdges(centers []float64) []float64 {
	if len(centers) < 2 {
		return append([]float64(nil), centers...)
	}
	edges := make([]float64, 0, len(centers)+1)
	for i := 1; i < len(centers); i++ {
		half := (centers[i] - centers[i-1]) / 2
		if i == 1 {
			edges = append(edges, centers[0]-half)
		}
		edges = append(edges, centers[i-1]+half)
		if i == len(centers)-1 {
			edges = append(edges, centers[i]+half)
		}
	}
	return edges
}
