package parser

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"

	"scalargrid/internal/models"
	"scalargrid/pkg/grid"
)

// Result is a parsed plot file
type Result struct {
	Grid      *grid.Grid
	Anomalies []models.Anomaly
}

// plotHeader accumulates the key = value lines of a plot file
type plotHeader struct {
	size        [3]int
	hasSize     [3]bool
	activeNodes int
	vertices    int

	// origins holds each origin spelling by precedence, lowest first
	origins [3][3]*float64
}

func (h *plotHeader) complete() bool {
	return h.hasSize[0] && h.hasSize[1] && h.hasSize[2]
}

// origin returns the origin using the highest-precedence spelling per axis
func (h *plotHeader) origin() (models.Vec3, bool) {
	var o models.Vec3
	found := false
	for _, axis := range models.Axes {
		for _, v := range h.origins[axis] {
			if v != nil {
				o = o.With(axis, *v)
				found = true
			}
		}
	}
	return o, found
}

type headerSetter func(h *plotHeader, value string) error

func setSize(axis models.Axis) headerSetter {
	return func(h *plotHeader, value string) error {
		n, err := strconv.Atoi(value)
		if err != nil {
			return err
		}
		h.size[axis] = n
		h.hasSize[axis] = true
		return nil
	}
}

func setOrigin(axis models.Axis, rank int) headerSetter {
	return func(h *plotHeader, value string) error {
		v, err := parseFinite(value)
		if err != nil {
			return err
		}
		h.origins[axis][rank] = &v
		return nil
	}
}

func setInt(dst func(h *plotHeader) *int) headerSetter {
	return func(h *plotHeader, value string) error {
		n, err := strconv.Atoi(value)
		if err != nil {
			return err
		}
		*dst(h) = n
		return nil
	}
}

// plotHeaderKeys maps recognized header keys to their setters. The
// longest matching key wins.
var plotHeaderKeys = map[string]headerSetter{
	"Number of X or R-Direction Nodes":     setSize(models.X),
	"Number of Y or Theta-Direction Nodes": setSize(models.Y),
	"Number of Z-Direction Nodes":          setSize(models.Z),
	"Number of Active Nodes":               setInt(func(h *plotHeader) *int { return &h.activeNodes }),
	"Number of Vertices":                   setInt(func(h *plotHeader) *int { return &h.vertices }),

	"X Origin -- Hexahedra Points":  setOrigin(models.X, 0),
	"X Origin -- Surface Positions": setOrigin(models.X, 1),
	"X Origin":                      setOrigin(models.X, 2),
	"Y Origin -- Hexahedra Points":  setOrigin(models.Y, 0),
	"Y Origin -- Surface Positions": setOrigin(models.Y, 1),
	"Y Origin":                      setOrigin(models.Y, 2),
	"Z Origin -- Hexahedra Points":  setOrigin(models.Z, 0),
	"Z Origin -- Surface Positions": setOrigin(models.Z, 1),
	"Z Origin":                      setOrigin(models.Z, 2),
}

func matchHeaderKey(line string) (string, headerSetter) {
	best := ""
	var setter headerSetter
	for key, s := range plotHeaderKeys {
		if strings.HasPrefix(line, key) && len(key) > len(best) {
			best, setter = key, s
		}
	}
	return best, setter
}

// positionLabels maps block label prefixes to positional field keys
var positionLabels = []struct {
	prefix string
	key    string
}{
	{"X or R-Direction Node Positions", grid.FieldX},
	{"Radial-Direction Node Positions", grid.FieldX},
	{"X-Direction Surface Positions", grid.FieldX},
	{"X-Direction Node Positions", grid.FieldX},
	{"X-Direction Nodal Vertices", grid.FieldX},
	{"Y or Theta-Direction Node Positions", grid.FieldY},
	{"Theta-Direction Node Positions", grid.FieldY},
	{"Y-Direction Surface Positions", grid.FieldY},
	{"Y-Direction Node Positions", grid.FieldY},
	{"Y-Direction Nodal Vertices", grid.FieldY},
	{"Z-Direction Node Positions", grid.FieldZ},
	{"Z-Direction Surface Positions", grid.FieldZ},
	{"Z-Direction Nodal Vertices", grid.FieldZ},
}

func blockKey(label string) string {
	for _, l := range positionLabels {
		if strings.HasPrefix(label, l.prefix) {
			return l.key
		}
	}
	return label
}

// isTimeLine reports whether line carries the simulation time
func isTimeLine(line string) bool {
	return strings.HasPrefix(line, "Time") && strings.Contains(line, "=")
}

// parseTimeLine extracts the time from a line such as
//
//	Time =  3.1557600E+09,s  ...  5.2178571E+03,wk  1.0000000E+02,yr
//
// preferring the years value, otherwise the first value. The result is
// rounded to three decimals.
func parseTimeLine(line string) (float64, error) {
	var sub string
	wk, yr := strings.Index(line, ",wk"), strings.Index(line, ",yr")
	if wk >= 0 && yr > wk {
		sub = line[wk+3 : yr]
	} else {
		sub = line[strings.Index(line, "=")+1:]
		if fields := strings.Fields(sub); len(fields) > 0 {
			sub = strings.Split(fields[0], ",")[0]
		}
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(sub), 64)
	if err != nil {
		return 0, fmt.Errorf("invalid time %q: %w", strings.TrimSpace(sub), err)
	}
	return math.Round(v*1000) / 1000, nil
}

// PlotParser reads the labelled-block plot format: a key = value header
// followed by blocks of whitespace separated values, each introduced by a
// "Label, unit" line.
type PlotParser struct {
	log logrus.FieldLogger
}

// NewPlotParser creates a plot parser logging to log, or the standard
// logger when nil
func NewPlotParser(log logrus.FieldLogger) *PlotParser {
	return &PlotParser{log: loggerOrDefault(log)}
}

// ParseFile parses the plot file at path
func (p *PlotParser) ParseFile(path string) (*Result, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("error opening plot file: %w", err)
	}
	defer file.Close()
	return p.Parse(file, path)
}

// plotState is the cursor of a single plot parse
type plotState struct {
	source  string
	header  plotHeader
	time    float64
	grid    *grid.Grid
	field   *grid.Field
	nodal   bool
	linear  int
	anomaly *recorder
}

// Parse reads a plot file from r. source names the input in anomalies.
func (p *PlotParser) Parse(r io.Reader, source string) (*Result, error) {
	st := &plotState{
		source:  source,
		anomaly: &recorder{log: p.log},
	}

	emptyLine := false
	lineNo := 0
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		lineNo++
		line := scanner.Text()

		switch {
		case strings.TrimSpace(line) == "":
			emptyLine = true

		case isTimeLine(line):
			t, err := parseTimeLine(line)
			if err != nil {
				st.anomaly.add(models.ParseRecoverable, source, lineNo, "%v", err)
				continue
			}
			st.time = t

		case strings.Contains(line, "="):
			st.headerLine(line, lineNo)

		case strings.Contains(line, ",") || emptyLine:
			emptyLine = false
			if err := st.startBlock(line, lineNo, p.log); err != nil {
				return nil, err
			}

		default:
			emptyLine = false
			st.dataLine(line, lineNo)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading plot file: %w", err)
	}

	if st.grid == nil {
		return nil, fmt.Errorf("%s: %w", source, ErrNoGrid)
	}

	// 2D grids have no positions along the normal axis. With an origin the
	// single cell collapses onto it so the axis steps stay ordered.
	if normal, ok := st.grid.NormalAxis(); ok {
		pos := 0.0
		if origin, ok := st.grid.Origin(); ok {
			pos = origin.Get(normal)
		}
		f := st.grid.Field(grid.PositionKey(normal))
		for i := 0; i < f.Len(); i++ {
			f.SetValue(i, pos)
		}
	}

	p.log.WithFields(logrus.Fields{
		"source":    source,
		"size":      st.grid.Size(),
		"fields":    len(st.grid.FieldNames()),
		"time":      st.time,
		"anomalies": len(st.anomaly.list),
	}).Info("Parsed plot file")

	return &Result{Grid: st.grid, Anomalies: st.anomaly.list}, nil
}

func (st *plotState) headerLine(line string, lineNo int) {
	key, setter := matchHeaderKey(strings.TrimSpace(line))
	if setter == nil {
		return
	}
	value := strings.TrimSpace(line[strings.Index(line, "=")+1:])
	if err := setter(&st.header, value); err != nil {
		st.anomaly.add(models.ParseRecoverable, st.source, lineNo, "invalid value for %s: %q", key, value)
	}
}

func (st *plotState) startBlock(line string, lineNo int, log logrus.FieldLogger) error {
	if st.grid == nil {
		if !st.header.complete() {
			st.anomaly.add(models.ParseRecoverable, st.source, lineNo, "block before grid header: %q", line)
			return nil
		}
		size := models.Index3{I: st.header.size[0], J: st.header.size[1], K: st.header.size[2]}
		opts := []grid.Option{grid.WithTimestep(st.time), grid.WithLogger(log)}
		if origin, ok := st.header.origin(); ok {
			opts = append(opts, grid.WithOrigin(origin))
		}
		g, err := grid.New(size, opts...)
		if err != nil {
			return fmt.Errorf("%s:%d: %w", st.source, lineNo, err)
		}
		st.grid = g
	}

	parts := strings.Split(line, ",")
	label := strings.TrimSpace(parts[0])
	key := blockKey(label)

	st.field = st.grid.Field(key)
	if len(parts) > 1 {
		st.field.SetUnit(strings.TrimSpace(parts[1]))
	}
	st.nodal = strings.Contains(label, "Nodal")
	st.linear = 0
	return nil
}

// position maps a linear index to the index of a positional field. Only
// nodes on the axis line through node (0, 0, 0) carry a position.
func (st *plotState) position(key string, linear int) (int, bool) {
	size := st.grid.Size()
	switch key {
	case grid.FieldX:
		return linear, linear < size.I
	case grid.FieldY:
		return linear / size.I, linear%size.I == 0 && linear < size.I*size.J
	case grid.FieldZ:
		plane := size.I * size.J
		return linear / plane, linear%plane == 0
	}
	return linear, true
}

func (st *plotState) dataLine(line string, lineNo int) {
	if st.grid == nil || st.field == nil {
		return
	}
	tokens := strings.Fields(line)
	if len(tokens) == 0 {
		return
	}

	if st.nodal {
		if idx, ok := st.position(st.field.Name(), st.linear); ok {
			skipped, accepted := st.field.AddNodalValue(idx, tokens)
			st.anomaly.skipped(st.source, lineNo, skipped)
			if !accepted && idx >= st.field.Len() {
				st.anomaly.add(models.IndexOutOfBounds, st.source, lineNo, "%s index %d beyond %d values", st.field.Name(), idx, st.field.Len())
			}
		}
		st.linear++
		return
	}

	for _, tok := range tokens {
		v, err := parseFinite(tok)
		if err != nil {
			st.anomaly.add(models.ParseRecoverable, st.source, lineNo, "skipped token %q", tok)
			st.linear++
			continue
		}
		if idx, ok := st.position(st.field.Name(), st.linear); ok {
			if !st.field.SetValue(idx, v) {
				st.anomaly.add(models.IndexOutOfBounds, st.source, lineNo, "%s index %d beyond %d values", st.field.Name(), idx, st.field.Len())
			}
		}
		st.linear++
	}
}

// PlotTime returns the simulation time in the header of the plot file at
// path. ok is false when the file has no time line.
func PlotTime(path string) (t float64, ok bool, err error) {
	file, err := os.Open(path)
	if err != nil {
		return 0, false, fmt.Errorf("error opening plot file: %w", err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := scanner.Text()
		if isTimeLine(line) {
			t, err := parseTimeLine(line)
			if err != nil {
				return 0, false, err
			}
			return t, true, nil
		}
	}
	return 0, false, scanner.Err()
}
