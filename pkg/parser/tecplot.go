package parser

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"regexp"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"

	"scalargrid/internal/models"
	"scalargrid/pkg/grid"
)

var (
	zoneAttr   = regexp.MustCompile(`(\w+)\s*=\s*("[^"]*"|\([^)]*\)|[^,\s]+)`)
	bracketSet = regexp.MustCompile(`\[([^\]]*)\]`)
	number     = regexp.MustCompile(`[-+]?\d*\.?\d+(?:[eE][-+]?\d+)?`)
)

type tecplotVariable struct {
	name string
	unit string
	axis models.Axis
	pos  bool
}

// parseVariables reads a line such as
//
//	VARIABLES = "X, m", "Y, m", "Z, m", "Pressure, Pa"
func parseVariables(line string) []tecplotVariable {
	var vars []tecplotVariable
	for _, part := range strings.Split(line, `"`) {
		if strings.Contains(part, "=") || strings.Trim(part, ", \t") == "" {
			continue
		}
		split := strings.Split(part, ",")
		v := tecplotVariable{name: strings.ToLower(strings.TrimSpace(split[0]))}
		if len(split) > 1 {
			if unit := strings.TrimSpace(split[1]); !strings.Contains(unit, "null") {
				v.unit = unit
			}
		}
		switch v.name {
		case grid.FieldX:
			v.axis, v.pos = models.X, true
		case grid.FieldY:
			v.axis, v.pos = models.Y, true
		case grid.FieldZ:
			v.axis, v.pos = models.Z, true
		}
		vars = append(vars, v)
	}
	return vars
}

type tecplotZone struct {
	title    string
	nodes    int
	elements int
	time     float64
	hasTime  bool
	shared   map[int]bool

	// columns lists the variable indices present in the zone, in order
	columns []int
	values  [][]float64
	column  int
	started bool
}

// apply reads the key=value attributes of a zone header line
func (z *tecplotZone) apply(line string) error {
	for _, m := range zoneAttr.FindAllStringSubmatch(line, -1) {
		key, value := strings.ToUpper(m[1]), strings.Trim(m[2], `"`)
		var err error
		switch key {
		case "T":
			z.title = value
		case "NODES", "N":
			z.nodes, err = strconv.Atoi(value)
		case "ELEMENTS", "E":
			z.elements, err = strconv.Atoi(value)
		case "SOLUTIONTIME":
			z.time, err = strconv.ParseFloat(value, 64)
			z.hasTime = err == nil
		case "VARSHARELIST":
			z.shared = parseColumnSet(value)
		}
		if err != nil {
			return fmt.Errorf("invalid %s %q: %w", key, value, err)
		}
	}
	return nil
}

// parseColumnSet reads the 1-based column lists of "([1-3, 5]=1)"
func parseColumnSet(s string) map[int]bool {
	set := make(map[int]bool)
	for _, m := range bracketSet.FindAllStringSubmatch(s, -1) {
		for _, part := range strings.Split(m[1], ",") {
			lo, hi, found := strings.Cut(strings.TrimSpace(part), "-")
			a, err := strconv.Atoi(strings.TrimSpace(lo))
			if err != nil {
				continue
			}
			b := a
			if found {
				if b, err = strconv.Atoi(strings.TrimSpace(hi)); err != nil {
					continue
				}
			}
			for c := a; c <= b; c++ {
				set[c] = true
			}
		}
	}
	return set
}

// titleTime returns the first number in a zone title such as "10 Years"
func titleTime(title string) (float64, bool) {
	m := number.FindString(title)
	if m == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(m, 64)
	return v, err == nil
}

func (z *tecplotZone) count(v tecplotVariable) int {
	if v.pos || z.elements == 0 {
		return z.nodes
	}
	return z.elements
}

// layout fixes the column order once the first value arrives
func (z *tecplotZone) layout(vars []tecplotVariable) {
	z.started = true
	for i := range vars {
		if !z.shared[i+1] {
			z.columns = append(z.columns, i)
		}
	}
	z.values = make([][]float64, len(vars))
}

// push stores one value and reports false once every column is full
func (z *tecplotZone) push(vars []tecplotVariable, v float64) bool {
	for z.column < len(z.columns) {
		col := z.columns[z.column]
		if len(z.values[col]) < z.count(vars[col]) {
			z.values[col] = append(z.values[col], v)
			return true
		}
		z.column++
	}
	return false
}

// TecplotParser reads block-packed Tecplot files. Each zone is one time
// step; positions are read once and later zones may share them through
// VARSHARELIST.
type TecplotParser struct {
	log logrus.FieldLogger
}

// NewTecplotParser creates a Tecplot parser logging to log, or the standard
// logger when nil
func NewTecplotParser(log logrus.FieldLogger) *TecplotParser {
	return &TecplotParser{log: loggerOrDefault(log)}
}

type tecplotState struct {
	ds      *Dataset
	vars    []tecplotVariable
	coords  [3]map[float64]struct{}
	located bool
	zone    *tecplotZone
	anomaly *recorder
}

// ParseFiles merges the zones of every file, in order, into one dataset
func (p *TecplotParser) ParseFiles(paths ...string) (*Dataset, error) {
	if len(paths) == 0 {
		return nil, ErrNoFiles
	}

	st := &tecplotState{
		ds:      newDataset(p.log),
		anomaly: &recorder{log: p.log},
	}
	for axis := range st.coords {
		st.coords[axis] = make(map[float64]struct{})
	}

	for _, path := range paths {
		file, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("error opening tecplot file: %w", err)
		}
		err = st.parse(file, path)
		file.Close()
		if err != nil {
			return nil, err
		}
	}

	if err := st.finish(); err != nil {
		return nil, err
	}
	p.log.WithFields(logrus.Fields{
		"files":     len(paths),
		"size":      st.ds.Size,
		"fields":    len(st.ds.Data),
		"times":     len(st.ds.Times),
		"anomalies": len(st.ds.Anomalies),
	}).Info("Parsed tecplot files")
	return st.ds, nil
}

func (st *tecplotState) parse(r io.Reader, source string) error {
	lineNo := 0
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		upper := strings.ToUpper(line)

		switch {
		case line == "":

		case strings.HasPrefix(upper, "VARIABLES"):
			st.closeZone(source, lineNo)
			st.vars = parseVariables(line)
			for _, v := range st.vars {
				if v.unit != "" {
					st.ds.Units[v.name] = v.unit
				}
			}

		case strings.HasPrefix(upper, "ZONE"):
			st.closeZone(source, lineNo)
			if st.vars == nil {
				return fmt.Errorf("%s:%d: zone before VARIABLES: %w", source, lineNo, ErrNoHeader)
			}
			st.zone = &tecplotZone{}
			if err := st.zone.apply(line[len("ZONE"):]); err != nil {
				st.anomaly.add(models.ParseRecoverable, source, lineNo, "%v", err)
			}

		case strings.Contains(line, "="):
			// zone headers may continue over several lines
			if st.zone != nil && !st.zone.started {
				if err := st.zone.apply(line); err != nil {
					st.anomaly.add(models.ParseRecoverable, source, lineNo, "%v", err)
				}
			}

		default:
			st.dataLine(line, source, lineNo)
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("error reading tecplot file: %w", err)
	}
	st.closeZone(source, lineNo)
	return nil
}

func (st *tecplotState) dataLine(line, source string, lineNo int) {
	if st.zone == nil {
		st.anomaly.add(models.ParseRecoverable, source, lineNo, "data outside a zone")
		return
	}
	if !st.zone.started {
		st.zone.layout(st.vars)
	}
	for _, tok := range strings.Fields(line) {
		v, err := parseFinite(tok)
		if err != nil {
			st.anomaly.add(models.ParseRecoverable, source, lineNo, "skipped token %q", tok)
			continue
		}
		// values past the last column are connectivity
		if !st.zone.push(st.vars, v) {
			return
		}
	}
}

func (st *tecplotState) closeZone(source string, lineNo int) {
	z := st.zone
	if z == nil {
		return
	}
	st.zone = nil
	if !z.started {
		st.anomaly.add(models.ParseRecoverable, source, lineNo, "zone %q has no data", z.title)
		return
	}

	if !z.hasTime {
		z.time, z.hasTime = titleTime(z.title)
		if !z.hasTime {
			st.anomaly.add(models.ParseRecoverable, source, lineNo, "zone %q has no time", z.title)
		}
	}
	step := len(st.ds.Times)
	st.ds.Times = append(st.ds.Times, z.time)

	for _, col := range z.columns {
		v := st.vars[col]
		values := z.values[col]
		if want := z.count(v); len(values) < want {
			st.anomaly.add(models.ParseRecoverable, source, lineNo,
				"zone %q column %s has %d of %d values", z.title, v.name, len(values), want)
		}

		if v.pos {
			if !st.located {
				for _, c := range values {
					st.coords[v.axis][c] = struct{}{}
				}
			}
			continue
		}

		steps := st.ds.Data[v.name]
		for len(steps) < step {
			// fields missing from earlier zones stay empty
			steps = append(steps, nil)
		}
		st.ds.Data[v.name] = append(steps, values)
	}
	for _, axis := range models.Axes {
		if len(st.coords[axis]) > 0 {
			st.located = true
		}
	}
}

func (st *tecplotState) finish() error {
	ds := st.ds
	ds.Anomalies = st.anomaly.list

	var size [3]int
	for _, axis := range models.Axes {
		unique := uniqueSorted(st.coords[axis])
		if len(unique) == 0 {
			return fmt.Errorf("no %s coordinates: %w", axis, ErrNoGrid)
		}
		ds.Edges[axis] = unique
		ds.Centers[axis] = midpoints(unique)
		size[axis] = len(ds.Centers[axis])
	}
	ds.Size = models.Index3{I: size[0], J: size[1], K: size[2]}

	ds.computeStatistics()
	return nil
}

// TecplotTimes returns the time of every zone in the file at path
func TecplotTimes(path string) ([]float64, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("error opening tecplot file: %w", err)
	}
	defer file.Close()

	var times []float64
	var zone *tecplotZone
	flush := func() {
		if zone == nil {
			return
		}
		if !zone.hasTime {
			zone.time, zone.hasTime = titleTime(zone.title)
		}
		if zone.hasTime {
			times = append(times, zone.time)
		}
		zone = nil
	}

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		switch {
		case strings.HasPrefix(strings.ToUpper(line), "ZONE"):
			flush()
			zone = &tecplotZone{}
			zone.apply(line[len("ZONE"):])
		case zone != nil && strings.Contains(line, "="):
			zone.apply(line)
		case zone != nil && line != "":
			flush()
		}
	}
	flush()
	return times, scanner.Err()
}

// TecplotVariables returns the data field names declared by the file at
// path, positional columns excluded
func TecplotVariables(path string) ([]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("error opening tecplot file: %w", err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if !strings.HasPrefix(strings.ToUpper(line), "VARIABLES") {
			continue
		}
		var names []string
		for _, v := range parseVariables(line) {
			if !v.pos {
				names = append(names, v.name)
			}
		}
		return names, nil
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return nil, fmt.Errorf("%s: %w", path, ErrNoHeader)
}
