package parser

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"github.com/sirupsen/logrus"

	"scalargrid/internal/models"
)

// structural columns of an NTAB header, everything after them is a time
// column
var ntabColumns = map[string]bool{
	"index": true, "i": true, "j": true, "k": true,
	"element_ref": true, "nuft_ind": true,
	"x": true, "y": true, "z": true,
	"dx": true, "dy": true, "dz": true,
	"volume": true,
}

var trailingNumber = regexp.MustCompile(`(\d+(?:\.\d+)?)\D*$`)

// ntabHeader maps column names to their positions
type ntabHeader struct {
	columns map[string]int
	data    int
	times   []float64
}

// parseNtabHeader reads a header such as
//
//	index i j k element_ref nuft_ind x y z dx dy dz volume p.0y p.10y
func parseNtabHeader(line string) (*ntabHeader, []string, error) {
	tokens := strings.Fields(line)
	if len(tokens) == 0 || !strings.EqualFold(tokens[0], "index") {
		return nil, nil, ErrNoHeader
	}

	h := &ntabHeader{columns: make(map[string]int), data: len(tokens)}
	for i, tok := range tokens {
		name := strings.ToLower(tok)
		if !ntabColumns[name] {
			h.data = i
			break
		}
		h.columns[name] = i
	}
	for _, key := range []string{"index", "i", "j", "k", "x", "y", "z"} {
		if _, ok := h.columns[key]; !ok {
			return nil, nil, fmt.Errorf("missing %s column: %w", key, ErrNoHeader)
		}
	}

	var bad []string
	for _, tok := range tokens[h.data:] {
		t, ok := columnTime(tok)
		if !ok {
			bad = append(bad, tok)
		}
		h.times = append(h.times, t)
	}
	return h, bad, nil
}

// columnTime returns the trailing number of a time column token
func columnTime(tok string) (float64, bool) {
	m := trailingNumber.FindStringSubmatch(tok)
	if m == nil {
		return 0, false
	}
	v, err := strconv.ParseFloat(m[1], 64)
	return v, err == nil
}

// NtabFieldName derives the field name of an NTAB file from its name: the
// second dot-delimited token when present, otherwise the leading non-digit
// prefix.
func NtabFieldName(path string) string {
	base := strings.TrimSuffix(filepath.Base(path), ".ntab")
	if parts := strings.Split(base, "."); len(parts) > 1 && parts[1] != "" {
		return parts[1]
	}
	if i := strings.IndexFunc(base, unicode.IsDigit); i > 0 {
		return strings.TrimRight(base[:i], "_-")
	}
	return base
}

// NtabParser reads tabular NTAB files. The first file defines the grid
// structure; every file contributes one field named after the file.
type NtabParser struct {
	log logrus.FieldLogger
}

// NewNtabParser creates an NTAB parser logging to log, or the standard
// logger when nil
func NewNtabParser(log logrus.FieldLogger) *NtabParser {
	return &NtabParser{log: loggerOrDefault(log)}
}

type ntabState struct {
	ds      *Dataset
	header  *ntabHeader
	coords  [3]map[float64]struct{}
	anomaly *recorder
}

// ParseFiles parses every file into one dataset
func (p *NtabParser) ParseFiles(paths ...string) (*Dataset, error) {
	if len(paths) == 0 {
		return nil, ErrNoFiles
	}

	st := &ntabState{
		ds:      newDataset(p.log),
		anomaly: &recorder{log: p.log},
	}
	for axis := range st.coords {
		st.coords[axis] = make(map[float64]struct{})
	}

	for n, path := range paths {
		file, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("error opening ntab file: %w", err)
		}
		if n == 0 {
			err = st.structure(file, path)
		} else {
			err = st.data(file, path)
		}
		file.Close()
		if err != nil {
			return nil, err
		}

		// the first file is read twice: once for structure, once for data
		if n == 0 {
			if file, err = os.Open(path); err != nil {
				return nil, fmt.Errorf("error opening ntab file: %w", err)
			}
			err = st.data(file, path)
			file.Close()
			if err != nil {
				return nil, err
			}
		}
	}

	st.ds.Anomalies = st.anomaly.list
	st.ds.computeStatistics()
	p.log.WithFields(logrus.Fields{
		"files":     len(paths),
		"size":      st.ds.Size,
		"fields":    len(st.ds.Data),
		"times":     len(st.ds.Times),
		"anomalies": len(st.ds.Anomalies),
	}).Info("Parsed ntab files")
	return st.ds, nil
}

func newScanner(r io.Reader) *bufio.Scanner {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	return scanner
}

// structure reads the header, dimensions and coordinates of the first file
func (st *ntabState) structure(r io.Reader, source string) error {
	var max [3]int
	lineNo := 0
	scanner := newScanner(r)
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if st.header == nil {
			h, bad, err := parseNtabHeader(line)
			if err != nil {
				return fmt.Errorf("%s:%d: %w", source, lineNo, err)
			}
			st.anomaly.skipped(source, lineNo, bad)
			st.header = h
			continue
		}

		tokens := strings.Fields(line)
		if len(tokens) < st.header.data {
			st.anomaly.add(models.ParseRecoverable, source, lineNo, "short row of %d columns", len(tokens))
			continue
		}
		for axis, key := range []string{"i", "j", "k"} {
			n, err := strconv.Atoi(tokens[st.header.columns[key]])
			if err != nil {
				st.anomaly.add(models.ParseRecoverable, source, lineNo, "invalid %s %q", key, tokens[st.header.columns[key]])
				continue
			}
			if n > max[axis] {
				max[axis] = n
			}
		}
		for axis, key := range []string{"x", "y", "z"} {
			v, err := parseFinite(tokens[st.header.columns[key]])
			if err != nil {
				st.anomaly.add(models.ParseRecoverable, source, lineNo, "invalid %s %q", key, tokens[st.header.columns[key]])
				continue
			}
			st.coords[axis][v] = struct{}{}
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("error reading ntab file: %w", err)
	}
	if st.header == nil {
		return fmt.Errorf("%s: %w", source, ErrNoHeader)
	}
	if max[0] < 1 || max[1] < 1 || max[2] < 1 {
		return fmt.Errorf("%s: dimensions <%d, %d, %d>: %w", source, max[0], max[1], max[2], ErrNoGrid)
	}

	ds := st.ds
	ds.Size = models.Index3{I: max[0], J: max[1], K: max[2]}
	ds.Times = st.header.times
	for _, axis := range models.Axes {
		ds.Centers[axis] = uniqueSorted(st.coords[axis])
		ds.Edges[axis] = cellEdges(ds.Centers[axis])
		if n := len(ds.Centers[axis]); n != ds.Size.Get(axis) {
			st.anomaly.add(models.ParseRecoverable, source, 0,
				"%d unique %s coordinates for %d nodes", n, axis, ds.Size.Get(axis))
		}
	}
	return nil
}

// data reads the time columns of one file into a field named after it
func (st *ntabState) data(r io.Reader, source string) error {
	name := NtabFieldName(source)
	total := st.ds.Size.I * st.ds.Size.J * st.ds.Size.K

	values := make([][]float64, len(st.ds.Times))
	for t := range values {
		values[t] = make([]float64, total)
	}

	var header *ntabHeader
	lineNo := 0
	scanner := newScanner(r)
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		tokens := strings.Fields(line)
		if header == nil {
			if !strings.EqualFold(tokens[0], "index") {
				return fmt.Errorf("%s:%d: %w", source, lineNo, ErrNoHeader)
			}
			// later files share the column layout of the first
			header = st.header
			if n := len(tokens) - header.data; n != len(st.ds.Times) {
				st.anomaly.add(models.ParseRecoverable, source, lineNo,
					"%d time columns, expected %d", n, len(st.ds.Times))
			}
			continue
		}

		index, err := strconv.Atoi(tokens[header.columns["index"]])
		if err != nil || index < 1 || index > total {
			st.anomaly.add(models.IndexOutOfBounds, source, lineNo, "invalid row index %q", tokens[header.columns["index"]])
			continue
		}
		for t := range values {
			col := header.data + t
			if col >= len(tokens) {
				break
			}
			v, err := parseFinite(tokens[col])
			if err != nil {
				st.anomaly.add(models.ParseRecoverable, source, lineNo, "skipped token %q", tokens[col])
				continue
			}
			values[t][index-1] = v
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("error reading ntab file: %w", err)
	}

	st.ds.Data[name] = values
	return nil
}

// NtabTimes returns the times named by the header of the file at path
func NtabTimes(path string) ([]float64, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("error opening ntab file: %w", err)
	}
	defer file.Close()

	scanner := newScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		h, _, err := parseNtabHeader(line)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		return h.times, nil
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return nil, fmt.Errorf("%s: %w", path, ErrNoHeader)
}
