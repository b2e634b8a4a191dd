package grid

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
)

// WriteBinary writes the raw values of f in linear-index order as
// native-endian float64.
func (f *Field) WriteBinary(w io.Writer) error {
	bw := bufio.NewWriter(w)
	if err := binary.Write(bw, binary.NativeEndian, f.values); err != nil {
		return fmt.Errorf("error writing field %s: %w", f.name, err)
	}
	return bw.Flush()
}

// WriteASCII writes the raw values of f in linear-index order, one per line
func (f *Field) WriteASCII(w io.Writer) error {
	bw := bufio.NewWriter(w)
	for _, v := range f.values {
		bw.WriteString(strconv.FormatFloat(v, 'g', -1, 64))
		if err := bw.WriteByte('\n'); err != nil {
			return fmt.Errorf("error writing field %s: %w", f.name, err)
		}
	}
	return bw.Flush()
}

// DumpBinary writes field key to w, see Field.WriteBinary
func (g *Grid) DumpBinary(w io.Writer, key string) error {
	f, ok := g.fields[key]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNoField, key)
	}
	return f.WriteBinary(w)
}

// DumpASCII writes field key to w, see Field.WriteASCII
func (g *Grid) DumpASCII(w io.Writer, key string) error {
	f, ok := g.fields[key]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNoField, key)
	}
	return f.WriteASCII(w)
}

// DumpBinaryFile writes field key to path, creating parent directories
func (g *Grid) DumpBinaryFile(path, key string) error {
	return dumpFile(path, func(w io.Writer) error { return g.DumpBinary(w, key) })
}

// DumpASCIIFile writes field key to path, creating parent directories
func (g *Grid) DumpASCIIFile(path, key string) error {
	return dumpFile(path, func(w io.Writer) error { return g.DumpASCII(w, key) })
}

func dumpFile(path string, write func(io.Writer) error) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("error creating directory: %w", err)
	}
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("error creating file: %w", err)
	}
	if err := write(file); err != nil {
		file.Close()
		return err
	}
	return file.Close()
}
