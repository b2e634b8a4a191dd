package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"scalargrid/pkg/parser"
	"scalargrid/pkg/pipeline"
)

var (
	dumpFormat string
	dumpFields []string
	dumpOut    string
	dumpInput  string
	dumpTime   int
)

var dumpCmd = &cobra.Command{
	Use:   "dump FILE...",
	Short: "Write field values in linear node order as binary or text",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		format, err := parser.ParseFormat(dumpInput)
		if err != nil {
			return err
		}
		src, err := parser.Load(format, log, args...)
		if err != nil {
			return err
		}
		g, err := src.Grid(dumpTime)
		if err != nil {
			return err
		}

		fields := dumpFields
		if len(fields) == 0 {
			fields = g.FieldNames()
		}
		for _, f := range fields {
			var path string
			switch dumpFormat {
			case "binary":
				path = filepath.Join(dumpOut, pipeline.FileName(f)+".bin")
				err = g.DumpBinaryFile(path, f)
			case "ascii":
				path = filepath.Join(dumpOut, pipeline.FileName(f)+".txt")
				err = g.DumpASCIIFile(path, f)
			default:
				return fmt.Errorf("invalid dump format: %s (must be binary or ascii)", dumpFormat)
			}
			if err != nil {
				return fmt.Errorf("failed to dump %s: %w", f, err)
			}
			if st, err := os.Stat(path); err == nil {
				fmt.Printf("%s: %s\n", path, humanize.Bytes(uint64(st.Size())))
			}
		}
		return nil
	},
}

func init() {
	dumpCmd.Flags().StringVar(&dumpFormat, "as", "binary", "dump format: binary or ascii")
	dumpCmd.Flags().StringSliceVar(&dumpFields, "field", nil, "fields to dump (default all)")
	dumpCmd.Flags().StringVarP(&dumpOut, "out", "o", ".", "output directory")
	dumpCmd.Flags().StringVar(&dumpInput, "format", "auto", "input format: auto, plot, tecplot or ntab")
	dumpCmd.Flags().IntVarP(&dumpTime, "time", "t", 0, "time step index to dump")
}
