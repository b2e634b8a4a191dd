package main

import (
	"fmt"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"scalargrid/internal/models"
	"scalargrid/pkg/parser"
)

var (
	infoFormat string
	infoTime   int
)

var infoCmd = &cobra.Command{
	Use:   "info FILE...",
	Short: "Describe the grid, fields and time steps of the input",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		format, err := parser.ParseFormat(infoFormat)
		if err != nil {
			return err
		}
		var bytes uint64
		for _, path := range args {
			st, err := os.Stat(path)
			if err != nil {
				return err
			}
			bytes += uint64(st.Size())
		}

		src, err := parser.Load(format, log, args...)
		if err != nil {
			return err
		}
		g, err := src.Grid(infoTime)
		if err != nil {
			return err
		}

		size := g.Size()
		fmt.Printf("Input:      %d file(s), %s\n", len(args), humanize.Bytes(bytes))
		fmt.Printf("Format:     %s\n", src.Format)
		fmt.Printf("Size:       %d x %d x %d (%s nodes)\n", size.I, size.J, size.K, humanize.Comma(int64(g.Gridder().Len())))
		if normal, ok := g.NormalAxis(); ok {
			fmt.Printf("Normal:     %s (2D grid)\n", normal)
		}
		if origin, ok := g.Origin(); ok {
			fmt.Printf("Origin:     %v\n", origin)
		}
		lo, hi, err := g.Extents()
		if err != nil {
			return err
		}
		for _, axis := range models.Axes {
			fmt.Printf("Extent %s:   [%g, %g]\n", axis, lo.Get(axis), hi.Get(axis))
		}

		times := src.Times()
		fmt.Printf("Time steps: %s\n", humanize.Comma(int64(len(times))))
		if len(times) > 0 {
			fmt.Printf("Times:      %g .. %g\n", times[0], times[len(times)-1])
		}

		fmt.Printf("Fields:\n")
		for _, name := range g.FieldNames() {
			f, _ := g.Lookup(name)
			ext := f.Extrema()
			unit := f.Unit()
			if unit == "" {
				unit = "-"
			}
			fmt.Printf("  %-32s %-8s [%g, %g]\n", name, unit, ext.Min, ext.Max)
		}
		if n := len(src.Anomalies); n > 0 {
			fmt.Printf("Anomalies:  %s\n", humanize.Comma(int64(n)))
		}
		return nil
	},
}

func init() {
	infoCmd.Flags().StringVar(&infoFormat, "format", "auto", "input format: auto, plot, tecplot or ntab")
	infoCmd.Flags().IntVarP(&infoTime, "time", "t", 0, "time step index to describe")
}
