package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"scalargrid/pkg/parser"
)

var timesCmd = &cobra.Command{
	Use:   "times FILE...",
	Short: "List the time steps found in the input files without loading them",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		for _, path := range args {
			times, err := fileTimes(path)
			if err != nil {
				return err
			}
			for i, t := range times {
				fmt.Printf("%s\t%d\t%g\n", path, i, t)
			}
		}
		return nil
	},
}

// fileTimes returns the time steps of one input file
func fileTimes(path string) ([]float64, error) {
	format, err := parser.DetectFormat(path)
	if err != nil {
		return nil, err
	}
	switch format {
	case parser.FormatTecplot:
		return parser.TecplotTimes(path)
	case parser.FormatNtab:
		return parser.NtabTimes(path)
	}
	t, ok, err := parser.PlotTime(path)
	if err != nil || !ok {
		return nil, err
	}
	return []float64{t}, nil
}
