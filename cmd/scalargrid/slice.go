package main

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"scalargrid/pkg/pipeline"
	"scalargrid/pkg/visualization"
)

var (
	sliceOpts     sliceFlags
	sliceSequence bool
)

var sliceCmd = &cobra.Command{
	Use:   "slice FILE...",
	Short: "Cut planar slices through the grid and save them as images",
	Long: `slice loads the input files, assembles the grid of one time step and saves a
grayscale image per field and plane. With thresholds a band image is saved too.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		sliceOpts.apply(cmd, Config)
		params, err := buildParams(Config, args)
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("at") {
			at := sliceOpts.intersection
			params.Intersection = &at
		}
		if params.Annotations, err = sliceOpts.annotations(); err != nil {
			return err
		}
		params.Log = log

		fmt.Println("Slicing scalar grid...")
		startTime := time.Now()
		p := pipeline.NewPipeline(params)
		if err := p.Process(); err != nil {
			return fmt.Errorf("slicing failed: %w", err)
		}
		fmt.Printf("\nCompleted in %.2f seconds\n", time.Since(startTime).Seconds())
		fmt.Printf("Output saved to: %s\n\n", params.OutputDir)

		if sliceSequence {
			for _, s := range p.Slices() {
				req := s.Request()
				dir := filepath.Join(params.OutputDir, "sequence",
					fmt.Sprintf("%s_%s%s", pipeline.FileName(req.Field), req.Horizontal, req.Vertical))
				files, err := visualization.SaveSliceSequence(p.Grid(), req, dir, params.ImageFormat)
				if err != nil {
					return fmt.Errorf("failed to save slice sequence: %w", err)
				}
				log.WithFields(logrus.Fields{"dir": dir, "images": len(files)}).Info("Saved slice sequence")
			}
		}

		printMetrics(p.GetMetrics())
		return nil
	},
}

func printMetrics(metrics []pipeline.Metrics) {
	fmt.Printf("Slice Metrics:\n")
	fmt.Printf("==============\n")
	for _, m := range metrics {
		fmt.Printf("%s %s @ %g (%dx%d)\n", m.Field, m.Plane, m.Intersection, m.Width, m.Height)
		fmt.Printf("  Min: %.6g  Mean: %.6g  Max: %.6g  Std-Dev: %.6g\n", m.Min, m.Mean, m.Max, m.StdDev)
		if m.Bands != nil {
			fmt.Printf("  Bands: %v  Entropy: %.3f\n", m.Bands, m.Entropy)
		}
		if m.Anomalies > 0 {
			fmt.Printf("  Anomalies: %d\n", m.Anomalies)
		}
	}
}

func init() {
	sliceOpts.register(sliceCmd)
	sliceCmd.Flags().BoolVar(&sliceSequence, "sequence", false, "also save one image per grid step along each plane normal")
}
