package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"

	"scalargrid/internal/models"
	"scalargrid/pkg/config"
	"scalargrid/pkg/parser"
)

func TestBuildParams(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Input.Format = "tecplot"
	cfg.Slicing.Annotations = "intersecting"
	cfg.Output.DumpFormat = "ASCII"

	params, err := buildParams(cfg, []string{"a.dat"})
	if err != nil {
		t.Fatalf("buildParams failed: %v", err)
	}
	if params.Format != parser.FormatTecplot {
		t.Errorf("Expected tecplot format, got %v", params.Format)
	}
	if params.AnnotationMode != models.AnnotateIntersecting {
		t.Errorf("Expected intersecting annotations, got %v", params.AnnotationMode)
	}
	if params.DumpFormat != "ascii" {
		t.Errorf("Expected ascii dump, got %s", params.DumpFormat)
	}
	if params.MaxSidePixels != 512 || len(params.Planes) != 3 {
		t.Errorf("Expected default slicing, got %d %v", params.MaxSidePixels, params.Planes)
	}

	cfg.Input.Format = "hdf5"
	if _, err := buildParams(cfg, nil); err == nil {
		t.Error("Expected error for unknown format")
	}
}

func TestSliceFlagsApply(t *testing.T) {
	var f sliceFlags
	cmd := &cobra.Command{Use: "slice"}
	f.register(cmd)
	if err := cmd.ParseFlags([]string{"--plane", "xz", "--max-side", "64", "--linear", "--thresholds", "1,2.5"}); err != nil {
		t.Fatalf("ParseFlags failed: %v", err)
	}

	cfg := config.DefaultConfig()
	f.apply(cmd, cfg)

	if len(cfg.Slicing.Planes) != 1 || cfg.Slicing.Planes[0] != "xz" {
		t.Errorf("Expected planes [xz], got %v", cfg.Slicing.Planes)
	}
	if cfg.Slicing.MaxSidePixels != 64 {
		t.Errorf("Expected 64 pixels, got %d", cfg.Slicing.MaxSidePixels)
	}
	if cfg.Slicing.LogScale {
		t.Error("Expected log scale disabled")
	}
	if !cfg.Slicing.UseGlobalExtrema {
		t.Error("Expected global extrema to stay enabled")
	}
	if len(cfg.Slicing.Thresholds) != 2 || cfg.Slicing.Thresholds[1] != 2.5 {
		t.Errorf("Expected thresholds [1 2.5], got %v", cfg.Slicing.Thresholds)
	}
	if cfg.Output.Dir != "slices" {
		t.Errorf("Expected unchanged output dir, got %s", cfg.Output.Dir)
	}
}

func TestParseAnnotation(t *testing.T) {
	a, err := parseAnnotation("well:1.5,2,3", false)
	if err != nil {
		t.Fatalf("parseAnnotation failed: %v", err)
	}
	if a.Label != "well" || a.Position == nil || *a.Position != (models.Vec3{X: 1.5, Y: 2, Z: 3}) {
		t.Errorf("Unexpected position annotation %+v", a)
	}

	n, err := parseAnnotation("cell:1,2,3", true)
	if err != nil {
		t.Fatalf("parseAnnotation failed: %v", err)
	}
	if n.Node == nil || *n.Node != (models.Index3{I: 1, J: 2, K: 3}) {
		t.Errorf("Unexpected node annotation %+v", n)
	}

	for _, bad := range []string{"nolabel", "a:1,2", "a:1,x,3"} {
		if _, err := parseAnnotation(bad, false); err == nil {
			t.Errorf("Expected error for %q", bad)
		}
	}
	if _, err := parseAnnotation("a:1.5,2,3", true); err == nil {
		t.Error("Expected error for fractional node index")
	}
}

func TestFileTimes(t *testing.T) {
	path := filepath.Join(t.TempDir(), "plot.100")
	content := "Time =  3.1557600E+09,s  5.2178571E+03,wk  1.0000000E+02,yr\n" +
		"Number of X or R-Direction Nodes = 1\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write fixture: %v", err)
	}

	times, err := fileTimes(path)
	if err != nil {
		t.Fatalf("fileTimes failed: %v", err)
	}
	if len(times) != 1 || times[0] != 100 {
		t.Errorf("Expected [100], got %v", times)
	}
}

func TestSetupLogging(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Output.Verbose = true
	cfg.Output.LogFile = filepath.Join(t.TempDir(), "scalargrid.log")

	setupLogging(log, cfg)
	defer log.SetOutput(os.Stderr)

	log.Debug("hello")
	if _, err := os.Stat(cfg.Output.LogFile); err != nil {
		t.Errorf("Expected log file to be created: %v", err)
	}
}
