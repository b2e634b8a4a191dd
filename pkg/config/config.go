// Package config provides configuration loading and management for scalargrid.
// It handles loading configuration from YAML or TOML files and provides default values.
package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"scalargrid/internal/models"
)

// Config represents the application configuration
type Config struct {
	// Processing parameters
	Processing struct {
		// NumWorkers is how many slices are computed concurrently
		NumWorkers int `yaml:"numWorkers" toml:"numWorkers"`
	} `yaml:"processing" toml:"processing"`

	// Slicing parameters
	Slicing struct {
		// MaxSidePixels is the pixel count of the longer side of each slice
		MaxSidePixels int `yaml:"maxSidePixels" toml:"maxSidePixels"`

		// Planes lists the display planes to cut, e.g. "xy", "xz", "yz"
		Planes []string `yaml:"planes" toml:"planes"`

		// UseGlobalExtrema normalizes against the whole field instead of the slice
		UseGlobalExtrema bool `yaml:"useGlobalExtrema" toml:"useGlobalExtrema"`

		// LogScale applies the log rescale after normalization
		LogScale bool `yaml:"logScale" toml:"logScale"`

		// Thresholds are the raw band edges used for banded output
		Thresholds []float64 `yaml:"thresholds" toml:"thresholds"`

		// Annotations selects which annotations are kept: all, intersecting or none
		Annotations string `yaml:"annotations" toml:"annotations"`
	} `yaml:"slicing" toml:"slicing"`

	// Input parameters
	Input struct {
		// Format is auto, plot, tecplot or ntab
		Format string `yaml:"format" toml:"format"`

		// TimeIndex selects the time step to slice
		TimeIndex int `yaml:"timeIndex" toml:"timeIndex"`

		// Fields lists the fields to slice; empty means all
		Fields []string `yaml:"fields" toml:"fields"`
	} `yaml:"input" toml:"input"`

	// Output parameters
	Output struct {
		// Dir is the directory for images and dumps
		Dir string `yaml:"dir" toml:"dir"`

		// ImageFormat is png or jpeg
		ImageFormat string `yaml:"imageFormat" toml:"imageFormat"`

		// DumpFormat is none, binary or ascii
		DumpFormat string `yaml:"dumpFormat" toml:"dumpFormat"`

		// DumpFields lists the fields to dump; empty means all
		DumpFields []string `yaml:"dumpFields" toml:"dumpFields"`

		// Verbose enables debug logging
		Verbose bool `yaml:"verbose" toml:"verbose"`

		// LogFile, when set, receives the log through a rotating writer
		LogFile string `yaml:"logFile" toml:"logFile"`

		// LogMaxSize is the size in megabytes at which the log file rotates
		LogMaxSize int `yaml:"logMaxSize" toml:"logMaxSize"`

		// LogMaxAge is the number of days rotated log files are kept
		LogMaxAge int `yaml:"logMaxAge" toml:"logMaxAge"`
	} `yaml:"output" toml:"output"`
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	cfg := &Config{}

	cfg.Processing.NumWorkers = runtime.NumCPU()

	cfg.Slicing.MaxSidePixels = 512
	cfg.Slicing.Planes = []string{"xy", "xz", "yz"}
	cfg.Slicing.UseGlobalExtrema = true
	cfg.Slicing.LogScale = true
	cfg.Slicing.Thresholds = []float64{}
	cfg.Slicing.Annotations = models.AnnotateAll.String()

	cfg.Input.Format = "auto"
	cfg.Input.TimeIndex = 0

	cfg.Output.Dir = "slices"
	cfg.Output.ImageFormat = "png"
	cfg.Output.DumpFormat = "none"
	cfg.Output.Verbose = false
	cfg.Output.LogMaxSize = 10
	cfg.Output.LogMaxAge = 28

	return cfg
}

func isTOML(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".toml")
}

// LoadConfig loads configuration from a YAML or TOML file, chosen by extension.
// If the file doesn't exist, it returns the default configuration
func LoadConfig(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return cfg, nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	if isTOML(configPath) {
		if _, err := toml.Decode(string(data), cfg); err != nil {
			return nil, fmt.Errorf("error parsing config file: %w", err)
		}
	} else if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that every option holds a usable value
func (c *Config) Validate() error {
	if c.Processing.NumWorkers < 1 {
		return fmt.Errorf("invalid numWorkers: %d", c.Processing.NumWorkers)
	}
	if c.Slicing.MaxSidePixels < 1 {
		return fmt.Errorf("invalid maxSidePixels: %d", c.Slicing.MaxSidePixels)
	}
	for _, p := range c.Slicing.Planes {
		if _, _, err := models.ParsePlane(p); err != nil {
			return err
		}
	}
	if _, err := models.ParseAnnotationMode(c.Slicing.Annotations); err != nil {
		return err
	}
	if c.Input.TimeIndex < 0 {
		return fmt.Errorf("invalid timeIndex: %d", c.Input.TimeIndex)
	}
	switch strings.ToLower(c.Output.ImageFormat) {
	case "png", "jpeg", "jpg":
	default:
		return fmt.Errorf("invalid imageFormat: %s (must be png or jpeg)", c.Output.ImageFormat)
	}
	switch strings.ToLower(c.Output.DumpFormat) {
	case "", "none", "binary", "ascii":
	default:
		return fmt.Errorf("invalid dumpFormat: %s (must be none, binary or ascii)", c.Output.DumpFormat)
	}
	return nil
}

// SaveConfig saves the configuration to a YAML or TOML file, chosen by extension
func SaveConfig(cfg *Config, configPath string) error {
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("error creating config directory: %w", err)
	}

	var data []byte
	if isTOML(configPath) {
		var buf bytes.Buffer
		if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
			return fmt.Errorf("error marshaling config: %w", err)
		}
		data = buf.Bytes()
	} else {
		var err error
		if data, err = yaml.Marshal(cfg); err != nil {
			return fmt.Errorf("error marshaling config: %w", err)
		}
	}

	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("error writing config file: %w", err)
	}

	return nil
}

// CreateDefaultConfigFile creates a default configuration file at the specified path
func CreateDefaultConfigFile(configPath string) error {
	cfg := DefaultConfig()
	return SaveConfig(cfg, configPath)
}
