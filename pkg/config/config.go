// Package config provides configuration loading and management for
// cellstitch3d. It handles loading configuration from YAML files and
// provides default values.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"gopkg.in/yaml.v3"
)

// Config represents the application configuration loaded from YAML.
type Config struct {
	// Stitching parameters
	Stitching struct {
		// Method selects between the simple single-axis IoU stitch
		// ("iou") and the cross-view transport stitch ("cellstitch").
		Method string `yaml:"method"`

		// PStitchingVotes is the minimum orthogonal-agreement
		// fraction required to merge a label, in (0,1].
		PStitchingVotes float64 `yaml:"pStitchingVotes"`

		// IoUThreshold is the minimum IoU for the "iou" method to
		// inherit a label from the previous slice.
		IoUThreshold float64 `yaml:"iouThreshold"`
	} `yaml:"stitching"`

	// Processing parameters
	Processing struct {
		// NumCores specifies how many CPU cores to use for the
		// parallelizable postprocessing steps.
		NumCores int `yaml:"numCores"`

		// PixelSize is the XY pixel size in microns per pixel. Zero
		// means unknown; the anisotropy then defaults to 1.
		PixelSize float64 `yaml:"pixelSize"`

		// ZStep is the Z pixel size in microns per step.
		ZStep float64 `yaml:"zStep"`

		// SegMode selects the oracle output channels: "nuclei",
		// "cells" or "nuclei_cells".
		SegMode string `yaml:"segMode"`

		// BleachCorrect enables histogram-based signal degradation
		// correction before segmentation.
		BleachCorrect bool `yaml:"bleachCorrect"`

		// BleachMatch selects the histogram matching reference:
		// "first" or "neighbor".
		BleachMatch string `yaml:"bleachMatch"`
	} `yaml:"processing"`

	// Filtering parameters
	Filtering struct {
		// Enabled toggles the fill-holes-and-prune step.
		Enabled bool `yaml:"enabled"`

		// MinSize is the minimum voxel count per object; smaller
		// objects are pruned. -1 disables pruning.
		MinSize int `yaml:"minSize"`
	} `yaml:"filtering"`

	// Output parameters
	Output struct {
		// SaveIntermediaryResults determines whether to save the raw
		// per-axis masks next to the final stitched mask.
		SaveIntermediaryResults bool `yaml:"saveIntermediaryResults"`

		// Verbose controls the level of logging output.
		Verbose bool `yaml:"verbose"`
	} `yaml:"output"`
}

// DefaultConfig returns a configuration with default values.
func DefaultConfig() *Config {
	cfg := &Config{}

	cfg.Stitching.Method = "cellstitch"
	cfg.Stitching.PStitchingVotes = 0.75
	cfg.Stitching.IoUThreshold = 0.25

	cfg.Processing.NumCores = runtime.NumCPU()
	cfg.Processing.PixelSize = 0
	cfg.Processing.ZStep = 0
	cfg.Processing.SegMode = "nuclei_cells"
	cfg.Processing.BleachCorrect = true
	cfg.Processing.BleachMatch = "first"

	cfg.Filtering.Enabled = true
	cfg.Filtering.MinSize = 15

	cfg.Output.SaveIntermediaryResults = false
	cfg.Output.Verbose = true

	return cfg
}

// Validate checks the configuration for values the pipeline cannot run
// with.
func (c *Config) Validate() error {
	if c.Stitching.Method != "iou" && c.Stitching.Method != "cellstitch" {
		return fmt.Errorf("config: unsupported stitching method %q (want \"iou\" or \"cellstitch\")", c.Stitching.Method)
	}
	if v := c.Stitching.PStitchingVotes; v <= 0 || v > 1 {
		return fmt.Errorf("config: pStitchingVotes %g outside (0,1]", v)
	}
	if c.Processing.BleachMatch != "first" && c.Processing.BleachMatch != "neighbor" {
		return fmt.Errorf("config: unsupported bleach match mode %q", c.Processing.BleachMatch)
	}
	return nil
}

// LoadConfig loads configuration from a YAML file.
// If the file doesn't exist, it returns the default configuration.
func LoadConfig(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return cfg, nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// SaveConfig saves the configuration to a YAML file.
func SaveConfig(cfg *Config, configPath string) error {
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("error creating config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("error marshaling config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("error writing config file: %w", err)
	}

	return nil
}

// CreateDefaultConfigFile creates a default configuration file at the
// specified path.
func CreateDefaultConfigFile(configPath string) error {
	return SaveConfig(DefaultConfig(), configPath)
}
