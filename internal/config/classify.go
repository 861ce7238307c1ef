package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/banshee-data/natbreaks/internal/geotiff"
)

// DefaultConfigPath is the path to the canonical classification defaults file.
const DefaultConfigPath = "config/classify.defaults.json"

// MaxClasses is the largest class count a byte raster can hold with 0
// reserved for no-data.
const MaxClasses = 255

// ClassifyConfig holds the parameters of a classification run. Every field
// is optional; the Get* methods supply defaults for omitted fields, so
// partial files are safe.
type ClassifyConfig struct {
	// Classification params
	NumClasses    *int `json:"num_classes,omitempty" yaml:"num_classes,omitempty"`
	MaxSampleSize *int `json:"max_sample_size,omitempty" yaml:"max_sample_size,omitempty"`

	// Filtering params
	ExcludeNonPositive *bool `json:"exclude_non_positive,omitempty" yaml:"exclude_non_positive,omitempty"`
	MaskNonPositive    *bool `json:"mask_non_positive,omitempty" yaml:"mask_non_positive,omitempty"`
	UpperInclusive     *bool `json:"upper_inclusive,omitempty" yaml:"upper_inclusive,omitempty"`

	// Output params
	Compression *string `json:"compression,omitempty" yaml:"compression,omitempty"` // lzw, deflate or none
	Workers     *int    `json:"workers,omitempty" yaml:"workers,omitempty"`         // 0 means GOMAXPROCS

	// Optional side outputs
	PlotDir   *string `json:"plot_dir,omitempty" yaml:"plot_dir,omitempty"`
	HistoryDB *string `json:"history_db,omitempty" yaml:"history_db,omitempty"`
}

// Helper functions to create pointers
func ptrBool(v bool) *bool       { return &v }
func ptrString(v string) *string { return &v }
func ptrInt(v int) *int          { return &v }

// EmptyClassifyConfig returns a ClassifyConfig with all fields set to nil.
func EmptyClassifyConfig() *ClassifyConfig {
	return &ClassifyConfig{}
}

// DefaultClassifyConfig returns a config with every field set to its default.
func DefaultClassifyConfig() *ClassifyConfig {
	empty := EmptyClassifyConfig()
	return &ClassifyConfig{
		NumClasses:         ptrInt(empty.GetNumClasses()),
		MaxSampleSize:      ptrInt(empty.GetMaxSampleSize()),
		ExcludeNonPositive: ptrBool(empty.GetExcludeNonPositive()),
		MaskNonPositive:    ptrBool(empty.GetMaskNonPositive()),
		UpperInclusive:     ptrBool(empty.GetUpperInclusive()),
		Compression:        ptrString(empty.GetCompression()),
		Workers:            ptrInt(0),
		PlotDir:            ptrString(""),
		HistoryDB:          ptrString(""),
	}
}

// LoadClassifyConfig loads a ClassifyConfig from a JSON or YAML file.
// The file must have a .json, .yaml or .yml extension and be at most 1MB.
func LoadClassifyConfig(path string) (*ClassifyConfig, error) {
	cleanPath := filepath.Clean(path)
	ext := strings.ToLower(filepath.Ext(cleanPath))
	if ext != ".json" && ext != ".yaml" && ext != ".yml" {
		return nil, fmt.Errorf("config file must have .json, .yaml or .yml extension, got %q", ext)
	}

	// Check file size for safety (max 1MB)
	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024 // 1MB
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptyClassifyConfig()
	if ext == ".json" {
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config JSON: %w", err)
		}
	} else {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config YAML: %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// MustLoadDefaultConfig loads the canonical defaults from DefaultConfigPath,
// searching the current directory and common parent directories.
// Panics if the file cannot be loaded, intended for test setup.
func MustLoadDefaultConfig() *ClassifyConfig {
	candidates := []string{
		DefaultConfigPath,
		"../../" + DefaultConfigPath,    // from internal/config/
		"../../../" + DefaultConfigPath, // deeper packages
	}
	for _, path := range candidates {
		if cfg, err := LoadClassifyConfig(path); err == nil {
			return cfg
		}
	}
	panic("cannot find " + DefaultConfigPath + " - run tests from repository root")
}

// Merge overlays every field set in other onto c.
func (c *ClassifyConfig) Merge(other *ClassifyConfig) {
	if other == nil {
		return
	}
	if other.NumClasses != nil {
		c.NumClasses = other.NumClasses
	}
	if other.MaxSampleSize != nil {
		c.MaxSampleSize = other.MaxSampleSize
	}
	if other.ExcludeNonPositive != nil {
		c.ExcludeNonPositive = other.ExcludeNonPositive
	}
	if other.MaskNonPositive != nil {
		c.MaskNonPositive = other.MaskNonPositive
	}
	if other.UpperInclusive != nil {
		c.UpperInclusive = other.UpperInclusive
	}
	if other.Compression != nil {
		c.Compression = other.Compression
	}
	if other.Workers != nil {
		c.Workers = other.Workers
	}
	if other.PlotDir != nil {
		c.PlotDir = other.PlotDir
	}
	if other.HistoryDB != nil {
		c.HistoryDB = other.HistoryDB
	}
}

// Validate checks that the configuration values are valid.
func (c *ClassifyConfig) Validate() error {
	if c.NumClasses != nil {
		if *c.NumClasses < 1 || *c.NumClasses > MaxClasses {
			return fmt.Errorf("num_classes must be between 1 and %d, got %d", MaxClasses, *c.NumClasses)
		}
	}

	// The sample holds the minimum, the maximum and at least one interior value.
	if c.MaxSampleSize != nil && *c.MaxSampleSize < 3 {
		return fmt.Errorf("max_sample_size must be at least 3, got %d", *c.MaxSampleSize)
	}

	if c.Compression != nil {
		if _, err := geotiff.ParseCompression(*c.Compression); err != nil {
			return err
		}
	}

	if c.Workers != nil && *c.Workers < 0 {
		return fmt.Errorf("workers must be non-negative, got %d", *c.Workers)
	}
	return nil
}

// GetNumClasses returns the num_classes value or the default.
func (c *ClassifyConfig) GetNumClasses() int {
	if c.NumClasses == nil {
		return 3
	}
	return *c.NumClasses
}

// GetMaxSampleSize returns the max_sample_size value or the default.
func (c *ClassifyConfig) GetMaxSampleSize() int {
	if c.MaxSampleSize == nil {
		return 3000
	}
	return *c.MaxSampleSize
}

// GetExcludeNonPositive returns the exclude_non_positive value or the default.
func (c *ClassifyConfig) GetExcludeNonPositive() bool {
	if c.ExcludeNonPositive == nil {
		return true // zeros are background in density rasters
	}
	return *c.ExcludeNonPositive
}

// GetMaskNonPositive returns the mask_non_positive value or the default.
func (c *ClassifyConfig) GetMaskNonPositive() bool {
	if c.MaskNonPositive == nil {
		return false
	}
	return *c.MaskNonPositive
}

// GetUpperInclusive returns the upper_inclusive value or the default.
func (c *ClassifyConfig) GetUpperInclusive() bool {
	if c.UpperInclusive == nil {
		return false
	}
	return *c.UpperInclusive
}

// GetCompression returns the parsed compression or the default.
func (c *ClassifyConfig) GetCompression() string {
	if c.Compression == nil {
		return string(geotiff.CompressionLZW)
	}
	comp, err := geotiff.ParseCompression(*c.Compression)
	if err != nil {
		return string(geotiff.CompressionLZW) // default on parse error
	}
	return string(comp)
}

// GetWorkers returns the worker count, resolving 0 to GOMAXPROCS.
func (c *ClassifyConfig) GetWorkers() int {
	if c.Workers == nil || *c.Workers == 0 {
		return runtime.GOMAXPROCS(0)
	}
	return *c.Workers
}

// GetPlotDir returns the plot_dir value or "" (plots disabled).
func (c *ClassifyConfig) GetPlotDir() string {
	if c.PlotDir == nil {
		return ""
	}
	return *c.PlotDir
}

// GetHistoryDB returns the history_db value or "" (history disabled).
func (c *ClassifyConfig) GetHistoryDB() string {
	if c.HistoryDB == nil {
		return ""
	}
	return *c.HistoryDB
}
