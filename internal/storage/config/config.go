package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/xtxerr/spark/config"
)

// Config represents the complete run configuration.
type Config struct {
	// Run identifies the run and bounds the event loop.
	Run RunConfig `yaml:"run"`

	// Input configures the event log data source.
	Input InputConfig `yaml:"input"`

	// Parameters configures the parameter database.
	Parameters ParametersConfig `yaml:"parameters"`

	// Output configures the category files.
	Output OutputConfig `yaml:"output"`

	// Query configures the inspection query service.
	Query QueryConfig `yaml:"query"`

	// Statistics configures the streaming statistics.
	Statistics StatisticsConfig `yaml:"statistics"`

	// Logging configures the global logger.
	Logging LoggingConfig `yaml:"logging"`
}

// RunConfig identifies the run and bounds the event loop.
type RunConfig struct {
	// ID is the run identifier used to materialize parameters.
	ID uint64 `yaml:"id"`

	// MaxEvents stops processing after this many events. Zero means all.
	MaxEvents uint64 `yaml:"max_events"`

	// ProgressInterval is how often the progress line is refreshed.
	ProgressInterval time.Duration `yaml:"progress_interval"`
}

// InputConfig configures the event log data source.
type InputConfig struct {
	// EventLog is the directory of event log segments.
	EventLog string `yaml:"event_log"`

	// SegmentSize is the maximum segment size used when recording.
	SegmentSize int64 `yaml:"segment_size"`

	// SyncMode is one of async, sync, fsync.
	SyncMode string `yaml:"sync_mode"`
}

// ParametersConfig configures the parameter database.
type ParametersConfig struct {
	// Files are ascii parameter sources. Later files take priority.
	Files []string `yaml:"files"`

	// Release tags the calibration set in use.
	Release string `yaml:"release"`

	// Target is the ascii file containers are written to. Empty disables writing.
	Target string `yaml:"target"`
}

// OutputConfig configures the category files.
type OutputConfig struct {
	// Dir is the output directory. Empty disables output.
	Dir string `yaml:"dir"`

	// Compression is one of none, snappy, zstd, lz4, gzip.
	Compression string `yaml:"compression"`

	// RowGroupSize is the maximum number of rows per row group.
	RowGroupSize int `yaml:"row_group_size"`
}

// QueryConfig configures the inspection query service.
type QueryConfig struct {
	// MemoryLimit is the DuckDB memory limit (e.g., "1GB").
	MemoryLimit string `yaml:"memory_limit"`

	// Timeout bounds a single query.
	Timeout time.Duration `yaml:"timeout"`

	// MaxRows caps the rows returned by ad-hoc SQL.
	MaxRows int `yaml:"max_rows"`
}

// StatisticsConfig configures the streaming statistics.
type StatisticsConfig struct {
	// Enabled turns the statistics task on.
	Enabled bool `yaml:"enabled"`

	// Accuracy is the relative accuracy of quantiles (0.01 = 1%).
	Accuracy float64 `yaml:"accuracy"`

	// Window is the number of events per statistics window. Zero means the
	// whole run.
	Window uint64 `yaml:"window"`
}

// LoggingConfig configures the global logger.
type LoggingConfig struct {
	// Level is one of debug, info, warn, error, critical.
	Level string `yaml:"level"`

	// JSON switches to JSON output.
	JSON bool `yaml:"json"`
}

// Load loads configuration from a YAML file on top of the defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return cfg, nil
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Run: RunConfig{
			ID:               config.DefaultRunID,
			MaxEvents:        config.DefaultMaxEvents,
			ProgressInterval: config.DefaultProgressInterval,
		},
		Input: InputConfig{
			SegmentSize: config.DefaultEventLogSegmentSize,
			SyncMode:    config.DefaultEventLogSyncMode,
		},
		Parameters: ParametersConfig{
			Release: config.DefaultParameterRelease,
		},
		Output: OutputConfig{
			Dir:          config.DefaultOutputDir,
			Compression:  config.DefaultCompression,
			RowGroupSize: 100000,
		},
		Query: QueryConfig{
			MemoryLimit: config.DefaultQueryMemoryLimit,
			Timeout:     config.DefaultQueryTimeout,
			MaxRows:     config.DefaultQueryMaxRows,
		},
		Statistics: StatisticsConfig{
			Enabled:  true,
			Accuracy: config.DefaultSketchAccuracy,
			Window:   config.DefaultStatisticsWindow,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// CategoryPath returns the output file of the category named name.
func (c *Config) CategoryPath(name string) string {
	return filepath.Join(c.Output.Dir, name+config.CategoryFileExt)
}

// EventsPath returns the events index file.
func (c *Config) EventsPath() string {
	return filepath.Join(c.Output.Dir, config.EventsFileName)
}

// HeaderPath returns the binary header file.
func (c *Config) HeaderPath() string {
	return filepath.Join(c.Output.Dir, config.HeaderFileName)
}
