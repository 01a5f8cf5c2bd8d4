// Package config provides configuration defaults for the spark framework.
//
// This package defines all configurable constants with documented defaults.
// Users can override these values via the run configuration file or flags.
package config

import "time"

// =============================================================================
// Processing Defaults
// =============================================================================

const (
	// DefaultMaxEvents limits the number of processed events. Zero processes
	// every event the sources deliver.
	// Override via config: run.max_events
	DefaultMaxEvents = 0

	// DefaultRunID is the run identifier used to materialize parameters.
	// Override via config: run.id
	DefaultRunID = 0

	// DefaultProgressInterval is how often the progress line is refreshed
	// when stdout is a terminal.
	// Override via config: run.progress_interval
	DefaultProgressInterval = 200 * time.Millisecond
)

// =============================================================================
// Output Defaults
// =============================================================================

const (
	// DefaultOutputDir is where category files are written.
	// Override via config: output.dir
	DefaultOutputDir = "spark-out"

	// DefaultCompression is the Parquet compression codec.
	// One of: none, snappy, zstd, lz4, gzip.
	// Override via config: output.compression
	DefaultCompression = "zstd"

	// CategoryFileExt is appended to a category name to form its file name.
	CategoryFileExt = ".parquet"

	// EventsFileName is the per-event index written next to the category files.
	EventsFileName = "events.parquet"

	// HeaderFileName holds the length-delimited binary header of a run.
	HeaderFileName = "header.pb"

	// HeaderMetadataKey is the Parquet key/value metadata entry that carries
	// the JSON header in every category file.
	HeaderMetadataKey = "spark.header"
)

// =============================================================================
// Parameter Defaults
// =============================================================================

const (
	// DefaultParameterRelease tags the calibration set in use.
	// Override via config: parameters.release
	DefaultParameterRelease = "default"

	// DefaultMaxHeaderSize limits the decoded size of a binary header.
	DefaultMaxHeaderSize = 4 * 1024 * 1024
)

// =============================================================================
// Event Log Defaults
// =============================================================================

const (
	// DefaultEventLogSegmentSize is the maximum event log segment size.
	// Override via config: input.segment_size
	DefaultEventLogSegmentSize = 64 * 1024 * 1024

	// DefaultEventLogSyncMode controls how the recorder reaches the disk.
	// One of: async, sync, fsync.
	// Override via config: input.sync_mode
	DefaultEventLogSyncMode = "async"
)

// =============================================================================
// Query Defaults
// =============================================================================

const (
	// DefaultQueryMemoryLimit is the DuckDB memory limit.
	// Override via config: query.memory_limit
	DefaultQueryMemoryLimit = "1GB"

	// DefaultQueryTimeout bounds a single query.
	// Override via config: query.timeout
	DefaultQueryTimeout = 30 * time.Second

	// DefaultQueryMaxRows caps the rows returned by ad-hoc SQL.
	// Override via config: query.max_rows
	DefaultQueryMaxRows = 10000
)

// =============================================================================
// Statistics Defaults
// =============================================================================

const (
	// DefaultSketchAccuracy is the relative accuracy of DDSketch quantiles.
	// Override via config: statistics.accuracy
	DefaultSketchAccuracy = 0.01

	// DefaultStatisticsWindow is the number of events per statistics window.
	// Zero aggregates the whole run.
	// Override via config: statistics.window
	DefaultStatisticsWindow = 0
)
