// Package parquet stores categories in Parquet files and restores them.
//
// The package provides:
//   - Writer, which creates one file per persistent category plus an
//     events index, and appends the records of every processed event
//   - Reader and ReadCategory, which restore the records of one event into
//     a compressed, read-only category attached to a model
//   - FileHeader, which returns the run header kept in each file's
//     key/value metadata
//   - Support for multiple compression algorithms (snappy, zstd, lz4, gzip)
//
// Each category row holds the event number, the compacted index, the
// locator and the record itself as a nested group.
package parquet
