// Package exporter persists roster tables and the joined dataset.
//
// This package contains these components:
//
// CSVWriter: Core CSV writing functionality with atomic replacement, streaming,
// and UTF-8 BOM for Excel compatibility.
//
// Cache: the per-file cache of normalized tables, one delimited-text file per
// publication date with the date as the first column.
//
// Snapshot: the joined dataset as a brotli-compressed gob stream, used to skip
// re-computation on later runs.
//
// WriteSQLite: an optional SQLite copy of the joined dataset.
//
// Reduce: the size-reduced variant of the dataset for distribution.
//
// Example usage:
//
//	cache := exporter.NewCache(paths)
//	if err := cache.Store(table); err != nil {
//	    return err
//	}
//
//	if err := exporter.WriteSnapshot(paths.SnapshotFile, ds); err != nil {
//	    return err
//	}
//	err := exporter.NewCSVWriter(paths).WriteDataset(paths.JoinedCSVFile, ds)
package exporter
