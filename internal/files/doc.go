// Package files provides file system discovery and housekeeping for the
// roster data directory.
//
// Discovery finds source documents in the raw directory. Manager removes
// temporary files left by interrupted runs.
//
// Example usage:
//
//	discovery := files.NewDiscovery(paths.DataDir)
//	docs, err := discovery.FindRosterFiles(paths.RawDir)
//
//	removed, err := files.NewManager(paths).RemoveStaleTemps(time.Hour)
package files
