package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

// Paths contains all the application paths.
// This is the single source of truth for every file path used by a run.
type Paths struct {
	DataDir   string
	RawDir    string // downloaded source documents
	CSVDir    string // per-file normalized cache
	OutputDir string // joined artifacts
	LogsDir   string

	SnapshotFile   string
	JoinedCSVFile  string
	ReducedCSVFile string
}

// NewPaths lays out every directory beneath dataDir
func NewPaths(dataDir, logsDir string) (*Paths, error) {
	abs, err := filepath.Abs(dataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve data dir %s: %w", dataDir, err)
	}
	if logsDir == "" {
		logsDir = DefaultLogsDir
	}
	if !filepath.IsAbs(logsDir) {
		logsDir = filepath.Join(abs, logsDir)
	}

	outputDir := filepath.Join(abs, OutputDirName)
	return &Paths{
		DataDir:        abs,
		RawDir:         filepath.Join(abs, RawDirName),
		CSVDir:         filepath.Join(abs, CSVDirName),
		OutputDir:      outputDir,
		LogsDir:        logsDir,
		SnapshotFile:   filepath.Join(outputDir, SnapshotFileName),
		JoinedCSVFile:  filepath.Join(outputDir, JoinedCSVFileName),
		ReducedCSVFile: filepath.Join(outputDir, ReducedCSVFileName),
	}, nil
}

// GetPaths resolves paths from a loaded configuration
func (c *Config) GetPaths() (*Paths, error) {
	return NewPaths(c.Paths.DataDir, c.Paths.LogsDir)
}

// EnsureDirectories creates all required directories if they don't exist
func (p *Paths) EnsureDirectories() error {
	directories := []string{
		p.DataDir,
		p.RawDir,
		p.CSVDir,
		p.OutputDir,
		p.LogsDir,
	}

	for _, dir := range directories {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %v", dir, err)
		}
		slog.Debug("Ensured directory exists", slog.String("directory", dir))
	}

	return nil
}

// LogPathResolution logs every resolved path once at startup
func (p *Paths) LogPathResolution(logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("Resolved paths",
		slog.String("data_dir", p.DataDir),
		slog.String("raw_dir", p.RawDir),
		slog.String("csv_dir", p.CSVDir),
		slog.String("output_dir", p.OutputDir),
		slog.String("logs_dir", p.LogsDir),
		slog.String("snapshot", p.SnapshotFile))
}

// GetRawPath returns the download target for a file name
func (p *Paths) GetRawPath(filename string) string {
	return filepath.Join(p.RawDir, filename)
}

// GetCachePath returns the path of a per-file cache entry
func (p *Paths) GetCachePath(filename string) string {
	return filepath.Join(p.CSVDir, filename)
}

// GetOutputPath returns a path inside the output directory
func (p *Paths) GetOutputPath(filename string) string {
	return filepath.Join(p.OutputDir, filename)
}

// GetLogPath returns a path inside the logs directory
func (p *Paths) GetLogPath(filename string) string {
	return filepath.Join(p.LogsDir, filename)
}

// FileExists checks if a file exists
func FileExists(path string) bool {
	_, err := os.Stat(path)
	return !os.IsNotExist(err)
}
