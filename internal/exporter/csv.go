package exporter

import (
	"encoding/csv"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"cpsroster/internal/config"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// CSVWriter writes delimited files under the data directory. Every file is
// staged beside its target and renamed into place on success, so a reader
// never sees a partial export.
type CSVWriter struct {
	paths *config.Paths
}

// NewCSVWriter creates a writer rooted at paths
func NewCSVWriter(paths *config.Paths) *CSVWriter {
	return &CSVWriter{paths: paths}
}

// WriteOptions is a small in-memory table to write in one call
type WriteOptions struct {
	Headers []string
	Records [][]string
	// BOMPrefix prepends a UTF-8 byte order mark for spreadsheet tools
	BOMPrefix bool
}

// WriteCSV writes options to filePath in one shot
func (w *CSVWriter) WriteCSV(filePath string, options WriteOptions) error {
	stream, err := w.CreateStreamWriter(filePath, options.Headers, options.BOMPrefix)
	if err != nil {
		return err
	}
	for i, record := range options.Records {
		if err := stream.WriteRecord(record); err != nil {
			stream.Abort()
			return fmt.Errorf("failed to write record %d: %w", i, err)
		}
	}
	return stream.Close()
}

// StreamWriter writes rows one at a time into a staged file. Close publishes
// the file; Abort discards it.
type StreamWriter struct {
	file   *os.File
	target string
	writer *csv.Writer
	rows   int
}

// CreateStreamWriter opens a staged file for filePath and writes the header
func (w *CSVWriter) CreateStreamWriter(filePath string, headers []string, bom bool) (*StreamWriter, error) {
	target := w.resolvePath(filePath)
	dir := filepath.Dir(target)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	file, err := os.CreateTemp(dir, "."+filepath.Base(target)+".*")
	if err != nil {
		return nil, fmt.Errorf("failed to create file: %w", err)
	}
	s := &StreamWriter{file: file, target: target, writer: csv.NewWriter(file)}

	if bom {
		if _, err := file.Write(utf8BOM); err != nil {
			s.Abort()
			return nil, fmt.Errorf("failed to write BOM: %w", err)
		}
	}
	if len(headers) > 0 {
		if err := s.writer.Write(headers); err != nil {
			s.Abort()
			return nil, fmt.Errorf("failed to write headers: %w", err)
		}
	}
	return s, nil
}

// WriteRecord appends one row
func (s *StreamWriter) WriteRecord(record []string) error {
	if err := s.writer.Write(record); err != nil {
		return err
	}
	s.rows++
	return nil
}

// Close flushes the staged file and moves it over the target
func (s *StreamWriter) Close() error {
	s.writer.Flush()
	if err := s.writer.Error(); err != nil {
		s.Abort()
		return fmt.Errorf("failed to flush %s: %w", s.target, err)
	}
	if err := s.file.Close(); err != nil {
		os.Remove(s.file.Name())
		return fmt.Errorf("failed to close file: %w", err)
	}
	if err := os.Rename(s.file.Name(), s.target); err != nil {
		os.Remove(s.file.Name())
		return fmt.Errorf("failed to move file into place: %w", err)
	}

	slog.Debug("Wrote CSV file", slog.String("path", s.target), slog.Int("rows", s.rows))
	return nil
}

// Abort discards the staged file and leaves any existing target untouched
func (s *StreamWriter) Abort() {
	s.file.Close()
	os.Remove(s.file.Name())
}

// resolvePath maps "raw/x" and "csv/x" onto their directories. Other
// relative paths land in the output directory.
func (w *CSVWriter) resolvePath(filePath string) string {
	if filepath.IsAbs(filePath) {
		return filePath
	}
	if dir, name, ok := strings.Cut(filePath, "/"); ok {
		switch dir {
		case config.RawDirName:
			return w.paths.GetRawPath(name)
		case config.CSVDirName:
			return w.paths.GetCachePath(name)
		}
	}
	return w.paths.GetOutputPath(filePath)
}
