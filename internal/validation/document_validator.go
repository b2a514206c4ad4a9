// Package validation checks roster documents before they enter the raw directory.
package validation

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

var signatures = map[string][][]byte{
	".pdf":  {[]byte("%PDF-")},
	".xlsx": {[]byte("PK\x03\x04")},
	// Legacy .xls is an OLE2 compound file; some portals serve xlsx bodies under .xls names.
	".xls": {[]byte("\xD0\xCF\x11\xE0\xA1\xB1\x1A\xE1"), []byte("PK\x03\x04")},
}

// FileValidator verifies that a file on disk is a roster document of the
// kind its name claims
type FileValidator struct {
	logger *slog.Logger
}

// NewFileValidator creates a new file validator
func NewFileValidator(logger *slog.Logger) *FileValidator {
	if logger == nil {
		logger = slog.Default()
	}
	return &FileValidator{
		logger: logger,
	}
}

// ValidateDocument checks the file at path against the format implied by
// name. The two differ when a download is staged in a temporary file.
func (v *FileValidator) ValidateDocument(path, name string) error {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return fmt.Errorf("file %s does not exist", path)
	}
	if err != nil {
		return fmt.Errorf("failed to stat file %s: %w", path, err)
	}
	if info.IsDir() {
		return fmt.Errorf("%s is a directory, not a file", path)
	}
	if info.Size() == 0 {
		v.logger.Warn("Document is empty", slog.String("file", name))
		return fmt.Errorf("document %s is empty", name)
	}

	base := filepath.Base(name)
	if strings.HasPrefix(base, "~$") {
		return fmt.Errorf("document %s is an office lock file", name)
	}

	ext := strings.ToLower(filepath.Ext(base))
	want, ok := signatures[ext]
	if !ok {
		return fmt.Errorf("document %s has unsupported extension %q", name, ext)
	}

	head, err := readHead(path, 8)
	if err != nil {
		return fmt.Errorf("document %s is not readable: %w", name, err)
	}
	for _, sig := range want {
		if bytes.HasPrefix(head, sig) {
			v.logger.Debug("Document validated",
				slog.String("file", name),
				slog.Int64("size", info.Size()))
			return nil
		}
	}

	v.logger.Warn("Document content does not match its extension",
		slog.String("file", name),
		slog.String("extension", ext))
	return fmt.Errorf("document %s is not a %s file", name, strings.TrimPrefix(ext, "."))
}

func readHead(path string, n int) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	buf := make([]byte, n)
	read, err := io.ReadFull(f, buf)
	if err != nil && err != io.ErrUnexpectedEOF {
		return nil, err
	}
	return buf[:read], nil
}
