package exporter

import (
	"encoding/gob"
	"fmt"
	"os"
	"path/filepath"

	"github.com/andybalholm/brotli"

	"cpsroster/pkg/contracts/domain"
)

// snapshotVersion is bumped whenever the encoded Dataset layout changes
const snapshotVersion = 1

type snapshotEnvelope struct {
	Version int
	Dataset *domain.Dataset
}

// WriteSnapshot stores ds as a brotli-compressed gob stream at path
func WriteSnapshot(path string, ds *domain.Dataset) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	f, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("failed to create snapshot: %w", err)
	}
	tmp := f.Name()
	defer os.Remove(tmp)

	bw := brotli.NewWriterLevel(f, brotli.DefaultCompression)
	if err := gob.NewEncoder(bw).Encode(snapshotEnvelope{Version: snapshotVersion, Dataset: ds}); err != nil {
		f.Close()
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}
	if err := bw.Close(); err != nil {
		f.Close()
		return fmt.Errorf("failed to compress snapshot: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close snapshot: %w", err)
	}
	return os.Rename(tmp, path)
}

// ReadSnapshot loads a dataset written by WriteSnapshot
func ReadSnapshot(path string) (*domain.Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var env snapshotEnvelope
	if err := gob.NewDecoder(brotli.NewReader(f)).Decode(&env); err != nil {
		return nil, fmt.Errorf("failed to decode snapshot %s: %w", path, err)
	}
	if env.Version != snapshotVersion {
		return nil, fmt.Errorf("snapshot %s has version %d, want %d", path, env.Version, snapshotVersion)
	}
	if env.Dataset == nil {
		env.Dataset = &domain.Dataset{}
	}
	return env.Dataset, nil
}
