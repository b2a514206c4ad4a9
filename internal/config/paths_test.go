package config

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPaths(t *testing.T) {
	base := t.TempDir()
	absLogs := filepath.Join(t.TempDir(), "elsewhere")

	tests := []struct {
		name     string
		logsDir  string
		wantLogs string
	}{
		{"default logs dir", "", filepath.Join(base, DefaultLogsDir)},
		{"relative logs dir", "var/log", filepath.Join(base, "var/log")},
		{"absolute logs dir", absLogs, absLogs},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			paths, err := NewPaths(base, tt.logsDir)
			require.NoError(t, err)

			assert.Equal(t, base, paths.DataDir)
			assert.Equal(t, filepath.Join(base, RawDirName), paths.RawDir)
			assert.Equal(t, filepath.Join(base, CSVDirName), paths.CSVDir)
			assert.Equal(t, filepath.Join(base, OutputDirName), paths.OutputDir)
			assert.Equal(t, tt.wantLogs, paths.LogsDir)
			assert.Equal(t, filepath.Join(paths.OutputDir, SnapshotFileName), paths.SnapshotFile)
			assert.Equal(t, filepath.Join(paths.OutputDir, JoinedCSVFileName), paths.JoinedCSVFile)
			assert.Equal(t, filepath.Join(paths.OutputDir, ReducedCSVFileName), paths.ReducedCSVFile)
		})
	}
}

func TestNewPaths_RelativeDataDir(t *testing.T) {
	paths, err := NewPaths(".", "")
	require.NoError(t, err)
	assert.True(t, filepath.IsAbs(paths.DataDir))
	assert.True(t, filepath.IsAbs(paths.LogsDir))
}

func TestEnsureDirectories(t *testing.T) {
	paths, err := NewPaths(filepath.Join(t.TempDir(), "data"), "")
	require.NoError(t, err)
	require.NoError(t, paths.EnsureDirectories())

	for _, dir := range []string{paths.DataDir, paths.RawDir, paths.CSVDir, paths.OutputDir, paths.LogsDir} {
		info, err := os.Stat(dir)
		require.NoError(t, err, dir)
		assert.True(t, info.IsDir())
	}

	// Idempotent
	assert.NoError(t, paths.EnsureDirectories())
}

func TestPathHelpers(t *testing.T) {
	paths, err := NewPaths(t.TempDir(), "")
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(paths.RawDir, "a.xls"), paths.GetRawPath("a.xls"))
	assert.Equal(t, filepath.Join(paths.CSVDir, "b.csv"), paths.GetCachePath("b.csv"))
	assert.Equal(t, filepath.Join(paths.OutputDir, "c.csv"), paths.GetOutputPath("c.csv"))
	assert.Equal(t, filepath.Join(paths.LogsDir, "d.log"), paths.GetLogPath("d.log"))

	assert.False(t, FileExists(paths.GetRawPath("a.xls")))
	require.NoError(t, paths.EnsureDirectories())
	require.NoError(t, os.WriteFile(paths.GetRawPath("a.xls"), nil, 0644))
	assert.True(t, FileExists(paths.GetRawPath("a.xls")))
}

func TestGetPaths_FromConfig(t *testing.T) {
	cfg := Default()
	cfg.Paths.DataDir = t.TempDir()

	paths, err := cfg.GetPaths()
	require.NoError(t, err)
	assert.Equal(t, cfg.Paths.DataDir, paths.DataDir)
}

func TestLogPathResolution(t *testing.T) {
	paths, err := NewPaths(t.TempDir(), "")
	require.NoError(t, err)

	var buf bytes.Buffer
	paths.LogPathResolution(slog.New(slog.NewTextHandler(&buf, nil)))
	assert.Contains(t, buf.String(), "Resolved paths")
	assert.Contains(t, buf.String(), paths.SnapshotFile)
}
