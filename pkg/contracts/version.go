package contracts

import (
	"fmt"
	"runtime"
	"runtime/debug"
)

const (
	// Version is the release of the roster tool
	Version = "1.0.0"

	// DataFormatVersion names the joined CSV and snapshot layout
	DataFormatVersion = "v1"
)

// Overridden with -ldflags "-X cpsroster/pkg/contracts.GitCommit=..." in release builds
var (
	BuildTime = ""
	GitCommit = ""
)

// VersionInfo describes the running binary
type VersionInfo struct {
	Version    string `json:"version"`
	Commit     string `json:"commit"`
	BuiltAt    string `json:"built_at"`
	Modified   bool   `json:"modified,omitempty"`
	GoVersion  string `json:"go_version"`
	Platform   string `json:"platform"`
	DataFormat string `json:"data_format"`
}

// GetVersionInfo merges linker-set values with the VCS stamp Go embeds
// in module builds. Missing values read "unknown".
func GetVersionInfo() VersionInfo {
	info := VersionInfo{
		Version:    Version,
		Commit:     GitCommit,
		BuiltAt:    BuildTime,
		GoVersion:  runtime.Version(),
		Platform:   runtime.GOOS + "/" + runtime.GOARCH,
		DataFormat: DataFormatVersion,
	}

	if bi, ok := debug.ReadBuildInfo(); ok {
		for _, s := range bi.Settings {
			switch s.Key {
			case "vcs.revision":
				if info.Commit == "" {
					info.Commit = s.Value
				}
			case "vcs.time":
				if info.BuiltAt == "" {
					info.BuiltAt = s.Value
				}
			case "vcs.modified":
				info.Modified = s.Value == "true"
			}
		}
	}

	if info.Commit == "" {
		info.Commit = "unknown"
	}
	if info.BuiltAt == "" {
		info.BuiltAt = "unknown"
	}
	return info
}

// GetFullVersionString renders GetVersionInfo on one line for --version
func GetFullVersionString() string {
	info := GetVersionInfo()
	commit := info.Commit
	if info.Modified {
		commit += "-dirty"
	}
	return fmt.Sprintf("%s (commit %s, built %s, %s %s, data %s)",
		info.Version, commit, info.BuiltAt, info.GoVersion, info.Platform, info.DataFormat)
}
