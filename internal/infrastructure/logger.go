package infrastructure

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"cpsroster/internal/config"
)

var (
	loggerMu   sync.Mutex
	rootLogger *slog.Logger

	fileMu  sync.Mutex
	logFile *os.File
)

// InitializeLogger builds the process logger on first use and installs it as
// the slog default. Later calls return the same logger and ignore cfg.
func InitializeLogger(cfg config.LoggingConfig) (*slog.Logger, error) {
	loggerMu.Lock()
	defer loggerMu.Unlock()

	if rootLogger != nil {
		return rootLogger, nil
	}
	logger, err := NewLogger(cfg, os.Stdout)
	if err != nil {
		return nil, err
	}
	rootLogger = logger
	slog.SetDefault(logger)
	return logger, nil
}

// GetLogger returns the process logger, or the slog default before
// InitializeLogger has run
func GetLogger() *slog.Logger {
	loggerMu.Lock()
	defer loggerMu.Unlock()
	if rootLogger == nil {
		return slog.Default()
	}
	return rootLogger
}

// NewLogger builds a JSON logger. Output "file" writes to cfg.FilePath only,
// "both" tees console and file, anything else writes to console.
func NewLogger(cfg config.LoggingConfig, console io.Writer) (*slog.Logger, error) {
	out, err := logOutput(cfg, console)
	if err != nil {
		return nil, err
	}

	handler := slog.NewJSONHandler(out, &slog.HandlerOptions{
		AddSource: strings.EqualFold(cfg.Level, "debug"),
		Level:     parseLogLevel(cfg.Level),
	})
	return slog.New(traceHandler{handler}), nil
}

func logOutput(cfg config.LoggingConfig, console io.Writer) (io.Writer, error) {
	mode := strings.ToLower(cfg.Output)
	if mode != "file" && mode != "both" {
		return console, nil
	}

	f, err := openLogFile(cfg.FilePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}
	swapLogFile(f)

	if mode == "file" {
		return f, nil
	}
	return io.MultiWriter(console, f), nil
}

// traceHandler stamps each record with the trace ID carried by its context
type traceHandler struct {
	slog.Handler
}

func (h traceHandler) Handle(ctx context.Context, r slog.Record) error {
	if id := GetTraceID(ctx); id != "" {
		r.AddAttrs(slog.String("trace_id", id))
	}
	return h.Handler.Handle(ctx, r)
}

func (h traceHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return traceHandler{h.Handler.WithAttrs(attrs)}
}

func (h traceHandler) WithGroup(name string) slog.Handler {
	return traceHandler{h.Handler.WithGroup(name)}
}

// parseLogLevel accepts slog level names plus "warning". Unknown names mean info.
func parseLogLevel(level string) slog.Level {
	if strings.EqualFold(level, "warning") {
		return slog.LevelWarn
	}
	var l slog.Level
	if err := l.UnmarshalText([]byte(level)); err != nil {
		return slog.LevelInfo
	}
	return l
}

// CloseLogFile closes the log file opened by NewLogger, if any
func CloseLogFile() error {
	fileMu.Lock()
	defer fileMu.Unlock()

	if logFile == nil {
		return nil
	}
	err := logFile.Close()
	logFile = nil
	return err
}

func resetLogger() {
	CloseLogFile()
	loggerMu.Lock()
	rootLogger = nil
	loggerMu.Unlock()
}

func swapLogFile(f *os.File) {
	fileMu.Lock()
	defer fileMu.Unlock()
	if logFile != nil {
		logFile.Close()
	}
	logFile = f
}

func openLogFile(path string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, err
	}
	return os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
}
