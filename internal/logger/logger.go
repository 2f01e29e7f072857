package logger

import (
	"log/slog"
	"os"
)

// Logging levels accepted by config
const (
	LevelDebug = "debug"
	LevelInfo  = "info"
	LevelWarn  = "warn"
	LevelError = "error"
)

// Environments: dev gets human readable text logs, prod gets JSON
const (
	EnvDevelopment = "dev"
	EnvProduction  = "prod"
)

// Logger defines the logging contract used across the app
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)

	With(args ...any) Logger
}

// New creates a logger suitable for the given environment
func New(environment string, level string) Logger {
	opts := &slog.HandlerOptions{
		Level:       parseLevelString(level),
		AddSource:   true,
		ReplaceAttr: trimSourcePath,
	}

	var handler slog.Handler
	switch environment {
	case EnvDevelopment:
		handler = slog.NewTextHandler(os.Stdout, opts)
	default:
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	return &slogLogger{logger: slog.New(handler)}
}

// NewNop creates a logger that discards everything
func NewNop() Logger {
	return &slogLogger{logger: slog.New(slog.DiscardHandler)}
}
