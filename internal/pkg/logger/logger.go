package logger

import (
	"context"
	"log/slog"
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/exp/zapslog"
	"go.uber.org/zap/zapcore"
)

var (
	globalLogger *slog.Logger
	zapBase      *zap.Logger
)

// Init builds the zap core for levelStr and installs it behind slog as the
// process-wide logger. "development" style output is used for debug level.
// The returned zap logger must be synced by the caller on exit.
func Init(levelStr string) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(strings.ToLower(strings.TrimSpace(levelStr)))
	if err != nil {
		level = zapcore.InfoLevel
	}

	cfg := zap.NewProductionConfig()
	if level == zapcore.DebugLevel {
		cfg = zap.NewDevelopmentConfig()
	}
	cfg.Level = zap.NewAtomicLevelAt(level)
	cfg.DisableStacktrace = true

	z, buildErr := cfg.Build()
	if buildErr != nil {
		return nil, buildErr
	}
	zapBase = z
	globalLogger = slog.New(zapslog.NewHandler(z.Core()))
	slog.SetDefault(globalLogger)

	if err != nil {
		globalLogger.Warn("invalid log level, defaulting to info", "input", levelStr)
	}
	return z, nil
}

// Zap returns the zap logger behind the global slog logger.
func Zap() *zap.Logger {
	ensureInitialized()
	return zapBase
}

func ensureInitialized() {
	if globalLogger == nil {
		if _, err := Init("info"); err != nil {
			globalLogger = slog.Default()
			zapBase = zap.NewNop()
		}
	}
}

// Debug logs a message at DebugLevel.
func Debug(msg string, args ...any) {
	ensureInitialized()
	globalLogger.Debug(msg, args...)
}

// Info logs a message at InfoLevel.
func Info(msg string, args ...any) {
	ensureInitialized()
	globalLogger.Info(msg, args...)
}

// Warn logs a message at WarnLevel.
func Warn(msg string, args ...any) {
	ensureInitialized()
	globalLogger.Warn(msg, args...)
}

// Error logs a message at ErrorLevel.
func Error(msg string, args ...any) {
	ensureInitialized()
	globalLogger.Error(msg, args...)
}

// Fatal logs at ErrorLevel, flushes and exits.
func Fatal(msg string, args ...any) {
	ensureInitialized()
	globalLogger.Log(context.Background(), slog.LevelError, msg, args...)
	_ = zapBase.Sync()
	os.Exit(1)
}
