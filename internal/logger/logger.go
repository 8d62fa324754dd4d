package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

var (
	// Logger is the global slog logger instance
	Logger *slog.Logger

	level = new(slog.LevelVar)
)

func init() {
	// Usable before Init so packages and tests never hit a nil logger.
	Logger = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
}

// Init initializes the global logger with the given level name.
// An empty or unknown level falls back to info.
func Init(levelName string) {
	InitWithWriter(os.Stdout, levelName)
}

// InitWithWriter is Init writing to w instead of stdout.
func InitWithWriter(w io.Writer, levelName string) {
	if levelName == "" {
		levelName = "info"
	}
	SetLevel(levelName)

	// Create JSON handler for structured logging
	handler := slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level})

	// Set the global logger
	Logger = slog.New(handler)
	slog.SetDefault(Logger)

	Logger.Info("Logger initialized", "level", levelName)
}

// SetLevel changes the level of the running logger.
func SetLevel(levelName string) {
	level.Set(ParseLevel(levelName))
}

// ParseLevel maps debug, info, warn(ing) and error to slog levels.
func ParseLevel(levelName string) slog.Level {
	switch strings.ToLower(levelName) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Debug logs a debug message
func Debug(msg string, args ...any) {
	Logger.Debug(msg, args...)
}

// Info logs an info message
func Info(msg string, args ...any) {
	Logger.Info(msg, args...)
}

// Warn logs a warning message
func Warn(msg string, args ...any) {
	Logger.Warn(msg, args...)
}

// Error logs an error message
func Error(msg string, args ...any) {
	Logger.Error(msg, args...)
}
