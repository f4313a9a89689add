package logging

import (
	"fmt"
	"log/slog"
	"os"
	"os/user"
	"path/filepath"
	"strings"
	"time"
)

var logger *slog.Logger

// Session describes one tool invocation, written as a header block at the
// top of each log session.
type Session struct {
	Command string
	Region  string
}

// Init initializes the global logger. Messages always go to stderr; when
// path is non-empty they are additionally appended to the log file in
// bracketed form, preceded by a session header.
func Init(level, path string, session Session) error {
	lvl := parseLevel(level)

	handlers := []slog.Handler{
		slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}),
	}

	if path != "" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return fmt.Errorf("failed to create log directory: %w", err)
		}
		f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return fmt.Errorf("failed to open log file %s: %w", path, err)
		}
		writeSessionHeader(f, session)
		handlers = append(handlers, newFileHandler(f, lvl))
	}

	logger = slog.New(newFanoutHandler(handlers...))
	slog.SetDefault(logger)
	return nil
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
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

func writeSessionHeader(f *os.File, session Session) {
	username := "unknown"
	if u, err := user.Current(); err == nil {
		username = u.Username
	}
	fmt.Fprintln(f, strings.Repeat("=", 50))
	fmt.Fprintf(f, " session started : %s\n", time.Now().UTC().Format(time.RFC3339))
	fmt.Fprintf(f, " command         : %s\n", session.Command)
	fmt.Fprintf(f, " user            : %s\n", username)
	fmt.Fprintf(f, " region          : %s\n", session.Region)
	fmt.Fprintln(f, strings.Repeat("=", 50))
}

// Logger returns the global logger instance.
func Logger() *slog.Logger {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
	}
	return logger
}

// Debug logs a debug message.
func Debug(msg string, args ...any) {
	Logger().Debug(msg, args...)
}

// Info logs an info message.
func Info(msg string, args ...any) {
	Logger().Info(msg, args...)
}

// Warn logs a warning message.
func Warn(msg string, args ...any) {
	Logger().Warn(msg, args...)
}

// Error logs an error message.
func Error(msg string, args ...any) {
	Logger().Error(msg, args...)
}
