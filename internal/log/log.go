package log

import (
	"context"
	"io"
	"log/slog"
	"os"
	"sync/atomic"
	"time"
)

var (
	logger    atomic.Pointer[slog.Logger]
	level     *slog.LevelVar
	verbosity atomic.Int32
)

func init() {
	// Warnings only until Init is called
	level = new(slog.LevelVar)
	level.Set(slog.LevelWarn)
	verbosity.Store(VerbosityWarn)

	logger.Store(slog.New(NewHandler(HandlerOptions{
		Level:   level,
		Format:  "text",
		Output:  os.Stderr,
		Compact: true,
	})))
}

// Init replaces the global logger. A nil out writes to stderr. Text output
// is compact below trace verbosity; trace and JSON output keep full digests
// and raw byte counts.
func Init(v int, format string, out io.Writer) error {
	if err := ValidateFormat(format); err != nil {
		return err
	}
	verbosity.Store(int32(v))
	level.Set(VerbosityToLevel(v))

	newLogger := slog.New(NewHandler(HandlerOptions{
		Level:   level,
		Format:  format,
		Output:  out,
		Compact: format == "text" && v < VerbosityTrace,
	}))
	logger.Store(newLogger)
	slog.SetDefault(newLogger)
	return nil
}

// SetVerbosity changes verbosity at runtime.
func SetVerbosity(v int) {
	verbosity.Store(int32(v))
	level.Set(VerbosityToLevel(v))
}

// Verbosity returns the current verbosity level.
func Verbosity() int {
	return int(verbosity.Load())
}

// Logger returns the current logger instance.
func Logger() *slog.Logger {
	return logger.Load()
}

// Error logs at error level (v=0).
func Error(msg string, args ...any) {
	logger.Load().Error(msg, args...)
}

// Warn logs at warn level (v=1).
func Warn(msg string, args ...any) {
	logger.Load().Warn(msg, args...)
}

// Info logs at info level (v=2).
func Info(msg string, args ...any) {
	logger.Load().Info(msg, args...)
}

// Debug logs at debug level (v=3).
func Debug(msg string, args ...any) {
	logger.Load().Debug(msg, args...)
}

// Trace logs at trace level (v=4).
func Trace(msg string, args ...any) {
	logger.Load().Log(context.Background(), LevelTrace, msg, args...)
}

// V returns a logger that only logs if verbosity >= v.
// Usage: log.V(3).Info("detailed", "key", value)
func V(v int) *slog.Logger {
	if int(verbosity.Load()) >= v {
		return logger.Load()
	}
	return slog.New(discardHandler{})
}

// Component returns a logger tagged with a pipeline stage name.
func Component(name string) *slog.Logger {
	return logger.Load().With("component", name)
}

// Stage logs the start of a pipeline stage at debug level and returns a
// function that logs its end, with the elapsed time, at info level.
//
//	done := log.Stage("place", "resources", n)
//	...
//	done("dir", dir)
func Stage(name string, args ...any) func(args ...any) {
	l := Component(name)
	start := time.Now()
	l.Debug("stage started", args...)
	return func(more ...any) {
		attrs := append([]any{"elapsed", time.Since(start).Round(time.Millisecond)}, args...)
		l.Info("stage finished", append(attrs, more...)...)
	}
}
