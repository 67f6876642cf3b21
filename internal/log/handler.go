package log

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"
	"strings"

	"github.com/dustin/go-humanize"
)

// Formats lists the accepted values of HandlerOptions.Format.
var Formats = []string{"text", "json"}

// ValidateFormat rejects unknown log formats.
func ValidateFormat(format string) error {
	if !slices.Contains(Formats, format) {
		return fmt.Errorf("unknown log format %q (want text or json)", format)
	}
	return nil
}

// shortDigestLen is the number of hex digits kept by compact digests.
const shortDigestLen = 12

// HandlerOptions configures the log handler.
type HandlerOptions struct {
	Level     slog.Leveler
	Format    string // "text" or "json"
	Output    io.Writer
	AddSource bool

	// Compact shortens "digest" attributes to their first hex digits and
	// renders "size" and "*bytes" attributes in IEC units.
	Compact bool
}

// NewHandler creates appropriate handler based on options.
func NewHandler(opts HandlerOptions) slog.Handler {
	if opts.Output == nil {
		opts.Output = os.Stderr // stdout is reserved for command output
	}

	handlerOpts := &slog.HandlerOptions{
		Level:     opts.Level,
		AddSource: opts.AddSource,
		ReplaceAttr: func(_ []string, a slog.Attr) slog.Attr {
			return replaceAttr(a, opts.Compact)
		},
	}

	if opts.Format == "json" {
		return slog.NewJSONHandler(opts.Output, handlerOpts)
	}
	return slog.NewTextHandler(opts.Output, handlerOpts)
}

func replaceAttr(a slog.Attr, compact bool) slog.Attr {
	if a.Key == slog.LevelKey {
		if level, ok := a.Value.Any().(slog.Level); ok {
			a.Value = slog.StringValue(LevelName(level))
		}
		return a
	}
	if !compact {
		return a
	}

	switch {
	case a.Key == "digest" || strings.HasSuffix(a.Key, "_digest"):
		if a.Value.Kind() == slog.KindString {
			a.Value = slog.StringValue(shortDigest(a.Value.String()))
		}
	case a.Key == "size" || strings.HasSuffix(a.Key, "bytes"):
		switch a.Value.Kind() {
		case slog.KindUint64:
			a.Value = slog.StringValue(humanize.IBytes(a.Value.Uint64()))
		case slog.KindInt64:
			if n := a.Value.Int64(); n >= 0 {
				a.Value = slog.StringValue(humanize.IBytes(uint64(n)))
			}
		}
	}
	return a
}

// shortDigest truncates "algo:hex" to "algo:" plus shortDigestLen digits.
func shortDigest(s string) string {
	algo, sum, ok := strings.Cut(s, ":")
	if !ok || len(sum) <= shortDigestLen {
		return s
	}
	return algo + ":" + sum[:shortDigestLen]
}

// discardHandler is a handler that discards all log records.
type discardHandler struct{}

func (discardHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (discardHandler) Handle(context.Context, slog.Record) error { return nil }
func (d discardHandler) WithAttrs([]slog.Attr) slog.Handler      { return d }
func (d discardHandler) WithGroup(string) slog.Handler           { return d }
