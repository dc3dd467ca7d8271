// Package observability configures the process-wide logging layer.
package observability

import (
	"fmt"
	"log/slog"
	"os"
)

// Instrument installs the default slog logger with the given level and
// format. Logs go to stderr unconditionally: with the stdio transport,
// stdout carries the protocol stream and must stay clean.
func Instrument(level slog.Level, format string) error {
	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	switch format {
	case "text":
		handler = slog.NewTextHandler(os.Stderr, opts)
	case "json":
		handler = slog.NewJSONHandler(os.Stderr, opts)
	default:
		return fmt.Errorf("unsupported log format: %q", format)
	}

	slog.SetDefault(slog.New(handler))
	return nil
}
