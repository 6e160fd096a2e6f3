// Package common provides logging setup and build metadata shared by all
// services and commands in this repository.
package common

import (
	"log/slog"
	"os"
)

// LoggingOpts configures the process-wide slog logger.
type LoggingOpts struct {
	// Service name attached to every log line.
	Service string

	// JSON switches the handler from human-readable text to JSON output.
	JSON bool

	// Debug lowers the log level to slog.LevelDebug.
	Debug bool

	// Concise drops the timestamp attribute, useful for local development.
	Concise bool

	// Version is attached to every log line when set.
	Version string
}

// SetupLogger creates a slog.Logger according to the given options.
// The logger writes to stdout and carries service and version attributes.
func SetupLogger(opts *LoggingOpts) *slog.Logger {
	logLevel := slog.LevelInfo
	if opts.Debug {
		logLevel = slog.LevelDebug
	}

	handlerOpts := &slog.HandlerOptions{
		Level: logLevel,
	}
	if opts.Concise {
		handlerOpts.ReplaceAttr = func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey && len(groups) == 0 {
				return slog.Attr{}
			}
			return a
		}
	}

	var handler slog.Handler
	if opts.JSON {
		handler = slog.NewJSONHandler(os.Stdout, handlerOpts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, handlerOpts)
	}

	log := slog.New(handler)
	if opts.Service != "" {
		log = log.With("service", opts.Service)
	}
	if opts.Version != "" {
		log = log.With("version", opts.Version)
	}
	return log
}
