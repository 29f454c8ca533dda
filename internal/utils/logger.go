// internal/utils/logger.go

package utils

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/log"
)

// Logger defines the interface for logging throughout the application.
type Logger interface {
	Debug(msg string)
	Debugf(format string, args ...interface{})
	Info(msg string)
	Infof(format string, args ...interface{})
	Warn(msg string)
	Warnf(format string, args ...interface{})
	Error(msg string)
	Errorf(format string, args ...interface{})
	WithField(key string, value interface{}) Logger
	WithFields(fields map[string]interface{}) Logger
}

// Log output formats
const (
	FormatText   = "text"
	FormatJSON   = "json"
	FormatLogfmt = "logfmt"
)

// LoggerOptions configures NewLoggerWithOptions.
type LoggerOptions struct {
	Level  string
	Format string
	// Output defaults to stderr.
	Output io.Writer
	// File, when set, receives a copy of every record.
	File string
}

// CharmLogger adapts a charmbracelet logger to the Logger interface.
type CharmLogger struct {
	l *log.Logger
}

// NewLogger creates an info-level text logger writing to stderr.
func NewLogger() Logger {
	l, _ := NewLoggerWithOptions(LoggerOptions{})
	return l
}

// NewNopLogger returns a logger that discards everything.
func NewNopLogger() Logger {
	return &CharmLogger{l: log.NewWithOptions(io.Discard, log.Options{Level: log.FatalLevel})}
}

// NewLoggerWithOptions builds a logger from the given options. The log
// file, if any, stays open for the life of the process.
func NewLoggerWithOptions(opts LoggerOptions) (*CharmLogger, error) {
	level := log.InfoLevel
	if opts.Level != "" {
		parsed, err := log.ParseLevel(strings.ToLower(opts.Level))
		if err != nil {
			return nil, fmt.Errorf("invalid log level %q: %w", opts.Level, err)
		}
		level = parsed
	}

	var formatter log.Formatter
	switch strings.ToLower(opts.Format) {
	case "", FormatText:
		formatter = log.TextFormatter
	case FormatJSON:
		formatter = log.JSONFormatter
	case FormatLogfmt:
		formatter = log.LogfmtFormatter
	default:
		return nil, fmt.Errorf("unsupported log format: %s", opts.Format)
	}

	var out io.Writer = os.Stderr
	if opts.Output != nil {
		out = opts.Output
	}
	if opts.File != "" {
		f, err := os.OpenFile(opts.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file: %w", err)
		}
		out = io.MultiWriter(out, f)
	}

	return &CharmLogger{l: log.NewWithOptions(out, log.Options{
		Level:           level,
		Formatter:       formatter,
		ReportTimestamp: true,
		TimeFormat:      time.DateTime,
	})}, nil
}

func (c *CharmLogger) Debug(msg string) { c.l.Debug(msg) }

func (c *CharmLogger) Debugf(format string, args ...interface{}) { c.l.Debugf(format, args...) }

func (c *CharmLogger) Info(msg string) { c.l.Info(msg) }

func (c *CharmLogger) Infof(format string, args ...interface{}) { c.l.Infof(format, args...) }

func (c *CharmLogger) Warn(msg string) { c.l.Warn(msg) }

func (c *CharmLogger) Warnf(format string, args ...interface{}) { c.l.Warnf(format, args...) }

func (c *CharmLogger) Error(msg string) { c.l.Error(msg) }

func (c *CharmLogger) Errorf(format string, args ...interface{}) { c.l.Errorf(format, args...) }

func (c *CharmLogger) WithField(key string, value interface{}) Logger {
	return &CharmLogger{l: c.l.With(key, value)}
}

func (c *CharmLogger) WithFields(fields map[string]interface{}) Logger {
	keyvals := make([]interface{}, 0, len(fields)*2)
	for k, v := range fields {
		keyvals = append(keyvals, k, v)
	}
	return &CharmLogger{l: c.l.With(keyvals...)}
}
