// Package logger is the reader's structured logger. Every call takes a
// context so request-scoped fields (namespace, data type, cache key, trace
// and span ids) land on each line without being threaded by hand.
package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"go.opentelemetry.io/otel/trace"
)

type Logger interface {
	Debug(ctx context.Context, message string)
	Debugf(ctx context.Context, format string, args ...interface{})
	Info(ctx context.Context, message string)
	Infof(ctx context.Context, format string, args ...interface{})
	Warn(ctx context.Context, message string)
	Warnf(ctx context.Context, format string, args ...interface{})
	Error(ctx context.Context, message string)
	Errorf(ctx context.Context, format string, args ...interface{})
	// Fatal logs at error level and exits with status 1
	Fatal(ctx context.Context, message string)

	With(key string, value interface{}) Logger
	WithFields(fields map[string]interface{}) Logger
	// WithError sets the "error" field; a nil err returns the receiver
	WithError(err error) Logger
	Without(key string) Logger
}

var _ Logger = &logger{}

type logger struct {
	slog   *slog.Logger
	fields map[string]interface{}
}

// Config selects level, format and destination
type Config struct {
	// Level is one of debug, info, warn, error
	Level string
	// Format is text or json
	Format string
	// Output is stdout (default) or stderr; ignored when Writer is set
	Output string
	Writer io.Writer
	// Component and Version are attached to every line
	Component string
	Version   string
}

// DefaultConfig logs text at info level to stdout
func DefaultConfig() Config {
	return Config{
		Level:     "info",
		Format:    "text",
		Output:    "stdout",
		Component: "results-reader",
		Version:   "unknown",
	}
}

// ConfigFromEnv applies LOG_LEVEL, LOG_FORMAT and LOG_OUTPUT over the defaults
func ConfigFromEnv() Config {
	cfg := DefaultConfig()

	if level := os.Getenv("LOG_LEVEL"); level != "" {
		cfg.Level = strings.ToLower(level)
	}
	if format := os.Getenv("LOG_FORMAT"); format != "" {
		cfg.Format = strings.ToLower(format)
	}
	if output := os.Getenv("LOG_OUTPUT"); output != "" {
		cfg.Output = output
	}

	return cfg
}

// NewLogger builds a Logger. Only an unknown Output is an error.
func NewLogger(cfg Config) (Logger, error) {
	writer := cfg.Writer
	if writer == nil {
		switch cfg.Output {
		case "stdout", "":
			writer = os.Stdout
		case "stderr":
			writer = os.Stderr
		default:
			return nil, fmt.Errorf("invalid log output %q: must be 'stdout', 'stderr', or empty", cfg.Output)
		}
	}

	opts := &slog.HandlerOptions{Level: parseLevel(cfg.Level)}
	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(writer, opts)
	} else {
		handler = slog.NewTextHandler(writer, opts)
	}

	hostname, _ := os.Hostname()
	if hostname == "" {
		hostname = os.Getenv("POD_NAME")
	}
	if hostname == "" {
		hostname = "unknown"
	}

	return &logger{
		slog: slog.New(handler).With(
			"component", cfg.Component,
			"version", cfg.Version,
			"hostname", hostname,
		),
		fields: make(map[string]interface{}),
	}, nil
}

// NewDiscardLogger returns a logger that drops every entry. Constructors use
// it when no logger is supplied.
func NewDiscardLogger() Logger {
	return &logger{
		slog:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		fields: make(map[string]interface{}),
	}
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

// args merges logger fields, context fields and, unless set explicitly,
// the ids of the active span.
func (l *logger) args(ctx context.Context) []any {
	args := make([]any, 0, len(l.fields)*2+10)
	for k, v := range l.fields {
		args = append(args, k, v)
	}
	if ctx == nil {
		return args
	}

	logFields, _ := ctx.Value(LogFieldsKey).(LogFields)
	for k, v := range logFields {
		args = append(args, k, v)
	}

	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		if _, ok := logFields[string(TraceIDKey)]; !ok {
			args = append(args, string(TraceIDKey), sc.TraceID().String())
		}
		if _, ok := logFields[string(SpanIDKey)]; !ok {
			args = append(args, string(SpanIDKey), sc.SpanID().String())
		}
	}
	return args
}

func (l *logger) log(ctx context.Context, level slog.Level, message string) {
	if ctx == nil {
		ctx = context.Background()
	}
	l.slog.Log(ctx, level, message, l.args(ctx)...)
}

func (l *logger) Debug(ctx context.Context, message string) {
	l.log(ctx, slog.LevelDebug, message)
}

func (l *logger) Debugf(ctx context.Context, format string, args ...interface{}) {
	l.log(ctx, slog.LevelDebug, fmt.Sprintf(format, args...))
}

func (l *logger) Info(ctx context.Context, message string) {
	l.log(ctx, slog.LevelInfo, message)
}

func (l *logger) Infof(ctx context.Context, format string, args ...interface{}) {
	l.log(ctx, slog.LevelInfo, fmt.Sprintf(format, args...))
}

func (l *logger) Warn(ctx context.Context, message string) {
	l.log(ctx, slog.LevelWarn, message)
}

func (l *logger) Warnf(ctx context.Context, format string, args ...interface{}) {
	l.log(ctx, slog.LevelWarn, fmt.Sprintf(format, args...))
}

func (l *logger) Error(ctx context.Context, message string) {
	l.log(ctx, slog.LevelError, message)
}

func (l *logger) Errorf(ctx context.Context, format string, args ...interface{}) {
	l.log(ctx, slog.LevelError, fmt.Sprintf(format, args...))
}

func (l *logger) Fatal(ctx context.Context, message string) {
	l.log(ctx, slog.LevelError, message)
	os.Exit(1)
}

// derive returns a logger sharing the handler, with a copy of the fields
// passed through edit.
func (l *logger) derive(edit func(fields map[string]interface{})) Logger {
	fields := make(map[string]interface{}, len(l.fields)+1)
	for k, v := range l.fields {
		fields[k] = v
	}
	edit(fields)
	return &logger{slog: l.slog, fields: fields}
}

func (l *logger) With(key string, value interface{}) Logger {
	return l.derive(func(f map[string]interface{}) { f[key] = value })
}

func (l *logger) WithFields(fields map[string]interface{}) Logger {
	return l.derive(func(f map[string]interface{}) {
		for k, v := range fields {
			f[k] = v
		}
	})
}

func (l *logger) WithError(err error) Logger {
	if err == nil {
		return l
	}
	return l.derive(func(f map[string]interface{}) { f["error"] = err.Error() })
}

func (l *logger) Without(key string) Logger {
	return l.derive(func(f map[string]interface{}) { delete(f, key) })
}
