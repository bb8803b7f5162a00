// Package logger builds the structured log/slog logger shared by the
// StressSense binaries and carries request-scoped loggers through contexts.
package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"
)

// ParseLevel maps debug, info, warn/warning and error to a slog level.
// Anything else is info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
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

// Options configures New.
type Options struct {
	Output io.Writer
	Level  string
	// Format is json or text.
	Format string
	// Debug forces the debug level.
	Debug bool
	// Service is attached to every record when set.
	Service string
}

// New builds a logger. JSON is the default format.
func New(opts Options) *slog.Logger {
	if opts.Output == nil {
		opts.Output = os.Stdout
	}

	hopts := &slog.HandlerOptions{Level: ParseLevel(opts.Level)}
	if opts.Debug {
		hopts.Level = slog.LevelDebug
	}

	var handler slog.Handler
	if strings.EqualFold(opts.Format, "text") {
		handler = slog.NewTextHandler(opts.Output, hopts)
	} else {
		handler = slog.NewJSONHandler(opts.Output, hopts)
	}

	l := slog.New(handler)
	if opts.Service != "" {
		l = l.With(Component(opts.Service))
	}
	return l
}

// Discard returns a logger that drops everything.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type ctxKey struct{}

// WithContext returns a new context with the logger attached.
func WithContext(ctx context.Context, l *slog.Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, l)
}

// FromContext returns the logger stored in ctx, or slog.Default.
func FromContext(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(ctxKey{}).(*slog.Logger); ok {
		return l
	}
	return slog.Default()
}

// RequestIDKey is the attribute key for request tracing.
const RequestIDKey = "request_id"

// Attribute helpers for StressSense records.
func RequestID(id string) slog.Attr     { return slog.String(RequestIDKey, id) }
func DeviceID(id string) slog.Attr      { return slog.String("device_id", id) }
func StressValue(v float64) slog.Attr   { return slog.Float64("stress_value", v) }
func Category(c string) slog.Attr       { return slog.String("category", c) }
func Component(name string) slog.Attr   { return slog.String("component", name) }
func Operation(name string) slog.Attr   { return slog.String("operation", name) }
func Latency(d time.Duration) slog.Attr { return slog.Duration("latency", d) }
func Err(err error) slog.Attr           { return slog.Any("error", err) }
