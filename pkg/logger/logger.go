package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
)

// Options describes the process-wide logger.
type Options struct {
	Env     string
	Service string
	Version string
	Region  string

	// Output defaults to stdout.
	Output io.Writer
}

// New returns a JSON logger; local and dev environments log at debug level.
func New(opts Options) *slog.Logger {
	level := slog.LevelInfo
	if opts.Env == "local" || opts.Env == "dev" {
		level = slog.LevelDebug
	}
	out := opts.Output
	if out == nil {
		out = os.Stdout
	}

	h := slog.NewJSONHandler(out, &slog.HandlerOptions{Level: level})
	l := slog.New(h)

	var attrs []any
	if opts.Service != "" {
		attrs = append(attrs, "service", opts.Service)
	}
	if opts.Version != "" {
		attrs = append(attrs, "version", opts.Version)
	}
	if opts.Region != "" {
		attrs = append(attrs, "region", opts.Region)
	}
	if len(attrs) > 0 {
		l = l.With(attrs...)
	}
	return l
}

type ctxKey struct{}

// With stores a logger in context.
func With(ctx context.Context, l *slog.Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, l)
}

// From gets a logger from context, falling back to slog.Default().
func From(ctx context.Context) *slog.Logger {
	if ctx == nil {
		return slog.Default()
	}
	if v := ctx.Value(ctxKey{}); v != nil {
		if l, ok := v.(*slog.Logger); ok && l != nil {
			return l
		}
	}
	return slog.Default()
}
