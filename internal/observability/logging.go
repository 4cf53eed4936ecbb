// Package observability wires the core's logging, metrics, and tracing.
package observability

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/haasonsaas/nexus-core/internal/redact"
)

// LogConfig configures logger construction.
type LogConfig struct {
	// Level sets the minimum log level: "debug", "info", "warn", "error"
	Level string

	// Format selects the handler: "json" for production, "text" for development
	Format string

	// Output is the writer for log output (defaults to os.Stdout)
	Output io.Writer

	// Redactor masks secrets in messages and string attribute values.
	// Nil disables redaction.
	Redactor *redact.Redactor
}

// NewLogger builds the process logger. Every record passes through the
// redactor before it reaches the underlying handler, so secrets never
// touch the log stream no matter which component emitted them.
func NewLogger(config LogConfig) *slog.Logger {
	if config.Output == nil {
		config.Output = os.Stdout
	}

	opts := &slog.HandlerOptions{Level: parseLevel(config.Level)}
	var handler slog.Handler
	if config.Format == "text" {
		handler = slog.NewTextHandler(config.Output, opts)
	} else {
		handler = slog.NewJSONHandler(config.Output, opts)
	}

	if config.Redactor != nil {
		handler = &redactHandler{inner: handler, redactor: config.Redactor}
	}
	return slog.New(handler)
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
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

// redactHandler masks string values on their way into the wrapped handler.
type redactHandler struct {
	inner    slog.Handler
	redactor *redact.Redactor
}

func (h *redactHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.inner.Enabled(ctx, level)
}

func (h *redactHandler) Handle(ctx context.Context, rec slog.Record) error {
	clean := slog.NewRecord(rec.Time, rec.Level, h.redactor.Mask(rec.Message), rec.PC)
	rec.Attrs(func(a slog.Attr) bool {
		clean.AddAttrs(h.redactAttr(a))
		return true
	})
	return h.inner.Handle(ctx, clean)
}

func (h *redactHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	masked := make([]slog.Attr, len(attrs))
	for i, a := range attrs {
		masked[i] = h.redactAttr(a)
	}
	return &redactHandler{inner: h.inner.WithAttrs(masked), redactor: h.redactor}
}

func (h *redactHandler) WithGroup(name string) slog.Handler {
	return &redactHandler{inner: h.inner.WithGroup(name), redactor: h.redactor}
}

func (h *redactHandler) redactAttr(a slog.Attr) slog.Attr {
	switch a.Value.Kind() {
	case slog.KindString:
		return slog.String(a.Key, h.redactor.Mask(a.Value.String()))
	case slog.KindGroup:
		group := a.Value.Group()
		masked := make([]any, 0, len(group))
		for _, g := range group {
			masked = append(masked, h.redactAttr(g))
		}
		return slog.Group(a.Key, masked...)
	case slog.KindAny:
		if err, ok := a.Value.Any().(error); ok {
			return slog.String(a.Key, h.redactor.Mask(err.Error()))
		}
		return a
	default:
		return a
	}
}
