package logging

import (
	"context"
	"io"
	"log/slog"

	"go.opentelemetry.io/otel/trace"
)

// New returns a JSON logger writing to w that tags records with the active
// span, and installs it as the slog default.
func New(w io.Writer, level slog.Level) *slog.Logger {
	logger := slog.New(HandlerWithSpanContext(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level})))
	slog.SetDefault(logger)
	return logger
}

func HandlerWithSpanContext(handler slog.Handler) *SpanContextLogHandler {
	return &SpanContextLogHandler{Handler: handler}
}

type SpanContextLogHandler struct {
	slog.Handler
}

func (t *SpanContextLogHandler) Handle(ctx context.Context, record slog.Record) error {
	if s := trace.SpanContextFromContext(ctx); s.IsValid() {
		record.AddAttrs(
			slog.Any("traceId", s.TraceID()),
			slog.Any("spanId", s.SpanID()),
			slog.Bool("trace_sampled", s.TraceFlags().IsSampled()),
		)
	}
	return t.Handler.Handle(ctx, record)
}

func (t *SpanContextLogHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return HandlerWithSpanContext(t.Handler.WithAttrs(attrs))
}

func (t *SpanContextLogHandler) WithGroup(name string) slog.Handler {
	return HandlerWithSpanContext(t.Handler.WithGroup(name))
}
