package audittrail

import (
	"context"
	"time"
)

// Logger receives executed SQL, operational messages, and failures from the
// trail engines. It matches the log/slog method set, so a *slog.Logger can be
// plugged in directly.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// MetricsCollector receives timing and counter metrics from trail reads.
// Implementations map the metric names and labels onto their own backend.
type MetricsCollector interface {
	RecordDuration(metric string, duration time.Duration, labels map[string]string)
	IncrementCounter(metric string, labels map[string]string)
	RecordValue(metric string, value float64, labels map[string]string)
}

// ContextualMetricsCollector adds context-carrying variants of the
// MetricsCollector methods so an implementation can correlate metrics with the
// active trace. Engines detect it via type assertion and prefer the contextual
// methods; plain MetricsCollector implementations keep working unchanged.
type ContextualMetricsCollector interface {
	MetricsCollector
	RecordDurationContext(ctx context.Context, metric string, duration time.Duration, labels map[string]string)
	IncrementCounterContext(ctx context.Context, metric string, labels map[string]string)
	RecordValueContext(ctx context.Context, metric string, value float64, labels map[string]string)
}

// SpanContext is the handle for one open span. The engine sets the final
// status and attaches attributes before the collector finishes the span.
type SpanContext interface {
	SetStatus(status string)
	AddAttribute(key, value string)
}

// TracingCollector opens and finishes spans around trail reads. It carries no
// dependency on a particular tracing SDK; an adapter bridges it to whatever
// backend is in use.
type TracingCollector interface {
	StartSpan(ctx context.Context, name string, attrs map[string]string) (context.Context, SpanContext)
	FinishSpan(spanCtx SpanContext, status string, attrs map[string]string)
}

// ContextualLogger is the context-aware counterpart of Logger. When both are
// configured the engines prefer it, so log lines can pick up trace and span
// ids from the context.
type ContextualLogger interface {
	DebugContext(ctx context.Context, msg string, args ...any)
	InfoContext(ctx context.Context, msg string, args ...any)
	WarnContext(ctx context.Context, msg string, args ...any)
	ErrorContext(ctx context.Context, msg string, args ...any)
}
