package postgresengine

import (
	"github.com/invtrail/inventory-trail-go/audittrail"
)

// Logger is the basic logging interface consumed by the engine.
type Logger = audittrail.Logger

// ContextualLogger is the context-aware logging interface consumed by the engine.
type ContextualLogger = audittrail.ContextualLogger

// MetricsCollector is the metrics interface consumed by the engine.
type MetricsCollector = audittrail.MetricsCollector

// TracingCollector is the tracing interface consumed by the engine.
type TracingCollector = audittrail.TracingCollector

// SpanContext represents an active tracing span.
type SpanContext = audittrail.SpanContext

// Option defines a functional option for configuring TrailStore.
type Option func(*TrailStore) error

// WithSchema sets the database schema holding the inventory tables.
// It defaults to "inv".
func WithSchema(schema string) Option {
	return func(ts *TrailStore) error {
		if schema == "" {
			return audittrail.ErrEmptyTableName
		}

		ts.schema = schema

		return nil
	}
}

// WithLogger sets the logger for the TrailStore.
//
// Debug level: SQL queries with execution timing (development use)
// Info level: row counts and durations (production-safe)
// Warn level: non-critical issues like cleanup failures
// Error level: critical failures that cause operation failures.
func WithLogger(logger Logger) Option {
	return func(ts *TrailStore) error {
		ts.logger = logger
		return nil
	}
}

// WithContextualLogger sets the contextual logger for the TrailStore.
// The contextual logger receives log messages with context information,
// enabling automatic trace/span correlation when tracing is enabled.
func WithContextualLogger(logger ContextualLogger) Option {
	return func(ts *TrailStore) error {
		ts.contextualLogger = logger
		return nil
	}
}

// WithMetrics sets the metrics collector for the TrailStore. The collector
// receives query durations, returned row counts and error counters.
func WithMetrics(collector MetricsCollector) Option {
	return func(ts *TrailStore) error {
		ts.metricsCollector = collector
		return nil
	}
}

// WithTracing sets the tracing collector for the TrailStore. The collector
// receives one span per List operation including source, row count and
// error information.
func WithTracing(collector TracingCollector) Option {
	return func(ts *TrailStore) error {
		ts.tracingCollector = collector
		return nil
	}
}
