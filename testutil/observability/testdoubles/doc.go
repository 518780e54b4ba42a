// Package testdoubles provides spy implementations of the audittrail
// observability interfaces (Logger, ContextualLogger, MetricsCollector,
// TracingCollector) that capture calls for inspection in tests.
package testdoubles
