package postgresengine

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/invtrail/inventory-trail-go/audittrail"
)

const (
	metricListDuration = "audittrail_list_duration_seconds"
	metricRowsReturned = "audittrail_rows_returned"
	metricErrors       = "audittrail_errors_total"

	spanNameList = "audittrail.list"

	spanAttrOperation = "operation"
	spanAttrSource    = "source"
	spanAttrRowCount  = "row_count"
	spanAttrTotal     = "total"
	spanAttrErrorType = "error_type"
	spanAttrDuration  = "duration_ms"

	operationList = "list"

	statusSuccess = "success"
	statusError   = "error"

	errorTypeBuildQuery = "build_query"
	errorTypeCount      = "count"
	errorTypeFetch      = "fetch"
)

// logQueryWithDuration logs SQL queries with execution time at debug level.
// The contextual logger wins when both loggers are configured.
func (ts TrailStore) logQueryWithDuration(
	ctx context.Context,
	sqlQuery string,
	action string,
	duration time.Duration,
) {
	if ts.contextualLogger != nil {
		ts.contextualLogger.DebugContext(ctx, logMsgSQLExecuted+action, logAttrDurationMS, toMilliseconds(duration), logAttrQuery, sqlQuery)
		return
	}

	if ts.logger != nil {
		ts.logger.Debug(logMsgSQLExecuted+action, logAttrDurationMS, toMilliseconds(duration), logAttrQuery, sqlQuery)
	}
}

// logOperation logs operational information at info level.
func (ts TrailStore) logOperation(ctx context.Context, action string, args ...any) {
	if ts.contextualLogger != nil {
		ts.contextualLogger.InfoContext(ctx, logMsgOperation+action, args...)
		return
	}

	if ts.logger != nil {
		ts.logger.Info(logMsgOperation+action, args...)
	}
}

// logError logs error information at error level.
func (ts TrailStore) logError(ctx context.Context, message string, err error, args ...any) {
	allArgs := []any{logAttrError, err.Error()}
	allArgs = append(allArgs, args...)

	if ts.contextualLogger != nil {
		ts.contextualLogger.ErrorContext(ctx, message, allArgs...)
		return
	}

	if ts.logger != nil {
		ts.logger.Error(message, allArgs...)
	}
}

// toMilliseconds converts a time.Duration to float64 milliseconds with 3 decimal places.
func toMilliseconds(d time.Duration) float64 {
	return math.Round(float64(d.Nanoseconds())/1e6*1000) / 1000
}

// === Tracing ===

// listTracingObserver encapsulates tracing span lifecycle management for List operations.
type listTracingObserver struct {
	ts   TrailStore
	span SpanContext
}

// startListTracing starts a span for a List operation if tracing is configured.
func (ts TrailStore) startListTracing(ctx context.Context, query audittrail.Query) (*listTracingObserver, context.Context) {
	if ts.tracingCollector == nil {
		return &listTracingObserver{ts: ts}, ctx
	}

	newCtx, span := ts.tracingCollector.StartSpan(ctx, spanNameList, map[string]string{
		spanAttrOperation: operationList,
		spanAttrSource:    string(query.Source()),
	})

	return &listTracingObserver{ts: ts, span: span}, newCtx
}

// finishSuccess completes the span for a successful List operation.
func (lto *listTracingObserver) finishSuccess(rowCount int, total int, duration time.Duration) {
	if lto.span == nil {
		return
	}

	lto.span.SetStatus(statusSuccess)
	lto.span.AddAttribute(spanAttrRowCount, fmt.Sprintf("%d", rowCount))
	lto.span.AddAttribute(spanAttrTotal, fmt.Sprintf("%d", total))
	lto.span.AddAttribute(spanAttrDuration, fmt.Sprintf("%.2f", toMilliseconds(duration)))

	lto.ts.tracingCollector.FinishSpan(lto.span, statusSuccess, map[string]string{
		spanAttrRowCount: fmt.Sprintf("%d", rowCount),
		spanAttrTotal:    fmt.Sprintf("%d", total),
	})
}

// finishError completes the span with error details.
func (lto *listTracingObserver) finishError(errorType string, duration time.Duration) {
	if lto.span == nil {
		return
	}

	lto.span.SetStatus(statusError)
	lto.span.AddAttribute(spanAttrErrorType, errorType)

	if duration > 0 {
		lto.span.AddAttribute(spanAttrDuration, fmt.Sprintf("%.2f", toMilliseconds(duration)))
	}

	lto.ts.tracingCollector.FinishSpan(lto.span, statusError, map[string]string{spanAttrErrorType: errorType})
}

// === Metrics ===

// listMetricsObserver encapsulates the metrics collection for List operations.
type listMetricsObserver struct {
	ts  TrailStore
	ctx context.Context
}

// startListMetrics creates a new metrics observer for a List operation.
func (ts TrailStore) startListMetrics(ctx context.Context) *listMetricsObserver {
	return &listMetricsObserver{ts: ts, ctx: ctx}
}

// recordSuccess records all metrics for a successful List operation.
func (lmo *listMetricsObserver) recordSuccess(rowCount int, duration time.Duration) {
	lmo.recordDuration(duration, statusSuccess)
	lmo.recordValue(metricRowsReturned, float64(rowCount), statusSuccess)
}

// recordError records all metrics for a failed List operation.
func (lmo *listMetricsObserver) recordError(errorType string, duration time.Duration) {
	lmo.recordDuration(duration, statusError)

	if lmo.ts.metricsCollector == nil {
		return
	}

	labels := map[string]string{
		spanAttrOperation: operationList,
		"status":          statusError,
		spanAttrErrorType: errorType,
	}

	if contextual, ok := lmo.ts.metricsCollector.(audittrail.ContextualMetricsCollector); ok {
		contextual.IncrementCounterContext(lmo.ctx, metricErrors, labels)
		return
	}

	lmo.ts.metricsCollector.IncrementCounter(metricErrors, labels)
}

func (lmo *listMetricsObserver) recordDuration(duration time.Duration, status string) {
	if lmo.ts.metricsCollector == nil {
		return
	}

	labels := map[string]string{
		spanAttrOperation: operationList,
		"status":          status,
	}

	if contextual, ok := lmo.ts.metricsCollector.(audittrail.ContextualMetricsCollector); ok {
		contextual.RecordDurationContext(lmo.ctx, metricListDuration, duration, labels)
		return
	}

	lmo.ts.metricsCollector.RecordDuration(metricListDuration, duration, labels)
}

func (lmo *listMetricsObserver) recordValue(metricName string, value float64, status string) {
	if lmo.ts.metricsCollector == nil {
		return
	}

	labels := map[string]string{
		spanAttrOperation: operationList,
		"status":          status,
	}

	if contextual, ok := lmo.ts.metricsCollector.(audittrail.ContextualMetricsCollector); ok {
		contextual.RecordValueContext(lmo.ctx, metricName, value, labels)
		return
	}

	lmo.ts.metricsCollector.RecordValue(metricName, value, labels)
}
