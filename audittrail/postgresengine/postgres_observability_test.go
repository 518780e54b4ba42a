package postgresengine

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/invtrail/inventory-trail-go/audittrail"
	"github.com/invtrail/inventory-trail-go/testutil/observability/testdoubles"
)

func Test_List_records_span_and_metrics_on_success(t *testing.T) {
	tracing := testdoubles.NewTracingCollectorSpy()
	metrics := testdoubles.NewMetricsCollectorSpy()
	logging := testdoubles.NewContextualLoggerSpy()

	db := &fakeDB{results: []*fakeRows{
		{rows: [][]any{{0}}},
		{},
	}}
	ts, err := newTrailStore(db,
		WithTracing(tracing),
		WithMetrics(metrics),
		WithContextualLogger(logging),
	)
	require.NoError(t, err)

	query := audittrail.BuildTrailQuery(audittrail.SourceMovements).Finalize()

	_, listErr := ts.List(context.Background(), query)
	require.NoError(t, listErr)

	span, found := tracing.SpanNamed("audittrail.list")
	require.True(t, found)
	assert.Equal(t, "list", span.StartAttributes["operation"])
	assert.Equal(t, string(audittrail.SourceMovements), span.StartAttributes["source"])
	assert.Equal(t, "success", span.FinishStatus)
	assert.Equal(t, "0", span.FinishAttrs["row_count"])
	assert.Equal(t, "0", span.FinishAttrs["total"])
	assert.Equal(t, "success", span.Span.Status())

	assert.True(t, metrics.HasDuration("audittrail_list_duration_seconds", "status", "success"))
	require.Len(t, metrics.Values(), 1)
	assert.Equal(t, "audittrail_rows_returned", metrics.Values()[0].Metric)
	assert.Zero(t, metrics.Values()[0].Value)
	assert.Empty(t, metrics.Counters())

	assert.True(t, logging.HasRecordWithPrefix("debug", "executed sql for: "))
	assert.True(t, logging.HasRecordWithPrefix("info", "trail operation: "))
}

func Test_List_records_error_type_on_count_failure(t *testing.T) {
	tracing := testdoubles.NewTracingCollectorSpy()
	metrics := testdoubles.NewMetricsCollectorSpy()

	db := &fakeDB{errs: []error{errors.New("connection refused")}}
	ts, err := newTrailStore(db, WithTracing(tracing), WithMetrics(metrics))
	require.NoError(t, err)

	query := audittrail.BuildTrailQuery(audittrail.SourceAudit).Finalize()

	_, listErr := ts.List(context.Background(), query)
	require.Error(t, listErr)

	span, found := tracing.SpanNamed("audittrail.list")
	require.True(t, found)
	assert.Equal(t, "error", span.FinishStatus)
	assert.Equal(t, "count", span.FinishAttrs["error_type"])

	assert.True(t, metrics.HasCounter("audittrail_errors_total", "error_type", "count"))
	assert.True(t, metrics.HasDuration("audittrail_list_duration_seconds", "status", "error"))
}

func Test_List_works_without_observability_configured(t *testing.T) {
	db := &fakeDB{results: []*fakeRows{
		{rows: [][]any{{0}}},
		{},
	}}
	ts, err := newTrailStore(db)
	require.NoError(t, err)

	query := audittrail.BuildTrailQuery(audittrail.SourceMovements).Finalize()

	_, listErr := ts.List(context.Background(), query)

	assert.NoError(t, listErr)
}

func Test_List_falls_back_to_plain_logger(t *testing.T) {
	logging := testdoubles.NewLoggerSpy()

	db := &fakeDB{results: []*fakeRows{
		{rows: [][]any{{0}}},
		{},
	}}
	ts, err := newTrailStore(db, WithLogger(logging))
	require.NoError(t, err)

	query := audittrail.BuildTrailQuery(audittrail.SourceMovements).Finalize()

	_, listErr := ts.List(context.Background(), query)
	require.NoError(t, listErr)

	assert.True(t, logging.HasRecord("info", "trail operation: trail list completed"))
}
