package oteladapters_test

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/invtrail/inventory-trail-go/audittrail/oteladapters"
)

type capturedRecord struct {
	level   slog.Level
	message string
	attrs   map[string]string
}

// recordingHandler captures slog records for assertions.
type recordingHandler struct {
	records *[]capturedRecord
}

func (h recordingHandler) Enabled(_ context.Context, _ slog.Level) bool {
	return true
}

func (h recordingHandler) Handle(_ context.Context, record slog.Record) error {
	captured := capturedRecord{
		level:   record.Level,
		message: record.Message,
		attrs:   make(map[string]string),
	}

	record.Attrs(func(attr slog.Attr) bool {
		captured.attrs[attr.Key] = attr.Value.String()
		return true
	})

	*h.records = append(*h.records, captured)

	return nil
}

func (h recordingHandler) WithAttrs(_ []slog.Attr) slog.Handler {
	return h
}

func (h recordingHandler) WithGroup(_ string) slog.Handler {
	return h
}

func Test_SlogBridgeLogger_forwards_levels_and_attrs(t *testing.T) {
	records := make([]capturedRecord, 0)
	logger := oteladapters.NewSlogBridgeLoggerWithHandler(recordingHandler{records: &records})
	ctx := context.Background()

	logger.DebugContext(ctx, "executed sql", "duration_ms", 1.5)
	logger.InfoContext(ctx, "trail list completed", "row_count", 20)
	logger.WarnContext(ctx, "failed to close database rows")
	logger.ErrorContext(ctx, "database query execution failed", "error", "connection refused")

	require.Len(t, records, 4)
	assert.Equal(t, slog.LevelDebug, records[0].level)
	assert.Equal(t, "executed sql", records[0].message)
	assert.Equal(t, "1.5", records[0].attrs["duration_ms"])
	assert.Equal(t, slog.LevelInfo, records[1].level)
	assert.Equal(t, "20", records[1].attrs["row_count"])
	assert.Equal(t, slog.LevelWarn, records[2].level)
	assert.Equal(t, slog.LevelError, records[3].level)
	assert.Equal(t, "connection refused", records[3].attrs["error"])
}
