package logger_test

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"student-console/internal/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace"
)

func spanContext(t *testing.T) context.Context {
	t.Helper()
	traceID, err := trace.TraceIDFromHex("4bf92f3577b34da6a3ce929d0e0e4736")
	require.NoError(t, err)
	spanID, err := trace.SpanIDFromHex("00f067aa0ba902b7")
	require.NoError(t, err)
	sc := trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    traceID,
		SpanID:     spanID,
		TraceFlags: trace.FlagsSampled,
	})
	return trace.ContextWithSpanContext(context.Background(), sc)
}

func TestJSONLoggerAddsTraceContext(t *testing.T) {
	var buf bytes.Buffer
	log := logger.NewWithWriter(&buf, true)

	log.InfoContext(spanContext(t), "students listed", "page", 2)

	var record map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
	assert.Equal(t, "students listed", record["msg"])
	assert.Equal(t, "4bf92f3577b34da6a3ce929d0e0e4736", record["trace_id"])
	assert.Equal(t, "00f067aa0ba902b7", record["span_id"])
	assert.EqualValues(t, 2, record["page"])
}

func TestJSONLoggerWithoutSpan(t *testing.T) {
	var buf bytes.Buffer
	log := logger.NewWithWriter(&buf, true)

	log.Info("no span")

	var record map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
	assert.NotContains(t, record, "trace_id")
}

func TestTextLogger(t *testing.T) {
	t.Run("debug enabled", func(t *testing.T) {
		var buf bytes.Buffer
		logger.NewWithWriter(&buf, false).Debug("query cache sweep", "removed", 3)
		assert.Contains(t, buf.String(), "query cache sweep")
		assert.Contains(t, buf.String(), "removed=3")
	})

	t.Run("errors are coloured", func(t *testing.T) {
		var buf bytes.Buffer
		logger.NewWithWriter(&buf, false).With("key", "students::1").Error("fetch failed")
		assert.Contains(t, buf.String(), "[31mfetch failed")
		assert.Contains(t, buf.String(), "key=students::1")
	})
}
