package telemetry

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input string
		want  slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"error", slog.LevelError},
		{"DEBUG", slog.LevelDebug},
		{"unknown", slog.LevelInfo},
		{"", slog.LevelInfo},
	}

	for _, tt := range tests {
		if got := ParseLevel(tt.input); got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func newCapturedLogger(buf *bytes.Buffer, level slog.Level) *slog.Logger {
	baseHandler := slog.NewJSONHandler(buf, &slog.HandlerOptions{Level: level})
	return slog.New(&traceHandler{baseHandler: baseHandler})
}

func decodeLogLine(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()

	var record map[string]any
	if err := json.Unmarshal(buf.Bytes(), &record); err != nil {
		t.Fatalf("failed to decode log line %q: %v", buf.String(), err)
	}
	return record
}

func TestLoggerIncludesTraceContext(t *testing.T) {
	tp := sdktrace.NewTracerProvider()
	t.Cleanup(func() {
		_ = tp.Shutdown(context.Background())
	})

	ctx, span := tp.Tracer(tracerName).Start(context.Background(), "log.test")
	defer span.End()

	var buf bytes.Buffer
	logger := newCapturedLogger(&buf, slog.LevelInfo)

	logger.InfoContext(ctx, "processing request", "book_id", "b-1")

	record := decodeLogLine(t, &buf)
	if record["trace_id"] != TraceID(ctx) {
		t.Errorf("trace_id = %v, want %v", record["trace_id"], TraceID(ctx))
	}
	if record["span_id"] != SpanID(ctx) {
		t.Errorf("span_id = %v, want %v", record["span_id"], SpanID(ctx))
	}
	if record["book_id"] != "b-1" {
		t.Errorf("book_id = %v, want b-1", record["book_id"])
	}
}

func TestLoggerWithoutSpanOmitsTraceContext(t *testing.T) {
	var buf bytes.Buffer
	logger := newCapturedLogger(&buf, slog.LevelInfo)

	logger.InfoContext(context.Background(), "no active span")

	record := decodeLogLine(t, &buf)
	if _, ok := record["trace_id"]; ok {
		t.Error("trace_id should be absent outside a span")
	}
	if _, ok := record["span_id"]; ok {
		t.Error("span_id should be absent outside a span")
	}
}

func TestLoggerPreservesAttrsAndGroups(t *testing.T) {
	var buf bytes.Buffer
	logger := newCapturedLogger(&buf, slog.LevelInfo)

	logger.With("service", "catalog-api").WithGroup("request").Info("handled", "path", "/v1/books")

	record := decodeLogLine(t, &buf)
	if record["service"] != "catalog-api" {
		t.Errorf("service = %v, want catalog-api", record["service"])
	}

	group, ok := record["request"].(map[string]any)
	if !ok {
		t.Fatalf("request group missing in %v", record)
	}
	if group["path"] != "/v1/books" {
		t.Errorf("request.path = %v, want /v1/books", group["path"])
	}
}

func TestLoggerRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := newCapturedLogger(&buf, slog.LevelWarn)

	logger.Info("should be suppressed")
	if buf.Len() != 0 {
		t.Errorf("info record emitted below configured level: %s", buf.String())
	}

	logger.Warn("should be emitted")
	if buf.Len() == 0 {
		t.Error("warn record missing at configured level")
	}
}
