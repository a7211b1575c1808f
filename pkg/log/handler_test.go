package log

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/cockroachdb/errors"
)

func TestErrFmtHandlerAddsStacktrace(t *testing.T) {
	var buf bytes.Buffer
	handler := WrapByErrFmtHandler(slog.NewJSONHandler(&buf, nil))
	logger := slog.New(handler)

	logger.Error("pipeline failed", ErrAttr(errors.New("boom")))

	var record map[string]any
	if err := json.Unmarshal(buf.Bytes(), &record); err != nil {
		t.Fatalf("failed to parse log record: %v", err)
	}
	if _, ok := record[StacktraceAttrKey]; !ok {
		t.Errorf("record %v has no %q attribute", record, StacktraceAttrKey)
	}
	if record["msg"] != "pipeline failed" {
		t.Errorf("msg = %v, want %q", record["msg"], "pipeline failed")
	}
}

func TestErrFmtHandlerPassesThroughPlainRecords(t *testing.T) {
	var buf bytes.Buffer
	handler := WrapByErrFmtHandler(slog.NewJSONHandler(&buf, nil))
	logger := slog.New(handler)

	logger.Info("training started", slog.Int(SamplesKey, 1599))

	var record map[string]any
	if err := json.Unmarshal(buf.Bytes(), &record); err != nil {
		t.Fatalf("failed to parse log record: %v", err)
	}
	if _, ok := record[StacktraceAttrKey]; ok {
		t.Errorf("unexpected stacktrace attribute on plain record: %v", record)
	}
}

func TestToLogLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"error", slog.LevelError},
	}
	for _, tt := range tests {
		if got := ToLogLevel(tt.in); got != tt.want {
			t.Errorf("ToLogLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestGetLoggerWithNameAttachesComponent(t *testing.T) {
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewJSONHandler(&buf, nil)))
	defer slog.SetDefault(prev)

	GetLoggerWithName("tracking.filestore").InfoContext(context.Background(), "run created")

	var record map[string]any
	if err := json.Unmarshal(buf.Bytes(), &record); err != nil {
		t.Fatalf("failed to parse log record: %v", err)
	}
	if record[ComponentKey] != "tracking.filestore" {
		t.Errorf("component = %v, want tracking.filestore", record[ComponentKey])
	}
}
