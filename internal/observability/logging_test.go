package observability

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/haasonsaas/nexus-core/internal/redact"
)

func TestNewLogger_RedactsMessageAndAttrs(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(LogConfig{
		Level:    "info",
		Format:   "json",
		Output:   &buf,
		Redactor: redact.New(nil, nil),
	})

	logger.Info("sending to +18765551234", "token", "sk-abc123DEF456ghi789")

	out := buf.String()
	if strings.Contains(out, "18765551234") || strings.Contains(out, "sk-abc123DEF456ghi789") {
		t.Fatalf("log output leaked secrets: %s", out)
	}
	if !strings.Contains(out, redact.Replacement) {
		t.Fatalf("log output missing redaction marker: %s", out)
	}

	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("output is not JSON: %v", err)
	}
}

func TestNewLogger_LevelFilter(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(LogConfig{Level: "warn", Format: "text", Output: &buf})

	logger.Info("quiet")
	logger.Warn("loud")

	out := buf.String()
	if strings.Contains(out, "quiet") {
		t.Error("info record emitted at warn level")
	}
	if !strings.Contains(out, "loud") {
		t.Error("warn record missing")
	}
}

func TestNewLogger_WithAttrsRedacted(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(LogConfig{
		Format:   "json",
		Output:   &buf,
		Redactor: redact.New(nil, nil),
	})

	logger.With(slog.String("chat", "+18765551234@s.whatsapp.net")).Info("hello")

	if strings.Contains(buf.String(), "18765551234") {
		t.Fatalf("pre-bound attr leaked: %s", buf.String())
	}
}

func TestNewMetrics_FreshRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	m.MessageReceived("whatsapp")
	m.MessageDropped("duplicate")
	m.RecordToolExecution("scheduler", true)
	m.RecordError("bridge")

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather() error = %v", err)
	}
	names := map[string]bool{}
	for _, f := range families {
		names[f.GetName()] = true
	}
	for _, want := range []string{
		"nexus_messages_total",
		"nexus_messages_dropped_total",
		"nexus_tool_executions_total",
		"nexus_errors_total",
	} {
		if !names[want] {
			t.Errorf("metric %s not registered", want)
		}
	}
}

func TestNewTracer_NoopWithoutEndpoint(t *testing.T) {
	tracer, shutdown := NewTracer(TraceConfig{ServiceName: "test"})
	defer shutdown(t.Context())

	ctx, span := tracer.Start(t.Context(), "op")
	if ctx == nil || span == nil {
		t.Fatal("Start() returned nil")
	}
	span.End()
}
