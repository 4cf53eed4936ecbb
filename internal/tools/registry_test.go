package tools

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/haasonsaas/nexus-core/internal/memory"
	"github.com/haasonsaas/nexus-core/internal/scheduler"
	"github.com/haasonsaas/nexus-core/internal/store"
	"github.com/haasonsaas/nexus-core/pkg/models"
)

type stubTool struct {
	name   string
	schema map[string]any
	run    func(ctx context.Context, args map[string]any) (*models.ToolResult, error)
}

func (s *stubTool) Name() string { return s.name }
func (s *stubTool) Spec() models.ToolSpec {
	return models.ToolSpec{Name: s.name, Description: "stub", InputSchema: s.schema}
}
func (s *stubTool) Run(ctx context.Context, args map[string]any) (*models.ToolResult, error) {
	return s.run(ctx, args)
}

func echoTool(name string) *stubTool {
	return &stubTool{
		name: name,
		run: func(ctx context.Context, args map[string]any) (*models.ToolResult, error) {
			return &models.ToolResult{OK: true, Content: "ran " + name}, nil
		},
	}
}

func TestRegistry_UnknownTool(t *testing.T) {
	r := NewRegistry(nil, nil)
	result := r.Execute(context.Background(), "ghost", nil)
	if result.OK {
		t.Fatal("unknown tool should not be OK")
	}
	if result.Content != "Unknown tool 'ghost'" {
		t.Errorf("Content = %q", result.Content)
	}
}

func TestRegistry_RegisterAndExecute(t *testing.T) {
	r := NewRegistry(nil, nil)
	if err := r.Register(echoTool("echo")); err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	result := r.Execute(context.Background(), "echo", map[string]any{"chat_id": "chat-1"})
	if !result.OK || result.Content != "ran echo" {
		t.Errorf("result = %+v", result)
	}
}

func TestRegistry_DuplicateRejected(t *testing.T) {
	r := NewRegistry(nil, nil)
	if err := r.Register(echoTool("dup")); err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	if err := r.Register(echoTool("dup")); err == nil {
		t.Fatal("duplicate registration should fail")
	}
}

func TestRegistry_SchemaValidation(t *testing.T) {
	r := NewRegistry(nil, nil)
	tool := &stubTool{
		name: "strict",
		schema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"count": map[string]any{"type": "integer"},
			},
			"required": []any{"count"},
		},
		run: func(ctx context.Context, args map[string]any) (*models.ToolResult, error) {
			return &models.ToolResult{OK: true, Content: "validated"}, nil
		},
	}
	if err := r.Register(tool); err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	// Missing required field.
	result := r.Execute(context.Background(), "strict", map[string]any{})
	if result.OK || !strings.Contains(result.Content, "Invalid arguments") {
		t.Errorf("result = %+v, want validation failure", result)
	}

	// Injected extras are allowed by an open schema.
	result = r.Execute(context.Background(), "strict", map[string]any{
		"count": 3, "chat_id": "chat-1", "confirmed": true,
	})
	if !result.OK {
		t.Errorf("result = %+v, want success with injected keys", result)
	}
}

func TestRegistry_ToolErrorBecomesResult(t *testing.T) {
	r := NewRegistry(nil, nil)
	tool := &stubTool{
		name: "broken",
		run: func(ctx context.Context, args map[string]any) (*models.ToolResult, error) {
			return nil, errors.New("disk on fire")
		},
	}
	if err := r.Register(tool); err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	result := r.Execute(context.Background(), "broken", nil)
	if result.OK || !strings.Contains(result.Content, "disk on fire") {
		t.Errorf("result = %+v", result)
	}
}

func TestRegistry_SpecsSorted(t *testing.T) {
	r := NewRegistry(nil, nil)
	for _, name := range []string{"zeta", "alpha", "mid"} {
		if err := r.Register(echoTool(name)); err != nil {
			t.Fatal(err)
		}
	}
	specs := r.Specs()
	if len(specs) != 3 || specs[0].Name != "alpha" || specs[2].Name != "zeta" {
		t.Errorf("specs order = %v", specs)
	}
}

func newSchedulerTool(t *testing.T) (*SchedulerTool, *store.Store) {
	t.Helper()
	st, err := store.Open(":memory:")
	if err != nil {
		t.Fatalf("store.Open() error = %v", err)
	}
	t.Cleanup(func() { st.Close() })

	engine := scheduler.New(st, time.UTC, nil, func(chatID, text string) {})
	t.Cleanup(engine.Stop)
	engine.SetClock(func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) })
	return NewSchedulerTool(engine), st
}

func TestSchedulerTool_ScheduleListCancel(t *testing.T) {
	tool, st := newSchedulerTool(t)
	ctx := context.Background()

	result, err := tool.Run(ctx, map[string]any{
		"action": "schedule", "when": "every monday at 8:00", "text": "standup", "chat_id": "chat-1",
	})
	if err != nil {
		t.Fatalf("Run(schedule) error = %v", err)
	}
	if !result.OK || !strings.Contains(result.Content, "Scheduled cron reminder") {
		t.Errorf("result = %+v", result)
	}

	jobs, _ := st.ListJobs("chat-1")
	if len(jobs) != 1 {
		t.Fatalf("persisted %d jobs, want 1", len(jobs))
	}

	result, err = tool.Run(ctx, map[string]any{"action": "list", "chat_id": "chat-1"})
	if err != nil {
		t.Fatalf("Run(list) error = %v", err)
	}
	if !strings.Contains(result.Content, "standup") {
		t.Errorf("list = %q", result.Content)
	}

	result, err = tool.Run(ctx, map[string]any{"action": "cancel", "job_id": jobs[0].JobID, "chat_id": "chat-1"})
	if err != nil {
		t.Fatalf("Run(cancel) error = %v", err)
	}
	if !result.OK {
		t.Errorf("cancel result = %+v", result)
	}

	result, _ = tool.Run(ctx, map[string]any{"action": "list", "chat_id": "chat-1"})
	if result.Content != "No reminders scheduled." {
		t.Errorf("list after cancel = %q", result.Content)
	}
}

func TestSchedulerTool_BadInputs(t *testing.T) {
	tool, _ := newSchedulerTool(t)
	ctx := context.Background()

	tests := []map[string]any{
		{"action": "schedule", "text": "no when", "chat_id": "c"},
		{"action": "schedule", "when": "whenever", "text": "x", "chat_id": "c"},
		{"action": "cancel", "chat_id": "c"},
		{"action": "cancel", "job_id": "missing", "chat_id": "c"},
		{"action": "explode", "chat_id": "c"},
	}
	for _, args := range tests {
		result, err := tool.Run(ctx, args)
		if err != nil {
			t.Fatalf("Run(%v) error = %v", args, err)
		}
		if result.OK {
			t.Errorf("Run(%v) = %+v, want failure result", args, result)
		}
	}
}

func TestMemoryTool(t *testing.T) {
	mem := memory.NewStore(t.TempDir(), 20, time.UTC)
	tool := NewMemoryTool(mem)

	result, err := tool.Run(context.Background(), map[string]any{"note": "likes jazz"})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if !result.OK {
		t.Errorf("result = %+v", result)
	}

	sections, err := mem.RelevantMemory("jazz", 1)
	if err != nil {
		t.Fatalf("RelevantMemory() error = %v", err)
	}
	if len(sections) == 0 {
		t.Fatal("note not persisted")
	}

	result, err = tool.Run(context.Background(), map[string]any{"note": "  "})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if result.OK {
		t.Error("blank note should fail")
	}
}
