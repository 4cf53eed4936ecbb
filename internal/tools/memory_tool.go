package tools

import (
	"context"
	"strings"

	"github.com/haasonsaas/nexus-core/internal/memory"
	"github.com/haasonsaas/nexus-core/pkg/models"
)

// MemoryTool lets the model file a durable note into MEMORY.md.
type MemoryTool struct {
	store *memory.Store
}

// NewMemoryTool wraps the memory store as a tool.
func NewMemoryTool(store *memory.Store) *MemoryTool {
	return &MemoryTool{store: store}
}

func (t *MemoryTool) Name() string { return "memory" }

func (t *MemoryTool) Spec() models.ToolSpec {
	return models.ToolSpec{
		Name:        "memory",
		Description: "Save a durable note to long-term memory. Use for preferences, facts, and standing instructions worth remembering across sessions.",
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"note": map[string]any{"type": "string"},
			},
			"required": []any{"note"},
		},
	}
}

func (t *MemoryTool) Run(ctx context.Context, args map[string]any) (*models.ToolResult, error) {
	note, _ := args["note"].(string)
	if strings.TrimSpace(note) == "" {
		return &models.ToolResult{OK: false, Content: "note must not be empty"}, nil
	}
	if err := t.store.AppendLongTermNote(note); err != nil {
		return nil, err
	}
	return &models.ToolResult{OK: true, Content: "Noted."}, nil
}
