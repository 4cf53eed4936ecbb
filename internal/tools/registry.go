// Package tools defines the capability contract the reasoning loop
// dispatches to, and the registry that validates and executes calls.
package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/haasonsaas/nexus-core/internal/observability"
	"github.com/haasonsaas/nexus-core/pkg/models"
)

// MaxToolNameLength bounds registered tool names.
const MaxToolNameLength = 256

// Tool is one callable capability.
type Tool interface {
	Name() string
	Spec() models.ToolSpec
	Run(ctx context.Context, args map[string]any) (*models.ToolResult, error)
}

// Registry holds the registered tools and validates arguments against each
// tool's input schema before dispatch.
type Registry struct {
	mu      sync.RWMutex
	tools   map[string]Tool
	schemas map[string]*jsonschema.Schema
	logger  *slog.Logger
	metrics *observability.Metrics
}

// NewRegistry creates an empty registry.
func NewRegistry(logger *slog.Logger, metrics *observability.Metrics) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		tools:   make(map[string]Tool),
		schemas: make(map[string]*jsonschema.Schema),
		logger:  logger,
		metrics: metrics,
	}
}

// Register adds a tool. The tool's input schema is compiled once here;
// a schema that fails to compile rejects the registration.
func (r *Registry) Register(tool Tool) error {
	name := tool.Name()
	if name == "" || len(name) > MaxToolNameLength {
		return fmt.Errorf("invalid tool name %q", name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.tools[name]; exists {
		return fmt.Errorf("tool %q already registered", name)
	}

	if schemaMap := tool.Spec().InputSchema; len(schemaMap) > 0 {
		raw, err := json.Marshal(schemaMap)
		if err != nil {
			return fmt.Errorf("encoding schema for %q: %w", name, err)
		}
		schema, err := jsonschema.CompileString(name+".schema.json", string(raw))
		if err != nil {
			return fmt.Errorf("compiling schema for %q: %w", name, err)
		}
		r.schemas[name] = schema
	}

	r.tools[name] = tool
	r.logger.Debug("tool registered", "tool", name)
	return nil
}

// Specs returns every registered tool's spec, sorted by name.
func (r *Registry) Specs() []models.ToolSpec {
	r.mu.RLock()
	defer r.mu.RUnlock()

	specs := make([]models.ToolSpec, 0, len(r.tools))
	for _, tool := range r.tools {
		specs = append(specs, tool.Spec())
	}
	sort.Slice(specs, func(i, j int) bool { return specs[i].Name < specs[j].Name })
	return specs
}

// Execute validates args and runs the named tool. Unknown tools, schema
// violations, and tool failures all come back as error-carrying results
// rather than Go errors: the loop feeds them to the model as observations.
func (r *Registry) Execute(ctx context.Context, name string, args map[string]any) *models.ToolResult {
	r.mu.RLock()
	tool, ok := r.tools[name]
	schema := r.schemas[name]
	r.mu.RUnlock()

	if !ok {
		return &models.ToolResult{OK: false, Content: fmt.Sprintf("Unknown tool '%s'", name)}
	}

	if args == nil {
		args = map[string]any{}
	}
	if schema != nil {
		if err := schema.Validate(normalize(args)); err != nil {
			if r.metrics != nil {
				r.metrics.RecordToolExecution(name, false)
			}
			return &models.ToolResult{
				OK:      false,
				Content: fmt.Sprintf("Invalid arguments for tool '%s': %v", name, err),
			}
		}
	}

	result, err := tool.Run(ctx, args)
	if err != nil {
		r.logger.Warn("tool execution failed", "tool", name, "error", err)
		if r.metrics != nil {
			r.metrics.RecordToolExecution(name, false)
		}
		return &models.ToolResult{OK: false, Content: fmt.Sprintf("Tool '%s' failed: %v", name, err)}
	}
	if result == nil {
		result = &models.ToolResult{OK: true}
	}
	if r.metrics != nil {
		r.metrics.RecordToolExecution(name, result.OK)
	}
	return result
}

// normalize round-trips args through JSON so the validator sees the plain
// types it expects regardless of how the map was built.
func normalize(args map[string]any) any {
	raw, err := json.Marshal(args)
	if err != nil {
		return args
	}
	var out any
	if err := json.Unmarshal(raw, &out); err != nil {
		return args
	}
	return out
}
