package models

// ToolSpec describes a callable capability to the model. InputSchema is a
// JSON Schema document for the tool's arguments.
type ToolSpec struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	InputSchema map[string]any `json:"input_schema"`
}

// ToolResult is the outcome of one tool execution. When
// RequiresConfirmation is set the tool did not run; Proposed carries the
// invocation to hold for operator approval.
type ToolResult struct {
	OK                   bool            `json:"ok"`
	Content              string          `json:"content"`
	Artifacts            []Attachment    `json:"artifacts,omitempty"`
	RequiresConfirmation bool            `json:"requires_confirmation,omitempty"`
	Risk                 RiskLevel       `json:"risk_level,omitempty"`
	Proposed             *ProposedAction `json:"proposed_action,omitempty"`
}
