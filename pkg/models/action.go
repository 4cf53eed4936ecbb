package models

import "time"

// RiskLevel grades how dangerous a proposed tool action is. Anything above
// low requires an explicit yes from the operator before it runs.
type RiskLevel string

const (
	RiskLow    RiskLevel = "low"
	RiskMedium RiskLevel = "medium"
	RiskHigh   RiskLevel = "high"
)

// ValidRiskLevel reports whether s is one of the known risk levels.
func ValidRiskLevel(s string) bool {
	switch RiskLevel(s) {
	case RiskLow, RiskMedium, RiskHigh:
		return true
	}
	return false
}

// ActionStatus is the lifecycle state of a pending action.
type ActionStatus string

const (
	ActionPending  ActionStatus = "pending"
	ActionApproved ActionStatus = "approved"
	ActionDenied   ActionStatus = "denied"
	ActionExpired  ActionStatus = "expired"
)

// ProposedAction captures the tool invocation a confirmation gate is holding.
type ProposedAction struct {
	Tool string         `json:"tool"`
	Args map[string]any `json:"args"`
}

// PendingAction is a tool invocation awaiting operator confirmation.
// Expiry is lazy: rows past ExpiresAt stay 'pending' in storage until the
// next resolution attempt observes them and flips them to 'expired'.
type PendingAction struct {
	ActionID  string         `json:"action_id"`
	ToolName  string         `json:"tool_name"`
	Risk      RiskLevel      `json:"risk_level"`
	Proposed  ProposedAction `json:"proposed_args"`
	Status    ActionStatus   `json:"status"`
	ChatID    string         `json:"chat_id"`
	CreatedAt time.Time      `json:"created_at"`
	ExpiresAt time.Time      `json:"expires_at"`
}

// Expired reports whether the action's confirmation window has closed.
func (a *PendingAction) Expired(now time.Time) bool {
	return now.After(a.ExpiresAt)
}
