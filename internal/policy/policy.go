// Package policy gates risky tool actions behind operator confirmation.
// A proposed action is parked as a pending row with a TTL; the next plain
// yes/no style message from the operator resolves it. Expiry is lazy:
// nothing sweeps old rows, the next resolution attempt notices and marks
// them expired.
package policy

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/haasonsaas/nexus-core/internal/store"
	"github.com/haasonsaas/nexus-core/pkg/models"
)

// DefaultTTL is the confirmation window when none is configured.
const DefaultTTL = 10 * time.Minute

var (
	yesTokens = map[string]bool{"y": true, "yes": true, "approve": true, "confirm": true, "proceed": true}
	noTokens  = map[string]bool{"n": true, "no": true, "deny": true, "cancel": true, "stop": true}
)

// Answer is the operator's parsed confirmation intent.
type Answer int

const (
	AnswerYes Answer = iota
	AnswerNo
)

// ParseConfirmation reports whether text is a bare confirmation token.
// Only a message that is entirely one token counts; "yes please book it"
// is a new request, not a confirmation.
func ParseConfirmation(text string) (Answer, bool) {
	token := strings.ToLower(strings.TrimSpace(text))
	if yesTokens[token] {
		return AnswerYes, true
	}
	if noTokens[token] {
		return AnswerNo, true
	}
	return 0, false
}

// Engine creates and resolves pending actions against the store.
type Engine struct {
	store  *store.Store
	ttl    time.Duration
	logger *slog.Logger
	now    func() time.Time
}

// NewEngine creates a policy engine. ttl <= 0 uses DefaultTTL.
func NewEngine(st *store.Store, ttl time.Duration, logger *slog.Logger) *Engine {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{store: st, ttl: ttl, logger: logger, now: time.Now}
}

// SetClock overrides the time source. Test hook.
func (e *Engine) SetClock(now func() time.Time) { e.now = now }

// CreatePendingAction parks a proposed tool call for confirmation. An
// unknown risk level is coerced to medium rather than rejected.
func (e *Engine) CreatePendingAction(chatID string, proposed models.ProposedAction, risk string) (*models.PendingAction, error) {
	level := models.RiskLevel(strings.ToLower(strings.TrimSpace(risk)))
	if !models.ValidRiskLevel(string(level)) {
		level = models.RiskMedium
	}

	now := e.now()
	action := models.PendingAction{
		ActionID:  uuid.NewString(),
		ToolName:  proposed.Tool,
		Risk:      level,
		Proposed:  proposed,
		Status:    models.ActionPending,
		ChatID:    chatID,
		CreatedAt: now,
		ExpiresAt: now.Add(e.ttl),
	}
	if err := e.store.InsertPendingAction(action); err != nil {
		return nil, fmt.Errorf("parking pending action: %w", err)
	}
	e.logger.Info("pending action created",
		"action_id", action.ActionID, "tool", action.ToolName, "risk", string(level))
	return &action, nil
}

// ResolveFromText applies a confirmation message to the chat's latest
// pending action and returns the resolved action. It returns nil when the
// text is not a confirmation, when nothing is pending, or when the window
// already closed (the action is then marked expired); in every nil case
// the caller routes the text into normal reasoning instead.
func (e *Engine) ResolveFromText(chatID, text string) (*models.PendingAction, error) {
	answer, ok := ParseConfirmation(text)
	if !ok {
		return nil, nil
	}

	action, err := e.store.LatestPendingAction(chatID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("looking up pending action: %w", err)
	}

	if action.Expired(e.now()) {
		if err := e.store.UpdatePendingStatus(action.ActionID, models.ActionExpired); err != nil {
			return nil, fmt.Errorf("expiring pending action: %w", err)
		}
		e.logger.Info("pending action expired", "action_id", action.ActionID)
		return nil, nil
	}

	status := models.ActionDenied
	if answer == AnswerYes {
		status = models.ActionApproved
	}
	if err := e.store.UpdatePendingStatus(action.ActionID, status); err != nil {
		return nil, fmt.Errorf("resolving pending action: %w", err)
	}
	action.Status = status
	e.logger.Info("pending action resolved", "action_id", action.ActionID, "status", string(status))
	return action, nil
}
