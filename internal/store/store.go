// Package store is the durable state layer: one embedded SQLite database
// holding conversation history, the exactly-once message ledger, pending
// confirmation gates, scheduled jobs, and the audit trail.
//
// The core is a single-operator process, so all access is serialized under
// one mutex rather than relying on SQLite's own locking. Timestamps are
// stored as RFC3339Nano UTC strings.
package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/haasonsaas/nexus-core/pkg/models"
)

// ErrNotFound is returned when a lookup matches no row.
var ErrNotFound = errors.New("store: not found")

// Direction labels a ledger entry.
type Direction string

const (
	DirectionInbound  Direction = "inbound"
	DirectionOutbound Direction = "outbound"
)

// Message is a persisted conversation turn.
type Message struct {
	ID        string
	Channel   models.Channel
	ChatID    string
	SenderID  string
	Role      models.Role
	Text      string
	TraceID   string
	CreatedAt time.Time
}

// AuditEvent is one row of the decision audit trail.
type AuditEvent struct {
	ID        int64
	TraceID   string
	EventType string
	Payload   map[string]any
	CreatedAt time.Time
}

// Store wraps the SQLite database.
type Store struct {
	mu  sync.Mutex
	db  *sql.DB
	now func() time.Time
}

const schema = `
CREATE TABLE IF NOT EXISTS messages (
	id         TEXT PRIMARY KEY,
	channel    TEXT NOT NULL,
	chat_id    TEXT NOT NULL,
	sender_id  TEXT NOT NULL,
	role       TEXT NOT NULL,
	text       TEXT NOT NULL,
	trace_id   TEXT NOT NULL DEFAULT '',
	created_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_messages_chat_created ON messages(chat_id, created_at);

CREATE TABLE IF NOT EXISTS message_ledger (
	message_id TEXT PRIMARY KEY,
	direction  TEXT NOT NULL,
	chat_id    TEXT NOT NULL,
	created_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS pending_actions (
	action_id     TEXT PRIMARY KEY,
	tool_name     TEXT NOT NULL,
	risk_level    TEXT NOT NULL,
	expires_at    TEXT NOT NULL,
	proposed_args TEXT NOT NULL,
	status        TEXT NOT NULL,
	chat_id       TEXT NOT NULL,
	created_at    TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_pending_chat_status ON pending_actions(chat_id, status);

CREATE TABLE IF NOT EXISTS jobs (
	job_id      TEXT PRIMARY KEY,
	chat_id     TEXT NOT NULL,
	spec        TEXT NOT NULL,
	next_run_at TEXT NOT NULL,
	created_at  TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS audit_log (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	trace_id   TEXT NOT NULL,
	event_type TEXT NOT NULL,
	payload    TEXT NOT NULL,
	created_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_audit_trace ON audit_log(trace_id);
`

// Open opens (creating if needed) the database at path and ensures the
// schema exists. Use ":memory:" for tests.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	// A single connection keeps :memory: databases coherent and matches
	// the mutex-serialized access model.
	db.SetMaxOpenConns(1)

	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("applying %s: %w", pragma, err)
		}
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("initializing schema: %w", err)
	}

	return &Store{db: db, now: time.Now}, nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Close()
}

// SetClock overrides the store's time source. Test hook.
func (s *Store) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

// InsertMessage persists one conversation turn, replacing any previous
// row with the same id.
func (s *Store) InsertMessage(m Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if m.CreatedAt.IsZero() {
		m.CreatedAt = s.now()
	}
	_, err := s.db.Exec(
		`INSERT OR REPLACE INTO messages (id, channel, chat_id, sender_id, role, text, trace_id, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		m.ID, string(m.Channel), m.ChatID, m.SenderID, string(m.Role), m.Text, m.TraceID, formatTime(m.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("inserting message: %w", err)
	}
	return nil
}

// RecentMessages returns up to limit turns for a chat, oldest first.
func (s *Store) RecentMessages(chatID string, limit int) ([]Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.Query(
		`SELECT id, channel, chat_id, sender_id, role, text, trace_id, created_at
		 FROM messages WHERE chat_id = ?
		 ORDER BY created_at DESC, rowid DESC LIMIT ?`,
		chatID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("querying messages: %w", err)
	}
	defer rows.Close()

	var out []Message
	for rows.Next() {
		var m Message
		var channel, role, created string
		if err := rows.Scan(&m.ID, &channel, &m.ChatID, &m.SenderID, &role, &m.Text, &m.TraceID, &created); err != nil {
			return nil, fmt.Errorf("scanning message: %w", err)
		}
		m.Channel = models.Channel(channel)
		m.Role = models.Role(role)
		m.CreatedAt = parseTime(created)
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Reverse to oldest-first.
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}

// ClaimLedger attempts to claim a message ID for processing. It returns
// true exactly once per ID; replays and duplicates return false.
func (s *Store) ClaimLedger(messageID string, direction Direction, chatID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.Exec(
		`INSERT OR IGNORE INTO message_ledger (message_id, direction, chat_id, created_at)
		 VALUES (?, ?, ?, ?)`,
		messageID, string(direction), chatID, formatTime(s.now()),
	)
	if err != nil {
		return false, fmt.Errorf("claiming ledger entry: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// InsertLedger records a message ID unconditionally (outbound sends and
// delivery receipts). Duplicate IDs are ignored.
func (s *Store) InsertLedger(messageID string, direction Direction, chatID string) error {
	_, err := s.ClaimLedger(messageID, direction, chatID)
	return err
}

// LedgerContains reports whether a message ID is present, optionally
// restricted to one direction (pass "" for any).
func (s *Store) LedgerContains(messageID string, direction Direction) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var query string
	var args []any
	if direction == "" {
		query = `SELECT COUNT(1) FROM message_ledger WHERE message_id = ?`
		args = []any{messageID}
	} else {
		query = `SELECT COUNT(1) FROM message_ledger WHERE message_id = ? AND direction = ?`
		args = []any{messageID, string(direction)}
	}
	var n int
	if err := s.db.QueryRow(query, args...).Scan(&n); err != nil {
		return false, fmt.Errorf("checking ledger: %w", err)
	}
	return n > 0, nil
}

// InsertPendingAction stores a new confirmation gate.
func (s *Store) InsertPendingAction(a models.PendingAction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	proposed, err := json.Marshal(a.Proposed)
	if err != nil {
		return fmt.Errorf("encoding proposed action: %w", err)
	}
	_, err = s.db.Exec(
		`INSERT INTO pending_actions (action_id, tool_name, risk_level, expires_at, proposed_args, status, chat_id, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ActionID, a.ToolName, string(a.Risk), formatTime(a.ExpiresAt), string(proposed),
		string(a.Status), a.ChatID, formatTime(a.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("inserting pending action: %w", err)
	}
	return nil
}

// LatestPendingAction returns the newest action still marked pending for a
// chat, or ErrNotFound. Rowid breaks created_at ties.
func (s *Store) LatestPendingAction(chatID string) (*models.PendingAction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	row := s.db.QueryRow(
		`SELECT action_id, tool_name, risk_level, expires_at, proposed_args, status, chat_id, created_at
		 FROM pending_actions WHERE chat_id = ? AND status = 'pending'
		 ORDER BY created_at DESC, rowid DESC LIMIT 1`,
		chatID,
	)
	return scanPendingAction(row)
}

func scanPendingAction(row *sql.Row) (*models.PendingAction, error) {
	var a models.PendingAction
	var risk, status, expires, created, proposed string
	err := row.Scan(&a.ActionID, &a.ToolName, &risk, &expires, &proposed, &status, &a.ChatID, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scanning pending action: %w", err)
	}
	a.Risk = models.RiskLevel(risk)
	a.Status = models.ActionStatus(status)
	a.ExpiresAt = parseTime(expires)
	a.CreatedAt = parseTime(created)
	if err := json.Unmarshal([]byte(proposed), &a.Proposed); err != nil {
		return nil, fmt.Errorf("decoding proposed action: %w", err)
	}
	return &a, nil
}

// GetPendingAction returns an action by ID, regardless of status.
func (s *Store) GetPendingAction(actionID string) (*models.PendingAction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	row := s.db.QueryRow(
		`SELECT action_id, tool_name, risk_level, expires_at, proposed_args, status, chat_id, created_at
		 FROM pending_actions WHERE action_id = ?`,
		actionID,
	)
	return scanPendingAction(row)
}

// UpdatePendingStatus transitions an action to a terminal status.
func (s *Store) UpdatePendingStatus(actionID string, status models.ActionStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.Exec(
		`UPDATE pending_actions SET status = ? WHERE action_id = ?`,
		string(status), actionID,
	)
	if err != nil {
		return fmt.Errorf("updating pending action: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// UpsertJob inserts or replaces a scheduled job.
func (s *Store) UpsertJob(j models.Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	spec, err := json.Marshal(j.Spec)
	if err != nil {
		return fmt.Errorf("encoding job spec: %w", err)
	}
	if j.CreatedAt.IsZero() {
		j.CreatedAt = s.now()
	}
	_, err = s.db.Exec(
		`INSERT OR REPLACE INTO jobs (job_id, chat_id, spec, next_run_at, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		j.JobID, j.ChatID, string(spec), formatTime(j.NextRunAt), formatTime(j.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("upserting job: %w", err)
	}
	return nil
}

// GetJob returns a job by ID or ErrNotFound.
func (s *Store) GetJob(jobID string) (*models.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	row := s.db.QueryRow(
		`SELECT job_id, chat_id, spec, next_run_at, created_at FROM jobs WHERE job_id = ?`,
		jobID,
	)
	var j models.Job
	var spec, next, created string
	err := row.Scan(&j.JobID, &j.ChatID, &spec, &next, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scanning job: %w", err)
	}
	if err := json.Unmarshal([]byte(spec), &j.Spec); err != nil {
		return nil, fmt.Errorf("decoding job spec: %w", err)
	}
	j.NextRunAt = parseTime(next)
	j.CreatedAt = parseTime(created)
	return &j, nil
}

// ListJobs returns jobs ordered by next run time. Pass "" to list all chats.
func (s *Store) ListJobs(chatID string) ([]models.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var rows *sql.Rows
	var err error
	if chatID == "" {
		rows, err = s.db.Query(
			`SELECT job_id, chat_id, spec, next_run_at, created_at FROM jobs ORDER BY next_run_at`)
	} else {
		rows, err = s.db.Query(
			`SELECT job_id, chat_id, spec, next_run_at, created_at FROM jobs WHERE chat_id = ? ORDER BY next_run_at`,
			chatID)
	}
	if err != nil {
		return nil, fmt.Errorf("querying jobs: %w", err)
	}
	defer rows.Close()

	var out []models.Job
	for rows.Next() {
		var j models.Job
		var spec, next, created string
		if err := rows.Scan(&j.JobID, &j.ChatID, &spec, &next, &created); err != nil {
			return nil, fmt.Errorf("scanning job: %w", err)
		}
		if err := json.Unmarshal([]byte(spec), &j.Spec); err != nil {
			return nil, fmt.Errorf("decoding job spec: %w", err)
		}
		j.NextRunAt = parseTime(next)
		j.CreatedAt = parseTime(created)
		out = append(out, j)
	}
	return out, rows.Err()
}

// DeleteJob removes a job. Missing IDs are not an error.
func (s *Store) DeleteJob(jobID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.db.Exec(`DELETE FROM jobs WHERE job_id = ?`, jobID); err != nil {
		return fmt.Errorf("deleting job: %w", err)
	}
	return nil
}

// UpdateJobNextRun refreshes a job's next fire time after a cron trigger.
func (s *Store) UpdateJobNextRun(jobID string, next time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.Exec(
		`UPDATE jobs SET next_run_at = ? WHERE job_id = ?`,
		formatTime(next), jobID,
	)
	if err != nil {
		return fmt.Errorf("updating job: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// InsertAudit appends one event to the audit trail.
func (s *Store) InsertAudit(traceID, eventType string, payload map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if payload == nil {
		payload = map[string]any{}
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encoding audit payload: %w", err)
	}
	_, err = s.db.Exec(
		`INSERT INTO audit_log (trace_id, event_type, payload, created_at)
		 VALUES (?, ?, ?, ?)`,
		traceID, eventType, string(data), formatTime(s.now()),
	)
	if err != nil {
		return fmt.Errorf("inserting audit event: %w", err)
	}
	return nil
}

// RecentAudit returns the latest audit events, newest first. Pass a trace
// ID to follow one message's path through the pipeline, or "" for all.
func (s *Store) RecentAudit(traceID string, limit int) ([]AuditEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var rows *sql.Rows
	var err error
	if traceID == "" {
		rows, err = s.db.Query(
			`SELECT id, trace_id, event_type, payload, created_at FROM audit_log
			 ORDER BY id DESC LIMIT ?`, limit)
	} else {
		rows, err = s.db.Query(
			`SELECT id, trace_id, event_type, payload, created_at FROM audit_log
			 WHERE trace_id = ? ORDER BY id DESC LIMIT ?`, traceID, limit)
	}
	if err != nil {
		return nil, fmt.Errorf("querying audit log: %w", err)
	}
	defer rows.Close()

	var out []AuditEvent
	for rows.Next() {
		var e AuditEvent
		var payload, created string
		if err := rows.Scan(&e.ID, &e.TraceID, &e.EventType, &payload, &created); err != nil {
			return nil, fmt.Errorf("scanning audit event: %w", err)
		}
		if err := json.Unmarshal([]byte(payload), &e.Payload); err != nil {
			return nil, fmt.Errorf("decoding audit payload: %w", err)
		}
		e.CreatedAt = parseTime(created)
		out = append(out, e)
	}
	return out, rows.Err()
}
