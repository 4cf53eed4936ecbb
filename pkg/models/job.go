package models

import "time"

// JobKind distinguishes repeating cron reminders from one-shot dates.
type JobKind string

const (
	JobCron JobKind = "cron"
	JobDate JobKind = "date"
)

// JobSpec is the durable description of a reminder trigger. For cron jobs
// When holds a 5-field cron expression; for date jobs it holds an RFC3339
// timestamp in the configured timezone.
type JobSpec struct {
	Kind JobKind `json:"kind"`
	When string  `json:"when"`
	Text string  `json:"text"`
}

// Job is a scheduled reminder persisted across restarts.
type Job struct {
	JobID     string    `json:"job_id"`
	ChatID    string    `json:"chat_id"`
	Spec      JobSpec   `json:"spec"`
	NextRunAt time.Time `json:"next_run_at"`
	CreatedAt time.Time `json:"created_at"`
}
