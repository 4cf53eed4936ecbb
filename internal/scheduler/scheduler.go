// Package scheduler runs durable reminders: recurring cron jobs and
// one-shot timers, persisted in the store so a restart picks them back up.
package scheduler

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"github.com/haasonsaas/nexus-core/internal/store"
	"github.com/haasonsaas/nexus-core/pkg/models"
)

// FireFunc delivers a due reminder to its chat.
type FireFunc func(chatID, text string)

// Scheduler owns the cron runner and the outstanding one-shot timers.
type Scheduler struct {
	store  *store.Store
	loc    *time.Location
	logger *slog.Logger
	onFire FireFunc
	now    func() time.Time

	cron *cron.Cron

	mu      sync.Mutex
	entries map[string]cron.EntryID
	timers  map[string]*time.Timer
}

// New creates a scheduler. Call Start after restoring jobs.
func New(st *store.Store, loc *time.Location, logger *slog.Logger, onFire FireFunc) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	if loc == nil {
		loc = time.Local
	}
	return &Scheduler{
		store:   st,
		loc:     loc,
		logger:  logger,
		onFire:  onFire,
		now:     time.Now,
		cron:    cron.New(cron.WithLocation(loc)),
		entries: make(map[string]cron.EntryID),
		timers:  make(map[string]*time.Timer),
	}
}

// SetClock overrides the time source used for parsing and restore. Test
// hook; the cron runner itself stays on wall time.
func (s *Scheduler) SetClock(now func() time.Time) { s.now = now }

// Start begins firing cron jobs.
func (s *Scheduler) Start() { s.cron.Start() }

// Stop halts the cron runner and cancels outstanding one-shot timers
// without waiting for running fires.
func (s *Scheduler) Stop() {
	s.cron.Stop()
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, timer := range s.timers {
		timer.Stop()
		delete(s.timers, id)
	}
}

func nextCron(spec string, now time.Time) (time.Time, error) {
	sched, err := cron.ParseStandard(spec)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid cron spec %q: %w", spec, err)
	}
	return sched.Next(now), nil
}

// Schedule parses the trigger phrase, persists the job, and installs its
// trigger.
func (s *Scheduler) Schedule(chatID, when, text string) (*models.Job, error) {
	now := s.now().In(s.loc)
	spec, next, err := ParseWhen(when, s.loc, now)
	if err != nil {
		return nil, err
	}
	spec.Text = text

	job := models.Job{
		JobID:     uuid.NewString(),
		ChatID:    chatID,
		Spec:      spec,
		NextRunAt: next,
		CreatedAt: now,
	}
	if err := s.store.UpsertJob(job); err != nil {
		return nil, err
	}
	if err := s.install(job); err != nil {
		s.store.DeleteJob(job.JobID)
		return nil, err
	}
	s.logger.Info("job scheduled", "job_id", job.JobID, "kind", string(spec.Kind), "next_run", next)
	return &job, nil
}

// install wires a persisted job into the cron runner or a one-shot timer.
func (s *Scheduler) install(job models.Job) error {
	switch job.Spec.Kind {
	case models.JobCron:
		entryID, err := s.cron.AddFunc(job.Spec.When, func() { s.fireCron(job.JobID) })
		if err != nil {
			return fmt.Errorf("installing cron job: %w", err)
		}
		s.mu.Lock()
		s.entries[job.JobID] = entryID
		s.mu.Unlock()
	case models.JobDate:
		delay := job.NextRunAt.Sub(s.now())
		if delay < 0 {
			delay = 0
		}
		timer := time.AfterFunc(delay, func() { s.fireDate(job.JobID) })
		s.mu.Lock()
		s.timers[job.JobID] = timer
		s.mu.Unlock()
	default:
		return fmt.Errorf("unknown job kind %q", job.Spec.Kind)
	}
	return nil
}

// fireCron delivers a recurring reminder and refreshes its next run time.
func (s *Scheduler) fireCron(jobID string) {
	job, err := s.store.GetJob(jobID)
	if err != nil {
		s.logger.Warn("cron fire for missing job", "job_id", jobID, "error", err)
		s.removeTrigger(jobID)
		return
	}
	s.onFire(job.ChatID, job.Spec.Text)

	next, err := nextCron(job.Spec.When, s.now().In(s.loc))
	if err != nil {
		s.logger.Error("recomputing next run failed", "job_id", jobID, "error", err)
		return
	}
	if err := s.store.UpdateJobNextRun(jobID, next); err != nil {
		s.logger.Error("updating next run failed", "job_id", jobID, "error", err)
	}
}

// fireDate delivers a one-shot reminder and deletes its row.
func (s *Scheduler) fireDate(jobID string) {
	job, err := s.store.GetJob(jobID)
	if err != nil {
		s.logger.Warn("timer fire for missing job", "job_id", jobID, "error", err)
		return
	}
	s.onFire(job.ChatID, job.Spec.Text)

	if err := s.store.DeleteJob(jobID); err != nil {
		s.logger.Error("deleting fired job failed", "job_id", jobID, "error", err)
	}
	s.mu.Lock()
	delete(s.timers, jobID)
	s.mu.Unlock()
}

func (s *Scheduler) removeTrigger(jobID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if entryID, ok := s.entries[jobID]; ok {
		s.cron.Remove(entryID)
		delete(s.entries, jobID)
	}
	if timer, ok := s.timers[jobID]; ok {
		timer.Stop()
		delete(s.timers, jobID)
	}
}

// Cancel removes a job and its trigger. Unknown IDs return store.ErrNotFound.
func (s *Scheduler) Cancel(jobID string) error {
	if _, err := s.store.GetJob(jobID); err != nil {
		return err
	}
	s.removeTrigger(jobID)
	if err := s.store.DeleteJob(jobID); err != nil {
		return err
	}
	s.logger.Info("job cancelled", "job_id", jobID)
	return nil
}

// Update rewrites a job's trigger phrase and/or text, reinstalling the
// trigger. Empty arguments keep the current value.
func (s *Scheduler) Update(jobID, when, text string) (*models.Job, error) {
	job, err := s.store.GetJob(jobID)
	if err != nil {
		return nil, err
	}

	if when != "" {
		now := s.now().In(s.loc)
		spec, next, err := ParseWhen(when, s.loc, now)
		if err != nil {
			return nil, err
		}
		job.Spec.Kind = spec.Kind
		job.Spec.When = spec.When
		job.NextRunAt = next
	}
	if text != "" {
		job.Spec.Text = text
	}

	s.removeTrigger(jobID)
	if err := s.store.UpsertJob(*job); err != nil {
		return nil, err
	}
	if err := s.install(*job); err != nil {
		return nil, err
	}
	s.logger.Info("job updated", "job_id", jobID, "next_run", job.NextRunAt)
	return job, nil
}

// List returns jobs for a chat, or all jobs for "".
func (s *Scheduler) List(chatID string) ([]models.Job, error) {
	return s.store.ListJobs(chatID)
}

// Restore reinstalls persisted jobs after a restart. One-shots whose time
// already passed fire immediately (the reminder is late, not lost). The
// return values count jobs reinstalled and jobs that could not be.
func (s *Scheduler) Restore() (loaded, failed int) {
	jobs, err := s.store.ListJobs("")
	if err != nil {
		s.logger.Error("listing jobs for restore failed", "error", err)
		return 0, 0
	}

	now := s.now().In(s.loc)
	for _, job := range jobs {
		if job.Spec.Kind == models.JobCron {
			// Refresh next_run_at; fires missed while down are skipped.
			next, err := nextCron(job.Spec.When, now)
			if err != nil {
				s.logger.Warn("restoring job failed", "job_id", job.JobID, "error", err)
				failed++
				continue
			}
			job.NextRunAt = next
			if err := s.store.UpdateJobNextRun(job.JobID, next); err != nil {
				s.logger.Warn("restoring job failed", "job_id", job.JobID, "error", err)
				failed++
				continue
			}
		}
		if err := s.install(job); err != nil {
			s.logger.Warn("restoring job failed", "job_id", job.JobID, "error", err)
			failed++
			continue
		}
		loaded++
	}
	if loaded > 0 || failed > 0 {
		s.logger.Info("jobs restored", "loaded", loaded, "failed", failed)
	}
	return loaded, failed
}
