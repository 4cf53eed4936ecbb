package scheduler

import (
	"errors"
	"testing"
	"time"

	"github.com/haasonsaas/nexus-core/internal/store"
	"github.com/haasonsaas/nexus-core/pkg/models"
)

type firedReminder struct {
	chatID string
	text   string
}

func newTestScheduler(t *testing.T) (*Scheduler, *store.Store, chan firedReminder) {
	t.Helper()
	st, err := store.Open(":memory:")
	if err != nil {
		t.Fatalf("store.Open() error = %v", err)
	}
	t.Cleanup(func() { st.Close() })

	fired := make(chan firedReminder, 8)
	s := New(st, time.UTC, nil, func(chatID, text string) {
		fired <- firedReminder{chatID: chatID, text: text}
	})
	t.Cleanup(s.Stop)
	return s, st, fired
}

func TestSchedule_PersistsJob(t *testing.T) {
	s, st, _ := newTestScheduler(t)
	s.SetClock(func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) })

	job, err := s.Schedule("chat-1", "every monday at 8:00", "standup prep")
	if err != nil {
		t.Fatalf("Schedule() error = %v", err)
	}
	if job.Spec.Kind != models.JobCron || job.Spec.When != "0 8 * * 1" {
		t.Errorf("job spec = %+v", job.Spec)
	}

	stored, err := st.GetJob(job.JobID)
	if err != nil {
		t.Fatalf("GetJob() error = %v", err)
	}
	if stored.Spec.Text != "standup prep" {
		t.Errorf("stored text = %q", stored.Spec.Text)
	}
	if !stored.NextRunAt.Equal(time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)) {
		t.Errorf("NextRunAt = %v", stored.NextRunAt)
	}
}

func TestSchedule_BadPhrase(t *testing.T) {
	s, st, _ := newTestScheduler(t)
	if _, err := s.Schedule("chat-1", "whenever you feel like it", "x"); err == nil {
		t.Fatal("Schedule() expected error")
	}
	jobs, _ := st.ListJobs("")
	if len(jobs) != 0 {
		t.Errorf("bad phrase left %d jobs persisted", len(jobs))
	}
}

func TestCancel(t *testing.T) {
	s, st, _ := newTestScheduler(t)
	s.SetClock(func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) })

	job, err := s.Schedule("chat-1", "every day at 9:00", "water plants")
	if err != nil {
		t.Fatalf("Schedule() error = %v", err)
	}
	if err := s.Cancel(job.JobID); err != nil {
		t.Fatalf("Cancel() error = %v", err)
	}
	if _, err := st.GetJob(job.JobID); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("GetJob() after cancel error = %v, want ErrNotFound", err)
	}
	if err := s.Cancel(job.JobID); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("Cancel() repeat error = %v, want ErrNotFound", err)
	}
}

func TestUpdate(t *testing.T) {
	s, _, _ := newTestScheduler(t)
	s.SetClock(func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) })

	job, err := s.Schedule("chat-1", "every monday at 8:00", "old text")
	if err != nil {
		t.Fatalf("Schedule() error = %v", err)
	}

	updated, err := s.Update(job.JobID, "every friday at 9:00", "new text")
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if updated.Spec.When != "0 9 * * 5" || updated.Spec.Text != "new text" {
		t.Errorf("updated spec = %+v", updated.Spec)
	}

	// Text-only update keeps the trigger.
	updated, err = s.Update(job.JobID, "", "final text")
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if updated.Spec.When != "0 9 * * 5" || updated.Spec.Text != "final text" {
		t.Errorf("text-only update spec = %+v", updated.Spec)
	}
}

func TestOneShot_FiresAndDeletes(t *testing.T) {
	s, st, fired := newTestScheduler(t)

	// Persist a one-shot whose time already passed, then restore: it
	// should fire immediately and its row should disappear.
	past := time.Now().UTC().Add(-time.Minute)
	job := models.Job{
		JobID:     "job-past",
		ChatID:    "chat-1",
		Spec:      models.JobSpec{Kind: models.JobDate, When: past.Format(time.RFC3339), Text: "late reminder"},
		NextRunAt: past,
	}
	if err := st.UpsertJob(job); err != nil {
		t.Fatalf("UpsertJob() error = %v", err)
	}

	loaded, failed := s.Restore()
	if loaded != 1 || failed != 0 {
		t.Fatalf("Restore() = (%d, %d), want (1, 0)", loaded, failed)
	}

	select {
	case f := <-fired:
		if f.chatID != "chat-1" || f.text != "late reminder" {
			t.Errorf("fired = %+v", f)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("one-shot did not fire")
	}

	deadline := time.Now().Add(2 * time.Second)
	for {
		if _, err := st.GetJob("job-past"); errors.Is(err, store.ErrNotFound) {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("fired one-shot row not deleted")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestRestore_CronRefreshesNextRun(t *testing.T) {
	s, st, _ := newTestScheduler(t)
	s.SetClock(func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) })

	stale := time.Date(2026, 2, 23, 8, 0, 0, 0, time.UTC)
	job := models.Job{
		JobID:     "job-cron",
		ChatID:    "chat-1",
		Spec:      models.JobSpec{Kind: models.JobCron, When: "0 8 * * 1", Text: "standup"},
		NextRunAt: stale,
	}
	if err := st.UpsertJob(job); err != nil {
		t.Fatalf("UpsertJob() error = %v", err)
	}

	loaded, failed := s.Restore()
	if loaded != 1 || failed != 0 {
		t.Fatalf("Restore() = (%d, %d), want (1, 0)", loaded, failed)
	}

	restored, err := st.GetJob("job-cron")
	if err != nil {
		t.Fatalf("GetJob() error = %v", err)
	}
	want := time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)
	if !restored.NextRunAt.Equal(want) {
		t.Errorf("NextRunAt = %v, want %v", restored.NextRunAt, want)
	}
}

func TestRestore_CountsUnparseableJobs(t *testing.T) {
	s, st, _ := newTestScheduler(t)

	job := models.Job{
		JobID:     "job-bad",
		ChatID:    "chat-1",
		Spec:      models.JobSpec{Kind: models.JobCron, When: "not a cron spec", Text: "x"},
		NextRunAt: time.Now(),
	}
	if err := st.UpsertJob(job); err != nil {
		t.Fatalf("UpsertJob() error = %v", err)
	}

	loaded, failed := s.Restore()
	if loaded != 0 || failed != 1 {
		t.Errorf("Restore() = (%d, %d), want (0, 1)", loaded, failed)
	}
}
