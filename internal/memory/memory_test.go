package memory

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestStore_SessionWindowEviction(t *testing.T) {
	s := NewStore(t.TempDir(), 3, time.UTC)

	for _, text := range []string{"one", "two", "three", "four"} {
		s.AppendTurn("chat-1", "user", text)
	}

	turns := s.SessionTurns("chat-1", 0)
	if len(turns) != 3 {
		t.Fatalf("window holds %d turns, want 3", len(turns))
	}
	if turns[0].Content != "two" || turns[2].Content != "four" {
		t.Errorf("window = %v, oldest should be evicted", turns)
	}

	limited := s.SessionTurns("chat-1", 2)
	if len(limited) != 2 || limited[0].Content != "three" {
		t.Errorf("SessionTurns(2) = %v, want last two", limited)
	}
}

func TestStore_SessionIsolationPerChat(t *testing.T) {
	s := NewStore(t.TempDir(), 5, time.UTC)
	s.AppendTurn("chat-a", "user", "hello a")
	s.AppendTurn("chat-b", "user", "hello b")

	if turns := s.SessionTurns("chat-a", 0); len(turns) != 1 || turns[0].Content != "hello a" {
		t.Errorf("chat-a turns = %v", turns)
	}
}

func TestStore_AppendLongTermNoteCreatesFile(t *testing.T) {
	dir := t.TempDir()
	s := NewStore(dir, 20, time.UTC)
	s.SetClock(func() time.Time { return time.Date(2026, 3, 5, 9, 0, 0, 0, time.UTC) })

	if err := s.AppendLongTermNote("prefers short replies"); err != nil {
		t.Fatalf("AppendLongTermNote() error = %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dir, "MEMORY.md"))
	if err != nil {
		t.Fatalf("reading notes: %v", err)
	}
	content := string(data)
	if !strings.HasPrefix(content, "# Long-Term Memory") {
		t.Errorf("notes file missing header: %q", content)
	}
	if !strings.Contains(content, "- [2026-03-05] prefers short replies") {
		t.Errorf("note not appended: %q", content)
	}
}

func TestStore_RelevantMemoryScoring(t *testing.T) {
	dir := t.TempDir()
	notes := `# Long-Term Memory

## Groceries
buy milk and eggs weekly

## Flights
prefers window seats on flights, airline miles number saved

## Music
likes jazz
`
	if err := os.WriteFile(filepath.Join(dir, "MEMORY.md"), []byte(notes), 0o644); err != nil {
		t.Fatal(err)
	}
	s := NewStore(dir, 20, time.UTC)

	secs, err := s.RelevantMemory("book me a flight with a window seat", 1)
	if err != nil {
		t.Fatalf("RelevantMemory() error = %v", err)
	}
	if len(secs) != 1 {
		t.Fatalf("RelevantMemory() = %d sections, want 1", len(secs))
	}
	if !strings.Contains(secs[0].Heading, "Flights") {
		t.Errorf("top section = %q, want Flights", secs[0].Heading)
	}
}

func TestStore_RelevantMemoryFallback(t *testing.T) {
	dir := t.TempDir()
	notes := "# Long-Term Memory\n\n## A\nalpha\n\n## B\nbeta\n\n## C\ngamma\n"
	if err := os.WriteFile(filepath.Join(dir, "MEMORY.md"), []byte(notes), 0o644); err != nil {
		t.Fatal(err)
	}
	s := NewStore(dir, 20, time.UTC)

	secs, err := s.RelevantMemory("zzz qqq xxx", 2)
	if err != nil {
		t.Fatalf("RelevantMemory() error = %v", err)
	}
	if len(secs) != 2 {
		t.Fatalf("fallback returned %d sections, want first 2", len(secs))
	}
	if !strings.Contains(secs[0].Heading, "Long-Term Memory") {
		t.Errorf("fallback should keep file order, got %q first", secs[0].Heading)
	}
}

func TestStore_RelevantMemoryMissingFile(t *testing.T) {
	s := NewStore(t.TempDir(), 20, time.UTC)
	secs, err := s.RelevantMemory("anything", 3)
	if err != nil {
		t.Fatalf("RelevantMemory() error = %v", err)
	}
	if secs != nil {
		t.Errorf("RelevantMemory() = %v, want nil for missing file", secs)
	}
}

func TestStore_RecentDailyNotes(t *testing.T) {
	dir := t.TempDir()
	files := map[string]string{
		"2026-03-01.md": "# Journal 2026-03-01\n- 09:00 a\n",
		"2026-03-02.md": "# Journal 2026-03-02\n- 09:00 b\n",
		"2026-03-03.md": "# Journal 2026-03-03\n- 09:00 c\n",
		"notes.txt":     "not a journal",
	}
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	s := NewStore(dir, 20, time.UTC)

	notes, err := s.RecentDailyNotes(2)
	if err != nil {
		t.Fatalf("RecentDailyNotes() error = %v", err)
	}
	if len(notes) != 2 {
		t.Fatalf("RecentDailyNotes() = %d, want 2", len(notes))
	}
	if notes[0].Date != "2026-03-03" || notes[1].Date != "2026-03-02" {
		t.Errorf("order = [%s, %s], want newest first", notes[0].Date, notes[1].Date)
	}
}

func TestJournal_AppendEvent(t *testing.T) {
	dir := t.TempDir()
	j := NewJournal(dir, time.UTC)
	j.SetClock(func() time.Time { return time.Date(2026, 3, 5, 14, 30, 0, 0, time.UTC) })

	if err := j.AppendEvent("replied to chat-1"); err != nil {
		t.Fatalf("AppendEvent() error = %v", err)
	}
	if err := j.AppendEvent("scheduled reminder"); err != nil {
		t.Fatalf("AppendEvent() error = %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dir, "2026-03-05.md"))
	if err != nil {
		t.Fatalf("reading journal: %v", err)
	}
	content := string(data)
	if !strings.HasPrefix(content, "# Journal 2026-03-05") {
		t.Errorf("missing header: %q", content)
	}
	if !strings.Contains(content, "- 14:30 replied to chat-1") ||
		!strings.Contains(content, "- 14:30 scheduled reminder") {
		t.Errorf("entries missing: %q", content)
	}
}
