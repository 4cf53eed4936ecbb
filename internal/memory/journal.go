package memory

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// Journal appends timestamped event lines to per-day Markdown files in the
// memories directory. The files double as the "Recent Daily Notes" prompt
// section on later days.
type Journal struct {
	mu  sync.Mutex
	dir string
	loc *time.Location
	now func() time.Time
}

// NewJournal creates a journal writing into dir using loc for day bounds.
func NewJournal(dir string, loc *time.Location) *Journal {
	if loc == nil {
		loc = time.Local
	}
	return &Journal{dir: dir, loc: loc, now: time.Now}
}

// SetClock overrides the time source. Test hook.
func (j *Journal) SetClock(now func() time.Time) { j.now = now }

// AppendEvent writes one bullet to today's journal, creating the file with
// a heading on first use.
func (j *Journal) AppendEvent(line string) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	now := j.now().In(j.loc)
	day := now.Format("2006-01-02")
	path := filepath.Join(j.dir, day+".md")

	if _, err := os.Stat(path); os.IsNotExist(err) {
		header := fmt.Sprintf("# Journal %s\n\n", day)
		if err := os.WriteFile(path, []byte(header), 0o644); err != nil {
			return fmt.Errorf("creating journal file: %w", err)
		}
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("opening journal file: %w", err)
	}
	defer f.Close()

	entry := fmt.Sprintf("- %s %s\n", now.Format("15:04"), strings.TrimSpace(line))
	if _, err := f.WriteString(entry); err != nil {
		return fmt.Errorf("appending journal entry: %w", err)
	}
	return nil
}
