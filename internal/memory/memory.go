// Package memory keeps the assistant's working context: in-process session
// windows per chat, the long-term MEMORY.md notes file, and dated journal
// files, all living as plain Markdown in the memories directory.
package memory

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"
)

const (
	notesFileName = "MEMORY.md"
	notesHeader   = "# Long-Term Memory\n\nNotes the assistant should remember across sessions.\n"
)

var dailyNoteName = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}\.md$`)

// Turn is one conversation exchange kept in the session window.
type Turn struct {
	Role    string
	Content string
}

// Section is a scored slice of the long-term notes file.
type Section struct {
	Heading string
	Body    string
}

// DailyNote is one journal file's content.
type DailyNote struct {
	Date    string
	Content string
}

// Store manages session windows and the Markdown memory files.
type Store struct {
	mu          sync.Mutex
	dir         string
	windowTurns int
	loc         *time.Location
	now         func() time.Time
	sessions    map[string][]Turn
}

// NewStore creates a memory store rooted at dir. windowTurns caps the
// per-chat session window; values below 1 fall back to 20.
func NewStore(dir string, windowTurns int, loc *time.Location) *Store {
	if windowTurns < 1 {
		windowTurns = 20
	}
	if loc == nil {
		loc = time.Local
	}
	return &Store{
		dir:         dir,
		windowTurns: windowTurns,
		loc:         loc,
		now:         time.Now,
		sessions:    make(map[string][]Turn),
	}
}

// SetClock overrides the time source. Test hook.
func (s *Store) SetClock(now func() time.Time) { s.now = now }

// AppendTurn records one exchange in a chat's session window, evicting the
// oldest turns past the cap.
func (s *Store) AppendTurn(chatID, role, content string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	turns := append(s.sessions[chatID], Turn{Role: role, Content: content})
	if excess := len(turns) - s.windowTurns; excess > 0 {
		turns = turns[excess:]
	}
	s.sessions[chatID] = turns
}

// SessionTurns returns up to limit most recent turns for a chat, oldest
// first. limit <= 0 returns the whole window.
func (s *Store) SessionTurns(chatID string, limit int) []Turn {
	s.mu.Lock()
	defer s.mu.Unlock()

	turns := s.sessions[chatID]
	if limit > 0 && len(turns) > limit {
		turns = turns[len(turns)-limit:]
	}
	out := make([]Turn, len(turns))
	copy(out, turns)
	return out
}

func (s *Store) notesPath() string { return filepath.Join(s.dir, notesFileName) }

// ensureNotes creates MEMORY.md with its header when absent.
func (s *Store) ensureNotes() error {
	if _, err := os.Stat(s.notesPath()); err == nil {
		return nil
	}
	return os.WriteFile(s.notesPath(), []byte(notesHeader), 0o644)
}

// AppendLongTermNote appends one dated bullet to MEMORY.md.
func (s *Store) AppendLongTermNote(note string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ensureNotes(); err != nil {
		return fmt.Errorf("creating notes file: %w", err)
	}
	f, err := os.OpenFile(s.notesPath(), os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("opening notes file: %w", err)
	}
	defer f.Close()

	line := fmt.Sprintf("- [%s] %s\n", s.now().In(s.loc).Format("2006-01-02"), strings.TrimSpace(note))
	if _, err := f.WriteString(line); err != nil {
		return fmt.Errorf("appending note: %w", err)
	}
	return nil
}

var tokenPattern = regexp.MustCompile(`[A-Za-z0-9_]+`)

// queryTokens extracts lowercase search terms longer than two characters.
func queryTokens(query string) []string {
	var out []string
	for _, tok := range tokenPattern.FindAllString(strings.ToLower(query), -1) {
		if len(tok) > 2 {
			out = append(out, tok)
		}
	}
	return out
}

// splitSections divides the notes file at Markdown headings. Content before
// the first heading becomes an unnamed section.
func splitSections(content string) []Section {
	var sections []Section
	var cur Section
	started := false
	for _, line := range strings.Split(content, "\n") {
		if strings.HasPrefix(line, "#") {
			if started && strings.TrimSpace(cur.Body) != "" || cur.Heading != "" {
				sections = append(sections, cur)
			}
			cur = Section{Heading: line}
			started = true
			continue
		}
		cur.Body += line + "\n"
		started = true
	}
	if cur.Heading != "" || strings.TrimSpace(cur.Body) != "" {
		sections = append(sections, cur)
	}
	return sections
}

// RelevantMemory returns up to limit sections of MEMORY.md scored by term
// frequency of the query tokens. When nothing matches it falls back to the
// first limit sections so the model always sees some long-term context.
func (s *Store) RelevantMemory(query string, limit int) ([]Section, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.notesPath())
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading notes file: %w", err)
	}
	sections := splitSections(string(data))
	if limit <= 0 || len(sections) == 0 {
		return nil, nil
	}

	tokens := queryTokens(query)
	type scored struct {
		sec   Section
		score int
		idx   int
	}
	var ranked []scored
	for i, sec := range sections {
		text := strings.ToLower(sec.Heading + "\n" + sec.Body)
		score := 0
		for _, tok := range tokens {
			score += strings.Count(text, tok)
		}
		ranked = append(ranked, scored{sec: sec, score: score, idx: i})
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].score != ranked[j].score {
			return ranked[i].score > ranked[j].score
		}
		return ranked[i].idx < ranked[j].idx
	})

	anyMatch := len(ranked) > 0 && ranked[0].score > 0
	var out []Section
	for _, r := range ranked {
		if len(out) >= limit {
			break
		}
		if anyMatch && r.score == 0 {
			continue
		}
		out = append(out, r.sec)
	}
	if !anyMatch {
		// Fallback: first limit sections in file order.
		out = out[:0]
		for i := 0; i < len(sections) && i < limit; i++ {
			out = append(out, sections[i])
		}
	}
	return out, nil
}

// RecentDailyNotes returns the contents of the most recent daily journal
// files, newest first. Filenames are YYYY-MM-DD.md so lexical order is
// date order.
func (s *Store) RecentDailyNotes(days int) ([]DailyNote, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("reading memory dir: %w", err)
	}
	var names []string
	for _, e := range entries {
		if !e.IsDir() && dailyNoteName.MatchString(e.Name()) {
			names = append(names, e.Name())
		}
	}
	sort.Sort(sort.Reverse(sort.StringSlice(names)))
	if days > 0 && len(names) > days {
		names = names[:days]
	}

	var out []DailyNote
	for _, name := range names {
		data, err := os.ReadFile(filepath.Join(s.dir, name))
		if err != nil {
			return nil, fmt.Errorf("reading daily note %s: %w", name, err)
		}
		out = append(out, DailyNote{Date: strings.TrimSuffix(name, ".md"), Content: string(data)})
	}
	return out, nil
}
