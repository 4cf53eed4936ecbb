// Package workspace manages the prompt scaffold directory: system.md and
// the optional persona files the context builder folds into every system
// prompt. File contents are cached and invalidated by a filesystem watcher,
// so edits land on the next message without a restart.
package workspace

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
)

// SystemFile is the required scaffold file.
const SystemFile = "system.md"

// OptionalFiles are folded into the system prompt when present, in order.
var OptionalFiles = []string{"SOUL.md", "IDENTITY.md", "AGENTS.md"}

// ErrMissingSystemPrompt is returned when system.md does not exist.
var ErrMissingSystemPrompt = errors.New("workspace: system.md not found")

const defaultSystemPrompt = `# System

You are nexus, a personal assistant reachable over WhatsApp and the
terminal. Answer in the operator's language, keep replies short, and use
tools when a request needs real-world action.

Respond with a single JSON object per step:
  {"thought": "...", "call": {"name": "...", "arguments": {...}}}
or
  {"thought": "...", "response": "..."}
"thought" is always required. Exactly one of "call" or "response" must be
present.
`

// Workspace caches the scaffold files under one directory.
type Workspace struct {
	dir    string
	logger *slog.Logger

	mu      sync.Mutex
	cache   map[string]string
	watcher *fsnotify.Watcher
}

// New opens the workspace at dir, writing a starter system.md when the
// directory is empty, and starts the change watcher.
func New(dir string, logger *slog.Logger) (*Workspace, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating workspace dir: %w", err)
	}

	systemPath := filepath.Join(dir, SystemFile)
	if _, err := os.Stat(systemPath); os.IsNotExist(err) {
		if err := os.WriteFile(systemPath, []byte(defaultSystemPrompt), 0o644); err != nil {
			return nil, fmt.Errorf("writing starter system prompt: %w", err)
		}
		logger.Info("wrote starter system prompt", "path", systemPath)
	}

	w := &Workspace{dir: dir, logger: logger, cache: make(map[string]string)}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		// Degrade to uncached reads rather than failing startup.
		logger.Warn("workspace watcher unavailable, caching disabled", "error", err)
		return w, nil
	}
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		logger.Warn("workspace watcher unavailable, caching disabled", "error", err)
		return w, nil
	}
	w.watcher = watcher
	go w.watch()
	return w, nil
}

func (w *Workspace) watch() {
	for {
		select {
		case ev, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) != 0 {
				name := filepath.Base(ev.Name)
				w.mu.Lock()
				delete(w.cache, name)
				w.mu.Unlock()
				w.logger.Debug("workspace file changed", "file", name)
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("workspace watcher error", "error", err)
		}
	}
}

// Close stops the watcher.
func (w *Workspace) Close() error {
	if w.watcher != nil {
		return w.watcher.Close()
	}
	return nil
}

// read returns a file's content, caching when the watcher is active.
func (w *Workspace) read(name string) (string, error) {
	if w.watcher != nil {
		w.mu.Lock()
		if content, ok := w.cache[name]; ok {
			w.mu.Unlock()
			return content, nil
		}
		w.mu.Unlock()
	}

	data, err := os.ReadFile(filepath.Join(w.dir, name))
	if err != nil {
		return "", err
	}
	content := string(data)

	if w.watcher != nil {
		w.mu.Lock()
		w.cache[name] = content
		w.mu.Unlock()
	}
	return content, nil
}

// SystemPrompt returns system.md, which must exist.
func (w *Workspace) SystemPrompt() (string, error) {
	content, err := w.read(SystemFile)
	if os.IsNotExist(err) {
		return "", ErrMissingSystemPrompt
	}
	if err != nil {
		return "", fmt.Errorf("reading system prompt: %w", err)
	}
	return content, nil
}

// Optional returns a persona file's content, or "" when absent.
func (w *Workspace) Optional(name string) string {
	content, err := w.read(name)
	if err != nil {
		return ""
	}
	return content
}
