// Package prompt assembles the message list for each reasoning step: the
// layered system prompt (scaffold files, tool specs, skills, long-term
// memory, recent journals), the session window, the user's message, and
// any intermediate turns the loop has accumulated.
package prompt

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/haasonsaas/nexus-core/internal/llm"
	"github.com/haasonsaas/nexus-core/internal/memory"
	"github.com/haasonsaas/nexus-core/internal/skills"
	"github.com/haasonsaas/nexus-core/internal/workspace"
	"github.com/haasonsaas/nexus-core/pkg/models"
)

const (
	// sessionTurnsInPrompt caps the history turns sent per request,
	// independent of the larger session window kept in memory.
	sessionTurnsInPrompt = 12

	memorySections = 4
	dailyNotesDays = 2
	dailyNoteClip  = 1500
)

// Builder assembles prompts from the workspace scaffold and memory files.
type Builder struct {
	ws        *workspace.Workspace
	mem       *memory.Store
	skillsDir string
	logger    *slog.Logger
}

// NewBuilder creates a prompt builder.
func NewBuilder(ws *workspace.Workspace, mem *memory.Store, skillsDir string, logger *slog.Logger) *Builder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Builder{ws: ws, mem: mem, skillsDir: skillsDir, logger: logger}
}

// SystemPrompt builds the layered system prompt for one request. The
// query steers which long-term memory sections are included.
func (b *Builder) SystemPrompt(query string, specs []models.ToolSpec) (string, error) {
	base, err := b.ws.SystemPrompt()
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	sb.WriteString(strings.TrimRight(base, "\n"))
	sb.WriteString("\n")

	for _, name := range workspace.OptionalFiles {
		if content := b.ws.Optional(name); content != "" {
			sb.WriteString("\n")
			sb.WriteString(strings.TrimRight(content, "\n"))
			sb.WriteString("\n")
		}
	}

	if len(specs) > 0 {
		sb.WriteString("\n## Tools\n\n")
		sb.WriteString("Available tools, callable via the \"call\" decision field:\n\n")
		for _, spec := range specs {
			data, err := json.Marshal(spec)
			if err != nil {
				return "", fmt.Errorf("encoding tool spec %s: %w", spec.Name, err)
			}
			sb.WriteString(string(data))
			sb.WriteString("\n")
		}
	}

	docs, err := skills.LoadDocuments(b.skillsDir)
	if err != nil {
		b.logger.Warn("loading skills failed", "error", err)
	}
	if len(docs) > 0 {
		sb.WriteString("\n## Skills\n")
		for _, doc := range docs {
			sb.WriteString("\n")
			sb.WriteString(strings.TrimRight(doc.Content, "\n"))
			sb.WriteString("\n")
		}
	}

	sections, err := b.mem.RelevantMemory(query, memorySections)
	if err != nil {
		b.logger.Warn("loading long-term memory failed", "error", err)
	}
	if len(sections) > 0 {
		sb.WriteString("\n## Long-Term Memory\n")
		for _, sec := range sections {
			sb.WriteString("\n")
			if sec.Heading != "" {
				sb.WriteString(sec.Heading)
				sb.WriteString("\n")
			}
			if body := strings.TrimSpace(sec.Body); body != "" {
				sb.WriteString(body)
				sb.WriteString("\n")
			}
		}
	}

	notes, err := b.mem.RecentDailyNotes(dailyNotesDays)
	if err != nil {
		b.logger.Warn("loading daily notes failed", "error", err)
	}
	if len(notes) > 0 {
		sb.WriteString("\n## Recent Daily Notes\n")
		for _, note := range notes {
			content := note.Content
			if len(content) > dailyNoteClip {
				content = content[:dailyNoteClip] + "\n...(truncated)"
			}
			sb.WriteString("\n")
			sb.WriteString(strings.TrimRight(content, "\n"))
			sb.WriteString("\n")
		}
	}

	return sb.String(), nil
}

// BuildMessages produces the full message list for one reasoning step.
func (b *Builder) BuildMessages(chatID, userText string, specs []models.ToolSpec, step []llm.Message) ([]llm.Message, error) {
	system, err := b.SystemPrompt(userText, specs)
	if err != nil {
		return nil, err
	}

	messages := []llm.Message{{Role: "system", Content: system}}
	for _, turn := range b.mem.SessionTurns(chatID, sessionTurnsInPrompt) {
		messages = append(messages, llm.Message{Role: turn.Role, Content: turn.Content})
	}
	messages = append(messages, llm.Message{Role: "user", Content: userText})
	messages = append(messages, step...)
	return messages, nil
}
