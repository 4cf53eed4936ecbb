package tools

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/haasonsaas/nexus-core/internal/scheduler"
	"github.com/haasonsaas/nexus-core/internal/store"
	"github.com/haasonsaas/nexus-core/pkg/models"
)

// SchedulerTool exposes reminder management to the model.
type SchedulerTool struct {
	engine *scheduler.Scheduler
}

// NewSchedulerTool wraps the scheduler engine as a tool.
func NewSchedulerTool(engine *scheduler.Scheduler) *SchedulerTool {
	return &SchedulerTool{engine: engine}
}

func (t *SchedulerTool) Name() string { return "scheduler" }

func (t *SchedulerTool) Spec() models.ToolSpec {
	return models.ToolSpec{
		Name: "scheduler",
		Description: "Manage reminders. Actions: schedule (when + text), " +
			"list, cancel (job_id), update (job_id + new when and/or text). " +
			"'when' accepts phrases like 'every monday at 8:00', 'every day at 9am', " +
			"'every weekday at 07:30', or an absolute time like '2026-03-02 15:04'.",
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"action": map[string]any{
					"type": "string",
					"enum": []any{"schedule", "list", "cancel", "update"},
				},
				"when":   map[string]any{"type": "string"},
				"text":   map[string]any{"type": "string"},
				"job_id": map[string]any{"type": "string"},
			},
			"required": []any{"action"},
		},
	}
}

func (t *SchedulerTool) Run(ctx context.Context, args map[string]any) (*models.ToolResult, error) {
	action, _ := args["action"].(string)
	chatID, _ := args["chat_id"].(string)
	when, _ := args["when"].(string)
	text, _ := args["text"].(string)
	jobID, _ := args["job_id"].(string)

	switch action {
	case "schedule":
		if strings.TrimSpace(when) == "" || strings.TrimSpace(text) == "" {
			return &models.ToolResult{OK: false, Content: "schedule requires both 'when' and 'text'"}, nil
		}
		job, err := t.engine.Schedule(chatID, when, text)
		if err != nil {
			return &models.ToolResult{OK: false, Content: fmt.Sprintf("could not schedule: %v", err)}, nil
		}
		return &models.ToolResult{
			OK: true,
			Content: fmt.Sprintf("Scheduled %s reminder %s, next run %s: %s",
				job.Spec.Kind, job.JobID, job.NextRunAt.Format("2006-01-02 15:04"), job.Spec.Text),
		}, nil

	case "list":
		jobs, err := t.engine.List(chatID)
		if err != nil {
			return nil, err
		}
		return &models.ToolResult{OK: true, Content: FormatJobList(jobs)}, nil

	case "cancel":
		if jobID == "" {
			return &models.ToolResult{OK: false, Content: "cancel requires 'job_id'"}, nil
		}
		if err := t.engine.Cancel(jobID); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return &models.ToolResult{OK: false, Content: fmt.Sprintf("no job with id %s", jobID)}, nil
			}
			return nil, err
		}
		return &models.ToolResult{OK: true, Content: fmt.Sprintf("Cancelled reminder %s", jobID)}, nil

	case "update":
		if jobID == "" {
			return &models.ToolResult{OK: false, Content: "update requires 'job_id'"}, nil
		}
		job, err := t.engine.Update(jobID, when, text)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return &models.ToolResult{OK: false, Content: fmt.Sprintf("no job with id %s", jobID)}, nil
			}
			return &models.ToolResult{OK: false, Content: fmt.Sprintf("could not update: %v", err)}, nil
		}
		return &models.ToolResult{
			OK: true,
			Content: fmt.Sprintf("Updated reminder %s, next run %s: %s",
				job.JobID, job.NextRunAt.Format("2006-01-02 15:04"), job.Spec.Text),
		}, nil

	default:
		return &models.ToolResult{OK: false, Content: fmt.Sprintf("unknown action %q", action)}, nil
	}
}

// FormatJobList renders jobs for the operator, one line each.
func FormatJobList(jobs []models.Job) string {
	if len(jobs) == 0 {
		return "No reminders scheduled."
	}
	var sb strings.Builder
	for _, job := range jobs {
		fmt.Fprintf(&sb, "%s [%s] next %s: %s\n",
			job.JobID, job.Spec.Kind, job.NextRunAt.Format("2006-01-02 15:04"), job.Spec.Text)
	}
	return strings.TrimRight(sb.String(), "\n")
}
