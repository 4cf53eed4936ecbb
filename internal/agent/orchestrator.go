package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/haasonsaas/nexus-core/internal/audit"
	"github.com/haasonsaas/nexus-core/internal/format"
	"github.com/haasonsaas/nexus-core/internal/llm"
	"github.com/haasonsaas/nexus-core/internal/memory"
	"github.com/haasonsaas/nexus-core/internal/observability"
	"github.com/haasonsaas/nexus-core/internal/policy"
	"github.com/haasonsaas/nexus-core/internal/prompt"
	"github.com/haasonsaas/nexus-core/internal/redact"
	"github.com/haasonsaas/nexus-core/internal/store"
	"github.com/haasonsaas/nexus-core/internal/tools"
	"github.com/haasonsaas/nexus-core/pkg/models"
)

// internalErrorReply is the best-effort answer when inbound handling fails.
const internalErrorReply = "I hit an internal processing error while handling that request. Please try again."

const maxStepsReply = "I reached the maximum reasoning steps for this request. " +
	"Please narrow the task or ask me to continue from a specific point."

// complexHintTokens promote the complex model when present in the request.
var complexHintTokens = []string{"research", "analyze", "complex", "compare", "plan"}

// Router is the slice of the LLM layer the orchestrator needs.
type Router interface {
	CompleteJSON(ctx context.Context, messages []llm.Message, complexHint bool) (string, error)
}

// Sink delivers outbound messages on one channel.
type Sink interface {
	Deliver(msg models.OutboundMessage) error
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(msg models.OutboundMessage) error

// Deliver implements Sink.
func (f SinkFunc) Deliver(msg models.OutboundMessage) error { return f(msg) }

// Options carries the orchestrator's collaborators.
type Options struct {
	Store       *store.Store
	Memory      *memory.Store
	Journal     *memory.Journal
	Redactor    *redact.Redactor
	Prompts     *prompt.Builder
	Registry    *tools.Registry
	Policy      *policy.Engine
	Router      Router
	RedactedLog *audit.Log
	Logger      *slog.Logger
	Metrics     *observability.Metrics
	Tracer      *observability.Tracer

	MaxSteps            int
	ObservationMaxChars int
}

// Orchestrator turns inbound messages into at-most-once tool invocations
// and a single reply per request: filter, claim, persist, then either a
// confirmation resolution, a direct command, or the bounded reasoning loop.
type Orchestrator struct {
	store    *store.Store
	mem      *memory.Store
	journal  *memory.Journal
	redactor *redact.Redactor
	prompts  *prompt.Builder
	registry *tools.Registry
	policy   *policy.Engine
	router   Router
	redlog   *audit.Log
	logger   *slog.Logger
	metrics  *observability.Metrics
	tracer   *observability.Tracer

	maxSteps int
	obsChars int

	sinks map[models.Channel]Sink
}

// New creates an orchestrator. Channel sinks are bound separately because
// the channels themselves need the orchestrator as their handler.
func New(opts Options) *Orchestrator {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.MaxSteps < 1 {
		opts.MaxSteps = 1
	}
	if opts.ObservationMaxChars < 200 {
		opts.ObservationMaxChars = 200
	}
	return &Orchestrator{
		store:    opts.Store,
		mem:      opts.Memory,
		journal:  opts.Journal,
		redactor: opts.Redactor,
		prompts:  opts.Prompts,
		registry: opts.Registry,
		policy:   opts.Policy,
		router:   opts.Router,
		redlog:   opts.RedactedLog,
		logger:   opts.Logger,
		metrics:  opts.Metrics,
		tracer:   opts.Tracer,
		maxSteps: opts.MaxSteps,
		obsChars: opts.ObservationMaxChars,
		sinks:    make(map[models.Channel]Sink),
	}
}

// BindSink attaches the outbound sink for a channel.
func (o *Orchestrator) BindSink(channel models.Channel, sink Sink) {
	o.sinks[channel] = sink
}

func (o *Orchestrator) redact(s string) string {
	if o.redactor == nil {
		return s
	}
	return o.redactor.Mask(s)
}

// waUser extracts the lowercase user part of a WhatsApp JID, dropping the
// ":device" suffix. "123:4@s.whatsapp.net" and "123@lid" both yield "123".
func waUser(jid string) string {
	raw := strings.ToLower(strings.TrimSpace(jid))
	if at := strings.IndexByte(raw, '@'); at >= 0 {
		raw = raw[:at]
	}
	if colon := strings.IndexByte(raw, ':'); colon >= 0 {
		raw = raw[:colon]
	}
	return raw
}

// senderMatchesChat reports whether a not-from-me message still originates
// from the operator's own identity across the @lid/@s.whatsapp.net domains.
func senderMatchesChat(senderID, chatID string) bool {
	sender := waUser(senderID)
	chat := waUser(chatID)
	return sender != "" && chat != "" && sender == chat
}

// mediaContextBlock renders inbound attachments for the model.
func mediaContextBlock(media []models.Media) string {
	if len(media) == 0 {
		return ""
	}
	var sb strings.Builder
	sb.WriteString("[MEDIA_CONTEXT]")
	for _, m := range media {
		fileName := m.FileName
		if fileName == "" {
			fileName = "(unnamed)"
		}
		mime := m.MimeType
		if mime == "" {
			mime = "-"
		}
		localPath := m.LocalPath
		if localPath == "" {
			localPath = "-"
		}
		size := "-"
		if m.SizeBytes > 0 {
			size = fmt.Sprintf("%d", m.SizeBytes)
		}
		status := m.DownloadStatus
		if status == "" {
			status = "unknown"
		}
		mediaType := string(m.Type)
		if mediaType == "" {
			mediaType = "unknown"
		}
		fmt.Fprintf(&sb, "\n- type=%s file_name=%s mime=%s local_path=%s size_bytes=%s status=%s",
			mediaType, fileName, mime, localPath, size, status)
		if m.DownloadError != "" {
			fmt.Fprintf(&sb, " error=%s", m.DownloadError)
		}
	}
	sb.WriteString("\n[/MEDIA_CONTEXT]")
	return sb.String()
}

// effectiveUserText joins the message text with the media context block.
func effectiveUserText(msg models.InboundMessage) string {
	text := strings.TrimSpace(msg.Text)
	block := mediaContextBlock(msg.Media)
	switch {
	case text != "" && block != "":
		return text + "\n\n" + block
	case block != "":
		return block
	default:
		return text
	}
}

// HandleInbound drives one inbound message through the pipeline. Failures
// are contained here: they are audited, answered with a generic reply, and
// never propagate to the channel loops.
func (o *Orchestrator) HandleInbound(ctx context.Context, msg models.InboundMessage, traceID string) {
	if o.tracer != nil {
		spanCtx, span := o.tracer.Start(ctx, "orchestrator.handle_inbound",
			attribute.String("message.id", msg.ID),
			attribute.String("chat.id", msg.ChatID),
			attribute.String("channel", string(msg.Channel)),
		)
		ctx = spanCtx
		defer span.End()
		if err := o.process(ctx, msg, traceID); err != nil {
			o.tracer.RecordError(span, err)
			o.containFault(msg, traceID, err)
		}
		return
	}

	if err := o.process(ctx, msg, traceID); err != nil {
		o.containFault(msg, traceID, err)
	}
}

func (o *Orchestrator) containFault(msg models.InboundMessage, traceID string, err error) {
	o.logger.Error("inbound processing failed",
		"message_id", msg.ID, "chat_id", msg.ChatID, "trace_id", traceID, "error", err)
	if o.metrics != nil {
		o.metrics.RecordError("orchestrator")
	}
	if auditErr := o.store.InsertAudit(traceID, "inbound.error", map[string]any{
		"message_id": msg.ID,
		"chat_id":    msg.ChatID,
		"channel":    string(msg.Channel),
		"error":      err.Error(),
	}); auditErr != nil {
		o.logger.Error("persisting inbound.error audit failed", "trace_id", traceID, "error", auditErr)
	}
	if sendErr := o.sendText(msg, internalErrorReply); sendErr != nil {
		o.logger.Error("sending error reply failed", "trace_id", traceID, "error", sendErr)
	}
}

func (o *Orchestrator) process(ctx context.Context, msg models.InboundMessage, traceID string) error {
	if o.metrics != nil {
		o.metrics.MessageReceived(string(msg.Channel))
	}

	if msg.Channel == models.ChannelWhatsApp {
		if !msg.IsSelfChat {
			o.drop(msg, "not_self_chat")
			return nil
		}
		if !msg.IsFromMe {
			if !senderMatchesChat(msg.SenderID, msg.ChatID) {
				o.drop(msg, "identity_mismatch")
				return nil
			}
			o.logger.Info("accepted message from matching sender identity",
				"message_id", msg.ID, "chat_id", msg.ChatID)
		}
	}

	owned, err := o.store.ClaimLedger(msg.ID, store.DirectionInbound, msg.ChatID)
	if err != nil {
		return fmt.Errorf("claiming inbound: %w", err)
	}
	if !owned {
		reason := "duplicate"
		if msg.Channel == models.ChannelWhatsApp {
			if echoed, err := o.store.LedgerContains(msg.ID, store.DirectionOutbound); err == nil && echoed {
				reason = "outbound_echo"
			}
		}
		o.drop(msg, reason)
		return nil
	}

	rawText := strings.TrimSpace(msg.Text)
	if msg.Channel == models.ChannelWhatsApp && !msg.HasPayload() {
		o.drop(msg, "empty_payload")
		return nil
	}

	effective := effectiveUserText(msg)
	if err := o.store.InsertMessage(store.Message{
		ID:       msg.ID,
		Channel:  msg.Channel,
		ChatID:   msg.ChatID,
		SenderID: msg.SenderID,
		Role:     models.RoleUser,
		Text:     o.redact(effective),
		TraceID:  traceID,
	}); err != nil {
		return fmt.Errorf("persisting user turn: %w", err)
	}
	o.writeRedactedLog("inbound.message", map[string]any{
		"message_id": msg.ID,
		"channel":    string(msg.Channel),
		"chat_id":    msg.ChatID,
		"sender_id":  msg.SenderID,
		"text":       msg.Text,
		"media":      msg.Media,
	})
	o.mem.AppendTurn(msg.ChatID, string(models.RoleUser), effective)

	if rawText != "" {
		resolved, err := o.policy.ResolveFromText(msg.ChatID, rawText)
		if err != nil {
			return fmt.Errorf("resolving confirmation: %w", err)
		}
		if resolved != nil {
			if resolved.Status == models.ActionApproved {
				return o.executeTool(ctx, msg, resolved.Proposed.Tool, resolved.Proposed.Args, traceID, true)
			}
			return o.sendText(msg, "Cancelled pending action.")
		}
	}

	if handled, err := o.runDirectCommand(ctx, msg, rawText, traceID); handled || err != nil {
		return err
	}

	llmMsg := msg
	llmMsg.Text = effective
	return o.runReactLoop(ctx, llmMsg, traceID)
}

func (o *Orchestrator) drop(msg models.InboundMessage, reason string) {
	o.logger.Info("inbound dropped",
		"message_id", msg.ID, "chat_id", msg.ChatID, "channel", string(msg.Channel), "reason", reason)
	if o.metrics != nil {
		o.metrics.MessageDropped(reason)
	}
}

// runDirectCommand handles /tool, /schedule, and /jobs without the model.
// It reports whether the message was consumed.
func (o *Orchestrator) runDirectCommand(ctx context.Context, msg models.InboundMessage, text, traceID string) (bool, error) {
	switch {
	case strings.HasPrefix(text, "/tool "):
		parts := strings.SplitN(text, " ", 3)
		if len(parts) < 3 {
			return false, nil
		}
		var args map[string]any
		if err := json.Unmarshal([]byte(parts[2]), &args); err != nil {
			return true, o.sendText(msg, "Invalid JSON. Use /tool <name> <json>.")
		}
		o.logger.Info("executing direct tool", "tool", parts[1], "chat_id", msg.ChatID)
		return true, o.executeTool(ctx, msg, parts[1], args, traceID, false)

	case strings.HasPrefix(text, "/schedule "):
		payload := strings.TrimSpace(strings.TrimPrefix(text, "/schedule "))
		when, reminder, found := strings.Cut(payload, "|")
		if !found {
			return true, o.sendText(msg,
				"Use /schedule <when> | <text>. Example: /schedule every monday at 9am | Weekly check-in")
		}
		args := map[string]any{
			"action": "schedule",
			"when":   strings.TrimSpace(when),
			"text":   strings.TrimSpace(reminder),
		}
		return true, o.executeTool(ctx, msg, "scheduler", args, traceID, false)

	case strings.HasPrefix(text, "/jobs"):
		return true, o.executeTool(ctx, msg, "scheduler", map[string]any{"action": "list"}, traceID, false)
	}
	return false, nil
}

// invokeTool dispatches through the registry with the chat ID injected.
func (o *Orchestrator) invokeTool(ctx context.Context, msg models.InboundMessage, name string, args map[string]any, confirmed bool) *models.ToolResult {
	callArgs := make(map[string]any, len(args)+2)
	for k, v := range args {
		callArgs[k] = v
	}
	if _, ok := callArgs["chat_id"]; !ok {
		callArgs["chat_id"] = msg.ChatID
	}
	if confirmed {
		callArgs["confirmed"] = true
	}
	return o.registry.Execute(ctx, name, callArgs)
}

// executeTool runs a tool outside the reasoning loop (direct commands and
// confirmation resumes) and replies with its result.
func (o *Orchestrator) executeTool(ctx context.Context, msg models.InboundMessage, name string, args map[string]any, traceID string, confirmed bool) error {
	result := o.invokeTool(ctx, msg, name, args, confirmed)
	if result.RequiresConfirmation {
		return o.requestConfirmation(msg, name, result, args)
	}

	if err := o.sendToolResult(msg, result); err != nil {
		return err
	}
	if err := o.store.InsertAudit(traceID, "tool.execute", map[string]any{
		"tool": name, "ok": result.OK,
	}); err != nil {
		return fmt.Errorf("auditing tool execution: %w", err)
	}
	o.journalEvent(fmt.Sprintf("tool=%s ok=%t chat_id=%s", name, result.OK, msg.ChatID))
	return nil
}

// requestConfirmation parks the proposed call and prompts the operator.
func (o *Orchestrator) requestConfirmation(msg models.InboundMessage, name string, result *models.ToolResult, args map[string]any) error {
	proposedArgs := make(map[string]any, len(args)+1)
	for k, v := range args {
		proposedArgs[k] = v
	}
	proposedArgs["chat_id"] = msg.ChatID

	risk := string(result.Risk)
	action, err := o.policy.CreatePendingAction(msg.ChatID,
		models.ProposedAction{Tool: name, Args: proposedArgs}, risk)
	if err != nil {
		return fmt.Errorf("creating pending action: %w", err)
	}
	return o.sendText(msg, fmt.Sprintf(
		"Confirmation required for %s (%s). Reply YES to proceed or NO to cancel. Action ID: %s",
		name, action.Risk, action.ActionID))
}

// clipBytes truncates s to at most max bytes, backing the cut up so it
// never splits a multi-byte rune.
func clipBytes(s string, max int) string {
	if len(s) <= max {
		return s
	}
	for max > 0 && !utf8.RuneStart(s[max]) {
		max--
	}
	return s[:max]
}

// formatObservation summarizes a tool result for the next reasoning step.
func (o *Orchestrator) formatObservation(result *models.ToolResult) string {
	content := o.redact(strings.TrimSpace(result.Content))
	if content == "" {
		content = "(no textual output)"
	}
	if len(content) > o.obsChars {
		content = clipBytes(content, o.obsChars) + "...(truncated)"
	}
	status := "error"
	if result.OK {
		status = "ok"
	}
	if len(result.Artifacts) == 0 {
		return fmt.Sprintf("status=%s\ncontent=%s", status, content)
	}

	var lines []string
	for _, a := range result.Artifacts {
		name := a.FileName
		if name == "" {
			name = filepath.Base(a.FilePath)
		}
		lines = append(lines, fmt.Sprintf("- path=%s, file_name=%s", a.FilePath, name))
	}
	return fmt.Sprintf("status=%s\ncontent=%s\nartifacts_count=%d\nartifacts=\n%s",
		status, content, len(lines), strings.Join(lines, "\n"))
}

const correctionSnippetMax = 2000

// runReactLoop is the bounded reason-act cycle: ask the model for a
// decision, run the requested tool, feed the observation back, and stop on
// a final response, a confirmation gate, or the step budget.
func (o *Orchestrator) runReactLoop(ctx context.Context, msg models.InboundMessage, traceID string) error {
	userText := msg.Text
	lower := strings.ToLower(userText)
	complexHint := false
	for _, token := range complexHintTokens {
		if strings.Contains(lower, token) {
			complexHint = true
			break
		}
	}

	var stepMessages []llm.Message
	for step := 1; step <= o.maxSteps; step++ {
		messages, err := o.prompts.BuildMessages(msg.ChatID, userText, o.registry.Specs(), stepMessages)
		if err != nil {
			return fmt.Errorf("building prompt: %w", err)
		}

		raw, routerErr := o.router.CompleteJSON(ctx, messages, complexHint)
		var decision *Decision
		var stepErr string
		if routerErr != nil {
			stepErr = fmt.Sprintf("model routing failed: %v", routerErr)
		} else {
			decision, err = ParseDecision(raw)
			if err != nil {
				stepErr = err.Error()
			}
		}

		if stepErr != "" {
			if err := o.store.InsertAudit(traceID, "loop.step", map[string]any{
				"step": step, "ok": false, "error": stepErr,
			}); err != nil {
				return fmt.Errorf("auditing failed step: %w", err)
			}
			if snippet := strings.TrimSpace(raw); snippet != "" {
				if len(snippet) > correctionSnippetMax {
					snippet = clipBytes(snippet, correctionSnippetMax)
				}
				stepMessages = append(stepMessages, llm.Message{Role: "assistant", Content: snippet})
			}
			stepMessages = append(stepMessages, llm.Message{Role: "user", Content: fmt.Sprintf(
				"Invalid decision output. Return JSON object with required fields: "+
					"thought + exactly one of call/response. Validation error: %s", stepErr)})
			continue
		}

		if decision.Call == nil {
			if err := o.store.InsertAudit(traceID, "loop.step", map[string]any{
				"step": step, "ok": true, "action": "response",
			}); err != nil {
				return fmt.Errorf("auditing response step: %w", err)
			}
			if err := o.sendText(msg, o.redact(decision.Response)); err != nil {
				return err
			}
			o.journalEvent(fmt.Sprintf("response chat_id=%s", msg.ChatID))
			if o.metrics != nil {
				o.metrics.RecordLoopSteps("response", step)
			}
			return nil
		}

		name := decision.Call.Name
		if err := o.store.InsertAudit(traceID, "loop.step", map[string]any{
			"step": step, "ok": true, "action": "call", "tool": name,
		}); err != nil {
			return fmt.Errorf("auditing call step: %w", err)
		}

		result := o.invokeTool(ctx, msg, name, decision.Call.Arguments, false)
		if result.RequiresConfirmation {
			if o.metrics != nil {
				o.metrics.RecordLoopSteps("confirmation", step)
			}
			return o.requestConfirmation(msg, name, result, decision.Call.Arguments)
		}

		if err := o.store.InsertAudit(traceID, "tool.execute", map[string]any{
			"tool": name, "ok": result.OK,
		}); err != nil {
			return fmt.Errorf("auditing tool execution: %w", err)
		}
		if len(result.Artifacts) > 0 {
			if err := o.sendToolResult(msg, result); err != nil {
				return err
			}
		}

		observation := o.formatObservation(result)
		if err := o.store.InsertAudit(traceID, "loop.tool_observation", map[string]any{
			"step": step, "tool": name, "ok": result.OK,
		}); err != nil {
			return fmt.Errorf("auditing observation: %w", err)
		}
		o.journalEvent(fmt.Sprintf("tool=%s ok=%t chat_id=%s", name, result.OK, msg.ChatID))

		canonical := Decision{Thought: decision.Thought, Call: decision.Call}
		stepMessages = append(stepMessages,
			llm.Message{Role: "assistant", Content: canonical.Canonical()},
			llm.Message{Role: "user", Content: "TOOL_OBSERVATION:\n" + observation},
		)
	}

	if err := o.store.InsertAudit(traceID, "loop.max_steps_reached", map[string]any{
		"max_steps": o.maxSteps,
	}); err != nil {
		return fmt.Errorf("auditing max steps: %w", err)
	}
	if o.metrics != nil {
		o.metrics.RecordLoopSteps("max_steps", o.maxSteps)
	}
	return o.sendText(msg, maxStepsReply)
}

// sendToolResult replies with a tool's content and artifacts. The console
// channel cannot carry attachments, so it gets a file listing instead.
func (o *Orchestrator) sendToolResult(msg models.InboundMessage, result *models.ToolResult) error {
	content := strings.TrimSpace(o.redact(result.Content))
	if content == "" {
		content = "Task completed, but there was no textual output."
	}

	attachments := make([]models.Attachment, 0, len(result.Artifacts))
	for _, a := range result.Artifacts {
		if strings.TrimSpace(a.FilePath) == "" {
			continue
		}
		if a.FileName == "" {
			a.FileName = filepath.Base(a.FilePath)
		}
		attachments = append(attachments, a)
	}
	if msg.Channel == models.ChannelConsole && len(attachments) > 0 {
		var lines []string
		for _, a := range attachments {
			lines = append(lines, fmt.Sprintf("- %s: %s", a.FileName, a.FilePath))
		}
		content = content + "\n\nGenerated files:\n" + strings.Join(lines, "\n")
		attachments = nil
	}

	return o.send(models.OutboundMessage{
		ID:          uuid.NewString(),
		Channel:     msg.Channel,
		ChatID:      msg.ChatID,
		Text:        content,
		Attachments: attachments,
		ReplyTo:     msg.ID,
	})
}

func (o *Orchestrator) sendText(msg models.InboundMessage, text string) error {
	return o.send(models.OutboundMessage{
		ID:      uuid.NewString(),
		Channel: msg.Channel,
		ChatID:  msg.ChatID,
		Text:    text,
		ReplyTo: msg.ID,
	})
}

// send hands an outbound to its channel sink, then persists it. The order
// matters: a failed delivery must not leave a "sent" record behind.
func (o *Orchestrator) send(out models.OutboundMessage) error {
	if out.Channel == models.ChannelWhatsApp {
		out.Text = format.WhatsApp(out.Text)
	}

	if sink, ok := o.sinks[out.Channel]; ok && sink != nil {
		if err := sink.Deliver(out); err != nil {
			return fmt.Errorf("delivering outbound: %w", err)
		}
		if out.Channel == models.ChannelWhatsApp {
			if err := o.store.InsertLedger(out.ID, store.DirectionOutbound, out.ChatID); err != nil {
				return fmt.Errorf("recording outbound ledger: %w", err)
			}
		}
	} else {
		o.logger.Warn("no sink bound for channel, outbound not delivered",
			"channel", string(out.Channel), "chat_id", out.ChatID)
	}

	o.writeRedactedLog("outbound.message", map[string]any{
		"message_id":  out.ID,
		"channel":     string(out.Channel),
		"chat_id":     out.ChatID,
		"text":        out.Text,
		"attachments": out.Attachments,
	})
	if err := o.store.InsertMessage(store.Message{
		ID:       out.ID,
		Channel:  out.Channel,
		ChatID:   out.ChatID,
		SenderID: "assistant",
		Role:     models.RoleAssistant,
		Text:     out.Text,
		TraceID:  uuid.NewString(),
	}); err != nil {
		return fmt.Errorf("persisting outbound: %w", err)
	}
	if out.Text != "" {
		o.mem.AppendTurn(out.ChatID, string(models.RoleAssistant), out.Text)
	}
	if o.metrics != nil {
		o.metrics.MessageSent(string(out.Channel))
	}
	return nil
}

func (o *Orchestrator) writeRedactedLog(event string, payload map[string]any) {
	if o.redlog == nil {
		return
	}
	if err := o.redlog.Write(event, payload); err != nil {
		o.logger.Warn("writing redacted log failed", "event", event, "error", err)
	}
}

func (o *Orchestrator) journalEvent(line string) {
	if o.journal == nil {
		return
	}
	if err := o.journal.AppendEvent(o.redact(line)); err != nil {
		o.logger.Warn("appending journal failed", "error", err)
	}
}

// EmitScheduled delivers a fired reminder to its chat. The console chat ID
// routes to the terminal; everything else goes out over the bridge.
func (o *Orchestrator) EmitScheduled(chatID, text string) {
	channel := models.ChannelWhatsApp
	if chatID == models.ConsoleChatID {
		channel = models.ChannelConsole
	}
	if err := o.send(models.OutboundMessage{
		ID:      uuid.NewString(),
		Channel: channel,
		ChatID:  chatID,
		Text:    "[Reminder] " + text,
	}); err != nil {
		o.logger.Error("delivering reminder failed", "chat_id", chatID, "error", err)
	}
}

// RegisterOutboundProviderIDs records provider message IDs from delivery
// receipts so inbound echoes of our own sends are suppressed.
func (o *Orchestrator) RegisterOutboundProviderIDs(chatID string, ids []string) {
	for _, id := range ids {
		if id == "" {
			continue
		}
		if err := o.store.InsertLedger(id, store.DirectionOutbound, chatID); err != nil {
			o.logger.Warn("recording provider message id failed", "chat_id", chatID, "error", err)
		}
	}
}
