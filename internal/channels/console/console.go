// Package console is the terminal channel: a line loop over stdin where
// each non-empty line becomes an inbound message for the fixed cli-user
// chat, and replies print back with the assistant's name.
package console

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/haasonsaas/nexus-core/pkg/models"
)

// HandleFunc processes one inbound console message under a trace ID.
type HandleFunc func(msg models.InboundMessage, traceID string)

// Channel reads operator input and prints replies.
type Channel struct {
	in     io.Reader
	out    io.Writer
	logger *slog.Logger
	now    func() time.Time
}

// New creates a console channel over the given reader and writer.
func New(in io.Reader, out io.Writer, logger *slog.Logger) *Channel {
	if logger == nil {
		logger = slog.Default()
	}
	return &Channel{in: in, out: out, logger: logger, now: time.Now}
}

// Run reads lines until EOF, ctx cancellation, or an exit command. Blank
// lines are skipped. Each admitted line is handed to handle synchronously,
// so console requests are processed one at a time.
func (c *Channel) Run(ctx context.Context, handle HandleFunc) error {
	scanner := bufio.NewScanner(c.in)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)

	for scanner.Scan() {
		if ctx.Err() != nil {
			return nil
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if line == "exit" || line == "quit" {
			c.logger.Info("console channel closed by operator")
			return nil
		}

		handle(models.InboundMessage{
			ID:         uuid.NewString(),
			Channel:    models.ChannelConsole,
			ChatID:     models.ConsoleChatID,
			SenderID:   models.ConsoleChatID,
			IsSelfChat: true,
			Text:       line,
			Timestamp:  c.now(),
		}, uuid.NewString())
	}
	return scanner.Err()
}

// Deliver prints a reply to the terminal.
func (c *Channel) Deliver(msg models.OutboundMessage) error {
	if _, err := fmt.Fprintf(c.out, "nexus: %s\n", msg.Text); err != nil {
		return fmt.Errorf("writing console reply: %w", err)
	}
	return nil
}
