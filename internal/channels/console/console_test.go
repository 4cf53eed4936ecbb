package console

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/haasonsaas/nexus-core/pkg/models"
)

func TestRun_LinesBecomeInbound(t *testing.T) {
	in := strings.NewReader("hello\n\n   \nworld\nexit\nnever seen\n")
	c := New(in, &bytes.Buffer{}, nil)

	var got []models.InboundMessage
	err := c.Run(context.Background(), func(msg models.InboundMessage, traceID string) {
		if traceID == "" {
			t.Error("empty trace id")
		}
		got = append(got, msg)
	})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if len(got) != 2 {
		t.Fatalf("got %d messages, want 2", len(got))
	}
	first := got[0]
	if first.Text != "hello" || got[1].Text != "world" {
		t.Errorf("texts = %q, %q", got[0].Text, got[1].Text)
	}
	if first.Channel != models.ChannelConsole || first.ChatID != models.ConsoleChatID ||
		first.SenderID != models.ConsoleChatID || !first.IsSelfChat || first.IsFromMe {
		t.Errorf("message = %+v", first)
	}
	if first.ID == got[1].ID {
		t.Error("message ids must be unique per line")
	}
}

func TestRun_QuitStops(t *testing.T) {
	c := New(strings.NewReader("quit\nhello\n"), &bytes.Buffer{}, nil)
	calls := 0
	if err := c.Run(context.Background(), func(models.InboundMessage, string) { calls++ }); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if calls != 0 {
		t.Errorf("handled %d messages after quit, want 0", calls)
	}
}

func TestDeliver_PrintsPrefixedReply(t *testing.T) {
	var out bytes.Buffer
	c := New(strings.NewReader(""), &out, nil)

	if err := c.Deliver(models.OutboundMessage{Text: "done"}); err != nil {
		t.Fatalf("Deliver() error = %v", err)
	}
	if out.String() != "nexus: done\n" {
		t.Errorf("output = %q", out.String())
	}
}
