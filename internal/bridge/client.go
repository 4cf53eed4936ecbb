// Package bridge maintains the WebSocket session to the WhatsApp bridge
// process. The bridge owns the WhatsApp protocol; this client only speaks
// the JSON event envelope: inbound messages and delivery receipts flow in,
// outbound messages flow out.
package bridge

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/haasonsaas/nexus-core/pkg/models"
)

// Envelope event names.
const (
	EventInboundMessage   = "bridge.inbound_message"
	EventDeliveryReceipt  = "bridge.delivery_receipt"
	EventQR               = "bridge.qr"
	EventConnected        = "bridge.connected"
	EventDisconnected     = "bridge.disconnected"
	EventError            = "bridge.error"
	EventConnectionUpdate = "bridge.connection_update"
	EventOutboundMessage  = "core.outbound_message"

	// Reserved for session handshakes; defined by the envelope protocol
	// but neither sent nor handled yet.
	EventReady = "bridge.ready"
	EventAck   = "core.ack"
)

const (
	reconnectDelay = 2 * time.Second
	writeTimeout   = 10 * time.Second
	maxFrameSize   = 10 << 20
)

// Handler receives decoded bridge events.
type Handler interface {
	// HandleInbound is called for each bridge.inbound_message.
	HandleInbound(msg models.InboundMessage)

	// HandleDeliveryReceipt is called with the deduplicated provider
	// message IDs of a bridge.delivery_receipt.
	HandleDeliveryReceipt(chatID string, providerMessageIDs []string)
}

// Config configures the client.
type Config struct {
	URL    string
	Secret string
}

// Client dials the bridge and reconnects forever until its context ends.
type Client struct {
	config  Config
	handler Handler
	logger  *slog.Logger

	mu   sync.Mutex
	conn *websocket.Conn
}

// frame is the wire envelope.
type frame struct {
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload"`
}

type inboundPayload struct {
	ID         string         `json:"id"`
	ChatID     string         `json:"chat_id"`
	SenderID   string         `json:"sender_id"`
	IsSelfChat bool           `json:"is_self_chat"`
	IsFromMe   bool           `json:"is_from_me"`
	Text       string         `json:"text"`
	Media      []models.Media `json:"media"`
	Timestamp  string         `json:"timestamp"`
}

type receiptPayload struct {
	ChatID             string   `json:"chat_id"`
	ProviderMessageID  string   `json:"provider_message_id"`
	ProviderMessageIDs []string `json:"provider_message_ids"`
}

// NewClient creates a bridge client.
func NewClient(config Config, handler Handler, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{config: config, handler: handler, logger: logger}
}

// Run dials and reads until ctx is cancelled, reconnecting with a fixed
// backoff after any failure.
func (c *Client) Run(ctx context.Context) {
	for {
		if err := c.connectAndRead(ctx); err != nil && ctx.Err() == nil {
			c.logger.Warn("bridge connection lost", "error", err)
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(reconnectDelay):
		}
	}
}

func (c *Client) connectAndRead(ctx context.Context) error {
	header := http.Header{}
	header.Set("x-nexus-client", "core")
	if c.config.Secret != "" {
		header.Set("x-nexus-secret", c.config.Secret)
	}

	dialCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	conn, _, err := websocket.DefaultDialer.DialContext(dialCtx, c.config.URL, header)
	cancel()
	if err != nil {
		return fmt.Errorf("dialing bridge: %w", err)
	}
	conn.SetReadLimit(maxFrameSize)

	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()
	c.logger.Info("bridge connected", "url", c.config.URL)

	defer func() {
		c.mu.Lock()
		c.conn = nil
		c.mu.Unlock()
		conn.Close()
	}()

	// Close the socket when ctx ends so ReadMessage unblocks.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("reading frame: %w", err)
		}
		c.dispatch(data)
	}
}

func (c *Client) dispatch(data []byte) {
	var f frame
	if err := json.Unmarshal(data, &f); err != nil {
		c.logger.Warn("undecodable bridge frame", "error", err)
		return
	}

	switch f.Event {
	case EventInboundMessage:
		for _, item := range payloadItems(f.Payload) {
			var p inboundPayload
			if err := json.Unmarshal(item, &p); err != nil {
				c.logger.Warn("undecodable inbound payload", "error", err)
				continue
			}
			c.handler.HandleInbound(models.InboundMessage{
				ID:         p.ID,
				Channel:    models.ChannelWhatsApp,
				ChatID:     p.ChatID,
				SenderID:   p.SenderID,
				IsSelfChat: p.IsSelfChat,
				IsFromMe:   p.IsFromMe,
				Text:       p.Text,
				Media:      p.Media,
				Timestamp:  parseTimestamp(p.Timestamp),
			})
		}

	case EventDeliveryReceipt:
		for _, item := range payloadItems(f.Payload) {
			var p receiptPayload
			if err := json.Unmarshal(item, &p); err != nil {
				c.logger.Warn("undecodable receipt payload", "error", err)
				continue
			}
			ids := dedupeIDs(p.ProviderMessageID, p.ProviderMessageIDs)
			if len(ids) > 0 {
				c.handler.HandleDeliveryReceipt(p.ChatID, ids)
			}
		}

	case EventQR, EventConnected, EventDisconnected, EventError, EventConnectionUpdate:
		c.logger.Info("bridge status event", "event", f.Event)

	default:
		c.logger.Debug("unhandled bridge event", "event", f.Event)
	}
}

// payloadItems normalizes a payload into its elements: the bridge batches
// by sending either a single object or a list of them.
func payloadItems(raw json.RawMessage) []json.RawMessage {
	trimmed := bytes.TrimLeft(raw, " \t\r\n")
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var items []json.RawMessage
		if err := json.Unmarshal(trimmed, &items); err == nil {
			return items
		}
	}
	return []json.RawMessage{raw}
}

func parseTimestamp(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	for _, format := range []string{time.RFC3339Nano, time.RFC3339} {
		if t, err := time.Parse(format, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

// dedupeIDs merges the singular and plural receipt fields, preserving
// first-seen order.
func dedupeIDs(single string, many []string) []string {
	seen := make(map[string]bool)
	var out []string
	add := func(id string) {
		if id != "" && !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	add(single)
	for _, id := range many {
		add(id)
	}
	return out
}

// SendOutbound delivers a message to the bridge. When the session is down
// the message is dropped with a warning; the operator will resend or the
// model will be asked again.
func (c *Client) SendOutbound(msg models.OutboundMessage) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn == nil {
		c.logger.Warn("bridge disconnected, dropping outbound", "chat_id", msg.ChatID)
		return nil
	}

	data, err := json.Marshal(frame{Event: EventOutboundMessage, Payload: mustMarshal(msg)})
	if err != nil {
		return fmt.Errorf("encoding outbound frame: %w", err)
	}
	c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		return fmt.Errorf("writing outbound frame: %w", err)
	}
	return nil
}

// Connected reports whether a session is currently up.
func (c *Client) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn != nil
}

func mustMarshal(v any) json.RawMessage {
	data, err := json.Marshal(v)
	if err != nil {
		return json.RawMessage("{}")
	}
	return data
}
