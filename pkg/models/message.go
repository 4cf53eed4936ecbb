// Package models provides the domain types shared across the Nexus core:
// channel messages, pending actions, scheduled jobs, and tool contracts.
package models

import "time"

// Channel identifies the surface a message arrived on or departs to.
type Channel string

const (
	ChannelWhatsApp Channel = "whatsapp"
	ChannelConsole  Channel = "console"
)

// ConsoleChatID is the fixed chat ID of the terminal operator.
const ConsoleChatID = "cli-user"

// Role labels a conversation turn for persistence and prompting.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// MediaType identifies the kind of attachment carried by an inbound message.
type MediaType string

const (
	MediaImage    MediaType = "image"
	MediaDocument MediaType = "document"
)

// Media describes one attachment delivered with an inbound message. The
// bridge downloads media to local disk before handing the message over;
// DownloadStatus and DownloadError report how that went.
type Media struct {
	Type           MediaType `json:"type"`
	MimeType       string    `json:"mime_type,omitempty"`
	FileName       string    `json:"file_name,omitempty"`
	Caption        string    `json:"caption,omitempty"`
	LocalPath      string    `json:"local_path,omitempty"`
	SizeBytes      int64     `json:"size_bytes,omitempty"`
	DownloadStatus string    `json:"download_status,omitempty"`
	DownloadError  string    `json:"download_error,omitempty"`
}

// InboundMessage is a normalized message entering the core from any channel.
type InboundMessage struct {
	ID         string    `json:"id"`
	Channel    Channel   `json:"channel"`
	ChatID     string    `json:"chat_id"`
	SenderID   string    `json:"sender_id"`
	IsSelfChat bool      `json:"is_self_chat"`
	IsFromMe   bool      `json:"is_from_me"`
	Text       string    `json:"text"`
	Media      []Media   `json:"media,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

// HasPayload reports whether the message carries anything worth processing.
func (m *InboundMessage) HasPayload() bool {
	if len(m.Media) > 0 {
		return true
	}
	for _, r := range m.Text {
		if r != ' ' && r != '\t' && r != '\n' && r != '\r' {
			return true
		}
	}
	return false
}

// Attachment is a file the assistant sends along with an outbound message.
type Attachment struct {
	FilePath string `json:"file_path"`
	FileName string `json:"file_name,omitempty"`
	MimeType string `json:"mime_type,omitempty"`
	Caption  string `json:"caption,omitempty"`
}

// OutboundMessage is a reply leaving the core toward a channel.
type OutboundMessage struct {
	ID          string       `json:"id"`
	Channel     Channel      `json:"channel"`
	ChatID      string       `json:"chat_id"`
	Text        string       `json:"text"`
	Attachments []Attachment `json:"attachments,omitempty"`
	ReplyTo     string       `json:"reply_to,omitempty"`
}
