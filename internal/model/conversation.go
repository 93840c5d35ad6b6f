package model

import (
	"encoding/json"
	"strings"
	"time"
)

// Role identifies the author of a turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Conversation is a durable, ordered collection of turns belonging to one
// user. The generation configuration is snapshotted at creation so that
// replaying the transcript reproduces the original behavior.
type Conversation struct {
	ID        int64            `json:"id"`
	UserID    int64            `json:"userId"`
	Name      string           `json:"name"`
	Config    GenerationConfig `json:"config"`
	CreatedAt time.Time        `json:"createdAt"`
}

// Attachment describes a file forwarded alongside a user turn. Ref is the
// backend-assigned reference returned by the upload call.
type Attachment struct {
	Name      string `json:"name"`
	MediaType string `json:"mediaType"`
	Size      int64  `json:"size"`
	Ref       string `json:"ref,omitempty"`
}

// Message is one stored turn within a conversation. Assistant content is
// rendered to display HTML before storage.
type Message struct {
	ID             int64        `json:"id"`
	ConversationID int64        `json:"conversationId"`
	Role           Role         `json:"role"`
	Content        string       `json:"content"`
	Attachments    []Attachment `json:"attachments,omitempty"`
	Timestamp      time.Time    `json:"timestamp"`
}

// Blank reports whether the message carries neither text nor attachments.
// Blank messages must never be persisted.
func (m *Message) Blank() bool {
	return strings.TrimSpace(m.Content) == "" && len(m.Attachments) == 0
}

// AttachmentsToJSON serializes the attachment list for storage. Empty lists
// serialize to the empty string so the column stays NULL.
func (m *Message) AttachmentsToJSON() (string, error) {
	if len(m.Attachments) == 0 {
		return "", nil
	}
	data, err := json.Marshal(m.Attachments)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// AttachmentsFromJSON parses a stored attachment column.
func (m *Message) AttachmentsFromJSON(data string) error {
	if data == "" {
		m.Attachments = nil
		return nil
	}
	return json.Unmarshal([]byte(data), &m.Attachments)
}

// Turn is one entry of a session's in-memory history, the minimal shape the
// generation backend needs to rebuild its context.
type Turn struct {
	Role    Role
	Content string
}

// ConversationLabel derives a display name for a new conversation from its
// seed text. Names are capped at 50 characters; when the capped text contains
// a hyphen the part after the first hyphen is used, trimmed.
func ConversationLabel(seed string) string {
	runes := []rune(seed)
	if len(runes) > 50 {
		runes = runes[:50]
	}
	label := string(runes)
	if i := strings.Index(label, "-"); i >= 0 {
		label = strings.TrimSpace(label[i+1:])
	}
	if label == "" {
		label = "New conversation"
	}
	return label
}
