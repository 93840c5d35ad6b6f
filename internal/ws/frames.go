package ws

import (
	"github.com/studychat/backend/internal/model"
)

// Action is the inbound intent discriminator.
type Action string

const (
	ActionAuthenticate      Action = "authenticate-by-token"
	ActionStartConversation Action = "start-conversation"
	ActionCustomizeSession  Action = "customize-session"
	ActionSendTurn          Action = "send-turn"
	ActionCancelGeneration  Action = "cancel-generation"
	ActionLoadList          Action = "load-conversation-list"
	ActionLoadConversation  Action = "load-conversation"
	ActionEditTurn          Action = "edit-turn"
	ActionDeleteTurn        Action = "delete-turn"
	ActionSignOut           Action = "sign-out"
)

// FilePayload is an inbound attachment: descriptor plus base64-encoded bytes
// (encoding/json decodes []byte fields from base64 strings).
type FilePayload struct {
	Name      string `json:"name"`
	MediaType string `json:"mediaType"`
	Size      int64  `json:"size"`
	Data      []byte `json:"data"`
}

// Intent is a decoded inbound client request. Only the fields relevant to
// the given action are populated.
type Intent struct {
	Action         Action        `json:"action"`
	Token          string        `json:"token,omitempty"`
	Message        string        `json:"message,omitempty"`
	Files          []FilePayload `json:"files,omitempty"`
	ConversationID *int64        `json:"conversationId,omitempty"`
	MessageID      *int64        `json:"messageId,omitempty"`
	NewContent     string        `json:"newContent,omitempty"`
	Task           string        `json:"task,omitempty"`
	Description    string        `json:"description,omitempty"`
	Model          string        `json:"model,omitempty"`
	Temperature    *float64      `json:"temperature,omitempty"`
	TopP           *float64      `json:"topP,omitempty"`
}

// FrameType is the outbound frame discriminator.
type FrameType string

const (
	FrameConnectionEstablished FrameType = "connection-established"
	FrameStatus                FrameType = "status"
	FramePartial               FrameType = "partial"
	FrameFinal                 FrameType = "final"
	FrameInterrupted           FrameType = "interrupted"
	FrameConversationReset     FrameType = "conversation-reset"
	FrameCustomizationApplied  FrameType = "customization-applied"
	FramePreviousConversations FrameType = "previous-conversations"
	FrameTranscript            FrameType = "transcript"
	FrameTurnEdited            FrameType = "turn-edited"
	FrameTurnDeleted           FrameType = "turn-deleted"
	FrameError                 FrameType = "error"
)

// StatusComposing is sent before the first byte of generated content so the
// client can show a working affordance.
const StatusComposing = "composing"

// Frame is an outbound server-to-client event.
type Frame struct {
	Type            FrameType             `json:"type"`
	Identity        int64                 `json:"identity,omitempty"`
	Status          string                `json:"status,omitempty"`
	Text            string                `json:"text,omitempty"`
	RenderedContent string                `json:"renderedContent,omitempty"`
	Reason          string                `json:"reason,omitempty"`
	ConversationID  int64                 `json:"conversationId,omitempty"`
	Conversations   []*model.Conversation `json:"list,omitempty"`
	Messages        []*model.Message      `json:"messages,omitempty"`
	MessageID       int64                 `json:"messageId,omitempty"`
	NewContent      string                `json:"newContent,omitempty"`
	Message         string                `json:"message,omitempty"`
	Kind            model.ErrorKind       `json:"kind,omitempty"`
}

// errorFrame builds an error frame with its taxonomy tag.
func errorFrame(kind model.ErrorKind, message string) Frame {
	return Frame{Type: FrameError, Kind: kind, Message: message}
}
