package model

import "errors"

// ErrorKind tags outbound error frames with the failure taxonomy.
type ErrorKind string

const (
	// ErrKindValidation marks malformed or missing intent fields, rejected
	// before any side effect.
	ErrKindValidation ErrorKind = "validation"

	// ErrKindSession marks intents arriving with no bound session, or with a
	// required active conversation missing.
	ErrKindSession ErrorKind = "session"

	// ErrKindGeneration marks failures of the generation backend call or its
	// stream.
	ErrKindGeneration ErrorKind = "generation-upstream"

	// ErrKindStorage marks conversation store failures.
	ErrKindStorage ErrorKind = "storage"

	// ErrKindUnsupported marks unrecognized action discriminators.
	ErrKindUnsupported ErrorKind = "unsupported-action"
)

var (
	// ErrDuplicateBinding is returned when a session already exists for a
	// connection identity.
	ErrDuplicateBinding = errors.New("session already bound for connection")

	// ErrSessionNotFound is returned when no session is bound to a connection.
	ErrSessionNotFound = errors.New("session not found")

	// ErrConversationNotFound is returned when a conversation does not exist.
	ErrConversationNotFound = errors.New("conversation not found")

	// ErrMessageNotFound is returned when a message does not exist.
	ErrMessageNotFound = errors.New("message not found")

	// ErrBlankMessage is returned when a turn carries no text and no
	// attachments.
	ErrBlankMessage = errors.New("message has no content")

	// ErrAttachmentTooLarge is returned when an attachment exceeds the upload
	// size bound.
	ErrAttachmentTooLarge = errors.New("attachment exceeds size limit")

	// ErrAttachmentType is returned when an attachment's media type is not on
	// the allow-list.
	ErrAttachmentType = errors.New("attachment media type not allowed")
)
