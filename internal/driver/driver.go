// Package driver provides the narrow interface to the generative text
// backend: issue one turn, stream partial output, upload attachments.
package driver

import (
	"context"

	"github.com/studychat/backend/internal/model"
)

// Stream is a finite, non-restartable sequence of text increments produced by
// one generation call. Next returns io.EOF when the sequence is exhausted.
type Stream interface {
	Next() (string, error)
}

// TurnRequest carries everything one generation call needs. The configuration
// travels with every call because it is a per-conversation snapshot, not
// backend state.
type TurnRequest struct {
	Config      model.GenerationConfig
	History     []model.Turn
	Text        string
	Attachments []model.Attachment
}

// Driver is the contract consumed by the protocol router. Implementations
// must be safe for concurrent use by multiple connections. Cancellation of an
// in-flight turn goes through the context passed to SendTurn.
type Driver interface {
	// SendTurn issues one generation call and returns the lazy stream of
	// text increments.
	SendTurn(ctx context.Context, req TurnRequest) (Stream, error)

	// UploadAttachment pushes attachment bytes to the backend and returns
	// the backend-assigned reference for use in a subsequent SendTurn.
	UploadAttachment(ctx context.Context, data []byte, mediaType, name string) (string, error)
}
