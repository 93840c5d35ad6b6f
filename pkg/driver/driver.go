package driver

import (
	"github.com/studychat/backend/internal/driver"
)

// Re-export types from internal/driver for external use
type (
	Driver      = driver.Driver
	Stream      = driver.Stream
	TurnRequest = driver.TurnRequest
)

// MaxAttachmentSize is the largest attachment accepted for upload.
const MaxAttachmentSize = driver.MaxAttachmentSize

// NewAnthropicDriver creates a generation driver backed by the Anthropic
// Messages API, configured from the environment.
func NewAnthropicDriver() *driver.AnthropicDriver {
	return driver.NewAnthropicDriver()
}

// ValidateAttachment reports whether an attachment of the given size and
// media type is accepted for upload.
func ValidateAttachment(size int64, mediaType string) error {
	return driver.ValidateAttachment(size, mediaType)
}
