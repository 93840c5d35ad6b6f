package driver

import "github.com/studychat/backend/internal/model"

// MaxAttachmentSize bounds a single attachment upload.
const MaxAttachmentSize = 20 * 1024 * 1024

// allowedMediaTypes is the enforced allow-list for attachment uploads. Only
// types the generation backend can actually consume are accepted.
var allowedMediaTypes = map[string]bool{
	"image/png":                true,
	"image/jpeg":               true,
	"image/webp":               true,
	"image/gif":                true,
	"text/plain":               true,
	"text/html":                true,
	"text/css":                 true,
	"text/md":                  true,
	"text/markdown":            true,
	"text/csv":                 true,
	"text/xml":                 true,
	"text/rtf":                 true,
	"text/javascript":          true,
	"application/x-python":     true,
	"text/x-python":            true,
	"application/x-javascript": true,
}

// ValidateAttachment checks the size bound and media-type allow-list before
// any bytes are forwarded to the backend.
func ValidateAttachment(size int64, mediaType string) error {
	if size > MaxAttachmentSize {
		return model.ErrAttachmentTooLarge
	}
	if !allowedMediaTypes[mediaType] {
		return model.ErrAttachmentType
	}
	return nil
}

// IsImageType reports whether the media type is forwarded as an image block.
func IsImageType(mediaType string) bool {
	switch mediaType {
	case "image/png", "image/jpeg", "image/webp", "image/gif":
		return true
	}
	return false
}
