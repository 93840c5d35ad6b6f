package driver

import (
	"testing"

	"github.com/studychat/backend/internal/model"
)

func TestValidateAttachment(t *testing.T) {
	t.Run("allowed type under the bound passes", func(t *testing.T) {
		if err := ValidateAttachment(1024, "image/png"); err != nil {
			t.Errorf("Expected valid attachment, got %v", err)
		}
	})

	t.Run("size at the bound passes", func(t *testing.T) {
		if err := ValidateAttachment(MaxAttachmentSize, "text/plain"); err != nil {
			t.Errorf("Expected valid attachment, got %v", err)
		}
	})

	t.Run("oversized attachment is rejected", func(t *testing.T) {
		if err := ValidateAttachment(MaxAttachmentSize+1, "image/png"); err != model.ErrAttachmentTooLarge {
			t.Errorf("Expected ErrAttachmentTooLarge, got %v", err)
		}
	})

	t.Run("disallowed type is rejected", func(t *testing.T) {
		if err := ValidateAttachment(10, "application/zip"); err != model.ErrAttachmentType {
			t.Errorf("Expected ErrAttachmentType, got %v", err)
		}
	})

	t.Run("size is checked before type", func(t *testing.T) {
		if err := ValidateAttachment(MaxAttachmentSize+1, "application/zip"); err != model.ErrAttachmentTooLarge {
			t.Errorf("Expected ErrAttachmentTooLarge, got %v", err)
		}
	})
}

func TestIsImageType(t *testing.T) {
	for _, mediaType := range []string{"image/png", "image/jpeg", "image/webp", "image/gif"} {
		if !IsImageType(mediaType) {
			t.Errorf("Expected %s to be an image type", mediaType)
		}
	}
	for _, mediaType := range []string{"text/plain", "image/tiff", ""} {
		if IsImageType(mediaType) {
			t.Errorf("Expected %s to not be an image type", mediaType)
		}
	}
}

func TestSystemInstructionForTask(t *testing.T) {
	t.Run("known task gets its instruction", func(t *testing.T) {
		got := SystemInstructionForTask("maths")
		if got == DefaultSystemInstruction {
			t.Error("Expected a task-specific instruction for maths")
		}
	})

	t.Run("unknown task falls back to default", func(t *testing.T) {
		if got := SystemInstructionForTask("cooking"); got != DefaultSystemInstruction {
			t.Errorf("Expected default instruction, got '%s'", got)
		}
	})

	t.Run("empty task falls back to default", func(t *testing.T) {
		if got := SystemInstructionForTask(""); got != DefaultSystemInstruction {
			t.Errorf("Expected default instruction, got '%s'", got)
		}
	})
}
