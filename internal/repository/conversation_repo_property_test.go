package repository

import (
	"context"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/studychat/backend/internal/db"
	"github.com/studychat/backend/internal/model"
)

// A transcript load must return exactly the non-blank turns that were
// appended, in append order, regardless of content.
func TestTranscriptRoundTripProperty(t *testing.T) {
	database, err := db.NewTestDB()
	if err != nil {
		t.Fatalf("Failed to create test database: %v", err)
	}
	defer database.Close()

	repo := NewConversationRepository(database)
	ctx := context.Background()

	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 50

	properties := gopter.NewProperties(parameters)

	turnText := gen.AlphaString().SuchThat(func(s string) bool {
		return len(s) > 0 && len(s) <= 200
	})

	properties.Property("appended turns come back in order", prop.ForAll(
		func(texts []string) bool {
			convID, err := repo.CreateConversation(ctx, 1, "prop", model.GenerationConfig{Model: "m", Temperature: 1, TopP: 0.95})
			if err != nil {
				t.Logf("failed to create conversation: %v", err)
				return false
			}

			base := time.Now()
			for i, text := range texts {
				role := model.RoleUser
				if i%2 == 1 {
					role = model.RoleAssistant
				}
				_, appended, err := repo.AppendMessage(ctx, &model.Message{
					ConversationID: convID,
					Role:           role,
					Content:        text,
					Timestamp:      base.Add(time.Duration(i) * time.Millisecond),
				})
				if err != nil {
					t.Logf("failed to append: %v", err)
					return false
				}
				if !appended {
					t.Logf("non-blank turn %d was skipped", i)
					return false
				}
			}

			messages, _, err := repo.LoadTranscript(ctx, convID)
			if err != nil {
				t.Logf("failed to load transcript: %v", err)
				return false
			}
			if len(messages) != len(texts) {
				t.Logf("expected %d messages, got %d", len(texts), len(messages))
				return false
			}
			for i, msg := range messages {
				if msg.Content != texts[i] {
					t.Logf("message %d: expected %q, got %q", i, texts[i], msg.Content)
					return false
				}
			}
			return true
		},
		gen.SliceOf(turnText),
	))

	properties.Property("blank turns never produce rows", prop.ForAll(
		func(padding int) bool {
			convID, err := repo.CreateConversation(ctx, 1, "blank", model.GenerationConfig{Model: "m", Temperature: 1, TopP: 0.95})
			if err != nil {
				return false
			}

			blank := ""
			for i := 0; i < padding%8; i++ {
				blank += " "
			}
			if _, appended, err := repo.AppendMessage(ctx, &model.Message{
				ConversationID: convID,
				Role:           model.RoleUser,
				Content:        blank,
				Timestamp:      time.Now(),
			}); err != nil || appended {
				return false
			}

			count, err := repo.CountMessages(ctx, convID)
			return err == nil && count == 0
		},
		gen.IntRange(0, 64),
	))

	properties.TestingRun(t)
}
