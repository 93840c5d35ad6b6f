package ws

import (
	"context"
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// For any sequence of increments, the rendered final content carries the
// full concatenation, the partial frames in order equal the increments, and
// both persisted turns land in the lazily created conversation.
func TestSendTurnStreamingProperty(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 30

	properties := gopter.NewProperties(parameters)

	increment := gen.AlphaString().SuchThat(func(s string) bool {
		return len(s) > 0 && len(s) <= 40
	})

	properties.Property("partials reassemble into the final content", prop.ForAll(
		func(increments []string) bool {
			f := setupRouter(t)
			defer f.cleanup()
			ctx := context.Background()

			f.router.Dispatch(ctx, f.client, &Intent{Action: ActionAuthenticate, Token: "1"})
			drainFrames(t, f.client)

			f.driver.streams = []*fakeStream{{increments: increments}}
			f.router.Dispatch(ctx, f.client, &Intent{Action: ActionSendTurn, Message: "question"})

			frames := drainFrames(t, f.client)
			if len(frames) == 0 || frames[len(frames)-1].Type != FrameFinal {
				t.Logf("expected terminal final, got %v", frameTypes(frames))
				return false
			}

			var streamed []string
			for _, frame := range frames {
				if frame.Type == FramePartial {
					streamed = append(streamed, frame.Text)
				}
			}
			if len(streamed) != len(increments) {
				t.Logf("expected %d partials, got %d", len(increments), len(streamed))
				return false
			}
			for i, inc := range increments {
				if streamed[i] != inc {
					t.Logf("partial %d: expected %q, got %q", i, inc, streamed[i])
					return false
				}
			}

			final := frames[len(frames)-1]
			if !strings.Contains(final.RenderedContent, strings.Join(increments, "")) {
				// Rendering may rewrite punctuation, but alphabetic
				// increments pass through verbatim.
				t.Logf("final %q lost streamed content", final.RenderedContent)
				return false
			}

			count, err := f.repo.CountMessages(ctx, final.ConversationID)
			if err != nil {
				t.Logf("failed to count: %v", err)
				return false
			}
			return count == 2
		},
		gen.SliceOf(increment).SuchThat(func(xs []string) bool { return len(xs) > 0 && len(xs) <= 10 }),
	))

	properties.TestingRun(t)
}

// A turn carrying only whitespace, however shaped, is rejected with a
// validation error and leaves no trace: no conversation, no driver call.
func TestBlankSendIdempotenceProperty(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 50

	properties := gopter.NewProperties(parameters)

	whitespace := gen.SliceOf(gen.OneConstOf(" ", "\t", "\n", "\r")).Map(func(parts []string) string {
		return strings.Join(parts, "")
	})

	properties.Property("whitespace turns have no side effects", prop.ForAll(
		func(message string) bool {
			f := setupRouter(t)
			defer f.cleanup()
			ctx := context.Background()

			f.router.Dispatch(ctx, f.client, &Intent{Action: ActionAuthenticate, Token: "1"})
			drainFrames(t, f.client)

			f.router.Dispatch(ctx, f.client, &Intent{Action: ActionSendTurn, Message: message})

			frames := drainFrames(t, f.client)
			if len(frames) != 1 || frames[0].Type != FrameError {
				return false
			}
			if len(f.driver.requests) != 0 {
				return false
			}
			conversations, err := f.repo.ListConversations(ctx, 1)
			return err == nil && len(conversations) == 0
		},
		whitespace,
	))

	properties.TestingRun(t)
}

// Repeated turns on one session always reuse the conversation created by the
// first turn, and the history grows by one exchange per turn.
func TestConversationReuseProperty(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 20

	properties := gopter.NewProperties(parameters)

	properties.Property("turns accumulate in one conversation", prop.ForAll(
		func(turnCount int) bool {
			f := setupRouter(t)
			defer f.cleanup()
			ctx := context.Background()

			f.router.Dispatch(ctx, f.client, &Intent{Action: ActionAuthenticate, Token: "1"})
			drainFrames(t, f.client)

			var convID int64
			for i := 0; i < turnCount; i++ {
				f.driver.streams = []*fakeStream{{increments: []string{"reply"}}}
				f.router.Dispatch(ctx, f.client, &Intent{Action: ActionSendTurn, Message: "turn"})

				frames := drainFrames(t, f.client)
				final := frames[len(frames)-1]
				if final.Type != FrameFinal {
					return false
				}
				if convID == 0 {
					convID = final.ConversationID
				} else if final.ConversationID != convID {
					t.Logf("turn %d switched conversation: %d != %d", i, final.ConversationID, convID)
					return false
				}

				req := f.driver.requests[len(f.driver.requests)-1]
				if len(req.History) != 2*i {
					t.Logf("turn %d: expected %d history turns, got %d", i, 2*i, len(req.History))
					return false
				}
			}

			count, err := f.repo.CountMessages(ctx, convID)
			return err == nil && count == 2*turnCount
		},
		gen.IntRange(1, 5),
	))

	properties.TestingRun(t)
}
