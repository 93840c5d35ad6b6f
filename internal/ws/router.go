package ws

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/studychat/backend/internal/auth"
	"github.com/studychat/backend/internal/driver"
	"github.com/studychat/backend/internal/model"
	"github.com/studychat/backend/internal/relay"
	"github.com/studychat/backend/internal/render"
	"github.com/studychat/backend/internal/repository"
	"github.com/studychat/backend/internal/session"
)

// Router decodes inbound intents and executes exactly one operation per
// intent, orchestrating the session registry, the conversation store and the
// generation driver. Intents from one connection are dispatched by that
// connection's worker, one at a time; only cancel-generation bypasses the
// queue (see Handler).
type Router struct {
	registry *session.Registry
	repo     *repository.ConversationRepository
	driver   driver.Driver
	verifier auth.Verifier
	defaults model.GenerationConfig
}

// NewRouter creates a Router.
func NewRouter(registry *session.Registry, repo *repository.ConversationRepository, drv driver.Driver, verifier auth.Verifier, defaults model.GenerationConfig) *Router {
	if defaults.SystemInstruction == "" {
		defaults.SystemInstruction = driver.DefaultSystemInstruction
	}
	return &Router{
		registry: registry,
		repo:     repo,
		driver:   drv,
		verifier: verifier,
		defaults: defaults,
	}
}

// Registry exposes the session registry to the handler and sweeper.
func (r *Router) Registry() *session.Registry {
	return r.registry
}

// Dispatch executes one intent for the client's connection. Every failure
// path emits either an error frame or an interrupted frame; nothing is
// swallowed.
func (r *Router) Dispatch(ctx context.Context, client *Client, intent *Intent) {
	switch intent.Action {
	case ActionAuthenticate:
		r.handleAuthenticate(client, intent)
	case ActionStartConversation:
		r.handleStartConversation(ctx, client)
	case ActionCustomizeSession:
		r.handleCustomizeSession(ctx, client, intent)
	case ActionSendTurn:
		r.handleSendTurn(ctx, client, intent)
	case ActionCancelGeneration:
		r.HandleCancel(client.ConnID())
	case ActionLoadList:
		r.handleLoadList(ctx, client)
	case ActionLoadConversation:
		r.handleLoadConversation(ctx, client, intent)
	case ActionEditTurn:
		r.handleEditTurn(ctx, client, intent)
	case ActionDeleteTurn:
		r.handleDeleteTurn(ctx, client, intent)
	case ActionSignOut:
		r.handleSignOut(ctx, client)
	default:
		client.SendFrame(errorFrame(model.ErrKindUnsupported, "unrecognized action"))
	}
}

// HandleCancel flags the connection's in-flight generation. The relay
// observes the flag before emitting each subsequent frame. Safe to call from
// the read pump while the worker is inside a generation call.
func (r *Router) HandleCancel(connID string) {
	r.registry.RequestCancel(connID)
}

// requireSession fetches the caller's session or reports a session error.
func (r *Router) requireSession(client *Client) (session.Session, bool) {
	sess, ok := r.registry.Get(client.ConnID())
	if !ok {
		client.SendFrame(errorFrame(model.ErrKindSession, model.ErrSessionNotFound.Error()))
		return session.Session{}, false
	}
	return sess, true
}

func (r *Router) handleAuthenticate(client *Client, intent *Intent) {
	if intent.Token == "" {
		client.SendFrame(errorFrame(model.ErrKindValidation, "token is required"))
		return
	}

	userID, err := r.verifier.VerifyToken(intent.Token)
	if err != nil {
		client.SendFrame(errorFrame(model.ErrKindValidation, "invalid token"))
		return
	}

	// Re-authentication on a live connection rebinds a fresh session.
	r.registry.Unbind(client.ConnID())

	if _, err := r.registry.Bind(client.ConnID(), userID, r.defaults); err != nil {
		client.SendFrame(errorFrame(model.ErrKindSession, err.Error()))
		return
	}

	log.Info().Str("conn_id", client.ConnID()).Int64("user_id", userID).Msg("session bound")
	client.SendFrame(Frame{Type: FrameConnectionEstablished, Identity: userID})
}

func (r *Router) handleStartConversation(ctx context.Context, client *Client) {
	if _, ok := r.requireSession(client); !ok {
		return
	}

	if err := r.Flush(ctx, client.ConnID()); err != nil {
		client.SendFrame(errorFrame(model.ErrKindStorage, "failed to save conversation"))
		return
	}

	r.registry.SetActiveConversation(client.ConnID(), nil)
	client.SendFrame(Frame{Type: FrameConversationReset})
}

func (r *Router) handleCustomizeSession(ctx context.Context, client *Client, intent *Intent) {
	sess, ok := r.requireSession(client)
	if !ok {
		return
	}

	if strings.TrimSpace(intent.Description) == "" {
		client.SendFrame(errorFrame(model.ErrKindValidation, "description is required"))
		return
	}

	instruction := driver.SystemInstructionForTask(intent.Task)
	patch := model.GenerationConfigPatch{
		Temperature:       intent.Temperature,
		TopP:              intent.TopP,
		SystemInstruction: &instruction,
	}
	if intent.Model != "" {
		patch.Model = &intent.Model
	}
	r.registry.SetGenerationConfig(client.ConnID(), patch)

	sess, _ = r.registry.Get(client.ConnID())

	label := model.ConversationLabel(intent.Task + " - " + intent.Description)
	convID, err := r.repo.CreateConversation(ctx, sess.UserID, label, sess.Config)
	if err != nil {
		log.Error().Err(err).Msg("failed to create conversation")
		client.SendFrame(errorFrame(model.ErrKindStorage, "failed to create conversation"))
		return
	}
	r.registry.SetActiveConversation(client.ConnID(), &convID)

	// The opening exchange is generated without partial frames; the rendered
	// reply travels on the customization-applied frame.
	rendered, ok := r.runExchange(ctx, client, sess.Config, nil, intent.Description, nil, convID, quietSink{client: client})
	if !ok {
		return
	}

	client.SendFrame(Frame{
		Type:            FrameCustomizationApplied,
		RenderedContent: rendered,
		ConversationID:  convID,
	})
}

func (r *Router) handleSendTurn(ctx context.Context, client *Client, intent *Intent) {
	sess, ok := r.requireSession(client)
	if !ok {
		return
	}

	text := strings.TrimSpace(intent.Message)
	if text == "" && len(intent.Files) == 0 {
		client.SendFrame(errorFrame(model.ErrKindValidation, "no message or file provided"))
		return
	}

	attachments, ok := r.uploadAttachments(ctx, client, intent.Files)
	if !ok {
		return
	}

	// Lazy conversation creation: the first turn of a session with no bound
	// conversation creates one, named from the message.
	var convID int64
	if sess.ConversationID == nil {
		var err error
		convID, err = r.repo.CreateConversation(ctx, sess.UserID, model.ConversationLabel(text), sess.Config)
		if err != nil {
			log.Error().Err(err).Msg("failed to create conversation")
			client.SendFrame(errorFrame(model.ErrKindStorage, "failed to create conversation"))
			return
		}
		r.registry.SetActiveConversation(client.ConnID(), &convID)
	} else {
		convID = *sess.ConversationID
	}

	history := r.registry.History(client.ConnID())
	sink := &clientSink{client: client}
	rendered, ok := r.runExchange(ctx, client, sess.Config, history, text, attachments, convID, sink)
	if !ok {
		return
	}

	client.SendFrame(Frame{
		Type:            FrameFinal,
		RenderedContent: rendered,
		ConversationID:  convID,
	})
}

// runExchange executes one full turn: persist the user side, stream the
// generation through the sink, render and persist the assistant side. It
// returns the rendered assistant content; ok is false when the exchange was
// aborted and a terminal error/interrupted frame already sent. The final (or
// customization-applied) frame is the caller's to emit.
func (r *Router) runExchange(ctx context.Context, client *Client, cfg model.GenerationConfig, history []model.Turn, text string, attachments []model.Attachment, convID int64, sink relay.Sink) (string, bool) {
	connID := client.ConnID()
	now := time.Now()

	// The composing acknowledgement goes out before any storage write.
	client.SendFrame(Frame{Type: FrameStatus, Status: StatusComposing})

	userMsg := &model.Message{
		ConversationID: convID,
		Role:           model.RoleUser,
		Content:        text,
		Attachments:    attachments,
		Timestamp:      now,
	}
	if _, appended, err := r.repo.AppendMessage(ctx, userMsg); err != nil {
		log.Error().Err(err).Int64("conversation_id", convID).Msg("failed to persist user turn")
		client.SendFrame(errorFrame(model.ErrKindStorage, "failed to save message"))
		return "", false
	} else if appended {
		r.registry.AppendExchange(connID, true, model.Turn{Role: model.RoleUser, Content: text})
	}

	r.registry.ClearCancel(connID)
	genCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	stream, err := r.driver.SendTurn(genCtx, driver.TurnRequest{
		Config:      cfg,
		History:     history,
		Text:        text,
		Attachments: attachments,
	})
	if err != nil {
		log.Error().Err(err).Int64("conversation_id", convID).Msg("generation call failed")
		client.SendFrame(errorFrame(model.ErrKindGeneration, "failed to generate a response"))
		return "", false
	}

	raw, err := relay.Run(stream, sink, func() bool {
		return r.registry.CancelRequested(connID)
	})
	if err != nil {
		// The relay already emitted the interrupted frame. The user turn
		// stays persisted; the assistant turn must not be recorded for a
		// failed exchange.
		log.Warn().Err(err).Int64("conversation_id", convID).Msg("generation interrupted")
		return "", false
	}

	rendered := render.Markdown(raw)

	assistantMsg := &model.Message{
		ConversationID: convID,
		Role:           model.RoleAssistant,
		Content:        rendered,
		Timestamp:      time.Now(),
	}
	if _, appended, err := r.repo.AppendMessage(ctx, assistantMsg); err != nil {
		// The client already holds the streamed content; report the storage
		// failure and keep the turn in history unsaved so the close-time
		// flush retries it once.
		log.Error().Err(err).Int64("conversation_id", convID).Msg("failed to persist assistant turn")
		r.registry.AppendExchange(connID, false, model.Turn{Role: model.RoleAssistant, Content: rendered})
		client.SendFrame(errorFrame(model.ErrKindStorage, "failed to save assistant reply"))
		return rendered, true
	} else if appended {
		r.registry.AppendExchange(connID, true, model.Turn{Role: model.RoleAssistant, Content: rendered})
	}

	return rendered, true
}

// uploadAttachments validates and stages inbound files with the generation
// backend, returning descriptors carrying the backend-assigned references.
func (r *Router) uploadAttachments(ctx context.Context, client *Client, files []FilePayload) ([]model.Attachment, bool) {
	if len(files) == 0 {
		return nil, true
	}

	attachments := make([]model.Attachment, 0, len(files))
	for _, f := range files {
		if err := driver.ValidateAttachment(int64(len(f.Data)), f.MediaType); err != nil {
			client.SendFrame(errorFrame(model.ErrKindValidation, err.Error()))
			return nil, false
		}
		ref, err := r.driver.UploadAttachment(ctx, f.Data, f.MediaType, f.Name)
		if err != nil {
			client.SendFrame(errorFrame(model.ErrKindGeneration, "failed to upload attachment"))
			return nil, false
		}
		attachments = append(attachments, model.Attachment{
			Name:      f.Name,
			MediaType: f.MediaType,
			Size:      int64(len(f.Data)),
			Ref:       ref,
		})
	}
	return attachments, true
}

func (r *Router) handleLoadList(ctx context.Context, client *Client) {
	sess, ok := r.requireSession(client)
	if !ok {
		return
	}

	conversations, err := r.repo.ListConversations(ctx, sess.UserID)
	if err != nil {
		log.Error().Err(err).Int64("user_id", sess.UserID).Msg("failed to list conversations")
		client.SendFrame(errorFrame(model.ErrKindStorage, "failed to load conversations"))
		return
	}

	client.SendFrame(Frame{Type: FramePreviousConversations, Conversations: conversations})
}

func (r *Router) handleLoadConversation(ctx context.Context, client *Client, intent *Intent) {
	sess, ok := r.requireSession(client)
	if !ok {
		return
	}

	if intent.ConversationID == nil {
		client.SendFrame(errorFrame(model.ErrKindValidation, "conversationId is required"))
		return
	}
	convID := *intent.ConversationID

	// Resolve ownership before reading any transcript rows.
	conv, err := r.repo.GetConversation(ctx, convID)
	if err != nil {
		if err == model.ErrConversationNotFound {
			client.SendFrame(errorFrame(model.ErrKindValidation, "conversation not found"))
			return
		}
		log.Error().Err(err).Int64("conversation_id", convID).Msg("failed to load conversation")
		client.SendFrame(errorFrame(model.ErrKindStorage, "failed to load conversation"))
		return
	}
	if conv.UserID != sess.UserID {
		client.SendFrame(errorFrame(model.ErrKindSession, "conversation does not belong to this user"))
		return
	}

	messages, err := r.repo.LoadMessages(ctx, convID)
	if err != nil {
		log.Error().Err(err).Int64("conversation_id", convID).Msg("failed to load transcript")
		client.SendFrame(errorFrame(model.ErrKindStorage, "failed to load conversation"))
		return
	}

	// Reinstate the stored snapshot and rebuild the in-memory history the
	// generation backend is fed from; the registry is the sole owner of both.
	r.registry.ReplaceGenerationConfig(client.ConnID(), conv.Config)

	turns := make([]model.Turn, 0, len(messages))
	for _, msg := range messages {
		turns = append(turns, model.Turn{Role: msg.Role, Content: msg.Content})
	}
	r.registry.ReplaceHistory(client.ConnID(), turns)
	r.registry.SetActiveConversation(client.ConnID(), &convID)

	client.SendFrame(Frame{
		Type:           FrameTranscript,
		ConversationID: convID,
		Messages:       messages,
	})
}

func (r *Router) handleEditTurn(ctx context.Context, client *Client, intent *Intent) {
	if _, ok := r.requireSession(client); !ok {
		return
	}
	if intent.MessageID == nil || strings.TrimSpace(intent.NewContent) == "" {
		client.SendFrame(errorFrame(model.ErrKindValidation, "messageId and newContent are required"))
		return
	}

	if err := r.repo.EditMessage(ctx, *intent.MessageID, intent.NewContent); err != nil {
		client.SendFrame(errorFrame(model.ErrKindStorage, "failed to edit message"))
		return
	}

	client.SendFrame(Frame{
		Type:       FrameTurnEdited,
		MessageID:  *intent.MessageID,
		NewContent: intent.NewContent,
	})
}

func (r *Router) handleDeleteTurn(ctx context.Context, client *Client, intent *Intent) {
	if _, ok := r.requireSession(client); !ok {
		return
	}
	if intent.MessageID == nil {
		client.SendFrame(errorFrame(model.ErrKindValidation, "messageId is required"))
		return
	}

	if err := r.repo.DeleteMessage(ctx, *intent.MessageID); err != nil {
		client.SendFrame(errorFrame(model.ErrKindStorage, "failed to delete message"))
		return
	}

	client.SendFrame(Frame{Type: FrameTurnDeleted, MessageID: *intent.MessageID})
}

func (r *Router) handleSignOut(ctx context.Context, client *Client) {
	connID := client.ConnID()
	if _, ok := r.registry.Get(connID); !ok {
		return
	}

	if err := r.Flush(ctx, connID); err != nil {
		log.Error().Err(err).Str("conn_id", connID).Msg("failed to flush on sign-out")
	}
	r.registry.Unbind(connID)
	log.Info().Str("conn_id", connID).Msg("session signed out")
}

// Flush writes the session's unsaved turns to its active conversation. Each
// turn's saved flag guarantees it is written exactly once even when flush is
// reached from several teardown paths. Best-effort with respect to the
// transport: it only touches storage.
func (r *Router) Flush(ctx context.Context, connID string) error {
	sess, ok := r.registry.Get(connID)
	if !ok || sess.ConversationID == nil {
		return nil
	}

	turns := r.registry.UnsavedTurns(connID)
	if len(turns) == 0 {
		return nil
	}

	written := 0
	for _, turn := range turns {
		msg := &model.Message{
			ConversationID: *sess.ConversationID,
			Role:           turn.Role,
			Content:        turn.Content,
			Timestamp:      time.Now(),
		}
		if _, _, err := r.repo.AppendMessage(ctx, msg); err != nil {
			r.registry.MarkSaved(connID, written)
			return err
		}
		written++
	}
	r.registry.MarkSaved(connID, written)

	log.Info().
		Str("conn_id", connID).
		Int64("conversation_id", *sess.ConversationID).
		Int("turns", len(turns)).
		Msg("flushed unsaved turns")
	return nil
}

// HandleDisconnect runs the close-time flush and unbinds the session. Called
// on transport close or error, whether client- or sweeper-initiated.
func (r *Router) HandleDisconnect(ctx context.Context, connID string) {
	if err := r.Flush(ctx, connID); err != nil {
		log.Error().Err(err).Str("conn_id", connID).Msg("close-time flush failed")
	}
	r.registry.Unbind(connID)
}

// clientSink forwards relay frames to the connection.
type clientSink struct {
	client *Client
}

func (s *clientSink) Partial(text string) {
	s.client.SendFrame(Frame{Type: FramePartial, Text: text})
}

func (s *clientSink) Interrupted(reason string) {
	s.client.SendFrame(Frame{Type: FrameInterrupted, Reason: reason})
}

// quietSink suppresses partial frames for exchanges whose reply travels on a
// single consolidated frame. Interruptions are still reported.
type quietSink struct {
	client *Client
}

func (quietSink) Partial(string) {}

func (s quietSink) Interrupted(reason string) {
	s.client.SendFrame(Frame{Type: FrameInterrupted, Reason: reason})
}
