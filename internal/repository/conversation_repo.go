// Package repository provides data access for conversations and messages.
package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/pkg/errors"

	"github.com/studychat/backend/internal/model"
)

// ConversationRepository is the persistence surface for conversations and
// their turns. It carries no business logic; failures are surfaced to the
// caller, which does not retry.
type ConversationRepository struct {
	db *sql.DB
}

// NewConversationRepository creates a new ConversationRepository.
func NewConversationRepository(db *sql.DB) *ConversationRepository {
	return &ConversationRepository{db: db}
}

// CreateConversation inserts a new conversation with the generation
// configuration snapshot it was created under, returning the new id.
func (r *ConversationRepository) CreateConversation(ctx context.Context, userID int64, name string, cfg model.GenerationConfig) (int64, error) {
	query := `
		INSERT INTO conversations (user_id, name, model, temperature, top_p, system_instruction, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	res, err := r.db.ExecContext(ctx, query,
		userID,
		name,
		cfg.Model,
		cfg.Temperature,
		cfg.TopP,
		cfg.SystemInstruction,
		time.Now(),
	)
	if err != nil {
		return 0, errors.Wrap(err, "failed to create conversation")
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, errors.Wrap(err, "failed to read conversation id")
	}
	return id, nil
}

// AppendMessage inserts one turn into a conversation. Blank turns (no text,
// no attachments) are skipped; the bool result reports whether a row was
// written.
func (r *ConversationRepository) AppendMessage(ctx context.Context, msg *model.Message) (int64, bool, error) {
	if msg.Blank() {
		return 0, false, nil
	}

	attachJSON, err := msg.AttachmentsToJSON()
	if err != nil {
		return 0, false, errors.Wrap(err, "failed to serialize attachments")
	}

	query := `
		INSERT INTO messages (conversation_id, role, content, attachments, timestamp)
		VALUES (?, ?, ?, ?, ?)
	`

	var attachments interface{}
	if attachJSON != "" {
		attachments = attachJSON
	}

	res, err := r.db.ExecContext(ctx, query,
		msg.ConversationID,
		msg.Role,
		msg.Content,
		attachments,
		msg.Timestamp,
	)
	if err != nil {
		return 0, false, errors.Wrap(err, "failed to append message")
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, false, errors.Wrap(err, "failed to read message id")
	}
	return id, true, nil
}

// GetConversation retrieves a conversation and its stored configuration
// snapshot.
func (r *ConversationRepository) GetConversation(ctx context.Context, id int64) (*model.Conversation, error) {
	query := `
		SELECT id, user_id, name, model, temperature, top_p, system_instruction, created_at
		FROM conversations
		WHERE id = ?
	`

	conv := &model.Conversation{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&conv.ID,
		&conv.UserID,
		&conv.Name,
		&conv.Config.Model,
		&conv.Config.Temperature,
		&conv.Config.TopP,
		&conv.Config.SystemInstruction,
		&conv.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, model.ErrConversationNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to get conversation")
	}

	return conv, nil
}

// LoadTranscript returns a conversation's messages ordered by timestamp along
// with the stored generation configuration snapshot.
func (r *ConversationRepository) LoadTranscript(ctx context.Context, conversationID int64) ([]*model.Message, model.GenerationConfig, error) {
	conv, err := r.GetConversation(ctx, conversationID)
	if err != nil {
		return nil, model.GenerationConfig{}, err
	}

	messages, err := r.LoadMessages(ctx, conversationID)
	if err != nil {
		return nil, model.GenerationConfig{}, err
	}

	return messages, conv.Config, nil
}

// LoadMessages returns a conversation's messages ordered by timestamp. The
// caller is expected to have resolved the conversation row already.
func (r *ConversationRepository) LoadMessages(ctx context.Context, conversationID int64) ([]*model.Message, error) {
	query := `
		SELECT id, conversation_id, role, content, attachments, timestamp
		FROM messages
		WHERE conversation_id = ?
		ORDER BY timestamp ASC, id ASC
	`

	rows, err := r.db.QueryContext(ctx, query, conversationID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to load messages")
	}
	defer rows.Close()

	var messages []*model.Message
	for rows.Next() {
		msg := &model.Message{}
		var attachJSON sql.NullString

		err := rows.Scan(
			&msg.ID,
			&msg.ConversationID,
			&msg.Role,
			&msg.Content,
			&attachJSON,
			&msg.Timestamp,
		)
		if err != nil {
			return nil, errors.Wrap(err, "failed to scan message")
		}

		if attachJSON.Valid {
			if err := msg.AttachmentsFromJSON(attachJSON.String); err != nil {
				return nil, errors.Wrap(err, "failed to parse attachments")
			}
		}

		messages = append(messages, msg)
	}

	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "error iterating messages")
	}

	return messages, nil
}

// ListConversations retrieves all conversations for a user, most recent first.
func (r *ConversationRepository) ListConversations(ctx context.Context, userID int64) ([]*model.Conversation, error) {
	query := `
		SELECT id, user_id, name, model, temperature, top_p, system_instruction, created_at
		FROM conversations
		WHERE user_id = ?
		ORDER BY created_at DESC, id DESC
	`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list conversations")
	}
	defer rows.Close()

	var conversations []*model.Conversation
	for rows.Next() {
		conv := &model.Conversation{}
		err := rows.Scan(
			&conv.ID,
			&conv.UserID,
			&conv.Name,
			&conv.Config.Model,
			&conv.Config.Temperature,
			&conv.Config.TopP,
			&conv.Config.SystemInstruction,
			&conv.CreatedAt,
		)
		if err != nil {
			return nil, errors.Wrap(err, "failed to scan conversation")
		}
		conversations = append(conversations, conv)
	}

	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "error iterating conversations")
	}

	return conversations, nil
}

// EditMessage replaces the content of a stored message.
func (r *ConversationRepository) EditMessage(ctx context.Context, messageID int64, newContent string) error {
	query := `UPDATE messages SET content = ? WHERE id = ?`

	result, err := r.db.ExecContext(ctx, query, newContent, messageID)
	if err != nil {
		return errors.Wrap(err, "failed to edit message")
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "failed to get rows affected")
	}
	if rowsAffected == 0 {
		return model.ErrMessageNotFound
	}

	return nil
}

// DeleteMessage removes a stored message.
func (r *ConversationRepository) DeleteMessage(ctx context.Context, messageID int64) error {
	query := `DELETE FROM messages WHERE id = ?`

	result, err := r.db.ExecContext(ctx, query, messageID)
	if err != nil {
		return errors.Wrap(err, "failed to delete message")
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "failed to get rows affected")
	}
	if rowsAffected == 0 {
		return model.ErrMessageNotFound
	}

	return nil
}

// CountMessages returns the number of stored turns in a conversation.
func (r *ConversationRepository) CountMessages(ctx context.Context, conversationID int64) (int, error) {
	query := `SELECT COUNT(*) FROM messages WHERE conversation_id = ?`

	var count int
	err := r.db.QueryRowContext(ctx, query, conversationID).Scan(&count)
	if err != nil {
		return 0, errors.Wrap(err, "failed to count messages")
	}

	return count, nil
}
