package store

import (
	"context"
	"encoding/json"

	"github.com/kshao/chatvault/internal/crypto"
	apperrors "github.com/kshao/chatvault/internal/errors"
	"github.com/kshao/chatvault/internal/models"
)

// SaveBatch persists one parsed file's conversations and messages in a
// single transaction. Either every row lands or none does; re-importing
// the same export upserts instead of duplicating.
func (s *Store) SaveBatch(ctx context.Context, conversations []models.Conversation, messages []models.ChatMessage) error {
	if !s.crypto.Ready() {
		return crypto.ErrNotInitialized
	}

	for _, conv := range conversations {
		if err := conv.Validate(); err != nil {
			return apperrors.Wrap(apperrors.KindValidation, apperrors.SeverityHigh, "invalid conversation", err)
		}
	}
	for _, msg := range messages {
		if err := msg.Validate(); err != nil {
			return apperrors.Wrap(apperrors.KindValidation, apperrors.SeverityHigh, "invalid message", err)
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return apperrors.Wrap(apperrors.KindDatabase, apperrors.SeverityHigh, "failed to begin transaction", err)
	}
	defer tx.Rollback()

	convStmt, err := tx.PrepareContext(ctx, `
	INSERT INTO conversations (id, source_app, chat_type, display_name, start_time, end_time, tags)
	VALUES (?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET
		source_app = excluded.source_app,
		chat_type = excluded.chat_type,
		display_name = excluded.display_name,
		start_time = excluded.start_time,
		end_time = excluded.end_time,
		tags = excluded.tags`)
	if err != nil {
		return apperrors.Wrap(apperrors.KindDatabase, apperrors.SeverityHigh, "failed to prepare conversation statement", err)
	}
	defer convStmt.Close()

	for _, conv := range conversations {
		name, err := s.crypto.Encrypt(conv.DisplayName)
		if err != nil {
			return err
		}
		tagsJSON, err := json.Marshal(conv.Tags)
		if err != nil {
			return apperrors.Wrap(apperrors.KindDatabase, apperrors.SeverityHigh, "failed to encode tags", err)
		}
		tags, err := s.crypto.Encrypt(string(tagsJSON))
		if err != nil {
			return err
		}
		if _, err := convStmt.ExecContext(ctx, conv.ID, conv.SourceApp, string(conv.ChatType), name, conv.StartTime, conv.EndTime, tags); err != nil {
			return apperrors.Wrap(apperrors.KindDatabase, apperrors.SeverityHigh, "failed to upsert conversation", err)
		}
	}

	msgStmt, err := tx.PrepareContext(ctx, `
	INSERT INTO messages (message_id, conversation_id, timestamp_utc, author, content, content_type)
	VALUES (?, ?, ?, ?, ?, ?)
	ON CONFLICT(message_id) DO UPDATE SET
		conversation_id = excluded.conversation_id,
		timestamp_utc = excluded.timestamp_utc,
		author = excluded.author,
		content = excluded.content,
		content_type = excluded.content_type`)
	if err != nil {
		return apperrors.Wrap(apperrors.KindDatabase, apperrors.SeverityHigh, "failed to prepare message statement", err)
	}
	defer msgStmt.Close()

	for _, msg := range messages {
		author, err := s.crypto.Encrypt(msg.Author)
		if err != nil {
			return err
		}
		content, err := s.crypto.Encrypt(msg.Content)
		if err != nil {
			return err
		}
		if _, err := msgStmt.ExecContext(ctx, msg.MessageID, msg.ConversationID, msg.TimestampUTC, author, content, string(msg.ContentType)); err != nil {
			return apperrors.Wrap(apperrors.KindDatabase, apperrors.SeverityHigh, "failed to upsert message", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return apperrors.Wrap(apperrors.KindDatabase, apperrors.SeverityHigh, "failed to commit batch", err)
	}
	return nil
}
