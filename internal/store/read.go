package store

import (
	"context"
	"encoding/json"

	apperrors "github.com/kshao/chatvault/internal/errors"
	"github.com/kshao/chatvault/internal/models"
)

// ListConversations returns every stored conversation ordered by start
// time, with encrypted fields decrypted through the unlocked session key.
func (s *Store) ListConversations(ctx context.Context) ([]models.Conversation, error) {
	rows, err := s.db.QueryContext(ctx, `
	SELECT id, source_app, chat_type, display_name, start_time, end_time, tags
	FROM conversations ORDER BY start_time ASC, id ASC`)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindDatabase, apperrors.SeverityHigh, "failed to query conversations", err)
	}
	defer rows.Close()

	var out []models.Conversation
	for rows.Next() {
		var conv models.Conversation
		var chatType, nameBlob, tagsBlob string
		if err := rows.Scan(&conv.ID, &conv.SourceApp, &chatType, &nameBlob, &conv.StartTime, &conv.EndTime, &tagsBlob); err != nil {
			return nil, apperrors.Wrap(apperrors.KindDatabase, apperrors.SeverityHigh, "failed to scan conversation", err)
		}
		conv.ChatType = models.ChatType(chatType)

		if conv.DisplayName, err = s.crypto.Decrypt(nameBlob); err != nil {
			return nil, err
		}
		tagsJSON, err := s.crypto.Decrypt(tagsBlob)
		if err != nil {
			return nil, err
		}
		conv.Tags = []string{}
		if err := json.Unmarshal([]byte(tagsJSON), &conv.Tags); err != nil {
			return nil, apperrors.Wrap(apperrors.KindDatabase, apperrors.SeverityHigh, "failed to decode tags", err)
		}
		out = append(out, conv)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(apperrors.KindDatabase, apperrors.SeverityHigh, "failed to iterate conversations", err)
	}
	return out, nil
}

// Messages returns the messages of one conversation in timestamp order,
// decrypted.
func (s *Store) Messages(ctx context.Context, conversationID string) ([]models.ChatMessage, error) {
	rows, err := s.db.QueryContext(ctx, `
	SELECT message_id, conversation_id, timestamp_utc, author, content, content_type
	FROM messages WHERE conversation_id = ?
	ORDER BY timestamp_utc ASC, message_id ASC`, conversationID)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindDatabase, apperrors.SeverityHigh, "failed to query messages", err)
	}
	defer rows.Close()

	var out []models.ChatMessage
	for rows.Next() {
		var msg models.ChatMessage
		var contentType, authorBlob, contentBlob string
		if err := rows.Scan(&msg.MessageID, &msg.ConversationID, &msg.TimestampUTC, &authorBlob, &contentBlob, &contentType); err != nil {
			return nil, apperrors.Wrap(apperrors.KindDatabase, apperrors.SeverityHigh, "failed to scan message", err)
		}
		msg.ContentType = models.ContentType(contentType)

		if msg.Author, err = s.crypto.Decrypt(authorBlob); err != nil {
			return nil, err
		}
		if msg.Content, err = s.crypto.Decrypt(contentBlob); err != nil {
			return nil, err
		}
		out = append(out, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(apperrors.KindDatabase, apperrors.SeverityHigh, "failed to iterate messages", err)
	}
	return out, nil
}

// CountConversations returns the number of stored conversations without
// touching any encrypted column.
func (s *Store) CountConversations(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM conversations").Scan(&n); err != nil {
		return 0, apperrors.Wrap(apperrors.KindDatabase, apperrors.SeverityHigh, "failed to count conversations", err)
	}
	return n, nil
}
