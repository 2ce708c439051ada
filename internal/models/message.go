package models

import (
	"errors"
	"time"
)

// ContentType classifies a message body for rendering.
type ContentType string

const (
	ContentTypeText ContentType = "text"
	ContentTypeCode ContentType = "code"
)

// ChatMessage is one normalized message. MessageID is content-addressed, so
// re-importing the same source file reproduces identical ids.
type ChatMessage struct {
	MessageID      string      `db:"message_id" json:"message_id"`
	ConversationID string      `db:"conversation_id" json:"conversation_id"`
	TimestampUTC   int64       `db:"timestamp_utc" json:"timestamp_utc"`
	Author         string      `db:"author" json:"author"`
	Content        string      `db:"content" json:"content"`
	ContentType    ContentType `db:"content_type" json:"content_type"`
}

// Validate checks the invariants a message must satisfy before it may be
// persisted.
func (m *ChatMessage) Validate() error {
	if m.MessageID == "" {
		return errors.New("message_id is required")
	}
	if m.ConversationID == "" {
		return errors.New("conversation_id is required")
	}
	if m.Content == "" {
		return errors.New("content is required")
	}
	if m.ContentType != ContentTypeText && m.ContentType != ContentTypeCode {
		return errors.New("content_type must be text or code")
	}
	return nil
}

// Time returns the message timestamp as a time.Time.
func (m *ChatMessage) Time() time.Time {
	return time.Unix(m.TimestampUTC, 0).UTC()
}
