// Package models provides the canonical data model every format parser
// normalizes into.
package models

import (
	"errors"
	"time"
)

// ChatType distinguishes LLM transcripts from human-to-human chats.
type ChatType string

const (
	ChatTypeLLM   ChatType = "llm"
	ChatTypeHuman ChatType = "human"
)

// Conversation is one imported conversation. Created once per import from
// parsed external data and never mutated by the core afterwards.
type Conversation struct {
	ID          string   `db:"id" json:"id"`
	SourceApp   string   `db:"source_app" json:"source_app"`
	ChatType    ChatType `db:"chat_type" json:"chat_type"`
	DisplayName string   `db:"display_name" json:"display_name"`
	StartTime   int64    `db:"start_time" json:"start_time"`
	EndTime     int64    `db:"end_time" json:"end_time"`
	Tags        []string `db:"tags" json:"tags"`
}

// Validate checks the invariants a conversation must satisfy before it may
// be persisted.
func (c *Conversation) Validate() error {
	if c.ID == "" {
		return errors.New("conversation id is required")
	}
	if c.SourceApp == "" {
		return errors.New("source_app is required")
	}
	if c.ChatType != ChatTypeLLM && c.ChatType != ChatTypeHuman {
		return errors.New("chat_type must be llm or human")
	}
	if c.StartTime > c.EndTime {
		return errors.New("start_time must not exceed end_time")
	}
	return nil
}

// StartTimeUTC returns StartTime as a time.Time.
func (c *Conversation) StartTimeUTC() time.Time {
	return time.Unix(c.StartTime, 0).UTC()
}

// EndTimeUTC returns EndTime as a time.Time.
func (c *Conversation) EndTimeUTC() time.Time {
	return time.Unix(c.EndTime, 0).UTC()
}
