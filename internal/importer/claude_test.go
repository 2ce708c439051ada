package importer

import (
	"testing"

	"github.com/kshao/chatvault/internal/models"
)

const claudeExport = `[{
	"uuid": "u1",
	"name": "Greeting",
	"created_at": "2023-11-14T22:13:20Z",
	"chat_messages": [
		{"uuid": "cm1", "sender": "human", "text": "Hi", "created_at": "2023-11-14T22:13:20Z"},
		{"uuid": "cm2", "sender": "assistant", "text": "Hello!", "created_at": "2023-11-14T22:14:20Z"}
	]
}]`

func TestClaudeParse(t *testing.T) {
	res := parseAs(t, FormatClaude, claudeExport)

	if len(res.Conversations) != 1 {
		t.Fatalf("expected 1 conversation, got %d", len(res.Conversations))
	}
	conv := res.Conversations[0]
	if conv.ID != "u1" || conv.SourceApp != "Claude" || conv.ChatType != models.ChatTypeLLM {
		t.Errorf("conversation = %q/%q/%q", conv.ID, conv.SourceApp, conv.ChatType)
	}
	if conv.DisplayName != "Greeting" {
		t.Errorf("display name = %q", conv.DisplayName)
	}

	if len(res.Messages) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(res.Messages))
	}
	if res.Messages[0].Author != "User" || res.Messages[0].TimestampUTC != 1700000000 {
		t.Errorf("first message = %q at %d", res.Messages[0].Author, res.Messages[0].TimestampUTC)
	}
	if res.Messages[1].Author != "Claude" {
		t.Errorf("assistant author = %q, want Claude", res.Messages[1].Author)
	}
}

func TestClaudeMessagesWithoutTimestampDropped(t *testing.T) {
	export := `{
		"uuid": "u2",
		"name": "Partial",
		"chat_messages": [
			{"uuid": "cm1", "sender": "human", "text": "kept", "created_at": "2023-11-14T22:13:20Z"},
			{"uuid": "cm2", "sender": "assistant", "text": "dropped", "created_at": "not a date"}
		]
	}`

	res := parseAs(t, FormatClaude, export)
	if len(res.Messages) != 1 {
		t.Fatalf("expected 1 message, got %d", len(res.Messages))
	}
	if res.Messages[0].Content != "kept" {
		t.Errorf("surviving content = %q", res.Messages[0].Content)
	}
}
