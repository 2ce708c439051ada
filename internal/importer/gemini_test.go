package importer

import (
	"testing"

	"github.com/kshao/chatvault/internal/models"
)

const geminiExportJSON = `{
	"conversations": [{
		"conversation_id": "g1",
		"conversation_title": "Test",
		"create_time": "2023-11-14T22:13:20Z",
		"messages": [
			{"author": "user", "text": "Hi", "create_time": "2023-11-14T22:13:20Z"},
			{"author": "model", "text": "Hello", "create_time": "2023-11-14T22:14:20Z"}
		]
	}]
}`

func TestGeminiParse(t *testing.T) {
	res := parseAs(t, FormatGemini, geminiExportJSON)

	if len(res.Conversations) != 1 {
		t.Fatalf("expected 1 conversation, got %d", len(res.Conversations))
	}
	conv := res.Conversations[0]
	if conv.ID != "g1" || conv.SourceApp != "Gemini" || conv.ChatType != models.ChatTypeLLM {
		t.Errorf("conversation = %q/%q/%q", conv.ID, conv.SourceApp, conv.ChatType)
	}

	if len(res.Messages) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(res.Messages))
	}
	if res.Messages[0].Author != "User" {
		t.Errorf("user author = %q", res.Messages[0].Author)
	}
	if res.Messages[1].Author != "Gemini" {
		t.Errorf("model author = %q, want Gemini", res.Messages[1].Author)
	}
	if conv.StartTime != 1700000000 || conv.EndTime != 1700000060 {
		t.Errorf("bounds = [%d, %d]", conv.StartTime, conv.EndTime)
	}
}
