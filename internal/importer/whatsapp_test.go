package importer

import (
	"strings"
	"testing"
	"time"

	"github.com/kshao/chatvault/internal/config"
	"github.com/kshao/chatvault/internal/models"
)

const whatsappLog = `Messages are end-to-end encrypted.
[14/06/2025, 11:24] Jane: Hi
[14/06/2025, 11:25] John: Hello
how are you?
[14/06/2025, 11:26] Jane: Fine, thanks`

func TestWhatsAppParse(t *testing.T) {
	res := parseAs(t, FormatWhatsApp, whatsappLog)

	if len(res.Conversations) != 1 {
		t.Fatalf("expected 1 conversation, got %d", len(res.Conversations))
	}
	conv := res.Conversations[0]
	if conv.SourceApp != "WhatsApp" || conv.ChatType != models.ChatTypeHuman {
		t.Errorf("unexpected source/type: %q %q", conv.SourceApp, conv.ChatType)
	}
	if conv.DisplayName != "Chat: Jane, John" {
		t.Errorf("display name = %q, want participant listing", conv.DisplayName)
	}

	if len(res.Messages) != 3 {
		t.Fatalf("expected 3 messages, got %d", len(res.Messages))
	}
	want := time.Date(2025, 6, 14, 11, 24, 0, 0, time.UTC).Unix()
	if res.Messages[0].TimestampUTC != want {
		t.Errorf("first timestamp = %d, want %d", res.Messages[0].TimestampUTC, want)
	}
	if res.Messages[0].Author != "Jane" || res.Messages[0].Content != "Hi" {
		t.Errorf("first message = %q/%q", res.Messages[0].Author, res.Messages[0].Content)
	}
	// The dangling line belongs to the preceding message.
	if got := res.Messages[1].Content; got != "Hello\nhow are you?" {
		t.Errorf("continuation not joined: %q", got)
	}
}

func TestWhatsAppLineFormats(t *testing.T) {
	cases := []struct {
		name string
		line string
	}{
		{"dash separated", "14/06/2025, 11:24 - Jane: Hi"},
		{"bracketed", "[14/06/2025, 11:24] Jane: Hi"},
		{"bracketed with seconds", "[14/06/2025, 11:24:30] Jane: Hi"},
		{"author parenthesized", "Jane (14/06/2025 11:24): Hi"},
		{"author first", "Jane: 14/06/2025 11:24 Hi"},
		{"two digit year", "[14/6/25, 11:24] Jane: Hi"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			author, body, ts, ok := matchLine(tc.line)
			if !ok {
				t.Fatalf("line did not match: %q", tc.line)
			}
			if author != "Jane" || body != "Hi" {
				t.Errorf("got %q/%q, want Jane/Hi", author, body)
			}
			if ts <= 0 {
				t.Errorf("timestamp not parsed: %d", ts)
			}
		})
	}
}

func TestWhatsAppRejectsJSON(t *testing.T) {
	reg := newTestRegistry(config.DefaultLimits())
	if err := reg.parserFor(FormatWhatsApp).Validate(`{"mapping": {}}`); err == nil {
		t.Fatal("expected JSON input to be rejected")
	}
}

func TestWhatsAppValidateNeedsTwoLines(t *testing.T) {
	reg := newTestRegistry(config.DefaultLimits())
	par := reg.parserFor(FormatWhatsApp)

	if err := par.Validate("[14/06/2025, 11:24] Jane: Hi"); err == nil {
		t.Fatal("one matching line must not pass strict validation")
	}
	if err := par.Validate(whatsappLog); err != nil {
		t.Fatalf("well-formed log rejected: %v", err)
	}
}

func TestWhatsAppNamePersistsAcrossSpeakerOrder(t *testing.T) {
	reversed := strings.Join([]string{
		"[14/06/2025, 11:24] John: Hello",
		"[14/06/2025, 11:25] Jane: Hi",
	}, "\n")
	res := parseAs(t, FormatWhatsApp, reversed)
	if res.Conversations[0].DisplayName != "Chat: Jane, John" {
		t.Errorf("display name = %q, want sorted participants", res.Conversations[0].DisplayName)
	}
}
