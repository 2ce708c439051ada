package importer

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	apperrors "github.com/kshao/chatvault/internal/errors"
	"github.com/kshao/chatvault/internal/models"
)

// claudeParser handles Claude's export: an array of conversations, each
// with a flat chat_messages array and ISO-8601 timestamps.
type claudeParser struct {
	p *pipeline
}

func newClaudeParser(p *pipeline) *claudeParser {
	return &claudeParser{p: p}
}

type claudeConversation struct {
	UUID         string          `json:"uuid"`
	Name         string          `json:"name"`
	CreatedAt    string          `json:"created_at"`
	UpdatedAt    string          `json:"updated_at"`
	ChatMessages []claudeMessage `json:"chat_messages"`
}

type claudeMessage struct {
	UUID      string `json:"uuid"`
	Sender    string `json:"sender"`
	Text      string `json:"text"`
	CreatedAt string `json:"created_at"`
}

func (c *claudeParser) Format() Format    { return FormatClaude }
func (c *claudeParser) SourceApp() string { return "Claude" }

func (c *claudeParser) decode(content string) ([]claudeConversation, error) {
	trimmed := strings.TrimSpace(content)
	if strings.HasPrefix(trimmed, "[") {
		var convs []claudeConversation
		if err := json.Unmarshal([]byte(trimmed), &convs); err != nil {
			return nil, err
		}
		return convs, nil
	}
	var conv claudeConversation
	if err := json.Unmarshal([]byte(trimmed), &conv); err != nil {
		return nil, err
	}
	return []claudeConversation{conv}, nil
}

func (c *claudeParser) Validate(content string) error {
	convs, err := c.decode(content)
	if err != nil {
		return apperrors.Wrap(apperrors.KindParsing, apperrors.SeverityHigh, "not a Claude export", err)
	}
	if len(convs) == 0 {
		return apperrors.New(apperrors.KindValidation, apperrors.SeverityHigh, "export contains no conversations")
	}
	if err := c.p.val.CheckCount(len(convs), c.p.limits.MaxConversationsPerFile, "conversation"); err != nil {
		return err
	}

	total := 0
	withMessages := 0
	for _, conv := range convs {
		if conv.ChatMessages == nil {
			continue
		}
		withMessages++
		total += len(conv.ChatMessages)
	}
	if withMessages == 0 {
		return apperrors.New(apperrors.KindValidation, apperrors.SeverityHigh, "no conversation has a chat_messages field")
	}
	return c.p.val.CheckCount(total, c.p.limits.MaxMessagesPerFile, "message")
}

func (c *claudeParser) Confidence(content string) int {
	convs, err := c.decode(content)
	if err != nil || len(convs) == 0 {
		return 0
	}

	score := 0
	conv := convs[0]
	if conv.ChatMessages != nil {
		score += 40
	}
	if conv.UUID != "" {
		score += 20
	}
	if conv.Name != "" {
		score += 10
	}
	if conv.CreatedAt != "" {
		score += 10
	}
	for _, msg := range conv.ChatMessages {
		if msg.Sender == "human" || msg.Sender == "assistant" {
			score += 20
			break
		}
	}
	return score
}

func (c *claudeParser) Parse(ctx context.Context, content string) (*Result, error) {
	convs, err := c.decode(content)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindParsing, apperrors.SeverityHigh, "failed to decode Claude export", err)
	}

	res := &Result{}
	for _, conv := range convs {
		if err := ctx.Err(); err != nil {
			return res, err
		}

		if conv.ChatMessages == nil {
			res.Errors = append(res.Errors, fmt.Sprintf("conversation %q: missing chat_messages", conv.Name))
			continue
		}

		var metaTimes []int64
		var createTS int64
		if ts, ok := parseTimeString(conv.CreatedAt); ok {
			createTS = ts
			metaTimes = append(metaTimes, ts)
		}
		if ts, ok := parseTimeString(conv.UpdatedAt); ok {
			metaTimes = append(metaTimes, ts)
		}

		id := conv.UUID
		if id == "" {
			id = fallbackConversationID(FormatClaude, conv.Name, createTS)
		}

		raws := make([]rawMessage, 0, len(conv.ChatMessages))
		for _, msg := range conv.ChatMessages {
			if msg.Text == "" {
				continue
			}
			raw := rawMessage{
				author:  canonicalRole(msg.Sender, c.SourceApp()),
				content: msg.Text,
			}
			if ts, ok := parseTimeString(msg.CreatedAt); ok {
				raw.ts = ts
				raw.hasTS = true
			}
			raws = append(raws, raw)
		}

		c.p.finishConversation(models.Conversation{
			ID:          id,
			SourceApp:   c.SourceApp(),
			ChatType:    models.ChatTypeLLM,
			DisplayName: c.p.displayName(conv.Name),
		}, raws, metaTimes, res)
	}
	return res, nil
}
