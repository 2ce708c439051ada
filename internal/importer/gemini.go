package importer

import (
	"context"
	"encoding/json"
	"fmt"

	apperrors "github.com/kshao/chatvault/internal/errors"
	"github.com/kshao/chatvault/internal/models"
)

// geminiParser handles the Takeout-style Gemini export: a single object
// with a conversations array, message authors "user" and "model", ISO
// timestamps.
type geminiParser struct {
	p *pipeline
}

func newGeminiParser(p *pipeline) *geminiParser {
	return &geminiParser{p: p}
}

type geminiExport struct {
	Conversations []geminiConversation `json:"conversations"`
}

type geminiConversation struct {
	ConversationID string          `json:"conversation_id"`
	Title          string          `json:"conversation_title"`
	CreateTime     string          `json:"create_time"`
	UpdateTime     string          `json:"update_time"`
	Messages       []geminiMessage `json:"messages"`
}

type geminiMessage struct {
	Author     string `json:"author"`
	Text       string `json:"text"`
	CreateTime string `json:"create_time"`
}

func (g *geminiParser) Format() Format    { return FormatGemini }
func (g *geminiParser) SourceApp() string { return "Gemini" }

func (g *geminiParser) decode(content string) (*geminiExport, error) {
	var export geminiExport
	if err := json.Unmarshal([]byte(content), &export); err != nil {
		return nil, err
	}
	return &export, nil
}

func (g *geminiParser) Validate(content string) error {
	export, err := g.decode(content)
	if err != nil {
		return apperrors.Wrap(apperrors.KindParsing, apperrors.SeverityHigh, "not a Gemini export", err)
	}
	if export.Conversations == nil {
		return apperrors.New(apperrors.KindValidation, apperrors.SeverityHigh, "missing conversations field")
	}
	if len(export.Conversations) == 0 {
		return apperrors.New(apperrors.KindValidation, apperrors.SeverityHigh, "export contains no conversations")
	}
	if err := g.p.val.CheckCount(len(export.Conversations), g.p.limits.MaxConversationsPerFile, "conversation"); err != nil {
		return err
	}

	total := 0
	withMessages := 0
	for _, conv := range export.Conversations {
		if conv.Messages == nil {
			continue
		}
		withMessages++
		total += len(conv.Messages)
	}
	if withMessages == 0 {
		return apperrors.New(apperrors.KindValidation, apperrors.SeverityHigh, "no conversation has a messages field")
	}
	return g.p.val.CheckCount(total, g.p.limits.MaxMessagesPerFile, "message")
}

func (g *geminiParser) Confidence(content string) int {
	export, err := g.decode(content)
	if err != nil || export.Conversations == nil || len(export.Conversations) == 0 {
		return 0
	}

	score := 35
	conv := export.Conversations[0]
	if conv.ConversationID != "" {
		score += 15
	}
	if conv.Title != "" {
		score += 10
	}
	if conv.CreateTime != "" {
		score += 10
	}
	for _, msg := range conv.Messages {
		if msg.Author == "model" {
			score += 20
			break
		}
		if msg.Author == "user" {
			score += 10
			break
		}
	}
	return score
}

func (g *geminiParser) Parse(ctx context.Context, content string) (*Result, error) {
	export, err := g.decode(content)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindParsing, apperrors.SeverityHigh, "failed to decode Gemini export", err)
	}

	res := &Result{}
	for _, conv := range export.Conversations {
		if err := ctx.Err(); err != nil {
			return res, err
		}

		if conv.Messages == nil {
			res.Errors = append(res.Errors, fmt.Sprintf("conversation %q: missing messages", conv.Title))
			continue
		}

		var metaTimes []int64
		var createTS int64
		if ts, ok := parseTimeString(conv.CreateTime); ok {
			createTS = ts
			metaTimes = append(metaTimes, ts)
		}
		if ts, ok := parseTimeString(conv.UpdateTime); ok {
			metaTimes = append(metaTimes, ts)
		}

		id := conv.ConversationID
		if id == "" {
			id = fallbackConversationID(FormatGemini, conv.Title, createTS)
		}

		raws := make([]rawMessage, 0, len(conv.Messages))
		for _, msg := range conv.Messages {
			if msg.Text == "" {
				continue
			}
			raw := rawMessage{
				author:  canonicalRole(msg.Author, g.SourceApp()),
				content: msg.Text,
			}
			if ts, ok := parseTimeString(msg.CreateTime); ok {
				raw.ts = ts
				raw.hasTS = true
			}
			raws = append(raws, raw)
		}

		g.p.finishConversation(models.Conversation{
			ID:          id,
			SourceApp:   g.SourceApp(),
			ChatType:    models.ChatTypeLLM,
			DisplayName: g.p.displayName(conv.Title),
		}, raws, metaTimes, res)
	}
	return res, nil
}
