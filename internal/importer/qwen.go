package importer

import (
	"context"
	"encoding/json"
	"fmt"

	apperrors "github.com/kshao/chatvault/internal/errors"
	"github.com/kshao/chatvault/internal/models"
)

// qwenParser handles the Qwen-style export: a data array of chats, each
// nesting its messages under a chat object. Timestamps are Unix seconds or
// milliseconds; roles include Chinese synonyms.
type qwenParser struct {
	p *pipeline
}

func newQwenParser(p *pipeline) *qwenParser {
	return &qwenParser{p: p}
}

type qwenExport struct {
	Data []qwenConversation `json:"data"`
}

type qwenConversation struct {
	ID        string      `json:"id"`
	Title     string      `json:"title"`
	CreatedAt interface{} `json:"created_at"`
	UpdatedAt interface{} `json:"updated_at"`
	Chat      qwenChat    `json:"chat"`
}

type qwenChat struct {
	Messages []qwenMessage `json:"messages"`
}

type qwenMessage struct {
	Role      string      `json:"role"`
	Content   string      `json:"content"`
	Timestamp interface{} `json:"timestamp"`
}

func (q *qwenParser) Format() Format    { return FormatQwen }
func (q *qwenParser) SourceApp() string { return "Qwen" }

func (q *qwenParser) decode(content string) (*qwenExport, error) {
	var export qwenExport
	if err := json.Unmarshal([]byte(content), &export); err != nil {
		return nil, err
	}
	return &export, nil
}

func (q *qwenParser) Validate(content string) error {
	export, err := q.decode(content)
	if err != nil {
		return apperrors.Wrap(apperrors.KindParsing, apperrors.SeverityHigh, "not a Qwen export", err)
	}
	if len(export.Data) == 0 {
		return apperrors.New(apperrors.KindValidation, apperrors.SeverityHigh, "missing data field")
	}
	if err := q.p.val.CheckCount(len(export.Data), q.p.limits.MaxConversationsPerFile, "conversation"); err != nil {
		return err
	}

	total := 0
	withMessages := 0
	for _, conv := range export.Data {
		if conv.Chat.Messages == nil {
			continue
		}
		withMessages++
		total += len(conv.Chat.Messages)
	}
	if withMessages == 0 {
		return apperrors.New(apperrors.KindValidation, apperrors.SeverityHigh, "no chat has a messages field")
	}
	return q.p.val.CheckCount(total, q.p.limits.MaxMessagesPerFile, "message")
}

func (q *qwenParser) Confidence(content string) int {
	export, err := q.decode(content)
	if err != nil || len(export.Data) == 0 {
		return 0
	}

	score := 25
	conv := export.Data[0]
	if conv.Chat.Messages != nil {
		score += 30
	}
	if conv.ID != "" {
		score += 10
	}
	if conv.Title != "" {
		score += 10
	}
	for _, msg := range conv.Chat.Messages {
		if msg.Role != "" {
			score += 15
			if _, ok := parseTimestamp(msg.Timestamp); ok {
				score += 10
			}
			break
		}
	}
	return score
}

func (q *qwenParser) Parse(ctx context.Context, content string) (*Result, error) {
	export, err := q.decode(content)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindParsing, apperrors.SeverityHigh, "failed to decode Qwen export", err)
	}

	res := &Result{}
	for _, conv := range export.Data {
		if err := ctx.Err(); err != nil {
			return res, err
		}

		if conv.Chat.Messages == nil {
			res.Errors = append(res.Errors, fmt.Sprintf("chat %q: missing messages", conv.Title))
			continue
		}

		var metaTimes []int64
		var createTS int64
		if ts, ok := parseTimestamp(conv.CreatedAt); ok {
			createTS = ts
			metaTimes = append(metaTimes, ts)
		}
		if ts, ok := parseTimestamp(conv.UpdatedAt); ok {
			metaTimes = append(metaTimes, ts)
		}

		id := conv.ID
		if id == "" {
			id = fallbackConversationID(FormatQwen, conv.Title, createTS)
		}

		raws := make([]rawMessage, 0, len(conv.Chat.Messages))
		for _, msg := range conv.Chat.Messages {
			if msg.Content == "" {
				continue
			}
			raw := rawMessage{
				author:  canonicalRole(msg.Role, q.SourceApp()),
				content: msg.Content,
			}
			if ts, ok := parseTimestamp(msg.Timestamp); ok {
				raw.ts = ts
				raw.hasTS = true
			}
			raws = append(raws, raw)
		}

		q.p.finishConversation(models.Conversation{
			ID:          id,
			SourceApp:   q.SourceApp(),
			ChatType:    models.ChatTypeLLM,
			DisplayName: q.p.displayName(conv.Title),
		}, raws, metaTimes, res)
	}
	return res, nil
}
