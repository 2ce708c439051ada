package importer

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	apperrors "github.com/kshao/chatvault/internal/errors"
	"github.com/kshao/chatvault/internal/models"
)

// chatgptParser handles ChatGPT's tree-shaped export: each conversation
// carries a mapping of node id to node, where nodes reference parents and
// children. Extraction flattens the map; ordering is irrelevant because the
// pipeline sorts by timestamp afterwards.
type chatgptParser struct {
	p *pipeline
}

func newChatGPTParser(p *pipeline) *chatgptParser {
	return &chatgptParser{p: p}
}

type chatgptConversation struct {
	Title          string                 `json:"title"`
	CreateTime     *float64               `json:"create_time"`
	UpdateTime     *float64               `json:"update_time"`
	ConversationID string                 `json:"conversation_id"`
	ID             string                 `json:"id"`
	Mapping        map[string]chatgptNode `json:"mapping"`
}

type chatgptNode struct {
	ID       string          `json:"id"`
	Message  *chatgptMessage `json:"message"`
	Parent   *string         `json:"parent"`
	Children []string        `json:"children"`
}

type chatgptMessage struct {
	ID         string          `json:"id"`
	Author     *chatgptAuthor  `json:"author"`
	CreateTime *float64        `json:"create_time"`
	Content    *chatgptContent `json:"content"`
}

type chatgptAuthor struct {
	Role string `json:"role"`
}

type chatgptContent struct {
	ContentType string        `json:"content_type"`
	Parts       []interface{} `json:"parts"`
}

func (c *chatgptParser) Format() Format    { return FormatChatGPT }
func (c *chatgptParser) SourceApp() string { return "ChatGPT" }

// decode accepts both a top-level array of conversations and a single
// conversation object.
func (c *chatgptParser) decode(content string) ([]chatgptConversation, error) {
	trimmed := strings.TrimSpace(content)
	if strings.HasPrefix(trimmed, "[") {
		var convs []chatgptConversation
		if err := json.Unmarshal([]byte(trimmed), &convs); err != nil {
			return nil, err
		}
		return convs, nil
	}
	var conv chatgptConversation
	if err := json.Unmarshal([]byte(trimmed), &conv); err != nil {
		return nil, err
	}
	return []chatgptConversation{conv}, nil
}

// Validate enforces the required mapping field and the node-map ceiling
// before any per-message work happens.
func (c *chatgptParser) Validate(content string) error {
	convs, err := c.decode(content)
	if err != nil {
		return apperrors.Wrap(apperrors.KindParsing, apperrors.SeverityHigh, "not a ChatGPT export", err)
	}
	if len(convs) == 0 {
		return apperrors.New(apperrors.KindValidation, apperrors.SeverityHigh, "export contains no conversations")
	}
	if err := c.p.val.CheckCount(len(convs), c.p.limits.MaxConversationsPerFile, "conversation"); err != nil {
		return err
	}

	total := 0
	withMapping := 0
	for _, conv := range convs {
		if conv.Mapping == nil {
			continue
		}
		withMapping++
		if err := c.p.val.CheckCount(len(conv.Mapping), c.p.limits.MaxNodeMapSize, "node"); err != nil {
			return err
		}
		total += len(conv.Mapping)
	}
	if withMapping == 0 {
		return apperrors.New(apperrors.KindValidation, apperrors.SeverityHigh, "no conversation has a mapping field")
	}
	return c.p.val.CheckCount(total, c.p.limits.MaxMessagesPerFile, "message")
}

// Confidence scores the presence and shape of ChatGPT-identifying fields.
func (c *chatgptParser) Confidence(content string) int {
	convs, err := c.decode(content)
	if err != nil || len(convs) == 0 {
		return 0
	}

	score := 0
	conv := convs[0]
	if conv.Mapping != nil {
		score += 40
	}
	if conv.ConversationID != "" || conv.ID != "" {
		score += 15
	}
	if conv.Title != "" {
		score += 10
	}
	if conv.CreateTime != nil {
		score += 10
	}
	for _, node := range conv.Mapping {
		if node.Message != nil && node.Message.Author != nil && node.Message.Author.Role != "" {
			score += 15
			if node.Message.Content != nil && len(node.Message.Content.Parts) > 0 {
				score += 10
			}
			break
		}
	}
	return score
}

// Parse flattens each conversation's node map into messages. A structural
// violation aborts only that conversation; malformed nodes are skipped.
func (c *chatgptParser) Parse(ctx context.Context, content string) (*Result, error) {
	convs, err := c.decode(content)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindParsing, apperrors.SeverityHigh, "failed to decode ChatGPT export", err)
	}

	res := &Result{}
	for _, conv := range convs {
		if err := ctx.Err(); err != nil {
			return res, err
		}

		if conv.Mapping == nil {
			res.Errors = append(res.Errors, fmt.Sprintf("conversation %q: missing mapping", conv.Title))
			continue
		}
		if err := c.p.val.CheckCount(len(conv.Mapping), c.p.limits.MaxNodeMapSize, "node"); err != nil {
			res.Errors = append(res.Errors, fmt.Sprintf("conversation %q: %v", conv.Title, err))
			continue
		}

		var createTS, updateTS int64
		var metaTimes []int64
		if conv.CreateTime != nil {
			createTS = normalizeUnix(*conv.CreateTime)
			metaTimes = append(metaTimes, createTS)
		}
		if conv.UpdateTime != nil {
			updateTS = normalizeUnix(*conv.UpdateTime)
			metaTimes = append(metaTimes, updateTS)
		}

		id := conv.ConversationID
		if id == "" {
			id = conv.ID
		}
		if id == "" {
			id = fallbackConversationID(FormatChatGPT, conv.Title, createTS)
		}

		raws := make([]rawMessage, 0, len(conv.Mapping))
		for _, node := range conv.Mapping {
			msg := node.Message
			if msg == nil || msg.Author == nil || msg.Content == nil {
				continue
			}
			text := joinParts(msg.Content.Parts)
			if text == "" {
				continue
			}
			raw := rawMessage{
				author:  canonicalRole(msg.Author.Role, c.SourceApp()),
				content: text,
			}
			if msg.CreateTime != nil {
				raw.ts = normalizeUnix(*msg.CreateTime)
				raw.hasTS = true
			}
			raws = append(raws, raw)
		}

		c.p.finishConversation(models.Conversation{
			ID:          id,
			SourceApp:   c.SourceApp(),
			ChatType:    models.ChatTypeLLM,
			DisplayName: c.p.displayName(conv.Title),
		}, raws, metaTimes, res)
	}
	return res, nil
}

// joinParts concatenates the string members of a parts array; non-string
// parts (image references and the like) are ignored.
func joinParts(parts []interface{}) string {
	var sb strings.Builder
	for _, part := range parts {
		if s, ok := part.(string); ok && s != "" {
			if sb.Len() > 0 {
				sb.WriteByte('\n')
			}
			sb.WriteString(s)
		}
	}
	return sb.String()
}
