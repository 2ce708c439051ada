package importer

import (
	"fmt"
	"sort"

	"github.com/kshao/chatvault/internal/config"
	"github.com/kshao/chatvault/internal/crypto"
	apperrors "github.com/kshao/chatvault/internal/errors"
	"github.com/kshao/chatvault/internal/models"
	"github.com/kshao/chatvault/internal/sanitize"
	"github.com/kshao/chatvault/internal/validate"
)

// maxAuthorLength caps author labels.
const maxAuthorLength = 100

// pipeline bundles the services every format parser depends on. One
// instance is shared by all parsers of a registry.
type pipeline struct {
	limits config.Limits
	san    *sanitize.Sanitizer
	val    *validate.Service
}

// rawMessage is an extracted message before sanitization and filtering.
type rawMessage struct {
	author  string
	content string
	ts      int64
	hasTS   bool
}

// finishConversation runs the tail of the per-file state machine for one
// conversation: sanitize and filter messages, sort by timestamp, compute
// bounds, and append to the result. Malformed messages are skipped
// silently; the conversation is discarded when no message survives.
// metaTimes are conversation-level create/update timestamps used to widen
// the bounds.
func (p *pipeline) finishConversation(conv models.Conversation, raws []rawMessage, metaTimes []int64, res *Result) bool {
	if err := p.val.CheckCount(len(raws), p.limits.MaxMessagesPerConversation, "message"); err != nil {
		res.Errors = append(res.Errors, fmt.Sprintf("conversation %s: %v", conv.ID, err))
		return false
	}

	msgs := make([]models.ChatMessage, 0, len(raws))
	for _, raw := range raws {
		if !raw.hasTS {
			continue
		}
		if err := p.val.CheckTimestamp(raw.ts); err != nil {
			if apperrors.IsWarning(err) {
				res.Warnings = append(res.Warnings, fmt.Sprintf("conversation %s: %v", conv.ID, err))
			} else {
				continue
			}
		}

		contentType := classifyContent(raw.content)
		var content string
		if contentType == models.ContentTypeCode {
			content = p.san.SanitizeCode(raw.content)
		} else {
			content = p.san.SanitizeForDisplay(raw.content)
		}
		content = p.val.SanitizeField(content, p.limits.MaxContentLength)
		if content == "" {
			continue
		}

		author := p.val.SanitizeField(raw.author, maxAuthorLength)
		if author == "" {
			continue
		}

		msgs = append(msgs, models.ChatMessage{
			MessageID:      crypto.HashID(conv.ID, content, raw.ts),
			ConversationID: conv.ID,
			TimestampUTC:   raw.ts,
			Author:         author,
			Content:        content,
			ContentType:    contentType,
		})
	}

	if len(msgs) == 0 {
		return false
	}

	sort.SliceStable(msgs, func(i, j int) bool {
		return msgs[i].TimestampUTC < msgs[j].TimestampUTC
	})

	start := msgs[0].TimestampUTC
	end := msgs[len(msgs)-1].TimestampUTC
	for _, mt := range metaTimes {
		if err := p.val.CheckTimestamp(mt); err != nil && !apperrors.IsWarning(err) {
			continue
		}
		if mt < start {
			start = mt
		}
		if mt > end {
			end = mt
		}
	}
	conv.StartTime = start
	conv.EndTime = end
	if conv.Tags == nil {
		conv.Tags = []string{}
	}

	res.Conversations = append(res.Conversations, conv)
	res.Messages = append(res.Messages, msgs...)
	return true
}

// displayName sanitizes a conversation title, falling back to a placeholder.
func (p *pipeline) displayName(title string) string {
	name := p.val.SanitizeField(title, p.limits.MaxDisplayNameLength)
	if name == "" {
		return "Untitled"
	}
	return name
}

// fallbackConversationID derives a deterministic conversation id for
// sources that omit one, so re-imports reproduce the same ids.
func fallbackConversationID(format Format, title string, ts int64) string {
	return crypto.HashID(string(format), title, ts)
}
