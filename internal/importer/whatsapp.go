package importer

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	apperrors "github.com/kshao/chatvault/internal/errors"
	"github.com/kshao/chatvault/internal/models"
)

// whatsappParser handles line-oriented text logs. Several literal date-time
// patterns are tried in sequence per line; lines matching none are treated
// as continuations of the previous message.
type whatsappParser struct {
	p *pipeline
}

func newWhatsAppParser(p *pipeline) *whatsappParser {
	return &whatsappParser{p: p}
}

// linePattern binds a regex to the capture-group indices for its fields.
type linePattern struct {
	re                        *regexp.Regexp
	date, clock, author, body int
}

// linePatterns are tried in order: date-time-role-colon, bracketed
// date-time, role-paren-date, role-colon-date.
var linePatterns = []linePattern{
	// 14/06/2025, 11:24 - Jane: Hi
	{regexp.MustCompile(`^(\d{1,2}/\d{1,2}/\d{2,4}),?\s+(\d{1,2}:\d{2}(?::\d{2})?)\s*-\s*([^:]+?):\s(.*)$`), 1, 2, 3, 4},
	// [14/06/2025, 11:24] Jane: Hi
	{regexp.MustCompile(`^\[(\d{1,2}/\d{1,2}/\d{2,4}),?\s+(\d{1,2}:\d{2}(?::\d{2})?)\]\s*([^:]+?):\s(.*)$`), 1, 2, 3, 4},
	// Jane (14/06/2025 11:24): Hi
	{regexp.MustCompile(`^([^():]+?)\s*\((\d{1,2}/\d{1,2}/\d{2,4})[,\s]+(\d{1,2}:\d{2}(?::\d{2})?)\):\s(.*)$`), 2, 3, 1, 4},
	// Jane: 14/06/2025 11:24 Hi
	{regexp.MustCompile(`^([^:]+?):\s+(\d{1,2}/\d{1,2}/\d{2,4})[,\s]+(\d{1,2}:\d{2}(?::\d{2})?)\s+(.*)$`), 2, 3, 1, 4},
}

// dateLayouts cover day-first dates with 2- or 4-digit years, with and
// without seconds.
var dateLayouts = []string{
	"2/1/2006 15:04:05",
	"2/1/2006 15:04",
	"2/1/06 15:04:05",
	"2/1/06 15:04",
}

// sampleLines bounds how much of the file detection looks at.
const sampleLines = 200

func (w *whatsappParser) Format() Format    { return FormatWhatsApp }
func (w *whatsappParser) SourceApp() string { return "WhatsApp" }

// matchLine tries every pattern in sequence.
func matchLine(line string) (author, body string, ts int64, ok bool) {
	for _, p := range linePatterns {
		m := p.re.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		parsed, err := parseLogTime(m[p.date], m[p.clock])
		if err != nil {
			continue
		}
		return strings.TrimSpace(m[p.author]), m[p.body], parsed, true
	}
	return "", "", 0, false
}

func parseLogTime(date, clock string) (int64, error) {
	joined := date + " " + clock
	for _, layout := range dateLayouts {
		if tm, err := time.Parse(layout, joined); err == nil {
			return tm.Unix(), nil
		}
	}
	return 0, fmt.Errorf("unparseable date-time %q", joined)
}

// Validate requires at least two matching message lines; JSON-shaped input
// is rejected immediately.
func (w *whatsappParser) Validate(content string) error {
	trimmed := strings.TrimSpace(content)
	if strings.HasPrefix(trimmed, "{") || strings.HasPrefix(trimmed, "[{") {
		return apperrors.New(apperrors.KindParsing, apperrors.SeverityHigh, "JSON input is not a text log")
	}

	matches, sampled := w.sampleMatches(content)
	if matches < 2 {
		return apperrors.Newf(apperrors.KindParsing, apperrors.SeverityHigh,
			"only %d of %d sampled lines look like chat log entries", matches, sampled)
	}
	return nil
}

// Confidence is the share of sampled non-empty lines that match a pattern.
func (w *whatsappParser) Confidence(content string) int {
	matches, sampled := w.sampleMatches(content)
	if sampled == 0 {
		return 0
	}
	score := matches * 100 / sampled
	if score > 100 {
		score = 100
	}
	return score
}

func (w *whatsappParser) sampleMatches(content string) (matches, sampled int) {
	for _, line := range strings.SplitN(content, "\n", sampleLines+1) {
		if sampled == sampleLines {
			break
		}
		line = strings.TrimRight(line, "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		sampled++
		if _, _, _, ok := matchLine(line); ok {
			matches++
		}
	}
	return matches, sampled
}

// Parse extracts the single conversation a text log contains. Non-matching
// lines continue the previous message; leading non-matching lines (export
// preambles, encryption notices) are dropped.
func (w *whatsappParser) Parse(ctx context.Context, content string) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return &Result{}, err
	}

	res := &Result{}
	var raws []rawMessage
	participants := make(map[string]bool)
	var order []string

	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimRight(line, "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}

		author, body, ts, ok := matchLine(line)
		if !ok {
			if len(raws) > 0 {
				raws[len(raws)-1].content += "\n" + line
			}
			continue
		}

		if len(raws) == w.p.limits.MaxMessagesPerFile {
			res.Errors = append(res.Errors, fmt.Sprintf("message count exceeds ceiling %d", w.p.limits.MaxMessagesPerFile))
			return res, nil
		}

		raws = append(raws, rawMessage{author: author, content: body, ts: ts, hasTS: true})
		if !participants[author] {
			participants[author] = true
			order = append(order, author)
		}
	}

	if len(raws) == 0 {
		res.Errors = append(res.Errors, "no chat log entries found")
		return res, nil
	}

	name := w.chatName(order)
	id := fallbackConversationID(FormatWhatsApp, name, raws[0].ts)

	w.p.finishConversation(models.Conversation{
		ID:          id,
		SourceApp:   w.SourceApp(),
		ChatType:    models.ChatTypeHuman,
		DisplayName: w.p.displayName(name),
	}, raws, nil, res)
	return res, nil
}

// chatName builds a display name from the participant set. Sorting keeps it
// stable across re-imports regardless of who spoke first.
func (w *whatsappParser) chatName(participants []string) string {
	if len(participants) == 0 {
		return "Chat"
	}
	sorted := append([]string(nil), participants...)
	sort.Strings(sorted)
	return "Chat: " + strings.Join(sorted, ", ")
}
