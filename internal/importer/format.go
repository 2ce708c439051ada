// Package importer provides the multi-format import pipeline: format
// detection with confidence scoring and fallback, per-format structural
// validation and extraction into the canonical schema.
package importer

import (
	"context"

	"github.com/kshao/chatvault/internal/models"
)

// Format identifies a supported export format. The set is closed; the
// registry dispatches over exactly these variants.
type Format string

const (
	FormatChatGPT  Format = "chatgpt"
	FormatClaude   Format = "claude"
	FormatGemini   Format = "gemini"
	FormatQwen     Format = "qwen"
	FormatWhatsApp Format = "whatsapp"
	FormatUnknown  Format = "unknown"
)

// parser is the capability set every supported format implements.
type parser interface {
	// Format returns the format tag.
	Format() Format
	// SourceApp returns the display label recorded on conversations.
	SourceApp() string
	// Validate runs cheap structural validation before any per-message
	// work, enforcing format-specific required fields and ceilings.
	Validate(content string) error
	// Confidence scores how well content matches this format, 0-100.
	// It must tolerate content that fails strict validation.
	Confidence(content string) int
	// Parse extracts the canonical records. Recoverable per-item problems
	// never surface as the returned error; they are recorded in the Result.
	Parse(ctx context.Context, content string) (*Result, error)
}

// Result is the outcome of parsing one file.
type Result struct {
	Conversations []models.Conversation
	Messages      []models.ChatMessage
	Errors        []string
	Warnings      []string
}
