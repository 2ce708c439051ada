package importer

import (
	"context"

	"github.com/gabriel-vasile/mimetype"

	"github.com/kshao/chatvault/internal/config"
	apperrors "github.com/kshao/chatvault/internal/errors"
	"github.com/kshao/chatvault/internal/logging"
	"github.com/kshao/chatvault/internal/sanitize"
	"github.com/kshao/chatvault/internal/validate"
)

// Detection is the outcome of format resolution for one input.
type Detection struct {
	OK                bool
	Format            Format
	Confidence        int
	FallbackAttempted bool
}

// Registry resolves input content to a format parser. Detection is two
// phase: strict structural validation in a fixed priority order first, then
// best-confidence fallback. Both phases are deterministic, so repeated runs
// on identical input always resolve identically.
type Registry struct {
	p *pipeline
	// parsers in priority order; ties in fallback break toward the front.
	parsers []parser
	// FallbackEnabled controls the second detection phase.
	FallbackEnabled bool
}

// NewRegistry creates a Registry over the closed format set.
func NewRegistry(limits config.Limits, san *sanitize.Sanitizer, val *validate.Service) *Registry {
	p := &pipeline{limits: limits, san: san, val: val}
	return &Registry{
		p: p,
		parsers: []parser{
			newChatGPTParser(p),
			newClaudeParser(p),
			newGeminiParser(p),
			newQwenParser(p),
			newWhatsAppParser(p),
		},
		FallbackEnabled: true,
	}
}

// Detect resolves content to a format. The first parser whose strict
// validation passes wins, carrying its self-reported confidence. If none
// pass and fallback is enabled, every parser is scored and the best score
// wins when it exceeds the configured threshold.
func (r *Registry) Detect(content string) Detection {
	for _, p := range r.parsers {
		if err := p.Validate(content); err == nil {
			return Detection{
				OK:         true,
				Format:     p.Format(),
				Confidence: clampConfidence(p.Confidence(content)),
			}
		}
	}

	if !r.FallbackEnabled {
		return Detection{Format: FormatUnknown}
	}

	best := Detection{Format: FormatUnknown, FallbackAttempted: true}
	bestScore := -1
	for _, p := range r.parsers {
		// strictly-greater keeps the earlier parser on ties
		if score := clampConfidence(p.Confidence(content)); score > bestScore {
			bestScore = score
			best.Format = p.Format()
			best.Confidence = score
		}
	}
	if bestScore > r.p.limits.FallbackConfidenceThreshold {
		best.OK = true
		return best
	}
	return Detection{Format: FormatUnknown, FallbackAttempted: true}
}

// ParseContent runs the whole per-file state machine: size and binary
// gates, encoding repair, encoding anomaly checks, detection, parse.
// Encoding anomalies are recorded as warnings, not failures.
func (r *Registry) ParseContent(ctx context.Context, raw []byte) (*Result, Detection, error) {
	// Cheap rejection before any structural work.
	if err := r.p.val.CheckSizeBytes(len(raw)); err != nil {
		return nil, Detection{Format: FormatUnknown}, err
	}
	if err := checkTextInput(raw); err != nil {
		return nil, Detection{Format: FormatUnknown}, err
	}

	content := RepairEncoding(raw)

	var warnings []string
	if err := r.p.val.CheckEncoding(content); err != nil {
		warnings = append(warnings, err.Error())
	}

	det := r.Detect(content)
	if !det.OK {
		return nil, det, apperrors.New(apperrors.KindParsing, apperrors.SeverityHigh, "unrecognized export format")
	}

	par := r.parserFor(det.Format)
	logging.WithComponent("importer").
		WithField("format", string(det.Format)).
		WithField("confidence", det.Confidence).
		Debug("format detected")

	res, err := par.Parse(ctx, content)
	if err != nil {
		return nil, det, err
	}
	res.Warnings = append(warnings, res.Warnings...)
	return res, det, nil
}

func (r *Registry) parserFor(f Format) parser {
	for _, p := range r.parsers {
		if p.Format() == f {
			return p
		}
	}
	return nil
}

// checkTextInput rejects binary payloads before structural detection.
func checkTextInput(raw []byte) error {
	mtype := mimetype.Detect(raw)
	for m := mtype; m != nil; m = m.Parent() {
		if m.Is("text/plain") {
			return nil
		}
	}
	// UTF-16 text is repaired later; its BOM makes mimetype call it binary.
	if len(raw) >= 2 && (raw[0] == 0xFE && raw[1] == 0xFF || raw[0] == 0xFF && raw[1] == 0xFE) {
		return nil
	}
	return apperrors.Newf(apperrors.KindValidation, apperrors.SeverityHigh,
		"binary input (%s) is not an export file", mtype.String())
}

func clampConfidence(score int) int {
	switch {
	case score < 0:
		return 0
	case score > 100:
		return 100
	default:
		return score
	}
}
