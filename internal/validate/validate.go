// Package validate provides format-agnostic input validation: size and
// count ceilings, encoding-anomaly detection, timestamp sanity checks and
// generic field sanitization.
package validate

import (
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/unicode/norm"

	"github.com/kshao/chatvault/internal/config"
	apperrors "github.com/kshao/chatvault/internal/errors"
	"github.com/kshao/chatvault/internal/sanitize"
)

// year2000 is the epoch second for 2000-01-01T00:00:00Z. Timestamps before
// it are suspicious but not rejected.
const year2000 = 946684800

// maxFutureSkew is how far beyond the current time a timestamp may sit.
const maxFutureSkew = 24 * time.Hour

// Service performs validation against a fixed set of limits.
type Service struct {
	limits config.Limits
	// now is swappable for tests.
	now func() time.Time
}

// New creates a validation Service.
func New(limits config.Limits) *Service {
	return &Service{limits: limits, now: time.Now}
}

// Limits returns the limits this service enforces.
func (v *Service) Limits() config.Limits {
	return v.limits
}

// CheckSize rejects empty content and content above the file-size ceiling.
func (v *Service) CheckSize(content string) error {
	return v.CheckSizeBytes(len(content))
}

// CheckSizeBytes applies the file-size ceiling to a raw byte length so
// callers can reject oversized input before decoding anything.
func (v *Service) CheckSizeBytes(n int) error {
	if n == 0 {
		return apperrors.New(apperrors.KindValidation, apperrors.SeverityHigh, "content is empty")
	}
	if int64(n) > v.limits.MaxFileSize {
		return apperrors.Newf(apperrors.KindValidation, apperrors.SeverityHigh,
			"content size %d exceeds ceiling %d", n, v.limits.MaxFileSize)
	}
	return nil
}

// CheckEncoding flags decode-failure markers and a high density of dangerous
// control characters as medium-severity encoding anomalies. Newline and tab
// are never counted.
func (v *Service) CheckEncoding(content string) error {
	if strings.ContainsRune(content, '�') {
		return apperrors.New(apperrors.KindEncoding, apperrors.SeverityMedium,
			"content contains replacement characters from a lossy decode")
	}

	controls := 0
	for _, r := range content {
		if r == '\n' || r == '\t' || r == '\r' {
			continue
		}
		if unicode.IsControl(r) {
			controls++
			if controls > v.limits.ControlCharThreshold {
				return apperrors.Newf(apperrors.KindEncoding, apperrors.SeverityMedium,
					"content contains more than %d control characters", v.limits.ControlCharThreshold)
			}
		}
	}
	return nil
}

// CheckCount applies a generic ceiling to an item count.
func (v *Service) CheckCount(n, ceiling int, what string) error {
	if n > ceiling {
		return apperrors.Newf(apperrors.KindValidation, apperrors.SeverityHigh,
			"%s count %d exceeds ceiling %d", what, n, ceiling)
	}
	return nil
}

// CheckTimestamp verifies a Unix-seconds timestamp is sane. Negative values
// and values more than a day in the future are rejected; values before the
// year 2000 only produce a low-severity warning.
func (v *Service) CheckTimestamp(ts int64) error {
	if ts < 0 {
		return apperrors.Newf(apperrors.KindValidation, apperrors.SeverityHigh,
			"negative timestamp %d", ts)
	}
	if ts > v.now().Add(maxFutureSkew).Unix() {
		return apperrors.Newf(apperrors.KindValidation, apperrors.SeverityHigh,
			"timestamp %d is more than a day in the future", ts)
	}
	if ts < year2000 {
		return apperrors.Newf(apperrors.KindValidation, apperrors.SeverityLow,
			"timestamp %d predates year 2000", ts)
	}
	return nil
}

// SanitizeField strips control characters, applies best-effort NFC
// normalization, trims whitespace and truncates to maxLen bytes without
// splitting a multi-byte character. maxLen <= 0 means no cap.
func (v *Service) SanitizeField(s string, maxLen int) string {
	s = strings.ToValidUTF8(s, "�")
	s = sanitize.StripControl(s)
	s = normalizeNFC(s)
	s = strings.TrimSpace(s)
	if maxLen > 0 {
		s = sanitize.Truncate(s, maxLen)
	}
	return s
}

// normalizeNFC applies NFC and falls back to the input unchanged if the
// normalizer misbehaves on pathological input.
func normalizeNFC(s string) (out string) {
	out = s
	defer func() {
		_ = recover()
	}()
	out = norm.NFC.String(s)
	return out
}
