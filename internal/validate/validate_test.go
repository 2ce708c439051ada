package validate

import (
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/kshao/chatvault/internal/config"
	apperrors "github.com/kshao/chatvault/internal/errors"
)

func newService() *Service {
	return New(config.DefaultLimits())
}

func TestCheckSize(t *testing.T) {
	limits := config.DefaultLimits()
	limits.MaxFileSize = 64
	v := New(limits)

	if err := v.CheckSize(""); err == nil {
		t.Error("empty content must be rejected")
	}
	if err := v.CheckSize(strings.Repeat("a", 65)); err == nil {
		t.Error("oversized content must be rejected")
	}
	if err := v.CheckSize("fine"); err != nil {
		t.Errorf("valid content rejected: %v", err)
	}
}

func TestCheckEncoding(t *testing.T) {
	v := newService()

	if err := v.CheckEncoding("clean text\nwith\tnewlines"); err != nil {
		t.Errorf("clean text flagged: %v", err)
	}

	err := v.CheckEncoding("broken � decode")
	if err == nil {
		t.Fatal("replacement characters must be flagged")
	}
	if !apperrors.IsKind(err, apperrors.KindEncoding) {
		t.Errorf("kind = %v, want encoding", err)
	}
	if apperrors.SeverityOf(err) != apperrors.SeverityMedium {
		t.Errorf("severity = %v, want medium", apperrors.SeverityOf(err))
	}

	// Exactly at the threshold passes, one more fails.
	if err := v.CheckEncoding(strings.Repeat("\x01", 10)); err != nil {
		t.Errorf("threshold count should pass: %v", err)
	}
	if err := v.CheckEncoding(strings.Repeat("\x01", 11)); err == nil {
		t.Error("above-threshold control characters must be flagged")
	}

	// Newline, tab and carriage return are never counted.
	if err := v.CheckEncoding(strings.Repeat("\n\t\r\n", 100)); err != nil {
		t.Errorf("newline/tab flagged: %v", err)
	}
}

func TestCheckCount(t *testing.T) {
	v := newService()
	if err := v.CheckCount(10001, 10000, "conversation"); err == nil {
		t.Error("count above ceiling must fail")
	}
	if err := v.CheckCount(10000, 10000, "conversation"); err != nil {
		t.Errorf("count at ceiling should pass: %v", err)
	}
}

func TestCheckTimestamp(t *testing.T) {
	v := newService()
	v.now = func() time.Time { return time.Unix(1700000000, 0) }

	cases := []struct {
		name     string
		ts       int64
		wantErr  bool
		severity apperrors.Severity
	}{
		{"valid", 1700000000, false, 0},
		{"negative", -1, true, apperrors.SeverityHigh},
		{"one day ahead ok", 1700000000 + 86400, false, 0},
		{"beyond one day ahead", 1700000000 + 86401, true, apperrors.SeverityHigh},
		{"before 2000 warns", 946684799, true, apperrors.SeverityLow},
		{"epoch warns", 0, true, apperrors.SeverityLow},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := v.CheckTimestamp(tc.ts)
			if (err != nil) != tc.wantErr {
				t.Fatalf("CheckTimestamp(%d) error = %v, wantErr %t", tc.ts, err, tc.wantErr)
			}
			if err != nil && apperrors.SeverityOf(err) != tc.severity {
				t.Errorf("severity = %v, want %v", apperrors.SeverityOf(err), tc.severity)
			}
		})
	}
}

func TestSanitizeField(t *testing.T) {
	v := newService()

	if got := v.SanitizeField("  hi\x00there\x1b  ", 0); got != "hithere" {
		t.Errorf("SanitizeField = %q, want %q", got, "hithere")
	}

	// NFC: decomposed e + combining acute collapses to é.
	if got := v.SanitizeField("é", 0); got != "é" {
		t.Errorf("SanitizeField NFC = %q, want é", got)
	}

	// Truncation never splits a rune.
	got := v.SanitizeField(strings.Repeat("日", 100), 10)
	if !utf8.ValidString(got) {
		t.Error("truncation split a multi-byte character")
	}
	if len(got) > 10 {
		t.Errorf("length = %d, want <= 10", len(got))
	}

	// Invalid UTF-8 degrades to replacement characters instead of garbage.
	got = v.SanitizeField("ok\xff\xfe", 0)
	if !utf8.ValidString(got) {
		t.Error("output must be valid UTF-8")
	}
}
