package importer

import (
	"strings"
	"testing"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

func TestRepairEncodingUTF8BOM(t *testing.T) {
	raw := append([]byte{0xEF, 0xBB, 0xBF}, []byte("hello")...)
	if got := RepairEncoding(raw); got != "hello" {
		t.Errorf("RepairEncoding = %q, want hello", got)
	}
}

func TestRepairEncodingUTF16(t *testing.T) {
	for _, endian := range []unicode.Endianness{unicode.BigEndian, unicode.LittleEndian} {
		encoder := unicode.UTF16(endian, unicode.UseBOM).NewEncoder()
		raw, _, err := transform.Bytes(encoder, []byte("hello world"))
		if err != nil {
			t.Fatalf("encoding fixture failed: %v", err)
		}
		if got := RepairEncoding(raw); got != "hello world" {
			t.Errorf("RepairEncoding(%v) = %q, want %q", endian, got, "hello world")
		}
	}
}

func TestRepairEncodingInvalidBytes(t *testing.T) {
	raw := []byte{'a', 0xFF, 0xFE, 'b'} // invalid mid-string, not a BOM prefix
	got := RepairEncoding(raw)
	if !strings.Contains(got, "�") {
		t.Errorf("invalid bytes should become replacement characters: %q", got)
	}
	if !strings.HasPrefix(got, "a") || !strings.HasSuffix(got, "b") {
		t.Errorf("valid bytes lost: %q", got)
	}
}

func TestRepairEncodingMojibake(t *testing.T) {
	// Inputs are spelled with escapes because several cp1252 mojibake
	// sequences end in characters that do not render (U+009D).
	cases := []struct{ name, in, want string }{
		{"right single quote", "don\u00e2\u20ac\u2122t", "don't"},
		{"left double quote", "\u00e2\u20ac\u0153hi", "\u201chi"},
		{"right double quote", "hi\u00e2\u20ac\u009d", "hi\u201d"},
		{"en dash", "2020\u00e2\u20ac\u201c2021", "2020\u20132021"},
		{"em dash", "wait\u00e2\u20ac\u201dno", "wait\u2014no"},
		{"ellipsis", "more\u00e2\u20ac\u00a6", "more\u2026"},
		{"accented e", "caf\u00c3\u00a9", "caf\u00e9"},
		{"unknown pair untouched", "na\u00c3\u00afve", "na\u00c3\u00afve"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := RepairEncoding([]byte(tc.in)); got != tc.want {
				t.Errorf("RepairEncoding(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}
