package importer

import (
	"bytes"
	"strings"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// mojibakeReplacer fixes the common UTF-8-read-as-Latin-1 corruption
// patterns seen in exported chat logs. Applied after UTF-8 validation, it is
// purely best-effort pattern repair. Every pattern is a complete cp1252
// mojibake sequence; none is a prefix of another, so the replacer's
// argument-order matching cannot shadow an entry.
var mojibakeReplacer = strings.NewReplacer(
	"â€™", "'", // â€™
	"â€˜", "'", // â€˜
	"â€œ", "“", // â€œ
	"â€", "”", // right double quote; third char is the invisible U+009D
	"â€“", "–", // â€“
	"â€”", "—", // â€”
	"â€¦", "…", // â€¦
	"Ã©", "é", // Ã© -> é
	"Ã¨", "è", // Ã¨ -> è
	"Ã ", "à", // Ã  -> à
	"Ã¼", "ü", // Ã¼ -> ü
	"Ã¶", "ö", // Ã¶ -> ö
	"Ã¤", "ä", // Ã¤ -> ä
	"Ã±", "ñ", // Ã± -> ñ
	"Â ", " ", // Â  -> nbsp
)

// RepairEncoding decodes raw file bytes to a clean UTF-8 string: UTF-16
// inputs are converted via their BOM, a UTF-8 BOM is stripped, invalid byte
// sequences become replacement characters, and common mojibake patterns are
// repaired. Runs before structural detection so parsers only ever see sane
// text.
func RepairEncoding(raw []byte) string {
	if len(raw) >= 2 {
		isUTF16BE := raw[0] == 0xFE && raw[1] == 0xFF
		isUTF16LE := raw[0] == 0xFF && raw[1] == 0xFE
		if isUTF16BE || isUTF16LE {
			decoder := unicode.UTF16(unicode.BigEndian, unicode.UseBOM).NewDecoder()
			if decoded, _, err := transform.Bytes(decoder, raw); err == nil {
				raw = decoded
			}
		}
	}

	raw = bytes.TrimPrefix(raw, []byte{0xEF, 0xBB, 0xBF})

	s := strings.ToValidUTF8(string(raw), "�")
	return mojibakeReplacer.Replace(s)
}
