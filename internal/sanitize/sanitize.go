// Package sanitize provides markup and filename sanitization for any string
// destined for rendering or storage. Sanitization is total: every input
// yields a string, never a panic.
package sanitize

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/net/html"
)

// TruncationMarker is appended when content exceeds the render ceiling.
const TruncationMarker = "\n[truncated]"

// maxFilenameLength caps sanitized filenames in bytes.
const maxFilenameLength = 255

// displayTags is the allowlist for general display content: emphasis, code,
// lists and paragraph structure. Everything else is stripped; text content
// of stripped tags survives, escaped.
var displayTags = map[string]bool{
	"em": true, "strong": true, "b": true, "i": true,
	"code": true, "pre": true,
	"ul": true, "ol": true, "li": true,
	"p": true, "br": true, "blockquote": true,
}

// codeTags is the allowlist for code-oriented content. The class attribute
// survives on these tags so syntax highlighting keeps working downstream.
var codeTags = map[string]bool{
	"code": true, "pre": true, "span": true,
}

// dangerousContainers have their entire content dropped, not just the tags.
var dangerousContainers = map[string]bool{
	"script": true, "style": true, "iframe": true,
	"object": true, "embed": true, "noscript": true,
}

var safeClassPattern = regexp.MustCompile(`^[a-zA-Z0-9_-]+(?: [a-zA-Z0-9_-]+)*$`)

// Sanitizer filters markup through a tag allowlist and caps output length.
type Sanitizer struct {
	maxRenderLength int
}

// New creates a Sanitizer with the given render-safety ceiling in bytes.
func New(maxRenderLength int) *Sanitizer {
	if maxRenderLength <= 0 {
		maxRenderLength = 50 * 1024
	}
	return &Sanitizer{maxRenderLength: maxRenderLength}
}

// SanitizeForDisplay filters raw through the display allowlist. Scripts,
// styles, event handlers and javascript:/data:-scheme URIs cannot survive:
// dangerous containers lose their content entirely and no attribute other
// than class on code tags is ever emitted. Output is capped at the render
// ceiling with an explicit truncation marker.
func (s *Sanitizer) SanitizeForDisplay(raw string) string {
	return s.cap(filterMarkup(raw, displayTags, false))
}

// SanitizeCode filters raw through the code-oriented allowlist, preserving
// the class attribute on code/pre/span for later syntax highlighting.
func (s *Sanitizer) SanitizeCode(raw string) string {
	return s.cap(filterMarkup(raw, codeTags, true))
}

// SanitizeFilename strips path-traversal sequences and characters forbidden
// by common filesystems, caps the length and never returns an empty string.
func (s *Sanitizer) SanitizeFilename(raw string) string {
	name := StripControl(raw)
	name = strings.ReplaceAll(name, "..", "")
	name = strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|', '\n', '\t':
			return '_'
		}
		return r
	}, name)
	name = strings.Trim(name, " .")
	name = Truncate(name, maxFilenameLength)
	if name == "" {
		return "untitled"
	}
	return name
}

// StripControl removes control characters, keeping newline and tab. Shared
// with the validation layer so both apply the same character class.
func StripControl(s string) string {
	return strings.Map(func(r rune) rune {
		if r == '\n' || r == '\t' {
			return r
		}
		if r == '\r' {
			return -1
		}
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, s)
}

func (s *Sanitizer) cap(out string) string {
	out = StripControl(out)
	if len(out) <= s.maxRenderLength {
		return out
	}
	// Marker included inside the ceiling so the result never exceeds it.
	limit := s.maxRenderLength - len(TruncationMarker)
	if limit < 0 {
		limit = 0
	}
	return Truncate(out, limit) + TruncationMarker
}

// filterMarkup tokenizes raw as HTML and re-emits only allowlisted tags and
// escaped text. Malformed or adversarially nested markup cannot make the
// tokenizer fail; it degrades to text.
func filterMarkup(raw string, allow map[string]bool, keepClass bool) string {
	z := html.NewTokenizer(strings.NewReader(raw))
	var out strings.Builder
	skipDepth := 0
	var skipTag string

	for {
		tt := z.Next()
		if tt == html.ErrorToken {
			// io.EOF or a tokenizer error; either way emit what we have.
			break
		}

		switch tt {
		case html.TextToken:
			if skipDepth == 0 {
				out.WriteString(html.EscapeString(string(z.Text())))
			}
		case html.StartTagToken, html.SelfClosingTagToken:
			name, hasAttr := z.TagName()
			tag := strings.ToLower(string(name))
			if skipDepth > 0 {
				if tag == skipTag && tt == html.StartTagToken {
					skipDepth++
				}
				continue
			}
			if dangerousContainers[tag] {
				if tt == html.StartTagToken {
					skipTag = tag
					skipDepth = 1
				}
				continue
			}
			if !allow[tag] {
				continue
			}
			class := ""
			if keepClass && hasAttr {
				class = safeClass(z)
			}
			writeTag(&out, tag, class, tt == html.SelfClosingTagToken)
		case html.EndTagToken:
			name, _ := z.TagName()
			tag := strings.ToLower(string(name))
			if skipDepth > 0 {
				if tag == skipTag {
					skipDepth--
				}
				continue
			}
			if allow[tag] {
				fmt.Fprintf(&out, "</%s>", tag)
			}
		case html.CommentToken, html.DoctypeToken:
			// dropped
		}
	}
	return out.String()
}

// safeClass returns the class attribute value when it looks like a plain
// token list, otherwise empty. Event handlers and URI-bearing attributes are
// never consulted at all.
func safeClass(z *html.Tokenizer) string {
	for {
		key, val, more := z.TagAttr()
		if string(key) == "class" {
			v := string(val)
			if safeClassPattern.MatchString(v) {
				return v
			}
			return ""
		}
		if !more {
			return ""
		}
	}
}

func writeTag(out *strings.Builder, tag, class string, selfClosing bool) {
	out.WriteByte('<')
	out.WriteString(tag)
	if class != "" {
		fmt.Fprintf(out, " class=%q", class)
	}
	if selfClosing {
		out.WriteByte('/')
	}
	out.WriteByte('>')
}

// Truncate cuts s to at most maxBytes without splitting a rune.
func Truncate(s string, maxBytes int) string {
	if len(s) <= maxBytes {
		return s
	}
	cut := maxBytes
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}
