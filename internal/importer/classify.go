package importer

import (
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"

	"github.com/kshao/chatvault/internal/models"
)

// codeKeywords are language keywords that, at the start of a line, tag a
// message as code.
var codeKeywords = []string{
	"func ", "def ", "class ", "import ", "package ", "const ", "var ",
	"return ", "public ", "private ", "function ", "fn ", "let ",
	"#include", "SELECT ", "INSERT ", "UPDATE ", "CREATE TABLE",
}

const (
	// punctuationDensityThreshold is the structural-punctuation share of
	// content above which a message reads as code.
	punctuationDensityThreshold = 0.15
	// indentedLineThreshold is the share of indented lines above which a
	// message reads as code.
	indentedLineThreshold = 0.4
	// minClassifiableLength guards the density heuristics against tiny
	// messages where a few symbols dominate.
	minClassifiableLength = 20
)

// classifyContent tags a message as code when it carries fenced or inline
// code markers, starts lines with language keywords, or shows code-like
// punctuation density or indentation. Everything else is text.
func classifyContent(content string) models.ContentType {
	if hasMarkdownCode(content) {
		return models.ContentTypeCode
	}

	lines := strings.Split(content, "\n")
	for _, line := range lines {
		trimmed := strings.TrimLeft(line, " \t")
		for _, kw := range codeKeywords {
			if strings.HasPrefix(trimmed, kw) {
				return models.ContentTypeCode
			}
		}
	}

	if len(content) >= minClassifiableLength {
		punct := 0
		for _, r := range content {
			switch r {
			case '{', '}', '(', ')', '[', ']', ';', '=', '<', '>':
				punct++
			}
		}
		if float64(punct)/float64(len(content)) > punctuationDensityThreshold {
			return models.ContentTypeCode
		}

		nonEmpty, indented := 0, 0
		for _, line := range lines {
			if strings.TrimSpace(line) == "" {
				continue
			}
			nonEmpty++
			if strings.HasPrefix(line, "\t") || strings.HasPrefix(line, "    ") {
				indented++
			}
		}
		if nonEmpty >= 3 && float64(indented)/float64(nonEmpty) > indentedLineThreshold {
			return models.ContentTypeCode
		}
	}

	return models.ContentTypeText
}

// hasMarkdownCode walks the markdown AST looking for fenced blocks,
// indented code blocks or inline code spans.
func hasMarkdownCode(content string) bool {
	md := goldmark.New()
	source := []byte(content)
	node := md.Parser().Parse(text.NewReader(source))

	found := false
	_ = ast.Walk(node, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch n.Kind() {
		case ast.KindFencedCodeBlock, ast.KindCodeBlock, ast.KindCodeSpan:
			found = true
			return ast.WalkStop, nil
		}
		return ast.WalkContinue, nil
	})
	return found
}
