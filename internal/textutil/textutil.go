// Package textutil extracts plain text from journal entry content for
// word counting and search. Content is rich text: HTML from the
// editor, or markdown when entries are imported from plain files.
package textutil

import (
	"regexp"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	gmtext "github.com/yuin/goldmark/text"
	"golang.org/x/net/html"
)

var htmlTagRe = regexp.MustCompile(`</?[a-zA-Z][^>]*>`)

// CountWords counts whitespace-separated words in content with all
// markup stripped.
func CountWords(content string) int {
	return len(strings.Fields(PlainText(content)))
}

// PlainText strips markup from content. HTML-looking content goes
// through the HTML tokenizer; everything else is treated as markdown.
func PlainText(content string) string {
	if content == "" {
		return ""
	}
	if htmlTagRe.MatchString(content) {
		return stripHTML(content)
	}
	return markdownToPlainText(content)
}

// stripHTML extracts the text nodes of an HTML fragment, dropping
// script and style bodies.
func stripHTML(s string) string {
	tokenizer := html.NewTokenizer(strings.NewReader(s))
	var builder strings.Builder
	skipDepth := 0

	for {
		tt := tokenizer.Next()
		switch tt {
		case html.ErrorToken:
			return strings.TrimSpace(builder.String())
		case html.StartTagToken:
			name, _ := tokenizer.TagName()
			if tag := string(name); tag == "script" || tag == "style" {
				skipDepth++
			}
		case html.EndTagToken:
			name, _ := tokenizer.TagName()
			if tag := string(name); (tag == "script" || tag == "style") && skipDepth > 0 {
				skipDepth--
			}
		case html.TextToken:
			if skipDepth == 0 {
				builder.Write(tokenizer.Text())
				builder.WriteByte(' ')
			}
		}
	}
}

// markdownToPlainText walks the goldmark AST and collects text nodes.
func markdownToPlainText(markdown string) string {
	md := goldmark.New()
	source := []byte(markdown)
	node := md.Parser().Parse(gmtext.NewReader(source))

	var builder strings.Builder
	ast.Walk(node, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch n.Kind() {
		case ast.KindText:
			textNode := n.(*ast.Text)
			builder.Write(textNode.Segment.Value(source))
			builder.WriteByte(' ')
		case ast.KindFencedCodeBlock:
			code := n.(*ast.FencedCodeBlock)
			for i := 0; i < code.Lines().Len(); i++ {
				line := code.Lines().At(i)
				builder.Write(line.Value(source))
			}
			return ast.WalkSkipChildren, nil
		}
		return ast.WalkContinue, nil
	})

	return strings.TrimSpace(builder.String())
}
