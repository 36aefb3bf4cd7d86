package ingest

import (
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// Chapter is a contiguous section of a book, delimited by top-level
// headings. Title is empty for untitled sections.
type Chapter struct {
	Title string
	Text  string
}

// SplitChapters segments a markdown body into chapters. H1 and H2
// headings start a new chapter and become its title; deeper headings are
// part of the running text. Inline runs are joined with single spaces,
// line breaks become newlines, and markup is dropped. A body without any
// H1/H2 heading yields a single untitled chapter holding the whole text.
func SplitChapters(body string) []Chapter {
	source := []byte(body)
	doc := goldmark.New().Parser().Parse(text.NewReader(source))

	var (
		chapters []Chapter
		title    string
		titled   bool
		buf      strings.Builder
	)

	flush := func() {
		txt := strings.TrimSpace(buf.String())
		if txt != "" || titled {
			chapters = append(chapters, Chapter{Title: title, Text: txt})
		}
		buf.Reset()
		title = ""
		titled = false
	}

	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch node := n.(type) {
		case *ast.Heading:
			if node.Level <= 2 {
				flush()
				title = headingText(node, source)
				titled = true
				return ast.WalkSkipChildren, nil
			}
		case *ast.Text:
			buf.Write(node.Segment.Value(source))
			if node.SoftLineBreak() || node.HardLineBreak() {
				buf.WriteByte('\n')
			} else {
				buf.WriteByte(' ')
			}
		case *ast.FencedCodeBlock, *ast.CodeBlock:
			lines := n.Lines()
			for i := 0; i < lines.Len(); i++ {
				seg := lines.At(i)
				buf.Write(seg.Value(source))
			}
		}
		return ast.WalkContinue, nil
	})
	flush()

	if len(chapters) == 0 {
		chapters = append(chapters, Chapter{Text: body})
	}
	return chapters
}

// headingText concatenates the inline text of a heading node.
func headingText(n ast.Node, source []byte) string {
	var b strings.Builder
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		if t, ok := c.(*ast.Text); ok {
			b.Write(t.Segment.Value(source))
		}
	}
	return strings.TrimSpace(b.String())
}
