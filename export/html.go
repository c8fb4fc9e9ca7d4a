package export

import (
	"bytes"
	"fmt"
	"html"
	"regexp"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

var markdown = goldmark.New()

// BuildAST converts parsed blocks into a goldmark document. Text is added as
// raw string nodes, so it is HTML-escaped but never interpreted as markdown.
func BuildAST(blocks []Block, title string) *ast.Document {
	doc := ast.NewDocument()
	if title != "" {
		h := ast.NewHeading(1)
		appendLines(h, []string{title})
		doc.AppendChild(doc, h)
	}
	for _, blk := range blocks {
		switch blk.Kind {
		case BlockEmpty:
			p := ast.NewParagraph()
			nbsp := ast.NewString([]byte("&nbsp;"))
			nbsp.SetCode(true)
			p.AppendChild(p, nbsp)
			doc.AppendChild(doc, p)
		case BlockPageBreak:
			doc.AppendChild(doc, ast.NewThematicBreak())
		case BlockHeading:
			h := ast.NewHeading(blk.Level)
			appendLines(h, blk.Lines)
			doc.AppendChild(doc, h)
		default:
			p := ast.NewParagraph()
			appendLines(p, blk.Lines)
			doc.AppendChild(doc, p)
		}
	}
	return doc
}

// appendLines adds lines to parent separated by hard line breaks.
func appendLines(parent ast.Node, lines []string) {
	for i, l := range lines {
		if i > 0 {
			br := ast.NewTextSegment(text.NewSegment(0, 0))
			br.SetHardLineBreak(true)
			parent.AppendChild(parent, br)
		}
		s := ast.NewString([]byte(l))
		s.SetRaw(true)
		parent.AppendChild(parent, s)
	}
}

// RenderBody renders blocks to an HTML fragment.
func RenderBody(blocks []Block, title string) ([]byte, int, error) {
	doc := BuildAST(blocks, title)
	headings := 0
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if entering && n.Kind() == ast.KindHeading {
			headings++
		}
		return ast.WalkContinue, nil
	})
	var buf bytes.Buffer
	if err := markdown.Renderer().Render(&buf, nil, doc); err != nil {
		return nil, 0, fmt.Errorf("render html: %w", err)
	}
	return buf.Bytes(), headings, nil
}

var unsafeCSS = regexp.MustCompile(`[^A-Za-z0-9 ,-]`)

// RenderPage wraps the rendered body in a printable, styled page.
func RenderPage(blocks []Block, opts Options) ([]byte, error) {
	body, _, err := RenderBody(blocks, opts.Title)
	if err != nil {
		return nil, err
	}
	font := unsafeCSS.ReplaceAllString(opts.FontFamily, "")
	if font == "" {
		font = "Times New Roman"
	}
	var page bytes.Buffer
	fmt.Fprintf(&page, `<!DOCTYPE html>
<html>
<head>
<meta charset="UTF-8">
<meta name="author" content="%s">
<title>%s</title>
<style>
body { font-family: %s, serif; font-size: %dpt; line-height: %.2f; margin: 1in; }
h1, h2, h3 { font-family: %s, serif; margin-top: 1em; margin-bottom: 0.5em; }
p { margin-bottom: 0.5em; text-align: justify; }
hr { page-break-before: always; border: none; margin: 0; padding: 0; }
@page { margin: 1in; }
</style>
</head>
<body>
`, html.EscapeString(opts.Author), html.EscapeString(opts.Title), font, opts.FontSize, opts.LineSpacing, font)
	page.Write(body)
	page.WriteString("</body>\n</html>\n")
	return page.Bytes(), nil
}
