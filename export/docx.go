package export

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"math"
	"strings"
	"time"
)

// WordEncoder turns parsed blocks into a Word document.
type WordEncoder interface {
	EncodeWord(blocks []Block, opts Options) ([]byte, error)
}

// DOCXEncoder writes a minimal WordprocessingML package.
type DOCXEncoder struct {
	// Now stamps docProps/core.xml; nil means time.Now.
	Now func() time.Time
}

const (
	contentTypesXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types">
<Default Extension="rels" ContentType="application/vnd.openxmlformats-package.relationships+xml"/>
<Default Extension="xml" ContentType="application/xml"/>
<Override PartName="/word/document.xml" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"/>
<Override PartName="/word/styles.xml" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.styles+xml"/>
<Override PartName="/docProps/core.xml" ContentType="application/vnd.openxmlformats-package.core-properties+xml"/>
</Types>`

	rootRelsXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">
<Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/officeDocument" Target="word/document.xml"/>
<Relationship Id="rId2" Type="http://schemas.openxmlformats.org/package/2006/relationships/metadata/core-properties" Target="docProps/core.xml"/>
</Relationships>`

	documentRelsXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">
<Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/styles" Target="styles.xml"/>
</Relationships>`

	wordNS = `xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"`
)

// EncodeWord implements WordEncoder.
func (e DOCXEncoder) EncodeWord(blocks []Block, opts Options) ([]byte, error) {
	now := time.Now
	if e.Now != nil {
		now = e.Now
	}

	parts := []struct {
		name string
		body string
	}{
		{"[Content_Types].xml", contentTypesXML},
		{"_rels/.rels", rootRelsXML},
		{"word/_rels/document.xml.rels", documentRelsXML},
		{"word/styles.xml", stylesXML(opts)},
		{"word/document.xml", documentXML(blocks, opts)},
		{"docProps/core.xml", coreXML(opts, now().UTC())},
	}

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, p := range parts {
		w, err := zw.Create(p.name)
		if err != nil {
			return nil, fmt.Errorf("create %s: %w", p.name, err)
		}
		if _, err := w.Write([]byte(p.body)); err != nil {
			return nil, fmt.Errorf("write %s: %w", p.name, err)
		}
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("close docx: %w", err)
	}
	return buf.Bytes(), nil
}

func escapeXML(s string) string {
	var b strings.Builder
	_ = xml.EscapeText(&b, []byte(s))
	return b.String()
}

func stylesXML(opts Options) string {
	font := escapeXML(opts.FontFamily)
	var b strings.Builder
	b.WriteString(`<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` + "\n")
	b.WriteString(`<w:styles ` + wordNS + `>`)
	fmt.Fprintf(&b, `<w:docDefaults><w:rPrDefault><w:rPr><w:rFonts w:ascii="%s" w:hAnsi="%s" w:cs="%s"/><w:sz w:val="%d"/></w:rPr></w:rPrDefault></w:docDefaults>`,
		font, font, font, opts.FontSize*2)
	b.WriteString(`<w:style w:type="paragraph" w:default="1" w:styleId="Normal"><w:name w:val="Normal"/></w:style>`)
	for _, h := range []struct{ level, size int }{{1, 32}, {2, 28}, {3, 26}} {
		fmt.Fprintf(&b, `<w:style w:type="paragraph" w:styleId="Heading%d"><w:name w:val="heading %d"/><w:basedOn w:val="Normal"/><w:next w:val="Normal"/><w:pPr><w:keepNext/><w:outlineLvl w:val="%d"/></w:pPr><w:rPr><w:b/><w:sz w:val="%d"/></w:rPr></w:style>`,
			h.level, h.level, h.level-1, h.size)
	}
	b.WriteString(`</w:styles>`)
	return b.String()
}

func documentXML(blocks []Block, opts Options) string {
	font := escapeXML(opts.FontFamily)
	line := int(math.Round(opts.LineSpacing * 240))
	runProps := fmt.Sprintf(`<w:rPr><w:rFonts w:ascii="%s" w:hAnsi="%s" w:cs="%s"/><w:sz w:val="%d"/></w:rPr>`,
		font, font, font, opts.FontSize*2)

	var b strings.Builder
	b.WriteString(`<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` + "\n")
	b.WriteString(`<w:document ` + wordNS + `><w:body>`)

	if opts.Title != "" {
		b.WriteString(`<w:p><w:pPr><w:pStyle w:val="Heading1"/><w:jc w:val="center"/><w:spacing w:after="400"/></w:pPr>`)
		writeRun(&b, "", []string{opts.Title})
		b.WriteString(`</w:p>`)
	}

	for _, blk := range blocks {
		switch blk.Kind {
		case BlockEmpty:
			b.WriteString(`<w:p><w:pPr><w:spacing w:after="200"/></w:pPr></w:p>`)
		case BlockPageBreak:
			b.WriteString(`<w:p><w:r><w:br w:type="page"/></w:r></w:p>`)
		case BlockHeading:
			fmt.Fprintf(&b, `<w:p><w:pPr><w:pStyle w:val="Heading%d"/><w:spacing w:before="240" w:after="120"/></w:pPr>`, blk.Level)
			writeRun(&b, "", blk.Lines)
			b.WriteString(`</w:p>`)
		default:
			fmt.Fprintf(&b, `<w:p><w:pPr><w:spacing w:after="200" w:line="%d" w:lineRule="auto"/></w:pPr>`, line)
			writeRun(&b, runProps, blk.Lines)
			b.WriteString(`</w:p>`)
		}
	}

	m := opts.PageMargins
	fmt.Fprintf(&b, `<w:sectPr><w:pgSz w:w="12240" w:h="15840"/><w:pgMar w:top="%d" w:right="%d" w:bottom="%d" w:left="%d" w:header="720" w:footer="720" w:gutter="0"/></w:sectPr>`,
		m.Top, m.Right, m.Bottom, m.Left)
	b.WriteString(`</w:body></w:document>`)
	return b.String()
}

// writeRun emits one run whose lines are separated by soft line breaks.
func writeRun(b *strings.Builder, props string, lines []string) {
	b.WriteString(`<w:r>`)
	b.WriteString(props)
	for i, l := range lines {
		if i > 0 {
			b.WriteString(`<w:br/>`)
		}
		b.WriteString(`<w:t xml:space="preserve">`)
		b.WriteString(escapeXML(l))
		b.WriteString(`</w:t>`)
	}
	b.WriteString(`</w:r>`)
}

func coreXML(opts Options, now time.Time) string {
	stamp := now.Format(time.RFC3339)
	return fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<cp:coreProperties xmlns:cp="http://schemas.openxmlformats.org/package/2006/metadata/core-properties" xmlns:dc="http://purl.org/dc/elements/1.1/" xmlns:dcterms="http://purl.org/dc/terms/" xmlns:xsi="http://www.w3.org/2001/XMLSchema-instance">
<dc:title>%s</dc:title>
<dc:creator>%s</dc:creator>
<dc:description>%s</dc:description>
<dcterms:created xsi:type="dcterms:W3CDTF">%s</dcterms:created>
<dcterms:modified xsi:type="dcterms:W3CDTF">%s</dcterms:modified>
</cp:coreProperties>`,
		escapeXML(opts.Title), escapeXML(opts.Author), escapeXML("Document created by "+AppName), stamp, stamp)
}
