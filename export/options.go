// Package export turns a manuscript into Word, HTML, PDF or plain text.
// Every binary export falls back to a plain-text document that embeds the
// original text byte for byte.
package export

import (
	"regexp"
	"strings"
)

// AppName is used as default author and in the plain-text envelope.
const AppName = "Enhanced Novel Crafter"

// MinDocumentSize is the smallest output accepted as a real document.
const MinDocumentSize = 100

// PageMargins are in twips (1440 per inch).
type PageMargins struct {
	Top    int `json:"top" yaml:"top" toml:"top"`
	Right  int `json:"right" yaml:"right" toml:"right"`
	Bottom int `json:"bottom" yaml:"bottom" toml:"bottom"`
	Left   int `json:"left" yaml:"left" toml:"left"`
}

// Options control document metadata and layout. Zero fields take the
// values from DefaultOptions.
type Options struct {
	Title       string       `json:"title,omitempty" yaml:"title" toml:"title"`
	Author      string       `json:"author,omitempty" yaml:"author" toml:"author"`
	FontSize    int          `json:"fontSize,omitempty" yaml:"font_size" toml:"font_size"`
	FontFamily  string       `json:"fontFamily,omitempty" yaml:"font_family" toml:"font_family"`
	LineSpacing float64      `json:"lineSpacing,omitempty" yaml:"line_spacing" toml:"line_spacing"`
	PageMargins *PageMargins `json:"pageMargins,omitempty" yaml:"page_margins" toml:"page_margins"`
}

// DefaultOptions returns the layout used when nothing is specified.
func DefaultOptions() Options {
	return Options{
		Title:       "Document",
		Author:      AppName,
		FontSize:    12,
		FontFamily:  "Times New Roman",
		LineSpacing: 1.15,
		PageMargins: &PageMargins{Top: 1440, Right: 1440, Bottom: 1440, Left: 1440},
	}
}

// WithDefaults fills zero fields of o from base.
func (o Options) WithDefaults(base Options) Options {
	if o.Title == "" {
		o.Title = base.Title
	}
	if o.Author == "" {
		o.Author = base.Author
	}
	if o.FontSize <= 0 {
		o.FontSize = base.FontSize
	}
	if o.FontFamily == "" {
		o.FontFamily = base.FontFamily
	}
	if o.LineSpacing <= 0 {
		o.LineSpacing = base.LineSpacing
	}
	if o.PageMargins == nil {
		o.PageMargins = base.PageMargins
	}
	return o
}

// Document is an export result.
type Document struct {
	Data        []byte
	ContentType string
	Extension   string
	// Fallback is set when the plain-text envelope was returned instead of
	// the requested format.
	Fallback bool
}

const (
	ContentTypeDOCX = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	ContentTypeHTML = "text/html; charset=utf-8"
	ContentTypePDF  = "application/pdf"
	ContentTypeText = "text/plain; charset=utf-8"
)

var unsafeFilename = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// Filename derives a download name from title and the document extension.
func (d Document) Filename(title string) string {
	base := strings.Trim(unsafeFilename.ReplaceAllString(title, "_"), "_.")
	if base == "" {
		base = "document"
	}
	return base + d.Extension
}
