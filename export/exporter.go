package export

import (
	"bytes"
	"context"
	"fmt"

	"go.uber.org/zap"
)

const (
	plainHeader = "# " + AppName + " Export\n\n"
	plainFooter = "\n\n---\nExported from " + AppName
)

var (
	zipSignature = []byte{'P', 'K', 0x03, 0x04}
	pdfSignature = []byte("%PDF-")
)

// Validation is the result of ValidateExportedDocument.
type Validation struct {
	Valid  bool   `json:"valid"`
	Reason string `json:"reason,omitempty"`
	Size   int    `json:"size,omitempty"`
}

// ValidateExportedDocument checks that data looks like a real DOCX package:
// at least MinDocumentSize bytes and starting with the zip signature.
func ValidateExportedDocument(data []byte) Validation {
	if len(data) < MinDocumentSize {
		return Validation{Reason: "Document is too small or empty"}
	}
	if !bytes.HasPrefix(data, zipSignature) {
		return Validation{Reason: "Invalid document signature"}
	}
	return Validation{Valid: true, Size: len(data)}
}

// ExportAsPlainText wraps text in the plain-text envelope.
func ExportAsPlainText(text string) []byte {
	return []byte(plainHeader + text + plainFooter)
}

// Option configures an Exporter.
type Option func(*Exporter)

// WithWordEncoder replaces the DOCX encoder.
func WithWordEncoder(w WordEncoder) Option {
	return func(e *Exporter) { e.word = w }
}

// WithPDFRenderer replaces the headless Chrome renderer.
func WithPDFRenderer(r PDFRenderer) Option {
	return func(e *Exporter) { e.pdf = r }
}

// WithDefaults sets the options used for fields a caller leaves empty.
func WithDefaults(o Options) Option {
	return func(e *Exporter) { e.defaults = o.WithDefaults(DefaultOptions()) }
}

// Exporter converts manuscripts to documents. It is safe for concurrent use
// as long as its encoder and renderer are.
type Exporter struct {
	word     WordEncoder
	pdf      PDFRenderer
	defaults Options
	logger   *zap.Logger
}

// NewExporter returns an exporter using DOCXEncoder and RodPDFRenderer.
func NewExporter(logger *zap.Logger, opts ...Option) *Exporter {
	if logger == nil {
		logger = zap.NewNop()
	}
	e := &Exporter{
		word:     DOCXEncoder{},
		pdf:      RodPDFRenderer{},
		defaults: DefaultOptions(),
		logger:   logger,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Exporter) fallback(text, format string, err error) Document {
	e.logger.Error("export failed; using plain text", zap.String("format", format), zap.Error(err))
	return Document{
		Data:        ExportAsPlainText(text),
		ContentType: ContentTypeText,
		Extension:   ".txt",
		Fallback:    true,
	}
}

// guard turns a panic in fn into an error.
func guard(fn func() ([]byte, error)) (data []byte, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return fn()
}

// ExportToWord encodes text as DOCX, or returns the plain-text envelope if
// encoding fails or the output does not validate.
func (e *Exporter) ExportToWord(text string, opts Options) Document {
	opts = opts.WithDefaults(e.defaults)
	blocks := ParseBlocks(text)
	data, err := guard(func() ([]byte, error) { return e.word.EncodeWord(blocks, opts) })
	if err != nil {
		return e.fallback(text, "word", err)
	}
	if v := ValidateExportedDocument(data); !v.Valid {
		return e.fallback(text, "word", fmt.Errorf("generated document rejected: %s", v.Reason))
	}
	e.logger.Info("word document generated", zap.Int("size", len(data)), zap.Int("paragraphs", len(blocks)))
	return Document{Data: data, ContentType: ContentTypeDOCX, Extension: ".docx"}
}

// ExportToHTML renders text as a standalone HTML page.
func (e *Exporter) ExportToHTML(text string, opts Options) Document {
	opts = opts.WithDefaults(e.defaults)
	blocks := ParseBlocks(text)
	data, err := guard(func() ([]byte, error) { return RenderPage(blocks, opts) })
	if err != nil {
		return e.fallback(text, "html", err)
	}
	e.logger.Info("html document generated", zap.Int("size", len(data)), zap.Int("paragraphs", len(blocks)))
	return Document{Data: data, ContentType: ContentTypeHTML, Extension: ".html"}
}

// ExportToPDF renders the HTML page and prints it to PDF.
func (e *Exporter) ExportToPDF(ctx context.Context, text string, opts Options) Document {
	opts = opts.WithDefaults(e.defaults)
	blocks := ParseBlocks(text)
	data, err := guard(func() ([]byte, error) {
		page, err := RenderPage(blocks, opts)
		if err != nil {
			return nil, err
		}
		return e.pdf.RenderPDF(ctx, page, opts)
	})
	if err != nil {
		return e.fallback(text, "pdf", err)
	}
	if len(data) < MinDocumentSize || !bytes.HasPrefix(data, pdfSignature) {
		return e.fallback(text, "pdf", fmt.Errorf("generated pdf rejected: %d bytes", len(data)))
	}
	e.logger.Info("pdf document generated", zap.Int("size", len(data)))
	return Document{Data: data, ContentType: ContentTypePDF, Extension: ".pdf"}
}

// ExportToText returns the plain-text envelope as a Document.
func (e *Exporter) ExportToText(text string) Document {
	return Document{Data: ExportAsPlainText(text), ContentType: ContentTypeText, Extension: ".txt"}
}
