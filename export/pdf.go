package export

import (
	"context"
	"fmt"
	"io"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
)

// PDFRenderer prints an HTML page to PDF.
type PDFRenderer interface {
	RenderPDF(ctx context.Context, page []byte, opts Options) ([]byte, error)
}

// RodPDFRenderer prints through headless Chrome.
type RodPDFRenderer struct {
	// ControlURL connects to an already running browser when set.
	ControlURL string
	// Bin overrides the browser binary used when launching.
	Bin string
}

// RenderPDF implements PDFRenderer.
func (r RodPDFRenderer) RenderPDF(ctx context.Context, html []byte, opts Options) ([]byte, error) {
	controlURL := r.ControlURL
	if controlURL == "" {
		l := launcher.New().Headless(true).Context(ctx)
		if r.Bin != "" {
			l = l.Bin(r.Bin)
		}
		u, err := l.Launch()
		if err != nil {
			return nil, fmt.Errorf("launch chrome: %w", err)
		}
		defer l.Cleanup()
		controlURL = u
	}

	browser := rod.New().ControlURL(controlURL).Context(ctx)
	if err := browser.Connect(); err != nil {
		return nil, fmt.Errorf("connect to chrome: %w", err)
	}
	defer func() { _ = browser.Close() }()

	page, err := browser.Page(proto.TargetCreateTarget{URL: "about:blank"})
	if err != nil {
		return nil, fmt.Errorf("open page: %w", err)
	}
	defer func() { _ = page.Close() }()

	if err := page.SetDocumentContent(string(html)); err != nil {
		return nil, fmt.Errorf("set content: %w", err)
	}
	if err := page.WaitLoad(); err != nil {
		return nil, fmt.Errorf("wait load: %w", err)
	}

	inches := func(twips int) *float64 {
		v := float64(twips) / 1440
		return &v
	}
	req := &proto.PagePrintToPDF{PrintBackground: true, PreferCSSPageSize: true}
	if m := opts.PageMargins; m != nil {
		req.MarginTop = inches(m.Top)
		req.MarginRight = inches(m.Right)
		req.MarginBottom = inches(m.Bottom)
		req.MarginLeft = inches(m.Left)
	}
	stream, err := page.PDF(req)
	if err != nil {
		return nil, fmt.Errorf("print pdf: %w", err)
	}
	data, err := io.ReadAll(stream)
	if err != nil {
		return nil, fmt.Errorf("read pdf: %w", err)
	}
	return data, nil
}
