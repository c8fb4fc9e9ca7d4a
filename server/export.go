package server

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"novel_crafter/export"
)

type exportFormat int

const (
	formatWord exportFormat = iota
	formatHTML
	formatPDF
)

type exportReq struct {
	textBody
	Options export.Options `json:"options"`
}

func (s *Server) handleExport(format exportFormat) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req exportReq
		if !decodeText(w, r, &req) {
			return
		}
		opts := req.Options.WithDefaults(s.cfg.Export)

		var doc export.Document
		switch format {
		case formatWord:
			doc = s.proc.ExportToWord(*req.Text, opts)
		case formatHTML:
			doc = s.proc.ExportToHTML(*req.Text, opts)
		case formatPDF:
			ctx, cancel := context.WithTimeout(r.Context(), s.cfg.PDFTimeout())
			defer cancel()
			doc = s.proc.ExportToPDF(ctx, *req.Text, opts)
		}
		writeDocument(w, doc, opts.Title)
	}
}

func writeDocument(w http.ResponseWriter, doc export.Document, title string) {
	h := w.Header()
	h.Set("Content-Type", doc.ContentType)
	h.Set("Content-Length", strconv.Itoa(len(doc.Data)))
	h.Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", doc.Filename(title)))
	if doc.Fallback {
		h.Set("X-Export-Fallback", "true")
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(doc.Data)
}
