package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"

	"novel_crafter/contentcontrol"
	"novel_crafter/grammar"
	"novel_crafter/processor"
)

const errTextRequired = "Text is required and must be a string"

// textCarrier is implemented by every request body with a text field.
type textCarrier interface {
	text() *string
}

type textBody struct {
	Text *string `json:"text"`
}

func (b textBody) text() *string { return b.Text }

type processReq struct {
	textBody
	Options *contentcontrol.Options `json:"options,omitempty"`
}

type grammarResp struct {
	Text        string                 `json:"text"`
	Errors      []grammar.GrammarError `json:"errors"`
	ErrorCount  int                    `json:"errorCount"`
	ProcessedAt string                 `json:"processedAt"`
}

type nameChangeReq struct {
	textBody
	OldName string `json:"oldName"`
	NewName string `json:"newName"`
}

type correctionsReq struct {
	textBody
	Corrections []processor.Correction `json:"corrections"`
}

type textResp struct {
	Text string `json:"text"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleProcessText(w http.ResponseWriter, r *http.Request) {
	var req processReq
	if !decodeText(w, r, &req) {
		return
	}
	writeJSON(w, http.StatusOK, s.proc.ProcessText(*req.Text))
}

func (s *Server) handleGrammarCheck(w http.ResponseWriter, r *http.Request) {
	var req textBody
	if !decodeText(w, r, &req) {
		return
	}
	errs := s.proc.DetectGrammarErrors(*req.Text)
	if errs == nil {
		errs = []grammar.GrammarError{}
	}
	writeJSON(w, http.StatusOK, grammarResp{
		Text:        *req.Text,
		Errors:      errs,
		ErrorCount:  len(errs),
		ProcessedAt: s.now().UTC().Format(time.RFC3339Nano),
	})
}

func (s *Server) handleCharacterNames(w http.ResponseWriter, r *http.Request) {
	var req processReq
	if !decodeText(w, r, &req) {
		return
	}
	writeJSON(w, http.StatusOK, s.proc.ProcessCharacterNames(*req.Text, req.Options))
}

func (s *Server) handleNameChange(w http.ResponseWriter, r *http.Request) {
	var req nameChangeReq
	if !decodeText(w, r, &req) {
		return
	}
	out := contentcontrol.HandleUserRequestedNameChange(*req.Text, req.OldName, req.NewName)
	if req.OldName != "" && req.NewName != "" {
		s.logger.Info("name change applied",
			zap.String("old_name", req.OldName),
			zap.String("new_name", req.NewName),
			zap.Int("occurrences", contentcontrol.CountOccurrences(*req.Text, req.OldName)))
	}
	writeJSON(w, http.StatusOK, textResp{Text: out})
}

func (s *Server) handleApplyCorrections(w http.ResponseWriter, r *http.Request) {
	var req correctionsReq
	if !decodeText(w, r, &req) {
		return
	}
	writeJSON(w, http.StatusOK, textResp{Text: s.proc.ApplyCorrections(*req.Text, req.Corrections)})
}

// --- Helpers ---

// decodeText enforces POST, decodes the body into v and requires a string
// text field. It writes the error response itself and reports whether the
// handler should continue.
func decodeText(w http.ResponseWriter, r *http.Request, v textCarrier) bool {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return false
	}
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(body).Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "Request body too large")
			return false
		}
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) && typeErr.Field != "text" {
			writeError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
			return false
		}
		writeError(w, http.StatusBadRequest, errTextRequired)
		return false
	}
	if v.text() == nil {
		writeError(w, http.StatusBadRequest, errTextRequired)
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
