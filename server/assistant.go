package server

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"novel_crafter/assistant"
	"novel_crafter/imagesearch"
)

type assistantReq struct {
	textBody
	Action    assistant.Action `json:"action"`
	Context   string           `json:"context"`
	SessionID string           `json:"sessionId"`
}

type assistantResp struct {
	Success   bool             `json:"success"`
	Response  string           `json:"response"`
	Action    assistant.Action `json:"action"`
	SessionID string           `json:"sessionId"`
}

type fallbackResp struct {
	Error    string `json:"error"`
	Fallback string `json:"fallback"`
}

type imageSearchResp struct {
	Success bool                `json:"success"`
	Source  string              `json:"source"`
	Query   string              `json:"query"`
	Images  []imagesearch.Image `json:"images"`
}

// session returns the stored session for id, or a new one under a fresh id.
func (s *Server) session(id string) *assistant.Session {
	if id != "" {
		if sess, ok := s.store.get(id); ok {
			return sess
		}
	}
	sess := assistant.NewSession(uuid.NewString(), s.agent)
	s.store.set(sess.ID, sess)
	return sess
}

func (s *Server) handleAssistant(w http.ResponseWriter, r *http.Request) {
	var req assistantReq
	if !decodeText(w, r, &req) {
		return
	}
	if *req.Text == "" {
		writeError(w, http.StatusBadRequest, "Text is required")
		return
	}

	sess := s.session(req.SessionID)
	ctx, cancel := context.WithTimeout(r.Context(), s.cfg.AssistantTimeout())
	defer cancel()
	reply, err := sess.Ask(ctx, assistant.Request{Action: req.Action, Text: *req.Text, Context: req.Context})
	if errors.Is(err, assistant.ErrTextRequired) {
		writeError(w, http.StatusBadRequest, "Text is required")
		return
	}
	if err != nil {
		s.logger.Error("assistant request failed", zap.String("session", sess.ID), zap.String("action", string(req.Action)), zap.Error(err))
		writeJSON(w, http.StatusBadGateway, fallbackResp{
			Error:    "AI service temporarily unavailable",
			Fallback: assistant.FallbackResponse(req.Action),
		})
		return
	}
	writeJSON(w, http.StatusOK, assistantResp{Success: true, Response: reply.Response, Action: reply.Action, SessionID: sess.ID})
}

func (s *Server) handleImageSearch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	q := r.URL.Query()
	query := q.Get("query")
	source := q.Get("source")
	if source == "" {
		source = imagesearch.SourcePexels
	}
	perPage, _ := strconv.Atoi(q.Get("per_page"))

	ctx, cancel := context.WithTimeout(r.Context(), s.cfg.ImagesTimeout())
	defer cancel()
	images, err := s.images.Search(ctx, source, query, perPage)
	switch {
	case errors.Is(err, imagesearch.ErrQueryRequired):
		writeError(w, http.StatusBadRequest, "Search query is required")
	case errors.Is(err, imagesearch.ErrInvalidSource):
		writeError(w, http.StatusBadRequest, "Invalid source")
	case err != nil:
		writeJSON(w, http.StatusInternalServerError, fallbackResp{
			Error:    "Image search temporarily unavailable",
			Fallback: "Try searching manually on the respective platforms",
		})
	default:
		writeJSON(w, http.StatusOK, imageSearchResp{Success: true, Source: source, Query: query, Images: images})
	}
}
