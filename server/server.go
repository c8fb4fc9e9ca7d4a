// Package server exposes the text pipeline, exports, the writing assistant
// and image search over HTTP.
package server

import (
	"errors"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"novel_crafter/assistant"
	"novel_crafter/config"
	"novel_crafter/imagesearch"
	"novel_crafter/processor"
)

// maxBodyBytes bounds every request body.
const maxBodyBytes = 10 << 20

type Server struct {
	proc     *processor.Processor
	agent    *assistant.Agent
	images   *imagesearch.Client
	cfg      *config.Config
	store    *sessionStore
	staticFS http.Handler
	logger   *zap.Logger
	now      func() time.Time
}

// Assistant sessions idle longer than sessionIdleTTL are dropped, and at most
// maxSessions are kept; the least recently used goes first.
const (
	maxSessions    = 256
	sessionIdleTTL = 30 * time.Minute
)

type sessionEntry struct {
	sess     *assistant.Session
	lastUsed time.Time
}

type sessionStore struct {
	mu       sync.Mutex
	sessions map[string]*sessionEntry
	max      int
	ttl      time.Duration
	now      func() time.Time
}

func newStore() *sessionStore {
	return &sessionStore{
		sessions: make(map[string]*sessionEntry),
		max:      maxSessions,
		ttl:      sessionIdleTTL,
		now:      time.Now,
	}
}

func (s *sessionStore) set(id string, sess *assistant.Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	s.sessions[id] = &sessionEntry{sess: sess, lastUsed: now}
	s.evictLocked(now)
}

func (s *sessionStore) get(id string) (*assistant.Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.sessions[id]
	if !ok {
		return nil, false
	}
	now := s.now()
	if now.Sub(e.lastUsed) > s.ttl {
		delete(s.sessions, id)
		return nil, false
	}
	e.lastUsed = now
	return e.sess, true
}

func (s *sessionStore) size() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// evictLocked drops idle sessions, then the least recently used ones until
// the store is within its cap.
func (s *sessionStore) evictLocked(now time.Time) {
	for id, e := range s.sessions {
		if now.Sub(e.lastUsed) > s.ttl {
			delete(s.sessions, id)
		}
	}
	for len(s.sessions) > s.max {
		var oldestID string
		var oldest time.Time
		for id, e := range s.sessions {
			if oldestID == "" || e.lastUsed.Before(oldest) {
				oldestID, oldest = id, e.lastUsed
			}
		}
		delete(s.sessions, oldestID)
	}
}

// New wires a Server. images may be nil, in which case searches run without
// API keys.
func New(cfg *config.Config, proc *processor.Processor, agent *assistant.Agent, images *imagesearch.Client, logger *zap.Logger) (*Server, error) {
	if proc == nil {
		return nil, errors.New("processor required")
	}
	if agent == nil {
		return nil, errors.New("assistant agent required")
	}
	if cfg == nil {
		cfg = config.Default()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if images == nil {
		images = imagesearch.New(imagesearch.Config{}, nil, logger.Named("imagesearch"))
	}

	s := &Server{
		proc:   proc,
		agent:  agent,
		images: images,
		cfg:    cfg,
		store:  newStore(),
		logger: logger,
		now:    time.Now,
	}
	if cfg.StaticDir != "" {
		info, err := os.Stat(cfg.StaticDir)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			return nil, errors.New("static_dir is not a directory: " + cfg.StaticDir)
		}
		s.staticFS = http.FileServer(http.Dir(cfg.StaticDir))
	}
	return s, nil
}

func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/health", s.handleHealth)
	mux.HandleFunc("/api/process-text", s.handleProcessText)
	mux.HandleFunc("/api/process", s.handleProcessText)
	mux.HandleFunc("/api/grammar-check", s.handleGrammarCheck)
	mux.HandleFunc("/api/character-names", s.handleCharacterNames)
	mux.HandleFunc("/api/name-change", s.handleNameChange)
	mux.HandleFunc("/api/apply-corrections", s.handleApplyCorrections)
	mux.HandleFunc("/api/export-word", s.handleExport(formatWord))
	mux.HandleFunc("/api/export-html", s.handleExport(formatHTML))
	mux.HandleFunc("/api/export-pdf", s.handleExport(formatPDF))
	mux.HandleFunc("/api/ai-assistant", s.handleAssistant)
	mux.HandleFunc("/api/image-search", s.handleImageSearch)
	mux.Handle("/", s.staticHandler())
	return logMiddleware(s.logger, corsMiddleware(mux))
}

func (s *Server) staticHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.staticFS == nil || strings.HasPrefix(r.URL.Path, "/api/") {
			writeError(w, http.StatusNotFound, "Not Found")
			return
		}
		// fall back to index.html for SPA-ish behavior
		p := r.URL.Path
		if p == "/" || !fileExists(filepath.Join(s.cfg.StaticDir, filepath.FromSlash(path.Clean("/"+p)))) {
			r.URL.Path = "/"
		}
		s.staticFS.ServeHTTP(w, r)
	})
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
