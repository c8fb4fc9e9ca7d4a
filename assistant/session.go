package assistant

import (
	"context"
	"sync"
	"time"
)

// MaxHistory bounds the turns replayed to the model.
const MaxHistory = 6

// Session keeps the exchanges of one writer so follow-up questions carry
// context.
type Session struct {
	ID string

	mu      sync.Mutex
	history []Turn
	agent   *Agent
}

func NewSession(id string, agent *Agent) *Session {
	return &Session{ID: id, agent: agent}
}

// Ask answers req with the recent history as context and records the turn.
func (s *Session) Ask(ctx context.Context, req Request) (Reply, error) {
	s.mu.Lock()
	history := s.recent()
	s.mu.Unlock()

	reply, err := s.agent.complete(ctx, req, history)
	if err != nil {
		return Reply{}, err
	}

	s.mu.Lock()
	s.history = append(s.history, Turn{Request: req, Reply: reply, CreatedAt: time.Now()})
	s.mu.Unlock()
	return reply, nil
}

// History returns a copy of every recorded turn.
func (s *Session) History() []Turn {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Turn, len(s.history))
	copy(out, s.history)
	return out
}

func (s *Session) recent() []Turn {
	h := s.history
	if len(h) > MaxHistory {
		h = h[len(h)-MaxHistory:]
	}
	out := make([]Turn, len(h))
	copy(out, h)
	return out
}
