// Package assistant proxies writing questions to a chat model. Replies are
// advisory text for the writer; nothing here edits the manuscript.
package assistant

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrTextRequired is returned for a request without text.
	ErrTextRequired = errors.New("text is required")
	// ErrEmptyReply is returned when the model answers with nothing.
	ErrEmptyReply = errors.New("model returned empty response")
)

// Agent turns requests into prompts and model replies.
type Agent struct {
	llm LLMClient
}

func NewAgent(llm LLMClient) (*Agent, error) {
	if llm == nil {
		return nil, errors.New("llm client is required")
	}
	return &Agent{llm: llm}, nil
}

// Assist answers a single request with no history.
func (a *Agent) Assist(ctx context.Context, req Request) (Reply, error) {
	return a.complete(ctx, req, nil)
}

func (a *Agent) complete(ctx context.Context, req Request, history []Turn) (Reply, error) {
	if strings.TrimSpace(req.Text) == "" {
		return Reply{}, ErrTextRequired
	}
	if req.Action == "" {
		req.Action = ActionCreative
	}

	raw, err := a.llm.Complete(ctx, BuildPrompt(req, history))
	if err != nil {
		return Reply{}, fmt.Errorf("assistant %s: %w", req.Action, err)
	}
	out := strings.TrimSpace(raw)
	if out == "" {
		return Reply{}, ErrEmptyReply
	}
	return Reply{Action: req.Action, Response: out}, nil
}
