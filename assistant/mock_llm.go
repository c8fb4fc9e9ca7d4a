package assistant

import (
	"context"
	"strings"
)

// MockLLM answers locally without calling a model. It is used when no API
// key is configured.
type MockLLM struct{}

func (m MockLLM) Complete(_ context.Context, prompt Prompt) (string, error) {
	var sb strings.Builder
	sb.WriteString("Offline assistant (no model configured).\n\n")
	sb.WriteString("Request:\n")
	sb.WriteString(prompt.User)
	sb.WriteString("\n\nReview the passage yourself with the guidance above in mind; no changes were made to your text.")
	return sb.String(), nil
}
