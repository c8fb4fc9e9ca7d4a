package assistant

import "context"

// LLMClient abstracts the model backend so it can be swapped or mocked.
type LLMClient interface {
	Complete(ctx context.Context, prompt Prompt) (string, error)
}

// LLMSettings configures a concrete client.
type LLMSettings struct {
	Provider    string
	Model       string
	APIKey      string
	BaseURL     string
	MaxTokens   int64
	Temperature float64
}

const (
	DefaultModel       = "gpt-4"
	DefaultMaxTokens   = 1000
	DefaultTemperature = 0.7
)
