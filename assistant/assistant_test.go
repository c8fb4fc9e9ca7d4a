package assistant

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingLLM struct {
	reply   string
	err     error
	prompts []Prompt
}

func (r *recordingLLM) Complete(_ context.Context, p Prompt) (string, error) {
	r.prompts = append(r.prompts, p)
	return r.reply, r.err
}

func TestNewAgentRequiresClient(t *testing.T) {
	_, err := NewAgent(nil)
	require.Error(t, err)
}

func TestAssist(t *testing.T) {
	llm := &recordingLLM{reply: "  Consider a comma after 'Yes'.  "}
	agent, err := NewAgent(llm)
	require.NoError(t, err)

	reply, err := agent.Assist(context.Background(), Request{Action: ActionGrammar, Text: "Yes I agree."})
	require.NoError(t, err)
	assert.Equal(t, Reply{Action: ActionGrammar, Response: "Consider a comma after 'Yes'."}, reply)

	require.Len(t, llm.prompts, 1)
	p := llm.prompts[0]
	assert.Contains(t, p.System, "expert editor")
	assert.Contains(t, p.System, "never rewrite the passage")
	assert.Contains(t, p.User, `"Yes I agree."`)
	assert.Contains(t, p.User, DefaultContext)
	assert.Empty(t, p.History)
}

func TestAssistErrors(t *testing.T) {
	t.Run("text required", func(t *testing.T) {
		agent, _ := NewAgent(&recordingLLM{reply: "x"})
		_, err := agent.Assist(context.Background(), Request{Action: ActionStyle, Text: "   "})
		assert.ErrorIs(t, err, ErrTextRequired)
	})

	t.Run("empty reply", func(t *testing.T) {
		agent, _ := NewAgent(&recordingLLM{reply: "\n"})
		_, err := agent.Assist(context.Background(), Request{Action: ActionStyle, Text: "Hi."})
		assert.ErrorIs(t, err, ErrEmptyReply)
	})

	t.Run("backend failure wrapped", func(t *testing.T) {
		boom := errors.New("rate limited")
		agent, _ := NewAgent(&recordingLLM{err: boom})
		_, err := agent.Assist(context.Background(), Request{Action: ActionPlot, Text: "Hi."})
		assert.ErrorIs(t, err, boom)
		assert.Contains(t, err.Error(), "assistant plot")
	})
}

func TestUnknownActionUsesCreativePrompt(t *testing.T) {
	llm := &recordingLLM{reply: "ok"}
	agent, _ := NewAgent(llm)
	reply, err := agent.Assist(context.Background(), Request{Action: "poetry", Text: "Roses.", Context: "chapter 3"})
	require.NoError(t, err)
	assert.Equal(t, Action("poetry"), reply.Action)
	assert.Equal(t, SystemPrompt(ActionCreative), llm.prompts[0].System)
	assert.Contains(t, llm.prompts[0].User, "Please help with the following text (chapter 3)")
	assert.False(t, Action("poetry").Known())
	assert.True(t, ActionResearch.Known())
}

func TestEveryActionHasPromptsAndFallback(t *testing.T) {
	for _, a := range Actions {
		assert.Contains(t, systemPrompts, a)
		assert.Contains(t, userTemplates, a)
		assert.NotEqual(t, defaultFallback, FallbackResponse(a), a)
	}
	assert.Equal(t, defaultFallback, FallbackResponse("unknown"))
}

func TestSessionCarriesHistory(t *testing.T) {
	llm := &recordingLLM{}
	agent, _ := NewAgent(llm)
	s := NewSession("abc", agent)

	for i := 0; i < MaxHistory+2; i++ {
		llm.reply = fmt.Sprintf("answer %d", i)
		_, err := s.Ask(context.Background(), Request{Action: ActionStyle, Text: fmt.Sprintf("question %d", i)})
		require.NoError(t, err)
	}

	assert.Len(t, s.History(), MaxHistory+2)
	last := llm.prompts[len(llm.prompts)-1]
	require.Len(t, last.History, 2*MaxHistory)
	assert.Equal(t, Message{Role: RoleUser, Content: "[style] question 1"}, last.History[0])
	assert.Equal(t, Message{Role: RoleAssistant, Content: "answer 6"}, last.History[len(last.History)-1])

	t.Run("failed turn not recorded", func(t *testing.T) {
		llm.err = errors.New("down")
		_, err := s.Ask(context.Background(), Request{Action: ActionStyle, Text: "more"})
		require.Error(t, err)
		assert.Len(t, s.History(), MaxHistory+2)
	})
}

func TestMockLLM(t *testing.T) {
	agent, _ := NewAgent(MockLLM{})
	reply, err := agent.Assist(context.Background(), Request{Action: ActionCharacter, Text: "John frowned."})
	require.NoError(t, err)
	assert.Contains(t, reply.Response, "John frowned.")
	assert.Contains(t, reply.Response, "no changes were made")
}

func TestNewOpenAILLMFromConfig(t *testing.T) {
	_, err := NewOpenAILLMFromConfig(nil)
	require.Error(t, err)
	_, err = NewOpenAILLMFromConfig(&LLMSettings{})
	require.Error(t, err)

	llm, err := NewOpenAILLMFromConfig(&LLMSettings{APIKey: "k"})
	require.NoError(t, err)
	assert.Equal(t, DefaultModel, llm.Model)
	assert.Equal(t, int64(DefaultMaxTokens), llm.MaxTokens)
	assert.Equal(t, DefaultTemperature, llm.Temperature)
}

func TestOpenAILLMComplete(t *testing.T) {
	var body map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"c1","object":"chat.completion","created":1,"model":"gpt-4",
			"choices":[{"index":0,"finish_reason":"stop","message":{"role":"assistant","content":"Tighten the opening."}}]}`))
	}))
	defer srv.Close()

	llm, err := NewOpenAILLMFromConfig(&LLMSettings{APIKey: "test-key", BaseURL: srv.URL + "/v1/", Model: "gpt-4"})
	require.NoError(t, err)
	agent, _ := NewAgent(llm)
	s := NewSession("s1", agent)

	_, err = s.Ask(context.Background(), Request{Action: ActionStyle, Text: "It was a dark night."})
	require.NoError(t, err)
	reply, err := s.Ask(context.Background(), Request{Action: ActionStyle, Text: "And then?"})
	require.NoError(t, err)
	assert.Equal(t, "Tighten the opening.", reply.Response)

	assert.Equal(t, "gpt-4", body["model"])
	assert.EqualValues(t, 1000, body["max_tokens"])
	assert.EqualValues(t, 0.7, body["temperature"])
	msgs, ok := body["messages"].([]any)
	require.True(t, ok)
	require.Len(t, msgs, 4)
	roles := make([]string, len(msgs))
	for i, m := range msgs {
		roles[i], _ = m.(map[string]any)["role"].(string)
	}
	assert.Equal(t, []string{"system", "user", "assistant", "user"}, roles)
}
