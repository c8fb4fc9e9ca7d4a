package assistant

import (
	"fmt"
	"strings"
)

// Message roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Prompt is the message set sent to the model.
type Prompt struct {
	System  string
	User    string
	History []Message
}

// Message is one earlier exchange carried as context.
type Message struct {
	Role    string
	Content string
}

// DefaultContext describes the passage when the caller gives no context.
const DefaultContext = "a passage from a novel manuscript"

const advisory = " Offer suggestions only; never rewrite the passage or invent new names, characters or plot content on the writer's behalf."

var systemPrompts = map[Action]string{
	ActionGrammar:   "You are an expert editor. Point out grammar, punctuation and spelling problems in the writer's text and explain each fix briefly.",
	ActionStyle:     "You are a fiction writing coach. Comment on voice, pacing, word choice and sentence rhythm, and suggest concrete ways to tighten the prose.",
	ActionPlot:      "You are a story consultant. Assess structure, tension and pacing, and point out plot holes or missed opportunities.",
	ActionCharacter: "You are a character development specialist. Assess motivation, consistency and voice of the characters that appear in the text.",
	ActionCreative:  "You are a creative writing mentor. Help the writer explore ideas and options for their own story.",
	ActionResearch:  "You are a research assistant for novelists. Provide accurate background information relevant to the passage and flag anything that may need fact-checking.",
}

var userTemplates = map[Action]string{
	ActionGrammar:   "Please check the grammar of the following text (%s):\n\n%q",
	ActionStyle:     "Please review the style of the following text (%s):\n\n%q",
	ActionPlot:      "Please analyze the plot of the following text (%s):\n\n%q",
	ActionCharacter: "Please review the characters in the following text (%s):\n\n%q",
	ActionCreative:  "Please help me brainstorm around the following text (%s):\n\n%q",
	ActionResearch:  "Please help me research the topics in the following text (%s):\n\n%q",
}

const genericTemplate = "Please help with the following text (%s):\n\n%q"

// SystemPrompt returns the instructions for action. Unknown actions use the
// creative prompt.
func SystemPrompt(action Action) string {
	p, ok := systemPrompts[action]
	if !ok {
		p = systemPrompts[ActionCreative]
	}
	return p + advisory
}

// BuildPrompt renders req and the earlier turns of a session.
func BuildPrompt(req Request, history []Turn) Prompt {
	ctxDesc := strings.TrimSpace(req.Context)
	if ctxDesc == "" {
		ctxDesc = DefaultContext
	}
	tmpl, ok := userTemplates[req.Action]
	if !ok {
		tmpl = genericTemplate
	}

	var msgs []Message
	for _, t := range history {
		msgs = append(msgs,
			Message{Role: RoleUser, Content: fmt.Sprintf("[%s] %s", t.Request.Action, t.Request.Text)},
			Message{Role: RoleAssistant, Content: t.Reply.Response},
		)
	}

	return Prompt{
		System:  SystemPrompt(req.Action),
		User:    fmt.Sprintf(tmpl, ctxDesc, req.Text),
		History: msgs,
	}
}
