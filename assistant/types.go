package assistant

import "time"

// Action selects the kind of help requested.
type Action string

const (
	ActionGrammar   Action = "grammar"
	ActionStyle     Action = "style"
	ActionPlot      Action = "plot"
	ActionCharacter Action = "character"
	ActionCreative  Action = "creative"
	ActionResearch  Action = "research"
)

// Actions lists every known action.
var Actions = []Action{ActionGrammar, ActionStyle, ActionPlot, ActionCharacter, ActionCreative, ActionResearch}

// Known reports whether a is one of Actions.
func (a Action) Known() bool {
	for _, k := range Actions {
		if a == k {
			return true
		}
	}
	return false
}

// Request is one question about a passage of the manuscript.
type Request struct {
	Action  Action `json:"action"`
	Text    string `json:"text"`
	Context string `json:"context,omitempty"`
}

// Reply is advisory text. It is shown to the writer and never merged into
// the manuscript.
type Reply struct {
	Action   Action `json:"action"`
	Response string `json:"response"`
}

// Turn records one exchange of a session.
type Turn struct {
	Request   Request
	Reply     Reply
	CreatedAt time.Time
}
