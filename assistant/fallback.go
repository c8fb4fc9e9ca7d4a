package assistant

const defaultFallback = "AI assistance is temporarily unavailable. Please try again later."

var fallbacks = map[Action]string{
	ActionGrammar:   "Grammar assistance is temporarily unavailable. Try reading the passage aloud to catch awkward phrasing, or use the built-in grammar check.",
	ActionStyle:     "Style feedback is temporarily unavailable. Look for repeated words, vary sentence length and prefer concrete verbs.",
	ActionPlot:      "Plot analysis is temporarily unavailable. Check that each scene has a goal, a conflict and an outcome that moves the story forward.",
	ActionCharacter: "Character feedback is temporarily unavailable. Ask what each character wants in this scene and whether their actions show it.",
	ActionCreative:  "Creative assistance is temporarily unavailable. Try freewriting for ten minutes about what could go wrong next.",
	ActionResearch:  "Research assistance is temporarily unavailable. Note the facts to verify and check them against reliable sources later.",
}

// FallbackResponse is shown when the model cannot be reached.
func FallbackResponse(action Action) string {
	if s, ok := fallbacks[action]; ok {
		return s
	}
	return defaultFallback
}
