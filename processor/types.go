package processor

import (
	"encoding/json"
	"time"

	"novel_crafter/contentcontrol"
	"novel_crafter/formatting"
	"novel_crafter/grammar"
)

// Suggestion types.
const (
	SuggestionGrammar         = "grammar_correction"
	SuggestionStyleRepetition = "style_repetition"
)

// ConfidenceStyleRepetition is the fixed confidence of repetition hints.
const ConfidenceStyleRepetition = 0.5

// Suggestion is a change the user may approve. It is never applied
// automatically.
type Suggestion struct {
	Type                 string  `json:"type"`
	Position             *int    `json:"position,omitempty"`
	Length               *int    `json:"length,omitempty"`
	Original             string  `json:"original,omitempty"`
	Word                 string  `json:"word,omitempty"`
	Count                int     `json:"count,omitempty"`
	Suggestion           string  `json:"suggestion"`
	Explanation          string  `json:"explanation"`
	Confidence           float64 `json:"confidence"`
	AutoApply            bool    `json:"autoApply"`
	RequiresUserApproval bool    `json:"requiresUserApproval"`
}

// Correction is a user-reviewed replacement of Original at Position.
type Correction struct {
	Position    int    `json:"position"`
	Original    string `json:"original"`
	Replacement string `json:"replacement"`
	Approved    bool   `json:"approved"`
}

// Result is the envelope returned by ProcessText. When FallbackMode is set
// only OriginalText, Error and PreservationGuarantee are meaningful.
type Result struct {
	OriginalText          string
	PreservedFormatting   *formatting.Snapshot
	GrammarErrors         []grammar.GrammarError
	Suggestions           []Suggestion
	DetectedNames         []contentcontrol.DetectedName
	GeneratedContent      *string
	CharacterNames        []string
	AddedContent          *string
	ProcessedAt           time.Time
	PreservationGuarantee bool

	Error        string
	FallbackMode bool
}

type successEnvelope struct {
	OriginalText          string                        `json:"originalText"`
	PreservedFormatting   *formatting.Snapshot          `json:"preservedFormatting"`
	GrammarErrors         []grammar.GrammarError        `json:"grammarErrors"`
	Suggestions           []Suggestion                  `json:"suggestions"`
	DetectedNames         []contentcontrol.DetectedName `json:"detectedNames"`
	GeneratedContent      *string                       `json:"generatedContent"`
	CharacterNames        []string                      `json:"characterNames"`
	AddedContent          *string                       `json:"addedContent"`
	ProcessedAt           string                        `json:"processedAt"`
	PreservationGuarantee bool                          `json:"preservationGuarantee"`
}

type fallbackEnvelope struct {
	OriginalText          string `json:"originalText"`
	Error                 string `json:"error"`
	FallbackMode          bool   `json:"fallbackMode"`
	PreservationGuarantee bool   `json:"preservationGuarantee"`
}

// MarshalJSON writes either the full envelope or the fallback envelope.
func (r Result) MarshalJSON() ([]byte, error) {
	if r.FallbackMode {
		return json.Marshal(fallbackEnvelope{
			OriginalText:          r.OriginalText,
			Error:                 r.Error,
			FallbackMode:          true,
			PreservationGuarantee: r.PreservationGuarantee,
		})
	}
	return json.Marshal(successEnvelope{
		OriginalText:          r.OriginalText,
		PreservedFormatting:   r.PreservedFormatting,
		GrammarErrors:         r.GrammarErrors,
		Suggestions:           r.Suggestions,
		DetectedNames:         r.DetectedNames,
		GeneratedContent:      r.GeneratedContent,
		CharacterNames:        r.CharacterNames,
		AddedContent:          r.AddedContent,
		ProcessedAt:           r.ProcessedAt.UTC().Format(time.RFC3339Nano),
		PreservationGuarantee: r.PreservationGuarantee,
	})
}
