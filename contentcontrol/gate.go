// Package contentcontrol detects likely character names in a manuscript and
// makes sure nothing in the pipeline ever invents names or prose. The only
// way a name in the text changes is an explicit, literal rename requested by
// the user.
package contentcontrol

import (
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"
)

// Settings are the generation controls echoed back with every result.
type Settings struct {
	DisableAutomaticNameGeneration bool `json:"disableAutomaticNameGeneration"`
	DisableContentGeneration       bool `json:"disableContentGeneration"`
	RequireExplicitUserApproval    bool `json:"requireExplicitUserApproval"`
	PreserveOriginalContent        bool `json:"preserveOriginalContent"`
	SuggestionsOnly                bool `json:"suggestionsOnly"`
}

// DefaultSettings has every control switched on.
func DefaultSettings() Settings {
	return Settings{
		DisableAutomaticNameGeneration: true,
		DisableContentGeneration:       true,
		RequireExplicitUserApproval:    true,
		PreserveOriginalContent:        true,
		SuggestionsOnly:                true,
	}
}

// Options are caller overrides; nil fields keep the default.
type Options struct {
	DisableAutomaticNameGeneration *bool `json:"disableAutomaticNameGeneration,omitempty"`
	DisableContentGeneration       *bool `json:"disableContentGeneration,omitempty"`
	RequireExplicitUserApproval    *bool `json:"requireExplicitUserApproval,omitempty"`
	PreserveOriginalContent        *bool `json:"preserveOriginalContent,omitempty"`
	SuggestionsOnly                *bool `json:"suggestionsOnly,omitempty"`
}

// Apply returns s with the non-nil fields of o written over it.
func (s Settings) Apply(o *Options) Settings {
	if o == nil {
		return s
	}
	set := func(dst *bool, v *bool) {
		if v != nil {
			*dst = *v
		}
	}
	set(&s.DisableAutomaticNameGeneration, o.DisableAutomaticNameGeneration)
	set(&s.DisableContentGeneration, o.DisableContentGeneration)
	set(&s.RequireExplicitUserApproval, o.RequireExplicitUserApproval)
	set(&s.PreserveOriginalContent, o.PreserveOriginalContent)
	set(&s.SuggestionsOnly, o.SuggestionsOnly)
	return s
}

// Pronoun is the pronoun set most often used for a detected name.
type Pronoun string

const (
	PronounUnknown Pronoun = ""
	PronounHe      Pronoun = "he"
	PronounShe     Pronoun = "she"
	PronounThey    Pronoun = "they"
)

// MarshalJSON encodes PronounUnknown as null.
func (p Pronoun) MarshalJSON() ([]byte, error) {
	if p == PronounUnknown {
		return []byte("null"), nil
	}
	return json.Marshal(string(p))
}

// DetectedName is a candidate character. It is never confirmed by the gate.
type DetectedName struct {
	Name        string  `json:"name"`
	Occurrences int     `json:"occurrences"`
	IsConfirmed bool    `json:"isConfirmed"`
	Pronouns    Pronoun `json:"pronouns"`
}

// Result is the gate's answer. CharacterNames and GeneratedContent are
// always nil and encode as null.
type Result struct {
	CharacterNames   []string       `json:"characterNames"`
	GeneratedContent *string        `json:"generatedContent"`
	DetectedNames    []DetectedName `json:"detectedNames"`
	Settings         Settings       `json:"settings"`
}

// NameSuggestion is a placeholder alternative for a detected name.
type NameSuggestion struct {
	OriginalName         string   `json:"originalName"`
	Suggestions          []string `json:"suggestions"`
	RequiresUserApproval bool     `json:"requiresUserApproval"`
}

// Gate is the content control service. It is safe for concurrent use.
type Gate struct {
	settings Settings
	logger   *zap.Logger
}

// NewGate returns a gate with DefaultSettings.
func NewGate(logger *zap.Logger) *Gate {
	return NewGateWithSettings(logger, DefaultSettings())
}

// NewGateWithSettings returns a gate whose base settings are s.
func NewGateWithSettings(logger *zap.Logger, s Settings) *Gate {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Gate{settings: s, logger: logger}
}

// Settings returns the gate's base settings.
func (g *Gate) Settings() Settings { return g.settings }

// ProcessCharacterNames reports candidate names in text. Overrides in opts
// are echoed in the result but never enable generation.
func (g *Gate) ProcessCharacterNames(text string, opts *Options) Result {
	settings := g.settings.Apply(opts)
	if !settings.DisableAutomaticNameGeneration || !settings.DisableContentGeneration {
		g.logger.Debug("generation override requested; ignored",
			zap.Bool("disableAutomaticNameGeneration", settings.DisableAutomaticNameGeneration),
			zap.Bool("disableContentGeneration", settings.DisableContentGeneration))
	}
	names := DetectPotentialCharacterNames(text)
	g.logger.Debug("character names detected", zap.Int("count", len(names)))
	return Result{
		CharacterNames:   nil,
		GeneratedContent: nil,
		DetectedNames:    names,
		Settings:         settings,
	}
}

// ValidateNoUnwantedGeneration reports whether r carries no generated names
// or prose and was produced with both generation switches disabled.
func ValidateNoUnwantedGeneration(r Result) bool {
	return r.CharacterNames == nil &&
		r.GeneratedContent == nil &&
		r.Settings.DisableAutomaticNameGeneration &&
		r.Settings.DisableContentGeneration
}

// HandleUserRequestedNameChange replaces every whole-word occurrence of
// oldName with newName, literally. Either name empty leaves text unchanged.
func HandleUserRequestedNameChange(text, oldName, newName string) string {
	if oldName == "" || newName == "" {
		return text
	}
	idx := wholeWordIndexes(text, oldName)
	if len(idx) == 0 {
		return text
	}
	var b strings.Builder
	b.Grow(len(text) + len(idx)*(len(newName)-len(oldName)))
	prev := 0
	for _, start := range idx {
		b.WriteString(text[prev:start])
		b.WriteString(newName)
		prev = start + len(oldName)
	}
	b.WriteString(text[prev:])
	return b.String()
}

// GenerateCharacterNameSuggestions returns placeholder suggestions for names.
// While content generation is disabled it returns an empty list.
func (g *Gate) GenerateCharacterNameSuggestions(names []DetectedName) []NameSuggestion {
	out := make([]NameSuggestion, 0, len(names))
	if g.settings.DisableContentGeneration {
		return out
	}
	for _, n := range names {
		out = append(out, NameSuggestion{
			OriginalName:         n.Name,
			Suggestions:          []string{fmt.Sprintf("%s (no suggestions - automatic generation disabled)", n.Name)},
			RequiresUserApproval: true,
		})
	}
	return out
}
