package grammar

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// Rule and second-pass names.
const (
	TypeThereTheirTheyre = "there_their_theyre"
	TypeYourYoure        = "your_youre"
	TypeItsIts           = "its_its"
	TypeCapitalization   = "capitalization"
	TypeSubjectVerb      = "subject_verb"
	TypeRunOnSentence    = "run_on_sentence"
	TypeDoubleNegative   = "double_negative"
	TypePassiveVoice     = "passive_voice"
	TypeConfusedWords    = "confused_words"
	TypeRedundantPhrases = "redundant_phrases"
	TypeSentenceFragment = "sentence_fragment"
	TypeRepeatedWord     = "repeated_word"
)

// Confidence constants. They are fixed per rule, not calibrated.
const (
	ConfidenceDefault         = 0.8
	ConfidenceCue             = 0.8
	ConfidenceThereGeneric    = 0.6
	ConfidenceHomophone       = 0.7
	ConfidenceCapitalization  = 0.9
	ConfidenceSubjectVerb     = 0.9
	ConfidenceRunOnPattern    = 0.7
	ConfidenceRunOnLength     = 0.6
	ConfidenceDoubleNegative  = 0.8
	ConfidencePassiveVoice    = 0.6
	ConfidenceConfusedWords   = 0.7
	ConfidenceRedundantPhrase = 0.8
	ConfidenceFragment        = 0.7
	ConfidenceRepeatedWord    = 0.9
)

// ContextRadius is the number of bytes kept on each side of a finding.
const ContextRadius = 30

// GrammarError is one flagged span of the input. Position and Length are
// byte offsets into the original text.
type GrammarError struct {
	Type        string  `json:"type"`
	Position    int     `json:"position"`
	Length      int     `json:"length"`
	Original    string  `json:"original"`
	Suggestion  string  `json:"suggestion"`
	Explanation string  `json:"explanation"`
	Confidence  float64 `json:"confidence"`
	Context     string  `json:"context"`
}

// Finding is what a rule check reports for a confirmed match.
type Finding struct {
	Suggestion  string
	Explanation string
	Confidence  float64
}

// Match is a single pattern hit handed to a rule check.
type Match struct {
	Text       string
	Start, End int
	Groups     []int
	// Context is Text[ContextStart:ContextEnd].
	Context      string
	ContextStart int
	ContextEnd   int
}

// Value returns the matched substring.
func (m Match) Value() string { return m.Text[m.Start:m.End] }

// Lower returns the matched substring in lower case.
func (m Match) Lower() string { return strings.ToLower(m.Value()) }

// Group returns submatch i, or "" when it did not participate.
func (m Match) Group(i int) string {
	if 2*i+1 >= len(m.Groups) || m.Groups[2*i] < 0 {
		return ""
	}
	return m.Text[m.Groups[2*i]:m.Groups[2*i+1]]
}

var (
	trailingWord = regexp.MustCompile(`([A-Za-z']+)\s+$`)
	leadingWord  = regexp.MustCompile(`^\s+([A-Za-z']+)`)
)

// PrevWord is the lower-cased word directly before the match inside the
// context window, separated from it only by whitespace.
func (m Match) PrevWord() string {
	if m.Start <= m.ContextStart {
		return ""
	}
	sub := trailingWord.FindStringSubmatch(m.Text[m.ContextStart:m.Start])
	if sub == nil {
		return ""
	}
	return strings.ToLower(sub[1])
}

// NextWord is the lower-cased word directly after the match inside the
// context window.
func (m Match) NextWord() string {
	if m.End >= m.ContextEnd {
		return ""
	}
	sub := leadingWord.FindStringSubmatch(m.Text[m.End:m.ContextEnd])
	if sub == nil {
		return ""
	}
	return strings.ToLower(sub[1])
}

// CheckFunc decides whether a match is an error. nil means no error.
type CheckFunc func(m Match) *Finding

// Rule is one entry of the rule table. Target selects the submatch group
// whose span is reported; 0 reports the whole match.
type Rule struct {
	Name    string
	Pattern *regexp.Regexp
	Check   CheckFunc
	Target  int
}

// contextWindow returns text within radius bytes of pos, trimmed inward to
// rune boundaries.
func contextWindow(text string, pos, radius int) (string, int, int) {
	start := pos - radius
	if start < 0 {
		start = 0
	}
	end := pos + radius
	if end > len(text) {
		end = len(text)
	}
	for start < len(text) && !utf8.RuneStart(text[start]) {
		start++
	}
	for end < len(text) && end > start && !utf8.RuneStart(text[end]) {
		end--
	}
	if end < start {
		end = start
	}
	return text[start:end], start, end
}
