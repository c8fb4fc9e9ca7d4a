package grammar

import (
	"fmt"
	"regexp"
	"strings"
)

func wordSet(words ...string) map[string]bool {
	m := make(map[string]bool, len(words))
	for _, w := range words {
		m[w] = true
	}
	return m
}

var (
	beVerbs          = wordSet("is", "are", "was", "were")
	progressiveCues  = wordSet("going", "coming", "trying")
	locationPrefixes = wordSet("over", "right")
	ownedNouns       = wordSet("car", "house", "book")
	youreCues        = wordSet("welcome", "right", "wrong", "going", "coming", "doing")
	yourCues         = wordSet("car", "house", "book", "name", "phone", "email")
	itsContraction   = wordSet("a", "the", "not", "going", "time", "important")
	itsPossessive    = wordSet("tail", "paw", "leg", "owner", "color", "size")

	singularSubjects = wordSet("he", "she", "it")
	pluralSubjects   = wordSet("they", "we", "you")
	singularForm     = map[string]string{"are": "is", "were": "was", "have": "has", "do": "does"}
	pluralForm       = map[string]string{"is": "are", "was": "were", "has": "have", "does": "do"}
)

type confusion struct {
	counterpart string
	explanation string
}

var confusedWords = map[string]confusion{
	"accept":  {"except", `"Accept" means to receive, "except" means to exclude`},
	"except":  {"accept", `"Except" means to exclude, "accept" means to receive`},
	"affect":  {"effect", `"Affect" is usually a verb, "effect" is usually a noun`},
	"effect":  {"affect", `"Effect" is usually a noun, "affect" is usually a verb`},
	"than":    {"then", `"Than" is for comparison, "then" is for time sequence`},
	"then":    {"than", `"Then" is for time sequence, "than" is for comparison`},
	"to":      {"too/two", `"To" is a preposition, "too" means also, "two" is a number`},
	"too":     {"to/two", `"Too" means also, "to" is a preposition, "two" is a number`},
	"two":     {"to/too", `"Two" is a number, "to" is a preposition, "too" means also`},
	"weather": {"whether", `"Weather" refers to climate, "whether" introduces alternatives`},
	"whether": {"weather", `"Whether" introduces alternatives, "weather" refers to climate`},
	"who's":   {"whose", `"Who's" means "who is", "whose" shows possession`},
	"whose":   {"who's", `"Whose" shows possession, "who's" means "who is"`},
}

var redundantPhrases = map[string]string{
	"absolutely essential":  "essential",
	"actual fact":           "fact",
	"advance planning":      "planning",
	"basic fundamentals":    "fundamentals",
	"completely eliminate":  "eliminate",
	"current status":        "status",
	"end result":            "result",
	"final outcome":         "outcome",
	"future plans":          "plans",
	"past history":          "history",
	"unexpected surprise":   "surprise",
	"unintentional mistake": "mistake",
}

// DefaultRules returns the pattern rule table in evaluation order.
func DefaultRules() []Rule {
	return []Rule{
		{
			Name:    TypeThereTheirTheyre,
			Pattern: regexp.MustCompile(`(?i)\b(there|their|they're)\b`),
			Check:   checkThereTheirTheyre,
		},
		{
			Name:    TypeYourYoure,
			Pattern: regexp.MustCompile(`(?i)\b(your|you're)\b`),
			Check:   checkYourYoure,
		},
		{
			Name:    TypeItsIts,
			Pattern: regexp.MustCompile(`(?i)\b(its|it's)\b`),
			Check:   checkItsIts,
		},
		{
			Name:    TypeCapitalization,
			Pattern: regexp.MustCompile(`([.!?]\s+)([a-z])`),
			Check:   checkCapitalization,
			Target:  2,
		},
		{
			Name:    TypeSubjectVerb,
			Pattern: regexp.MustCompile(`(?i)\b(?:([a-z]+)\s+)?(is|are|was|were|have|has|do|does)\b`),
			Check:   checkSubjectVerb,
		},
		{
			Name:    TypeRunOnSentence,
			Pattern: regexp.MustCompile(`[^.!?;]+?,\s+[^.!?;]+?,\s+[^.!?;]+?,\s+[^.!?;]+?[.!?]`),
			Check:   fixed("Consider breaking this into multiple sentences or using semicolons", "This appears to be a run-on sentence with multiple clauses", ConfidenceRunOnPattern),
		},
		{
			Name:    TypeDoubleNegative,
			Pattern: regexp.MustCompile(`(?i)\b(not|no|never|nobody|nothing|nowhere|neither|nor)\b[^.!?;]*?\b(not|no|never|nobody|nothing|nowhere|neither|nor)\b`),
			Check:   fixed("Consider rephrasing to avoid double negative", "Double negatives can be confusing or change the intended meaning", ConfidenceDoubleNegative),
		},
		{
			Name:    TypePassiveVoice,
			Pattern: regexp.MustCompile(`(?i)\b(am|is|are|was|were|be|being|been)\s+([a-z]+ed|written|done|made|gone|known|seen|taken)\b`),
			Check:   fixed("Consider using active voice for stronger writing", "Passive voice can make writing less direct and engaging", ConfidencePassiveVoice),
		},
		{
			Name:    TypeConfusedWords,
			Pattern: regexp.MustCompile(`(?i)\b(accept|except|affect|effect|than|then|to|too|two|weather|whether|who's|whose)\b`),
			Check:   checkConfusedWords,
		},
		{
			Name:    TypeRedundantPhrases,
			Pattern: regexp.MustCompile(`(?i)\b(absolutely essential|actual fact|advance planning|basic fundamentals|completely eliminate|current status|end result|final outcome|future plans|past history|unexpected surprise|unintentional mistake)\b`),
			Check:   checkRedundantPhrases,
		},
	}
}

func fixed(suggestion, explanation string, confidence float64) CheckFunc {
	return func(Match) *Finding {
		return &Finding{Suggestion: suggestion, Explanation: explanation, Confidence: confidence}
	}
}

var (
	useThere = Finding{
		Suggestion:  `Consider using "there" for location`,
		Explanation: `Use "there" when referring to a place or location`,
		Confidence:  ConfidenceCue,
	}
	useTheir = Finding{
		Suggestion:  `Consider using "their" for possession`,
		Explanation: `Use "their" when indicating possession`,
		Confidence:  ConfidenceCue,
	}
	useTheyre = Finding{
		Suggestion:  `Consider using "they're" (they are)`,
		Explanation: `Use "they're" as a contraction of "they are"`,
		Confidence:  ConfidenceCue,
	}
)

func checkThereTheirTheyre(m Match) *Finding {
	prev, next := m.PrevWord(), m.NextWord()
	switch m.Lower() {
	case "there":
		if prev == "over" || beVerbs[next] {
			return nil
		}
		if ownedNouns[next] {
			f := useTheir
			return &f
		}
		if progressiveCues[next] {
			f := useTheyre
			return &f
		}
	case "their":
		if locationPrefixes[prev] || next == "is" || next == "are" {
			f := useThere
			return &f
		}
		if progressiveCues[next] {
			f := useTheyre
			return &f
		}
	case "they're":
		if locationPrefixes[prev] {
			f := useThere
			return &f
		}
		if ownedNouns[next] {
			f := useTheir
			return &f
		}
	}
	return &Finding{
		Suggestion:  `Check if this should be "there" (location), "their" (possession), or "they're" (they are)`,
		Explanation: `Common confusion between there/their/they're`,
		Confidence:  ConfidenceThereGeneric,
	}
}

func checkYourYoure(m Match) *Finding {
	next := m.NextWord()
	switch m.Lower() {
	case "your":
		if youreCues[next] {
			return &Finding{
				Suggestion:  `Consider using "you're" (you are)`,
				Explanation: `Use "you're" as a contraction of "you are"`,
				Confidence:  ConfidenceCue,
			}
		}
	case "you're":
		if yourCues[next] {
			return &Finding{
				Suggestion:  `Consider using "your" for possession`,
				Explanation: `Use "your" when indicating possession`,
				Confidence:  ConfidenceCue,
			}
		}
	}
	return &Finding{
		Suggestion:  `Check if this should be "your" (possession) or "you're" (you are)`,
		Explanation: `Common confusion between your/you're`,
		Confidence:  ConfidenceHomophone,
	}
}

func checkItsIts(m Match) *Finding {
	next := m.NextWord()
	switch m.Lower() {
	case "its":
		if itsContraction[next] {
			return &Finding{
				Suggestion:  `Consider using "it's" (it is/it has)`,
				Explanation: `Use "it's" as a contraction of "it is" or "it has"`,
				Confidence:  ConfidenceCue,
			}
		}
	case "it's":
		if itsPossessive[next] {
			return &Finding{
				Suggestion:  `Consider using "its" for possession`,
				Explanation: `Use "its" when indicating possession`,
				Confidence:  ConfidenceCue,
			}
		}
	}
	return &Finding{
		Suggestion:  `Check if this should be "its" (possession) or "it's" (it is/it has)`,
		Explanation: `Common confusion between its/it's`,
		Confidence:  ConfidenceHomophone,
	}
}

func checkCapitalization(Match) *Finding {
	return &Finding{
		Suggestion:  "Capitalize the first letter after the period",
		Explanation: "Sentences should start with a capital letter",
		Confidence:  ConfidenceCapitalization,
	}
}

// checkSubjectVerb only fires when one of the closed-set pronouns sits right
// before the auxiliary.
func checkSubjectVerb(m Match) *Finding {
	subject := strings.ToLower(m.Group(1))
	verb := strings.ToLower(m.Group(2))
	if subject == "" {
		return nil
	}
	if singularSubjects[subject] {
		if fix, ok := singularForm[verb]; ok {
			return &Finding{
				Suggestion:  fmt.Sprintf("Use %q with %q", fix, subject),
				Explanation: "Singular subjects require singular verbs",
				Confidence:  ConfidenceSubjectVerb,
			}
		}
	}
	if pluralSubjects[subject] {
		if fix, ok := pluralForm[verb]; ok {
			return &Finding{
				Suggestion:  fmt.Sprintf("Use %q with %q", fix, subject),
				Explanation: "Plural subjects require plural verbs",
				Confidence:  ConfidenceSubjectVerb,
			}
		}
	}
	return nil
}

func checkConfusedWords(m Match) *Finding {
	word := m.Lower()
	c, ok := confusedWords[word]
	if !ok {
		return nil
	}
	return &Finding{
		Suggestion:  fmt.Sprintf("Check if you meant %q instead of %q", c.counterpart, word),
		Explanation: c.explanation,
		Confidence:  ConfidenceConfusedWords,
	}
}

func checkRedundantPhrases(m Match) *Finding {
	phrase := m.Lower()
	short, ok := redundantPhrases[phrase]
	if !ok {
		return nil
	}
	return &Finding{
		Suggestion:  fmt.Sprintf("Consider using just %q instead of %q", short, phrase),
		Explanation: "This phrase contains redundant words",
		Confidence:  ConfidenceRedundantPhrase,
	}
}
