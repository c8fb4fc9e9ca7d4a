package grammar

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"
)

var (
	sentenceTerminators = regexp.MustCompile(`[.!?]+`)
	tokenPattern        = regexp.MustCompile(`\S+`)
)

var commonVerbs = wordSet(
	"is", "are", "was", "were", "have", "has", "had",
	"do", "does", "did", "will", "would", "can", "could",
	"should", "may", "might", "must", "shall",
	"go", "goes", "went", "run", "runs", "ran", "see", "sees", "saw",
	"think", "thinks", "thought", "know", "knows", "knew",
	"want", "wants", "wanted", "need", "needs", "needed",
	"like", "likes", "liked", "use", "uses", "used",
)

var subjectWords = wordSet(
	"i", "you", "he", "she", "it", "we", "they",
	"this", "that", "these", "those", "who", "which", "what",
	"someone", "somebody", "something", "everyone", "everybody", "everything",
	"anyone", "anybody", "anything", "nobody", "nothing",
)

// Sentence is a trimmed sentence and its byte offset in the full text.
type Sentence struct {
	Text     string
	Position int
}

// SplitSentences splits text on runs of . ! ? and drops blank pieces.
func SplitSentences(text string) []Sentence {
	var out []Sentence
	prev := 0
	emit := func(from, to int) {
		raw := text[from:to]
		trimmed := strings.TrimSpace(raw)
		if trimmed == "" {
			return
		}
		lead := len(raw) - len(strings.TrimLeftFunc(raw, unicode.IsSpace))
		out = append(out, Sentence{Text: trimmed, Position: from + lead})
	}
	for _, loc := range sentenceTerminators.FindAllStringIndex(text, -1) {
		emit(prev, loc[0])
		prev = loc[1]
	}
	emit(prev, len(text))
	return out
}

// ComprehensiveGrammarCheck is the sentence-level pass: fragments, overlong
// sentences and accidentally repeated words.
func ComprehensiveGrammarCheck(text string) []GrammarError {
	var out []GrammarError
	for _, s := range SplitSentences(text) {
		out = append(out, checkSentenceStructure(text, s)...)
		out = append(out, checkRepeatedWords(text, s)...)
	}
	return out
}

func checkSentenceStructure(text string, s Sentence) []GrammarError {
	var out []GrammarError
	ctx, _, _ := contextWindow(text, s.Position, ContextRadius)
	if len(s.Text) > 5 && !HasSubjectAndVerb(s.Text) {
		out = append(out, GrammarError{
			Type:        TypeSentenceFragment,
			Position:    s.Position,
			Length:      len(s.Text),
			Original:    s.Text,
			Suggestion:  "Consider adding a subject or verb to complete this sentence",
			Explanation: "This appears to be a sentence fragment",
			Confidence:  ConfidenceFragment,
			Context:     ctx,
		})
	}
	if len(s.Text) > 200 && strings.Count(s.Text, ",") > 5 {
		out = append(out, GrammarError{
			Type:        TypeRunOnSentence,
			Position:    s.Position,
			Length:      len(s.Text),
			Original:    s.Text,
			Suggestion:  "Consider breaking this into shorter sentences",
			Explanation: "This sentence may be too long and complex",
			Confidence:  ConfidenceRunOnLength,
			Context:     ctx,
		})
	}
	return out
}

func checkRepeatedWords(text string, s Sentence) []GrammarError {
	var out []GrammarError
	tokens := tokenPattern.FindAllStringIndex(s.Text, -1)
	for i := 1; i < len(tokens); i++ {
		cur := s.Text[tokens[i][0]:tokens[i][1]]
		prev := s.Text[tokens[i-1][0]:tokens[i-1][1]]
		word := strings.ToLower(cur)
		if len(word) <= 3 || word != strings.ToLower(prev) {
			continue
		}
		pos := s.Position + tokens[i][0]
		ctx, _, _ := contextWindow(text, pos, ContextRadius)
		out = append(out, GrammarError{
			Type:        TypeRepeatedWord,
			Position:    pos,
			Length:      len(cur),
			Original:    cur,
			Suggestion:  fmt.Sprintf("Remove the repeated word %q", word),
			Explanation: "Word appears to be accidentally repeated",
			Confidence:  ConfidenceRepeatedWord,
			Context:     ctx,
		})
	}
	return out
}

// HasSubjectAndVerb reports whether sentence has both a verb-shaped token
// (closed verb list, -ed, -ing, or a plausible third-person -s) and a
// subject-shaped token (closed pronoun/determiner list, or a capitalised
// first word in a sentence of more than two words).
func HasSubjectAndVerb(sentence string) bool {
	words := strings.Fields(strings.ToLower(sentence))

	hasVerb := false
	for _, w := range words {
		if commonVerbs[w] ||
			strings.HasSuffix(w, "ed") ||
			strings.HasSuffix(w, "ing") ||
			(strings.HasSuffix(w, "s") && !strings.HasSuffix(w, "ss") && !strings.HasSuffix(w, "is") && !strings.HasSuffix(w, "us")) {
			hasVerb = true
			break
		}
	}

	hasSubject := false
	for _, w := range words {
		if subjectWords[w] {
			hasSubject = true
			break
		}
	}
	if !hasSubject && len(words) > 2 && sentence != "" && sentence[0] >= 'A' && sentence[0] <= 'Z' {
		hasSubject = true
	}
	return hasVerb && hasSubject
}
