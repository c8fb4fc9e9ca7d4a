package contentcontrol

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

var (
	capitalizedWord   = regexp.MustCompile(`\b[A-Z][a-z]+\b`)
	sentenceBreak     = regexp.MustCompile(`[.!?]+`)
	characterPronouns = regexp.MustCompile(`(?i)\b(he|she|him|her|his|hers|himself|herself)\b`)
	pronounClasses    = regexp.MustCompile(`(?i)\b(?:(he|him|his|himself)|(she|her|hers|herself)|(they|them|their|themselves))\b`)
)

var nonNames = func() map[string]bool {
	words := []string{
		// function words and capitalised pronouns
		"The", "An", "This", "That", "These", "Those", "There", "Here",
		"He", "She", "It", "We", "They", "You", "Me", "Him", "Her", "Us", "Them",
		"His", "Hers", "Its", "Our", "Their", "Your", "My", "Mine",
		"And", "But", "Or", "Nor", "So", "Yet", "For", "If", "Then", "When",
		"While", "After", "Before", "Because", "As", "At", "In", "On", "Of",
		"To", "From", "With", "By", "Into", "Not", "No", "Yes", "Oh", "Well",
		"What", "Where", "Why", "How", "Who", "Which", "Some", "All", "Every",
		"Each", "Any", "One", "Now", "Just", "Once", "Still", "Even", "Maybe",
		"Mr", "Mrs", "Ms", "Dr",
		// calendar
		"Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday", "Sunday",
		"January", "February", "March", "April", "May", "June", "July",
		"August", "September", "October", "November", "December",
		// places and directions
		"America", "Europe", "Asia", "Africa", "Australia", "Antarctica",
		"North", "South", "East", "West",
		// other proper nouns
		"God", "Lord", "Internet", "World", "Earth", "Moon", "Sun",
	}
	m := make(map[string]bool, len(words))
	for _, w := range words {
		m[w] = true
	}
	return m
}()

// IsCommonNonName reports whether word is a capitalised word that is never
// treated as a character name.
func IsCommonNonName(word string) bool { return nonNames[word] }

type span struct{ start, end int }

// sentenceSpans splits text on runs of . ! ? keeping offsets. Blank pieces
// are kept so indices stay aligned with the text.
func sentenceSpans(text string) []span {
	var out []span
	prev := 0
	for _, loc := range sentenceBreak.FindAllStringIndex(text, -1) {
		out = append(out, span{prev, loc[0]})
		prev = loc[1]
	}
	return append(out, span{prev, len(text)})
}

func sentenceAt(spans []span, pos int) int {
	for i, s := range spans {
		if pos < s.end {
			return i
		}
	}
	return len(spans) - 1
}

type candidate struct {
	name        string
	occurrences []span
}

// DetectPotentialCharacterNames returns capitalised words that co-occur with
// a character pronoun, in order of first appearance. A word qualifies when
// the sentence it appears in, or the sentence right after, contains one of
// he she him her his hers himself herself.
func DetectPotentialCharacterNames(text string) []DetectedName {
	out := make([]DetectedName, 0)
	if text == "" {
		return out
	}
	spans := sentenceSpans(text)

	var order []*candidate
	byName := make(map[string]*candidate)
	for _, loc := range capitalizedWord.FindAllStringIndex(text, -1) {
		word := text[loc[0]:loc[1]]
		if IsCommonNonName(word) {
			continue
		}
		c, ok := byName[word]
		if !ok {
			c = &candidate{name: word}
			byName[word] = c
			order = append(order, c)
		}
		c.occurrences = append(c.occurrences, span{loc[0], loc[1]})
	}

	for _, c := range order {
		if !likelyCharacter(text, spans, c) {
			continue
		}
		out = append(out, DetectedName{
			Name:        c.name,
			Occurrences: len(c.occurrences),
			IsConfirmed: false,
			Pronouns:    votePronoun(text, spans, c),
		})
	}
	return out
}

// window returns the sentence holding occ together with the one after it.
func window(spans []span, occ span) span {
	i := sentenceAt(spans, occ.start)
	end := spans[i].end
	if i+1 < len(spans) {
		end = spans[i+1].end
	}
	return span{spans[i].start, end}
}

func likelyCharacter(text string, spans []span, c *candidate) bool {
	for _, occ := range c.occurrences {
		w := window(spans, occ)
		if characterPronouns.MatchString(text[w.start:w.end]) {
			return true
		}
	}
	return false
}

// votePronoun gives each occurrence one vote: the class of the first pronoun
// after it, up to the end of the following sentence. A tie, or no votes,
// leaves the pronoun unknown.
func votePronoun(text string, spans []span, c *candidate) Pronoun {
	classes := []Pronoun{PronounHe, PronounShe, PronounThey}
	votes := make([]int, len(classes))
	for _, occ := range c.occurrences {
		w := window(spans, occ)
		loc := pronounClasses.FindStringSubmatchIndex(text[occ.end:w.end])
		if loc == nil {
			continue
		}
		for k := range classes {
			if loc[2*(k+1)] >= 0 {
				votes[k]++
				break
			}
		}
	}

	best, bestVotes, tied := PronounUnknown, 0, false
	for k, n := range votes {
		switch {
		case n > bestVotes:
			best, bestVotes, tied = classes[k], n, false
		case n == bestVotes && n > 0:
			tied = true
		}
	}
	if tied {
		return PronounUnknown
	}
	return best
}

// CountOccurrences counts whole-word, case-sensitive occurrences of word.
func CountOccurrences(text, word string) int {
	return len(wholeWordIndexes(text, word))
}

func isWordRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}

// wholeWordIndexes returns the start offsets of the non-overlapping
// occurrences of word that begin and end on a word boundary. Any Unicode
// letter or digit counts as a word character.
func wholeWordIndexes(text, word string) []int {
	if word == "" {
		return nil
	}
	first, _ := utf8.DecodeRuneInString(word)
	last, _ := utf8.DecodeLastRuneInString(word)

	var out []int
	for i := 0; i <= len(text); {
		j := strings.Index(text[i:], word)
		if j < 0 {
			break
		}
		start, end := i+j, i+j+len(word)
		before, after := false, false
		if start > 0 {
			r, _ := utf8.DecodeLastRuneInString(text[:start])
			before = isWordRune(r)
		}
		if end < len(text) {
			r, _ := utf8.DecodeRuneInString(text[end:])
			after = isWordRune(r)
		}
		if before != isWordRune(first) && isWordRune(last) != after {
			out = append(out, start)
			i = end
			continue
		}
		_, size := utf8.DecodeRuneInString(text[start:])
		i = start + size
	}
	return out
}
