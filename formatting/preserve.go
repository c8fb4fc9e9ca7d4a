// Package formatting records the paragraph and whitespace structure of a
// manuscript so that it can be checked, and if needed restored, after any
// transformation.
package formatting

import (
	"regexp"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"
)

var (
	paragraphSeparator = regexp.MustCompile(`\n\s*\n`)
	multipleSpaces     = regexp.MustCompile(` {2,}`)
	tabRuns            = regexp.MustCompile(`\t+`)
)

// Model is the formatting preservation service. It holds no state and is
// safe for concurrent use.
type Model struct{}

// NewModel returns a Model.
func NewModel() *Model { return &Model{} }

type block struct {
	start, end int
}

// blocks splits text on blank lines the way strings.Split would, keeping
// byte offsets.
func blocks(text string) []block {
	var out []block
	prev := 0
	for _, loc := range paragraphSeparator.FindAllStringIndex(text, -1) {
		out = append(out, block{start: prev, end: loc[0]})
		prev = loc[1]
	}
	return append(out, block{start: prev, end: len(text)})
}

// Split returns the raw blank-line delimited blocks of text, including blank
// ones.
func Split(text string) []string {
	bs := blocks(text)
	out := make([]string, len(bs))
	for i, b := range bs {
		out[i] = text[b.start:b.end]
	}
	return out
}

// CountParagraphs returns the number of blocks that contain non-whitespace.
func CountParagraphs(text string) int {
	n := 0
	for _, p := range Split(text) {
		if strings.TrimSpace(p) != "" {
			n++
		}
	}
	return n
}

// PreserveFormatting takes a structural snapshot of text. It never fails;
// an empty text yields an empty snapshot.
func (m *Model) PreserveFormatting(text string) Snapshot {
	return Snapshot{
		OriginalLength:  len(text),
		LineBreaks:      detectLineBreaks(text),
		Paragraphs:      detectParagraphs(text),
		Whitespace:      detectWhitespace(text),
		Indentation:     detectIndentation(text),
		PreservationMap: createPreservationMap(text),
	}
}

func isParagraphNewline(text string, i int) bool {
	return (i > 0 && text[i-1] == '\n') || (i+1 < len(text) && text[i+1] == '\n')
}

func detectLineBreaks(text string) []LineBreak {
	out := make([]LineBreak, 0, strings.Count(text, "\n"))
	for i := 0; i < len(text); i++ {
		if text[i] == '\n' {
			out = append(out, LineBreak{Index: i, IsParagraphBreak: isParagraphNewline(text, i)})
		}
	}
	return out
}

// detectParagraphs emits one Paragraph per non-blank block, plus an empty
// leading marker when blank lines precede the first block and an empty
// terminal marker when blank lines follow the last one. Whitespace-only text
// has no paragraphs at all.
func detectParagraphs(text string) []Paragraph {
	out := make([]Paragraph, 0)
	bs := blocks(text)
	first, last := -1, -1
	for i, b := range bs {
		if strings.TrimSpace(text[b.start:b.end]) != "" {
			if first < 0 {
				first = i
			}
			last = i
		}
	}
	if first < 0 {
		return out
	}
	trailing := last < len(bs)-1

	if first > 0 {
		out = append(out, Paragraph{
			FollowedByBreak: true,
			IsEmpty:         true,
		})
	}
	for i := first; i <= last; i++ {
		b := bs[i]
		raw := text[b.start:b.end]
		content := strings.TrimSpace(raw)
		if content == "" {
			continue
		}
		lead := len(raw) - len(strings.TrimLeftFunc(raw, unicode.IsSpace))
		out = append(out, Paragraph{
			Content:         content,
			StartIndex:      b.start,
			EndIndex:        b.end,
			ContentStart:    b.start + lead,
			FollowedByBreak: i < last || trailing,
			PrecedingBreak:  b.start > 0,
		})
	}
	if trailing {
		out = append(out, Paragraph{
			StartIndex:     len(text),
			EndIndex:       len(text),
			ContentStart:   len(text),
			PrecedingBreak: true,
			IsEmpty:        true,
		})
	}
	return out
}

func detectWhitespace(text string) []WhitespaceRun {
	out := make([]WhitespaceRun, 0)
	for _, loc := range multipleSpaces.FindAllStringIndex(text, -1) {
		out = append(out, WhitespaceRun{
			Type:    TypeMultipleSpaces,
			Index:   loc[0],
			Length:  loc[1] - loc[0],
			Content: text[loc[0]:loc[1]],
		})
	}
	for _, loc := range tabRuns.FindAllStringIndex(text, -1) {
		out = append(out, WhitespaceRun{
			Type:    TypeTabs,
			Index:   loc[0],
			Length:  loc[1] - loc[0],
			Content: text[loc[0]:loc[1]],
		})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Index < out[j].Index })
	return out
}

func detectIndentation(text string) []IndentRun {
	out := make([]IndentRun, 0)
	index := 0
	for _, line := range strings.Split(text, "\n") {
		rest := strings.TrimLeftFunc(line, unicode.IsSpace)
		if n := len(line) - len(rest); n > 0 {
			lead := line[:n]
			out = append(out, IndentRun{
				Type:    TypeIndentation,
				Index:   index,
				Length:  n,
				Content: lead,
				Spaces:  utf8.RuneCountInString(strings.ReplaceAll(lead, "\t", "    ")),
			})
		}
		index += len(line) + 1
	}
	return out
}

func createPreservationMap(text string) []MapEntry {
	out := make([]MapEntry, 0)
	for i := 0; i < len(text); i++ {
		switch text[i] {
		case '\n':
			typ := TypeNewline
			if isParagraphNewline(text, i) {
				typ = TypeParagraphBreak
			}
			out = append(out, MapEntry{Index: i, Type: typ, Preserve: true})
		case '\t':
			out = append(out, MapEntry{Index: i, Type: TypeTab, Preserve: true})
		case ' ':
			j := i + 1
			for j < len(text) && text[j] == ' ' {
				j++
			}
			if j-i > 1 {
				out = append(out, MapEntry{Index: i, Type: TypeMultipleSpaces, Count: j - i, Preserve: true})
				i = j - 1
			}
		}
	}
	return out
}
