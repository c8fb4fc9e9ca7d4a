package formatting

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
)

var leadingSeparator = regexp.MustCompile(`^\n\s*\n`)

// RestoreFormatting re-inserts paragraph breaks, tabs and multi-space runs
// recorded in snap into text. It is best effort: each paragraph is located
// by the first occurrence of its content at or after the previous one, so
// duplicated paragraph content can map to the wrong place.
func (m *Model) RestoreFormatting(text string, snap Snapshot) string {
	result := restoreParagraphBreaks(text, snap.Paragraphs)

	entries := make([]MapEntry, len(snap.PreservationMap))
	copy(entries, snap.PreservationMap)
	// Back to front so earlier insertions do not shift later positions.
	sort.SliceStable(entries, func(i, j int) bool { return entries[i].Index > entries[j].Index })

	for _, e := range entries {
		switch e.Type {
		case TypeTab:
			pos, clamped := positionInNewText(result, e.Index, snap.Paragraphs)
			if !clamped && pos < len(result) && result[pos] == '\t' {
				continue
			}
			result = result[:pos] + "\t" + result[pos:]
		case TypeMultipleSpaces:
			pos, clamped := positionInNewText(result, e.Index, snap.Paragraphs)
			spaces := strings.Repeat(" ", e.Count)
			if !clamped && strings.HasPrefix(result[pos:], spaces) {
				continue
			}
			result = result[:pos] + spaces + result[pos:]
		}
	}
	return result
}

func restoreParagraphBreaks(text string, paragraphs []Paragraph) string {
	result := text
	cursor := 0
	for _, p := range paragraphs {
		at := cursor
		if p.Content != "" {
			idx := strings.Index(result[cursor:], p.Content)
			if idx < 0 {
				continue
			}
			at = cursor + idx + len(p.Content)
		}
		if !p.FollowedByBreak {
			cursor = at
			continue
		}
		if loc := leadingSeparator.FindStringIndex(result[at:]); loc != nil {
			cursor = at + loc[1]
			continue
		}
		result = result[:at] + "\n\n" + result[at:]
		cursor = at + 2
	}
	return result
}

// positionInNewText maps an index of the original text into text by way of
// the paragraph that contained it. clamped reports that the mapped position
// fell outside text, in which case the caller cannot tell whether the
// whitespace is still there.
func positionInNewText(text string, original int, paragraphs []Paragraph) (pos int, clamped bool) {
	clamp := func(n int) (int, bool) {
		if n < 0 {
			return 0, true
		}
		if n > len(text) {
			return len(text), true
		}
		return n, false
	}
	for _, p := range paragraphs {
		if p.IsEmpty || original < p.StartIndex || original > p.EndIndex {
			continue
		}
		start := strings.Index(text, p.Content)
		if start < 0 {
			return clamp(original)
		}
		return clamp(start + original - p.ContentStart)
	}
	return clamp(original)
}

// ValidateFormattingPreservation compares the structure of processed with
// original: non-empty paragraph count, newline count, then trimmed paragraph
// content pairwise. The first failing check is reported.
func (m *Model) ValidateFormattingPreservation(original, processed string) Validation {
	origParas := nonBlank(Split(original))
	procParas := nonBlank(Split(processed))
	if len(origParas) != len(procParas) {
		return Validation{Reason: fmt.Sprintf("Paragraph count mismatch: original=%d, processed=%d", len(origParas), len(procParas))}
	}

	origBreaks := strings.Count(original, "\n")
	procBreaks := strings.Count(processed, "\n")
	if origBreaks != procBreaks {
		return Validation{Reason: fmt.Sprintf("Line break count mismatch: original=%d, processed=%d", origBreaks, procBreaks)}
	}

	for i := range origParas {
		if strings.TrimSpace(origParas[i]) != strings.TrimSpace(procParas[i]) {
			return Validation{Reason: fmt.Sprintf("Paragraph content mismatch at index %d", i)}
		}
	}
	return Validation{Preserved: true, Reason: "All formatting preserved"}
}

func nonBlank(parts []string) []string {
	out := parts[:0:0]
	for _, p := range parts {
		if strings.TrimSpace(p) != "" {
			out = append(out, p)
		}
	}
	return out
}
