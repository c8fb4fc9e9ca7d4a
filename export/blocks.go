package export

import (
	"strings"

	"novel_crafter/formatting"
)

// BlockKind classifies one blank-line delimited block of the manuscript.
type BlockKind int

const (
	BlockEmpty BlockKind = iota
	BlockParagraph
	BlockHeading
	BlockPageBreak
)

func (k BlockKind) String() string {
	switch k {
	case BlockParagraph:
		return "paragraph"
	case BlockHeading:
		return "heading"
	case BlockPageBreak:
		return "page_break"
	default:
		return "empty"
	}
}

// Block is a parsed unit of the export micro-format. Lines holds the
// block's text split on single newlines.
type Block struct {
	Kind  BlockKind
	Level int
	Lines []string
}

var headingPrefixes = []struct {
	prefix string
	level  int
}{
	{"### ", 3},
	{"## ", 2},
	{"# ", 1},
}

// ParseBlocks segments text on blank lines and classifies each block. A
// block starting with "# ", "## " or "### " is a heading, a block that is
// exactly "---" is a page break, and a blank block is kept as an empty
// paragraph.
func ParseBlocks(text string) []Block {
	raw := formatting.Split(text)
	out := make([]Block, 0, len(raw))
	for _, b := range raw {
		trimmed := strings.TrimSpace(b)
		if trimmed == "" {
			out = append(out, Block{Kind: BlockEmpty})
			continue
		}
		if trimmed == "---" {
			out = append(out, Block{Kind: BlockPageBreak})
			continue
		}
		block := Block{Kind: BlockParagraph}
		for _, h := range headingPrefixes {
			if strings.HasPrefix(trimmed, h.prefix) {
				block = Block{Kind: BlockHeading, Level: h.level}
				trimmed = strings.TrimSpace(trimmed[len(h.prefix):])
				break
			}
		}
		block.Lines = splitLines(trimmed)
		out = append(out, block)
	}
	return out
}

func splitLines(s string) []string {
	lines := strings.Split(s, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimRight(l, "\r")
	}
	return lines
}
