package formatting

// Whitespace run and preservation map types.
const (
	TypeMultipleSpaces = "multiple_spaces"
	TypeTabs           = "tabs"
	TypeIndentation    = "indentation"
	TypeParagraphBreak = "paragraph_break"
	TypeNewline        = "newline"
	TypeTab            = "tab"
)

// LineBreak marks a single '\n'. IsParagraphBreak is set when a neighbouring
// byte is also a newline.
type LineBreak struct {
	Index            int  `json:"index"`
	IsParagraphBreak bool `json:"isParagraphBreak"`
}

// Paragraph is one blank-line delimited block. Content is trimmed;
// StartIndex/EndIndex cover the raw block in the original text and
// ContentStart is where the trimmed content begins.
type Paragraph struct {
	Content         string `json:"content"`
	StartIndex      int    `json:"startIndex"`
	EndIndex        int    `json:"endIndex"`
	ContentStart    int    `json:"contentStart"`
	FollowedByBreak bool   `json:"followedByBreak"`
	PrecedingBreak  bool   `json:"precedingBreak"`
	IsEmpty         bool   `json:"isEmpty"`
}

// WhitespaceRun is a run of two or more spaces, or of tabs.
type WhitespaceRun struct {
	Type    string `json:"type"`
	Index   int    `json:"index"`
	Length  int    `json:"length"`
	Content string `json:"content"`
}

// IndentRun is the leading whitespace of one physical line. Spaces counts
// tabs as four columns.
type IndentRun struct {
	Type    string `json:"type"`
	Index   int    `json:"index"`
	Length  int    `json:"length"`
	Content string `json:"content"`
	Spaces  int    `json:"spaces"`
}

// MapEntry is one element of the preservation map.
type MapEntry struct {
	Index    int    `json:"index"`
	Type     string `json:"type"`
	Count    int    `json:"count,omitempty"`
	Preserve bool   `json:"preserve"`
}

// Snapshot is the structural record of a text taken before any processing.
type Snapshot struct {
	OriginalLength  int             `json:"originalLength"`
	LineBreaks      []LineBreak     `json:"lineBreaks"`
	Paragraphs      []Paragraph     `json:"paragraphs"`
	Whitespace      []WhitespaceRun `json:"whitespace"`
	Indentation     []IndentRun     `json:"indentation"`
	PreservationMap []MapEntry      `json:"preservationMap"`
}

// NonEmptyParagraphs returns the paragraphs that carry content.
func (s Snapshot) NonEmptyParagraphs() []Paragraph {
	out := make([]Paragraph, 0, len(s.Paragraphs))
	for _, p := range s.Paragraphs {
		if !p.IsEmpty {
			out = append(out, p)
		}
	}
	return out
}

// Validation is the outcome of ValidateFormattingPreservation.
type Validation struct {
	Preserved bool   `json:"preserved"`
	Reason    string `json:"reason"`
}
