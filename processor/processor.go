// Package processor sequences the formatting model, grammar engine and
// content gate into one analysis pass. ProcessText always returns an
// envelope carrying the caller's text unchanged; any stage failure yields
// the fallback envelope instead of a partial result.
package processor

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"novel_crafter/contentcontrol"
	"novel_crafter/export"
	"novel_crafter/formatting"
	"novel_crafter/grammar"
)

// ErrValidationFailed is returned by ValidateProcessingResult.
var ErrValidationFailed = errors.New("processing result validation failed - content may have been modified")

// ErrUnwantedGeneration is raised when the name scan reports generated
// names or prose.
var ErrUnwantedGeneration = errors.New("content gate produced generated content")

// State is a step of the ProcessText state machine.
type State string

const (
	StateStart           State = "START"
	StateFormatSnapshot  State = "FORMAT_SNAPSHOT"
	StateGrammarScan     State = "GRAMMAR_SCAN"
	StateNameScan        State = "NAME_SCAN"
	StateSuggestionBuild State = "SUGGESTION_BUILD"
	StateSelfValidate    State = "SELF_VALIDATE"
	StateSuccess         State = "SUCCESS"
	StateFallback        State = "FALLBACK"
)

// GrammarChecker finds grammar and style issues.
type GrammarChecker interface {
	DetectGrammarErrors(text string) []grammar.GrammarError
}

// FormattingModel snapshots, restores and validates text structure.
type FormattingModel interface {
	PreserveFormatting(text string) formatting.Snapshot
	RestoreFormatting(text string, snap formatting.Snapshot) string
	ValidateFormattingPreservation(original, processed string) formatting.Validation
}

// NameDetector is the content control gate.
type NameDetector interface {
	ProcessCharacterNames(text string, opts *contentcontrol.Options) contentcontrol.Result
}

// Option configures a Processor.
type Option func(*Processor)

func WithGrammarChecker(g GrammarChecker) Option { return func(p *Processor) { p.grammar = g } }

func WithFormattingModel(f FormattingModel) Option { return func(p *Processor) { p.format = f } }

func WithNameDetector(n NameDetector) Option { return func(p *Processor) { p.names = n } }

func WithExporter(e *export.Exporter) Option { return func(p *Processor) { p.exporter = e } }

// WithClock sets the source of ProcessedAt.
func WithClock(now func() time.Time) Option { return func(p *Processor) { p.now = now } }

// Processor is the processing orchestrator. It keeps no per-call state and
// is safe for concurrent use.
type Processor struct {
	grammar  GrammarChecker
	format   FormattingModel
	names    NameDetector
	exporter *export.Exporter
	now      func() time.Time
	logger   *zap.Logger
}

// New builds a Processor over the default engine, model and gate.
func New(logger *zap.Logger, opts ...Option) *Processor {
	if logger == nil {
		logger = zap.NewNop()
	}
	p := &Processor{logger: logger, now: time.Now}
	for _, opt := range opts {
		opt(p)
	}
	if p.grammar == nil {
		p.grammar = grammar.NewEngine(logger.Named("grammar"))
	}
	if p.format == nil {
		p.format = formatting.NewModel()
	}
	if p.names == nil {
		p.names = contentcontrol.NewGate(logger.Named("contentcontrol"))
	}
	if p.exporter == nil {
		p.exporter = export.NewExporter(logger.Named("export"))
	}
	return p
}

// runStage runs fn, converting a panic into an error.
func runStage(state State, fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%s: panic: %v", state, r)
		}
	}()
	if err := fn(); err != nil {
		return fmt.Errorf("%s: %w", state, err)
	}
	return nil
}

// ProcessText analyses text and returns the full envelope, or the fallback
// envelope if any stage fails. It never returns nil.
func (p *Processor) ProcessText(text string) *Result {
	res := &Result{OriginalText: text, PreservationGuarantee: true}
	stages := []struct {
		state State
		run   func() error
	}{
		{StateFormatSnapshot, func() error {
			snap := p.format.PreserveFormatting(text)
			res.PreservedFormatting = &snap
			return nil
		}},
		{StateGrammarScan, func() error {
			res.GrammarErrors = p.grammar.DetectGrammarErrors(text)
			if res.GrammarErrors == nil {
				res.GrammarErrors = []grammar.GrammarError{}
			}
			return nil
		}},
		{StateNameScan, func() error {
			names := p.names.ProcessCharacterNames(text, nil)
			if !contentcontrol.ValidateNoUnwantedGeneration(names) {
				return ErrUnwantedGeneration
			}
			res.DetectedNames = names.DetectedNames
			if res.DetectedNames == nil {
				res.DetectedNames = []contentcontrol.DetectedName{}
			}
			return nil
		}},
		{StateSuggestionBuild, func() error {
			res.Suggestions = p.GenerateSuggestions(text, res.GrammarErrors)
			return nil
		}},
		{StateSelfValidate, func() error {
			res.ProcessedAt = p.now()
			if res.OriginalText != text {
				return fmt.Errorf("%w: original text changed", ErrValidationFailed)
			}
			return ValidateProcessingResult(res)
		}},
	}

	state := StateStart
	for _, st := range stages {
		p.logger.Debug("processing transition", zap.String("from", string(state)), zap.String("to", string(st.state)))
		state = st.state
		if err := runStage(st.state, st.run); err != nil {
			return p.fallback(text, err)
		}
	}

	if v := p.format.ValidateFormattingPreservation(text, text); !v.Preserved {
		p.logger.Warn("formatting validation warning", zap.String("reason", v.Reason))
	}
	p.logger.Info("text processing complete",
		zap.Int("errors", len(res.GrammarErrors)),
		zap.Int("suggestions", len(res.Suggestions)),
		zap.Int("names", len(res.DetectedNames)),
		zap.String("state", string(StateSuccess)))
	return res
}

func (p *Processor) fallback(text string, err error) *Result {
	p.logger.Error("text processing failed", zap.String("state", string(StateFallback)), zap.Error(err))
	return &Result{
		OriginalText:          text,
		Error:                 err.Error(),
		FallbackMode:          true,
		PreservationGuarantee: true,
	}
}

// DetectGrammarErrors runs only the grammar engine.
func (p *Processor) DetectGrammarErrors(text string) []grammar.GrammarError {
	return p.grammar.DetectGrammarErrors(text)
}

// ProcessCharacterNames runs only the content gate.
func (p *Processor) ProcessCharacterNames(text string, opts *contentcontrol.Options) contentcontrol.Result {
	return p.names.ProcessCharacterNames(text, opts)
}

// GenerateSuggestions maps every grammar error to a suggestion and appends
// the style suggestions. Nothing is ever marked for automatic application.
func (p *Processor) GenerateSuggestions(text string, errs []grammar.GrammarError) []Suggestion {
	out := make([]Suggestion, 0, len(errs))
	for _, e := range errs {
		pos, length := e.Position, e.Length
		out = append(out, Suggestion{
			Type:                 SuggestionGrammar,
			Position:             &pos,
			Length:               &length,
			Original:             e.Original,
			Suggestion:           e.Suggestion,
			Explanation:          e.Explanation,
			Confidence:           e.Confidence,
			AutoApply:            false,
			RequiresUserApproval: true,
		})
	}
	return append(out, GenerateStyleSuggestions(text)...)
}

var wordPattern = regexp.MustCompile(`\b\w+\b`)

// GenerateStyleSuggestions flags words longer than four letters that occur
// more than three times, in order of first occurrence.
func GenerateStyleSuggestions(text string) []Suggestion {
	counts := make(map[string]int)
	var order []string
	for _, w := range wordPattern.FindAllString(strings.ToLower(text), -1) {
		if len(w) <= 4 {
			continue
		}
		if counts[w] == 0 {
			order = append(order, w)
		}
		counts[w]++
	}

	var out []Suggestion
	for _, w := range order {
		n := counts[w]
		if n <= 3 {
			continue
		}
		out = append(out, Suggestion{
			Type:                 SuggestionStyleRepetition,
			Word:                 w,
			Count:                n,
			Suggestion:           fmt.Sprintf("Consider varying the word %q which appears %d times", w, n),
			Explanation:          "Word repetition may affect readability",
			Confidence:           ConfidenceStyleRepetition,
			AutoApply:            false,
			RequiresUserApproval: true,
		})
	}
	return out
}

// ApplyCorrections applies the approved corrections, highest position
// first. A correction whose span is out of range or whose Original does not
// match the text is skipped. If the number of paragraphs changes, the
// structure of text is restored onto the result.
func (p *Processor) ApplyCorrections(text string, corrections []Correction) string {
	approved := make([]Correction, 0, len(corrections))
	for _, c := range corrections {
		if c.Approved {
			approved = append(approved, c)
		}
	}
	if len(approved) == 0 {
		return text
	}
	sort.SliceStable(approved, func(i, j int) bool { return approved[i].Position > approved[j].Position })

	result := text
	for _, c := range approved {
		if c.Position < 0 || c.Position > len(result) || len(c.Original) > len(result)-c.Position ||
			result[c.Position:c.Position+len(c.Original)] != c.Original {
			p.logger.Warn("skipping correction that does not match the text",
				zap.Int("position", c.Position),
				zap.String("original", c.Original))
			continue
		}
		end := c.Position + len(c.Original)
		result = result[:c.Position] + c.Replacement + result[end:]
	}

	if formatting.CountParagraphs(text) != formatting.CountParagraphs(result) {
		p.logger.Warn("paragraph count changed after applying corrections; restoring original formatting")
		result = p.format.RestoreFormatting(result, p.format.PreserveFormatting(text))
	}
	return result
}

// ValidateProcessingResult is the last check before a result is returned.
func ValidateProcessingResult(r *Result) error {
	switch {
	case r == nil:
		return fmt.Errorf("%w: nil result", ErrValidationFailed)
	case !r.PreservationGuarantee:
		return fmt.Errorf("%w: preservation guarantee not set", ErrValidationFailed)
	case r.GeneratedContent != nil:
		return fmt.Errorf("%w: generated content present", ErrValidationFailed)
	case r.CharacterNames != nil:
		return fmt.Errorf("%w: character names present", ErrValidationFailed)
	case r.AddedContent != nil:
		return fmt.Errorf("%w: added content present", ErrValidationFailed)
	case r.Suggestions == nil:
		return fmt.Errorf("%w: suggestions missing", ErrValidationFailed)
	}
	return nil
}

// ExportToWord delegates to the exporter.
func (p *Processor) ExportToWord(text string, opts export.Options) export.Document {
	return p.exporter.ExportToWord(text, opts)
}

// ExportToHTML delegates to the exporter.
func (p *Processor) ExportToHTML(text string, opts export.Options) export.Document {
	return p.exporter.ExportToHTML(text, opts)
}

// ExportToPDF delegates to the exporter.
func (p *Processor) ExportToPDF(ctx context.Context, text string, opts export.Options) export.Document {
	return p.exporter.ExportToPDF(ctx, text, opts)
}

// ExportAsPlainText returns the plain-text envelope.
func (p *Processor) ExportAsPlainText(text string) []byte {
	return export.ExportAsPlainText(text)
}

// ExportToText wraps the plain-text envelope in a Document.
func (p *Processor) ExportToText(text string) export.Document {
	return p.exporter.ExportToText(text)
}
