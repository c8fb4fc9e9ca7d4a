// Package grammar is a rule-based grammar and style checker. Every rule is a
// regular pattern plus a check that looks at the text around the match;
// findings are suggestions only and never touch the input.
package grammar

import (
	"fmt"
	"sort"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// DefaultMaxMatchesPerRule bounds the work a single rule may do on one text.
const DefaultMaxMatchesPerRule = 5000

// Engine runs the rule table and the sentence pass. It holds no per-call
// state and is safe for concurrent use.
type Engine struct {
	rules      []Rule
	maxMatches int
	logger     *zap.Logger
}

// NewEngine builds an engine over DefaultRules.
func NewEngine(logger *zap.Logger) *Engine {
	return NewEngineWithRules(logger, DefaultRules())
}

// NewEngineWithRules builds an engine over a custom rule table.
func NewEngineWithRules(logger *zap.Logger, rules []Rule) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{rules: rules, maxMatches: DefaultMaxMatchesPerRule, logger: logger}
}

// SetMaxMatchesPerRule changes the per-rule cap; n <= 0 removes it.
func (e *Engine) SetMaxMatchesPerRule(n int) {
	if n <= 0 {
		n = -1
	}
	e.maxMatches = n
}

// Rules returns the names of the configured rules in table order.
func (e *Engine) Rules() []string {
	names := make([]string, len(e.rules))
	for i, r := range e.rules {
		names[i] = r.Name
	}
	return names
}

// DetectGrammarErrors runs every rule concurrently, then the sentence pass,
// and returns all findings sorted by position. A failing rule is logged and
// skipped; the call itself never fails.
func (e *Engine) DetectGrammarErrors(text string) []GrammarError {
	perRule := make([][]GrammarError, len(e.rules))
	var g errgroup.Group
	for i, rule := range e.rules {
		g.Go(func() error {
			perRule[i] = e.applyRule(text, rule)
			return nil
		})
	}
	_ = g.Wait()

	out := make([]GrammarError, 0)
	for _, errs := range perRule {
		out = append(out, errs...)
	}
	out = append(out, e.safeComprehensiveCheck(text)...)

	sort.SliceStable(out, func(i, j int) bool { return out[i].Position < out[j].Position })
	return out
}

func (e *Engine) applyRule(text string, rule Rule) []GrammarError {
	if rule.Pattern == nil || rule.Check == nil {
		return nil
	}
	var out []GrammarError
	for _, loc := range rule.Pattern.FindAllStringSubmatchIndex(text, e.maxMatches) {
		ge, err := evaluate(text, rule, loc)
		if err != nil {
			e.logger.Warn("grammar rule failed",
				zap.String("rule", rule.Name),
				zap.Int("position", loc[0]),
				zap.Error(err))
			continue
		}
		if ge != nil {
			out = append(out, *ge)
		}
	}
	return out
}

func evaluate(text string, rule Rule, loc []int) (ge *GrammarError, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("rule %s panicked: %v", rule.Name, r)
		}
	}()

	start, end := loc[0], loc[1]
	if t := rule.Target; t > 0 && 2*t+1 < len(loc) && loc[2*t] >= 0 {
		start, end = loc[2*t], loc[2*t+1]
	}
	ctx, ctxStart, ctxEnd := contextWindow(text, start, ContextRadius)
	f := rule.Check(Match{
		Text:         text,
		Start:        loc[0],
		End:          loc[1],
		Groups:       loc,
		Context:      ctx,
		ContextStart: ctxStart,
		ContextEnd:   ctxEnd,
	})
	if f == nil {
		return nil, nil
	}
	confidence := f.Confidence
	if confidence == 0 {
		confidence = ConfidenceDefault
	}
	return &GrammarError{
		Type:        rule.Name,
		Position:    start,
		Length:      end - start,
		Original:    text[start:end],
		Suggestion:  f.Suggestion,
		Explanation: f.Explanation,
		Confidence:  confidence,
		Context:     ctx,
	}, nil
}

func (e *Engine) safeComprehensiveCheck(text string) (out []GrammarError) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Warn("sentence pass failed", zap.Any("panic", r))
			out = nil
		}
	}()
	return ComprehensiveGrammarCheck(text)
}
