// Package classifier judges whether a review comment still needs work.
package classifier

import (
	"context"
	"fmt"
	"strings"

	"github.com/ryo246912/gh-review-triage/internal/models"
)

// Verdict sources.
const (
	SourcePattern = "pattern"
	SourceLLM     = "llm"
)

// Confidence bands.
const (
	// FixConfidence is used by rules that produced a deterministic patch.
	FixConfidence = 0.85
	// AdvisoryConfidence is used by rules that flag an issue without a patch.
	AdvisoryConfidence = 0.60
	// AlreadyFixedConfidence is used when the flagged code is no longer present.
	AlreadyFixedConfidence = 0.80
	// NoMatchConfidence is used when no rule matches.
	NoMatchConfidence = 0.30
)

// Classifier produces a Verdict for one comment.
// Implementations must return the same shape regardless of how they decide.
type Classifier interface {
	Classify(ctx context.Context, comment models.Comment, codeCtx models.CodeContext) (models.Verdict, error)
}

var _ Classifier = (*PatternClassifier)(nil)
var _ Classifier = (*LLMClassifier)(nil)

// PatternClassifier evaluates an ordered set of rules. It is pure: the same
// comment and context always yield the same verdict.
type PatternClassifier struct {
	rules []rule
}

// NewPatternClassifier returns a classifier with the built-in rule set.
func NewPatternClassifier() *PatternClassifier {
	return &PatternClassifier{rules: defaultRules}
}

// Classify never returns an error; the signature satisfies Classifier.
func (p *PatternClassifier) Classify(_ context.Context, comment models.Comment, codeCtx models.CodeContext) (models.Verdict, error) {
	return p.Evaluate(comment, codeCtx), nil
}

// Evaluate applies the first matching rule.
func (p *PatternClassifier) Evaluate(comment models.Comment, codeCtx models.CodeContext) models.Verdict {
	for _, r := range p.rules {
		if !r.matches(comment.Body) {
			continue
		}
		return r.apply(newInput(comment, codeCtx))
	}
	return models.Verdict{
		Status:     models.StatusUncertain,
		Confidence: NoMatchConfidence,
		Reasoning:  "No known pattern matched the comment.",
		Source:     SourcePattern,
	}
}

// RuleNames lists the rules in evaluation order.
func (p *PatternClassifier) RuleNames() []string {
	names := make([]string, len(p.rules))
	for i, r := range p.rules {
		names[i] = r.name
	}
	return names
}

// input is everything a rule may look at.
type input struct {
	comment models.Comment
	names   []string
	target  string
	hasLine bool
}

func newInput(comment models.Comment, codeCtx models.CodeContext) input {
	target, ok := targetLine(comment, codeCtx)
	return input{
		comment: comment,
		names:   extractNames(comment.Body),
		target:  target,
		hasLine: ok,
	}
}

// targetLine returns the source line the comment is anchored to: from the
// code context if present, else the last line of the diff hunk.
func targetLine(comment models.Comment, codeCtx models.CodeContext) (string, bool) {
	if line, ok := codeCtx.Target(); ok {
		return line, true
	}
	hunk := strings.TrimRight(comment.DiffContext, "\n")
	if hunk == "" {
		return "", false
	}
	lines := strings.Split(hunk, "\n")
	last := lines[len(lines)-1]
	if strings.HasPrefix(last, "@@") {
		return "", false
	}
	if last != "" && strings.ContainsAny(last[:1], "+- ") {
		last = last[1:]
	}
	return last, true
}

// Describe renders a verdict on one line.
func Describe(v models.Verdict) string {
	if v.PatternName == "" {
		return fmt.Sprintf("%s (%.2f)", v.Status, v.Confidence)
	}
	return fmt.Sprintf("%s (%.2f, %s)", v.Status, v.Confidence, v.PatternName)
}
