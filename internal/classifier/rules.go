package classifier

import (
	"fmt"
	"regexp"

	"github.com/ryo246912/gh-review-triage/internal/models"
)

// Rule names.
const (
	RuleUnusedImport          = "unused_import"
	RuleImportLocation        = "import_location"
	RuleDuplicateImport       = "duplicate_import"
	RuleMissingTypeHint       = "missing_type_hint"
	RuleMissingDocstring      = "missing_docstring"
	RuleNamingConvention      = "naming_convention"
	RuleRedundantElse         = "redundant_else"
	RuleBooleanSimplification = "boolean_simplification"
)

// rule is one named matcher. Rules with a fix generator claim needs_fix only
// when the generator succeeds; otherwise they fall back to uncertain.
type rule struct {
	name       string
	patterns   []*regexp.Regexp
	confidence float64
	fallback   float64
	reasoning  string
	reply      func(in input) string
	fix        func(in input) (*models.Fix, bool)
	// alreadyFixed reports that the flagged code is gone.
	alreadyFixed func(in input) bool
}

func (r rule) matches(body string) bool {
	for _, re := range r.patterns {
		if re.MatchString(body) {
			return true
		}
	}
	return false
}

func (r rule) apply(in input) models.Verdict {
	v := models.Verdict{
		PatternName: r.name,
		Reasoning:   r.reasoning,
		Source:      SourcePattern,
	}

	if r.alreadyFixed != nil && r.alreadyFixed(in) {
		v.Status = models.StatusAlreadyFixed
		v.Confidence = AlreadyFixedConfidence
		v.ReplyTemplate = replyAlreadyFixed
		v.Reasoning = fmt.Sprintf("The code at %s no longer contains the flagged issue.", in.comment.Location)
		return v
	}

	v.ReplyTemplate = r.reply(in)
	if r.fix == nil {
		v.Status = models.StatusNeedsFix
		v.Confidence = r.confidence
		return v
	}

	fix, ok := r.fix(in)
	if !ok {
		v.Status = models.StatusUncertain
		v.Confidence = r.fallback
		v.Reasoning += " No automatic fix could be derived from the code context."
		return v
	}
	fix.FilePath = in.comment.Location.Path
	fix.Line = in.comment.Location.Line
	v.Status = models.StatusNeedsFix
	v.Confidence = r.confidence
	v.SuggestedFix = fix
	return v
}

func compile(patterns ...string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, len(patterns))
	for i, p := range patterns {
		out[i] = regexp.MustCompile("(?i)" + p)
	}
	return out
}

// defaultRules is evaluated in order; the first match wins.
var defaultRules = []rule{
	{
		name: RuleUnusedImport,
		patterns: compile(
			`import.*(?:not used|unused|never used)`,
			`unused import`,
			`remove.*unused.*import`,
		),
		confidence:   FixConfidence,
		fallback:     0.70,
		reasoning:    "Unused import reported by the reviewer.",
		reply:        replyUnusedImport,
		fix:          fixUnusedImport,
		alreadyFixed: importAlreadyRemoved,
	},
	{
		name: RuleImportLocation,
		patterns: compile(
			`import.*should be (?:moved to|at) the top`,
			`move.*import.*to (?:top|module level)`,
			`PEP\s*8.*import`,
			`local import.*should be`,
		),
		confidence: 0.80,
		fallback:   0.50,
		reasoning:  "Import statement found inside a function body. It belongs at module level.",
		reply: func(in input) string {
			return fmt.Sprintf("Good point! Will move import from line %d to module level per PEP 8.", in.comment.Location.Line)
		},
		fix: fixImportLocation,
	},
	{
		name: RuleDuplicateImport,
		patterns: compile(
			`duplicate import`,
			`import.*already imported`,
			`redundant import`,
		),
		confidence: FixConfidence,
		fallback:   AdvisoryConfidence,
		reasoning:  "Duplicate import detected. It should be consolidated.",
		reply:      constReply("Good catch! Will consolidate these duplicate imports."),
		fix:        fixDuplicateImport,
	},
	{
		name: RuleMissingTypeHint,
		patterns: compile(
			`add type hint`,
			`missing type (?:annotation|hint)`,
			`should have.*type`,
		),
		confidence: AdvisoryConfidence,
		reasoning:  "Missing type annotation.",
		reply:      constReply(replyWillAddress),
	},
	{
		name: RuleMissingDocstring,
		patterns: compile(
			`add docstring`,
			`missing docstring`,
			`documentation.*missing`,
		),
		confidence: AdvisoryConfidence,
		reasoning:  "Missing docstring.",
		reply:      constReply(replyWillAddress),
	},
	{
		name: RuleNamingConvention,
		patterns: compile(
			`naming convention`,
			`should (?:be|use) (?:snake_case|camelCase|PascalCase|UPPER_CASE)`,
			`(?:variable|function|class|method|constant) name.*(?:should|does not follow)`,
		),
		confidence: AdvisoryConfidence,
		reasoning:  "Identifier does not follow the naming convention.",
		reply:      constReply(replyWillAddress),
	},
	{
		name: RuleRedundantElse,
		patterns: compile(
			`(?:unnecessary|redundant) else`,
			`else.*(?:after|following) (?:return|raise|break|continue)`,
			`remove.*\belse\b`,
		),
		confidence: AdvisoryConfidence,
		reasoning:  "The else branch is unnecessary after an early exit.",
		reply:      constReply(replyWillAddress),
	},
	{
		name: RuleBooleanSimplification,
		patterns: compile(
			`simplif(?:y|ied).*(?:boolean|condition|comparison|expression)`,
			`compar(?:e|ison) (?:to|with) (?:True|False)`,
			`(?:==|!=|\bis(?:\s+not)?)\s*(?-i:True|False)\b`,
			`redundant (?:boolean|comparison)`,
		),
		confidence: 0.80,
		fallback:   AdvisoryConfidence,
		reasoning:  "Boolean comparison can be simplified.",
		reply:      constReply("Good catch! Will simplify the boolean comparison."),
		fix:        fixBooleanComparison,
	},
}
