package models

import "fmt"

// Action is what the executor does with a comment.
type Action string

const (
	// ActionFix posts a reply and leaves the thread open.
	ActionFix Action = "fix"
	// ActionDismiss posts a reply and resolves the thread.
	ActionDismiss Action = "dismiss"
	// ActionSkip touches nothing.
	ActionSkip Action = "skip"
	// ActionReply posts a reply only. Used by bulk close.
	ActionReply Action = "reply"
)

// ParseAction validates a user-supplied action.
func ParseAction(s string) (Action, error) {
	switch a := Action(s); a {
	case ActionFix, ActionDismiss, ActionSkip:
		return a, nil
	}
	return "", fmt.Errorf("invalid action %q: must be 'fix', 'dismiss', or 'skip'", s)
}

// Decision is consumed exactly once by the executor.
type Decision struct {
	CommentID int64  `json:"comment_id"`
	Action    Action `json:"action"`
	Message   string `json:"message,omitempty"`
}

// ExecutionResult is the outcome of one decision.
type ExecutionResult struct {
	CommentID      int64  `json:"comment_id"`
	Action         Action `json:"action"`
	Success        bool   `json:"success"`
	ReplyPosted    bool   `json:"reply_posted"`
	ReplyID        int64  `json:"reply_id,omitempty"`
	ThreadResolved bool   `json:"thread_resolved"`
	Error          string `json:"error,omitempty"`
	ErrorKind      string `json:"error_kind,omitempty"`
}

// Outcome summarizes a batch.
type Outcome string

const (
	OutcomeEmpty   Outcome = "empty"
	OutcomeSuccess Outcome = "success"
	OutcomePartial Outcome = "partial"
	OutcomeFailure Outcome = "failure"
)

// BatchReport aggregates the results of a bulk run.
type BatchReport struct {
	RunID         string            `json:"run_id"`
	TotalComments int               `json:"total_comments"`
	Processed     int               `json:"processed"`
	Succeeded     int               `json:"succeeded"`
	Failed        int               `json:"failed"`
	Outcome       Outcome           `json:"outcome"`
	DryRun        bool              `json:"dry_run,omitempty"`
	Results       []ExecutionResult `json:"results"`
}

// NewBatchReport computes the totals from results.
func NewBatchReport(runID string, total int, results []ExecutionResult) BatchReport {
	report := BatchReport{
		RunID:         runID,
		TotalComments: total,
		Processed:     len(results),
		Results:       results,
	}
	if report.Results == nil {
		report.Results = []ExecutionResult{}
	}
	for _, r := range results {
		if r.Success {
			report.Succeeded++
		} else {
			report.Failed++
		}
	}
	switch {
	case report.Processed == 0:
		report.Outcome = OutcomeEmpty
	case report.Failed == 0:
		report.Outcome = OutcomeSuccess
	case report.Succeeded == 0:
		report.Outcome = OutcomeFailure
	default:
		report.Outcome = OutcomePartial
	}
	return report
}

// ActionOption is one choice offered to a human.
type ActionOption struct {
	Action      Action `json:"action"`
	Label       string `json:"label"`
	Description string `json:"description"`
}

// DecisionRequest asks a human to decide on one comment. It has no side effects.
type DecisionRequest struct {
	Comment     Comment        `json:"comment"`
	Verdict     Verdict        `json:"verdict"`
	CodeContext CodeContext    `json:"code_context"`
	Options     []ActionOption `json:"options"`
}

// AutoDecision is a comment the policy can settle without asking.
type AutoDecision struct {
	Comment     Comment     `json:"comment"`
	Verdict     Verdict     `json:"verdict"`
	CodeContext CodeContext `json:"code_context"`
	Decision    Decision    `json:"decision"`
}

// Request turns an auto decision back into a question for a human.
func (a AutoDecision) Request(options []ActionOption) DecisionRequest {
	return DecisionRequest{Comment: a.Comment, Verdict: a.Verdict, CodeContext: a.CodeContext, Options: options}
}

// PreparedDecisions partitions classified comments.
type PreparedDecisions struct {
	TotalComments  int               `json:"total_comments"`
	AutoResolvable []AutoDecision    `json:"auto_resolvable"`
	NeedsInput     []DecisionRequest `json:"needs_input"`
}
