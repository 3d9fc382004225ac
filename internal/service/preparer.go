package service

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/ryo246912/gh-review-triage/internal/classifier"
	"github.com/ryo246912/gh-review-triage/internal/github"
	"github.com/ryo246912/gh-review-triage/internal/models"
)

// Routing thresholds.
const (
	FixThreshold          = 0.70
	AlreadyFixedThreshold = 0.60
)

// DefaultConcurrency bounds the per-item work of a batch.
const DefaultConcurrency = 4

// Route decides whether a verdict can be acted on without asking.
// It returns the implied action and true when the item is auto-resolvable.
func Route(v models.Verdict) (models.Action, bool) {
	switch v.Status {
	case models.StatusNeedsFix:
		if v.Confidence < FixThreshold {
			return "", false
		}
		return models.ActionFix, true
	case models.StatusAlreadyFixed:
		if v.Confidence < AlreadyFixedThreshold {
			return "", false
		}
		return models.ActionDismiss, true
	case models.StatusInvalid:
		return models.ActionDismiss, true
	}
	return "", false
}

// ActionOptions returns the three choices offered for a verdict status.
func ActionOptions(status models.VerdictStatus) []models.ActionOption {
	skip := models.ActionOption{Action: models.ActionSkip, Label: "Skip for now", Description: "Don't take any action on this comment"}
	switch status {
	case models.StatusNeedsFix:
		return []models.ActionOption{
			{Action: models.ActionFix, Label: "Fix this issue", Description: "Keep thread open and acknowledge it will be fixed"},
			{Action: models.ActionDismiss, Label: "False positive", Description: "Resolve thread - this is not actually an issue"},
			skip,
		}
	case models.StatusAlreadyFixed:
		return []models.ActionOption{
			{Action: models.ActionDismiss, Label: "Confirmed fixed", Description: "Resolve thread - issue has been addressed"},
			{Action: models.ActionFix, Label: "Not actually fixed", Description: "Keep thread open - still needs work"},
			skip,
		}
	}
	return []models.ActionOption{
		{Action: models.ActionFix, Label: "Needs fixing", Description: "Keep thread open and acknowledge"},
		{Action: models.ActionDismiss, Label: "Not an issue", Description: "Resolve thread and dismiss"},
		skip,
	}
}

// Preparer classifies comments and splits them into auto-resolvable and needs-input.
type Preparer struct {
	contexts    *ContextBuilder
	concurrency int64
	logger      zerolog.Logger
}

// NewPreparer creates a Preparer.
func NewPreparer(contexts *ContextBuilder, concurrency int, logger zerolog.Logger) *Preparer {
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	return &Preparer{contexts: contexts, concurrency: int64(concurrency), logger: logger}
}

type preparedItem struct {
	comment models.Comment
	verdict models.Verdict
	codeCtx models.CodeContext
}

// Prepare classifies every comment with cls. A classifier failure turns into an
// uncertain verdict for that item only.
func (p *Preparer) Prepare(ctx context.Context, rc *github.RepoClient, pr int, comments []models.Comment, cls classifier.Classifier) models.PreparedDecisions {
	out := models.PreparedDecisions{
		TotalComments:  len(comments),
		AutoResolvable: []models.AutoDecision{},
		NeedsInput:     []models.DecisionRequest{},
	}
	if len(comments) == 0 {
		return out
	}

	ref, err := rc.API().GetHeadRef(ctx, pr)
	if err != nil {
		p.logger.Warn().Err(err).Int("pr", pr).Msg("head ref unavailable, using diff hunks for context")
		ref = ""
	}

	items := make([]preparedItem, len(comments))
	sem := semaphore.NewWeighted(p.concurrency)
	var g errgroup.Group
	for i, c := range comments {
		g.Go(func() error {
			items[i] = preparedItem{comment: c}
			if err := sem.Acquire(ctx, 1); err != nil {
				items[i].verdict = failedVerdict(err)
				return nil
			}
			defer sem.Release(1)

			items[i].codeCtx = p.contexts.Build(ctx, rc.API(), ref, c)
			v, err := cls.Classify(ctx, c, items[i].codeCtx)
			if err != nil {
				p.logger.Error().Err(err).Int64("comment", c.ID).Msg("classification failed")
				v = failedVerdict(err)
			}
			items[i].verdict = v
			return nil
		})
	}
	_ = g.Wait()

	for _, it := range items {
		if action, ok := Route(it.verdict); ok {
			out.AutoResolvable = append(out.AutoResolvable, models.AutoDecision{
				Comment:     it.comment,
				Verdict:     it.verdict,
				CodeContext: it.codeCtx,
				Decision: models.Decision{
					CommentID: it.comment.ID,
					Action:    action,
					Message:   it.verdict.ReplyTemplate,
				},
			})
			continue
		}
		out.NeedsInput = append(out.NeedsInput, models.DecisionRequest{
			Comment:     it.comment,
			Verdict:     it.verdict,
			CodeContext: it.codeCtx,
			Options:     ActionOptions(it.verdict.Status),
		})
	}

	p.logger.Info().
		Int("total", out.TotalComments).
		Int("auto", len(out.AutoResolvable)).
		Int("needs_input", len(out.NeedsInput)).
		Msg("prepared decisions")
	return out
}

func failedVerdict(err error) models.Verdict {
	return models.Verdict{
		Status:     models.StatusUncertain,
		Confidence: 0,
		Reasoning:  fmt.Sprintf("Classification failed: %v", err),
		Source:     "error",
	}
}
