package service

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/ryo246912/gh-review-triage/internal/github"
	"github.com/ryo246912/gh-review-triage/internal/models"
)

// BulkCloser replies to every comment matching a filter without classifying it.
type BulkCloser struct {
	fetcher  *Fetcher
	executor *Executor
	logger   zerolog.Logger
	newID    func() string
}

// NewBulkCloser creates a BulkCloser.
func NewBulkCloser(fetcher *Fetcher, executor *Executor, logger zerolog.Logger) *BulkCloser {
	return &BulkCloser{
		fetcher:  fetcher,
		executor: executor,
		logger:   logger,
		newID:    uuid.NewString,
	}
}

// BulkClose posts message on every matching comment and resolves the threads when
// resolveThreads is set. Without a status filter only open threads are addressed;
// models.ThreadAll addresses every thread.
// A dry run reports the planned decisions as skipped results.
func (b *BulkCloser) BulkClose(ctx context.Context, rc *github.RepoClient, pr int, filters models.CommentFilters, message string, resolveThreads, dryRun bool) (models.BatchReport, error) {
	if filters.Status == "" {
		filters.Status = models.ThreadOpen
	}
	comments, err := b.fetcher.Fetch(ctx, rc, pr, filters)
	if err != nil {
		return models.BatchReport{}, err
	}
	if message == "" {
		message = b.executor.Messages().Bulk
	}

	runID := b.newID()
	logger := b.logger.With().Str("run_id", runID).Str("repo", rc.Identity().String()).Int("pr", pr).Logger()
	logger.Info().Int("comments", len(comments)).Bool("resolve", resolveThreads).Bool("dry_run", dryRun).Msg("bulk close started")

	ids := make([]int64, len(comments))
	for i, c := range comments {
		ids[i] = c.ID
	}

	var results []models.ExecutionResult
	if dryRun {
		results = make([]models.ExecutionResult, len(ids))
		for i, d := range UniformDecisions(ids, message, resolveThreads) {
			results[i] = models.ExecutionResult{CommentID: d.CommentID, Action: d.Action, Success: true}
		}
	} else {
		results = b.executor.ExecuteUniform(ctx, rc, pr, ids, message, resolveThreads)
	}

	report := models.NewBatchReport(runID, len(comments), results)
	report.DryRun = dryRun
	logger.Info().
		Int("succeeded", report.Succeeded).
		Int("failed", report.Failed).
		Str("outcome", string(report.Outcome)).
		Msg("bulk close finished")
	return report, nil
}
