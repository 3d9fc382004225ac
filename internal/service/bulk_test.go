package service

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ryo246912/gh-review-triage/internal/github"
	"github.com/ryo246912/gh-review-triage/internal/models"
)

func newTestBulkCloser() *BulkCloser {
	b := NewBulkCloser(NewFetcher(nil, zerolog.Nop()), newTestExecutor(), zerolog.Nop())
	b.newID = func() string { return "run-1" }
	return b
}

func TestBulkCloser_Totals(t *testing.T) {
	tests := []struct {
		name          string
		resolve       bool
		failing       []int64
		wantSucceeded int
		wantOutcome   models.Outcome
	}{
		{name: "all succeed", wantSucceeded: 4, wantOutcome: models.OutcomeSuccess},
		{name: "one rejected", failing: []int64{2}, wantSucceeded: 3, wantOutcome: models.OutcomePartial},
		{name: "all rejected with resolve", resolve: true, failing: []int64{1, 2, 3, 4}, wantSucceeded: 0, wantOutcome: models.OutcomeFailure},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock, rc := newTestRepo(4)
			mock.AddComment(testPR, github.CreateTestComment(5, "Copilot", "already done", "app.py", 5), true)
			for _, id := range tt.failing {
				mock.ReplyErrors[id] = github.NewPermissionError("post reply")
			}

			report, err := newTestBulkCloser().BulkClose(context.Background(), rc, testPR, models.CommentFilters{}, "", tt.resolve, false)
			require.NoError(t, err)

			// the resolved thread is excluded by the default status filter
			assert.Equal(t, 4, report.TotalComments)
			assert.Equal(t, report.TotalComments, report.Processed)
			assert.Equal(t, report.Processed, report.Succeeded+report.Failed)
			assert.Equal(t, tt.wantSucceeded, report.Succeeded)
			assert.Equal(t, tt.wantOutcome, report.Outcome)
			assert.Equal(t, "run-1", report.RunID)
			assert.Equal(t, []string{DefaultMessages().Bulk}, mock.RepliesTo(1))
			if !tt.resolve {
				assert.Empty(t, mock.ResolvedThreads)
			}
		})
	}
}

func TestBulkCloser_ResolvesThreads(t *testing.T) {
	mock, rc := newTestRepo(2)

	report, err := newTestBulkCloser().BulkClose(context.Background(), rc, testPR, models.CommentFilters{}, "Closing stale bot threads", true, false)
	require.NoError(t, err)

	assert.Equal(t, models.OutcomeSuccess, report.Outcome)
	assert.ElementsMatch(t, []string{"T1", "T2"}, mock.ResolvedThreads)
	assert.Equal(t, []string{"Closing stale bot threads"}, mock.RepliesTo(2))
	for _, r := range report.Results {
		assert.True(t, r.ThreadResolved)
	}
}

func TestBulkCloser_AllStatuses(t *testing.T) {
	mock, rc := newTestRepo(2)
	mock.AddComment(testPR, github.CreateTestComment(3, "Copilot", "already done", "app.py", 5), true)

	filters := models.CommentFilters{Status: models.ThreadAll}
	report, err := newTestBulkCloser().BulkClose(context.Background(), rc, testPR, filters, "Closing out", true, false)
	require.NoError(t, err)

	assert.Equal(t, 3, report.TotalComments)
	assert.Equal(t, 3, report.Succeeded)
	assert.Equal(t, []string{"Closing out"}, mock.RepliesTo(3))
	// only the open threads need the resolve mutation
	assert.ElementsMatch(t, []string{"T1", "T2"}, mock.ResolvedThreads)
	for _, r := range report.Results {
		assert.True(t, r.ThreadResolved)
	}
}

func TestBulkCloser_DryRun(t *testing.T) {
	mock, rc := newTestRepo(3)

	report, err := newTestBulkCloser().BulkClose(context.Background(), rc, testPR, models.CommentFilters{}, "", true, true)
	require.NoError(t, err)

	assert.True(t, report.DryRun)
	assert.Equal(t, 3, report.Processed)
	assert.Equal(t, 3, report.Succeeded)
	assert.Empty(t, mock.ReplyCalls)
	assert.Empty(t, mock.ResolvedThreads)
}

func TestBulkCloser_Empty(t *testing.T) {
	_, rc := newTestRepo(0)

	report, err := newTestBulkCloser().BulkClose(context.Background(), rc, testPR, models.CommentFilters{}, "", false, false)
	require.NoError(t, err)

	assert.Equal(t, models.OutcomeEmpty, report.Outcome)
	assert.Equal(t, 0, report.Processed)
	assert.NotNil(t, report.Results)
}
