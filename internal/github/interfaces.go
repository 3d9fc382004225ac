package github

import (
	"context"

	"github.com/ryo246912/gh-review-triage/internal/models"
)

// API is the remote hosting API scoped to one repository.
// The repository identity is fixed when the implementation is constructed.
type API interface {
	// ListReviewComments returns the root review comments of a pull request.
	ListReviewComments(ctx context.Context, pr int) ([]models.Comment, error)
	// ListReviewThreads returns the review threads of a pull request.
	ListReviewThreads(ctx context.Context, pr int) ([]models.ReviewThread, error)
	// GetThreadResolved reads the resolution state of one thread.
	GetThreadResolved(ctx context.Context, threadID string) (bool, error)
	// PostReply replies to the thread headed by commentID and returns the reply id.
	PostReply(ctx context.Context, pr int, commentID int64, body string) (int64, error)
	// ResolveThread marks a thread as resolved.
	ResolveThread(ctx context.Context, threadID string) (bool, error)
	GetHeadRef(ctx context.Context, pr int) (string, error)
	GetFileContent(ctx context.Context, path, ref string) (string, error)
	// ListOpenPullRequests returns the open pull requests authored by the authenticated user.
	ListOpenPullRequests(ctx context.Context) ([]models.PullRequestInfo, error)
}

// Ensure Client implements API interface
var _ API = (*Client)(nil)
var _ API = (*MockAPI)(nil)
