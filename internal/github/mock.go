package github

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ryo246912/gh-review-triage/internal/apperr"
	"github.com/ryo246912/gh-review-triage/internal/models"
)

// ReplyCall records one PostReply call.
type ReplyCall struct {
	PR        int
	CommentID int64
	Body      string
}

// MockAPI implements API for testing
type MockAPI struct {
	mu sync.Mutex

	// Control test behavior
	Comments          map[int][]models.Comment
	Threads           map[int][]models.ReviewThread
	ThreadStates      map[string]bool
	HeadRef           string
	Files             map[string]string
	PullRequests      []models.PullRequestInfo
	ListCommentsError error
	ListThreadsError  error
	ThreadStateError  error
	HeadRefError      error
	PullRequestsError error
	ReplyErrors       map[int64]error
	ResolveErrors     map[string]error
	// ReplyDelay blocks PostReply until it elapses or the context ends.
	ReplyDelay time.Duration

	// Track method calls
	ListReviewCommentsCalls int
	ListReviewThreadsCalls  int
	GetThreadResolvedCalls  int
	ReplyCalls              []ReplyCall
	ResolvedThreads         []string
	nextReplyID             int64
}

// NewMockAPI returns an empty MockAPI.
func NewMockAPI() *MockAPI {
	return &MockAPI{
		Comments:      make(map[int][]models.Comment),
		Threads:       make(map[int][]models.ReviewThread),
		ThreadStates:  make(map[string]bool),
		Files:         make(map[string]string),
		ReplyErrors:   make(map[int64]error),
		ResolveErrors: make(map[string]error),
		nextReplyID:   1000,
	}
}

// AddComment registers c on pr together with a thread named "T<id>".
func (m *MockAPI) AddComment(pr int, c models.Comment, resolved bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	threadID := fmt.Sprintf("T%d", c.ID)
	m.Comments[pr] = append(m.Comments[pr], c)
	m.Threads[pr] = append(m.Threads[pr], models.ReviewThread{
		ID:         threadID,
		IsResolved: resolved,
		Path:       c.Location.Path,
		CommentIDs: []int64{c.ID},
	})
	m.ThreadStates[threadID] = resolved
}

// ListReviewComments mocks the REST API call
func (m *MockAPI) ListReviewComments(ctx context.Context, pr int) ([]models.Comment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ListReviewCommentsCalls++
	if m.ListCommentsError != nil {
		return nil, m.ListCommentsError
	}
	out := make([]models.Comment, len(m.Comments[pr]))
	copy(out, m.Comments[pr])
	return out, nil
}

// ListReviewThreads mocks the GraphQL API call
func (m *MockAPI) ListReviewThreads(ctx context.Context, pr int) ([]models.ReviewThread, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ListReviewThreadsCalls++
	if m.ListThreadsError != nil {
		return nil, m.ListThreadsError
	}
	out := make([]models.ReviewThread, 0, len(m.Threads[pr]))
	for _, t := range m.Threads[pr] {
		t.IsResolved = m.ThreadStates[t.ID]
		out = append(out, t)
	}
	return out, nil
}

// GetThreadResolved mocks the GraphQL node query
func (m *MockAPI) GetThreadResolved(ctx context.Context, threadID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.GetThreadResolvedCalls++
	if m.ThreadStateError != nil {
		return false, m.ThreadStateError
	}
	resolved, ok := m.ThreadStates[threadID]
	if !ok {
		return false, notFoundThread(threadID)
	}
	return resolved, nil
}

// PostReply mocks the reply API call
func (m *MockAPI) PostReply(ctx context.Context, pr int, commentID int64, body string) (int64, error) {
	if m.ReplyDelay > 0 {
		select {
		case <-time.After(m.ReplyDelay):
		case <-ctx.Done():
			return 0, classifyError("post reply", ctx.Err())
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.ReplyCalls = append(m.ReplyCalls, ReplyCall{PR: pr, CommentID: commentID, Body: body})
	if err := m.ReplyErrors[commentID]; err != nil {
		return 0, err
	}
	m.nextReplyID++
	return m.nextReplyID, nil
}

// ResolveThread mocks the resolveReviewThread mutation
func (m *MockAPI) ResolveThread(ctx context.Context, threadID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ResolvedThreads = append(m.ResolvedThreads, threadID)
	if err := m.ResolveErrors[threadID]; err != nil {
		return false, err
	}
	if _, ok := m.ThreadStates[threadID]; !ok {
		return false, notFoundThread(threadID)
	}
	m.ThreadStates[threadID] = true
	return true, nil
}

// GetHeadRef mocks the pull request API call
func (m *MockAPI) GetHeadRef(ctx context.Context, pr int) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.HeadRef, m.HeadRefError
}

// GetFileContent mocks the contents API call
func (m *MockAPI) GetFileContent(ctx context.Context, path, ref string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	content, ok := m.Files[path]
	if !ok {
		return "", apperr.NotFound("file %s not found", path)
	}
	return content, nil
}

// ListOpenPullRequests mocks the search API call
func (m *MockAPI) ListOpenPullRequests(ctx context.Context) ([]models.PullRequestInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.PullRequests, m.PullRequestsError
}

// RepliesTo returns the bodies posted to commentID.
func (m *MockAPI) RepliesTo(commentID int64) []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	var bodies []string
	for _, r := range m.ReplyCalls {
		if r.CommentID == commentID {
			bodies = append(bodies, r.Body)
		}
	}
	return bodies
}

// Reset clears all tracking data for fresh test
func (m *MockAPI) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ListReviewCommentsCalls = 0
	m.ListReviewThreadsCalls = 0
	m.GetThreadResolvedCalls = 0
	m.ReplyCalls = nil
	m.ResolvedThreads = nil
}

// Helper functions for creating test data
func CreateTestPRs(count int) []models.PullRequestInfo {
	prs := make([]models.PullRequestInfo, count)
	for i := 0; i < count; i++ {
		prs[i] = models.PullRequestInfo{
			Number:    i + 1,
			Title:     fmt.Sprintf("Test PR #%d", i+1),
			User:      fmt.Sprintf("user%d", i+1),
			State:     "OPEN",
			Draft:     i%2 == 0,
			UpdatedAt: "2023-01-01T12:00:00Z",
			CreatedAt: "2023-01-01T10:00:00Z",
		}
	}
	return prs
}

// CreateTestComment builds a bot comment anchored at path:line.
func CreateTestComment(id int64, author, body, path string, line int) models.Comment {
	return models.Comment{
		ID:        id,
		Location:  models.FileLocation{Path: path, Line: line},
		Author:    author,
		Body:      body,
		Status:    models.ThreadOpen,
		CreatedAt: time.Date(2023, 1, 1, 10, 0, 0, 0, time.UTC),
	}
}

// NewPermissionError simulates a rejected write.
func NewPermissionError(op string) error {
	return apperr.Permission(op, fmt.Errorf("HTTP 403: Resource not accessible by integration"))
}

// NewTransientError simulates a retryable failure.
func NewTransientError(op string) error {
	return apperr.Transient(op, fmt.Errorf("HTTP 502: Bad Gateway"))
}
