package github

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/ryo246912/gh-review-triage/internal/apperr"
	"github.com/ryo246912/gh-review-triage/internal/models"
)

// RepoClient is the long-lived connection to one repository.
// Its identity never changes after construction.
type RepoClient struct {
	identity models.RepoIdentity
	api      API
	threads  *ThreadStatusCache
	logger   zerolog.Logger

	mu    sync.Mutex
	refs  map[int]map[int64]string // pr -> comment id -> thread id
	loads singleflight.Group
}

// NewRepoClient binds api to identity.
func NewRepoClient(identity models.RepoIdentity, api API, logger zerolog.Logger) *RepoClient {
	return &RepoClient{
		identity: identity,
		api:      api,
		threads:  NewThreadStatusCache(),
		logger:   logger.With().Str("repo", identity.String()).Logger(),
		refs:     make(map[int]map[int64]string),
	}
}

func (r *RepoClient) Identity() models.RepoIdentity {
	return r.identity
}

func (r *RepoClient) API() API {
	return r.api
}

// Threads returns the thread status cache owned by this client.
func (r *RepoClient) Threads() *ThreadStatusCache {
	return r.threads
}

// ListComments fetches the thread-head comments of pr and annotates them with their thread.
// Thread states read along the way are recorded in the cache.
func (r *RepoClient) ListComments(ctx context.Context, pr int) ([]models.Comment, error) {
	comments, err := r.api.ListReviewComments(ctx, pr)
	if err != nil {
		return nil, err
	}
	if _, err := r.indexThreads(ctx, pr); err != nil {
		return nil, err
	}

	r.mu.Lock()
	refs := r.refs[pr]
	r.mu.Unlock()

	for i := range comments {
		threadID, ok := refs[comments[i].ID]
		if !ok {
			continue
		}
		comments[i].ThreadID = threadID
		if resolved, ok := r.threads.IsResolved(threadID); ok && resolved {
			comments[i].Status = models.ThreadResolved
		}
	}
	return comments, nil
}

func (r *RepoClient) indexThreads(ctx context.Context, pr int) (map[int64]string, error) {
	v, err, _ := r.loads.Do(strconv.Itoa(pr), func() (interface{}, error) {
		threads, err := r.api.ListReviewThreads(ctx, pr)
		if err != nil {
			return nil, err
		}
		refs := make(map[int64]string)
		for _, t := range threads {
			r.threads.Record(t.ID, t.IsResolved)
			for _, id := range t.CommentIDs {
				refs[id] = t.ID
			}
		}
		r.mu.Lock()
		r.refs[pr] = refs
		r.mu.Unlock()
		r.logger.Debug().Int("pr", pr).Int("threads", len(threads)).Msg("indexed review threads")
		return refs, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(map[int64]string), nil
}

// ThreadForComment returns the id of the thread containing commentID.
func (r *RepoClient) ThreadForComment(ctx context.Context, pr int, commentID int64) (string, error) {
	r.mu.Lock()
	refs, ok := r.refs[pr]
	r.mu.Unlock()

	if !ok || refs[commentID] == "" {
		var err error
		if refs, err = r.indexThreads(ctx, pr); err != nil {
			return "", fmt.Errorf("failed to load review threads: %w", err)
		}
	}
	threadID, ok := refs[commentID]
	if !ok {
		return "", apperr.NotFound("comment %d not found in pull request #%d", commentID, pr)
	}
	return threadID, nil
}

// ThreadResolved reads through the thread status cache.
func (r *RepoClient) ThreadResolved(ctx context.Context, threadID string) (bool, error) {
	if resolved, ok := r.threads.IsResolved(threadID); ok {
		r.logger.Debug().Str("thread", threadID).Bool("resolved", resolved).Msg("thread status cache hit")
		return resolved, nil
	}
	resolved, err := r.api.GetThreadResolved(ctx, threadID)
	if err != nil {
		return false, err
	}
	r.threads.Record(threadID, resolved)
	r.logger.Debug().Str("thread", threadID).Bool("resolved", resolved).Msg("thread status cache miss")
	return resolved, nil
}
