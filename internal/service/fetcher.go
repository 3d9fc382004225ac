package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/ryo246912/gh-review-triage/internal/github"
	"github.com/ryo246912/gh-review-triage/internal/models"
)

// Fetcher retrieves and filters the review comments of a pull request.
// It keeps no state besides the thread cache of the RepoClient it is given.
type Fetcher struct {
	bots   *github.BotSet
	logger zerolog.Logger
	now    func() time.Time
}

// NewFetcher creates a Fetcher. A nil bots uses the built-in allow-list.
func NewFetcher(bots *github.BotSet, logger zerolog.Logger) *Fetcher {
	if bots == nil {
		bots = github.NewBotSet()
	}
	return &Fetcher{bots: bots, logger: logger, now: time.Now}
}

// Fetch returns the thread-head comments of pr that pass filters.
func (f *Fetcher) Fetch(ctx context.Context, rc *github.RepoClient, pr int, filters models.CommentFilters) ([]models.Comment, error) {
	if err := filters.Validate(); err != nil {
		return nil, err
	}

	all, err := rc.ListComments(ctx, pr)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch review comments: %w", err)
	}

	now := f.now()
	comments := make([]models.Comment, 0, len(all))
	for _, c := range all {
		if !filters.MatchesText(c) {
			continue
		}
		if filters.BotsOnly && !f.bots.IsAutomated(c.Author) {
			continue
		}
		if !filters.OlderThan(c, now) {
			continue
		}
		if c.ThreadID != "" {
			resolved, err := rc.ThreadResolved(ctx, c.ThreadID)
			if err != nil {
				return nil, fmt.Errorf("failed to read thread state of comment %d: %w", c.ID, err)
			}
			c.Status = models.ThreadOpen
			if resolved {
				c.Status = models.ThreadResolved
			}
		}
		if !filters.MatchesStatus(c) {
			continue
		}
		comments = append(comments, c)
	}

	f.logger.Debug().
		Str("repo", rc.Identity().String()).
		Int("pr", pr).
		Int("fetched", len(all)).
		Int("matched", len(comments)).
		Msg("fetched review comments")
	return comments, nil
}

// IsAutomated reports whether author is on the bot allow-list.
func (f *Fetcher) IsAutomated(author string) bool {
	return f.bots.IsAutomated(author)
}
