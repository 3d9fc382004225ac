package github

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/cli/go-gh/v2/pkg/api"
	graphql "github.com/cli/shurcooL-graphql"
	gh "github.com/google/go-github/v68/github"
	"golang.org/x/time/rate"

	"github.com/ryo246912/gh-review-triage/internal/models"
)

const (
	// DefaultHost is used when no host is configured.
	DefaultHost = "github.com"

	perPage = 100
)

// ClientOptions configures a Client.
type ClientOptions struct {
	Identity models.RepoIdentity
	Token    string
	Host     string
	Timeout  time.Duration
	// Transport overrides the HTTP transport. Tests route it to an in-process mux.
	Transport http.RoundTripper
	// Limiter throttles every remote call. Nil disables throttling.
	Limiter *rate.Limiter
}

// Client wraps GitHub API clients bound to one repository.
type Client struct {
	identity models.RepoIdentity
	rest     *api.RESTClient
	gql      *api.GraphQLClient
	limiter  *rate.Limiter
}

// NewClient creates a Client for opts.Identity.
func NewClient(opts ClientOptions) (*Client, error) {
	if opts.Identity.IsZero() {
		return nil, fmt.Errorf("repository identity is required")
	}
	host := opts.Host
	if host == "" {
		host = DefaultHost
	}
	apiOpts := api.ClientOptions{
		AuthToken: opts.Token,
		Host:      host,
		Timeout:   opts.Timeout,
		Transport: opts.Transport,
	}

	restClient, err := api.NewRESTClient(apiOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to create REST client: %w", err)
	}

	gqlClient, err := api.NewGraphQLClient(apiOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to create GraphQL client: %w", err)
	}

	return &Client{
		identity: opts.Identity,
		rest:     restClient,
		gql:      gqlClient,
		limiter:  opts.Limiter,
	}, nil
}

// Identity returns the repository the client is bound to.
func (c *Client) Identity() models.RepoIdentity {
	return c.identity
}

func (c *Client) wait(ctx context.Context) error {
	if c.limiter == nil {
		return nil
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return classifyError("wait for rate limiter", err)
	}
	return nil
}

func (c *Client) repoPath(format string, args ...any) string {
	prefix := fmt.Sprintf("repos/%s/%s/", c.identity.Owner(), c.identity.Name())
	return prefix + fmt.Sprintf(format, args...)
}

// ListReviewComments fetches the review comments of a pull request and keeps thread heads only.
func (c *Client) ListReviewComments(ctx context.Context, pr int) ([]models.Comment, error) {
	var comments []models.Comment
	for page := 1; ; page++ {
		if err := c.wait(ctx); err != nil {
			return nil, err
		}
		var batch []*gh.PullRequestComment
		path := c.repoPath("pulls/%d/comments?per_page=%d&page=%d", pr, perPage, page)
		if err := c.rest.DoWithContext(ctx, http.MethodGet, path, nil, &batch); err != nil {
			return nil, classifyError("list review comments", err)
		}
		for _, rc := range batch {
			if rc.GetInReplyTo() != 0 {
				continue
			}
			comments = append(comments, convertComment(rc))
		}
		if len(batch) < perPage {
			break
		}
	}
	return comments, nil
}

func convertComment(rc *gh.PullRequestComment) models.Comment {
	line := rc.GetLine()
	if line == 0 {
		line = rc.GetOriginalLine()
	}
	return models.Comment{
		ID: rc.GetID(),
		Location: models.FileLocation{
			Path: rc.GetPath(),
			Line: line,
		},
		Author:      rc.GetUser().GetLogin(),
		Body:        rc.GetBody(),
		DiffContext: rc.GetDiffHunk(),
		Status:      models.ThreadOpen,
		URL:         rc.GetHTMLURL(),
		CreatedAt:   rc.GetCreatedAt().Time,
	}
}

// ListReviewThreads fetches every review thread of a pull request using GraphQL
func (c *Client) ListReviewThreads(ctx context.Context, pr int) ([]models.ReviewThread, error) {
	var q struct {
		Repository struct {
			PullRequest struct {
				ReviewThreads struct {
					Nodes []struct {
						ID         string
						IsResolved bool
						Path       string
						Comments   struct {
							Nodes []struct {
								DatabaseID int64 `graphql:"databaseId"`
							}
						} `graphql:"comments(first: 100)"`
					}
					PageInfo struct {
						HasNextPage bool
						EndCursor   string
					}
				} `graphql:"reviewThreads(first: 100, after: $endCursor)"`
			} `graphql:"pullRequest(number: $number)"`
		} `graphql:"repository(owner: $owner, name: $name)"`
	}

	variables := map[string]interface{}{
		"owner":     graphql.String(c.identity.Owner()),
		"name":      graphql.String(c.identity.Name()),
		"number":    graphql.Int(pr),
		"endCursor": (*graphql.String)(nil),
	}

	var threads []models.ReviewThread
	seen := make(map[string]bool)
	for {
		if err := c.wait(ctx); err != nil {
			return nil, err
		}
		if err := c.gql.QueryWithContext(ctx, "ReviewThreads", &q, variables); err != nil {
			return nil, classifyError("list review threads", err)
		}
		for _, node := range q.Repository.PullRequest.ReviewThreads.Nodes {
			ids := make([]int64, 0, len(node.Comments.Nodes))
			for _, cm := range node.Comments.Nodes {
				ids = append(ids, cm.DatabaseID)
			}
			threads = append(threads, models.ReviewThread{
				ID:         node.ID,
				IsResolved: node.IsResolved,
				Path:       node.Path,
				CommentIDs: ids,
			})
		}

		page := q.Repository.PullRequest.ReviewThreads.PageInfo
		if !page.HasNextPage || page.EndCursor == "" || seen[page.EndCursor] {
			break
		}
		seen[page.EndCursor] = true
		variables["endCursor"] = graphql.NewString(graphql.String(page.EndCursor))
	}
	return threads, nil
}

// GetThreadResolved reads one thread's state.
func (c *Client) GetThreadResolved(ctx context.Context, threadID string) (bool, error) {
	var q struct {
		Node struct {
			Thread struct {
				ID         string
				IsResolved bool
			} `graphql:"... on PullRequestReviewThread"`
		} `graphql:"node(id: $id)"`
	}
	variables := map[string]interface{}{
		"id": graphql.ID(threadID),
	}

	if err := c.wait(ctx); err != nil {
		return false, err
	}
	if err := c.gql.QueryWithContext(ctx, "ThreadState", &q, variables); err != nil {
		return false, classifyError("get thread state", err)
	}
	if q.Node.Thread.ID == "" {
		return false, notFoundThread(threadID)
	}
	return q.Node.Thread.IsResolved, nil
}

// PostReply posts body as a reply in the thread of commentID.
func (c *Client) PostReply(ctx context.Context, pr int, commentID int64, body string) (int64, error) {
	jsonBody, err := json.Marshal(map[string]interface{}{
		"body": body,
	})
	if err != nil {
		return 0, fmt.Errorf("failed to encode request body: %w", err)
	}

	if err := c.wait(ctx); err != nil {
		return 0, err
	}
	var reply gh.PullRequestComment
	path := c.repoPath("pulls/%d/comments/%d/replies", pr, commentID)
	if err := c.rest.DoWithContext(ctx, http.MethodPost, path, bytes.NewReader(jsonBody), &reply); err != nil {
		return 0, classifyError("post reply", err)
	}
	return reply.GetID(), nil
}

// ResolveReviewThreadInput is the input of the resolveReviewThread mutation.
type ResolveReviewThreadInput struct {
	ThreadID graphql.ID `json:"threadId"`
}

// ResolveThread resolves a review thread.
func (c *Client) ResolveThread(ctx context.Context, threadID string) (bool, error) {
	var m struct {
		ResolveReviewThread struct {
			Thread struct {
				ID         string
				IsResolved bool
			}
		} `graphql:"resolveReviewThread(input: $input)"`
	}
	variables := map[string]interface{}{
		"input": ResolveReviewThreadInput{ThreadID: graphql.ID(threadID)},
	}

	if err := c.wait(ctx); err != nil {
		return false, err
	}
	if err := c.gql.MutateWithContext(ctx, "ResolveThread", &m, variables); err != nil {
		return false, classifyError("resolve thread", err)
	}
	return m.ResolveReviewThread.Thread.IsResolved, nil
}

// GetHeadRef returns the head commit SHA of a pull request.
func (c *Client) GetHeadRef(ctx context.Context, pr int) (string, error) {
	if err := c.wait(ctx); err != nil {
		return "", err
	}
	var pull gh.PullRequest
	if err := c.rest.DoWithContext(ctx, http.MethodGet, c.repoPath("pulls/%d", pr), nil, &pull); err != nil {
		return "", classifyError("get pull request", err)
	}
	return pull.GetHead().GetSHA(), nil
}

// GetFileContent returns the decoded content of path at ref.
func (c *Client) GetFileContent(ctx context.Context, path, ref string) (string, error) {
	if err := c.wait(ctx); err != nil {
		return "", err
	}
	var content gh.RepositoryContent
	p := c.repoPath("contents/%s", path)
	if ref != "" {
		p += "?ref=" + ref
	}
	if err := c.rest.DoWithContext(ctx, http.MethodGet, p, nil, &content); err != nil {
		return "", classifyError("get file content", err)
	}
	text, err := content.GetContent()
	if err != nil {
		return "", fmt.Errorf("failed to decode %s: %w", path, err)
	}
	return text, nil
}

// ListOpenPullRequests fetches open pull requests authored by the viewer using GraphQL
func (c *Client) ListOpenPullRequests(ctx context.Context) ([]models.PullRequestInfo, error) {
	var q struct {
		Search struct {
			Nodes []struct {
				PullRequest struct {
					Number    int
					Title     string
					State     string
					IsDraft   bool
					UpdatedAt string
					CreatedAt string
					Author    struct {
						Login string
					}
				} `graphql:"... on PullRequest"`
			}
			PageInfo struct {
				HasNextPage bool
				EndCursor   string
			}
		} `graphql:"search(type: ISSUE, query: $query, first: $first, after: $endCursor)"`
	}

	variables := map[string]interface{}{
		"query":     graphql.String(fmt.Sprintf("repo:%s is:pr state:open author:@me sort:updated-desc", c.identity)),
		"first":     graphql.Int(perPage),
		"endCursor": (*graphql.String)(nil),
	}

	if err := c.wait(ctx); err != nil {
		return nil, err
	}
	if err := c.gql.QueryWithContext(ctx, "OpenPullRequests", &q, variables); err != nil {
		return nil, classifyError("fetch pull requests", err)
	}

	prs := make([]models.PullRequestInfo, 0, len(q.Search.Nodes))
	for _, node := range q.Search.Nodes {
		pr := node.PullRequest
		if pr.Number == 0 {
			continue
		}
		prs = append(prs, models.PullRequestInfo{
			Number:    pr.Number,
			Title:     pr.Title,
			User:      pr.Author.Login,
			State:     pr.State,
			Draft:     pr.IsDraft,
			UpdatedAt: pr.UpdatedAt,
			CreatedAt: pr.CreatedAt,
		})
	}
	return prs, nil
}
