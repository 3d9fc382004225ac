package github

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ryo246912/gh-review-triage/internal/apperr"
	"github.com/ryo246912/gh-review-triage/internal/models"
)

// muxTransport serves requests from an in-process mux.
type muxTransport struct {
	mux *http.ServeMux
}

func (t muxTransport) RoundTrip(r *http.Request) (*http.Response, error) {
	rec := httptest.NewRecorder()
	t.mux.ServeHTTP(rec, r)
	res := rec.Result()
	res.Request = r
	return res, nil
}

type graphQLRequest struct {
	Query     string                 `json:"query"`
	Variables map[string]interface{} `json:"variables"`
}

func decodeGraphQL(t *testing.T, r *http.Request) graphQLRequest {
	t.Helper()
	body, err := io.ReadAll(r.Body)
	require.NoError(t, err)
	var req graphQLRequest
	require.NoError(t, json.Unmarshal(body, &req))
	return req
}

func writeJSON(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(body))
}

func newTestClient(t *testing.T, mux *http.ServeMux) *Client {
	t.Helper()
	c, err := NewClient(ClientOptions{
		Identity:  "octo/demo",
		Token:     "test-token",
		Host:      "github.com",
		Transport: muxTransport{mux: mux},
	})
	require.NoError(t, err)
	return c
}

func TestNewClient_RequiresIdentity(t *testing.T) {
	_, err := NewClient(ClientOptions{Token: "x", Transport: muxTransport{mux: http.NewServeMux()}})
	assert.Error(t, err)
}

func TestClient_ListReviewComments(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/repos/octo/demo/pulls/7/comments", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "1", r.URL.Query().Get("page"))
		assert.Equal(t, "token test-token", r.Header.Get("Authorization"))
		writeJSON(w, http.StatusOK, `[
			{"id": 11, "path": "app/main.py", "line": 4, "body": "Import of 'Optional' is not used",
			 "diff_hunk": "@@ -1,3 +1,4 @@\n+from typing import Optional, Tuple",
			 "user": {"login": "Copilot"}, "created_at": "2024-05-01T10:00:00Z",
			 "html_url": "https://github.com/octo/demo/pull/7#discussion_r11"},
			{"id": 12, "in_reply_to_id": 11, "path": "app/main.py", "line": 4, "body": "Done",
			 "user": {"login": "octocat"}, "created_at": "2024-05-02T10:00:00Z"},
			{"id": 13, "path": "app/util.py", "original_line": 9, "body": "Add docstring",
			 "user": {"login": "sonarcloud[bot]"}, "created_at": "2024-05-01T11:00:00Z"}
		]`)
	})
	c := newTestClient(t, mux)

	comments, err := c.ListReviewComments(context.Background(), 7)
	require.NoError(t, err)
	require.Len(t, comments, 2)

	assert.Equal(t, int64(11), comments[0].ID)
	assert.Equal(t, models.FileLocation{Path: "app/main.py", Line: 4}, comments[0].Location)
	assert.Equal(t, "Copilot", comments[0].Author)
	assert.Contains(t, comments[0].DiffContext, "Optional, Tuple")
	assert.Equal(t, models.ThreadOpen, comments[0].Status)
	assert.Equal(t, 2024, comments[0].CreatedAt.Year())

	// line falls back to original_line for outdated comments
	assert.Equal(t, 9, comments[1].Location.Line)
}

func TestClient_ListReviewThreads_Paginates(t *testing.T) {
	mux := http.NewServeMux()
	calls := 0
	mux.HandleFunc("/graphql", func(w http.ResponseWriter, r *http.Request) {
		req := decodeGraphQL(t, r)
		require.Contains(t, req.Query, "reviewThreads")
		assert.Equal(t, "octo", req.Variables["owner"])
		assert.Equal(t, "demo", req.Variables["name"])
		calls++
		if calls == 1 {
			assert.Nil(t, req.Variables["endCursor"])
			writeJSON(w, http.StatusOK, `{"data":{"repository":{"pullRequest":{"reviewThreads":{
				"nodes":[{"id":"T1","isResolved":false,"path":"a.py","comments":{"nodes":[{"databaseId":11}]}}],
				"pageInfo":{"hasNextPage":true,"endCursor":"c1"}}}}}}`)
			return
		}
		assert.Equal(t, "c1", req.Variables["endCursor"])
		writeJSON(w, http.StatusOK, `{"data":{"repository":{"pullRequest":{"reviewThreads":{
			"nodes":[{"id":"T2","isResolved":true,"path":"b.py","comments":{"nodes":[{"databaseId":21},{"databaseId":22}]}}],
			"pageInfo":{"hasNextPage":false,"endCursor":"c2"}}}}}}`)
	})
	c := newTestClient(t, mux)

	threads, err := c.ListReviewThreads(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
	assert.Equal(t, []models.ReviewThread{
		{ID: "T1", IsResolved: false, Path: "a.py", CommentIDs: []int64{11}},
		{ID: "T2", IsResolved: true, Path: "b.py", CommentIDs: []int64{21, 22}},
	}, threads)
}

func TestClient_ResolveThread(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/graphql", func(w http.ResponseWriter, r *http.Request) {
		req := decodeGraphQL(t, r)
		require.Contains(t, req.Query, "resolveReviewThread")
		input, ok := req.Variables["input"].(map[string]interface{})
		require.True(t, ok)
		assert.Equal(t, "T1", input["threadId"])
		writeJSON(w, http.StatusOK, `{"data":{"resolveReviewThread":{"thread":{"id":"T1","isResolved":true}}}}`)
	})
	c := newTestClient(t, mux)

	resolved, err := c.ResolveThread(context.Background(), "T1")
	require.NoError(t, err)
	assert.True(t, resolved)
}

func TestClient_GetThreadResolved(t *testing.T) {
	tests := []struct {
		name     string
		response string
		want     bool
		wantKind apperr.Kind
	}{
		{
			name:     "resolved thread",
			response: `{"data":{"node":{"id":"T1","isResolved":true}}}`,
			want:     true,
		},
		{
			name:     "unknown node",
			response: `{"data":{"node":null}}`,
			wantKind: apperr.KindNotFound,
		},
		{
			name:     "graphql not found error",
			response: `{"data":null,"errors":[{"type":"NOT_FOUND","message":"Could not resolve to a node"}]}`,
			wantKind: apperr.KindNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mux := http.NewServeMux()
			mux.HandleFunc("/graphql", func(w http.ResponseWriter, r *http.Request) {
				req := decodeGraphQL(t, r)
				assert.Equal(t, "T1", req.Variables["id"])
				writeJSON(w, http.StatusOK, tt.response)
			})
			c := newTestClient(t, mux)

			got, err := c.GetThreadResolved(context.Background(), "T1")
			if tt.wantKind != "" {
				require.Error(t, err)
				assert.Equal(t, tt.wantKind, apperr.KindOf(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestClient_PostReply(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/repos/octo/demo/pulls/7/comments/11/replies", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "thanks", body["body"])
		writeJSON(w, http.StatusCreated, `{"id": 99, "body": "thanks"}`)
	})
	c := newTestClient(t, mux)

	id, err := c.PostReply(context.Background(), 7, 11, "thanks")
	require.NoError(t, err)
	assert.Equal(t, int64(99), id)
}

func TestClient_PostReply_ErrorKinds(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		headers map[string]string
		body    string
		want    apperr.Kind
	}{
		{name: "forbidden", status: http.StatusForbidden, body: `{"message":"Resource not accessible by integration"}`, want: apperr.KindPermission},
		{name: "unauthorized", status: http.StatusUnauthorized, body: `{"message":"Bad credentials"}`, want: apperr.KindPermission},
		{name: "rate limited", status: http.StatusForbidden, headers: map[string]string{"X-RateLimit-Remaining": "0"}, body: `{"message":"API rate limit exceeded"}`, want: apperr.KindTransient},
		{name: "too many requests", status: http.StatusTooManyRequests, body: `{"message":"slow down"}`, want: apperr.KindTransient},
		{name: "not found", status: http.StatusNotFound, body: `{"message":"Not Found"}`, want: apperr.KindNotFound},
		{name: "bad gateway", status: http.StatusBadGateway, body: `{"message":"Server Error"}`, want: apperr.KindTransient},
		{name: "validation", status: http.StatusUnprocessableEntity, body: `{"message":"Validation Failed"}`, want: apperr.KindInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mux := http.NewServeMux()
			mux.HandleFunc("/repos/octo/demo/pulls/7/comments/11/replies", func(w http.ResponseWriter, r *http.Request) {
				for k, v := range tt.headers {
					w.Header().Set(k, v)
				}
				writeJSON(w, tt.status, tt.body)
			})
			c := newTestClient(t, mux)

			_, err := c.PostReply(context.Background(), 7, 11, "x")
			require.Error(t, err)
			assert.Equal(t, tt.want, apperr.KindOf(err))
		})
	}
}

func TestClient_GetFileContent(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/repos/octo/demo/pulls/7", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, `{"number": 7, "head": {"sha": "abc123", "ref": "feature"}}`)
	})
	mux.HandleFunc("/repos/octo/demo/contents/app/main.py", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "abc123", r.URL.Query().Get("ref"))
		// "import os\n" base64 encoded
		writeJSON(w, http.StatusOK, `{"type": "file", "encoding": "base64", "content": "aW1wb3J0IG9zCg=="}`)
	})
	c := newTestClient(t, mux)

	ref, err := c.GetHeadRef(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, "abc123", ref)

	content, err := c.GetFileContent(context.Background(), "app/main.py", ref)
	require.NoError(t, err)
	assert.Equal(t, "import os\n", content)
}

func TestClient_ListOpenPullRequests(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/graphql", func(w http.ResponseWriter, r *http.Request) {
		req := decodeGraphQL(t, r)
		query, _ := req.Variables["query"].(string)
		assert.True(t, strings.HasPrefix(query, "repo:octo/demo is:pr state:open author:@me"))
		writeJSON(w, http.StatusOK, `{"data":{"search":{"nodes":[
			{"number":7,"title":"Add parser","state":"OPEN","isDraft":false,"updatedAt":"2024-05-02T10:00:00Z","createdAt":"2024-05-01T10:00:00Z","author":{"login":"octocat"}},
			{}
		],"pageInfo":{"hasNextPage":false,"endCursor":""}}}}`)
	})
	c := newTestClient(t, mux)

	prs, err := c.ListOpenPullRequests(context.Background())
	require.NoError(t, err)
	require.Len(t, prs, 1)
	assert.Equal(t, models.PullRequestInfo{
		Number:    7,
		Title:     "Add parser",
		User:      "octocat",
		State:     "OPEN",
		UpdatedAt: "2024-05-02T10:00:00Z",
		CreatedAt: "2024-05-01T10:00:00Z",
	}, prs[0])
}
