package github

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/cli/go-gh/v2/pkg/api"
	"github.com/cli/go-gh/v2/pkg/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ryo246912/gh-review-triage/internal/apperr"
	"github.com/ryo246912/gh-review-triage/internal/models"
)

func TestBotSet_IsAutomated(t *testing.T) {
	bots := NewBotSet("acme-linter")

	tests := []struct {
		login    string
		expected bool
	}{
		{login: "Copilot", expected: true},
		{login: "copilot", expected: true},
		{login: "github-advanced-security", expected: true},
		{login: "github-actions[bot]", expected: true},
		{login: "acme-linter", expected: true},
		{login: "octocat", expected: false},
		{login: "", expected: false},
	}

	for _, tt := range tests {
		t.Run(tt.login, func(t *testing.T) {
			if got := bots.IsAutomated(tt.login); got != tt.expected {
				t.Errorf("IsAutomated(%q) = %v, want %v", tt.login, got, tt.expected)
			}
		})
	}
}

func TestIdentityResolver_Resolve(t *testing.T) {
	local := func() (repository.Repository, error) {
		return repository.Repository{Host: "github.com", Owner: "local", Name: "checkout"}, nil
	}
	noLocal := func() (repository.Repository, error) {
		return repository.Repository{}, errors.New("not a git repository")
	}

	tests := []struct {
		name       string
		configured string
		current    func() (repository.Repository, error)
		explicit   string
		want       models.RepoIdentity
		wantErr    bool
	}{
		{name: "explicit wins", configured: "cfg/repo", current: local, explicit: "https://github.com/octo/demo.git", want: "octo/demo"},
		{name: "configured before local", configured: "cfg/repo", current: local, want: "cfg/repo"},
		{name: "local fallback", current: local, want: "local/checkout"},
		{name: "nothing found", current: noLocal, wantErr: true},
		{name: "malformed explicit", current: local, explicit: "just-a-name", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := &IdentityResolver{Configured: tt.configured, Current: tt.current}
			got, err := r.Resolve(tt.explicit)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, apperr.IsConfiguration(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestIdentityResolver_NoStickyState(t *testing.T) {
	r := &IdentityResolver{Current: func() (repository.Repository, error) {
		return repository.Repository{Owner: "local", Name: "checkout"}, nil
	}}

	first, err := r.Resolve("octo/alpha")
	require.NoError(t, err)
	second, err := r.Resolve("octo/beta")
	require.NoError(t, err)
	third, err := r.Resolve("")
	require.NoError(t, err)

	assert.Equal(t, models.RepoIdentity("octo/alpha"), first)
	assert.Equal(t, models.RepoIdentity("octo/beta"), second)
	assert.Equal(t, models.RepoIdentity("local/checkout"), third)
}

func TestTokenFromEnvironment(t *testing.T) {
	t.Setenv("GH_TOKEN", "")
	t.Setenv("GITHUB_TOKEN", "from-github-token")
	assert.Equal(t, "from-github-token", TokenFromEnvironment("github.com"))

	t.Setenv("GH_TOKEN", "from-gh-token")
	assert.Equal(t, "from-gh-token", TokenFromEnvironment("github.com"))
}

func TestThreadStatusCache(t *testing.T) {
	c := NewThreadStatusCache()
	fixed := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return fixed }

	_, ok := c.IsResolved("T1")
	assert.False(t, ok)

	c.Record("T1", false)
	resolved, ok := c.IsResolved("T1")
	assert.True(t, ok)
	assert.False(t, resolved)

	c.RecordResolved("T1")
	entry, ok := c.Entry("T1")
	require.True(t, ok)
	assert.Equal(t, ThreadStatusEntry{Resolved: true, LastChecked: fixed}, entry)

	c.Invalidate("T1")
	_, ok = c.IsResolved("T1")
	assert.False(t, ok)
	assert.Equal(t, 0, c.Len())
}

func TestClassifyError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want apperr.Kind
	}{
		{name: "deadline", err: context.DeadlineExceeded, want: apperr.KindTransient},
		{name: "graphql forbidden", err: &api.GraphQLError{Errors: []api.GraphQLErrorItem{{Type: "FORBIDDEN"}}}, want: apperr.KindPermission},
		{name: "graphql rate limited", err: &api.GraphQLError{Errors: []api.GraphQLErrorItem{{Type: "RATE_LIMITED"}}}, want: apperr.KindTransient},
		{name: "graphql 502", err: fmt.Errorf("non-200 OK status code: 502 Bad Gateway body: %q", ""), want: apperr.KindTransient},
		{name: "http 404", err: &api.HTTPError{StatusCode: 404}, want: apperr.KindNotFound},
		{name: "other", err: errors.New("boom"), want: apperr.KindInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := classifyError("op", tt.err)
			assert.Equal(t, tt.want, apperr.KindOf(err))
			assert.ErrorIs(t, err, tt.err)
		})
	}

	assert.NoError(t, classifyError("op", nil))
}
