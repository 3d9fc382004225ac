package github

import (
	"os"
	"strings"

	"github.com/cli/go-gh/v2/pkg/auth"
	"github.com/cli/go-gh/v2/pkg/repository"

	"github.com/ryo246912/gh-review-triage/internal/apperr"
	"github.com/ryo246912/gh-review-triage/internal/models"
)

// IdentityResolver discovers which repository a call addresses.
// It keeps no state between calls, so an explicit identity is never overridden by an earlier one.
type IdentityResolver struct {
	// Configured is the repository from the config file or environment.
	Configured string
	// Current discovers the repository of the working directory.
	Current func() (repository.Repository, error)
}

// NewIdentityResolver returns a resolver that falls back to the git remote of the working directory.
func NewIdentityResolver(configured string) *IdentityResolver {
	return &IdentityResolver{
		Configured: configured,
		Current:    repository.Current,
	}
}

// Resolve returns explicit when given, then the configured repository, then the local one.
func (r *IdentityResolver) Resolve(explicit string) (models.RepoIdentity, error) {
	if strings.TrimSpace(explicit) != "" {
		id, err := models.ParseRepoIdentity(explicit)
		if err != nil {
			return "", apperr.Configuration("%v", err)
		}
		return id, nil
	}
	if strings.TrimSpace(r.Configured) != "" {
		id, err := models.ParseRepoIdentity(r.Configured)
		if err != nil {
			return "", apperr.Configuration("%v", err)
		}
		return id, nil
	}
	if r.Current == nil {
		return "", apperr.Configuration("no repository specified")
	}
	repo, err := r.Current()
	if err != nil {
		return "", apperr.Configuration("could not determine repository from the current directory (use --repo owner/name): %v", err)
	}
	return models.NewRepoIdentity(repo.Owner, repo.Name), nil
}

// TokenSource resolves a token for a host. An empty result means none was found.
type TokenSource func(host string) string

// TokenFromEnvironment checks GH_TOKEN, GITHUB_TOKEN, then gh's stored credentials.
func TokenFromEnvironment(host string) string {
	for _, key := range []string{"GH_TOKEN", "GITHUB_TOKEN"} {
		if token := strings.TrimSpace(os.Getenv(key)); token != "" {
			return token
		}
	}
	token, _ := auth.TokenForHost(host)
	return token
}
