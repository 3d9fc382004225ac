package models

import (
	"fmt"
	"strings"
)

// RepoIdentity is the canonical "owner/name" key of a remote repository.
type RepoIdentity string

// ParseRepoIdentity normalizes s into a RepoIdentity.
// Accepted forms: "owner/name", "https://github.com/owner/name(.git)",
// "git@github.com:owner/name(.git)" and "github.com/owner/name".
func ParseRepoIdentity(s string) (RepoIdentity, error) {
	normalized := strings.TrimSpace(s)
	normalized = strings.TrimSuffix(normalized, "/")
	normalized = strings.TrimSuffix(normalized, ".git")
	for _, prefix := range []string{"https://", "http://", "ssh://", "git@"} {
		normalized = strings.TrimPrefix(normalized, prefix)
	}
	if i := strings.Index(normalized, ":"); i >= 0 {
		normalized = normalized[i+1:]
	}

	parts := strings.Split(normalized, "/")
	// host/owner/name
	if len(parts) == 3 && strings.Contains(parts[0], ".") {
		parts = parts[1:]
	}
	if len(parts) != 2 || strings.TrimSpace(parts[0]) == "" || strings.TrimSpace(parts[1]) == "" {
		return "", fmt.Errorf("invalid repository %q: expected owner/name", s)
	}
	return RepoIdentity(parts[0] + "/" + parts[1]), nil
}

// NewRepoIdentity builds an identity from its parts.
func NewRepoIdentity(owner, name string) RepoIdentity {
	return RepoIdentity(owner + "/" + name)
}

// Owner returns the owner part.
func (r RepoIdentity) Owner() string {
	owner, _, _ := strings.Cut(string(r), "/")
	return owner
}

// Name returns the repository name part.
func (r RepoIdentity) Name() string {
	_, name, _ := strings.Cut(string(r), "/")
	return name
}

func (r RepoIdentity) String() string {
	return string(r)
}

// IsZero reports whether the identity is empty.
func (r RepoIdentity) IsZero() bool {
	return strings.TrimSpace(string(r)) == ""
}
