package github

import (
	"fmt"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/ryo246912/gh-review-triage/internal/apperr"
	"github.com/ryo246912/gh-review-triage/internal/models"
)

// ClientFactory builds the API for one repository.
type ClientFactory func(identity models.RepoIdentity, token string) (API, error)

// NewClientFactory returns a factory producing go-gh backed clients from a template.
// Identity and token are filled in per call; the limiter is shared.
func NewClientFactory(template ClientOptions) ClientFactory {
	return func(identity models.RepoIdentity, token string) (API, error) {
		opts := template
		opts.Identity = identity
		opts.Token = token
		return NewClient(opts)
	}
}

// Manager owns one RepoClient per repository identity.
type Manager struct {
	mu      sync.Mutex
	clients map[models.RepoIdentity]*RepoClient

	factory ClientFactory
	tokens  TokenSource
	host    string
	logger  zerolog.Logger
}

// ManagerOptions configures a Manager.
type ManagerOptions struct {
	Factory ClientFactory
	// Tokens resolves a token when none is passed to GetClient.
	Tokens TokenSource
	Host   string
	Logger zerolog.Logger
}

// NewManager returns an empty Manager.
func NewManager(opts ManagerOptions) *Manager {
	host := opts.Host
	if host == "" {
		host = DefaultHost
	}
	tokens := opts.Tokens
	if tokens == nil {
		tokens = TokenFromEnvironment
	}
	factory := opts.Factory
	if factory == nil {
		factory = NewClientFactory(ClientOptions{Host: host})
	}
	return &Manager{
		clients: make(map[models.RepoIdentity]*RepoClient),
		factory: factory,
		tokens:  tokens,
		host:    host,
		logger:  opts.Logger,
	}
}

// GetClient returns the client bound to identity, creating it on first use.
// On a hit the token argument is ignored: the first caller's credentials stay in effect.
func (m *Manager) GetClient(identity models.RepoIdentity, token string) (*RepoClient, error) {
	if identity.IsZero() {
		return nil, apperr.Configuration("repository identity is required")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if rc, ok := m.clients[identity]; ok {
		m.logger.Debug().Str("repo", identity.String()).Msg("repo client cache hit")
		return rc, nil
	}

	if strings.TrimSpace(token) == "" {
		token = m.tokens(m.host)
	}
	if token == "" {
		return nil, apperr.Configuration("no GitHub token found for %s (set GH_TOKEN or run 'gh auth login')", m.host)
	}

	api, err := m.factory(identity, token)
	if err != nil {
		return nil, apperr.New(apperr.KindConfiguration, "create client", fmt.Errorf("failed to create client for %s: %w", identity, err))
	}
	rc := NewRepoClient(identity, api, m.logger)
	m.clients[identity] = rc
	m.logger.Debug().Str("repo", identity.String()).Msg("repo client created")
	return rc, nil
}

// Clear drops the client for identity.
func (m *Manager) Clear(identity models.RepoIdentity) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.clients, identity)
}

// ClearAll drops every client.
func (m *Manager) ClearAll() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.clients = make(map[models.RepoIdentity]*RepoClient)
}

// Len returns the number of cached clients.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.clients)
}
