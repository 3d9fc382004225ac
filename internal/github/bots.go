package github

import "strings"

// DefaultBotAuthors are review bots recognized without configuration.
var DefaultBotAuthors = []string{
	"github-copilot",
	"Copilot",
	"copilot-pull-request-reviewer",
	"github-advanced-security",
	"github-code-quality[bot]",
	"dependabot",
	"dependabot[bot]",
	"snyk-bot",
	"codecov",
	"codecov-io",
	"renovate",
	"renovate[bot]",
	"deepsource-io[bot]",
	"sonarcloud[bot]",
}

// BotSet is an allow-list of automated reviewer logins.
type BotSet struct {
	logins map[string]struct{}
}

// NewBotSet builds the built-in allow-list extended with extra logins.
func NewBotSet(extra ...string) *BotSet {
	s := &BotSet{logins: make(map[string]struct{}, len(DefaultBotAuthors)+len(extra))}
	for _, login := range DefaultBotAuthors {
		s.logins[strings.ToLower(login)] = struct{}{}
	}
	for _, login := range extra {
		if login = strings.TrimSpace(login); login != "" {
			s.logins[strings.ToLower(login)] = struct{}{}
		}
	}
	return s
}

// IsAutomated checks if login belongs to an automated reviewer
func (s *BotSet) IsAutomated(login string) bool {
	if login == "" {
		return false
	}
	if strings.HasSuffix(login, "[bot]") {
		return true
	}
	_, ok := s.logins[strings.ToLower(login)]
	return ok
}

// Logins returns the configured allow-list.
func (s *BotSet) Logins() []string {
	out := make([]string, 0, len(s.logins))
	for login := range s.logins {
		out = append(out, login)
	}
	return out
}
