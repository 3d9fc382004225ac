package ui

import "github.com/ryo246912/gh-review-triage/internal/models"

// Prompter defines interface for user interaction
type Prompter interface {
	SelectPR(prs []models.PullRequestInfo) (int, error)
	SelectAction(req models.DecisionRequest) (models.Action, error)
	EnterMessage(defaultMessage string) (string, error)
	ConfirmSelection(summary string) (bool, error)
}

// DefaultPrompter implements the actual prompting logic
type DefaultPrompter struct{}

// SelectPR prompts user to select a PR
func (p *DefaultPrompter) SelectPR(prs []models.PullRequestInfo) (int, error) {
	return SelectPR(prs)
}

// SelectAction shows one comment and asks what to do with it
func (p *DefaultPrompter) SelectAction(req models.DecisionRequest) (models.Action, error) {
	return SelectAction(req)
}

// EnterMessage asks for a reply, prefilled with defaultMessage
func (p *DefaultPrompter) EnterMessage(defaultMessage string) (string, error) {
	return EnterMessage(defaultMessage)
}

// ConfirmSelection prompts user to confirm selection
func (p *DefaultPrompter) ConfirmSelection(summary string) (bool, error) {
	return ConfirmSelection(summary)
}

// MockPrompter for testing
type MockPrompter struct {
	SelectedPRNumber int
	PRSelectionError error

	// Actions are returned in order, one per SelectAction call. Once exhausted
	// DefaultAction is returned.
	Actions              []models.Action
	DefaultAction        models.Action
	ActionSelectionError error

	// Message is returned by EnterMessage; empty keeps the default.
	Message      string
	MessageError error

	ConfirmedSelection bool
	ConfirmationError  error

	// Call tracking
	SelectPRCalled         bool
	SelectActionCalls      []models.DecisionRequest
	EnterMessageCalls      []string
	ConfirmSelectionCalled bool
	ConfirmedSummary       string
}

// SelectPR mocks PR selection
func (m *MockPrompter) SelectPR(prs []models.PullRequestInfo) (int, error) {
	m.SelectPRCalled = true
	return m.SelectedPRNumber, m.PRSelectionError
}

// SelectAction mocks the per-item decision
func (m *MockPrompter) SelectAction(req models.DecisionRequest) (models.Action, error) {
	n := len(m.SelectActionCalls)
	m.SelectActionCalls = append(m.SelectActionCalls, req)
	if m.ActionSelectionError != nil {
		return "", m.ActionSelectionError
	}
	if n < len(m.Actions) {
		return m.Actions[n], nil
	}
	if m.DefaultAction == "" {
		return models.ActionSkip, nil
	}
	return m.DefaultAction, nil
}

// EnterMessage mocks message entry
func (m *MockPrompter) EnterMessage(defaultMessage string) (string, error) {
	m.EnterMessageCalls = append(m.EnterMessageCalls, defaultMessage)
	if m.MessageError != nil {
		return "", m.MessageError
	}
	if m.Message == "" {
		return defaultMessage, nil
	}
	return m.Message, nil
}

// ConfirmSelection mocks confirmation
func (m *MockPrompter) ConfirmSelection(summary string) (bool, error) {
	m.ConfirmSelectionCalled = true
	m.ConfirmedSummary = summary
	return m.ConfirmedSelection, m.ConfirmationError
}
