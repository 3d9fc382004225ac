package ui

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/manifoldco/promptui"

	"github.com/ryo246912/gh-review-triage/internal/models"
)

func SelectPR(prs []models.PullRequestInfo) (int, error) {
	if len(prs) == 0 {
		return 0, fmt.Errorf("no open pull requests found")
	}

	items := make([]string, len(prs))
	for i, pr := range prs {
		state := pr.State
		if pr.Draft {
			state += " (Draft)"
		}
		items[i] = fmt.Sprintf(
			"#%s %s %s %s %s",
			PadRight(fmt.Sprintf("%-6d", pr.Number), 7),
			PadRight(Truncate(pr.Title, 75), 75),
			PadRight(pr.User, 15),
			PadRight(state, 10),
			PadRight(pr.UpdatedAt, 20),
		)
	}

	prompt := promptui.Select{
		Label: "Select PR",
		Items: items,
		Size:  12,
		Searcher: func(input string, index int) bool {
			return strings.Contains(strings.ToLower(items[index]), strings.ToLower(input))
		},
		StartInSearchMode: true,
	}

	idx, _, err := prompt.Run()
	if err != nil {
		return 0, fmt.Errorf("prompt failed: %w", err)
	}
	return prs[idx].Number, nil
}

// SelectAction prints the decision request and lets the user pick one of its options
func SelectAction(req models.DecisionRequest) (models.Action, error) {
	if len(req.Options) == 0 {
		return "", fmt.Errorf("no actions offered for comment %d", req.Comment.ID)
	}

	fmt.Fprintln(os.Stderr, FormatRequest(req))

	prompt := promptui.Select{
		Label: fmt.Sprintf("Action for comment %d", req.Comment.ID),
		Items: req.Options,
		Size:  len(req.Options),
		Templates: &promptui.SelectTemplates{
			Label:    "{{ . }}",
			Active:   "▸ {{ .Label | cyan }} - {{ .Description | faint }}",
			Inactive: "  {{ .Label }} - {{ .Description | faint }}",
			Selected: "✔ {{ .Label | green }}",
		},
	}

	idx, _, err := prompt.Run()
	if err != nil {
		return "", fmt.Errorf("action selection failed: %w", err)
	}
	return req.Options[idx].Action, nil
}

// EnterMessage asks for the reply text; an empty answer keeps defaultMessage
func EnterMessage(defaultMessage string) (string, error) {
	prompt := promptui.Prompt{
		Label:     "Reply message",
		Default:   defaultMessage,
		AllowEdit: true,
	}

	message, err := prompt.Run()
	if err != nil {
		return "", fmt.Errorf("message entry failed: %w", err)
	}
	if strings.TrimSpace(message) == "" {
		return defaultMessage, nil
	}
	return message, nil
}

// ConfirmSelection asks for user confirmation
func ConfirmSelection(summary string) (bool, error) {
	prompt := promptui.Prompt{
		Label:     fmt.Sprintf("%s. Is this correct", summary),
		IsConfirm: true,
	}

	_, err := prompt.Run()
	if errors.Is(err, promptui.ErrAbort) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to read confirmation: %w", err)
	}
	return true, nil
}
