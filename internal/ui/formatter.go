package ui

import (
	"fmt"
	"strings"

	"github.com/mattn/go-runewidth"

	"github.com/ryo246912/gh-review-triage/internal/models"
)

func PadRight(str string, width int) string {
	w := runewidth.StringWidth(str)
	if w < width {
		return str + strings.Repeat(" ", width-w)
	}
	return str
}

// Truncate cuts str to width display columns, ending with "..." when shortened.
func Truncate(str string, width int) string {
	return runewidth.Truncate(str, width, "...")
}

// FirstLine returns the first non-empty line of s.
func FirstLine(s string) string {
	for _, line := range strings.Split(s, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			return line
		}
	}
	return ""
}

// FormatRequest renders a decision request for the terminal.
func FormatRequest(req models.DecisionRequest) string {
	var b strings.Builder
	c := req.Comment
	v := req.Verdict
	fmt.Fprintf(&b, "\n%s  %s  @%s\n", PadRight(fmt.Sprintf("#%d", c.ID), 12), c.Location, c.Author)
	fmt.Fprintf(&b, "%s\n\n", strings.TrimSpace(c.Body))
	fmt.Fprintf(&b, "%s\n\n", req.CodeContext.Render())

	status := string(v.Status)
	if v.PatternName != "" {
		status += " (" + v.PatternName + ")"
	}
	fmt.Fprintf(&b, "Verdict: %s  confidence %.2f  [%s]\n", status, v.Confidence, v.Source)
	if v.Reasoning != "" {
		fmt.Fprintf(&b, "Reason:  %s\n", v.Reasoning)
	}
	if fix := v.SuggestedFix; fix != nil {
		replacement := fix.Replacement
		if replacement == "" {
			replacement = "(remove line)"
		}
		fmt.Fprintf(&b, "Fix:     %s\n         - %s\n         + %s\n", fix.Explanation, fix.Original, replacement)
	}
	return b.String()
}

// FormatComments renders one row per comment.
func FormatComments(comments []models.Comment) string {
	if len(comments) == 0 {
		return "No review comments found."
	}
	var b strings.Builder
	for _, c := range comments {
		fmt.Fprintf(&b, "%s %s %s %s %s\n",
			PadRight(fmt.Sprintf("%d", c.ID), 12),
			PadRight(Truncate(c.Author, 24), 24),
			PadRight(string(c.Status), 9),
			PadRight(Truncate(c.Location.String(), 40), 40),
			Truncate(FirstLine(c.Body), 60),
		)
	}
	return strings.TrimSuffix(b.String(), "\n")
}

// FormatResult renders a single execution result.
func FormatResult(r models.ExecutionResult) string {
	mark := "✔"
	if !r.Success {
		mark = "✘"
	}
	var flags []string
	if r.ReplyPosted {
		flags = append(flags, "replied")
	}
	if r.ThreadResolved {
		flags = append(flags, "resolved")
	}
	line := fmt.Sprintf("%s %s %s %s",
		mark,
		PadRight(fmt.Sprintf("%d", r.CommentID), 12),
		PadRight(string(r.Action), 8),
		PadRight(strings.Join(flags, ","), 17),
	)
	if r.Error != "" {
		line += fmt.Sprintf("[%s] %s", r.ErrorKind, r.Error)
	}
	return strings.TrimRight(line, " ")
}

// FormatReport renders a batch report with one line per result and a summary.
func FormatReport(report models.BatchReport) string {
	var b strings.Builder
	for _, r := range report.Results {
		b.WriteString(FormatResult(r))
		b.WriteByte('\n')
	}
	prefix := ""
	if report.DryRun {
		prefix = "(dry run) "
	}
	fmt.Fprintf(&b, "%sProcessed %d/%d: %d succeeded, %d failed (%s)",
		prefix, report.Processed, report.TotalComments, report.Succeeded, report.Failed, report.Outcome)
	return b.String()
}
