package cli

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ryo246912/gh-review-triage/internal/models"
	"github.com/ryo246912/gh-review-triage/internal/service"
	"github.com/ryo246912/gh-review-triage/internal/ui"
)

// filterFlags are shared by the commands that select comments.
type filterFlags struct {
	authors    []string
	status     string
	keywords   []string
	minAgeDays int
	botsOnly   bool
}

func (f *filterFlags) register(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.StringSliceVar(&f.authors, "author", nil, "only comments by these authors")
	flags.StringVar(&f.status, "status", "", "thread status: open, resolved or all")
	flags.StringSliceVar(&f.keywords, "keyword", nil, "only comments containing one of these keywords")
	flags.IntVar(&f.minAgeDays, "min-age-days", 0, "only comments older than this many days")
	flags.BoolVar(&f.botsOnly, "bots-only", false, "only comments by known bots")
}

func (f *filterFlags) filters() (models.CommentFilters, error) {
	filters := models.CommentFilters{
		Authors:    f.authors,
		Status:     models.ThreadStatus(strings.ToLower(f.status)),
		Keywords:   f.keywords,
		MinAgeDays: f.minAgeDays,
		BotsOnly:   f.botsOnly,
	}
	return filters, filters.Validate()
}

func requirePR(pr int) error {
	if pr <= 0 {
		return fmt.Errorf("--pr is required and must be positive")
	}
	return nil
}

func newFetchCommand(a *app) *cobra.Command {
	var pr int
	var ff filterFlags
	cmd := &cobra.Command{
		Use:   "fetch",
		Short: "List the review comments of a pull request",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requirePR(pr); err != nil {
				return err
			}
			filters, err := ff.filters()
			if err != nil {
				return err
			}
			comments, err := a.svc.FetchComments(cmd.Context(), pr, a.opts.repo, filters)
			if err != nil {
				return err
			}
			return a.render(cmd.OutOrStdout(), comments, func() string { return ui.FormatComments(comments) })
		},
	}
	cmd.Flags().IntVar(&pr, "pr", 0, "pull request number")
	ff.register(cmd)
	return cmd
}

func newAnalyzeCommand(a *app) *cobra.Command {
	var pr int
	var commentID int64
	var mode string
	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Classify a single review comment",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requirePR(pr); err != nil {
				return err
			}
			m, err := service.ParseMode(mode)
			if err != nil {
				return err
			}
			analysis, err := a.svc.AnalyzeComment(cmd.Context(), commentID, pr, a.opts.repo, m)
			if err != nil {
				return err
			}
			return a.render(cmd.OutOrStdout(), analysis, func() string {
				return ui.FormatRequest(models.DecisionRequest{
					Comment:     analysis.Comment,
					Verdict:     analysis.Verdict,
					CodeContext: analysis.CodeContext,
				})
			})
		},
	}
	cmd.Flags().IntVar(&pr, "pr", 0, "pull request number")
	cmd.Flags().Int64Var(&commentID, "comment", 0, "review comment id")
	cmd.Flags().StringVar(&mode, "mode", string(service.ModePattern), "classifier: pattern or llm")
	_ = cmd.MarkFlagRequired("comment")
	return cmd
}

func newPrepareCommand(a *app) *cobra.Command {
	var pr int
	var mode string
	var ff filterFlags
	cmd := &cobra.Command{
		Use:   "prepare",
		Short: "Classify open comments and split them into automatic and manual decisions",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requirePR(pr); err != nil {
				return err
			}
			m, err := service.ParseMode(mode)
			if err != nil {
				return err
			}
			filters, err := ff.filters()
			if err != nil {
				return err
			}
			prepared, err := a.svc.PrepareDecisions(cmd.Context(), pr, a.opts.repo, m, filters)
			if err != nil {
				return err
			}
			return a.render(cmd.OutOrStdout(), prepared, func() string { return formatPrepared(prepared) })
		},
	}
	cmd.Flags().IntVar(&pr, "pr", 0, "pull request number")
	cmd.Flags().StringVar(&mode, "mode", string(service.ModePattern), "classifier: pattern or llm")
	ff.register(cmd)
	return cmd
}

func formatPrepared(p models.PreparedDecisions) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d comment(s): %d automatic, %d need input\n", p.TotalComments, len(p.AutoResolvable), len(p.NeedsInput))
	for _, a := range p.AutoResolvable {
		fmt.Fprintf(&b, "  auto  %s %s %s\n",
			ui.PadRight(fmt.Sprintf("%d", a.Comment.ID), 12),
			ui.PadRight(string(a.Decision.Action), 8),
			ui.Truncate(ui.FirstLine(a.Comment.Body), 60))
	}
	for _, r := range p.NeedsInput {
		fmt.Fprintf(&b, "  input %s %s %s\n",
			ui.PadRight(fmt.Sprintf("%d", r.Comment.ID), 12),
			ui.PadRight(string(r.Verdict.Status), 8),
			ui.Truncate(ui.FirstLine(r.Comment.Body), 60))
	}
	return strings.TrimSuffix(b.String(), "\n")
}

func newExecuteCommand(a *app) *cobra.Command {
	var pr int
	var commentID int64
	var action, message string
	cmd := &cobra.Command{
		Use:   "execute",
		Short: "Apply fix, dismiss or skip to one review comment",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requirePR(pr); err != nil {
				return err
			}
			act, err := models.ParseAction(action)
			if err != nil {
				return err
			}
			res, err := a.svc.ExecuteDecision(cmd.Context(), commentID, pr, act, a.opts.repo, message)
			if err != nil {
				return err
			}
			if err := a.render(cmd.OutOrStdout(), res, func() string { return ui.FormatResult(res) }); err != nil {
				return err
			}
			if !res.Success {
				return fmt.Errorf("failed to %s comment %d", act, commentID)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&pr, "pr", 0, "pull request number")
	cmd.Flags().Int64Var(&commentID, "comment", 0, "review comment id")
	cmd.Flags().StringVar(&action, "action", "", "fix, dismiss or skip")
	cmd.Flags().StringVarP(&message, "message", "m", "", "reply message (default: built-in message for the action)")
	_ = cmd.MarkFlagRequired("comment")
	_ = cmd.MarkFlagRequired("action")
	return cmd
}

func newBulkCloseCommand(a *app) *cobra.Command {
	var pr int
	var opts service.BulkOptions
	var ff filterFlags
	cmd := &cobra.Command{
		Use:   "bulk-close",
		Short: "Reply to every matching comment without classification",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requirePR(pr); err != nil {
				return err
			}
			filters, err := ff.filters()
			if err != nil {
				return err
			}
			opts.Filters = filters
			report, err := a.svc.BulkClose(cmd.Context(), pr, a.opts.repo, opts)
			if err != nil {
				return err
			}
			return a.render(cmd.OutOrStdout(), report, func() string { return ui.FormatReport(report) })
		},
	}
	cmd.Flags().IntVar(&pr, "pr", 0, "pull request number")
	cmd.Flags().StringVarP(&opts.Message, "message", "m", "", "reply message")
	cmd.Flags().BoolVar(&opts.ResolveThreads, "resolve", true, "resolve the threads after replying")
	cmd.Flags().BoolVar(&opts.DryRun, "dry-run", false, "show what would be done without writing")
	ff.register(cmd)
	return cmd
}

func newTriageCommand(a *app) *cobra.Command {
	var opts service.TriageOptions
	var mode string
	var ff filterFlags
	cmd := &cobra.Command{
		Use:   "triage [PR]",
		Short: "Interactively triage the review comments of a pull request",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				pr, err := strconv.Atoi(args[0])
				if err != nil {
					return fmt.Errorf("invalid PR number: %w", err)
				}
				if pr <= 0 {
					return fmt.Errorf("PR number must be positive")
				}
				opts.PR = pr
			}
			m, err := service.ParseMode(mode)
			if err != nil {
				return err
			}
			filters, err := ff.filters()
			if err != nil {
				return err
			}
			opts.Mode = m
			opts.Filters = filters
			opts.Repo = a.opts.repo

			summary, err := a.svc.Triage(cmd.Context(), opts)
			if errors.Is(err, service.ErrCancelled) {
				fmt.Fprintln(cmd.ErrOrStderr(), "Cancelled, nothing was changed.")
				return nil
			}
			if err != nil {
				return err
			}
			return a.render(cmd.OutOrStdout(), summary, func() string {
				return fmt.Sprintf("%s#%d: %d automatic, %d prompted\n%s",
					summary.Repo, summary.PR, summary.Auto, summary.Prompted, ui.FormatReport(summary.Report))
			})
		},
	}
	cmd.Flags().StringVar(&mode, "mode", string(service.ModePattern), "classifier: pattern or llm")
	cmd.Flags().BoolVar(&opts.NoAuto, "no-auto", false, "ask about confident verdicts too")
	cmd.Flags().BoolVar(&opts.DryRun, "dry-run", false, "show what would be done without writing")
	ff.register(cmd)
	return cmd
}
