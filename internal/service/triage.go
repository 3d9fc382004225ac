package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/ryo246912/gh-review-triage/internal/apperr"
	"github.com/ryo246912/gh-review-triage/internal/classifier"
	"github.com/ryo246912/gh-review-triage/internal/github"
	"github.com/ryo246912/gh-review-triage/internal/models"
	"github.com/ryo246912/gh-review-triage/internal/retry"
	"github.com/ryo246912/gh-review-triage/internal/ui"
)

// Mode selects the classifier used by analyze and prepare.
type Mode string

const (
	ModePattern Mode = "pattern"
	ModeLLM     Mode = "llm"
)

// ParseMode validates a user-supplied mode. Empty means pattern.
func ParseMode(s string) (Mode, error) {
	switch m := Mode(s); m {
	case "":
		return ModePattern, nil
	case ModePattern, ModeLLM:
		return m, nil
	}
	return "", fmt.Errorf("invalid mode %q: must be 'pattern' or 'llm'", s)
}

// ErrCancelled is returned when the user declines to apply the triage decisions.
var ErrCancelled = errors.New("triage cancelled")

// Options wires a TriageService.
type Options struct {
	Manager  *github.Manager
	Resolver *github.IdentityResolver
	// Token is passed to the manager; empty falls back to environment discovery.
	Token    string
	Bots     *github.BotSet
	Prompter ui.Prompter
	// Classifiers by mode. Pattern is always available.
	Classifiers    map[Mode]classifier.Classifier
	Messages       Messages
	Concurrency    int
	RequestTimeout time.Duration
	Retry          retry.Policy
	ContextLines   int
	Logger         zerolog.Logger
}

// TriageService contains the business logic
type TriageService struct {
	manager     *github.Manager
	resolver    *github.IdentityResolver
	token       string
	prompter    ui.Prompter
	classifiers map[Mode]classifier.Classifier
	fetcher     *Fetcher
	contexts    *ContextBuilder
	preparer    *Preparer
	executor    *Executor
	bulk        *BulkCloser
	logger      zerolog.Logger
}

// NewTriageService creates a new service instance
func NewTriageService(opts Options) *TriageService {
	classifiers := make(map[Mode]classifier.Classifier, len(opts.Classifiers)+1)
	for m, c := range opts.Classifiers {
		classifiers[m] = c
	}
	if classifiers[ModePattern] == nil {
		classifiers[ModePattern] = classifier.NewPatternClassifier()
	}
	resolver := opts.Resolver
	if resolver == nil {
		resolver = github.NewIdentityResolver("")
	}
	prompter := opts.Prompter
	if prompter == nil {
		prompter = &ui.DefaultPrompter{}
	}

	fetcher := NewFetcher(opts.Bots, opts.Logger)
	contexts := NewContextBuilder(opts.ContextLines, opts.ContextLines, opts.Logger)
	executor := NewExecutor(ExecutorOptions{
		Messages:       opts.Messages,
		RequestTimeout: opts.RequestTimeout,
		Concurrency:    opts.Concurrency,
		Retry:          opts.Retry,
		Logger:         opts.Logger,
	})
	return &TriageService{
		manager:     opts.Manager,
		resolver:    resolver,
		token:       opts.Token,
		prompter:    prompter,
		classifiers: classifiers,
		fetcher:     fetcher,
		contexts:    contexts,
		preparer:    NewPreparer(contexts, opts.Concurrency, opts.Logger),
		executor:    executor,
		bulk:        NewBulkCloser(fetcher, executor, opts.Logger),
		logger:      opts.Logger,
	}
}

// client resolves repo and returns its cached RepoClient. An explicit repo always wins.
func (s *TriageService) client(repo string) (*github.RepoClient, error) {
	if s.manager == nil {
		return nil, apperr.Configuration("no client manager configured")
	}
	identity, err := s.resolver.Resolve(repo)
	if err != nil {
		return nil, err
	}
	return s.manager.GetClient(identity, s.token)
}

func (s *TriageService) classifier(mode Mode) (classifier.Classifier, error) {
	if mode == "" {
		mode = ModePattern
	}
	c, ok := s.classifiers[mode]
	if !ok || c == nil {
		return nil, apperr.Configuration("%s mode is not available (set ANTHROPIC_API_KEY or thorough.api_key)", mode)
	}
	return c, nil
}

func validatePR(pr int) error {
	if pr <= 0 {
		return fmt.Errorf("PR number must be positive")
	}
	return nil
}

// FetchComments returns the review comments of pr matching filters.
func (s *TriageService) FetchComments(ctx context.Context, pr int, repo string, filters models.CommentFilters) ([]models.Comment, error) {
	if err := validatePR(pr); err != nil {
		return nil, err
	}
	rc, err := s.client(repo)
	if err != nil {
		return nil, err
	}
	return s.fetcher.Fetch(ctx, rc, pr, filters)
}

// Analysis is the classification of a single comment.
type Analysis struct {
	Comment     models.Comment     `json:"comment"`
	Verdict     models.Verdict     `json:"verdict"`
	CodeContext models.CodeContext `json:"code_context"`
}

// AnalyzeComment classifies one comment of pr.
func (s *TriageService) AnalyzeComment(ctx context.Context, commentID int64, pr int, repo string, mode Mode) (Analysis, error) {
	if err := validatePR(pr); err != nil {
		return Analysis{}, err
	}
	cls, err := s.classifier(mode)
	if err != nil {
		return Analysis{}, err
	}
	rc, err := s.client(repo)
	if err != nil {
		return Analysis{}, err
	}

	comments, err := s.fetcher.Fetch(ctx, rc, pr, models.CommentFilters{})
	if err != nil {
		return Analysis{}, err
	}
	var comment *models.Comment
	for i := range comments {
		if comments[i].ID == commentID {
			comment = &comments[i]
			break
		}
	}
	if comment == nil {
		return Analysis{}, apperr.NotFound("comment %d not found in pull request #%d", commentID, pr)
	}

	ref, err := rc.API().GetHeadRef(ctx, pr)
	if err != nil {
		s.logger.Warn().Err(err).Int("pr", pr).Msg("head ref unavailable, using diff hunk for context")
		ref = ""
	}
	codeCtx := s.contexts.Build(ctx, rc.API(), ref, *comment)
	verdict, err := cls.Classify(ctx, *comment, codeCtx)
	if err != nil {
		return Analysis{}, fmt.Errorf("failed to classify comment %d: %w", commentID, err)
	}
	return Analysis{Comment: *comment, Verdict: verdict, CodeContext: codeCtx}, nil
}

// PrepareDecisions classifies the matching comments and splits them by routing policy.
// Without a status filter only open threads are considered.
func (s *TriageService) PrepareDecisions(ctx context.Context, pr int, repo string, mode Mode, filters models.CommentFilters) (models.PreparedDecisions, error) {
	if err := validatePR(pr); err != nil {
		return models.PreparedDecisions{}, err
	}
	cls, err := s.classifier(mode)
	if err != nil {
		return models.PreparedDecisions{}, err
	}
	rc, err := s.client(repo)
	if err != nil {
		return models.PreparedDecisions{}, err
	}
	return s.prepare(ctx, rc, pr, cls, filters)
}

func (s *TriageService) prepare(ctx context.Context, rc *github.RepoClient, pr int, cls classifier.Classifier, filters models.CommentFilters) (models.PreparedDecisions, error) {
	if filters.Status == "" {
		filters.Status = models.ThreadOpen
	}
	comments, err := s.fetcher.Fetch(ctx, rc, pr, filters)
	if err != nil {
		return models.PreparedDecisions{}, err
	}
	return s.preparer.Prepare(ctx, rc, pr, comments, cls), nil
}

// ExecuteDecision applies one action to one comment. Only configuration problems
// are returned as errors; everything else is reported on the result.
func (s *TriageService) ExecuteDecision(ctx context.Context, commentID int64, pr int, action models.Action, repo, message string) (models.ExecutionResult, error) {
	if err := validatePR(pr); err != nil {
		return models.ExecutionResult{}, err
	}
	rc, err := s.client(repo)
	if err != nil {
		return models.ExecutionResult{}, err
	}
	return s.executor.Execute(ctx, rc, pr, models.Decision{CommentID: commentID, Action: action, Message: message}), nil
}

// ExecuteDecisions applies a batch of decisions and reports the outcome.
func (s *TriageService) ExecuteDecisions(ctx context.Context, pr int, repo string, decisions []models.Decision) (models.BatchReport, error) {
	if err := validatePR(pr); err != nil {
		return models.BatchReport{}, err
	}
	rc, err := s.client(repo)
	if err != nil {
		return models.BatchReport{}, err
	}
	results := s.executor.ExecuteBulk(ctx, rc, pr, decisions)
	return models.NewBatchReport(s.bulk.newID(), len(decisions), results), nil
}

// BulkOptions configures BulkClose.
type BulkOptions struct {
	Message        string
	Filters        models.CommentFilters
	ResolveThreads bool
	DryRun         bool
}

// BulkClose replies to every matching comment without classification.
func (s *TriageService) BulkClose(ctx context.Context, pr int, repo string, opts BulkOptions) (models.BatchReport, error) {
	if err := validatePR(pr); err != nil {
		return models.BatchReport{}, err
	}
	rc, err := s.client(repo)
	if err != nil {
		return models.BatchReport{}, err
	}
	return s.bulk.BulkClose(ctx, rc, pr, opts.Filters, opts.Message, opts.ResolveThreads, opts.DryRun)
}

// TriageOptions configures the interactive workflow.
type TriageOptions struct {
	PR      int
	Repo    string
	Mode    Mode
	Filters models.CommentFilters
	// NoAuto sends confident verdicts to the prompt too.
	NoAuto bool
	DryRun bool
}

// TriageSummary is the outcome of an interactive run.
type TriageSummary struct {
	PR       int                `json:"pr"`
	Repo     string             `json:"repo"`
	Auto     int                `json:"auto"`
	Prompted int                `json:"prompted"`
	Report   models.BatchReport `json:"report"`
}

// Triage handles the complete workflow: pick a PR, apply confident decisions,
// then ask about the rest.
func (s *TriageService) Triage(ctx context.Context, opts TriageOptions) (TriageSummary, error) {
	cls, err := s.classifier(opts.Mode)
	if err != nil {
		return TriageSummary{}, err
	}
	rc, err := s.client(opts.Repo)
	if err != nil {
		return TriageSummary{}, err
	}

	pr := opts.PR
	if pr == 0 {
		if pr, err = s.selectPR(ctx, rc); err != nil {
			return TriageSummary{}, fmt.Errorf("failed to get PR number: %w", err)
		}
	}
	if err := validatePR(pr); err != nil {
		return TriageSummary{}, err
	}

	prepared, err := s.prepare(ctx, rc, pr, cls, opts.Filters)
	if err != nil {
		return TriageSummary{}, err
	}

	summary := TriageSummary{PR: pr, Repo: rc.Identity().String()}
	var auto []models.Decision
	requests := prepared.NeedsInput
	if opts.NoAuto {
		for _, a := range prepared.AutoResolvable {
			requests = append(requests, a.Request(ActionOptions(a.Verdict.Status)))
		}
	} else {
		for _, a := range prepared.AutoResolvable {
			auto = append(auto, a.Decision)
		}
	}
	summary.Auto = len(auto)
	summary.Prompted = len(requests)

	manual := make([]models.Decision, 0, len(requests))
	for _, req := range requests {
		action, err := s.prompter.SelectAction(req)
		if err != nil {
			return summary, fmt.Errorf("failed to select action: %w", err)
		}
		d := models.Decision{CommentID: req.Comment.ID, Action: action}
		if action != models.ActionSkip {
			if d.Message, err = s.prompter.EnterMessage(s.defaultMessage(req.Verdict, action)); err != nil {
				return summary, fmt.Errorf("failed to enter message: %w", err)
			}
		}
		manual = append(manual, d)
	}

	decisions := append(auto, manual...)
	if !opts.DryRun && writes(decisions) > 0 {
		confirmed, err := s.prompter.ConfirmSelection(fmt.Sprintf("Apply %d decision(s) to %s#%d", writes(decisions), summary.Repo, pr))
		if err != nil {
			return summary, fmt.Errorf("failed to confirm selection: %w", err)
		}
		if !confirmed {
			return summary, ErrCancelled
		}
	}

	var results []models.ExecutionResult
	if opts.DryRun {
		results = make([]models.ExecutionResult, len(decisions))
		for i, d := range decisions {
			results[i] = models.ExecutionResult{CommentID: d.CommentID, Action: d.Action, Success: true}
		}
	} else {
		results = s.executor.ExecuteBulk(ctx, rc, pr, decisions)
	}
	summary.Report = models.NewBatchReport(s.bulk.newID(), prepared.TotalComments, results)
	summary.Report.DryRun = opts.DryRun

	s.logger.Info().
		Str("repo", summary.Repo).
		Int("pr", pr).
		Int("auto", summary.Auto).
		Int("prompted", summary.Prompted).
		Str("outcome", string(summary.Report.Outcome)).
		Msg("triage finished")
	return summary, nil
}

func (s *TriageService) selectPR(ctx context.Context, rc *github.RepoClient) (int, error) {
	prs, err := rc.API().ListOpenPullRequests(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to get open PRs: %w", err)
	}
	return s.prompter.SelectPR(prs)
}

// defaultMessage prefers the verdict's reply when the chosen action is the one the verdict implies.
func (s *TriageService) defaultMessage(v models.Verdict, action models.Action) string {
	implied := models.ActionDismiss
	if v.Status == models.StatusNeedsFix {
		implied = models.ActionFix
	}
	if v.ReplyTemplate != "" && v.Status != models.StatusUncertain && action == implied {
		return v.ReplyTemplate
	}
	m := s.executor.Messages()
	if action == models.ActionFix {
		return m.Fix
	}
	return m.Dismiss
}

func writes(decisions []models.Decision) int {
	n := 0
	for _, d := range decisions {
		if d.Action != models.ActionSkip {
			n++
		}
	}
	return n
}
