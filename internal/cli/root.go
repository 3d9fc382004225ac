// Package cli implements the gh-review-triage command tree.
package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/time/rate"

	"github.com/ryo246912/gh-review-triage/internal/classifier"
	"github.com/ryo246912/gh-review-triage/internal/config"
	"github.com/ryo246912/gh-review-triage/internal/github"
	"github.com/ryo246912/gh-review-triage/internal/logging"
	"github.com/ryo246912/gh-review-triage/internal/retry"
	"github.com/ryo246912/gh-review-triage/internal/service"
	"github.com/ryo246912/gh-review-triage/internal/ui"
)

// globalOptions are the persistent flags.
type globalOptions struct {
	repo       string
	token      string
	configPath string
	logLevel   string
	logFormat  string
	jsonOutput bool
}

// ServiceBuilder turns the loaded configuration into a TriageService.
type ServiceBuilder func(cfg *config.Config, token string, logger zerolog.Logger) (*service.TriageService, error)

type app struct {
	opts   globalOptions
	build  ServiceBuilder
	svc    *service.TriageService
	logger zerolog.Logger
}

// NewRootCommand returns the command tree. A nil build wires the real GitHub and Anthropic clients.
func NewRootCommand(build ServiceBuilder) *cobra.Command {
	if build == nil {
		build = BuildService
	}
	a := &app{build: build}

	cmd := &cobra.Command{
		Use:   "review-triage",
		Short: "Triage automated review comments on pull requests",
		Long: `Triage comments left by bots and static analyzers on a pull request.

Comments are classified by known patterns (or by an LLM with --mode llm),
confident verdicts are resolved automatically and the rest are offered
for a decision.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup()
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVarP(&a.opts.repo, "repo", "R", "", "repository as owner/name (default: current directory)")
	flags.StringVar(&a.opts.token, "token", "", "GitHub token (default: GH_TOKEN, GITHUB_TOKEN or gh credentials)")
	flags.StringVar(&a.opts.configPath, "config", "", "config file (default: $XDG_CONFIG_HOME/gh-review-triage/config.yml)")
	flags.StringVar(&a.opts.logLevel, "log-level", "", "log level: debug, info, warn, error")
	flags.StringVar(&a.opts.logFormat, "log-format", "", "log format: console or json")
	flags.BoolVar(&a.opts.jsonOutput, "json", false, "print results as JSON")

	cmd.AddCommand(
		newFetchCommand(a),
		newAnalyzeCommand(a),
		newPrepareCommand(a),
		newExecuteCommand(a),
		newBulkCloseCommand(a),
		newTriageCommand(a),
	)
	return cmd
}

// Execute runs the root command and returns the process exit code.
func Execute() int {
	if err := NewRootCommand(nil).Execute(); err != nil {
		return 1
	}
	return 0
}

func (a *app) setup() error {
	cfg, err := config.Load(a.opts.configPath)
	if err != nil {
		return err
	}
	if a.opts.logLevel != "" {
		cfg.LogLevel = a.opts.logLevel
	}
	if a.opts.logFormat != "" {
		cfg.LogFormat = a.opts.logFormat
	}

	logger, err := logging.New(logging.Options{Level: cfg.LogLevel, JSON: cfg.LogFormat == "json"})
	if err != nil {
		return err
	}
	a.logger = logger

	svc, err := a.build(cfg, a.opts.token, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize: %w", err)
	}
	a.svc = svc
	return nil
}

// BuildService wires the go-gh backed client manager, the classifiers and the prompter.
func BuildService(cfg *config.Config, token string, logger zerolog.Logger) (*service.TriageService, error) {
	var limiter *rate.Limiter
	if cfg.RateLimit.RequestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit.RequestsPerSecond), max(1, cfg.RateLimit.Burst))
	}
	manager := github.NewManager(github.ManagerOptions{
		Factory: github.NewClientFactory(github.ClientOptions{
			Host:    cfg.Host,
			Timeout: cfg.RequestTimeout,
			Limiter: limiter,
		}),
		Host:   cfg.Host,
		Logger: logger,
	})

	classifiers := map[service.Mode]classifier.Classifier{
		service.ModePattern: classifier.NewPatternClassifier(),
	}
	if cfg.Thorough.APIKey != "" {
		completer := classifier.NewAnthropicCompleter(cfg.Thorough.APIKey, cfg.Thorough.Model, logger)
		classifiers[service.ModeLLM] = classifier.NewLLMClassifier(completer, logger)
	}

	return service.NewTriageService(service.Options{
		Manager:     manager,
		Resolver:    github.NewIdentityResolver(cfg.Repo),
		Token:       token,
		Bots:        github.NewBotSet(cfg.BotAuthors...),
		Prompter:    &ui.DefaultPrompter{},
		Classifiers: classifiers,
		Messages: service.Messages{
			Fix:     cfg.Messages.Fix,
			Dismiss: cfg.Messages.Dismiss,
			Bulk:    cfg.Messages.Bulk,
		},
		Concurrency:    cfg.Concurrency,
		RequestTimeout: cfg.RequestTimeout,
		Retry: retry.Policy{
			MaxRetries: cfg.Retry.MaxRetries,
			BaseDelay:  cfg.Retry.BaseDelay,
		},
		ContextLines: cfg.ContextLines,
		Logger:       logger,
	}), nil
}

// render prints v as indented JSON when --json is set, otherwise the text form.
func (a *app) render(w io.Writer, v any, text func() string) error {
	if a.opts.jsonOutput {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	_, err := fmt.Fprintln(w, text())
	return err
}
