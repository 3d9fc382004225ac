package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/ryo246912/gh-review-triage/internal/apperr"
	"github.com/ryo246912/gh-review-triage/internal/github"
	"github.com/ryo246912/gh-review-triage/internal/models"
	"github.com/ryo246912/gh-review-triage/internal/retry"
)

// Error kinds reported on ExecutionResult besides the apperr kinds.
const (
	ErrorKindTimeout   = "timeout"
	ErrorKindCancelled = "cancelled"
)

// DefaultRequestTimeout bounds one remote call.
const DefaultRequestTimeout = 30 * time.Second

// Messages are the replies posted when a decision carries no message.
type Messages struct {
	Fix     string `yaml:"fix"`
	Dismiss string `yaml:"dismiss"`
	Bulk    string `yaml:"bulk"`
}

// DefaultMessages returns the built-in replies.
func DefaultMessages() Messages {
	return Messages{
		Fix:     "✅ Acknowledged - this will be addressed in the next update.",
		Dismiss: "✅ Reviewed and confirmed - this is not an issue or has been addressed.",
		Bulk:    "✅ Acknowledged by review triage - thread closed",
	}
}

func (m Messages) withDefaults() Messages {
	d := DefaultMessages()
	if m.Fix == "" {
		m.Fix = d.Fix
	}
	if m.Dismiss == "" {
		m.Dismiss = d.Dismiss
	}
	if m.Bulk == "" {
		m.Bulk = d.Bulk
	}
	return m
}

// ExecutorOptions configures an Executor.
type ExecutorOptions struct {
	Messages       Messages
	RequestTimeout time.Duration
	Concurrency    int
	// Retry applies to transient failures only; Retryable is ignored.
	Retry  retry.Policy
	Logger zerolog.Logger
}

// Executor applies decisions through a RepoClient, one result per decision.
type Executor struct {
	messages    Messages
	timeout     time.Duration
	concurrency int64
	policy      retry.Policy
	// writePolicy guards non-idempotent writes: a timed out POST may have landed.
	writePolicy retry.Policy
	logger      zerolog.Logger
}

// NewExecutor creates an Executor.
func NewExecutor(opts ExecutorOptions) *Executor {
	timeout := opts.RequestTimeout
	if timeout <= 0 {
		timeout = DefaultRequestTimeout
	}
	concurrency := opts.Concurrency
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	policy := opts.Retry
	policy.Retryable = apperr.IsTransient
	writePolicy := policy
	writePolicy.Retryable = func(err error) bool {
		return apperr.IsTransient(err) && !errors.Is(err, context.DeadlineExceeded)
	}
	return &Executor{
		messages:    opts.Messages.withDefaults(),
		timeout:     timeout,
		concurrency: int64(concurrency),
		policy:      policy,
		writePolicy: writePolicy,
		logger:      opts.Logger,
	}
}

// Messages returns the effective default replies.
func (e *Executor) Messages() Messages {
	return e.messages
}

// Execute applies one decision. Failures are reported in the result, never returned.
func (e *Executor) Execute(ctx context.Context, rc *github.RepoClient, pr int, d models.Decision) models.ExecutionResult {
	res := models.ExecutionResult{CommentID: d.CommentID, Action: d.Action}
	if d.Action == models.ActionSkip {
		res.Success = true
		return res
	}

	message, err := e.messageFor(d)
	if err != nil {
		return e.fail(res, err)
	}

	threadID, err := call(ctx, e, "find thread", func(ctx context.Context) (string, error) {
		return rc.ThreadForComment(ctx, pr, d.CommentID)
	})
	if err != nil {
		return e.fail(res, err)
	}

	alreadyResolved := false
	if d.Action == models.ActionDismiss {
		alreadyResolved, err = call(ctx, e, "read thread state", func(ctx context.Context) (bool, error) {
			return rc.ThreadResolved(ctx, threadID)
		})
		if err != nil {
			return e.fail(res, err)
		}
	}

	replyID, err := callWith(ctx, e, e.writePolicy, "post reply", func(ctx context.Context) (int64, error) {
		return rc.API().PostReply(ctx, pr, d.CommentID, message)
	})
	if err != nil {
		return e.fail(res, err)
	}
	rc.Threads().Invalidate(threadID)
	res.ReplyPosted = true
	res.ReplyID = replyID

	if d.Action == models.ActionDismiss {
		if alreadyResolved {
			e.logger.Debug().Int64("comment", d.CommentID).Str("thread", threadID).Msg("thread already resolved")
		} else {
			_, err := call(ctx, e, "resolve thread", func(ctx context.Context) (bool, error) {
				return rc.API().ResolveThread(ctx, threadID)
			})
			if err != nil {
				return e.fail(res, err)
			}
			rc.Threads().Invalidate(threadID)
		}
		res.ThreadResolved = true
	}

	res.Success = true
	e.logger.Debug().
		Int64("comment", d.CommentID).
		Str("action", string(d.Action)).
		Bool("resolved", res.ThreadResolved).
		Msg("decision applied")
	return res
}

func (e *Executor) messageFor(d models.Decision) (string, error) {
	if d.Message != "" {
		return d.Message, nil
	}
	switch d.Action {
	case models.ActionFix:
		return e.messages.Fix, nil
	case models.ActionDismiss:
		return e.messages.Dismiss, nil
	case models.ActionReply:
		return e.messages.Bulk, nil
	}
	return "", fmt.Errorf("invalid action %q", d.Action)
}

// call runs one remote operation under its own timeout with transient retries.
func call[T any](ctx context.Context, e *Executor, op string, fn func(ctx context.Context) (T, error)) (T, error) {
	return callWith(ctx, e, e.policy, op, fn)
}

func callWith[T any](ctx context.Context, e *Executor, policy retry.Policy, op string, fn func(ctx context.Context) (T, error)) (T, error) {
	return retry.Do(ctx, e.logger, policy, op, func(ctx context.Context) (T, error) {
		callCtx, cancel := context.WithTimeout(ctx, e.timeout)
		defer cancel()
		return fn(callCtx)
	})
}

func (e *Executor) fail(res models.ExecutionResult, err error) models.ExecutionResult {
	res.Success = false
	res.Error = err.Error()
	res.ErrorKind = errorKind(err)
	e.logger.Error().
		Err(err).
		Int64("comment", res.CommentID).
		Str("action", string(res.Action)).
		Str("kind", res.ErrorKind).
		Msg("decision failed")
	return res
}

func errorKind(err error) string {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return ErrorKindTimeout
	case errors.Is(err, context.Canceled):
		return ErrorKindCancelled
	}
	return string(apperr.KindOf(err))
}

// ExecuteBulk applies every decision concurrently and returns results in input order.
// A cancelled ctx still yields one result per decision.
func (e *Executor) ExecuteBulk(ctx context.Context, rc *github.RepoClient, pr int, decisions []models.Decision) []models.ExecutionResult {
	results := make([]models.ExecutionResult, len(decisions))
	sem := semaphore.NewWeighted(e.concurrency)
	var g errgroup.Group
	for i, d := range decisions {
		g.Go(func() error {
			if err := sem.Acquire(ctx, 1); err != nil {
				results[i] = e.fail(models.ExecutionResult{CommentID: d.CommentID, Action: d.Action}, err)
				return nil
			}
			defer sem.Release(1)
			if err := ctx.Err(); err != nil {
				results[i] = e.fail(models.ExecutionResult{CommentID: d.CommentID, Action: d.Action}, err)
				return nil
			}
			results[i] = e.Execute(ctx, rc, pr, d)
			return nil
		})
	}
	_ = g.Wait()
	return results
}

// ExecuteUniform applies the same message to every comment, resolving threads when asked.
func (e *Executor) ExecuteUniform(ctx context.Context, rc *github.RepoClient, pr int, commentIDs []int64, message string, resolveThreads bool) []models.ExecutionResult {
	return e.ExecuteBulk(ctx, rc, pr, UniformDecisions(commentIDs, message, resolveThreads))
}

// UniformDecisions builds one decision per comment.
func UniformDecisions(commentIDs []int64, message string, resolveThreads bool) []models.Decision {
	action := models.ActionReply
	if resolveThreads {
		action = models.ActionDismiss
	}
	decisions := make([]models.Decision, len(commentIDs))
	for i, id := range commentIDs {
		decisions[i] = models.Decision{CommentID: id, Action: action, Message: message}
	}
	return decisions
}
