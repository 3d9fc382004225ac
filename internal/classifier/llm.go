package classifier

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/rs/zerolog"

	"github.com/ryo246912/gh-review-triage/internal/models"
	"github.com/ryo246912/gh-review-triage/internal/retry"
)

const (
	// DefaultModel is the model used in thorough mode.
	DefaultModel = "claude-sonnet-4-20250514"

	// APITimeout bounds one completion, retries included.
	APITimeout = 2 * time.Minute

	maxTokens = 1024
)

const systemPrompt = `You triage code review comments left by automated reviewers.
Decide whether the issue a comment raises still applies to the code shown.
Answer with a single JSON object and nothing else:
{"status": "needs_fix" | "already_fixed" | "invalid" | "uncertain",
 "confidence": <number between 0 and 1>,
 "reasoning": "<one or two sentences>",
 "reply": "<short reply to post on the review thread>"}`

const promptTemplate = `File: %s
Reviewer: %s

Comment:
%s

Code (the commented line is marked with >>>):
%s
`

// Completer sends one prompt to a language model.
type Completer interface {
	Complete(ctx context.Context, system, prompt string) (string, error)
}

// AnthropicCompleter calls the Anthropic Messages API.
type AnthropicCompleter struct {
	client *anthropic.Client
	model  string
	logger zerolog.Logger
	policy retry.Policy
}

// NewAnthropicCompleter creates a completer. An empty model selects DefaultModel.
func NewAnthropicCompleter(apiKey, model string, logger zerolog.Logger) *AnthropicCompleter {
	if model == "" {
		model = DefaultModel
	}
	return &AnthropicCompleter{
		client: anthropic.NewClient(option.WithAPIKey(apiKey)),
		model:  model,
		logger: logger,
		policy: retry.DefaultPolicy(isRetryableError),
	}
}

// isRetryableError checks if an error from the model API is transient.
func isRetryableError(err error) bool {
	if err == nil {
		return false
	}
	errStr := err.Error()
	return strings.Contains(errStr, "429") ||
		strings.Contains(errStr, "500") ||
		strings.Contains(errStr, "502") ||
		strings.Contains(errStr, "503") ||
		strings.Contains(errStr, "504") ||
		strings.Contains(errStr, "529") ||
		strings.Contains(errStr, "connection") ||
		strings.Contains(errStr, "timeout") ||
		errors.Is(err, context.DeadlineExceeded)
}

// Complete returns the first text block of the response.
func (a *AnthropicCompleter) Complete(ctx context.Context, system, prompt string) (string, error) {
	timeoutCtx, cancel := context.WithTimeout(ctx, APITimeout)
	defer cancel()

	message, err := retry.Do(timeoutCtx, a.logger, a.policy, "classifyComment", func(ctx context.Context) (*anthropic.Message, error) {
		return a.client.Messages.New(ctx, anthropic.MessageNewParams{
			Model:     anthropic.F(anthropic.Model(a.model)),
			MaxTokens: anthropic.F(int64(maxTokens)),
			System: anthropic.F([]anthropic.TextBlockParam{
				anthropic.NewTextBlock(system),
			}),
			Messages: anthropic.F([]anthropic.MessageParam{
				anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
			}),
		})
	})
	if err != nil {
		return "", fmt.Errorf("Claude API error: %w", err)
	}

	a.logger.Debug().
		Int64("input_tokens", message.Usage.InputTokens).
		Int64("output_tokens", message.Usage.OutputTokens).
		Msg("Claude API usage")

	for _, block := range message.Content {
		if block.Type == anthropic.ContentBlockTypeText {
			return block.Text, nil
		}
	}
	return "", fmt.Errorf("no text content in Claude response")
}

// LLMClassifier asks a language model for the verdict. It produces the same
// Verdict shape as PatternClassifier.
type LLMClassifier struct {
	completer Completer
	logger    zerolog.Logger
}

// NewLLMClassifier wraps completer.
func NewLLMClassifier(completer Completer, logger zerolog.Logger) *LLMClassifier {
	return &LLMClassifier{completer: completer, logger: logger}
}

type llmAnswer struct {
	Status     string  `json:"status"`
	Confidence float64 `json:"confidence"`
	Reasoning  string  `json:"reasoning"`
	Reply      string  `json:"reply"`
}

// Classify returns an error only when the model cannot be reached or its answer cannot be parsed.
func (l *LLMClassifier) Classify(ctx context.Context, comment models.Comment, codeCtx models.CodeContext) (models.Verdict, error) {
	prompt := fmt.Sprintf(promptTemplate,
		comment.Location,
		comment.Author,
		comment.Body,
		codeCtx.Render(),
	)

	text, err := l.completer.Complete(ctx, systemPrompt, prompt)
	if err != nil {
		return models.Verdict{}, err
	}

	answer, err := parseAnswer(text)
	if err != nil {
		return models.Verdict{}, err
	}

	v := models.Verdict{
		Status:        models.VerdictStatus(answer.Status),
		Confidence:    clamp(answer.Confidence),
		ReplyTemplate: strings.TrimSpace(answer.Reply),
		Reasoning:     strings.TrimSpace(answer.Reasoning),
		Source:        SourceLLM,
	}
	if !v.Status.Valid() {
		l.logger.Debug().Str("status", answer.Status).Int64("comment", comment.ID).Msg("unknown status from model")
		v.Status = models.StatusUncertain
	}
	return v, nil
}

// parseAnswer extracts the JSON object from a model response, tolerating code fences and prose.
func parseAnswer(text string) (llmAnswer, error) {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end < start {
		return llmAnswer{}, fmt.Errorf("no JSON object in model response")
	}
	var answer llmAnswer
	if err := json.Unmarshal([]byte(text[start:end+1]), &answer); err != nil {
		return llmAnswer{}, fmt.Errorf("failed to parse model response: %w", err)
	}
	return answer, nil
}

func clamp(f float64) float64 {
	switch {
	case f < 0:
		return 0
	case f > 1:
		return 1
	}
	return f
}
