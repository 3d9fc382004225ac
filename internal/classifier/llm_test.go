package classifier

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ryo246912/gh-review-triage/internal/models"
)

type fakeCompleter struct {
	response   string
	err        error
	lastPrompt string
}

func (f *fakeCompleter) Complete(ctx context.Context, system, prompt string) (string, error) {
	f.lastPrompt = prompt
	return f.response, f.err
}

func TestLLMClassifier_Classify(t *testing.T) {
	tests := []struct {
		name     string
		response string
		want     models.Verdict
	}{
		{
			name:     "plain json",
			response: `{"status":"already_fixed","confidence":0.9,"reasoning":"The import was removed.","reply":"Already handled, thanks!"}`,
			want: models.Verdict{
				Status:        models.StatusAlreadyFixed,
				Confidence:    0.9,
				Reasoning:     "The import was removed.",
				ReplyTemplate: "Already handled, thanks!",
				Source:        SourceLLM,
			},
		},
		{
			name:     "fenced json with prose",
			response: "Here is my answer:\n```json\n{\"status\":\"invalid\",\"confidence\":0.7,\"reasoning\":\"False positive.\",\"reply\":\"Not an issue.\"}\n```",
			want: models.Verdict{
				Status:        models.StatusInvalid,
				Confidence:    0.7,
				Reasoning:     "False positive.",
				ReplyTemplate: "Not an issue.",
				Source:        SourceLLM,
			},
		},
		{
			name:     "unknown status and out of range confidence",
			response: `{"status":"maybe","confidence":1.7,"reasoning":"Hard to say."}`,
			want: models.Verdict{
				Status:     models.StatusUncertain,
				Confidence: 1,
				Reasoning:  "Hard to say.",
				Source:     SourceLLM,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := &fakeCompleter{response: tt.response}
			c := NewLLMClassifier(fake, zerolog.Nop())

			comment := commentAt("Import of 'Optional' is not used", "file.py", 4)
			codeCtx := contextWith("file.py", 4, map[int]string{4: "from typing import Tuple"})

			got, err := c.Classify(context.Background(), comment, codeCtx)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Contains(t, fake.lastPrompt, "file.py:4")
			assert.Contains(t, fake.lastPrompt, ">>>    4 | from typing import Tuple")
		})
	}
}

func TestLLMClassifier_Errors(t *testing.T) {
	tests := []struct {
		name     string
		response string
		err      error
	}{
		{name: "api failure", err: errors.New("Claude API error: 529 overloaded")},
		{name: "no json", response: "I think this is fine."},
		{name: "broken json", response: `{"status": needs_fix}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewLLMClassifier(&fakeCompleter{response: tt.response, err: tt.err}, zerolog.Nop())
			_, err := c.Classify(context.Background(), commentAt("x", "a.py", 1), models.CodeContext{})
			assert.Error(t, err)
		})
	}
}

func TestIsRetryableError(t *testing.T) {
	assert.True(t, isRetryableError(errors.New("POST /v1/messages: 529 Overloaded")))
	assert.True(t, isRetryableError(context.DeadlineExceeded))
	assert.False(t, isRetryableError(errors.New("401 unauthorized")))
	assert.False(t, isRetryableError(nil))
}
