package ui

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ryo246912/gh-review-triage/internal/models"
)

func TestPadRight(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		width    int
		expected string
	}{
		{
			name:     "pad short string",
			input:    "hello",
			width:    10,
			expected: "hello     ",
		},
		{
			name:     "no padding needed",
			input:    "hello",
			width:    5,
			expected: "hello",
		},
		{
			name:     "string longer than width",
			input:    "hello world",
			width:    5,
			expected: "hello world",
		},
		{
			name:     "empty string",
			input:    "",
			width:    5,
			expected: "     ",
		},
		{
			name:     "unicode characters",
			input:    "こんにちは",
			width:    15,
			expected: "こんにちは     ",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := PadRight(tt.input, tt.width)
			if got != tt.expected {
				t.Errorf("PadRight(%q, %d) = %q, want %q", tt.input, tt.width, got, tt.expected)
			}
		})
	}
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "hello world", Truncate("hello world", 20))
	assert.Equal(t, "hello...", Truncate("hello world", 8))
}

func TestFirstLine(t *testing.T) {
	assert.Equal(t, "Unused import", FirstLine("\n  Unused import  \nmore detail"))
	assert.Equal(t, "", FirstLine("  \n"))
}

func TestFormatResult(t *testing.T) {
	ok := FormatResult(models.ExecutionResult{
		CommentID:      7,
		Action:         models.ActionDismiss,
		Success:        true,
		ReplyPosted:    true,
		ThreadResolved: true,
	})
	assert.True(t, strings.HasPrefix(ok, "✔ 7"))
	assert.Contains(t, ok, "replied,resolved")

	failed := FormatResult(models.ExecutionResult{
		CommentID: 8,
		Action:    models.ActionFix,
		Error:     "permission: post reply: forbidden",
		ErrorKind: "permission",
	})
	assert.True(t, strings.HasPrefix(failed, "✘ 8"))
	assert.Contains(t, failed, "[permission] permission: post reply: forbidden")
}

func TestFormatReport(t *testing.T) {
	report := models.NewBatchReport("run", 2, []models.ExecutionResult{
		{CommentID: 1, Action: models.ActionReply, Success: true, ReplyPosted: true},
		{CommentID: 2, Action: models.ActionReply, Error: "boom", ErrorKind: "internal"},
	})
	got := FormatReport(report)
	lines := strings.Split(got, "\n")
	assert.Len(t, lines, 3)
	assert.Equal(t, "Processed 2/2: 1 succeeded, 1 failed (partial)", lines[2])

	report.DryRun = true
	assert.Contains(t, FormatReport(report), "(dry run) Processed 2/2")
}

func TestFormatRequest(t *testing.T) {
	req := models.DecisionRequest{
		Comment: models.Comment{
			ID:       42,
			Author:   "Copilot",
			Body:     "Import of 'Optional' is not used",
			Location: models.FileLocation{Path: "file.py", Line: 4},
		},
		Verdict: models.Verdict{
			Status:      models.StatusNeedsFix,
			Confidence:  0.85,
			PatternName: "unused_import",
			Source:      "pattern",
			SuggestedFix: &models.Fix{
				Original:    "from typing import Optional, Tuple",
				Replacement: "from typing import Tuple",
				Explanation: "Removed unused import(s): Optional",
			},
		},
		CodeContext: models.CodeContext{
			FilePath: "file.py",
			Line:     4,
			Lines:    []models.ContextLine{{Number: 4, Text: "from typing import Optional, Tuple"}},
		},
	}

	got := FormatRequest(req)
	assert.Contains(t, got, "file.py:4  @Copilot")
	assert.Contains(t, got, ">>>    4 | from typing import Optional, Tuple")
	assert.Contains(t, got, "Verdict: needs_fix (unused_import)  confidence 0.85  [pattern]")
	assert.Contains(t, got, "+ from typing import Tuple")
}

func TestMockPrompter_SelectAction(t *testing.T) {
	m := &MockPrompter{Actions: []models.Action{models.ActionFix}}

	first, err := m.SelectAction(models.DecisionRequest{})
	assert.NoError(t, err)
	second, err := m.SelectAction(models.DecisionRequest{})
	assert.NoError(t, err)

	assert.Equal(t, models.ActionFix, first)
	assert.Equal(t, models.ActionSkip, second)
	assert.Len(t, m.SelectActionCalls, 2)

	msg, err := m.EnterMessage("default")
	assert.NoError(t, err)
	assert.Equal(t, "default", msg)
}
