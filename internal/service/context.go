package service

import (
	"context"
	"strings"

	"github.com/rs/zerolog"

	"github.com/ryo246912/gh-review-triage/internal/github"
	"github.com/ryo246912/gh-review-triage/internal/models"
)

// DefaultContextLines is the number of lines shown on each side of a comment.
const DefaultContextLines = 5

// ContextBuilder loads the source around a comment.
type ContextBuilder struct {
	before int
	after  int
	logger zerolog.Logger
}

// NewContextBuilder creates a ContextBuilder. Non-positive sizes use DefaultContextLines.
func NewContextBuilder(before, after int, logger zerolog.Logger) *ContextBuilder {
	if before <= 0 {
		before = DefaultContextLines
	}
	if after <= 0 {
		after = DefaultContextLines
	}
	return &ContextBuilder{before: before, after: after, logger: logger}
}

// Build reads the file at ref and falls back to the diff hunk when it cannot.
func (b *ContextBuilder) Build(ctx context.Context, api github.API, ref string, c models.Comment) models.CodeContext {
	if c.Location.Path == "" || c.Location.Line <= 0 || ref == "" {
		return ContextFromDiff(c, b.before)
	}
	content, err := api.GetFileContent(ctx, c.Location.Path, ref)
	if err != nil {
		b.logger.Debug().Err(err).Str("path", c.Location.Path).Msg("falling back to diff hunk")
		return ContextFromDiff(c, b.before)
	}
	cc := Snippet(content, c.Location.Path, c.Location.Line, b.before, b.after)
	if len(cc.Lines) == 0 {
		return ContextFromDiff(c, b.before)
	}
	return cc
}

// Snippet cuts the lines [line-before, line+after] out of content.
func Snippet(content, path string, line, before, after int) models.CodeContext {
	cc := models.CodeContext{FilePath: path, Line: line}
	lines := strings.Split(strings.TrimSuffix(content, "\n"), "\n")
	if line <= 0 || line > len(lines) {
		return cc
	}
	start := max(1, line-before)
	end := min(len(lines), line+after)
	for n := start; n <= end; n++ {
		cc.Lines = append(cc.Lines, models.ContextLine{Number: n, Text: strings.TrimRight(lines[n-1], "\r")})
	}
	return cc
}

// ContextFromDiff numbers the new-side lines of the diff hunk so that the last
// one is the commented line, keeping at most before+1 lines.
func ContextFromDiff(c models.Comment, before int) models.CodeContext {
	cc := models.CodeContext{FilePath: c.Location.Path, Line: c.Location.Line, FromDiff: true}
	if c.DiffContext == "" || c.Location.Line <= 0 {
		return cc
	}

	var kept []string
	for _, l := range strings.Split(strings.TrimRight(c.DiffContext, "\n"), "\n") {
		switch {
		case strings.HasPrefix(l, "@@"), strings.HasPrefix(l, "-"), strings.HasPrefix(l, `\`):
			continue
		case strings.HasPrefix(l, "+"), strings.HasPrefix(l, " "):
			kept = append(kept, l[1:])
		default:
			kept = append(kept, l)
		}
	}
	if len(kept) > before+1 {
		kept = kept[len(kept)-before-1:]
	}
	first := c.Location.Line - len(kept) + 1
	for i, text := range kept {
		if first+i <= 0 {
			continue
		}
		cc.Lines = append(cc.Lines, models.ContextLine{Number: first + i, Text: text})
	}
	return cc
}
