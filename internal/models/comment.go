package models

import (
	"fmt"
	"strings"
	"time"
)

// ThreadStatus is the resolution state of a review thread at fetch time.
type ThreadStatus string

const (
	ThreadOpen     ThreadStatus = "open"
	ThreadResolved ThreadStatus = "resolved"
	// ThreadAll is a filter value only: it matches every thread.
	ThreadAll ThreadStatus = "all"
)

// FileLocation anchors a comment to a line of a file.
type FileLocation struct {
	Path string `json:"path"`
	Line int    `json:"line"`
}

func (l FileLocation) String() string {
	if l.Path == "" {
		return "N/A"
	}
	return fmt.Sprintf("%s:%d", l.Path, l.Line)
}

// Comment is an immutable snapshot of a review comment that heads a thread.
type Comment struct {
	ID          int64        `json:"id"`
	Location    FileLocation `json:"location"`
	Author      string       `json:"author"`
	Body        string       `json:"body"`
	DiffContext string       `json:"diff_context,omitempty"`
	ThreadID    string       `json:"thread_id,omitempty"`
	Status      ThreadStatus `json:"status"`
	URL         string       `json:"url,omitempty"`
	CreatedAt   time.Time    `json:"created_at"`
}

// CommentFilters narrows a fetched comment set.
type CommentFilters struct {
	Authors    []string     `json:"authors,omitempty"`
	Status     ThreadStatus `json:"status,omitempty"`
	Keywords   []string     `json:"keywords,omitempty"`
	MinAgeDays int          `json:"min_age_days,omitempty"`
	BotsOnly   bool         `json:"bots_only,omitempty"`
}

// Validate checks the filter values.
func (f CommentFilters) Validate() error {
	switch f.Status {
	case "", ThreadOpen, ThreadResolved, ThreadAll:
	default:
		return fmt.Errorf("invalid status filter %q (must be 'open', 'resolved', 'all' or empty)", f.Status)
	}
	if f.MinAgeDays < 0 {
		return fmt.Errorf("min age days must not be negative")
	}
	return nil
}

// MatchesStatus reports whether the status filter accepts c. Empty and "all" accept every thread.
func (f CommentFilters) MatchesStatus(c Comment) bool {
	if f.Status == "" || f.Status == ThreadAll {
		return true
	}
	return c.Status == f.Status
}

// MatchesText reports whether the author and keyword filters accept c.
func (f CommentFilters) MatchesText(c Comment) bool {
	if len(f.Authors) > 0 {
		found := false
		for _, a := range f.Authors {
			if a == c.Author {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if len(f.Keywords) > 0 {
		body := strings.ToLower(c.Body)
		found := false
		for _, k := range f.Keywords {
			if strings.Contains(body, strings.ToLower(k)) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// OlderThan reports whether the age filter accepts c at time now.
func (f CommentFilters) OlderThan(c Comment, now time.Time) bool {
	if f.MinAgeDays <= 0 {
		return true
	}
	return c.CreatedAt.Before(now.AddDate(0, 0, -f.MinAgeDays))
}

// ContextLine is one numbered line of source around a comment.
type ContextLine struct {
	Number int    `json:"number"`
	Text   string `json:"text"`
}

// CodeContext is the source surrounding a comment's anchor line.
type CodeContext struct {
	FilePath string        `json:"file_path"`
	Line     int           `json:"line"`
	Lines    []ContextLine `json:"lines,omitempty"`
	// FromDiff is set when the lines were taken from the diff hunk instead of the file.
	FromDiff bool `json:"from_diff,omitempty"`
}

// Target returns the text of the anchor line.
func (c CodeContext) Target() (string, bool) {
	for _, l := range c.Lines {
		if l.Number == c.Line {
			return l.Text, true
		}
	}
	return "", false
}

// Before returns the lines preceding the anchor line.
func (c CodeContext) Before() []ContextLine {
	var out []ContextLine
	for _, l := range c.Lines {
		if l.Number < c.Line {
			out = append(out, l)
		}
	}
	return out
}

// Render formats the context with line numbers and a marker on the anchor line.
func (c CodeContext) Render() string {
	if len(c.Lines) == 0 {
		return "No context available"
	}
	var b strings.Builder
	for i, l := range c.Lines {
		marker := "   "
		if l.Number == c.Line {
			marker = ">>>"
		}
		if i > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "%s %4d | %s", marker, l.Number, l.Text)
	}
	return b.String()
}
