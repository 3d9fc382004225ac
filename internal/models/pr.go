package models

// PullRequestInfo represents PR metadata
type PullRequestInfo struct {
	Number    int    `json:"number"`
	Title     string `json:"title"`
	User      string `json:"user"`
	State     string `json:"state"`
	Draft     bool   `json:"draft"`
	UpdatedAt string `json:"updated_at"`
	CreatedAt string `json:"created_at"`
}

// ReviewThread is a review thread with the database ids of its comments.
type ReviewThread struct {
	ID         string  `json:"id"`
	IsResolved bool    `json:"is_resolved"`
	Path       string  `json:"path"`
	CommentIDs []int64 `json:"comment_ids"`
}
