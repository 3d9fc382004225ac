package models

// VerdictStatus is the classifier's judgment on a comment.
type VerdictStatus string

const (
	StatusNeedsFix     VerdictStatus = "needs_fix"
	StatusAlreadyFixed VerdictStatus = "already_fixed"
	StatusInvalid      VerdictStatus = "invalid"
	StatusUncertain    VerdictStatus = "uncertain"
)

// Valid reports whether s is one of the known statuses.
func (s VerdictStatus) Valid() bool {
	switch s {
	case StatusNeedsFix, StatusAlreadyFixed, StatusInvalid, StatusUncertain:
		return true
	}
	return false
}

// Fix is a deterministic single-line patch.
// An empty Replacement removes the line.
type Fix struct {
	FilePath    string `json:"file_path"`
	Line        int    `json:"line"`
	Original    string `json:"original"`
	Replacement string `json:"replacement"`
	Explanation string `json:"explanation"`
}

// Verdict is produced fresh by every classification call.
type Verdict struct {
	Status        VerdictStatus `json:"status"`
	Confidence    float64       `json:"confidence"`
	PatternName   string        `json:"pattern_name,omitempty"`
	SuggestedFix  *Fix          `json:"suggested_fix,omitempty"`
	ReplyTemplate string        `json:"reply_template,omitempty"`
	Reasoning     string        `json:"reasoning,omitempty"`
	Source        string        `json:"source"`
}
