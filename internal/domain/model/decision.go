package model

import "time"

// Decision is the reviewer's recorded action on an issue. A complete
// Decision marks the issue as triaged whatever its Finding says; a partial
// one keeps it in the review loop until the close is retried.
type Decision struct {
	Number        int       `json:"-"`
	Action        Action    `json:"action"`
	At            time.Time `json:"at"`
	CommentPosted bool      `json:"comment_posted,omitempty"`
	// Comment is the posted text, kept on a partial close so a retry can
	// tell whether the reviewer edited it.
	Comment string `json:"comment,omitempty"`
	Note          string    `json:"note,omitempty"`
	// Error describes the remote step that failed after an earlier step
	// succeeded, e.g. a close that failed once its comment was posted.
	Error string `json:"error,omitempty"`
}

// IsPartial reports whether the decision records a partially applied close.
func (d Decision) IsPartial() bool {
	return d.Error != ""
}

// StatusPartial is the status shown for a partially applied close.
const StatusPartial = "partial"

// Status is the action taken, or StatusPartial while a close is unfinished.
func (d Decision) Status() string {
	if d.IsPartial() {
		return StatusPartial
	}
	return string(d.Action)
}

// TriageState is the whole state file.
type TriageState struct {
	Triaged map[int]Decision
}
