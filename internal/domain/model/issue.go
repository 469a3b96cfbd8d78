package model

import "time"

// Issue is one open issue captured by a gathering run. It is never mutated
// after the snapshot is written.
type Issue struct {
	Number        int        `json:"number"`
	Title         string     `json:"title"`
	Body          string     `json:"body"`
	Labels        []string   `json:"labels"`
	State         string     `json:"state"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
	LastCommentAt *time.Time `json:"last_comment_at"`
	Author        string     `json:"author"`
	CommentsCount int        `json:"comments_count"`
	URL           string     `json:"url"`
}

// IsOpen reports whether the snapshot saw the issue open. An empty state is
// treated as open since gathering only fetches open issues.
func (i Issue) IsOpen() bool {
	return i.State == "" || i.State == "OPEN" || i.State == "open"
}

// AgeDays returns whole days between creation and now.
func (i Issue) AgeDays(now time.Time) int {
	if i.CreatedAt.IsZero() {
		return 0
	}
	return int(now.Sub(i.CreatedAt).Hours() / 24)
}

// LastActivityAt returns the last comment time, falling back to creation.
func (i Issue) LastActivityAt() time.Time {
	if i.LastCommentAt != nil {
		return *i.LastCommentAt
	}
	return i.CreatedAt
}

// Snapshot is the immutable issue list written by one gathering run.
type Snapshot struct {
	Repo      string    `json:"repo"`
	FetchedAt time.Time `json:"fetched_at"`
	Source    string    `json:"source"`
	HeadSHA   string    `json:"head_sha"`
	Issues    []Issue   `json:"issues"`
}

// Issue returns the issue with the given number.
func (s *Snapshot) Issue(number int) (Issue, bool) {
	for _, issue := range s.Issues {
		if issue.Number == number {
			return issue, true
		}
	}
	return Issue{}, false
}
