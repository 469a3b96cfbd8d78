package driven

import (
	"context"

	"github.com/ericfisherdev/issuetriage/internal/domain/model"
)

// IssueTracker defines the driven port for remote issue mutations.
// Closing an already-closed issue succeeds.
type IssueTracker interface {
	CommentOnIssue(ctx context.Context, repo string, number int, body string) error
	CloseIssue(ctx context.Context, repo string, number int, reason model.CloseReason) error
	AddLabels(ctx context.Context, repo string, number int, labels []string) error
}

// IssueSource defines the driven port used by gathering to list open issues.
type IssueSource interface {
	// FetchOpenIssues returns open issues (pull requests excluded), newest
	// first, stopping after limit issues when limit > 0. Labels, when given,
	// must all be present on an issue.
	FetchOpenIssues(ctx context.Context, repo string, labels []string, limit int) ([]model.Issue, error)
}
