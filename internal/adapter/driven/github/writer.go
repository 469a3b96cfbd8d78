package github

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	gh "github.com/google/go-github/v82/github"

	"github.com/ericfisherdev/issuetriage/internal/domain/model"
	"github.com/ericfisherdev/issuetriage/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.IssueTracker = (*Client)(nil)

// ValidateToken checks the configured token and returns the authenticated login.
func (c *Client) ValidateToken(ctx context.Context) (string, error) {
	user, _, err := c.gh.Users.Get(ctx, "")
	if err != nil {
		return "", fmt.Errorf("token validation failed: %w", err)
	}
	return user.GetLogin(), nil
}

// CommentOnIssue posts a top-level comment.
func (c *Client) CommentOnIssue(ctx context.Context, repoFullName string, number int, body string) error {
	owner, repo, err := splitRepo(repoFullName)
	if err != nil {
		return err
	}

	_, resp, err := c.gh.Issues.CreateComment(ctx, owner, repo, number, &gh.IssueComment{
		Body: gh.Ptr(body),
	})
	if err != nil {
		return fmt.Errorf("creating comment on %s#%d: %w", repoFullName, number, describe(err))
	}
	c.logRateLimit(resp, repoFullName, 0, 1)

	return nil
}

// CloseIssue closes the issue with the given state reason. Closing an issue
// that is already closed succeeds.
func (c *Client) CloseIssue(ctx context.Context, repoFullName string, number int, reason model.CloseReason) error {
	owner, repo, err := splitRepo(repoFullName)
	if err != nil {
		return err
	}

	req := &gh.IssueRequest{State: gh.Ptr("closed")}
	if reason != "" {
		req.StateReason = gh.Ptr(string(reason))
	}

	_, resp, err := c.gh.Issues.Edit(ctx, owner, repo, number, req)
	if err != nil {
		return fmt.Errorf("closing %s#%d: %w", repoFullName, number, describe(err))
	}
	c.logRateLimit(resp, repoFullName, 0, 1)

	return nil
}

// AddLabels adds labels to an issue. Labels already present are kept.
func (c *Client) AddLabels(ctx context.Context, repoFullName string, number int, labels []string) error {
	if len(labels) == 0 {
		return nil
	}
	owner, repo, err := splitRepo(repoFullName)
	if err != nil {
		return err
	}

	_, resp, err := c.gh.Issues.AddLabelsToIssue(ctx, owner, repo, number, labels)
	if err != nil {
		return fmt.Errorf("labelling %s#%d: %w", repoFullName, number, describe(err))
	}
	c.logRateLimit(resp, repoFullName, 0, len(labels))

	return nil
}

// describe adds a hint for the status codes a reviewer can act on.
func describe(err error) error {
	var ghErr *gh.ErrorResponse
	if !errors.As(err, &ghErr) || ghErr.Response == nil {
		return err
	}
	switch ghErr.Response.StatusCode {
	case http.StatusUnauthorized:
		return fmt.Errorf("token rejected, check ISSUETRIAGE_GITHUB_TOKEN: %w", err)
	case http.StatusForbidden, http.StatusNotFound:
		return fmt.Errorf("token lacks access to this repository or issue: %w", err)
	case http.StatusGone:
		return fmt.Errorf("issue was deleted or transferred: %w", err)
	}
	return err
}
