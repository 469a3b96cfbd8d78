// Package github implements the issue tracker ports using the go-github library.
package github

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	gh "github.com/google/go-github/v82/github"
	"github.com/gregjones/httpcache"

	"github.com/gofri/go-github-ratelimit/v2/github_ratelimit"

	"github.com/ericfisherdev/issuetriage/internal/domain/model"
	"github.com/ericfisherdev/issuetriage/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.IssueSource = (*Client)(nil)

// Client implements the tracker ports on top of the GitHub REST API.
type Client struct {
	gh     *gh.Client
	logger *slog.Logger
}

// NewClient creates a new GitHub API client with the following transport stack:
//  1. httpcache (ETag-based conditional request caching)
//  2. go-github-ratelimit (secondary rate limit middleware, sleeps on 429)
//  3. go-github (GitHub REST API client with PAT auth)
func NewClient(token string, logger *slog.Logger) *Client {
	cacheTransport := httpcache.NewMemoryCacheTransport()
	rateLimitClient := github_ratelimit.NewClient(cacheTransport)
	client := gh.NewClient(rateLimitClient).WithAuthToken(token)

	return &Client{gh: client, logger: logger}
}

// NewClientWithHTTPClient creates a Client with a custom http.Client and base URL.
// This constructor is intended for testing, allowing injection of an httptest server.
func NewClientWithHTTPClient(httpClient *http.Client, baseURL string, logger *slog.Logger) (*Client, error) {
	client := gh.NewClient(httpClient)

	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parsing base URL: %w", err)
	}
	client.BaseURL = u

	return &Client{gh: client, logger: logger}, nil
}

// FetchOpenIssues lists open issues newest first. Pull requests, which the
// issues endpoint also returns, are skipped.
func (c *Client) FetchOpenIssues(ctx context.Context, repoFullName string, labels []string, limit int) ([]model.Issue, error) {
	owner, repo, err := splitRepo(repoFullName)
	if err != nil {
		return nil, err
	}

	opts := &gh.IssueListByRepoOptions{
		State:     "open",
		Labels:    labels,
		Sort:      "created",
		Direction: "desc",
		ListOptions: gh.ListOptions{
			PerPage: 100,
		},
	}

	issues := []model.Issue{}
	for {
		page, resp, err := c.gh.Issues.ListByRepo(ctx, owner, repo, opts)
		if err != nil {
			return nil, fmt.Errorf("listing issues for %s (page %d): %w", repoFullName, opts.ListOptions.Page, err)
		}

		c.logRateLimit(resp, repoFullName, opts.ListOptions.Page, len(page))

		for _, raw := range page {
			if raw.IsPullRequest() {
				continue
			}
			issue := mapIssue(raw)
			if raw.GetComments() > 0 {
				last, err := c.lastCommentAt(ctx, owner, repo, raw.GetNumber())
				if err != nil {
					return nil, err
				}
				issue.LastCommentAt = last
			}
			issues = append(issues, issue)
			if limit > 0 && len(issues) >= limit {
				return issues, nil
			}
		}

		if resp.NextPage == 0 {
			break
		}
		opts.ListOptions.Page = resp.NextPage
	}

	return issues, nil
}

// lastCommentAt returns the newest comment timestamp on an issue, or nil
// when there are none.
func (c *Client) lastCommentAt(ctx context.Context, owner, repo string, number int) (*time.Time, error) {
	opts := &gh.IssueListCommentsOptions{ListOptions: gh.ListOptions{PerPage: 100}}

	var newest time.Time
	for {
		comments, resp, err := c.gh.Issues.ListComments(ctx, owner, repo, number, opts)
		if err != nil {
			return nil, fmt.Errorf("listing comments for %s/%s#%d: %w", owner, repo, number, err)
		}
		for _, comment := range comments {
			if at := comment.GetCreatedAt().Time; at.After(newest) {
				newest = at
			}
		}
		if resp.NextPage == 0 {
			break
		}
		opts.ListOptions.Page = resp.NextPage
	}

	if newest.IsZero() {
		return nil, nil
	}
	newest = newest.UTC()
	return &newest, nil
}

// logRateLimit logs rate limit information from a GitHub API response.
func (c *Client) logRateLimit(resp *gh.Response, endpoint string, page, count int) {
	if resp == nil {
		return
	}

	c.logger.Debug("github api call",
		"endpoint", endpoint,
		"page", page,
		"count", count,
		"rate_remaining", resp.Rate.Remaining,
		"rate_limit", resp.Rate.Limit,
	)

	if resp.Rate.Remaining < 100 {
		c.logger.Warn("github rate limit low",
			"remaining", resp.Rate.Remaining,
			"reset_in", time.Until(resp.Rate.Reset.Time).Round(time.Second),
		)
	}
}

// mapIssue converts a go-github Issue to a domain model Issue.
// It uses GetXxx() helper methods exclusively to avoid nil pointer panics.
func mapIssue(raw *gh.Issue) model.Issue {
	labels := make([]string, 0, len(raw.Labels))
	for _, l := range raw.Labels {
		labels = append(labels, l.GetName())
	}

	return model.Issue{
		Number:        raw.GetNumber(),
		Title:         raw.GetTitle(),
		Body:          raw.GetBody(),
		Labels:        labels,
		State:         strings.ToUpper(raw.GetState()),
		CreatedAt:     raw.GetCreatedAt().UTC(),
		UpdatedAt:     raw.GetUpdatedAt().UTC(),
		Author:        raw.GetUser().GetLogin(),
		CommentsCount: raw.GetComments(),
		URL:           raw.GetHTMLURL(),
	}
}

func splitRepo(fullName string) (string, string, error) {
	parts := strings.SplitN(fullName, "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("invalid repo name %q: expected owner/repo", fullName)
	}
	return parts[0], parts[1], nil
}
