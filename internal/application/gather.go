package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ericfisherdev/issuetriage/internal/domain/model"
	"github.com/ericfisherdev/issuetriage/internal/domain/port/driven"
)

// SnapshotSource tags snapshots gathered through the GitHub API.
const SnapshotSource = "github"

// GatherOptions narrows a gathering run.
type GatherOptions struct {
	// Repo is "owner/name"; empty means detect it from the origin remote.
	Repo   string
	Labels []string
	// Limit caps the number of issues; zero means all.
	Limit int
}

// GatherService writes a fresh issue snapshot from the tracker.
type GatherService struct {
	source    driven.IssueSource
	inspector driven.RepoInspector
	issues    driven.IssueStore
	now       func() time.Time
	logger    *slog.Logger
}

// NewGatherService creates a GatherService. inspector may be nil when the
// repository is always given explicitly.
func NewGatherService(
	source driven.IssueSource,
	inspector driven.RepoInspector,
	issues driven.IssueStore,
	logger *slog.Logger,
) *GatherService {
	return &GatherService{source: source, inspector: inspector, issues: issues, now: time.Now, logger: logger}
}

// Gather fetches open issues and replaces the snapshot. The head commit is
// recorded when the local checkout can be read; otherwise it is left empty.
func (s *GatherService) Gather(ctx context.Context, opts GatherOptions) (*model.Snapshot, error) {
	if opts.Limit < 0 {
		return nil, &model.ValidationError{Field: "limit", Message: "must not be negative"}
	}

	repo := opts.Repo
	if repo == "" {
		if s.inspector == nil {
			return nil, errors.New("cannot detect repo: pass --repo")
		}
		detected, err := s.inspector.DetectRepo(ctx)
		if err != nil {
			return nil, fmt.Errorf("detect repo: %w", err)
		}
		repo = detected
	}

	headSHA := ""
	if s.inspector != nil {
		sha, err := s.inspector.HeadSHA(ctx)
		if err != nil {
			s.logger.Warn("could not read HEAD commit", "error", err)
		} else {
			headSHA = sha
		}
	}

	s.logger.Info("gathering issues", "repo", repo, "limit", opts.Limit, "labels", opts.Labels)
	start := time.Now()

	issues, err := s.source.FetchOpenIssues(ctx, repo, opts.Labels, opts.Limit)
	if err != nil {
		return nil, fmt.Errorf("fetch issues for %s: %w", repo, err)
	}
	if issues == nil {
		issues = []model.Issue{}
	}

	snap := &model.Snapshot{
		Repo:      repo,
		FetchedAt: s.now().UTC(),
		Source:    SnapshotSource,
		HeadSHA:   headSHA,
		Issues:    issues,
	}
	if err := s.issues.Replace(ctx, snap); err != nil {
		return nil, fmt.Errorf("write snapshot: %w", err)
	}

	s.logger.Info("gathering complete",
		"repo", repo,
		"issues", len(issues),
		"duration", time.Since(start).Round(time.Millisecond),
	)
	return snap, nil
}
