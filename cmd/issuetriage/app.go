package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/ericfisherdev/issuetriage/internal/adapter/driven/analyzer"
	githubadapter "github.com/ericfisherdev/issuetriage/internal/adapter/driven/github"
	"github.com/ericfisherdev/issuetriage/internal/adapter/driven/gitrepo"
	"github.com/ericfisherdev/issuetriage/internal/adapter/driven/jsonfile"
	sqliteadapter "github.com/ericfisherdev/issuetriage/internal/adapter/driven/sqlite"
	"github.com/ericfisherdev/issuetriage/internal/application"
	"github.com/ericfisherdev/issuetriage/internal/config"
	"github.com/ericfisherdev/issuetriage/internal/domain/port/driven"
)

// app holds the adapters and services shared by every command.
type app struct {
	cfg    *config.Config
	logger *slog.Logger

	issues    *jsonfile.IssueStore
	findings  *jsonfile.FindingStore
	decisions *jsonfile.DecisionStore
	db        *sqliteadapter.DB
	journal   driven.Journal
	github    *githubadapter.Client
	inspector *gitrepo.Inspector
	analyzer  driven.Analyzer

	session *application.SessionService
	dedupe  *application.DedupeService
}

// newApp loads configuration, applies flag overrides and wires adapters.
func newApp(ctx context.Context, cli *CLI) (*app, error) {
	cfg, err := config.Load(ctx)
	if err != nil {
		return nil, err
	}
	if cli.TriageDir != "" {
		cfg.TriageDir = cli.TriageDir
	}
	if cli.Repo != "" {
		cfg.Repo = cli.Repo
	}
	if cli.LogLevel != "" {
		cfg.LogLevel = cli.LogLevel
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.SlogLevel()}))
	slog.SetDefault(logger)
	logger.Debug("config loaded",
		"triage_dir", cfg.TriageDir,
		"repo", cfg.Repo,
		"port", cfg.Port,
		"analyzer", cfg.AnalyzerCommand != "",
		"github_token", cfg.HasGitHubCredentials(),
	)

	a := &app{
		cfg:       cfg,
		logger:    logger,
		issues:    jsonfile.NewIssueStore(cfg.TriageDir),
		findings:  jsonfile.NewFindingStore(cfg.TriageDir),
		decisions: jsonfile.NewDecisionStore(cfg.TriageDir),
		inspector: gitrepo.New("."),
	}

	// The journal only feeds the history panel; the review loop works
	// without it.
	db, err := sqliteadapter.Open(cfg.TriageDir)
	if err != nil {
		logger.Warn("activity journal unavailable", "dir", cfg.TriageDir, "error", err)
	} else {
		a.db = db
		a.journal = sqliteadapter.NewJournalRepo(db)
	}

	if cfg.HasGitHubCredentials() {
		a.github = githubadapter.NewClient(cfg.GitHubToken, logger)
	}
	if cfg.AnalyzerCommand != "" {
		a.analyzer = analyzer.NewCommand(cfg.AnalyzerCommand, ".", logger)
	}

	a.session = application.NewSessionService(a.issues, a.findings, a.decisions, logger)
	a.dedupe = application.NewDedupeService(a.issues, a.findings, a.journal, logger)
	return a, nil
}

// tracker returns the GitHub client as an IssueTracker, or nil without a
// token. A nil *Client must not leak into the interface.
func (a *app) tracker() driven.IssueTracker {
	if a.github == nil {
		return nil
	}
	return a.github
}

// repo resolves the repository for remote actions.
func (a *app) repo(ctx context.Context) (string, error) {
	repo, err := a.session.ResolveRepo(ctx, a.cfg.Repo)
	if err == nil {
		return repo, nil
	}
	detected, detectErr := a.inspector.DetectRepo(ctx)
	if detectErr != nil {
		return "", fmt.Errorf("%w (origin remote: %v)", err, detectErr)
	}
	return detected, nil
}

// Close releases the journal database.
func (a *app) Close() {
	if a.db == nil {
		return
	}
	if err := a.db.Close(); err != nil {
		a.logger.Error("error closing journal", "error", err)
	}
}
