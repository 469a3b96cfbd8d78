// Package application contains use-case orchestration services.
package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/ericfisherdev/issuetriage/internal/domain/model"
	"github.com/ericfisherdev/issuetriage/internal/domain/port/driven"
)

// State is one consistent read of all three stores.
type State struct {
	Snapshot  *model.Snapshot
	Findings  *model.FindingSet
	Decisions map[int]model.Decision
}

// Finding returns the finding for number. Load has already verified that
// every snapshot issue has one.
func (s *State) Finding(number int) model.Finding {
	f, _ := s.Findings.Get(number)
	return f
}

// Decision returns the recorded decision for number, if any.
func (s *State) Decision(number int) (model.Decision, bool) {
	d, ok := s.Decisions[number]
	return d, ok
}

// SessionService loads and initializes a triage session's stores.
type SessionService struct {
	issues    driven.IssueStore
	findings  driven.FindingStore
	decisions driven.DecisionStore
	logger    *slog.Logger
}

// NewSessionService creates a SessionService.
func NewSessionService(
	issues driven.IssueStore,
	findings driven.FindingStore,
	decisions driven.DecisionStore,
	logger *slog.Logger,
) *SessionService {
	return &SessionService{issues: issues, findings: findings, decisions: decisions, logger: logger}
}

// Initialize creates a pending finding for every snapshot issue that has
// none. Existing findings are left alone, so re-running is safe.
func (s *SessionService) Initialize(ctx context.Context) (int, error) {
	snap, err := s.issues.Load(ctx)
	if err != nil {
		return 0, fmt.Errorf("load issues: %w", err)
	}

	added := 0
	err = s.findings.Update(ctx, func(set *model.FindingSet) error {
		if set.Repo == "" {
			set.Repo = snap.Repo
		}
		for _, issue := range snap.Issues {
			if _, ok := set.Get(issue.Number); ok {
				continue
			}
			set.Put(model.NewPendingFinding(issue))
			added++
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("initialize findings: %w", err)
	}

	s.logger.Info("findings initialized", "issues", len(snap.Issues), "added", added)
	return added, nil
}

// Load reads all three stores. A snapshot issue without a finding is
// reported as corruption of the findings store; nothing is fabricated.
func (s *SessionService) Load(ctx context.Context) (*State, error) {
	snap, err := s.issues.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load issues: %w", err)
	}
	findings, err := s.findings.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load findings: %w", err)
	}
	decisions, err := s.decisions.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load triage state: %w", err)
	}

	byNumber := findings.ByNumber()
	for _, issue := range snap.Issues {
		if _, ok := byNumber[issue.Number]; !ok {
			return nil, &model.StoreCorruptionError{
				Store: "findings",
				Err:   fmt.Errorf("issue #%d has no finding; run without --serve-only to initialize", issue.Number),
			}
		}
	}

	return &State{Snapshot: snap, Findings: findings, Decisions: decisions}, nil
}

// ResolveRepo picks the repository identifier: the explicit value, else the
// one recorded in findings, else the snapshot's.
func (s *SessionService) ResolveRepo(ctx context.Context, explicit string) (string, error) {
	if explicit != "" {
		return explicit, nil
	}
	if set, err := s.findings.Load(ctx); err == nil && set.Repo != "" {
		return set.Repo, nil
	} else if err != nil && !errors.Is(err, model.ErrStoreMissing) {
		return "", err
	}
	if snap, err := s.issues.Load(ctx); err == nil && snap.Repo != "" {
		return snap.Repo, nil
	} else if err != nil && !errors.Is(err, model.ErrStoreMissing) {
		return "", err
	}
	return "", errors.New("cannot determine repo: pass --repo or gather issues first")
}
