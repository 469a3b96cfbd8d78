package application

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ericfisherdev/issuetriage/internal/domain/model"
	"github.com/ericfisherdev/issuetriage/internal/domain/port/driven"
)

// DedupeService runs duplicate detection over the snapshot and records a
// duplicate finding for each flagged issue whose finding is still pending.
type DedupeService struct {
	issues   driven.IssueStore
	findings driven.FindingStore
	journal  driven.Journal
	logger   *slog.Logger
}

// NewDedupeService creates a DedupeService. journal may be nil.
func NewDedupeService(
	issues driven.IssueStore,
	findings driven.FindingStore,
	journal driven.Journal,
	logger *slog.Logger,
) *DedupeService {
	return &DedupeService{issues: issues, findings: findings, journal: journal, logger: logger}
}

// Run detects duplicates and writes their findings. Only pending findings
// are touched, so running it again after analysis or a previous run changes
// nothing. It returns the matches that were applied.
func (s *DedupeService) Run(ctx context.Context) ([]DuplicateMatch, error) {
	snap, err := s.issues.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load issues: %w", err)
	}

	matches := DetectDuplicates(snap.Issues)
	var applied []DuplicateMatch

	err = s.findings.Update(ctx, func(set *model.FindingSet) error {
		applied = applied[:0]
		for _, m := range matches {
			current, ok := set.Get(m.Number)
			if !ok || !current.IsPending() {
				continue
			}
			issue, _ := snap.Issue(m.Number)
			set.Put(DuplicateFinding(issue, m))
			applied = append(applied, m)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("record duplicates: %w", err)
	}

	for _, m := range applied {
		s.logger.Info("duplicate flagged",
			"issue_number", m.Number,
			"original", m.Original,
			"confidence", m.Confidence,
		)
		recordActivity(ctx, s.journal, s.logger, model.ActivityEntry{
			IssueNumber: m.Number,
			Kind:        model.ActivityDuplicateFlagged,
			Detail:      fmt.Sprintf("duplicate of #%d (%s)", m.Original, m.Confidence),
		})
	}

	s.logger.Info("duplicate detection complete", "candidates", len(matches), "flagged", len(applied))
	return applied, nil
}

// recordActivity appends to the journal when one is configured. Journal
// failures are logged and never fail the operation that triggered them.
func recordActivity(ctx context.Context, journal driven.Journal, logger *slog.Logger, entry model.ActivityEntry) {
	if journal == nil {
		return
	}
	if err := journal.Record(ctx, entry); err != nil {
		logger.Warn("failed to record activity",
			"issue_number", entry.IssueNumber,
			"kind", entry.Kind,
			"error", err,
		)
	}
}
