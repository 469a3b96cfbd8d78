package application

import (
	"context"
	"fmt"

	"github.com/ericfisherdev/issuetriage/internal/domain/model"
)

// Summary is the triage progress shown by the status command.
type Summary struct {
	Repo      string
	Total     int
	Triaged   int
	Untriaged int
	Partial   int
	Verdicts  []VerdictCount
	Actions   map[model.Action]int
}

// Summarize counts verdicts and decisions over the whole session.
func Summarize(state *State) Summary {
	sum := Summary{
		Repo:    state.Snapshot.Repo,
		Total:   len(state.Snapshot.Issues),
		Actions: make(map[model.Action]int),
	}

	counts := make(map[model.Verdict]int)
	for _, issue := range state.Snapshot.Issues {
		counts[state.Finding(issue.Number).Verdict]++
		d, ok := state.Decision(issue.Number)
		if !ok {
			continue
		}
		sum.Actions[d.Action]++
		if d.IsPartial() {
			sum.Partial++
			continue
		}
		sum.Triaged++
	}
	sum.Untriaged = sum.Total - sum.Triaged

	for _, v := range model.Verdicts() {
		if n := counts[v]; n > 0 {
			sum.Verdicts = append(sum.Verdicts, VerdictCount{Verdict: v, Count: n})
		}
	}
	return sum
}

// Summary loads the session and summarizes it.
func (s *SessionService) Summary(ctx context.Context) (Summary, error) {
	state, err := s.Load(ctx)
	if err != nil {
		return Summary{}, err
	}
	return Summarize(state), nil
}

// RecordFinding is the analyzer's entry point: it validates a complete
// finding and replaces the stored one for that issue. Findings for issues
// outside the snapshot are rejected.
func (s *SessionService) RecordFinding(ctx context.Context, f model.Finding) error {
	if err := f.Validate(); err != nil {
		return err
	}
	snap, err := s.issues.Load(ctx)
	if err != nil {
		return fmt.Errorf("load issues: %w", err)
	}
	issue, ok := snap.Issue(f.Number)
	if !ok {
		return fmt.Errorf("issue #%d: %w", f.Number, model.ErrIssueNotFound)
	}
	if f.Title == "" {
		f.Title = issue.Title
	}
	if f.Evidence == nil {
		f.Evidence = []model.Evidence{}
	}
	if err := s.findings.Save(ctx, f); err != nil {
		return fmt.Errorf("save finding for #%d: %w", f.Number, err)
	}
	s.logger.Info("finding recorded", "issue_number", f.Number, "verdict", f.Verdict, "confidence", f.Confidence)
	return nil
}
