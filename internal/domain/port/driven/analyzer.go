package driven

import (
	"context"

	"github.com/ericfisherdev/issuetriage/internal/domain/model"
)

// AnalysisRequest carries the context an analyzer needs for one issue.
type AnalysisRequest struct {
	Repo      string
	HeadSHA   string
	TriageDir string
	Issue     model.Issue
	Prior     model.Finding
}

// Analyzer defines the driven port for the external per-issue analysis step.
// It returns a complete replacement finding; callers validate it before use.
type Analyzer interface {
	Analyze(ctx context.Context, req AnalysisRequest) (model.Finding, error)
}
