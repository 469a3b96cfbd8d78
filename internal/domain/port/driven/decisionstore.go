package driven

import (
	"context"

	"github.com/ericfisherdev/issuetriage/internal/domain/model"
)

// DecisionStore defines the driven port for the triage state file.
// Save overwrites any earlier decision for the same issue (last action wins).
type DecisionStore interface {
	Load(ctx context.Context) (map[int]model.Decision, error)
	Save(ctx context.Context, d model.Decision) error
}
