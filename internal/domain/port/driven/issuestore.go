package driven

import (
	"context"

	"github.com/ericfisherdev/issuetriage/internal/domain/model"
)

// IssueStore defines the driven port for the per-run issue snapshot.
// The snapshot is written once by a gathering run and only read afterwards.
type IssueStore interface {
	// Load returns the snapshot, or model.ErrStoreMissing if none was gathered.
	Load(ctx context.Context) (*model.Snapshot, error)

	// Replace writes a new snapshot, superseding the previous gathering run.
	Replace(ctx context.Context, snap *model.Snapshot) error
}
