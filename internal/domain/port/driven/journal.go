package driven

import (
	"context"

	"github.com/ericfisherdev/issuetriage/internal/domain/model"
)

// Journal defines the driven port for the append-only activity history.
type Journal interface {
	Record(ctx context.Context, entry model.ActivityEntry) error

	// ListByIssue returns an issue's entries newest first.
	ListByIssue(ctx context.Context, number int) ([]model.ActivityEntry, error)
}
