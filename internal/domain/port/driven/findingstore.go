package driven

import (
	"context"

	"github.com/ericfisherdev/issuetriage/internal/domain/model"
)

// FindingStore defines the driven port for the findings file. Every
// read-modify-write goes through the store's writer lock.
type FindingStore interface {
	// Load reads the current findings. A missing file is model.ErrStoreMissing.
	Load(ctx context.Context) (*model.FindingSet, error)

	// Save replaces the finding for f.Number. The finding must be complete.
	Save(ctx context.Context, f model.Finding) error

	// Update runs fn against the loaded set and persists the result atomically.
	// A missing file starts from an empty set. Nothing is written if fn fails.
	Update(ctx context.Context, fn func(*model.FindingSet) error) error
}

// StoreWatcher reports external changes to a store's backing file.
type StoreWatcher interface {
	// Watch calls onChange after each change until ctx is done.
	Watch(ctx context.Context, onChange func()) error
}
