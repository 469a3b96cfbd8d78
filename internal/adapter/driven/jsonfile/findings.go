package jsonfile

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/ericfisherdev/issuetriage/internal/domain/model"
	"github.com/ericfisherdev/issuetriage/internal/domain/port/driven"
)

// Compile-time interface satisfaction checks.
var (
	_ driven.FindingStore = (*FindingStore)(nil)
	_ driven.StoreWatcher = (*FindingStore)(nil)
)

// FindingStore reads and writes findings.json.
type FindingStore struct {
	file *fileStore
	now  func() time.Time
}

// NewFindingStore creates a FindingStore for the given triage directory.
func NewFindingStore(dir string) *FindingStore {
	return &FindingStore{
		file: newFileStore("findings", filepath.Join(dir, FindingsFile)),
		now:  time.Now,
	}
}

// Path returns the backing file.
func (s *FindingStore) Path() string { return s.file.path }

// Watch calls onChange whenever findings.json is rewritten, including by
// other processes.
func (s *FindingStore) Watch(ctx context.Context, onChange func()) error {
	return Watch(ctx, s.file.path, onChange)
}

// Load reads and validates every finding.
func (s *FindingStore) Load(_ context.Context) (*model.FindingSet, error) {
	return s.load()
}

func (s *FindingStore) load() (*model.FindingSet, error) {
	var set model.FindingSet
	if err := s.file.read(&set); err != nil {
		return nil, err
	}
	if err := set.Validate(); err != nil {
		return nil, s.file.corrupt(err)
	}
	if set.Findings == nil {
		set.Findings = []model.Finding{}
	}
	return &set, nil
}

// Save validates f and replaces the stored finding for its issue.
func (s *FindingStore) Save(ctx context.Context, f model.Finding) error {
	if err := f.Validate(); err != nil {
		return err
	}
	return s.Update(ctx, func(set *model.FindingSet) error {
		set.Put(f)
		set.AnalyzedAt = s.now().UTC()
		return nil
	})
}

// Update loads the set under the writer lock, applies fn and persists the
// result. The set is validated before writing so no partial record lands.
func (s *FindingStore) Update(_ context.Context, fn func(*model.FindingSet) error) error {
	return s.file.withLock(func() error {
		set, err := s.load()
		if errors.Is(err, model.ErrStoreMissing) {
			set = &model.FindingSet{Findings: []model.Finding{}}
		} else if err != nil {
			return err
		}

		if err := fn(set); err != nil {
			return err
		}
		if err := set.Validate(); err != nil {
			return fmt.Errorf("refuse to write findings: %w", err)
		}
		return s.file.write(set)
	})
}
