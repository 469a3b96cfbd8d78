package jsonfile

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/ericfisherdev/issuetriage/internal/domain/model"
	"github.com/ericfisherdev/issuetriage/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.IssueStore = (*IssueStore)(nil)

// IssueStore reads and writes issues.json.
type IssueStore struct {
	file *fileStore
}

// NewIssueStore creates an IssueStore for the given triage directory.
func NewIssueStore(dir string) *IssueStore {
	return &IssueStore{file: newFileStore("issues", filepath.Join(dir, IssuesFile))}
}

// Path returns the backing file.
func (s *IssueStore) Path() string { return s.file.path }

// Load reads the snapshot and rejects duplicate or non-positive numbers.
func (s *IssueStore) Load(_ context.Context) (*model.Snapshot, error) {
	var snap model.Snapshot
	if err := s.file.read(&snap); err != nil {
		return nil, err
	}
	seen := make(map[int]bool, len(snap.Issues))
	for _, issue := range snap.Issues {
		if issue.Number <= 0 {
			return nil, s.file.corrupt(fmt.Errorf("issue number %d is not positive", issue.Number))
		}
		if seen[issue.Number] {
			return nil, s.file.corrupt(fmt.Errorf("issue #%d appears more than once", issue.Number))
		}
		seen[issue.Number] = true
	}
	return &snap, nil
}

// Replace writes a new snapshot.
func (s *IssueStore) Replace(_ context.Context, snap *model.Snapshot) error {
	if snap.Issues == nil {
		snap.Issues = []model.Issue{}
	}
	return s.file.withLock(func() error {
		return s.file.write(snap)
	})
}
