package jsonfile

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strconv"

	"github.com/ericfisherdev/issuetriage/internal/domain/model"
	"github.com/ericfisherdev/issuetriage/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.DecisionStore = (*DecisionStore)(nil)

// stateDocument is the on-disk shape of state.json. Keys are issue numbers.
type stateDocument struct {
	Triaged map[string]model.Decision `json:"triaged"`
}

// DecisionStore reads and writes state.json.
type DecisionStore struct {
	file *fileStore
}

// NewDecisionStore creates a DecisionStore for the given triage directory.
func NewDecisionStore(dir string) *DecisionStore {
	return &DecisionStore{file: newFileStore("state", filepath.Join(dir, DecisionsFile))}
}

// Path returns the backing file.
func (s *DecisionStore) Path() string { return s.file.path }

// Load returns decisions keyed by issue number. No file means nothing has
// been triaged yet.
func (s *DecisionStore) Load(_ context.Context) (map[int]model.Decision, error) {
	return s.load()
}

func (s *DecisionStore) load() (map[int]model.Decision, error) {
	var doc stateDocument
	if err := s.file.read(&doc); err != nil {
		if errors.Is(err, model.ErrStoreMissing) {
			return map[int]model.Decision{}, nil
		}
		return nil, err
	}

	decisions := make(map[int]model.Decision, len(doc.Triaged))
	for key, d := range doc.Triaged {
		number, err := strconv.Atoi(key)
		if err != nil || number <= 0 {
			return nil, s.file.corrupt(fmt.Errorf("key %q is not an issue number", key))
		}
		if d.Action == "" {
			return nil, s.file.corrupt(fmt.Errorf("decision for #%d has no action", number))
		}
		d.Number = number
		decisions[number] = d
	}
	return decisions, nil
}

// Save records d, overwriting any earlier decision for the same issue.
func (s *DecisionStore) Save(_ context.Context, d model.Decision) error {
	if d.Number <= 0 {
		return &model.ValidationError{Field: "number", Message: "must be a positive issue number"}
	}
	if _, err := model.ParseAction(string(d.Action)); err != nil {
		return &model.ValidationError{Field: "action", Message: err.Error()}
	}

	return s.file.withLock(func() error {
		decisions, err := s.load()
		if err != nil {
			return err
		}
		decisions[d.Number] = d

		doc := stateDocument{Triaged: make(map[string]model.Decision, len(decisions))}
		for number, dec := range decisions {
			doc.Triaged[strconv.Itoa(number)] = dec
		}
		return s.file.write(doc)
	})
}
