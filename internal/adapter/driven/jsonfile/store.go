// Package jsonfile implements the issue, finding and decision stores on top
// of the JSON files kept in the triage directory.
package jsonfile

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/natefinch/atomic"

	"github.com/ericfisherdev/issuetriage/internal/domain/model"
)

// File names inside the triage directory.
const (
	IssuesFile    = "issues.json"
	FindingsFile  = "findings.json"
	DecisionsFile = "state.json"
)

// fileStore serialises read-modify-write cycles on one JSON file. The mutex
// covers goroutines in this process; the advisory lock on "<path>.lock"
// covers other processes such as an analyzer running record-finding.
type fileStore struct {
	name string
	path string
	mu   sync.Mutex
}

func newFileStore(name, path string) *fileStore {
	return &fileStore{name: name, path: path}
}

// withLock runs fn while holding both the in-process and the file lock.
func (s *fileStore) withLock(fn func() error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create %s directory: %w", s.name, err)
	}

	lock, err := os.OpenFile(s.path+".lock", os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return fmt.Errorf("open %s lock: %w", s.name, err)
	}
	defer lock.Close()

	if err := lockFile(lock); err != nil {
		return fmt.Errorf("acquire %s lock: %w", s.name, err)
	}
	defer func() { _ = unlockFile(lock) }()

	return fn()
}

// read decodes the file into v. A missing file is reported as
// model.ErrStoreMissing; undecodable content as a StoreCorruptionError.
func (s *fileStore) read(v any) error {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("read %s: %w", s.path, model.ErrStoreMissing)
		}
		return fmt.Errorf("read %s: %w", s.path, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return s.corrupt(err)
	}
	return nil
}

// write replaces the file atomically so readers never see a partial document.
func (s *fileStore) write(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal %s: %w", s.name, err)
	}
	data = append(data, '\n')
	if err := atomic.WriteFile(s.path, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("write %s: %w", s.path, err)
	}
	return nil
}

func (s *fileStore) corrupt(err error) error {
	return &model.StoreCorruptionError{Store: s.name, Path: s.path, Err: err}
}
