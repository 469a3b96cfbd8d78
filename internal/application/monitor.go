package application

import (
	"context"
	"errors"
	"log/slog"

	"github.com/ericfisherdev/issuetriage/internal/domain/model"
	"github.com/ericfisherdev/issuetriage/internal/domain/port/driven"
)

// FindingsMonitor revalidates the findings file whenever it changes so that
// a malformed write by an external analyzer is reported immediately instead
// of on the next page load.
type FindingsMonitor struct {
	findings driven.FindingStore
	watcher  driven.StoreWatcher
	logger   *slog.Logger
	checked  chan error
}

// NewFindingsMonitor creates a FindingsMonitor.
func NewFindingsMonitor(findings driven.FindingStore, watcher driven.StoreWatcher, logger *slog.Logger) *FindingsMonitor {
	return &FindingsMonitor{
		findings: findings,
		watcher:  watcher,
		logger:   logger,
		checked:  make(chan error, 1),
	}
}

// Start watches until ctx is canceled. It returns the watcher's error, or
// nil on cancellation.
func (m *FindingsMonitor) Start(ctx context.Context) error {
	m.logger.Info("findings monitor started")
	err := m.watcher.Watch(ctx, func() { m.check(ctx) })
	m.logger.Info("findings monitor stopped")
	return err
}

// Checked delivers the result of each validation. Results are dropped when
// nobody is receiving.
func (m *FindingsMonitor) Checked() <-chan error {
	return m.checked
}

func (m *FindingsMonitor) check(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	set, err := m.findings.Load(ctx)

	var corrupt *model.StoreCorruptionError
	switch {
	case errors.As(err, &corrupt):
		m.logger.Warn("findings store is corrupt; fix or rewrite the file", "path", corrupt.Path, "error", corrupt.Err)
	case errors.Is(err, model.ErrStoreMissing):
		m.logger.Warn("findings store was removed")
	case err != nil:
		m.logger.Error("findings check failed", "error", err)
	default:
		m.logger.Debug("findings store changed", "findings", len(set.Findings))
	}

	select {
	case m.checked <- err:
	default:
	}
}
