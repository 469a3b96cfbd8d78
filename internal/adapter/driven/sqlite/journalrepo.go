package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/ericfisherdev/issuetriage/internal/domain/model"
	"github.com/ericfisherdev/issuetriage/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.Journal = (*JournalRepo)(nil)

// JournalRepo is the SQLite implementation of the Journal port.
type JournalRepo struct {
	db  *DB
	now func() time.Time
}

// NewJournalRepo creates a new JournalRepo backed by the given DB.
func NewJournalRepo(db *DB) *JournalRepo {
	return &JournalRepo{db: db, now: time.Now}
}

// Record appends an entry. A zero At is stamped with the current time.
func (r *JournalRepo) Record(ctx context.Context, entry model.ActivityEntry) error {
	at := entry.At
	if at.IsZero() {
		at = r.now()
	}

	const query = `INSERT INTO activity (issue_number, kind, detail, at) VALUES (?, ?, ?, ?)`
	_, err := r.db.Writer.ExecContext(ctx, query,
		entry.IssueNumber, string(entry.Kind), entry.Detail, at.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("record %s for issue #%d: %w", entry.Kind, entry.IssueNumber, err)
	}
	return nil
}

// ListByIssue returns an issue's history, newest first.
func (r *JournalRepo) ListByIssue(ctx context.Context, number int) ([]model.ActivityEntry, error) {
	const query = `SELECT id, issue_number, kind, detail, at FROM activity
		WHERE issue_number = ? ORDER BY id DESC`
	rows, err := r.db.Reader.QueryContext(ctx, query, number)
	if err != nil {
		return nil, fmt.Errorf("list activity for issue #%d: %w", number, err)
	}
	defer rows.Close()

	result := []model.ActivityEntry{}
	for rows.Next() {
		var entry model.ActivityEntry
		var kind, at string
		if err := rows.Scan(&entry.ID, &entry.IssueNumber, &kind, &entry.Detail, &at); err != nil {
			return nil, fmt.Errorf("scan activity: %w", err)
		}
		entry.Kind = model.ActivityKind(kind)
		entry.At, err = parseTime(at)
		if err != nil {
			return nil, fmt.Errorf("parse at for activity %d: %w", entry.ID, err)
		}
		result = append(result, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate activity: %w", err)
	}
	return result, nil
}

// parseTime tries the SQLite datetime layouts the journal may contain.
func parseTime(s string) (time.Time, error) {
	formats := []string{
		time.RFC3339Nano,
		time.RFC3339,
		"2006-01-02 15:04:05",
		"2006-01-02T15:04:05",
	}

	for _, format := range formats {
		if t, err := time.Parse(format, s); err == nil {
			return t, nil
		}
	}

	return time.Time{}, fmt.Errorf("unrecognized time format: %s", s)
}
