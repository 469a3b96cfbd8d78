package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ericfisherdev/issuetriage/internal/domain/model"
)

func TestJournalRepo_RecordAndListNewestFirst(t *testing.T) {
	db := setupTestDB(t)
	repo := NewJournalRepo(db)
	ctx := context.Background()
	at := time.Date(2025, 2, 3, 4, 5, 6, 700, time.UTC)

	require.NoError(t, repo.Record(ctx, model.ActivityEntry{IssueNumber: 42, Kind: model.ActivityDeepDiveStarted, At: at}))
	require.NoError(t, repo.Record(ctx, model.ActivityEntry{IssueNumber: 7, Kind: model.ActivitySkipped, At: at}))
	require.NoError(t, repo.Record(ctx, model.ActivityEntry{
		IssueNumber: 42, Kind: model.ActivityActionFailed, Detail: "close failed", At: at.Add(time.Minute),
	}))

	entries, err := repo.ListByIssue(ctx, 42)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	assert.Equal(t, model.ActivityActionFailed, entries[0].Kind)
	assert.Equal(t, "close failed", entries[0].Detail)
	assert.True(t, entries[0].At.Equal(at.Add(time.Minute)))
	assert.Equal(t, model.ActivityDeepDiveStarted, entries[1].Kind)
	assert.True(t, entries[1].At.Equal(at))
	assert.Greater(t, entries[0].ID, entries[1].ID)
}

func TestJournalRepo_ZeroTimeIsStamped(t *testing.T) {
	db := setupTestDB(t)
	repo := NewJournalRepo(db)
	fixed := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	repo.now = func() time.Time { return fixed }
	ctx := context.Background()

	require.NoError(t, repo.Record(ctx, model.ActivityEntry{IssueNumber: 1, Kind: model.ActivityDuplicateFlagged}))

	entries, err := repo.ListByIssue(ctx, 1)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.True(t, entries[0].At.Equal(fixed))
}

func TestJournalRepo_ListUnknownIssueIsEmpty(t *testing.T) {
	db := setupTestDB(t)
	repo := NewJournalRepo(db)

	entries, err := repo.ListByIssue(context.Background(), 999)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestJournalRepo_RejectsNonPositiveIssue(t *testing.T) {
	db := setupTestDB(t)
	repo := NewJournalRepo(db)

	err := repo.Record(context.Background(), model.ActivityEntry{IssueNumber: 0, Kind: model.ActivitySkipped})
	assert.Error(t, err)
}

func TestOpen_CreatesJournalInDir(t *testing.T) {
	dir := t.TempDir() + "/nested/triage"

	db, err := Open(dir)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	assert.Equal(t, dir+"/"+JournalFile, db.Path())
	// Re-running migrations on an up-to-date schema is a no-op.
	require.NoError(t, RunMigrations(db.Writer))
}
