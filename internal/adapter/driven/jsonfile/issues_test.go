package jsonfile

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ericfisherdev/issuetriage/internal/domain/model"
)

func TestIssueStore_ReadsGatheredSnapshot(t *testing.T) {
	dir := t.TempDir()
	content := `{
  "repo": "owner/repo",
  "fetched_at": "2025-01-20T08:00:00Z",
  "source": "github",
  "head_sha": "deadbeef",
  "issues": [
    {"number": 10, "title": "Upload fails on large files", "body": "big files", "labels": ["bug", "upload"],
     "state": "OPEN", "created_at": "2024-12-01T10:00:00Z", "updated_at": "2025-01-02T10:00:00Z",
     "last_comment_at": null, "author": "alice", "comments_count": 0, "url": "https://github.com/owner/repo/issues/10"}
  ]
}`
	require.NoError(t, os.WriteFile(filepath.Join(dir, IssuesFile), []byte(content), 0o644))

	snap, err := NewIssueStore(dir).Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "owner/repo", snap.Repo)
	assert.Equal(t, "deadbeef", snap.HeadSHA)
	require.Len(t, snap.Issues, 1)

	issue := snap.Issues[0]
	assert.Equal(t, 10, issue.Number)
	assert.Equal(t, []string{"bug", "upload"}, issue.Labels)
	assert.Nil(t, issue.LastCommentAt)
	assert.True(t, issue.IsOpen())
}

func TestIssueStore_ReplaceThenLoad(t *testing.T) {
	store := NewIssueStore(t.TempDir())
	ctx := context.Background()
	last := time.Date(2025, 1, 5, 0, 0, 0, 0, time.UTC)
	want := &model.Snapshot{
		Repo:      "owner/repo",
		FetchedAt: time.Date(2025, 1, 20, 8, 0, 0, 0, time.UTC),
		Source:    "github",
		Issues: []model.Issue{
			{Number: 3, Title: "a", Labels: []string{}, CreatedAt: last.Add(-time.Hour), LastCommentAt: &last},
		},
	}

	require.NoError(t, store.Replace(ctx, want))
	got, err := store.Load(ctx)
	require.NoError(t, err)
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("snapshot changed (-want +got):\n%s", diff)
	}
}

func TestIssueStore_Errors(t *testing.T) {
	t.Run("missing", func(t *testing.T) {
		_, err := NewIssueStore(t.TempDir()).Load(context.Background())
		assert.ErrorIs(t, err, model.ErrStoreMissing)
	})

	t.Run("duplicate numbers", func(t *testing.T) {
		dir := t.TempDir()
		content := `{"repo":"o/r","issues":[{"number":1,"title":"a"},{"number":1,"title":"b"}]}`
		require.NoError(t, os.WriteFile(filepath.Join(dir, IssuesFile), []byte(content), 0o644))

		_, err := NewIssueStore(dir).Load(context.Background())
		var corrupt *model.StoreCorruptionError
		assert.ErrorAs(t, err, &corrupt)
	})
}
