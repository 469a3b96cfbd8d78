package gitrepo

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseGitHubRemote(t *testing.T) {
	tests := []struct {
		url     string
		want    string
		wantErr bool
	}{
		{url: "git@github.com:owner/repo.git", want: "owner/repo"},
		{url: "https://github.com/owner/repo.git\n", want: "owner/repo"},
		{url: "https://github.com/owner/repo", want: "owner/repo"},
		{url: "ssh://git@github.com/owner/repo.name.git", want: "owner/repo.name"},
		{url: "https://gitlab.com/owner/repo.git", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			got, err := ParseGitHubRemote(tt.url)
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), "cannot parse repo")
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func initTestRepo(t *testing.T) (string, string) {
	t.Helper()

	dir := t.TempDir()
	repo, err := git.PlainInit(dir, false)
	require.NoError(t, err)

	_, err = repo.CreateRemote(&config.RemoteConfig{
		Name: "origin",
		URLs: []string{"git@github.com:owner/repo.git"},
	})
	require.NoError(t, err)

	wt, err := repo.Worktree()
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "README.md"), []byte("hello"), 0o644))
	_, err = wt.Add("README.md")
	require.NoError(t, err)

	hash, err := wt.Commit("initial", &git.CommitOptions{
		Author: &object.Signature{Name: "Test", Email: "test@example.com", When: time.Now()},
	})
	require.NoError(t, err)

	return dir, hash.String()
}

func TestInspector_FromSubdirectory(t *testing.T) {
	dir, sha := initTestRepo(t)
	sub := filepath.Join(dir, ".git", "triage")
	require.NoError(t, os.MkdirAll(sub, 0o755))

	inspector := New(sub)
	ctx := context.Background()

	head, err := inspector.HeadSHA(ctx)
	require.NoError(t, err)
	assert.Equal(t, sha, head)

	repo, err := inspector.DetectRepo(ctx)
	require.NoError(t, err)
	assert.Equal(t, "owner/repo", repo)
}

func TestInspector_NotARepository(t *testing.T) {
	_, err := New(t.TempDir()).HeadSHA(context.Background())
	assert.Error(t, err)
}
