package application_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ericfisherdev/issuetriage/internal/application"
	"github.com/ericfisherdev/issuetriage/internal/domain/model"
)

type mockSource struct {
	issues []model.Issue
	err    error
	repo   string
	labels []string
	limit  int
}

func (m *mockSource) FetchOpenIssues(_ context.Context, repo string, labels []string, limit int) ([]model.Issue, error) {
	m.repo, m.labels, m.limit = repo, labels, limit
	return m.issues, m.err
}

type mockInspector struct {
	repo    string
	sha     string
	repoErr error
	shaErr  error
}

func (m *mockInspector) HeadSHA(context.Context) (string, error)    { return m.sha, m.shaErr }
func (m *mockInspector) DetectRepo(context.Context) (string, error) { return m.repo, m.repoErr }

func TestGatherService_DetectsRepo(t *testing.T) {
	source := &mockSource{issues: []model.Issue{issue(1, "one")}}
	store := &mockIssueStore{}
	svc := application.NewGatherService(source, &mockInspector{repo: "acme/widgets", sha: "deadbeef"}, store, discardLogger())

	snap, err := svc.Gather(context.Background(), application.GatherOptions{Labels: []string{"bug"}, Limit: 5})
	require.NoError(t, err)

	assert.Equal(t, "acme/widgets", source.repo)
	assert.Equal(t, []string{"bug"}, source.labels)
	assert.Equal(t, 5, source.limit)
	assert.Equal(t, snap, store.snap)
	assert.Equal(t, "acme/widgets", snap.Repo)
	assert.Equal(t, "deadbeef", snap.HeadSHA)
	assert.Equal(t, application.SnapshotSource, snap.Source)
	assert.False(t, snap.FetchedAt.IsZero())
	assert.Len(t, snap.Issues, 1)
}

func TestGatherService_ExplicitRepoAndMissingHead(t *testing.T) {
	source := &mockSource{}
	store := &mockIssueStore{}
	svc := application.NewGatherService(source, &mockInspector{shaErr: errors.New("not a git repository")}, store, discardLogger())

	snap, err := svc.Gather(context.Background(), application.GatherOptions{Repo: "acme/other"})
	require.NoError(t, err)

	assert.Equal(t, "acme/other", source.repo)
	assert.Empty(t, snap.HeadSHA)
	assert.NotNil(t, snap.Issues)
}

func TestGatherService_Errors(t *testing.T) {
	store := &mockIssueStore{}

	svc := application.NewGatherService(&mockSource{}, &mockInspector{repoErr: errors.New("no origin")}, store, discardLogger())
	_, err := svc.Gather(context.Background(), application.GatherOptions{})
	assert.ErrorContains(t, err, "no origin")

	svc = application.NewGatherService(&mockSource{err: errors.New("401")}, nil, store, discardLogger())
	_, err = svc.Gather(context.Background(), application.GatherOptions{Repo: "acme/widgets"})
	assert.ErrorContains(t, err, "401")

	_, err = svc.Gather(context.Background(), application.GatherOptions{Repo: "acme/widgets", Limit: -1})
	var verr *model.ValidationError
	assert.True(t, errors.As(err, &verr))

	assert.Nil(t, store.snap, "nothing written on failure")
}
