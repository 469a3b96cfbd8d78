package jsonfile

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ericfisherdev/issuetriage/internal/domain/model"
)

func sampleFindings() *model.FindingSet {
	return &model.FindingSet{
		Repo:       "owner/repo",
		AnalyzedAt: time.Date(2025, 1, 20, 9, 30, 15, 123456789, time.UTC),
		Findings: []model.Finding{
			{
				Number:     10,
				Title:      "Upload fails on large files",
				Verdict:    model.VerdictLikelyResolved,
				Confidence: model.ConfidenceHigh,
				Summary:    "Fixed by chunked uploads.\nSee commit.",
				Evidence: []model.Evidence{
					{Kind: "commit", Ref: "abc123", Message: "switch to chunked upload", Date: "2025-01-18"},
					{Kind: "file", Ref: "upload/chunk.go", Message: "chunk size handling"},
				},
				ProposedComment: "This was fixed in abc123 — closing. \"quoted\" <b>",
				ProposedAction:  model.ProposedActionClose,
			},
			{
				Number:     11,
				Title:      "Upload fails for large files",
				Verdict:    model.VerdictPending,
				Confidence: model.ConfidencePending,
				Evidence:   []model.Evidence{},
			},
		},
	}
}

func TestFindingStore_RoundTrip(t *testing.T) {
	store := NewFindingStore(t.TempDir())
	ctx := context.Background()
	want := sampleFindings()

	require.NoError(t, store.Update(ctx, func(set *model.FindingSet) error {
		*set = *want
		return nil
	}))

	got, err := store.Load(ctx)
	require.NoError(t, err)
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("findings changed across save/load (-want +got):\n%s", diff)
	}

	// A second write of the loaded set reproduces the same bytes.
	first, err := os.ReadFile(store.Path())
	require.NoError(t, err)
	require.NoError(t, store.Update(ctx, func(*model.FindingSet) error { return nil }))
	second, err := os.ReadFile(store.Path())
	require.NoError(t, err)
	assert.Equal(t, string(first), string(second))
}

func TestFindingStore_LoadMissing(t *testing.T) {
	store := NewFindingStore(t.TempDir())

	_, err := store.Load(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, model.ErrStoreMissing)
}

func TestFindingStore_LoadCorrupt(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"malformed json", `{"repo": "owner/repo", "issues": [`},
		{"unknown verdict", `{"issues":[{"number":1,"verdict":"maybe","confidence":"LOW","evidence":[]}]}`},
		{"unknown confidence", `{"issues":[{"number":1,"verdict":"still_open","confidence":"SURE","evidence":[]}]}`},
		{"pending confidence with verdict", `{"issues":[{"number":1,"verdict":"still_open","confidence":"PENDING","evidence":[]}]}`},
		{"duplicate number", `{"issues":[{"number":1,"verdict":"pending","confidence":"PENDING"},{"number":1,"verdict":"pending","confidence":"PENDING"}]}`},
		{"missing verdict", `{"issues":[{"number":1,"confidence":"LOW"}]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			require.NoError(t, os.WriteFile(filepath.Join(dir, FindingsFile), []byte(tt.content), 0o644))
			store := NewFindingStore(dir)

			_, err := store.Load(context.Background())
			var corrupt *model.StoreCorruptionError
			require.ErrorAs(t, err, &corrupt)
			assert.Equal(t, store.Path(), corrupt.Path)
		})
	}
}

func TestFindingStore_SaveRejectsPartialFinding(t *testing.T) {
	store := NewFindingStore(t.TempDir())
	ctx := context.Background()

	err := store.Save(ctx, model.Finding{Number: 5, Verdict: model.VerdictStillOpen, Confidence: model.ConfidencePending})
	var verr *model.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "confidence", verr.Field)

	_, err = os.Stat(store.Path())
	assert.True(t, errors.Is(err, os.ErrNotExist), "nothing should be written")
}

func TestFindingStore_SaveReplacesAndSorts(t *testing.T) {
	store := NewFindingStore(t.TempDir())
	store.now = func() time.Time { return time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC) }
	ctx := context.Background()

	for _, n := range []int{30, 10, 20} {
		require.NoError(t, store.Save(ctx, model.NewPendingFinding(model.Issue{Number: n, Title: "t"})))
	}
	require.NoError(t, store.Save(ctx, model.Finding{
		Number: 20, Title: "t", Verdict: model.VerdictStillOpen, Confidence: model.ConfidenceMedium,
	}))

	set, err := store.Load(ctx)
	require.NoError(t, err)
	require.Len(t, set.Findings, 3)
	assert.Equal(t, 10, set.Findings[0].Number)
	assert.Equal(t, 20, set.Findings[1].Number)
	assert.Equal(t, 30, set.Findings[2].Number)
	assert.Equal(t, model.VerdictStillOpen, set.Findings[1].Verdict)
	assert.True(t, store.now().Equal(set.AnalyzedAt))
}

func TestFindingStore_UpdateErrorWritesNothing(t *testing.T) {
	store := NewFindingStore(t.TempDir())
	ctx := context.Background()
	require.NoError(t, store.Save(ctx, model.NewPendingFinding(model.Issue{Number: 1})))

	boom := errors.New("boom")
	err := store.Update(ctx, func(set *model.FindingSet) error {
		set.Put(model.Finding{Number: 2, Verdict: model.VerdictUnclear, Confidence: model.ConfidenceLow})
		return boom
	})
	require.ErrorIs(t, err, boom)

	set, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Len(t, set.Findings, 1)
}

func TestFindingStore_ConcurrentSavesAllLand(t *testing.T) {
	store := NewFindingStore(t.TempDir())
	ctx := context.Background()

	var wg sync.WaitGroup
	for n := 1; n <= 20; n++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			assert.NoError(t, store.Save(ctx, model.NewPendingFinding(model.Issue{Number: n})))
		}(n)
	}
	wg.Wait()

	set, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Len(t, set.Findings, 20)
}
