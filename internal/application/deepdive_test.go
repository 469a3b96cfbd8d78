package application_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ericfisherdev/issuetriage/internal/application"
	"github.com/ericfisherdev/issuetriage/internal/domain/model"
	"github.com/ericfisherdev/issuetriage/internal/domain/port/driven"
)

func resolvedFinding(number int) model.Finding {
	return model.Finding{
		Number:          number,
		Title:           "Upload fails for large files",
		Verdict:         model.VerdictLikelyResolved,
		Confidence:      model.ConfidenceHigh,
		Summary:         "Chunked uploads landed in abc123.",
		Evidence:        []model.Evidence{{Kind: "commit", Ref: "abc123", Message: "chunked uploads"}},
		ProposedComment: "Fixed in abc123.",
		ProposedAction:  model.ProposedActionClose,
	}
}

func newDeepDive(t *testing.T, findings *mockFindingStore, analyzer driven.Analyzer, journal *mockJournal, timeout time.Duration) *application.DeepDiveService {
	t.Helper()
	var j driven.Journal
	if journal != nil {
		j = journal
	}
	svc := application.NewDeepDiveService(
		context.Background(),
		newIssueStore(issue(10, "Upload fails on large files"), issue(11, "Upload fails for large files")),
		findings,
		analyzer,
		j,
		t.TempDir(),
		timeout,
		discardLogger(),
	)
	t.Cleanup(svc.Wait)
	return svc
}

func TestDeepDive_Success(t *testing.T) {
	findings := pendingFindings(issue(10, "a"), issue(11, "b"))
	journal := &mockJournal{}
	var got driven.AnalysisRequest
	analyzer := analyzerFunc(func(_ context.Context, req driven.AnalysisRequest) (model.Finding, error) {
		got = req
		return resolvedFinding(11), nil
	})
	svc := newDeepDive(t, findings, analyzer, journal, time.Minute)
	before := time.Now().UTC()

	r, started, err := svc.Start(context.Background(), 11)
	require.NoError(t, err)
	require.True(t, started)
	assert.Equal(t, model.ResearchResearching, r.State)

	svc.Wait()

	status, ok := svc.Status(11)
	require.True(t, ok)
	assert.Equal(t, model.ResearchDone, status.State)
	assert.NotNil(t, status.FinishedAt)
	assert.Equal(t, resolvedFinding(11), findings.get(11))
	assert.False(t, findings.analyzedAt().Before(before), "stored set should carry the deep dive time")
	assert.Equal(t, "acme/widgets", got.Repo)
	assert.Equal(t, "abc123", got.HeadSHA)
	assert.True(t, got.Prior.IsPending())
	assert.Equal(t, []model.ActivityKind{
		model.ActivityDeepDiveStarted,
		model.ActivityFindingReplaced,
		model.ActivityDeepDiveDone,
	}, journal.kinds())
}

func TestDeepDive_AtMostOneRunPerIssue(t *testing.T) {
	findings := pendingFindings(issue(10, "a"), issue(11, "b"))
	release := make(chan struct{})
	var calls atomic.Int32
	analyzer := analyzerFunc(func(_ context.Context, _ driven.AnalysisRequest) (model.Finding, error) {
		calls.Add(1)
		<-release
		return resolvedFinding(11), nil
	})
	svc := newDeepDive(t, findings, analyzer, nil, time.Minute)

	first, started, err := svc.Start(context.Background(), 11)
	require.NoError(t, err)
	require.True(t, started)

	second, started, err := svc.Start(context.Background(), 11)
	require.NoError(t, err)
	assert.False(t, started)
	assert.Equal(t, first.InvocationID, second.InvocationID)

	close(release)
	svc.Wait()

	assert.Equal(t, int32(1), calls.Load())
}

func TestDeepDive_AnalyzerErrorLeavesFinding(t *testing.T) {
	findings := pendingFindings(issue(10, "a"), issue(11, "b"))
	before := findings.get(11)
	analyzer := analyzerFunc(func(_ context.Context, _ driven.AnalysisRequest) (model.Finding, error) {
		return model.Finding{}, errors.New("git log failed")
	})
	svc := newDeepDive(t, findings, analyzer, nil, time.Minute)

	_, _, err := svc.Start(context.Background(), 11)
	require.NoError(t, err)
	svc.Wait()

	status, _ := svc.Status(11)
	assert.Equal(t, model.ResearchFailed, status.State)
	assert.Contains(t, status.Error, "git log failed")
	assert.Equal(t, before, findings.get(11))
}

func TestDeepDive_RejectsIncompleteFinding(t *testing.T) {
	findings := pendingFindings(issue(10, "a"), issue(11, "b"))
	analyzer := analyzerFunc(func(_ context.Context, _ driven.AnalysisRequest) (model.Finding, error) {
		f := resolvedFinding(11)
		f.Confidence = model.ConfidencePending
		return f, nil
	})
	svc := newDeepDive(t, findings, analyzer, nil, time.Minute)

	_, _, err := svc.Start(context.Background(), 11)
	require.NoError(t, err)
	svc.Wait()

	status, _ := svc.Status(11)
	assert.Equal(t, model.ResearchFailed, status.State)
	assert.True(t, findings.get(11).IsPending())
}

func TestDeepDive_TimeoutDiscardsLateResult(t *testing.T) {
	findings := pendingFindings(issue(10, "a"), issue(11, "b"))
	release := make(chan struct{})
	analyzer := analyzerFunc(func(_ context.Context, _ driven.AnalysisRequest) (model.Finding, error) {
		<-release
		return resolvedFinding(11), nil
	})
	svc := newDeepDive(t, findings, analyzer, nil, 50*time.Millisecond)

	_, _, err := svc.Start(context.Background(), 11)
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		s, _ := svc.Status(11)
		return s.State == model.ResearchFailed
	}, 2*time.Second, 10*time.Millisecond)

	status, _ := svc.Status(11)
	assert.Contains(t, status.Error, model.ErrAnalysisTimeout.Error())

	close(release)
	svc.Wait()

	assert.True(t, findings.get(11).IsPending(), "late result must be discarded")
	status, _ = svc.Status(11)
	assert.Equal(t, model.ResearchFailed, status.State)
}

func TestDeepDive_CarriesDuplicateEvidence(t *testing.T) {
	i10, i11 := issue(10, "Upload fails on large files"), issue(11, "Upload fails for large files")
	findings := pendingFindings(i10, i11)
	findings.set.Put(application.DuplicateFinding(i11, application.DuplicateMatch{
		Number: 11, Original: 10, Confidence: model.ConfidenceHigh, SharedTerms: []string{"upload"},
	}))
	analyzer := analyzerFunc(func(_ context.Context, _ driven.AnalysisRequest) (model.Finding, error) {
		return resolvedFinding(11), nil
	})
	svc := newDeepDive(t, findings, analyzer, nil, time.Minute)

	_, _, err := svc.Start(context.Background(), 11)
	require.NoError(t, err)
	svc.Wait()

	got := findings.get(11)
	assert.Equal(t, model.VerdictLikelyResolved, got.Verdict)
	require.Len(t, got.Evidence, 2)
	assert.Equal(t, "commit", got.Evidence[0].Kind)
	assert.Equal(t, model.EvidenceKindDuplicate, got.Evidence[1].Kind)
	assert.Equal(t, "#10", got.Evidence[1].Ref)
}

func TestDeepDive_RestartAfterFailure(t *testing.T) {
	findings := pendingFindings(issue(10, "a"), issue(11, "b"))
	var calls atomic.Int32
	analyzer := analyzerFunc(func(_ context.Context, _ driven.AnalysisRequest) (model.Finding, error) {
		if calls.Add(1) == 1 {
			return model.Finding{}, errors.New("flaky")
		}
		return resolvedFinding(11), nil
	})
	svc := newDeepDive(t, findings, analyzer, nil, time.Minute)

	first, _, err := svc.Start(context.Background(), 11)
	require.NoError(t, err)
	svc.Wait()

	second, started, err := svc.Start(context.Background(), 11)
	require.NoError(t, err)
	require.True(t, started)
	assert.NotEqual(t, first.InvocationID, second.InvocationID)
	svc.Wait()

	status, _ := svc.Status(11)
	assert.Equal(t, model.ResearchDone, status.State)
}

func TestDeepDive_Errors(t *testing.T) {
	findings := pendingFindings(issue(10, "a"), issue(11, "b"))

	noAnalyzer := newDeepDive(t, findings, nil, nil, time.Minute)
	_, _, err := noAnalyzer.Start(context.Background(), 11)
	assert.ErrorIs(t, err, model.ErrAnalyzerUnavailable)
	var aerr *model.AnalysisError
	assert.True(t, errors.As(err, &aerr))

	svc := newDeepDive(t, findings, analyzerFunc(func(context.Context, driven.AnalysisRequest) (model.Finding, error) {
		return resolvedFinding(99), nil
	}), nil, time.Minute)
	_, _, err = svc.Start(context.Background(), 99)
	assert.ErrorIs(t, err, model.ErrIssueNotFound)

	status, ok := svc.Status(99)
	assert.False(t, ok)
	assert.Equal(t, model.ResearchIdle, status.State)
}
