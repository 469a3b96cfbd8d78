package application_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ericfisherdev/issuetriage/internal/application"
	"github.com/ericfisherdev/issuetriage/internal/domain/model"
)

func withBody(i model.Issue, body string) model.Issue {
	i.Body = body
	return i
}

func TestDetectDuplicates_NearIdenticalTitles(t *testing.T) {
	issues := []model.Issue{
		issue(10, "Upload fails on large files", "bug", "upload"),
		issue(11, "Upload fails for large files", "bug", "upload"),
	}

	matches := application.DetectDuplicates(issues)

	require.Len(t, matches, 1)
	assert.Equal(t, 11, matches[0].Number)
	assert.Equal(t, 10, matches[0].Original)
	assert.Equal(t, model.ConfidenceHigh, matches[0].Confidence)
	assert.Contains(t, matches[0].SharedTerms, "upload")
}

func TestDetectDuplicates_OrderOfInputDoesNotMatter(t *testing.T) {
	issues := []model.Issue{
		issue(11, "Upload fails for large files"),
		issue(10, "Upload fails on large files"),
	}

	matches := application.DetectDuplicates(issues)

	require.Len(t, matches, 1)
	assert.Equal(t, 11, matches[0].Number)
	assert.Equal(t, 10, matches[0].Original)
}

func TestDetectDuplicates_UnrelatedIssues(t *testing.T) {
	issues := []model.Issue{
		issue(1, "Dark mode for settings page"),
		issue(2, "Crash when importing CSV"),
		issue(3, "Typo in README"),
	}

	assert.Empty(t, application.DetectDuplicates(issues))
}

func TestDetectDuplicates_LowestNumberIsNeverFlagged(t *testing.T) {
	issues := []model.Issue{
		issue(3, "Search index rebuild hangs"),
		issue(1, "Search index rebuild hangs"),
		issue(2, "Search index rebuild hangs"),
	}

	matches := application.DetectDuplicates(issues)

	require.Len(t, matches, 2)
	assert.Equal(t, 2, matches[0].Number)
	assert.Equal(t, 1, matches[0].Original)
	assert.Equal(t, 3, matches[1].Number)
	assert.Equal(t, 1, matches[1].Original, "ties resolve to the oldest issue")
	for _, m := range matches {
		assert.NotEqual(t, 1, m.Number)
	}
}

func TestDetectDuplicates_Confidence(t *testing.T) {
	tests := []struct {
		name  string
		older model.Issue
		newer model.Issue
		want  model.Confidence
	}{
		{
			name:  "cross reference is high",
			older: issue(5, "Crash when saving large project file"),
			newer: withBody(issue(6, "Crash saving large project"), "Looks like #5 again."),
			want:  model.ConfidenceHigh,
		},
		{
			name: "shared labels and body terms are medium",
			older: withBody(issue(5, "Crash when saving large project file", "crash-report"),
				"The editor crashes while saving a large project to the network disk."),
			newer: withBody(issue(6, "Crash saving large project", "crash-report"),
				"Editor crashes saving large project on network disk."),
			want: model.ConfidenceMedium,
		},
		{
			name:  "title overlap alone is low",
			older: issue(5, "Crash when saving large project file"),
			newer: issue(6, "Crash saving large project"),
			want:  model.ConfidenceLow,
		},
		{
			name: "generic labels do not make medium",
			older: withBody(issue(5, "Crash when saving large project file", "bug"),
				"Something odd happens."),
			newer: withBody(issue(6, "Crash saving large project", "bug", "ui"),
				"Different words entirely here."),
			want: model.ConfidenceLow,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			matches := application.DetectDuplicates([]model.Issue{tt.older, tt.newer})
			require.Len(t, matches, 1)
			assert.Equal(t, tt.newer.Number, matches[0].Number)
			assert.Equal(t, tt.want, matches[0].Confidence)
		})
	}
}

func TestDetectDuplicates_NearIdenticalBodies(t *testing.T) {
	body := "Steps: open the app, click login with valid credentials, observe spinner forever. Expected dashboard."
	issues := []model.Issue{
		withBody(issue(20, "Login broken"), body),
		withBody(issue(21, "Cannot sign in"), body),
	}

	matches := application.DetectDuplicates(issues)

	require.Len(t, matches, 1)
	assert.Equal(t, 21, matches[0].Number)
	assert.Equal(t, 20, matches[0].Original)
}

func TestDetectDuplicates_IgnoresClosedIssues(t *testing.T) {
	closed := issue(10, "Upload fails on large files")
	closed.State = "CLOSED"

	matches := application.DetectDuplicates([]model.Issue{closed, issue(11, "Upload fails for large files")})

	assert.Empty(t, matches)
}

func TestDuplicateFinding(t *testing.T) {
	i := issue(11, "Upload fails for large files")
	m := application.DuplicateMatch{
		Number:      11,
		Original:    10,
		Confidence:  model.ConfidenceHigh,
		SharedTerms: []string{"fails", "files"},
	}

	f := application.DuplicateFinding(i, m)

	require.NoError(t, f.Validate())
	assert.Equal(t, model.VerdictDuplicate, f.Verdict)
	assert.Equal(t, model.ConfidenceHigh, f.Confidence)
	assert.Equal(t, model.ProposedActionClose, f.ProposedAction)
	assert.Contains(t, f.ProposedComment, "#10")
	require.Len(t, f.Evidence, 1)
	assert.Equal(t, model.EvidenceKindDuplicate, f.Evidence[0].Kind)
	assert.Equal(t, "#10", f.Evidence[0].Ref)
	assert.Equal(t, "shared terms: fails, files", f.Evidence[0].Message)
}

func TestDedupeService_Run(t *testing.T) {
	issues := []model.Issue{
		issue(10, "Upload fails on large files", "bug"),
		issue(11, "Upload fails for large files", "bug"),
		issue(12, "Add keyboard shortcuts"),
	}
	findings := pendingFindings(issues...)
	journal := &mockJournal{}
	svc := application.NewDedupeService(newIssueStore(issues...), findings, journal, discardLogger())

	applied, err := svc.Run(context.Background())
	require.NoError(t, err)

	require.Len(t, applied, 1)
	dup := findings.get(11)
	assert.Equal(t, model.VerdictDuplicate, dup.Verdict)
	assert.Equal(t, model.ConfidenceHigh, dup.Confidence)
	assert.Equal(t, "#10", dup.Evidence[0].Ref)
	assert.True(t, findings.get(10).IsPending())
	assert.True(t, findings.get(12).IsPending())
	assert.Equal(t, []model.ActivityKind{model.ActivityDuplicateFlagged}, journal.kinds())
}

func TestDedupeService_Idempotent(t *testing.T) {
	issues := []model.Issue{
		issue(10, "Upload fails on large files"),
		issue(11, "Upload fails for large files"),
	}
	findings := pendingFindings(issues...)
	svc := application.NewDedupeService(newIssueStore(issues...), findings, nil, discardLogger())

	_, err := svc.Run(context.Background())
	require.NoError(t, err)
	first := findings.get(11)

	applied, err := svc.Run(context.Background())
	require.NoError(t, err)

	assert.Empty(t, applied)
	assert.Equal(t, first, findings.get(11))
}

func TestDedupeService_LeavesAnalyzedFindings(t *testing.T) {
	issues := []model.Issue{
		issue(10, "Upload fails on large files"),
		issue(11, "Upload fails for large files"),
	}
	analyzed := model.Finding{
		Number:     11,
		Title:      "Upload fails for large files",
		Verdict:    model.VerdictLikelyResolved,
		Confidence: model.ConfidenceMedium,
		Summary:    "Fixed by chunked uploads.",
		Evidence:   []model.Evidence{},
	}
	findings := pendingFindings(issues...)
	findings.set.Put(analyzed)
	svc := application.NewDedupeService(newIssueStore(issues...), findings, nil, discardLogger())

	applied, err := svc.Run(context.Background())
	require.NoError(t, err)

	assert.Empty(t, applied)
	assert.Equal(t, analyzed, findings.get(11))
}
