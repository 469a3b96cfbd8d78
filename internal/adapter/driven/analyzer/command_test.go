package analyzer

import (
	"context"
	"io"
	"log/slog"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ericfisherdev/issuetriage/internal/domain/model"
	"github.com/ericfisherdev/issuetriage/internal/domain/port/driven"
)

func newCommand(t *testing.T, command string) *Command {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("analyzer commands run through sh")
	}
	return NewCommand(command, t.TempDir(), slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func request() driven.AnalysisRequest {
	return driven.AnalysisRequest{
		Repo:    "owner/repo",
		HeadSHA: "deadbeef",
		Issue:   model.Issue{Number: 42, Title: "Crash on start"},
		Prior:   model.NewPendingFinding(model.Issue{Number: 42, Title: "Crash on start"}),
	}
}

func TestCommand_DecodesFinding(t *testing.T) {
	cmd := newCommand(t, `cat >/dev/null; printf '{"number":%s,"verdict":"still_open","confidence":"MEDIUM","summary":"repo %s at %s","evidence":[{"type":"file","ref":"main.go","message":"no fix"}],"proposed_comment":"still broken"}' "$ISSUETRIAGE_ISSUE_NUMBER" "$ISSUETRIAGE_REPO" "$ISSUETRIAGE_HEAD_SHA"`)

	finding, err := cmd.Analyze(context.Background(), request())
	require.NoError(t, err)
	assert.Equal(t, 42, finding.Number)
	assert.Equal(t, "Crash on start", finding.Title)
	assert.Equal(t, model.VerdictStillOpen, finding.Verdict)
	assert.Equal(t, model.ConfidenceMedium, finding.Confidence)
	assert.Equal(t, "repo owner/repo at deadbeef", finding.Summary)
	require.Len(t, finding.Evidence, 1)
	assert.Equal(t, "file", finding.Evidence[0].Kind)
}

func TestCommand_ReceivesIssueOnStdin(t *testing.T) {
	cmd := newCommand(t, `grep -q '"title":"Crash on start"' && echo '{"verdict":"unclear","confidence":"LOW"}'`)

	finding, err := cmd.Analyze(context.Background(), request())
	require.NoError(t, err)
	assert.Equal(t, 42, finding.Number)
	assert.Equal(t, model.VerdictUnclear, finding.Verdict)
	assert.NotNil(t, finding.Evidence)
}

func TestCommand_Failures(t *testing.T) {
	tests := []struct {
		name    string
		command string
		wantErr string
	}{
		{"non-zero exit", `echo "model unavailable" >&2; exit 3`, "model unavailable"},
		{"not json", `echo "thinking..."`, "decode analyzer output"},
		{"unknown verdict", `echo '{"verdict":"maybe","confidence":"LOW"}'`, "unknown verdict"},
		{"wrong issue", `echo '{"number":7,"verdict":"unclear","confidence":"LOW"}'`, "expected #42"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := newCommand(t, tt.command).Analyze(context.Background(), request())
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestCommand_ContextCancelKillsProcess(t *testing.T) {
	cmd := newCommand(t, `sleep 30`)
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := cmd.Analyze(ctx, request())
	require.Error(t, err)
	assert.Less(t, time.Since(start), 10*time.Second)
}
