package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/alecthomas/kong"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ericfisherdev/issuetriage/internal/adapter/driven/jsonfile"
	"github.com/ericfisherdev/issuetriage/internal/application"
	"github.com/ericfisherdev/issuetriage/internal/domain/model"
)

func TestDecodeFinding(t *testing.T) {
	f, err := decodeFinding(strings.NewReader(`{
		"number": 12,
		"verdict": "still_open",
		"confidence": "MEDIUM",
		"summary": "Still reproduces on main.",
		"evidence": [{"type": "file", "ref": "src/save.go:40", "message": "unchanged"}],
		"proposed_comment": ""
	}`))

	require.NoError(t, err)
	assert.Equal(t, 12, f.Number)
	assert.Equal(t, model.VerdictStillOpen, f.Verdict)
	require.Len(t, f.Evidence, 1)
	assert.Equal(t, "file", f.Evidence[0].Kind)
}

func TestDecodeFinding_Rejects(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{name: "empty", input: ""},
		{name: "malformed", input: `{"number":`},
		{name: "unknown field", input: `{"number": 1, "verdit": "duplicate"}`},
		{name: "two documents", input: `{"number": 1} {"number": 2}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := decodeFinding(strings.NewReader(tt.input))
			assert.Error(t, err)
		})
	}
}

func TestWriteSummary(t *testing.T) {
	var buf bytes.Buffer
	err := writeSummary(&buf, application.Summary{
		Repo:      "acme/widgets",
		Total:     3,
		Triaged:   2,
		Untriaged: 1,
		Partial:   1,
		Verdicts: []application.VerdictCount{
			{Verdict: model.VerdictDuplicate, Count: 1},
			{Verdict: model.VerdictPending, Count: 2},
		},
		Actions: map[model.Action]int{model.ActionClosed: 1, model.ActionSkipped: 1},
	})

	require.NoError(t, err)
	out := buf.String()
	assert.Contains(t, out, "Repository: acme/widgets")
	assert.Contains(t, out, "duplicate")
	assert.Contains(t, out, "untriaged")
	assert.Contains(t, out, "partially applied")
	assert.Less(t, strings.Index(out, "closed"), strings.Index(out, "skipped"))
}

func TestTriageDirHelpNamesStoreFiles(t *testing.T) {
	var cli CLI
	parser, err := kong.New(&cli, kongOptions()...)
	require.NoError(t, err)

	var help string
	for _, f := range parser.Model.Flags {
		if f.Name == "triage-dir" {
			help = f.Help
		}
	}
	require.NotEmpty(t, help)
	for _, name := range []string{jsonfile.IssuesFile, jsonfile.FindingsFile, jsonfile.DecisionsFile} {
		assert.Contains(t, help, name)
	}
	assert.NotContains(t, help, "triage-state.json")
}
