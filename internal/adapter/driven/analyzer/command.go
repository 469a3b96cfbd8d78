// Package analyzer runs the external per-issue analysis step as a shell
// command speaking JSON over stdin and stdout.
package analyzer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/ericfisherdev/issuetriage/internal/domain/model"
	"github.com/ericfisherdev/issuetriage/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.Analyzer = (*Command)(nil)

// stderrTail bounds how much analyzer stderr is kept in error messages.
const stderrTail = 2048

// input is the document written to the command's stdin.
type input struct {
	Repo    string        `json:"repo"`
	HeadSHA string        `json:"head_sha"`
	Issue   model.Issue   `json:"issue"`
	Prior   model.Finding `json:"prior_finding"`
}

// Command runs a shell command for each analysis. The command receives the
// issue on stdin and must print one complete Finding as JSON on stdout.
type Command struct {
	command string
	workDir string
	logger  *slog.Logger
}

// NewCommand creates a Command analyzer. workDir is the repository checkout
// the command runs in.
func NewCommand(command, workDir string, logger *slog.Logger) *Command {
	return &Command{command: command, workDir: workDir, logger: logger}
}

// Analyze runs the command and decodes its finding. Cancelling ctx kills the
// process.
func (c *Command) Analyze(ctx context.Context, req driven.AnalysisRequest) (model.Finding, error) {
	payload, err := json.Marshal(input{
		Repo:    req.Repo,
		HeadSHA: req.HeadSHA,
		Issue:   req.Issue,
		Prior:   req.Prior,
	})
	if err != nil {
		return model.Finding{}, fmt.Errorf("marshal analyzer input: %w", err)
	}

	cmd := exec.CommandContext(ctx, "sh", "-c", c.command)
	cmd.Dir = c.workDir
	cmd.Env = append(os.Environ(),
		"ISSUETRIAGE_ISSUE_NUMBER="+strconv.Itoa(req.Issue.Number),
		"ISSUETRIAGE_REPO="+req.Repo,
		"ISSUETRIAGE_HEAD_SHA="+req.HeadSHA,
		"ISSUETRIAGE_TRIAGE_DIR="+req.TriageDir,
	)
	cmd.Stdin = bytes.NewReader(payload)
	cmd.WaitDelay = 5 * time.Second

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	runErr := cmd.Run()
	c.logger.Debug("analyzer finished",
		"issue", req.Issue.Number,
		"duration", time.Since(start).Round(time.Millisecond),
		"stdout_bytes", stdout.Len(),
	)
	if runErr != nil {
		return model.Finding{}, fmt.Errorf("analyzer command failed: %w%s", runErr, formatStderr(stderr.String()))
	}

	var finding model.Finding
	if err := json.Unmarshal(bytes.TrimSpace(stdout.Bytes()), &finding); err != nil {
		return model.Finding{}, fmt.Errorf("decode analyzer output: %w", err)
	}
	if finding.Number == 0 {
		finding.Number = req.Issue.Number
	}
	if finding.Number != req.Issue.Number {
		return model.Finding{}, fmt.Errorf("analyzer returned a finding for #%d, expected #%d", finding.Number, req.Issue.Number)
	}
	if finding.Title == "" {
		finding.Title = req.Issue.Title
	}
	if finding.Evidence == nil {
		finding.Evidence = []model.Evidence{}
	}
	return finding, nil
}

func formatStderr(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	if len(s) > stderrTail {
		s = "..." + s[len(s)-stderrTail:]
	}
	return ": " + s
}
