package application

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ericfisherdev/issuetriage/internal/domain/model"
)

// ExportFilename is the download name of the Markdown report.
const ExportFilename = "triage-report.md"

// RenderExport renders the findings as a flat Markdown report, one section
// per issue in number order.
func RenderExport(set *model.FindingSet, decisions map[int]model.Decision) string {
	var b strings.Builder

	analyzed := ""
	if !set.AnalyzedAt.IsZero() {
		analyzed = set.AnalyzedAt.UTC().Format(time.RFC3339)
	}
	fmt.Fprintf(&b, "# Issue Triage Report — %s\n", set.Repo)
	fmt.Fprintf(&b, "Analyzed: %s\n\n", analyzed)

	for _, f := range set.Findings {
		status := "pending"
		if d, ok := decisions[f.Number]; ok {
			status = d.Status()
		}

		fmt.Fprintf(&b, "## #%d: %s\n", f.Number, f.Title)
		fmt.Fprintf(&b, "**Verdict**: %s (%s) | **Status**: %s\n", f.Verdict, f.Confidence, status)
		if f.Summary != "" {
			fmt.Fprintf(&b, "\n%s\n", f.Summary)
		}
		if len(f.Evidence) > 0 {
			b.WriteString("\n")
			for _, e := range f.Evidence {
				fmt.Fprintf(&b, "- %s: %s — %s\n", e.Kind, e.Ref, e.Message)
			}
		}
		b.WriteString("\n")
	}

	return b.String()
}

// Export loads the findings and decisions and renders the report. A
// missing triage state means nothing has been triaged yet.
func (s *SessionService) Export(ctx context.Context) (string, error) {
	set, err := s.findings.Load(ctx)
	if err != nil {
		return "", fmt.Errorf("load findings: %w", err)
	}
	decisions, err := s.decisions.Load(ctx)
	if err != nil && !errors.Is(err, model.ErrStoreMissing) {
		return "", fmt.Errorf("load triage state: %w", err)
	}
	return RenderExport(set, decisions), nil
}
