package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/alecthomas/kong"
	"github.com/natefinch/atomic"

	"github.com/ericfisherdev/issuetriage/internal/application"
	"github.com/ericfisherdev/issuetriage/internal/domain/model"
)

// CLI is the command tree. Global flags override the ISSUETRIAGE_*
// environment.
type CLI struct {
	Version   kong.VersionFlag `help:"Show version information."`
	TriageDir string           `help:"Directory holding ${issues_file}, ${findings_file} and ${decisions_file}." placeholder:"DIR"`
	Repo      string           `help:"Repository as owner/name. Detected from the origin remote when omitted." placeholder:"OWNER/NAME"`
	LogLevel  string           `help:"Log level (debug, info, warn, error)."`

	Serve         ServeCmd         `cmd:"" default:"withargs" help:"Start the review UI (default)."`
	Gather        GatherCmd        `cmd:"" help:"Fetch open issues into a new snapshot."`
	Dedupe        DedupeCmd        `cmd:"" help:"Flag likely duplicates among pending findings."`
	Status        StatusCmd        `cmd:"" help:"Print verdict and triage counts."`
	Export        ExportCmd        `cmd:"" help:"Write the Markdown triage report."`
	RecordFinding RecordFindingCmd `cmd:"" name:"record-finding" help:"Replace one issue's finding from JSON."`
}

// signalContext is canceled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// GatherCmd fetches issues from GitHub.
type GatherCmd struct {
	Label []string `help:"Only gather issues carrying this label (repeatable)." placeholder:"LABEL"`
	Limit int      `help:"Maximum number of issues; 0 means all." default:"0"`
}

// Run executes the gather command.
func (c *GatherCmd) Run(cli *CLI) error {
	ctx, stop := signalContext()
	defer stop()

	a, err := newApp(ctx, cli)
	if err != nil {
		return err
	}
	defer a.Close()

	if a.github == nil {
		return model.ErrTrackerUnavailable
	}

	svc := application.NewGatherService(a.github, a.inspector, a.issues, a.logger)
	snap, err := svc.Gather(ctx, application.GatherOptions{Repo: a.cfg.Repo, Labels: c.Label, Limit: c.Limit})
	if err != nil {
		return err
	}

	fmt.Printf("Gathered %d open issues from %s into %s\n", len(snap.Issues), snap.Repo, a.issues.Path())
	return nil
}

// DedupeCmd runs duplicate detection.
type DedupeCmd struct{}

// Run executes the dedupe command.
func (c *DedupeCmd) Run(cli *CLI) error {
	ctx, stop := signalContext()
	defer stop()

	a, err := newApp(ctx, cli)
	if err != nil {
		return err
	}
	defer a.Close()

	if _, err := a.session.Initialize(ctx); err != nil {
		return err
	}
	matches, err := a.dedupe.Run(ctx)
	if err != nil {
		return err
	}

	if len(matches) == 0 {
		fmt.Println("No new duplicates found.")
		return nil
	}
	for _, m := range matches {
		fmt.Printf("#%d duplicate of #%d (%s)\n", m.Number, m.Original, m.Confidence)
	}
	return nil
}

// StatusCmd prints the session summary.
type StatusCmd struct{}

// Run executes the status command.
func (c *StatusCmd) Run(cli *CLI) error {
	ctx, stop := signalContext()
	defer stop()

	a, err := newApp(ctx, cli)
	if err != nil {
		return err
	}
	defer a.Close()

	sum, err := a.session.Summary(ctx)
	if err != nil {
		return err
	}
	return writeSummary(os.Stdout, sum)
}

// ExportCmd writes the Markdown report.
type ExportCmd struct {
	Output string `short:"o" help:"Output file; '-' writes to stdout." default:"-" placeholder:"FILE"`
}

// Run executes the export command.
func (c *ExportCmd) Run(cli *CLI) error {
	ctx, stop := signalContext()
	defer stop()

	a, err := newApp(ctx, cli)
	if err != nil {
		return err
	}
	defer a.Close()

	report, err := a.session.Export(ctx)
	if err != nil {
		return err
	}

	if c.Output == "-" {
		_, err := io.WriteString(os.Stdout, report)
		return err
	}
	if err := atomic.WriteFile(c.Output, strings.NewReader(report)); err != nil {
		return fmt.Errorf("write %s: %w", c.Output, err)
	}
	fmt.Fprintf(os.Stderr, "Report written to %s\n", c.Output)
	return nil
}

// RecordFindingCmd is how analyzers store their result.
type RecordFindingCmd struct {
	File string `help:"Read the finding from FILE instead of stdin." type:"existingfile" placeholder:"FILE"`
}

// Run executes the record-finding command.
func (c *RecordFindingCmd) Run(cli *CLI) error {
	ctx, stop := signalContext()
	defer stop()

	a, err := newApp(ctx, cli)
	if err != nil {
		return err
	}
	defer a.Close()

	var r io.Reader = os.Stdin
	if c.File != "" {
		f, err := os.Open(c.File)
		if err != nil {
			return err
		}
		defer f.Close()
		r = f
	}

	finding, err := decodeFinding(r)
	if err != nil {
		return err
	}
	if err := a.session.RecordFinding(ctx, finding); err != nil {
		return err
	}

	fmt.Printf("Recorded %s (%s) for #%d\n", finding.Verdict, finding.Confidence, finding.Number)
	return nil
}

// decodeFinding reads exactly one finding document.
func decodeFinding(r io.Reader) (model.Finding, error) {
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()

	var f model.Finding
	if err := dec.Decode(&f); err != nil {
		if errors.Is(err, io.EOF) {
			return model.Finding{}, errors.New("no finding on input")
		}
		return model.Finding{}, fmt.Errorf("decode finding: %w", err)
	}
	if dec.More() {
		return model.Finding{}, errors.New("decode finding: trailing data after the first document")
	}
	return f, nil
}
