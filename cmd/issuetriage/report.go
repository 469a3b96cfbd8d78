package main

import (
	"fmt"
	"io"
	"sort"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/renderer"
	"github.com/olekukonko/tablewriter/tw"

	"github.com/ericfisherdev/issuetriage/internal/application"
	"github.com/ericfisherdev/issuetriage/internal/domain/model"
)

func newTable(w io.Writer, headers ...string) *tablewriter.Table {
	cfg := tablewriter.Config{
		Header: tw.CellConfig{
			Alignment:  tw.CellAlignment{Global: tw.AlignLeft},
			Formatting: tw.CellFormatting{AutoFormat: tw.Off},
		},
		Row: tw.CellConfig{
			Alignment: tw.CellAlignment{Global: tw.AlignLeft},
		},
	}
	return tablewriter.NewTable(w,
		tablewriter.WithConfig(cfg),
		tablewriter.WithHeader(headers),
		tablewriter.WithRenderer(renderer.NewBlueprint()),
		tablewriter.WithRendition(tw.Rendition{
			Symbols: tw.NewSymbols(tw.StyleLight),
		}),
	)
}

// writeSummary prints verdict counts followed by triage progress.
func writeSummary(w io.Writer, sum application.Summary) error {
	if _, err := fmt.Fprintf(w, "Repository: %s\n\n", sum.Repo); err != nil {
		return err
	}

	verdicts := newTable(w, "Verdict", "Issues")
	for _, v := range sum.Verdicts {
		if err := verdicts.Append([]string{string(v.Verdict), strconv.Itoa(v.Count)}); err != nil {
			return err
		}
	}
	if err := verdicts.Render(); err != nil {
		return err
	}

	if _, err := fmt.Fprintln(w); err != nil {
		return err
	}

	progress := newTable(w, "Status", "Issues")
	rows := [][]string{
		{"total", strconv.Itoa(sum.Total)},
		{"triaged", strconv.Itoa(sum.Triaged)},
		{"untriaged", strconv.Itoa(sum.Untriaged)},
	}
	if sum.Partial > 0 {
		rows = append(rows, []string{"partially applied", strconv.Itoa(sum.Partial)})
	}

	actions := make([]string, 0, len(sum.Actions))
	for a := range sum.Actions {
		actions = append(actions, string(a))
	}
	sort.Strings(actions)
	for _, a := range actions {
		rows = append(rows, []string{"  " + a, strconv.Itoa(sum.Actions[model.Action(a)])})
	}

	for _, row := range rows {
		if err := progress.Append(row); err != nil {
			return err
		}
	}
	return progress.Render()
}
