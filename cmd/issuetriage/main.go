package main

import (
	"fmt"
	"os"

	"github.com/alecthomas/kong"

	"github.com/ericfisherdev/issuetriage/internal/adapter/driven/jsonfile"

	_ "golang.org/x/crypto/x509roots/fallback" // Embed CA certs for scratch container
)

// Build information injected at build time via ldflags.
var (
	Version = "dev"
	Commit  = "unknown"
)

func kongOptions() []kong.Option {
	return []kong.Option{
		kong.Name("issuetriage"),
		kong.Description("Review and act on analyzed GitHub issues from a local web UI."),
		kong.Vars{
			"version":        fmt.Sprintf("issuetriage %s (commit: %s)", Version, Commit),
			"issues_file":    jsonfile.IssuesFile,
			"findings_file":  jsonfile.FindingsFile,
			"decisions_file": jsonfile.DecisionsFile,
		},
		kong.UsageOnError(),
	}
}

func main() {
	var cli CLI
	ctx := kong.Parse(&cli, append(kongOptions(), kong.Bind(&cli))...)

	if err := ctx.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
