// Package main is the entry point for the resultboard CLI.
//
// Usage:
//
//	resultboard serve -c config.yaml          # Start the store, API and dashboard
//	resultboard validate -c config.yaml       # Validate configuration
//	resultboard normalize --type table f.json # Print the canonical payload
//	resultboard send -c config.yaml -k batch -f batch.json
//	resultboard version                       # Show version info
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version information - set at build time via ldflags.
// Example: go build -ldflags "-X main.version=1.0.0"
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// newRootCmd builds the command tree. A fresh tree per call keeps flag
// state from leaking between executions.
func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "resultboard",
		Short: "A live store and dashboard for analysis results",
		Long: `resultboard keeps the results of data analyses in memory, keyed by
chat session and message, and serves them to a web dashboard.

Analysis backends deliver results over NATS or HTTP. Each item is
normalized into one of seven canonical shapes (chart, image, table,
csv, metric, insight, file) before it is stored.

Quick start:
  1. Run: resultboard serve
  2. POST a batch to http://localhost:8080/api/batches
  3. Open http://localhost:8080 in your browser`,
		SilenceUsage: true,
	}

	root.AddCommand(
		newServeCmd(),
		newValidateCmd(),
		newNormalizeCmd(),
		newSendCmd(),
		newVersionCmd(),
	)
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Long:  `Print the version, commit hash, and build date of this resultboard binary.`,
		Run: func(cmd *cobra.Command, args []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "resultboard %s\n", version)
			fmt.Fprintf(out, "  commit: %s\n", commit)
			fmt.Fprintf(out, "  built:  %s\n", date)
		},
	}
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		// cobra already prints the error
		os.Exit(1)
	}
}
