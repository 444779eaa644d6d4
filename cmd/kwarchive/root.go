package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/nao1215/kwarchive/internal/log"
)

// NewRootCmd creates the root command for kwarchive.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "kwarchive",
		Short: "Keyword search crawler and article archiver",
		Long: `kwarchive searches paginated web sources for a keyword, extracts the
article behind every result (text interleaved with images) and archives
each one as a self-contained document.

Sources are described in a YAML file (see "kwarchive init"). Duplicate
links are dropped, transient network failures are retried with backoff
and a per-run SQLite ledger records what was fetched.`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags that apply to all commands
	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")
	cmd.PersistentFlags().Bool("log-json", false, "Write logs as JSON lines")

	// Add subcommands
	cmd.AddCommand(NewCrawlCmd())
	cmd.AddCommand(NewSummaryCmd())
	cmd.AddCommand(NewSourcesCmd())
	cmd.AddCommand(NewInitCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// getBoolFlag retrieves a bool flag from the command or its parents.
func getBoolFlag(cmd *cobra.Command, name string) bool {
	v, err := cmd.Flags().GetBool(name)
	if err != nil {
		v, err = cmd.Root().PersistentFlags().GetBool(name)
		if err != nil {
			return false
		}
	}
	return v
}

// newLogger creates the redacting structured logger used by every command.
func newLogger(w io.Writer, verbose, jsonLog bool) *slog.Logger {
	if jsonLog {
		return log.NewSecureJSONLogger(w, verbose)
	}
	return log.NewSecureLogger(w, verbose)
}
