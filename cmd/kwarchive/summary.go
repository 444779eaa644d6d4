package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nao1215/kwarchive/internal/config"
	"github.com/nao1215/kwarchive/internal/database"
	"github.com/nao1215/kwarchive/internal/model"
)

// NewSummaryCmd creates the summary command.
func NewSummaryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "summary <run-dir>",
		Short: "Print the summary of a finished crawl",
		Long: `Summary reads the run ledger of every source in a run directory and
prints the crawl summary again.

The argument may be a run directory (Result_<keyword>_<unix>) or a single
source directory inside it.

Examples:
  # Text summary of a run
  kwarchive summary ./Result_央行_1700000000

  # Markdown summary of one source
  kwarchive summary --format markdown ./Result_央行_1700000000/pbc`,
		Args: cobra.ExactArgs(1),
		RunE: runSummaryCmd,
	}

	cmd.Flags().StringP("format", "f", config.DefaultSummaryFormat,
		"Summary format: text, markdown or json")

	return cmd
}

// runSummaryCmd executes the summary command.
func runSummaryCmd(cmd *cobra.Command, args []string) error {
	format, err := cmd.Flags().GetString("format")
	if err != nil {
		return err
	}

	dirs, err := database.FindLedgers(args[0])
	if err != nil {
		return err
	}

	var summaries []*model.CrawlSummary
	for _, dir := range dirs {
		s, err := readLedger(cmd, dir)
		if err != nil {
			return err
		}
		summaries = append(summaries, s...)
	}

	return printSummary(cmd.OutOrStdout(), format, getBoolFlag(cmd, "verbose"), summaries)
}

// readLedger returns every run recorded in the ledger of dir.
func readLedger(cmd *cobra.Command, dir string) ([]*model.CrawlSummary, error) {
	l, err := database.Open(dir, database.ReadOnlyOptions())
	if err != nil {
		return nil, err
	}
	defer l.Close()

	summaries, err := l.Summaries(cmd.Context())
	if err != nil {
		return nil, fmt.Errorf("failed to read ledger %s: %w", l.Path(), err)
	}
	return summaries, nil
}
