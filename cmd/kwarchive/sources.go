package main

import (
	"fmt"
	"strings"

	"github.com/nao1215/markdown"
	"github.com/spf13/cobra"
)

// NewSourcesCmd creates the sources command.
func NewSourcesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sources",
		Short: "List the configured sources",
		Long: `Sources prints the sources defined in the sources file, in crawl order,
together with the file they were loaded from.`,
		Args: cobra.NoArgs,
		RunE: runSourcesCmd,
	}

	cmd.Flags().StringP("config", "c", "",
		"Sources file path (default: .kwarchive in current or home directory)")

	return cmd
}

// runSourcesCmd executes the sources command.
func runSourcesCmd(cmd *cobra.Command, _ []string) error {
	path, err := cmd.Flags().GetString("config")
	if err != nil {
		return err
	}

	cf, origin, err := loadSources(path)
	if err != nil {
		return err
	}

	rows := make([][]string, 0, len(cf.Sources))
	for _, s := range cf.Sources {
		enabled := "yes"
		if !s.IsEnabled() {
			enabled = "no"
		}
		method := strings.ToUpper(s.Search.Method)
		if method == "" {
			method = "GET"
		}
		rows = append(rows, []string{s.Name, s.Search.Kind, method, enabled, s.Search.URL})
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Sources file: %s\n\n", origin)
	md := markdown.NewMarkdown(out)
	md.Table(markdown.TableSet{
		Header: []string{"Name", "Kind", "Method", "Enabled", "Search URL"},
		Rows:   rows,
	})
	return md.Build()
}
