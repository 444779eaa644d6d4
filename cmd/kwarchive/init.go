package main

import (
	"embed"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/nao1215/kwarchive/internal/config"
)

//go:embed templates/kwarchive.yaml
var configTemplate embed.FS

// templatePath is the path of the sources template inside configTemplate.
const templatePath = "templates/kwarchive.yaml"

// NewInitCmd creates the init command.
func NewInitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize a new kwarchive sources file",
		Long: `Initialize creates a new .kwarchive sources file in the current directory.

The generated file includes:
- The built-in sources with their search and extraction settings
- Commented examples for credentials and pacing overrides
- A list of the placeholders available in search parameters

Examples:
  # Create .kwarchive in current directory
  kwarchive init

  # Create the sources file at a specific path
  kwarchive init -o ~/.config/kwarchive/sources.yaml

  # Force overwrite existing file
  kwarchive init -f`,
		Args: cobra.NoArgs,
		RunE: runInitCmd,
	}

	cmd.Flags().StringP("output", "o", config.DefaultConfigFile,
		"Output file path for the sources file")
	cmd.Flags().BoolP("force", "f", false,
		"Overwrite existing sources file")

	return cmd
}

// runInitCmd executes the init command.
func runInitCmd(cmd *cobra.Command, _ []string) error {
	outputPath, err := cmd.Flags().GetString("output")
	if err != nil {
		return err
	}

	force, err := cmd.Flags().GetBool("force")
	if err != nil {
		return err
	}

	// Check if file already exists
	if !force {
		if _, err := os.Stat(outputPath); err == nil {
			return fmt.Errorf("sources file already exists: %s (use -f to overwrite)", outputPath)
		}
	}

	content, err := configTemplate.ReadFile(templatePath)
	if err != nil {
		return fmt.Errorf("failed to read sources template: %w", err)
	}

	// Create parent directories if needed
	dir := filepath.Dir(outputPath)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}

	// Credentials may be added to this file later.
	if err := os.WriteFile(outputPath, content, 0600); err != nil {
		return fmt.Errorf("failed to write sources file: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Created sources file: %s\n", outputPath)
	fmt.Fprintln(out, "\nEdit this file to configure per-source settings such as:")
	fmt.Fprintln(out, "  - Cookies and headers attached to every request")
	fmt.Fprintln(out, "  - Content and title selectors")
	fmt.Fprintln(out, "  - Pacing, retry and page-cap overrides")

	return nil
}

// loadSources returns the sources file selected by explicit (see
// config.FindConfigFile) and where it came from. Without any file on disk
// the embedded template is used.
func loadSources(explicit string) (*config.File, string, error) {
	if path := config.FindConfigFile(explicit); path != "" {
		cf, err := config.LoadConfigFile(path)
		if err != nil {
			return nil, "", fmt.Errorf("failed to load sources file %s: %w", path, err)
		}
		return cf, path, nil
	}
	if explicit != "" {
		return nil, "", fmt.Errorf("%w: %s", config.ErrConfigNotFound, explicit)
	}

	content, err := configTemplate.ReadFile(templatePath)
	if err != nil {
		return nil, "", fmt.Errorf("failed to read sources template: %w", err)
	}
	cf, err := config.ParseConfig(content)
	if err != nil {
		return nil, "", fmt.Errorf("built-in sources: %w", err)
	}
	return cf, "built-in", nil
}
