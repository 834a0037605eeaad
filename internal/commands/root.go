package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/folio-dev/folio/internal/buildinfo"
)

// NewRootCommand creates the root CLI command with all subcommands registered.
func NewRootCommand() *cobra.Command {
	var repoDir string

	rootCmd := &cobra.Command{
		Use:     "folio",
		Short:   "Personal investment portfolio tracker",
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", buildinfo.Version, buildinfo.Commit, buildinfo.Date),
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVar(&repoDir, "repo", ".", "project directory holding folio.yaml")

	rootCmd.AddCommand(
		newInitCommand(),
		newRecordCommand(&repoDir),
		newLedgerCommand(&repoDir),
		newRatesCommand(&repoDir),
		newSummaryCommand(&repoDir),
		newImportCommand(&repoDir),
		newActivityCommand(&repoDir),
		newServeCommand(&repoDir),
	)

	return rootCmd
}
