package commands

import (
	"github.com/spf13/cobra"

	"github.com/folio-dev/folio/internal/ledger"
	"github.com/folio-dev/folio/internal/model"
	"github.com/folio-dev/folio/internal/render"
)

func newLedgerCommand(repoDir *string) *cobra.Command {
	var pretty bool

	cmd := &cobra.Command{
		Use:   "ledger <category>",
		Short: "Show the rows of a category ledger",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			category, err := model.ParseCategory(args[0])
			if err != nil {
				return err
			}

			a, err := openApp(cmd.Context(), *repoDir)
			if err != nil {
				return err
			}
			defer a.Close()

			rows, err := a.store.Read(cmd.Context(), category)
			if err != nil && !ledger.IsNotFound(err) {
				return err
			}
			return printMarkdown(cmd, render.Ledger(category, rows), pretty)
		},
	}
	cmd.Flags().BoolVar(&pretty, "pretty", false, "style the output for the terminal")
	return cmd
}
