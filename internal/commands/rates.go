package commands

import (
	"github.com/spf13/cobra"

	"github.com/folio-dev/folio/internal/model"
	"github.com/folio-dev/folio/internal/render"
)

func newRatesCommand(repoDir *string) *cobra.Command {
	var pretty, strict bool

	cmd := &cobra.Command{
		Use:   "rates",
		Short: "Show the exchange rate table",
		Long: `Show the exchange rate table.

When the quote source cannot be reached the fallback rates are shown instead;
--strict reports the failure.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context(), *repoDir)
			if err != nil {
				return err
			}
			defer a.Close()

			var table model.RateTable
			if strict {
				table, err = a.provider.Fetch(cmd.Context())
				if err != nil {
					return err
				}
			} else {
				table = a.rates.Get(cmd.Context())
			}
			return printMarkdown(cmd, render.Rates(table), pretty)
		},
	}
	cmd.Flags().BoolVar(&pretty, "pretty", false, "style the output for the terminal")
	cmd.Flags().BoolVar(&strict, "strict", false, "fail instead of falling back to default rates")
	return cmd
}
