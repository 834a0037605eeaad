package commands

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/folio-dev/folio/internal/model"
	"github.com/folio-dev/folio/internal/render"
	"github.com/folio-dev/folio/internal/valuation"
)

func newSummaryCommand(repoDir *string) *cobra.Command {
	var kind string
	var pretty bool

	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Show portfolio totals and every transaction",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context(), *repoDir)
			if err != nil {
				return err
			}
			defer a.Close()

			if kind == "" {
				kind = a.cfg.Valuation.DefaultKind
			}
			kinds := a.cfg.Valuation.Kinds
			if !slices.ContainsFunc(kinds, func(k string) bool { return strings.EqualFold(k, kind) }) {
				return fmt.Errorf("--valuation must be one of %s", strings.Join(kinds, ", "))
			}

			key, rate, err := valuation.SelectRate(a.rates.Get(cmd.Context()), kind)
			if err != nil {
				return err
			}

			s, err := a.aggregator.Summarize(cmd.Context(), model.Categories, rate)
			if err != nil && !errors.Is(err, valuation.ErrValuationUnavailable) {
				return err
			}
			return printMarkdown(cmd, render.Summary(s, key, err), pretty)
		},
	}
	cmd.Flags().StringVar(&kind, "valuation", "", "rate kind to value the portfolio in (default from folio.yaml)")
	cmd.Flags().BoolVar(&pretty, "pretty", false, "style the output for the terminal")
	return cmd
}
