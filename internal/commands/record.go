package commands

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/folio-dev/folio/internal/activity"
	"github.com/folio-dev/folio/internal/model"
	"github.com/folio-dev/folio/internal/recorder"
)

type recordFlags struct {
	ticker, name, kind, broker string
	quantity, price, amount    string
	currency, operation, notes string
}

func newRecordCommand(repoDir *string) *cobra.Command {
	var f recordFlags

	cmd := &cobra.Command{
		Use:   "record <stocks|crypto|realestate|farm|loans>",
		Short: "Record a transaction in a category ledger",
		Long: `Record a transaction in a category ledger.

  stocks      --ticker --broker --quantity --price [--currency]
  crypto      --ticker --broker (exchange) --quantity --amount (USD invested)
  realestate  --kind --name --amount [--currency]
  farm        --kind (project) --amount [--currency]
  loans       --name (debtor) --amount [--currency]

Every category accepts --operation (Buy or Sell, default Buy) and --notes.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			category, err := model.ParseCategory(args[0])
			if err != nil {
				return err
			}
			form, err := f.form()
			if err != nil {
				return err
			}

			a, err := openApp(cmd.Context(), *repoDir)
			if err != nil {
				return err
			}
			defer a.Close()

			tx, err := a.recorder.Record(cmd.Context(), category, form)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Recorded %s %s: %s\n", tx.Category, tx.Asset, activity.Describe(tx))
			return nil
		},
	}

	fl := cmd.Flags()
	fl.StringVar(&f.ticker, "ticker", "", "ticker symbol (stocks, crypto)")
	fl.StringVar(&f.name, "name", "", "property name (realestate) or debtor (loans)")
	fl.StringVar(&f.kind, "kind", "", "property kind (realestate) or project (farm)")
	fl.StringVar(&f.broker, "broker", "", "broker (stocks) or exchange (crypto)")
	fl.StringVar(&f.quantity, "quantity", "", "units bought or sold")
	fl.StringVar(&f.price, "price", "", "unit price (stocks)")
	fl.StringVar(&f.amount, "amount", "", "total amount")
	fl.StringVar(&f.currency, "currency", "USD", "USD or ARS")
	fl.StringVar(&f.operation, "operation", "Buy", "Buy or Sell")
	fl.StringVar(&f.notes, "notes", "", "free-form notes")

	return cmd
}

func (f recordFlags) form() (recorder.Form, error) {
	form := recorder.Form{
		Ticker:    f.ticker,
		Name:      f.name,
		Kind:      f.kind,
		Broker:    f.broker,
		Currency:  f.currency,
		Operation: f.operation,
		Notes:     f.notes,
	}
	for _, n := range []struct {
		flag string
		raw  string
		dst  *decimal.Decimal
	}{
		{"quantity", f.quantity, &form.Quantity},
		{"price", f.price, &form.Price},
		{"amount", f.amount, &form.Amount},
	} {
		raw := strings.TrimSpace(n.raw)
		if raw == "" {
			continue
		}
		d, err := decimal.NewFromString(raw)
		if err != nil {
			return recorder.Form{}, fmt.Errorf("invalid --%s %q: not a number", n.flag, n.raw)
		}
		*n.dst = d
	}
	return form, nil
}
