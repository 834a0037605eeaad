// Package render formats summaries, rate tables, ledger rows and the
// activity log as Markdown.
// The Markdown reads fine as plain text; Terminal styles it for a TTY.
package render

import (
	"fmt"
	"slices"
	"strings"

	"github.com/Rhymond/go-money"
	"github.com/charmbracelet/glamour"
	"github.com/shopspring/decimal"

	"github.com/folio-dev/folio/internal/activity"
	"github.com/folio-dev/folio/internal/model"
	"github.com/folio-dev/folio/internal/valuation"
)

// Messages shown instead of figures.
const (
	EmptyMessage       = "No transactions recorded yet. Add one with `folio record <category>`."
	UnavailableMessage = "Valuation unavailable: cannot compute the dollar total because the sell rate is zero."
)

var rowColumns = []string{"Date", "Category", "Asset", "Operation", "Amount", "Currency", "Quantity", "Broker", "Notes"}

// Money formats amount in currency with its symbol and separators, e.g.
// "$1,170.00". Unknown currencies, and amounts whose minor units overflow
// int64, fall back to "1170.00 XYZ".
func Money(amount decimal.Decimal, currency string) string {
	cur := money.GetCurrency(currency)
	if cur == nil {
		return amount.StringFixed(2) + " " + currency
	}
	minor := amount.Shift(int32(cur.Fraction)).Round(0)
	if !minor.BigInt().IsInt64() {
		return amount.StringFixed(2) + " " + currency
	}
	return money.New(minor.IntPart(), cur.Code).Display()
}

// Summary renders totals and the combined rows. A non-nil valErr means the
// dollar total is missing.
func Summary(s valuation.Summary, kind string, valErr error) string {
	if s.Empty() {
		return EmptyMessage + "\n"
	}

	var b strings.Builder
	b.WriteString("# Portfolio summary\n\n")
	b.WriteString("| | |\n|---|---:|\n")
	fmt.Fprintf(&b, "| Valuation | %s (sell %s) |\n", kind, Money(s.Rate.Sell, string(model.CurrencyARS)))
	fmt.Fprintf(&b, "| Total (ARS) | %s |\n", Money(s.TotalLocal, string(model.CurrencyARS)))
	if valErr == nil {
		fmt.Fprintf(&b, "| Total (USD) | %s |\n", Money(s.TotalForeign, string(model.CurrencyUSD)))
	}
	b.WriteString("\n")
	if valErr != nil {
		b.WriteString("> " + UnavailableMessage + "\n\n")
	}
	if s.Malformed > 0 {
		fmt.Fprintf(&b, "_%d row(s) with an unreadable amount were counted as zero._\n\n", s.Malformed)
	}

	b.WriteString("## Transactions\n\n")
	writeRows(&b, s.Rows)
	return b.String()
}

// Ledger renders the rows of one partition.
func Ledger(category model.Category, rows []model.Record) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", category)
	if len(rows) == 0 {
		b.WriteString("No rows.\n")
		return b.String()
	}
	writeRows(&b, rows)
	return b.String()
}

// Activity renders activity log entries, newest first, keeping at most limit
// of them. A limit of 0 keeps all.
func Activity(entries []activity.Entry, limit int) string {
	var b strings.Builder
	b.WriteString("# Activity\n\n")
	if len(entries) == 0 {
		b.WriteString("No activity.\n")
		return b.String()
	}

	b.WriteString("| Time | Action | Category | Asset | Details |\n|---|---|---|---|---|\n")
	for i := len(entries) - 1; i >= 0; i-- {
		if limit > 0 && len(entries)-1-i >= limit {
			break
		}
		e := entries[i]
		fmt.Fprintf(&b, "| %s | %s | %s | %s | %s |\n",
			e.Timestamp.Format("2006-01-02 15:04"), cell(e.Action), cell(e.Category), cell(e.Asset), cell(e.Details))
	}
	return b.String()
}

// Rates renders the rate table, known kinds first.
func Rates(table model.RateTable) string {
	var b strings.Builder
	b.WriteString("# Exchange rates\n\n")
	b.WriteString("| Kind | Buy | Sell |\n|---|---:|---:|\n")
	for _, k := range rateOrder(table) {
		r := table[k]
		fmt.Fprintf(&b, "| %s | %s | %s |\n", cell(k), r.Buy.StringFixed(2), r.Sell.StringFixed(2))
	}
	return b.String()
}

// Terminal styles Markdown for a terminal of the given width.
func Terminal(md string, width int) (string, error) {
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return "", fmt.Errorf("creating markdown renderer: %w", err)
	}
	out, err := r.Render(md)
	if err != nil {
		return "", fmt.Errorf("rendering markdown: %w", err)
	}
	return out, nil
}

func rateOrder(table model.RateTable) []string {
	var keys []string
	for _, k := range model.RateKinds {
		if _, ok := table[k]; ok {
			keys = append(keys, k)
		}
	}
	var rest []string
	for k := range table {
		if !slices.Contains(model.RateKinds, k) {
			rest = append(rest, k)
		}
	}
	slices.Sort(rest)
	return append(keys, rest...)
}

func writeRows(b *strings.Builder, rows []model.Record) {
	b.WriteString("| " + strings.Join(rowColumns, " | ") + " |\n")
	b.WriteString(strings.Repeat("|---", len(rowColumns)) + "|\n")
	for _, r := range rows {
		cells := []string{r.Date, r.Category, r.Asset, r.Operation, r.Amount, r.Currency, r.Quantity, r.Broker, r.Notes}
		for i := range cells {
			cells[i] = cell(cells[i])
		}
		b.WriteString("| " + strings.Join(cells, " | ") + " |\n")
	}
}

func cell(s string) string {
	s = strings.ReplaceAll(s, "|", `\|`)
	return strings.ReplaceAll(s, "\n", " ")
}
