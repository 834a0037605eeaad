// Package valuation totals the ledger in local currency and in dollars.
package valuation

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/folio-dev/folio/internal/ledger"
	"github.com/folio-dev/folio/internal/model"
)

// ErrValuationUnavailable reports a rate whose sell price is zero, so the
// dollar total cannot be computed.
var ErrValuationUnavailable = errors.New("valuation unavailable: sell rate is zero")

// Summary is the valuation of a set of ledger partitions.
type Summary struct {
	Rate         model.Rate
	TotalLocal   decimal.Decimal
	TotalForeign decimal.Decimal
	// Rows holds every row read, newest first.
	Rows []model.Record
	// Malformed counts rows whose amount could not be parsed and counted as 0.
	Malformed int
}

// Empty reports whether no rows were found.
func (s Summary) Empty() bool { return len(s.Rows) == 0 }

// Aggregator reads partitions from a store and values them.
type Aggregator struct {
	store  ledger.Store
	logger *zap.Logger
}

// NewAggregator creates an Aggregator.
func NewAggregator(store ledger.Store, logger *zap.Logger) *Aggregator {
	return &Aggregator{store: store, logger: logger}
}

// Summarize values every row of categories at rate. Unreadable and empty
// partitions are skipped. With a zero sell rate the local total and rows are
// still returned along with ErrValuationUnavailable.
func (a *Aggregator) Summarize(ctx context.Context, categories []model.Category, rate model.Rate) (Summary, error) {
	s := Summary{Rate: rate}

	for _, c := range categories {
		recs, err := a.store.Read(ctx, c)
		switch {
		case ledger.IsNotFound(err):
			a.logger.Debug("skipping missing category", zap.String("category", string(c)))
			continue
		case err != nil:
			a.logger.Warn("skipping unreadable category", zap.String("category", string(c)), zap.Error(err))
			continue
		case len(recs) == 0:
			continue
		}
		s.Rows = append(s.Rows, recs...)
	}

	for _, rec := range s.Rows {
		v, ok := Contribution(rec, rate)
		if !ok {
			s.Malformed++
		}
		s.TotalLocal = s.TotalLocal.Add(v)
	}
	if s.Malformed > 0 {
		a.logger.Warn("counted malformed amounts as zero", zap.Int("rows", s.Malformed))
	}

	sortNewestFirst(s.Rows)

	if rate.Sell.IsZero() {
		return s, fmt.Errorf("computing foreign total: %w", ErrValuationUnavailable)
	}
	s.TotalForeign = s.TotalLocal.Div(rate.Sell)
	return s, nil
}

// Contribution returns the local-currency value of one row: USD amounts are
// converted at rate.Sell and sells count negative. ok is false when the
// amount is missing or not a number, in which case the value is zero.
func Contribution(rec model.Record, rate model.Rate) (v decimal.Decimal, ok bool) {
	amount, err := decimal.NewFromString(strings.TrimSpace(rec.Amount))
	if err != nil {
		return decimal.Zero, false
	}
	if strings.EqualFold(strings.TrimSpace(rec.Currency), string(model.CurrencyUSD)) {
		amount = amount.Mul(rate.Sell)
	}
	// Unknown operations count as buys, like a missing one.
	if op, _ := model.ParseOperation(rec.Operation); op == model.OperationSell {
		amount = amount.Neg()
	}
	return amount, true
}

// SelectRate picks the rate kind used for valuation.
func SelectRate(table model.RateTable, kind string) (string, model.Rate, error) {
	key, r, ok := table.Lookup(kind)
	if !ok {
		return "", model.Rate{}, fmt.Errorf("unknown rate kind %q", kind)
	}
	return key, r, nil
}

// sortNewestFirst orders rows by date descending. Rows with unparseable
// dates go last; ties keep their read order.
func sortNewestFirst(rows []model.Record) {
	dates := make(map[string]time.Time, len(rows))
	for _, r := range rows {
		if _, seen := dates[r.Date]; seen {
			continue
		}
		d, err := time.Parse(model.DateFormat, strings.TrimSpace(r.Date))
		if err != nil {
			d = time.Time{}
		}
		dates[r.Date] = d
	}
	slices.SortStableFunc(rows, func(a, b model.Record) int {
		return dates[b.Date].Compare(dates[a.Date])
	})
}
