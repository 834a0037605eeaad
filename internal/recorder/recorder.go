// Package recorder turns submitted category forms into ledger rows.
package recorder

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/folio-dev/folio/internal/catalog"
	"github.com/folio-dev/folio/internal/ledger"
	"github.com/folio-dev/folio/internal/model"
)

// Form carries the fields of one category form. Each category reads only the
// fields its form has:
//
//	Stocks:     Ticker, Broker, Quantity, Price, Currency
//	Crypto:     Ticker, Broker (exchange), Quantity, Amount (USD invested)
//	RealEstate: Kind, Name, Amount, Currency
//	Farm:       Kind (project), Amount, Currency
//	Loans:      Name (debtor), Amount, Currency
//
// Operation and Notes apply to all of them.
type Form struct {
	Ticker    string          `json:"ticker"`
	Name      string          `json:"name"`
	Kind      string          `json:"kind"`
	Broker    string          `json:"broker"`
	Quantity  decimal.Decimal `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
	Amount    decimal.Decimal `json:"amount"`
	Currency  string          `json:"currency"`
	Operation string          `json:"operation"`
	Notes     string          `json:"notes"`
}

// Observer is told about every transaction after it is stored.
type Observer interface {
	Recorded(ctx context.Context, tx model.Transaction) error
}

// Invalidator drops cached state that a new transaction makes stale.
type Invalidator interface {
	Invalidate()
}

// Recorder validates forms and appends them to the ledger.
type Recorder struct {
	store       ledger.Store
	catalog     catalog.Catalog
	logger      *zap.Logger
	now         func() time.Time
	invalidator Invalidator
	observers   []Observer
}

// Option configures a Recorder.
type Option func(*Recorder)

// WithClock overrides the submission clock.
func WithClock(now func() time.Time) Option {
	return func(r *Recorder) { r.now = now }
}

// WithInvalidator registers cached state to drop after each write.
func WithInvalidator(inv Invalidator) Option {
	return func(r *Recorder) { r.invalidator = inv }
}

// WithObservers registers observers, called in order after each write.
func WithObservers(obs ...Observer) Option {
	return func(r *Recorder) { r.observers = append(r.observers, obs...) }
}

// New creates a Recorder.
func New(store ledger.Store, cat catalog.Catalog, logger *zap.Logger, opts ...Option) *Recorder {
	r := &Recorder{store: store, catalog: cat, logger: logger, now: time.Now}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Record builds the transaction for category and appends it. Store failures
// are returned as is; observer failures are only logged since the row is
// already written.
func (r *Recorder) Record(ctx context.Context, category model.Category, f Form) (model.Transaction, error) {
	tx, err := r.Build(category, f)
	if err != nil {
		return model.Transaction{}, err
	}

	if err := r.store.Append(ctx, category, tx.Record()); err != nil {
		return model.Transaction{}, fmt.Errorf("recording %s: %w", category, err)
	}

	if r.invalidator != nil {
		r.invalidator.Invalidate()
	}
	for _, o := range r.observers {
		if err := o.Recorded(ctx, tx); err != nil {
			r.logger.Warn("post-record hook failed",
				zap.String("category", string(category)),
				zap.String("asset", tx.Asset),
				zap.Error(err))
		}
	}

	r.logger.Info("transaction recorded",
		zap.String("category", string(category)),
		zap.String("asset", tx.Asset),
		zap.String("amount", tx.Amount.String()),
		zap.String("currency", string(tx.Currency)))
	return tx, nil
}

// Build validates f and returns the canonical transaction without storing it.
func (r *Recorder) Build(category model.Category, f Form) (model.Transaction, error) {
	var verrs ValidationErrors

	op, err := model.ParseOperation(f.Operation)
	if err != nil {
		verrs.add("operation", "%v", err)
	}
	for _, n := range []struct {
		field string
		value decimal.Decimal
	}{{"quantity", f.Quantity}, {"price", f.Price}, {"amount", f.Amount}} {
		if n.value.IsNegative() {
			verrs.add(n.field, "must not be negative")
		}
	}

	y, m, d := r.now().Date()
	tx := model.Transaction{
		Date:      time.Date(y, m, d, 0, 0, 0, 0, time.UTC),
		Category:  category,
		Operation: op,
		Quantity:  decimal.NewFromInt(1),
		Notes:     strings.TrimSpace(f.Notes),
	}

	switch category {
	case model.CategoryStocks:
		tx.Asset = ticker(f, &verrs)
		tx.Broker = r.option(category, catalog.FieldBroker, f.Broker, &verrs)
		tx.Currency = currency(f, &verrs)
		tx.Quantity = f.Quantity
		tx.Amount = f.Price.Mul(f.Quantity)
	case model.CategoryCrypto:
		tx.Asset = ticker(f, &verrs)
		tx.Broker = r.option(category, catalog.FieldBroker, f.Broker, &verrs)
		tx.Currency = model.CurrencyUSD
		tx.Quantity = f.Quantity
		tx.Amount = f.Amount
	case model.CategoryRealEstate:
		kind := r.option(category, catalog.FieldKind, f.Kind, &verrs)
		tx.Asset = kind + ": " + strings.TrimSpace(f.Name)
		tx.Currency = currency(f, &verrs)
		tx.Amount = f.Amount
	case model.CategoryFarm:
		tx.Asset = r.option(category, catalog.FieldKind, f.Kind, &verrs)
		tx.Currency = currency(f, &verrs)
		tx.Amount = f.Amount
	case model.CategoryLoans:
		debtor := strings.TrimSpace(f.Name)
		if debtor == "" {
			verrs.add("name", "debtor is required")
		}
		tx.Asset = "Loan: " + debtor
		tx.Currency = currency(f, &verrs)
		tx.Amount = f.Amount
	default:
		verrs.add("category", "unknown category %q", category)
	}

	if broker, ok := r.catalog.FixedBroker(category); ok {
		tx.Broker = broker
	}

	if err := verrs.err(); err != nil {
		return model.Transaction{}, err
	}
	return tx, nil
}

func ticker(f Form, verrs *ValidationErrors) string {
	t := strings.ToUpper(strings.TrimSpace(f.Ticker))
	if t == "" {
		verrs.add("ticker", "is required")
	}
	return t
}

func (r *Recorder) option(category model.Category, field, value string, verrs *ValidationErrors) string {
	if strings.TrimSpace(value) == "" {
		verrs.add(field, "is required")
		return ""
	}
	got, ok := r.catalog.Canonical(category, field, value)
	if !ok {
		verrs.add(field, "%q is not one of %s", value, strings.Join(r.catalog.Options(category, field), ", "))
	}
	return got
}

// currency defaults to USD, the first choice of every form.
func currency(f Form, verrs *ValidationErrors) model.Currency {
	if strings.TrimSpace(f.Currency) == "" {
		return model.CurrencyUSD
	}
	c, err := model.ParseCurrency(f.Currency)
	if err != nil {
		verrs.add("currency", "%v", err)
	}
	return c
}
