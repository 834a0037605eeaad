package model

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// DateFormat is the on-disk layout of Transaction.Date.
const DateFormat = "2006-01-02"

// Transaction is one validated ledger entry.
type Transaction struct {
	Date      time.Time
	Asset     string
	Amount    decimal.Decimal // in Currency units; price x quantity for stocks
	Currency  Currency
	Quantity  decimal.Decimal
	Broker    string
	Category  Category
	Operation Operation
	Notes     string
}

// Record is a Transaction as stored: every cell is a string and never absent.
// Rows read back from a store may hold values a Transaction would reject,
// e.g. a hand-edited Amount of "n/a".
type Record struct {
	Date      string `json:"date"`
	Asset     string `json:"asset"`
	Amount    string `json:"amount"`
	Currency  string `json:"currency"`
	Quantity  string `json:"quantity"`
	Broker    string `json:"broker"`
	Category  string `json:"category"`
	Operation string `json:"operation"`
	Notes     string `json:"notes"`
}

// Record converts t to its stored form.
func (t Transaction) Record() Record {
	return Record{
		Date:      t.Date.Format(DateFormat),
		Asset:     t.Asset,
		Amount:    t.Amount.String(),
		Currency:  string(t.Currency),
		Quantity:  t.Quantity.String(),
		Broker:    t.Broker,
		Category:  string(t.Category),
		Operation: string(t.Operation),
		Notes:     t.Notes,
	}
}

// Transaction parses r strictly. A missing Operation is a Buy.
func (r Record) Transaction() (Transaction, error) {
	date, err := time.Parse(DateFormat, r.Date)
	if err != nil {
		return Transaction{}, fmt.Errorf("parsing date %q: %w", r.Date, err)
	}

	amount, err := decimal.NewFromString(r.Amount)
	if err != nil {
		return Transaction{}, fmt.Errorf("parsing amount %q: %w", r.Amount, err)
	}

	var qty decimal.Decimal
	if r.Quantity != "" {
		qty, err = decimal.NewFromString(r.Quantity)
		if err != nil {
			return Transaction{}, fmt.Errorf("parsing quantity %q: %w", r.Quantity, err)
		}
	}

	cur, err := ParseCurrency(r.Currency)
	if err != nil {
		return Transaction{}, err
	}
	cat, err := ParseCategory(r.Category)
	if err != nil {
		return Transaction{}, err
	}
	op, err := ParseOperation(r.Operation)
	if err != nil {
		return Transaction{}, err
	}

	return Transaction{
		Date:      date,
		Asset:     r.Asset,
		Amount:    amount,
		Currency:  cur,
		Quantity:  qty,
		Broker:    r.Broker,
		Category:  cat,
		Operation: op,
		Notes:     r.Notes,
	}, nil
}
