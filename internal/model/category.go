package model

import (
	"fmt"
	"strings"
)

// Category names one ledger partition.
type Category string

const (
	CategoryStocks     Category = "Stocks"
	CategoryCrypto     Category = "Crypto"
	CategoryRealEstate Category = "RealEstate"
	CategoryFarm       Category = "Farm"
	CategoryLoans      Category = "Loans"
)

// Categories lists every partition in summary order.
var Categories = []Category{
	CategoryStocks,
	CategoryCrypto,
	CategoryRealEstate,
	CategoryFarm,
	CategoryLoans,
}

// Valid reports whether c is one of the known categories.
func (c Category) Valid() bool {
	for _, k := range Categories {
		if c == k {
			return true
		}
	}
	return false
}

// sheetCategories maps the worksheet tab names of the spreadsheet ledger.
var sheetCategories = map[string]Category{
	"bolsa":     CategoryStocks,
	"cripto":    CategoryCrypto,
	"campo":     CategoryFarm,
	"prestamos": CategoryLoans,
	"préstamos": CategoryLoans,
}

// ParseCategory resolves user input such as "stocks", "real-estate",
// "Real Estate" or a worksheet name such as "Bolsa" to a Category.
func ParseCategory(s string) (Category, error) {
	norm := strings.NewReplacer(" ", "", "-", "", "_", "").Replace(strings.TrimSpace(s))
	for _, c := range Categories {
		if strings.EqualFold(norm, string(c)) {
			return c, nil
		}
	}
	if c, ok := sheetCategories[strings.ToLower(norm)]; ok {
		return c, nil
	}
	return "", fmt.Errorf("unknown category %q", s)
}

// Currency is the unit of a transaction amount.
type Currency string

const (
	CurrencyUSD Currency = "USD"
	CurrencyARS Currency = "ARS"
)

// ParseCurrency accepts USD or ARS in any case.
func ParseCurrency(s string) (Currency, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case string(CurrencyUSD):
		return CurrencyUSD, nil
	case string(CurrencyARS):
		return CurrencyARS, nil
	}
	return "", fmt.Errorf("unknown currency %q", s)
}

// Operation is the sign convention of a transaction.
type Operation string

const (
	OperationBuy  Operation = "Buy"
	OperationSell Operation = "Sell"
)

// ParseOperation accepts Buy or Sell, or the spreadsheet's Compra or Venta,
// in any case. An empty string is a Buy.
func ParseOperation(s string) (Operation, error) {
	s = strings.TrimSpace(s)
	switch {
	case s == "", strings.EqualFold(s, string(OperationBuy)), strings.EqualFold(s, "Compra"):
		return OperationBuy, nil
	case strings.EqualFold(s, string(OperationSell)), strings.EqualFold(s, "Venta"):
		return OperationSell, nil
	}
	return "", fmt.Errorf("unknown operation %q", s)
}
