package model

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Known rate kinds.
const (
	KindMEP     = "MEP"
	KindBlue    = "Blue"
	KindCripto  = "Cripto"
	KindOficial = "Oficial"
)

// RateKinds lists the known kinds in display order.
var RateKinds = []string{KindMEP, KindBlue, KindCripto, KindOficial}

// Rate is a buy/sell quote in local currency per US dollar.
type Rate struct {
	Buy  decimal.Decimal `json:"buy"`
	Sell decimal.Decimal `json:"sell"`
}

// RateTable maps a rate kind to its quote.
type RateTable map[string]Rate

// DefaultRates returns a fresh table with a fallback quote for every known kind.
func DefaultRates() RateTable {
	return RateTable{
		KindMEP:     {Buy: decimal.NewFromInt(1140), Sell: decimal.NewFromInt(1170)},
		KindBlue:    {Buy: decimal.NewFromInt(1190), Sell: decimal.NewFromInt(1220)},
		KindCripto:  {Buy: decimal.NewFromInt(1185), Sell: decimal.NewFromInt(1215)},
		KindOficial: {Buy: decimal.NewFromInt(980), Sell: decimal.NewFromInt(1020)},
	}
}

// Lookup finds a kind ignoring case and returns its canonical key.
func (t RateTable) Lookup(name string) (string, Rate, bool) {
	name = strings.TrimSpace(name)
	for k, r := range t {
		if strings.EqualFold(k, name) {
			return k, r, true
		}
	}
	return "", Rate{}, false
}

// Clone returns a copy of t.
func (t RateTable) Clone() RateTable {
	c := make(RateTable, len(t))
	for k, r := range t {
		c[k] = r
	}
	return c
}
