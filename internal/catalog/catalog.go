package catalog

import (
	"strings"

	"github.com/folio-dev/folio/internal/model"
)

// Field names that carry a fixed option list.
const (
	FieldBroker = "broker"
	FieldKind   = "kind"
)

// Catalog holds the choices offered by each category form.
type Catalog struct {
	StockBrokers    []string `yaml:"stock_brokers"`
	CryptoExchanges []string `yaml:"crypto_exchanges"`
	RealEstateKinds []string `yaml:"real_estate_kinds"`
	FarmProjects    []string `yaml:"farm_projects"`
	FarmManager     string   `yaml:"farm_manager"`
}

// Fixed brokers for categories whose form has no broker choice.
const (
	RealEstateBroker = "N/A"
	LoansBroker      = "Personal"
)

// Default returns the stock option lists.
func Default() Catalog {
	return Catalog{
		StockBrokers:    []string{"Inversiones Andinas", "Yont", "Matriz", "Inviu 1", "Inviu 2", "BMB", "IOL", "Balanz"},
		CryptoExchanges: []string{"Binance", "Nexo", "BingX", "Other"},
		RealEstateKinds: []string{"Off-plan Apartment", "Natania", "Land", "Other"},
		FarmProjects:    []string{"Cow-calf", "Backgrounding", "Wheat", "Corn", "Soy"},
		FarmManager:     "Surmax",
	}
}

// Options returns the allowed values of field for category, or nil when the
// field is free text.
func (c Catalog) Options(category model.Category, field string) []string {
	switch {
	case category == model.CategoryStocks && field == FieldBroker:
		return c.StockBrokers
	case category == model.CategoryCrypto && field == FieldBroker:
		return c.CryptoExchanges
	case category == model.CategoryRealEstate && field == FieldKind:
		return c.RealEstateKinds
	case category == model.CategoryFarm && field == FieldKind:
		return c.FarmProjects
	}
	return nil
}

// Canonical returns the option matching value ignoring case. Free-text fields
// accept any value unchanged.
func (c Catalog) Canonical(category model.Category, field, value string) (string, bool) {
	opts := c.Options(category, field)
	if opts == nil {
		return value, true
	}
	value = strings.TrimSpace(value)
	for _, o := range opts {
		if strings.EqualFold(o, value) {
			return o, true
		}
	}
	return "", false
}

// FixedBroker returns the broker written for categories without a broker
// choice.
func (c Catalog) FixedBroker(category model.Category) (string, bool) {
	switch category {
	case model.CategoryRealEstate:
		return RealEstateBroker, true
	case model.CategoryFarm:
		return c.FarmManager, true
	case model.CategoryLoans:
		return LoansBroker, true
	}
	return "", false
}
