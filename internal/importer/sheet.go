package importer

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/folio-dev/folio/internal/ledger"
	"github.com/folio-dev/folio/internal/model"
)

// sheetDateFormats are the date layouts a spreadsheet export may carry.
var sheetDateFormats = []string{
	model.DateFormat,
	"2006-01-02 15:04:05",
	"02/01/2006",
	"2/1/2006",
}

const sheetLoanPrefix = "Préstamo: "

// SheetParser parses CSV exports of the spreadsheet ledger, one file per
// worksheet, with Spanish column titles, category names and operations.
type SheetParser struct{}

// Format returns the parser name.
func (p *SheetParser) Format() string { return "sheet" }

// Parse reads a worksheet export and returns its transactions.
func (p *SheetParser) Parse(r io.Reader, tab model.Category) ([]model.Transaction, error) {
	return parseRows(r, tab, normalizeSheetRow)
}

// FolioParser parses CSV files in the ledger's own partition layout.
type FolioParser struct{}

// Format returns the parser name.
func (p *FolioParser) Format() string { return "folio" }

// Parse reads a partition CSV and returns its transactions.
func (p *FolioParser) Parse(r io.Reader, tab model.Category) ([]model.Transaction, error) {
	return parseRows(r, tab, func(rec model.Record) (model.Record, error) { return rec, nil })
}

// parseRows reads the rows of r, fills missing categories from tab, lets
// normalize rewrite each row and parses it strictly.
func parseRows(r io.Reader, tab model.Category, normalize func(model.Record) (model.Record, error)) ([]model.Transaction, error) {
	recs, err := ledger.ReadRecords(r)
	if err != nil {
		return nil, err
	}
	if len(recs) == 0 {
		return nil, nil
	}

	var txns []model.Transaction
	for i, rec := range recs {
		if strings.TrimSpace(rec.Category) == "" {
			if tab == "" {
				return nil, fmt.Errorf("row %d: missing category", i+2)
			}
			rec.Category = string(tab)
		}
		rec, err = normalize(rec)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}
		tx, err := rec.Transaction()
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}
		txns = append(txns, tx)
	}
	return txns, nil
}

func normalizeSheetRow(rec model.Record) (model.Record, error) {
	date, err := parseSheetDate(rec.Date)
	if err != nil {
		return model.Record{}, err
	}
	rec.Date = date.Format(model.DateFormat)
	rec.Amount = sheetNumber(rec.Amount)
	rec.Quantity = sheetNumber(rec.Quantity)
	if debtor, ok := strings.CutPrefix(rec.Asset, sheetLoanPrefix); ok {
		rec.Asset = "Loan: " + debtor
	}
	return rec, nil
}

func parseSheetDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range sheetDateFormats {
		if t, err := time.Parse(layout, s); err == nil {
			return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), nil
		}
	}
	return time.Time{}, fmt.Errorf("parsing date %q: unknown layout", s)
}

// sheetNumber turns a decimal comma into a point, e.g. "1234,5". Values that
// already hold a point are left for strict parsing.
func sheetNumber(s string) string {
	s = strings.TrimSpace(s)
	if strings.Contains(s, ",") && !strings.Contains(s, ".") {
		return strings.Replace(s, ",", ".", 1)
	}
	return s
}
