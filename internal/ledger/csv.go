package ledger

import (
	"encoding/csv"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/folio-dev/folio/internal/model"
)

// Header is the CSV header of every partition file.
const Header = "date,asset,amount,currency,quantity,broker,category,operation,notes"

const (
	numFields = 9
	colDate   = 0
	colAsset  = 1
	colAmount = 2
	colCur    = 3
	colQty    = 4
	colBroker = 5
	colCat    = 6
	colOp     = 7
	colNotes  = 8
)

// ReadRecords reads a partition CSV. Columns are matched by header name, so
// reordered or extra columns are tolerated and missing ones read as "".
func ReadRecords(r io.Reader) ([]model.Record, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading ledger CSV: %w", err)
	}

	if len(records) <= 1 {
		return nil, nil
	}

	index := headerIndex(records[0])
	recs := make([]model.Record, 0, len(records)-1)
	for _, row := range records[1:] {
		recs = append(recs, UnmarshalRecord(index, row))
	}
	return recs, nil
}

// WriteRecords writes a partition CSV (including header).
func WriteRecords(w io.Writer, recs []model.Record) error {
	cw := csv.NewWriter(w)

	if err := cw.Write(strings.Split(Header, ",")); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}

	for i, rec := range recs {
		if err := cw.Write(MarshalRecord(rec)); err != nil {
			return fmt.Errorf("writing row %d: %w", i+2, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// MarshalRecord converts a Record to a CSV row.
func MarshalRecord(rec model.Record) []string {
	row := make([]string, numFields)
	row[colDate] = rec.Date
	row[colAsset] = rec.Asset
	row[colAmount] = rec.Amount
	row[colCur] = rec.Currency
	row[colQty] = rec.Quantity
	row[colBroker] = rec.Broker
	row[colCat] = rec.Category
	row[colOp] = rec.Operation
	row[colNotes] = rec.Notes
	return row
}

// UnmarshalRecord converts a CSV row to a Record using a header index built
// by headerIndex. Cells are trimmed; absent cells become "".
func UnmarshalRecord(index map[int]int, row []string) model.Record {
	cell := func(col int) string {
		i, ok := index[col]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}
	return model.Record{
		Date:      cell(colDate),
		Asset:     cell(colAsset),
		Amount:    cell(colAmount),
		Currency:  cell(colCur),
		Quantity:  cell(colQty),
		Broker:    cell(colBroker),
		Category:  cell(colCat),
		Operation: cell(colOp),
		Notes:     cell(colNotes),
	}
}

// sheetColumns maps the column titles of the spreadsheet ledger to ours.
var sheetColumns = map[string]int{
	"fecha":       colDate,
	"activo":      colAsset,
	"monto":       colAmount,
	"moneda":      colCur,
	"cantidad":    colQty,
	"sector":      colCat,
	"operación":   colOp,
	"operacion":   colOp,
	"comentarios": colNotes,
}

// headerIndex maps our column positions to positions in header. Spreadsheet
// column titles are accepted as well.
func headerIndex(header []string) map[int]int {
	want := strings.Split(Header, ",")
	index := make(map[int]int, numFields)
	for i, h := range header {
		h = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
		col := slices.Index(want, h)
		if col < 0 {
			c, ok := sheetColumns[h]
			if !ok {
				continue
			}
			col = c
		}
		if _, dup := index[col]; !dup {
			index[col] = i
		}
	}
	return index
}
