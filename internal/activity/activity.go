// Package activity keeps an append-only CSV log of ledger writes.
package activity

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/folio-dev/folio/internal/model"
)

// Entry is one row in the activity log.
type Entry struct {
	Timestamp time.Time
	Action    string
	Category  string
	Asset     string
	Details   string
}

// Header is the CSV header for activity.csv.
const Header = "timestamp,action,category,asset,details"

// Actions logged by folio.
const (
	ActionRecord = "record"
	ActionImport = "import"
)

const (
	numFields   = 5
	LogDir      = "logs"
	logFile     = "logs/activity.csv"
	colTime     = 0
	colAction   = 1
	colCategory = 2
	colAsset    = 3
	colDetails  = 4
)

// MarshalEntry converts an Entry to a CSV row.
func MarshalEntry(e Entry) []string {
	row := make([]string, numFields)
	row[colTime] = e.Timestamp.Format(time.RFC3339)
	row[colAction] = e.Action
	row[colCategory] = e.Category
	row[colAsset] = e.Asset
	row[colDetails] = e.Details
	return row
}

// UnmarshalEntry converts a CSV row to an Entry.
func UnmarshalEntry(record []string) (Entry, error) {
	if len(record) != numFields {
		return Entry{}, fmt.Errorf("expected %d fields, got %d", numFields, len(record))
	}

	ts, err := time.Parse(time.RFC3339, record[colTime])
	if err != nil {
		return Entry{}, fmt.Errorf("parsing timestamp %q: %w", record[colTime], err)
	}

	return Entry{
		Timestamp: ts,
		Action:    record[colAction],
		Category:  record[colCategory],
		Asset:     record[colAsset],
		Details:   record[colDetails],
	}, nil
}

// Path returns the activity log file under root.
func Path(root string) string {
	return filepath.Join(root, logFile)
}

// appendMu serializes appends within the process.
var appendMu sync.Mutex

// Append writes entries to <root>/logs/activity.csv, creating the file and
// header if needed. Only the writer that creates the file writes the header,
// and each call lands as a single write.
func Append(root string, entries []Entry) error {
	appendMu.Lock()
	defer appendMu.Unlock()

	if err := os.MkdirAll(filepath.Join(root, LogDir), 0o755); err != nil {
		return fmt.Errorf("creating logs dir: %w", err)
	}

	var buf bytes.Buffer
	cw := csv.NewWriter(&buf)
	for i, e := range entries {
		if err := cw.Write(MarshalEntry(e)); err != nil {
			return fmt.Errorf("writing entry %d: %w", i, err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return err
	}
	data := buf.Bytes()

	path := Path(root)
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	switch {
	case err == nil:
		data = append([]byte(Header+"\n"), data...)
	case errors.Is(err, fs.ErrExist):
		f, err = os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return fmt.Errorf("opening activity log: %w", err)
		}
	default:
		return fmt.Errorf("creating activity log: %w", err)
	}
	defer f.Close()

	if _, err := f.Write(data); err != nil {
		return fmt.Errorf("writing activity log: %w", err)
	}
	return nil
}

// Read returns all entries from <root>/logs/activity.csv. A missing file
// yields no entries.
func Read(root string) ([]Entry, error) {
	f, err := os.Open(Path(root))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("opening activity log: %w", err)
	}
	defer f.Close()

	return readEntries(f)
}

func readEntries(r io.Reader) ([]Entry, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = numFields

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading activity log CSV: %w", err)
	}
	if len(records) <= 1 {
		return nil, nil
	}

	var entries []Entry
	for i, rec := range records[1:] {
		e, err := UnmarshalEntry(rec)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// Log appends an entry for every recorded transaction.
type Log struct {
	root string
	now  func() time.Time
}

// NewLog creates a Log writing under root.
func NewLog(root string) *Log {
	return &Log{root: root, now: time.Now}
}

// Recorded logs tx.
func (l *Log) Recorded(_ context.Context, tx model.Transaction) error {
	return Append(l.root, []Entry{{
		Timestamp: l.now().UTC().Truncate(time.Second),
		Action:    ActionRecord,
		Category:  string(tx.Category),
		Asset:     tx.Asset,
		Details:   Describe(tx),
	}})
}

// Describe summarises tx in one line, e.g. "Buy 3 for 571.5 USD via IOL".
func Describe(tx model.Transaction) string {
	var b strings.Builder
	b.WriteString(string(tx.Operation))
	if !tx.Quantity.IsZero() {
		fmt.Fprintf(&b, " %s", tx.Quantity)
	}
	fmt.Fprintf(&b, " for %s %s", tx.Amount, tx.Currency)
	if tx.Broker != "" {
		fmt.Fprintf(&b, " via %s", tx.Broker)
	}
	return b.String()
}
