package activity

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/folio-dev/folio/internal/model"
)

var testTime = time.Date(2025, 1, 15, 10, 30, 0, 0, time.UTC)

func testEntry() Entry {
	return Entry{
		Timestamp: testTime,
		Action:    ActionRecord,
		Category:  "Stocks",
		Asset:     "AAPL",
		Details:   "Buy 3 for 571.5 USD via IOL",
	}
}

func testTx() model.Transaction {
	return model.Transaction{
		Date:      testTime,
		Asset:     "AAPL",
		Amount:    decimal.RequireFromString("571.5"),
		Currency:  model.CurrencyUSD,
		Quantity:  decimal.NewFromInt(3),
		Broker:    "IOL",
		Category:  model.CategoryStocks,
		Operation: model.OperationBuy,
	}
}

func TestAppend_NewFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, Append(dir, []Entry{testEntry()}))

	entries, err := Read(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, testEntry(), entries[0])
}

func TestAppend_ExistingFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, Append(dir, []Entry{testEntry()}))

	e2 := testEntry()
	e2.Asset = "MSFT"
	require.NoError(t, Append(dir, []Entry{e2}))

	entries, err := Read(dir)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "AAPL", entries[0].Asset)
	assert.Equal(t, "MSFT", entries[1].Asset)

	data, err := os.ReadFile(Path(dir))
	require.NoError(t, err)
	assert.Equal(t, 1, strings.Count(string(data), Header), "header written once")
}

func TestAppend_ConcurrentWritersShareOneHeader(t *testing.T) {
	dir := t.TempDir()
	const writers = 20

	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, Append(dir, []Entry{testEntry()}))
		}()
	}
	wg.Wait()

	data, err := os.ReadFile(Path(dir))
	require.NoError(t, err)
	assert.Equal(t, 1, strings.Count(string(data), Header))
	assert.True(t, strings.HasPrefix(string(data), Header+"\n"))

	entries, err := Read(dir)
	require.NoError(t, err)
	assert.Len(t, entries, writers)
}

func TestAppend_HeaderOnlyFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, LogDir), 0o755))
	require.NoError(t, os.WriteFile(Path(dir), []byte(Header+"\n"), 0o644))

	require.NoError(t, Append(dir, []Entry{testEntry()}))

	data, err := os.ReadFile(Path(dir))
	require.NoError(t, err)
	assert.Equal(t, 1, strings.Count(string(data), Header))
}

func TestRead_NoFile(t *testing.T) {
	entries, err := Read(t.TempDir())
	require.NoError(t, err)
	assert.Nil(t, entries)
}

func TestRead_BadTimestamp(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, LogDir), 0o755))
	content := Header + "\nyesterday,record,Stocks,AAPL,x\n"
	require.NoError(t, os.WriteFile(Path(dir), []byte(content), 0o644))

	_, err := Read(dir)
	assert.ErrorContains(t, err, "row 2")
}

func TestLog_Recorded(t *testing.T) {
	dir := t.TempDir()
	l := NewLog(dir)
	l.now = func() time.Time { return testTime }

	require.NoError(t, l.Recorded(context.Background(), testTx()))

	entries, err := Read(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, testEntry(), entries[0])
}

func TestDescribe(t *testing.T) {
	assert.Equal(t, "Buy 3 for 571.5 USD via IOL", Describe(testTx()))

	loan := model.Transaction{
		Amount:    decimal.NewFromInt(500),
		Currency:  model.CurrencyARS,
		Operation: model.OperationSell,
	}
	assert.Equal(t, "Sell for 500 ARS", Describe(loan))
}
