package commands_test

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/folio-dev/folio/internal/activity"
	"github.com/folio-dev/folio/internal/commands"
	"github.com/folio-dev/folio/internal/ledger"
	"github.com/folio-dev/folio/internal/model"
	"github.com/folio-dev/folio/internal/render"
)

func runFolio(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := commands.NewRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

// quoteServer serves the recorded quote fixture.
func quoteServer(t *testing.T) *httptest.Server {
	t.Helper()
	body, err := os.ReadFile(filepath.Join("..", "rates", "testdata", "dolares.json"))
	require.NoError(t, err)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

// setupProject initializes a project without git history, quoting from a
// local fixture server.
func setupProject(t *testing.T) string {
	t.Helper()
	t.Setenv("FOLIO_GIT_AUTO_COMMIT", "false")
	t.Setenv("FOLIO_LOG_LEVEL", "error")
	t.Setenv("FOLIO_RATES_URL", quoteServer(t).URL)

	dir := t.TempDir()
	_, err := runFolio(t, "init", dir)
	require.NoError(t, err)
	return dir
}

func requireGit(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not available, skipping git test")
	}
}

func gitLog(t *testing.T, dir, format string) string {
	t.Helper()
	cmd := exec.Command("git", "log", "--format="+format, "-1")
	cmd.Dir = dir
	out, err := cmd.Output()
	require.NoError(t, err)
	return string(out)
}

func TestInit_CreatesStructure(t *testing.T) {
	dir := setupProject(t)

	info, err := os.Stat(filepath.Join(dir, "logs"))
	require.NoError(t, err)
	assert.True(t, info.IsDir())

	for _, c := range model.Categories {
		data, err := os.ReadFile(filepath.Join(dir, "ledger", string(c)+".csv"))
		require.NoError(t, err, "partition %s should exist", c)
		assert.Equal(t, ledger.Header+"\n", string(data))
	}

	data, err := os.ReadFile(filepath.Join(dir, ".gitignore"))
	require.NoError(t, err)
	assert.Contains(t, string(data), ".env")

	_, err = os.Stat(filepath.Join(dir, ".git"))
	assert.True(t, os.IsNotExist(err), "auto commit disabled")
}

func TestInit_Config(t *testing.T) {
	dir := setupProject(t)

	data, err := os.ReadFile(filepath.Join(dir, "folio.yaml"))
	require.NoError(t, err)
	contents := string(data)

	assert.Contains(t, contents, "backend: csv")
	assert.Contains(t, contents, "default_kind: MEP")
	assert.NotContains(t, contents, "127.0.0.1", "environment overrides are not persisted")
}

func TestInit_AlreadyInitialized(t *testing.T) {
	dir := setupProject(t)
	_, err := runFolio(t, "init", dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")
}

func TestInit_GitRepo(t *testing.T) {
	requireGit(t)
	t.Setenv("FOLIO_LOG_LEVEL", "error")
	dir := t.TempDir()

	out, err := runFolio(t, "init", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "Initialized folio project at "+dir)

	assert.Contains(t, gitLog(t, dir, "%s"), "init:")
	assert.Contains(t, gitLog(t, dir, "%an <%ae>"), "Folio <folio@localhost>")
}

func TestRecord_Stocks(t *testing.T) {
	dir := setupProject(t)

	out, err := runFolio(t, "--repo", dir, "record", "stocks",
		"--ticker", "aapl", "--broker", "IOL", "--quantity", "3", "--price", "190.5")
	require.NoError(t, err)
	assert.Equal(t, "Recorded Stocks AAPL: Buy 3 for 571.5 USD via IOL\n", out)

	out, err = runFolio(t, "--repo", dir, "ledger", "stocks")
	require.NoError(t, err)
	assert.Contains(t, out, "| AAPL | Buy | 571.5 | USD | 3 | IOL |")

	entries, err := activity.Read(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "AAPL", entries[0].Asset)
	assert.Equal(t, activity.ActionRecord, entries[0].Action)
}

func TestRecord_Errors(t *testing.T) {
	dir := setupProject(t)

	tests := []struct {
		name string
		args []string
		want string
	}{
		{"unknown category", []string{"record", "bonds"}, "unknown category"},
		{"missing ticker", []string{"record", "stocks", "--broker", "IOL"}, "validation failed"},
		{"bad number", []string{"record", "loans", "--name", "Ana", "--amount", "lots"}, "invalid --amount"},
		{"bad currency", []string{"record", "farm", "--kind", "Corn", "--currency", "EUR"}, "currency"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := runFolio(t, append([]string{"--repo", dir}, tt.args...)...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}

	recs, err := ledger.NewCSVStore(filepath.Join(dir, "ledger")).Read(context.Background(), model.CategoryFarm)
	require.NoError(t, err)
	assert.Empty(t, recs)
}

func TestRecord_GitCommit(t *testing.T) {
	requireGit(t)
	t.Setenv("FOLIO_LOG_LEVEL", "error")
	dir := t.TempDir()
	_, err := runFolio(t, "init", dir)
	require.NoError(t, err)

	_, err = runFolio(t, "--repo", dir, "record", "loans", "--name", "Ana", "--amount", "500", "--currency", "ARS")
	require.NoError(t, err)

	assert.Contains(t, gitLog(t, dir, "%s"), "record: Loans Loan: Ana")
}

func TestLedger_Empty(t *testing.T) {
	dir := setupProject(t)
	out, err := runFolio(t, "--repo", dir, "ledger", "real estate")
	require.NoError(t, err)
	assert.Equal(t, "# RealEstate\n\nNo rows.\n", out)
}

func TestRates(t *testing.T) {
	dir := setupProject(t)

	out, err := runFolio(t, "--repo", dir, "rates")
	require.NoError(t, err)
	assert.Contains(t, out, "| MEP | 1520.50 | 1530.25 |")
	assert.Contains(t, out, "| Blue | 1460.00 | 1480.00 |")
	assert.NotContains(t, out, "Tarjeta")
}

func TestRates_Fallback(t *testing.T) {
	dir := setupProject(t)
	down := httptest.NewServer(http.NotFoundHandler())
	down.Close()
	t.Setenv("FOLIO_RATES_URL", down.URL)

	out, err := runFolio(t, "--repo", dir, "rates")
	require.NoError(t, err)
	assert.Contains(t, out, "| MEP | 1140.00 | 1170.00 |")
	assert.Contains(t, out, "| Oficial | 980.00 | 1020.00 |")

	_, err = runFolio(t, "--repo", dir, "rates", "--strict")
	assert.Error(t, err)
}

func TestSummary(t *testing.T) {
	dir := setupProject(t)
	_, err := runFolio(t, "--repo", dir, "record", "loans", "--name", "Ana", "--amount", "1000")
	require.NoError(t, err)

	out, err := runFolio(t, "--repo", dir, "summary")
	require.NoError(t, err)
	assert.Contains(t, out, "| Total (USD) | $1,000.00 |")
	assert.Contains(t, out, "| Valuation | MEP")
	assert.Contains(t, out, "| Loan: Ana |")

	out, err = runFolio(t, "--repo", dir, "summary", "--valuation", "cripto")
	require.NoError(t, err)
	assert.Contains(t, out, "| Valuation | Cripto")
	assert.Contains(t, out, "| Total (USD) | $1,000.00 |")
}

func TestSummary_Empty(t *testing.T) {
	dir := setupProject(t)
	out, err := runFolio(t, "--repo", dir, "summary")
	require.NoError(t, err)
	assert.Equal(t, render.EmptyMessage+"\n", out)
}

func TestSummary_UnknownValuation(t *testing.T) {
	dir := setupProject(t)
	_, err := runFolio(t, "--repo", dir, "summary", "--valuation", "Oficial")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "MEP, Blue, Cripto")
}

func TestSummary_Pretty(t *testing.T) {
	dir := setupProject(t)
	_, err := runFolio(t, "--repo", dir, "record", "farm", "--kind", "Soy", "--amount", "2000", "--currency", "ARS")
	require.NoError(t, err)

	out, err := runFolio(t, "--repo", dir, "summary", "--pretty")
	require.NoError(t, err)
	assert.NotEmpty(t, out)
	assert.True(t, strings.Contains(out, "Soy"))
}

func TestMissingProject(t *testing.T) {
	_, err := runFolio(t, "--repo", t.TempDir(), "summary")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reading config")
}

func copyFixture(t *testing.T, name, dst string) {
	t.Helper()
	data, err := os.ReadFile(filepath.Join("..", "importer", "testdata", name))
	require.NoError(t, err)
	require.NoError(t, os.MkdirAll(filepath.Dir(dst), 0o755))
	require.NoError(t, os.WriteFile(dst, data, 0o644))
}

func TestImport_ScansImportDir(t *testing.T) {
	dir := setupProject(t)
	copyFixture(t, "sheet_export.csv", filepath.Join(dir, "import", "sheet_export.csv"))

	out, err := runFolio(t, "--repo", dir, "import")
	require.NoError(t, err)
	assert.Equal(t, "Imported 7 rows from sheet_export.csv (Stocks 3, Crypto 1, RealEstate 1, Farm 1, Loans 1)\n", out)

	_, err = os.Stat(filepath.Join(dir, "import", "sheet_export.csv"))
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(filepath.Join(dir, "import", "processed", "sheet_export.csv"))
	assert.NoError(t, err)

	out, err = runFolio(t, "--repo", dir, "ledger", "stocks")
	require.NoError(t, err)
	assert.Contains(t, out, "| 2025-02-03 | Stocks | AAPL | Sell | 571.5 | USD | 3 | IOL | toma de ganancia |")

	out, err = runFolio(t, "--repo", dir, "ledger", "loans")
	require.NoError(t, err)
	assert.Contains(t, out, "| Loan: Juan |")

	out, err = runFolio(t, "--repo", dir, "import")
	require.NoError(t, err)
	assert.Equal(t, "Nothing to import.\n", out)
}

func TestImport_ExplicitFileStaysInPlace(t *testing.T) {
	dir := setupProject(t)
	src := filepath.Join(t.TempDir(), "Portfolio - Bolsa.csv")
	copyFixture(t, "Portfolio - Bolsa.csv", src)

	out, err := runFolio(t, "--repo", dir, "import", src)
	require.NoError(t, err)
	assert.Equal(t, "Imported 2 rows from Portfolio - Bolsa.csv (Stocks 2)\n", out)

	_, err = os.Stat(src)
	assert.NoError(t, err)

	recs, err := ledger.NewCSVStore(filepath.Join(dir, "ledger")).Read(context.Background(), model.CategoryStocks)
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, "2025-01-10", recs[0].Date)
	assert.Equal(t, "Sell", recs[1].Operation)
}

func TestImport_Errors(t *testing.T) {
	dir := setupProject(t)
	bad := filepath.Join(t.TempDir(), "Bolsa.csv")
	require.NoError(t, os.WriteFile(bad, []byte("Fecha,Activo,Monto,Moneda\nayer,AAPL,100,USD\n"), 0o644))

	tests := []struct {
		name string
		args []string
		want string
	}{
		{"unknown format", []string{"import", "--format", "xlsx", bad}, "unknown import format"},
		{"missing file", []string{"import", filepath.Join(dir, "nope.csv")}, "opening nope.csv"},
		{"bad row", []string{"import", bad}, "row 2"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := runFolio(t, append([]string{"--repo", dir}, tt.args...)...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}

	recs, err := ledger.NewCSVStore(filepath.Join(dir, "ledger")).Read(context.Background(), model.CategoryStocks)
	require.NoError(t, err)
	assert.Empty(t, recs)
}

func TestImport_GitCommit(t *testing.T) {
	requireGit(t)
	t.Setenv("FOLIO_LOG_LEVEL", "error")
	dir := t.TempDir()
	_, err := runFolio(t, "init", dir)
	require.NoError(t, err)
	copyFixture(t, "Portfolio - Bolsa.csv", filepath.Join(dir, "import", "Portfolio - Bolsa.csv"))

	_, err = runFolio(t, "--repo", dir, "import")
	require.NoError(t, err)

	assert.Contains(t, gitLog(t, dir, "%s"), "import: 2 rows from 1 files")
}

func TestActivity(t *testing.T) {
	dir := setupProject(t)

	out, err := runFolio(t, "--repo", dir, "activity")
	require.NoError(t, err)
	assert.Equal(t, "# Activity\n\nNo activity.\n", out)

	_, err = runFolio(t, "--repo", dir, "record", "loans", "--name", "Ana", "--amount", "1000")
	require.NoError(t, err)
	copyFixture(t, "Portfolio - Bolsa.csv", filepath.Join(dir, "import", "Portfolio - Bolsa.csv"))
	_, err = runFolio(t, "--repo", dir, "import")
	require.NoError(t, err)

	out, err = runFolio(t, "--repo", dir, "activity")
	require.NoError(t, err)
	assert.Contains(t, out, "| record | Loans | Loan: Ana | Buy 1 for 1000 USD via Personal |")
	assert.Contains(t, out, "| import |  | Portfolio - Bolsa.csv | 2 rows (Stocks 2) |")
	assert.Less(t, strings.Index(out, "| import |"), strings.Index(out, "| record |"), "newest first")

	out, err = runFolio(t, "--repo", dir, "activity", "-n", "1")
	require.NoError(t, err)
	assert.NotContains(t, out, "| record |")
}

func TestSummary_ValuationFromEnvIgnoresCase(t *testing.T) {
	dir := setupProject(t)
	t.Setenv("FOLIO_VALUATION", "blue")
	_, err := runFolio(t, "--repo", dir, "record", "loans", "--name", "Ana", "--amount", "1000")
	require.NoError(t, err)

	out, err := runFolio(t, "--repo", dir, "summary")
	require.NoError(t, err)
	assert.Contains(t, out, "| Valuation | Blue")
}
