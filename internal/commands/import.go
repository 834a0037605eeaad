package commands

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/folio-dev/folio/internal/activity"
	"github.com/folio-dev/folio/internal/gitops"
	"github.com/folio-dev/folio/internal/importer"
	"github.com/folio-dev/folio/internal/model"
)

func newImportCommand(repoDir *string) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "import [file...]",
		Short: "Import rows from exported CSV files",
		Long: `Import rows from exported CSV files into the category ledgers.

With no arguments, every CSV in <repo>/import/ is imported and then moved to
import/processed/. The default "sheet" format reads spreadsheet exports with
the Fecha, Activo, Monto, Moneda, Cantidad, Broker, Sector, Operación and
Comentarios columns; rows without a Sector take the worksheet named in the
file name, e.g. "Portfolio - Bolsa.csv". The "folio" format reads ledger
partition files.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			parser := importer.DefaultRegistry().Get(format)
			if parser == nil {
				return fmt.Errorf("unknown import format %q", format)
			}

			a, err := openApp(cmd.Context(), *repoDir)
			if err != nil {
				return err
			}
			defer a.Close()

			scanned := len(args) == 0
			var files []importer.FileInfo
			if scanned {
				files, err = importer.Scan(a.root)
				if err != nil {
					return err
				}
			} else {
				for _, arg := range args {
					files = append(files, importer.FileInfo{Name: filepath.Base(arg), Path: arg})
				}
			}

			out := cmd.OutOrStdout()
			if len(files) == 0 {
				fmt.Fprintln(out, "Nothing to import.")
				return nil
			}

			var total int
			for _, file := range files {
				res, err := importFile(cmd, a, parser, file)
				if res.Rows > 0 {
					total += res.Rows
					a.rates.Invalidate()
					if logErr := activity.Append(a.root, []activity.Entry{importEntry(res)}); logErr != nil {
						a.logger.Warn("activity log failed", zap.String("file", file.Name), zap.Error(logErr))
					}
				}
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "Imported %d rows from %s%s\n", res.Rows, file.Name, breakdown(res))

				if scanned {
					if err := importer.MarkProcessed(a.root, file.Name); err != nil {
						return err
					}
				}
			}

			if total > 0 && a.cfg.Git.AutoCommit && gitops.IsRepo(a.root) {
				author := gitops.Author{Name: a.cfg.Git.AuthorName, Email: a.cfg.Git.AuthorEmail}
				msg := fmt.Sprintf("import: %d rows from %d files", total, len(files))
				if _, err := gitops.CommitAll(cmd.Context(), a.root, msg, author); err != nil {
					a.logger.Warn("commit after import failed", zap.Error(err))
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&format, "format", "sheet", "file format: sheet or folio")
	return cmd
}

func importFile(cmd *cobra.Command, a *app, parser importer.Parser, file importer.FileInfo) (importer.Result, error) {
	f, err := os.Open(file.Path)
	if err != nil {
		return importer.Result{File: file.Name}, fmt.Errorf("opening %s: %w", file.Name, err)
	}
	defer f.Close()

	res, err := importer.Import(cmd.Context(), a.store, parser, file.Name, f)
	a.logger.Info("import",
		zap.String("file", file.Name),
		zap.String("format", parser.Format()),
		zap.Int("rows", res.Rows),
		zap.Error(err))
	return res, err
}

func importEntry(res importer.Result) activity.Entry {
	return activity.Entry{
		Timestamp: time.Now().UTC().Truncate(time.Second),
		Action:    activity.ActionImport,
		Asset:     res.File,
		Details:   fmt.Sprintf("%d rows%s", res.Rows, breakdown(res)),
	}
}

// breakdown lists per-category counts in summary order, e.g. " (Stocks 3, Loans 1)".
func breakdown(res importer.Result) string {
	var parts []string
	for _, c := range model.Categories {
		if n := res.ByCategory[c]; n > 0 {
			parts = append(parts, fmt.Sprintf("%s %d", c, n))
		}
	}
	if len(parts) == 0 {
		return ""
	}
	return " (" + strings.Join(parts, ", ") + ")"
}
