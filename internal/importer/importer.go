// Package importer loads ledger rows from exported CSV files.
package importer

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/folio-dev/folio/internal/ledger"
	"github.com/folio-dev/folio/internal/model"
)

// Parser converts an exported CSV file into transactions. Rows without a
// category cell take tab, the category of the worksheet the file came from;
// tab is "" when unknown.
type Parser interface {
	Parse(r io.Reader, tab model.Category) ([]model.Transaction, error)
	Format() string
}

// Registry holds named parsers.
type Registry struct {
	parsers map[string]Parser
}

// FileInfo describes a CSV file in the import directory.
type FileInfo struct {
	Name string
	Path string
	Size int64
}

// NewRegistry creates an empty parser registry.
func NewRegistry() *Registry {
	return &Registry{parsers: make(map[string]Parser)}
}

// Register adds a parser. Panics on duplicate format.
func (r *Registry) Register(p Parser) {
	key := strings.ToLower(p.Format())
	if _, ok := r.parsers[key]; ok {
		panic("duplicate parser format: " + key)
	}
	r.parsers[key] = p
}

// Get returns the parser for format, or nil.
func (r *Registry) Get(format string) Parser {
	return r.parsers[strings.ToLower(format)]
}

// DefaultRegistry returns a registry with all built-in parsers.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(&SheetParser{})
	r.Register(&FolioParser{})
	return r
}

const (
	importDir    = "import"
	processedDir = "import/processed"
)

// Scan returns CSV files in <root>/import/.
func Scan(root string) ([]FileInfo, error) {
	dir := filepath.Join(root, importDir)
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading import dir: %w", err)
	}

	var files []FileInfo
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(strings.ToLower(e.Name()), ".csv") {
			continue
		}
		info, err := e.Info()
		if err != nil {
			return nil, fmt.Errorf("stat %s: %w", e.Name(), err)
		}
		files = append(files, FileInfo{
			Name: e.Name(),
			Path: filepath.Join(dir, e.Name()),
			Size: info.Size(),
		})
	}
	return files, nil
}

// MarkProcessed moves a file from import/ to import/processed/.
func MarkProcessed(root, fileName string) error {
	dstDir := filepath.Join(root, processedDir)
	if err := os.MkdirAll(dstDir, 0o755); err != nil {
		return fmt.Errorf("creating processed dir: %w", err)
	}

	src := filepath.Join(root, importDir, fileName)
	if err := os.Rename(src, filepath.Join(dstDir, fileName)); err != nil {
		return fmt.Errorf("moving %s to processed: %w", fileName, err)
	}
	return nil
}

// TabCategory derives a worksheet category from an export file name such as
// "Portfolio - Bolsa.csv" or "Real Estate.csv". It returns "" when the name
// carries no known category.
func TabCategory(fileName string) model.Category {
	name := strings.TrimSuffix(filepath.Base(fileName), filepath.Ext(fileName))
	if i := strings.LastIndex(name, " - "); i >= 0 {
		name = name[i+len(" - "):]
	}
	c, err := model.ParseCategory(name)
	if err != nil {
		return ""
	}
	return c
}

// Result counts the rows imported from one file.
type Result struct {
	File       string
	Rows       int
	ByCategory map[model.Category]int
}

// Import parses the file read from r and appends every row to its category
// partition in file order. Nothing is appended when parsing fails.
func Import(ctx context.Context, store ledger.Store, p Parser, fileName string, r io.Reader) (Result, error) {
	res := Result{File: fileName, ByCategory: map[model.Category]int{}}

	txns, err := p.Parse(r, TabCategory(fileName))
	if err != nil {
		return res, fmt.Errorf("parsing %s: %w", fileName, err)
	}

	for _, tx := range txns {
		if err := store.Append(ctx, tx.Category, tx.Record()); err != nil {
			return res, fmt.Errorf("importing %s row %d: %w", fileName, res.Rows+1, err)
		}
		res.Rows++
		res.ByCategory[tx.Category]++
	}
	return res, nil
}
