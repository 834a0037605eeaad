// Package ledger persists transaction rows in named partitions, one per
// category.
//
// Appends rewrite the whole partition. Both backends guard that
// read-modify-write: the CSV backend with an in-process mutex plus a content
// version check before the final rename, the Postgres backend with a row lock
// on the partition. The CSV check still leaves a small window between the
// version check and the rename for writers in other processes.
package ledger

import (
	"context"
	"errors"
	"fmt"

	"github.com/folio-dev/folio/internal/model"
)

var (
	// ErrNotFound reports a partition that has never been created.
	ErrNotFound = errors.New("ledger partition not found")
	// ErrConflict reports an append that kept losing to concurrent writers.
	ErrConflict = errors.New("ledger partition changed concurrently")
	// ErrUnknownCategory reports a partition name outside model.Categories.
	ErrUnknownCategory = errors.New("unknown ledger category")
)

// Store reads and appends rows of a category partition.
type Store interface {
	// Read returns the rows of a partition in stored order. A partition with
	// no rows yields an empty slice; a missing one yields ErrNotFound.
	Read(ctx context.Context, category model.Category) ([]model.Record, error)
	// Append adds rec at the end of the partition, creating it if needed.
	Append(ctx context.Context, category model.Category, rec model.Record) error
	// Create makes an empty partition if it does not exist yet.
	Create(ctx context.Context, category model.Category) error
}

// IsNotFound reports whether err means the partition does not exist.
func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }

func checkCategory(category model.Category) error {
	if !category.Valid() {
		return fmt.Errorf("%q: %w", category, ErrUnknownCategory)
	}
	return nil
}
