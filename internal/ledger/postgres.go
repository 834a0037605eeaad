package ledger

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/folio-dev/folio/internal/model"
)

const schema = `
CREATE TABLE IF NOT EXISTS ledger_partitions (
	name text PRIMARY KEY
);
CREATE TABLE IF NOT EXISTS ledger_rows (
	partition text    NOT NULL REFERENCES ledger_partitions (name),
	position  integer NOT NULL,
	date      text    NOT NULL DEFAULT '',
	asset     text    NOT NULL DEFAULT '',
	amount    text    NOT NULL DEFAULT '',
	currency  text    NOT NULL DEFAULT '',
	quantity  text    NOT NULL DEFAULT '',
	broker    text    NOT NULL DEFAULT '',
	category  text    NOT NULL DEFAULT '',
	operation text    NOT NULL DEFAULT '',
	notes     text    NOT NULL DEFAULT '',
	PRIMARY KEY (partition, position)
);`

var rowColumns = []string{"partition", "position", "date", "asset", "amount", "currency", "quantity", "broker", "category", "operation", "notes"}

type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresStore keeps partitions as row sets in a Postgres database. Cells are
// stored as text so that rows read back exactly as written.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore connects to databaseURL and ensures the schema exists.
func NewPostgresStore(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("connecting to postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging postgres: %w", err)
	}
	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("creating ledger schema: %w", err)
	}
	return &PostgresStore{pool: pool}, nil
}

// Close releases the connection pool.
func (s *PostgresStore) Close() { s.pool.Close() }

// Read returns the rows of a partition.
func (s *PostgresStore) Read(ctx context.Context, category model.Category) ([]model.Record, error) {
	if err := checkCategory(category); err != nil {
		return nil, err
	}
	return readPartition(ctx, s.pool, category)
}

// Append rewrites the partition with rec added, holding a row lock on the
// partition for the whole transaction.
func (s *PostgresStore) Append(ctx context.Context, category model.Category, rec model.Record) error {
	if err := checkCategory(category); err != nil {
		return err
	}
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning append: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // no-op after commit

	if _, err := tx.Exec(ctx, `INSERT INTO ledger_partitions (name) VALUES ($1) ON CONFLICT DO NOTHING`, string(category)); err != nil {
		return fmt.Errorf("creating partition %s: %w", category, err)
	}
	if _, err := tx.Exec(ctx, `SELECT name FROM ledger_partitions WHERE name = $1 FOR UPDATE`, string(category)); err != nil {
		return fmt.Errorf("locking partition %s: %w", category, err)
	}

	recs, err := readPartition(ctx, tx, category)
	if err != nil {
		return err
	}
	recs = append(recs, rec)

	if _, err := tx.Exec(ctx, `DELETE FROM ledger_rows WHERE partition = $1`, string(category)); err != nil {
		return fmt.Errorf("clearing partition %s: %w", category, err)
	}

	rows := make([][]any, len(recs))
	for i, r := range recs {
		rows[i] = []any{string(category), i, r.Date, r.Asset, r.Amount, r.Currency, r.Quantity, r.Broker, r.Category, r.Operation, r.Notes}
	}
	if _, err := tx.CopyFrom(ctx, pgx.Identifier{"ledger_rows"}, rowColumns, pgx.CopyFromRows(rows)); err != nil {
		return fmt.Errorf("writing partition %s: %w", category, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing append to %s: %w", category, err)
	}
	return nil
}

// Create registers an empty partition.
func (s *PostgresStore) Create(ctx context.Context, category model.Category) error {
	if err := checkCategory(category); err != nil {
		return err
	}
	if _, err := s.pool.Exec(ctx, `INSERT INTO ledger_partitions (name) VALUES ($1) ON CONFLICT DO NOTHING`, string(category)); err != nil {
		return fmt.Errorf("creating partition %s: %w", category, err)
	}
	return nil
}

func readPartition(ctx context.Context, q querier, category model.Category) ([]model.Record, error) {
	var exists bool
	if err := q.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM ledger_partitions WHERE name = $1)`, string(category)).Scan(&exists); err != nil {
		return nil, fmt.Errorf("checking partition %s: %w", category, err)
	}
	if !exists {
		return nil, fmt.Errorf("%s: %w", category, ErrNotFound)
	}

	rows, err := q.Query(ctx, `
		SELECT date, asset, amount, currency, quantity, broker, category, operation, notes
		FROM ledger_rows WHERE partition = $1 ORDER BY position`, string(category))
	if err != nil {
		return nil, fmt.Errorf("reading partition %s: %w", category, err)
	}
	recs, err := pgx.CollectRows(rows, pgx.RowToStructByPos[model.Record])
	if err != nil {
		return nil, fmt.Errorf("scanning partition %s: %w", category, err)
	}
	return recs, nil
}
