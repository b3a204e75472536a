// Package postgres registers the Postgres store (pgx connection pool, COPY
// for bulk rows).
package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"banketl/internal/dataset"
	"banketl/internal/storage"
)

func init() {
	storage.Register("postgres", New)
}

/*
Store implements storage.Store for Postgres.

Identifiers are folded to lower case when tables are created, so the
literal unquoted queries (SELECT AVG(MC_GBP_Billion) FROM Largest_banks)
resolve the way Postgres folds unquoted names. Replace runs DROP, CREATE and
COPY in one transaction.
*/
type Store struct {
	pool *pgxpool.Pool
}

// New creates a pool for cfg.DSN and verifies connectivity.
func New(ctx context.Context, cfg storage.Config) (storage.Store, error) {
	pool, err := pgxpool.New(ctx, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres: ping: %w", err)
	}
	return &Store{pool: pool}, nil
}

// Close closes the connection pool.
func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

// ReplaceTable drops and recreates name from ds in one transaction.
func (s *Store) ReplaceTable(ctx context.Context, name string, ds *dataset.Dataset) error {
	if err := s.replace(ctx, name, ds); err != nil {
		return &storage.StoreWriteError{Op: "replace", Table: name, Err: err}
	}
	return nil
}

func (s *Store) replace(ctx context.Context, name string, ds *dataset.Dataset) error {
	create, err := buildCreateSQL(name, ds)
	if err != nil {
		return err
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, "DROP TABLE IF EXISTS "+tableIdent(name).Sanitize()); err != nil {
		return fmt.Errorf("drop: %w", err)
	}
	if _, err := tx.Exec(ctx, create); err != nil {
		return fmt.Errorf("create: %w", err)
	}
	if _, err := copyRows(ctx, tx, name, ds); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// AppendRows copies ds into name inside one transaction.
func (s *Store) AppendRows(ctx context.Context, name string, ds *dataset.Dataset) (int64, error) {
	if ds.Len() == 0 {
		return 0, nil
	}
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, &storage.StoreWriteError{Op: "append", Table: name, Err: err}
	}
	defer tx.Rollback(ctx)

	n, err := copyRows(ctx, tx, name, ds)
	if err == nil {
		err = tx.Commit(ctx)
	}
	if err != nil {
		return 0, &storage.StoreWriteError{Op: "append", Table: name, Err: err}
	}
	return n, nil
}

func copyRows(ctx context.Context, tx pgx.Tx, name string, ds *dataset.Dataset) (int64, error) {
	if ds.Len() == 0 {
		return 0, nil
	}
	cols := make([]string, ds.Width())
	for i, c := range ds.Columns() {
		cols[i] = foldIdent(c)
	}
	n, err := tx.CopyFrom(ctx, tableIdent(name), cols, pgx.CopyFromRows(ds.Rows()))
	if err != nil {
		return n, fmt.Errorf("copy: %w", err)
	}
	return n, nil
}

// Query runs a read-only statement and materializes the result.
func (s *Store) Query(ctx context.Context, query string) (*storage.ResultSet, error) {
	if !storage.IsReadQuery(query) {
		return nil, &storage.StoreQueryError{Query: query, Err: storage.ErrNotReadOnly}
	}

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, &storage.StoreQueryError{Query: query, Err: err}
	}
	defer rows.Close()

	fds := rows.FieldDescriptions()
	rs := &storage.ResultSet{Columns: make([]string, len(fds))}
	for i, fd := range fds {
		rs.Columns[i] = fd.Name
	}
	for rows.Next() {
		vals, err := rows.Values()
		if err != nil {
			return nil, &storage.StoreQueryError{Query: query, Err: err}
		}
		for i, v := range vals {
			vals[i] = normalize(v)
		}
		rs.Rows = append(rs.Rows, vals)
	}
	if err := rows.Err(); err != nil {
		return nil, &storage.StoreQueryError{Query: query, Err: err}
	}
	return rs, nil
}

// normalize converts pgx values that storage.NormalizeValue does not know
// about. AVG over BIGINT yields NUMERIC.
func normalize(v any) any {
	if n, ok := v.(pgtype.Numeric); ok {
		f, err := n.Float64Value()
		if err != nil || !f.Valid {
			return nil
		}
		return f.Float64
	}
	return storage.NormalizeValue(v)
}

// buildCreateSQL constructs CREATE TABLE for Postgres.
func buildCreateSQL(name string, ds *dataset.Dataset) (string, error) {
	if strings.TrimSpace(name) == "" {
		return "", fmt.Errorf("table name is empty")
	}
	if ds == nil || ds.Width() == 0 {
		return "", fmt.Errorf("dataset has no columns")
	}

	defs := make([]string, ds.Width())
	kinds := ds.Kinds()
	for i, c := range ds.Columns() {
		defs[i] = pgx.Identifier{foldIdent(c)}.Sanitize() + " " + columnType(kinds[i])
	}
	return "CREATE TABLE " + tableIdent(name).Sanitize() + " (" + strings.Join(defs, ", ") + ")", nil
}

func columnType(k dataset.Kind) string {
	switch k {
	case dataset.Int:
		return "BIGINT"
	case dataset.Float:
		return "DOUBLE PRECISION"
	default:
		return "TEXT"
	}
}

func foldIdent(name string) string { return strings.ToLower(strings.TrimSpace(name)) }

// tableIdent splits an optional schema prefix: "etl.Largest_banks" becomes
// {"etl", "largest_banks"}.
func tableIdent(name string) pgx.Identifier {
	if i := strings.IndexByte(name, '.'); i > 0 {
		return pgx.Identifier{foldIdent(name[:i]), foldIdent(name[i+1:])}
	}
	return pgx.Identifier{foldIdent(name)}
}

var _ storage.Store = (*Store)(nil)
