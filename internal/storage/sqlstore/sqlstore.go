// Package sqlstore implements storage.Store on top of database/sql. Each
// backend supplies a Dialect for quoting, placeholders, column types and
// its replace strategy.
package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"

	"banketl/internal/dataset"
	"banketl/internal/storage"
)

// Dialect describes the SQL differences between backends.
type Dialect struct {
	Name string

	// Quote returns a quoted identifier.
	Quote func(name string) string
	// Placeholder returns the bind marker for the n-th (1-based) argument.
	Placeholder func(n int) string
	// ColumnType maps a dataset column kind to a column type.
	ColumnType func(k dataset.Kind) string

	// MaxParams bounds the bind arguments in one INSERT. Rows are split into
	// as many statements as needed. Zero means no limit.
	MaxParams int
	// MaxRows bounds the rows in one INSERT ... VALUES. Zero means no limit.
	MaxRows int

	// Swap is set for backends whose DDL commits implicitly. ReplaceTable
	// then fills a staging table and calls Swap to move it into place.
	// exists reports whether the target table is already present.
	Swap func(name, staging, old string, exists bool) []string
	// Cleanup returns statements run after a successful Swap, e.g. dropping
	// the displaced table. The new table is already live, so failures are
	// logged and not returned.
	Cleanup func(old string) []string
	// TableExists is a query with one placeholder (the table name)
	// returning a count. Required when Swap is set.
	TableExists string
}

// Logger receives best-effort failures. *log.Logger satisfies it.
type Logger interface {
	Printf(format string, v ...any)
}

// Store is a storage.Store backed by *sql.DB.
type Store struct {
	db  *sql.DB
	d   Dialect
	log Logger
}

// Open opens driver/dsn and verifies connectivity.
func Open(ctx context.Context, driver, dsn string, d Dialect) (*Store, error) {
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("%s: open: %w", d.Name, err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%s: ping: %w", d.Name, err)
	}
	return New(db, d), nil
}

// New wraps an open handle.
func New(db *sql.DB, d Dialect) *Store {
	return &Store{db: db, d: d, log: log.Default()}
}

// SetLogger sets where best-effort failures are reported, by default the
// standard logger. Nil discards.
func (s *Store) SetLogger(l Logger) {
	if l == nil {
		l = log.New(io.Discard, "", 0)
	}
	s.log = l
}

// DB exposes the underlying handle.
func (s *Store) DB() *sql.DB { return s.db }

// Close closes the underlying handle.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// ReplaceTable drops and recreates name from ds. With transactional DDL the
// drop, create and inserts share one transaction; otherwise the rows land
// in a staging table first and Dialect.Swap moves it into place.
func (s *Store) ReplaceTable(ctx context.Context, name string, ds *dataset.Dataset) error {
	var err error
	if s.d.Swap != nil {
		err = s.replaceStaged(ctx, name, ds)
	} else {
		err = s.replaceTx(ctx, name, ds)
	}
	if err != nil {
		return &storage.StoreWriteError{Op: "replace", Table: name, Err: err}
	}
	return nil
}

func (s *Store) replaceTx(ctx context.Context, name string, ds *dataset.Dataset) (err error) {
	create, err := BuildCreateSQL(s.d, name, ds)
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, "DROP TABLE IF EXISTS "+s.d.Quote(name)); err != nil {
		return fmt.Errorf("drop: %w", err)
	}
	if _, err = tx.ExecContext(ctx, create); err != nil {
		return fmt.Errorf("create: %w", err)
	}
	if _, err = s.insert(ctx, tx, name, ds); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func (s *Store) replaceStaged(ctx context.Context, name string, ds *dataset.Dataset) (err error) {
	staging, old := name+"__staging", name+"__old"

	create, err := BuildCreateSQL(s.d, staging, ds)
	if err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx, "DROP TABLE IF EXISTS "+s.d.Quote(staging)); err != nil {
		return fmt.Errorf("drop staging: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, create); err != nil {
		return fmt.Errorf("create staging: %w", err)
	}

	swapped := false
	defer func() {
		if !swapped {
			_, _ = s.db.ExecContext(context.WithoutCancel(ctx), "DROP TABLE IF EXISTS "+s.d.Quote(staging))
		}
	}()

	if _, err := s.AppendRowsRaw(ctx, staging, ds); err != nil {
		return err
	}

	var n int64
	if err := s.db.QueryRowContext(ctx, s.d.TableExists, name).Scan(&n); err != nil {
		return fmt.Errorf("check table: %w", err)
	}
	for _, stmt := range s.d.Swap(name, staging, old, n > 0) {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("swap: %w", err)
		}
	}
	swapped = true

	if s.d.Cleanup != nil {
		for _, stmt := range s.d.Cleanup(old) {
			if _, err := s.db.ExecContext(ctx, stmt); err != nil {
				s.log.Printf("%s: replace %s: cleanup %q: %v", s.d.Name, name, stmt, err)
			}
		}
	}
	return nil
}

// AppendRows inserts ds into name inside one transaction.
func (s *Store) AppendRows(ctx context.Context, name string, ds *dataset.Dataset) (int64, error) {
	n, err := s.AppendRowsRaw(ctx, name, ds)
	if err != nil {
		return 0, &storage.StoreWriteError{Op: "append", Table: name, Err: err}
	}
	return n, nil
}

// AppendRowsRaw is AppendRows without the StoreWriteError wrapping.
func (s *Store) AppendRowsRaw(ctx context.Context, name string, ds *dataset.Dataset) (n int64, err error) {
	if ds.Len() == 0 {
		return 0, nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	n, err = s.insert(ctx, tx, name, ds)
	if err != nil {
		return 0, err
	}
	if err = tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return n, nil
}

func (s *Store) insert(ctx context.Context, tx *sql.Tx, name string, ds *dataset.Dataset) (int64, error) {
	var total int64
	cols := ds.Columns()
	for _, batch := range Batches(ds.Rows(), len(cols), s.d.MaxParams, s.d.MaxRows) {
		q, args := BuildInsertSQL(s.d, name, cols, batch)
		res, err := tx.ExecContext(ctx, q, args...)
		if err != nil {
			return total, fmt.Errorf("insert: %w", err)
		}
		if n, err := res.RowsAffected(); err == nil {
			total += n
		} else {
			total += int64(len(batch))
		}
	}
	return total, nil
}

// Query runs a read-only statement and materializes the result.
func (s *Store) Query(ctx context.Context, query string) (*storage.ResultSet, error) {
	if !storage.IsReadQuery(query) {
		return nil, &storage.StoreQueryError{Query: query, Err: storage.ErrNotReadOnly}
	}
	rs, err := s.query(ctx, query)
	if err != nil {
		return nil, &storage.StoreQueryError{Query: query, Err: err}
	}
	return rs, nil
}

func (s *Store) query(ctx context.Context, query string) (*storage.ResultSet, error) {
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("columns: %w", err)
	}
	types := make([]string, len(cols))
	if cts, err := rows.ColumnTypes(); err == nil {
		for i, ct := range cts {
			types[i] = ct.DatabaseTypeName()
		}
	}

	rs := &storage.ResultSet{Columns: cols}
	for rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		for i, v := range values {
			values[i] = storage.TypedValue(v, types[i])
		}
		rs.Rows = append(rs.Rows, values)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate: %w", err)
	}
	return rs, nil
}

// BuildCreateSQL returns CREATE TABLE for name with ds's columns.
func BuildCreateSQL(d Dialect, name string, ds *dataset.Dataset) (string, error) {
	if strings.TrimSpace(name) == "" {
		return "", errors.New("table name is empty")
	}
	if ds == nil || ds.Width() == 0 {
		return "", errors.New("dataset has no columns")
	}

	var b strings.Builder
	b.WriteString("CREATE TABLE ")
	b.WriteString(d.Quote(name))
	b.WriteString(" (")
	kinds := ds.Kinds()
	for i, c := range ds.Columns() {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(d.Quote(c))
		b.WriteByte(' ')
		b.WriteString(d.ColumnType(kinds[i]))
	}
	b.WriteString(")")
	return b.String(), nil
}

// BuildInsertSQL builds one multi-row INSERT and its args.
//
// Constraints:
//   - every row must have len(columns) values.
//   - columns must be non-empty.
func BuildInsertSQL(d Dialect, name string, columns []string, rows [][]any) (string, []any) {
	var b strings.Builder
	b.WriteString("INSERT INTO ")
	b.WriteString(d.Quote(name))
	b.WriteString(" (")
	for i, c := range columns {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(d.Quote(c))
	}
	b.WriteString(") VALUES ")

	args := make([]any, 0, len(rows)*len(columns))
	p := 1
	for i, row := range rows {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString("(")
		for j := range columns {
			if j > 0 {
				b.WriteString(", ")
			}
			b.WriteString(d.Placeholder(p))
			args = append(args, row[j])
			p++
		}
		b.WriteString(")")
	}
	return b.String(), args
}

// Batches splits rows so no batch needs more than maxParams arguments or
// holds more than maxRows rows. Zero limits are ignored.
func Batches(rows [][]any, width, maxParams, maxRows int) [][][]any {
	if len(rows) == 0 {
		return nil
	}
	per := len(rows)
	if maxParams > 0 && width > 0 {
		per = maxParams / width
		if per < 1 {
			per = 1
		}
	}
	if maxRows > 0 && per > maxRows {
		per = maxRows
	}
	var out [][][]any
	for start := 0; start < len(rows); start += per {
		end := start + per
		if end > len(rows) {
			end = len(rows)
		}
		out = append(out, rows[start:end])
	}
	return out
}

// QuestionMark is the "?" placeholder style.
func QuestionMark(int) string { return "?" }

var _ storage.Store = (*Store)(nil)
