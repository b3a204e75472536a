// Package sqlite registers the file-backed SQLite store (modernc.org/sqlite,
// no cgo).
package sqlite

import (
	"context"
	"strings"

	_ "modernc.org/sqlite"

	"banketl/internal/dataset"
	"banketl/internal/storage"
	"banketl/internal/storage/sqlstore"
)

func init() {
	storage.Register("sqlite", New)
}

// Dialect is the SQLite dialect. SQLite DDL is transactional, so replace
// runs DROP, CREATE and INSERT in one transaction.
var Dialect = sqlstore.Dialect{
	Name:        "sqlite",
	Quote:       sqlIdent,
	Placeholder: sqlstore.QuestionMark,
	ColumnType:  columnType,
	// SQLITE_MAX_VARIABLE_NUMBER defaults to 32766.
	MaxParams: 32766,
}

// New opens the SQLite database at cfg.DSN. A DSN without a scheme or
// query is treated as a file path.
func New(ctx context.Context, cfg storage.Config) (storage.Store, error) {
	return sqlstore.Open(ctx, "sqlite", cfg.DSN, Dialect)
}

func sqlIdent(id string) string {
	// SQLite supports "quoted identifiers"
	return `"` + strings.ReplaceAll(id, `"`, `""`) + `"`
}

func columnType(k dataset.Kind) string {
	switch k {
	case dataset.Int:
		return "INTEGER"
	case dataset.Float:
		return "REAL"
	default:
		return "TEXT"
	}
}
