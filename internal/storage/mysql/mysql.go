// Package mysql registers the MySQL store.
package mysql

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-sql-driver/mysql"

	"banketl/internal/dataset"
	"banketl/internal/storage"
	"banketl/internal/storage/sqlstore"
)

func init() {
	storage.Register("mysql", New)
}

// Dialect is the MySQL dialect. MySQL DDL commits implicitly, so replace
// fills a staging table and swaps it in with one RENAME TABLE statement,
// which MySQL applies atomically.
var Dialect = sqlstore.Dialect{
	Name:        "mysql",
	Quote:       mysqlIdent,
	Placeholder: sqlstore.QuestionMark,
	ColumnType:  columnType,
	MaxParams:   65535,
	Swap:        swap,
	Cleanup:     cleanup,
	TableExists: "SELECT COUNT(*) FROM information_schema.tables WHERE table_schema = DATABASE() AND table_name = ?",
}

// New opens a MySQL connection. The DSN uses the driver's format
// (user:pass@tcp(host:3306)/db).
func New(ctx context.Context, cfg storage.Config) (storage.Store, error) {
	dsn, err := normalizeDSN(cfg.DSN)
	if err != nil {
		return nil, err
	}
	return sqlstore.Open(ctx, "mysql", dsn, Dialect)
}

// normalizeDSN enables parseTime and utf8mb4 unless the DSN sets them.
func normalizeDSN(dsn string) (string, error) {
	c, err := mysql.ParseDSN(dsn)
	if err != nil {
		return "", fmt.Errorf("mysql: parse dsn: %w", err)
	}
	c.ParseTime = true
	if c.Params == nil {
		c.Params = map[string]string{}
	}
	if _, ok := c.Params["charset"]; !ok {
		c.Params["charset"] = "utf8mb4"
	}
	return c.FormatDSN(), nil
}

func mysqlIdent(name string) string {
	return "`" + strings.ReplaceAll(name, "`", "``") + "`"
}

func columnType(k dataset.Kind) string {
	switch k {
	case dataset.Int:
		return "BIGINT"
	case dataset.Float:
		return "DOUBLE"
	default:
		return "TEXT"
	}
}

func swap(name, staging, old string, exists bool) []string {
	n, s, o := mysqlIdent(name), mysqlIdent(staging), mysqlIdent(old)
	if !exists {
		return []string{"RENAME TABLE " + s + " TO " + n}
	}
	return []string{
		"DROP TABLE IF EXISTS " + o,
		"RENAME TABLE " + n + " TO " + o + ", " + s + " TO " + n,
	}
}

func cleanup(old string) []string {
	return []string{"DROP TABLE IF EXISTS " + mysqlIdent(old)}
}
