// Package mssql registers the Microsoft SQL Server store.
package mssql

import (
	"context"
	"strconv"
	"strings"

	_ "github.com/microsoft/go-mssqldb"

	"banketl/internal/dataset"
	"banketl/internal/storage"
	"banketl/internal/storage/sqlstore"
)

func init() {
	storage.Register("mssql", New)
}

// Dialect is the SQL Server dialect. DROP TABLE IF EXISTS needs SQL Server
// 2016 or later.
//
// SQL Server has no LIMIT clause; configure "SELECT TOP 5 ..." style
// queries when running against it.
var Dialect = sqlstore.Dialect{
	Name:        "mssql",
	Quote:       mssqlTableIdent,
	Placeholder: func(n int) string { return "@p" + strconv.Itoa(n) },
	ColumnType:  columnType,
	// 2100 parameters per request, 1000 rows per VALUES list.
	MaxParams: 2000,
	MaxRows:   1000,
}

// New opens a SQL Server connection with the "sqlserver" driver.
func New(ctx context.Context, cfg storage.Config) (storage.Store, error) {
	return sqlstore.Open(ctx, "sqlserver", cfg.DSN, Dialect)
}

// mssqlIdent returns a bracket-quoted identifier, escaping ']' as ']]'.
func mssqlIdent(name string) string {
	return "[" + strings.ReplaceAll(name, "]", "]]") + "]"
}

// mssqlTableIdent returns a bracket-quoted identifier for schema-qualified names.
//
// Example:
//
//	"dbo.INSTRUCTOR" -> [dbo].[INSTRUCTOR]
func mssqlTableIdent(name string) string {
	parts := strings.Split(name, ".")
	for i := range parts {
		parts[i] = mssqlIdent(strings.TrimSpace(parts[i]))
	}
	return strings.Join(parts, ".")
}

func columnType(k dataset.Kind) string {
	switch k {
	case dataset.Int:
		return "BIGINT"
	case dataset.Float:
		return "FLOAT"
	default:
		return "NVARCHAR(MAX)"
	}
}
