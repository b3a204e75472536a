package storage

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"banketl/internal/dataset"
)

// ResultSet is a fully materialized query result.
type ResultSet struct {
	Columns []string
	Rows    [][]any
}

// Len returns the number of rows.
func (r *ResultSet) Len() int {
	if r == nil {
		return 0
	}
	return len(r.Rows)
}

// Format writes r as an indexed table.
func (r *ResultSet) Format(w io.Writer) error {
	return dataset.WriteTable(w, r.Columns, r.Rows)
}

// Int64 returns cell (row, col) as an integer. It accepts the integer and
// float types drivers return for aggregates such as COUNT(*).
func (r *ResultSet) Int64(row, col int) (int64, error) {
	if row < 0 || row >= r.Len() || col < 0 || col >= len(r.Rows[row]) {
		return 0, fmt.Errorf("cell (%d,%d) out of range", row, col)
	}
	switch v := r.Rows[row][col].(type) {
	case int64:
		return v, nil
	case int32:
		return int64(v), nil
	case int:
		return int64(v), nil
	case float64:
		return int64(v), nil
	case string:
		return strconv.ParseInt(strings.TrimSpace(v), 10, 64)
	default:
		return 0, fmt.Errorf("cell (%d,%d) has type %T, want integer", row, col, v)
	}
}

// NormalizeValue converts a driver value into one of the cell types used by
// datasets and result sets: nil, string, int64, float64, or bool.
//
// Backends must not assume a particular driver representation; this helper
// keeps printed results consistent across backends.
func NormalizeValue(v any) any {
	switch t := v.(type) {
	case nil, string, int64, float64, bool:
		return v
	case []byte:
		return string(t)
	case int:
		return int64(t)
	case int32:
		return int64(t)
	case int16:
		return int64(t)
	case int8:
		return int64(t)
	case uint8:
		return int64(t)
	case uint16:
		return int64(t)
	case uint32:
		return int64(t)
	case float32:
		return float64(t)
	case time.Time:
		return t.Format(time.RFC3339Nano)
	default:
		return fmt.Sprint(v)
	}
}

// TypedValue converts raw driver bytes using the column's database type
// name. Drivers that use a text protocol (MySQL without prepared
// statements) return numbers as []byte; this restores int64 or float64.
func TypedValue(v any, dbType string) any {
	b, ok := v.([]byte)
	if !ok {
		return NormalizeValue(v)
	}
	s := string(b)
	switch strings.ToUpper(dbType) {
	case "INT", "INTEGER", "BIGINT", "SMALLINT", "TINYINT", "MEDIUMINT":
		if n, err := strconv.ParseInt(s, 10, 64); err == nil {
			return n
		}
	case "DOUBLE", "FLOAT", "REAL", "DECIMAL", "NUMERIC":
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return f
		}
	}
	return s
}
