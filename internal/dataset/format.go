package dataset

import (
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"text/tabwriter"
)

// FormatFloat renders v the way Python's repr does, which is what the CSV
// consumers of this pipeline were built against: shortest round-trip digits,
// always with a fractional part ("100.0"), exponent form outside [1e-4, 1e16).
func FormatFloat(v float64) string {
	switch {
	case math.IsNaN(v):
		return "nan"
	case math.IsInf(v, 1):
		return "inf"
	case math.IsInf(v, -1):
		return "-inf"
	}

	abs := math.Abs(v)
	if abs != 0 && (abs < 1e-4 || abs >= 1e16) {
		return strconv.FormatFloat(v, 'e', -1, 64)
	}
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}

// FormatCell renders a single cell for text output.
func FormatCell(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return FormatFloat(t)
	case float32:
		return FormatFloat(float64(t))
	case int64:
		return strconv.FormatInt(t, 10)
	case int:
		return strconv.Itoa(t)
	case []byte:
		return string(t)
	default:
		return fmt.Sprint(v)
	}
}

// WriteTable prints columns and rows as an indexed, aligned table, one row
// per line, prefixed by the 0-based row index.
func WriteTable(w io.Writer, columns []string, rows [][]any) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)

	var b strings.Builder
	b.WriteString("\t")
	b.WriteString(strings.Join(columns, "\t"))
	b.WriteString("\t\n")
	if _, err := io.WriteString(tw, b.String()); err != nil {
		return err
	}

	for i, row := range rows {
		b.Reset()
		b.WriteString(strconv.Itoa(i))
		for _, v := range row {
			b.WriteByte('\t')
			b.WriteString(FormatCell(v))
		}
		b.WriteString("\t\n")
		if _, err := io.WriteString(tw, b.String()); err != nil {
			return err
		}
	}
	return tw.Flush()
}

// Print writes d as an indexed table.
func (d *Dataset) Print(w io.Writer) error {
	return WriteTable(w, d.Columns(), d.Rows())
}
