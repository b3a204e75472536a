// Package dataset defines the in-memory tabular structure passed between the
// extract, transform and load stages.
//
// A Dataset is column-oriented: every column carries a single Kind and all
// columns hold the same number of cells. Stages append columns in place; rows
// are never reordered.
package dataset

import (
	"fmt"
	"strings"
)

// Kind is the semantic type of every cell in a column.
type Kind int

const (
	Text Kind = iota
	Float
	Int
)

func (k Kind) String() string {
	switch k {
	case Text:
		return "text"
	case Float:
		return "float"
	case Int:
		return "int"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// ParseKind maps config spellings ("text", "float", "int") to a Kind.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "text", "string", "":
		return Text, nil
	case "float", "real", "double", "numeric":
		return Float, nil
	case "int", "integer", "bigint":
		return Int, nil
	default:
		return Text, fmt.Errorf("unknown column kind %q", s)
	}
}

// Column is a named, typed sequence of cells.
//
// Cells hold string for Text, float64 for Float and int64 for Int.
type Column struct {
	Name  string
	Kind  Kind
	Cells []any
}

// Dataset is an ordered set of equally long columns.
type Dataset struct {
	cols []*Column
}

// New returns an empty dataset with the given column layout.
func New(names []string, kinds []Kind) (*Dataset, error) {
	if len(names) != len(kinds) {
		return nil, fmt.Errorf("dataset: %d names but %d kinds", len(names), len(kinds))
	}
	ds := &Dataset{}
	for i, n := range names {
		if err := ds.addColumn(n, kinds[i], nil); err != nil {
			return nil, err
		}
	}
	return ds, nil
}

func (d *Dataset) addColumn(name string, kind Kind, cells []any) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("dataset: empty column name")
	}
	if d.Index(name) >= 0 {
		return fmt.Errorf("dataset: duplicate column %q", name)
	}
	d.cols = append(d.cols, &Column{Name: name, Kind: kind, Cells: cells})
	return nil
}

// Len returns the row count.
func (d *Dataset) Len() int {
	if len(d.cols) == 0 {
		return 0
	}
	return len(d.cols[0].Cells)
}

// Width returns the column count.
func (d *Dataset) Width() int { return len(d.cols) }

// Columns returns the column names in order.
func (d *Dataset) Columns() []string {
	out := make([]string, len(d.cols))
	for i, c := range d.cols {
		out[i] = c.Name
	}
	return out
}

// Kinds returns the column kinds in order.
func (d *Dataset) Kinds() []Kind {
	out := make([]Kind, len(d.cols))
	for i, c := range d.cols {
		out[i] = c.Kind
	}
	return out
}

// Index returns the position of the named column or -1.
func (d *Dataset) Index(name string) int {
	for i, c := range d.cols {
		if c.Name == name {
			return i
		}
	}
	return -1
}

// Column returns the named column or nil.
func (d *Dataset) Column(name string) *Column {
	if i := d.Index(name); i >= 0 {
		return d.cols[i]
	}
	return nil
}

// AppendRow appends one row. Values are checked against the column kinds.
func (d *Dataset) AppendRow(values ...any) error {
	if len(values) != len(d.cols) {
		return fmt.Errorf("dataset: row has %d values, want %d", len(values), len(d.cols))
	}
	for i, v := range values {
		if err := checkKind(d.cols[i], v); err != nil {
			return err
		}
	}
	for i, v := range values {
		d.cols[i].Cells = append(d.cols[i].Cells, v)
	}
	return nil
}

// SetColumn appends a new column, or replaces the cells of an existing one
// with the same name. The cell count must match Len unless the dataset has
// no columns yet.
func (d *Dataset) SetColumn(name string, kind Kind, cells []any) error {
	if len(d.cols) > 0 && len(cells) != d.Len() {
		return fmt.Errorf("dataset: column %q has %d cells, want %d", name, len(cells), d.Len())
	}
	col := &Column{Name: name, Kind: kind}
	for _, v := range cells {
		if err := checkKind(col, v); err != nil {
			return err
		}
	}
	if c := d.Column(name); c != nil {
		c.Kind = kind
		c.Cells = cells
		return nil
	}
	return d.addColumn(name, kind, cells)
}

// Row returns the values of row i in column order.
func (d *Dataset) Row(i int) []any {
	out := make([]any, len(d.cols))
	for j, c := range d.cols {
		out[j] = c.Cells[i]
	}
	return out
}

// Rows materializes all rows, for bulk inserts.
func (d *Dataset) Rows() [][]any {
	n := d.Len()
	out := make([][]any, n)
	for i := 0; i < n; i++ {
		out[i] = d.Row(i)
	}
	return out
}

func checkKind(c *Column, v any) error {
	ok := false
	switch c.Kind {
	case Text:
		_, ok = v.(string)
	case Float:
		_, ok = v.(float64)
	case Int:
		_, ok = v.(int64)
	}
	if !ok {
		return fmt.Errorf("dataset: column %q (%s) cannot hold %T", c.Name, c.Kind, v)
	}
	return nil
}
