// Package csv reads the pipelines' delimited input files into typed values.
package csv

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"banketl/internal/dataset"
	"banketl/internal/transformer"
)

// FileReadError reports an input file that could not be opened, read or
// converted. Line is the 1-based record number, 0 when not line-specific.
type FileReadError struct {
	Path string
	Line int
	Err  error
}

func (e *FileReadError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("read %s line %d: %v", e.Path, e.Line, e.Err)
	}
	return fmt.Sprintf("read %s: %v", e.Path, e.Err)
}

func (e *FileReadError) Unwrap() error { return e.Err }

// Options controls delimited-file parsing.
type Options struct {
	Comma     rune
	HasHeader bool
	TrimSpace bool
}

func (o Options) reader(r io.Reader) *csv.Reader {
	cr := csv.NewReader(r)
	if o.Comma != 0 {
		cr.Comma = o.Comma
	}
	cr.FieldsPerRecord = -1
	return cr
}

// ReadDataset reads a file whose fields are positional: field i belongs to
// columns[i]. Each field is coerced to kinds[i]. A record with the wrong
// field count, or a field that does not coerce, fails the whole read.
func ReadDataset(path string, columns []string, kinds []dataset.Kind, opt Options) (*dataset.Dataset, error) {
	ds, err := dataset.New(columns, kinds)
	if err != nil {
		return nil, &FileReadError{Path: path, Err: err}
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, &FileReadError{Path: path, Err: err}
	}
	defer f.Close()

	cr := opt.reader(f)
	line := 0
	if opt.HasHeader {
		line++
		if _, err := cr.Read(); err != nil {
			return nil, &FileReadError{Path: path, Line: line, Err: fmt.Errorf("read header: %w", err)}
		}
	}

	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return ds, nil
		}
		line++
		if err != nil {
			return nil, &FileReadError{Path: path, Line: line, Err: err}
		}
		if len(rec) != len(columns) {
			return nil, &FileReadError{Path: path, Line: line, Err: fmt.Errorf("got %d fields, want %d", len(rec), len(columns))}
		}

		row := make([]any, len(rec))
		for i, raw := range rec {
			if opt.TrimSpace {
				raw = strings.TrimSpace(raw)
			}
			v, err := coerce(raw, kinds[i])
			if err != nil {
				return nil, &FileReadError{Path: path, Line: line, Err: fmt.Errorf("column %s: %w", columns[i], err)}
			}
			row[i] = v
		}
		if err := ds.AppendRow(row...); err != nil {
			return nil, &FileReadError{Path: path, Line: line, Err: err}
		}
	}
}

func coerce(raw string, k dataset.Kind) (any, error) {
	switch k {
	case dataset.Int:
		return strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	case dataset.Float:
		return strconv.ParseFloat(strings.TrimSpace(raw), 64)
	default:
		return raw, nil
	}
}

// ReadRates reads a reference file with a header row naming a key column
// and a rate column (matched case-insensitively, BOM-tolerant). Extra
// columns are ignored.
func ReadRates(path, keyColumn, rateColumn string) (*transformer.Rates, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &FileReadError{Path: path, Err: err}
	}
	defer f.Close()

	cr := Options{}.reader(f)
	hdr, err := cr.Read()
	if err != nil {
		return nil, &FileReadError{Path: path, Line: 1, Err: fmt.Errorf("read header: %w", err)}
	}

	keyIx, rateIx := -1, -1
	for i, h := range hdr {
		h = strings.TrimSpace(h)
		if i == 0 {
			h = strings.TrimPrefix(h, "\uFEFF")
		}
		switch {
		case strings.EqualFold(h, keyColumn):
			keyIx = i
		case strings.EqualFold(h, rateColumn):
			rateIx = i
		}
	}
	if keyIx < 0 || rateIx < 0 {
		return nil, &FileReadError{Path: path, Line: 1, Err: fmt.Errorf("header %q lacks %q/%q", hdr, keyColumn, rateColumn)}
	}

	var (
		keys  []string
		rates []float64
		line  = 1
	)
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return nil, &FileReadError{Path: path, Line: line, Err: err}
		}
		if keyIx >= len(rec) || rateIx >= len(rec) {
			return nil, &FileReadError{Path: path, Line: line, Err: fmt.Errorf("short record")}
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(rec[rateIx]), 64)
		if err != nil {
			return nil, &FileReadError{Path: path, Line: line, Err: fmt.Errorf("rate: %w", err)}
		}
		keys = append(keys, rec[keyIx])
		rates = append(rates, v)
	}

	r, err := transformer.NewRates(keys, rates)
	if err != nil {
		return nil, &FileReadError{Path: path, Err: err}
	}
	return r, nil
}
