// Package sink writes finished datasets to flat files.
package sink

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"banketl/internal/dataset"
)

// FileWriteError reports a flat-file write that did not complete. The
// destination is left as it was before the call.
type FileWriteError struct {
	Path string
	Err  error
}

func (e *FileWriteError) Error() string { return fmt.Sprintf("write %s: %v", e.Path, e.Err) }

func (e *FileWriteError) Unwrap() error { return e.Err }

// WriteCSV replaces path with ds rendered as CSV.
//
// The layout matches a default pandas DataFrame.to_csv: the header starts
// with an empty index cell and every row starts with its 0-based index.
// Data is written to a temporary file in the same directory, synced, and
// renamed over path.
func WriteCSV(ds *dataset.Dataset, path string) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return &FileWriteError{Path: path, Err: err}
	}
	tmpName := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			_ = tmp.Close()
			_ = os.Remove(tmpName)
		}
	}()

	w := csv.NewWriter(tmp)

	header := append([]string{""}, ds.Columns()...)
	if err := w.Write(header); err != nil {
		return &FileWriteError{Path: path, Err: err}
	}

	rec := make([]string, ds.Width()+1)
	for i := 0; i < ds.Len(); i++ {
		rec[0] = strconv.Itoa(i)
		for j, v := range ds.Row(i) {
			rec[j+1] = dataset.FormatCell(v)
		}
		if err := w.Write(rec); err != nil {
			return &FileWriteError{Path: path, Err: err}
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return &FileWriteError{Path: path, Err: err}
	}
	if err := tmp.Sync(); err != nil {
		return &FileWriteError{Path: path, Err: err}
	}
	if err := tmp.Close(); err != nil {
		return &FileWriteError{Path: path, Err: err}
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return &FileWriteError{Path: path, Err: err}
	}
	if err := os.Rename(tmpName, path); err != nil {
		return &FileWriteError{Path: path, Err: err}
	}
	committed = true
	return nil
}
