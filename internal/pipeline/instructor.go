package pipeline

import (
	"context"
	"fmt"

	"banketl/internal/config"
	"banketl/internal/dataset"
	"banketl/internal/metrics"
	csvparse "banketl/internal/parser/csv"
	"banketl/internal/storage"
)

// InstructorColumns is the fixed column order of the headerless input file.
var InstructorColumns = []string{"ID", "FNAME", "LNAME", "CITY", "CCODE"}

var instructorKinds = []dataset.Kind{dataset.Int, dataset.Text, dataset.Text, dataset.Text, dataset.Text}

// InstructorReport is the outcome of a successful secondary run.
type InstructorReport struct {
	Results     []*storage.ResultSet
	CountBefore int64
	CountAfter  int64
}

// LoadAndQuery runs the secondary loader: read the headerless input file,
// replace the table, run the configured queries, append the literal record
// and verify that the row count grew by exactly one.
//
// The input is read before the store is opened, so a bad file never holds
// a connection. The store is closed before returning.
func LoadAndQuery(ctx context.Context, cfg config.Instructor, env Env) (*InstructorReport, error) {
	out := env.out()
	logf := env.logf()
	rep := &InstructorReport{}

	var ds *dataset.Dataset
	if err := env.runStage(StageRead, func() error {
		var err error
		ds, err = csvparse.ReadDataset(cfg.InputCSV, InstructorColumns, instructorKinds, csvparse.Options{})
		return err
	}); err != nil {
		return nil, err
	}
	metrics.RecordCount("extracted", ds.Len())

	var store storage.Store
	if err := env.runStage(StageConnect, func() error {
		var err error
		store, err = env.open(ctx, storage.Config{Kind: cfg.Store.ResolvedKind(), DSN: cfg.Store.ResolvedDSN()})
		return err
	}); err != nil {
		return nil, err
	}
	closed := false
	defer func() {
		if closed {
			return
		}
		if cerr := env.closeStore(store); cerr != nil {
			logf("stage=%s status=error err=%v", StageClose, cerr)
		}
	}()

	if err := env.runStage(StageLoadDB, func() error {
		return store.ReplaceTable(ctx, cfg.Table, ds)
	}); err != nil {
		return nil, err
	}
	metrics.RecordCount("loaded", ds.Len())
	fmt.Fprintln(out, "Table is ready")

	if err := env.runStage(StageQuery, func() error {
		for _, q := range cfg.Queries {
			rs, err := RunQuery(ctx, store, q, out)
			if err != nil {
				return err
			}
			rep.Results = append(rep.Results, rs)
		}
		var err error
		rep.CountBefore, err = count(ctx, store, cfg.CountQuery)
		return err
	}); err != nil {
		return nil, err
	}

	if err := env.runStage(StageAppend, func() error {
		rec, err := recordDataset(cfg.Append)
		if err != nil {
			return err
		}
		if _, err := store.AppendRows(ctx, cfg.Table, rec); err != nil {
			return err
		}
		rep.CountAfter, err = count(ctx, store, cfg.CountQuery)
		if err != nil {
			return err
		}
		if rep.CountAfter != rep.CountBefore+1 {
			return &storage.StoreWriteError{
				Op:    "append",
				Table: cfg.Table,
				Err:   fmt.Errorf("row count %d after append, want %d", rep.CountAfter, rep.CountBefore+1),
			}
		}
		return nil
	}); err != nil {
		return nil, err
	}
	metrics.RecordCount("appended", 1)
	fmt.Fprintln(out, "Data appended successfully")

	closed = true
	if err := env.runStage(StageClose, func() error { return env.closeStore(store) }); err != nil {
		return nil, err
	}
	return rep, nil
}

func recordDataset(r config.Record) (*dataset.Dataset, error) {
	ds, err := dataset.New(InstructorColumns, instructorKinds)
	if err != nil {
		return nil, err
	}
	if err := ds.AppendRow(r.ID, r.FName, r.LName, r.City, r.CCode); err != nil {
		return nil, err
	}
	return ds, nil
}

// count runs a single-value aggregate query.
func count(ctx context.Context, s storage.Store, query string) (int64, error) {
	rs, err := s.Query(ctx, query)
	if err != nil {
		return 0, err
	}
	n, err := rs.Int64(0, 0)
	if err != nil {
		return 0, &storage.StoreQueryError{Query: query, Err: err}
	}
	return n, nil
}
