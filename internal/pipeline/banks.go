package pipeline

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"banketl/internal/config"
	"banketl/internal/dataset"
	"banketl/internal/extracthtml"
	"banketl/internal/metrics"
	csvparse "banketl/internal/parser/csv"
	"banketl/internal/sink"
	"banketl/internal/storage"
	"banketl/internal/transformer"
)

// Progress milestones, in the order the primary pipeline writes them.
const (
	MsgPreliminaries    = "Preliminaries complete. Initiating ETL process"
	MsgExtracted        = "Data extraction complete. Initiating Transformation process"
	MsgTransformed      = "Data transformation complete. Initiating loading process"
	MsgSavedCSV         = "Data saved to CSV file"
	MsgConnected        = "SQL Connection initiated"
	MsgLoadedDB         = "Data loaded to Database as a table, Executing queries"
	MsgComplete         = "Process Complete"
	MsgConnectionClosed = "Server Connection closed"
)

// fifthLargestKey is the derived column whose fifth value is printed after
// transformation.
const fifthLargestKey = "EUR"

// BanksReport is the outcome of a successful primary run.
type BanksReport struct {
	Dataset *dataset.Dataset
	Results []*storage.ResultSet
	Rejects []extracthtml.RowReject
}

// RunBanks runs the primary pipeline:
//
//	extract -> transform -> write CSV -> open store -> replace table -> queries -> close
//
// Each milestone is written to env.Progress after its stage completes. The
// store is opened only after the CSV is on disk and is closed on every path
// once opened.
func RunBanks(ctx context.Context, cfg config.Banks, env Env) (*BanksReport, error) {
	out := env.out()
	logf := env.logf()
	rep := &BanksReport{}

	env.Progress.Log(MsgPreliminaries)

	var ds *dataset.Dataset
	if err := env.runStage(StageExtract, func() error {
		var err error
		ds, rep.Rejects, err = extract(ctx, cfg, env)
		return err
	}); err != nil {
		return nil, err
	}
	for _, r := range rep.Rejects {
		logf("stage=%s reject row=%d reason=%s", StageExtract, r.Row, r.Reason)
	}
	metrics.RecordCount("extracted", ds.Len())
	metrics.RecordCount("rejected", len(rep.Rejects))
	env.Progress.Log(MsgExtracted)
	if err := ds.Print(out); err != nil {
		return nil, &StageError{Stage: StageExtract, Err: fmt.Errorf("print dataset: %w", err)}
	}

	enricher := newEnricher(cfg.Enrich)
	if err := env.runStage(StageTransform, func() error {
		rates, err := csvparse.ReadRates(cfg.Rates.Path, cfg.Rates.KeyColumn, cfg.Rates.RateColumn)
		if err != nil {
			return err
		}
		_, err = enricher.Enrich(ds, rates)
		return err
	}); err != nil {
		return nil, err
	}
	metrics.RecordCount("enriched", ds.Len())
	env.Progress.Log(MsgTransformed)
	if err := ds.Print(out); err != nil {
		return nil, &StageError{Stage: StageTransform, Err: fmt.Errorf("print dataset: %w", err)}
	}
	printFifthLargest(out, ds, enricher.ColumnName(fifthLargestKey))
	rep.Dataset = ds

	if err := env.runStage(StageLoadCSV, func() error {
		return sink.WriteCSV(ds, cfg.OutputCSV)
	}); err != nil {
		return nil, err
	}
	env.Progress.Log(MsgSavedCSV)

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
	env.Progress.Log(MsgConnected)

	if err := env.runStage(StageLoadDB, func() error {
		return store.ReplaceTable(ctx, cfg.Table, ds)
	}); err != nil {
		return nil, err
	}
	metrics.RecordCount("loaded", ds.Len())
	env.Progress.Log(MsgLoadedDB)

	if err := env.runStage(StageQuery, func() error {
		for _, q := range cfg.Queries {
			rs, err := RunQuery(ctx, store, q, out)
			if err != nil {
				return err
			}
			rep.Results = append(rep.Results, rs)
		}
		return nil
	}); err != nil {
		return nil, err
	}
	env.Progress.Log(MsgComplete)

	closed = true
	if err := env.runStage(StageClose, func() error { return env.closeStore(store) }); err != nil {
		return nil, err
	}
	return rep, nil
}

func extract(ctx context.Context, cfg config.Banks, env Env) (*dataset.Dataset, []extracthtml.RowReject, error) {
	src, err := loadSource(ctx, cfg.Source, env)
	if err != nil {
		return nil, nil, err
	}
	return newExtractor(cfg.Extract).Extract(src)
}

// LoadSource returns the raw page the extract stage would parse.
func LoadSource(ctx context.Context, s config.Source, env Env) (string, error) {
	return loadSource(ctx, s, env)
}

func loadSource(ctx context.Context, s config.Source, env Env) (string, error) {
	timeout := time.Duration(s.TimeoutSeconds) * time.Second
	loader := extracthtml.NewLoader(env.HTTPClient, timeout)

	var in extracthtml.Input
	switch p := strings.TrimSpace(s.Path); {
	case p == "-":
		in.Stdin = env.Stdin
		if in.Stdin == nil {
			in.Stdin = os.Stdin
		}
	case p != "":
		in.Path = p
	default:
		in.URL = s.URL
	}
	return loader.Load(ctx, in)
}

func newExtractor(c config.Extract) *extracthtml.Extractor {
	e := extracthtml.NewExtractor(c.HeaderLabels, c.NameColumn, c.ValueColumn)
	if sel := strings.TrimSpace(c.TableSelector); sel != "" {
		e.TableSelector = sel
	}
	e.Cell = extracthtml.NumericCellCleanupPolicy{StripSuffix: c.StripSuffix}
	return e
}

func newEnricher(c config.Enrich) *transformer.Enricher {
	return &transformer.Enricher{
		SourceColumn: c.SourceColumn,
		Metric:       c.Metric,
		Unit:         c.Unit,
		Keys:         c.Keys,
		Precision:    c.Precision,
	}
}

func printFifthLargest(w io.Writer, ds *dataset.Dataset, column string) {
	col := ds.Column(column)
	if col == nil || len(col.Cells) < 5 {
		return
	}
	fmt.Fprintln(w, " \n Market capitalization of 5th largest bank in EUR Billion:")
	fmt.Fprintln(w, dataset.FormatCell(col.Cells[4]))
}
