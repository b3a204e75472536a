// Package pipeline sequences the ETL stages: the primary banks pipeline,
// the query runner, and the secondary instructor loader.
//
// Stages run strictly in order. Each stage's output is fully materialized
// before the next one starts, and the first failure aborts the run.
package pipeline

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"banketl/internal/metrics"
	"banketl/internal/progress"
	"banketl/internal/storage"
)

// Logger is the minimal logging interface used by the pipelines.
// *log.Logger satisfies this interface.
type Logger interface {
	Printf(format string, v ...any)
}

// Stage names used in StageError, log lines and metrics.
const (
	StageExtract   = "extract"
	StageTransform = "transform"
	StageLoadCSV   = "load_csv"
	StageConnect   = "connect"
	StageLoadDB    = "load_db"
	StageQuery     = "query"
	StageRead      = "read"
	StageAppend    = "append"
	StageClose     = "close"
)

// StageError wraps the failure of one pipeline stage. The original error is
// available through errors.As / errors.Is.
type StageError struct {
	Stage string
	Err   error
}

func (e *StageError) Error() string { return e.Stage + ": " + e.Err.Error() }

func (e *StageError) Unwrap() error { return e.Err }

// OpenFunc opens a relational store.
type OpenFunc func(ctx context.Context, cfg storage.Config) (storage.Store, error)

// Env carries the collaborators of a run. Zero values are usable: output is
// discarded, the progress log is disabled, and stores come from the
// storage registry.
type Env struct {
	// Out receives printed datasets and query results.
	Out io.Writer
	// Logger receives operational stage lines.
	Logger Logger
	// Progress is the milestone log. Nil disables it.
	Progress *progress.Log

	HTTPClient *http.Client
	Stdin      io.Reader

	// OpenStore overrides storage.Open.
	OpenStore OpenFunc
}

func (e Env) out() io.Writer {
	if e.Out == nil {
		return io.Discard
	}
	return e.Out
}

func (e Env) logf() func(format string, v ...any) {
	if e.Logger == nil {
		return log.New(io.Discard, "", 0).Printf
	}
	return e.Logger.Printf
}

func (e Env) open(ctx context.Context, cfg storage.Config) (storage.Store, error) {
	if e.OpenStore != nil {
		return e.OpenStore(ctx, cfg)
	}
	return storage.Open(ctx, cfg)
}

func durMS(start time.Time) time.Duration { return time.Since(start).Truncate(time.Millisecond) }

// runStage runs fn as stage name, records its metrics, and wraps a failure
// in *StageError.
func (e Env) runStage(name string, fn func() error) error {
	logf := e.logf()
	start := time.Now()
	err := fn()
	metrics.RecordStep(name, start, err)
	if err != nil {
		logf("stage=%s status=error duration=%s err=%v", name, durMS(start), err)
		return &StageError{Stage: name, Err: err}
	}
	logf("stage=%s ok duration=%s", name, durMS(start))
	return nil
}

// closeStore closes s and logs the closed milestone.
func (e Env) closeStore(s storage.Store) error {
	if err := s.Close(); err != nil {
		return fmt.Errorf("close store: %w", err)
	}
	e.Progress.Log(MsgConnectionClosed)
	return nil
}

// RunQuery prints query, runs it against s, and prints the result as an
// indexed table. Only SELECT/WITH statements are accepted; anything else,
// and any store fault, is a *storage.StoreQueryError.
func RunQuery(ctx context.Context, s storage.Store, query string, w io.Writer) (*storage.ResultSet, error) {
	if w == nil {
		w = io.Discard
	}
	fmt.Fprintln(w, query)
	if !storage.IsReadQuery(query) {
		return nil, &storage.StoreQueryError{Query: query, Err: storage.ErrNotReadOnly}
	}
	rs, err := s.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	if err := rs.Format(w); err != nil {
		return nil, fmt.Errorf("print result: %w", err)
	}
	return rs, nil
}
