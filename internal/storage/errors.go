package storage

import "fmt"

// StoreWriteError reports a failed replace or append. Op is "replace" or
// "append".
type StoreWriteError struct {
	Op    string
	Table string
	Err   error
}

func (e *StoreWriteError) Error() string {
	return fmt.Sprintf("store %s %s: %v", e.Op, e.Table, e.Err)
}

func (e *StoreWriteError) Unwrap() error { return e.Err }

// StoreQueryError reports a query that was rejected or failed in the store.
type StoreQueryError struct {
	Query string
	Err   error
}

func (e *StoreQueryError) Error() string {
	return fmt.Sprintf("store query %q: %v", e.Query, e.Err)
}

func (e *StoreQueryError) Unwrap() error { return e.Err }

// ErrNotReadOnly is wrapped by StoreQueryError when a query is not a SELECT
// or WITH statement.
var ErrNotReadOnly = fmt.Errorf("query is not read-only")
