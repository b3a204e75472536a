package storage

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"banketl/internal/dataset"
)

// Config selects and addresses a relational store.
//
// Edge cases:
//   - Kind must match a registered backend kind.
//   - DSN is passed through to the backend factory; validation is backend-specific.
type Config struct {
	Kind string
	DSN  string
}

// Store is the relational collaborator used by the pipelines.
//
// A Store is opened once per pipeline run, used by one goroutine, and closed
// after the last query. Backends implement replace and append semantics in
// their own idiomatic way (transactional DDL, staging-table swap, COPY).
type Store interface {
	// ReplaceTable drops table name, if present, and recreates it from ds.
	// On failure the previous table is left intact.
	ReplaceTable(ctx context.Context, name string, ds *dataset.Dataset) error

	// AppendRows inserts every row of ds into an existing table. The column
	// set of ds must match the table. Returns the number of rows inserted.
	AppendRows(ctx context.Context, name string, ds *dataset.Dataset) (int64, error)

	// Query runs a read-only statement and materializes its result.
	Query(ctx context.Context, query string) (*ResultSet, error)

	// Close releases backend resources. Call once.
	Close() error
}

// Factory opens a Store for cfg.
type Factory func(ctx context.Context, cfg Config) (Store, error)

var (
	mu        sync.RWMutex
	factories = map[string]Factory{}
)

// Register registers a backend under a kind (e.g. "postgres", "sqlite").
//
// Call Register from an init() function in a backend package.
//
// Panics:
//   - If kind is empty.
//   - If f is nil.
//   - If kind is already registered.
func Register(kind string, f Factory) {
	mu.Lock()
	defer mu.Unlock()

	if kind == "" {
		panic("storage: Register called with empty kind")
	}
	if f == nil {
		panic("storage: Register called with nil factory")
	}
	if _, exists := factories[kind]; exists {
		panic(fmt.Sprintf("storage: factory already registered for kind=%q", kind))
	}

	factories[kind] = f
}

// Kinds returns the registered backend kinds, sorted.
func Kinds() []string {
	mu.RLock()
	defer mu.RUnlock()

	out := make([]string, 0, len(factories))
	for k := range factories {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Open constructs a Store using the registered backend factory.
//
// Errors:
//   - Returns an error if cfg.Kind is empty or unsupported.
//   - Returns whatever error the registered factory returns.
func Open(ctx context.Context, cfg Config) (Store, error) {
	kind := strings.TrimSpace(cfg.Kind)
	if kind == "" {
		return nil, fmt.Errorf("storage: missing store kind")
	}

	mu.RLock()
	f := factories[kind]
	mu.RUnlock()

	if f == nil {
		return nil, fmt.Errorf("unsupported storage.kind=%s (registered: %s)", kind, strings.Join(Kinds(), ", "))
	}
	return f(ctx, cfg)
}

// IsReadQuery reports whether q starts with SELECT or WITH, ignoring case,
// leading whitespace, and leading "--" line comments.
func IsReadQuery(q string) bool {
	q = strings.TrimSpace(q)
	for strings.HasPrefix(q, "--") {
		nl := strings.IndexByte(q, '\n')
		if nl < 0 {
			return false
		}
		q = strings.TrimSpace(q[nl+1:])
	}
	head := strings.ToUpper(q)
	return strings.HasPrefix(head, "SELECT") || strings.HasPrefix(head, "WITH")
}
