package config

import (
	"fmt"
	"strings"
)

// Severity classifies a validation Issue.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// Issue is one validation finding. Path is the dotted config key.
type Issue struct {
	Severity Severity
	Path     string
	Message  string
}

// HasErrors reports whether any issue has SeverityError.
func HasErrors(issues []Issue) bool {
	for _, iss := range issues {
		if iss.Severity == SeverityError {
			return true
		}
	}
	return false
}

type issues []Issue

func (is *issues) errorf(path, format string, a ...any) {
	*is = append(*is, Issue{Severity: SeverityError, Path: path, Message: fmt.Sprintf(format, a...)})
}

func (is *issues) warnf(path, format string, a ...any) {
	*is = append(*is, Issue{Severity: SeverityWarning, Path: path, Message: fmt.Sprintf(format, a...)})
}

func blank(s string) bool { return strings.TrimSpace(s) == "" }

func (is *issues) store(s Store) {
	switch s.ResolvedKind() {
	case "sqlite":
		if blank(s.DSN) && blank(s.Name) {
			is.errorf("store", "sqlite needs dsn or name")
		}
	case "postgres", "mssql", "mysql":
		if blank(s.DSN) {
			is.errorf("store.dsn", "required for kind %q", s.Kind)
		}
	default:
		is.errorf("store.kind", "unsupported kind %q (want sqlite|postgres|mssql|mysql)", s.Kind)
	}
}

func (is *issues) queries(qs []string) {
	if len(qs) == 0 {
		is.warnf("queries", "no queries configured")
	}
	for i, q := range qs {
		head := strings.ToUpper(strings.TrimSpace(q))
		if !strings.HasPrefix(head, "SELECT") && !strings.HasPrefix(head, "WITH") {
			is.errorf(fmt.Sprintf("queries[%d]", i), "must be a SELECT or WITH statement")
		}
	}
}

// ValidateBanks checks a primary pipeline configuration.
func ValidateBanks(c Banks) []Issue {
	var is issues

	if blank(c.Source.URL) && blank(c.Source.Path) {
		is.errorf("source", "one of url or path is required")
	}
	if c.Source.TimeoutSeconds < 0 {
		is.errorf("source.timeout_seconds", "must be >= 0")
	}
	if len(c.Extract.HeaderLabels) == 0 {
		is.warnf("extract.header_labels", "empty: the first candidate table always matches")
	}
	if blank(c.Extract.NameColumn) || blank(c.Extract.ValueColumn) {
		is.errorf("extract", "name_column and value_column are required")
	}
	if c.Extract.NameColumn == c.Extract.ValueColumn && !blank(c.Extract.NameColumn) {
		is.errorf("extract.value_column", "must differ from name_column")
	}
	if c.Extract.StripSuffix < 0 {
		is.errorf("extract.strip_suffix", "must be >= 0")
	}
	if blank(c.Rates.Path) {
		is.errorf("rates.path", "required")
	}
	if blank(c.Rates.KeyColumn) || blank(c.Rates.RateColumn) {
		is.errorf("rates", "key_column and rate_column are required")
	}
	if c.Enrich.SourceColumn != c.Extract.ValueColumn {
		is.errorf("enrich.source_column", "must name the extracted value column %q", c.Extract.ValueColumn)
	}
	if blank(c.Enrich.Metric) || blank(c.Enrich.Unit) {
		is.errorf("enrich", "metric and unit are required")
	}
	if c.Enrich.Precision < 0 {
		is.errorf("enrich.precision", "must be >= 0")
	}
	seen := map[string]bool{}
	for i, k := range c.Enrich.Keys {
		k = strings.TrimSpace(k)
		if k == "" {
			is.errorf(fmt.Sprintf("enrich.keys[%d]", i), "empty key")
		}
		if seen[k] {
			is.errorf(fmt.Sprintf("enrich.keys[%d]", i), "duplicate key %q", k)
		}
		if c.Enrich.Metric+"_"+k+"_"+c.Enrich.Unit == c.Enrich.SourceColumn {
			is.errorf(fmt.Sprintf("enrich.keys[%d]", i), "key %q would overwrite the source column", k)
		}
		seen[k] = true
	}
	if blank(c.OutputCSV) {
		is.errorf("output_csv", "required")
	}
	is.store(c.Store)
	if blank(c.Table) {
		is.errorf("table", "required")
	}
	is.queries(c.Queries)
	if blank(c.LogPath) {
		is.warnf("log_path", "empty: progress log disabled")
	}
	return is
}

// ValidateInstructor checks a secondary loader configuration.
func ValidateInstructor(c Instructor) []Issue {
	var is issues

	if blank(c.InputCSV) {
		is.errorf("input_csv", "required")
	}
	is.store(c.Store)
	if blank(c.Table) {
		is.errorf("table", "required")
	}
	is.queries(c.Queries)
	if blank(c.CountQuery) {
		is.errorf("count_query", "required to verify the append")
	} else if h := strings.ToUpper(strings.TrimSpace(c.CountQuery)); !strings.HasPrefix(h, "SELECT") {
		is.errorf("count_query", "must be a SELECT statement")
	}
	if blank(c.Append.FName) && blank(c.Append.LName) {
		is.warnf("append", "record has no name")
	}
	return is
}
