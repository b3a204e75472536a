// Package config holds the pipeline configurations, their reference
// defaults, loading from JSON or YAML, and validation.
package config

import (
	"os"
	"strings"
)

// Source addresses the markup document. Exactly one of URL or Path is used;
// Path wins when both are set. Path "-" reads stdin.
type Source struct {
	URL            string `json:"url,omitempty" yaml:"url,omitempty"`
	Path           string `json:"path,omitempty" yaml:"path,omitempty"`
	TimeoutSeconds int    `json:"timeout_seconds,omitempty" yaml:"timeout_seconds,omitempty"`
}

// Extract configures table location and cell parsing.
type Extract struct {
	TableSelector string   `json:"table_selector" yaml:"table_selector"`
	HeaderLabels  []string `json:"header_labels" yaml:"header_labels"`
	NameColumn    string   `json:"name_column" yaml:"name_column"`
	ValueColumn   string   `json:"value_column" yaml:"value_column"`
	StripSuffix   int      `json:"strip_suffix" yaml:"strip_suffix"`
}

// Rates points at the reference rates file.
type Rates struct {
	Path       string `json:"path" yaml:"path"`
	KeyColumn  string `json:"key_column" yaml:"key_column"`
	RateColumn string `json:"rate_column" yaml:"rate_column"`
}

// Enrich configures the derived columns.
type Enrich struct {
	SourceColumn string   `json:"source_column" yaml:"source_column"`
	Metric       string   `json:"metric" yaml:"metric"`
	Unit         string   `json:"unit" yaml:"unit"`
	Keys         []string `json:"keys,omitempty" yaml:"keys,omitempty"`
	Precision    int      `json:"precision" yaml:"precision"`
}

// Store selects the relational backend. Name is the file-backed store
// name; an empty sqlite DSN falls back to it.
type Store struct {
	Kind string `json:"kind" yaml:"kind"`
	DSN  string `json:"dsn,omitempty" yaml:"dsn,omitempty"`
	Name string `json:"name,omitempty" yaml:"name,omitempty"`
}

// ResolvedDSN expands environment references in DSN and applies the
// sqlite store-name fallback.
func (s Store) ResolvedDSN() string {
	dsn := os.ExpandEnv(strings.TrimSpace(s.DSN))
	if dsn == "" && s.kind() == "sqlite" {
		return s.Name
	}
	return dsn
}

// ResolvedKind returns Kind, defaulting to sqlite.
func (s Store) ResolvedKind() string { return s.kind() }

func (s Store) kind() string {
	if k := strings.TrimSpace(s.Kind); k != "" {
		return k
	}
	return "sqlite"
}

// Banks configures the primary pipeline.
type Banks struct {
	Job       string   `json:"job" yaml:"job"`
	Source    Source   `json:"source" yaml:"source"`
	Extract   Extract  `json:"extract" yaml:"extract"`
	Rates     Rates    `json:"rates" yaml:"rates"`
	Enrich    Enrich   `json:"enrich" yaml:"enrich"`
	OutputCSV string   `json:"output_csv" yaml:"output_csv"`
	Store     Store    `json:"store" yaml:"store"`
	Table     string   `json:"table" yaml:"table"`
	Queries   []string `json:"queries" yaml:"queries"`
	LogPath   string   `json:"log_path" yaml:"log_path"`
}

// Record is the literal row the secondary loader appends.
type Record struct {
	ID    int64  `json:"id" yaml:"id"`
	FName string `json:"fname" yaml:"fname"`
	LName string `json:"lname" yaml:"lname"`
	City  string `json:"city" yaml:"city"`
	CCode string `json:"ccode" yaml:"ccode"`
}

// Instructor configures the secondary loader.
type Instructor struct {
	Job        string   `json:"job" yaml:"job"`
	InputCSV   string   `json:"input_csv" yaml:"input_csv"`
	Store      Store    `json:"store" yaml:"store"`
	Table      string   `json:"table" yaml:"table"`
	Queries    []string `json:"queries" yaml:"queries"`
	CountQuery string   `json:"count_query" yaml:"count_query"`
	Append     Record   `json:"append" yaml:"append"`
	LogPath    string   `json:"log_path,omitempty" yaml:"log_path,omitempty"`
}

// ReferenceURL is the archived page the primary pipeline was built against.
const ReferenceURL = "https://web.archive.org/web/20230908091635/https://en.wikipedia.org/wiki/List_of_largest_banks"

// DefaultBanks returns the reference configuration of the primary pipeline.
func DefaultBanks() Banks {
	return Banks{
		Job:    "banks_etl",
		Source: Source{URL: ReferenceURL, TimeoutSeconds: 30},
		Extract: Extract{
			TableSelector: "table.wikitable",
			HeaderLabels:  []string{"bank name", "market cap"},
			NameColumn:    "Name",
			ValueColumn:   "MC_USD_Billion",
			StripSuffix:   1,
		},
		Rates: Rates{Path: "exchange_rate.csv", KeyColumn: "Currency", RateColumn: "Rate"},
		Enrich: Enrich{
			SourceColumn: "MC_USD_Billion",
			Metric:       "MC",
			Unit:         "Billion",
			Keys:         []string{"GBP", "EUR", "INR"},
			Precision:    2,
		},
		OutputCSV: "./Largest_banks_data.csv",
		Store:     Store{Kind: "sqlite", Name: "Banks.db"},
		Table:     "Largest_banks",
		Queries: []string{
			"SELECT * FROM Largest_banks",
			"SELECT AVG(MC_GBP_Billion) FROM Largest_banks",
			"SELECT Name FROM Largest_banks LIMIT 5",
		},
		LogPath: "code_log.txt",
	}
}

// DefaultInstructor returns the reference configuration of the secondary
// loader.
func DefaultInstructor() Instructor {
	return Instructor{
		Job:      "instructor_load",
		InputCSV: "INSTRUCTOR.csv",
		Store:    Store{Kind: "sqlite", Name: "STAFF.db"},
		Table:    "INSTRUCTOR",
		Queries: []string{
			"SELECT * FROM INSTRUCTOR",
			"SELECT FNAME FROM INSTRUCTOR",
			"SELECT COUNT(*) FROM INSTRUCTOR",
		},
		CountQuery: "SELECT COUNT(*) FROM INSTRUCTOR",
		Append:     Record{ID: 100, FName: "John", LName: "Doe", City: "Paris", CCode: "FR"},
	}
}
