package transformer

import (
	"fmt"
	"math"

	"banketl/internal/dataset"
)

// MissingReferenceKeyError reports a required key absent from the rates.
type MissingReferenceKeyError struct {
	Key string
}

func (e *MissingReferenceKeyError) Error() string {
	return fmt.Sprintf("reference key %q not found", e.Key)
}

// DerivedColumnConflictError reports a derived column name that would
// overwrite the source column or another column that Enrich did not write.
type DerivedColumnConflictError struct {
	Key    string
	Column string
}

func (e *DerivedColumnConflictError) Error() string {
	return fmt.Sprintf("derived column %q for key %q collides with an existing column", e.Column, e.Key)
}

// Enricher appends one scaled copy of SourceColumn per rate key.
//
// The derived column for key K is named Metric_K_Unit, e.g. MC_GBP_Billion
// for Metric "MC", Unit "Billion". Keys fixes the derived column order; when
// empty, the rates' own order is used.
type Enricher struct {
	SourceColumn string
	Metric       string
	Unit         string
	Keys         []string

	// Precision is the number of decimals kept (round half to even).
	Precision int
}

// ColumnName returns the derived column name for key.
func (e *Enricher) ColumnName(key string) string {
	return e.Metric + "_" + key + "_" + e.Unit
}

// Enrich appends the derived columns to ds and returns it.
//
// Every key is resolved before any column is written, so a
// *MissingReferenceKeyError or *DerivedColumnConflictError leaves ds
// unchanged. Running Enrich again with the same inputs rewrites the same
// columns with the same values.
//
// An existing column may only be rewritten when it sits after the source
// column, i.e. where an earlier Enrich appended it.
func (e *Enricher) Enrich(ds *dataset.Dataset, rates *Rates) (*dataset.Dataset, error) {
	src := ds.Column(e.SourceColumn)
	if src == nil {
		return nil, fmt.Errorf("enrich: source column %q not found", e.SourceColumn)
	}
	if src.Kind != dataset.Float {
		return nil, fmt.Errorf("enrich: source column %q is %s, want float", e.SourceColumn, src.Kind)
	}

	keys := e.Keys
	if len(keys) == 0 {
		keys = rates.Keys()
	}

	multipliers := make([]float64, len(keys))
	for i, k := range keys {
		m, ok := rates.Rate(k)
		if !ok {
			return nil, &MissingReferenceKeyError{Key: k}
		}
		multipliers[i] = m
	}

	srcIx := ds.Index(e.SourceColumn)
	seen := make(map[string]bool, len(keys))
	for _, k := range keys {
		name := e.ColumnName(k)
		if name == e.SourceColumn || seen[name] {
			return nil, &DerivedColumnConflictError{Key: k, Column: name}
		}
		seen[name] = true
		if ix := ds.Index(name); ix >= 0 && (ix < srcIx || ds.Column(name).Kind != dataset.Float) {
			return nil, &DerivedColumnConflictError{Key: k, Column: name}
		}
	}

	base := append([]any(nil), src.Cells...)
	for i, k := range keys {
		cells := make([]any, len(base))
		for j, v := range base {
			cells[j] = Round(v.(float64)*multipliers[i], e.Precision)
		}
		if err := ds.SetColumn(e.ColumnName(k), dataset.Float, cells); err != nil {
			return nil, fmt.Errorf("enrich: %w", err)
		}
	}
	return ds, nil
}

// Round rounds v to places decimals, halves to even.
func Round(v float64, places int) float64 {
	p := math.Pow10(places)
	return math.RoundToEven(v*p) / p
}
