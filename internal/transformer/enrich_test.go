package transformer

import (
	"errors"
	"reflect"
	"testing"

	"banketl/internal/dataset"
)

func referenceRates(t *testing.T) *Rates {
	t.Helper()
	r, err := NewRates([]string{"EUR", "GBP", "INR"}, []float64{0.93, 0.8, 82.95})
	if err != nil {
		t.Fatalf("NewRates: %v", err)
	}
	return r
}

func banks(t *testing.T, rows map[string]float64, order ...string) *dataset.Dataset {
	t.Helper()
	ds, err := dataset.New([]string{"Name", "MC_USD_Billion"}, []dataset.Kind{dataset.Text, dataset.Float})
	if err != nil {
		t.Fatalf("dataset.New: %v", err)
	}
	for _, n := range order {
		if err := ds.AppendRow(n, rows[n]); err != nil {
			t.Fatalf("AppendRow: %v", err)
		}
	}
	return ds
}

func banksEnricher() *Enricher {
	return &Enricher{
		SourceColumn: "MC_USD_Billion",
		Metric:       "MC",
		Unit:         "Billion",
		Keys:         []string{"GBP", "EUR", "INR"},
		Precision:    2,
	}
}

func TestEnrich_ReferenceExample(t *testing.T) {
	t.Parallel()

	ds := banks(t, map[string]float64{"BankX": 100}, "BankX")
	out, err := banksEnricher().Enrich(ds, referenceRates(t))
	if err != nil {
		t.Fatalf("Enrich: %v", err)
	}
	if out != ds {
		t.Fatalf("Enrich must return the same dataset")
	}

	wantCols := []string{"Name", "MC_USD_Billion", "MC_GBP_Billion", "MC_EUR_Billion", "MC_INR_Billion"}
	if !reflect.DeepEqual(out.Columns(), wantCols) {
		t.Fatalf("columns: want %v got %v", wantCols, out.Columns())
	}
	want := []any{"BankX", 100.0, 80.0, 93.0, 8295.0}
	if got := out.Row(0); !reflect.DeepEqual(got, want) {
		t.Fatalf("row: want %v got %v", want, got)
	}
}

func TestEnrich_RoundsToTwoPlaces(t *testing.T) {
	t.Parallel()

	ds := banks(t, map[string]float64{"JPMorgan Chase": 432.92}, "JPMorgan Chase")
	if _, err := banksEnricher().Enrich(ds, referenceRates(t)); err != nil {
		t.Fatalf("Enrich: %v", err)
	}
	// 432.92 * 0.8 = 346.336, 432.92 * 0.93 = 402.6156, 432.92 * 82.95 = 35910.714
	want := []any{"JPMorgan Chase", 432.92, 346.34, 402.62, 35910.71}
	if got := ds.Row(0); !reflect.DeepEqual(got, want) {
		t.Fatalf("row: want %v got %v", want, got)
	}
}

func TestEnrich_Idempotent(t *testing.T) {
	t.Parallel()

	ds := banks(t, map[string]float64{"A": 1.5, "B": 2.25}, "A", "B")
	e := banksEnricher()
	rates := referenceRates(t)

	if _, err := e.Enrich(ds, rates); err != nil {
		t.Fatalf("Enrich: %v", err)
	}
	first := ds.Rows()
	if _, err := e.Enrich(ds, rates); err != nil {
		t.Fatalf("second Enrich: %v", err)
	}
	if !reflect.DeepEqual(first, ds.Rows()) || ds.Width() != 5 {
		t.Fatalf("second run changed output: %v vs %v", first, ds.Rows())
	}
}

func TestEnrich_MissingKeyLeavesDatasetUntouched(t *testing.T) {
	t.Parallel()

	rates, _ := NewRates([]string{"GBP", "EUR"}, []float64{0.8, 0.93})
	ds := banks(t, map[string]float64{"A": 1}, "A")

	_, err := banksEnricher().Enrich(ds, rates)
	var mk *MissingReferenceKeyError
	if !errors.As(err, &mk) || mk.Key != "INR" {
		t.Fatalf("expected MissingReferenceKeyError{INR}, got %v", err)
	}
	if ds.Width() != 2 {
		t.Fatalf("dataset was modified: %v", ds.Columns())
	}
}

func TestEnrich_DefaultsToRatesOrder(t *testing.T) {
	t.Parallel()

	e := banksEnricher()
	e.Keys = nil
	ds := banks(t, map[string]float64{"A": 1}, "A")
	if _, err := e.Enrich(ds, referenceRates(t)); err != nil {
		t.Fatalf("Enrich: %v", err)
	}
	want := []string{"Name", "MC_USD_Billion", "MC_EUR_Billion", "MC_GBP_Billion", "MC_INR_Billion"}
	if !reflect.DeepEqual(ds.Columns(), want) {
		t.Fatalf("columns: want %v got %v", want, ds.Columns())
	}
}

func TestEnrich_RejectsBadSourceColumn(t *testing.T) {
	t.Parallel()

	ds := banks(t, nil)
	e := banksEnricher()
	e.SourceColumn = "Name"
	if _, err := e.Enrich(ds, referenceRates(t)); err == nil {
		t.Fatalf("expected error for text source column")
	}
	e.SourceColumn = "missing"
	if _, err := e.Enrich(ds, referenceRates(t)); err == nil {
		t.Fatalf("expected error for missing source column")
	}
}

func TestNewRates_Validation(t *testing.T) {
	t.Parallel()

	if _, err := NewRates([]string{"A"}, nil); err == nil {
		t.Fatalf("expected length mismatch error")
	}
	if _, err := NewRates([]string{"A", " A "}, []float64{1, 2}); err == nil {
		t.Fatalf("expected duplicate key error")
	}
	r, err := NewRates([]string{" GBP "}, []float64{0.8})
	if err != nil {
		t.Fatalf("NewRates: %v", err)
	}
	if v, ok := r.Rate("GBP"); !ok || v != 0.8 {
		t.Fatalf("Rate(GBP)=%v,%v", v, ok)
	}
	keys := r.Keys()
	keys[0] = "mutated"
	if r.Keys()[0] != "GBP" {
		t.Fatalf("Keys must return a copy")
	}
}

func TestEnrich_RejectsKeyThatRenamesSourceColumn(t *testing.T) {
	t.Parallel()

	rates, _ := NewRates([]string{"USD", "GBP"}, []float64{1.2345, 0.8})
	ds := banks(t, map[string]float64{"BankX": 100.005}, "BankX")
	e := banksEnricher()
	e.Keys = nil

	_, err := e.Enrich(ds, rates)
	var ce *DerivedColumnConflictError
	if !errors.As(err, &ce) || ce.Key != "USD" || ce.Column != "MC_USD_Billion" {
		t.Fatalf("expected DerivedColumnConflictError{USD}, got %v", err)
	}
	if ds.Width() != 2 || ds.Row(0)[1] != 100.005 {
		t.Fatalf("source column was modified: cols=%v row=%v", ds.Columns(), ds.Row(0))
	}
}

func TestEnrich_RejectsDuplicateKeysAndForeignColumns(t *testing.T) {
	t.Parallel()

	e := banksEnricher()
	e.Keys = []string{"GBP", "GBP"}
	ds := banks(t, map[string]float64{"A": 1}, "A")
	var ce *DerivedColumnConflictError
	if _, err := e.Enrich(ds, referenceRates(t)); !errors.As(err, &ce) || ce.Key != "GBP" {
		t.Fatalf("duplicate key: expected DerivedColumnConflictError, got %v", err)
	}

	// A column named like a derived one, placed before the source, is not ours.
	other, _ := dataset.New(
		[]string{"Name", "MC_EUR_Billion", "MC_USD_Billion"},
		[]dataset.Kind{dataset.Text, dataset.Float, dataset.Float},
	)
	_ = other.AppendRow("A", 7.0, 10.0)
	if _, err := banksEnricher().Enrich(other, referenceRates(t)); !errors.As(err, &ce) || ce.Column != "MC_EUR_Billion" {
		t.Fatalf("foreign column: expected DerivedColumnConflictError, got %v", err)
	}
	if other.Width() != 3 || other.Row(0)[1] != 7.0 {
		t.Fatalf("dataset was modified: %v", other.Rows())
	}
}

func TestEnrich_ScalesFromUnmodifiedSource(t *testing.T) {
	t.Parallel()

	rates, _ := NewRates([]string{"GBP", "EUR"}, []float64{0.8, 0.93})
	ds := banks(t, map[string]float64{"A": 100}, "A")
	e := banksEnricher()
	e.Keys = nil
	if _, err := e.Enrich(ds, rates); err != nil {
		t.Fatalf("Enrich: %v", err)
	}
	want := []any{"A", 100.0, 80.0, 93.0}
	if got := ds.Row(0); !reflect.DeepEqual(got, want) {
		t.Fatalf("row: want %v got %v", want, got)
	}
}
