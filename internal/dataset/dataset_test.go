package dataset

import (
	"bytes"
	"strings"
	"testing"
)

func newBanks(t *testing.T) *Dataset {
	t.Helper()
	ds, err := New([]string{"Name", "MC_USD_Billion"}, []Kind{Text, Float})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return ds
}

func TestNew_RejectsMismatchedLayout(t *testing.T) {
	t.Parallel()

	if _, err := New([]string{"a", "b"}, []Kind{Text}); err == nil {
		t.Fatalf("expected error for mismatched names/kinds")
	}
	if _, err := New([]string{"a", "a"}, []Kind{Text, Text}); err == nil {
		t.Fatalf("expected error for duplicate column")
	}
}

func TestAppendRow_ChecksKindsAndWidth(t *testing.T) {
	t.Parallel()

	ds := newBanks(t)
	if err := ds.AppendRow("BankX", 100.0); err != nil {
		t.Fatalf("AppendRow: %v", err)
	}
	if err := ds.AppendRow("BankY"); err == nil {
		t.Fatalf("expected width error")
	}
	if err := ds.AppendRow("BankY", "100"); err == nil {
		t.Fatalf("expected kind error")
	}
	if ds.Len() != 1 {
		t.Fatalf("failed appends must not change row count, got %d", ds.Len())
	}
}

func TestSetColumn_AppendsThenReplaces(t *testing.T) {
	t.Parallel()

	ds := newBanks(t)
	_ = ds.AppendRow("A", 1.0)
	_ = ds.AppendRow("B", 2.0)

	if err := ds.SetColumn("X", Float, []any{1.5}); err == nil {
		t.Fatalf("expected length mismatch error")
	}
	if err := ds.SetColumn("X", Float, []any{1.5, 2.5}); err != nil {
		t.Fatalf("SetColumn: %v", err)
	}
	if err := ds.SetColumn("X", Float, []any{3.5, 4.5}); err != nil {
		t.Fatalf("SetColumn replace: %v", err)
	}

	if got := ds.Columns(); strings.Join(got, ",") != "Name,MC_USD_Billion,X" {
		t.Fatalf("unexpected columns: %v", got)
	}
	if got := ds.Row(1); got[2] != 4.5 {
		t.Fatalf("expected replaced value 4.5, got %#v", got[2])
	}
}

func TestFormatFloat_MatchesPythonRepr(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   float64
		want string
	}{
		{100, "100.0"},
		{432.92, "432.92"},
		{0, "0.0"},
		{-1.5, "-1.5"},
		{8295, "8295.0"},
		{1e16, "1e+16"},
		{1.5e-5, "1.5e-05"},
	}
	for _, tc := range tests {
		if got := FormatFloat(tc.in); got != tc.want {
			t.Fatalf("FormatFloat(%v): want %q got %q", tc.in, tc.want, got)
		}
	}
}

func TestPrint_IncludesIndexAndHeader(t *testing.T) {
	t.Parallel()

	ds := newBanks(t)
	_ = ds.AppendRow("JPMorgan Chase", 432.92)
	_ = ds.AppendRow("Bank of America", 231.52)

	var buf bytes.Buffer
	if err := ds.Print(&buf); err != nil {
		t.Fatalf("Print: %v", err)
	}

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected header + 2 rows, got %d lines: %q", len(lines), buf.String())
	}
	if !strings.Contains(lines[0], "MC_USD_Billion") {
		t.Fatalf("header missing column: %q", lines[0])
	}
	if !strings.HasPrefix(strings.TrimSpace(lines[2]), "1") || !strings.Contains(lines[2], "231.52") {
		t.Fatalf("unexpected row line: %q", lines[2])
	}
}
