package postgres

import (
	"math/big"
	"testing"

	"github.com/jackc/pgx/v5/pgtype"

	"banketl/internal/dataset"
)

func TestBuildCreateSQL_FoldsIdentifiers(t *testing.T) {
	t.Parallel()

	ds, err := dataset.New(
		[]string{"Name", "MC_USD_Billion", "Rank"},
		[]dataset.Kind{dataset.Text, dataset.Float, dataset.Int},
	)
	if err != nil {
		t.Fatalf("dataset.New: %v", err)
	}
	got, err := buildCreateSQL("Largest_banks", ds)
	if err != nil {
		t.Fatalf("buildCreateSQL: %v", err)
	}
	want := `CREATE TABLE "largest_banks" ("name" TEXT, "mc_usd_billion" DOUBLE PRECISION, "rank" BIGINT)`
	if got != want {
		t.Fatalf("want=%s\ngot =%s", want, got)
	}

	if _, err := buildCreateSQL("", ds); err == nil {
		t.Fatalf("expected error for empty name")
	}
}

func TestTableIdent_Schema(t *testing.T) {
	t.Parallel()

	if got := tableIdent("etl.Largest_banks").Sanitize(); got != `"etl"."largest_banks"` {
		t.Fatalf("tableIdent: %s", got)
	}
	if got := tableIdent("INSTRUCTOR").Sanitize(); got != `"instructor"` {
		t.Fatalf("tableIdent: %s", got)
	}
}

func TestNormalize_Numeric(t *testing.T) {
	t.Parallel()

	n := pgtype.Numeric{Int: big.NewInt(4267), Exp: -2, Valid: true}
	if got := normalize(n); got != 42.67 {
		t.Fatalf("normalize numeric: %v", got)
	}
	if got := normalize(pgtype.Numeric{}); got != nil {
		t.Fatalf("null numeric: %v", got)
	}
	if got := normalize([]byte("x")); got != "x" {
		t.Fatalf("bytes: %v", got)
	}
}
