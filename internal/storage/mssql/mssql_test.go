package mssql

import (
	"testing"

	"banketl/internal/dataset"
	"banketl/internal/storage/sqlstore"
)

func TestBuildSQL_BracketsAndNumberedParams(t *testing.T) {
	t.Parallel()

	ds, err := dataset.New(
		[]string{"ID", "FNAME", "LNAME", "CITY", "CCODE"},
		[]dataset.Kind{dataset.Int, dataset.Text, dataset.Text, dataset.Text, dataset.Text},
	)
	if err != nil {
		t.Fatalf("dataset.New: %v", err)
	}
	_ = ds.AppendRow(int64(100), "John", "Doe", "Paris", "FR")

	create, err := sqlstore.BuildCreateSQL(Dialect, "dbo.INSTRUCTOR", ds)
	if err != nil {
		t.Fatalf("BuildCreateSQL: %v", err)
	}
	wantCreate := "CREATE TABLE [dbo].[INSTRUCTOR] ([ID] BIGINT, [FNAME] NVARCHAR(MAX), [LNAME] NVARCHAR(MAX), [CITY] NVARCHAR(MAX), [CCODE] NVARCHAR(MAX))"
	if create != wantCreate {
		t.Fatalf("create:\nwant=%s\ngot =%s", wantCreate, create)
	}

	insert, args := sqlstore.BuildInsertSQL(Dialect, "INSTRUCTOR", ds.Columns(), ds.Rows())
	wantInsert := "INSERT INTO [INSTRUCTOR] ([ID], [FNAME], [LNAME], [CITY], [CCODE]) VALUES (@p1, @p2, @p3, @p4, @p5)"
	if insert != wantInsert {
		t.Fatalf("insert:\nwant=%s\ngot =%s", wantInsert, insert)
	}
	if len(args) != 5 || args[0] != int64(100) {
		t.Fatalf("args: %v", args)
	}
}

func TestIdentEscaping(t *testing.T) {
	t.Parallel()

	if got := mssqlIdent("a]b"); got != "[a]]b]" {
		t.Fatalf("mssqlIdent: %s", got)
	}
	if got := columnType(dataset.Float); got != "FLOAT" {
		t.Fatalf("columnType: %s", got)
	}
}
