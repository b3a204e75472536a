package extracthtml

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"banketl/internal/dataset"
)

// MaxRecords is the number of accepted rows after which extraction stops.
// Downstream outputs were produced with exactly this many rows; it is not
// a tunable.
const MaxRecords = 10

// minCells is the minimum number of td cells for a row to be considered.
const minCells = 3

// DefaultTableSelector matches the data tables of the reference document.
const DefaultTableSelector = "table.wikitable"

// RowReject records a candidate row that was dropped because its numeric
// cell did not parse. Row is the 1-based position among the table's tr
// elements (the header row is 1).
type RowReject struct {
	Row    int
	Reason string
}

// Extractor locates the target table and turns its rows into a two-column
// dataset: a text name column and a float value column.
type Extractor struct {
	TableSelector string
	Header        HeaderMatchPolicy
	Cell          NumericCellCleanupPolicy

	// Columns names the output columns: name first, value second.
	Columns [2]string
}

// NewExtractor returns an Extractor with the reference selector and cell
// policy.
func NewExtractor(labels []string, nameColumn, valueColumn string) *Extractor {
	return &Extractor{
		TableSelector: DefaultTableSelector,
		Header:        HeaderMatchPolicy{Labels: labels},
		Cell:          DefaultCellPolicy,
		Columns:       [2]string{nameColumn, valueColumn},
	}
}

// Extract parses html, selects the first table whose header matches, and
// collects up to MaxRecords rows in document order.
//
// Rows with fewer than three td cells are skipped silently. Rows whose third
// cell fails the numeric policy are reported in the returned rejects and do
// not count toward MaxRecords.
//
// Errors: *ParseError when the markup cannot be read, *TableNotFoundError
// when no table matches.
func (e *Extractor) Extract(src string) (*dataset.Dataset, []RowReject, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(src))
	if err != nil {
		return nil, nil, &ParseError{Err: err}
	}

	table, err := e.locate(doc)
	if err != nil {
		return nil, nil, err
	}

	ds, err := dataset.New(e.Columns[:], []dataset.Kind{dataset.Text, dataset.Float})
	if err != nil {
		return nil, nil, err
	}

	var rejects []RowReject
	table.Find("tr").EachWithBreak(func(i int, tr *goquery.Selection) bool {
		if i == 0 {
			return true
		}
		cells := tr.Find("td")
		if cells.Length() < minCells {
			return true
		}

		name := strippedText(cells.Eq(1))
		v, err := e.Cell.Parse(firstContent(cells.Eq(2)))
		if err != nil {
			rejects = append(rejects, RowReject{Row: i + 1, Reason: err.Error()})
			return true
		}
		if err := ds.AppendRow(name, v); err != nil {
			rejects = append(rejects, RowReject{Row: i + 1, Reason: err.Error()})
			return true
		}
		return ds.Len() < MaxRecords
	})

	return ds, rejects, nil
}

func (e *Extractor) locate(doc *goquery.Document) (*goquery.Selection, error) {
	sel := e.TableSelector
	if strings.TrimSpace(sel) == "" {
		sel = DefaultTableSelector
	}

	tables := doc.Find(sel)
	var found *goquery.Selection
	tables.EachWithBreak(func(_ int, t *goquery.Selection) bool {
		if e.Header.Matches(HeaderText(t)) {
			found = t
			return false
		}
		return true
	})
	if found == nil {
		return nil, &TableNotFoundError{Labels: e.Header.Labels, Candidates: tables.Length()}
	}
	return found, nil
}

// String describes the extractor for log lines.
func (e *Extractor) String() string {
	return fmt.Sprintf("selector=%q labels=%q strip=%d", e.TableSelector, e.Header.Labels, e.Cell.StripSuffix)
}
