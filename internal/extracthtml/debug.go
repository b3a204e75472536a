package extracthtml

import (
	"fmt"
	"io"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// DebugPrintTables prints one line per table matched by selector: its index,
// row count and normalized header text, i.e. exactly what HeaderMatchPolicy
// sees. This is used by the command's "-list-tables" mode when a run fails
// with TableNotFoundError.
func DebugPrintTables(w io.Writer, src, selector string) error {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(src))
	if err != nil {
		return &ParseError{Err: err}
	}
	if strings.TrimSpace(selector) == "" {
		selector = DefaultTableSelector
	}

	doc.Find(selector).Each(func(i int, t *goquery.Selection) {
		fmt.Fprintf(w, "[%d] rows=%d headers=%q\n", i, t.Find("tr").Length(), HeaderText(t))
	})
	return nil
}
