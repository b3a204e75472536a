package extracthtml

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// HeaderMatchPolicy selects a table by its header text.
//
// A table matches when every label occurs, case-insensitively, as a
// substring of the table's header text. Containment rather than equality
// keeps the match stable when headers carry footnote markers or extra words
// ("Market cap (US$ billion)[1]").
type HeaderMatchPolicy struct {
	Labels []string
}

// Matches reports whether headerText satisfies every label.
// headerText is expected to be lower-cased already (see HeaderText).
func (p HeaderMatchPolicy) Matches(headerText string) bool {
	h := strings.ToLower(headerText)
	for _, l := range p.Labels {
		if !strings.Contains(h, strings.ToLower(strings.TrimSpace(l))) {
			return false
		}
	}
	return true
}

// HeaderText joins the stripped, lower-cased text of every th in table with
// single spaces.
func HeaderText(table *goquery.Selection) string {
	var parts []string
	table.Find("th").Each(func(_ int, th *goquery.Selection) {
		parts = append(parts, strings.ToLower(strippedText(th)))
	})
	return strings.Join(parts, " ")
}

// NumericCellCleanupPolicy converts raw numeric cell content to a float.
//
// Exactly StripSuffix trailing characters are removed first (the source
// document ends numeric cells with a newline or unit marker), then the
// remainder is parsed. Surrounding whitespace left after stripping is
// tolerated; anything else that is not a float literal is an error.
type NumericCellCleanupPolicy struct {
	StripSuffix int
}

// DefaultCellPolicy strips one trailing character.
var DefaultCellPolicy = NumericCellCleanupPolicy{StripSuffix: 1}

// Parse applies the policy to raw.
func (p NumericCellCleanupPolicy) Parse(raw string) (float64, error) {
	r := []rune(raw)
	n := p.StripSuffix
	if n < 0 {
		n = 0
	}
	if n > len(r) {
		n = len(r)
	}
	s := strings.TrimSpace(string(r[:len(r)-n]))
	if s == "" {
		return 0, &CellError{Raw: raw, Err: fmt.Errorf("empty after stripping %d trailing character(s)", n)}
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, &CellError{Raw: raw, Err: err}
	}
	return v, nil
}

// firstContent returns the raw text of the first child node of sel: the
// node's data for a text node, the concatenated text for an element.
func firstContent(sel *goquery.Selection) string {
	c := sel.Contents().First()
	if c.Length() == 0 {
		return ""
	}
	if n := c.Get(0); n.Type == html.TextNode {
		return n.Data
	}
	return c.Text()
}

// strippedText concatenates the whitespace-trimmed text nodes under sel,
// dropping the ones that are empty after trimming.
func strippedText(sel *goquery.Selection) string {
	var b strings.Builder
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(strings.TrimSpace(n.Data))
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	for _, n := range sel.Nodes {
		walk(n)
	}
	return b.String()
}
