package extracthtml

import (
	"fmt"
	"strings"
)

// FetchError reports that the document source could not be retrieved.
// Status is the HTTP status code when the server answered, 0 otherwise.
type FetchError struct {
	URL    string
	Status int
	Err    error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// ParseError reports markup that could not be parsed into a document tree.
type ParseError struct {
	Err error
}

func (e *ParseError) Error() string { return fmt.Sprintf("parse html: %v", e.Err) }

func (e *ParseError) Unwrap() error { return e.Err }

// TableNotFoundError reports that no candidate table carried every expected
// header label. Candidates is the number of tables that were inspected.
type TableNotFoundError struct {
	Labels     []string
	Candidates int
}

func (e *TableNotFoundError) Error() string {
	return fmt.Sprintf("no table matching headers [%s] among %d candidates",
		strings.Join(e.Labels, ", "), e.Candidates)
}

// CellError reports a cell that could not be converted to its column type.
type CellError struct {
	Raw string
	Err error
}

func (e *CellError) Error() string { return fmt.Sprintf("cell %q: %v", e.Raw, e.Err) }

func (e *CellError) Unwrap() error { return e.Err }
