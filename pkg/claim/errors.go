package claim

import (
	"fmt"
	"strings"
)

// SchemaError reports required columns absent from a table header.
// A schema error aborts the whole batch.
type SchemaError struct {
	Missing []string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("missing required columns: %s", strings.Join(e.Missing, ", "))
}

// ParseError reports a cell that could not be parsed as its column type.
type ParseError struct {
	Row    int // 0-based data row index
	Column string
	Value  string
	Err    error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("row %d column %s: cannot parse %q: %v", e.Row, e.Column, e.Value, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// RowError reports an invalid claim found while deriving or scoring a batch.
// Key is the grouping key (patient or provider) being processed, if any.
type RowError struct {
	Row    int
	Column string
	Key    string
	Reason string
}

func (e *RowError) Error() string {
	if e.Key != "" {
		return fmt.Sprintf("row %d column %s (group %s): %s", e.Row, e.Column, e.Key, e.Reason)
	}
	return fmt.Sprintf("row %d column %s: %s", e.Row, e.Column, e.Reason)
}
