package catalog

import "fmt"

// ParseError reports a malformed entry in a catalog file. The entry is skipped.
type ParseError struct {
	CatalogPath string
	Line        int
	Err         error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("error parsing entry on line %d of %s: %v", e.Line, e.CatalogPath, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// EncodeInvariantError reports an entry that cannot be written in the catalog format.
type EncodeInvariantError struct {
	Path   string
	Kind   string
	Line   int
	Reason string
}

func (e *EncodeInvariantError) Error() string {
	return fmt.Sprintf("cannot encode entry %s:%d (%s): %s", e.Path, e.Line, e.Kind, e.Reason)
}
