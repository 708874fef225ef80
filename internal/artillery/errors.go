package artillery

import "fmt"

// PathKind classifies a sanitization failure.
type PathKind string

const (
	// PathEscape means the resolved path lies outside the work directory.
	PathEscape PathKind = "escape"
	// PathNotFound means the resolved path does not exist.
	PathNotFound PathKind = "not_found"
)

// PathError reports a user-supplied path rejected by sanitization.
type PathError struct {
	Path string
	Kind PathKind
}

func (e *PathError) Error() string {
	switch e.Kind {
	case PathEscape:
		return fmt.Sprintf("path %q escapes the work directory", e.Path)
	default:
		return fmt.Sprintf("path %q does not exist", e.Path)
	}
}

// QuickDisabledError reports a quick-test call against a configuration
// that has the capability gated off.
type QuickDisabledError struct{}

func (e *QuickDisabledError) Error() string {
	return "quick tests are disabled; set BARRAGE_ALLOW_QUICK=true to enable them"
}

// ParseError reports a result file that could not be read or is not
// syntactically valid JSON. Missing fields inside valid JSON are never
// a ParseError.
type ParseError struct {
	Path string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parsing result file %s: %v", e.Path, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }
