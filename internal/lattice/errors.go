package lattice

import "fmt"

// DocumentError reports a malformed type document, with the position of the
// offending YAML node.
type DocumentError struct {
	Line   int
	Column int
	Msg    string
}

func (e *DocumentError) Error() string {
	if e.Line == 0 {
		return e.Msg
	}
	return fmt.Sprintf("line %d:%d: %s", e.Line, e.Column, e.Msg)
}

// DeclError reports an invalid type declaration.
type DeclError struct {
	Name string
	Msg  string
}

func (e *DeclError) Error() string {
	return fmt.Sprintf("type %s: %s", e.Name, e.Msg)
}

func NewDeclError(name, format string, args ...any) *DeclError {
	return &DeclError{Name: name, Msg: fmt.Sprintf(format, args...)}
}
