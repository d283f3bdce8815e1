package typesystem

import "fmt"

// UnboundVariableError indicates a variable occurrence with no enclosing
// binding. It is raised by panic from inside a decision and surfaced as an
// error by Check.
type UnboundVariableError struct {
	Var *TypeVar
}

func (e *UnboundVariableError) Error() string {
	return fmt.Sprintf("type variable not bound: %s", e.Var.Name)
}

func NewUnboundVariableError(v *TypeVar) *UnboundVariableError {
	return &UnboundVariableError{Var: v}
}
