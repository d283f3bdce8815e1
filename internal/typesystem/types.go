package typesystem

import (
	"fmt"
	"strings"
)

// Type is the interface for all values that may appear on either side of <:.
// Types are immutable once built and are shared by pointer.
type Type interface {
	String() string
	isType()
}

// BottomType is the empty type. It has a single instance, Bottom.
type BottomType struct{}

// AnyType is the top of the lattice. It has a single instance, Any.
type AnyType struct{}

var (
	Bottom = &BottomType{}
	Any    = &AnyType{}
)

func (*BottomType) String() string { return "Union{}" }
func (*AnyType) String() string    { return "Any" }

// TypeName is the nominal declaration behind a DataType: its declared
// parameters, their variance, and the declared supertype written in terms of
// those parameters. A nil Super means Any.
type TypeName struct {
	Name     string
	Params   []*TypeVar
	Variance []Variance
	Super    Type
}

func (n *TypeName) String() string { return n.Name }

// VarianceAt returns the declared variance of parameter i.
// Undeclared positions are invariant.
func (n *TypeName) VarianceAt(i int) Variance {
	if i < len(n.Variance) {
		return n.Variance[i]
	}
	return Invariant
}

// DataType is a nominal type applied to actual parameters, e.g. Pair{Int, Real}.
type DataType struct {
	Name   *TypeName
	Params []Type
}

func (t *DataType) String() string {
	if len(t.Params) == 0 {
		return t.Name.Name
	}
	parts := make([]string, len(t.Params))
	for i, p := range t.Params {
		parts[i] = p.String()
	}
	return fmt.Sprintf("%s{%s}", t.Name.Name, strings.Join(parts, ", "))
}

// Supertype returns the declared supertype of t with t's actual parameters
// substituted for the declared ones.
func (t *DataType) Supertype() Type {
	if t.Name.Super == nil {
		return Any
	}
	if len(t.Name.Params) == 0 {
		return t.Name.Super
	}
	s := make(Subst, len(t.Name.Params))
	for i, p := range t.Name.Params {
		if i < len(t.Params) {
			s[p] = t.Params[i]
		}
	}
	return Apply(t.Name.Super, s)
}

// Union is a binary union. Wider unions nest to the right.
type Union struct {
	A Type
	B Type
}

func (t *Union) String() string {
	parts := []string{}
	var walk func(Type)
	walk = func(u Type) {
		if un, ok := u.(*Union); ok {
			walk(un.A)
			walk(un.B)
			return
		}
		parts = append(parts, u.String())
	}
	walk(t)
	return "Union{" + strings.Join(parts, ", ") + "}"
}

// UnionAll binds Var within Body.
type UnionAll struct {
	Var  *TypeVar
	Body Type
}

func (t *UnionAll) String() string {
	return fmt.Sprintf("%s where %s", t.Body.String(), t.Var.boundsString())
}

// TypeVar is a bounded type variable. Identity is the pointer; Name is for printing only.
type TypeVar struct {
	Name  string
	Lower Type
	Upper Type
}

func (v *TypeVar) String() string { return v.Name }

func (v *TypeVar) LowerBound() Type {
	if v.Lower == nil {
		return Bottom
	}
	return v.Lower
}

func (v *TypeVar) UpperBound() Type {
	if v.Upper == nil {
		return Any
	}
	return v.Upper
}

func (v *TypeVar) boundsString() string {
	var sb strings.Builder
	if lb := v.LowerBound(); lb != Type(Bottom) {
		sb.WriteString(lb.String())
		sb.WriteString("<:")
	}
	sb.WriteString(v.Name)
	if ub := v.UpperBound(); ub != Type(Any) {
		sb.WriteString("<:")
		sb.WriteString(ub.String())
	}
	return sb.String()
}

// Const is a plain value used as a type parameter, as in Array{Int, 2}.
type Const struct {
	Value any
}

func (c *Const) String() string {
	if s, ok := c.Value.(string); ok {
		return fmt.Sprintf("%q", s)
	}
	return fmt.Sprint(c.Value)
}

func (*BottomType) isType() {}
func (*AnyType) isType()    {}
func (*DataType) isType()   {}
func (*Union) isType()      {}
func (*UnionAll) isType()   {}
func (*TypeVar) isType()    {}
func (*Const) isType()      {}

// NewTypeName declares a nominal type with the given parameters.
// Missing variance entries default to invariant.
func NewTypeName(name string, super Type, params ...*TypeVar) *TypeName {
	return &TypeName{
		Name:     name,
		Params:   params,
		Variance: make([]Variance, len(params)),
		Super:    super,
	}
}

// NewDataType applies a type name to actual parameters.
func NewDataType(name *TypeName, params ...Type) *DataType {
	return &DataType{Name: name, Params: params}
}

// NewUnion folds the operands into right-nested binary unions.
// No operands gives Bottom; a single operand is returned unchanged.
func NewUnion(ts ...Type) Type {
	switch len(ts) {
	case 0:
		return Bottom
	case 1:
		return ts[0]
	}
	return &Union{A: ts[0], B: NewUnion(ts[1:]...)}
}

// NewTypeVar creates a variable. Nil bounds mean Bottom and Any.
func NewTypeVar(name string, lower, upper Type) *TypeVar {
	if lower == nil {
		lower = Bottom
	}
	if upper == nil {
		upper = Any
	}
	return &TypeVar{Name: name, Lower: lower, Upper: upper}
}

// NewUnionAll quantifies body over vars, outermost first.
func NewUnionAll(body Type, vars ...*TypeVar) Type {
	for i := len(vars) - 1; i >= 0; i-- {
		body = &UnionAll{Var: vars[i], Body: body}
	}
	return body
}

// NewConst wraps a comparable value so it can be used as a parameter.
func NewConst[T comparable](v T) *Const {
	return &Const{Value: v}
}

// IsType reports whether t denotes a set of values rather than a single
// value or a bare variable.
func IsType(t Type) bool {
	switch t.(type) {
	case *Const, *TypeVar:
		return false
	}
	return true
}

// Equal reports structural equality. UnionAlls compare up to renaming of
// the bound variable.
func Equal(a, b Type) bool {
	if a == b {
		return true
	}
	switch x := a.(type) {
	case *DataType:
		y, ok := b.(*DataType)
		if !ok || x.Name != y.Name || len(x.Params) != len(y.Params) {
			return false
		}
		for i := range x.Params {
			if !Equal(x.Params[i], y.Params[i]) {
				return false
			}
		}
		return true
	case *Union:
		y, ok := b.(*Union)
		return ok && Equal(x.A, y.A) && Equal(x.B, y.B)
	case *UnionAll:
		y, ok := b.(*UnionAll)
		if !ok {
			return false
		}
		if !Equal(x.Var.LowerBound(), y.Var.LowerBound()) || !Equal(x.Var.UpperBound(), y.Var.UpperBound()) {
			return false
		}
		return Equal(x.Body, Substitute(y.Body, y.Var, x.Var))
	case *Const:
		y, ok := b.(*Const)
		return ok && x.Value == y.Value
	}
	return false
}
