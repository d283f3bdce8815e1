package typesystem

// Subst maps variables to their replacements.
type Subst map[*TypeVar]Type

// Apply replaces free occurrences of the variables in s. Parts of t that are
// unchanged keep their identity so pointer comparison stays useful.
func Apply(t Type, s Subst) Type {
	if t == nil || len(s) == 0 {
		return t
	}
	switch typ := t.(type) {
	case *TypeVar:
		if r, ok := s[typ]; ok {
			return r
		}
		return typ
	case *DataType:
		var params []Type
		for i, p := range typ.Params {
			np := Apply(p, s)
			if np != p && params == nil {
				params = make([]Type, len(typ.Params))
				copy(params, typ.Params[:i])
			}
			if params != nil {
				params[i] = np
			}
		}
		if params == nil {
			return typ
		}
		return &DataType{Name: typ.Name, Params: params}
	case *Union:
		a, b := Apply(typ.A, s), Apply(typ.B, s)
		if a == typ.A && b == typ.B {
			return typ
		}
		return &Union{A: a, B: b}
	case *UnionAll:
		v := typ.Var
		lb, ub := Apply(v.LowerBound(), s), Apply(v.UpperBound(), s)
		inner := s
		if _, shadowed := s[v]; shadowed {
			inner = make(Subst, len(s))
			for k, r := range s {
				if k != v {
					inner[k] = r
				}
			}
		}
		nv := v
		if lb != v.LowerBound() || ub != v.UpperBound() {
			nv = &TypeVar{Name: v.Name, Lower: lb, Upper: ub}
			inner = withBinding(inner, v, nv)
		}
		body := Apply(typ.Body, inner)
		if nv == v && body == typ.Body {
			return typ
		}
		return &UnionAll{Var: nv, Body: body}
	default:
		return t
	}
}

// Substitute replaces free occurrences of v in t with r.
func Substitute(t Type, v *TypeVar, r Type) Type {
	return Apply(t, Subst{v: r})
}

func withBinding(s Subst, v *TypeVar, r Type) Subst {
	out := make(Subst, len(s)+1)
	for k, t := range s {
		out[k] = t
	}
	out[v] = r
	return out
}

// FreeVars returns the variables occurring free in t, in order of first occurrence.
func FreeVars(t Type) []*TypeVar {
	var out []*TypeVar
	seen := map[*TypeVar]bool{}
	var walk func(Type, map[*TypeVar]bool)
	walk = func(t Type, bound map[*TypeVar]bool) {
		switch typ := t.(type) {
		case *TypeVar:
			if !bound[typ] && !seen[typ] {
				seen[typ] = true
				out = append(out, typ)
			}
		case *DataType:
			for _, p := range typ.Params {
				walk(p, bound)
			}
		case *Union:
			walk(typ.A, bound)
			walk(typ.B, bound)
		case *UnionAll:
			walk(typ.Var.LowerBound(), bound)
			walk(typ.Var.UpperBound(), bound)
			inner := make(map[*TypeVar]bool, len(bound)+1)
			for k := range bound {
				inner[k] = true
			}
			inner[typ.Var] = true
			walk(typ.Body, inner)
		}
	}
	walk(t, map[*TypeVar]bool{})
	return out
}
