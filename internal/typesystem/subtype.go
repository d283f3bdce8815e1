package typesystem

// subtype is the core relation for one pass. Union choices come from the
// choice stacks, variable constraints narrow the bindings in e.
func (e *env) subtype(x, y Type) bool {
	e.trace.Steps++
	if x == y {
		return true
	}

	if xu, ok := x.(*UnionAll); ok {
		if yu, ok := y.(*UnionAll); ok {
			return e.withVar(xu, false, func(xb Type) bool {
				return e.withVar(yu, true, func(yb Type) bool {
					return e.subtype(xb, yb)
				})
			})
		}
	}

	// take unions apart before looking at variables
	if xu, ok := x.(*Union); ok {
		switch yt := y.(type) {
		case *Union:
			return e.subtypeUnion(x, yt, true)
		case *UnionAll:
			return e.withVar(yt, true, func(yb Type) bool { return e.subtype(x, yb) })
		}
		return e.subtypeUnion(y, xu, false)
	}
	if yu, ok := y.(*Union); ok {
		if xt, ok := x.(*UnionAll); ok {
			return e.withVar(xt, false, func(xb Type) bool { return e.subtype(xb, y) })
		}
		return e.subtypeUnion(x, yu, true)
	}

	if xt, ok := x.(*UnionAll); ok {
		return e.withVar(xt, false, func(xb Type) bool { return e.subtype(xb, y) })
	}
	if yt, ok := y.(*UnionAll); ok {
		return e.withVar(yt, true, func(yb Type) bool { return e.subtype(x, yb) })
	}

	if xv, ok := x.(*TypeVar); ok {
		if yv, ok := y.(*TypeVar); ok {
			return e.varVar(xv, yv)
		}
		return e.constrainAsLower(xv, y)
	}
	if yv, ok := y.(*TypeVar); ok {
		return e.constrainAsUpper(yv, x)
	}

	if xd, ok := x.(*DataType); ok {
		switch yt := y.(type) {
		case *AnyType:
			return true
		case *DataType:
			return e.subtypeData(xd, yt)
		}
	}

	if IsType(x) && IsType(y) {
		return x == Type(Bottom) || x == y
	}
	return x == y || Equal(x, y)
}

// subtypeUnion picks a branch of u from the recorded choices. right selects
// the Runions stack and means t <: u; otherwise u <: t.
func (e *env) subtypeUnion(t Type, u *Union, right bool) bool {
	e.outer = false
	state := e.lunions
	if right {
		state = e.runions
	}
	pickB, ok := state.next()
	if !ok {
		return true
	}
	choice := u.A
	if pickB {
		choice = u.B
	}
	if right {
		return e.subtype(t, choice)
	}
	return e.subtype(choice, t)
}

func (e *env) varVar(x, y *TypeVar) bool {
	e.outer = false
	if x == y {
		return true
	}
	xb, yb := e.lookup(x), e.lookup(y)
	switch {
	case xb.right:
		return e.constrainAsLower(x, y)
	case yb.right:
		return e.constrainAsUpper(y, x)
	}
	// both universal: their bounds never move, so trying one disjunct
	// and falling back to the other is safe
	mark := e.checkpoint()
	if e.subtype(xb.ubs[0], y) {
		return true
	}
	e.rollback(mark)
	return e.subtype(x, yb.lb)
}

// constrainAsLower handles an occurrence of x that must be <: y.
func (e *env) constrainAsLower(x *TypeVar, y Type) bool {
	b := e.lookup(x)
	if !b.right {
		return e.subtype(b.ubs[0], y)
	}
	if b.hasUpper(y) {
		return true
	}
	_, yv := y.(*TypeVar)
	admitValue := b.lb == Type(Bottom) && !IsType(y) && !yv
	if !admitValue && !e.subtype(b.lb, y) {
		return false
	}
	e.addUpper(b, y)
	return true
}

// constrainAsUpper handles an occurrence of y that x must be <: of.
func (e *env) constrainAsUpper(y *TypeVar, x Type) bool {
	b := e.lookup(y)
	if !b.right {
		return e.subtype(x, b.lb)
	}
	_, xv := x.(*TypeVar)
	valueLike := !IsType(x) && !xv
	for i := 0; i < len(b.ubs); i++ {
		u := b.ubs[i]
		if valueLike && u == Type(Any) {
			continue
		}
		if !e.subtype(x, u) {
			return false
		}
	}
	e.raiseLower(b, x)
	return true
}

func (e *env) subtypeData(x, y *DataType) bool {
	if x.Name != y.Name {
		var cur Type = x
		for {
			d, ok := cur.(*DataType)
			if !ok {
				return false
			}
			if d.Name == y.Name {
				x = d
				break
			}
			cur = d.Supertype()
		}
	}
	if len(x.Params) != len(y.Params) {
		return false
	}
	for i := range x.Params {
		a, b := x.Params[i], y.Params[i]
		if y.Name.VarianceAt(i) == Covariant {
			if !e.subtype(a, b) {
				return false
			}
			continue
		}
		if !e.equivalent(a, b) {
			return false
		}
	}
	return true
}

// equivalent checks a <: b and b <: a as two complete searches of their own,
// so unions inside an invariant parameter do not distribute over the
// enclosing type. Variable bindings are shared with the enclosing search.
func (e *env) equivalent(a, b Type) bool {
	if a == b {
		return true
	}
	lu, ru := e.lunions, e.runions
	e.lunions, e.runions = &unionState{}, &unionState{}
	defer func() { e.lunions, e.runions = lu, ru }()

	e.trace.Nested++
	mark := e.checkpoint()
	if e.forallExistsSubtype(a, b, false) && e.forallExistsSubtype(b, a, false) {
		return true
	}
	e.rollback(mark)
	return false
}
