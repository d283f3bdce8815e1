package typesystem

// binding is the state of one variable while its quantifier is in scope.
// lb is the join of all lower constraints seen so far; the working upper
// bound is the meet of ubs, where ubs[0] is the declared bound.
// right marks an existential (right-hand) variable; left-hand variables are
// universal and their bounds never move.
type binding struct {
	tv    *TypeVar
	lb    Type
	ubs   []Type
	right bool
	prev  *binding
}

type undo struct {
	b   *binding
	lb  Type
	ubs int
}

// env is the state of a single decision. It is created per query and never
// shared.
type env struct {
	vars    *binding
	lunions *unionState
	runions *unionState

	// outer is true until the first choice point of the query. Narrowing
	// done while it holds is not recorded on the trail.
	outer bool
	trail []undo
	trace Trace
}

func newEnv() *env {
	return &env{
		lunions: &unionState{},
		runions: &unionState{},
		outer:   true,
	}
}

func (e *env) lookup(v *TypeVar) *binding {
	for b := e.vars; b != nil; b = b.prev {
		if b.tv == v {
			return b
		}
	}
	panic(NewUnboundVariableError(v))
}

func (e *env) isBound(v *TypeVar) bool {
	for b := e.vars; b != nil; b = b.prev {
		if b.tv == v {
			return true
		}
	}
	return false
}

// enter opens the scope of u. A variable that is already bound, which happens
// when the same quantifier shows up on both sides, gets a fresh copy.
func (e *env) enter(u *UnionAll, right bool) (*binding, Type) {
	v, body := u.Var, u.Body
	if e.isBound(v) {
		nv := &TypeVar{Name: v.Name, Lower: v.Lower, Upper: v.Upper}
		body = Substitute(body, v, nv)
		v = nv
		e.trace.Renames++
	}
	return &binding{
		tv:    v,
		lb:    v.LowerBound(),
		ubs:   []Type{v.UpperBound()},
		right: right,
		prev:  e.vars,
	}, body
}

// withVar runs fn with u's variable in scope and restores the binding stack
// afterwards whatever fn returns.
func (e *env) withVar(u *UnionAll, right bool, fn func(body Type) bool) bool {
	b, body := e.enter(u, right)
	saved := e.vars
	e.vars = b
	defer func() { e.vars = saved }()
	return fn(body)
}

func (e *env) checkpoint() int {
	return len(e.trail)
}

func (e *env) rollback(mark int) {
	for i := len(e.trail) - 1; i >= mark; i-- {
		u := e.trail[i]
		u.b.lb = u.lb
		u.b.ubs = u.b.ubs[:u.ubs]
	}
	e.trail = e.trail[:mark]
}

func (e *env) record(b *binding) {
	if !e.outer {
		e.trail = append(e.trail, undo{b: b, lb: b.lb, ubs: len(b.ubs)})
	}
}

func (e *env) raiseLower(b *binding, t Type) {
	nlb := join(b.lb, t)
	if nlb == b.lb {
		return
	}
	e.record(b)
	b.lb = nlb
}

func (e *env) addUpper(b *binding, t Type) {
	e.record(b)
	b.ubs = append(b.ubs, t)
}

// narrowing is what one branch of a left-hand split did to a binding: the
// lower bound it ended with and the upper constraints it added.
type narrowing struct {
	b    *binding
	base int
	lb   Type
	ubs  []Type
}

// capture returns the narrowing done since mark, one entry per binding in
// the order the bindings were first touched.
func (e *env) capture(mark int) []narrowing {
	var out []narrowing
	seen := make(map[*binding]bool)
	for _, u := range e.trail[mark:] {
		if seen[u.b] {
			continue
		}
		seen[u.b] = true
		out = append(out, narrowing{b: u.b, base: u.ubs})
	}
	for i := range out {
		n := &out[i]
		n.lb = n.b.lb
		n.ubs = append([]Type(nil), n.b.ubs[n.base:]...)
	}
	return out
}

// merge applies the narrowing of every branch of a left-hand split to the
// bindings as they were before the split. Lower bounds are joined. An upper
// constraint is kept only when every branch added one, as the join of all
// of them.
func (e *env) merge(branches [][]narrowing) {
	var order []*binding
	lbs := make(map[*binding][]Type)
	ubs := make(map[*binding][]Type)
	constrained := make(map[*binding]int)
	for _, br := range branches {
		for _, n := range br {
			if _, ok := lbs[n.b]; !ok {
				order = append(order, n.b)
			}
			lbs[n.b] = append(lbs[n.b], n.lb)
			if len(n.ubs) > 0 {
				constrained[n.b]++
				ubs[n.b] = append(ubs[n.b], n.ubs...)
			}
		}
	}
	for _, b := range order {
		for _, lb := range lbs[b] {
			for _, m := range members(lb) {
				e.raiseLower(b, m)
			}
		}
		if constrained[b] < len(branches) {
			continue
		}
		var u Type = Bottom
		for _, t := range ubs[b] {
			for _, m := range members(t) {
				u = join(u, m)
			}
		}
		if !b.hasUpper(u) {
			e.addUpper(b, u)
		}
	}
}

func (b *binding) hasUpper(t Type) bool {
	for _, u := range b.ubs {
		if u == t {
			return true
		}
	}
	return false
}

// join is a cheap least upper bound used for widening lower bounds.
func join(a, b Type) Type {
	switch {
	case a == Type(Bottom):
		return b
	case b == Type(Bottom):
		return a
	case hasMember(a, b):
		return a
	}
	return &Union{A: a, B: b}
}

// members lists the leaves of a union tree, or t itself.
func members(t Type) []Type {
	if u, ok := t.(*Union); ok {
		return append(members(u.A), members(u.B)...)
	}
	return []Type{t}
}

func hasMember(u, t Type) bool {
	if un, ok := u.(*Union); ok {
		return hasMember(un.A, t) || hasMember(un.B, t)
	}
	return Equal(u, t)
}
