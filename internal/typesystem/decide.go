package typesystem

import (
	"errors"
	"fmt"
)

// Trace holds counters from one decision.
type Trace struct {
	Passes     int // calls of the core relation from the drivers
	Steps      int // total core relation calls, nested searches included
	Nested     int // invariant parameter checks
	Renames    int // quantifiers whose variable had to be renamed
	LeftSlots  int // deepest left choice stack reached
	RightSlots int // deepest right choice stack reached
}

// existsSubtype looks for right-hand choices making x <: y under the current
// left-hand choices. When anyunions is set the last right slot is enumerated.
func (e *env) existsSubtype(x, y Type, anyunions bool) bool {
	mark := e.checkpoint()
	vars := e.vars
	for exists := 0; exists <= b2i(anyunions); exists++ {
		if anyunions {
			e.runions.setLast(exists == 1)
		}
		e.lunions.reset()
		e.runions.reset()
		e.vars = vars

		e.trace.Passes++
		found := e.subtype(x, y)
		if e.lunions.more {
			// the left stack is short; the caller extends it and retries
			return true
		}
		if e.runions.more {
			e.rollback(mark)
			e.runions.push()
			e.trace.RightSlots = max(e.trace.RightSlots, e.runions.size)
			found = e.existsSubtype(x, y, true)
			e.runions.pop()
		}
		if found {
			return true
		}
		e.rollback(mark)
	}
	return false
}

// forallExistsSubtype requires existsSubtype to hold for every sequence of
// left-hand choices. When anyunions is set the last left slot is enumerated.
// Both branches of that slot start from the same bindings; what they need
// of shared variables is merged once both have succeeded.
func (e *env) forallExistsSubtype(x, y Type, anyunions bool) bool {
	start := e.checkpoint()
	var branches [][]narrowing
	for forall := 0; forall <= b2i(anyunions); forall++ {
		if anyunions {
			e.lunions.setLast(forall == 1)
		}
		if !e.existsSubtype(x, y, false) {
			return false
		}
		if e.lunions.more {
			e.rollback(start)
			e.lunions.push()
			e.trace.LeftSlots = max(e.trace.LeftSlots, e.lunions.size)
			sub := e.forallExistsSubtype(x, y, true)
			e.lunions.pop()
			if !sub {
				return false
			}
		}
		if anyunions {
			branches = append(branches, e.capture(start))
			e.rollback(start)
		}
	}
	e.merge(branches)
	return true
}

// Decide reports whether x <: y. Free variables in x or y are a programming
// error and panic with *UnboundVariableError.
func Decide(x, y Type) bool {
	return newEnv().forallExistsSubtype(x, y, false)
}

// DecideTrace is Decide returning the search counters as well.
func DecideTrace(x, y Type) (bool, Trace) {
	e := newEnv()
	ok := e.forallExistsSubtype(x, y, false)
	return ok, e.trace
}

// Check is Decide for callers handling untrusted input: an unbound variable
// is reported as an error instead of a panic.
func Check(x, y Type) (ok bool, tr Trace, err error) {
	defer func() {
		if r := recover(); r != nil {
			var ue *UnboundVariableError
			if rerr, isErr := r.(error); isErr && errors.As(rerr, &ue) {
				ok, err = false, fmt.Errorf("deciding %s <: %s: %w", x, y, ue)
				return
			}
			panic(r)
		}
	}()
	ok, tr = DecideTrace(x, y)
	return ok, tr, nil
}

// Equivalent reports x <: y and y <: x.
func Equivalent(x, y Type) bool {
	return Decide(x, y) && Decide(y, x)
}

func b2i(b bool) int {
	if b {
		return 1
	}
	return 0
}
