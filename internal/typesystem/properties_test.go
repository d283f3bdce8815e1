package typesystem

import (
	"fmt"
	"math/rand"
	"testing"
)

// corpus returns a deterministic mix of generated variable-free types and a
// few hand-written quantified ones.
func corpus(f *fixture, n int) []Type {
	rng := rand.New(rand.NewSource(7))
	leaves := []Type{f.Int, f.Float, f.Real, f.String, Any, Bottom}

	var gen func(depth int) Type
	gen = func(depth int) Type {
		if depth == 0 {
			return leaves[rng.Intn(len(leaves))]
		}
		switch rng.Intn(5) {
		case 0:
			return f.Seq(gen(depth - 1))
		case 1:
			return f.Array(gen(depth - 1))
		case 2:
			return f.Pair(gen(depth-1), gen(depth-1))
		case 3:
			return NewUnion(gen(depth-1), gen(depth-1))
		}
		return leaves[rng.Intn(len(leaves))]
	}

	out := append([]Type{}, leaves...)
	for len(out) < n {
		out = append(out, gen(2))
	}
	out = append(out,
		where("x", nil, f.Real, func(x *TypeVar) Type { return f.Seq(x) }),
		where("x", nil, f.Real, func(x *TypeVar) Type { return f.Pair(x, x) }),
		where("x", nil, f.Real, func(x *TypeVar) Type { return f.Array(x) }),
		where("x", nil, nil, func(x *TypeVar) Type { return f.Array(x) }),
		where("x", nil, nil, func(x *TypeVar) Type { return f.Pair(x, f.Int) }),
	)
	return out
}

func relation(ts []Type) [][]bool {
	rel := make([][]bool, len(ts))
	for i, a := range ts {
		rel[i] = make([]bool, len(ts))
		for j, b := range ts {
			rel[i][j] = Decide(a, b)
		}
	}
	return rel
}

func hasUnion(t Type) bool {
	switch typ := t.(type) {
	case *Union:
		return true
	case *DataType:
		for _, p := range typ.Params {
			if hasUnion(p) {
				return true
			}
		}
	case *UnionAll:
		return true
	}
	return false
}

func TestReflexivityAndBounds(t *testing.T) {
	f := newFixture()
	for _, typ := range corpus(f, 40) {
		if !Decide(typ, typ) {
			t.Errorf("not reflexive: %s", typ)
		}
		if !Decide(Bottom, typ) {
			t.Errorf("Bottom is not <: %s", typ)
		}
		if !Decide(typ, Any) {
			t.Errorf("%s is not <: Any", typ)
		}
	}
}

func TestDistributivity(t *testing.T) {
	f := newFixture()
	ts := corpus(f, 16)
	for _, a := range ts {
		for _, b := range ts {
			u := NewUnion(a, b)
			for _, c := range ts {
				if got, want := Decide(u, c), Decide(a, c) && Decide(b, c); got != want {
					t.Errorf("Decide(%s, %s) = %v, components give %v", u, c, got, want)
				}
				// a union on the left of c may be covered jointly, so the
				// disjunction is exact only for union-free c
				if hasUnion(c) {
					continue
				}
				if got, want := Decide(c, u), Decide(c, a) || Decide(c, b); got != want {
					t.Errorf("Decide(%s, %s) = %v, components give %v", c, u, got, want)
				}
			}
		}
	}
}

func TestTransitivity(t *testing.T) {
	f := newFixture()
	ts := corpus(f, 30)
	rel := relation(ts)
	for i := range ts {
		for j := range ts {
			if !rel[i][j] {
				continue
			}
			for k := range ts {
				if rel[j][k] && !rel[i][k] {
					t.Errorf("%s <: %s <: %s but not %s <: %s", ts[i], ts[j], ts[k], ts[i], ts[k])
				}
			}
		}
	}
}

func TestEquivalentTypesAgree(t *testing.T) {
	f := newFixture()
	ts := corpus(f, 30)
	ts = append(ts,
		f.Array(NewUnion(f.Int, f.Real)),
		f.Array(f.Real),
		NewUnion(f.Seq(f.Int), f.Seq(f.Float)),
		f.Seq(NewUnion(f.Float, f.Int)),
	)
	rel := relation(ts)
	pairs := 0
	for i := range ts {
		for j := range ts {
			if i == j || !rel[i][j] || !rel[j][i] {
				continue
			}
			pairs++
			for k := range ts {
				if rel[i][k] != rel[j][k] || rel[k][i] != rel[k][j] {
					t.Errorf("%s and %s are equivalent but disagree on %s", ts[i], ts[j], ts[k])
				}
			}
		}
	}
	if pairs == 0 {
		t.Errorf("corpus produced no equivalent pairs")
	}
}

func TestDeepUnionChain(t *testing.T) {
	f := newFixture()
	const n = 40
	leaves := make([]Type, n)
	for i := range leaves {
		leaves[i] = NewDataType(NewTypeName(fmt.Sprintf("R%d", i), f.Real))
	}
	chain := NewUnion(leaves...)
	again := NewUnion(leaves...)
	short := NewUnion(leaves[:n-1]...)

	tests := []struct {
		name string
		x, y Type
		want bool
	}{
		{"chain under real", chain, f.Real, true},
		{"chain against rebuilt chain", chain, again, true},
		{"chain against shorter chain", chain, short, false},
		{"shorter chain against chain", short, chain, true},
		{"last leaf", leaves[n-1], chain, true},
		{"seq of chain", f.Seq(chain), f.Seq(again), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, tr := DecideTrace(tt.x, tt.y)
			if got != tt.want {
				t.Errorf("got %v, want %v", got, tt.want)
			}
			if tr.LeftSlots+tr.RightSlots <= 32 {
				t.Errorf("expected the choice stacks to exceed one inline word, got %+v", tr)
			}
		})
	}
}
