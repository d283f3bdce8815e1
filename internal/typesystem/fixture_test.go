package typesystem

// numeric tower and a few containers shared by the tests in this package
type fixture struct {
	Real, Int, Float, String *DataType
	seq, array, pair, ndarr  *TypeName
}

func newFixture() *fixture {
	f := &fixture{}
	realName := NewTypeName("Real", nil)
	f.Real = NewDataType(realName)
	f.Int = NewDataType(NewTypeName("Int", f.Real))
	f.Float = NewDataType(NewTypeName("Float", f.Real))
	f.String = NewDataType(NewTypeName("String", nil))

	f.seq = NewTypeName("Seq", nil, NewTypeVar("T", nil, nil))
	f.seq.Variance[0] = Covariant

	f.array = NewTypeName("Array", nil, NewTypeVar("T", nil, nil))

	f.pair = NewTypeName("Pair", nil, NewTypeVar("A", nil, nil), NewTypeVar("B", nil, nil))
	f.pair.Variance[0] = Covariant
	f.pair.Variance[1] = Covariant

	f.ndarr = NewTypeName("NDArray", nil, NewTypeVar("T", nil, nil), NewTypeVar("N", nil, nil))
	return f
}

func (f *fixture) Seq(t Type) *DataType        { return NewDataType(f.seq, t) }
func (f *fixture) Array(t Type) *DataType      { return NewDataType(f.array, t) }
func (f *fixture) Pair(a, b Type) *DataType    { return NewDataType(f.pair, a, b) }
func (f *fixture) NDArray(t, n Type) *DataType { return NewDataType(f.ndarr, t, n) }

// where builds "body(v) where v" for a fresh variable.
func where(name string, lower, upper Type, body func(v *TypeVar) Type) Type {
	v := NewTypeVar(name, lower, upper)
	return &UnionAll{Var: v, Body: body(v)}
}
