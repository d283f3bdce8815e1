package lattice

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/funvibe/typelattice/internal/typesystem"
	"github.com/kr/pretty"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func loadTestLattice(t *testing.T) *Lattice {
	t.Helper()
	cfg, err := LoadConfig(filepath.Join("testdata", "lattice.yaml"))
	require.NoError(t, err)
	l, err := Build(cfg)
	require.NoError(t, err)
	return l
}

func TestBuildDeclarations(t *testing.T) {
	l := loadTestLattice(t)

	want := []string{"Array", "Char", "Comparable", "Float", "Int", "NDArray", "Pair", "Real", "Seq", "String", "Vector"}
	if got := l.Names(); !equalStrings(got, want) {
		pretty.Ldiff(t, want, got)
		t.FailNow()
	}

	seq, ok := l.Lookup("Seq")
	require.True(t, ok)
	require.Equal(t, typesystem.Covariant, seq.VarianceAt(0))

	arr, ok := l.Lookup("Array")
	require.True(t, ok)
	require.Equal(t, typesystem.Invariant, arr.VarianceAt(0))

	anc, err := l.Ancestors("Vector")
	require.NoError(t, err)
	require.Equal(t, []string{"NDArray"}, anc)

	vec, err := l.Apply("Vector", mustDoc(t, l, "Int"))
	require.NoError(t, err)
	require.Equal(t, "NDArray{Int, 1}", vec.Supertype().String())

	_, err = l.Apply("Pair", mustDoc(t, l, "Int"))
	var de *DeclError
	require.ErrorAs(t, err, &de)
}

func TestConfigValidation(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{"empty", "types: []", "no types declared"},
		{"missing name", "types: [{params: [T]}]", "name is required"},
		{"duplicate", "types: [{name: A}, {name: A}]", "declared twice"},
		{"reserved", "types: [{name: Any}]", "reserved name"},
		{"bad identifier", "types: [{name: 1abc}]", "not an identifier"},
		{"bad variance", "types: [{name: A, params: [{name: T, variance: contravariant}]}]", "unknown variance"},
		{"duplicate param", "types: [{name: A, params: [T, T]}]", "T declared twice"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseConfig([]byte(tt.yaml), "lattice.yaml")
			require.Error(t, err)
			require.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestConfigDefaults(t *testing.T) {
	cfg, err := ParseConfig([]byte("types: [{name: Box, params: [T]}]"), "lattice.yaml")
	require.NoError(t, err)
	require.Equal(t, "invariant", cfg.Types[0].Params[0].Variance)
}

func TestScalarDocumentFields(t *testing.T) {
	tests := []struct {
		name      string
		yaml      string
		super     string
		upper     string
		wantLower string
	}{
		{"scalar super", "types: [{name: Real}, {name: Int, super: Real}]", "Real", "Any", "Union{}"},
		{"mapping super", "types: [{name: Real}, {name: Int, super: {name: Real}}]", "Real", "Any", "Union{}"},
		{"null super", "types: [{name: Real}, {name: Int, super: null}]", "Any", "Any", "Union{}"},
		{"scalar bounds", "types: [{name: Real}, {name: Int, params: [{name: T, lower: Real, upper: Any}]}]", "Any", "Any", "Real"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := ParseConfig([]byte(tt.yaml), "lattice.yaml")
			require.NoError(t, err)
			l, err := Build(cfg)
			require.NoError(t, err)

			n, ok := l.Lookup("Int")
			require.True(t, ok)
			args := make([]typesystem.Type, len(n.Params))
			for i := range args {
				args[i] = typesystem.Any
			}
			dt, err := l.Apply("Int", args...)
			require.NoError(t, err)
			require.Equal(t, tt.super, dt.Supertype().String())
			if len(n.Params) > 0 {
				require.Equal(t, tt.wantLower, n.Params[0].LowerBound().String())
				require.Equal(t, tt.upper, n.Params[0].UpperBound().String())
			}
		})
	}
}

func TestMarshalOmitsUnsetDocuments(t *testing.T) {
	cfg := &Config{Types: []TypeDecl{{Name: "Box", Params: []ParamDecl{{Name: "T", Variance: "invariant"}}}}}
	out, err := yaml.Marshal(cfg)
	require.NoError(t, err)
	require.NotContains(t, string(out), "super")
	require.NotContains(t, string(out), "lower")

	back, err := ParseConfig(out, "lattice.yaml")
	require.NoError(t, err)
	require.Equal(t, "Box", back.Types[0].Name)
}

func TestBuildRejectsCycles(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join("testdata", "cycle.yaml"))
	require.NoError(t, err)
	_, err = Build(cfg)
	var de *DeclError
	require.ErrorAs(t, err, &de)
	require.Contains(t, de.Msg, "cycle")
}

func TestBuildRejectsNonNominalSuper(t *testing.T) {
	cfg, err := ParseConfig([]byte("types: [{name: A}, {name: B}, {name: C, super: [A, B]}]"), "lattice.yaml")
	require.NoError(t, err)
	_, err = Build(cfg)
	require.Error(t, err)
	require.Contains(t, err.Error(), "not a declared type")
}

func TestFindConfig(t *testing.T) {
	root := t.TempDir()
	nested := filepath.Join(root, "a", "b")
	require.NoError(t, os.MkdirAll(nested, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "lattice.yml"), []byte("types: [{name: A}]"), 0o644))

	got, err := FindConfig(nested)
	require.NoError(t, err)
	require.Equal(t, filepath.Join(root, "lattice.yml"), got)
}

func TestParseDocument(t *testing.T) {
	l := loadTestLattice(t)
	tests := []struct {
		name string
		doc  string
		want string
	}{
		{"plain", "Int", "Int"},
		{"builtin any", "Any", "Any"},
		{"builtin bottom", "Bottom", "Union{}"},
		{"shorthand", "{Pair: [Int, Real]}", "Pair{Int, Real}"},
		{"long form", "{name: Seq, params: [Int]}", "Seq{Int}"},
		{"list union", "[Int, String]", "Union{Int, String}"},
		{"union key", "{union: [Int, Float, String]}", "Union{Int, Float, String}"},
		{"union builtin", "{Union: [Int, String]}", "Union{Int, String}"},
		{"const", "{NDArray: [Int, 2]}", "NDArray{Int, 2}"},
		{"quoted const", `{NDArray: [Int, "two"]}`, `NDArray{Int, "two"}`},
		{"explicit value", "{NDArray: [Int, {value: Int}]}", `NDArray{Int, "Int"}`},
		{"where", "{where: [{name: x, upper: Real}], body: {Pair: [x, x]}}", "Pair{x, x} where x<:Real"},
		{"dependent bounds", "{where: [T, {name: S, upper: T}], body: {Pair: [T, S]}}", "Pair{T, S} where S<:T where T"},
		{"explicit var", "{where: [T], body: {Seq: [{var: T}]}}", "Seq{T} where T"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := l.ParseDocument(tt.doc)
			require.NoError(t, err)
			require.Equal(t, tt.want, got.String())
		})
	}
}

func TestParseDocumentErrors(t *testing.T) {
	l := loadTestLattice(t)
	tests := []struct {
		name string
		doc  string
		want string
	}{
		{"unknown type", "Integer", "unknown type Integer"},
		{"arity", "{Pair: [Int]}", "takes 2 parameters"},
		{"missing params", "Seq", "takes 1 parameters, got 0"},
		{"free var", "{Seq: [{var: T}]}", "not in scope"},
		{"where without body", "{where: [T]}", "where without body"},
		{"null", "~", "null is not a type"},
		{"bad keys", "{params: [Int], body: Int}", "cannot read a type"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := l.ParseDocument(tt.doc)
			require.Error(t, err)
			require.Contains(t, err.Error(), tt.want)
			var de *DocumentError
			require.True(t, errors.As(err, &de), "want DocumentError, got %T", err)
		})
	}
}

func TestQueryFile(t *testing.T) {
	qf, err := LoadQueries(filepath.Join("testdata", "queries.yaml"))
	require.NoError(t, err)
	require.Equal(t, filepath.Join("testdata", "lattice.yaml"), qf.Lattice)

	cfg, err := LoadConfig(qf.Lattice)
	require.NoError(t, err)
	l, err := Build(cfg)
	require.NoError(t, err)

	for _, q := range qf.Queries {
		j, err := l.Judge(&q.Sub, &q.Sup)
		require.NoError(t, err, q.Name)
		if q.Expect != nil {
			require.Equal(t, *q.Expect, j.Result, q.Name)
		}
		require.Positive(t, j.Trace.Passes, q.Name)
	}
}

func TestQueryFileValidation(t *testing.T) {
	_, err := ParseQueries([]byte("queries: []"), "q.yaml")
	require.ErrorContains(t, err, "no queries")

	_, err = ParseQueries([]byte("queries: [{sub: Int}]"), "q.yaml")
	require.ErrorContains(t, err, "sub and sup are required")

	_, err = ParseQueries([]byte("queries: [{sub: Int, sup: null}]"), "q.yaml")
	require.ErrorContains(t, err, "sub and sup are required")

	qf, err := ParseQueries([]byte("queries: [{sub: Int, sup: Real}]"), "dir/q.yaml")
	require.NoError(t, err)
	require.Equal(t, "queries[0]", qf.Queries[0].Name)
	require.Empty(t, qf.Lattice)

	l := loadTestLattice(t)
	j, err := l.Judge(&qf.Queries[0].Sub, &qf.Queries[0].Sup)
	require.NoError(t, err)
	require.True(t, j.Result)
}

func TestJudgeText(t *testing.T) {
	l := loadTestLattice(t)
	j, err := l.JudgeText("{Array: [[Int, Float]]}", "{where: [{name: x, upper: Real}], body: {Array: [x]}}")
	require.NoError(t, err)
	require.True(t, j.Result)

	_, err = l.JudgeText("Int", "{Seq: [Nope]}")
	require.ErrorContains(t, err, "sup:")
}

func TestImportGoPackages(t *testing.T) {
	if testing.Short() {
		t.Skip("loads packages with the go command")
	}
	cfg, err := ImportGoPackages(".", "sync/atomic")
	require.NoError(t, err)

	var found *TypeDecl
	for i := range cfg.Types {
		if cfg.Types[i].Name == "atomic.Pointer" {
			found = &cfg.Types[i]
		}
	}
	require.NotNil(t, found, "atomic.Pointer not imported: %# v", pretty.Formatter(cfg.Types))
	require.Len(t, found.Params, 1)
	require.Equal(t, "T", found.Params[0].Name)
	require.Equal(t, "invariant", found.Params[0].Variance)

	l, err := Build(cfg)
	require.NoError(t, err)
	p, ok := l.Lookup("atomic.Pointer")
	require.True(t, ok)
	require.Equal(t, typesystem.Invariant, p.VarianceAt(0))
}

func mustDoc(t *testing.T, l *Lattice, doc string) typesystem.Type {
	t.Helper()
	typ, err := l.ParseDocument(doc)
	require.NoError(t, err)
	return typ
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
