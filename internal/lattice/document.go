package lattice

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/funvibe/typelattice/internal/config"
	"github.com/funvibe/typelattice/internal/typesystem"
	"github.com/samber/lo"
	"gopkg.in/yaml.v3"
)

// Scope maps variable names to the variables introduced by enclosing
// where-clauses or by a declaration's parameter list.
type Scope struct {
	parent *Scope
	vars   map[string]*typesystem.TypeVar
}

func NewScope(parent *Scope) *Scope {
	return &Scope{parent: parent, vars: make(map[string]*typesystem.TypeVar)}
}

func (s *Scope) Define(v *typesystem.TypeVar) {
	s.vars[v.Name] = v
}

// Lookup searches s and its parents, innermost first. A nil scope is empty.
func (s *Scope) Lookup(name string) (*typesystem.TypeVar, bool) {
	for sc := s; sc != nil; sc = sc.parent {
		if v, ok := sc.vars[name]; ok {
			return v, true
		}
	}
	return nil, false
}

var documentKeys = map[string]bool{
	"name": true, "params": true, "union": true, "where": true,
	"body": true, "value": true, "var": true,
}

// ParseDocument decodes a type document given as YAML text, e.g.
// "{Pair: [Int, Real]}" or "{where: [{name: T, upper: Real}], body: {Seq: [T]}}".
func (l *Lattice) ParseDocument(text string) (typesystem.Type, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal([]byte(text), &doc); err != nil {
		return nil, fmt.Errorf("parsing type document: %w", err)
	}
	if doc.Kind == yaml.DocumentNode && len(doc.Content) == 1 {
		return l.Decode(doc.Content[0])
	}
	return l.Decode(&doc)
}

// Decode decodes a type document with no variables in scope.
func (l *Lattice) Decode(node *yaml.Node) (typesystem.Type, error) {
	return l.DecodeIn(node, nil)
}

// DecodeIn decodes a type document with the given variables in scope.
func (l *Lattice) DecodeIn(node *yaml.Node, scope *Scope) (typesystem.Type, error) {
	if node == nil || node.Kind == 0 {
		return nil, &DocumentError{Msg: "missing type document"}
	}
	switch node.Kind {
	case yaml.DocumentNode:
		if len(node.Content) != 1 {
			return nil, docErr(node, "empty document")
		}
		return l.DecodeIn(node.Content[0], scope)
	case yaml.AliasNode:
		return l.DecodeIn(node.Alias, scope)
	case yaml.ScalarNode:
		return l.decodeScalar(node, scope)
	case yaml.SequenceNode:
		// a bare list is a union
		return l.decodeUnion(node, scope)
	case yaml.MappingNode:
		return l.decodeMapping(node, scope)
	}
	return nil, docErr(node, "unexpected node")
}

func (l *Lattice) decodeScalar(node *yaml.Node, scope *Scope) (typesystem.Type, error) {
	if node.Style&(yaml.DoubleQuotedStyle|yaml.SingleQuotedStyle) != 0 {
		return typesystem.NewConst(node.Value), nil
	}
	switch node.ShortTag() {
	case "!!int":
		n, err := strconv.ParseInt(node.Value, 0, 64)
		if err != nil {
			return nil, docErr(node, "bad integer %q", node.Value)
		}
		return typesystem.NewConst(n), nil
	case "!!float":
		var f float64
		if err := node.Decode(&f); err != nil {
			return nil, docErr(node, "bad float %q", node.Value)
		}
		return typesystem.NewConst(f), nil
	case "!!bool":
		var b bool
		if err := node.Decode(&b); err != nil {
			return nil, docErr(node, "bad bool %q", node.Value)
		}
		return typesystem.NewConst(b), nil
	case "!!null":
		return nil, docErr(node, "null is not a type")
	}
	return l.named(node, node.Value, nil, scope)
}

// named resolves a name: a variable in scope, a built-in, or a declared type.
func (l *Lattice) named(node *yaml.Node, name string, params []*yaml.Node, scope *Scope) (typesystem.Type, error) {
	if scope != nil && len(params) == 0 {
		if v, ok := scope.Lookup(name); ok {
			return v, nil
		}
	}
	switch name {
	case config.AnyTypeName:
		return typesystem.Any, nil
	case config.BottomTypeName:
		return typesystem.Bottom, nil
	case config.UnionTypeName:
		if len(params) == 0 {
			return typesystem.Bottom, nil
		}
		ts, err := l.decodeAll(params, scope)
		if err != nil {
			return nil, err
		}
		return typesystem.NewUnion(ts...), nil
	}
	n, ok := l.Lookup(name)
	if !ok {
		return nil, docErr(node, "unknown type %s", name)
	}
	if len(params) != len(n.Params) {
		return nil, docErr(node, "%s takes %d parameters, got %d", name, len(n.Params), len(params))
	}
	ts, err := l.decodeAll(params, scope)
	if err != nil {
		return nil, err
	}
	return typesystem.NewDataType(n, ts...), nil
}

func (l *Lattice) decodeAll(nodes []*yaml.Node, scope *Scope) ([]typesystem.Type, error) {
	out := make([]typesystem.Type, len(nodes))
	for i, n := range nodes {
		t, err := l.DecodeIn(n, scope)
		if err != nil {
			return nil, err
		}
		out[i] = t
	}
	return out, nil
}

func (l *Lattice) decodeUnion(node *yaml.Node, scope *Scope) (typesystem.Type, error) {
	ts, err := l.decodeAll(node.Content, scope)
	if err != nil {
		return nil, err
	}
	return typesystem.NewUnion(ts...), nil
}

func (l *Lattice) decodeMapping(node *yaml.Node, scope *Scope) (typesystem.Type, error) {
	fields := make(map[string]*yaml.Node, len(node.Content)/2)
	for i := 0; i+1 < len(node.Content); i += 2 {
		fields[node.Content[i].Value] = node.Content[i+1]
	}

	// shorthand {Name: [params...]}
	if len(fields) == 1 {
		key := node.Content[0].Value
		if !documentKeys[key] {
			return l.named(node, key, listOf(node.Content[1]), scope)
		}
	}

	if v, ok := fields["value"]; ok {
		if v.Kind != yaml.ScalarNode {
			return nil, docErr(v, "value must be a scalar")
		}
		if v.ShortTag() == "!!str" {
			return typesystem.NewConst(v.Value), nil
		}
		return l.decodeScalar(v, nil)
	}
	if v, ok := fields["var"]; ok {
		if tv, found := scope.Lookup(v.Value); found {
			return tv, nil
		}
		return nil, docErr(v, "variable %s is not in scope", v.Value)
	}
	if v, ok := fields["union"]; ok {
		if v.Kind != yaml.SequenceNode {
			return nil, docErr(v, "union takes a list")
		}
		return l.decodeUnion(v, scope)
	}
	if v, ok := fields["where"]; ok {
		body, ok := fields["body"]
		if !ok {
			return nil, docErr(node, "where without body")
		}
		return l.decodeWhere(v, body, scope)
	}
	if v, ok := fields["name"]; ok {
		var params []*yaml.Node
		if p, ok := fields["params"]; ok {
			params = listOf(p)
		}
		return l.named(v, v.Value, params, scope)
	}
	keys := lo.Keys(fields)
	sort.Strings(keys)
	return nil, docErr(node, "cannot read a type from mapping with keys %v", keys)
}

func (l *Lattice) decodeWhere(vars, body *yaml.Node, scope *Scope) (typesystem.Type, error) {
	inner := NewScope(scope)
	tvs := make([]*typesystem.TypeVar, 0, len(listOf(vars)))
	for _, vn := range listOf(vars) {
		tv, err := l.decodeVar(vn, inner)
		if err != nil {
			return nil, err
		}
		inner.Define(tv)
		tvs = append(tvs, tv)
	}
	b, err := l.DecodeIn(body, inner)
	if err != nil {
		return nil, err
	}
	return typesystem.NewUnionAll(b, tvs...), nil
}

// decodeVar reads "T" or {name: T, lower: ..., upper: ...}. Bounds may refer
// to variables defined earlier in the same where-list.
func (l *Lattice) decodeVar(node *yaml.Node, scope *Scope) (*typesystem.TypeVar, error) {
	if node.Kind == yaml.ScalarNode {
		if !isIdent(node.Value) {
			return nil, docErr(node, "bad variable name %q", node.Value)
		}
		return typesystem.NewTypeVar(node.Value, nil, nil), nil
	}
	if node.Kind != yaml.MappingNode {
		return nil, docErr(node, "variable must be a name or a mapping")
	}
	var name string
	var lower, upper typesystem.Type
	for i := 0; i+1 < len(node.Content); i += 2 {
		k, v := node.Content[i], node.Content[i+1]
		var err error
		switch k.Value {
		case "name":
			name = v.Value
		case "lower":
			lower, err = l.DecodeIn(v, scope)
		case "upper":
			upper, err = l.DecodeIn(v, scope)
		default:
			return nil, docErr(k, "unknown variable field %s", k.Value)
		}
		if err != nil {
			return nil, err
		}
	}
	if !isIdent(name) {
		return nil, docErr(node, "bad variable name %q", name)
	}
	return typesystem.NewTypeVar(name, lower, upper), nil
}

func listOf(node *yaml.Node) []*yaml.Node {
	if node == nil {
		return nil
	}
	if node.Kind == yaml.SequenceNode {
		return node.Content
	}
	return []*yaml.Node{node}
}

func docErr(node *yaml.Node, format string, args ...any) *DocumentError {
	return &DocumentError{Line: node.Line, Column: node.Column, Msg: fmt.Sprintf(format, args...)}
}
