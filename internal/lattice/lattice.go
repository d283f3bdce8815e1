// Package lattice holds the nominal side of the subtype lattice: the
// registry of declared type names with their parameters, variance and
// supertypes, and the structured YAML documents used to write types down.
//
// The package handles:
//   - Parsing and validating lattice.yaml declaration files
//   - Decoding type documents against a registry
//   - Query files pairing two documents with an expected answer
//   - Deriving declarations from generic Go types via go/packages
package lattice

import (
	"sort"
	"strings"
	"sync"

	"github.com/funvibe/typelattice/internal/config"
	"github.com/funvibe/typelattice/internal/typesystem"
	"github.com/hashicorp/go-set/v3"
	"github.com/smasher164/xid"
)

// Lattice is a registry of type names. It is safe for concurrent use;
// readers never block each other.
type Lattice struct {
	mu    sync.RWMutex
	names map[string]*typesystem.TypeName
}

func New() *Lattice {
	return &Lattice{names: make(map[string]*typesystem.TypeName)}
}

// Declare registers n. The name must be a (possibly dotted) identifier not
// already declared and not one of the built-in names.
func (l *Lattice) Declare(n *typesystem.TypeName) error {
	if err := validName(n.Name); err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, dup := l.names[n.Name]; dup {
		return NewDeclError(n.Name, "already declared")
	}
	l.names[n.Name] = n
	return nil
}

func (l *Lattice) Lookup(name string) (*typesystem.TypeName, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	n, ok := l.names[name]
	return n, ok
}

// Apply instantiates a declared name, checking arity.
func (l *Lattice) Apply(name string, params ...typesystem.Type) (*typesystem.DataType, error) {
	n, ok := l.Lookup(name)
	if !ok {
		return nil, NewDeclError(name, "not declared")
	}
	if len(params) != len(n.Params) {
		return nil, NewDeclError(name, "takes %d parameters, got %d", len(n.Params), len(params))
	}
	return typesystem.NewDataType(n, params...), nil
}

// Names returns the declared names in sorted order.
func (l *Lattice) Names() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]string, 0, len(l.names))
	for name := range l.names {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Ancestors returns the chain of declared supertype names of name, nearest
// first. Any is not included.
func (l *Lattice) Ancestors(name string) ([]string, error) {
	n, ok := l.Lookup(name)
	if !ok {
		return nil, NewDeclError(name, "not declared")
	}
	seen := set.New[*typesystem.TypeName](0)
	seen.Insert(n)
	var out []string
	for n.Super != nil {
		dt, ok := n.Super.(*typesystem.DataType)
		if !ok {
			break
		}
		n = dt.Name
		if !seen.Insert(n) {
			return out, NewDeclError(name, "supertype cycle through %s", n.Name)
		}
		out = append(out, n.Name)
	}
	return out, nil
}

// checkCycles verifies that no supertype chain returns to its start.
func (l *Lattice) checkCycles() error {
	for _, name := range l.Names() {
		if _, err := l.Ancestors(name); err != nil {
			return err
		}
	}
	return nil
}

func validName(name string) error {
	if name == "" {
		return NewDeclError(name, "empty name")
	}
	switch name {
	case config.AnyTypeName, config.BottomTypeName, config.UnionTypeName:
		return NewDeclError(name, "reserved name")
	}
	for _, seg := range strings.Split(name, ".") {
		if !isIdent(seg) {
			return NewDeclError(name, "not an identifier")
		}
	}
	return nil
}

func isIdent(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		if i == 0 {
			if r != '_' && !xid.Start(r) {
				return false
			}
			continue
		}
		if !xid.Continue(r) {
			return false
		}
	}
	return true
}
