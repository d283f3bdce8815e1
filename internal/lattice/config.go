package lattice

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/funvibe/typelattice/internal/config"
	"github.com/funvibe/typelattice/internal/typesystem"
	"github.com/hashicorp/go-set/v3"
	"gopkg.in/yaml.v3"
)

// Config represents the top-level lattice.yaml declaration file.
type Config struct {
	// Types lists the nominal type declarations. Order does not matter;
	// supertypes and bounds may refer to types declared later.
	Types []TypeDecl `yaml:"types"`
}

// TypeDecl declares one nominal type.
type TypeDecl struct {
	// Name is the type name, an identifier or a dotted path of identifiers.
	Name string `yaml:"name"`

	// Params are the declared parameters, in order.
	Params []ParamDecl `yaml:"params,omitempty"`

	// Super is the declared supertype as a type document over Params.
	// It must be a declared type; omitted or null means Any.
	//
	//   - name: Vector
	//     params: [T]
	//     super: {NDArray: [T, 1]}
	Super yaml.Node `yaml:"super,omitempty"`

	// Doc is free text shown by `typelattice import-go` and ignored otherwise.
	Doc string `yaml:"doc,omitempty"`
}

// ParamDecl declares one type parameter. It may be written as a bare name.
type ParamDecl struct {
	Name string `yaml:"name"`

	// Variance is "covariant" or "invariant" (the default).
	Variance string `yaml:"variance,omitempty"`

	// Lower and Upper are bound documents; omitted means Bottom and Any.
	Lower yaml.Node `yaml:"lower,omitempty"`
	Upper yaml.Node `yaml:"upper,omitempty"`
}

// isSet reports whether a document field was given. yaml.v3 leaves an
// absent field as the zero Node and an empty one as !!null.
func isSet(n *yaml.Node) bool {
	return n.Kind != 0 && n.ShortTag() != "!!null"
}

func (p *ParamDecl) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind == yaml.ScalarNode {
		p.Name = value.Value
		return nil
	}
	type plain ParamDecl
	return value.Decode((*plain)(p))
}

// LoadConfig reads and parses a lattice.yaml file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading lattice %s: %w", path, err)
	}
	return ParseConfig(data, path)
}

// ParseConfig parses lattice.yaml content from bytes.
// The path argument is used only for error messages.
func ParseConfig(data []byte, path string) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	if err := cfg.validate(path); err != nil {
		return nil, err
	}
	cfg.setDefaults()
	return &cfg, nil
}

// FindConfig searches for lattice.yaml starting from dir and walking up
// to parent directories. Returns an empty path and nil error if not found.
func FindConfig(dir string) (string, error) {
	dir, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("resolving directory: %w", err)
	}
	for {
		for _, ext := range config.LatticeFileExtensions {
			candidate := filepath.Join(dir, "lattice"+ext)
			if _, err := os.Stat(candidate); err == nil {
				return candidate, nil
			}
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", nil
		}
		dir = parent
	}
}

// validate checks the declarations for errors that do not need the types
// themselves to be built.
func (c *Config) validate(path string) error {
	if len(c.Types) == 0 {
		return fmt.Errorf("%s: no types declared", path)
	}
	seen := set.New[string](len(c.Types))
	for i, td := range c.Types {
		if td.Name == "" {
			return fmt.Errorf("%s: types[%d]: name is required", path, i)
		}
		if err := validName(td.Name); err != nil {
			return fmt.Errorf("%s: types[%d]: %w", path, i, err)
		}
		if !seen.Insert(td.Name) {
			return fmt.Errorf("%s: types[%d]: %s declared twice", path, i, td.Name)
		}
		params := set.New[string](len(td.Params))
		for j, p := range td.Params {
			if !isIdent(p.Name) {
				return fmt.Errorf("%s: %s: params[%d]: bad name %q", path, td.Name, j, p.Name)
			}
			if !params.Insert(p.Name) {
				return fmt.Errorf("%s: %s: params[%d]: %s declared twice", path, td.Name, j, p.Name)
			}
			if _, err := typesystem.ParseVariance(p.Variance); err != nil {
				return fmt.Errorf("%s: %s: params[%d]: %w", path, td.Name, j, err)
			}
		}
	}
	return nil
}

func (c *Config) setDefaults() {
	for i := range c.Types {
		for j := range c.Types[i].Params {
			if c.Types[i].Params[j].Variance == "" {
				c.Types[i].Params[j].Variance = typesystem.Invariant.String()
			}
		}
	}
}

// Build declares every type of c in a new lattice. Names are registered
// first so that bounds and supertypes can refer to any of them, including
// the type being declared.
func Build(c *Config) (*Lattice, error) {
	l := New()
	if err := l.Load(c); err != nil {
		return nil, err
	}
	return l, nil
}

// Load adds the declarations of c to l.
func (l *Lattice) Load(c *Config) error {
	names := make([]*typesystem.TypeName, len(c.Types))
	for i, td := range c.Types {
		n := &typesystem.TypeName{
			Name:     td.Name,
			Params:   make([]*typesystem.TypeVar, len(td.Params)),
			Variance: make([]typesystem.Variance, len(td.Params)),
		}
		for j, p := range td.Params {
			n.Params[j] = typesystem.NewTypeVar(p.Name, nil, nil)
			v, err := typesystem.ParseVariance(p.Variance)
			if err != nil {
				return NewDeclError(td.Name, "%v", err)
			}
			n.Variance[j] = v
		}
		if err := l.Declare(n); err != nil {
			return err
		}
		names[i] = n
	}

	for i, td := range c.Types {
		n := names[i]
		scope := NewScope(nil)
		for _, v := range n.Params {
			scope.Define(v)
		}
		for j, p := range td.Params {
			v := n.Params[j]
			if isSet(&p.Lower) {
				t, err := l.DecodeIn(&p.Lower, scope)
				if err != nil {
					return fmt.Errorf("%s: lower bound of %s: %w", td.Name, p.Name, err)
				}
				v.Lower = t
			}
			if isSet(&p.Upper) {
				t, err := l.DecodeIn(&p.Upper, scope)
				if err != nil {
					return fmt.Errorf("%s: upper bound of %s: %w", td.Name, p.Name, err)
				}
				v.Upper = t
			}
		}
		if isSet(&td.Super) {
			t, err := l.DecodeIn(&td.Super, scope)
			if err != nil {
				return fmt.Errorf("%s: supertype: %w", td.Name, err)
			}
			switch t.(type) {
			case *typesystem.DataType:
				n.Super = t
			case *typesystem.AnyType:
			default:
				return NewDeclError(td.Name, "supertype %s is not a declared type", t)
			}
		}
	}
	return l.checkCycles()
}
