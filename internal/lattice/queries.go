package lattice

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/funvibe/typelattice/internal/typesystem"
	"gopkg.in/yaml.v3"
)

// QueryFile is a batch of subtype questions against one lattice.
type QueryFile struct {
	// Lattice is the declaration file, relative to the query file.
	// Empty means the caller decides (flag or FindConfig).
	Lattice string `yaml:"lattice,omitempty"`

	Queries []Query `yaml:"queries"`
}

// Query asks whether Sub <: Sup.
type Query struct {
	Name   string    `yaml:"name,omitempty"`
	Sub    yaml.Node `yaml:"sub"`
	Sup    yaml.Node `yaml:"sup"`
	Expect *bool     `yaml:"expect,omitempty"`
}

// Judgment is the outcome of one question.
type Judgment struct {
	Sub    typesystem.Type
	Sup    typesystem.Type
	Result bool
	Trace  typesystem.Trace
}

// LoadQueries reads and parses a query file.
func LoadQueries(path string) (*QueryFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading queries %s: %w", path, err)
	}
	return ParseQueries(data, path)
}

// ParseQueries parses query file content. A relative lattice path is
// resolved against the directory of path.
func ParseQueries(data []byte, path string) (*QueryFile, error) {
	var qf QueryFile
	if err := yaml.Unmarshal(data, &qf); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	if len(qf.Queries) == 0 {
		return nil, fmt.Errorf("%s: no queries", path)
	}
	for i := range qf.Queries {
		q := &qf.Queries[i]
		if !isSet(&q.Sub) || !isSet(&q.Sup) {
			return nil, fmt.Errorf("%s: queries[%d]: sub and sup are required", path, i)
		}
		if q.Name == "" {
			q.Name = fmt.Sprintf("queries[%d]", i)
		}
	}
	if qf.Lattice != "" && !filepath.IsAbs(qf.Lattice) {
		qf.Lattice = filepath.Join(filepath.Dir(path), qf.Lattice)
	}
	return &qf, nil
}

// Judge decodes both documents and decides sub <: sup.
func (l *Lattice) Judge(sub, sup *yaml.Node) (Judgment, error) {
	x, err := l.Decode(sub)
	if err != nil {
		return Judgment{}, fmt.Errorf("sub: %w", err)
	}
	y, err := l.Decode(sup)
	if err != nil {
		return Judgment{}, fmt.Errorf("sup: %w", err)
	}
	return l.JudgeTypes(x, y)
}

// JudgeTypes decides x <: y for already decoded types.
func (l *Lattice) JudgeTypes(x, y typesystem.Type) (Judgment, error) {
	ok, tr, err := typesystem.Check(x, y)
	if err != nil {
		return Judgment{}, err
	}
	return Judgment{Sub: x, Sup: y, Result: ok, Trace: tr}, nil
}

// JudgeText is Judge for documents given as YAML text.
func (l *Lattice) JudgeText(sub, sup string) (Judgment, error) {
	x, err := l.ParseDocument(sub)
	if err != nil {
		return Judgment{}, fmt.Errorf("sub: %w", err)
	}
	y, err := l.ParseDocument(sup)
	if err != nil {
		return Judgment{}, fmt.Errorf("sup: %w", err)
	}
	return l.JudgeTypes(x, y)
}
