package lattice

import (
	"fmt"
	"go/types"
	"os"
	"sort"
	"strings"

	"github.com/samber/lo"
	"golang.org/x/tools/go/packages"
)

// ImportGoPackages derives declarations from the exported generic named
// types of the given Go packages. Go type parameters are invariant, so
// every parameter is declared invariant; constraints are not carried over.
// Types are named <package name>.<type name>.
func ImportGoPackages(dir string, patterns ...string) (*Config, error) {
	cfg := &packages.Config{
		Mode: packages.NeedName | packages.NeedTypes,
		Dir:  dir,
		Env:  append(os.Environ(), "GOWORK=off"),
	}
	pkgs, err := packages.Load(cfg, patterns...)
	if err != nil {
		return nil, fmt.Errorf("loading packages: %w", err)
	}

	var errs []string
	for _, pkg := range pkgs {
		for _, e := range pkg.Errors {
			errs = append(errs, fmt.Sprintf("%s: %s", pkg.PkgPath, e.Msg))
		}
	}
	if len(errs) > 0 {
		return nil, fmt.Errorf("package errors:\n  %s", strings.Join(errs, "\n  "))
	}

	out := &Config{}
	for _, pkg := range pkgs {
		if pkg.Types == nil {
			continue
		}
		scope := pkg.Types.Scope()
		names := scope.Names()
		sort.Strings(names)
		for _, name := range names {
			tn, ok := scope.Lookup(name).(*types.TypeName)
			if !ok || !tn.Exported() || tn.IsAlias() {
				continue
			}
			named, ok := tn.Type().(*types.Named)
			if !ok || named.TypeParams().Len() == 0 {
				continue
			}
			tparams := named.TypeParams()
			params := make([]ParamDecl, tparams.Len())
			for i := range params {
				params[i] = ParamDecl{Name: tparams.At(i).Obj().Name(), Variance: "invariant"}
			}
			out.Types = append(out.Types, TypeDecl{
				Name:   pkg.Name + "." + name,
				Params: params,
				Doc:    pkg.PkgPath + "." + name + constraintList(tparams),
			})
		}
	}
	if len(out.Types) == 0 {
		return nil, fmt.Errorf("no generic types in %s", strings.Join(patterns, " "))
	}
	return out, nil
}

func constraintList(tps *types.TypeParamList) string {
	list := make([]*types.TypeParam, tps.Len())
	for i := range list {
		list[i] = tps.At(i)
	}
	parts := lo.Map(list, func(tp *types.TypeParam, _ int) string {
		return tp.Obj().Name() + " " + types.TypeString(tp.Constraint(), nil)
	})
	return "[" + strings.Join(parts, ", ") + "]"
}
