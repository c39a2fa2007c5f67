// Package apidiff detects refactorings of exported Go API between two module
// trees using golang.org/x/exp/apidiff.
//
// apidiff reports removals, additions and type changes per package. Pairs of
// a removal and an addition with the same kind and type are reported as
// renames when they share a package and as moves when they share a name.
// Type changes of functions and methods become signature changes.
package apidiff

import (
	"context"
	"fmt"
	"go/token"
	"go/types"
	"io"
	"log/slog"
	"sort"
	"strings"

	"github.com/fwojciec/untangle"
	"github.com/fwojciec/untangle/golang"
	xapidiff "golang.org/x/exp/apidiff"
	"golang.org/x/sync/errgroup"
	"golang.org/x/tools/go/packages"
)

// Compile-time interface verification.
var _ untangle.RefactoringDetector = (*Detector)(nil)

// Refactoring types.
const (
	TypeRename          = "Rename"
	TypeMove            = "Move"
	TypeChangeSignature = "Change Signature"
	TypeChangeType      = "Change Type"
)

// Detector finds refactorings of exported declarations.
type Detector struct {
	logger *slog.Logger
}

// NewDetector returns a Detector. A nil logger discards output.
func NewDetector(logger *slog.Logger) *Detector {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Detector{logger: logger}
}

// tree is a loaded module tree.
type tree struct {
	root string
	pkgs map[string]*packages.Package
}

// entity is one declaration named in an apidiff change.
type entity struct {
	pkg    *packages.Package
	target string
	obj    types.Object
}

// Detect loads both trees and compares the packages they have in common.
func (d *Detector) Detect(ctx context.Context, baseDir, currentDir string) ([]untangle.Refactoring, error) {
	var base, current tree
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		base, err = load(gctx, baseDir)
		return err
	})
	g.Go(func() (err error) {
		current, err = load(gctx, currentDir)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var removed, added []entity
	var refs []untangle.Refactoring
	for _, path := range commonPaths(base.pkgs, current.pkgs) {
		oldPkg, newPkg := base.pkgs[path], current.pkgs[path]
		report := xapidiff.Changes(oldPkg.Types, newPkg.Types)
		for _, ch := range report.Changes {
			target, rest, ok := strings.Cut(ch.Message, ":")
			if !ok {
				continue
			}
			target, rest = strings.TrimSpace(target), strings.TrimSpace(rest)
			switch {
			case rest == "removed":
				if obj := lookup(oldPkg.Types, target); obj != nil {
					removed = append(removed, entity{pkg: oldPkg, target: target, obj: obj})
				}
			case rest == "added":
				if obj := lookup(newPkg.Types, target); obj != nil {
					added = append(added, entity{pkg: newPkg, target: target, obj: obj})
				}
			case strings.HasPrefix(rest, "changed from "):
				oldObj, newObj := lookup(oldPkg.Types, target), lookup(newPkg.Types, target)
				if oldObj == nil || newObj == nil {
					continue
				}
				if r, ok := changed(base, current, entity{oldPkg, target, oldObj}, entity{newPkg, target, newObj}, rest); ok {
					refs = append(refs, r)
				}
			}
		}
	}
	refs = append(refs, pair(base, current, removed, added)...)
	d.logger.Debug("api refactorings", "base", baseDir, "current", currentDir,
		"removed", len(removed), "added", len(added), "refactorings", len(refs))
	return refs, nil
}

func load(ctx context.Context, dir string) (tree, error) {
	root, err := golang.Root(dir)
	if err != nil {
		return tree{}, err
	}
	pkgs, err := golang.Load(ctx, root)
	if err != nil {
		return tree{}, err
	}
	t := tree{root: root, pkgs: make(map[string]*packages.Package, len(pkgs))}
	for _, p := range pkgs {
		if p.Types == nil || p.Fset == nil {
			continue
		}
		t.pkgs[p.PkgPath] = p
	}
	return t, nil
}

func commonPaths(a, b map[string]*packages.Package) []string {
	var paths []string
	for path := range a {
		if _, ok := b[path]; ok {
			paths = append(paths, path)
		}
	}
	sort.Strings(paths)
	return paths
}

// changed turns a type change into a signature or type refactoring.
func changed(base, current tree, before, after entity, rest string) (untangle.Refactoring, bool) {
	left, okLeft := codeRange(base, before, untangle.LeftSide)
	right, okRight := codeRange(current, after, untangle.RightSide)
	if !okLeft || !okRight {
		return untangle.Refactoring{}, false
	}
	typ := TypeChangeType
	if _, ok := after.obj.(*types.Func); ok {
		typ = TypeChangeSignature
	}
	return untangle.Refactoring{
		Type:        typ,
		Description: fmt.Sprintf("%s %s in %s: %s", kindName(after.obj), after.target, after.pkg.PkgPath, rest),
		Ranges:      []untangle.CodeRange{left, right},
	}, true
}

// pair matches removals with additions. Each addition is used at most once,
// in report order.
func pair(base, current tree, removed, added []entity) []untangle.Refactoring {
	used := make([]bool, len(added))
	var refs []untangle.Refactoring
	for _, r := range removed {
		for i, a := range added {
			if used[i] || kindName(r.obj) != kindName(a.obj) || signature(r) != signature(a) {
				continue
			}
			samePkg := r.pkg.PkgPath == a.pkg.PkgPath
			sameName := r.obj.Name() == a.obj.Name()
			var typ, desc string
			switch {
			case samePkg && !sameName:
				typ = TypeRename
				desc = fmt.Sprintf("Rename %s %s to %s in %s", kindName(r.obj), r.target, a.target, a.pkg.PkgPath)
			case !samePkg && sameName:
				typ = TypeMove
				desc = fmt.Sprintf("Move %s %s from %s to %s", kindName(r.obj), r.target, r.pkg.PkgPath, a.pkg.PkgPath)
			default:
				continue
			}
			left, okLeft := codeRange(base, r, untangle.LeftSide)
			right, okRight := codeRange(current, a, untangle.RightSide)
			if !okLeft || !okRight {
				continue
			}
			used[i] = true
			refs = append(refs, untangle.Refactoring{
				Type:        typ + " " + kindName(r.obj),
				Description: desc,
				Ranges:      []untangle.CodeRange{left, right},
			})
			break
		}
	}
	return refs
}

func codeRange(t tree, e entity, side untangle.RangeSide) (untangle.CodeRange, bool) {
	path, lines, ok := golang.Locate(e.pkg, t.root, e.obj.Pos())
	if !ok {
		return untangle.CodeRange{}, false
	}
	return untangle.CodeRange{Side: side, Path: path, StartLine: lines.Start, EndLine: lines.End}, true
}

// signature renders the type of e relative to its own package, dropping
// method receivers and parameter names.
func signature(e entity) string {
	typ := e.obj.Type()
	if sig, ok := typ.(*types.Signature); ok {
		typ = types.NewSignatureType(nil, nil, nil, unnamed(sig.Params()), unnamed(sig.Results()), sig.Variadic())
	}
	if _, ok := e.obj.(*types.TypeName); ok {
		typ = typ.Underlying()
	}
	return types.TypeString(typ, types.RelativeTo(e.pkg.Types))
}

func unnamed(t *types.Tuple) *types.Tuple {
	vars := make([]*types.Var, t.Len())
	for i := range vars {
		vars[i] = types.NewParam(token.NoPos, nil, "", t.At(i).Type())
	}
	return types.NewTuple(vars...)
}

func kindName(obj types.Object) string {
	switch o := obj.(type) {
	case *types.Func:
		if sig, ok := o.Type().(*types.Signature); ok && sig.Recv() != nil {
			return "Method"
		}
		return "Function"
	case *types.TypeName:
		if _, ok := o.Type().Underlying().(*types.Interface); ok {
			return "Interface"
		}
		return "Type"
	case *types.Const:
		return "Constant"
	case *types.Var:
		if o.IsField() {
			return "Field"
		}
		return "Variable"
	}
	return "Declaration"
}

// lookup resolves an apidiff target such as "F", "T.M" or "(*T).M".
func lookup(pkg *types.Package, target string) types.Object {
	target = strings.NewReplacer("(", "", ")", "", "*", "").Replace(target)
	parts := strings.Split(target, ".")
	switch len(parts) {
	case 1:
		return pkg.Scope().Lookup(parts[0])
	case 2:
		tn, _ := pkg.Scope().Lookup(parts[0]).(*types.TypeName)
		if tn == nil {
			return nil
		}
		obj, _, _ := types.LookupFieldOrMethod(types.NewPointer(tn.Type()), true, pkg, parts[1])
		return obj
	}
	return nil
}
