// Package golang parses Go source trees with full type information.
package golang

import (
	"context"
	"errors"
	"fmt"
	"go/ast"
	"go/token"
	"os"
	"path/filepath"
	"strings"

	"github.com/fwojciec/untangle"
	"golang.org/x/tools/go/ast/astutil"
	"golang.org/x/tools/go/packages"
)

// ErrLoad is returned when the packages of a tree cannot be listed at all.
var ErrLoad = errors.New("error loading packages")

// LoadMode is the information loaded for every package.
const LoadMode = packages.NeedName |
	packages.NeedFiles |
	packages.NeedCompiledGoFiles |
	packages.NeedImports |
	packages.NeedModule |
	packages.NeedTypes |
	packages.NeedSyntax |
	packages.NeedTypesInfo

// Load loads every package of the module rooted at dir. Per-package errors
// are left on the returned packages for the caller to inspect.
func Load(ctx context.Context, dir string) ([]*packages.Package, error) {
	env := append(os.Environ(), "GOWORK=off")
	env = withGoFlags(env, "-mod=readonly")

	cfg := &packages.Config{
		Context: ctx,
		Dir:     dir,
		Mode:    LoadMode,
		Env:     env,
	}
	pkgs, err := packages.Load(cfg, "./...")
	if err != nil {
		return nil, fmt.Errorf("%w in %s: %w", ErrLoad, dir, err)
	}
	return pkgs, nil
}

func withGoFlags(env []string, required string) []string {
	for i := range env {
		if !strings.HasPrefix(env[i], "GOFLAGS=") {
			continue
		}
		current := strings.TrimSpace(strings.TrimPrefix(env[i], "GOFLAGS="))
		if strings.Contains(current, required) {
			return env
		}
		if current == "" {
			env[i] = "GOFLAGS=" + required
			return env
		}
		env[i] = "GOFLAGS=" + current + " " + required
		return env
	}
	return append(env, "GOFLAGS="+required)
}

// DeclRange returns the lines of the innermost declaration in file that
// encloses pos: a function, a type or value spec, or a struct field. It
// returns a zero range when pos is outside every declaration.
func DeclRange(fset *token.FileSet, file *ast.File, pos token.Pos) untangle.LineRange {
	path, _ := astutil.PathEnclosingInterval(file, pos, pos)
	for _, n := range path {
		switch n.(type) {
		case *ast.FuncDecl, *ast.Field, *ast.ValueSpec, *ast.TypeSpec, *ast.GenDecl:
			return lines(fset, n)
		}
	}
	return untangle.LineRange{}
}

func lines(fset *token.FileSet, n ast.Node) untangle.LineRange {
	return untangle.LineRange{
		Start: fset.Position(n.Pos()).Line,
		End:   fset.Position(n.End()).Line,
	}
}

// Root returns the absolute, symlink-free form of dir.
func Root(dir string) (string, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", err
	}
	if resolved, err := filepath.EvalSymlinks(abs); err == nil {
		abs = resolved
	}
	return abs, nil
}

// RelPath returns name relative to root with forward slashes. It reports
// false for names outside root.
func RelPath(root, name string) (string, bool) {
	if resolved, err := filepath.EvalSymlinks(name); err == nil {
		name = resolved
	}
	rel, err := filepath.Rel(root, name)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", false
	}
	return filepath.ToSlash(rel), true
}

// Locate returns the root-relative file and the declaration lines of pos in
// pkg.
func Locate(pkg *packages.Package, root string, pos token.Pos) (string, untangle.LineRange, bool) {
	if !pos.IsValid() || pkg.Fset == nil {
		return "", untangle.LineRange{}, false
	}
	tf := pkg.Fset.File(pos)
	if tf == nil {
		return "", untangle.LineRange{}, false
	}
	for _, f := range pkg.Syntax {
		if pkg.Fset.File(f.Pos()) != tf {
			continue
		}
		rel, ok := RelPath(root, tf.Name())
		if !ok {
			return "", untangle.LineRange{}, false
		}
		r := DeclRange(pkg.Fset, f, pos)
		return rel, r, r.Start > 0
	}
	return "", untangle.LineRange{}, false
}
