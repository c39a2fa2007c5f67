package golang

import (
	"context"
	"errors"
	"go/ast"
	"go/types"
	"io"
	"log/slog"
	"sort"
	"strconv"
	"strings"

	"github.com/fwojciec/untangle"
	"golang.org/x/tools/go/packages"
)

// Compile-time interface verification.
var _ untangle.SourceParser = (*Parser)(nil)

// Parser turns a Go module into untangle source files. Structs and named
// non-interface types map to classes, interfaces to interfaces, and named
// basic types with typed constants to enums. Package-level functions,
// variables and constants are members without an owner type.
type Parser struct {
	logger *slog.Logger
}

// NewParser returns a Parser. A nil logger discards output.
func NewParser(logger *slog.Logger) *Parser {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Parser{logger: logger}
}

// Parse loads the module at root and returns its files in path order with
// paths relative to root. Files with syntax errors are returned with Err set.
func (p *Parser) Parse(ctx context.Context, root string) ([]untangle.SourceFile, error) {
	abs, err := Root(root)
	if err != nil {
		return nil, err
	}

	pkgs, err := Load(ctx, abs)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	ix := newIndex(pkgs)
	var files []untangle.SourceFile
	for _, pkg := range pkgs {
		for _, e := range pkg.Errors {
			p.logger.Warn("package error", "package", pkg.PkgPath, "kind", errorKindName(e.Kind), "pos", e.Pos, "error", e.Msg)
		}
		files = append(files, p.parsePackage(abs, pkg, ix)...)
	}
	sort.SliceStable(files, func(i, j int) bool { return files[i].Path < files[j].Path })
	p.logger.Debug("parsed go sources", "root", abs, "packages", len(pkgs), "files", len(files))
	return files, nil
}

func (p *Parser) parsePackage(root string, pkg *packages.Package, ix *index) []untangle.SourceFile {
	broken := parseErrors(pkg)
	var files []untangle.SourceFile
	for _, f := range pkg.Syntax {
		name := pkg.Fset.File(f.Pos()).Name()
		rel, ok := RelPath(root, name)
		if !ok {
			continue
		}
		if err, bad := broken[name]; bad {
			files = append(files, untangle.SourceFile{Path: rel, Package: pkg.PkgPath, Err: err})
			continue
		}
		if pkg.TypesInfo == nil {
			files = append(files, untangle.SourceFile{Path: rel, Package: pkg.PkgPath, Err: errors.New("no type information")})
			continue
		}
		w := &walker{ix: ix, pkg: pkg, file: f, path: rel}
		files = append(files, w.sourceFile())
	}
	return files
}

// parseErrors maps file names to their first syntax error.
func parseErrors(pkg *packages.Package) map[string]error {
	out := make(map[string]error)
	for _, e := range pkg.Errors {
		if e.Kind != packages.ParseError {
			continue
		}
		name := errorFile(e.Pos)
		if _, ok := out[name]; !ok && name != "" {
			out[name] = errors.New(e.Msg)
		}
	}
	return out
}

// errorFile strips ":line:col" from a packages.Error position.
func errorFile(pos string) string {
	for range 2 {
		i := strings.LastIndex(pos, ":")
		if i < 0 {
			break
		}
		if _, err := strconv.Atoi(pos[i+1:]); err != nil {
			break
		}
		pos = pos[:i]
	}
	return pos
}

func errorKindName(kind packages.ErrorKind) string {
	switch kind {
	case packages.ListError:
		return "list"
	case packages.ParseError:
		return "parse"
	case packages.TypeError:
		return "type"
	default:
		return "unknown"
	}
}

// index names every package-level object, method and field of the loaded
// packages so references across packages resolve to one qualified name.
type index struct {
	names      map[types.Object]string
	interfaces []*types.TypeName
	enums      map[*types.TypeName]bool
}

func newIndex(pkgs []*packages.Package) *index {
	ix := &index{
		names: make(map[types.Object]string),
		enums: make(map[*types.TypeName]bool),
	}
	for _, pkg := range pkgs {
		if pkg.Types == nil {
			continue
		}
		scope := pkg.Types.Scope()
		for _, name := range scope.Names() {
			obj := scope.Lookup(name)
			q := pkg.PkgPath + "." + name
			ix.names[obj] = q
			switch obj := obj.(type) {
			case *types.TypeName:
				ix.addType(obj, q)
			case *types.Const:
				if tn := namedOf(obj.Type()); tn != nil && tn.Pkg() == pkg.Types {
					if _, ok := tn.Type().Underlying().(*types.Basic); ok {
						ix.enums[tn] = true
					}
				}
			}
		}
	}
	return ix
}

func (ix *index) addType(obj *types.TypeName, q string) {
	if obj.IsAlias() {
		return
	}
	named, ok := obj.Type().(*types.Named)
	if !ok {
		return
	}
	for i := 0; i < named.NumMethods(); i++ {
		m := named.Method(i)
		ix.names[m] = q + "." + m.Name()
	}
	switch u := named.Underlying().(type) {
	case *types.Struct:
		for i := 0; i < u.NumFields(); i++ {
			f := u.Field(i)
			ix.names[f] = q + "." + f.Name()
		}
	case *types.Interface:
		for i := 0; i < u.NumExplicitMethods(); i++ {
			m := u.ExplicitMethod(i)
			ix.names[m] = q + "." + m.Name()
		}
		if u.IsMethodSet() && u.NumMethods() > 0 && named.TypeParams().Len() == 0 {
			ix.interfaces = append(ix.interfaces, obj)
		}
	}
}

func (ix *index) qualify(obj types.Object) string {
	if q, ok := ix.names[obj]; ok {
		return q
	}
	if obj.Pkg() == nil {
		return obj.Name()
	}
	return obj.Pkg().Path() + "." + obj.Name()
}

func (ix *index) kind(obj *types.TypeName) untangle.NodeKind {
	if _, ok := obj.Type().Underlying().(*types.Interface); ok {
		return untangle.NodeInterface
	}
	if ix.enums[obj] {
		return untangle.NodeEnum
	}
	return untangle.NodeClass
}

// implements returns the loaded interfaces that T or *T implements.
func (ix *index) implements(obj *types.TypeName) []string {
	named, ok := obj.Type().(*types.Named)
	if !ok || obj.IsAlias() || named.TypeParams().Len() > 0 {
		return nil
	}
	if _, ok := named.Underlying().(*types.Interface); ok {
		return nil
	}
	var out []string
	for _, iface := range ix.interfaces {
		it := iface.Type().Underlying().(*types.Interface)
		if types.Implements(named, it) || types.Implements(types.NewPointer(named), it) {
			out = append(out, ix.qualify(iface))
		}
	}
	return out
}

// namedOf returns the type name behind t, looking through pointers, aliases
// and instantiation.
func namedOf(t types.Type) *types.TypeName {
	t = types.Unalias(t)
	if p, ok := t.(*types.Pointer); ok {
		t = types.Unalias(p.Elem())
	}
	if named, ok := t.(*types.Named); ok {
		return named.Origin().Obj()
	}
	return nil
}

func origin(obj types.Object) types.Object {
	switch o := obj.(type) {
	case *types.Func:
		return o.Origin()
	case *types.Var:
		return o.Origin()
	}
	return obj
}

// walker extracts the declarations of one file.
type walker struct {
	ix   *index
	pkg  *packages.Package
	file *ast.File
	path string
}

func (w *walker) sourceFile() untangle.SourceFile {
	sf := untangle.SourceFile{Path: w.path, Package: w.pkg.PkgPath}
	for _, imp := range w.file.Imports {
		if path, err := strconv.Unquote(imp.Path.Value); err == nil {
			sf.Imports = append(sf.Imports, path)
		}
	}
	for _, decl := range w.file.Decls {
		switch d := decl.(type) {
		case *ast.FuncDecl:
			if m, ok := w.funcDecl(d); ok {
				sf.Members = append(sf.Members, m)
			}
		case *ast.GenDecl:
			for _, spec := range d.Specs {
				switch s := spec.(type) {
				case *ast.TypeSpec:
					t, members, ok := w.typeSpec(d, s)
					if ok {
						sf.Types = append(sf.Types, t)
						sf.Members = append(sf.Members, members...)
					}
				case *ast.ValueSpec:
					sf.Members = append(sf.Members, w.valueSpec(d, s)...)
				}
			}
		}
	}
	return sf
}

func (w *walker) lines(n ast.Node) untangle.LineRange {
	return lines(w.pkg.Fset, n)
}

// specLines covers the declaration keyword when the spec stands alone.
func (w *walker) specLines(d *ast.GenDecl, spec ast.Node) untangle.LineRange {
	if !d.Lparen.IsValid() {
		return w.lines(d)
	}
	return w.lines(spec)
}

func (w *walker) funcDecl(d *ast.FuncDecl) (untangle.MemberDecl, bool) {
	fn, ok := w.pkg.TypesInfo.Defs[d.Name].(*types.Func)
	if !ok {
		return untangle.MemberDecl{}, false
	}
	m := untangle.MemberDecl{
		Kind:          untangle.NodeMethod,
		Name:          d.Name.Name,
		QualifiedName: w.ix.qualify(fn),
		Path:          w.path,
		Lines:         w.lines(d),
	}
	if sig, ok := fn.Type().(*types.Signature); ok && sig.Recv() != nil {
		if tn := namedOf(sig.Recv().Type()); tn != nil {
			m.Owner = w.ix.qualify(tn)
		}
	}
	nodes := []ast.Node{d.Type}
	if d.Body != nil {
		nodes = append(nodes, d.Body)
	}
	m.Refs = w.refs(nodes...)
	return m, true
}

func (w *walker) typeSpec(d *ast.GenDecl, s *ast.TypeSpec) (untangle.TypeDecl, []untangle.MemberDecl, bool) {
	obj, ok := w.pkg.TypesInfo.Defs[s.Name].(*types.TypeName)
	if !ok {
		return untangle.TypeDecl{}, nil, false
	}
	q := w.ix.qualify(obj)
	t := untangle.TypeDecl{
		Kind:          w.ix.kind(obj),
		Name:          obj.Name(),
		QualifiedName: q,
		Path:          w.path,
		Lines:         w.specLines(d, s),
		Implements:    w.ix.implements(obj),
	}

	var members []untangle.MemberDecl
	switch typ := s.Type.(type) {
	case *ast.StructType:
		for _, field := range typ.Fields.List {
			idents := field.Names
			if len(idents) == 0 {
				if id := typeIdent(field.Type); id != nil {
					idents = []*ast.Ident{id}
				}
			}
			refs := w.refs(field.Type)
			for _, id := range idents {
				v, ok := w.pkg.TypesInfo.Defs[id].(*types.Var)
				if !ok {
					continue
				}
				members = append(members, untangle.MemberDecl{
					Kind:          untangle.NodeField,
					Name:          v.Name(),
					QualifiedName: q + "." + v.Name(),
					Owner:         q,
					Path:          w.path,
					Lines:         w.lines(field),
					Refs:          refs,
				})
				if v.Embedded() {
					if tn := namedOf(v.Type()); tn != nil {
						t.Extends = append(t.Extends, w.ix.qualify(tn))
					}
				}
			}
		}
	case *ast.InterfaceType:
		for _, field := range typ.Methods.List {
			if len(field.Names) == 0 {
				if tv, ok := w.pkg.TypesInfo.Types[field.Type]; ok {
					if tn := namedOf(tv.Type); tn != nil {
						t.Extends = append(t.Extends, w.ix.qualify(tn))
					}
				}
				continue
			}
			for _, id := range field.Names {
				fn, ok := w.pkg.TypesInfo.Defs[id].(*types.Func)
				if !ok {
					continue
				}
				members = append(members, untangle.MemberDecl{
					Kind:          untangle.NodeMethod,
					Name:          fn.Name(),
					QualifiedName: q + "." + fn.Name(),
					Owner:         q,
					Path:          w.path,
					Lines:         w.lines(field),
					Refs:          w.refs(field.Type),
				})
			}
		}
	}
	return t, members, true
}

func (w *walker) valueSpec(d *ast.GenDecl, s *ast.ValueSpec) []untangle.MemberDecl {
	var nodes []ast.Node
	if s.Type != nil {
		nodes = append(nodes, s.Type)
	}
	for _, v := range s.Values {
		nodes = append(nodes, v)
	}
	refs := w.refs(nodes...)

	var members []untangle.MemberDecl
	for _, id := range s.Names {
		obj := w.pkg.TypesInfo.Defs[id]
		if obj == nil {
			continue
		}
		m := untangle.MemberDecl{
			Kind:          untangle.NodeField,
			Name:          obj.Name(),
			QualifiedName: w.ix.qualify(obj),
			Path:          w.path,
			Lines:         w.specLines(d, s),
			Refs:          refs,
		}
		if c, ok := obj.(*types.Const); ok {
			if tn := namedOf(c.Type()); tn != nil && w.ix.enums[tn] && tn.Pkg() == c.Pkg() {
				m.Owner = w.ix.qualify(tn)
			}
		}
		members = append(members, m)
	}
	return members
}

// refs returns the references to loaded declarations made inside nodes.
func (w *walker) refs(nodes ...ast.Node) []untangle.Ref {
	var refs []untangle.Ref
	initialized := make(map[*ast.Ident]bool)
	for _, root := range nodes {
		ast.Inspect(root, func(n ast.Node) bool {
			switch n := n.(type) {
			case *ast.CompositeLit:
				if n.Type == nil {
					return true
				}
				id := typeIdent(n.Type)
				if id == nil {
					return true
				}
				if tn, ok := w.pkg.TypesInfo.Uses[id].(*types.TypeName); ok {
					if q, ok := w.ix.names[tn]; ok {
						refs = append(refs, untangle.Ref{Kind: untangle.EdgeInitializesObject, Target: q})
						initialized[id] = true
					}
				}
			case *ast.Ident:
				if initialized[n] {
					return true
				}
				obj := w.pkg.TypesInfo.Uses[n]
				if obj == nil {
					return true
				}
				q, ok := w.ix.names[origin(obj)]
				if !ok {
					return true
				}
				switch obj.(type) {
				case *types.Func:
					refs = append(refs, untangle.Ref{Kind: untangle.EdgeCallsMethod, Target: q})
				case *types.Var, *types.Const:
					refs = append(refs, untangle.Ref{Kind: untangle.EdgeAccessesField, Target: q})
				case *types.TypeName:
					refs = append(refs, untangle.Ref{Kind: untangle.EdgeDeclaresObject, Target: q})
				}
			}
			return true
		})
	}
	return refs
}

// typeIdent returns the identifier naming the type in a type expression.
func typeIdent(e ast.Expr) *ast.Ident {
	switch e := e.(type) {
	case *ast.Ident:
		return e
	case *ast.SelectorExpr:
		return e.Sel
	case *ast.StarExpr:
		return typeIdent(e.X)
	case *ast.IndexExpr:
		return typeIdent(e.X)
	case *ast.IndexListExpr:
		return typeIdent(e.X)
	case *ast.ParenExpr:
		return typeIdent(e.X)
	}
	return nil
}
