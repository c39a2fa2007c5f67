package semantic

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path"
	"sort"

	"github.com/fwojciec/untangle"
)

// Builder builds the semantic graph of one version and tags nodes that fall
// inside a diff hunk. Each version gets its own Builder and Graph.
type Builder struct {
	version untangle.Version
	hunks   map[string][]*untangle.DiffHunk // Keyed by the same-version path
	logger  *slog.Logger
}

// NewBuilder returns a Builder for version v. Hunks are matched against
// nodes by their same-version side.
func NewBuilder(v untangle.Version, hunks []*untangle.DiffHunk, logger *slog.Logger) *Builder {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	byPath := make(map[string][]*untangle.DiffHunk)
	for _, h := range hunks {
		side := h.Side(v)
		if side.Empty() || side.Path == "" {
			continue
		}
		byPath[side.Path] = append(byPath[side.Path], h)
	}
	return &Builder{version: v, hunks: byPath, logger: logger}
}

// BuildFrom parses the source tree at root with parser and builds its graph.
func (b *Builder) BuildFrom(ctx context.Context, parser untangle.SourceParser, root string) (*Graph, error) {
	files, err := parser.Parse(ctx, root)
	if err != nil {
		return nil, fmt.Errorf("parse %s snapshot: %w", b.version, err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return b.Build(files), nil
}

type memberNode struct {
	decl untangle.MemberDecl
	node *Node
}

type typeNode struct {
	decl untangle.TypeDecl
	node *Node
}

// Build walks the declarations of files and returns the graph. Files that
// failed to parse are skipped.
func (b *Builder) Build(files []untangle.SourceFile) *Graph {
	g := NewGraph(b.version)

	files = b.usable(files)
	containers := make(map[string]*Node, len(files))
	var types []typeNode
	var members []memberNode

	// Packages, containers and types first so members and references can be
	// resolved regardless of file order.
	for _, f := range files {
		pkg := b.ensurePackage(g, f.Package)
		c := g.AddNode(Node{
			Kind:          untangle.NodeContainer,
			Name:          path.Base(f.Path),
			QualifiedName: f.Package + ":" + f.Path,
			Path:          f.Path,
		})
		g.AddEdge(untangle.EdgeContains, pkg.ID, c.ID)
		containers[f.Path] = c

		for _, t := range f.Types {
			n := b.addDeclared(g, t.Kind, t.Name, t.QualifiedName, t.Path, t.Lines)
			g.AddEdge(untangle.EdgeContains, pkg.ID, n.ID)
			types = append(types, typeNode{decl: t, node: n})
		}
	}

	for _, f := range files {
		for _, m := range f.Members {
			owner := containers[f.Path]
			if m.Owner != "" {
				if t := g.Lookup(m.Owner); t != nil && t.Kind.IsType() {
					owner = t
				} else {
					b.logger.Debug("member owner not found", "member", m.QualifiedName, "owner", m.Owner)
				}
			}
			n := b.addDeclared(g, m.Kind, m.Name, m.QualifiedName, m.Path, m.Lines)
			g.AddEdge(untangle.EdgeDefines, owner.ID, n.ID)
			members = append(members, memberNode{decl: m, node: n})
		}
	}

	for _, f := range files {
		from := g.Package(f.Package)
		for _, imp := range f.Imports {
			if to := g.Package(imp); to != nil {
				g.AddEdge(untangle.EdgeImports, from.ID, to.ID)
			}
		}
	}

	for _, t := range types {
		for _, name := range t.decl.Extends {
			if to := g.Lookup(name); to != nil {
				g.AddEdge(untangle.EdgeExtends, t.node.ID, to.ID)
			}
		}
		for _, name := range t.decl.Implements {
			if to := g.Lookup(name); to != nil {
				g.AddEdge(untangle.EdgeImplements, t.node.ID, to.ID)
			}
		}
	}

	for _, m := range members {
		for _, ref := range m.decl.Refs {
			if ref.Kind.IsStructural() {
				continue
			}
			if to := g.Lookup(ref.Target); to != nil {
				g.AddEdge(ref.Kind, m.node.ID, to.ID)
			}
		}
	}

	b.logger.Debug("built semantic graph",
		"version", b.version.String(),
		"files", len(files),
		"nodes", len(g.Nodes()),
		"edges", len(g.Edges()),
		"hunk_nodes", len(g.HunkNodes()))
	return g
}

// usable drops files that failed to parse and sorts the rest by path.
func (b *Builder) usable(files []untangle.SourceFile) []untangle.SourceFile {
	out := make([]untangle.SourceFile, 0, len(files))
	for _, f := range files {
		if f.Err != nil {
			b.logger.Warn("skipping unparsable file", "version", b.version.String(), "path", f.Path, "error", f.Err)
			continue
		}
		out = append(out, f)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out
}

func (b *Builder) ensurePackage(g *Graph, name string) *Node {
	if p := g.Package(name); p != nil {
		return p
	}
	return g.AddNode(Node{
		Kind:          untangle.NodePackage,
		Name:          path.Base(name),
		QualifiedName: name,
	})
}

func (b *Builder) addDeclared(g *Graph, kind untangle.NodeKind, name, qualified, file string, lines untangle.LineRange) *Node {
	n := Node{
		Kind:          kind,
		Name:          name,
		QualifiedName: qualified,
		Path:          file,
		Lines:         lines,
	}
	if id, ok := b.owningHunk(file, lines); ok {
		n.InDiffHunk = true
		n.HunkID = id
	}
	return g.AddNode(n)
}

// owningHunk returns the first hunk, in file order, whose same-version side
// overlaps lines.
func (b *Builder) owningHunk(file string, lines untangle.LineRange) (untangle.HunkID, bool) {
	if lines.Start <= 0 {
		return "", false
	}
	for _, h := range b.hunks[file] {
		if h.Side(b.version).Overlaps(file, lines.Start, lines.End) {
			return h.ID(), true
		}
	}
	return "", false
}
