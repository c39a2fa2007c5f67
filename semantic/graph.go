// Package semantic builds typed graphs of code entities and their relations,
// one graph per version of the codebase.
package semantic

import (
	"github.com/fwojciec/untangle"
)

// Node is a code entity. Nodes belong to exactly one Graph.
type Node struct {
	ID            int
	Kind          untangle.NodeKind
	Name          string
	QualifiedName string
	Path          string             // Empty for packages
	Lines         untangle.LineRange // Zero for packages and containers
	InDiffHunk    bool
	HunkID        untangle.HunkID // Set only when InDiffHunk is true
}

// HasLines reports whether the node has a known source range.
func (n *Node) HasLines() bool {
	return n.Lines.Start > 0 && n.Lines.End >= n.Lines.Start
}

// Edge is a directed, weighted relation between two nodes.
type Edge struct {
	ID     int
	Kind   untangle.EdgeKind
	From   int
	To     int
	Weight int
}

type edgeKey struct {
	kind     untangle.EdgeKind
	from, to int
}

// Graph is a directed multigraph of code entities for one version.
// Node and edge ids are 1-based and monotonic; 0 is never a valid id.
// A Graph is not safe for concurrent mutation; once built it is read-only.
type Graph struct {
	Version untangle.Version

	nodes    []*Node // nodes[id-1]
	edges    []*Edge // edges[id-1]
	out      map[int][]*Edge
	in       map[int][]*Edge
	keys     map[edgeKey]*Edge
	packages []*Node
	byName   map[string]*Node
	byPath   map[string][]*Node
}

// NewGraph returns an empty graph for version v.
func NewGraph(v untangle.Version) *Graph {
	return &Graph{
		Version: v,
		out:     make(map[int][]*Edge),
		in:      make(map[int][]*Edge),
		keys:    make(map[edgeKey]*Edge),
		byName:  make(map[string]*Node),
		byPath:  make(map[string][]*Node),
	}
}

// AddNode copies n into the graph, assigns it the next id and returns it.
func (g *Graph) AddNode(n Node) *Node {
	n.ID = len(g.nodes) + 1
	node := &n
	g.nodes = append(g.nodes, node)
	if node.Kind == untangle.NodePackage {
		g.packages = append(g.packages, node)
	}
	if _, ok := g.byName[node.QualifiedName]; !ok && node.QualifiedName != "" {
		g.byName[node.QualifiedName] = node
	}
	if node.Path != "" {
		g.byPath[node.Path] = append(g.byPath[node.Path], node)
	}
	return node
}

// AddEdge adds an edge of kind from one node to another. Re-deriving an
// identical edge increments its weight instead of adding a new one.
// Self-loops are allowed.
func (g *Graph) AddEdge(kind untangle.EdgeKind, from, to int) *Edge {
	key := edgeKey{kind: kind, from: from, to: to}
	if e, ok := g.keys[key]; ok {
		e.Weight++
		return e
	}
	e := &Edge{ID: len(g.edges) + 1, Kind: kind, From: from, To: to, Weight: 1}
	g.edges = append(g.edges, e)
	g.keys[key] = e
	g.out[from] = append(g.out[from], e)
	g.in[to] = append(g.in[to], e)
	return e
}

// Node returns the node with id, or nil.
func (g *Graph) Node(id int) *Node {
	if id <= 0 || id > len(g.nodes) {
		return nil
	}
	return g.nodes[id-1]
}

// Nodes returns all nodes in id order.
func (g *Graph) Nodes() []*Node {
	return g.nodes
}

// Edges returns all edges in id order.
func (g *Graph) Edges() []*Edge {
	return g.edges
}

// Outgoing returns the edges leaving node id.
func (g *Graph) Outgoing(id int) []*Edge {
	return g.out[id]
}

// Incoming returns the edges entering node id.
func (g *Graph) Incoming(id int) []*Edge {
	return g.in[id]
}

// Lookup returns the first node registered under a qualified name, or nil.
func (g *Graph) Lookup(qualifiedName string) *Node {
	return g.byName[qualifiedName]
}

// Package returns the package node with the given qualified name, or nil.
// Packages are few, so a linear scan is enough.
func (g *Graph) Package(qualifiedName string) *Node {
	for _, p := range g.packages {
		if p.QualifiedName == qualifiedName {
			return p
		}
	}
	return nil
}

// HunkNodes returns the nodes flagged as inside a diff hunk, in id order.
func (g *Graph) HunkNodes() []*Node {
	var nodes []*Node
	for _, n := range g.nodes {
		if n.InDiffHunk {
			nodes = append(nodes, n)
		}
	}
	return nodes
}

// parent returns the source of the first incoming structural edge of id.
func (g *Graph) parent(id int) *Node {
	for _, e := range g.in[id] {
		if e.Kind.IsStructural() {
			return g.Node(e.From)
		}
	}
	return nil
}
