// Package link discovers relations between diff hunks and records them in a
// diff-hunk relation graph.
package link

import (
	"sort"

	"github.com/fwojciec/untangle"
	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"
)

// EdgeKind is the kind of a link between two hunks.
type EdgeKind int

// Link edge kinds.
const (
	Depend  EdgeKind = iota // Hard link: def/use chain
	Close                   // Soft link: shared ancestor, weight is the negated distance
	Similar                 // Soft link: content similarity, weight in [0, 1]
)

// String returns the name of the kind.
func (k EdgeKind) String() string {
	switch k {
	case Depend:
		return "depend"
	case Close:
		return "close"
	case Similar:
		return "similar"
	default:
		return "unknown"
	}
}

// Edge links two hunks.
type Edge struct {
	From   untangle.HunkID
	To     untangle.HunkID
	Kind   EdgeKind
	Weight float64
}

// Strength maps the edge weight onto [0, 1] so edges of different kinds can
// be filtered by one threshold.
func (e Edge) Strength() float64 {
	switch e.Kind {
	case Similar:
		return e.Weight
	case Close:
		return 1 / (1 - e.Weight)
	default:
		return 1
	}
}

// Node is one diff hunk in the relation graph.
type Node struct {
	ID        untangle.HunkID
	FileIndex int
	HunkIndex int
	Base      Hierarchy
	Current   Hierarchy
}

// Graph is the diff-hunk relation graph. It is mutated by the analyzers and
// read by the group synthesizer; it is not safe for concurrent use.
type Graph struct {
	nodes []*Node
	index map[untangle.HunkID]int
	edges []Edge
}

// NewGraph returns a graph with one node per hunk, ordered by file index and
// then hunk index.
func NewGraph(hunks []*untangle.DiffHunk) *Graph {
	g := &Graph{index: make(map[untangle.HunkID]int, len(hunks))}
	for _, h := range hunks {
		g.AddNode(h.ID(), h.FileIndex, h.Index)
	}
	return g
}

// AddNode adds a node unless one with the same id exists.
func (g *Graph) AddNode(id untangle.HunkID, fileIndex, hunkIndex int) *Node {
	if i, ok := g.index[id]; ok {
		return g.nodes[i]
	}
	n := &Node{ID: id, FileIndex: fileIndex, HunkIndex: hunkIndex}
	pos := sort.Search(len(g.nodes), func(i int) bool { return less(n, g.nodes[i]) })
	g.nodes = append(g.nodes, nil)
	copy(g.nodes[pos+1:], g.nodes[pos:])
	g.nodes[pos] = n
	for i := pos; i < len(g.nodes); i++ {
		g.index[g.nodes[i].ID] = i
	}
	return n
}

// Node returns the node for id, or nil.
func (g *Graph) Node(id untangle.HunkID) *Node {
	i, ok := g.index[id]
	if !ok {
		return nil
	}
	return g.nodes[i]
}

// Nodes returns the nodes ordered by file index and then hunk index.
func (g *Graph) Nodes() []*Node {
	return g.nodes
}

// AddEdge links two distinct, known hunks. It reports whether the edge was added.
func (g *Graph) AddEdge(from, to untangle.HunkID, kind EdgeKind, weight float64) bool {
	if from == to {
		return false
	}
	if _, ok := g.index[from]; !ok {
		return false
	}
	if _, ok := g.index[to]; !ok {
		return false
	}
	g.edges = append(g.edges, Edge{From: from, To: to, Kind: kind, Weight: weight})
	return true
}

// Edges returns the edges in insertion order.
func (g *Graph) Edges() []Edge {
	return g.edges
}

// Filter keeps only the edges for which keep returns true.
func (g *Graph) Filter(keep func(Edge) bool) {
	kept := g.edges[:0]
	for _, e := range g.edges {
		if keep(e) {
			kept = append(kept, e)
		}
	}
	g.edges = kept
}

// Components returns the undirected connected components of the graph.
// Members are ordered by (file index, hunk index) and components by their
// first member. Edge direction and kind do not matter.
func (g *Graph) Components() [][]untangle.HunkID {
	ug := simple.NewUndirectedGraph()
	for i := range g.nodes {
		ug.AddNode(simple.Node(i))
	}
	for _, e := range g.edges {
		u, v := int64(g.index[e.From]), int64(g.index[e.To])
		if u == v || ug.HasEdgeBetween(u, v) {
			continue
		}
		ug.SetEdge(simple.Edge{F: simple.Node(u), T: simple.Node(v)})
	}

	var positions [][]int
	for _, cc := range topo.ConnectedComponents(ug) {
		members := make([]int, 0, len(cc))
		for _, n := range cc {
			members = append(members, int(n.ID()))
		}
		sort.Ints(members)
		positions = append(positions, members)
	}
	sort.Slice(positions, func(i, j int) bool { return positions[i][0] < positions[j][0] })

	components := make([][]untangle.HunkID, 0, len(positions))
	for _, members := range positions {
		ids := make([]untangle.HunkID, len(members))
		for i, m := range members {
			ids[i] = g.nodes[m].ID
		}
		components = append(components, ids)
	}
	return components
}

func less(a, b *Node) bool {
	if a.FileIndex != b.FileIndex {
		return a.FileIndex < b.FileIndex
	}
	return a.HunkIndex < b.HunkIndex
}
