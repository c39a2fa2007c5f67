package link

import (
	"sort"

	"github.com/fwojciec/untangle"
	"github.com/fwojciec/untangle/semantic"
)

// Relation maps a hunk to the other hunks it is linked to.
type Relation map[untangle.HunkID]map[untangle.HunkID]struct{}

// Add records a link from one hunk to another. Self links are ignored.
func (r Relation) Add(from, to untangle.HunkID) {
	if from == to {
		return
	}
	targets, ok := r[from]
	if !ok {
		targets = make(map[untangle.HunkID]struct{})
		r[from] = targets
	}
	targets[to] = struct{}{}
}

// Union adds every link of o to r and returns r.
func (r Relation) Union(o Relation) Relation {
	for from, targets := range o {
		for to := range targets {
			r.Add(from, to)
		}
	}
	return r
}

// Sources returns the linked-from hunks in (file, hunk) order.
func (r Relation) Sources() []untangle.HunkID {
	ids := make([]untangle.HunkID, 0, len(r))
	for id := range r {
		ids = append(ids, id)
	}
	sortIDs(ids)
	return ids
}

// Targets returns the hunks linked from id in (file, hunk) order.
func (r Relation) Targets(id untangle.HunkID) []untangle.HunkID {
	ids := make([]untangle.HunkID, 0, len(r[id]))
	for to := range r[id] {
		ids = append(ids, to)
	}
	sortIDs(ids)
	return ids
}

// HardLinks returns the def/use relation between hunks found in each graph,
// unioned per hunk. Links that exist only in the base graph, such as those
// through deleted code, are kept.
func HardLinks(graphs ...*semantic.Graph) Relation {
	r := make(Relation)
	for _, g := range graphs {
		if g == nil {
			continue
		}
		r.Union(hardLinks(g))
	}
	return r
}

func hardLinks(g *semantic.Graph) Relation {
	r := make(Relation)
	for _, n := range g.HunkNodes() {
		for _, t := range defs(g, n) {
			r.Add(n.HunkID, t.HunkID)
		}
		for _, t := range uses(g, n) {
			r.Add(n.HunkID, t.HunkID)
		}
	}
	return r
}

// defs walks incoming structural edges upward from n and returns every
// ancestor inside a diff hunk.
func defs(g *semantic.Graph, n *semantic.Node) []*semantic.Node {
	var found []*semantic.Node
	visited := map[int]bool{n.ID: true}
	stack := []int{n.ID}
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, e := range g.Incoming(id) {
			if !e.Kind.IsStructural() || visited[e.From] {
				continue
			}
			visited[e.From] = true
			parent := g.Node(e.From)
			if parent.InDiffHunk {
				found = append(found, parent)
			}
			stack = append(stack, parent.ID)
		}
	}
	return found
}

// uses walks outgoing non-structural edges from n and returns every reached
// node inside a diff hunk. The walk continues only through such nodes.
func uses(g *semantic.Graph, n *semantic.Node) []*semantic.Node {
	var found []*semantic.Node
	visited := map[int]bool{n.ID: true}
	stack := []int{n.ID}
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, e := range g.Outgoing(id) {
			if e.Kind.IsStructural() || visited[e.To] {
				continue
			}
			visited[e.To] = true
			target := g.Node(e.To)
			if !target.InDiffHunk {
				continue
			}
			found = append(found, target)
			stack = append(stack, target.ID)
		}
	}
	return found
}

func sortIDs(ids []untangle.HunkID) {
	sort.Slice(ids, func(i, j int) bool { return lessID(ids[i], ids[j]) })
}

func lessID(a, b untangle.HunkID) bool {
	af, ah, aerr := a.Split()
	bf, bh, berr := b.Split()
	if aerr != nil || berr != nil {
		return a < b
	}
	if af != bf {
		return af < bf
	}
	return ah < bh
}
