package semantic

import "github.com/fwojciec/untangle"

// Ancestors holds the ids of the nearest member, class and package nodes
// enclosing a hunk side. Zero means no such ancestor exists.
type Ancestors struct {
	Member  int
	Class   int // A type, or the file container for package-level code
	Package int
}

// Enclose returns the ancestors of a hunk side in g. An empty side is located
// by its insertion point.
func (g *Graph) Enclose(side untangle.Hunk) Ancestors {
	var a Ancestors
	if side.Path == "" {
		return a
	}
	start, end := side.StartLine, side.EndLine
	if side.Empty() {
		end = start
	}

	var member, class, container *Node
	for _, n := range g.byPath[side.Path] {
		switch {
		case n.Kind == untangle.NodeContainer:
			if container == nil {
				container = n
			}
		case !n.HasLines() || n.Lines.End < start || end < n.Lines.Start:
		case n.Kind.IsMember():
			if member == nil || span(n) < span(member) {
				member = n
			}
		case n.Kind.IsType():
			if class == nil || span(n) < span(class) {
				class = n
			}
		}
	}

	if member != nil {
		a.Member = member.ID
		if p := g.parent(member.ID); p != nil {
			class = p
		}
	}
	if class == nil {
		class = container
	}
	if class == nil {
		return a
	}
	a.Class = class.ID
	if p := g.parent(class.ID); p != nil && p.Kind == untangle.NodePackage {
		a.Package = p.ID
	}
	return a
}

func span(n *Node) int {
	return n.Lines.End - n.Lines.Start
}
