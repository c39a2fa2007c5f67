package link

import (
	"strconv"

	"github.com/fwojciec/untangle"
	"github.com/fwojciec/untangle/semantic"
)

// Hierarchy levels, from the most to the least specific.
const (
	LevelHunk = iota
	LevelMember
	LevelClass
	LevelPackage
)

// Hierarchy lists the ids of a hunk's ancestors indexed by level. An empty
// string means the level is unknown.
type Hierarchy []string

// NewHierarchy returns the hierarchy of hunk id given its ancestors in one
// semantic graph. Without any known ancestor the hierarchy is empty.
func NewHierarchy(id untangle.HunkID, a semantic.Ancestors) Hierarchy {
	if a == (semantic.Ancestors{}) {
		return nil
	}
	return Hierarchy{string(id), nodeID(a.Member), nodeID(a.Class), nodeID(a.Package)}
}

func nodeID(id int) string {
	if id == 0 {
		return ""
	}
	return strconv.Itoa(id)
}

// CompareHierarchy returns the most specific level at which a and b share an
// ancestor id, or -1 when no level matches or either hierarchy is empty.
func CompareHierarchy(a, b Hierarchy) int {
	if len(a) == 0 || len(b) == 0 {
		return -1
	}
	n := min(len(a), len(b))
	for level := 0; level < n; level++ {
		if a[level] != "" && a[level] == b[level] {
			return level
		}
	}
	return -1
}

// Distance combines the base and current hierarchy distances: the smaller of
// the two, ignoring a side that has no shared ancestor. It returns -1 when
// neither side relates the hunks.
func Distance(base, current int) int {
	switch {
	case base < 0:
		return current
	case current < 0:
		return base
	default:
		return min(base, current)
	}
}
