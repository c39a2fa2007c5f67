package link

import (
	"github.com/fwojciec/untangle"
	"github.com/fwojciec/untangle/semantic"
	"github.com/fwojciec/untangle/similarity"
)

// SoftAnalyzer links hunks by structural distance and content similarity.
type SoftAnalyzer struct {
	// DistanceThreshold is the largest hierarchy distance that produces a
	// Close edge. Zero disables distance links.
	DistanceThreshold int
	// SimilarityThreshold is the smallest similarity that produces a
	// Similar edge.
	SimilarityThreshold float64
	// DisableSimilarity turns off Similar edges.
	DisableSimilarity bool

	Base    *semantic.Graph // Optional; hierarchies are empty without it
	Current *semantic.Graph // Optional; hierarchies are empty without it
}

// Analyze records hunk hierarchies on g, adds Close and Similar edges between
// every pair of hunks that are not reformat-only, and returns the
// reformat-only hunks in order.
func (a *SoftAnalyzer) Analyze(g *Graph, hunks []*untangle.DiffHunk) []untangle.HunkID {
	var reformat []untangle.HunkID
	candidates := make([]*untangle.DiffHunk, 0, len(hunks))
	for _, h := range hunks {
		if IsReformat(h) {
			reformat = append(reformat, h.ID())
			continue
		}
		candidates = append(candidates, h)
	}

	if a.DistanceThreshold > 0 {
		for _, h := range candidates {
			n := g.Node(h.ID())
			if n == nil {
				continue
			}
			if a.Base != nil {
				n.Base = NewHierarchy(h.ID(), a.Base.Enclose(h.Old))
			}
			if a.Current != nil {
				n.Current = NewHierarchy(h.ID(), a.Current.Enclose(h.New))
			}
		}
	}

	for i := 0; i < len(candidates); i++ {
		for j := i + 1; j < len(candidates); j++ {
			hi, hj := candidates[i], candidates[j]
			if a.DistanceThreshold > 0 {
				if d := a.distance(g, hi.ID(), hj.ID()); d >= 0 && d <= a.DistanceThreshold {
					g.AddEdge(hi.ID(), hj.ID(), Close, -float64(d))
				}
			}
			if a.DisableSimilarity {
				continue
			}
			if score, ok := Similarity(hi, hj); ok && score >= a.SimilarityThreshold {
				g.AddEdge(hi.ID(), hj.ID(), Similar, score)
			}
		}
	}

	return reformat
}

func (a *SoftAnalyzer) distance(g *Graph, x, y untangle.HunkID) int {
	nx, ny := g.Node(x), g.Node(y)
	if nx == nil || ny == nil {
		return -1
	}
	return Distance(CompareHierarchy(nx.Base, ny.Base), CompareHierarchy(nx.Current, ny.Current))
}

// IsReformat reports whether the old and new code of h differ only in
// whitespace and formatting.
func IsReformat(h *untangle.DiffHunk) bool {
	return similarity.Normalize(h.Old.Lines) == similarity.Normalize(h.New.Lines)
}

// Similarity returns the content similarity of two hunks, rounded to two
// decimals. The second result is false when the hunks are not comparable:
// their line counts differ, either is reformat-only, or either holds only
// imports or blank lines.
func Similarity(a, b *untangle.DiffHunk) (float64, bool) {
	if a.Old.LineCount() != b.Old.LineCount() || a.New.LineCount() != b.New.LineCount() {
		return 0, false
	}
	if trivial(a) || trivial(b) || IsReformat(a) || IsReformat(b) {
		return 0, false
	}

	var sum float64
	sides := 0
	for _, pair := range [][2]untangle.Hunk{{a.Old, b.Old}, {a.New, b.New}} {
		if pair[0].Empty() && pair[1].Empty() {
			continue
		}
		sum += similarity.Cosine(similarity.Words(pair[0].Lines), similarity.Words(pair[1].Lines))
		sides++
	}
	if sides == 0 {
		return 0, false
	}
	return similarity.Round2(sum / float64(sides)), true
}

// trivial reports whether every side of h is empty, imports only or blank
// lines only.
func trivial(h *untangle.DiffHunk) bool {
	for _, side := range []untangle.Hunk{h.Old, h.New} {
		switch side.ContentType {
		case untangle.ContentEmpty, untangle.ContentImport, untangle.ContentBlank:
		default:
			return false
		}
	}
	return true
}
