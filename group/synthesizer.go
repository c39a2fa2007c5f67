// Package group turns hunk relations into a partition of hunks into groups.
package group

import (
	"fmt"
	"io"
	"log/slog"
	"slices"

	"github.com/fwojciec/untangle"
	"github.com/fwojciec/untangle/link"
)

// MaxIndividualGroups is the largest number of leftover singleton hunks that
// each get a group of their own. Above it they share one group.
const MaxIndividualGroups = 3

// Synthesizer creates groups and assigns every hunk to at most one of them.
// It is not safe for concurrent use.
type Synthesizer struct {
	groups map[string]*untangle.Group
	order  []string
	index  map[untangle.HunkID]string
	logger *slog.Logger
}

// NewSynthesizer returns an empty Synthesizer.
func NewSynthesizer(logger *slog.Logger) *Synthesizer {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Synthesizer{
		groups: make(map[string]*untangle.Group),
		index:  make(map[untangle.HunkID]string),
		logger: logger,
	}
}

// Create adds a group with label holding the ids that are not grouped yet.
// It returns nil and creates nothing when no such id remains.
func (s *Synthesizer) Create(label untangle.GroupLabel, ids ...untangle.HunkID) *untangle.Group {
	var free []untangle.HunkID
	for _, id := range ids {
		if !s.Grouped(id) && !slices.Contains(free, id) {
			free = append(free, id)
		}
	}
	if len(free) == 0 {
		return nil
	}
	g := &untangle.Group{ID: fmt.Sprintf("group%d", len(s.order)), Label: label}
	s.groups[g.ID] = g
	s.order = append(s.order, g.ID)
	for _, id := range free {
		s.Add(g.ID, id)
	}
	s.logger.Debug("created group", "group", g.ID, "label", string(label), "hunks", len(g.HunkIDs))
	return g
}

// Add appends id to the group. It reports false when the group does not
// exist or id already belongs to a group.
func (s *Synthesizer) Add(groupID string, id untangle.HunkID) bool {
	g, ok := s.groups[groupID]
	if !ok || s.Grouped(id) {
		return false
	}
	g.HunkIDs = append(g.HunkIDs, id)
	s.index[id] = groupID
	return true
}

// Grouped reports whether id belongs to a group.
func (s *Synthesizer) Grouped(id untangle.HunkID) bool {
	_, ok := s.index[id]
	return ok
}

// GroupOf returns the group holding id, or nil.
func (s *Synthesizer) GroupOf(id untangle.HunkID) *untangle.Group {
	gid, ok := s.index[id]
	if !ok {
		return nil
	}
	return s.groups[gid]
}

// AddHardLinks adds a Depend edge to g for every pair in r. Self pairs and
// pairs with an already grouped hunk are skipped.
func (s *Synthesizer) AddHardLinks(g *link.Graph, r link.Relation) {
	for _, from := range r.Sources() {
		for _, to := range r.Targets(from) {
			if s.Grouped(from) || s.Grouped(to) {
				continue
			}
			g.AddEdge(from, to, link.Depend, 1)
		}
	}
}

// Synthesize assigns the hunks of g to groups. Every connected component
// with more than one hunk becomes a linked group, unless one of its hunks is
// already grouped, in which case the whole component joins that group.
// Remaining singletons get a group each when there are at most
// MaxIndividualGroups of them, and share one group otherwise.
//
// Synthesize may be called again after more edges are added; hunks never
// move between groups.
func (s *Synthesizer) Synthesize(g *link.Graph) {
	var individuals []untangle.HunkID
	for _, members := range g.Components() {
		if len(members) == 1 {
			if !s.Grouped(members[0]) {
				individuals = append(individuals, members[0])
			}
			continue
		}
		if existing := s.firstGroup(members); existing != nil {
			for _, id := range members {
				s.Add(existing.ID, id)
			}
			continue
		}
		s.Create(untangle.LabelLinked, members...)
	}

	if len(individuals) <= MaxIndividualGroups {
		for _, id := range individuals {
			s.Create(untangle.LabelOther, id)
		}
		return
	}
	s.Create(untangle.LabelOther, individuals...)
}

func (s *Synthesizer) firstGroup(members []untangle.HunkID) *untangle.Group {
	for _, id := range members {
		if g := s.GroupOf(id); g != nil {
			return g
		}
	}
	return nil
}

// Result returns the groups created so far.
func (s *Synthesizer) Result() *untangle.Result {
	r := &untangle.Result{
		Groups: make(map[string]*untangle.Group, len(s.groups)),
		Order:  append([]string(nil), s.order...),
		Index:  make(map[untangle.HunkID]string, len(s.index)),
	}
	for id, g := range s.groups {
		r.Groups[id] = g
	}
	for id, gid := range s.index {
		r.Index[id] = gid
	}
	return r
}
