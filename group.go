package untangle

import (
	"context"
	"errors"
	"fmt"
	"slices"
)

// Partition validation errors.
var (
	ErrIncompletePartition = errors.New("incomplete partition")
	ErrDuplicateHunk       = errors.New("hunk assigned to more than one group")
)

// GroupLabel describes the intent of a group.
type GroupLabel string

// Group labels.
const (
	LabelNonSource GroupLabel = "non-source-changes"
	LabelReformat  GroupLabel = "reformat-only"
	LabelRefactor  GroupLabel = "refactor"
	LabelLinked    GroupLabel = "feature/linked"
	LabelOther     GroupLabel = "other"
)

// Group is a set of hunks intended to become one atomic commit.
type Group struct {
	ID            string     `json:"id"`
	Label         GroupLabel `json:"label"`
	HunkIDs       []HunkID   `json:"hunk_ids"`
	CommitMessage string     `json:"commit_message,omitempty"`
}

// Contains reports whether the group holds id.
func (g *Group) Contains(id HunkID) bool {
	return slices.Contains(g.HunkIDs, id)
}

// Result is the outcome of an analysis run.
type Result struct {
	Groups map[string]*Group
	Order  []string          // Group ids in creation order
	Index  map[HunkID]string // Hunk id to group id
}

// Ordered returns the groups in creation order.
func (r *Result) Ordered() []*Group {
	groups := make([]*Group, 0, len(r.Order))
	for _, id := range r.Order {
		if g, ok := r.Groups[id]; ok {
			groups = append(groups, g)
		}
	}
	return groups
}

// GroupOf returns the group holding id, or nil.
func (r *Result) GroupOf(id HunkID) *Group {
	gid, ok := r.Index[id]
	if !ok {
		return nil
	}
	return r.Groups[gid]
}

// Validate checks that the groups partition expected: every id appears in
// exactly one group and no group holds an unexpected id.
func (r *Result) Validate(expected []HunkID) error {
	want := make(map[HunkID]struct{}, len(expected))
	for _, id := range expected {
		want[id] = struct{}{}
	}

	seen := make(map[HunkID]string, len(expected))
	var errs []error
	for _, g := range r.Ordered() {
		for _, id := range g.HunkIDs {
			if prev, ok := seen[id]; ok {
				errs = append(errs, fmt.Errorf("%w: %s in %s and %s", ErrDuplicateHunk, id, prev, g.ID))
				continue
			}
			seen[id] = g.ID
			if _, ok := want[id]; !ok {
				errs = append(errs, fmt.Errorf("%w: unexpected hunk %s in %s", ErrIncompletePartition, id, g.ID))
			}
		}
	}
	for _, id := range expected {
		if _, ok := seen[id]; !ok {
			errs = append(errs, fmt.Errorf("%w: %s is not grouped", ErrIncompletePartition, id))
		}
	}
	return errors.Join(errs...)
}

// MessageGenerator produces candidate commit messages for a group.
type MessageGenerator interface {
	Generate(ctx context.Context, group *Group, hunks []*DiffHunk) ([]string, error)
}

// GroupStore persists analysis results.
type GroupStore interface {
	Save(path string, result *Result) error
	Load(path string) (*Result, error)
}
