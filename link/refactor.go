package link

import (
	"io"
	"log/slog"

	"github.com/fwojciec/untangle"
)

// RefactorLinks maps every range of refs onto the first hunk whose
// same-version side overlaps it, attaches the refactoring to that hunk as an
// action, and returns the matched hunks in first-match order without
// duplicates. Ranges that match no hunk are logged and skipped.
func RefactorLinks(refs []untangle.Refactoring, hunks []*untangle.DiffHunk, logger *slog.Logger) []untangle.HunkID {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	var matched []untangle.HunkID
	seen := make(map[untangle.HunkID]bool)
	for _, ref := range refs {
		action := untangle.Action{Type: ref.Type, Description: ref.Description}
		for _, r := range ref.Ranges {
			h := owner(hunks, r)
			if h == nil {
				logger.Debug("refactoring range matches no hunk",
					"type", ref.Type, "side", r.Side.Version(), "path", r.Path,
					"start", r.StartLine, "end", r.EndLine)
				continue
			}
			if !hasAction(h, action) {
				h.Actions = append(h.Actions, action)
			}
			if !seen[h.ID()] {
				seen[h.ID()] = true
				matched = append(matched, h.ID())
			}
		}
	}
	return matched
}

func owner(hunks []*untangle.DiffHunk, r untangle.CodeRange) *untangle.DiffHunk {
	for _, h := range hunks {
		if h.Side(r.Side.Version()).Overlaps(r.Path, r.StartLine, r.EndLine) {
			return h
		}
	}
	return nil
}

func hasAction(h *untangle.DiffHunk, a untangle.Action) bool {
	for _, existing := range h.Actions {
		if existing == a {
			return true
		}
	}
	return false
}
