package jsonl

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"

	"github.com/fwojciec/untangle"
)

// DumpDetails writes one text file per group into dir, named after the group
// id. Each file lists the group's hunks with their description and raw old
// and new lines. Non-source groups list their files with status and path.
func DumpDetails(dir string, result *untangle.Result, files []*untangle.DiffFile) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	lookup := untangle.NewLookup(files)
	for _, g := range result.Ordered() {
		if err := dumpGroup(filepath.Join(dir, g.ID+".txt"), g, lookup); err != nil {
			return fmt.Errorf("dump %s: %w", g.ID, err)
		}
	}
	return nil
}

func dumpGroup(path string, g *untangle.Group, lookup *untangle.Lookup) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	fmt.Fprintf(w, "# %s %s (%d hunks)\n", g.ID, g.Label, len(g.HunkIDs))
	if g.CommitMessage != "" {
		fmt.Fprintf(w, "# %s\n", g.CommitMessage)
	}
	for _, id := range g.HunkIDs {
		h, file := lookup.Resolve(g, id)
		switch {
		case file != nil:
			fmt.Fprintf(w, "\n## %s\n", file.Description())
			continue
		case h == nil:
			fmt.Fprintf(w, "\n## %s\n", id)
			continue
		}
		fmt.Fprintf(w, "\n## %s\n", h.Description())
		for _, a := range h.Actions {
			fmt.Fprintf(w, "refactoring: %s: %s\n", a.Type, a.Description)
		}
		for _, l := range h.Old.Lines {
			fmt.Fprintf(w, "-%s\n", l)
		}
		for _, l := range h.New.Lines {
			fmt.Fprintf(w, "+%s\n", l)
		}
	}
	if err := w.Flush(); err != nil {
		return err
	}
	return f.Close()
}
