package git

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/fwojciec/untangle"
)

// Compile-time interface verification.
var _ untangle.ChangeCollector = (*Collector)(nil)

// Collector materializes a commit or a dirty working tree into an
// untangle.Change: parsed files and hunks, file contents, and base and
// current snapshot directories.
type Collector struct {
	Git    untangle.GitRunner
	Parser untangle.DiffParser

	// TempDir is the parent of snapshot directories; empty uses the system
	// default.
	TempDir string

	logger *slog.Logger
	dirs   []string
}

// NewCollector returns a Collector. A nil logger discards output.
func NewCollector(runner untangle.GitRunner, parser untangle.DiffParser, logger *slog.Logger) *Collector {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Collector{Git: runner, Parser: parser, logger: logger}
}

// Collect gathers the change introduced by rev, or the uncommitted changes
// of the working tree when rev is empty. Untracked files are included as
// whole-file additions in working tree mode. Snapshot directories stay on
// disk until Cleanup.
func (c *Collector) Collect(ctx context.Context, repoPath, rev string) (*untangle.Change, error) {
	repoPath, err := filepath.Abs(repoPath)
	if err != nil {
		return nil, err
	}

	diff, err := c.Git.Diff(ctx, repoPath, rev)
	if err != nil {
		return nil, err
	}
	var untracked []string
	if rev == "" {
		if untracked, err = c.Git.Untracked(ctx, repoPath); err != nil {
			return nil, err
		}
		extra, err := untrackedDiff(repoPath, untracked)
		if err != nil {
			return nil, err
		}
		diff += extra
	}

	files, err := c.Parser.Parse(strings.NewReader(diff))
	if err != nil {
		return nil, err
	}
	markUntracked(files, untracked)

	snaps, baseRev, err := c.snapshots(ctx, repoPath, rev)
	if err != nil {
		return nil, err
	}
	if err := c.contents(ctx, repoPath, baseRev, rev, files); err != nil {
		return nil, err
	}

	for _, e := range untangle.ValidateHunks(files) {
		c.logger.Warn("invalid hunk", "error", e)
	}
	hunks := untangle.AllHunks(files)
	c.logger.Debug("collected change", "repo", repoPath, "rev", rev,
		"files", len(files), "hunks", len(hunks), "untracked", len(untracked))
	return &untangle.Change{Files: files, Hunks: hunks, Snapshots: snaps}, nil
}

// Cleanup removes every snapshot directory created by Collect.
func (c *Collector) Cleanup() error {
	var first error
	for _, dir := range c.dirs {
		if err := os.RemoveAll(dir); err != nil && first == nil {
			first = err
		}
	}
	c.dirs = nil
	return first
}

// snapshots exports the base and current trees. The working tree serves as
// its own current snapshot. A root commit gets an empty base directory.
func (c *Collector) snapshots(ctx context.Context, repoPath, rev string) (untangle.Snapshots, string, error) {
	if rev == "" {
		base, err := c.export(ctx, repoPath, "HEAD", "base")
		if err != nil {
			return untangle.Snapshots{}, "", err
		}
		return untangle.Snapshots{Base: base, Current: repoPath}, "HEAD", nil
	}

	parent, err := c.Git.Parent(ctx, repoPath, rev)
	if err != nil {
		return untangle.Snapshots{}, "", err
	}
	base, err := c.export(ctx, repoPath, parent, "base")
	if err != nil {
		return untangle.Snapshots{}, "", err
	}
	current, err := c.export(ctx, repoPath, rev, "current")
	if err != nil {
		return untangle.Snapshots{}, "", err
	}
	return untangle.Snapshots{Base: base, Current: current}, parent, nil
}

func (c *Collector) export(ctx context.Context, repoPath, rev, name string) (string, error) {
	dir, err := os.MkdirTemp(c.TempDir, "untangle-"+name+"-")
	if err != nil {
		return "", fmt.Errorf("create snapshot dir: %w", err)
	}
	c.dirs = append(c.dirs, dir)
	if rev == "" {
		return dir, nil
	}
	if err := c.Git.Export(ctx, repoPath, rev, dir); err != nil {
		return "", err
	}
	return dir, nil
}

// contents fills in the old and new contents of text files.
func (c *Collector) contents(ctx context.Context, repoPath, baseRev, rev string, files []*untangle.DiffFile) error {
	for _, f := range files {
		if f.Binary {
			continue
		}
		if f.OldPath != "" && baseRev != "" {
			old, err := c.Git.Show(ctx, repoPath, baseRev, f.OldPath)
			if err != nil {
				return err
			}
			f.OldContent = old
		}
		if f.NewPath == "" {
			continue
		}
		if rev != "" {
			content, err := c.Git.Show(ctx, repoPath, rev, f.NewPath)
			if err != nil {
				return err
			}
			f.NewContent = content
			continue
		}
		data, err := os.ReadFile(filepath.Join(repoPath, filepath.FromSlash(f.NewPath)))
		if err != nil {
			return fmt.Errorf("read %s: %w", f.NewPath, err)
		}
		f.NewContent = string(data)
	}
	return nil
}

func markUntracked(files []*untangle.DiffFile, untracked []string) {
	if len(untracked) == 0 {
		return
	}
	set := make(map[string]bool, len(untracked))
	for _, p := range untracked {
		set[p] = true
	}
	for _, f := range files {
		if f.Status == untangle.FileAdded && set[f.NewPath] {
			f.Status = untangle.FileUntracked
		}
	}
}

// untrackedDiff renders untracked files as new-file diffs.
func untrackedDiff(repoPath string, paths []string) (string, error) {
	var b strings.Builder
	for _, p := range paths {
		data, err := os.ReadFile(filepath.Join(repoPath, filepath.FromSlash(p)))
		if err != nil {
			return "", fmt.Errorf("read untracked %s: %w", p, err)
		}
		writeNewFile(&b, p, data)
	}
	return b.String(), nil
}

func writeNewFile(b *strings.Builder, path string, data []byte) {
	fmt.Fprintf(b, "diff --git a/%s b/%s\nnew file mode 100644\n", path, path)
	if isBinary(data) {
		fmt.Fprintf(b, "Binary files /dev/null and b/%s differ\n", path)
		return
	}
	if len(data) == 0 {
		return
	}
	text := string(data)
	noEOL := !strings.HasSuffix(text, "\n")
	lines := strings.Split(strings.TrimSuffix(text, "\n"), "\n")
	fmt.Fprintf(b, "--- /dev/null\n+++ b/%s\n@@ -0,0 +1,%d @@\n", path, len(lines))
	for _, l := range lines {
		b.WriteString("+" + l + "\n")
	}
	if noEOL {
		b.WriteString("\\ No newline at end of file\n")
	}
}

// isBinary applies git's heuristic: a NUL byte in the first 8000 bytes.
func isBinary(data []byte) bool {
	if len(data) > 8000 {
		data = data[:8000]
	}
	return bytes.IndexByte(data, 0) >= 0
}
