// Package git provides access to git operations via shell commands.
package git

import (
	"archive/tar"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/fwojciec/untangle"
)

// Compile-time interface verification.
var _ untangle.GitRunner = (*Runner)(nil)

// EmptyTree is the hash of git's empty tree, used as the parent of root
// commits.
const EmptyTree = "4b825dc642cb6eb9a060e54bf8d69288fbee4904"

// Runner executes git commands via shell.
type Runner struct{}

// NewRunner creates a new git runner.
func NewRunner() *Runner {
	return &Runner{}
}

// Diff returns a zero-context diff of rev against its first parent, or of the
// working tree against HEAD when rev is empty. Renames are detected.
func (r *Runner) Diff(ctx context.Context, repoPath, rev string) (string, error) {
	args := []string{"diff", "-U0", "-M", "--no-color", "--no-ext-diff", "--no-textconv"}
	if rev == "" {
		args = append(args, "HEAD")
	} else {
		parent, err := r.Parent(ctx, repoPath, rev)
		if err != nil {
			return "", err
		}
		if parent == "" {
			parent = EmptyTree
		}
		args = append(args, parent, rev)
	}
	output, err := run(ctx, repoPath, append(args, "--")...)
	if err != nil {
		return "", err
	}
	return string(output), nil
}

// Show returns the contents of path at rev.
func (r *Runner) Show(ctx context.Context, repoPath, rev, path string) (string, error) {
	output, err := run(ctx, repoPath, "show", rev+":"+path)
	if err != nil {
		return "", err
	}
	return string(output), nil
}

// Parent returns the first parent of rev, or an empty string for a root
// commit.
func (r *Runner) Parent(ctx context.Context, repoPath, rev string) (string, error) {
	output, err := run(ctx, repoPath, "rev-list", "--parents", "-n", "1", rev)
	if err != nil {
		return "", err
	}
	fields := strings.Fields(string(output))
	if len(fields) < 2 {
		return "", nil
	}
	return fields[1], nil
}

// Untracked returns untracked files that are not ignored, relative to the
// repository root.
func (r *Runner) Untracked(ctx context.Context, repoPath string) ([]string, error) {
	output, err := run(ctx, repoPath, "ls-files", "--others", "--exclude-standard", "--full-name", "-z")
	if err != nil {
		return nil, err
	}
	var paths []string
	for _, p := range strings.Split(string(output), "\x00") {
		if p != "" {
			paths = append(paths, p)
		}
	}
	return paths, nil
}

// Export writes the tree at rev into dir, which must exist.
func (r *Runner) Export(ctx context.Context, repoPath, rev, dir string) error {
	cmd := exec.CommandContext(ctx, "git", "-C", repoPath, "archive", "--format=tar", rev)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	out, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("git archive failed: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("git archive failed: %w", err)
	}
	extractErr := extract(out, dir)
	if extractErr != nil {
		_, _ = io.Copy(io.Discard, out)
	}
	if err := cmd.Wait(); err != nil {
		if stderr.Len() > 0 {
			return fmt.Errorf("git archive failed: %s", strings.TrimSpace(stderr.String()))
		}
		return fmt.Errorf("git archive failed: %w", err)
	}
	if extractErr != nil {
		return fmt.Errorf("extract %s: %w", rev, extractErr)
	}
	return nil
}

// extract unpacks a tar stream into dir, refusing entries that escape it.
func extract(r io.Reader, dir string) error {
	tr := tar.NewReader(r)
	for {
		hdr, err := tr.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		if !filepath.IsLocal(hdr.Name) {
			return fmt.Errorf("unsafe path in archive: %q", hdr.Name)
		}
		path := filepath.Join(dir, filepath.FromSlash(hdr.Name))

		switch hdr.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(path, 0o755); err != nil {
				return err
			}
		case tar.TypeReg:
			if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
				return err
			}
			if err := writeFile(path, tr, hdr.FileInfo().Mode().Perm()); err != nil {
				return err
			}
		case tar.TypeSymlink:
			if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
				return err
			}
			if err := os.Symlink(hdr.Linkname, path); err != nil {
				return err
			}
		}
	}
}

func writeFile(path string, r io.Reader, perm os.FileMode) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, perm|0o200)
	if err != nil {
		return err
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func run(ctx context.Context, repoPath string, args ...string) ([]byte, error) {
	args = append([]string{"-C", repoPath, "-c", "core.quotePath=false"}, args...)
	cmd := exec.CommandContext(ctx, "git", args...)
	output, err := cmd.Output()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return nil, fmt.Errorf("git %s failed: %s", args[4], strings.TrimSpace(string(exitErr.Stderr)))
		}
		return nil, fmt.Errorf("git %s failed: %w", args[4], err)
	}
	return output, nil
}
