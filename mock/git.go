package mock

import (
	"context"

	"github.com/fwojciec/untangle"
)

// Compile-time interface verification.
var (
	_ untangle.GitRunner       = (*GitRunner)(nil)
	_ untangle.ChangeCollector = (*ChangeCollector)(nil)
)

// GitRunner is a mock implementation of untangle.GitRunner.
type GitRunner struct {
	DiffFn      func(ctx context.Context, repoPath, rev string) (string, error)
	ShowFn      func(ctx context.Context, repoPath, rev, path string) (string, error)
	ParentFn    func(ctx context.Context, repoPath, rev string) (string, error)
	UntrackedFn func(ctx context.Context, repoPath string) ([]string, error)
	ExportFn    func(ctx context.Context, repoPath, rev, dir string) error
}

func (g *GitRunner) Diff(ctx context.Context, repoPath, rev string) (string, error) {
	return g.DiffFn(ctx, repoPath, rev)
}

func (g *GitRunner) Show(ctx context.Context, repoPath, rev, path string) (string, error) {
	return g.ShowFn(ctx, repoPath, rev, path)
}

func (g *GitRunner) Parent(ctx context.Context, repoPath, rev string) (string, error) {
	return g.ParentFn(ctx, repoPath, rev)
}

func (g *GitRunner) Untracked(ctx context.Context, repoPath string) ([]string, error) {
	return g.UntrackedFn(ctx, repoPath)
}

func (g *GitRunner) Export(ctx context.Context, repoPath, rev, dir string) error {
	return g.ExportFn(ctx, repoPath, rev, dir)
}

// ChangeCollector is a mock implementation of untangle.ChangeCollector.
type ChangeCollector struct {
	CollectFn func(ctx context.Context, repoPath, rev string) (*untangle.Change, error)
}

func (c *ChangeCollector) Collect(ctx context.Context, repoPath, rev string) (*untangle.Change, error) {
	return c.CollectFn(ctx, repoPath, rev)
}
