package mock

import (
	"context"

	"github.com/fwojciec/untangle"
)

// Compile-time interface verification.
var (
	_ untangle.MessageGenerator = (*MessageGenerator)(nil)
	_ untangle.GroupStore       = (*GroupStore)(nil)
)

// MessageGenerator is a mock implementation of untangle.MessageGenerator.
type MessageGenerator struct {
	GenerateFn func(ctx context.Context, group *untangle.Group, hunks []*untangle.DiffHunk) ([]string, error)
}

func (g *MessageGenerator) Generate(ctx context.Context, group *untangle.Group, hunks []*untangle.DiffHunk) ([]string, error) {
	return g.GenerateFn(ctx, group, hunks)
}

// GroupStore is a mock implementation of untangle.GroupStore.
type GroupStore struct {
	SaveFn func(path string, result *untangle.Result) error
	LoadFn func(path string) (*untangle.Result, error)
}

func (s *GroupStore) Save(path string, result *untangle.Result) error {
	return s.SaveFn(path, result)
}

func (s *GroupStore) Load(path string) (*untangle.Result, error) {
	return s.LoadFn(path)
}
