// Package mock provides test doubles for untangle interfaces.
package mock

import (
	"context"
	"io"

	"github.com/fwojciec/untangle"
)

// Compile-time interface verification.
var (
	_ untangle.DiffParser   = (*DiffParser)(nil)
	_ untangle.SourceParser = (*SourceParser)(nil)
)

// DiffParser is a mock implementation of untangle.DiffParser.
type DiffParser struct {
	ParseFn func(r io.Reader) ([]*untangle.DiffFile, error)
}

func (p *DiffParser) Parse(r io.Reader) ([]*untangle.DiffFile, error) {
	return p.ParseFn(r)
}

// SourceParser is a mock implementation of untangle.SourceParser.
type SourceParser struct {
	ParseFn func(ctx context.Context, root string) ([]untangle.SourceFile, error)
}

func (p *SourceParser) Parse(ctx context.Context, root string) ([]untangle.SourceFile, error) {
	return p.ParseFn(ctx, root)
}
