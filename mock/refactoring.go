package mock

import (
	"context"

	"github.com/fwojciec/untangle"
)

// Compile-time interface verification.
var _ untangle.RefactoringDetector = (*RefactoringDetector)(nil)

// RefactoringDetector is a mock implementation of untangle.RefactoringDetector.
type RefactoringDetector struct {
	DetectFn func(ctx context.Context, baseDir, currentDir string) ([]untangle.Refactoring, error)
}

func (d *RefactoringDetector) Detect(ctx context.Context, baseDir, currentDir string) ([]untangle.Refactoring, error) {
	return d.DetectFn(ctx, baseDir, currentDir)
}
