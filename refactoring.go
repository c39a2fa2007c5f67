package untangle

import "context"

// RangeSide tells which version a refactoring code range refers to.
type RangeSide int

// Range sides.
const (
	LeftSide  RangeSide = iota // Base version
	RightSide                  // Current version
)

// Version returns the snapshot the side refers to.
func (s RangeSide) Version() Version {
	if s == RightSide {
		return Current
	}
	return Base
}

// CodeRange is a line range in one file of one version.
type CodeRange struct {
	Side      RangeSide
	Path      string
	StartLine int
	EndLine   int
}

// Refactoring is a refactoring detected between the base and current versions.
type Refactoring struct {
	Type        string // e.g. "Rename Method", "Change Signature"
	Description string
	Ranges      []CodeRange
}

// Action describes a refactoring attached to a hunk.
type Action struct {
	Type        string `json:"type"`
	Description string `json:"description"`
}

// RefactoringDetector detects refactorings between two source trees.
type RefactoringDetector interface {
	Detect(ctx context.Context, baseDir, currentDir string) ([]Refactoring, error)
}
