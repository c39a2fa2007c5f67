package untangle

import "fmt"

// ValidationReason identifies why a file's hunk list is invalid.
type ValidationReason string

// Validation error reasons.
const (
	ErrNonContiguousIndex ValidationReason = "non_contiguous_index"
	ErrOverlappingHunks   ValidationReason = "overlapping_hunks"
	ErrForeignHunk        ValidationReason = "foreign_hunk"
)

// ValidationError describes a single invariant violation in a DiffFile.
type ValidationError struct {
	File    int              // Index of the offending file
	Hunk    int              // Position of the offending hunk in the file's list
	Reason  ValidationReason // Why the hunk is invalid
	Version Version          // Side on which hunks overlap (overlapping_hunks only)
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	switch e.Reason {
	case ErrNonContiguousIndex:
		return fmt.Sprintf("file %d: hunk at position %d has a non-contiguous index", e.File, e.Hunk)
	case ErrOverlappingHunks:
		return fmt.Sprintf("file %d: hunk at position %d overlaps its predecessor on the %s side",
			e.File, e.Hunk, e.Version)
	case ErrForeignHunk:
		return fmt.Sprintf("file %d: hunk at position %d belongs to another file", e.File, e.Hunk)
	default:
		return fmt.Sprintf("file %d: unknown error for hunk at position %d", e.File, e.Hunk)
	}
}

// ValidateHunks checks the hunk invariants of every file: indices are
// contiguous from 0, hunks point back to their file, and same-version line
// ranges never overlap. Returns nil if all files are valid.
func ValidateHunks(files []*DiffFile) []ValidationError {
	var errors []ValidationError

	for _, file := range files {
		for i, h := range file.Hunks {
			if h.FileIndex != file.Index {
				errors = append(errors, ValidationError{File: file.Index, Hunk: i, Reason: ErrForeignHunk})
			}
			if h.Index != i {
				errors = append(errors, ValidationError{File: file.Index, Hunk: i, Reason: ErrNonContiguousIndex})
			}
			if i == 0 {
				continue
			}
			prev := file.Hunks[i-1]
			for _, v := range []Version{Base, Current} {
				a, b := prev.Side(v), h.Side(v)
				if a.Empty() || b.Empty() {
					continue
				}
				if a.Overlaps(b.Path, b.StartLine, b.EndLine) {
					errors = append(errors, ValidationError{File: file.Index, Hunk: i, Reason: ErrOverlappingHunks, Version: v})
				}
			}
		}
	}

	return errors
}
