// Package untangle provides domain types for splitting a composite code change
// into groups of related diff hunks.
package untangle

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Analysis errors.
var (
	ErrNoChanges    = errors.New("no changes to analyze")
	ErrBuildTimeout = errors.New("semantic graph build timed out")
)

// FileStatus represents the type of change performed on a file.
type FileStatus int

// File change statuses.
const (
	FileModified FileStatus = iota
	FileAdded
	FileDeleted
	FileRenamed
	FileCopied
	FileUntracked
)

// String returns the lowercase name of the status.
func (s FileStatus) String() string {
	switch s {
	case FileAdded:
		return "added"
	case FileDeleted:
		return "deleted"
	case FileRenamed:
		return "renamed"
	case FileCopied:
		return "copied"
	case FileUntracked:
		return "untracked"
	default:
		return "modified"
	}
}

// ChangeKind classifies a single hunk.
type ChangeKind int

// Hunk change kinds.
const (
	ChangeModified ChangeKind = iota
	ChangeAdded
	ChangeDeleted
)

// String returns the lowercase name of the change kind.
func (k ChangeKind) String() string {
	switch k {
	case ChangeAdded:
		return "added"
	case ChangeDeleted:
		return "deleted"
	default:
		return "modified"
	}
}

// ContentType classifies the lines on one side of a hunk.
type ContentType int

// Content types.
const (
	ContentEmpty ContentType = iota // No lines on this side
	ContentCode
	ContentImport
	ContentComment
	ContentBlank
	ContentBinary
)

// String returns the lowercase name of the content type.
func (c ContentType) String() string {
	switch c {
	case ContentCode:
		return "code"
	case ContentImport:
		return "import"
	case ContentComment:
		return "comment"
	case ContentBlank:
		return "blank"
	case ContentBinary:
		return "binary"
	default:
		return "empty"
	}
}

// Version identifies which snapshot of the codebase something belongs to.
type Version int

// Versions.
const (
	Base Version = iota
	Current
)

// String returns "base" or "current".
func (v Version) String() string {
	if v == Current {
		return "current"
	}
	return "base"
}

// HunkID is the stable composite identity of a diff hunk: "fileIndex:hunkIndex".
type HunkID string

// NewHunkID returns the composite identity for a hunk of a file.
func NewHunkID(fileIndex, hunkIndex int) HunkID {
	return HunkID(strconv.Itoa(fileIndex) + ":" + strconv.Itoa(hunkIndex))
}

// FileHunkID returns the synthetic, self-referential id standing in for all
// hunks of a non-source file.
func FileHunkID(fileIndex int) HunkID {
	return NewHunkID(fileIndex, fileIndex)
}

// Split returns the file and hunk indices encoded in the id.
func (id HunkID) Split() (fileIndex, hunkIndex int, err error) {
	f, h, ok := strings.Cut(string(id), ":")
	if !ok {
		return 0, 0, fmt.Errorf("malformed hunk id %q", id)
	}
	if fileIndex, err = strconv.Atoi(f); err != nil {
		return 0, 0, fmt.Errorf("malformed hunk id %q: %w", id, err)
	}
	if hunkIndex, err = strconv.Atoi(h); err != nil {
		return 0, 0, fmt.Errorf("malformed hunk id %q: %w", id, err)
	}
	return fileIndex, hunkIndex, nil
}

// DiffFile represents one changed file.
type DiffFile struct {
	Index      int
	Status     FileStatus
	OldPath    string // Empty for added files
	NewPath    string // Empty for deleted files
	OldContent string
	NewContent string
	Binary     bool
	Language   string // Detected language, empty if unknown
	Hunks      []*DiffHunk
}

// Path returns the new path, or the old path for deleted files.
func (f *DiffFile) Path() string {
	if f.NewPath != "" {
		return f.NewPath
	}
	return f.OldPath
}

// ID returns the synthetic hunk id used when the file is grouped as a whole.
func (f *DiffFile) ID() HunkID {
	return FileHunkID(f.Index)
}

// Description summarizes the file as a whole: synthetic id, status and path.
func (f *DiffFile) Description() string {
	path := f.Path()
	if f.Status == FileRenamed || f.Status == FileCopied {
		path = f.OldPath + " -> " + f.NewPath
	}
	return fmt.Sprintf("%s %s %s", f.ID(), f.Status, path)
}

// Lookup resolves group members against the files of a change. Members of
// a non-source group are synthetic file ids; every other member is a hunk
// id. The two id spaces overlap, so the group decides which one applies.
type Lookup struct {
	files map[HunkID]*DiffFile
	hunks map[HunkID]*DiffHunk
}

// NewLookup indexes files and their hunks.
func NewLookup(files []*DiffFile) *Lookup {
	l := &Lookup{
		files: make(map[HunkID]*DiffFile, len(files)),
		hunks: make(map[HunkID]*DiffHunk),
	}
	for _, f := range files {
		l.files[f.ID()] = f
		for _, h := range f.Hunks {
			l.hunks[h.ID()] = h
		}
	}
	return l
}

// Resolve returns the hunk or, for non-source groups, the file that id
// names in g. Both are nil when id is unknown.
func (l *Lookup) Resolve(g *Group, id HunkID) (*DiffHunk, *DiffFile) {
	if g.Label == LabelNonSource {
		return nil, l.files[id]
	}
	return l.hunks[id], nil
}

// Hunk is one side (old or new) of a diff hunk.
type Hunk struct {
	Version     Version
	Path        string
	StartLine   int // 1-based, inclusive
	EndLine     int // Inclusive; EndLine < StartLine when the side is empty
	ContentType ContentType
	Lines       []string // Snippet lines without the diff prefix
}

// Empty reports whether the side covers no lines.
func (h Hunk) Empty() bool {
	return h.EndLine < h.StartLine
}

// LineCount returns the number of lines covered by the side.
func (h Hunk) LineCount() int {
	if h.Empty() {
		return 0
	}
	return h.EndLine - h.StartLine + 1
}

// Overlaps reports whether the side covers any line of [start, end] in path,
// using closed-interval overlap.
func (h Hunk) Overlaps(path string, start, end int) bool {
	if h.Empty() || h.Path != path {
		return false
	}
	return h.EndLine >= start && end >= h.StartLine
}

// Text returns the snippet lines joined with newlines.
func (h Hunk) Text() string {
	return strings.Join(h.Lines, "\n")
}

// DiffHunk represents one contiguous change region within a DiffFile.
type DiffHunk struct {
	FileIndex int
	Index     int // Position within the owning file, starting at 0
	Kind      ChangeKind
	Old       Hunk
	New       Hunk
	Actions   []Action // Refactorings attached by the refactoring analyzer
}

// ID returns the composite identity of the hunk.
func (h *DiffHunk) ID() HunkID {
	return NewHunkID(h.FileIndex, h.Index)
}

// Side returns the hunk side for the given version.
func (h *DiffHunk) Side(v Version) Hunk {
	if v == Current {
		return h.New
	}
	return h.Old
}

// Description returns a one-line summary of the hunk used in exports.
func (h *DiffHunk) Description() string {
	path := h.New.Path
	if path == "" {
		path = h.Old.Path
	}
	return fmt.Sprintf("%s %s %s (-%d,%d +%d,%d) [%s -> %s]",
		h.ID(), h.Kind, path,
		h.Old.StartLine, h.Old.LineCount(), h.New.StartLine, h.New.LineCount(),
		h.Old.ContentType, h.New.ContentType)
}

// Change is a fully materialized composite change ready for analysis.
type Change struct {
	Files     []*DiffFile
	Hunks     []*DiffHunk
	Snapshots Snapshots
}

// Snapshots locates the base and current source trees on disk.
type Snapshots struct {
	Base    string
	Current string
}

// GitRunner provides access to git operations.
type GitRunner interface {
	// Diff returns a zero-context unified diff for rev against its parent,
	// or for the working tree against HEAD when rev is empty.
	Diff(ctx context.Context, repoPath, rev string) (string, error)
	// Show returns the contents of path at rev.
	Show(ctx context.Context, repoPath, rev, path string) (string, error)
	// Parent returns the first parent of rev, or an empty string for a root commit.
	Parent(ctx context.Context, repoPath, rev string) (string, error)
	// Untracked returns untracked, non-ignored paths of the working tree.
	Untracked(ctx context.Context, repoPath string) ([]string, error)
	// Export writes the tree at rev into dir.
	Export(ctx context.Context, repoPath, rev, dir string) error
}

// ChangeCollector materializes the change introduced by rev, or the
// uncommitted changes of the working tree when rev is empty.
type ChangeCollector interface {
	Collect(ctx context.Context, repoPath, rev string) (*Change, error)
}

// DiffParser parses unified diff text into files and hunks.
type DiffParser interface {
	Parse(r io.Reader) ([]*DiffFile, error)
}

// LanguageDetector determines the programming language from a file path.
type LanguageDetector interface {
	// DetectFromPath returns the language name for the given path,
	// or an empty string if the language cannot be determined.
	DetectFromPath(path string) string
}

// ContentClassifier decides the content type of a hunk side.
type ContentClassifier interface {
	Classify(language string, lines []string) ContentType
}

// AllHunks flattens the hunks of files in file order.
func AllHunks(files []*DiffFile) []*DiffHunk {
	var hunks []*DiffHunk
	for _, f := range files {
		hunks = append(hunks, f.Hunks...)
	}
	return hunks
}
