// Package gitdiff implements diff parsing using bluekeyes/go-gitdiff.
package gitdiff

import (
	"fmt"
	"io"
	"strings"

	"github.com/bluekeyes/go-gitdiff/gitdiff"
	"github.com/fwojciec/untangle"
)

// Compile-time interface verification.
var _ untangle.DiffParser = (*Parser)(nil)

// Parser parses unified diff content using go-gitdiff. Every run of changed
// lines becomes one hunk, so fragments with context are split at context
// lines.
type Parser struct {
	Detector   untangle.LanguageDetector  // Optional
	Classifier untangle.ContentClassifier // Optional; blank or code otherwise
}

// NewParser creates a new Parser.
func NewParser(detector untangle.LanguageDetector, classifier untangle.ContentClassifier) *Parser {
	return &Parser{Detector: detector, Classifier: classifier}
}

// Parse reads diff content and returns its files in diff order.
func (p *Parser) Parse(r io.Reader) ([]*untangle.DiffFile, error) {
	files, _, err := gitdiff.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parse diff: %w", err)
	}

	result := make([]*untangle.DiffFile, 0, len(files))
	for i, f := range files {
		result = append(result, p.convertFile(i, f))
	}
	return result, nil
}

func (p *Parser) convertFile(index int, f *gitdiff.File) *untangle.DiffFile {
	df := &untangle.DiffFile{
		Index:   index,
		OldPath: f.OldName,
		NewPath: f.NewName,
		Binary:  f.IsBinary,
	}

	switch {
	case f.IsNew:
		df.Status = untangle.FileAdded
		df.OldPath = ""
	case f.IsDelete:
		df.Status = untangle.FileDeleted
		df.NewPath = ""
	case f.IsRename:
		df.Status = untangle.FileRenamed
	case f.IsCopy:
		df.Status = untangle.FileCopied
	default:
		df.Status = untangle.FileModified
	}

	if p.Detector != nil && !df.Binary {
		df.Language = p.Detector.DetectFromPath(df.Path())
	}
	if df.Binary {
		return df
	}

	for _, frag := range f.TextFragments {
		for _, h := range regions(frag) {
			h.FileIndex = index
			h.Index = len(df.Hunks)
			h.Old.Path = df.OldPath
			h.New.Path = df.NewPath
			h.Old.ContentType = p.classify(df.Language, h.Old.Lines)
			h.New.ContentType = p.classify(df.Language, h.New.Lines)
			df.Hunks = append(df.Hunks, h)
		}
	}
	return df
}

// regions splits a fragment into runs of added and deleted lines. An empty
// side starts at the line following the change and ends one line before.
func regions(frag *gitdiff.TextFragment) []*untangle.DiffHunk {
	oldLine, newLine := int(frag.OldPosition), int(frag.NewPosition)
	// Zero-length sides are positioned after the named line.
	if frag.OldLines == 0 {
		oldLine++
	}
	if frag.NewLines == 0 {
		newLine++
	}

	var hunks []*untangle.DiffHunk
	var cur *untangle.DiffHunk
	flush := func() {
		if cur == nil {
			return
		}
		cur.Old.EndLine = cur.Old.StartLine + len(cur.Old.Lines) - 1
		cur.New.EndLine = cur.New.StartLine + len(cur.New.Lines) - 1
		switch {
		case len(cur.Old.Lines) == 0:
			cur.Kind = untangle.ChangeAdded
		case len(cur.New.Lines) == 0:
			cur.Kind = untangle.ChangeDeleted
		default:
			cur.Kind = untangle.ChangeModified
		}
		hunks = append(hunks, cur)
		cur = nil
	}

	for _, l := range frag.Lines {
		if l.Op == gitdiff.OpContext {
			flush()
			oldLine++
			newLine++
			continue
		}
		if cur == nil {
			cur = &untangle.DiffHunk{
				Old: untangle.Hunk{Version: untangle.Base, StartLine: oldLine},
				New: untangle.Hunk{Version: untangle.Current, StartLine: newLine},
			}
		}
		text := strings.TrimSuffix(l.Line, "\n")
		switch l.Op {
		case gitdiff.OpDelete:
			cur.Old.Lines = append(cur.Old.Lines, text)
			oldLine++
		case gitdiff.OpAdd:
			cur.New.Lines = append(cur.New.Lines, text)
			newLine++
		}
	}
	flush()
	return hunks
}

func (p *Parser) classify(language string, lines []string) untangle.ContentType {
	if len(lines) == 0 {
		return untangle.ContentEmpty
	}
	if p.Classifier != nil {
		return p.Classifier.Classify(language, lines)
	}
	for _, l := range lines {
		if strings.TrimSpace(l) != "" {
			return untangle.ContentCode
		}
	}
	return untangle.ContentBlank
}
