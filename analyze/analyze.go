// Package analyze runs the full untangling pipeline over a materialized change.
package analyze

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/bmatcuk/doublestar"
	"github.com/fwojciec/untangle"
	"github.com/fwojciec/untangle/group"
	"github.com/fwojciec/untangle/link"
	"github.com/fwojciec/untangle/semantic"
	"golang.org/x/sync/errgroup"
)

// Analyzer splits a change into groups of related hunks.
type Analyzer struct {
	Config      untangle.Config
	Parser      untangle.SourceParser        // Required for hard and distance links
	Detector    untangle.LanguageDetector    // Optional; fills in missing file languages
	Refactoring untangle.RefactoringDetector // Optional
	Messages    untangle.MessageGenerator    // Optional
	Logger      *slog.Logger
}

// New returns an Analyzer with cfg and a parser.
func New(cfg untangle.Config, parser untangle.SourceParser) *Analyzer {
	return &Analyzer{Config: cfg, Parser: parser}
}

// AnalyzeChange analyzes a change produced by a collector.
func (a *Analyzer) AnalyzeChange(ctx context.Context, c *untangle.Change) (*untangle.Result, error) {
	return a.Analyze(ctx, c.Files, c.Hunks, c.Snapshots)
}

// Analyze groups the hunks of files. Snapshots point at the base and current
// source trees; an empty path skips the semantic graph of that version.
//
// The returned partition is best effort: it fails only when the
// configuration is invalid, there is nothing to analyze, or building the
// semantic graphs fails or times out.
func (a *Analyzer) Analyze(ctx context.Context, files []*untangle.DiffFile, hunks []*untangle.DiffHunk, snaps untangle.Snapshots) (*untangle.Result, error) {
	cfg := a.Config
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, untangle.ErrNoChanges
	}
	logger := a.logger()

	source, nonSource := a.partition(files)
	sourceHunks := make([]*untangle.DiffHunk, 0, len(hunks))
	for _, h := range hunks {
		if source[h.FileIndex] {
			sourceHunks = append(sourceHunks, h)
		}
	}
	logger.Info("analyzing change",
		"files", len(files),
		"source_hunks", len(sourceHunks),
		"non_source_files", len(nonSource))

	syn := group.NewSynthesizer(logger)
	expected := make([]untangle.HunkID, 0, len(sourceHunks)+len(nonSource))
	if cfg.IncludeNonSource && len(nonSource) > 0 {
		ids := make([]untangle.HunkID, len(nonSource))
		for i, f := range nonSource {
			ids[i] = f.ID()
		}
		syn.Create(untangle.LabelNonSource, ids...)
		expected = append(expected, ids...)
	}
	for _, h := range sourceHunks {
		expected = append(expected, h.ID())
	}
	if len(expected) == 0 {
		return nil, untangle.ErrNoChanges
	}

	var base, current *semantic.Graph
	if a.needsGraphs() {
		var err error
		if base, current, err = a.buildGraphs(ctx, sourceHunks, snaps); err != nil {
			return nil, err
		}
	}

	rg := link.NewGraph(sourceHunks)

	soft := &link.SoftAnalyzer{
		SimilarityThreshold: cfg.SimilarityThreshold,
		DisableSimilarity:   !cfg.Enabled(untangle.LinkPattern),
		Base:                base,
		Current:             current,
	}
	if cfg.Enabled(untangle.LinkSoft) {
		soft.DistanceThreshold = cfg.DistanceThreshold
	}
	reformat := soft.Analyze(rg, sourceHunks)
	syn.Create(untangle.LabelReformat, reformat...)

	if refactored := a.refactorings(ctx, sourceHunks, snaps); len(refactored) > 0 {
		syn.Create(untangle.LabelRefactor, refactored...)
	}

	if cfg.Enabled(untangle.LinkHard) {
		syn.AddHardLinks(rg, link.HardLinks(base, current))
	}
	if cfg.WeightThreshold > 0 {
		rg.Filter(func(e link.Edge) bool { return e.Strength() >= cfg.WeightThreshold })
	}
	logger.Debug("relation graph ready", "nodes", len(rg.Nodes()), "edges", len(rg.Edges()))

	syn.Synthesize(rg)
	result := syn.Result()

	a.generateMessages(ctx, result, sourceHunks)

	if err := result.Validate(expected); err != nil {
		logger.Error("invalid partition", "error", err)
	}
	logger.Info("analysis complete", "groups", len(result.Order))
	return result, nil
}

func (a *Analyzer) logger() *slog.Logger {
	if a.Logger == nil {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return a.Logger
}

// partition returns the indices of source files and the non-source files.
func (a *Analyzer) partition(files []*untangle.DiffFile) (map[int]bool, []*untangle.DiffFile) {
	source := make(map[int]bool, len(files))
	var nonSource []*untangle.DiffFile
	for _, f := range files {
		if f.Language == "" && a.Detector != nil && !f.Binary {
			f.Language = a.Detector.DetectFromPath(f.Path())
		}
		if a.isSource(f) {
			source[f.Index] = true
			continue
		}
		nonSource = append(nonSource, f)
	}
	return source, nonSource
}

func (a *Analyzer) isSource(f *untangle.DiffFile) bool {
	if f.Binary || f.Language != a.Config.SourceLanguage {
		return false
	}
	for _, pattern := range a.Config.Exclude {
		for _, p := range []string{f.OldPath, f.NewPath} {
			if p == "" {
				continue
			}
			ok, err := doublestar.Match(pattern, p)
			if err != nil {
				a.logger().Warn("bad exclude pattern", "pattern", pattern, "error", err)
				continue
			}
			if ok {
				return false
			}
		}
	}
	return true
}

func (a *Analyzer) needsGraphs() bool {
	if a.Parser == nil {
		return false
	}
	distance := a.Config.Enabled(untangle.LinkSoft) && a.Config.DistanceThreshold > 0
	return a.Config.Enabled(untangle.LinkHard) || distance
}

// buildGraphs builds the base and current semantic graphs concurrently
// within the configured timeout. A timeout or cancellation fails the run.
// Any other build failure is logged and leaves that version without a graph,
// so its hunks get no hard or distance links.
func (a *Analyzer) buildGraphs(ctx context.Context, hunks []*untangle.DiffHunk, snaps untangle.Snapshots) (*semantic.Graph, *semantic.Graph, error) {
	ctx, cancel := context.WithTimeout(ctx, a.Config.BuildTimeout)
	defer cancel()

	var graphs [2]*semantic.Graph
	roots := [2]string{snaps.Base, snaps.Current}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(2)
	for i, v := range []untangle.Version{untangle.Base, untangle.Current} {
		if roots[i] == "" {
			continue
		}
		g.Go(func() error {
			b := semantic.NewBuilder(v, hunks, a.logger())
			graph, err := b.BuildFrom(gctx, a.Parser, roots[i])
			if err != nil {
				if gctx.Err() != nil {
					return err
				}
				a.logger().Error("semantic graph build failed", "version", v, "root", roots[i], "error", err)
				return nil
			}
			graphs[i] = graph
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, nil, fmt.Errorf("%w after %s: %w", untangle.ErrBuildTimeout, a.Config.BuildTimeout, err)
		}
		return nil, nil, fmt.Errorf("build semantic graphs: %w", err)
	}
	if err := ctx.Err(); errors.Is(err, context.DeadlineExceeded) {
		return nil, nil, fmt.Errorf("%w after %s", untangle.ErrBuildTimeout, a.Config.BuildTimeout)
	}
	return graphs[0], graphs[1], nil
}

// refactorings runs the refactoring detector and returns the hunks it
// touched. Detector failures are logged and yield no refactor links.
func (a *Analyzer) refactorings(ctx context.Context, hunks []*untangle.DiffHunk, snaps untangle.Snapshots) []untangle.HunkID {
	cfg := a.Config
	if !cfg.DetectRefactorings || !cfg.Enabled(untangle.LinkRefactor) || a.Refactoring == nil {
		return nil
	}
	if snaps.Base == "" || snaps.Current == "" {
		return nil
	}
	refs, err := a.Refactoring.Detect(ctx, snaps.Base, snaps.Current)
	if err != nil {
		a.logger().Warn("refactoring detection failed", "error", err)
		return nil
	}
	a.logger().Debug("detected refactorings", "count", len(refs))
	return link.RefactorLinks(refs, hunks, a.logger())
}

// generateMessages fills in commit messages. Failures are logged and leave
// the message empty.
func (a *Analyzer) generateMessages(ctx context.Context, r *untangle.Result, hunks []*untangle.DiffHunk) {
	if a.Messages == nil {
		return
	}
	byID := make(map[untangle.HunkID]*untangle.DiffHunk, len(hunks))
	for _, h := range hunks {
		byID[h.ID()] = h
	}
	for _, g := range r.Ordered() {
		var members []*untangle.DiffHunk
		for _, id := range g.HunkIDs {
			if h, ok := byID[id]; ok {
				members = append(members, h)
			}
		}
		msgs, err := a.Messages.Generate(ctx, g, members)
		if err != nil {
			a.logger().Warn("commit message generation failed", "group", g.ID, "error", err)
			continue
		}
		if len(msgs) > 0 {
			g.CommitMessage = msgs[0]
		}
	}
}

// StubMessages is a MessageGenerator that never proposes a message.
type StubMessages struct{}

// Generate returns no messages.
func (StubMessages) Generate(context.Context, *untangle.Group, []*untangle.DiffHunk) ([]string, error) {
	return nil, nil
}

var _ untangle.MessageGenerator = StubMessages{}
