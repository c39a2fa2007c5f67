package analyze_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/fwojciec/untangle"
	"github.com/fwojciec/untangle/analyze"
	"github.com/fwojciec/untangle/mock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	shopPkg = "example.com/shop"
	utilPkg = "example.com/shop/util"
)

func side(v untangle.Version, path string, start int, lines []string) untangle.Hunk {
	h := untangle.Hunk{Version: v, Path: path, StartLine: start, EndLine: start + len(lines) - 1, Lines: lines}
	if len(lines) > 0 {
		h.ContentType = untangle.ContentCode
	}
	return h
}

func codeHunk(file, index int, path string, start int, old, new []string) *untangle.DiffHunk {
	return &untangle.DiffHunk{
		FileIndex: file,
		Index:     index,
		Old:       side(untangle.Base, path, start, old),
		New:       side(untangle.Current, path, start, new),
	}
}

// fixture is a change touching:
//
//	0 cart.go:      0:0 inside Cart.Total, which calls util.Sum; 0:1 whitespace only
//	1 util/util.go: 1:0 inside Sum
//	2 README.md:    whole file, not source
//	3 other.go:     3:0 outside any declaration
type fixture struct {
	files []*untangle.DiffFile
	hunks []*untangle.DiffHunk
}

func newFixture() fixture {
	h00 := codeHunk(0, 0, "cart.go", 8, []string{"return 0"}, []string{"return total"})
	h01 := codeHunk(0, 1, "cart.go", 14, []string{"a:=b"}, []string{"a := b"})
	h10 := codeHunk(1, 0, "util/util.go", 4, []string{"x := 1"}, []string{"x := 2"})
	h20 := codeHunk(2, 0, "README.md", 1, nil, []string{"# Shop"})
	h30 := codeHunk(3, 0, "other.go", 1, []string{"var a = 1", "var b = 2"}, []string{"var a = 10", "var b = 20"})

	files := []*untangle.DiffFile{
		{Index: 0, OldPath: "cart.go", NewPath: "cart.go", Language: "Go", Hunks: []*untangle.DiffHunk{h00, h01}},
		{Index: 1, OldPath: "util/util.go", NewPath: "util/util.go", Language: "Go", Hunks: []*untangle.DiffHunk{h10}},
		{Index: 2, Status: untangle.FileAdded, NewPath: "README.md", Language: "Markdown", Hunks: []*untangle.DiffHunk{h20}},
		{Index: 3, OldPath: "other.go", NewPath: "other.go", Language: "Go", Hunks: []*untangle.DiffHunk{h30}},
	}
	return fixture{files: files, hunks: untangle.AllHunks(files)}
}

func sourceFiles() []untangle.SourceFile {
	return []untangle.SourceFile{
		{
			Path:    "cart.go",
			Package: shopPkg,
			Imports: []string{utilPkg},
			Types: []untangle.TypeDecl{
				{Kind: untangle.NodeClass, Name: "Cart", QualifiedName: shopPkg + ".Cart", Path: "cart.go", Lines: untangle.LineRange{Start: 3, End: 5}},
			},
			Members: []untangle.MemberDecl{
				{
					Kind: untangle.NodeMethod, Name: "Total", QualifiedName: shopPkg + ".Cart.Total", Owner: shopPkg + ".Cart", Path: "cart.go", Lines: untangle.LineRange{Start: 7, End: 12},
					Refs: []untangle.Ref{{Kind: untangle.EdgeCallsMethod, Target: utilPkg + ".Sum"}},
				},
			},
		},
		{
			Path:    "util/util.go",
			Package: utilPkg,
			Members: []untangle.MemberDecl{
				{Kind: untangle.NodeMethod, Name: "Sum", QualifiedName: utilPkg + ".Sum", Path: "util/util.go", Lines: untangle.LineRange{Start: 3, End: 9}},
			},
		},
	}
}

func parser() *mock.SourceParser {
	return &mock.SourceParser{
		ParseFn: func(ctx context.Context, root string) ([]untangle.SourceFile, error) {
			return sourceFiles(), nil
		},
	}
}

var snaps = untangle.Snapshots{Base: "/tmp/base", Current: "/tmp/current"}

func labels(r *untangle.Result) []untangle.GroupLabel {
	var out []untangle.GroupLabel
	for _, g := range r.Ordered() {
		out = append(out, g.Label)
	}
	return out
}

// fixtureIDs lists every id the fixture must be partitioned into.
var fixtureIDs = []untangle.HunkID{"0:0", "0:1", "1:0", "2:2", "3:0"}

func TestAnalyzer_Analyze(t *testing.T) {
	t.Parallel()

	f := newFixture()
	var (
		mu    sync.Mutex
		roots []string
	)
	p := &mock.SourceParser{
		ParseFn: func(ctx context.Context, root string) ([]untangle.SourceFile, error) {
			mu.Lock()
			defer mu.Unlock()
			roots = append(roots, root)
			return sourceFiles(), nil
		},
	}
	a := analyze.New(untangle.DefaultConfig(), p)

	r, err := a.Analyze(context.Background(), f.files, f.hunks, snaps)

	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"/tmp/base", "/tmp/current"}, roots)
	assert.Equal(t, []string{"group0", "group1", "group2", "group3"}, r.Order)
	assert.Equal(t, []untangle.GroupLabel{
		untangle.LabelNonSource,
		untangle.LabelReformat,
		untangle.LabelLinked,
		untangle.LabelOther,
	}, labels(r))
	assert.Equal(t, []untangle.HunkID{"2:2"}, r.Groups["group0"].HunkIDs)
	assert.Equal(t, []untangle.HunkID{"0:1"}, r.Groups["group1"].HunkIDs)
	assert.Equal(t, []untangle.HunkID{"0:0", "1:0"}, r.Groups["group2"].HunkIDs)
	assert.Equal(t, []untangle.HunkID{"3:0"}, r.Groups["group3"].HunkIDs)
	assert.NoError(t, r.Validate(fixtureIDs))
}

func TestAnalyzer_AnalyzeChange(t *testing.T) {
	t.Parallel()

	f := newFixture()
	a := analyze.New(untangle.DefaultConfig(), parser())

	r, err := a.AnalyzeChange(context.Background(), &untangle.Change{Files: f.files, Hunks: f.hunks, Snapshots: snaps})

	require.NoError(t, err)
	assert.NoError(t, r.Validate(fixtureIDs))
}

func TestAnalyzer_NoChanges(t *testing.T) {
	t.Parallel()

	a := analyze.New(untangle.DefaultConfig(), parser())

	_, err := a.Analyze(context.Background(), nil, nil, snaps)

	assert.ErrorIs(t, err, untangle.ErrNoChanges)
}

func TestAnalyzer_InvalidConfig(t *testing.T) {
	t.Parallel()

	f := newFixture()
	cfg := untangle.DefaultConfig()
	cfg.SimilarityThreshold = 2
	a := analyze.New(cfg, parser())

	_, err := a.Analyze(context.Background(), f.files, f.hunks, snaps)

	assert.ErrorIs(t, err, untangle.ErrInvalidConfig)
}

func TestAnalyzer_ExcludeNonSource(t *testing.T) {
	t.Parallel()

	f := newFixture()
	cfg := untangle.DefaultConfig()
	cfg.IncludeNonSource = false
	a := analyze.New(cfg, parser())

	r, err := a.Analyze(context.Background(), f.files, f.hunks, snaps)

	require.NoError(t, err)
	assert.Nil(t, r.GroupOf("2:2"))
	assert.NotContains(t, labels(r), untangle.LabelNonSource)
	assert.NoError(t, r.Validate([]untangle.HunkID{"0:0", "0:1", "1:0", "3:0"}))
}

func TestAnalyzer_ExcludePatterns(t *testing.T) {
	t.Parallel()

	f := newFixture()
	cfg := untangle.DefaultConfig()
	cfg.Exclude = []string{"util/**"}
	a := analyze.New(cfg, parser())

	r, err := a.Analyze(context.Background(), f.files, f.hunks, snaps)

	require.NoError(t, err)
	nonSource := r.Ordered()[0]
	assert.Equal(t, untangle.LabelNonSource, nonSource.Label)
	assert.Equal(t, []untangle.HunkID{"1:1", "2:2"}, nonSource.HunkIDs)
	assert.Nil(t, r.GroupOf("1:0"), "hunks of excluded files are not grouped individually")
}

func TestAnalyzer_DetectsMissingLanguages(t *testing.T) {
	t.Parallel()

	f := newFixture()
	for _, file := range f.files {
		file.Language = ""
	}
	a := analyze.New(untangle.DefaultConfig(), parser())
	a.Detector = &mock.LanguageDetector{
		DetectFromPathFn: func(path string) string {
			if path == "README.md" {
				return "Markdown"
			}
			return "Go"
		},
	}

	r, err := a.Analyze(context.Background(), f.files, f.hunks, snaps)

	require.NoError(t, err)
	assert.Equal(t, "Go", f.files[0].Language)
	assert.NoError(t, r.Validate(fixtureIDs))
}

func TestAnalyzer_LinkFilters(t *testing.T) {
	t.Parallel()

	f := newFixture()
	cfg := untangle.DefaultConfig()
	cfg.LinkFilters = []untangle.LinkKind{untangle.LinkPattern}
	var called atomic.Bool
	p := &mock.SourceParser{
		ParseFn: func(ctx context.Context, root string) ([]untangle.SourceFile, error) {
			called.Store(true)
			return sourceFiles(), nil
		},
	}
	a := analyze.New(cfg, p)

	r, err := a.Analyze(context.Background(), f.files, f.hunks, snaps)

	require.NoError(t, err)
	assert.False(t, called.Load(), "no graph is needed without hard or distance links")
	assert.NotContains(t, labels(r), untangle.LabelLinked)
	assert.NoError(t, r.Validate(fixtureIDs))
}

func TestAnalyzer_DistanceLinks(t *testing.T) {
	t.Parallel()

	f := newFixture()
	cfg := untangle.DefaultConfig()
	cfg.LinkFilters = []untangle.LinkKind{untangle.LinkSoft}
	cfg.DistanceThreshold = 3
	a := analyze.New(cfg, parser())

	r, err := a.Analyze(context.Background(), f.files, f.hunks, snaps)

	require.NoError(t, err)
	// 0:0 and 1:0 are in different packages; 3:0 is outside every parsed file.
	assert.NotEqual(t, r.GroupOf("0:0"), r.GroupOf("1:0"))
	assert.NoError(t, r.Validate(fixtureIDs))
}

func TestAnalyzer_DistanceLinks_SameMethod(t *testing.T) {
	t.Parallel()

	// Both hunks sit inside Cart.Total (lines 7-12).
	h0 := codeHunk(0, 0, "cart.go", 8, []string{"return 0"}, []string{"return total"})
	h1 := codeHunk(0, 1, "cart.go", 11, []string{"n++"}, []string{"n += step"})
	files := []*untangle.DiffFile{
		{Index: 0, OldPath: "cart.go", NewPath: "cart.go", Language: "Go", Hunks: []*untangle.DiffHunk{h0, h1}},
	}
	cfg := untangle.DefaultConfig()
	cfg.LinkFilters = []untangle.LinkKind{untangle.LinkSoft}
	cfg.DistanceThreshold = 2
	a := analyze.New(cfg, parser())

	r, err := a.Analyze(context.Background(), files, untangle.AllHunks(files), snaps)

	require.NoError(t, err)
	assert.Equal(t, []untangle.GroupLabel{untangle.LabelLinked}, labels(r))
	assert.Equal(t, []untangle.HunkID{"0:0", "0:1"}, r.Groups[r.Order[0]].HunkIDs)
}

func TestAnalyzer_WeightThreshold(t *testing.T) {
	t.Parallel()

	h0 := codeHunk(0, 0, "a.go", 3, []string{"a := foo(1)"}, []string{"a := foo(2)"})
	h1 := codeHunk(1, 0, "b.go", 3, []string{"a := bar(1)"}, []string{"a := bar(2)"})
	files := []*untangle.DiffFile{
		{Index: 0, OldPath: "a.go", NewPath: "a.go", Language: "Go", Hunks: []*untangle.DiffHunk{h0}},
		{Index: 1, OldPath: "b.go", NewPath: "b.go", Language: "Go", Hunks: []*untangle.DiffHunk{h1}},
	}

	run := func(weight float64) *untangle.Result {
		cfg := untangle.DefaultConfig()
		cfg.WeightThreshold = weight
		r, err := analyze.New(cfg, nil).Analyze(context.Background(), files, []*untangle.DiffHunk{h0, h1}, untangle.Snapshots{})
		require.NoError(t, err)
		return r
	}

	// Similarity of the two hunks is 0.83.
	assert.Equal(t, []untangle.GroupLabel{untangle.LabelLinked}, labels(run(0.8)))
	assert.Equal(t, []untangle.GroupLabel{untangle.LabelOther, untangle.LabelOther}, labels(run(0.9)))
}

func TestAnalyzer_Refactorings(t *testing.T) {
	t.Parallel()

	f := newFixture()
	var gotBase, gotCurrent string
	a := analyze.New(untangle.DefaultConfig(), parser())
	a.Refactoring = &mock.RefactoringDetector{
		DetectFn: func(ctx context.Context, baseDir, currentDir string) ([]untangle.Refactoring, error) {
			gotBase, gotCurrent = baseDir, currentDir
			return []untangle.Refactoring{{
				Type:        "Change Signature",
				Description: "util.Sum: changed from func([]int) int to func(...int) int",
				Ranges:      []untangle.CodeRange{{Side: untangle.RightSide, Path: "util/util.go", StartLine: 3, EndLine: 9}},
			}}, nil
		},
	}

	r, err := a.Analyze(context.Background(), f.files, f.hunks, snaps)

	require.NoError(t, err)
	assert.Equal(t, snaps.Base, gotBase)
	assert.Equal(t, snaps.Current, gotCurrent)
	refactor := r.GroupOf("1:0")
	require.NotNil(t, refactor)
	assert.Equal(t, untangle.LabelRefactor, refactor.Label)
	assert.Equal(t, []untangle.HunkID{"1:0"}, refactor.HunkIDs, "hard links to refactored hunks are skipped")
	require.Len(t, f.hunks[2].Actions, 1)
	assert.Equal(t, "Change Signature", f.hunks[2].Actions[0].Type)
	assert.NoError(t, r.Validate(fixtureIDs))
}

func TestAnalyzer_RefactoringFailureIsNotFatal(t *testing.T) {
	t.Parallel()

	f := newFixture()
	a := analyze.New(untangle.DefaultConfig(), parser())
	a.Refactoring = &mock.RefactoringDetector{
		DetectFn: func(ctx context.Context, baseDir, currentDir string) ([]untangle.Refactoring, error) {
			return nil, errors.New("boom")
		},
	}

	r, err := a.Analyze(context.Background(), f.files, f.hunks, snaps)

	require.NoError(t, err)
	assert.NotContains(t, labels(r), untangle.LabelRefactor)
}

func TestAnalyzer_ParseError(t *testing.T) {
	t.Parallel()

	f := newFixture()
	a := analyze.New(untangle.DefaultConfig(), &mock.SourceParser{
		ParseFn: func(ctx context.Context, root string) ([]untangle.SourceFile, error) {
			if root == snaps.Base {
				return nil, errors.New(`exec: "go": executable file not found in $PATH`)
			}
			return sourceFiles(), nil
		},
	})

	r, err := a.Analyze(context.Background(), f.files, f.hunks, snaps)

	require.NoError(t, err)
	assert.NoError(t, r.Validate(fixtureIDs))
	// The current graph alone still links 0:0 to 1:0.
	assert.Equal(t, r.GroupOf("0:0"), r.GroupOf("1:0"))
}

func TestAnalyzer_ParseErrorBothVersions(t *testing.T) {
	t.Parallel()

	f := newFixture()
	a := analyze.New(untangle.DefaultConfig(), &mock.SourceParser{
		ParseFn: func(ctx context.Context, root string) ([]untangle.SourceFile, error) {
			return nil, errors.New("go list failed")
		},
	})

	r, err := a.Analyze(context.Background(), f.files, f.hunks, snaps)

	require.NoError(t, err)
	assert.NoError(t, r.Validate(fixtureIDs))
	assert.NotContains(t, labels(r), untangle.LabelLinked)
}

func TestAnalyzer_Canceled(t *testing.T) {
	t.Parallel()

	f := newFixture()
	ctx, cancel := context.WithCancel(context.Background())
	a := analyze.New(untangle.DefaultConfig(), &mock.SourceParser{
		ParseFn: func(ctx context.Context, root string) ([]untangle.SourceFile, error) {
			cancel()
			<-ctx.Done()
			return nil, ctx.Err()
		},
	})

	_, err := a.Analyze(ctx, f.files, f.hunks, snaps)

	assert.ErrorIs(t, err, context.Canceled)
	assert.NotErrorIs(t, err, untangle.ErrBuildTimeout)
}

func TestAnalyzer_BuildTimeout(t *testing.T) {
	t.Parallel()

	f := newFixture()
	cfg := untangle.DefaultConfig()
	cfg.BuildTimeout = 10 * time.Millisecond
	a := analyze.New(cfg, &mock.SourceParser{
		ParseFn: func(ctx context.Context, root string) ([]untangle.SourceFile, error) {
			<-ctx.Done()
			return nil, ctx.Err()
		},
	})

	_, err := a.Analyze(context.Background(), f.files, f.hunks, snaps)

	assert.ErrorIs(t, err, untangle.ErrBuildTimeout)
}

func TestAnalyzer_CommitMessages(t *testing.T) {
	t.Parallel()

	f := newFixture()
	a := analyze.New(untangle.DefaultConfig(), parser())
	a.Messages = &mock.MessageGenerator{
		GenerateFn: func(ctx context.Context, g *untangle.Group, hunks []*untangle.DiffHunk) ([]string, error) {
			if g.Label == untangle.LabelNonSource {
				assert.Empty(t, hunks, "synthetic file ids have no hunk")
				return nil, errors.New("no content")
			}
			return []string{"Update " + string(g.Label)}, nil
		},
	}

	r, err := a.Analyze(context.Background(), f.files, f.hunks, snaps)

	require.NoError(t, err)
	assert.Empty(t, r.Groups["group0"].CommitMessage)
	assert.Equal(t, "Update reformat-only", r.Groups["group1"].CommitMessage)
}

func TestStubMessages(t *testing.T) {
	t.Parallel()

	msgs, err := analyze.StubMessages{}.Generate(context.Background(), &untangle.Group{}, nil)

	require.NoError(t, err)
	assert.Empty(t, msgs)
}
