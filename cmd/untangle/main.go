package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/fwojciec/untangle"
	"github.com/fwojciec/untangle/analyze"
	"github.com/fwojciec/untangle/apidiff"
	"github.com/fwojciec/untangle/chroma"
	"github.com/fwojciec/untangle/fs"
	"github.com/fwojciec/untangle/git"
	"github.com/fwojciec/untangle/gitdiff"
	"github.com/fwojciec/untangle/golang"
	"github.com/fwojciec/untangle/jsonl"
	"github.com/fwojciec/untangle/lipgloss"
	"github.com/muesli/termenv"
)

// App encapsulates the application logic for testing.
type App struct {
	Collector untangle.ChangeCollector
	Analyzer  *analyze.Analyzer
	Store     untangle.GroupStore // Used when OutPath is set
	Renderer  *lipgloss.Renderer
	Output    io.Writer

	Repo       string
	Rev        string // Empty analyzes the working tree
	OutPath    string // JSONL group export
	DetailsDir string // Per-group text dumps
}

// Run collects the change, splits it into groups and reports them.
func (a *App) Run(ctx context.Context) error {
	change, err := a.Collector.Collect(ctx, a.Repo, a.Rev)
	if err != nil {
		return fmt.Errorf("collect change: %w", err)
	}

	result, err := a.Analyzer.AnalyzeChange(ctx, change)
	if err != nil {
		return err
	}

	if a.OutPath != "" {
		if err := a.Store.Save(a.OutPath, result); err != nil {
			return fmt.Errorf("save groups: %w", err)
		}
	}
	if a.DetailsDir != "" {
		if err := jsonl.DumpDetails(a.DetailsDir, result, change.Files); err != nil {
			return fmt.Errorf("dump details: %w", err)
		}
	}

	_, err = io.WriteString(a.Output, a.Renderer.Render(result, change.Files))
	return err
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	opts, err := ParseArgs(os.Args[1:], os.Stderr)
	if err != nil {
		return err
	}
	cfg, err := opts.Config()
	if err != nil {
		return err
	}

	level := slog.LevelInfo
	if opts.Verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	detector := chroma.NewDetector(cfg.Languages)
	collector := git.NewCollector(git.NewRunner(), gitdiff.NewParser(detector, chroma.NewClassifier()), logger)
	defer func() {
		if err := collector.Cleanup(); err != nil {
			logger.Warn("snapshot cleanup failed", "error", err)
		}
	}()

	var refactorings untangle.RefactoringDetector = apidiff.NewDetector(logger)
	if !opts.NoCache {
		refactorings = fs.NewDetector(refactorings, fs.DefaultCacheDir())
	}

	analyzer := analyze.New(cfg, golang.NewParser(logger))
	analyzer.Detector = detector
	analyzer.Refactoring = refactorings
	analyzer.Messages = analyze.StubMessages{}
	analyzer.Logger = logger

	renderer := lipgloss.NewRenderer(os.Stdout, nil)
	if opts.NoColor {
		renderer.SetColorProfile(termenv.Ascii)
	}
	renderer.ShowLines = opts.ShowLines

	app := &App{
		Collector:  collector,
		Analyzer:   analyzer,
		Store:      jsonl.NewStore(),
		Renderer:   renderer,
		Output:     os.Stdout,
		Repo:       opts.Repo,
		Rev:        opts.Rev,
		OutPath:    opts.OutPath,
		DetailsDir: opts.DetailsDir,
	}

	err = app.Run(ctx)
	if errors.Is(err, untangle.ErrNoChanges) {
		fmt.Fprintln(os.Stderr, err)
		return nil
	}
	return err
}
