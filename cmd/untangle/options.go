package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fwojciec/untangle"
	"github.com/fwojciec/untangle/yaml"
)

// DefaultConfigFile is read from the repository root when -config is not
// given.
const DefaultConfigFile = ".untangle.yaml"

// Options are the parsed command line arguments.
type Options struct {
	Repo       string
	Rev        string
	ConfigPath string
	OutPath    string
	DetailsDir string
	ShowLines  bool
	NoColor    bool
	NoCache    bool
	Verbose    bool

	similarity   float64
	distance     int
	weight       float64
	links        string
	refactorings bool
	nonSource    bool
	timeout      time.Duration
	language     string
	exclude      patterns
	set          map[string]bool
}

type patterns []string

func (p *patterns) String() string { return strings.Join(*p, ",") }

func (p *patterns) Set(v string) error {
	*p = append(*p, v)
	return nil
}

// ParseArgs parses command line arguments: flags followed by an optional
// revision.
func ParseArgs(args []string, stderr io.Writer) (*Options, error) {
	o := &Options{set: make(map[string]bool)}
	def := untangle.DefaultConfig()

	fs := flag.NewFlagSet("untangle", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() {
		fmt.Fprintln(stderr, "Usage: untangle [flags] [revision]")
		fmt.Fprintln(stderr, "Splits a commit, or the working tree when no revision is given, into groups of related hunks.")
		fs.PrintDefaults()
	}
	fs.StringVar(&o.Repo, "repo", ".", "Repository path")
	fs.StringVar(&o.ConfigPath, "config", "", "YAML config file (default <repo>/"+DefaultConfigFile+" if present)")
	fs.StringVar(&o.OutPath, "out", "", "Write groups as JSONL to this file")
	fs.StringVar(&o.DetailsDir, "details", "", "Write one text dump per group into this directory")
	fs.BoolVar(&o.ShowLines, "lines", false, "Show changed lines in the summary")
	fs.BoolVar(&o.NoColor, "no-color", false, "Disable colored output")
	fs.BoolVar(&o.NoCache, "no-cache", false, "Do not cache refactoring detection")
	fs.BoolVar(&o.Verbose, "v", false, "Verbose logging")

	fs.Float64Var(&o.similarity, "similarity", def.SimilarityThreshold, "Minimum similarity of pattern links")
	fs.IntVar(&o.distance, "distance", def.DistanceThreshold, "Maximum structural distance of soft links (0 disables)")
	fs.Float64Var(&o.weight, "weight", def.WeightThreshold, "Minimum link strength kept before grouping")
	fs.StringVar(&o.links, "links", "", "Comma-separated link kinds to use: hard,soft,pattern,refactor (default all)")
	fs.BoolVar(&o.refactorings, "refactorings", def.DetectRefactorings, "Detect refactorings")
	fs.BoolVar(&o.nonSource, "non-source", def.IncludeNonSource, "Group non-source files together")
	fs.DurationVar(&o.timeout, "timeout", def.BuildTimeout, "Semantic graph build timeout")
	fs.StringVar(&o.language, "language", def.SourceLanguage, "Language of source files")
	fs.Var(&o.exclude, "exclude", "Doublestar pattern of paths treated as non-source (repeatable)")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	fs.Visit(func(f *flag.Flag) { o.set[f.Name] = true })

	switch rest := fs.Args(); len(rest) {
	case 0:
	case 1:
		o.Rev = rest[0]
	default:
		return nil, fmt.Errorf("expected at most one revision, got %d", len(rest))
	}
	return o, nil
}

// Config loads the config file and applies flags given on the command line
// over it.
func (o *Options) Config() (untangle.Config, error) {
	cfg := untangle.DefaultConfig()
	path := o.ConfigPath
	if path == "" {
		candidate := filepath.Join(o.Repo, DefaultConfigFile)
		if _, err := os.Stat(candidate); err == nil {
			path = candidate
		} else if !errors.Is(err, os.ErrNotExist) {
			return untangle.Config{}, err
		}
	}
	if path != "" {
		loaded, err := yaml.LoadConfig(path)
		if err != nil {
			return untangle.Config{}, fmt.Errorf("load config: %w", err)
		}
		cfg = loaded
	}

	if o.set["similarity"] {
		cfg.SimilarityThreshold = o.similarity
	}
	if o.set["distance"] {
		cfg.DistanceThreshold = o.distance
	}
	if o.set["weight"] {
		cfg.WeightThreshold = o.weight
	}
	if o.set["links"] {
		cfg.LinkFilters = nil
		for _, k := range strings.Split(o.links, ",") {
			if k = strings.TrimSpace(k); k != "" {
				cfg.LinkFilters = append(cfg.LinkFilters, untangle.LinkKind(k))
			}
		}
	}
	if o.set["refactorings"] {
		cfg.DetectRefactorings = o.refactorings
	}
	if o.set["non-source"] {
		cfg.IncludeNonSource = o.nonSource
	}
	if o.set["timeout"] {
		cfg.BuildTimeout = o.timeout
	}
	if o.set["language"] {
		cfg.SourceLanguage = o.language
	}
	if o.set["exclude"] {
		cfg.Exclude = append(cfg.Exclude, o.exclude...)
	}

	if err := cfg.Validate(); err != nil {
		return untangle.Config{}, err
	}
	return cfg, nil
}
