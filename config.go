package untangle

import (
	"errors"
	"fmt"
	"slices"
	"time"
)

// LinkKind names a family of links that can be switched on or off.
type LinkKind string

// Link kinds.
const (
	LinkHard     LinkKind = "hard"     // Def/use links from the semantic graphs
	LinkSoft     LinkKind = "soft"     // Structural distance links
	LinkPattern  LinkKind = "pattern"  // Content similarity links
	LinkRefactor LinkKind = "refactor" // Refactoring links
)

// Defaults.
const (
	DefaultSimilarityThreshold = 0.8
	DefaultBuildTimeout        = 10 * time.Minute
	DefaultSourceLanguage      = "Go"
)

// ErrInvalidConfig is returned by Config.Validate.
var ErrInvalidConfig = errors.New("invalid config")

// Config controls an analysis run.
type Config struct {
	SimilarityThreshold float64       `yaml:"similarity_threshold"`
	DistanceThreshold   int           `yaml:"distance_threshold"` // 0 disables distance links
	WeightThreshold     float64       `yaml:"weight_threshold"`   // Minimum link strength kept before synthesis
	DetectRefactorings  bool          `yaml:"detect_refactorings"`
	IncludeNonSource    bool          `yaml:"include_non_source"`
	LinkFilters         []LinkKind    `yaml:"link_filters"` // Empty enables every kind
	BuildTimeout        time.Duration `yaml:"build_timeout"`
	SourceLanguage      string        `yaml:"source_language"`
	Exclude             []string      `yaml:"exclude"` // Doublestar patterns of paths treated as non-source

	// Languages maps doublestar path patterns to language names, overriding
	// detection by file name.
	Languages map[string]string `yaml:"languages"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		SimilarityThreshold: DefaultSimilarityThreshold,
		DetectRefactorings:  true,
		IncludeNonSource:    true,
		BuildTimeout:        DefaultBuildTimeout,
		SourceLanguage:      DefaultSourceLanguage,
	}
}

// Enabled reports whether links of kind k take part in the analysis.
func (c Config) Enabled(k LinkKind) bool {
	return len(c.LinkFilters) == 0 || slices.Contains(c.LinkFilters, k)
}

// Validate checks that all values are in range.
func (c Config) Validate() error {
	var errs []error
	if c.SimilarityThreshold < 0 || c.SimilarityThreshold > 1 {
		errs = append(errs, fmt.Errorf("similarity threshold %v not in [0,1]", c.SimilarityThreshold))
	}
	if c.DistanceThreshold < 0 {
		errs = append(errs, fmt.Errorf("distance threshold %d is negative", c.DistanceThreshold))
	}
	if c.WeightThreshold < 0 || c.WeightThreshold > 1 {
		errs = append(errs, fmt.Errorf("weight threshold %v not in [0,1]", c.WeightThreshold))
	}
	if c.BuildTimeout <= 0 {
		errs = append(errs, fmt.Errorf("build timeout %v must be positive", c.BuildTimeout))
	}
	for _, k := range c.LinkFilters {
		switch k {
		case LinkHard, LinkSoft, LinkPattern, LinkRefactor:
		default:
			errs = append(errs, fmt.Errorf("unknown link filter %q", k))
		}
	}
	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrInvalidConfig, errors.Join(errs...))
}
