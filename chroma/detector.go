// Package chroma detects languages and classifies hunk content using the
// chroma lexers.
package chroma

import (
	"path"
	"sort"
	"sync"

	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/bmatcuk/doublestar"
	"github.com/fwojciec/untangle"
)

// Compile-time interface verification.
var _ untangle.LanguageDetector = (*Detector)(nil)

// Detector maps file paths to chroma language names. Overrides are doublestar
// patterns matched against the slash separated path before any lexer lookup;
// they are tried in lexical order of the pattern. Lexer lookups are memoized
// by base name.
type Detector struct {
	overrides []override

	mu     sync.Mutex
	byName map[string]string
}

type override struct {
	pattern  string
	language string
}

// NewDetector creates a detector with optional pattern to language overrides.
func NewDetector(overrides map[string]string) *Detector {
	d := &Detector{byName: make(map[string]string)}
	for p, lang := range overrides {
		d.overrides = append(d.overrides, override{pattern: p, language: lang})
	}
	sort.Slice(d.overrides, func(i, j int) bool {
		return d.overrides[i].pattern < d.overrides[j].pattern
	})
	return d
}

// DetectFromPath returns the language name for the given path,
// or an empty string if the language cannot be determined.
func (d *Detector) DetectFromPath(p string) string {
	for _, o := range d.overrides {
		if ok, err := doublestar.Match(o.pattern, p); err == nil && ok {
			return o.language
		}
	}

	name := path.Base(p)
	d.mu.Lock()
	defer d.mu.Unlock()
	if lang, ok := d.byName[name]; ok {
		return lang
	}
	var lang string
	if lexer := lexers.Match(name); lexer != nil {
		lang = lexer.Config().Name
	}
	d.byName[name] = lang
	return lang
}
