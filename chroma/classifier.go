package chroma

import (
	"strings"

	chromalib "github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/fwojciec/untangle"
)

// Compile-time interface verification.
var _ untangle.ContentClassifier = (*Classifier)(nil)

// Classifier decides whether hunk lines are code, imports, comments or blank
// from the chroma token stream of the language.
type Classifier struct{}

// NewClassifier creates a new chroma-based content classifier.
func NewClassifier() *Classifier {
	return &Classifier{}
}

// lineKind orders line classes by precedence: any code line makes the side
// code, then imports, then comments.
type lineKind int

const (
	lineBlank lineKind = iota
	lineComment
	lineImport
	lineCode
)

// Classify returns ContentEmpty for no lines. Lines of unknown languages are
// code unless blank.
func (c *Classifier) Classify(language string, lines []string) untangle.ContentType {
	if len(lines) == 0 {
		return untangle.ContentEmpty
	}

	kind := lineBlank
	for _, l := range tokenizeLines(language, strings.Join(lines, "\n")) {
		kind = max(kind, classifyLine(l))
	}

	switch kind {
	case lineCode:
		return untangle.ContentCode
	case lineImport:
		return untangle.ContentImport
	case lineComment:
		return untangle.ContentComment
	default:
		return untangle.ContentBlank
	}
}

func classifyLine(tokens []chromalib.Token) lineKind {
	var significant []chromalib.Token
	comment := false
	for _, tok := range tokens {
		switch {
		case strings.TrimSpace(tok.Value) == "":
		case tok.Type.InCategory(chromalib.Comment):
			comment = true
		default:
			significant = append(significant, tok)
		}
	}
	if len(significant) == 0 {
		if comment {
			return lineComment
		}
		return lineBlank
	}
	if isImport(significant) {
		return lineImport
	}
	return lineCode
}

// isImport matches an import keyword line or an import spec inside a block:
// a path string with an optional name.
func isImport(tokens []chromalib.Token) bool {
	first := tokens[0]
	if first.Type.InCategory(chromalib.Keyword) && first.Value == "import" {
		return true
	}
	last := tokens[len(tokens)-1]
	if !last.Type.InCategory(chromalib.LiteralString) {
		return false
	}
	switch len(tokens) {
	case 1:
		return true
	case 2:
		return first.Type.InCategory(chromalib.Name) || first.Value == "." || first.Value == "_"
	}
	return false
}

// tokenizeLines tokenizes source with full context, then splits tokens by
// line so that multi-line comments classify every line they cover.
func tokenizeLines(language, source string) [][]chromalib.Token {
	lexer := lexers.Get(language)
	if lexer == nil {
		lexer = lexers.Fallback
	}
	lexer = chromalib.Coalesce(lexer)

	iterator, err := lexer.Tokenise(nil, source)
	if err != nil {
		return [][]chromalib.Token{{{Type: chromalib.Text, Value: source}}}
	}

	var result [][]chromalib.Token
	var current []chromalib.Token
	for tok := iterator(); tok != chromalib.EOF; tok = iterator() {
		parts := strings.Split(tok.Value, "\n")
		for i, part := range parts {
			if part != "" {
				current = append(current, chromalib.Token{Type: tok.Type, Value: part})
			}
			if i < len(parts)-1 {
				result = append(result, current)
				current = nil
			}
		}
	}
	if len(current) > 0 {
		result = append(result, current)
	}
	return result
}
