// Package similarity tokenizes code snippets and scores how alike they are.
package similarity

import (
	"math"
	"strings"
	"unicode/utf8"
)

// Tokenize splits a string into tokens using a hand-written scanner.
// Token types: identifiers, numbers, string literals, operators, punctuation, whitespace.
// Case is preserved.
func Tokenize(s string) []string {
	if len(s) == 0 {
		return nil
	}

	tokens := make([]string, 0, len(s)/3+1)
	i := 0

	for i < len(s) {
		start := i
		c := s[i]

		switch {
		case isIdentifierStart(c):
			i++
			for i < len(s) && isIdentifierChar(s[i]) {
				i++
			}

		case isDigit(c):
			i++
			for i < len(s) && isDigit(s[i]) {
				i++
			}
			if i < len(s) && s[i] == '.' && i+1 < len(s) && isDigit(s[i+1]) {
				i++
				for i < len(s) && isDigit(s[i]) {
					i++
				}
			}

		case c == '"' || c == '\'' || c == '`':
			i = skipQuoted(s, i)

		case isOperatorChar(c):
			i++
			for i < len(s) && isOperatorChar(s[i]) {
				i++
			}

		case isPunctuation(c):
			i++

		case isWhitespace(c):
			i++
			for i < len(s) && isWhitespace(s[i]) {
				i++
			}

		default:
			// Catch-all for UTF-8 and other chars
			_, size := utf8.DecodeRuneInString(s[i:])
			i += size
		}
		tokens = append(tokens, s[start:i])
	}

	return tokens
}

// skipQuoted returns the index just past the string literal starting at i.
// Raw (backtick) literals do not honor backslash escapes.
func skipQuoted(s string, i int) int {
	quote := s[i]
	i++
	for i < len(s) {
		if quote != '`' && s[i] == '\\' && i+1 < len(s) {
			i += 2
			continue
		}
		if s[i] == quote {
			return i + 1
		}
		i++
	}
	return i
}

// Words returns the non-whitespace tokens of all lines in order.
func Words(lines []string) []string {
	var words []string
	for _, line := range lines {
		for _, tok := range Tokenize(line) {
			if !isWhitespace(tok[0]) {
				words = append(words, tok)
			}
		}
	}
	return words
}

// Normalize collapses all whitespace in lines, keeping a single space between
// tokens. Two snippets that differ only in formatting normalize equally.
func Normalize(lines []string) string {
	return strings.Join(Words(lines), " ")
}

// Cosine returns the cosine similarity of the token-count vectors of a and b,
// in [0, 1]. Two empty inputs are identical.
func Cosine(a, b []string) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 1
	}
	if len(a) == 0 || len(b) == 0 {
		return 0
	}

	ca := counts(a)
	cb := counts(b)

	var dot, na, nb float64
	for tok, x := range ca {
		na += float64(x * x)
		if y, ok := cb[tok]; ok {
			dot += float64(x * y)
		}
	}
	for _, y := range cb {
		nb += float64(y * y)
	}
	score := dot / (math.Sqrt(na) * math.Sqrt(nb))
	if score > 1 {
		score = 1
	}
	return score
}

// Round2 rounds x to two decimal places.
func Round2(x float64) float64 {
	return math.Round(x*100) / 100
}

func counts(tokens []string) map[string]int {
	m := make(map[string]int, len(tokens))
	for _, t := range tokens {
		m[t]++
	}
	return m
}

func isIdentifierStart(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || c == '_'
}

func isIdentifierChar(c byte) bool {
	return isIdentifierStart(c) || isDigit(c)
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

func isOperatorChar(c byte) bool {
	switch c {
	case '+', '-', '*', '/', '=', '<', '>', '!', '&', '|', '^', '%', ':':
		return true
	}
	return false
}

func isPunctuation(c byte) bool {
	switch c {
	case '(', ')', '{', '}', '[', ']', ';', ',', '.':
		return true
	}
	return false
}

func isWhitespace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}
