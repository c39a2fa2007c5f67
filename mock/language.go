package mock

import "github.com/fwojciec/untangle"

// Compile-time interface verification.
var (
	_ untangle.LanguageDetector  = (*LanguageDetector)(nil)
	_ untangle.ContentClassifier = (*ContentClassifier)(nil)
)

// LanguageDetector is a mock implementation of untangle.LanguageDetector.
type LanguageDetector struct {
	DetectFromPathFn func(path string) string
}

func (d *LanguageDetector) DetectFromPath(path string) string {
	return d.DetectFromPathFn(path)
}

// ContentClassifier is a mock implementation of untangle.ContentClassifier.
type ContentClassifier struct {
	ClassifyFn func(language string, lines []string) untangle.ContentType
}

func (c *ContentClassifier) Classify(language string, lines []string) untangle.ContentType {
	return c.ClassifyFn(language, lines)
}
