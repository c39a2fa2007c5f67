// Package jsonl persists analysis results as JSONL and dumps group details
// as text.
package jsonl

import (
	"bufio"
	"fmt"
	"os"
	"strings"
)

// maxLineSize is the maximum size for a single JSONL line (4MB).
const maxLineSize = 4 * 1024 * 1024

// scan calls fn with every non-blank line of the file at path.
func scan(path string, fn func(line []byte) error) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, maxLineSize), maxLineSize)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if err := fn([]byte(line)); err != nil {
			return fmt.Errorf("line %d: %w", lineNum, err)
		}
	}
	return scanner.Err()
}
