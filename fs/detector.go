package fs

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	iofs "io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/fwojciec/untangle"
)

// Compile-time interface verification.
var _ untangle.RefactoringDetector = (*Detector)(nil)

// Detector wraps a RefactoringDetector with file-based caching. Results are
// keyed by the contents of the Go sources and module files of both trees, so
// the same change exported into fresh directories hits the cache.
type Detector struct {
	inner    untangle.RefactoringDetector
	cacheDir string
}

// NewDetector creates a new caching detector.
func NewDetector(inner untangle.RefactoringDetector, cacheDir string) *Detector {
	return &Detector{
		inner:    inner,
		cacheDir: cacheDir,
	}
}

// Detect returns cached refactorings or delegates to the inner detector.
func (d *Detector) Detect(ctx context.Context, baseDir, currentDir string) ([]untangle.Refactoring, error) {
	hash, err := d.hashTrees(baseDir, currentDir)
	if err != nil {
		return d.inner.Detect(ctx, baseDir, currentDir)
	}

	if cached, err := d.loadFromCache(hash); err == nil {
		return cached, nil
	}

	result, err := d.inner.Detect(ctx, baseDir, currentDir)
	if err != nil {
		return nil, err
	}

	// Store in cache (best-effort)
	_ = d.saveToCache(hash, result)

	return result, nil
}

func (d *Detector) hashTrees(dirs ...string) (string, error) {
	h := sha256.New()
	for _, dir := range dirs {
		io.WriteString(h, "tree\x00")
		err := filepath.WalkDir(dir, func(path string, e iofs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if e.IsDir() {
				if path != dir && (e.Name() == ".git" || e.Name() == "vendor") {
					return filepath.SkipDir
				}
				return nil
			}
			if !strings.HasSuffix(path, ".go") && e.Name() != "go.mod" && e.Name() != "go.sum" {
				return nil
			}
			rel, err := filepath.Rel(dir, path)
			if err != nil {
				return err
			}
			data, err := os.ReadFile(path)
			if err != nil {
				return err
			}
			io.WriteString(h, filepath.ToSlash(rel)+"\x00")
			h.Write(data)
			h.Write([]byte{0})
			return nil
		})
		if err != nil {
			return "", err
		}
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

func (d *Detector) cachePath(hash string) string {
	return filepath.Join(d.cacheDir, "refactorings", hash+".json")
}

func (d *Detector) loadFromCache(hash string) ([]untangle.Refactoring, error) {
	data, err := os.ReadFile(d.cachePath(hash))
	if err != nil {
		return nil, err
	}

	var result []untangle.Refactoring
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, err
	}

	return result, nil
}

func (d *Detector) saveToCache(hash string, result []untangle.Refactoring) error {
	path := d.cachePath(hash)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	data, err := json.Marshal(result)
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}
