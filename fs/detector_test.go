package fs_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/fwojciec/untangle"
	"github.com/fwojciec/untangle/fs"
	"github.com/fwojciec/untangle/mock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTree(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		path := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	}
	return dir
}

var expected = []untangle.Refactoring{{
	Type:        "Rename Function",
	Description: "Rename Function Sum to Total in example.com/m",
	Ranges: []untangle.CodeRange{
		{Side: untangle.LeftSide, Path: "sum.go", StartLine: 3, EndLine: 5},
		{Side: untangle.RightSide, Path: "sum.go", StartLine: 3, EndLine: 5},
	},
}}

func TestDetector_CacheMiss_DelegatesToInner(t *testing.T) {
	t.Parallel()

	innerCalled := false
	inner := &mock.RefactoringDetector{
		DetectFn: func(ctx context.Context, baseDir, currentDir string) ([]untangle.Refactoring, error) {
			innerCalled = true
			return expected, nil
		},
	}
	base := writeTree(t, map[string]string{"sum.go": "package m\n"})
	current := writeTree(t, map[string]string{"sum.go": "package m\n\nfunc Total() {}\n"})

	result, err := fs.NewDetector(inner, t.TempDir()).Detect(context.Background(), base, current)

	require.NoError(t, err)
	assert.True(t, innerCalled, "inner detector should be called on cache miss")
	assert.Equal(t, expected, result)
}

func TestDetector_CacheHit_ReturnsWithoutCallingInner(t *testing.T) {
	t.Parallel()

	cacheDir := t.TempDir()
	callCount := 0
	inner := &mock.RefactoringDetector{
		DetectFn: func(ctx context.Context, baseDir, currentDir string) ([]untangle.Refactoring, error) {
			callCount++
			return expected, nil
		},
	}
	detector := fs.NewDetector(inner, cacheDir)
	files := map[string]string{"sum.go": "package m\n", "README.md": "ignored"}

	_, err := detector.Detect(context.Background(), writeTree(t, files), writeTree(t, files))
	require.NoError(t, err)

	// Same contents in fresh directories.
	files["README.md"] = "changed but not Go"
	result, err := detector.Detect(context.Background(), writeTree(t, files), writeTree(t, files))

	require.NoError(t, err)
	assert.Equal(t, 1, callCount, "inner detector should only be called once")
	assert.Equal(t, expected, result)
}

func TestDetector_ContentChange_Misses(t *testing.T) {
	t.Parallel()

	callCount := 0
	inner := &mock.RefactoringDetector{
		DetectFn: func(ctx context.Context, baseDir, currentDir string) ([]untangle.Refactoring, error) {
			callCount++
			return nil, nil
		},
	}
	detector := fs.NewDetector(inner, t.TempDir())
	base := writeTree(t, map[string]string{"sum.go": "package m\n"})

	_, err := detector.Detect(context.Background(), base, writeTree(t, map[string]string{"sum.go": "package m // v1\n"}))
	require.NoError(t, err)
	_, err = detector.Detect(context.Background(), base, writeTree(t, map[string]string{"sum.go": "package m // v2\n"}))
	require.NoError(t, err)

	assert.Equal(t, 2, callCount)
}

func TestDetector_InnerError_NotCached(t *testing.T) {
	t.Parallel()

	boom := errors.New("boom")
	callCount := 0
	inner := &mock.RefactoringDetector{
		DetectFn: func(ctx context.Context, baseDir, currentDir string) ([]untangle.Refactoring, error) {
			callCount++
			return nil, boom
		},
	}
	detector := fs.NewDetector(inner, t.TempDir())
	base := writeTree(t, map[string]string{"a.go": "package a\n"})

	_, err := detector.Detect(context.Background(), base, base)
	assert.ErrorIs(t, err, boom)
	_, err = detector.Detect(context.Background(), base, base)
	assert.ErrorIs(t, err, boom)

	assert.Equal(t, 2, callCount)
}

func TestDetector_MissingTree_Delegates(t *testing.T) {
	t.Parallel()

	called := false
	inner := &mock.RefactoringDetector{
		DetectFn: func(ctx context.Context, baseDir, currentDir string) ([]untangle.Refactoring, error) {
			called = true
			return nil, nil
		},
	}

	_, err := fs.NewDetector(inner, t.TempDir()).Detect(context.Background(), filepath.Join(t.TempDir(), "missing"), t.TempDir())

	require.NoError(t, err)
	assert.True(t, called)
}

func TestDefaultCacheDir(t *testing.T) {
	t.Run("override", func(t *testing.T) {
		t.Setenv(fs.CacheDirEnv, "/tmp/untangle-cache")

		assert.Equal(t, "/tmp/untangle-cache", fs.DefaultCacheDir())
	})

	t.Run("user cache dir", func(t *testing.T) {
		t.Setenv(fs.CacheDirEnv, "")
		t.Setenv("XDG_CACHE_HOME", "/tmp/xdg")
		t.Setenv("HOME", "/tmp/home")

		base, err := os.UserCacheDir()
		require.NoError(t, err)
		assert.Equal(t, filepath.Join(base, "untangle"), fs.DefaultCacheDir())
	})
}
