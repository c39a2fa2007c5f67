package apidiff_test

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/fwojciec/untangle"
	"github.com/fwojciec/untangle/apidiff"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const baseUtil = `package util

func Sum(xs []int) int {
	t := 0
	for _, x := range xs {
		t += x
	}
	return t
}

func Scale(x int) int {
	return x * 2
}

func Clamp(x int) int {
	if x < 0 {
		return 0
	}
	return x
}
`

const currentUtil = `package util

func Total(values []int) int {
	t := 0
	for _, x := range values {
		t += x
	}
	return t
}

func Scale(x, factor int) int {
	return x * factor
}
`

const baseShop = `package shop

func Name() string { return "shop" }
`

const currentShop = `package shop

func Name() string { return "shop" }

func Clamp(x int) int {
	if x < 0 {
		return 0
	}
	return x
}
`

func requireGo(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("go"); err != nil {
		t.Skip("go command not available")
	}
}

func writeModule(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	files["go.mod"] = "module example.com/m\n\ngo 1.21\n"
	for name, content := range files {
		path := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	}
	return dir
}

func byType(refs []untangle.Refactoring) map[string]untangle.Refactoring {
	out := make(map[string]untangle.Refactoring, len(refs))
	for _, r := range refs {
		out[r.Type] = r
	}
	return out
}

func TestDetector_Detect(t *testing.T) {
	t.Parallel()
	requireGo(t)

	base := writeModule(t, map[string]string{"util/util.go": baseUtil, "shop/shop.go": baseShop})
	current := writeModule(t, map[string]string{"util/util.go": currentUtil, "shop/shop.go": currentShop})

	refs, err := apidiff.NewDetector(nil).Detect(context.Background(), base, current)

	require.NoError(t, err)
	got := byType(refs)
	require.Len(t, got, 3)

	t.Run("rename", func(t *testing.T) {
		r, ok := got["Rename Function"]
		require.True(t, ok)
		assert.Equal(t, "Rename Function Sum to Total in example.com/m/util", r.Description)
		assert.Equal(t, []untangle.CodeRange{
			{Side: untangle.LeftSide, Path: "util/util.go", StartLine: 3, EndLine: 9},
			{Side: untangle.RightSide, Path: "util/util.go", StartLine: 3, EndLine: 9},
		}, r.Ranges)
	})

	t.Run("move", func(t *testing.T) {
		r, ok := got["Move Function"]
		require.True(t, ok)
		assert.Equal(t, []untangle.CodeRange{
			{Side: untangle.LeftSide, Path: "util/util.go", StartLine: 15, EndLine: 20},
			{Side: untangle.RightSide, Path: "shop/shop.go", StartLine: 5, EndLine: 10},
		}, r.Ranges)
	})

	t.Run("signature change", func(t *testing.T) {
		r, ok := got[apidiff.TypeChangeSignature]
		require.True(t, ok)
		assert.Contains(t, r.Description, "Scale")
		assert.Equal(t, []untangle.CodeRange{
			{Side: untangle.LeftSide, Path: "util/util.go", StartLine: 11, EndLine: 13},
			{Side: untangle.RightSide, Path: "util/util.go", StartLine: 11, EndLine: 13},
		}, r.Ranges)
	})
}

func TestDetector_Detect_NoChanges(t *testing.T) {
	t.Parallel()
	requireGo(t)

	base := writeModule(t, map[string]string{"util/util.go": baseUtil})
	current := writeModule(t, map[string]string{"util/util.go": baseUtil})

	refs, err := apidiff.NewDetector(nil).Detect(context.Background(), base, current)

	require.NoError(t, err)
	assert.Empty(t, refs)
}

func TestDetector_Detect_MissingTree(t *testing.T) {
	t.Parallel()
	requireGo(t)

	base := writeModule(t, map[string]string{"util/util.go": baseUtil})

	_, err := apidiff.NewDetector(nil).Detect(context.Background(), base, filepath.Join(t.TempDir(), "missing"))

	assert.Error(t, err)
}
