package chroma_test

import (
	"testing"

	"github.com/fwojciec/untangle/chroma"
	"github.com/stretchr/testify/assert"
)

func TestDetector_DetectFromPath(t *testing.T) {
	t.Parallel()

	cases := []struct {
		path string
		want string
	}{
		{"main.go", "Go"},
		{"internal/cart/cart_test.go", "Go"},
		{"app.py", "Python"},
		{"component.tsx", "TypeScript"},
		{"README.md", "markdown"},
		{"file.unknownext", ""},
		{"LICENSE", ""},
	}

	detector := chroma.NewDetector(nil)
	for _, tc := range cases {
		t.Run(tc.path, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tc.want, detector.DetectFromPath(tc.path))
		})
	}
}

func TestDetector_DetectFromPath_Memoized(t *testing.T) {
	t.Parallel()

	detector := chroma.NewDetector(nil)

	first := detector.DetectFromPath("a/x.go")
	second := detector.DetectFromPath("b/x.go")

	assert.Equal(t, "Go", first)
	assert.Equal(t, first, second)
}

func TestDetector_DetectFromPath_Overrides(t *testing.T) {
	t.Parallel()

	detector := chroma.NewDetector(map[string]string{
		"templates/**/*.go.tmpl": "Go",
		"**/*.pb.go":             "Protocol Buffer",
		"vendor/**":              "",
		"[":                      "Broken",
	})

	assert.Equal(t, "Go", detector.DetectFromPath("templates/cart/item.go.tmpl"))
	assert.Equal(t, "Protocol Buffer", detector.DetectFromPath("api/v1/cart.pb.go"))
	assert.Empty(t, detector.DetectFromPath("vendor/github.com/x/y.go"))
	assert.Equal(t, "Go", detector.DetectFromPath("cart.go"))
}
