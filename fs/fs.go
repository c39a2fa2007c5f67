// Package fs provides file system backed caching for untangle collaborators.
package fs

import (
	"os"
	"path/filepath"
)

// CacheDirEnv overrides the cache location when set.
const CacheDirEnv = "UNTANGLE_CACHE_DIR"

// DefaultCacheDir returns $UNTANGLE_CACHE_DIR, or an "untangle" directory
// under the user cache dir (XDG_CACHE_HOME on Linux). It falls back to the
// system temp directory when neither is available.
func DefaultCacheDir() string {
	if dir := os.Getenv(CacheDirEnv); dir != "" {
		return dir
	}
	base, err := os.UserCacheDir()
	if err != nil || base == "" {
		base = os.TempDir()
	}
	return filepath.Join(base, "untangle")
}
