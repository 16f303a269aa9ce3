// Package pathutil provides path checks and redaction for output files.
package pathutil

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// RedactPath reduces a full path to .../<parent>/<basename> for safe error messages.
// For example, "/home/user/.socialgen/config.yaml" becomes ".../.socialgen/config.yaml".
func RedactPath(path string) string {
	if path == "" {
		return ""
	}
	cleaned := filepath.Clean(path)
	dir := filepath.Dir(cleaned)
	base := filepath.Base(cleaned)
	parent := filepath.Base(dir)
	if parent == "." || parent == string(filepath.Separator) {
		return base
	}
	return ".../" + parent + "/" + base
}

// ResolveOutputPath checks that path can name a file to be written and
// returns it as an absolute path with symlinks in its existing ancestors
// resolved. The parent directory is not required to exist: the write
// itself reports that.
func ResolveOutputPath(path string) (string, error) {
	if path == "" {
		return "", fmt.Errorf("output path is empty")
	}

	// Check for null bytes (common injection vector)
	if strings.ContainsRune(path, '\x00') {
		return "", fmt.Errorf("output path contains null byte")
	}

	absPath, err := filepath.Abs(filepath.Clean(path))
	if err != nil {
		return "", fmt.Errorf("cannot resolve absolute path: %w", err)
	}

	resolvedDir, err := resolveExistingParent(filepath.Dir(absPath))
	if err != nil {
		return "", err
	}
	resolved := filepath.Join(resolvedDir, filepath.Base(absPath))

	if info, err := os.Stat(resolved); err == nil && info.IsDir() {
		return "", fmt.Errorf("output path %q is a directory", RedactPath(resolved))
	}
	return resolved, nil
}

// resolveExistingParent walks up the directory tree to find the deepest existing
// ancestor, resolves symlinks on it, then re-appends the non-existent tail.
// This handles cases where the target file or some parent directories don't exist yet.
func resolveExistingParent(dir string) (string, error) {
	// Try to resolve the full path first
	resolved, err := filepath.EvalSymlinks(dir)
	if err == nil {
		return resolved, nil
	}

	// Walk up until we find an existing directory
	parent := filepath.Dir(dir)
	if parent == dir {
		// We've hit the root and it doesn't exist -- give up
		return "", fmt.Errorf("cannot resolve path: %s", RedactPath(dir))
	}

	resolvedParent, err := resolveExistingParent(parent)
	if err != nil {
		return "", err
	}

	return filepath.Join(resolvedParent, filepath.Base(dir)), nil
}
