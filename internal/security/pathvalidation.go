// Package security confines client-supplied file paths to a served
// directory tree.
package security

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// ErrOutsideRoot is returned for paths that resolve outside the root.
var ErrOutsideRoot = errors.New("path escapes root directory")

// Confine resolves path against root and returns the absolute result.
// Relative paths are taken relative to root. Symlinks are resolved for
// the longest existing prefix of the path, so a link inside root that
// points elsewhere is rejected even when the final file does not exist.
func Confine(path, root string) (string, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return "", fmt.Errorf("failed to resolve root: %w", err)
	}
	realRoot, err := filepath.EvalSymlinks(absRoot)
	if err != nil {
		return "", fmt.Errorf("failed to resolve root: %w", err)
	}

	if !filepath.IsAbs(path) {
		path = filepath.Join(absRoot, path)
	}
	path = filepath.Clean(path)

	real, err := resolveExisting(path)
	if err != nil {
		return "", err
	}

	rel, err := filepath.Rel(realRoot, real)
	if err != nil {
		return "", fmt.Errorf("%w: %s", ErrOutsideRoot, path)
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %s", ErrOutsideRoot, path)
	}
	return real, nil
}

// resolveExisting evaluates symlinks in the deepest existing ancestor of
// path and re-appends the missing tail.
func resolveExisting(path string) (string, error) {
	tail := ""
	dir := path
	for {
		if real, err := filepath.EvalSymlinks(dir); err == nil {
			return filepath.Join(real, tail), nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return path, nil
		}
		tail = filepath.Join(filepath.Base(dir), tail)
		dir = parent
	}
}
