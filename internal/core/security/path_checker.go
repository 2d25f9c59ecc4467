package security

import (
	"os"
	"path/filepath"
	"strings"
)

// ExpandPath expands a leading "~/" and makes path absolute. Symlinks are
// left alone so that deleting a link never deletes its target.
func ExpandPath(path string) (string, error) {
	expanded := path
	if expanded == "~" || strings.HasPrefix(expanded, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		expanded = filepath.Join(home, strings.TrimPrefix(expanded[1:], "/"))
	}

	return filepath.Abs(expanded)
}

// ResolvePath returns the canonical location path refers to, resolving
// symlinks on the longest existing prefix. It is used to show the operator
// what a confirmation really affects.
func ResolvePath(path string) (string, error) {
	abs, err := ExpandPath(path)
	if err != nil {
		return "", err
	}

	resolved, err := resolveSymlinksWalkUp(abs)
	if err != nil {
		return abs, nil
	}
	return resolved, nil
}

// resolveSymlinksWalkUp walks up the directory tree resolving symlinks
// until it finds a path that exists, then rebuilds the path.
func resolveSymlinksWalkUp(path string) (string, error) {
	resolved, err := filepath.EvalSymlinks(path)
	if err == nil {
		return resolved, nil
	}

	parent := filepath.Dir(path)
	base := filepath.Base(path)

	if parent == path {
		return path, nil
	}

	resolvedParent, err := resolveSymlinksWalkUp(parent)
	if err != nil {
		return "", err
	}

	return filepath.Join(resolvedParent, base), nil
}
