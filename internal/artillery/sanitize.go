package artillery

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Sanitize resolves a user-supplied path against baseDir (the work
// directory when baseDir is empty) and returns its absolute form. It
// fails with *PathError{PathEscape} when the resolved path lies outside
// the work directory and *PathError{PathNotFound} when it does not
// exist. The escape check runs first, regardless of existence.
func (c *Client) Sanitize(path, baseDir string) (string, error) {
	resolved, err := c.resolveWithin(path, baseDir)
	if err != nil {
		return "", err
	}
	if _, err := os.Stat(resolved); err != nil {
		if os.IsNotExist(err) {
			return "", &PathError{Path: path, Kind: PathNotFound}
		}
		return "", fmt.Errorf("checking %s: %w", resolved, err)
	}
	return resolved, nil
}

// resolveWithin resolves path against baseDir and enforces work
// directory containment without requiring the target to exist. Output
// and report paths go through here, since the tool creates them.
//
// Containment is checked on the symlink-resolved form when the target
// exists, so a link under the work directory cannot point outside it.
// Paths that do not exist yet can only be checked lexically.
func (c *Client) resolveWithin(path, baseDir string) (string, error) {
	root, err := c.workRoot()
	if err != nil {
		return "", err
	}

	base := root
	if baseDir != "" {
		base = baseDir
	}

	var resolved string
	if filepath.IsAbs(path) {
		resolved = filepath.Clean(path)
	} else {
		resolved = filepath.Clean(filepath.Join(base, path))
	}
	if real, err := filepath.EvalSymlinks(resolved); err == nil {
		resolved = real
	}

	rel, err := filepath.Rel(root, resolved)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", &PathError{Path: path, Kind: PathEscape}
	}
	return resolved, nil
}

// workRoot returns the work directory with symlinks resolved, the
// reference all containment comparisons use.
func (c *Client) workRoot() (string, error) {
	root, err := filepath.EvalSymlinks(c.Config.WorkDir)
	if err != nil {
		return "", fmt.Errorf("resolving work dir %s: %w", c.Config.WorkDir, err)
	}
	return root, nil
}
