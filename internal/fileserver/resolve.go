// Package fileserver resolves request paths under a served directory and
// renders Apache-style directory indexes.
package fileserver

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ErrTraversal is returned when a request path resolves outside the root.
var ErrTraversal = errors.New("path escapes serve root")

// Resolver maps untrusted request paths onto a fixed, canonical root.
// It is immutable and safe for concurrent use.
type Resolver struct {
	root string
}

// NewResolver creates the directory if it does not exist and canonicalizes
// it. The returned bool reports whether the directory was created.
func NewResolver(dir string) (*Resolver, bool, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, false, fmt.Errorf("serve dir %q: %w", dir, err)
	}

	created := false
	if _, err := os.Stat(abs); errors.Is(err, os.ErrNotExist) {
		if err := os.MkdirAll(abs, 0o755); err != nil {
			return nil, false, fmt.Errorf("create serve dir %q: %w", abs, err)
		}
		created = true
	}

	canonical, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return nil, false, fmt.Errorf("canonicalize serve dir %q: %w", abs, err)
	}

	info, err := os.Stat(canonical)
	if err != nil {
		return nil, false, fmt.Errorf("stat serve dir %q: %w", canonical, err)
	}
	if !info.IsDir() {
		return nil, false, fmt.Errorf("serve dir %q is not a directory", canonical)
	}

	return &Resolver{root: canonical}, created, nil
}

// Root returns the canonical serve root.
func (r *Resolver) Root() string {
	return r.root
}

// Resolve joins requestPath under the root and proves the result stays inside
// it. The lexical check runs first and touches no files; paths that climb
// out are rejected, never re-rooted. An existing target is then followed
// through its symlinks and must still land inside the root. The returned
// path is the lexical one.
func (r *Resolver) Resolve(requestPath string) (string, error) {
	if strings.ContainsRune(requestPath, 0) {
		return "", ErrTraversal
	}

	candidate := filepath.Join(r.root, "."+"/"+filepath.FromSlash(requestPath))
	if !r.Contains(candidate) {
		return "", fmt.Errorf("%w: %q", ErrTraversal, requestPath)
	}

	// A missing or unreadable target is left for the caller's stat to report.
	if real, err := filepath.EvalSymlinks(candidate); err == nil && !r.Contains(real) {
		return "", fmt.Errorf("%w: %q links outside the root", ErrTraversal, requestPath)
	}
	return candidate, nil
}

// Contains reports whether p is the root or lies inside it, comparing whole
// path components so that /srv/pub does not contain /srv/public.
func (r *Resolver) Contains(p string) bool {
	if !filepath.IsAbs(p) {
		return false
	}
	rel, err := filepath.Rel(r.root, filepath.Clean(p))
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// Rel returns resolved relative to the root with forward slashes; the root
// itself yields "".
func (r *Resolver) Rel(resolved string) string {
	rel, err := filepath.Rel(r.root, resolved)
	if err != nil || rel == "." {
		return ""
	}
	return filepath.ToSlash(rel)
}
