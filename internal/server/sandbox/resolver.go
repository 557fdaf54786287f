// Package sandbox maps logical artifact paths ("/output/data/x.wav") to
// absolute filesystem paths and confines them to whitelisted roots.
//
// Resolution never authorizes anything on its own: every filesystem
// mutation goes through Confine or ConfineFile with the root that operation is allowed
// to touch.
package sandbox

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/dmitrijs2005/audiokeeper/internal/common"
)

type Resolver struct {
	projectRoot string
	outputRoot  string
	publicName  string
}

// NewResolver builds a resolver. publicName is the name the output root is
// published under, so "/<publicName>/..." maps into outputRoot.
func NewResolver(projectRoot, outputRoot, publicName string) (*Resolver, error) {
	pr, err := filepath.Abs(projectRoot)
	if err != nil {
		return nil, fmt.Errorf("project root: %w", err)
	}
	outRoot, err := filepath.Abs(outputRoot)
	if err != nil {
		return nil, fmt.Errorf("output root: %w", err)
	}
	name := strings.Trim(publicName, "/")
	if name == "" {
		return nil, fmt.Errorf("public root name is empty")
	}
	return &Resolver{projectRoot: pr, outputRoot: outRoot, publicName: name}, nil
}

func (r *Resolver) ProjectRoot() string { return r.projectRoot }
func (r *Resolver) OutputRoot() string  { return r.outputRoot }

// PublicPath returns the logical path for a file directly under the output
// root's sub directory, e.g. PublicPath("data", "x.wav") = "/output/data/x.wav".
func (r *Resolver) PublicPath(elem ...string) string {
	return "/" + r.publicName + "/" + strings.Join(elem, "/")
}

// Resolve maps raw to an absolute path. It returns "" for empty input.
//
// Forms, first match wins:
//
//	/output/rest          -> <outputRoot>/rest
//	anything/output/rest  -> <projectRoot>/output/rest
//	./../rest             -> <projectRoot>/rest
//	rest                  -> <projectRoot>/rest
//
// Segments are joined with filepath.Join, so ".." inside the input is
// cleaned but may still climb out of the root; callers check containment.
func (r *Resolver) Resolve(raw string) string {
	p := strings.TrimSpace(strings.ReplaceAll(raw, `\`, "/"))
	if p == "" {
		return ""
	}

	marker := "/" + r.publicName + "/"

	var joined string
	switch {
	case strings.HasPrefix(p, marker):
		joined = joinSegments(r.outputRoot, strings.TrimPrefix(p, marker))
	case strings.Contains(p, marker):
		rest := p[strings.Index(p, marker)+1:]
		joined = joinSegments(r.projectRoot, rest)
	default:
		for strings.HasPrefix(p, "./") {
			p = p[2:]
		}
		p = strings.TrimPrefix(p, "../")
		joined = joinSegments(r.projectRoot, p)
	}

	abs, err := filepath.Abs(joined)
	if err != nil {
		return filepath.Clean(joined)
	}
	return abs
}

func joinSegments(root, rest string) string {
	parts := append([]string{root}, strings.Split(rest, "/")...)
	return filepath.Join(parts...)
}

// Within reports whether path equals root or lies beneath it. Both are
// cleaned first; no filesystem access happens.
func Within(root, path string) bool {
	root = filepath.Clean(root)
	path = filepath.Clean(path)
	if path == root {
		return true
	}
	if !strings.HasSuffix(root, string(filepath.Separator)) {
		root += string(filepath.Separator)
	}
	return strings.HasPrefix(path, root)
}

// Confine resolves raw and checks that the result stays inside root. When
// the target exists, its symlink-free location must stay inside as well.
// Failures wrap common.ErrIllegalPath.
func (r *Resolver) Confine(raw, root string) (string, error) {
	resolved := r.Resolve(raw)
	if resolved == "" {
		return "", fmt.Errorf("%w: empty path", common.ErrIllegalPath)
	}

	absRoot, err := filepath.Abs(root)
	if err != nil {
		return "", fmt.Errorf("%w: root %q: %v", common.ErrIllegalPath, root, err)
	}

	if !Within(absRoot, resolved) {
		return "", fmt.Errorf("%w: %q escapes %q", common.ErrIllegalPath, raw, absRoot)
	}

	if _, err := os.Lstat(resolved); err == nil {
		target, err := filepath.EvalSymlinks(resolved)
		if err != nil {
			return "", fmt.Errorf("%w: %q: %v", common.ErrIllegalPath, raw, err)
		}
		realRoot, err := filepath.EvalSymlinks(absRoot)
		if err != nil {
			realRoot = absRoot
		}
		if !Within(realRoot, target) {
			return "", fmt.Errorf("%w: %q links outside %q", common.ErrIllegalPath, raw, absRoot)
		}
	}

	return resolved, nil
}

// ConfineFile is Confine for operations on a single artifact: the result
// must not be root itself and, when it exists, must be a regular file.
func (r *Resolver) ConfineFile(raw, root string) (string, error) {
	resolved, err := r.Confine(raw, root)
	if err != nil {
		return "", err
	}

	absRoot, err := filepath.Abs(root)
	if err != nil {
		return "", fmt.Errorf("%w: root %q: %v", common.ErrIllegalPath, root, err)
	}
	if filepath.Clean(resolved) == filepath.Clean(absRoot) {
		return "", fmt.Errorf("%w: %q names the root itself", common.ErrIllegalPath, raw)
	}

	info, err := os.Lstat(resolved)
	switch {
	case err == nil && !info.Mode().IsRegular():
		return "", fmt.Errorf("%w: %q is not a regular file", common.ErrIllegalPath, raw)
	case err != nil && !errors.Is(err, os.ErrNotExist):
		return "", fmt.Errorf("%w: %q: %v", common.ErrIllegalPath, raw, err)
	}

	return resolved, nil
}
