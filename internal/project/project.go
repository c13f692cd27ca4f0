// Package project finds the project enclosing a directory and lists the
// files that belong to it.
package project

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"go.uber.org/zap"
)

// DefaultMarkers are the entries whose presence marks a project root.
var DefaultMarkers = []string{".git", ".project"}

// ErrNoProject is returned when no ancestor of a directory is a project root.
var ErrNoProject = errors.New("no project found")

// GitLister lists the files of a git work tree. ok is false when root is not one.
type GitLister interface {
	GitTrackedFiles(ctx context.Context, root string) (files []string, ok bool, err error)
}

// Index locates project roots and lists their files.
type Index struct {
	markers []string
	git     GitLister
	logger  *zap.Logger
}

// NewIndex creates an Index. When markers is empty DefaultMarkers is used.
// git is optional; without it every project is listed by walking the tree.
func NewIndex(markers []string, git GitLister, logger *zap.Logger) *Index {
	if len(markers) == 0 {
		markers = DefaultMarkers
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Index{
		markers: markers,
		git:     git,
		logger:  logger,
	}
}

// Root returns the nearest ancestor of dir (dir included) that contains one
// of the markers.
func (i *Index) Root(dir string) (string, error) {
	if dir == "" {
		return "", ErrNoProject
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("failed to resolve %s: %w", dir, err)
	}

	for current := abs; ; {
		for _, marker := range i.markers {
			if _, err := os.Stat(filepath.Join(current, marker)); err == nil {
				return current, nil
			}
		}
		parent := filepath.Dir(current)
		if parent == current {
			return "", fmt.Errorf("%w for %s", ErrNoProject, dir)
		}
		current = parent
	}
}

// Files lists the files under root as slash-separated root-relative paths in
// lexicographic order. Git work trees report tracked and untracked files that
// are not ignored; anything else is walked, skipping .git directories.
func (i *Index) Files(ctx context.Context, root string) ([]string, error) {
	if i.git != nil {
		files, ok, err := i.git.GitTrackedFiles(ctx, root)
		if err != nil {
			return nil, err
		}
		if ok {
			sort.Strings(files)
			return files, nil
		}
	}

	files, err := walkFiles(root)
	if err != nil {
		return nil, err
	}
	i.logger.Debug("listed project by walking", zap.String("root", root), zap.Int("files", len(files)))
	return files, nil
}

func walkFiles(root string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if d.Name() == ".git" {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		files = append(files, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk %s: %w", root, err)
	}
	sort.Strings(files)
	return files, nil
}
