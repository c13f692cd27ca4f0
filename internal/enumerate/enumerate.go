// Package enumerate produces candidate references: visible documents, the
// files of a project, and the files of a directory. Candidates are added to
// a reference store the same way as manually entered references.
package enumerate

import (
	"context"
	"fmt"
	"io/fs"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/atinylittleshell/ctxref/internal/document"
	"github.com/samber/lo"
	"mvdan.cc/sh/v3/pattern"
)

// Denylist holds the extensions of binary and media files that project
// enumeration never offers.
var Denylist = []string{
	"png", "jpg", "jpeg", "gif", "bmp", "tiff", "ico", "svg", "pdf",
	"doc", "docx", "xls", "xlsx", "ppt", "pptx",
	"zip", "tar", "gz", "rar", "7z",
	"exe", "dll", "so", "dylib",
	"pyc", "pyo", "pyd", "class", "jar",
	"mp3", "mp4", "avi", "mov", "wav",
}

// Denied reports whether path ends in a dot followed by a denylisted
// extension. The comparison is case-sensitive.
func Denied(path string) bool {
	return lo.SomeBy(Denylist, func(ext string) bool {
		return strings.HasSuffix(path, "."+ext)
	})
}

// Matcher reports whether a candidate path passes a wildcard filter.
type Matcher func(path string) bool

// Wildcard translates a shell glob into a Matcher anchored at both ends.
// "*" and "" match everything.
func Wildcard(glob string) (Matcher, error) {
	if glob == "" || glob == "*" {
		return func(string) bool { return true }, nil
	}
	expr, err := pattern.Regexp(glob, 0)
	if err != nil {
		return nil, fmt.Errorf("invalid wildcard %q: %w", glob, err)
	}
	re, err := regexp.Compile("^(?:" + expr + ")$")
	if err != nil {
		return nil, fmt.Errorf("invalid wildcard %q: %w", glob, err)
	}
	return re.MatchString, nil
}

// VisibleDocuments returns the distinct names of documents shown in any
// viewport. Ephemeral documents are always excluded; the active document is
// excluded unless includeActive is set.
func VisibleDocuments(host document.Host, active string, includeActive bool) ([]string, error) {
	docs, err := host.Documents()
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}

	names := lo.FilterMap(docs, func(d *document.Document, _ int) (string, bool) {
		if !d.Visible || d.Ephemeral {
			return "", false
		}
		if !includeActive && d.Name == active {
			return "", false
		}
		return d.Name, true
	})
	return lo.Uniq(names), nil
}

// ProjectIndex locates a project root and lists its files as root-relative
// slash paths.
type ProjectIndex interface {
	Root(dir string) (string, error)
	Files(ctx context.Context, root string) ([]string, error)
}

// ProjectOptions configures ProjectFiles.
type ProjectOptions struct {
	// Scope is the current document; its file is never returned and its
	// directory locates the project.
	Scope document.Scope
	// RelativeTo is the directory results are relative to. Defaults to Scope.Dir.
	RelativeTo string
	// Pattern is a shell glob matched against the relative result path.
	Pattern string
}

// ProjectFiles lists the files of the project enclosing opts.Scope, relative
// to opts.RelativeTo, minus the current document and denylisted files,
// filtered by opts.Pattern. A missing project is an error wrapping
// project.ErrNoProject.
func ProjectFiles(ctx context.Context, index ProjectIndex, opts ProjectOptions) ([]string, error) {
	match, err := Wildcard(opts.Pattern)
	if err != nil {
		return nil, err
	}

	root, err := index.Root(opts.Scope.Dir)
	if err != nil {
		return nil, err
	}
	files, err := index.Files(ctx, root)
	if err != nil {
		return nil, fmt.Errorf("failed to list project files: %w", err)
	}

	base := opts.RelativeTo
	if base == "" {
		base = opts.Scope.Dir
	}
	current := opts.Scope.Path()

	var out []string
	for _, f := range files {
		abs := filepath.Join(root, filepath.FromSlash(f))
		if current != "" && abs == filepath.Clean(current) {
			continue
		}
		rel, err := filepath.Rel(base, abs)
		if err != nil {
			continue
		}
		if Denied(rel) || !match(rel) {
			continue
		}
		out = append(out, rel)
	}
	return lo.Uniq(out), nil
}

// DirectoryOptions configures DirectoryFiles.
type DirectoryOptions struct {
	Dir       string
	Recursive bool
	// Pattern is a shell glob matched against each file's base name.
	Pattern string
	// WorkingDir is the directory results are relative to.
	WorkingDir string
}

// DirectoryFiles lists the regular files in opts.Dir, descending into
// subdirectories when Recursive is set, in lexicographic order.
func DirectoryFiles(opts DirectoryOptions) ([]string, error) {
	match, err := Wildcard(opts.Pattern)
	if err != nil {
		return nil, err
	}

	dir := opts.Dir
	if !filepath.IsAbs(dir) && opts.WorkingDir != "" {
		dir = filepath.Join(opts.WorkingDir, dir)
	}

	var out []string
	err = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != dir && (!opts.Recursive || d.Name() == ".git") {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() || !match(d.Name()) {
			return nil
		}
		rel := path
		if opts.WorkingDir != "" {
			if r, err := filepath.Rel(opts.WorkingDir, path); err == nil {
				rel = r
			}
		}
		out = append(out, rel)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", opts.Dir, err)
	}
	sort.Strings(out)
	return out, nil
}
