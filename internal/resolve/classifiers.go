package resolve

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"

	"github.com/atinylittleshell/ctxref/internal/document"
	"go.uber.org/zap"
)

func nopIfNil(logger *zap.Logger) *zap.Logger {
	if logger == nil {
		return zap.NewNop()
	}
	return logger
}

// OpenDocumentClassifier matches references naming an open document.
type OpenDocumentClassifier struct {
	host   document.Host
	logger *zap.Logger
}

// NewOpenDocumentClassifier creates an OpenDocumentClassifier.
func NewOpenDocumentClassifier(host document.Host, logger *zap.Logger) *OpenDocumentClassifier {
	return &OpenDocumentClassifier{host: host, logger: nopIfNil(logger)}
}

// Name implements Classifier.
func (c *OpenDocumentClassifier) Name() string { return "open_document" }

// Classify implements Classifier. Ephemeral documents never match.
func (c *OpenDocumentClassifier) Classify(ctx context.Context, ref string, scope document.Scope) (Source, bool) {
	doc, ok := c.host.Lookup(ref)
	if !ok || doc.Ephemeral {
		return Source{}, false
	}
	text, err := doc.Text()
	if err != nil {
		c.logger.Debug("open document unreadable", zap.String("document", ref), zap.Error(err))
		return Source{}, false
	}
	return Source{
		Kind:  KindOpenDocument,
		Label: doc.Name,
		Body:  text,
		Path:  doc.Path,
	}, true
}

// FileClassifier matches references that are paths to regular files.
type FileClassifier struct {
	logger *zap.Logger
}

// NewFileClassifier creates a FileClassifier.
func NewFileClassifier(logger *zap.Logger) *FileClassifier {
	return &FileClassifier{logger: nopIfNil(logger)}
}

// Name implements Classifier.
func (c *FileClassifier) Name() string { return "file" }

// Classify implements Classifier. Relative paths are taken from the scope directory.
func (c *FileClassifier) Classify(ctx context.Context, ref string, scope document.Scope) (Source, bool) {
	abs := scope.Abs(ref)
	body, ok := readRegularFile(abs, c.logger)
	if !ok {
		return Source{}, false
	}
	return Source{
		Kind:  KindFile,
		Label: ref,
		Body:  body,
		Path:  abs,
	}, true
}

// ProjectIndex is the project lookup the project classifier needs.
type ProjectIndex interface {
	Root(dir string) (string, error)
	Files(ctx context.Context, root string) ([]string, error)
}

// ProjectFileClassifier matches references equal to the base name of a file
// in the enclosing project. Files are tried in index order, which is
// lexicographic by project-relative path, so the first match is stable.
type ProjectFileClassifier struct {
	index  ProjectIndex
	logger *zap.Logger
}

// NewProjectFileClassifier creates a ProjectFileClassifier.
func NewProjectFileClassifier(index ProjectIndex, logger *zap.Logger) *ProjectFileClassifier {
	return &ProjectFileClassifier{index: index, logger: nopIfNil(logger)}
}

// Name implements Classifier.
func (c *ProjectFileClassifier) Name() string { return "project_file" }

// Classify implements Classifier.
func (c *ProjectFileClassifier) Classify(ctx context.Context, ref string, scope document.Scope) (Source, bool) {
	root, err := c.index.Root(scope.Dir)
	if err != nil {
		return Source{}, false
	}
	files, err := c.index.Files(ctx, root)
	if err != nil {
		c.logger.Debug("project index failed", zap.String("root", root), zap.Error(err))
		return Source{}, false
	}

	for _, rel := range files {
		if path.Base(rel) != ref {
			continue
		}
		abs := filepath.Join(root, filepath.FromSlash(rel))
		body, ok := readRegularFile(abs, c.logger)
		if !ok {
			continue
		}
		return Source{
			Kind:  KindProjectFile,
			Label: rel,
			Body:  body,
			Path:  abs,
		}, true
	}
	return Source{}, false
}

func readRegularFile(path string, logger *zap.Logger) (string, bool) {
	info, err := os.Stat(path)
	if err != nil || !info.Mode().IsRegular() {
		return "", false
	}
	data, err := os.ReadFile(path)
	if err != nil {
		logger.Debug("failed to read file", zap.String("path", path), zap.Error(err))
		return "", false
	}
	return string(data), true
}

// Callables is a namespace of zero-argument functions returning text.
type Callables interface {
	HasCallable(name string) bool
	Call(ctx context.Context, name string) (string, error)
}

// CallableMap adapts Go functions to Callables.
type CallableMap map[string]func(ctx context.Context) (string, error)

// HasCallable implements Callables.
func (m CallableMap) HasCallable(name string) bool {
	fn, ok := m[name]
	return ok && fn != nil
}

// Call implements Callables.
func (m CallableMap) Call(ctx context.Context, name string) (string, error) {
	fn, ok := m[name]
	if !ok || fn == nil {
		return "", fmt.Errorf("%s is not callable", name)
	}
	return fn(ctx)
}

// CallableClassifier matches references naming a callable and invokes it.
// A failing or panicking callable still matches; its error becomes the body.
type CallableClassifier struct {
	callables Callables
	logger    *zap.Logger
}

// NewCallableClassifier creates a CallableClassifier.
func NewCallableClassifier(callables Callables, logger *zap.Logger) *CallableClassifier {
	return &CallableClassifier{callables: callables, logger: nopIfNil(logger)}
}

// Name implements Classifier.
func (c *CallableClassifier) Name() string { return "callable" }

// Classify implements Classifier.
func (c *CallableClassifier) Classify(ctx context.Context, ref string, scope document.Scope) (Source, bool) {
	if !c.callables.HasCallable(ref) {
		return Source{}, false
	}

	out, err := c.invoke(ctx, ref)
	if err != nil {
		c.logger.Warn("callable failed", zap.String("callable", ref), zap.Error(err))
		return Source{
			Kind:  KindCallable,
			Label: ref,
			Body:  fmt.Sprintf("Error calling %s: %v", ref, err),
			Err:   err,
		}, true
	}
	return Source{
		Kind:  KindCallable,
		Label: ref,
		Body:  out,
	}, true
}

func (c *CallableClassifier) invoke(ctx context.Context, name string) (out string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return c.callables.Call(ctx, name)
}
