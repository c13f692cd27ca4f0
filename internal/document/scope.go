package document

import (
	"path/filepath"
)

// Scope is the originating document of a resolution or enumeration together
// with the directory that relative paths are interpreted against.
type Scope struct {
	Document *Document
	Dir      string
}

// NewScope builds a Scope for doc. The directory of the document's file is
// used when it has one, otherwise fallbackDir.
func NewScope(doc *Document, fallbackDir string) Scope {
	dir := fallbackDir
	if doc != nil && doc.Path != "" {
		dir = filepath.Dir(doc.Path)
	}
	return Scope{Document: doc, Dir: dir}
}

// Abs interprets path relative to the scope directory.
func (s Scope) Abs(path string) string {
	if filepath.IsAbs(path) || s.Dir == "" {
		return filepath.Clean(path)
	}
	return filepath.Join(s.Dir, path)
}

// Name returns the originating document name, or "" for a document-less scope.
func (s Scope) Name() string {
	if s.Document == nil {
		return ""
	}
	return s.Document.Name
}

// Path returns the originating document's file, or "".
func (s Scope) Path() string {
	if s.Document == nil {
		return ""
	}
	return s.Document.Path
}
