// Package document models the host documents that own reference lists and the
// scope relative to which references are resolved.
package document

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Kind selects how a document persists its references.
type Kind int

const (
	// KindGeneric is any plain text document; references live in a trailing
	// local variables block.
	KindGeneric Kind = iota
	// KindOutline is an Org outline; references live in a root property drawer.
	KindOutline
)

// String returns the persisted name of the kind.
func (k Kind) String() string {
	switch k {
	case KindOutline:
		return "outline"
	default:
		return "generic"
	}
}

// ParseKind is the inverse of Kind.String. Unknown names map to KindGeneric.
func ParseKind(s string) Kind {
	if s == "outline" {
		return KindOutline
	}
	return KindGeneric
}

// KindForPath infers the document kind from a file name.
func KindForPath(path string) Kind {
	if strings.EqualFold(filepath.Ext(path), ".org") {
		return KindOutline
	}
	return KindGeneric
}

// Document is an open document in the host.
type Document struct {
	// Name is the host-unique display name.
	Name string
	// Path is the absolute backing file, empty for documents without one.
	Path string
	Kind Kind
	// Content holds the live text when it differs from the backing file.
	// nil means the file on disk is current.
	Content *string
	// Visible is true when the document is shown in some viewport.
	Visible bool
	// Ephemeral marks UI-only scratch documents that never act as sources.
	Ephemeral bool
}

// Text returns the current text of the document.
func (d *Document) Text() (string, error) {
	if d.Content != nil {
		return *d.Content, nil
	}
	if d.Path == "" {
		return "", nil
	}
	data, err := os.ReadFile(d.Path)
	if err != nil {
		return "", fmt.Errorf("failed to read document %s: %w", d.Name, err)
	}
	return string(data), nil
}

// Host exposes the documents currently loaded in the editing environment.
type Host interface {
	// Lookup finds an open document by name.
	Lookup(name string) (*Document, bool)
	// Documents returns every open document in a stable order.
	Documents() ([]*Document, error)
}
