// Package persist stores a document's reference list inside the document
// itself. Outline documents use a multi-valued root property; every other
// document uses a trailing local variables block.
package persist

import (
	"errors"
	"fmt"
	"os"

	"github.com/atinylittleshell/ctxref/internal/document"
	"github.com/atinylittleshell/ctxref/internal/references"
	"go.uber.org/zap"
)

// ErrMalformed is returned when a persisted reference list cannot be parsed.
var ErrMalformed = errors.New("malformed persisted reference list")

// Codec embeds reference lists in document text.
type Codec interface {
	// Encode returns content with refs stored in it, replacing any list
	// already present. An empty refs removes the stored list.
	Encode(content string, refs []string) (string, error)
	// Decode extracts the stored list. found is false when none is present.
	Decode(content string) (refs []string, found bool, err error)
}

// ForDocument picks the codec for the document kind.
func ForDocument(doc *document.Document) Codec {
	if doc.Kind == document.KindOutline {
		return Outline{}
	}
	return NewLocalVariables(doc.Path)
}

// SaveFunc is a host routine that saves a document.
type SaveFunc func(doc *document.Document) error

// RestoreFunc is a host routine that restores a document's saved state.
type RestoreFunc func(doc *document.Document) error

// Persister writes and reads the reference lists held in a Registry.
type Persister struct {
	registry *references.Registry
	logger   *zap.Logger
}

// NewPersister creates a Persister over registry.
func NewPersister(registry *references.Registry, logger *zap.Logger) *Persister {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Persister{
		registry: registry,
		logger:   logger,
	}
}

// Save stores the document's current reference list in the document. Live
// content is updated in place; otherwise the backing file is rewritten.
// A document with no store and no persisted list is left alone.
func (p *Persister) Save(doc *document.Document) error {
	refs := p.registry.Snapshot(doc.Name)

	text, err := doc.Text()
	if err != nil {
		return err
	}
	codec := ForDocument(doc)
	if len(refs) == 0 {
		if _, found, _ := codec.Decode(text); !found {
			return nil
		}
	}

	updated, err := codec.Encode(text, refs)
	if err != nil {
		return fmt.Errorf("failed to encode references for %s: %w", doc.Name, err)
	}
	if updated == text {
		return nil
	}

	if doc.Content != nil {
		*doc.Content = updated
		return nil
	}
	if doc.Path == "" {
		return fmt.Errorf("document %s has no file to save to", doc.Name)
	}
	if err := writeFilePreservingMode(doc.Path, updated); err != nil {
		return err
	}

	p.logger.Debug("saved local context", zap.String("document", doc.Name), zap.Int("references", len(refs)))
	return nil
}

// Restore reads the persisted list from the document into its store,
// replacing what the store held, even when the persisted list is empty.
// found is false when the document holds no list; the store is then left
// unchanged.
func (p *Persister) Restore(doc *document.Document) (refs []string, found bool, err error) {
	text, err := doc.Text()
	if err != nil {
		return nil, false, err
	}
	refs, found, err = ForDocument(doc).Decode(text)
	if err != nil {
		return nil, false, fmt.Errorf("failed to restore references for %s: %w", doc.Name, err)
	}
	if !found {
		return nil, false, nil
	}

	store := p.registry.Ensure(doc.Name)
	store.Replace(refs)
	p.logger.Debug("restored local context", zap.String("document", doc.Name), zap.Int("references", len(refs)))
	return store.Snapshot(), true, nil
}

// WrapSave runs the host save routine and then stores the reference list.
func (p *Persister) WrapSave(next SaveFunc) SaveFunc {
	return func(doc *document.Document) error {
		if err := next(doc); err != nil {
			return err
		}
		return p.Save(doc)
	}
}

// WrapRestore runs the host restore routine and then loads the reference
// list, reporting it the way Restore does.
func (p *Persister) WrapRestore(next RestoreFunc) func(doc *document.Document) ([]string, bool, error) {
	return func(doc *document.Document) ([]string, bool, error) {
		if err := next(doc); err != nil {
			return nil, false, err
		}
		return p.Restore(doc)
	}
}

func writeFilePreservingMode(path, content string) error {
	mode := os.FileMode(0644)
	if info, err := os.Stat(path); err == nil {
		mode = info.Mode().Perm()
	}
	if err := os.WriteFile(path, []byte(content), mode); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
