package document

import (
	"slices"
	"sync"
)

// MemoryHost is an in-process Host holding documents in insertion order.
type MemoryHost struct {
	mu   sync.RWMutex
	docs []*Document
}

// NewMemoryHost creates a MemoryHost with the given documents.
func NewMemoryHost(docs ...*Document) *MemoryHost {
	return &MemoryHost{docs: slices.Clone(docs)}
}

// Open adds doc, replacing any document with the same name.
func (h *MemoryHost) Open(doc *Document) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.docs = slices.DeleteFunc(h.docs, func(d *Document) bool { return d.Name == doc.Name })
	h.docs = append(h.docs, doc)
}

// Close removes the named document.
func (h *MemoryHost) Close(name string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.docs = slices.DeleteFunc(h.docs, func(d *Document) bool { return d.Name == name })
}

// Lookup implements Host.
func (h *MemoryHost) Lookup(name string) (*Document, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	i := slices.IndexFunc(h.docs, func(d *Document) bool { return d.Name == name })
	if i < 0 {
		return nil, false
	}
	return h.docs[i], true
}

// Documents implements Host.
func (h *MemoryHost) Documents() ([]*Document, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return slices.Clone(h.docs), nil
}
